package view

import (
	"fmt"

	"github.com/hajimehoshi/ebiten/v2"

	"github.com/Garsondee/Rally-Point/internal/game"
)

// inspectLines describes one entity for the inspector panel.
func inspectLines(e game.Entity) []string {
	h := e.Health()
	lines := []string{
		fmt.Sprintf("%s  [%s]  faction %d", e.Label(), e.Code(), e.Faction()),
		fmt.Sprintf("hp %.0f/%.0f", h.Current(), h.Max()),
	}
	if d := h.DoT(); d != nil {
		if d.Infinite {
			lines = append(lines, fmt.Sprintf("burning %.1f every %d", d.Damage, d.Cycle))
		} else {
			lines = append(lines, fmt.Sprintf("burning %.1f every %d (%d left)", d.Damage, d.Cycle, d.Remaining))
		}
	}

	switch v := e.(type) {
	case *game.Agent:
		if v.Moving() {
			dst := v.Destination()
			lines = append(lines, fmt.Sprintf("moving to (%.1f,%.1f)", dst.X, dst.Z))
		}
		if in := v.Interaction(); in.Target != nil {
			state := "en route"
			if in.Engaged {
				state = "engaged"
			}
			lines = append(lines, fmt.Sprintf("%s %s (%s)", in.Mode, in.Target.Label(), state))
		}
	case *game.Structure:
		if !v.Built() {
			lines = append(lines, "under construction")
		}
		if w := v.Workers(); w.Capacity() > 0 {
			lines = append(lines, fmt.Sprintf("workers %d/%d", w.CurrentWorkers(), w.Capacity()))
		}
		if v.Capacity() > 0 {
			lines = append(lines, fmt.Sprintf("passengers %d/%d", len(v.Passengers()), v.Capacity()))
		}
	}

	if at, ok := e.(game.Attacker); ok && at.Attack() != nil {
		st := at.Attack()
		p := st.Profile()
		lines = append(lines, fmt.Sprintf("attack %s (%s)  %s", p.Code, p.RangeClass, st.State()))
		if t := st.Target(); t != nil {
			lines = append(lines, "target "+t.Label())
		}
		if r := st.ReloadRemaining(); r > 0 {
			lines = append(lines, fmt.Sprintf("reload %d", r))
		}
		if c := st.CooldownRemaining(); c > 0 {
			lines = append(lines, fmt.Sprintf("cooldown %d", c))
		}
	}
	return lines
}

// drawInspector shows the entity under the cursor, or the first selected
// agent when the cursor is over empty ground.
func (g *Game) drawInspector(screen *ebiten.Image) {
	mx, my := ebiten.CursorPosition()
	var e game.Entity
	if g.inBattlefield(mx, my) {
		e = g.ctl.EntityAt(g.cam.toWorld(mx, my), pickPixels/g.cam.ppu())
	}
	if e == nil {
		if sel := g.ctl.Selected(); len(sel) > 0 {
			e = sel[0]
		}
	}
	if e == nil {
		return
	}
	g.panel(screen, float32(borderWidth+g.gameWidth-300), borderWidth+6, inspectLines(e))
}
