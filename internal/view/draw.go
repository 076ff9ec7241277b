package view

import (
	"fmt"
	"image"
	"image/color"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/text/v2"
	"github.com/hajimehoshi/ebiten/v2/vector"

	"github.com/Garsondee/Rally-Point/internal/game"
)

const lineH = 15

var (
	groundCol  = color.RGBA{R: 38, G: 52, B: 36, A: 255}
	gridCol    = color.RGBA{R: 48, G: 64, B: 46, A: 255}
	blockedCol = color.RGBA{R: 70, G: 70, B: 66, A: 255}
	selectCol  = color.RGBA{R: 255, G: 255, B: 140, A: 255}
	panelBg    = color.RGBA{R: 6, G: 10, B: 6, A: 210}
	panelEdge  = color.RGBA{R: 60, G: 100, B: 60, A: 180}
	textCol    = color.RGBA{R: 210, G: 225, B: 210, A: 255}
	dimTextCol = color.RGBA{R: 140, G: 160, B: 140, A: 255}
)

var factionCols = []color.RGBA{
	{R: 220, G: 60, B: 60, A: 255},
	{R: 60, G: 110, B: 230, A: 255},
	{R: 230, G: 190, B: 50, A: 255},
	{R: 90, G: 200, B: 110, A: 255},
}

func factionColor(f int, alpha uint8) color.RGBA {
	c := color.RGBA{R: 160, G: 160, B: 160, A: 255}
	if f >= 0 && f < len(factionCols) {
		c = factionCols[f]
	}
	c.A = alpha
	return c
}

func (g *Game) print(dst *ebiten.Image, s string, x, y float64, clr color.Color) {
	op := &text.DrawOptions{}
	op.GeoM.Translate(x, y)
	op.ColorScale.ScaleWithColor(clr)
	text.Draw(dst, s, g.face, op)
}

// panel draws a framed box and the lines inside it.
func (g *Game) panel(dst *ebiten.Image, x, y float32, lines []string) {
	w := 0
	for _, l := range lines {
		w = max(w, len(l))
	}
	boxW := float32(w*7 + 12)
	boxH := float32(len(lines)*lineH + 8)
	vector.FillRect(dst, x, y, boxW, boxH, panelBg, false)
	vector.StrokeRect(dst, x, y, boxW, boxH, 1, panelEdge, false)
	for i, l := range lines {
		g.print(dst, l, float64(x)+6, float64(y)+4+float64(i*lineH), textCol)
	}
}

func (g *Game) drawWorld(screen *ebiten.Image) {
	sub := screen.SubImage(image.Rect(borderWidth, borderWidth, borderWidth+g.gameWidth, borderWidth+g.gameHeight)).(*ebiten.Image)
	sub.Fill(groundCol)
	g.drawTerrain(sub)

	for _, s := range g.world.Structures() {
		g.drawStructure(sub, s)
	}
	for _, a := range g.world.Agents() {
		if a.IsAlive() && !a.IsInvisible() {
			g.drawAgent(sub, a)
		}
	}
	for _, pr := range g.world.Projectiles.Active() {
		x, y := g.cam.toScreen(pr.Pos)
		vector.FillCircle(sub, x, y, 2, factionColor(pr.Source.Faction(), 255), true)
	}

	if g.dragging {
		mx, my := ebiten.CursorPosition()
		x0, y0 := g.cam.toScreen(g.dragStart)
		x1, y1 := float32(mx), float32(my)
		vector.StrokeRect(sub, min(x0, x1), min(y0, y1), abs32(x1-x0), abs32(y1-y0), 1, selectCol, false)
	}
}

func (g *Game) drawTerrain(dst *ebiten.Image) {
	nav := g.world.Nav
	w, d := nav.Size()
	cs := nav.CellSize()
	px := g.cam.length(cs)
	for cz := 0; float64(cz)*cs < d; cz++ {
		for cx := 0; float64(cx)*cs < w; cx++ {
			if !nav.IsBlocked(cx, cz, game.AreaGround) {
				continue
			}
			x, y := g.cam.toScreen(game.V3(float64(cx)*cs, float64(cz)*cs))
			vector.FillRect(dst, x, y, px, px, blockedCol, false)
		}
	}
	if px < 6 {
		return
	}
	step := 8.0
	for x := 0.0; x <= w; x += step {
		x0, y0 := g.cam.toScreen(game.V3(x, 0))
		x1, y1 := g.cam.toScreen(game.V3(x, d))
		vector.StrokeLine(dst, x0, y0, x1, y1, 1, gridCol, false)
	}
	for z := 0.0; z <= d; z += step {
		x0, y0 := g.cam.toScreen(game.V3(0, z))
		x1, y1 := g.cam.toScreen(game.V3(w, z))
		vector.StrokeLine(dst, x0, y0, x1, y1, 1, gridCol, false)
	}
}

func (g *Game) drawStructure(dst *ebiten.Image, s *game.Structure) {
	x, y := g.cam.toScreen(s.Position())
	r := g.cam.length(s.Radius())
	if !s.IsAlive() {
		vector.StrokeCircle(dst, x, y, r, 1, color.RGBA{R: 90, G: 80, B: 70, A: 160}, true)
		return
	}
	fill := factionColor(s.Faction(), 150)
	if !s.Built() {
		fill.A = 60
	}
	vector.FillRect(dst, x-r, y-r, 2*r, 2*r, fill, false)
	vector.StrokeRect(dst, x-r, y-r, 2*r, 2*r, 1.5, factionColor(s.Faction(), 255), false)

	if st := s.Attack(); st != nil {
		br := g.cam.length(s.BorderRadius())
		vector.StrokeCircle(dst, x, y, br, 1, factionColor(s.Faction(), 50), true)
		g.drawTargetLine(dst, x, y, st)
	}
	for _, slot := range s.Workers().Slots() {
		if slot.Anchor == nil {
			continue
		}
		sx, sy := g.cam.toScreen(*slot.Anchor)
		c := color.RGBA{R: 200, G: 200, B: 200, A: 90}
		if slot.Occupant != nil {
			c = factionColor(slot.Occupant.Faction(), 200)
		}
		vector.StrokeRect(dst, sx-3, sy-3, 6, 6, 1, c, false)
	}
	if n := len(s.Passengers()); n > 0 {
		g.print(dst, fmt.Sprintf("%d/%d", n, s.Capacity()), float64(x-r), float64(y-r)-14, textCol)
	}
	g.drawHealthBar(dst, x, y-r-4, r*2, s.Health())
}

func (g *Game) drawAgent(dst *ebiten.Image, a *game.Agent) {
	x, y := g.cam.toScreen(a.Position())
	r := max(g.cam.length(a.Radius()), 3)
	selected := g.ctl.IsSelected(a)

	if selected || g.showSlots {
		if path := a.Path(); len(path) > 0 {
			px, py := x, y
			for _, p := range path {
				nx, ny := g.cam.toScreen(p)
				vector.StrokeLine(dst, px, py, nx, ny, 1, color.RGBA{R: 255, G: 255, B: 255, A: 40}, false)
				px, py = nx, ny
			}
			vector.StrokeCircle(dst, px, py, 3, 1, color.RGBA{R: 255, G: 255, B: 255, A: 90}, true)
		}
	}

	vector.FillCircle(dst, x, y, r, factionColor(a.Faction(), 230), true)
	fwd := a.Forward()
	vector.StrokeLine(dst, x, y, x+float32(fwd.X)*r*1.6, y+float32(fwd.Z)*r*1.6, 1.5, color.RGBA{R: 240, G: 240, B: 240, A: 200}, true)
	if selected {
		vector.StrokeCircle(dst, x, y, r+3, 1.5, selectCol, true)
	}
	if a.Health().DoT() != nil {
		vector.StrokeCircle(dst, x, y, r+1, 1, color.RGBA{R: 255, G: 140, B: 0, A: 200}, true)
	}
	if st := a.Attack(); st != nil {
		g.drawTargetLine(dst, x, y, st)
	}
	g.drawHealthBar(dst, x, y-r-4, r*2, a.Health())
}

func (g *Game) drawTargetLine(dst *ebiten.Image, x, y float32, st *game.AttackState) {
	tgt := st.Target()
	if tgt == nil {
		return
	}
	switch st.State() {
	case game.CombatDelaying, game.CombatWaitingForTrigger, game.CombatExecuting:
	default:
		if !g.showSlots {
			return
		}
	}
	tx, ty := g.cam.toScreen(tgt.Position())
	vector.StrokeLine(dst, x, y, tx, ty, 1, color.RGBA{R: 255, G: 80, B: 40, A: 90}, false)
}

func (g *Game) drawHealthBar(dst *ebiten.Image, cx, top, w float32, h *game.Health) {
	if h.Max() <= 0 || h.Current() >= h.Max() {
		return
	}
	frac := float32(h.Current() / h.Max())
	vector.FillRect(dst, cx-w/2, top, w, 2, color.RGBA{R: 60, G: 0, B: 0, A: 200}, false)
	vector.FillRect(dst, cx-w/2, top, w*frac, 2, color.RGBA{R: 80, G: 220, B: 80, A: 230}, false)
}

func (g *Game) drawFrame(screen *ebiten.Image) {
	ox, oy := float32(borderWidth), float32(borderWidth)
	gw, gh := float32(g.gameWidth), float32(g.gameHeight)
	vector.StrokeRect(screen, ox-1, oy-1, gw+2, gh+2, 2.0, color.RGBA{R: 65, G: 90, B: 65, A: 255}, false)
	vector.StrokeRect(screen, ox-3, oy-3, gw+6, gh+6, 1.0, color.RGBA{R: 40, G: 65, B: 40, A: 100}, false)
}

func (g *Game) drawHUD(screen *ebiten.Image) {
	speed := "PAUSED"
	if g.simSpeed > 0 {
		speed = fmt.Sprintf("%.1fx", g.simSpeed)
	}
	lines := []string{
		fmt.Sprintf("T=%d  SIM: %s  P=pause  ,/. speed", g.world.CurrentTick(), speed),
		"L-click/drag=select  shift=add  Tab=all",
		"R-click=move/attack/interact  U=unload",
		fmt.Sprintf("F=paths+targets  H=HUD  zoom %.1fx", g.cam.zoom),
	}
	if g.ctl.Status != "" {
		lines = append(lines, "> "+g.ctl.Status)
	}
	g.panel(screen, borderWidth+6, float32(borderWidth+g.gameHeight)-float32(len(lines)*lineH+14), lines)
}

func (g *Game) drawMessages(screen *ebiten.Image, x int) {
	g.print(screen, "MESSAGES", float64(x), borderWidth, dimTextCol)
	msgs := g.world.Messages.Recent()
	maxLines := (g.gameHeight - lineH) / lineH
	if len(msgs) > maxLines {
		msgs = msgs[len(msgs)-maxLines:]
	}
	for i, m := range msgs {
		line := fmt.Sprintf("[%04d] %s: %s", m.Tick, m.Label, m.Message)
		if len(line) > logPanelWidth/7 {
			line = line[:logPanelWidth/7-1] + "~"
		}
		g.print(screen, line, float64(x), float64(borderWidth+lineH*(i+1)), factionColor(m.Faction, 255))
	}
}

func abs32(v float32) float32 {
	if v < 0 {
		return -v
	}
	return v
}
