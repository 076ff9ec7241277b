package view

import (
	"errors"
	"fmt"
	"math"

	"github.com/Garsondee/Rally-Point/internal/game"
)

// Controller turns pointer input into selections and orders for the local
// faction. It holds no ebiten state.
type Controller struct {
	World   *game.World
	Faction int
	// Status is the outcome of the last order, shown in the HUD.
	Status string

	selected []*game.Agent
}

// Selected returns the selected agents that can still take orders.
func (c *Controller) Selected() []*game.Agent {
	live := c.selected[:0]
	for _, a := range c.selected {
		if a.IsAlive() && a.BoardedOn() == nil && a.Faction() == c.Faction {
			live = append(live, a)
		}
	}
	c.selected = live
	return live
}

// IsSelected reports whether a is in the selection.
func (c *Controller) IsSelected(a *game.Agent) bool {
	for _, s := range c.selected {
		if s == a {
			return true
		}
	}
	return false
}

// EntityAt returns the nearest visible entity whose footprint, grown by pick,
// contains p. Agents win over structures.
func (c *Controller) EntityAt(p game.Vec3, pick float64) game.Entity {
	var best game.Entity
	bestD := math.MaxFloat64
	for _, a := range c.World.Agents() {
		if !a.IsAlive() || a.IsInvisible() {
			continue
		}
		if d := a.Position().PlanarDist(p); d <= a.Radius()+pick && d < bestD {
			best, bestD = a, d
		}
	}
	if best != nil {
		return best
	}
	for _, s := range c.World.Structures() {
		if !s.IsAlive() {
			continue
		}
		if d := s.Position().PlanarDist(p); d <= s.Radius()+pick && d < bestD {
			best, bestD = s, d
		}
	}
	return best
}

// SelectAt selects the own agent under p. With additive the agent is toggled
// in the current selection instead of replacing it.
func (c *Controller) SelectAt(p game.Vec3, pick float64, additive bool) bool {
	a, ok := c.EntityAt(p, pick).(*game.Agent)
	if !ok || a.Faction() != c.Faction {
		if !additive {
			c.selected = nil
		}
		return false
	}
	if !additive {
		c.selected = []*game.Agent{a}
		return true
	}
	for i, s := range c.selected {
		if s == a {
			c.selected = append(c.selected[:i], c.selected[i+1:]...)
			return true
		}
	}
	c.selected = append(c.selected, a)
	return true
}

// SelectBox selects every own agent inside the rectangle spanned by a and b.
func (c *Controller) SelectBox(a, b game.Vec3) int {
	minX, maxX := min(a.X, b.X), max(a.X, b.X)
	minZ, maxZ := min(a.Z, b.Z), max(a.Z, b.Z)
	c.selected = nil
	for _, ag := range c.World.AgentsOf(c.Faction) {
		p := ag.Position()
		if ag.IsAlive() && !ag.IsInvisible() && p.X >= minX && p.X <= maxX && p.Z >= minZ && p.Z <= maxZ {
			c.selected = append(c.selected, ag)
		}
	}
	return len(c.selected)
}

// SelectAll selects every living own agent.
func (c *Controller) SelectAll() int {
	c.selected = nil
	for _, a := range c.World.AgentsOf(c.Faction) {
		if a.IsAlive() && !a.IsInvisible() {
			c.selected = append(c.selected, a)
		}
	}
	return len(c.selected)
}

// InteractionMode picks what the agents should do at an own structure.
func InteractionMode(s *game.Structure, agents []*game.Agent) game.MoveMode {
	can := func(cp game.Capability) bool {
		for _, a := range agents {
			if a.Can(cp) {
				return true
			}
		}
		return false
	}
	switch {
	case !s.Built() && can(game.CapBuild):
		return game.ModeBuild
	case s.Capacity() > 0 && can(game.CapBoard):
		return game.ModeBoard
	case can(game.CapTeleport):
		if _, ok := s.Exit(); ok {
			return game.ModeTeleport
		}
	}
	if s.Workers().Capacity() > 0 && can(game.CapCollect) {
		return game.ModeCollect
	}
	return game.ModeNone
}

// Command issues the context order for a right click at p: attack an enemy,
// interact with an own structure, or move.
func (c *Controller) Command(p game.Vec3, pick float64, queue bool) error {
	agents := c.Selected()
	if len(agents) == 0 {
		c.Status = "nothing selected"
		return nil
	}

	var (
		n   int
		err error
		msg string
	)
	target := c.EntityAt(p, pick)
	switch t := target.(type) {
	case nil:
		n, err = c.World.MoveGroup(agents, p, 0, nil, game.ModeNone)
		msg = "move"
	case *game.Structure:
		if t.Faction() != c.Faction {
			n, err = c.World.Attack(agents, t, attackOrder(queue))
			msg = "attack " + t.Label()
			break
		}
		mode := InteractionMode(t, agents)
		dest := t.Position()
		if mode == game.ModeNone {
			dest = p
		}
		n, err = c.World.MoveGroup(agents, dest, 0, t, mode)
		msg = fmt.Sprintf("%s %s", mode, t.Label())
	case *game.Agent:
		if t.Faction() == c.Faction {
			n, err = c.World.MoveGroup(agents, t.Position(), 0, nil, game.ModeNone)
			msg = "join " + t.Label()
			break
		}
		n, err = c.World.Attack(agents, t, attackOrder(queue))
		msg = "attack " + t.Label()
	}

	c.Status = fmt.Sprintf("%s: %d/%d", msg, n, len(agents))
	if err != nil {
		c.Status += " (" + shortError(err) + ")"
	}
	return err
}

// UnloadAt empties the own transport under p.
func (c *Controller) UnloadAt(p game.Vec3, pick float64) int {
	s, ok := c.EntityAt(p, pick).(*game.Structure)
	if !ok || s.Faction() != c.Faction {
		return 0
	}
	n := len(s.Unload())
	c.Status = fmt.Sprintf("unloaded %d from %s", n, s.Label())
	return n
}

func attackOrder(queue bool) game.AttackOrder {
	if queue {
		return game.OrderAssigned
	}
	return game.OrderChange
}

func shortError(err error) string {
	for _, known := range []error{
		game.ErrGroupPartial, game.ErrUnreachable, game.ErrNoRingSlot,
		game.ErrNoWorkerSlot, game.ErrNoTarget, game.ErrImmobile,
	} {
		if errors.Is(err, known) {
			return known.Error()
		}
	}
	return err.Error()
}

func pluralAgents(n int) string {
	if n == 1 {
		return "1 agent"
	}
	return fmt.Sprintf("%d agents", n)
}
