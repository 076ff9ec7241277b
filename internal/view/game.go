// Package view renders a World with ebiten and turns mouse and keyboard
// input into orders for the local faction.
package view

import (
	"image/color"
	"math"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/text/v2"
	"github.com/rs/zerolog"
	"golang.org/x/image/font/basicfont"

	"github.com/Garsondee/Rally-Point/internal/game"
)

// borderWidth is the pixel gap between the window edge and the battlefield.
const borderWidth = 24

// logPanelWidth is the message panel to the right of the battlefield.
const logPanelWidth = 360

// pickPixels is the click tolerance in screen pixels.
const pickPixels = 8.0

type Game struct {
	width      int
	height     int
	gameWidth  int
	gameHeight int

	world *game.World
	ctl   *Controller
	cam   camera
	face  *text.GoXFace
	log   zerolog.Logger

	showHUD   bool
	showSlots bool
	prevKeys  map[ebiten.Key]bool

	// Box selection in progress.
	dragging  bool
	dragStart game.Vec3
	prevLeft  bool
	prevRight bool

	simSpeed  float64 // 0=paused, 0.5, 1, 2, 4
	tickAccum float64
}

// New wraps w for display. localFaction is the faction the player controls.
func New(w *game.World, localFaction int, log zerolog.Logger) *Game {
	battleW, battleH := 1280, 800
	mapW, mapD := w.Nav.Size()
	g := &Game{
		width:      borderWidth + battleW + borderWidth + logPanelWidth,
		height:     borderWidth + battleH + borderWidth,
		gameWidth:  battleW,
		gameHeight: battleH,
		world:      w,
		ctl:        &Controller{World: w, Faction: localFaction},
		face:       text.NewGoXFace(basicfont.Face7x13),
		log:        log,
		showHUD:    true,
		prevKeys:   make(map[ebiten.Key]bool),
		simSpeed:   1,
	}
	g.cam = camera{
		x:     mapW / 2,
		z:     mapD / 2,
		zoom:  1,
		scale: math.Min(float64(battleW)/mapW, float64(battleH)/mapD),
		vpW:   float64(battleW),
		vpH:   float64(battleH),
		offX:  borderWidth,
		offY:  borderWidth,
	}
	return g
}

func (g *Game) Update() error {
	g.handleInput()

	if g.simSpeed <= 0 {
		return nil
	}
	g.tickAccum += g.simSpeed
	for g.tickAccum >= 1.0 {
		g.tickAccum -= 1.0
		g.world.Tick()
		releaseTriggers(g.world)
	}
	return nil
}

// releaseTriggers stands in for attack animations: every attacker holding
// for its trigger fires on the next tick.
func releaseTriggers(w *game.World) int {
	n := 0
	fire := func(st *game.AttackState) {
		if st != nil && st.State() == game.CombatWaitingForTrigger {
			st.Trigger()
			n++
		}
	}
	for _, a := range w.Agents() {
		fire(a.Attack())
	}
	for _, s := range w.Structures() {
		fire(s.Attack())
	}
	return n
}

// pressed reports a key going down this frame.
func (g *Game) pressed(k ebiten.Key, current map[ebiten.Key]bool) bool {
	current[k] = ebiten.IsKeyPressed(k)
	return current[k] && !g.prevKeys[k]
}

func (g *Game) handleInput() {
	currentKeys := map[ebiten.Key]bool{}

	if g.pressed(ebiten.KeyH, currentKeys) {
		g.showHUD = !g.showHUD
	}
	if g.pressed(ebiten.KeyF, currentKeys) {
		g.showSlots = !g.showSlots
	}
	if g.pressed(ebiten.KeyTab, currentKeys) {
		n := g.ctl.SelectAll()
		g.ctl.Status = pluralAgents(n) + " selected"
	}

	// Camera pan: WASD or arrow keys.
	panSpeed := 8.0 / g.cam.ppu()
	if ebiten.IsKeyPressed(ebiten.KeyW) || ebiten.IsKeyPressed(ebiten.KeyArrowUp) {
		g.cam.z -= panSpeed
	}
	if ebiten.IsKeyPressed(ebiten.KeyS) || ebiten.IsKeyPressed(ebiten.KeyArrowDown) {
		g.cam.z += panSpeed
	}
	if ebiten.IsKeyPressed(ebiten.KeyA) || ebiten.IsKeyPressed(ebiten.KeyArrowLeft) {
		g.cam.x -= panSpeed
	}
	if ebiten.IsKeyPressed(ebiten.KeyD) || ebiten.IsKeyPressed(ebiten.KeyArrowRight) {
		g.cam.x += panSpeed
	}
	if _, wy := ebiten.Wheel(); wy != 0 {
		g.cam.zoom *= math.Pow(1.12, wy)
	}
	if g.pressed(ebiten.KeyEqual, currentKeys) {
		g.cam.zoom *= 1.25
	}
	if g.pressed(ebiten.KeyMinus, currentKeys) {
		g.cam.zoom /= 1.25
	}
	g.cam.clamp(g.world.Nav.Size())

	// Sim speed controls: P=pause/resume, ,=slower, .=faster.
	speeds := []float64{0, 0.5, 1, 2, 4}
	if g.pressed(ebiten.KeyP, currentKeys) {
		if g.simSpeed > 0 {
			g.simSpeed = 0
		} else {
			g.simSpeed = 1
		}
	}
	if g.pressed(ebiten.KeyComma, currentKeys) {
		for i, s := range speeds {
			if s >= g.simSpeed && i > 0 {
				g.simSpeed = speeds[i-1]
				break
			}
		}
	}
	if g.pressed(ebiten.KeyPeriod, currentKeys) {
		for _, s := range speeds {
			if s > g.simSpeed {
				g.simSpeed = s
				break
			}
		}
	}

	mx, my := ebiten.CursorPosition()
	cursor := g.cam.toWorld(mx, my)
	pick := pickPixels / g.cam.ppu()
	shift := ebiten.IsKeyPressed(ebiten.KeyShift)

	if g.pressed(ebiten.KeyU, currentKeys) {
		g.ctl.UnloadAt(cursor, pick)
	}

	// Left button: click selects, drag box-selects.
	left := ebiten.IsMouseButtonPressed(ebiten.MouseButtonLeft)
	switch {
	case left && !g.prevLeft && g.inBattlefield(mx, my):
		g.dragging = true
		g.dragStart = cursor
	case !left && g.prevLeft && g.dragging:
		g.dragging = false
		if g.dragStart.PlanarDist(cursor) < pick {
			g.ctl.SelectAt(cursor, pick, shift)
		} else {
			g.ctl.SelectBox(g.dragStart, cursor)
		}
	}
	g.prevLeft = left

	// Right button: context order.
	right := ebiten.IsMouseButtonPressed(ebiten.MouseButtonRight)
	if right && !g.prevRight && g.inBattlefield(mx, my) {
		if err := g.ctl.Command(cursor, pick, shift); err != nil {
			g.log.Debug().Err(err).Str("status", g.ctl.Status).Msg("order refused")
		}
	}
	g.prevRight = right

	g.prevKeys = currentKeys
}

func (g *Game) inBattlefield(mx, my int) bool {
	return mx >= borderWidth && mx < borderWidth+g.gameWidth &&
		my >= borderWidth && my < borderWidth+g.gameHeight
}

func (g *Game) Draw(screen *ebiten.Image) {
	screen.Fill(color.RGBA{R: 12, G: 14, B: 12, A: 255})
	g.drawWorld(screen)
	g.drawFrame(screen)
	g.drawMessages(screen, borderWidth*2+g.gameWidth)
	if g.showHUD {
		g.drawHUD(screen)
	}
	g.drawInspector(screen)
}

func (g *Game) Layout(_, _ int) (int, int) {
	return g.width, g.height
}

// Size returns the window size the game lays out for.
func (g *Game) Size() (int, int) {
	return g.width, g.height
}
