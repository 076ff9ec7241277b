package view

import "github.com/Garsondee/Rally-Point/internal/game"

const (
	zoomMin = 0.5
	zoomMax = 4.0
)

// camera maps world X/Z onto the battlefield viewport.
type camera struct {
	x, z  float64 // world-space centre
	zoom  float64
	scale float64 // pixels per world unit at zoom 1
	vpW   float64
	vpH   float64
	offX  float64 // viewport offset inside the window
	offY  float64
}

func (c camera) ppu() float64 { return c.scale * c.zoom }

func (c camera) toScreen(p game.Vec3) (float32, float32) {
	sx := (p.X-c.x)*c.ppu() + c.vpW/2 + c.offX
	sy := (p.Z-c.z)*c.ppu() + c.vpH/2 + c.offY
	return float32(sx), float32(sy)
}

func (c camera) toWorld(sx, sy int) game.Vec3 {
	return game.V3(
		(float64(sx)-c.offX-c.vpW/2)/c.ppu()+c.x,
		(float64(sy)-c.offY-c.vpH/2)/c.ppu()+c.z,
	)
}

func (c camera) length(world float64) float32 { return float32(world * c.ppu()) }

// clamp keeps the zoom in range and the view inside a width x depth map.
func (c *camera) clamp(width, depth float64) {
	c.zoom = min(max(c.zoom, zoomMin), zoomMax)
	halfW := c.vpW / 2 / c.ppu()
	halfD := c.vpH / 2 / c.ppu()
	if halfW*2 >= width {
		c.x = width / 2
	} else {
		c.x = min(max(c.x, halfW), width-halfW)
	}
	if halfD*2 >= depth {
		c.z = depth / 2
	} else {
		c.z = min(max(c.z, halfD), depth-halfD)
	}
}
