// Package render draws static room previews from a live game state.
package render

import (
	"image"

	"github.com/fogleman/gg"

	"trail-arena/internal/game"
)

// DefaultPreviewSize is the side length of the preview image in pixels.
const DefaultPreviewSize = 320

const (
	backgroundColor = "#15151f"
	borderColor     = "#3d3d52"
	headRingColor   = "#ffffff"
)

var bonusColors = map[game.Affect]string{
	game.AffectSelf:  "#7fff7f",
	game.AffectEnemy: "#ff5f5f",
	game.AffectAll:   "#ffd75f",
	game.AffectGame:  "#5fb0ff",
}

// Preview renders the field as a square image of px pixels. The caller holds
// the room lock, so the snapshot is consistent.
func Preview(g *game.Game, px int) image.Image {
	if px <= 0 {
		px = DefaultPreviewSize
	}
	dc := gg.NewContext(px, px)
	scale := float64(px) / g.Size

	dc.SetHexColor(backgroundColor)
	dc.Clear()

	if !g.Borderless {
		dc.SetHexColor(borderColor)
		dc.SetLineWidth(2)
		dc.DrawRectangle(1, 1, float64(px)-2, float64(px)-2)
		dc.Stroke()
	}

	// Trail points come back in insertion order, so fresh prints land on top.
	for _, b := range g.World.Bodies() {
		avatar, ok := b.Data.(*game.Avatar)
		if !ok {
			continue
		}
		dc.SetHexColor(avatar.Color)
		dc.DrawCircle(b.X*scale, b.Y*scale, b.Radius*scale)
		dc.Fill()
	}

	for _, b := range g.BonusManager.Bonuses() {
		dc.SetHexColor(bonusColors[b.Affect()])
		dc.DrawCircle(b.Body.X*scale, b.Body.Y*scale, b.Body.Radius*scale)
		dc.Fill()
	}

	// Heads get a white ring so they read over their own trail color.
	for _, a := range g.Avatars {
		if !a.Present || !a.Alive {
			continue
		}
		r := a.Radius() * scale
		if r < 2 {
			r = 2
		}
		dc.SetHexColor(a.Color)
		dc.DrawCircle(a.X*scale, a.Y*scale, r)
		dc.Fill()
		dc.SetHexColor(headRingColor)
		dc.SetLineWidth(1)
		dc.DrawCircle(a.X*scale, a.Y*scale, r+1)
		dc.Stroke()
	}

	return dc.Image()
}
