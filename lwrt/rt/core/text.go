package core

import (
	"fmt"
	"image"
	"image/draw"

	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
)

const glyphAtlasSize = 512

type TextVertex struct {
	Pos   [2]float32
	UV    [2]float32
	Color [4]float32
}

// TextItem is positioned in pixels from the top-left corner of the window.
type TextItem struct {
	Text     string
	Position [2]float32
	Scale    float32
	Color    [4]float32
}

type Glyph struct {
	UVMin [2]float32
	UVMax [2]float32
	Size  [2]float32
	Off   [2]float32
	Adv   float32
}

// GlyphAtlas rasterizes printable ASCII into a single alpha texture.
type GlyphAtlas struct {
	Image  *image.Alpha
	Glyphs map[rune]Glyph
	face   font.Face
}

func NewDefaultGlyphAtlas(size float64) (*GlyphAtlas, error) {
	return NewGlyphAtlas(goregular.TTF, size)
}

func NewGlyphAtlas(fontBytes []byte, size float64) (*GlyphAtlas, error) {
	f, err := opentype.Parse(fontBytes)
	if err != nil {
		return nil, fmt.Errorf("parse font: %w", err)
	}
	face, err := opentype.NewFace(f, &opentype.FaceOptions{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingFull,
	})
	if err != nil {
		return nil, fmt.Errorf("create face: %w", err)
	}

	atlas := image.NewAlpha(image.Rect(0, 0, glyphAtlasSize, glyphAtlasSize))
	glyphs := make(map[rune]Glyph)

	x, y := 2, 2
	rowHeight := 0
	for r := rune(32); r < 127; r++ {
		bounds, mask, _, adv, ok := face.Glyph(fixed.Point26_6{}, r)
		if !ok {
			continue
		}
		w := mask.Bounds().Dx()
		h := mask.Bounds().Dy()
		if x+w >= glyphAtlasSize {
			x = 2
			y += rowHeight + 4
			rowHeight = 0
		}
		if y+h >= glyphAtlasSize {
			break
		}
		draw.Draw(atlas, image.Rect(x, y, x+w, y+h), mask, mask.Bounds().Min, draw.Src)
		glyphs[r] = Glyph{
			UVMin: [2]float32{float32(x) / glyphAtlasSize, float32(y) / glyphAtlasSize},
			UVMax: [2]float32{float32(x+w) / glyphAtlasSize, float32(y+h) / glyphAtlasSize},
			Size:  [2]float32{float32(w), float32(h)},
			Off:   [2]float32{float32(bounds.Min.X), float32(bounds.Min.Y)},
			Adv:   float32(adv) / 64.0,
		}
		x += w + 4
		rowHeight = max(rowHeight, h)
	}

	return &GlyphAtlas{Image: atlas, Glyphs: glyphs, face: face}, nil
}

// BuildVertices emits two triangles per glyph in clip space.
func (a *GlyphAtlas) BuildVertices(items []TextItem, screenW, screenH int, out []TextVertex) []TextVertex {
	if screenW <= 0 || screenH <= 0 {
		return out
	}
	sw := float32(screenW)
	sh := float32(screenH)
	metrics := a.face.Metrics()
	ascent := float32(metrics.Ascent.Ceil())
	lineHeight := float32(metrics.Height.Ceil())

	for _, item := range items {
		scale := item.Scale
		if scale == 0 {
			scale = 1
		}
		posX := item.Position[0]
		posY := item.Position[1] + ascent*scale
		for _, r := range item.Text {
			if r == '\n' {
				posX = item.Position[0]
				posY += lineHeight * scale
				continue
			}
			g, ok := a.Glyphs[r]
			if !ok {
				continue
			}
			x0 := (posX+g.Off[0]*scale)/sw*2.0 - 1.0
			y0 := 1.0 - (posY+g.Off[1]*scale)/sh*2.0
			x1 := (posX+(g.Off[0]+g.Size[0])*scale)/sw*2.0 - 1.0
			y1 := 1.0 - (posY+(g.Off[1]+g.Size[1])*scale)/sh*2.0

			out = append(out,
				TextVertex{Pos: [2]float32{x0, y0}, UV: [2]float32{g.UVMin[0], g.UVMin[1]}, Color: item.Color},
				TextVertex{Pos: [2]float32{x1, y0}, UV: [2]float32{g.UVMax[0], g.UVMin[1]}, Color: item.Color},
				TextVertex{Pos: [2]float32{x0, y1}, UV: [2]float32{g.UVMin[0], g.UVMax[1]}, Color: item.Color},
				TextVertex{Pos: [2]float32{x1, y0}, UV: [2]float32{g.UVMax[0], g.UVMin[1]}, Color: item.Color},
				TextVertex{Pos: [2]float32{x1, y1}, UV: [2]float32{g.UVMax[0], g.UVMax[1]}, Color: item.Color},
				TextVertex{Pos: [2]float32{x0, y1}, UV: [2]float32{g.UVMin[0], g.UVMax[1]}, Color: item.Color},
			)
			posX += g.Adv * scale
		}
	}
	return out
}

func (a *GlyphAtlas) MeasureText(text string, scale float32) (float32, float32) {
	lineHeight := float32(a.face.Metrics().Height.Ceil())
	maxW, w := float32(0), float32(0)
	lines := 1
	for _, r := range text {
		if r == '\n' {
			maxW = max(maxW, w)
			w = 0
			lines++
			continue
		}
		if g, ok := a.Glyphs[r]; ok {
			w += g.Adv * scale
		}
	}
	return max(maxW, w), lineHeight * scale * float32(lines)
}
