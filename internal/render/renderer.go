package render

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"strings"

	"github.com/srwiley/oksvg"
	"github.com/srwiley/rasterx"
	xdraw "golang.org/x/image/draw"

	"github.com/tabla-live/tabla-server/internal/engine"
)

// Base canvas the SVG is authored against. Output can be scaled.
const (
	baseWidth  = 960
	baseHeight = 640
)

// Options control the rendered snapshot.
type Options struct {
	// Width of the output image in pixels; 0 keeps the base size.
	Width int
	// Dice to draw in the center; zero values are omitted.
	Die1, Die2 uint8
}

// BoardPNG renders a board position to a PNG image. The snapshot is drawn
// as an SVG scene and rasterized, matching how live positions are shown to
// players.
func BoardPNG(ctx context.Context, b *engine.Board, offA, offB uint8, opts Options) ([]byte, error) {
	if b == nil {
		return nil, fmt.Errorf("board is nil")
	}
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	svg := buildBoardSVG(b, offA, offB, opts)
	icon, err := oksvg.ReadIconStream(strings.NewReader(svg))
	if err != nil {
		return nil, fmt.Errorf("parse board svg: %w", err)
	}

	img := image.NewRGBA(image.Rect(0, 0, baseWidth, baseHeight))
	icon.SetTarget(0, 0, baseWidth, baseHeight)
	scanner := rasterx.NewScannerGV(baseWidth, baseHeight, img, img.Bounds())
	raster := rasterx.NewDasher(baseWidth, baseHeight, scanner)
	icon.Draw(raster, 1.0)

	out := image.Image(img)
	if opts.Width > 0 && opts.Width != baseWidth {
		h := opts.Width * baseHeight / baseWidth
		scaled := image.NewRGBA(image.Rect(0, 0, opts.Width, h))
		xdraw.CatmullRom.Scale(scaled, scaled.Bounds(), img, img.Bounds(), xdraw.Over, nil)
		out = scaled
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, out); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}

const (
	colBoard    = "#7a5230"
	colField    = "#caa472"
	colDark     = "#8a5a2b"
	colLight    = "#e8d0a9"
	colBar      = "#5d3d1f"
	colCheckerA = "#f5f0e6"
	colCheckerB = "#332722"
	colEdgeA    = "#b4a994"
	colEdgeB    = "#0a0705"
	colDie      = "#fafafa"
	colPip      = "#1a1a1a"
)

// buildBoardSVG lays out 24 triangular points (13..24 across the top,
// 12..1 across the bottom), the center bar with captured checkers and a
// side rail with borne-off checkers. Shapes only: the rasterizer has no
// text support.
func buildBoardSVG(b *engine.Board, offA, offB uint8, opts Options) string {
	const (
		margin    = 20.0
		barW      = 60.0
		railW     = 50.0
		checkerR  = 17.0
		pointH    = 240.0
		fieldW    = baseWidth - 2*margin - railW
		halfW     = (fieldW - barW) / 2
		pointW    = halfW / 6
		fieldX    = margin
		fieldTop  = margin
		fieldBot  = baseHeight - margin
		barX      = fieldX + halfW
		rightHalf = barX + barW
	)

	var s strings.Builder
	s.WriteString(fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">`,
		baseWidth, baseHeight, baseWidth, baseHeight))
	s.WriteString(fmt.Sprintf(`<rect x="0" y="0" width="%d" height="%d" fill="%s"/>`, baseWidth, baseHeight, colBoard))
	s.WriteString(fmt.Sprintf(`<rect x="%.1f" y="%.1f" width="%.1f" height="%.1f" fill="%s"/>`,
		fieldX, fieldTop, fieldW, fieldBot-fieldTop, colField))
	s.WriteString(fmt.Sprintf(`<rect x="%.1f" y="%.1f" width="%.1f" height="%.1f" fill="%s"/>`,
		barX, fieldTop, barW, fieldBot-fieldTop, colBar))

	// pointX returns the left edge of a point column. Top row runs point
	// index 12..23 left to right, bottom row 11..0.
	pointX := func(idx int) float64 {
		if idx >= 12 { // top row
			col := idx - 12
			if col < 6 {
				return fieldX + float64(col)*pointW
			}
			return rightHalf + float64(col-6)*pointW
		}
		col := 11 - idx
		if col < 6 {
			return fieldX + float64(col)*pointW
		}
		return rightHalf + float64(col-6)*pointW
	}

	// Triangles.
	for idx := 0; idx < engine.NumPoints; idx++ {
		x := pointX(idx)
		fill := colDark
		if idx%2 == 0 {
			fill = colLight
		}
		if idx >= 12 {
			s.WriteString(fmt.Sprintf(`<polygon points="%.1f,%.1f %.1f,%.1f %.1f,%.1f" fill="%s"/>`,
				x, fieldTop, x+pointW, fieldTop, x+pointW/2, fieldTop+pointH, fill))
		} else {
			s.WriteString(fmt.Sprintf(`<polygon points="%.1f,%.1f %.1f,%.1f %.1f,%.1f" fill="%s"/>`,
				x, fieldBot, x+pointW, fieldBot, x+pointW/2, fieldBot-pointH, fill))
		}
	}

	checker := func(cx, cy float64, p engine.Player) {
		fill, edge := colCheckerA, colEdgeA
		if p == engine.PlayerB {
			fill, edge = colCheckerB, colEdgeB
		}
		s.WriteString(fmt.Sprintf(`<circle cx="%.1f" cy="%.1f" r="%.1f" fill="%s" stroke="%s" stroke-width="2"/>`,
			cx, cy, checkerR, fill, edge))
	}

	// Checkers on points, stacked toward the middle. Stacks past six
	// compress by overlapping.
	for idx := 0; idx < engine.NumPoints; idx++ {
		v := b.Points[idx]
		if v == 0 {
			continue
		}
		owner := engine.PlayerA
		n := int(v)
		if v < 0 {
			owner = engine.PlayerB
			n = -n
		}
		cx := pointX(idx) + pointW/2
		step := 2 * checkerR
		if n > 6 {
			step = (pointH - 2*checkerR) / float64(n-1)
		}
		for i := 0; i < n; i++ {
			if idx >= 12 {
				checker(cx, fieldTop+checkerR+float64(i)*step, owner)
			} else {
				checker(cx, fieldBot-checkerR-float64(i)*step, owner)
			}
		}
	}

	// Captured checkers sit on the bar: A's in the top half, B's in the
	// bottom half.
	barCX := barX + barW/2
	for i := 0; i < int(b.BarA); i++ {
		checker(barCX, fieldTop+3*checkerR+float64(i)*2*checkerR, engine.PlayerA)
	}
	for i := 0; i < int(b.BarB); i++ {
		checker(barCX, fieldBot-3*checkerR-float64(i)*2*checkerR, engine.PlayerB)
	}

	// Borne-off checkers stack flat on the right rail.
	railX := baseWidth - margin - railW + railW/2
	for i := 0; i < int(offA); i++ {
		s.WriteString(fmt.Sprintf(`<rect x="%.1f" y="%.1f" width="%.1f" height="10" rx="3" fill="%s" stroke="%s"/>`,
			railX-checkerR, fieldTop+float64(i)*14, 2*checkerR, colCheckerA, colEdgeA))
	}
	for i := 0; i < int(offB); i++ {
		s.WriteString(fmt.Sprintf(`<rect x="%.1f" y="%.1f" width="%.1f" height="10" rx="3" fill="%s" stroke="%s"/>`,
			railX-checkerR, fieldBot-10-float64(i)*14, 2*checkerR, colCheckerB, colEdgeB))
	}

	// Dice in the middle of the right half.
	if opts.Die1 >= 1 && opts.Die1 <= 6 {
		drawDie(&s, rightHalf+halfW/2-70, baseHeight/2-28, opts.Die1)
	}
	if opts.Die2 >= 1 && opts.Die2 <= 6 {
		drawDie(&s, rightHalf+halfW/2+14, baseHeight/2-28, opts.Die2)
	}

	s.WriteString(`</svg>`)
	return s.String()
}

// pipLayout maps a die face to pip positions on a 3x3 grid.
var pipLayout = map[uint8][][2]int{
	1: {{1, 1}},
	2: {{0, 0}, {2, 2}},
	3: {{0, 0}, {1, 1}, {2, 2}},
	4: {{0, 0}, {0, 2}, {2, 0}, {2, 2}},
	5: {{0, 0}, {0, 2}, {1, 1}, {2, 0}, {2, 2}},
	6: {{0, 0}, {0, 1}, {0, 2}, {2, 0}, {2, 1}, {2, 2}},
}

func drawDie(s *strings.Builder, x, y float64, face uint8) {
	const size = 56.0
	s.WriteString(fmt.Sprintf(`<rect x="%.1f" y="%.1f" width="%.1f" height="%.1f" rx="10" fill="%s" stroke="%s" stroke-width="2"/>`,
		x, y, size, size, colDie, colPip))
	for _, pip := range pipLayout[face] {
		cx := x + size/4 + float64(pip[0])*size/4
		cy := y + size/4 + float64(pip[1])*size/4
		s.WriteString(fmt.Sprintf(`<circle cx="%.1f" cy="%.1f" r="5" fill="%s"/>`, cx, cy, colPip))
	}
}
