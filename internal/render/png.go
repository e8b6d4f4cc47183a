package render

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	imagedraw "image/draw"
	"image/png"
	"strings"
	"sync"

	"github.com/srwiley/oksvg"
	"github.com/srwiley/rasterx"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/park285/connect4-client/internal/board"
	"github.com/park285/connect4-client/internal/session"
)

// PNGOptions overrides the HUD captions. Empty fields fall back to defaults
// derived from the snapshot.
type PNGOptions struct {
	Title  string
	Status string
}

const (
	cellSize     = 64
	discInset    = 6
	sideMargin   = 28
	topMargin    = 92
	bottomMargin = 40
	hudHeight    = 30
	hudGap       = 12
	panelRadius  = 10
	hudPaddingX  = 16
	ringWidth    = 4
)

var (
	backgroundColor = color.RGBA{R: 24, G: 26, B: 38, A: 255}
	frameColor      = color.RGBA{R: 34, G: 84, B: 196, A: 255}
	frameShadow     = color.NRGBA{0, 0, 0, 70}
	holeColor       = color.RGBA{R: 18, G: 22, B: 40, A: 255}
	ringColor       = color.NRGBA{R: 255, G: 255, B: 255, A: 210}
	hudPanelColor   = color.NRGBA{R: 40, G: 44, B: 64, A: 250}
	hudShadowColor  = color.NRGBA{0, 0, 0, 50}
	hudTextColor    = color.NRGBA{R: 236, G: 239, B: 255, A: 255}
	columnTextColor = color.NRGBA{R: 160, G: 170, B: 200, A: 255}
)

var discPalette = map[board.Cell][2]string{
	board.PlayerOne: {"#e53935", "#ff8a80"},
	board.PlayerTwo: {"#fdd835", "#fff59d"},
}

// PNG draws the board with the last move ringed and a HUD above it.
func PNG(ctx context.Context, snap session.Snapshot, opts PNGOptions) ([]byte, error) {
	boardW := cellSize * board.Columns
	boardH := cellSize * board.Rows
	totalW := boardW + sideMargin*2
	totalH := boardH + topMargin + bottomMargin
	origin := image.Point{X: sideMargin, Y: topMargin}
	boardRect := image.Rect(origin.X, origin.Y, origin.X+boardW, origin.Y+boardH)

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	img := image.NewRGBA(image.Rect(0, 0, totalW, totalH))
	imagedraw.Draw(img, img.Bounds(), image.NewUniform(backgroundColor), image.Point{}, imagedraw.Src)

	drawHUD(img, boardRect, hudTitle(snap, opts), hudStatus(snap, opts))

	shadow := boardRect.Add(image.Pt(4, 8))
	drawRoundedPanel(img, shadow, panelRadius, frameShadow)
	drawRoundedPanel(img, boardRect, panelRadius, frameColor)

	radius := cellSize/2 - discInset
	for r := 0; r < board.Rows; r++ {
		for c := 0; c < board.Columns; c++ {
			center := cellCenter(r, c, origin)
			cell := snap.Board[r][c]
			if cell == board.Empty {
				drawDisc(img, center, radius, holeColor)
				continue
			}
			disc, err := renderDiscImage(cell, radius*2)
			if err != nil {
				return nil, err
			}
			at := image.Rect(center.X-radius, center.Y-radius, center.X+radius, center.Y+radius)
			imagedraw.Draw(img, at, disc, image.Point{}, imagedraw.Over)
		}
	}
	if mv := snap.LastMove; mv != nil {
		drawRing(img, cellCenter(mv.Row, mv.Column, origin), radius+2, ringWidth, ringColor)
	}
	drawColumnLabels(img, origin, boardRect.Max.Y)

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}

func cellCenter(row, col int, origin image.Point) image.Point {
	return image.Point{
		X: origin.X + col*cellSize + cellSize/2,
		Y: origin.Y + row*cellSize + cellSize/2,
	}
}

func hudTitle(snap session.Snapshot, opts PNGOptions) string {
	if t := strings.TrimSpace(opts.Title); t != "" {
		return t
	}
	p1, p2 := snap.PlayerName(1), snap.PlayerName(2)
	if p1 == "" && p2 == "" {
		return "4 in a Row"
	}
	return p1 + " (Red) vs " + p2 + " (Yellow)"
}

func hudStatus(snap session.Snapshot, opts PNGOptions) string {
	if s := strings.TrimSpace(opts.Status); s != "" {
		return s
	}
	switch {
	case snap.Winner != nil:
		return "Winner: " + *snap.Winner
	case snap.Turn == 1 || snap.Turn == 2:
		return "Turn: " + snap.PlayerName(snap.Turn)
	default:
		return snap.Phase.String()
	}
}

func drawHUD(img *image.RGBA, boardRect image.Rectangle, title, status string) {
	face := basicfont.Face7x13
	drawer := &font.Drawer{Dst: img, Face: face}

	statusBottom := boardRect.Min.Y - hudGap
	statusRect := image.Rect(boardRect.Min.X, statusBottom-hudHeight, boardRect.Max.X, statusBottom)
	titleBottom := statusRect.Min.Y - 6
	titleRect := image.Rect(boardRect.Min.X, titleBottom-hudHeight, boardRect.Max.X, titleBottom)

	for _, rect := range []image.Rectangle{titleRect, statusRect} {
		drawRoundedPanel(img, rect.Add(image.Pt(0, 4)), panelRadius, hudShadowColor)
		drawRoundedPanel(img, rect, panelRadius, hudPanelColor)
	}
	title = truncateWithEllipsis(face, title, titleRect.Dx()-hudPaddingX*2)
	status = truncateWithEllipsis(face, status, statusRect.Dx()-hudPaddingX*2)
	drawCenteredString(drawer, titleRect, title, hudTextColor)
	drawCenteredString(drawer, statusRect, status, hudTextColor)
}

func drawColumnLabels(img *image.RGBA, origin image.Point, boardBottom int) {
	face := basicfont.Face7x13
	drawer := &font.Drawer{Dst: img, Face: face, Src: image.NewUniform(columnTextColor)}
	baseline := boardBottom + 8 + face.Metrics().Ascent.Ceil()
	for c := 0; c < board.Columns; c++ {
		label := string(rune('0' + c))
		w := drawer.MeasureString(label).Round()
		drawer.Dot = fixed.P(origin.X+c*cellSize+(cellSize-w)/2, baseline)
		drawer.DrawString(label)
	}
}

func truncateWithEllipsis(face font.Face, text string, maxWidth int) string {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" || maxWidth <= 0 || face == nil {
		return trimmed
	}
	drawer := font.Drawer{Face: face}
	if drawer.MeasureString(trimmed).Round() <= maxWidth {
		return trimmed
	}
	const ellipsis = "..."
	if drawer.MeasureString(ellipsis).Round() > maxWidth {
		return ""
	}
	runes := []rune(trimmed)
	for len(runes) > 0 {
		runes = runes[:len(runes)-1]
		candidate := string(runes) + ellipsis
		if drawer.MeasureString(candidate).Round() <= maxWidth {
			return candidate
		}
	}
	return ellipsis
}

func drawCenteredString(drawer *font.Drawer, rect image.Rectangle, text string, clr color.Color) {
	text = strings.TrimSpace(text)
	if drawer == nil || text == "" {
		return
	}
	metrics := drawer.Face.Metrics()
	width := drawer.MeasureString(text).Round()
	x := rect.Min.X + (rect.Dx()-width)/2
	if x < rect.Min.X {
		x = rect.Min.X
	}
	baseline := rect.Min.Y + (rect.Dy()+metrics.Ascent.Ceil()-metrics.Descent.Ceil())/2
	drawer.Src = image.NewUniform(clr)
	drawer.Dot = fixed.P(x, baseline)
	drawer.DrawString(text)
}

func drawRoundedPanel(img *image.RGBA, rect image.Rectangle, radius int, clr color.Color) {
	if img == nil || rect.Empty() {
		return
	}
	maxRadius := rect.Dx() / 2
	if r := rect.Dy() / 2; r < maxRadius {
		maxRadius = r
	}
	if radius > maxRadius {
		radius = maxRadius
	}
	fill := image.NewUniform(clr)
	if radius <= 0 {
		imagedraw.Draw(img, rect, fill, image.Point{}, imagedraw.Over)
		return
	}

	// cross of three bands, then quarter discs in the corners
	bands := []image.Rectangle{
		image.Rect(rect.Min.X+radius, rect.Min.Y, rect.Max.X-radius, rect.Max.Y),
		image.Rect(rect.Min.X, rect.Min.Y+radius, rect.Min.X+radius, rect.Max.Y-radius),
		image.Rect(rect.Max.X-radius, rect.Min.Y+radius, rect.Max.X, rect.Max.Y-radius),
	}
	for _, b := range bands {
		if !b.Empty() {
			imagedraw.Draw(img, b, fill, image.Point{}, imagedraw.Over)
		}
	}
	corners := []image.Point{
		{rect.Min.X + radius, rect.Min.Y + radius},
		{rect.Max.X - radius - 1, rect.Min.Y + radius},
		{rect.Min.X + radius, rect.Max.Y - radius - 1},
		{rect.Max.X - radius - 1, rect.Max.Y - radius - 1},
	}
	for i, center := range corners {
		drawQuarterDisc(img, center, radius, i, clr)
	}
}

// drawQuarterDisc fills one corner quadrant: 0 top-left, 1 top-right, 2 bottom-left, 3 bottom-right.
func drawQuarterDisc(img *image.RGBA, center image.Point, radius, quadrant int, clr color.Color) {
	sx, sy := -1, -1
	if quadrant == 1 || quadrant == 3 {
		sx = 1
	}
	if quadrant >= 2 {
		sy = 1
	}
	rSquared := radius * radius
	for y := 0; y <= radius; y++ {
		for x := 0; x <= radius; x++ {
			if x*x+y*y > rSquared {
				continue
			}
			blendPixel(img, center.X+sx*x, center.Y+sy*y, clr)
		}
	}
}

func drawDisc(img *image.RGBA, center image.Point, radius int, clr color.Color) {
	if radius <= 0 {
		blendPixel(img, center.X, center.Y, clr)
		return
	}
	rSquared := radius * radius
	for y := -radius; y <= radius; y++ {
		for x := -radius; x <= radius; x++ {
			if x*x+y*y > rSquared {
				continue
			}
			blendPixel(img, center.X+x, center.Y+y, clr)
		}
	}
}

func drawRing(img *image.RGBA, center image.Point, radius, width int, clr color.Color) {
	outer := radius * radius
	inner := (radius - width) * (radius - width)
	for y := -radius; y <= radius; y++ {
		for x := -radius; x <= radius; x++ {
			d := x*x + y*y
			if d > outer || d < inner {
				continue
			}
			blendPixel(img, center.X+x, center.Y+y, clr)
		}
	}
}

func blendPixel(img *image.RGBA, x, y int, clr color.Color) {
	if img == nil || !(image.Point{X: x, Y: y}).In(img.Bounds()) {
		return
	}
	sr, sg, sb, sa := clr.RGBA()
	srcA := float64(sa) / 65535.0
	if srcA <= 0 {
		return
	}
	srcR := float64(sr) / 65535.0
	srcG := float64(sg) / 65535.0
	srcB := float64(sb) / 65535.0

	dst := img.RGBAAt(x, y)
	dstA := float64(dst.A) / 255.0
	var dstR, dstG, dstB float64
	if dstA > 0 {
		inv := 1.0 / dstA
		dstR = float64(dst.R) / 255.0 * inv
		dstG = float64(dst.G) / 255.0 * inv
		dstB = float64(dst.B) / 255.0 * inv
	}

	outA := srcA + dstA*(1-srcA)
	if outA <= 0 {
		img.SetRGBA(x, y, color.RGBA{})
		return
	}
	// srcR/G/B are premultiplied already (color.RGBA contract)
	outR := srcR + dstR*dstA*(1-srcA)
	outG := srcG + dstG*dstA*(1-srcA)
	outB := srcB + dstB*dstA*(1-srcA)

	img.SetRGBA(x, y, color.RGBA{
		R: floatToUint8(outR * 255.0),
		G: floatToUint8(outG * 255.0),
		B: floatToUint8(outB * 255.0),
		A: floatToUint8(outA * 255.0),
	})
}

func floatToUint8(v float64) uint8 {
	if v <= 0 {
		return 0
	}
	if v >= 255 {
		return 255
	}
	return uint8(v + 0.5)
}

type discCacheKey struct {
	cell board.Cell
	size int
}

var (
	discCache   = map[discCacheKey]image.Image{}
	discCacheMu sync.RWMutex
)

const discSVG = `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 100 100">
<defs><radialGradient id="g" cx="38%%" cy="34%%" r="70%%">
<stop offset="0%%" stop-color="%[2]s"/><stop offset="100%%" stop-color="%[1]s"/>
</radialGradient></defs>
<circle cx="50" cy="50" r="48" fill="url(#g)"/>
<circle cx="50" cy="50" r="36" fill="none" stroke="%[1]s" stroke-width="4"/>
</svg>`

// renderDiscImage rasterises the disc template for cell at size x size, cached.
func renderDiscImage(cell board.Cell, size int) (image.Image, error) {
	key := discCacheKey{cell: cell, size: size}
	discCacheMu.RLock()
	if img, ok := discCache[key]; ok {
		discCacheMu.RUnlock()
		return img, nil
	}
	discCacheMu.RUnlock()

	colors, ok := discPalette[cell]
	if !ok {
		return nil, fmt.Errorf("no disc for cell %v", cell)
	}
	src := fmt.Sprintf(discSVG, colors[0], colors[1])
	icon, err := oksvg.ReadIconStream(strings.NewReader(src))
	if err != nil {
		return nil, fmt.Errorf("parse disc svg: %w", err)
	}
	icon.SetTarget(0, 0, float64(size), float64(size))

	img := image.NewRGBA(image.Rect(0, 0, size, size))
	scanner := rasterx.NewScannerGV(size, size, img, img.Bounds())
	raster := rasterx.NewDasher(size, size, scanner)
	icon.Draw(raster, 1.0)

	discCacheMu.Lock()
	discCache[key] = img
	discCacheMu.Unlock()
	return img, nil
}
