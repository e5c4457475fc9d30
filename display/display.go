// Package display draws faces and text on BMO's screen.
//
// A Renderer turns images and strings into full-screen frames and hands them
// to a Screen, which is either a desktop window or a terminal.
package display

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"sync"

	_ "golang.org/x/image/bmp"
	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
	_ "golang.org/x/image/webp"
)

// Screen shows frames. Frames passed to Present are not modified afterwards.
type Screen interface {
	Present(m *image.RGBA)

	// Run drives the screen until exit is closed or the screen goes away.
	// It calls quit when the user asks to quit (Escape, closing the window).
	Run(quit func(), exit <-chan struct{}) error
}

var (
	Background = color.RGBA{128, 230, 209, 0xff}
	Foreground = color.RGBA{0, 0, 0, 0xff}
)

// padding is kept free around text that has to be scaled down to fit.
const padding = 5

// Renderer draws full-screen frames onto a Screen.
type Renderer struct {
	scr  Screen
	size image.Point
	font *opentype.Font

	mu     sync.Mutex
	images map[string]*image.RGBA // decoded and scaled, by path
	faces  map[float64]font.Face  // by point size
}

// NewRenderer returns a Renderer for a screen of the given size, drawing
// text with the TrueType or OpenType font ttf.
func NewRenderer(scr Screen, size image.Point, ttf []byte) (*Renderer, error) {
	if size.X <= 0 || size.Y <= 0 {
		return nil, fmt.Errorf("invalid screen size %v", size)
	}
	f, err := opentype.Parse(ttf)
	if err != nil {
		return nil, fmt.Errorf("parsing font: %w", err)
	}
	return &Renderer{
		scr:    scr,
		size:   size,
		font:   f,
		images: make(map[string]*image.RGBA),
		faces:  make(map[float64]font.Face),
	}, nil
}

func (r *Renderer) Size() image.Point { return r.size }

// DrawImage shows the image file at path, stretched to fill the screen.
// Decoded images are cached.
func (r *Renderer) DrawImage(path string) error {
	m, err := r.image(path)
	if err != nil {
		return err
	}
	r.scr.Present(m)
	return nil
}

func (r *Renderer) image(path string) (*image.RGBA, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if m, ok := r.images[path]; ok {
		return m, nil
	}
	src, err := decode(path)
	if err != nil {
		return nil, err
	}
	m := image.NewRGBA(image.Rectangle{Max: r.size})
	xdraw.CatmullRom.Scale(m, m.Bounds(), src, src.Bounds(), xdraw.Src, nil)
	r.images[path] = m
	return m, nil
}

func decode(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	m, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decoding %s: %w", path, err)
	}
	return m, nil
}

// DrawText shows s centered on a plain background, at the given point size.
// Text too large for the screen is scaled down to fit.
func (r *Renderer) DrawText(s string, size float64) error {
	face, err := r.face(size)
	if err != nil {
		return err
	}
	txt := renderText(face, s)
	m := newImage(r.size, Background)
	dst := centered(r.size, txt.Bounds().Size(), r.size.Sub(image.Pt(padding, padding)))
	if dst.Size() == txt.Bounds().Size() {
		draw.Draw(m, dst, txt, image.Point{}, draw.Over)
	} else {
		xdraw.ApproxBiLinear.Scale(m, dst, txt, txt.Bounds(), xdraw.Over, nil)
	}
	r.scr.Present(m)
	return nil
}

func (r *Renderer) face(size float64) (font.Face, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if f, ok := r.faces[size]; ok {
		return f, nil
	}
	f, err := opentype.NewFace(r.font, &opentype.FaceOptions{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingFull,
	})
	if err != nil {
		return nil, fmt.Errorf("font face %vpt: %w", size, err)
	}
	r.faces[size] = f
	return f, nil
}

// renderText draws s in Foreground on a transparent image just large
// enough to hold it.
func renderText(face font.Face, s string) *image.RGBA {
	var (
		metrics = face.Metrics()
		d       = &font.Drawer{Face: face, Src: image.NewUniform(Foreground)}
		w       = d.MeasureString(s).Ceil()
		h       = (metrics.Ascent + metrics.Descent).Ceil()
	)
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}
	m := image.NewRGBA(image.Rect(0, 0, w, h))
	d.Dst = m
	d.Dot = fixed.Point26_6{Y: metrics.Ascent}
	d.DrawString(s)
	return m
}

// centered returns a rectangle of size sz centered on a screen of size
// scr. If sz does not fit within max it is scaled down, keeping its aspect
// ratio, until it does.
func centered(scr, sz, max image.Point) image.Rectangle {
	w, h := sz.X, sz.Y
	wr := float64(sz.X) / float64(max.X)
	hr := float64(sz.Y) / float64(max.Y)
	if wr > 1 || hr > 1 {
		if wr > hr {
			w, h = max.X, int(float64(sz.Y)/wr)
		} else {
			w, h = int(float64(sz.X)/hr), max.Y
		}
	}
	min := image.Pt((scr.X-w)/2, (scr.Y-h)/2)
	return image.Rectangle{Min: min, Max: min.Add(image.Pt(w, h))}
}

func newImage(size image.Point, c color.RGBA) *image.RGBA {
	m := image.NewRGBA(image.Rectangle{Max: size})
	for b := m.Pix; len(b) >= 4; b = b[4:] {
		b[0] = c.R
		b[1] = c.G
		b[2] = c.B
		b[3] = c.A
	}
	return m
}
