package display

import (
	"image"
	"sync"

	"github.com/gdamore/tcell/v2"
	xdraw "golang.org/x/image/draw"
)

// Terminal is a Screen that draws frames in a terminal, two pixels per
// character cell using the upper half block.
type Terminal struct {
	s tcell.Screen

	mu    sync.Mutex
	frame *image.RGBA
}

// NewTerminal takes over the terminal. It is released when Run returns.
func NewTerminal() (*Terminal, error) {
	s, err := tcell.NewScreen()
	if err != nil {
		return nil, err
	}
	return newTerminal(s)
}

func newTerminal(s tcell.Screen) (*Terminal, error) {
	if err := s.Init(); err != nil {
		return nil, err
	}
	s.HideCursor()
	return &Terminal{s: s}, nil
}

type redraw struct{ *tcell.EventTime }

func (t *Terminal) Present(m *image.RGBA) {
	t.mu.Lock()
	t.frame = m
	t.mu.Unlock()
	ev := redraw{&tcell.EventTime{}}
	ev.SetEventNow()
	t.s.PostEvent(ev)
}

func (t *Terminal) Run(quit func(), exit <-chan struct{}) error {
	defer t.s.Fini()
	go func() {
		<-exit
		t.s.PostEvent(tcell.NewEventInterrupt(nil))
	}()
	for {
		switch e := t.s.PollEvent().(type) {
		case nil:
			return nil
		case *tcell.EventInterrupt:
			select {
			case <-exit:
				return nil
			default:
			}
		case *tcell.EventKey:
			switch e.Key() {
			case tcell.KeyEscape, tcell.KeyCtrlC:
				quit()
			}
		case *tcell.EventResize:
			t.s.Sync()
			t.draw()
		case redraw:
			t.draw()
		}
	}
}

func (t *Terminal) draw() {
	t.mu.Lock()
	m := t.frame
	t.mu.Unlock()
	if m == nil {
		return
	}
	cols, rows := t.s.Size()
	cells := downsample(m, cols, rows)
	for y := 0; y < rows; y++ {
		for x := 0; x < cols; x++ {
			top, bottom := cells.RGBAAt(x, 2*y), cells.RGBAAt(x, 2*y+1)
			st := tcell.StyleDefault.
				Foreground(tcell.NewRGBColor(int32(top.R), int32(top.G), int32(top.B))).
				Background(tcell.NewRGBColor(int32(bottom.R), int32(bottom.G), int32(bottom.B)))
			t.s.SetContent(x, y, '▀', nil, st)
		}
	}
	t.s.Show()
}

// downsample scales m to cols×2rows pixels.
func downsample(m image.Image, cols, rows int) *image.RGBA {
	dst := image.NewRGBA(image.Rect(0, 0, cols, 2*rows))
	xdraw.ApproxBiLinear.Scale(dst, dst.Bounds(), m, m.Bounds(), xdraw.Src, nil)
	return dst
}
