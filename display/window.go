package display

import (
	"image"
	"image/draw"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/exp/shiny/driver"
	"golang.org/x/exp/shiny/screen"
	"golang.org/x/mobile/event/key"
	"golang.org/x/mobile/event/lifecycle"
	"golang.org/x/mobile/event/paint"
	"golang.org/x/mobile/event/size"
)

// Window is a Screen backed by a desktop window.
type Window struct {
	size image.Point
	log  zerolog.Logger

	mu    sync.Mutex
	frame *image.RGBA
	dirty bool
}

func NewWindow(sz image.Point, log zerolog.Logger) *Window {
	return &Window{size: sz, log: log.With().Str("component", "window").Logger()}
}

func (w *Window) Present(m *image.RGBA) {
	w.mu.Lock()
	w.frame, w.dirty = m, true
	w.mu.Unlock()
}

// Run must be called from the main goroutine.
func (w *Window) Run(quit func(), exit <-chan struct{}) (err error) {
	driver.Main(func(s screen.Screen) {
		var win screen.Window
		win, err = s.NewWindow(&screen.NewWindowOptions{
			Title:  "bmo",
			Width:  w.size.X,
			Height: w.size.Y,
		})
		if err != nil {
			return
		}
		defer win.Release()
		buf, tex, e := newSurface(s, w.size)
		if e != nil {
			err = e
			return
		}
		defer buf.Release()
		defer tex.Release()

		type update struct{}
		done := make(chan struct{})
		defer close(done)
		go func() {
			t := time.NewTicker(time.Second / 30)
			defer t.Stop()
			for {
				select {
				case <-t.C:
					win.Send(update{})
				case <-exit:
					win.Send(update{}) // unblock NextEvent
					return
				case <-done:
					return
				}
			}
		}()

		var sz size.Event
		for {
			e := win.NextEvent()

			select {
			case <-exit:
				return
			default:
			}

			switch e := e.(type) {
			case size.Event:
				sz = e

			case lifecycle.Event:
				if e.To == lifecycle.StageDead {
					quit()
					return
				}

			case key.Event:
				if e.Code == key.CodeEscape && e.Direction == key.DirPress {
					w.log.Info().Msg("escape pressed")
					quit()
				}

			case paint.Event:
				w.publish(win, buf, tex, sz, true)

			case update:
				w.publish(win, buf, tex, sz, false)

			case error:
				w.log.Error().Err(e).Msg("window event")
			}
		}
	})
	return err
}

func newSurface(s screen.Screen, sz image.Point) (screen.Buffer, screen.Texture, error) {
	buf, err := s.NewBuffer(sz)
	if err != nil {
		return nil, nil, err
	}
	tex, err := s.NewTexture(sz)
	if err != nil {
		buf.Release()
		return nil, nil, err
	}
	return buf, tex, nil
}

// publish uploads the latest frame if it changed since the last call, or
// unconditionally if force is set.
func (w *Window) publish(win screen.Window, buf screen.Buffer, tex screen.Texture, sz size.Event, force bool) {
	w.mu.Lock()
	m, dirty := w.frame, w.dirty
	w.dirty = false
	w.mu.Unlock()
	if m == nil || !(dirty || force) {
		return
	}
	if dirty {
		draw.Draw(buf.RGBA(), buf.Bounds(), m, image.Point{}, draw.Src)
		tex.Upload(image.Point{}, buf, buf.Bounds())
	}
	dst := sz.Bounds()
	if dst.Empty() {
		dst = tex.Bounds()
	}
	win.Scale(dst, tex, tex.Bounds(), draw.Src, nil)
	win.Publish()
}
