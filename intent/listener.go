package intent

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"sync/atomic"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// ErrDisconnected is returned by Serve when the controller connection ends.
var ErrDisconnected = errors.New("controller disconnected")

// Listener accepts a single controller connection and feeds the intents it
// sends into a State.
type Listener struct {
	ln        net.Listener
	websocket bool
	st        *State
	log       zerolog.Logger
}

// Listen binds addr. If ws is set the controller is expected to connect
// with a WebSocket rather than a plain TCP stream.
func Listen(addr string, ws bool, st *State, log zerolog.Logger) (*Listener, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("listen: %w", err)
	}
	return &Listener{
		ln:        ln,
		websocket: ws,
		st:        st,
		log:       log.With().Str("component", "listener").Logger(),
	}, nil
}

func (l *Listener) Addr() net.Addr { return l.ln.Addr() }

// Serve handles the first controller to connect. Later connections are not
// served. Serve only returns when the controller goes away, in which case
// the error wraps ErrDisconnected, or when ctx is done.
func (l *Listener) Serve(ctx context.Context) error {
	if l.websocket {
		return l.serveWebSocket(ctx)
	}
	stop := context.AfterFunc(ctx, func() { l.ln.Close() })
	conn, err := l.ln.Accept()
	stop()
	l.ln.Close()
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("accept: %w", err)
	}
	defer conn.Close()
	l.log.Info().Stringer("remote", conn.RemoteAddr()).Msg("controller connected")

	stop = context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()
	r := bufio.NewReader(conn)
	for {
		line, err := r.ReadString('\n')
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if err == io.EOF {
				return ErrDisconnected
			}
			return fmt.Errorf("%w: %v", ErrDisconnected, err)
		}
		l.deliver(strings.TrimSuffix(strings.TrimSuffix(line, "\n"), "\r"))
	}
}

func (l *Listener) serveWebSocket(ctx context.Context) error {
	var (
		claimed  atomic.Bool
		errc     = make(chan error, 1)
		upgrader = websocket.Upgrader{
			CheckOrigin: func(*http.Request) bool { return true },
		}
	)
	srv := &http.Server{Handler: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !claimed.CompareAndSwap(false, true) {
			http.Error(w, "controller already connected", http.StatusConflict)
			return
		}
		c, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			errc <- fmt.Errorf("%w: upgrade: %v", ErrDisconnected, err)
			return
		}
		defer c.Close()
		stop := context.AfterFunc(ctx, func() { c.Close() })
		defer stop()
		l.log.Info().Str("remote", r.RemoteAddr).Msg("controller connected")
		for {
			_, msg, err := c.ReadMessage()
			if err != nil {
				if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					err = ErrDisconnected
				} else {
					err = fmt.Errorf("%w: %v", ErrDisconnected, err)
				}
				errc <- err
				return
			}
			for _, line := range strings.Split(strings.TrimRight(string(msg), "\r\n"), "\n") {
				l.deliver(strings.TrimSuffix(line, "\r"))
			}
		}
	})}
	go srv.Serve(l.ln)
	defer srv.Close()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (l *Listener) deliver(name string) {
	l.log.Debug().Str("intent", name).Msg("received")
	l.st.Send(name)
}
