package main

import (
	"bytes"
	"fmt"
	"image"
	"io"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/rs/zerolog"

	"github.com/nf/bmo/weather"
)

// config holds the settings that may come from the environment.
type config struct {
	AssetDir    string        `env:"BMO_ASSET_DIR" envDefault:"."`
	Tick        time.Duration `env:"BMO_TICK" envDefault:"100ms"`
	AudioPlayer string        `env:"BMO_AUDIO_PLAYER"` // empty: detect
	WeatherURL  string        `env:"BMO_WEATHER_URL"`
	LogLevel    string        `env:"BMO_LOG_LEVEL" envDefault:"info"`
}

func parseEnv() (config, error) {
	var c config
	if err := env.Parse(&c); err != nil {
		return config{}, fmt.Errorf("parse env: %w", err)
	}
	if c.Tick <= 0 {
		return config{}, fmt.Errorf("BMO_TICK must be positive, got %v", c.Tick)
	}
	return c, nil
}

func newLogger(w io.Writer, level string) (zerolog.Logger, error) {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		return zerolog.Nop(), fmt.Errorf("BMO_LOG_LEVEL: %w", err)
	}
	cw := zerolog.ConsoleWriter{Out: w, TimeFormat: "15:04:05"}
	return zerolog.New(cw).Level(lvl).With().Timestamp().Logger(), nil
}

// logOutput picks where log lines go. The debug console has a log pane.
// The terminal display owns the tty, so its log is held in memory and
// written to stderr by flush once the display has been torn down.
func logOutput(stderr io.Writer, opts options, debug *debugView) (out io.Writer, flush func()) {
	switch {
	case debug != nil:
		return debug.Writer(), func() {}
	case opts.cli:
		b := &logBuffer{}
		return b, func() { b.flush(stderr) }
	}
	return stderr, func() {}
}

// maxHeldLog bounds the log held while the terminal display runs.
const maxHeldLog = 1 << 20

type logBuffer struct {
	mu      sync.Mutex
	b       bytes.Buffer
	dropped int
}

func (l *logBuffer) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.b.Len()+len(p) > maxHeldLog {
		l.dropped++
		return len(p), nil
	}
	return l.b.Write(p)
}

func (l *logBuffer) flush(w io.Writer) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.b.WriteTo(w)
	if l.dropped > 0 {
		fmt.Fprintf(w, "bmo: %d log lines dropped\n", l.dropped)
		l.dropped = 0
	}
}

// settings are the positional arguments:
// ADDRESS PORT WIDTH HEIGHT [API_KEY LOCATION COUNTRY]
type settings struct {
	addr    string
	size    image.Point
	weather *weather.Client // nil if weather is disabled

	// partialWeather is set when some but not all of the weather
	// arguments were given.
	partialWeather bool
}

func parseArgs(args []string) (settings, error) {
	var s settings
	if len(args) < 4 || len(args) > 7 {
		return s, fmt.Errorf("want 4 to 7 arguments, got %d", len(args))
	}
	s.addr = net.JoinHostPort(args[0], args[1])
	if _, err := strconv.ParseUint(args[1], 10, 16); err != nil {
		return s, fmt.Errorf("invalid port %q", args[1])
	}
	for i, p := range []*int{&s.size.X, &s.size.Y} {
		n, err := strconv.ParseUint(args[2+i], 10, 16)
		if err != nil || n == 0 {
			return s, fmt.Errorf("invalid screen size %q", args[2+i])
		}
		*p = int(n)
	}
	switch len(args) {
	case 7:
		s.weather = &weather.Client{Key: args[4], Location: args[5], Country: args[6]}
	case 5, 6:
		s.partialWeather = true
	}
	return s, nil
}
