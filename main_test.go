package main

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"io"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/font/gofont/goregular"

	"github.com/nf/bmo/assets"
	"github.com/nf/bmo/intent"
)

func TestParseArgs(t *testing.T) {
	s, err := parseArgs([]string{"0.0.0.0", "6000", "800", "480"})
	require.NoError(t, err)
	assert.Equal(t, "0.0.0.0:6000", s.addr)
	assert.Equal(t, image.Pt(800, 480), s.size)
	assert.Nil(t, s.weather)
	assert.False(t, s.partialWeather)

	s, err = parseArgs([]string{"::1", "6000", "800", "480", "key", "Zaragoza", "ES"})
	require.NoError(t, err)
	assert.Equal(t, "[::1]:6000", s.addr)
	require.NotNil(t, s.weather)
	assert.Equal(t, "key", s.weather.Key)
	assert.Equal(t, "Zaragoza", s.weather.Location)
	assert.Equal(t, "ES", s.weather.Country)

	s, err = parseArgs([]string{"localhost", "6000", "800", "480", "key", "Zaragoza"})
	require.NoError(t, err)
	assert.Nil(t, s.weather)
	assert.True(t, s.partialWeather)

	for _, args := range [][]string{
		{"localhost", "6000", "800"},
		{"localhost", "http", "800", "480"},
		{"localhost", "6000", "0", "480"},
		{"localhost", "6000", "800", "-1"},
		{"localhost", "70000", "800", "480"},
	} {
		if _, err := parseArgs(args); err == nil {
			t.Errorf("parseArgs(%q) succeeded", args)
		}
	}
}

func TestParseEnv(t *testing.T) {
	c, err := parseEnv()
	require.NoError(t, err)
	assert.Equal(t, ".", c.AssetDir)
	assert.Equal(t, 100*time.Millisecond, c.Tick)
	assert.Equal(t, "info", c.LogLevel)

	t.Setenv("BMO_ASSET_DIR", "/opt/bmo")
	t.Setenv("BMO_TICK", "50ms")
	t.Setenv("BMO_AUDIO_PLAYER", "aplay -q")
	t.Setenv("BMO_LOG_LEVEL", "debug")
	c, err = parseEnv()
	require.NoError(t, err)
	assert.Equal(t, config{
		AssetDir:    "/opt/bmo",
		Tick:        50 * time.Millisecond,
		AudioPlayer: "aplay -q",
		LogLevel:    "debug",
	}, c)

	t.Setenv("BMO_TICK", "soon")
	_, err = parseEnv()
	assert.Error(t, err)

	t.Setenv("BMO_TICK", "0s")
	_, err = parseEnv()
	assert.Error(t, err)
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	log, err := newLogger(&buf, "warn")
	require.NoError(t, err)
	log.Info().Msg("hidden")
	log.Warn().Str("intent", "hello").Msg("shown")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")
	assert.Contains(t, buf.String(), "intent=hello")

	_, err = newLogger(&buf, "loud")
	assert.Error(t, err)
}

func writeAssets(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, body := range files {
		p := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(body), 0o644))
	}
	return dir
}

func validAssets() map[string]string {
	return map[string]string{
		assets.FacesFile:    "[default]\nfaces/default.png\n[hello]\nfaces/hello.png\n",
		assets.AudioFile:    "[hello]\naudio/hello.wav\n",
		assets.TimingsFile:  "[default]\n4500\n",
		"faces/default.png": "",
		"faces/hello.png":   "",
		"audio/hello.wav":   "",
		assets.AlarmFace:    "",
		assets.AlarmSound:   "",
		assets.Font:         "",
	}
}

func TestReport(t *testing.T) {
	var buf bytes.Buffer
	dir := writeAssets(t, validAssets())
	require.NoError(t, report(&buf, dir))
	assert.Equal(t, dir+": ok\n", buf.String())

	files := validAssets()
	delete(files, "audio/hello.wav")
	files[assets.TimingsFile] = "[default]\n4500\n[hello]\nlater\n"
	buf.Reset()
	err := report(&buf, writeAssets(t, files))
	assert.Error(t, err)
	assert.Contains(t, buf.String(), "later")
}

func TestCheckCommand(t *testing.T) {
	dir := writeAssets(t, validAssets())
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"check", dir})
	require.NoError(t, cmd.Execute())
	assert.Equal(t, dir+": ok\n", out.String())

	cmd = newRootCmd()
	out.Reset()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"--assets", dir, "check"})
	require.NoError(t, cmd.Execute())
	assert.Equal(t, dir+": ok\n", out.String())
}

// syncBuffer is a bytes.Buffer safe for concurrent use.
type syncBuffer struct {
	mu sync.Mutex
	b  bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.b.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.b.String()
}

func TestWatchAssets(t *testing.T) {
	files := validAssets()
	delete(files, "faces/hello.png")
	dir := writeAssets(t, files)

	var (
		out         syncBuffer
		ctx, cancel = context.WithCancel(context.Background())
		done        = make(chan error)
	)
	defer cancel()
	go func() { done <- watchAssets(ctx, &out, dir, zerolog.Nop()) }()

	waitFor := func(s string) {
		t.Helper()
		deadline := time.Now().Add(5 * time.Second)
		for !strings.Contains(out.String(), s) {
			if time.Now().After(deadline) {
				t.Fatalf("output %q never contained %q", out.String(), s)
			}
			time.Sleep(10 * time.Millisecond)
		}
	}
	waitFor("hello.png")
	require.NoError(t, os.WriteFile(filepath.Join(dir, assets.FacesFile), []byte("[default]\nfaces/default.png\n"), 0o644))
	waitFor(dir + ": ok")

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("watchAssets did not return")
	}
}

func TestLogOutput(t *testing.T) {
	var tty bytes.Buffer
	out, flush := logOutput(&tty, options{}, nil)
	assert.Same(t, &tty, out)
	flush()

	out, flush = logOutput(&tty, options{cli: true}, nil)
	assert.NotSame(t, &tty, out, "terminal display shares the log's tty")
	log, err := newLogger(out, "info")
	require.NoError(t, err)
	log.Info().Str("intent", "hello").Msg("new intent")
	assert.Empty(t, tty.String(), "log written while the terminal display runs")
	flush()
	assert.Contains(t, tty.String(), "new intent")
	assert.Contains(t, tty.String(), "intent=hello")
}

func TestLogBufferBound(t *testing.T) {
	var (
		b    logBuffer
		out  bytes.Buffer
		line = []byte(strings.Repeat("x", 1023) + "\n")
	)
	for i := 0; i < maxHeldLog/len(line)+3; i++ {
		b.Write(line)
	}
	b.flush(&out)
	assert.Equal(t, maxHeldLog+len("bmo: 3 log lines dropped\n"), out.Len())
	assert.True(t, strings.HasSuffix(out.String(), "bmo: 3 log lines dropped\n"))
}

func TestDebugLogPane(t *testing.T) {
	d := newDebugView([]string{"default", "hello"}, func() {})
	out, _ := logOutput(io.Discard, options{debug: true}, d)
	log, err := newLogger(out, "info")
	require.NoError(t, err)
	log.Info().Str("from", "default").Str("to", "hello").Msg("new intent")

	text := d.log.GetText(true)
	assert.Contains(t, text, "new intent")
	assert.Contains(t, text, "to=hello")
	assert.NotContains(t, text, "could not write event")
}

// blankScreen discards frames and runs until told to exit.
type blankScreen struct{}

func (blankScreen) Present(*image.RGBA) {}

func (blankScreen) Run(quit func(), exit <-chan struct{}) error {
	<-exit
	return nil
}

func writePNG(t *testing.T, path string) {
	t.Helper()
	m := image.NewRGBA(image.Rect(0, 0, 4, 4))
	m.Set(1, 1, color.RGBA{R: 0x60, G: 0xc0, B: 0xa0, A: 0xff})
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, png.Encode(f, m))
}

func TestRunDisconnect(t *testing.T) {
	dir := writeAssets(t, validAssets())
	writePNG(t, filepath.Join(dir, "faces/default.png"))
	writePNG(t, filepath.Join(dir, "faces/hello.png"))
	require.NoError(t, os.WriteFile(filepath.Join(dir, assets.Font), goregular.TTF, 0o644))

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := ln.Addr().(*net.TCPAddr).Port
	require.NoError(t, ln.Close())
	s, err := parseArgs([]string{"127.0.0.1", strconv.Itoa(port), "32", "24"})
	require.NoError(t, err)

	var (
		cfg  = config{AssetDir: dir, Tick: 10 * time.Millisecond, AudioPlayer: "true", LogLevel: "debug"}
		logs syncBuffer
		done = make(chan error, 1)
	)
	go func() { done <- run(context.Background(), &logs, cfg, options{screen: blankScreen{}}, s) }()

	var conn net.Conn
	require.Eventually(t, func() bool {
		c, err := net.Dial("tcp", s.addr)
		if err != nil {
			return false
		}
		conn = c
		return true
	}, 5*time.Second, 10*time.Millisecond)
	require.NoError(t, conn.Close())

	select {
	case err := <-done:
		assert.ErrorIs(t, err, intent.ErrDisconnected)
	case <-time.After(5 * time.Second):
		t.Fatalf("run did not return after the controller disconnected; log:\n%s", logs.String())
	}
	assert.Contains(t, logs.String(), "listening")
}
