package bmo

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nf/bmo/intent"
)

func TestAdjust(t *testing.T) {
	for _, c := range []struct {
		d    time.Duration
		name string
		want time.Duration
	}{
		{0, "10more", 10 * time.Minute},
		{10 * time.Minute, "5less", 5 * time.Minute},
		{0, "5less", 0},
		{3 * time.Minute, "5less", 0},
		{0, "20more", 20 * time.Minute},
		{25 * time.Minute, "20less", 5 * time.Minute},
		{time.Minute, "10less", 0},
		{time.Minute, "bogus", time.Minute},
		{time.Minute, "done", time.Minute},
	} {
		if g := Adjust(c.d, c.name); g != c.want {
			t.Errorf("Adjust(%v, %q) == %v, want %v", c.d, c.name, g, c.want)
		}
	}
}

func TestClock(t *testing.T) {
	for _, c := range []struct {
		d    time.Duration
		want string
	}{
		{0, "00:00:00"},
		{5 * time.Minute, "00:05:00"},
		{time.Hour + time.Minute + 1900*time.Millisecond, "01:01:01"},
		{100 * time.Hour, "100:00:00"},
		{-time.Second, "00:00:00"},
	} {
		if g := Clock(c.d); g != c.want {
			t.Errorf("Clock(%v) == %q, want %q", c.d, g, c.want)
		}
	}
}

func TestCountdown(t *testing.T) {
	h := newHarness(t)
	r := h.runner()
	require.NoError(t, r.countdown(context.Background(), 30*time.Second))

	texts := h.disp.texts()
	require.Len(t, texts, 301)
	assert.Equal(t, "00:00:30", texts[0])
	assert.Equal(t, "00:00:29", texts[10])
	assert.Equal(t, "00:00:00", texts[300])
	assert.EqualValues(t, 300, h.ticks.Load())
	assert.Equal(t, []string{"alarm.jpg"}, h.disp.images())
	assert.Equal(t, []string{"alarm.wav"}, h.player.clips())
	for _, o := range h.disp.ops {
		if o.image == "" {
			assert.EqualValues(t, ChronometerTextSize, o.size)
		}
	}
}

func TestChronometer(t *testing.T) {
	h := newHarness(t)
	h.stopAfter(intent.Chronometer)
	h.send(intent.Chronometer, "10more", "5less", "hello", "done")
	require.NoError(t, h.run(t))

	texts := h.disp.texts()
	require.Len(t, texts, 4+3001)
	assert.Equal(t, []string{"00:00:00", "00:10:00", "00:05:00", "00:05:00"}, texts[:4])
	assert.Equal(t, "00:05:00", texts[4])
	assert.Equal(t, "00:00:00", texts[len(texts)-1])
	assert.EqualValues(t, 3000, h.ticks.Load())
	assert.Equal(t, []string{"alarm.jpg"}, h.disp.images())
	assert.Equal(t, []string{"alarm.wav"}, h.player.clips())

	seen := h.statuses()
	require.GreaterOrEqual(t, len(seen), 2)
	assert.Equal(t, Status{InChronometer, intent.Chronometer}, seen[0])
	assert.Equal(t, Status{Displaying, intent.Default}, seen[1])
}

func TestChronometerQueuesIntents(t *testing.T) {
	h := newHarness(t)
	h.onTick = func(n int64) {
		if n == 5 {
			h.send("hello")
		}
	}
	h.stopAfter("hello")
	h.send(intent.Chronometer, "done")
	require.NoError(t, h.run(t))

	// Zero duration: the alarm sounds at once, and the intent received
	// during the default cycle that follows is shown next.
	assert.Equal(t, []string{"00:00:00", "00:00:00"}, h.disp.texts())
	assert.Equal(t, []string{"alarm.wav"}, h.player.clips())
	assert.Equal(t, 1, h.disp.count("alarm.jpg"))
	assert.Equal(t, 6, h.disp.count("hello.png"))
}

func TestChronometerExit(t *testing.T) {
	h := newHarness(t)
	h.disp.onDraw = func(o op, n int) {
		if n == 1 {
			h.cancel()
		}
	}
	h.send(intent.Chronometer)
	require.NoError(t, h.run(t))
	seen := h.statuses()
	assert.Equal(t, Exiting, seen[len(seen)-1].Mode)
	assert.Empty(t, h.player.clips())
}
