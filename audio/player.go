// Package audio plays sound files through an external player program.
package audio

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
)

// Player plays a sound file, returning when it has finished.
type Player interface {
	Play(ctx context.Context, path string) error
}

// Command is a Player that runs Name with Args followed by the file path.
type Command struct {
	Name string
	Args []string
}

// players are tried in order by Detect.
var players = []Command{
	{"mpv", []string{"--no-terminal", "--no-video"}},
	{"aplay", []string{"-q"}}, // ALSA
	{"paplay", nil},           // PulseAudio
	{"afplay", nil},           // macOS
}

var ErrNoPlayer = errors.New("no audio player found (install mpv, aplay, paplay or afplay)")

// Detect returns the first player program found in $PATH.
func Detect() (*Command, error) {
	for _, p := range players {
		if _, err := exec.LookPath(p.Name); err == nil {
			return &p, nil
		}
	}
	return nil, ErrNoPlayer
}

// ParseCommand parses a command line such as "aplay -q -D default".
func ParseCommand(s string) (*Command, error) {
	f := strings.Fields(s)
	if len(f) == 0 {
		return nil, errors.New("empty player command")
	}
	if _, err := exec.LookPath(f[0]); err != nil {
		return nil, err
	}
	return &Command{Name: f[0], Args: f[1:]}, nil
}

func (c *Command) String() string {
	return strings.Join(append([]string{c.Name}, c.Args...), " ")
}

func (c *Command) Play(ctx context.Context, path string) error {
	if _, err := os.Stat(path); err != nil {
		return err
	}
	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, c.Name, append(c.Args[:len(c.Args):len(c.Args)], path)...)
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return fmt.Errorf("%s %s: %v: %s", c.Name, path, err, msg)
		}
		return fmt.Errorf("%s %s: %v", c.Name, path, err)
	}
	return nil
}
