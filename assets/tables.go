package assets

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"os"
	"path/filepath"
	"sort"
	"time"
)

// Table file names, relative to the asset directory.
const (
	FacesFile   = "faces.txt"
	AudioFile   = "audio.txt"
	TimingsFile = "timings.txt"
)

// Fixed asset paths, relative to the asset directory.
const (
	AlarmFace  = "assets/faces/alarm.jpg"
	AlarmSound = "assets/audio/alarm.wav"
	Font       = "assets/font.ttf"
)

// DefaultIntent must always have a face and either audio or a timing.
const DefaultIntent = "default"

// Tables holds the asset tables. They are not modified after Load.
type Tables struct {
	Faces   map[string][]string
	Audio   map[string][]string
	Timings map[string]time.Duration
}

// Load reads the three tables from dir. Relative paths inside the tables are
// taken relative to dir.
func Load(dir string) (*Tables, error) {
	faces, err := parseFile(filepath.Join(dir, FacesFile), ParsePaths)
	if err != nil {
		return nil, err
	}
	audio, err := parseFile(filepath.Join(dir, AudioFile), ParsePaths)
	if err != nil {
		return nil, err
	}
	timings, err := parseFile(filepath.Join(dir, TimingsFile), ParseTimings)
	if err != nil {
		return nil, err
	}
	for k, paths := range faces {
		if len(paths) == 0 {
			return nil, fmt.Errorf("%s: no faces for intent %q", FacesFile, k)
		}
		resolve(dir, paths)
	}
	for k, paths := range audio {
		if len(paths) == 0 {
			delete(audio, k) // no audio
		}
		resolve(dir, paths)
	}
	t := &Tables{Faces: faces, Audio: audio, Timings: timings}
	if err := t.validate(); err != nil {
		return nil, err
	}
	return t, nil
}

func resolve(dir string, paths []string) {
	for i, p := range paths {
		if !filepath.IsAbs(p) {
			paths[i] = filepath.Join(dir, p)
		}
	}
}

// validate checks the invariants that every run depends on. Other intents
// are only checked when they are first displayed.
func (t *Tables) validate() error {
	if len(t.Faces[DefaultIntent]) == 0 {
		return fmt.Errorf("%s: no faces for intent %q", FacesFile, DefaultIntent)
	}
	if !t.Playable(DefaultIntent) {
		return fmt.Errorf("intent %q has neither audio nor a timing", DefaultIntent)
	}
	return nil
}

// Playable reports whether intent has audio or a time limit.
func (t *Tables) Playable(intent string) bool {
	_, timed := t.Timings[intent]
	return len(t.Audio[intent]) > 0 || timed
}

// Intents returns the names of all intents that have faces, sorted.
func (t *Tables) Intents() []string {
	var names []string
	for k := range t.Faces {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// Selector picks assets for intents. Where an intent has several faces or
// clips, each pick is uniformly random and independent of earlier picks.
// A Selector is not safe for concurrent use.
type Selector struct {
	t *Tables
	r *rand.Rand
}

// NewSelector returns a Selector over t. If r is nil a randomly seeded
// source is used.
func NewSelector(t *Tables, r *rand.Rand) *Selector {
	if r == nil {
		r = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return &Selector{t: t, r: r}
}

// Known reports whether intent has faces.
func (s *Selector) Known(intent string) bool { return len(s.t.Faces[intent]) > 0 }

func (s *Selector) Face(intent string) (string, bool) { return s.pick(s.t.Faces[intent]) }

func (s *Selector) Audio(intent string) (string, bool) { return s.pick(s.t.Audio[intent]) }

func (s *Selector) Limit(intent string) (time.Duration, bool) {
	d, ok := s.t.Timings[intent]
	return d, ok
}

func (s *Selector) pick(paths []string) (string, bool) {
	if len(paths) == 0 {
		return "", false
	}
	return paths[s.r.IntN(len(paths))], true
}

// Check loads the tables in dir and reports every problem it finds: table
// syntax errors, missing files, and intents that can never be displayed.
func Check(dir string) []error {
	var errs []error
	faces, err := parseFile(filepath.Join(dir, FacesFile), ParsePaths)
	if err != nil {
		errs = append(errs, err)
	}
	audio, err := parseFile(filepath.Join(dir, AudioFile), ParsePaths)
	if err != nil {
		errs = append(errs, err)
	}
	timings, err := parseFile(filepath.Join(dir, TimingsFile), ParseTimings)
	if err != nil {
		errs = append(errs, err)
	}
	if len(errs) > 0 {
		return errs
	}

	exists := func(table, intent, p string) {
		if !filepath.IsAbs(p) {
			p = filepath.Join(dir, p)
		}
		if _, err := os.Stat(p); err != nil {
			errs = append(errs, fmt.Errorf("%s [%s]: %w", table, intent, err))
		}
	}
	t := &Tables{Faces: faces, Audio: audio, Timings: timings}
	for _, intent := range t.Intents() {
		if len(faces[intent]) == 0 {
			errs = append(errs, fmt.Errorf("%s [%s]: no faces", FacesFile, intent))
		}
		for _, p := range faces[intent] {
			exists(FacesFile, intent, p)
		}
		if !t.Playable(intent) {
			errs = append(errs, fmt.Errorf("[%s]: neither audio nor a timing", intent))
		}
	}
	for intent, paths := range audio {
		for _, p := range paths {
			exists(AudioFile, intent, p)
		}
	}
	if _, ok := faces[DefaultIntent]; !ok {
		errs = append(errs, fmt.Errorf("%s: missing intent %q", FacesFile, DefaultIntent))
	}
	if err := CheckFixed(dir); err != nil {
		errs = append(errs, err)
	}
	return errs
}

// CheckFixed reports whether the fixed assets exist in dir.
func CheckFixed(dir string) error {
	var errs []error
	for _, p := range []string{AlarmFace, AlarmSound, Font} {
		if _, err := os.Stat(filepath.Join(dir, p)); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
