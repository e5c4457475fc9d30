// Package assets loads the tables that map intents to faces, audio clips and
// time limits.
//
// Each table is a text file of sections. A section starts with an intent name
// in square brackets and is followed by one entry per line. Blank lines are
// ignored:
//
//	[hello]
//	/home/bmo/assets/faces/hello.png
//	/home/bmo/assets/faces/hello2.png
//
//	[song]
//	...
//
// In the timings table each entry is a number of milliseconds; when an
// intent has several, the last one wins.
package assets

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"
)

// SyntaxError reports a malformed line in a table file.
type SyntaxError struct {
	File string
	Line int
	Msg  string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("%s:%d: %s", e.File, e.Line, e.Msg)
}

// ParsePaths reads a faces or audio table. Sections with no entries map to
// an empty list.
func ParsePaths(name string, r io.Reader) (map[string][]string, error) {
	m := make(map[string][]string)
	err := parse(name, r, func(section, entry string, line int) error {
		if entry == "" {
			if _, ok := m[section]; !ok {
				m[section] = nil
			}
			return nil
		}
		m[section] = append(m[section], entry)
		return nil
	})
	return m, err
}

// ParseTimings reads a timings table.
func ParseTimings(name string, r io.Reader) (map[string]time.Duration, error) {
	m := make(map[string]time.Duration)
	err := parse(name, r, func(section, entry string, line int) error {
		if entry == "" {
			return nil
		}
		ms, err := strconv.ParseUint(entry, 10, 32)
		if err != nil {
			return &SyntaxError{name, line, fmt.Sprintf("invalid timing %q for intent %q, want milliseconds (200, 3400...)", entry, section)}
		}
		m[section] = time.Duration(ms) * time.Millisecond
		return nil
	})
	return m, err
}

// parse calls fn once with an empty entry for each section header, and once
// for each entry line.
func parse(name string, r io.Reader, fn func(section, entry string, line int) error) error {
	var (
		s       = bufio.NewScanner(r)
		section string
		n       int
	)
	for s.Scan() {
		n++
		line := strings.TrimSpace(s.Text())
		switch {
		case line == "":
			continue
		case strings.HasPrefix(line, "["):
			section = strings.TrimSpace(strings.NewReplacer("[", "", "]", "").Replace(line))
			if section == "" {
				return &SyntaxError{name, n, "empty intent name"}
			}
			if err := fn(section, "", n); err != nil {
				return err
			}
		case section == "":
			return &SyntaxError{name, n, "entry without an intent ([intent_name]) above it"}
		default:
			if err := fn(section, line, n); err != nil {
				return err
			}
		}
	}
	if err := s.Err(); err != nil {
		return fmt.Errorf("reading %s: %w", name, err)
	}
	return nil
}

func parseFile[T any](path string, parse func(string, io.Reader) (T, error)) (T, error) {
	f, err := os.Open(path)
	if err != nil {
		var zero T
		return zero, err
	}
	defer f.Close()
	return parse(path, f)
}
