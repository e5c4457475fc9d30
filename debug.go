package main

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"github.com/nf/bmo/bmo"
	"github.com/nf/bmo/intent"
)

// debugView is a terminal console shown alongside the window. It shows the
// log, the render loop's state and the known intents, and accepts commands:
//
//	send <intent>   deliver an intent as if it came from the controller
//	<intent>        same as send
//	exit            quit bmo
type debugView struct {
	st   *intent.State
	quit func()

	log     *tview.TextView
	intents *tview.TextView
	state   *tview.TextView
	input   *tview.InputField
	cols    *tview.Flex
	rows    *tview.Flex
	app     *tview.Application

	names []string // for autocompletion
}

// newDebugView returns a console listing names. The State that commands are
// sent to must be set before Run.
func newDebugView(names []string, quit func()) *debugView {
	names = append(names, intent.Chronometer, intent.Weather, intent.Done,
		"5more", "10more", "20more", "5less", "10less", "20less")
	sort.Strings(names)
	d := &debugView{
		quit:  quit,
		names: names,
		log: tview.NewTextView().
			SetDynamicColors(true).
			SetMaxLines(1000),
		intents: tview.NewTextView().
			SetWrap(false).
			SetTextAlign(tview.AlignRight),
		state: tview.NewTextView().
			SetWrap(false),
		input: tview.NewInputField(),
		cols:  tview.NewFlex(),
		rows: tview.NewFlex().
			SetDirection(tview.FlexRow),
		app: tview.NewApplication(),
	}
	d.log.SetChangedFunc(func() { d.app.Draw() })
	d.intents.SetBackgroundColor(tcell.ColorDarkBlue)
	d.intents.SetText(strings.Join(names, "\n"))
	d.state.SetBackgroundColor(tcell.ColorDarkGrey)
	d.cols.
		AddItem(d.intents, 0, 1, false).
		AddItem(d.log, 0, 3, false)
	d.rows.
		AddItem(d.cols, 0, 1, false).
		AddItem(d.state, 2, 0, false).
		AddItem(d.input, 1, 0, true)
	d.app.SetRoot(d.rows, true)

	d.input.SetAutocompleteFunc(func(t string) (entries []string) {
		prefix, arg := "", t
		if cmd, a, ok := strings.Cut(t, " "); ok && cmd == "send" {
			prefix, arg = "send ", a
		}
		if arg == "" {
			return nil
		}
		for _, n := range d.names {
			if strings.HasPrefix(n, arg) {
				entries = append(entries, prefix+n)
			}
		}
		return
	})
	d.input.SetAutocompletedFunc(func(t string, index, src int) bool {
		if src != tview.AutocompletedNavigate {
			d.input.SetText(t)
		}
		return src == tview.AutocompletedEnter || src == tview.AutocompletedClick
	})
	d.input.SetDoneFunc(func(key tcell.Key) {
		if key != tcell.KeyEnter {
			return
		}
		cmd := strings.TrimSpace(d.input.GetText())
		if cmd == "" {
			return
		}
		d.input.SetText("")
		if cmd == "exit" {
			d.app.Stop()
			return
		}
		if c, arg, ok := strings.Cut(cmd, " "); ok && c == "send" {
			cmd = strings.TrimSpace(arg)
		}
		d.st.Send(cmd)
	})
	return d
}

// Writer returns a writer that appends to the log pane, translating the
// console colours of formatted log lines.
func (d *debugView) Writer() io.Writer {
	return tview.ANSIWriter(d.log)
}

// Run shows the console until "exit" is entered or Stop is called, then
// asks bmo to quit.
func (d *debugView) Run() error {
	defer d.quit()
	return d.app.Run()
}

func (d *debugView) Stop() { d.app.Stop() }

// Observe is a bmo.Config.Observe function that shows s in the state pane.
func (d *debugView) Observe(s bmo.Status) {
	msg := stateMsg(s, d.st)
	d.app.QueueUpdateDraw(func() {
		switch s.Mode {
		case bmo.Displaying:
			d.state.SetTextColor(tcell.ColorBlack)
			d.state.SetBackgroundColor(tcell.ColorDarkGrey)
		case bmo.InChronometer:
			d.state.SetTextColor(tcell.ColorYellow)
			d.state.SetBackgroundColor(tcell.ColorDarkBlue)
		case bmo.InWeather:
			d.state.SetTextColor(tcell.ColorWhite)
			d.state.SetBackgroundColor(tcell.ColorDarkBlue)
		case bmo.Exiting:
			d.state.SetTextColor(tcell.ColorWhite)
			d.state.SetBackgroundColor(tcell.ColorDarkRed)
		}
		d.state.SetText(msg)
	})
}

func stateMsg(s bmo.Status, st *intent.State) string {
	kind := "       "
	switch s.Mode {
	case bmo.InChronometer:
		kind = "[chron]"
	case bmo.InWeather:
		kind = "[wthr.]"
	case bmo.Exiting:
		kind = "[exit!]"
	}
	pending := ""
	if st.Pending() {
		pending = " (more pending)"
	}
	return fmt.Sprintf("%s %s\nlast received: %s%s", kind, s.Intent, st.Current(), pending)
}
