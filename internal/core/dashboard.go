package core

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/briandowns/spinner"
	"github.com/jedib0t/go-pretty/table"
	"github.com/schollz/progressbar/v3"
)

// Dashboard shows a spinner while the page is learned and a progress bar for
// every later phase. All methods are safe for concurrent use.
type Dashboard struct {
	mu      sync.Mutex
	out     io.Writer
	enabled bool

	spinner *spinner.Spinner
	bar     *progressbar.ProgressBar
	phase   string
	done    int
	total   int
	found   int
}

// NewDashboard writes to stderr. A disabled dashboard ignores every event.
func NewDashboard(enabled bool) *Dashboard {
	return &Dashboard{out: os.Stderr, enabled: enabled}
}

// Phase replaces the current indicator. The learning phase and phases with an
// unknown total get a spinner.
func (d *Dashboard) Phase(name string, total int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.enabled {
		return
	}
	d.stopLocked()
	d.phase = name
	d.done = 0
	d.total = total

	if name == "learning" || total <= 0 {
		s := spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriter(d.out))
		s.Suffix = fmt.Sprintf(" %s...", name)
		s.Start()
		d.spinner = s
		return
	}
	d.bar = progressbar.NewOptions(total,
		progressbar.OptionSetWriter(d.out),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionSetDescription(d.describe()),
		progressbar.OptionShowCount(),
		progressbar.OptionClearOnFinish(),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "[green]=[reset]",
			SaucerHead:    "[green]>[reset]",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}))
}

// Request advances the bar. Bisection adds requests nobody could count in
// advance, so the total grows with them.
func (d *Dashboard) Request() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.bar == nil {
		return
	}
	d.done++
	if d.done > d.total {
		d.total = d.done
		d.bar.ChangeMax(d.total)
	}
	d.bar.Add(1)
}

// Found counts a found parameter in the bar description.
func (d *Dashboard) Found(name string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.found++
	if d.bar != nil {
		d.bar.Describe(d.describe())
	}
}

// Stop removes the current indicator.
func (d *Dashboard) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stopLocked()
}

func (d *Dashboard) stopLocked() {
	if d.spinner != nil {
		d.spinner.Stop()
		d.spinner = nil
	}
	if d.bar != nil {
		d.bar.Finish()
		d.bar = nil
	}
}

func (d *Dashboard) describe() string {
	return fmt.Sprintf("[cyan]%s[reset] (%d found)", d.phase, d.found)
}

// Summary is the end of run overview.
type Summary struct {
	URL               string
	Method            string
	Place             string
	Max               int
	Requests          int64
	Found             int
	StableBody        bool
	StableReflections bool
	Elapsed           time.Duration
}

// RenderSummary prints the overview table.
func RenderSummary(w io.Writer, s Summary) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleColoredBright)
	t.AppendHeader(table.Row{"Target", "Place", "Max", "Requests", "Found", "Stable Body", "Stable Reflections", "Elapsed"})
	t.AppendRow(table.Row{
		s.Method + " " + s.URL,
		s.Place,
		s.Max,
		s.Requests,
		s.Found,
		formatFlag(s.StableBody),
		formatFlag(s.StableReflections),
		s.Elapsed.Truncate(time.Millisecond),
	})
	t.Render()
}

func formatFlag(ok bool) string {
	if ok {
		return "✔"
	}
	return "✘"
}
