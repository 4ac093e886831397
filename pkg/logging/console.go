package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"
)

// Level is the console verbosity.
type Level int

const (
	// LevelQuiet shows only warnings, errors and the final result
	LevelQuiet Level = iota
	// LevelNormal shows each decision point (default)
	LevelNormal
	// LevelVerbose adds details such as paths, origins and timings
	LevelVerbose
	// LevelDebug shows everything
	LevelDebug
)

// ParseLevel maps a verbosity name to a Level. Unknown names map to LevelNormal.
func ParseLevel(name string) Level {
	switch strings.ToLower(name) {
	case "quiet":
		return LevelQuiet
	case "verbose":
		return LevelVerbose
	case "debug":
		return LevelDebug
	default:
		return LevelNormal
	}
}

// Console narrates a run to the operator. Output is styled when w is a
// terminal and plain otherwise.
type Console struct {
	mu    sync.Mutex
	level Level
	w     io.Writer
	step  int

	header  lipgloss.Style
	stepSty lipgloss.Style
	success lipgloss.Style
	info    lipgloss.Style
	warn    lipgloss.Style
	errSty  lipgloss.Style
	muted   lipgloss.Style
}

// NewConsole creates a console writing to w (os.Stdout when nil).
func NewConsole(w io.Writer, level Level) *Console {
	if w == nil {
		w = os.Stdout
	}
	r := lipgloss.NewRenderer(w)
	return &Console{
		level:   level,
		w:       w,
		header:  r.NewStyle().Bold(true).Foreground(lipgloss.Color("15")),
		stepSty: r.NewStyle().Foreground(lipgloss.Color("6")),
		success: r.NewStyle().Bold(true).Foreground(lipgloss.Color("2")),
		info:    r.NewStyle().Foreground(lipgloss.Color("217")),
		warn:    r.NewStyle().Foreground(lipgloss.Color("3")),
		errSty:  r.NewStyle().Bold(true).Foreground(lipgloss.Color("1")),
		muted:   r.NewStyle().Foreground(lipgloss.Color("8")),
	}
}

// Level returns the configured verbosity.
func (c *Console) Level() Level {
	return c.level
}

func (c *Console) println(atLeast Level, style lipgloss.Style, text string) {
	if c == nil || c.level < atLeast {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintln(c.w, style.Render(text))
}

// Header prints a prominent banner.
func (c *Console) Header(message string) {
	rule := strings.Repeat("=", 60)
	c.println(LevelNormal, c.header, rule+"\n  "+message+"\n"+rule)
}

// Step prints a numbered decision point.
func (c *Console) Step(message string) {
	if c == nil || c.level < LevelNormal {
		return
	}
	c.mu.Lock()
	c.step++
	n := c.step
	c.mu.Unlock()
	c.println(LevelNormal, c.stepSty, fmt.Sprintf("[%d] %s", n, message))
}

// Successf prints a success message.
func (c *Console) Successf(format string, args ...interface{}) {
	c.println(LevelQuiet, c.success, "✓ "+fmt.Sprintf(format, args...))
}

// Infof prints an informational message.
func (c *Console) Infof(format string, args ...interface{}) {
	c.println(LevelNormal, c.info, fmt.Sprintf(format, args...))
}

// Warningf prints a warning. Warnings are shown at every level.
func (c *Console) Warningf(format string, args ...interface{}) {
	c.println(LevelQuiet, c.warn, "⚠ Warning: "+fmt.Sprintf(format, args...))
}

// Errorf prints an error. Errors are shown at every level.
func (c *Console) Errorf(format string, args ...interface{}) {
	c.println(LevelQuiet, c.errSty, "✗ Error: "+fmt.Sprintf(format, args...))
}

// Verbosef prints detail shown in verbose mode.
func (c *Console) Verbosef(format string, args ...interface{}) {
	c.println(LevelVerbose, c.muted, "→ "+fmt.Sprintf(format, args...))
}

// Debugf prints debug detail.
func (c *Console) Debugf(format string, args ...interface{}) {
	c.println(LevelDebug, c.muted, "[DEBUG] "+fmt.Sprintf(format, args...))
}
