package logging

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, LevelQuiet, ParseLevel("quiet"))
	assert.Equal(t, LevelNormal, ParseLevel("normal"))
	assert.Equal(t, LevelVerbose, ParseLevel("VERBOSE"))
	assert.Equal(t, LevelDebug, ParseLevel("debug"))
	assert.Equal(t, LevelNormal, ParseLevel(""))
}

func TestConsoleLevels(t *testing.T) {
	tests := []struct {
		level   Level
		visible []string
		hidden  []string
	}{
		{
			level:   LevelQuiet,
			visible: []string{"Warning: w", "Error: e", "✓ done"},
			hidden:  []string{"[1] step", "info", "→ detail", "[DEBUG] dbg"},
		},
		{
			level:   LevelNormal,
			visible: []string{"[1] step", "info", "Warning: w", "Error: e", "✓ done"},
			hidden:  []string{"→ detail", "[DEBUG] dbg"},
		},
		{
			level:   LevelVerbose,
			visible: []string{"[1] step", "→ detail"},
			hidden:  []string{"[DEBUG] dbg"},
		},
		{
			level:   LevelDebug,
			visible: []string{"[1] step", "→ detail", "[DEBUG] dbg"},
		},
	}

	for _, tt := range tests {
		var buf bytes.Buffer
		c := NewConsole(&buf, tt.level)
		c.Step("step")
		c.Infof("info")
		c.Verbosef("detail")
		c.Debugf("dbg")
		c.Warningf("w")
		c.Errorf("e")
		c.Successf("done")

		out := buf.String()
		for _, s := range tt.visible {
			assert.Contains(t, out, s, "level %d", tt.level)
		}
		for _, s := range tt.hidden {
			assert.NotContains(t, out, s, "level %d", tt.level)
		}
	}
}

func TestConsoleStepNumbering(t *testing.T) {
	var buf bytes.Buffer
	c := NewConsole(&buf, LevelNormal)
	c.Step("secret")
	c.Step("cache")
	c.Step("login")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	assert.Equal(t, []string{"[1] secret", "[2] cache", "[3] login"}, lines)
}

func TestConsoleHeader(t *testing.T) {
	var buf bytes.Buffer
	NewConsole(&buf, LevelNormal).Header("Session bootstrap")
	assert.Contains(t, buf.String(), "  Session bootstrap")
	assert.Contains(t, buf.String(), strings.Repeat("=", 60))

	buf.Reset()
	NewConsole(&buf, LevelQuiet).Header("hidden")
	assert.Empty(t, buf.String())
}

func TestNilConsole(t *testing.T) {
	var c *Console
	c.Step("x")
	c.Infof("x")
	c.Errorf("x")
}
