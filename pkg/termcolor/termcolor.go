// Package termcolor decides whether terminal output should be colored.
package termcolor

import (
	"fmt"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
)

// Mode is the user's color preference.
type Mode string

const (
	Auto   Mode = "auto"
	Always Mode = "always"
	Never  Mode = "never"
)

// Modes lists the accepted values.
var Modes = []string{string(Auto), string(Always), string(Never)}

func ParseMode(s string) (Mode, error) {
	switch m := Mode(strings.ToLower(strings.TrimSpace(s))); m {
	case Auto, Always, Never:
		return m, nil
	case "":
		return Auto, nil
	default:
		return "", fmt.Errorf("invalid color mode %q (want auto, always or never)", s)
	}
}

// Supported reports whether output to f should be colored under mode.
func Supported(mode Mode, f *os.File) bool {
	switch mode {
	case Always:
		return true
	case Never:
		return false
	}
	return supported(os.Getenv, f != nil && isatty.IsTerminal(f.Fd()))
}

func supported(getenv func(string) string, tty bool) bool {
	// https://no-color.org/
	if getenv("NO_COLOR") != "" {
		return false
	}
	if getenv("FORCE_COLOR") != "" {
		return true
	}
	if !tty {
		return false
	}

	term := getenv("TERM")
	if term == "" || term == "dumb" {
		return false
	}
	if getenv("CI") != "" {
		return false
	}

	colorTerm := getenv("COLORTERM")
	if colorTerm == "truecolor" || colorTerm == "24bit" {
		return true
	}
	return strings.Contains(term, "color") ||
		strings.Contains(term, "ansi") ||
		strings.Contains(term, "xterm") ||
		strings.Contains(term, "screen")
}
