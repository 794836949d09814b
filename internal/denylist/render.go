package denylist

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"strconv"

	"github.com/fatih/color"
)

// Context says where the matched players were seen.
type Context string

const (
	ContextNone    Context = ""
	ContextInGame  Context = "INGAME"
	ContextPregame Context = "PREGAME"
	ContextMenus   Context = "MENUS"
)

// Contexts lists the non-empty context labels.
var Contexts = []Context{ContextInGame, ContextPregame, ContextMenus}

// Phrase returns the human-readable location for the context, or "" when
// the context is unknown.
func (c Context) Phrase() string {
	switch c {
	case ContextInGame:
		return "in the match"
	case ContextPregame:
		return "in agent select"
	case ContextMenus:
		return "in your party"
	default:
		return ""
	}
}

func (c Context) phraseColor() color.Attribute {
	switch c {
	case ContextInGame:
		return color.FgHiRed
	case ContextPregame:
		return color.FgHiGreen
	default:
		return color.FgHiYellow
	}
}

// Formatter turns matches into warning text.
type Formatter interface {
	Format(w io.Writer, matches []Match, where Context) error
}

// TextFormatter writes a plain terminal warning, colored when Color is set.
type TextFormatter struct {
	Color bool
}

var _ Formatter = TextFormatter{}

func (f TextFormatter) paint(attrs ...color.Attribute) *color.Color {
	c := color.New(attrs...)
	if f.Color {
		c.EnableColor()
	} else {
		c.DisableColor()
	}
	return c
}

func (f TextFormatter) Format(w io.Writer, matches []Match, where Context) error {
	var buf bytes.Buffer

	header := f.paint(color.FgRed, color.Bold)
	count := f.paint(color.FgYellow, color.Bold)
	name := f.paint(color.FgHiRed, color.Bold)

	fmt.Fprintf(&buf, "\n%s\n", header.Sprint("⚠️  DENYLISTED PLAYERS DETECTED ⚠️"))
	n := count.Sprint(strconv.Itoa(len(matches)))
	if phrase := where.Phrase(); phrase != "" {
		fmt.Fprintf(&buf, "Found %s denylisted player(s) %s:\n", n, f.paint(where.phraseColor()).Sprint(phrase))
	} else {
		fmt.Fprintf(&buf, "Found %s denylisted player(s):\n", n)
	}
	for _, m := range matches {
		fmt.Fprintf(&buf, "  • %s\n", name.Sprint(m.Name))
	}
	buf.WriteString("\n")

	_, err := w.Write(buf.Bytes())
	return err
}

// Renderer writes warnings for matches to an output stream.
type Renderer struct {
	out       io.Writer
	formatter Formatter
	logger    *slog.Logger
}

// NewRenderer returns a renderer writing to out. A nil formatter means an
// uncolored TextFormatter.
func NewRenderer(out io.Writer, formatter Formatter, logger *slog.Logger) *Renderer {
	if formatter == nil {
		formatter = TextFormatter{}
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Renderer{
		out:       out,
		formatter: formatter,
		logger:    logger,
	}
}

// RenderWarning prints a summary of matches. It does nothing when matches
// is empty.
func (r *Renderer) RenderWarning(matches []Match, where Context) {
	if len(matches) == 0 {
		return
	}
	if err := r.formatter.Format(r.out, matches, where); err != nil {
		r.logger.Error("failed to write denylist warning", "error", err)
	}
}
