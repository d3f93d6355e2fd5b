// Package console is the line-oriented terminal the user talks to Phoenix through.
package console

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
)

type styles struct {
	title  lipgloss.Style
	prompt lipgloss.Style
	info   lipgloss.Style
	warn   lipgloss.Style
	reply  lipgloss.Style
}

func newStyles(r *lipgloss.Renderer) styles {
	accent := lipgloss.AdaptiveColor{Light: "#c2410c", Dark: "#fb923c"}
	return styles{
		title:  r.NewStyle().Foreground(accent).Bold(true),
		prompt: r.NewStyle().Foreground(accent),
		info:   r.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#4b5563", Dark: "#9ca3af"}),
		warn:   r.NewStyle().Foreground(lipgloss.Color("#ef4444")).Bold(true),
		reply: r.NewStyle().
			PaddingLeft(1).
			BorderLeft(true).
			BorderStyle(lipgloss.ThickBorder()).
			BorderForeground(accent),
	}
}

// Terminal reads answers line by line and writes styled output. With
// pretty off it writes plain text, which is what pipes and tests want.
type Terminal struct {
	in       *bufio.Reader
	out      io.Writer
	pretty   bool
	styles   styles
	renderer *glamour.TermRenderer
}

func New(in io.Reader, out io.Writer, pretty bool) *Terminal {
	t := &Terminal{in: bufio.NewReader(in), out: out, pretty: pretty}
	if pretty {
		t.styles = newStyles(lipgloss.NewRenderer(out))
		// A nil renderer falls back to plain text.
		t.renderer, _ = glamour.NewTermRenderer(
			glamour.WithAutoStyle(),
			glamour.WithWordWrap(80),
		)
	}
	return t
}

// Say prints a line of narration.
func (t *Terminal) Say(text string) {
	if t.pretty {
		text = t.styles.info.Render(text)
	}
	fmt.Fprintln(t.out, text)
}

// Warn prints a problem the user should know about.
func (t *Terminal) Warn(text string) {
	if t.pretty {
		text = t.styles.warn.Render(text)
	}
	fmt.Fprintln(t.out, text)
}

// Show prints a titled block. body is Markdown, as models usually write it.
func (t *Terminal) Show(title, body string) {
	if !t.pretty {
		fmt.Fprintf(t.out, "\n%s\n\n%s\n", title, body)
		return
	}
	fmt.Fprintf(t.out, "\n%s\n", t.styles.title.Render(title))
	if t.renderer != nil {
		if rendered, err := t.renderer.Render(body); err == nil {
			fmt.Fprint(t.out, rendered)
			return
		}
	}
	fmt.Fprintln(t.out, t.styles.reply.Render(body))
}

// Ask prints prompt and returns the trimmed answer. End of input with
// nothing typed returns io.EOF.
func (t *Terminal) Ask(prompt string) (string, error) {
	p := prompt
	if t.pretty {
		p = t.styles.prompt.Render(prompt)
	}
	fmt.Fprint(t.out, p)

	line, err := t.in.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", err
	}
	return strings.TrimSpace(line), nil
}
