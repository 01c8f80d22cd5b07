package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/glamour/ansi"
	"github.com/charmbracelet/glamour/styles"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"golang.org/x/term"

	chatservice "github.com/zhouzirui/z-salon/backend/internal/service/chat"
	"github.com/zhouzirui/z-salon/backend/internal/service/dialogue"
)

var (
	firstStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.AdaptiveColor{Light: "#2980b9", Dark: "#3498db"})
	secondStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.AdaptiveColor{Light: "#16a085", Dark: "#1abc9c"})
	rejectedStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.AdaptiveColor{Light: "#c0392b", Dark: "#e74c3c"})
	dimStyle      = lipgloss.NewStyle().Faint(true)
)

// Renderer turns markdown into terminal output.
type Renderer interface {
	Render(in string) (string, error)
}

// PlainTextRenderer returns content unchanged. It is the fallback when
// glamour cannot be initialised.
type PlainTextRenderer struct{}

// Render returns the input unchanged
func (p *PlainTextRenderer) Render(in string) (string, error) {
	return in, nil
}

// IsTTY returns true if stdout is connected to a terminal
func IsTTY() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}

func baseStyle() ansi.StyleConfig {
	style := styles.LightStyleConfig
	if termenv.HasDarkBackground() {
		style = styles.DarkStyleConfig
	}
	style.Document.BlockPrefix = ""
	return style
}

func asciiStyle() ansi.StyleConfig {
	style := styles.ASCIIStyleConfig
	style.Document.BlockPrefix = ""
	style.Document.Margin = nil
	return style
}

// NewRenderer picks a styled renderer on a terminal and an ASCII one
// otherwise.
func NewRenderer() Renderer {
	style := asciiStyle()
	if IsTTY() {
		style = baseStyle()
	}
	renderer, err := glamour.NewTermRenderer(
		glamour.WithStyles(style),
		glamour.WithWordWrap(100),
	)
	if err != nil {
		return &PlainTextRenderer{}
	}
	return renderer
}

// Printer writes transcripts and replies.
type Printer struct {
	out      io.Writer
	renderer Renderer
}

// NewPrinter creates a printer writing to out.
func NewPrinter(out io.Writer, renderer Renderer) *Printer {
	if renderer == nil {
		renderer = &PlainTextRenderer{}
	}
	return &Printer{out: out, renderer: renderer}
}

func (p *Printer) markdown(md string) {
	rendered, err := p.renderer.Render(md)
	if err != nil {
		rendered = md
	}
	fmt.Fprint(p.out, rendered)
	if !strings.HasSuffix(rendered, "\n") {
		fmt.Fprintln(p.out)
	}
}

// Heading prints a dimmed status line.
func (p *Printer) Heading(text string) {
	fmt.Fprintln(p.out, dimStyle.Render(text))
}

// Pair prints one turn pair of a dialogue.
func (p *Printer) Pair(t *dialogue.Transcript, pair dialogue.TurnPair) {
	var title string
	switch pair.Phase {
	case dialogue.PhaseOpening:
		title = "Opening"
	case dialogue.PhaseClosing:
		title = "Closing"
	default:
		title = fmt.Sprintf("Round %d", pair.Round)
	}
	p.markdown("## " + title)

	fmt.Fprintln(p.out, firstStyle.Render(t.First.Name+":"))
	p.markdown(pair.First)
	fmt.Fprintln(p.out, secondStyle.Render(t.Second.Name+":"))
	p.markdown(pair.Second)
}

// Reply prints the persona's answer to one chat turn.
func (p *Printer) Reply(name string, reply chatservice.Reply) {
	style := secondStyle
	if reply.Rejected {
		style = rejectedStyle
	}
	fmt.Fprintln(p.out, style.Render(name+":"))
	p.markdown(reply.Content)
}
