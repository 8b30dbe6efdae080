package render

import (
	"bufio"
	"fmt"
	"io"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/fatih/color"
	"github.com/muesli/termenv"
)

// Sink is where frames are drawn. The renderer only decides layout and scale;
// escape sequences stay behind this interface.
type Sink interface {
	// WriteCell draws one heat map cell for token using palette.
	WriteCell(token int, palette Palette)
	// WriteString writes plain text.
	WriteString(s string)
	// Home moves the cursor to the top-left corner.
	Home()
	// Clear erases the screen.
	Clear()
	// Reset returns the terminal to default colors.
	Reset()
	// Flush pushes the buffered frame to the terminal and reports the first write error.
	Flush() error
}

// TerminalSink draws cells as colored blanks using the 256-color palette.
// With the Ascii profile cells fall back to the token digit.
type TerminalSink struct {
	w        *bufio.Writer
	out      *termenv.Output
	renderer *lipgloss.Renderer
	profile  termenv.Profile
	cells    map[string][]string
}

// NewTerminalSink buffers writes to w; nothing reaches w before Flush.
func NewTerminalSink(w io.Writer, profile termenv.Profile) *TerminalSink {
	bw := bufio.NewWriterSize(w, 64*1024)
	r := lipgloss.NewRenderer(bw, termenv.WithProfile(profile))
	r.SetColorProfile(profile)
	return &TerminalSink{
		w:        bw,
		out:      termenv.NewOutput(bw, termenv.WithProfile(profile)),
		renderer: r,
		profile:  profile,
		cells:    make(map[string][]string),
	}
}

// ProfileFor maps the color setting onto a termenv profile.
// "auto" honors NO_COLOR and a non-terminal stdout.
func ProfileFor(mode string) termenv.Profile {
	switch mode {
	case "always":
		return termenv.ANSI256
	case "never":
		return termenv.Ascii
	}
	if color.NoColor {
		return termenv.Ascii
	}
	return termenv.ANSI256
}

func (s *TerminalSink) WriteCell(token int, palette Palette) {
	cells, ok := s.cells[palette.Name]
	if !ok {
		cells = s.renderCells(palette)
		s.cells[palette.Name] = cells
	}
	if token < 0 || token >= len(cells) {
		token = 0
	}
	s.w.WriteString(cells[token])
}

// renderCells pre-renders one cell per token so the hot loop is a plain write.
func (s *TerminalSink) renderCells(palette Palette) []string {
	cells := make([]string, NumTokens)
	for token := range cells {
		if s.profile == termenv.Ascii {
			cells[token] = " "
			if token > 0 {
				cells[token] = strconv.Itoa(token)
			}
			continue
		}
		style := s.renderer.NewStyle().Background(lipgloss.Color(strconv.Itoa(palette.Colors[token])))
		cells[token] = style.Render(" ")
	}
	return cells
}

func (s *TerminalSink) WriteString(str string) {
	s.w.WriteString(str)
}

func (s *TerminalSink) Home() {
	s.out.MoveCursor(1, 1)
}

func (s *TerminalSink) Clear() {
	fmt.Fprintf(s.w, termenv.CSI+termenv.EraseDisplaySeq, 2)
}

func (s *TerminalSink) Reset() {
	s.out.Reset()
}

func (s *TerminalSink) Flush() error {
	return s.w.Flush()
}
