// Package display renders results for the terminal.
package display

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"

	"github.com/kris-hansen/tagup/utils/classify"
	"github.com/kris-hansen/tagup/utils/pipeline"
	"github.com/kris-hansen/tagup/utils/tags"
)

// Color palette
var (
	colorAccent  = lipgloss.Color("#8BC34A")
	colorInfo    = lipgloss.Color("#2196F3")
	colorWarning = lipgloss.Color("#FFC107")
	colorError   = lipgloss.Color("#e53935")
	colorMuted   = lipgloss.Color("#808080")
)

// Styler renders styled text for one output stream
type Styler struct {
	title   lipgloss.Style
	label   lipgloss.Style
	tags    lipgloss.Style
	muted   lipgloss.Style
	warning lipgloss.Style
	err     lipgloss.Style
	box     lipgloss.Style
}

// NewStyler creates a styler for w. Colors follow the terminal profile of w
// and are off when NO_COLOR is set.
func NewStyler(w io.Writer) *Styler {
	r := lipgloss.NewRenderer(w)
	if os.Getenv("NO_COLOR") != "" || os.Getenv("TERM") == "dumb" {
		r.SetColorProfile(termenv.Ascii)
	}
	return &Styler{
		title:   r.NewStyle().Bold(true).Foreground(colorAccent),
		label:   r.NewStyle().Bold(true).Foreground(colorInfo),
		tags:    r.NewStyle(),
		muted:   r.NewStyle().Foreground(colorMuted),
		warning: r.NewStyle().Foreground(colorWarning),
		err:     r.NewStyle().Bold(true).Foreground(colorError),
		box:     r.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(colorMuted).Padding(0, 1),
	}
}

// Title renders a heading
func (s *Styler) Title(text string) string { return s.title.Render(text) }

// Muted renders secondary text
func (s *Styler) Muted(text string) string { return s.muted.Render(text) }

// Warning renders a warning
func (s *Styler) Warning(text string) string { return s.warning.Render(text) }

// Error renders an error message
func (s *Styler) Error(text string) string { return s.err.Render(text) }

// Field renders "label: value", skipping empty values
func (s *Styler) Field(label, value string) string {
	if value == "" {
		return ""
	}
	return s.label.Render(label+":") + " " + s.tags.Render(value)
}

func (s *Styler) fields(pairs ...string) string {
	var lines []string
	for i := 0; i+1 < len(pairs); i += 2 {
		if line := s.Field(pairs[i], pairs[i+1]); line != "" {
			lines = append(lines, line)
		}
	}
	return strings.Join(lines, "\n")
}

// Result renders a pipeline result. verbose adds the per-stage prompts and
// raw output.
func (s *Styler) Result(res *pipeline.Result, verbose bool) string {
	var b strings.Builder
	b.WriteString(s.box.Render(s.fields(
		"copyright", res.Copyright,
		"character", res.Character,
		"condition", res.Condition,
		"translation", res.Translation,
		"extension", res.ExtensionTags,
		"generated", res.GeneratedTags,
	)))
	b.WriteString("\n")
	b.WriteString(s.Title("tags"))
	b.WriteString("\n")
	b.WriteString(res.AllTags)
	b.WriteString("\n")

	if len(res.Parse.UnknownTags) > 0 {
		b.WriteString(s.Warning(fmt.Sprintf("not in vocabulary: %s", res.Parse.Unknown)))
		b.WriteString("\n")
	}
	if verbose {
		for _, st := range res.Stages {
			b.WriteString(s.Muted(fmt.Sprintf("[%s] %s", st.Name, st.Duration.Round(1e6))))
			b.WriteString("\n")
			b.WriteString(s.fields("prompt", st.Prompt, "raw", st.Output.Raw))
			b.WriteString("\n")
		}
	}
	return b.String()
}

// Parse renders a classification result
func (s *Styler) Parse(res classify.Result) string {
	out := s.fields(
		"copyright", res.Copyright,
		"character", res.Character,
		"known", res.Known,
		"unknown", res.Unknown,
	)
	if res.Rating != "" {
		value := s.tags.Render(res.Rating.String())
		if res.Rating.Severity() >= tags.RatingQuestionable.Severity() {
			value = s.warning.Render(res.Rating.String())
		}
		if out != "" {
			out += "\n"
		}
		out += s.label.Render("rating:") + " " + value
	}
	if len(res.Dropped) > 0 {
		out += "\n" + s.Muted("dropped: "+strings.Join(res.Dropped, ", "))
	}
	return out
}

// Table renders rows under headers with aligned columns
func (s *Styler) Table(headers []string, rows [][]string) string {
	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = lipgloss.Width(h)
	}
	for _, row := range rows {
		for i, cell := range row {
			if i < len(widths) && lipgloss.Width(cell) > widths[i] {
				widths[i] = lipgloss.Width(cell)
			}
		}
	}

	var b strings.Builder
	writeRow := func(cells []string, style lipgloss.Style) {
		for i := range widths {
			cell := ""
			if i < len(cells) {
				cell = cells[i]
			}
			b.WriteString(style.Render(cell))
			if i < len(widths)-1 {
				b.WriteString(strings.Repeat(" ", widths[i]-lipgloss.Width(cell)+2))
			}
		}
		b.WriteString("\n")
	}
	writeRow(headers, s.label)
	for _, row := range rows {
		writeRow(row, s.tags)
	}
	return b.String()
}
