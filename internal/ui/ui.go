// Package ui renders command output: status lines, tables, SQL previews
// and confirmation prompts.
package ui

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/AlecAivazis/survey/v2"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/fatih/color"
	"github.com/pterm/pterm"
)

var (
	PrimaryColor   = lipgloss.Color("#00D9FF")
	SuccessColor   = lipgloss.Color("#00FF88")
	WarningColor   = lipgloss.Color("#FFB800")
	ErrorColor     = lipgloss.Color("#FF4444")
	SecondaryColor = lipgloss.Color("#6C757D")

	TitleStyle     = lipgloss.NewStyle().Foreground(PrimaryColor).Bold(true)
	SuccessStyle   = lipgloss.NewStyle().Foreground(SuccessColor).Bold(true)
	ErrorStyle     = lipgloss.NewStyle().Foreground(ErrorColor).Bold(true)
	WarningStyle   = lipgloss.NewStyle().Foreground(WarningColor).Bold(true)
	SecondaryStyle = lipgloss.NewStyle().Foreground(SecondaryColor)
)

// Printer writes command output. Plain printers emit no styling, which
// keeps output stable when piped or tested.
type Printer struct {
	Out   io.Writer
	Err   io.Writer
	Plain bool

	// Confirm asks a yes/no question. Defaults to a survey prompt.
	Confirm func(message string) (bool, error)
}

// New returns a printer on stdout and stderr. Output is plain when plain
// is set or NO_COLOR is present.
func New(plain bool) *Printer {
	if plain {
		color.NoColor = true
	}
	return &Printer{
		Out:     os.Stdout,
		Err:     os.Stderr,
		Plain:   plain || color.NoColor,
		Confirm: surveyConfirm,
	}
}

func surveyConfirm(message string) (bool, error) {
	ok := false
	err := survey.AskOne(&survey.Confirm{Message: message, Default: false}, &ok)
	return ok, err
}

func (p *Printer) render(style lipgloss.Style, s string) string {
	if p.Plain {
		return s
	}
	return style.Render(s)
}

// Title prints a section title
func (p *Printer) Title(format string, args ...any) {
	fmt.Fprintln(p.Out, p.render(TitleStyle, fmt.Sprintf(format, args...)))
}

// Success prints a success line
func (p *Printer) Success(format string, args ...any) {
	fmt.Fprintln(p.Out, p.render(SuccessStyle, "✓ "+fmt.Sprintf(format, args...)))
}

// Warning prints a warning line
func (p *Printer) Warning(format string, args ...any) {
	fmt.Fprintln(p.Out, p.render(WarningStyle, "⚠ "+fmt.Sprintf(format, args...)))
}

// Error prints an error line to Err
func (p *Printer) Error(format string, args ...any) {
	fmt.Fprintln(p.Err, p.render(ErrorStyle, "✗ "+fmt.Sprintf(format, args...)))
}

// KeyValue prints aligned "key: value" pairs
func (p *Printer) KeyValue(pairs ...[2]string) {
	width := 0
	for _, kv := range pairs {
		width = max(width, len(kv[0]))
	}
	label := color.New(color.FgCyan)
	for _, kv := range pairs {
		key := fmt.Sprintf("%-*s", width+1, kv[0]+":")
		if !p.Plain {
			key = label.Sprint(key)
		}
		fmt.Fprintf(p.Out, "%s %s\n", key, kv[1])
	}
}

// Table prints rows under a header
func (p *Printer) Table(header []string, rows [][]string) error {
	data := pterm.TableData{header}
	data = append(data, rows...)

	table := pterm.DefaultTable.WithHasHeader().WithData(data)
	if p.Plain {
		table = table.WithHeaderStyle(pterm.NewStyle()).WithSeparatorStyle(pterm.NewStyle())
	}
	out, err := table.Srender()
	if err != nil {
		return err
	}
	fmt.Fprintln(p.Out, out)
	return nil
}

// SQL prints a statement as a highlighted markdown code block
func (p *Printer) SQL(query string) error {
	md := "```sql\n" + strings.TrimSpace(query) + "\n```\n"
	if p.Plain {
		fmt.Fprint(p.Out, md)
		return nil
	}

	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(100),
	)
	if err != nil {
		return err
	}
	out, err := r.Render(md)
	if err != nil {
		return err
	}
	fmt.Fprint(p.Out, out)
	return nil
}

// Box prints content under a bordered title
func (p *Printer) Box(title, content string) {
	if p.Plain {
		fmt.Fprintf(p.Out, "%s\n%s\n", title, content)
		return
	}
	box := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(PrimaryColor).
		Padding(0, 1).
		Render(lipgloss.JoinVertical(lipgloss.Left, TitleStyle.Render(title), content))
	fmt.Fprintln(p.Out, box)
}

// Ask confirms message, treating a missing Confirm as a refusal
func (p *Printer) Ask(message string) (bool, error) {
	if p.Confirm == nil {
		return false, nil
	}
	return p.Confirm(message)
}
