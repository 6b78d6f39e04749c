package console

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Theme styles menu entries.
type Theme struct {
	color bool

	Index  lipgloss.Style
	Name   lipgloss.Style
	Detail lipgloss.Style
	Muted  lipgloss.Style
}

// Plain renders text unchanged.
var Plain = Theme{}

// Color is the theme used on terminals.
var Color = Theme{
	color:  true,
	Index:  lipgloss.NewStyle().Foreground(lipgloss.Color("#E5C07B")).Bold(true),
	Name:   lipgloss.NewStyle().Foreground(lipgloss.Color("#61AFEF")),
	Detail: lipgloss.NewStyle().Foreground(lipgloss.Color("#98C379")),
	Muted:  lipgloss.NewStyle().Foreground(lipgloss.Color("#636B78")),
}

func (th Theme) render(s lipgloss.Style, text string) string {
	if !th.color || text == "" {
		return text
	}
	return s.Render(text)
}

// An Item is one menu entry.
type Item struct {
	Name    string
	Details []string // shown after Name, e.g. a bundle ID
}

// A Menu is a numbered list of items the operator picks from by number.
type Menu struct {
	Title string
	Items []Item

	// Default is the 1-based number chosen on an empty answer or at the
	// end of input. Zero means there is no default and an answer is
	// required.
	Default int
}

// Choose prints m and prompts until the operator enters the number of an
// item, returning its 0-based index. Without a default, it returns
// ErrInputExhausted if input ends first.
func (m Menu) Choose(c Console, th Theme) (int, error) {
	if len(m.Items) == 0 {
		return 0, errors.New("console: empty menu")
	}
	c.Print(m.Title)
	for _, line := range m.lines(th) {
		c.Print(line)
	}

	prompt := fmt.Sprintf("Enter choice (1-%d): ", len(m.Items))
	if m.Default > 0 {
		prompt = fmt.Sprintf("Enter choice (1-%d) [%d]: ", len(m.Items), m.Default)
	}
	for {
		s, err := c.Prompt(prompt)
		if errors.Is(err, io.EOF) {
			if m.Default > 0 {
				return m.Default - 1, nil
			}
			return 0, ErrInputExhausted
		}
		if err != nil {
			return 0, err
		}
		if s == "" && m.Default > 0 {
			return m.Default - 1, nil
		}
		n, err := strconv.Atoi(s)
		if err == nil && n >= 1 && n <= len(m.Items) {
			return n - 1, nil
		}
	}
}

// lines formats each item as " [n] name → detail • detail", with numbers
// right-aligned and names padded to a common width.
func (m Menu) lines(th Theme) []string {
	numWidth := len(strconv.Itoa(len(m.Items)))
	var nameWidth int
	for _, it := range m.Items {
		nameWidth = max(nameWidth, lipgloss.Width(m.name(it)))
	}

	lines := make([]string, 0, len(m.Items))
	for i, it := range m.Items {
		var b strings.Builder
		b.WriteString(" ")
		b.WriteString(th.render(th.Muted, "["))
		b.WriteString(th.render(th.Index, fmt.Sprintf("%*d", numWidth, i+1)))
		b.WriteString(th.render(th.Muted, "]"))
		b.WriteString(" ")

		name := m.name(it)
		if i+1 == m.Default {
			name += " (default)"
		}
		if len(it.Details) == 0 {
			b.WriteString(th.render(th.Name, name))
			lines = append(lines, b.String())
			continue
		}
		pad := strings.Repeat(" ", max(0, nameWidth-lipgloss.Width(name)))
		b.WriteString(th.render(th.Name, name+pad))
		b.WriteString(th.render(th.Muted, " → "))
		for j, d := range it.Details {
			if j > 0 {
				b.WriteString(th.render(th.Muted, " • "))
			}
			b.WriteString(th.render(th.Detail, d))
		}
		lines = append(lines, b.String())
	}
	return lines
}

func (m Menu) name(it Item) string {
	if strings.TrimSpace(it.Name) == "" {
		return "(no name)"
	}
	return it.Name
}
