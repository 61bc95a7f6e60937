package study

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/lipgloss"

	"github.com/kokistudios/cardbox/internal/deck"
	"github.com/kokistudios/cardbox/internal/ui"
)

var (
	titleStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#FFFFFF"))
	cursorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6B6B")).Bold(true)
	cardStyle     = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("#444444")).Padding(0, 1)
	activeStyle   = cardStyle.BorderForeground(lipgloss.Color("#FF6B6B"))
	toggleOn      = lipgloss.NewStyle().Foreground(lipgloss.Color("#4ECDC4")).Bold(true)
	toggleOff     = lipgloss.NewStyle().Foreground(lipgloss.Color("#666666")).Strikethrough(true)
	toastStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#000000")).Background(lipgloss.Color("#FFE66D")).Padding(0, 1)
	statusErrText = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6B6B"))
)

func (m Model) View() string {
	var b strings.Builder

	counts := m.state.Counts()
	b.WriteString(titleStyle.Render(m.state.Title))
	b.WriteString(ui.Dim(fmt.Sprintf("  %d of %d cards", counts.Visible, counts.Total)))
	b.WriteString("\n\n")

	switch m.mode {
	case modeEdit:
		b.WriteString(m.editView())
	case modePrompt:
		b.WriteString(m.promptLabel() + "\n")
		b.WriteString(m.input.View())
		b.WriteString("\n")
	default:
		b.WriteString(m.listView())
	}

	b.WriteString("\n")
	b.WriteString(m.filterView(counts))
	if toasts := m.toastView(); toasts != "" {
		b.WriteString("\n")
		b.WriteString(toasts)
	}
	if m.status != "" {
		b.WriteString("\n")
		if m.statusErr {
			b.WriteString(statusErrText.Render(m.status))
		} else {
			b.WriteString(ui.Dim(m.status))
		}
	}
	b.WriteString("\n\n")
	b.WriteString(m.help.View(m.helpKeys()))
	return b.String()
}

func (m Model) helpKeys() help.KeyMap {
	switch m.mode {
	case modeEdit:
		return editKeys{m.keys}
	case modeTags:
		return tagKeys{m.keys}
	case modePrompt:
		return promptKeys{m.keys}
	default:
		return browseKeys{m.keys}
	}
}

func (m Model) listView() string {
	visible := m.state.Visible()
	if len(visible) == 0 {
		if m.state.Len() == 0 {
			return ui.Dim("No cards yet. Press a to add one.") + "\n"
		}
		return ui.Dim("No cards match the filters. Press A to show all.") + "\n"
	}

	var b strings.Builder
	for i, c := range visible {
		marker := "  "
		if i == m.cursor {
			marker = cursorStyle.Render("> ")
		}
		side, text := "Q", c.Front
		if m.flipped[c.ID] {
			side, text = "A", c.Back
		}
		if i == m.cursor {
			b.WriteString(marker + ui.Category(string(c.Category)) + " " + ui.Dim(side) + "\n")
			b.WriteString(activeStyle.Width(m.cardWidth()).Render(m.render(text)))
			b.WriteString("\n")
			continue
		}
		fmt.Fprintf(&b, "%s%s %s %s\n", marker, ui.Category(string(c.Category)), ui.Dim(side), ui.Cell(text, max(m.width-16, 10)))
	}
	return b.String()
}

func (m Model) cardWidth() int {
	return max(m.width-4, 20)
}

// render draws card text as markdown, memoized by width and content.
func (m Model) render(text string) string {
	if strings.TrimSpace(text) == "" {
		return ui.Dim("(empty)")
	}
	key := fmt.Sprintf("%d\x00%s", m.cardWidth(), text)
	if out, ok := m.rendered[key]; ok {
		return out
	}
	out := strings.TrimRight(ui.RenderMarkdown(text, m.cardWidth()-4, m.opts.Markdown), "\n")
	m.rendered[key] = out
	return out
}

func (m Model) editView() string {
	var b strings.Builder
	front, back := "Front", "Back"
	if m.editBack {
		back = cursorStyle.Render(back)
	} else {
		front = cursorStyle.Render(front)
	}
	if c, ok := m.state.Find(m.editID); ok {
		b.WriteString(ui.Category(string(c.Category)) + "\n")
	}
	b.WriteString(front + "\n")
	b.WriteString(m.front.View())
	b.WriteString("\n" + back + "\n")
	b.WriteString(m.back.View())
	b.WriteString("\n")
	return b.String()
}

func (m Model) filterView(counts deck.Counts) string {
	var parts []string
	for _, c := range counts.Categories {
		parts = append(parts, toggle(fmt.Sprintf("%s %d", c.Category, c.Count), c.Selected, false))
	}
	line := strings.Join(parts, "  ")

	if len(counts.Tags) == 0 {
		return line
	}
	parts = parts[:0]
	for i, t := range counts.Tags {
		focused := m.mode == modeTags && i == m.tagCursor
		parts = append(parts, toggle(fmt.Sprintf("%s %d", t.Tag, t.Count), t.Selected, focused))
	}
	return line + "\n" + strings.Join(parts, "  ")
}

func toggle(label string, on, focused bool) string {
	style := toggleOff
	if on {
		style = toggleOn
	}
	if focused {
		style = style.Underline(true)
		label = "[" + label + "]"
	}
	return style.Render(label)
}

func (m Model) toastView() string {
	pending := m.state.Pending()
	if len(pending) == 0 {
		return ""
	}
	now := m.opts.Now()
	var lines []string
	for _, d := range pending {
		left := max(d.Expires.Sub(now).Round(time.Second), 0)
		lines = append(lines, toastStyle.Render(fmt.Sprintf("Deleted %q  u undo  x dismiss  %s", ui.Cell(d.Card.Front, 24), left)))
	}
	return strings.Join(lines, "\n")
}
