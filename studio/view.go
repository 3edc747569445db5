package studio

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

func (m Model) View() string {
	width := m.width
	if width <= 0 {
		width = 100
	}
	header := titleStyle.Render("reel-studio") + mutedStyle.Render("  session "+m.snap.SessionID)
	if m.provider != nil {
		header += mutedStyle.Render("  provider " + string(m.provider.Provider()))
	}

	var body string
	switch m.mode {
	case modeManual:
		body = m.viewManual(width)
	case modeExport:
		body = m.viewExport(width)
	default:
		body = m.viewSession(width)
	}
	return lipgloss.JoinVertical(lipgloss.Left, header, body, m.viewStatus(), m.viewHelp())
}

func (m Model) viewSession(width int) string {
	lines := []string{kv("state", m.snap.State)}
	if idea := m.snap.Idea; idea != nil {
		lines = append(lines,
			"",
			quoteStyle.Render(wrap(idea.Quote, clampInt(width-8, 20, 90))),
			"",
			kv("language", idea.Language),
			kv("search", idea.VisualSearchTerm),
		)
		if idea.Caption != "" {
			lines = append(lines, kv("caption", idea.Caption))
		}
		if idea.Hashtags != "" {
			lines = append(lines, kv("hashtags", idea.Hashtags))
		}
	} else {
		lines = append(lines, "", mutedStyle.Render("No idea yet. Press g to generate or m to write one."))
	}
	lines = append(lines, "")
	if m.snap.StyleName != "" {
		lines = append(lines, kv("style", m.snap.StyleName))
	}
	if bg := m.snap.Background; bg != nil {
		lines = append(lines, kv("background", "pexels #"+bg.SourceVideoID+" ("+bg.SearchTerm+")"))
	}
	switch {
	case m.snap.FinalArtifact != "":
		lines = append(lines, kv("video", okStyle.Render(m.snap.FinalArtifact)))
	case m.missing:
		lines = append(lines, kv("video", errorStyle.Render("missing: render again")))
	}
	if m.busy {
		lines = append(lines, "", m.action+"...", m.bar.ViewAs(m.fraction))
	}
	return panelStyle.Width(clampInt(width-2, 30, 120)).Render(strings.Join(lines, "\n"))
}

func (m Model) viewManual(width int) string {
	lines := []string{titleStyle.Render("Write your own idea"), ""}
	for i, in := range m.inputs {
		label := manualLabel[i]
		if i == m.focus {
			label = "> " + label
		} else {
			label = "  " + label
		}
		lines = append(lines, labelStyle.Render(label), "  "+in.View())
	}
	lines = append(lines, "", mutedStyle.Render("quote and search term are required"))
	return panelStyle.Width(clampInt(width-2, 30, 120)).Render(strings.Join(lines, "\n"))
}

func (m Model) viewExport(width int) string {
	lines := []string{titleStyle.Render("Export video"), "", labelStyle.Render("Destination"), "  " + m.exportIn.View()}
	return panelStyle.Width(clampInt(width-2, 30, 120)).Render(strings.Join(lines, "\n"))
}

func (m Model) viewStatus() string {
	if m.err != nil {
		return errorStyle.Render("error: " + m.err.Error())
	}
	if m.status != "" {
		return okStyle.Render(m.status)
	}
	return ""
}

func (m Model) viewHelp() string {
	switch m.mode {
	case modeManual:
		return mutedStyle.Render("tab/up/down: move | enter: next/save | esc: cancel")
	case modeExport:
		return mutedStyle.Render("enter: export | esc: cancel")
	}
	if m.busy {
		return mutedStyle.Render("working... q: quit")
	}
	return mutedStyle.Render("g: generate | m: manual idea | r: render | s: swap background | c: cycle style | e: export | p: publish | tab: provider | q: quit")
}

func kv(k, v string) string {
	return labelStyle.Render(k+":") + " " + v
}

// wrap breaks s on spaces so no line exceeds width runes
func wrap(s string, width int) string {
	var out []string
	line := ""
	for _, w := range strings.Fields(s) {
		switch {
		case line == "":
			line = w
		case len([]rune(line))+1+len([]rune(w)) > width:
			out = append(out, line)
			line = w
		default:
			line += " " + w
		}
	}
	if line != "" {
		out = append(out, line)
	}
	return strings.Join(out, "\n")
}
