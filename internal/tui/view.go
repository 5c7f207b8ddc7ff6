package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/felixgeelhaar/oaspractice/internal/domain"
	"github.com/felixgeelhaar/oaspractice/internal/practice"
)

// View implements tea.Model.
func (m Model) View() string {
	if m.quitting {
		return "Progress saved. Bye!\n"
	}

	var b strings.Builder
	b.WriteString(m.renderHeader())
	b.WriteString("\n\n")

	if m.ctrl.Mode() == practice.ModePractice {
		b.WriteString(m.renderPractice())
	} else {
		b.WriteString(m.renderBrowse())
	}

	b.WriteString("\n")
	b.WriteString(m.renderStatus())
	b.WriteString("\n")
	if m.ctrl.Mode() == practice.ModePractice {
		b.WriteString(renderHelp(m.keys.practiceHelp()))
	} else {
		b.WriteString(renderHelp(m.keys.browseHelp()))
	}
	return b.String()
}

func (m Model) renderHeader() string {
	totals := m.progress.Totals()
	stats := statsStyle.Render(fmt.Sprintf("✓ %d completed · %d pts", totals.CompletedCount, totals.TotalPoints))
	return titleStyle.Render("OpenAPI Practice") + "  " + stats
}

func (m Model) renderBrowse() string {
	var b strings.Builder

	topic, difficulty, completed := "all", "all", "shown"
	if m.topicIdx > 0 {
		topic = string(domain.Topics[m.topicIdx-1])
	}
	if m.diffIdx > 0 {
		difficulty = string(domain.Difficulties[m.diffIdx-1])
	}
	if !m.ctrl.ShowCompleted() {
		completed = "hidden"
	}
	b.WriteString(filterStyle.Render(fmt.Sprintf("topic: %s | difficulty: %s | completed: %s", topic, difficulty, completed)))
	b.WriteString("\n\n")

	if m.ctrl.Catalog().Loading() && !m.ctrl.Catalog().Loaded() {
		b.WriteString(mutedStyle.Render("Loading scenarios..."))
		b.WriteString("\n")
		return b.String()
	}

	visible := m.ctrl.Visible()
	if len(visible) == 0 {
		b.WriteString(mutedStyle.Render("No scenarios match the current filters."))
		b.WriteString("\n")
		return b.String()
	}

	for i, s := range visible {
		mark := "[ ]"
		if rec, ok := m.progress.Record(s.ID); ok && rec.Completed {
			mark = doneStyle.Render("[✓]")
		} else if ok && rec.Attempts > 0 {
			mark = warnStyle.Render(fmt.Sprintf("[%d]", rec.BestScore))
		}

		diff := string(s.Difficulty)
		if style, ok := difficultyStyles[diff]; ok {
			diff = style.Render(diff)
		}

		line := fmt.Sprintf("%s %s  %s  %d pts  %s", mark, s.Title, diff, s.Points, mutedStyle.Render(joinTopics(s.Topics)))
		if i == m.cursor {
			line = selectedStyle.Render("> ") + line
		} else {
			line = "  " + line
		}
		b.WriteString(line)
		b.WriteString("\n")
	}
	return b.String()
}

func (m Model) renderPractice() string {
	state := m.ctrl.Editor().State()
	if state.Detail == nil {
		return mutedStyle.Render("Loading scenario...") + "\n"
	}
	d := state.Detail
	width := max(40, m.width-4)

	var b strings.Builder
	b.WriteString(titleStyle.Render(d.Title))
	b.WriteString(fmt.Sprintf("  %s · %d pts · ~%d min\n", d.Difficulty, d.Points, d.EstimatedMinutes))
	b.WriteString(lipgloss.NewStyle().Width(width).Render(strings.TrimSpace(d.Instructions)))
	b.WriteString("\n\n")

	passed := map[string]bool{}
	if state.Result != nil {
		for _, r := range state.Result.Results {
			passed[r.RequirementID] = r.Passed
		}
	}
	for _, req := range d.Requirements {
		mark := "•"
		if ok, seen := passed[req.ID]; seen {
			mark = failStyle.Render("✗")
			if ok {
				mark = doneStyle.Render("✓")
			}
		}
		b.WriteString(fmt.Sprintf("%s %s %s\n", mark, req.Description, mutedStyle.Render(fmt.Sprintf("(%d)", req.Points))))
	}
	b.WriteString("\n")

	b.WriteString(m.editor.View())
	b.WriteString("\n")
	b.WriteString(renderSyntax(state.SyntaxErrors))
	b.WriteString("\n")

	if state.Result != nil {
		b.WriteString(panelStyle.Width(width).Render(renderResult(state.Result)))
		b.WriteString("\n")
	}
	return b.String()
}

func renderSyntax(errs []domain.SyntaxError) string {
	if len(errs) == 0 {
		return doneStyle.Render("Syntax OK")
	}
	e := errs[0]
	return failStyle.Render(fmt.Sprintf("Line %d, column %d: %s", e.Line, e.Column, e.Message))
}

func renderResult(r *domain.ValidationResult) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("Score: %d/%d  (%d/%d requirements)\n", r.Score, r.MaxScore, r.PassedCount(), len(r.Results)))
	b.WriteString(r.Feedback)
	b.WriteString("\n")

	for _, res := range r.Results {
		if res.Passed {
			continue
		}
		b.WriteString(failStyle.Render("✗ "+res.RequirementID) + ": " + res.Message + "\n")
	}
	for _, e := range r.SyntaxErrors {
		b.WriteString(failStyle.Render(fmt.Sprintf("Line %d: %s", e.Line, e.Message)) + "\n")
	}
	for _, w := range r.Warnings {
		b.WriteString(warnStyle.Render("! "+w.Path) + ": " + w.Message + "\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func (m Model) renderStatus() string {
	if m.status == "" {
		return ""
	}
	if m.statusErr {
		return statusStyle.Render(failStyle.Render(m.status))
	}
	return statusStyle.Render(m.status)
}

func joinTopics(topics []domain.Topic) string {
	parts := make([]string, len(topics))
	for i, t := range topics {
		parts[i] = string(t)
	}
	return strings.Join(parts, ", ")
}
