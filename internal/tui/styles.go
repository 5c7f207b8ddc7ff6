package tui

import "github.com/charmbracelet/lipgloss"

var (
	titleStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39"))
	statsStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	filterStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	selectedStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("255")).Background(lipgloss.Color("238"))
	doneStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	failStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("203"))
	warnStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	mutedStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	statusStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("252")).Background(lipgloss.Color("236")).Padding(0, 1)
	helpStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	helpKeyStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("250"))
	panelStyle    = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
)

var difficultyStyles = map[string]lipgloss.Style{
	"beginner":     lipgloss.NewStyle().Foreground(lipgloss.Color("42")),
	"intermediate": lipgloss.NewStyle().Foreground(lipgloss.Color("214")),
	"advanced":     lipgloss.NewStyle().Foreground(lipgloss.Color("203")),
}
