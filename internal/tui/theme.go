package tui

import "github.com/charmbracelet/lipgloss"

var (
	// Core palette
	Green       = lipgloss.Color("#00FF41")
	BrightGreen = lipgloss.Color("#39FF14")
	MedGreen    = lipgloss.Color("#00C832")
	DarkGreen   = lipgloss.Color("#008F11")
	DimGreen    = lipgloss.Color("#3B7A3B")
	Cyan        = lipgloss.Color("#00D4AA")
	Gold        = lipgloss.Color("#FFD700")
	Red         = lipgloss.Color("#FF4136")

	BannerStyle = lipgloss.NewStyle().
			Foreground(Green).
			Bold(true)

	// Menu
	MenuKeyStyle = lipgloss.NewStyle().
			Foreground(BrightGreen).
			Bold(true)

	PromptStyle = lipgloss.NewStyle().
			Foreground(MedGreen)

	// Answers
	QuestionLabelStyle = lipgloss.NewStyle().
				Foreground(BrightGreen).
				Bold(true)

	AnswerLabelStyle = lipgloss.NewStyle().
				Foreground(Cyan).
				Bold(true)

	SourceStyle = lipgloss.NewStyle().
			Foreground(DarkGreen).
			Italic(true)

	WarningStyle = lipgloss.NewStyle().
			Foreground(Gold)

	ErrorStyle = lipgloss.NewStyle().
			Foreground(Red).
			Bold(true)

	HelpStyle = lipgloss.NewStyle().
			Foreground(DimGreen)

	// Diff lines
	DiffAddStyle = lipgloss.NewStyle().Foreground(Green)
	DiffDelStyle = lipgloss.NewStyle().Foreground(Red)
)
