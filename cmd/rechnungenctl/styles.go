package main

import "github.com/charmbracelet/lipgloss"

var (
	headerStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("86"))
	subtleStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#4ECDC4"))
	warningStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFE66D"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6B6B"))
	barStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#4F6D7A"))
	titleStyle   = lipgloss.NewStyle().Bold(true).MarginBottom(1)
)

func formatSuccess(msg string) string { return successStyle.Render("✓ " + msg) }
func formatWarning(msg string) string { return warningStyle.Render("! " + msg) }
func formatError(msg string) string   { return errorStyle.Render("✗ " + msg) }
