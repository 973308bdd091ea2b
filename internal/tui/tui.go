// ABOUTME: Program runner for the monitor TUI
// ABOUTME: Owns the bubbletea program around the model
package tui

import (
	tea "github.com/charmbracelet/bubbletea"
)

// Run renders the status feed of the appliance at addr until the user
// quits.
func Run(addr string) error {
	p := tea.NewProgram(NewModel(addr), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
