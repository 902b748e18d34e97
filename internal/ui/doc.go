// Package ui provides terminal output for the castscan CLI.
//
// Two styles of output are provided:
//
//   - Printer: "run once and exit" rendering of a finished session as a list
//     of receiver cards, plus error boxes with troubleshooting tips
//   - WatchModel: a Bubble Tea model that runs one session and lists
//     receivers live as they are announced
//
// Example:
//
//	locator := discovery.NewLocator(browser, discovery.WithTimeout(5*time.Second))
//	model := ui.NewWatchModel(ctx, locator, nil)
//	final, err := tea.NewProgram(model).Run()
//
// # Logging Integration
//
// Logging is controlled via the CASTSCAN_LOG_LEVEL environment variable.
// When unset or empty, zap logging is silent so the curated UI output is
// displayed cleanly.
package ui
