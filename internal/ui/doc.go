// Package ui implements an interactive terminal dashboard using bubbletea's Elm architecture.
//
// The TUI provides a read-only monitor for translation tasks:
//  1. [TaskListView] : Browse tasks with live status and progress
//  2. [RecordListView] : Inspect a task's confirmation records
//
// The [Model] implements bubbletea/Elm's standard Init/Update/View pattern. Task data
// refreshes on a fixed tick so the dashboard tracks the sweep without user input.
//
// Keyboard navigation uses vim-style bindings (j/k, enter, esc, q) with contextual
// help displayed via charmbracelet/bubbles/help.
package ui
