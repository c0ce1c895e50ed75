// Package ui styles CLI output with lipgloss.
//
// [Palette] holds the shared styles. [PrintProgress] streams pipeline progress updates line by line, and
// [Summary] renders the closing match report, listing songs without a match.
package ui
