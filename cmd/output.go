package cmd

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
)

var (
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#27ca3f"))
	labelStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#bababa"))
	warnStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#f9ca24"))
	dimStyle     = lipgloss.NewStyle().Faint(true)
)

// printField prints a "✓ label: value" summary line.
func printField(w io.Writer, label, value string) {
	if quiet {
		return
	}
	fmt.Fprintf(w, "%s %s %s\n", successStyle.Render("✓"), labelStyle.Render(label+":"), value)
}

// printTree prints paths as a tree under a heading.
func printTree(w io.Writer, heading string, paths []string) {
	if quiet || len(paths) == 0 {
		return
	}
	fmt.Fprintln(w, warnStyle.Render(heading))
	for i, p := range paths {
		branch := "├─"
		if i == len(paths)-1 {
			branch = "└─"
		}
		fmt.Fprintf(w, "%s %s\n", branch, dimStyle.Render(p))
	}
}

func printSuccess(w io.Writer, msg string) {
	if !quiet {
		fmt.Fprintln(w, successStyle.Render(msg))
	}
}
