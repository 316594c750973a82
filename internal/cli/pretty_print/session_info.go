package pretty_print

import (
	"fmt"
	"os"
	"time"

	"github.com/charmbracelet/lipgloss"
)

// PrintSessionInfo renders the active Teleport session in a bordered box.
func PrintSessionInfo(username, cluster string, validUntil time.Time) {
	options := DefaultOptions()

	until := "unknown"
	if !validUntil.IsZero() {
		until = validUntil.Format(time.RFC1123)
	}

	content := fmt.Sprintf("%s %s\n%s %s\n%s %s",
		boldStyle(options.Theme).Render("User:   "), normalStyle(options.Theme).Render(username),
		boldStyle(options.Theme).Render("Cluster:"), normalStyle(options.Theme).Render(cluster),
		boldStyle(options.Theme).Render("Until:  "), normalStyle(options.Theme).Render(until),
	)

	printBox(content, okColor(options.Theme))
}

// PrintCredentialInfo renders where credentials were materialized and how to
// load them. Values here are identifiers, never secrets.
func PrintCredentialInfo(account, role, region, artifact, sourceHint string) {
	options := DefaultOptions()

	content := fmt.Sprintf("%s %s\n%s %s\n%s %s\n%s %s\n%s %s",
		boldStyle(options.Theme).Render("Account: "), normalStyle(options.Theme).Render(account),
		boldStyle(options.Theme).Render("Role:    "), normalStyle(options.Theme).Render(role),
		boldStyle(options.Theme).Render("Region:  "), normalStyle(options.Theme).Render(region),
		boldStyle(options.Theme).Render("File:    "), normalStyle(options.Theme).Render(artifact),
		boldStyle(options.Theme).Render("Load via:"), italicStyle(options.Theme).Render(sourceHint),
	)

	printBox(content, okColor(options.Theme))
}

func printBox(content string, border lipgloss.Color) {
	boxStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(border).
		Padding(0, 1).
		MarginTop(0).
		MarginBottom(0).
		MarginLeft(2)

	_, _ = fmt.Fprintln(os.Stdout, boxStyle.Render(content))
}
