package pretty_print

import (
	"fmt"
	"os"
)

// PrintMarkdown renders a markdown document through the themed glamour
// renderer and writes it to stdout. Off-TTY the notty style applies, so
// piping output stays clean.
func PrintMarkdown(md string) {
	fmt.Fprint(os.Stdout, RenderMarkdown(md))
}

// RenderMarkdown returns the themed terminal rendering of a markdown
// document, falling back to the raw text if the renderer cannot be built.
func RenderMarkdown(md string) string {
	options := DefaultOptions()

	renderer := options.MarkdownRenderer(options.Theme)
	if renderer == nil {
		return md
	}

	out, err := renderer.Render(md)
	if err != nil {
		return md
	}

	return out
}
