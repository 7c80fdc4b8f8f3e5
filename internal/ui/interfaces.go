package ui

// MarkdownRenderer turns markdown into terminal text.
type MarkdownRenderer interface {
	Render(markdown string) (string, error)
}
