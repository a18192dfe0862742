package storage

import (
	"encoding/json"
	"fmt"
	"html"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gomarkdown/markdown"
	mdhtml "github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"

	"github.com/miyifan/deepchat/model"
	"github.com/miyifan/deepchat/store"
)

// SanitizeFilename replaces characters that are invalid in filenames.
func SanitizeFilename(name string) string {
	for _, bad := range []string{"/", "\\", ":", "*", "?", "\"", "<", ">", "|", " ", "\n", "\r"} {
		name = strings.ReplaceAll(name, bad, "-")
	}
	name = strings.Trim(name, "-.")
	if len(name) > 50 {
		name = name[:50]
	}
	if name == "" {
		name = "conversation"
	}
	return name
}

// GenerateExportPath builds a default export path in the user's Downloads
// directory from the window title and the current time.
func GenerateExportPath(windowTitle, ext string) string {
	homeDir := os.Getenv("HOME")
	if homeDir == "" {
		homeDir = os.Getenv("USERPROFILE")
	}

	filename := fmt.Sprintf("deepchat-%s-%s.%s",
		SanitizeFilename(windowTitle),
		time.Now().Format("20060102-150405"),
		ext)
	return filepath.Join(homeDir, "Downloads", filename)
}

// ExportJSON writes one window to a JSON file at exportPath.
func ExportJSON(w store.Window, exportPath string) error {
	data, err := json.MarshalIndent(w, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal window: %w", err)
	}
	return writeExport(exportPath, data)
}

// ExportHTML renders one window as a standalone HTML page, with message
// contents rendered from markdown.
func ExportHTML(w store.Window, exportPath string) error {
	var b strings.Builder
	b.WriteString("<!DOCTYPE html>\n<html>\n<head>\n<meta charset=\"utf-8\">\n")
	b.WriteString("<title>" + html.EscapeString(w.Title) + "</title>\n")
	b.WriteString(`<style>
body { font-family: sans-serif; max-width: 46rem; margin: 2rem auto; padding: 0 1rem; }
.message { margin: 1.2rem 0; padding: 0.8rem 1rem; border-radius: 6px; }
.user { background: #eef3fb; }
.assistant { background: #f4f4f4; }
.role { font-weight: bold; font-size: 0.8rem; text-transform: uppercase; color: #666; }
.reasoning { border-left: 3px solid #bbb; padding-left: 0.8rem; color: #666; font-style: italic; }
</style>
</head>
<body>
`)
	b.WriteString("<h1>" + html.EscapeString(w.Title) + "</h1>\n")

	for _, msg := range w.Messages {
		if msg.Role == model.RoleSystem {
			continue
		}
		b.WriteString(fmt.Sprintf("<div class=\"message %s\">\n", html.EscapeString(msg.Role)))
		b.WriteString("<div class=\"role\">" + html.EscapeString(msg.Role) + "</div>\n")
		if msg.ReasoningContent != "" {
			b.WriteString("<div class=\"reasoning\">\n")
			b.Write(renderMarkdown(msg.ReasoningContent))
			b.WriteString("</div>\n")
		}
		b.Write(renderMarkdown(msg.Content))
		b.WriteString("</div>\n")
	}

	b.WriteString("</body>\n</html>\n")
	return writeExport(exportPath, []byte(b.String()))
}

func renderMarkdown(content string) []byte {
	p := parser.NewWithExtensions(parser.CommonExtensions | parser.NoEmptyLineBeforeBlock)
	renderer := mdhtml.NewRenderer(mdhtml.RendererOptions{Flags: mdhtml.CommonFlags})
	return markdown.ToHTML([]byte(content), p, renderer)
}

func writeExport(exportPath string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(exportPath), 0700); err != nil {
		return fmt.Errorf("failed to create export directory: %w", err)
	}
	if err := os.WriteFile(exportPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write export file: %w", err)
	}
	return nil
}
