// ABOUTME: Export functionality for history entries
// ABOUTME: Supports JSONL, TSV, YAML and Markdown export formats
package history

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/rajujutsu/highlight-to-chatgpt/internal/models"
)

// Format names an export format
type Format string

const (
	FormatJSONL    Format = "jsonl"
	FormatTSV      Format = "tsv"
	FormatYAML     Format = "yaml"
	FormatMarkdown Format = "markdown"
)

// ParseFormat accepts a format name or a common file extension
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimPrefix(s, ".")) {
	case "jsonl", "ndjson":
		return FormatJSONL, nil
	case "tsv":
		return FormatTSV, nil
	case "yaml", "yml":
		return FormatYAML, nil
	case "markdown", "md":
		return FormatMarkdown, nil
	}
	return "", fmt.Errorf("unknown export format %q (use jsonl, tsv, yaml or markdown)", s)
}

// ExportData represents the complete exportable data structure
type ExportData struct {
	Version    string                `yaml:"version" json:"version"`
	ExportedAt string                `yaml:"exported_at" json:"exported_at"`
	Tool       string                `yaml:"tool" json:"tool"`
	Query      string                `yaml:"query,omitempty" json:"query,omitempty"`
	Entries    []models.HistoryEntry `yaml:"entries" json:"entries"`
}

// Export collects the entries matching query
func (l *Ledger) Export(ctx context.Context, query string) (*ExportData, error) {
	entries, err := l.Search(ctx, query)
	if err != nil {
		return nil, err
	}
	return &ExportData{
		Version:    "1.0",
		ExportedAt: l.now().UTC().Format(time.RFC3339),
		Tool:       "h2c",
		Query:      query,
		Entries:    entries,
	}, nil
}

// ExportToFile writes the entries matching query to outputPath
func (l *Ledger) ExportToFile(ctx context.Context, outputPath string, format Format, query string) (int, error) {
	data, err := l.Export(ctx, query)
	if err != nil {
		return 0, err
	}

	// Ensure directory exists
	if err := os.MkdirAll(filepath.Dir(outputPath), 0755); err != nil {
		return 0, fmt.Errorf("failed to create output directory: %w", err)
	}

	file, err := os.Create(outputPath) // #nosec G304
	if err != nil {
		return 0, fmt.Errorf("failed to create output file: %w", err)
	}
	defer func() { _ = file.Close() }()

	if err := Write(file, format, data); err != nil {
		return 0, err
	}
	return len(data.Entries), nil
}

// Write encodes data to w in format
func Write(w io.Writer, format Format, data *ExportData) error {
	switch format {
	case FormatJSONL:
		return writeJSONL(w, data.Entries)
	case FormatTSV:
		return writeTSV(w, data.Entries)
	case FormatYAML:
		return writeYAML(w, data)
	case FormatMarkdown:
		return writeMarkdown(w, data)
	}
	return fmt.Errorf("unknown export format %q", format)
}

func writeJSONL(w io.Writer, entries []models.HistoryEntry) error {
	encoder := json.NewEncoder(w)
	for _, e := range entries {
		if err := encoder.Encode(e); err != nil {
			return fmt.Errorf("failed to encode JSON: %w", err)
		}
	}
	return nil
}

func writeTSV(w io.Writer, entries []models.HistoryEntry) error {
	cw := csv.NewWriter(w)
	cw.Comma = '\t'

	if err := cw.Write([]string{"ts", "action", "page_title", "page_url", "selected_text", "prompt"}); err != nil {
		return fmt.Errorf("failed to write TSV header: %w", err)
	}
	for _, e := range entries {
		row := []string{
			e.Timestamp.Format(time.RFC3339),
			e.ActionLabel,
			e.PageTitle,
			e.PageURL,
			e.SelectedText,
			e.Prompt,
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("failed to write TSV row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

func writeYAML(w io.Writer, data *ExportData) error {
	encoder := yaml.NewEncoder(w)
	encoder.SetIndent(2)
	if err := encoder.Encode(data); err != nil {
		return fmt.Errorf("failed to encode YAML: %w", err)
	}
	return encoder.Close()
}

func writeMarkdown(w io.Writer, data *ExportData) error {
	// Write header
	_, _ = fmt.Fprintln(w, "# h2c History Export")
	_, _ = fmt.Fprintln(w)
	_, _ = fmt.Fprintf(w, "Generated: %s\n\n", data.ExportedAt)
	if data.Query != "" {
		_, _ = fmt.Fprintf(w, "Filter: `%s`\n\n", data.Query)
	}

	if len(data.Entries) == 0 {
		_, err := fmt.Fprintln(w, "No history yet.")
		return err
	}

	for _, e := range data.Entries {
		title := e.PageTitle
		if title == "" {
			title = "(no title)"
		}
		label := e.ActionLabel
		if label == "" {
			label = "Ask"
		}

		_, _ = fmt.Fprintf(w, "## %s\n\n", title)
		_, _ = fmt.Fprintf(w, "- **When:** %s\n", e.Timestamp.Local().Format("2006-01-02 15:04"))
		_, _ = fmt.Fprintf(w, "- **Action:** %s\n", label)
		if host := hostOf(e.PageURL); host != "" {
			_, _ = fmt.Fprintf(w, "- **Page:** [%s](%s)\n", host, e.PageURL)
		}
		_, _ = fmt.Fprintln(w)
		_, _ = fmt.Fprintln(w, "**Selected text**")
		_, _ = fmt.Fprintln(w)
		_, _ = fmt.Fprintln(w, quote(e.SelectedText))
		_, _ = fmt.Fprintln(w)
		_, _ = fmt.Fprintln(w, "**Prompt sent**")
		_, _ = fmt.Fprintln(w)
		_, _ = fmt.Fprintln(w, quote(e.Prompt))
		_, _ = fmt.Fprintln(w)
		if _, err := fmt.Fprintln(w, "---"); err != nil {
			return err
		}
		_, _ = fmt.Fprintln(w)
	}
	return nil
}

func hostOf(raw string) string {
	if raw == "" {
		return ""
	}
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	return u.Host
}

func quote(s string) string {
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = "> " + line
	}
	return strings.Join(lines, "\n")
}
