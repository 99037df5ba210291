// Package cli formats answers and corpus status for the command line.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/hyperjump/kokoro/internal/models"
	"github.com/hyperjump/kokoro/pkg/utils"
)

// OutputFormat is the format for command output.
type OutputFormat string

const (
	// OutputText is human-readable text (default).
	OutputText OutputFormat = "text"
	// OutputJSON is structured JSON for machine consumption.
	OutputJSON OutputFormat = "json"
)

// ParseOutputFormat accepts "text", "json" or empty.
func ParseOutputFormat(s string) (OutputFormat, error) {
	switch OutputFormat(s) {
	case "", OutputText:
		return OutputText, nil
	case OutputJSON:
		return OutputJSON, nil
	default:
		return "", fmt.Errorf("unknown output format %q (use text or json)", s)
	}
}

// WriteAnswer writes ans to w. With showContext the retrieved chunks follow the answer in text mode;
// JSON always includes them.
func WriteAnswer(w io.Writer, ans *models.Answer, format OutputFormat, showContext bool) error {
	if format == OutputJSON {
		return writeJSON(w, ans)
	}
	fmt.Fprintln(w, ans.Answer)
	if !showContext {
		return nil
	}
	fmt.Fprintf(w, "\n--- Context (%d chunks, %s) ---\n", len(ans.Context), ans.Elapsed.Round(time.Millisecond))
	for _, c := range ans.Context {
		fmt.Fprintf(w, "[#%d distance %.4f] %s\n", c.Position, c.Distance, utils.Truncate(c.Content, 200))
	}
	return nil
}

// WriteStatus writes the corpus status to w.
func WriteStatus(w io.Writer, st *models.CorpusStatus, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, st)
	}
	fmt.Fprintf(w, "Source:           %s\n", st.Source)
	fmt.Fprintf(w, "Chunks:           %d\n", st.Chunks)
	fmt.Fprintf(w, "Dimensions:       %d\n", st.Dimensions)
	fmt.Fprintf(w, "Embedding model:  %s\n", st.EmbeddingModel)
	if st.GenerationModel != "" {
		fmt.Fprintf(w, "Generation model: %s\n", st.GenerationModel)
	}
	fmt.Fprintf(w, "Build:            %s (%s)\n", st.BuildID, st.BuiltAt.Format(time.RFC3339))
	fmt.Fprintf(w, "Cache key:        %s\n", st.CacheKey)
	if st.ContentSHA256 != "" {
		fmt.Fprintf(w, "Content SHA-256:  %s\n", st.ContentSHA256)
	}
	if st.Stale {
		fmt.Fprintln(w, "Cache is stale:   settings changed since the last build; run kokoro index")
	}
	if st.CacheBytes != nil {
		fmt.Fprintf(w, "Cache size:       %s\n", FormatBytes(*st.CacheBytes))
	}
	return nil
}

// FormatBytes renders n with a binary unit suffix.
func FormatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
