package extract

import (
	"fmt"
	"strings"

	"github.com/lu4p/cat"
)

// extractOpenText handles ODT and RTF, which cat detects from the content itself.
func extractOpenText(content []byte, format Format) (string, error) {
	text, err := cat.FromBytes(content)
	if err != nil {
		return "", fmt.Errorf("extract %s: %w", format, err)
	}
	return strings.TrimSpace(text), nil
}
