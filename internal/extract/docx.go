package extract

import (
	"archive/zip"
	"bytes"
	"fmt"
	"regexp"
	"strings"
)

const (
	docxDefaultPart  = "word/document.xml"
	docxContentTypes = "[Content_Types].xml"
	docxMainType     = "application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"
)

var (
	docxRun = regexp.MustCompile(`<w:t[^>]*>([^<]*)</w:t>`)
	// The main part override may list its attributes in either order.
	docxPartFirst = regexp.MustCompile(`<Override[^>]+PartName="([^"]+)"[^>]+ContentType="` + regexp.QuoteMeta(docxMainType) + `"`)
	docxTypeFirst = regexp.MustCompile(`<Override[^>]+ContentType="` + regexp.QuoteMeta(docxMainType) + `"[^>]+PartName="([^"]+)"`)
)

func readZipPart(zr *zip.Reader, name string) ([]byte, error) {
	for _, f := range zr.File {
		if f.Name != name {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, err
		}
		defer rc.Close()
		var buf bytes.Buffer
		if _, err := buf.ReadFrom(rc); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	}
	return nil, nil
}

func docxMainPart(zr *zip.Reader) string {
	types, err := readZipPart(zr, docxContentTypes)
	if err != nil || types == nil {
		return docxDefaultPart
	}
	for _, re := range []*regexp.Regexp{docxPartFirst, docxTypeFirst} {
		if m := re.FindSubmatch(types); len(m) > 1 {
			return strings.TrimPrefix(string(m[1]), "/")
		}
	}
	return docxDefaultPart
}

// extractDOCX joins every <w:t> run of the main document part with single spaces.
// Runs are matched directly since paragraphs usually carry attributes.
func extractDOCX(content []byte) (string, error) {
	zr, err := zip.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return "", fmt.Errorf("extract DOCX: not a zip: %w", err)
	}
	part := docxMainPart(zr)
	body, err := readZipPart(zr, part)
	if err != nil {
		return "", fmt.Errorf("extract DOCX: read %s: %w", part, err)
	}
	if body == nil {
		return "", fmt.Errorf("extract DOCX: %s not found", part)
	}
	runs := docxRun.FindAllSubmatch(body, -1)
	words := make([]string, 0, len(runs))
	for _, r := range runs {
		if w := strings.TrimSpace(string(r[1])); w != "" {
			words = append(words, w)
		}
	}
	return strings.Join(words, " "), nil
}
