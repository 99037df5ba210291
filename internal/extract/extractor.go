// Package extract turns source documents into plain text for chunking.
package extract

import (
	"errors"
	"fmt"
	"mime"
	"path/filepath"
	"strings"
)

// Format identifies how a document is decoded.
type Format string

const (
	FormatPlain Format = "plain"
	FormatPDF   Format = "pdf"
	FormatDOCX  Format = "docx"
	FormatXLSX  Format = "xlsx"
	FormatODT   Format = "odt"
	FormatRTF   Format = "rtf"
)

// ErrUnsupported is returned for formats that have no decoder.
var ErrUnsupported = errors.New("unsupported document format")

// Extractor extracts plain text from documents.
type Extractor struct{}

// NewExtractor returns a new Extractor.
func NewExtractor() *Extractor {
	return &Extractor{}
}

// FormatForPath picks a format from the file extension. Unknown extensions are plain text.
func FormatForPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf":
		return FormatPDF
	case ".docx":
		return FormatDOCX
	case ".xlsx":
		return FormatXLSX
	case ".odt":
		return FormatODT
	case ".rtf":
		return FormatRTF
	default:
		return FormatPlain
	}
}

// FormatForContentType picks a format from an HTTP Content-Type header.
// Anything that is not a known document type is treated as text.
func FormatForContentType(contentType string) Format {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return FormatPlain
	}
	switch mediaType {
	case "application/pdf":
		return FormatPDF
	case "application/vnd.openxmlformats-officedocument.wordprocessingml.document":
		return FormatDOCX
	case "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet":
		return FormatXLSX
	case "application/vnd.oasis.opendocument.text":
		return FormatODT
	case "application/rtf", "text/rtf":
		return FormatRTF
	default:
		return FormatPlain
	}
}

// ExtractBytes decodes content in the given format.
func (e *Extractor) ExtractBytes(content []byte, format Format) (string, error) {
	switch format {
	case FormatPDF:
		return extractPDF(content)
	case FormatDOCX:
		return extractDOCX(content)
	case FormatXLSX:
		return extractExcel(content)
	case FormatODT, FormatRTF:
		return extractOpenText(content, format)
	case FormatPlain, "":
		return extractPlain(content)
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupported, format)
	}
}
