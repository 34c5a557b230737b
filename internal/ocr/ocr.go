// Package ocr pulls raw text out of stored document bytes. PDF, DOCX and
// plain-text payloads are handled locally; anything else (scanned images
// without a tesseract sidecar, binaries) yields empty text rather than an
// error, so ingestion never fails on an unsupported format.
package ocr

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"

	"docverify-backend/internal/shared/storage/object"
	"docverify-backend/internal/shared/telemetry"
)

const (
	mimePDF  = "application/pdf"
	mimeDOCX = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
)

// TextSource extracts raw text for a stored object.
type TextSource interface {
	ExtractText(ctx context.Context, storageKey, mimeType, fileName string) (string, error)
}

// StoreSource reads bytes back from an ObjectStore and extracts locally.
type StoreSource struct {
	Store object.ObjectStore
}

// ExtractText loads the object and extracts its text. Unsupported or
// unparseable formats return empty text with no error; only storage IO
// failures are surfaced.
func (s *StoreSource) ExtractText(ctx context.Context, storageKey, mimeType, fileName string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	body, err := s.Store.Open(ctx, storageKey)
	if err != nil {
		return "", fmt.Errorf("extract text key=%s mime=%s: %w", storageKey, mimeType, err)
	}
	defer body.Close()

	raw, err := io.ReadAll(body)
	if err != nil {
		return "", fmt.Errorf("extract text key=%s mime=%s: read: %w", storageKey, mimeType, err)
	}

	return FromBytes(ctx, raw, mimeType, fileName), nil
}

// FromBytes extracts text from an in-memory payload. Formats without a
// local extractor yield an empty string.
func FromBytes(ctx context.Context, data []byte, mimeType string, fileName string) string {
	if err := ctx.Err(); err != nil {
		return ""
	}
	normalized := normalizeMimeType(mimeType, fileName, data)
	switch {
	case normalized == mimePDF:
		text, err := extractPDF(data)
		if err != nil {
			telemetry.Warn("ocr.pdf_parse_failed", map[string]any{"file_name": fileName, "error": err.Error()})
			return ""
		}
		return text
	case normalized == mimeDOCX:
		text, err := extractDOCX(data)
		if err != nil {
			telemetry.Warn("ocr.docx_parse_failed", map[string]any{"file_name": fileName, "error": err.Error()})
			return ""
		}
		return text
	case strings.HasPrefix(normalized, "text/"):
		if !utf8.Valid(data) {
			return ""
		}
		return string(data)
	default:
		return ""
	}
}

func extractPDF(data []byte) (string, error) {
	reader := bytes.NewReader(data)
	pdfReader, err := pdf.NewReader(reader, int64(len(data)))
	if err != nil {
		return "", err
	}
	plain, err := pdfReader.GetPlainText()
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, plain); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func extractDOCX(data []byte) (string, error) {
	if len(data) == 0 {
		return "", fmt.Errorf("empty docx data")
	}
	readerAt := bytes.NewReader(data)
	zr, err := zip.NewReader(readerAt, int64(len(data)))
	if err != nil {
		return "", err
	}

	var docFile *zip.File
	for _, f := range zr.File {
		name := strings.ReplaceAll(f.Name, "\\", "/")
		if name == "word/document.xml" {
			docFile = f
			break
		}
	}
	if docFile == nil {
		return "", fmt.Errorf("document.xml file not found")
	}

	rc, err := docFile.Open()
	if err != nil {
		return "", err
	}
	defer rc.Close()

	raw, err := io.ReadAll(rc)
	if err != nil {
		return "", err
	}

	return stripDocxXML(string(raw)), nil
}

func stripDocxXML(raw string) string {
	decoder := xml.NewDecoder(strings.NewReader(raw))
	var buf strings.Builder
	for {
		tok, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return raw
		}
		switch t := tok.(type) {
		case xml.CharData:
			buf.WriteString(string(t))
		case xml.EndElement:
			if t.Name.Local == "p" || t.Name.Local == "br" {
				if last := buf.Len(); last > 0 {
					buf.WriteString("\n")
				}
			}
		}
	}
	return strings.TrimSpace(buf.String())
}

func normalizeMimeType(mimeType string, fileName string, data []byte) string {
	clean := strings.ToLower(strings.TrimSpace(strings.Split(mimeType, ";")[0]))
	if clean != "application/zip" {
		return clean
	}

	if mapped := mapOOXMLFromZip(data); mapped != "" {
		return mapped
	}

	ext := strings.ToLower(filepath.Ext(fileName))
	if ext == ".docx" {
		return mimeDOCX
	}
	return clean
}

func mapOOXMLFromZip(data []byte) string {
	if len(data) == 0 {
		return ""
	}
	readerAt := bytes.NewReader(data)
	zr, err := zip.NewReader(readerAt, int64(len(data)))
	if err != nil {
		return ""
	}
	for _, f := range zr.File {
		name := strings.ReplaceAll(f.Name, "\\", "/")
		if name == "word/document.xml" {
			return mimeDOCX
		}
	}
	return ""
}
