// Package document parses uploaded files into a DocumentContext: plain
// text extraction, regex-based key fact extraction, and a summary excerpt.
package document

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/finmate-ai/voice-platform/internal/model"
)

// MaxPages caps how many pages of a document are processed per upload.
const MaxPages = 5

// SummaryLength is the length of the summary excerpt in characters.
const SummaryLength = 500

var (
	loanAmountPattern   = regexp.MustCompile(`(?i)(?:loan|amount|principal)[^\d]*([\d,]+(?:\.\d+)?)`)
	interestRatePattern = regexp.MustCompile(`(?i)(?:interest|rate)[^\d]*(\d+(?:\.\d+)?)\s*%`)
	loanTermPattern     = regexp.MustCompile(`(?i)(?:term|period|duration)[^\d]*(\d+)\s*(?:year|yr|month|mo)`)

	xmlTagPattern = regexp.MustCompile(`<[^>]+>`)
)

// AllowedExtensions lists upload file types this processor accepts.
var AllowedExtensions = map[string]bool{
	".pdf":  true,
	".doc":  true,
	".docx": true,
	".csv":  true,
	".txt":  true,
}

// Allowed reports whether the file name has an accepted extension.
func Allowed(fileName string) bool {
	return AllowedExtensions[strings.ToLower(filepath.Ext(fileName))]
}

// Processor turns raw uploads into cached document summaries.
type Processor struct{}

// NewProcessor creates a document processor.
func NewProcessor() *Processor {
	return &Processor{}
}

// Process extracts text from an uploaded file and derives the cached
// DocumentContext. Page text for PDFs arrives pre-extracted at the API
// boundary; this processor handles text-bearing payloads.
func (p *Processor) Process(fileName string, content []byte) (*model.DocumentContext, error) {
	if !Allowed(fileName) {
		return nil, fmt.Errorf("file type not allowed: %s", filepath.Ext(fileName))
	}

	var text string
	switch strings.ToLower(filepath.Ext(fileName)) {
	case ".csv":
		text = csvToText(content)
	default:
		text = string(content)
	}

	text = cleanText(text)
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("no text content in %s", fileName)
	}

	pages := paginate(text)
	totalPages := len(pages)
	processed := totalPages
	if processed > MaxPages {
		processed = MaxPages
		text = strings.Join(pages[:MaxPages], "\n")
	}

	return &model.DocumentContext{
		FileName:        fileName,
		RawText:         text,
		PagesProcessed:  processed,
		TotalPages:      totalPages,
		ExtractedFields: ExtractFields(text),
		SummaryExcerpt:  excerpt(text, SummaryLength),
		UploadedAt:      time.Now(),
	}, nil
}

// ExtractFields pulls key loan facts from document text using fixed
// patterns. Absent facts are simply omitted from the map.
func ExtractFields(text string) map[string]string {
	fields := make(map[string]string)

	if m := loanAmountPattern.FindStringSubmatch(text); m != nil {
		fields["loan_amount"] = strings.ReplaceAll(m[1], ",", "")
	}
	if m := interestRatePattern.FindStringSubmatch(text); m != nil {
		fields["interest_rate"] = m[1] + "%"
	}
	if m := loanTermPattern.FindStringSubmatch(text); m != nil {
		fields["loan_term"] = m[1]
	}

	return fields
}

func cleanText(text string) string {
	text = xmlTagPattern.ReplaceAllString(text, " ")
	return strings.Join(strings.Fields(text), " ")
}

func excerpt(text string, n int) string {
	runes := []rune(text)
	if len(runes) <= n {
		return text
	}
	return string(runes[:n]) + "..."
}

// paginate splits extracted text into page-sized pieces. Uploads arrive
// without page markers, so a fixed character window stands in for pages.
func paginate(text string) []string {
	const pageSize = 3000
	runes := []rune(text)
	if len(runes) == 0 {
		return nil
	}
	var pages []string
	for start := 0; start < len(runes); start += pageSize {
		end := start + pageSize
		if end > len(runes) {
			end = len(runes)
		}
		pages = append(pages, string(runes[start:end]))
	}
	return pages
}

func csvToText(content []byte) string {
	r := csv.NewReader(bytes.NewReader(content))
	r.FieldsPerRecord = -1

	var b strings.Builder
	for {
		record, err := r.Read()
		if err != nil {
			break
		}
		b.WriteString(strings.Join(record, " "))
		b.WriteString("\n")
	}
	return b.String()
}
