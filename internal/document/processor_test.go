package document

import (
	"strings"
	"testing"
)

func TestExtractFieldsInterestRate(t *testing.T) {
	t.Parallel()
	fields := ExtractFields("This agreement specifies an interest rate of 8.5% per annum.")
	if got := fields["interest_rate"]; got != "8.5%" {
		t.Errorf("interest_rate = %q, want 8.5%%", got)
	}
}

func TestExtractFieldsAll(t *testing.T) {
	t.Parallel()
	text := "Loan amount: 2,50,000. The interest rate is 7.25 % fixed. Repayment term of 15 years."
	fields := ExtractFields(text)

	if got := fields["loan_amount"]; got != "250000" {
		t.Errorf("loan_amount = %q, want 250000", got)
	}
	if got := fields["interest_rate"]; got != "7.25%" {
		t.Errorf("interest_rate = %q, want 7.25%%", got)
	}
	if got := fields["loan_term"]; got != "15" {
		t.Errorf("loan_term = %q, want 15", got)
	}
}

func TestExtractFieldsAbsent(t *testing.T) {
	t.Parallel()
	fields := ExtractFields("Nothing financial in this text at all.")
	if len(fields) != 0 {
		t.Errorf("fields = %v, want empty", fields)
	}
}

func TestProcessBuildsSummaryAndPages(t *testing.T) {
	t.Parallel()
	p := NewProcessor()

	long := strings.Repeat("The quick brown fox jumps over the lazy dog. ", 500)
	doc, err := p.Process("agreement.txt", []byte(long))
	if err != nil {
		t.Fatalf("Process: %v", err)
	}

	if doc.FileName != "agreement.txt" {
		t.Errorf("file name = %q", doc.FileName)
	}
	if doc.TotalPages <= MaxPages {
		t.Fatalf("test document too short to exercise the page cap: %d pages", doc.TotalPages)
	}
	if doc.PagesProcessed != MaxPages {
		t.Errorf("processed %d pages, cap is %d", doc.PagesProcessed, MaxPages)
	}
	if !strings.HasSuffix(doc.SummaryExcerpt, "...") {
		t.Error("long document summary should be truncated with ellipsis")
	}
	if len([]rune(doc.SummaryExcerpt)) != SummaryLength+3 {
		t.Errorf("summary length = %d", len([]rune(doc.SummaryExcerpt)))
	}
}

func TestProcessCSV(t *testing.T) {
	t.Parallel()
	p := NewProcessor()

	csvBody := "loan_type,rate\nHome Loan,interest rate of 8.5%\n"
	doc, err := p.Process("rates.csv", []byte(csvBody))
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if got := doc.ExtractedFields["interest_rate"]; got != "8.5%" {
		t.Errorf("interest_rate from csv = %q", got)
	}
}

func TestProcessRejectsUnknownExtension(t *testing.T) {
	t.Parallel()
	p := NewProcessor()
	if _, err := p.Process("malware.exe", []byte("x")); err == nil {
		t.Error("expected error for disallowed extension")
	}
}

func TestProcessRejectsEmptyContent(t *testing.T) {
	t.Parallel()
	p := NewProcessor()
	if _, err := p.Process("empty.txt", []byte("   ")); err == nil {
		t.Error("expected error for empty document")
	}
}
