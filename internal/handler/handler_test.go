package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/finmate-ai/voice-platform/internal/docstore"
	"github.com/finmate-ai/voice-platform/internal/document"
	"github.com/finmate-ai/voice-platform/internal/llm"
	"github.com/finmate-ai/voice-platform/internal/pipeline"
	"github.com/finmate-ai/voice-platform/internal/querylog"
	"github.com/finmate-ai/voice-platform/internal/sarvam"
	"github.com/finmate-ai/voice-platform/internal/session"
	"github.com/finmate-ai/voice-platform/pkg/logger"
)

// fakeSpeech satisfies pipeline.Speech without any network traffic.
type fakeSpeech struct{}

func (fakeSpeech) Transcribe(_ context.Context, _, hint string) (*sarvam.Transcript, error) {
	return &sarvam.Transcript{Text: "what are home loan rates", LanguageCode: hint}, nil
}
func (fakeSpeech) DetectLanguage(context.Context, string) (string, error) { return "en-IN", nil }
func (fakeSpeech) Translate(_ context.Context, text, _, _ string) (string, error) {
	return text, nil
}
func (fakeSpeech) Synthesize(context.Context, string, string) (string, error) {
	return "YXVkaW8=", nil
}

// fakeLLM returns a fixed structured answer.
type fakeLLM struct{ content string }

func (f fakeLLM) Complete(context.Context, *llm.CompletionRequest) (*llm.CompletionResponse, error) {
	return &llm.CompletionResponse{Content: f.content}, nil
}
func (f fakeLLM) CompleteStream(ctx context.Context, req *llm.CompletionRequest, _ llm.StreamCallback) (*llm.CompletionResponse, error) {
	return f.Complete(ctx, req)
}
func (fakeLLM) Name() string     { return "fake" }
func (fakeLLM) Models() []string { return nil }

func newTestPipeline(t *testing.T) *pipeline.Pipeline {
	t.Helper()
	answer := `{"result": "Home loan rates start around 8.5%.", "loan_type": "home", "interest_rate": "8.5%"}`
	return pipeline.New(
		pipeline.Config{ReasoningLanguage: "en-IN", DefaultLanguage: "en-IN"},
		fakeSpeech{}, nil, nil, fakeLLM{content: answer},
		session.NewStore(0),
		logger.NewNop(),
	)
}

func noopQueryLog(t *testing.T) *querylog.Log {
	t.Helper()
	qlog, err := querylog.New(context.Background(), nil, logger.NewNop())
	if err != nil {
		t.Fatalf("querylog.New: %v", err)
	}
	return qlog
}

func TestWhatsAppWebhookRepliesWithTwiML(t *testing.T) {
	t.Parallel()

	h := NewWhatsAppHandler(newTestPipeline(t), noopQueryLog(t), logger.NewNop())

	form := url.Values{}
	form.Set("From", "whatsapp:+919876543210")
	form.Set("Body", "what are home loan rates")
	req := httptest.NewRequest(http.MethodPost, "/webhook/whatsapp", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()

	h.Receive(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "<Response>") || !strings.Contains(body, "<Message>") {
		t.Errorf("reply is not TwiML:\n%s", body)
	}
	if !strings.Contains(body, "8.5%") {
		t.Errorf("reply missing answer text:\n%s", body)
	}
}

func TestWhatsAppWebhookRequiresSender(t *testing.T) {
	t.Parallel()

	h := NewWhatsAppHandler(newTestPipeline(t), noopQueryLog(t), logger.NewNop())

	form := url.Values{}
	form.Set("Body", "hello there friend")
	req := httptest.NewRequest(http.MethodPost, "/webhook/whatsapp", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()

	h.Receive(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400 without a sender", rec.Code)
	}
}

func TestDocumentUploadExtractsFields(t *testing.T) {
	t.Parallel()

	store, err := docstore.Open(docstore.Options{InMemory: true})
	if err != nil {
		t.Fatalf("docstore.Open: %v", err)
	}
	defer store.Close()

	h := NewDocumentsHandler(document.NewProcessor(), store, newTestPipeline(t), logger.NewNop())
	router := chi.NewRouter()
	router.Post("/sessions/{sessionID}/documents", h.Upload)
	router.Get("/sessions/{sessionID}/documents", h.Get)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", "loan-offer.txt")
	if err != nil {
		t.Fatal(err)
	}
	fw.Write([]byte("Sanctioned loan amount of 250000 at an interest rate of 8.5% for a term of 15 years."))
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/sessions/sess-doc/documents", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		Success       bool              `json:"success"`
		ExtractedInfo map[string]string `json:"extracted_info"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if !resp.Success {
		t.Error("expected success")
	}
	if got := resp.ExtractedInfo["interest_rate"]; got != "8.5%" {
		t.Errorf("interest_rate = %q, want %q", got, "8.5%")
	}

	// The cached analysis is readable back.
	getReq := httptest.NewRequest(http.MethodGet, "/sessions/sess-doc/documents", nil)
	getRec := httptest.NewRecorder()
	router.ServeHTTP(getRec, getReq)
	if getRec.Code != http.StatusOK {
		t.Errorf("Get status = %d, want 200", getRec.Code)
	}
}

func TestDocumentUploadRejectsUnknownExtension(t *testing.T) {
	t.Parallel()

	store, err := docstore.Open(docstore.Options{InMemory: true})
	if err != nil {
		t.Fatalf("docstore.Open: %v", err)
	}
	defer store.Close()

	h := NewDocumentsHandler(document.NewProcessor(), store, newTestPipeline(t), logger.NewNop())
	router := chi.NewRouter()
	router.Post("/sessions/{sessionID}/documents", h.Upload)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, _ := mw.CreateFormFile("file", "malware.exe")
	fw.Write([]byte("not a document"))
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/sessions/sess-bad/documents", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnsupportedMediaType {
		t.Errorf("status = %d, want 415", rec.Code)
	}
}

func TestAdvisoryFixedData(t *testing.T) {
	t.Parallel()

	h := NewAdvisoryHandler(noopQueryLog(t), logger.NewNop())

	rec := httptest.NewRecorder()
	h.InterestRates(rec, httptest.NewRequest(http.MethodGet, "/advisory/interest-rates", nil))
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "home") {
		t.Errorf("interest rates: status %d body %s", rec.Code, rec.Body.String())
	}

	rec = httptest.NewRecorder()
	h.FinancialTips(rec, httptest.NewRequest(http.MethodGet, "/advisory/financial-tips", nil))
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "credit score") {
		t.Errorf("financial tips: status %d", rec.Code)
	}
}

func TestRecentQueriesWithoutBrokerIsEmptyList(t *testing.T) {
	t.Parallel()

	h := NewAdvisoryHandler(noopQueryLog(t), logger.NewNop())

	rec := httptest.NewRecorder()
	h.RecentQueries(rec, httptest.NewRequest(http.MethodGet, "/advisory/recent-queries", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"queries":[]`) {
		t.Errorf("expected empty list, got %s", rec.Body.String())
	}
}

func TestHealthEndpoints(t *testing.T) {
	t.Parallel()

	h := NewHealthHandler(nil, func() bool { return true })

	rec := httptest.NewRecorder()
	h.Health(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("health status = %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	h.Ready(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("ready status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "disabled") {
		t.Errorf("ready should report query log disabled without NATS: %s", rec.Body.String())
	}

	rec = httptest.NewRecorder()
	NewHealthHandler(nil, func() bool { return false }).Ready(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("ready status = %d, want 503 when document cache is down", rec.Code)
	}
}
