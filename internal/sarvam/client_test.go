package sarvam

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL, "test-key", 5*time.Second)
}

func TestTranscribeSendsMultipartAndParsesResult(t *testing.T) {
	t.Parallel()
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("api-subscription-key"); got != "test-key" {
			t.Errorf("api key header = %q", got)
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Fatalf("not multipart: %v", err)
		}
		if got := r.FormValue("language_code"); got != "hi-IN" {
			t.Errorf("language_code = %q", got)
		}
		if _, _, err := r.FormFile("file"); err != nil {
			t.Errorf("missing audio file part: %v", err)
		}
		json.NewEncoder(w).Encode(map[string]string{
			"transcript":    "नमस्ते",
			"language_code": "hi-IN",
		})
	})

	audio := base64.StdEncoding.EncodeToString([]byte("fake-wav"))
	tr, err := c.Transcribe(context.Background(), audio, "hi-IN")
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if tr.Text != "नमस्ते" || tr.LanguageCode != "hi-IN" {
		t.Errorf("got %+v", tr)
	}
}

func TestTranscribeFallsBackToHintedLanguage(t *testing.T) {
	t.Parallel()
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"transcript": "hello"})
	})

	audio := base64.StdEncoding.EncodeToString([]byte("wav"))
	tr, err := c.Transcribe(context.Background(), audio, "ta-IN")
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if tr.LanguageCode != "ta-IN" {
		t.Errorf("language = %q, want hint ta-IN", tr.LanguageCode)
	}
}

func TestTranslateRoundTrip(t *testing.T) {
	t.Parallel()
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var req map[string]any
		json.NewDecoder(r.Body).Decode(&req)
		if req["source_language_code"] != "hi-IN" || req["target_language_code"] != "en-IN" {
			t.Errorf("language pair = %v -> %v", req["source_language_code"], req["target_language_code"])
		}
		json.NewEncoder(w).Encode(map[string]string{"translated_text": "hello"})
	})

	got, err := c.Translate(context.Background(), "नमस्ते", "hi-IN", "en-IN")
	if err != nil {
		t.Fatalf("Translate: %v", err)
	}
	if got != "hello" {
		t.Errorf("translated = %q", got)
	}
}

func TestSynthesizeReturnsFirstAudio(t *testing.T) {
	t.Parallel()
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var req map[string]any
		json.NewDecoder(r.Body).Decode(&req)
		if req["speaker"] != "meera" {
			t.Errorf("speaker = %v", req["speaker"])
		}
		json.NewEncoder(w).Encode(map[string][]string{"audios": {"QUJD"}})
	})

	got, err := c.Synthesize(context.Background(), "hello", "hi-IN")
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if got != "QUJD" {
		t.Errorf("audio = %q", got)
	}
}

func TestServerErrorSurfacesAsError(t *testing.T) {
	t.Parallel()
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusBadGateway)
	})

	if _, err := c.Translate(context.Background(), "x", "a", "b"); err == nil {
		t.Error("expected error on 502")
	}
}
