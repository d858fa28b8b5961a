package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/finmate-ai/voice-platform/internal/model"
	"github.com/finmate-ai/voice-platform/internal/pipeline"
	"github.com/finmate-ai/voice-platform/internal/session"
	"github.com/finmate-ai/voice-platform/pkg/logger"
)

type recordedQuery struct {
	SessionID string
	Query     string
	LoanType  string
}

// recordingQueryLog captures Record calls for assertions.
type recordingQueryLog struct {
	mu      sync.Mutex
	entries []recordedQuery
}

func (r *recordingQueryLog) Record(_ context.Context, sessionID, query, loanType string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, recordedQuery{SessionID: sessionID, Query: query, LoanType: loanType})
}

func (r *recordingQueryLog) all() []recordedQuery {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]recordedQuery, len(r.entries))
	copy(out, r.entries)
	return out
}

func dialWS(t *testing.T, h *WSHandler) *websocket.Conn {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(h.Serve))
	t.Cleanup(srv.Close)

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	return conn
}

// readEvent reads envelopes until one of the wanted type arrives.
func readEvent(t *testing.T, conn *websocket.Conn, eventType string) json.RawMessage {
	t.Helper()
	for {
		var env struct {
			Type string          `json:"type"`
			Data json.RawMessage `json:"data"`
		}
		if err := conn.ReadJSON(&env); err != nil {
			t.Fatalf("waiting for %q: %v", eventType, err)
		}
		if env.Type == model.EventError {
			t.Fatalf("waiting for %q, got error event: %s", eventType, env.Data)
		}
		if env.Type == eventType {
			return env.Data
		}
	}
}

func TestWebSocketAudioExchangeRecordsQuery(t *testing.T) {
	t.Parallel()

	sessions := session.NewStore(0)
	answer := `{"result": "Home loan rates start around 8.5%.", "loan_type": "home"}`
	pipe := pipeline.New(
		pipeline.Config{ReasoningLanguage: "en-IN", DefaultLanguage: "en-IN"},
		fakeSpeech{}, nil, nil, fakeLLM{content: answer},
		sessions,
		logger.NewNop(),
	)
	qlog := &recordingQueryLog{}
	conn := dialWS(t, NewWSHandler(pipe, sessions, qlog, logger.NewNop()))

	readEvent(t, conn, model.EventStatus)

	if err := conn.WriteJSON(model.Envelope{
		Type: model.EventAudioMessage,
		Data: model.AudioMessagePayload{Audio: "YXVkaW8=", Language: "en-IN"},
	}); err != nil {
		t.Fatalf("write: %v", err)
	}

	data := readEvent(t, conn, model.EventAudioResponse)
	var resp model.ResponsePayload
	if err := json.Unmarshal(data, &resp); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if !strings.Contains(resp.Text, "8.5%") {
		t.Errorf("response text = %q, want the answer", resp.Text)
	}
	if len(resp.AudioSegments) == 0 {
		t.Error("audio response carries no segments")
	}

	entries := qlog.all()
	if len(entries) != 1 {
		t.Fatalf("recorded queries = %d, want 1 for the voice exchange", len(entries))
	}
	if entries[0].Query != "what are home loan rates" {
		t.Errorf("recorded query = %q, want the transcript", entries[0].Query)
	}
	if entries[0].LoanType != "home" {
		t.Errorf("recorded loan type = %q, want home", entries[0].LoanType)
	}
}

func TestWebSocketTextExchangeRecordsQuery(t *testing.T) {
	t.Parallel()

	sessions := session.NewStore(0)
	pipe := pipeline.New(
		pipeline.Config{ReasoningLanguage: "en-IN", DefaultLanguage: "en-IN"},
		fakeSpeech{}, nil, nil, fakeLLM{content: `{"result": "Yes.", "loan_type": "personal"}`},
		sessions,
		logger.NewNop(),
	)
	qlog := &recordingQueryLog{}
	conn := dialWS(t, NewWSHandler(pipe, sessions, qlog, logger.NewNop()))

	readEvent(t, conn, model.EventStatus)

	if err := conn.WriteJSON(model.Envelope{
		Type: model.EventSendMessage,
		Data: model.SendMessagePayload{Msg: "can I get a personal loan", Language: "en-IN"},
	}); err != nil {
		t.Fatalf("write: %v", err)
	}
	readEvent(t, conn, model.EventResponse)

	entries := qlog.all()
	if len(entries) != 1 {
		t.Fatalf("recorded queries = %d, want 1", len(entries))
	}
	if entries[0].Query != "can I get a personal loan" {
		t.Errorf("recorded query = %q", entries[0].Query)
	}
}
