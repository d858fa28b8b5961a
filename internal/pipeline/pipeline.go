// Package pipeline implements the five-stage conversational exchange:
// input normalization, language bridging, context retrieval, response
// generation, and output rendering. Each exchange runs the stages in
// strict sequence; only transcription failures abort a request, every
// other stage degrades.
package pipeline

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/finmate-ai/voice-platform/internal/llm"
	"github.com/finmate-ai/voice-platform/internal/model"
	"github.com/finmate-ai/voice-platform/internal/sarvam"
	"github.com/finmate-ai/voice-platform/internal/session"
	"github.com/finmate-ai/voice-platform/pkg/logger"
	"github.com/finmate-ai/voice-platform/pkg/metrics"
)

// ErrTranscriptionFailed is the only pipeline error that aborts a request.
// The caller surfaces it as a user-visible error and runs no later stages.
var ErrTranscriptionFailed = errors.New("transcription failed")

// Greeting is the deterministic reply for one- and two-word inputs. It is
// served without invoking the reasoning collaborator.
const Greeting = "Hello! I'm FinMate, your loan advisory assistant. Ask me about loans, eligibility, interest rates, or financial planning."

// Speech is the speech collaborator surface the pipeline consumes:
// recognition, detection, translation, and synthesis. *sarvam.Client
// satisfies it.
type Speech interface {
	Transcribe(ctx context.Context, audioBase64, languageHint string) (*sarvam.Transcript, error)
	DetectLanguage(ctx context.Context, audioBase64 string) (string, error)
	Translate(ctx context.Context, text, sourceLang, targetLang string) (string, error)
	Synthesize(ctx context.Context, text, language string) (string, error)
}

// Retriever is the RAG assistant surface.
type Retriever interface {
	Query(ctx context.Context, query string) (string, error)
}

// DocumentSource serves the cached per-session document, if any.
type DocumentSource interface {
	Get(sessionID string) (*model.DocumentContext, error)
}

// Config carries the pipeline's tunables.
type Config struct {
	ReasoningLanguage string
	DefaultLanguage   string
	Model             string
	ConfidenceEnabled bool
	CallTimeout       time.Duration
}

// Pipeline owns one exchange at a time per request goroutine. It holds no
// per-request state; the session store is the only shared mutable state.
type Pipeline struct {
	cfg       Config
	speech    Speech
	retriever Retriever
	docs      DocumentSource
	reasoner  llm.Client
	sessions  *session.Store
	logger    *logger.Logger
}

// New wires the pipeline to its collaborators. retriever and docs may be
// nil; retrieval then always yields empty context.
func New(cfg Config, speech Speech, retriever Retriever, docs DocumentSource, reasoner llm.Client, sessions *session.Store, log *logger.Logger) *Pipeline {
	if cfg.ReasoningLanguage == "" {
		cfg.ReasoningLanguage = "en-IN"
	}
	if cfg.DefaultLanguage == "" {
		cfg.DefaultLanguage = cfg.ReasoningLanguage
	}
	if cfg.CallTimeout <= 0 {
		cfg.CallTimeout = 30 * time.Second
	}
	return &Pipeline{
		cfg:       cfg,
		speech:    speech,
		retriever: retriever,
		docs:      docs,
		reasoner:  reasoner,
		sessions:  sessions,
		logger:    log,
	}
}

// Request is one inbound message.
type Request struct {
	SessionID  string
	Channel    string // "websocket" or "whatsapp", metrics label only
	Text       string
	Audio      string // base64; when set, Text is ignored
	Language   string // caller-declared language tag
	AutoDetect bool
	WantAudio  bool
}

// Result is the rendered exchange outcome. Query is the normalized user
// text (the transcript, for voice requests).
type Result struct {
	Text             string
	Query            string
	Language         string
	DetectedLanguage string
	LoanType         string
	AudioSegments    []string
	Confidence       *int
	Timestamp        string
}

// Exchange runs one request through the stage sequence. Only
// ErrTranscriptionFailed is returned; every other failure degrades into
// the result per stage policy.
func (p *Pipeline) Exchange(ctx context.Context, req Request) (*Result, error) {
	// History is captured before the user turn is appended so the prompt
	// does not repeat the current query inside the transcript.
	historyText := p.sessions.HistoryText(req.SessionID)

	norm, err := p.normalize(ctx, req)
	if err != nil {
		metrics.ExchangesTotal.WithLabelValues(req.Channel, "transcription_failed").Inc()
		return nil, err
	}

	res := &Result{
		Query:     norm.Text,
		Language:  norm.Language,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
	if norm.Detected {
		res.DetectedLanguage = norm.Language
	}

	if isShortGreeting(norm.Text) {
		res.Text = p.translateOut(ctx, Greeting, norm.Language)
		p.finish(ctx, req, norm.Language, res)
		metrics.ExchangesTotal.WithLabelValues(req.Channel, "greeting").Inc()
		return res, nil
	}

	query := p.translateIn(ctx, norm.Text, norm.Language)
	contextText := p.retrieve(ctx, req.SessionID, query)
	gen := p.generate(ctx, req.SessionID, query, historyText, contextText)

	answer := RenderChat(gen.Answer)
	res.Text = p.translateOut(ctx, answer, norm.Language)
	res.LoanType = gen.Answer.LoanType
	if p.cfg.ConfidenceEnabled && req.WantAudio {
		c := gen.Confidence
		res.Confidence = &c
	}

	p.finish(ctx, req, norm.Language, res)

	outcome := "ok"
	if gen.Fallback {
		outcome = "fallback"
	}
	metrics.ExchangesTotal.WithLabelValues(req.Channel, outcome).Inc()
	return res, nil
}

// finish appends the bot turn to history and synthesizes audio for voice
// requests.
func (p *Pipeline) finish(ctx context.Context, req Request, language string, res *Result) {
	p.sessions.Append(req.SessionID, model.NewMessage(res.Text, false, language))
	if req.WantAudio {
		res.AudioSegments = p.synthesize(ctx, req.SessionID, res.Text, language)
	}
}

// translateIn brings the user's text into the reasoning language.
func (p *Pipeline) translateIn(ctx context.Context, text, language string) string {
	return p.Translate(ctx, text, language, p.cfg.ReasoningLanguage)
}

// translateOut brings the answer back into the user's language.
func (p *Pipeline) translateOut(ctx context.Context, text, language string) string {
	return p.Translate(ctx, text, p.cfg.ReasoningLanguage, language)
}

// isShortGreeting reports whether the input short-circuits to the fixed
// greeting: one or two words, deterministically.
func isShortGreeting(text string) bool {
	n := len(strings.Fields(text))
	return n >= 1 && n <= 2
}

// callCtx bounds one collaborator call.
func (p *Pipeline) callCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, p.cfg.CallTimeout)
}
