package pipeline

import (
	"context"
	"fmt"
	"strings"

	"github.com/finmate-ai/voice-platform/internal/model"
	"github.com/finmate-ai/voice-platform/pkg/metrics"
)

// normalized is the Input Normalizer's output: plain text plus the
// resolved language.
type normalized struct {
	Text     string
	Language string
	Detected bool // language came from auto-detection, not the caller
}

// normalize resolves the request into text and a language tag. Audio is
// transcribed through the speech collaborator; an empty transcript or a
// recognizer error is fatal for the request. Appends the user turn to the
// session history.
func (p *Pipeline) normalize(ctx context.Context, req Request) (*normalized, error) {
	var norm normalized

	if req.Audio != "" {
		n, err := p.transcribe(ctx, req)
		if err != nil {
			metrics.StageFailures.WithLabelValues("normalize").Inc()
			p.logger.Error("transcription failed",
				"session_id", req.SessionID,
				"error", err,
			)
			return nil, fmt.Errorf("%w: %v", ErrTranscriptionFailed, err)
		}
		norm = *n
	} else {
		norm.Text = strings.TrimSpace(req.Text)
		norm.Language = req.Language
		if norm.Language == "" {
			norm.Language = p.sessions.Language(req.SessionID)
		}
		if norm.Language == "" {
			norm.Language = p.cfg.DefaultLanguage
		}
	}

	if norm.Text == "" {
		return nil, fmt.Errorf("%w: empty transcript", ErrTranscriptionFailed)
	}

	p.sessions.SetLanguage(req.SessionID, norm.Language, req.Language != "")
	p.sessions.Append(req.SessionID, model.NewMessage(norm.Text, true, norm.Language))
	return &norm, nil
}

func (p *Pipeline) transcribe(ctx context.Context, req Request) (*normalized, error) {
	hint := req.Language
	detected := false

	if req.AutoDetect {
		cctx, cancel := p.callCtx(ctx)
		lang, err := p.speech.DetectLanguage(cctx, req.Audio)
		cancel()
		switch {
		case err != nil:
			// Detection is best-effort; only a missing transcript is
			// fatal. Proceed with the declared language.
			metrics.StageFailures.WithLabelValues("normalize").Inc()
			p.logger.Warn("language detection failed, using declared language",
				"session_id", req.SessionID,
				"language", hint,
				"error", err,
			)
		case lang != "":
			hint = lang
			detected = true
		}
	}

	cctx, cancel := p.callCtx(ctx)
	defer cancel()
	tr, err := p.speech.Transcribe(cctx, req.Audio, hint)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(tr.Text) == "" {
		return nil, fmt.Errorf("recognizer returned no transcript")
	}

	lang := tr.LanguageCode
	if lang == "" {
		lang = p.cfg.DefaultLanguage
	}
	return &normalized{
		Text:     strings.TrimSpace(tr.Text),
		Language: lang,
		Detected: detected,
	}, nil
}
