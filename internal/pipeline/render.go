package pipeline

import (
	"context"
	"fmt"
	"strings"

	"github.com/finmate-ai/voice-platform/internal/model"
	"github.com/finmate-ai/voice-platform/pkg/metrics"
)

const (
	// messagingChunkSize is the store-and-forward delivery size limit.
	messagingChunkSize = 1600

	// synthesisChunkSize is the per-call text budget of the synthesis
	// collaborator.
	synthesisChunkSize = 450
)

// RenderChat concatenates the non-empty structured fields into one
// Markdown answer in fixed field order. An entirely empty answer renders
// as the default apology.
func RenderChat(ans model.StructuredAnswer) string {
	var parts []string
	if ans.Result != "" {
		parts = append(parts, ans.Result)
	}
	for _, f := range []struct{ label, value string }{
		{"Loan Type", ans.LoanType},
		{"Interest Rate", ans.InterestRate},
		{"Eligibility", ans.Eligibility},
		{"Repayment Options", ans.RepaymentOptions},
	} {
		if f.value != "" {
			parts = append(parts, fmt.Sprintf("**%s:** %s", f.label, f.value))
		}
	}
	if ans.AdditionalInfo != "" {
		parts = append(parts, ans.AdditionalInfo)
	}
	if len(parts) == 0 {
		return model.DefaultApology
	}
	return strings.Join(parts, "\n\n")
}

// RenderMessaging re-flows a Markdown answer into plain text and splits
// it into delivery-size chunks. Chunks break on paragraph boundaries
// first, then on word boundaries inside an over-long paragraph. With more
// than one chunk, each is prefixed "(i/N) ".
func RenderMessaging(markdown string) []string {
	text := reflowMarkdown(markdown)
	if text == "" {
		return nil
	}

	var chunks []string
	var current strings.Builder
	for _, para := range strings.Split(text, "\n\n") {
		para = strings.TrimSpace(para)
		if para == "" {
			continue
		}
		pieces := []string{para}
		if len(para) > messagingChunkSize {
			pieces = splitWords(para, messagingChunkSize)
		}
		for _, piece := range pieces {
			if current.Len() > 0 && current.Len()+2+len(piece) > messagingChunkSize {
				chunks = append(chunks, current.String())
				current.Reset()
			}
			if current.Len() > 0 {
				current.WriteString("\n\n")
			}
			current.WriteString(piece)
		}
	}
	if current.Len() > 0 {
		chunks = append(chunks, current.String())
	}

	if len(chunks) > 1 {
		for i := range chunks {
			chunks[i] = fmt.Sprintf("(%d/%d) %s", i+1, len(chunks), chunks[i])
		}
	}
	return chunks
}

// reflowMarkdown approximates Markdown in plain text: heading markers
// become bold single-line labels, list markers become a uniform bullet,
// and double-asterisk bold becomes single-asterisk.
func reflowMarkdown(markdown string) string {
	lines := strings.Split(markdown, "\n")
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(trimmed, "#"):
			label := strings.TrimSpace(strings.TrimLeft(trimmed, "# "))
			if label != "" {
				out = append(out, "*"+label+"*")
			}
		case strings.HasPrefix(trimmed, "- "):
			out = append(out, "• "+strings.TrimPrefix(trimmed, "- "))
		case strings.HasPrefix(trimmed, "* "):
			out = append(out, "• "+strings.TrimPrefix(trimmed, "* "))
		default:
			out = append(out, trimmed)
		}
	}
	text := strings.Join(out, "\n")
	text = strings.ReplaceAll(text, "**", "*")
	return strings.TrimSpace(text)
}

// synthesize converts the answer into base64 audio segments, one per
// synthesis-size chunk, in order. A failed chunk is dropped with a log
// line; callers treat an empty result as no audio.
func (p *Pipeline) synthesize(ctx context.Context, sessionID, text, language string) []string {
	plain := reflowMarkdown(text)
	if plain == "" {
		return nil
	}

	var segments []string
	for _, chunk := range splitSentences(plain, synthesisChunkSize) {
		cctx, cancel := p.callCtx(ctx)
		audio, err := p.speech.Synthesize(cctx, chunk, language)
		cancel()
		metrics.SynthesisChunks.Inc()
		if err != nil {
			metrics.StageFailures.WithLabelValues("synthesize").Inc()
			p.logger.Warn("synthesis failed for chunk",
				"session_id", sessionID,
				"language", language,
				"error", err,
			)
			continue
		}
		segments = append(segments, audio)
	}
	return segments
}
