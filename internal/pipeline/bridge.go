package pipeline

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/finmate-ai/voice-platform/pkg/metrics"
)

// translateChunkSize is the per-call character budget of the translation
// collaborator.
const translateChunkSize = 900

// Translate converts text between languages. Same-language calls are the
// identity with no network traffic. Longer text is split at sentence
// boundaries into chunks within the collaborator's budget; a chunk whose
// translation fails passes through untranslated, so callers must tolerate
// partially-translated output.
func (p *Pipeline) Translate(ctx context.Context, text, sourceLang, targetLang string) string {
	if text == "" || sourceLang == targetLang {
		return text
	}

	chunks := splitSentences(text, translateChunkSize)
	out := make([]string, 0, len(chunks))
	for _, chunk := range chunks {
		cctx, cancel := p.callCtx(ctx)
		translated, err := p.speech.Translate(cctx, chunk, sourceLang, targetLang)
		cancel()
		metrics.TranslationChunks.Inc()
		if err != nil || translated == "" {
			metrics.StageFailures.WithLabelValues("bridge").Inc()
			p.logger.Warn("translation degraded, passing chunk through",
				"source", sourceLang,
				"target", targetLang,
				"error", err,
			)
			out = append(out, chunk)
			continue
		}
		out = append(out, translated)
	}
	return strings.Join(out, " ")
}

// sentenceTerminators are the characters a chunk may end after. The danda
// and double danda cover Devanagari-script text.
const sentenceTerminators = ".!?।॥"

// splitSentences cuts text into chunks of at most limit characters,
// breaking only after terminal punctuation. A single sentence longer than
// the limit falls back to a word-boundary cut so no chunk ever exceeds
// the budget.
func splitSentences(text string, limit int) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	if len(text) <= limit {
		return []string{text}
	}

	var chunks []string
	var current strings.Builder
	for _, sentence := range sentences(text) {
		if current.Len() > 0 && current.Len()+1+len(sentence) > limit {
			chunks = append(chunks, current.String())
			current.Reset()
		}
		if len(sentence) > limit {
			// Oversize sentence: flush what we have, then hard-split on
			// word boundaries.
			if current.Len() > 0 {
				chunks = append(chunks, current.String())
				current.Reset()
			}
			chunks = append(chunks, splitWords(sentence, limit)...)
			continue
		}
		if current.Len() > 0 {
			current.WriteByte(' ')
		}
		current.WriteString(sentence)
	}
	if current.Len() > 0 {
		chunks = append(chunks, current.String())
	}
	return chunks
}

// sentences splits text after terminal punctuation, keeping the
// punctuation with its sentence.
func sentences(text string) []string {
	var out []string
	start := 0
	runes := []rune(text)
	for i, r := range runes {
		if strings.ContainsRune(sentenceTerminators, r) {
			s := strings.TrimSpace(string(runes[start : i+1]))
			if s != "" {
				out = append(out, s)
			}
			start = i + 1
		}
	}
	if tail := strings.TrimSpace(string(runes[start:])); tail != "" {
		out = append(out, tail)
	}
	return out
}

// splitWords cuts text into chunks of at most limit bytes on word
// boundaries, falling back to a hard cut for a single over-long word.
// Hard cuts land on rune boundaries so no chunk carries invalid UTF-8.
func splitWords(text string, limit int) []string {
	var chunks []string
	var current strings.Builder
	for _, word := range strings.Fields(text) {
		for len(word) > limit {
			if current.Len() > 0 {
				chunks = append(chunks, current.String())
				current.Reset()
			}
			cut := limit
			for cut > 0 && !utf8.RuneStart(word[cut]) {
				cut--
			}
			if cut == 0 {
				cut = limit
			}
			chunks = append(chunks, word[:cut])
			word = word[cut:]
		}
		if current.Len() > 0 && current.Len()+1+len(word) > limit {
			chunks = append(chunks, current.String())
			current.Reset()
		}
		if current.Len() > 0 {
			current.WriteByte(' ')
		}
		current.WriteString(word)
	}
	if current.Len() > 0 {
		chunks = append(chunks, current.String())
	}
	return chunks
}
