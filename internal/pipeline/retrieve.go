package pipeline

import (
	"context"
	"strings"

	"github.com/finmate-ai/voice-platform/pkg/metrics"
)

// retrieve gathers supporting context for the query: the RAG assistant's
// answer first, the session's cached document appended as supplementary
// context. Every failure degrades to empty context; this stage never
// fails a request.
func (p *Pipeline) retrieve(ctx context.Context, sessionID, query string) string {
	var parts []string

	if p.retriever != nil {
		cctx, cancel := p.callCtx(ctx)
		content, err := p.retriever.Query(cctx, query)
		cancel()
		if err != nil {
			metrics.StageFailures.WithLabelValues("retrieve").Inc()
			p.logger.Warn("retrieval unavailable, continuing without context",
				"session_id", sessionID,
				"error", err,
			)
		} else if content != "" {
			parts = append(parts, content)
		}
	}

	if p.docs != nil {
		doc, err := p.docs.Get(sessionID)
		if err == nil && doc != nil {
			parts = append(parts, doc.PromptBlock())
		}
	}

	return strings.Join(parts, "\n\n")
}
