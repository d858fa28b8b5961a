package querylog

import (
	"context"
	"testing"

	"github.com/finmate-ai/voice-platform/pkg/logger"
)

func TestNoopWithoutClient(t *testing.T) {
	t.Parallel()

	log, err := New(context.Background(), nil, logger.NewNop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	// Must not panic or error without a broker.
	log.Record(context.Background(), "sess-1", "home loan rates", "home")

	entries, err := log.Recent(context.Background(), 10)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if entries != nil {
		t.Errorf("expected no entries without broker, got %d", len(entries))
	}
}
