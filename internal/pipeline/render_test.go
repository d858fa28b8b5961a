package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/finmate-ai/voice-platform/internal/model"
	"github.com/finmate-ai/voice-platform/internal/session"
	"github.com/finmate-ai/voice-platform/pkg/logger"
)

func TestRenderChatFieldOrder(t *testing.T) {
	t.Parallel()

	ans := model.StructuredAnswer{
		Result:           "Home loans are available from most banks.",
		LoanType:         "home",
		InterestRate:     "8.5%",
		Eligibility:      "Salaried applicants above 21.",
		RepaymentOptions: "Up to 30 years.",
		AdditionalInfo:   "Processing fees vary.",
	}

	got := RenderChat(ans)
	order := []string{
		"Home loans are available",
		"**Loan Type:** home",
		"**Interest Rate:** 8.5%",
		"**Eligibility:**",
		"**Repayment Options:**",
		"Processing fees vary.",
	}
	last := -1
	for _, want := range order {
		idx := strings.Index(got, want)
		if idx < 0 {
			t.Fatalf("rendered answer missing %q:\n%s", want, got)
		}
		if idx < last {
			t.Errorf("%q appears out of order", want)
		}
		last = idx
	}
}

func TestRenderChatSkipsEmptyFields(t *testing.T) {
	t.Parallel()

	got := RenderChat(model.StructuredAnswer{Result: "Just an answer."})
	if got != "Just an answer." {
		t.Errorf("RenderChat = %q, want the bare result", got)
	}
	if strings.Contains(got, "Loan Type") {
		t.Error("empty fields must not render labels")
	}
}

func TestRenderChatEmptyAnswerFallsBack(t *testing.T) {
	t.Parallel()

	if got := RenderChat(model.StructuredAnswer{}); got != model.DefaultApology {
		t.Errorf("RenderChat(empty) = %q, want the apology fallback", got)
	}
}

func TestRenderMessagingChunksLongAnswer(t *testing.T) {
	t.Parallel()

	// Three paragraphs totalling ~5000 characters.
	para := strings.TrimSpace(strings.Repeat("Interest rates depend on tenure and credit score. ", 33))
	markdown := strings.Join([]string{para, para, para}, "\n\n")
	if len(markdown) < 4500 {
		t.Fatalf("test input too short: %d", len(markdown))
	}

	chunks := RenderMessaging(markdown)
	if len(chunks) < 2 {
		t.Fatalf("chunk count = %d, want multiple", len(chunks))
	}
	for i, chunk := range chunks {
		if len(chunk) > messagingChunkSize+16 { // prefix rides on top of the budget
			t.Errorf("chunk %d length %d exceeds delivery size", i, len(chunk))
		}
		want := fmt.Sprintf("(%d/%d) ", i+1, len(chunks))
		if !strings.HasPrefix(chunk, want) {
			t.Errorf("chunk %d missing %q prefix: %q", i, want, chunk[:20])
		}
	}
}

func TestRenderMessagingSingleChunkHasNoPrefix(t *testing.T) {
	t.Parallel()

	chunks := RenderMessaging("A short answer.")
	if len(chunks) != 1 {
		t.Fatalf("chunk count = %d, want 1", len(chunks))
	}
	if strings.HasPrefix(chunks[0], "(") {
		t.Errorf("single chunk must not carry a counter prefix: %q", chunks[0])
	}
}

func TestRenderMessagingReflowsMarkdown(t *testing.T) {
	t.Parallel()

	markdown := "## Repayment\n- EMI monthly\n* Prepayment allowed\n**Total cost** varies."
	chunks := RenderMessaging(markdown)
	if len(chunks) != 1 {
		t.Fatalf("chunk count = %d, want 1", len(chunks))
	}
	got := chunks[0]
	for _, want := range []string{"*Repayment*", "• EMI monthly", "• Prepayment allowed", "*Total cost* varies."} {
		if !strings.Contains(got, want) {
			t.Errorf("reflowed text missing %q:\n%s", want, got)
		}
	}
	if strings.Contains(got, "##") || strings.Contains(got, "**") {
		t.Errorf("Markdown markers survived reflow:\n%s", got)
	}
}

func TestSynthesizeReturnsAllSegmentsInOrder(t *testing.T) {
	t.Parallel()

	speech := &stubSpeech{}
	p := newTestPipeline(speech, &stubLLM{responses: []string{answerJSON}}, nil, nil)

	// Long enough to need several synthesis chunks.
	text := strings.TrimSpace(strings.Repeat("This sentence pads the spoken answer with more words. ", 30))
	segments := p.synthesize(context.Background(), "sess-tts", text, "en-IN")

	if speech.synthesizeCalls < 2 {
		t.Fatalf("synthesis calls = %d, want one per chunk", speech.synthesizeCalls)
	}
	if len(segments) != speech.synthesizeCalls {
		t.Errorf("segments = %d, want every synthesized chunk returned (%d)", len(segments), speech.synthesizeCalls)
	}
}

func TestSynthesizeFailureYieldsNoAudio(t *testing.T) {
	t.Parallel()

	speech := &stubSpeech{synthesizeErr: errors.New("tts down")}
	p := New(
		Config{ReasoningLanguage: "en-IN"},
		speech, nil, nil, &stubLLM{responses: []string{answerJSON}},
		session.NewStore(0),
		logger.NewNop(),
	)

	if segments := p.synthesize(context.Background(), "sess-ttsfail", "Some answer.", "en-IN"); len(segments) != 0 {
		t.Errorf("segments = %d, want none when every chunk fails", len(segments))
	}
}
