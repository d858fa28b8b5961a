package session

import (
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/finmate-ai/voice-platform/internal/model"
)

func TestAppendEvictsOldestBeyondCap(t *testing.T) {
	t.Parallel()
	s := NewStore(50)

	for i := 0; i < 60; i++ {
		s.Append("sess", model.NewMessage(fmt.Sprintf("msg-%d", i), true, "en-IN"))
	}

	hist := s.History("sess")
	if len(hist) != 50 {
		t.Fatalf("history length = %d, want 50", len(hist))
	}
	if hist[0].Text != "msg-10" {
		t.Errorf("oldest retained = %q, want msg-10", hist[0].Text)
	}
	if hist[49].Text != "msg-59" {
		t.Errorf("newest retained = %q, want msg-59", hist[49].Text)
	}
	for _, m := range hist {
		for i := 0; i < 10; i++ {
			if m.Text == fmt.Sprintf("msg-%d", i) {
				t.Errorf("evicted message %q still present", m.Text)
			}
		}
	}
}

func TestHistoryTextFormatsTranscript(t *testing.T) {
	t.Parallel()
	s := NewStore(0)
	s.Append("a", model.NewMessage("hello", true, "en-IN"))
	s.Append("a", model.NewMessage("hi there", false, "en-IN"))

	got := s.HistoryText("a")
	want := "User: hello\nFinMate: hi there"
	if got != want {
		t.Errorf("HistoryText = %q, want %q", got, want)
	}
}

func TestLanguageIsSticky(t *testing.T) {
	t.Parallel()
	s := NewStore(0)

	s.SetLanguage("a", "hi-IN", false)
	if got := s.Language("a"); got != "hi-IN" {
		t.Fatalf("Language = %q, want hi-IN", got)
	}

	// Implicit updates do not overwrite the first observed language.
	s.SetLanguage("a", "ta-IN", false)
	if got := s.Language("a"); got != "hi-IN" {
		t.Errorf("implicit update changed language to %q", got)
	}

	// Explicit changes do.
	s.SetLanguage("a", "ta-IN", true)
	if got := s.Language("a"); got != "ta-IN" {
		t.Errorf("explicit update ignored, language = %q", got)
	}
}

func TestHistoryReturnsCopy(t *testing.T) {
	t.Parallel()
	s := NewStore(0)
	s.Append("a", model.NewMessage("original", true, ""))

	hist := s.History("a")
	hist[0].Text = "mutated"

	if got := s.History("a")[0].Text; got != "original" {
		t.Errorf("store history mutated through returned slice: %q", got)
	}
}

func TestConcurrentAppend(t *testing.T) {
	t.Parallel()
	s := NewStore(50)

	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			id := fmt.Sprintf("sess-%d", w%2)
			for i := 0; i < 100; i++ {
				s.Append(id, model.NewMessage(strings.Repeat("x", 5), w%2 == 0, "en-IN"))
			}
		}(w)
	}
	wg.Wait()

	for _, id := range []string{"sess-0", "sess-1"} {
		if n := len(s.History(id)); n != 50 {
			t.Errorf("history(%s) = %d messages, want 50", id, n)
		}
	}
}
