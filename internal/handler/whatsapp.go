package handler

import (
	"encoding/xml"
	"net/http"

	"github.com/finmate-ai/voice-platform/internal/middleware"
	"github.com/finmate-ai/voice-platform/internal/pipeline"
	"github.com/finmate-ai/voice-platform/pkg/logger"
)

// twiml is the store-and-forward webhook reply: one <Message> element per
// delivery chunk.
type twiml struct {
	XMLName  xml.Name `xml:"Response"`
	Messages []string `xml:"Message"`
}

// WhatsAppHandler serves the store-and-forward messaging webhook.
type WhatsAppHandler struct {
	pipe   *pipeline.Pipeline
	qlog   QueryRecorder
	logger *logger.Logger
}

// NewWhatsAppHandler creates the messaging webhook handler.
func NewWhatsAppHandler(pipe *pipeline.Pipeline, qlog QueryRecorder, log *logger.Logger) *WhatsAppHandler {
	return &WhatsAppHandler{pipe: pipe, qlog: qlog, logger: log}
}

// Receive handles POST /webhook/whatsapp. The sender address is the
// session id, so a sender keeps one conversation across webhooks.
func (h *WhatsAppHandler) Receive(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "malformed form", http.StatusBadRequest)
		return
	}

	from := r.FormValue("From")
	body := r.FormValue("Body")
	if from == "" {
		http.Error(w, "missing sender", http.StatusBadRequest)
		return
	}
	if err := middleware.ValidateMessageContent(body); err != nil {
		h.reply(w, []string{"Please send a text message to get started."})
		return
	}

	res, err := h.pipe.Exchange(r.Context(), pipeline.Request{
		SessionID: from,
		Channel:   "whatsapp",
		Text:      body,
	})
	if err != nil {
		h.logger.Error("whatsapp exchange failed", "session_id", from, "error", err)
		h.reply(w, []string{"Something went wrong, please try again."})
		return
	}

	h.qlog.Record(r.Context(), from, body, res.LoanType)

	chunks := pipeline.RenderMessaging(res.Text)
	if len(chunks) == 0 {
		chunks = []string{res.Text}
	}
	h.reply(w, chunks)
}

func (h *WhatsAppHandler) reply(w http.ResponseWriter, messages []string) {
	w.Header().Set("Content-Type", "application/xml")
	w.Write([]byte(xml.Header))
	if err := xml.NewEncoder(w).Encode(twiml{Messages: messages}); err != nil {
		h.logger.Error("failed to encode webhook reply", "error", err)
	}
}
