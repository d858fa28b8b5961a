package model

// Event names carried on the WebSocket channel.
const (
	EventStatus           = "status"
	EventSendMessage      = "send_message"
	EventAudioMessage     = "audio_message"
	EventGetChatHistory   = "get_chat_history"
	EventResponse         = "response"
	EventAudioResponse    = "audio_response"
	EventDetectedLanguage = "detected_language"
	EventChatHistory      = "chat_history"
	EventError            = "error"
)

// Envelope frames every message on the WebSocket channel.
type Envelope struct {
	Type string `json:"type"`
	Data any    `json:"data,omitempty"`
}

// SendMessagePayload is the inbound text-message event.
type SendMessagePayload struct {
	ID       string `json:"id"`
	Msg      string `json:"msg"`
	Language string `json:"language,omitempty"`
}

// AudioMessagePayload is the inbound voice-message event.
type AudioMessagePayload struct {
	Audio      string `json:"audio"`
	Language   string `json:"language,omitempty"`
	AutoDetect bool   `json:"auto_detect,omitempty"`
}

// ResponsePayload is the outbound answer event for both chat and voice.
type ResponsePayload struct {
	Text          string   `json:"text"`
	Audio         string   `json:"audio,omitempty"`
	AudioSegments []string `json:"audio_segments,omitempty"`
	Language      string   `json:"language"`
	Timestamp     string   `json:"timestamp"`
	Confidence    *int     `json:"confidence,omitempty"`
}

// DetectedLanguagePayload reports the auto-detected spoken language.
type DetectedLanguagePayload struct {
	Language string `json:"language"`
}

// ErrorPayload carries a short user-visible error message. Internal error
// text never travels on it.
type ErrorPayload struct {
	Message string `json:"message"`
}
