// Package sarvam is an HTTP client for the Sarvam-compatible speech
// collaborator: speech-to-text, language detection, translation, and
// text-to-speech.
package sarvam

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"
)

const (
	sttPath       = "/speech-to-text"
	translatePath = "/translate"
	ttsPath       = "/text-to-speech"

	sttModel = "saarika:v2"
)

// Client calls the speech collaborator with a bounded per-call timeout.
type Client struct {
	baseURL      string
	apiKey       string
	httpClient   *http.Client
	defaultVoice string
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the underlying HTTP client. Used in tests.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithVoice sets the default speaker voice.
func WithVoice(voice string) Option {
	return func(c *Client) { c.defaultVoice = voice }
}

// NewClient creates a speech collaborator client.
func NewClient(baseURL, apiKey string, timeout time.Duration, opts ...Option) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	c := &Client{
		baseURL:      baseURL,
		apiKey:       apiKey,
		httpClient:   &http.Client{Timeout: timeout},
		defaultVoice: "meera",
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Transcript is the result of a speech-to-text call.
type Transcript struct {
	Text         string `json:"transcript"`
	LanguageCode string `json:"language_code"`
}

// Transcribe converts base64-encoded audio into text. The language hint is
// forwarded to the recognizer; the resolved language comes back with the
// transcript.
func (c *Client) Transcribe(ctx context.Context, audioBase64, languageHint string) (*Transcript, error) {
	fields := map[string]string{
		"model":          sttModel,
		"with_timesteps": "false",
	}
	if languageHint != "" {
		fields["language_code"] = languageHint
	}

	var result Transcript
	if err := c.postAudio(ctx, sttPath, audioBase64, fields, &result); err != nil {
		return nil, err
	}
	if result.LanguageCode == "" {
		result.LanguageCode = languageHint
	}
	return &result, nil
}

// DetectLanguage identifies the spoken language of base64-encoded audio.
func (c *Client) DetectLanguage(ctx context.Context, audioBase64 string) (string, error) {
	fields := map[string]string{
		"model":           sttModel,
		"with_timesteps":  "false",
		"detect_language": "true",
	}

	var result Transcript
	if err := c.postAudio(ctx, sttPath, audioBase64, fields, &result); err != nil {
		return "", err
	}
	return result.LanguageCode, nil
}

type translateRequest struct {
	Input               string `json:"input"`
	SourceLanguageCode  string `json:"source_language_code"`
	TargetLanguageCode  string `json:"target_language_code"`
	Mode                string `json:"mode"`
	EnablePreprocessing bool   `json:"enable_preprocessing"`
}

type translateResponse struct {
	TranslatedText string `json:"translated_text"`
}

// Translate converts one chunk of text between languages. Callers are
// responsible for chunking to the collaborator's size limit.
func (c *Client) Translate(ctx context.Context, text, sourceLang, targetLang string) (string, error) {
	req := translateRequest{
		Input:               text,
		SourceLanguageCode:  sourceLang,
		TargetLanguageCode:  targetLang,
		Mode:                "formal",
		EnablePreprocessing: true,
	}

	var resp translateResponse
	if err := c.postJSON(ctx, translatePath, req, &resp); err != nil {
		return "", err
	}
	return resp.TranslatedText, nil
}

type synthesizeRequest struct {
	Inputs              []string `json:"inputs"`
	TargetLanguageCode  string   `json:"target_language_code"`
	Speaker             string   `json:"speaker"`
	EnablePreprocessing bool     `json:"enable_preprocessing"`
	SpeechSampleRate    int      `json:"speech_sample_rate"`
}

type synthesizeResponse struct {
	Audios []string `json:"audios"`
}

// Synthesize converts one chunk of text into base64-encoded audio in the
// given language. Many languages share the default voice.
func (c *Client) Synthesize(ctx context.Context, text, language string) (string, error) {
	req := synthesizeRequest{
		Inputs:              []string{text},
		TargetLanguageCode:  language,
		Speaker:             c.speakerFor(language),
		EnablePreprocessing: true,
		SpeechSampleRate:    22050,
	}

	var resp synthesizeResponse
	if err := c.postJSON(ctx, ttsPath, req, &resp); err != nil {
		return "", err
	}
	if len(resp.Audios) == 0 || resp.Audios[0] == "" {
		return "", fmt.Errorf("synthesis returned no audio")
	}
	return resp.Audios[0], nil
}

// speakerFor maps a language tag to a speaker voice. Every supported
// language currently uses the default voice.
func (c *Client) speakerFor(language string) string {
	switch language {
	case "en-IN", "hi-IN", "ta-IN", "te-IN", "kn-IN", "ml-IN", "mr-IN", "bn-IN", "gu-IN":
		return c.defaultVoice
	}
	return c.defaultVoice
}

func (c *Client) postAudio(ctx context.Context, path, audioBase64 string, fields map[string]string, out any) error {
	audio, err := base64.StdEncoding.DecodeString(audioBase64)
	if err != nil {
		return fmt.Errorf("invalid base64 audio: %w", err)
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			return err
		}
	}
	fw, err := mw.CreateFormFile("file", "audio.wav")
	if err != nil {
		return err
	}
	if _, err := fw.Write(audio); err != nil {
		return err
	}
	if err := mw.Close(); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, &body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("api-subscription-key", c.apiKey)

	return c.do(req, out)
}

func (c *Client) postJSON(ctx context.Context, path string, in, out any) error {
	payload, err := json.Marshal(in)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("api-subscription-key", c.apiKey)

	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 32<<20))
	if err != nil {
		return err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("speech collaborator returned %d", resp.StatusCode)
	}
	return json.Unmarshal(body, out)
}
