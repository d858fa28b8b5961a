package middleware

import (
	"errors"
	"regexp"
	"unicode/utf8"
)

var languageTagPattern = regexp.MustCompile(`^[a-z]{2}(-[A-Z]{2})?$`)

// ValidateMessageContent validates inbound message text.
func ValidateMessageContent(content string) error {
	if len(content) == 0 {
		return errors.New("content cannot be empty")
	}
	if len(content) > 100000 { // ~100KB limit
		return errors.New("content exceeds maximum length")
	}
	if !utf8.ValidString(content) {
		return errors.New("content must be valid UTF-8")
	}
	return nil
}

// ValidateSessionID validates a session identifier.
func ValidateSessionID(id string) error {
	if len(id) == 0 {
		return errors.New("session ID cannot be empty")
	}
	if len(id) > 128 {
		return errors.New("session ID exceeds maximum length")
	}
	return nil
}

// ValidateLanguageTag validates a BCP-47-style language tag such as
// "hi-IN". The empty tag is allowed and means "use the session default".
func ValidateLanguageTag(tag string) error {
	if tag == "" {
		return nil
	}
	if !languageTagPattern.MatchString(tag) {
		return errors.New("invalid language tag")
	}
	return nil
}

// ValidateAudioPayload bounds base64 audio size before decoding.
func ValidateAudioPayload(audio string) error {
	if len(audio) == 0 {
		return errors.New("audio payload cannot be empty")
	}
	if len(audio) > 16<<20 { // 16MB of base64
		return errors.New("audio payload exceeds maximum size")
	}
	return nil
}
