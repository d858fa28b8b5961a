// Package model defines data structures for the conversational pipeline.
package model

import (
	"time"
)

// Session tracks one conversational participant. It is created on first
// contact from a given id and lives for the lifetime of the process.
type Session struct {
	ID                string    `json:"id"`
	PreferredLanguage string    `json:"preferred_language"`
	History           []Message `json:"history"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// Message is one turn in a conversation.
type Message struct {
	Text      string `json:"text"`
	IsUser    bool   `json:"isUser"`
	Timestamp string `json:"timestamp"`
	Language  string `json:"language,omitempty"`
}

// NewMessage builds a message stamped with the current time in ISO-8601.
func NewMessage(text string, isUser bool, language string) Message {
	return Message{
		Text:      text,
		IsUser:    isUser,
		Timestamp: time.Now().Format(time.RFC3339),
		Language:  language,
	}
}

// DocumentContext is the cached summary of the last uploaded document for
// a session. Replaced wholesale on each new upload.
type DocumentContext struct {
	FileName        string            `json:"file_name"`
	RawText         string            `json:"raw_text"`
	TranslatedText  string            `json:"translated_text,omitempty"`
	PagesProcessed  int               `json:"pages_processed"`
	TotalPages      int               `json:"total_pages"`
	ExtractedFields map[string]string `json:"extracted_fields"`
	SummaryExcerpt  string            `json:"summary_excerpt"`
	UploadedAt      time.Time         `json:"uploaded_at"`
}

// PromptBlock renders the document context the way the prompt expects it.
func (d *DocumentContext) PromptBlock() string {
	if d == nil {
		return ""
	}
	block := "--- DOCUMENT ANALYSIS ---\n"
	block += "Document: " + d.FileName + "\n"
	block += "Pages Processed: " + itoa(d.PagesProcessed) + " of " + itoa(d.TotalPages) + "\n\n"
	block += d.SummaryExcerpt + "\n"
	if len(d.ExtractedFields) > 0 {
		block += "\nExtracted Information:\n"
		for _, k := range sortedKeys(d.ExtractedFields) {
			block += "  " + k + ": " + d.ExtractedFields[k] + "\n"
		}
	}
	block += "--- END DOCUMENT ANALYSIS ---"
	return block
}
