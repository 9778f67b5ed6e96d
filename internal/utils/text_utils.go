package utils

import (
	"unicode/utf8"

	"go.uber.org/zap"
)

// CapBytes truncates text to at most maxBytes, backing off to a valid
// UTF-8 boundary. No truncation marker is appended.
func CapBytes(text string, maxBytes int) string {
	if maxBytes <= 0 || len(text) <= maxBytes {
		return text
	}
	truncated := text[:maxBytes]
	for !utf8.ValidString(truncated) && len(truncated) > 0 {
		truncated = truncated[:len(truncated)-1]
	}
	return truncated
}

// SanitizeUTF8 drops invalid UTF-8 sequences from text.
func SanitizeUTF8(text string) string {
	if utf8.ValidString(text) {
		return text
	}
	result := make([]rune, 0, len(text))
	for i, r := range text {
		if r == utf8.RuneError {
			if _, size := utf8.DecodeRuneInString(text[i:]); size == 1 {
				continue
			}
		}
		result = append(result, r)
	}
	return string(result)
}

// TextProcessor truncates and sanitizes text destined for external
// services, logging what it cut.
type TextProcessor struct {
	logger *zap.Logger
}

// NewTextProcessor creates a new TextProcessor.
func NewTextProcessor(logger *zap.Logger) *TextProcessor {
	return &TextProcessor{logger: logger}
}

// TruncateText caps text to maxSize bytes on a UTF-8 boundary and appends
// a truncation marker.
func (tp *TextProcessor) TruncateText(text string, maxSize int) string {
	if maxSize <= 0 || len(text) <= maxSize {
		return text
	}
	truncated := CapBytes(text, maxSize)
	tp.logger.Debug("Text truncated",
		zap.Int("original_size", len(text)),
		zap.Int("truncated_size", len(truncated)),
		zap.Int("max_size", maxSize))
	return truncated + "\n[... Content truncated due to size limits ...]"
}
