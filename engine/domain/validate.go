package domain

import "strings"

// MaxQuestionLen bounds question size before it reaches the embedding
// service; anything longer is operator error, not a real question.
const MaxQuestionLen = 2000

// ValidateQuestion checks a free-text question before it is embedded.
// Blank questions are rejected here rather than forwarded to the model.
func ValidateQuestion(q string) error {
	if strings.TrimSpace(q) == "" {
		return NewValidationError("question", q, ErrQuestionEmpty)
	}
	if len(q) > MaxQuestionLen {
		return NewValidationError("question", q[:32]+"...", ErrQuestionTooLong)
	}
	return nil
}

// ValidateMessage checks a feed message before indexing. Messages with no
// id or no text cannot produce a usable index record.
func ValidateMessage(m Message) error {
	if m.ID == "" {
		return NewValidationError("id", m.ID, ErrMessageInvalid)
	}
	if strings.TrimSpace(m.Text) == "" {
		return NewValidationError("message", m.ID, ErrMessageInvalid)
	}
	return nil
}
