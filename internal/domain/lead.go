package domain

import (
	"fmt"
	"time"
)

// Defaults applied when the model records a lead without a name or notes.
const (
	DefaultLeadName  = "Name not provided"
	DefaultLeadNotes = "not provided"
)

// Lead is a visitor who left contact details.
type Lead struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
	Notes string `json:"notes,omitempty"`
}

// WithDefaults fills in the placeholder name and notes.
func (l Lead) WithDefaults() Lead {
	if l.Name == "" {
		l.Name = DefaultLeadName
	}
	if l.Notes == "" {
		l.Notes = DefaultLeadNotes
	}
	return l
}

// Summary renders the lead as a one-line notification.
func (l Lead) Summary() string {
	l = l.WithDefaults()
	return fmt.Sprintf("🎯 LEAD: %s (%s) - %s", l.Name, l.Email, l.Notes)
}

// UnknownQuestion is a visitor question the twin could not answer from its
// persona context.
type UnknownQuestion struct {
	Timestamp time.Time `json:"timestamp"`
	Question  string    `json:"question"`
}

// Summary renders the question as a one-line notification.
func (q UnknownQuestion) Summary() string {
	return "❓ UNKNOWN QUESTION: " + q.Question
}
