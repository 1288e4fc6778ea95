package speech

import (
	"context"
	"fmt"
	"time"

	"eslatma_bot/internal/domain/reminder"
)

// ErrTranscriptionFailed wraps any upstream speech-to-text failure. The
// caller tells the user it could not understand the recording; no reminder is
// created.
var ErrTranscriptionFailed = fmt.Errorf("voice transcription failed")

// ErrExtractionFailed wraps any upstream text-parsing failure.
var ErrExtractionFailed = fmt.Errorf("reminder extraction failed")

// Transcriber converts a voice recording to text given a language hint
// ("uz" or "ru").
type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte, languageHint string) (string, error)
}

// Candidate is one reminder extracted from free text. A zero
// ScheduledTimeUTC means no schedulable time was found and the user must be
// prompted for one — an expected branch, not an error.
type Candidate struct {
	Task             string
	ScheduledTimeUTC time.Time
	Notes            string
	Location         string
	RecurrenceType   reminder.RecurrenceType
	RecurrenceTime   string // HH:MM local wall-clock, recurring candidates only
}

// Extractor turns natural-language text (Uzbek/Russian) into structured
// reminder candidates. It may return an empty list.
type Extractor interface {
	Extract(ctx context.Context, text string, nowUTC time.Time, userTimezone string) ([]Candidate, error)
}
