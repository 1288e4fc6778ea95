// internal/infra/openai/transcriber.go
package openai

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"eslatma_bot/internal/domain/speech"

	openai "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

// minTranscriptLength filters out noise-only recordings.
const minTranscriptLength = 3

const transcribeTimeout = 30 * time.Second

// Transcriber implements speech.Transcriber with the OpenAI Whisper API.
// Whisper handles Uzbek and Russian; the language hint narrows decoding.
type Transcriber struct {
	client *openai.Client
	model  openai.AudioModel
}

// NewTranscriber returns a Transcriber. With an empty API key every call
// fails with ErrTranscriptionFailed, which callers surface as "couldn't
// understand".
func NewTranscriber(apiKey string) *Transcriber {
	if apiKey == "" {
		return &Transcriber{}
	}
	client := openai.NewClient(option.WithAPIKey(apiKey))
	return &Transcriber{
		client: &client,
		model:  openai.AudioModelWhisper1,
	}
}

func (t *Transcriber) Transcribe(ctx context.Context, audio []byte, languageHint string) (string, error) {
	if t.client == nil {
		return "", fmt.Errorf("%w: transcription client not configured", speech.ErrTranscriptionFailed)
	}
	if len(audio) == 0 {
		return "", fmt.Errorf("%w: empty recording", speech.ErrTranscriptionFailed)
	}

	ctx, cancel := context.WithTimeout(ctx, transcribeTimeout)
	defer cancel()

	params := openai.AudioTranscriptionNewParams{
		Model: t.model,
		File:  openai.File(bytes.NewReader(audio), "voice.ogg", "audio/ogg"),
	}
	if languageHint != "" {
		params.Language = openai.String(languageHint)
	}

	resp, err := t.client.Audio.Transcriptions.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("%w: %v", speech.ErrTranscriptionFailed, err)
	}

	text := strings.TrimSpace(resp.Text)
	if len([]rune(text)) < minTranscriptLength {
		return "", fmt.Errorf("%w: transcript too short (%q)", speech.ErrTranscriptionFailed, text)
	}
	return text, nil
}
