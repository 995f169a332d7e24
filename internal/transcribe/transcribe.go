// Package transcribe converts voice notes to text via OpenAI's Whisper API.
package transcribe

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// Compile-time interface check
var _ Transcriber = (*Whisper)(nil)

// Transcriber converts audio data to text.
type Transcriber interface {
	// Transcribe converts the given audio bytes to text. The MIME type
	// guides file naming for the upstream API.
	Transcribe(ctx context.Context, audio []byte, mimeType string) (string, error)
}

// TranscriptionService defines the interface for making transcription API calls.
// This abstraction enables testing without calling the real OpenAI API.
type TranscriptionService interface {
	New(ctx context.Context, params openai.AudioTranscriptionNewParams, opts ...option.RequestOption) (*openai.Transcription, error)
}

// Whisper implements the transcription service using OpenAI's Whisper API.
type Whisper struct {
	transcriptions TranscriptionService
	model          openai.AudioModel
	language       string
}

// NewWhisper creates a new Whisper transcription service. The language
// hint improves accuracy for short voice notes.
func NewWhisper(apiKey, model string) *Whisper {
	client := openai.NewClient(option.WithAPIKey(apiKey))
	return &Whisper{
		transcriptions: client.Audio.Transcriptions,
		model:          openai.AudioModel(model),
		language:       "fr",
	}
}

// Transcribe sends the audio to the Whisper API and returns the text.
func (w *Whisper) Transcribe(ctx context.Context, audio []byte, mimeType string) (string, error) {
	if len(audio) == 0 {
		return "", fmt.Errorf("transcription failed: empty audio")
	}

	resp, err := w.transcriptions.New(ctx, openai.AudioTranscriptionNewParams{
		File:     openai.FileParam(bytes.NewReader(audio), fileName(mimeType), mimeType),
		Model:    openai.F(w.model),
		Language: openai.F(w.language),
	})
	if err != nil {
		return "", fmt.Errorf("transcription failed: %w", err)
	}

	text := strings.TrimSpace(resp.Text)
	if text == "" {
		return "", fmt.Errorf("transcription failed: no text returned")
	}

	return text, nil
}

// fileName maps a MIME type to a plausible file name for the upload.
// WhatsApp voice notes arrive as audio/ogg (opus codec).
func fileName(mimeType string) string {
	switch {
	case strings.HasPrefix(mimeType, "audio/ogg"):
		return "voice.ogg"
	case strings.HasPrefix(mimeType, "audio/mpeg"):
		return "voice.mp3"
	case strings.HasPrefix(mimeType, "audio/mp4"), strings.HasPrefix(mimeType, "audio/m4a"):
		return "voice.m4a"
	default:
		return "voice.ogg"
	}
}
