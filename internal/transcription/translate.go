package transcription

import (
	"context"
	"fmt"
)

const transcribePrompt = "Transcribe this audio recording verbatim. " +
	"Label distinct speakers as Speaker 1, Speaker 2, and so on when more than one voice is present. " +
	"Output only the transcript text with no commentary."

const translatePromptFmt = "Translate the following transcript into %s. " +
	"Preserve speaker labels and paragraph breaks. Output only the translation.\n\n%s"

const summarizePromptFmt = "Summarize the following transcript in %s. " +
	"Structure the summary as: a one-paragraph overview, key points as a bulleted list, " +
	"and any decisions or action items. Output only the summary.\n\n%s"

// Translate renders the assembled transcript into targetLanguage. It is
// only ever invoked on a full transcript, never per segment.
func (c *Client) Translate(ctx context.Context, text, targetLanguage string) (string, error) {
	if text == "" {
		return "", &APIError{Class: ClassInvalidInput, Message: "empty transcript"}
	}
	if targetLanguage == "" {
		return "", &APIError{Class: ClassInvalidInput, Message: "empty target language"}
	}

	return c.generate(ctx, []part{
		{Text: fmt.Sprintf(translatePromptFmt, targetLanguage, text)},
	})
}

// Summarize produces a structured summary of the assembled transcript in
// targetLanguage.
func (c *Client) Summarize(ctx context.Context, text, targetLanguage string) (string, error) {
	if text == "" {
		return "", &APIError{Class: ClassInvalidInput, Message: "empty transcript"}
	}
	if targetLanguage == "" {
		targetLanguage = "the transcript's language"
	}

	return c.generate(ctx, []part{
		{Text: fmt.Sprintf(summarizePromptFmt, targetLanguage, text)},
	})
}
