package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/url"

	http "github.com/bogdanfinn/fhttp"

	apierrors "github.com/diogo/agentchat/internal/errors"
	"github.com/diogo/agentchat/internal/models"
)

// Transcribe submits an audio file for speech-to-text. The server echoes
// the effective language tag, which may differ from the requested one.
func (c *Client) Transcribe(ctx context.Context, filePath, languageCode string) (*models.Transcription, error) {
	if languageCode == "" {
		languageCode = "en-IN"
	}

	ctx, cancel := c.opContext(ctx)
	defer cancel()

	fields := map[string]string{"language_code": languageCode}
	resp, err := c.postMultipart(ctx, "transcribe", models.EndpointTranscribe, fields, "file", filePath)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	var result models.Transcription
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, apierrors.NewServerError(resp.StatusCode, models.EndpointTranscribe, "malformed transcription payload")
	}
	if result.LanguageCode == "" {
		result.LanguageCode = languageCode
	}
	return &result, nil
}

// Synthesize converts text to speech. Empty language or speaker lets the
// server auto-detect; the effective values are echoed in response headers.
func (c *Client) Synthesize(ctx context.Context, text, languageCode, speaker string) (*models.Speech, error) {
	if text == "" {
		return nil, apierrors.NewClientError("text cannot be empty", nil)
	}

	// The endpoint takes its parameters in the query string.
	params := url.Values{}
	params.Set("text", text)
	if languageCode != "" {
		params.Set("target_language_code", languageCode)
	}
	if speaker != "" {
		params.Set("speaker", speaker)
	}

	ctx, cancel := c.opContext(ctx)
	defer cancel()

	endpoint := c.endpoint(models.EndpointSpeech) + "?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.do("synthesize", req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if err := checkStatus("synthesize", models.EndpointSpeech, resp); err != nil {
		return nil, err
	}

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read audio: %w", err)
	}
	if len(audio) == 0 {
		return nil, apierrors.NewServerError(resp.StatusCode, models.EndpointSpeech, "empty audio payload")
	}

	return &models.Speech{
		Audio:    audio,
		Language: resp.Header.Get("X-Detected-Language"),
		Speaker:  resp.Header.Get("X-Speaker-Used"),
	}, nil
}

// SupportedLanguages fetches the server's TTS language and speaker catalog.
func (c *Client) SupportedLanguages(ctx context.Context) (*models.Languages, error) {
	body, err := c.get(ctx, "supported languages", models.EndpointLanguages)
	if err != nil {
		return nil, err
	}

	var result models.Languages
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, apierrors.NewServerError(0, models.EndpointLanguages, "malformed languages payload")
	}
	return &result, nil
}
