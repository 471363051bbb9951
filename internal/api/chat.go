package api

import (
	"context"
	"fmt"
	"io"
	"net/url"

	apierrors "github.com/diogo/agentchat/internal/errors"
	"github.com/diogo/agentchat/internal/models"
)

// Chat sends a plain chat message and returns the raw terminal payload.
func (c *Client) Chat(ctx context.Context, message string) ([]byte, error) {
	if message == "" {
		return nil, apierrors.NewClientError("message cannot be empty", nil)
	}

	form := url.Values{}
	form.Set("message", message)

	return c.postForm(ctx, "chat", models.EndpointChat, form)
}

// ChatStream sends a chat message to the streaming endpoint and returns the
// decoded stream. The caller must drain or close the stream.
func (c *Client) ChatStream(ctx context.Context, message string) (*Stream, error) {
	if message == "" {
		return nil, apierrors.NewClientError("message cannot be empty", nil)
	}

	form := url.Values{}
	form.Set("message", message)

	req, err := newFormRequest(ctx, c.endpoint(models.EndpointChatStream), form)
	if err != nil {
		return nil, err
	}

	resp, err := c.do("chat stream", req)
	if err != nil {
		return nil, err
	}
	if err := checkStatus("chat stream", models.EndpointChatStream, resp); err != nil {
		return nil, err
	}

	return newStream(resp.Body), nil
}

// Search runs a web search for the given query and returns the raw terminal
// payload.
func (c *Client) Search(ctx context.Context, query string) ([]byte, error) {
	if query == "" {
		return nil, apierrors.NewClientError("query cannot be empty", nil)
	}

	payload := struct {
		Q     string `json:"q"`
		Start int    `json:"start"`
	}{Q: query, Start: 1}

	return c.postJSON(ctx, "search", models.EndpointSearch, payload)
}

// ConvertPDF uploads a PDF and returns the raw conversion payload
// (markdown content plus extracted images).
func (c *Client) ConvertPDF(ctx context.Context, filePath string) ([]byte, error) {
	ctx, cancel := c.opContext(ctx)
	defer cancel()

	resp, err := c.postMultipart(ctx, "convert", models.EndpointConvert, nil, "file", filePath)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	return body, nil
}
