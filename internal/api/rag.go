package api

import (
	"context"

	apierrors "github.com/diogo/agentchat/internal/errors"
	"github.com/diogo/agentchat/internal/models"
)

// DocumentRequest describes a document-grounded question. Exactly one of
// FilePath (first submission, uploads the document) or AssistantID
// (follow-up against an already-indexed document) must be set; ThreadID
// continues an existing answer thread when known.
type DocumentRequest struct {
	Question    string
	FilePath    string
	AssistantID string
	ThreadID    string
}

// DocumentQAStream submits a document-grounded question to the streaming
// endpoint. The returned stream carries assistant_id/thread_id correlation
// metadata on first use; callers should capture it for follow-ups.
func (c *Client) DocumentQAStream(ctx context.Context, req DocumentRequest) (*Stream, error) {
	if req.Question == "" {
		return nil, apierrors.NewClientError("question cannot be empty", nil)
	}
	if req.FilePath == "" && req.AssistantID == "" {
		return nil, apierrors.NewClientError("document question needs a file or an assistant_id", nil)
	}

	fields := map[string]string{
		"question":     req.Question,
		"assistant_id": req.AssistantID,
		"thread_id":    req.ThreadID,
	}

	resp, err := c.postMultipart(ctx, "document question", models.EndpointRAGStream, fields, "file", req.FilePath)
	if err != nil {
		return nil, err
	}

	return newStream(resp.Body), nil
}
