package api

import (
	"context"

	"github.com/tidwall/gjson"

	"github.com/diogo/agentchat/internal/models"
)

// AuthStatus reports whether the backend recognizes the current session
// cookie (Google-services access server-side).
func (c *Client) AuthStatus(ctx context.Context) (bool, error) {
	body, err := c.get(ctx, "auth status", models.EndpointAuthStatus)
	if err != nil {
		return false, err
	}
	return gjson.GetBytes(body, "authenticated").Bool(), nil
}
