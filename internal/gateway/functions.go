package gateway

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

// Invoke calls a named server-side function with a JSON body and decodes
// the JSON response into dest. A nil dest discards the response.
func (c *Client) Invoke(ctx context.Context, fn string, body, dest any) error {
	if strings.TrimSpace(fn) == "" {
		return fmt.Errorf("function name is required")
	}
	rel := &url.URL{Path: "/functions/v1/" + url.PathEscape(fn)}
	if err := c.do(ctx, http.MethodPost, rel, body, dest); err != nil {
		return fmt.Errorf("invoke %s: %w", fn, err)
	}
	return nil
}
