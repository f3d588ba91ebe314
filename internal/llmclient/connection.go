package llmclient

import (
	"context"
	"strings"
)

const connectionProbe = "Test connection. Respond with 'OK'."

// Probe issues a minimal free-text generation. Errors read as false.
func Probe(ctx context.Context, c Client) bool {
	resp, err := c.Generate(ctx, Request{Prompt: connectionProbe})
	if err != nil || resp == nil {
		return false
	}
	return strings.Contains(resp.Content, "OK")
}
