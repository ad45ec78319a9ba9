// Package mock is the offline text backend. It answers every prompt with a
// fixed reply.
package mock

import (
	"context"
	"strings"

	providertypes "draftflow/pkg/provider/types"
)

// Reply is the canned answer used when no text is configured.
const Reply = "Dear John,\n\n" +
	"Thank you for reaching out regarding the system outage that occurred last Tuesday.\n" +
	"Best regards,\n" +
	"Technical Support Team"

type Client struct {
	text string
}

func New(text string) *Client {
	if strings.TrimSpace(text) == "" {
		text = Reply
	}
	return &Client{text: text}
}

func (c *Client) Health(context.Context) error {
	return nil
}

func (c *Client) Generate(ctx context.Context, _ string) (providertypes.GenerateResult, error) {
	if err := ctx.Err(); err != nil {
		return providertypes.GenerateResult{}, err
	}

	return providertypes.GenerateResult{
		Text:     c.text,
		Metadata: providertypes.GenerateMetadata{Provider: "mock", Model: "mock"},
	}, nil
}
