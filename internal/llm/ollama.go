package llm

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/ollama/ollama/api"

	"github.com/crteal/shh/internal/chat"
)

// OllamaClient streams chat completions from an Ollama server.
type OllamaClient struct {
	api *api.Client
}

// NewOllamaClient builds a client for the given host, e.g.
// "http://localhost:11434". An empty host falls back to the OLLAMA_HOST
// environment variable and the Ollama defaults.
func NewOllamaClient(host string) (*OllamaClient, error) {
	if host == "" {
		c, err := api.ClientFromEnvironment()
		if err != nil {
			return nil, fmt.Errorf("ollama client from environment: %w", err)
		}
		return &OllamaClient{api: c}, nil
	}
	u, err := url.Parse(host)
	if err != nil {
		return nil, fmt.Errorf("parse ollama host %q: %w", host, err)
	}
	hc := &http.Client{Timeout: 0} // streams run for the length of a reply
	return &OllamaClient{api: api.NewClient(u, hc)}, nil
}

// ChatStream starts a streaming completion over the given messages and
// re-emits each chunk as a fragment, in emission order. On success the final
// chunk carries Done=true and both channels close afterwards; a mid-stream
// failure closes the fragment channel without a terminal fragment and
// reports the cause on the error channel.
func (c *OllamaClient) ChatStream(ctx context.Context, model string, messages []chat.Message) (<-chan chat.Fragment, <-chan error) {
	frags := make(chan chat.Fragment, 16)
	errc := make(chan error, 1)

	req := &api.ChatRequest{
		Model:    model,
		Messages: toAPIMessages(messages),
		Stream:   boolPtr(true),
	}

	go func() {
		defer close(frags)
		defer close(errc)
		err := c.api.Chat(ctx, req, func(resp api.ChatResponse) error {
			select {
			case frags <- chat.Fragment{Content: resp.Message.Content, Done: resp.Done}:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		})
		if err != nil {
			errc <- fmt.Errorf("ollama chat: %w", err)
		}
	}()

	return frags, errc
}

func toAPIMessages(messages []chat.Message) []api.Message {
	out := make([]api.Message, 0, len(messages))
	for _, m := range messages {
		out = append(out, api.Message{Role: string(m.Role), Content: m.Content})
	}
	return out
}

func boolPtr(b bool) *bool { return &b }
