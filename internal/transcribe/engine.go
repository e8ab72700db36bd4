package transcribe

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"
)

// ErrDecode reports a malformed base64/audio payload. Checked with errors.Is.
var ErrDecode = errors.New("transcribe: decode audio")

// Transcription device defaults. Device and precision are the adapter's
// business; the core never sees them.
const (
	defaultDevice      = "cpu"
	defaultComputeType = "int8"
)

// audioFrameSize is the chunk size for binary frames sent to the gateway.
const audioFrameSize = 32 * 1024

// gatewayMessage is the envelope for everything the gateway sends back: zero
// or more Segment messages followed by a single Termination, or an Error.
// Segment texts are pre-spaced by the engine.
type gatewayMessage struct {
	Type  string `json:"type"`
	Text  string `json:"text,omitempty"`
	Error string `json:"error,omitempty"`
}

// Engine is a client for a speech-to-text gateway reachable over a
// websocket. It performs batch transcription: the whole (decoded) audio blob
// is streamed up as binary frames, a Terminate control message closes the
// upload, and the recognized segments come back as JSON messages.
type Engine struct {
	gatewayURL string
	apiKey     string
	model      string
	dialer     *websocket.Dialer
}

// NewEngine builds a gateway client for the given model.
func NewEngine(gatewayURL, apiKey, model string) *Engine {
	return &Engine{
		gatewayURL: gatewayURL,
		apiKey:     apiKey,
		model:      model,
		dialer:     &websocket.Dialer{HandshakeTimeout: 10 * time.Second},
	}
}

// Transcribe decodes the base64 audio blob and returns the concatenation of
// all recognized segments' text, in emission order, with no separator. A
// malformed payload fails with ErrDecode; there are no retries.
func (e *Engine) Transcribe(ctx context.Context, audioB64 string) (string, error) {
	audio, err := base64.StdEncoding.DecodeString(audioB64)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrDecode, err)
	}

	u, err := url.Parse(e.gatewayURL)
	if err != nil {
		return "", fmt.Errorf("parse gateway url %q: %w", e.gatewayURL, err)
	}
	params := u.Query()
	params.Set("model", e.model)
	params.Set("device", defaultDevice)
	params.Set("compute_type", defaultComputeType)
	u.RawQuery = params.Encode()

	var headers map[string][]string
	if e.apiKey != "" {
		headers = map[string][]string{"Authorization": {e.apiKey}}
	}

	conn, resp, err := e.dialer.DialContext(ctx, u.String(), headers)
	if err != nil {
		if resp != nil {
			return "", fmt.Errorf("gateway dial: status=%d: %w", resp.StatusCode, err)
		}
		return "", fmt.Errorf("gateway dial: %w", err)
	}
	defer conn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetReadDeadline(deadline)
		_ = conn.SetWriteDeadline(deadline)
	}

	for off := 0; off < len(audio); off += audioFrameSize {
		end := off + audioFrameSize
		if end > len(audio) {
			end = len(audio)
		}
		if err := conn.WriteMessage(websocket.BinaryMessage, audio[off:end]); err != nil {
			return "", fmt.Errorf("gateway send audio: %w", err)
		}
	}
	if err := conn.WriteJSON(map[string]string{"type": "Terminate"}); err != nil {
		return "", fmt.Errorf("gateway terminate: %w", err)
	}

	var text strings.Builder
	for {
		var msg gatewayMessage
		if err := conn.ReadJSON(&msg); err != nil {
			return "", fmt.Errorf("gateway read: %w", err)
		}
		switch msg.Type {
		case "Segment":
			text.WriteString(msg.Text)
		case "Termination":
			return text.String(), nil
		case "Error":
			return "", fmt.Errorf("gateway error: %s", msg.Error)
		default:
			// ignore unknown message types, the gateway may add informational ones
		}
	}
}
