package chat

import "context"

// Fragment is one incremental piece of an assistant reply. Done marks the
// final fragment of the stream; its Content may be empty.
type Fragment struct {
	Content string
	Done    bool
}

// Completer streams an assistant reply for the given conversation. Fragments
// arrive on the first channel in emission order; a successful stream ends
// with exactly one Done fragment and then both channels close. A mid-stream
// backend failure closes the fragment channel without a Done fragment and
// reports the cause on the error channel.
type Completer interface {
	ChatStream(ctx context.Context, model string, messages []Message) (<-chan Fragment, <-chan error)
}

// Transcriber converts a base64-encoded audio blob into plain text.
type Transcriber interface {
	Transcribe(ctx context.Context, audioB64 string) (string, error)
}
