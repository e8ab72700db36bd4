package llm

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/crteal/shh/internal/chat"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *OllamaClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	c, err := NewOllamaClient(srv.URL)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return c
}

func writeChunk(w http.ResponseWriter, content string, done bool) {
	fmt.Fprintf(w, `{"model":"test-model","message":{"role":"assistant","content":%q},"done":%t}`+"\n", content, done)
	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}
}

func TestOllama_StreamsFragmentsInOrder(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/chat" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/x-ndjson")
		writeChunk(w, "He", false)
		writeChunk(w, "llo", false)
		writeChunk(w, "", true)
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	frags, errs := c.ChatStream(ctx, "test-model", []chat.Message{{Role: chat.RoleUser, Content: "hi"}})

	var got []chat.Fragment
	for f := range frags {
		got = append(got, f)
	}
	if err := <-errs; err != nil {
		t.Fatalf("unexpected stream error: %v", err)
	}

	want := []chat.Fragment{{Content: "He"}, {Content: "llo"}, {Content: "", Done: true}}
	if len(got) != len(want) {
		t.Fatalf("expected %d fragments, got %d: %+v", len(want), len(got), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("fragment %d: got %+v want %+v", i, got[i], want[i])
		}
	}
}

func TestOllama_ServerErrorSurfacesOnErrorChannel(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"model exploded"}`))
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	frags, errs := c.ChatStream(ctx, "test-model", []chat.Message{{Role: chat.RoleUser, Content: "hi"}})

	var terminal bool
	for f := range frags {
		if f.Done {
			terminal = true
		}
	}
	if terminal {
		t.Fatal("expected no terminal fragment on backend failure")
	}
	if err := <-errs; err == nil {
		t.Fatal("expected stream error, got nil")
	}
}

func TestOllama_SendsFullConversation(t *testing.T) {
	var gotBody []byte
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotBody, _ = io.ReadAll(r.Body)
		writeChunk(w, "ok", true)
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	messages := []chat.Message{
		{Role: chat.RoleUser, Content: "first"},
		{Role: chat.RoleAssistant, Content: "reply"},
		{Role: chat.RoleUser, Content: "second"},
	}
	frags, errs := c.ChatStream(ctx, "test-model", messages)
	for range frags {
	}
	if err := <-errs; err != nil {
		t.Fatalf("unexpected stream error: %v", err)
	}

	body := string(gotBody)
	for _, want := range []string{`"first"`, `"reply"`, `"second"`, `"test-model"`} {
		if !strings.Contains(body, want) {
			t.Fatalf("request body missing %s: %s", want, body)
		}
	}
}

func TestNewOllamaClient_RejectsBadHost(t *testing.T) {
	if _, err := NewOllamaClient("://not-a-url"); err == nil {
		t.Fatal("expected error for malformed host")
	}
}
