package chat

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Orchestrator coordinates submissions against the shared history and drives
// detached inference turns, publishing each fragment onto the event queue.
// One instance owns the history and the queue for the whole process; handlers
// receive it rather than reaching for globals so tests can build a fresh one.
type Orchestrator struct {
	log     *zap.Logger
	history *History
	queue   EventQueue
	llm     Completer
	stt     Transcriber
	model   string

	// base context for detached work; turns outlive the requests that
	// started them and are bound to process lifetime instead.
	ctx context.Context
	wg  sync.WaitGroup
}

// NewOrchestrator wires the orchestrator. ctx bounds all detached turns.
func NewOrchestrator(ctx context.Context, log *zap.Logger, history *History, queue EventQueue, llm Completer, stt Transcriber, model string) *Orchestrator {
	return &Orchestrator{
		log:     log,
		history: history,
		queue:   queue,
		llm:     llm,
		stt:     stt,
		model:   model,
		ctx:     ctx,
	}
}

// SubmitText appends the user message and starts an inference turn in the
// background, returning before any fragment is produced. Empty text is
// accepted and still starts a turn.
//
// Turns are not mutually exclusized: a second submission arriving before the
// first turn's reply lands may snapshot a history that misses that reply,
// and the two turns' fragments may interleave on the shared queue.
func (o *Orchestrator) SubmitText(text string) {
	o.history.Append(Message{Role: RoleUser, Content: text})
	snapshot := o.history.Snapshot()
	o.spawn("turn", func(ctx context.Context) error {
		return o.runTurn(ctx, snapshot)
	})
}

// SubmitAudio transcribes the base64 audio blob and then follows the same
// path as SubmitText. The whole pipeline, transcription included, runs
// detached; the caller returns before transcription starts.
func (o *Orchestrator) SubmitAudio(audioB64 string) {
	o.spawn("audio-turn", func(ctx context.Context) error {
		text, err := o.stt.Transcribe(ctx, audioB64)
		if err != nil {
			return fmt.Errorf("transcribe: %w", err)
		}
		o.history.Append(Message{Role: RoleUser, Content: text})
		return o.runTurn(ctx, o.history.Snapshot())
	})
}

// Wait blocks until every detached task has finished. Used by shutdown and
// by tests; submissions made after Wait returns are not covered.
func (o *Orchestrator) Wait() {
	o.wg.Wait()
}

// runTurn drives one assistant response over the given history snapshot:
// every fragment is accumulated and published, and once the terminal
// fragment arrives the concatenated reply is appended to the history.
func (o *Orchestrator) runTurn(ctx context.Context, messages []Message) error {
	frags, errs := o.llm.ChatStream(ctx, o.model, messages)

	var chunks []string
	done := false
	openFrags, openErrs := true, true
	var streamErr error
	for openFrags || openErrs {
		select {
		case f, ok := <-frags:
			if !ok {
				openFrags = false
				continue
			}
			chunks = append(chunks, f.Content)
			if f.Done {
				done = true
				o.history.Append(Message{
					Role:    RoleAssistant,
					Content: strings.Join(chunks, ""),
				})
			}
			o.queue.Put(Event{Content: f.Content, Done: f.Done})
		case e, ok := <-errs:
			if !ok {
				openErrs = false
				continue
			}
			if e != nil && streamErr == nil {
				streamErr = e
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if streamErr != nil {
		return fmt.Errorf("inference: %w", streamErr)
	}
	if !done {
		return fmt.Errorf("inference: stream ended without terminal fragment")
	}
	return nil
}

// spawn runs fn as a supervised detached task. Errors and panics do not
// vanish: they are logged with the task id and surfaced to connected clients
// as a terminal error event, so a failed turn still ends on their side. No
// assistant message is appended for a failed turn, and fragments already
// published are not retracted.
func (o *Orchestrator) spawn(op string, fn func(context.Context) error) {
	id := uuid.NewString()
	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				o.log.Error("task panicked", zap.String("op", op), zap.String("task_id", id), zap.Any("panic", r))
				o.queue.Put(Event{Done: true, Err: fmt.Sprintf("%s failed", op)})
			}
		}()
		if err := fn(o.ctx); err != nil {
			o.log.Error("task failed", zap.String("op", op), zap.String("task_id", id), zap.Error(err))
			o.queue.Put(Event{Done: true, Err: err.Error()})
		}
	}()
}
