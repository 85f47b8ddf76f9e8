// Package conversation runs the per-turn protocol tying the memory
// store to the answering agent: reload durable state, recall long-term
// memories for the latest user message, respond, persist.
//
// The orchestrator holds no conversation state between turns. Every
// turn reloads from durable storage, so a process restart loses
// nothing.
package conversation

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/siftlabs/ragcore/core"
	"github.com/siftlabs/ragcore/memstore"
)

// Memory is the two-tier store consumed per turn. Implemented by
// memstore.Store.
type Memory interface {
	SaveItem(actor, thread string, role core.Role, content string) (memstore.Item, error)
	Search(actor, thread, query string, limit int) ([]memstore.Item, error)
	SaveCheckpoint(actor, thread string, messages []core.Message) error
	LoadCheckpoint(actor, thread string) ([]core.Message, error)
}

// Responder produces the assistant reply for a working log.
// Implemented by answer.Responder.
type Responder interface {
	Respond(ctx context.Context, log []core.Message) (string, error)
}

const recallLimit = 5

// Orchestrator executes conversation turns.
type Orchestrator struct {
	store     Memory
	responder Responder
	logger    *zap.Logger
}

// New creates an Orchestrator.
func New(store Memory, responder Responder, logger *zap.Logger) *Orchestrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Orchestrator{store: store, responder: responder, logger: logger}
}

// RunTurn executes one turn for (actor, thread) with the new
// user-originated messages and returns the assistant's reply.
//
// A corrupt checkpoint aborts the turn: resetting it silently would
// discard the thread's history, so the caller has to decide.
func (o *Orchestrator) RunTurn(ctx context.Context, actor, thread string, newMessages []core.Message) (string, error) {
	checkpoint, err := o.store.LoadCheckpoint(actor, thread)
	if err != nil {
		return "", fmt.Errorf("load checkpoint: %w", err)
	}

	working := make([]core.Message, 0, len(checkpoint)+len(newMessages)+1)
	working = append(working, checkpoint...)
	working = append(working, newMessages...)

	if query := lastUserContent(working); query != "" {
		recalled, err := o.store.Search(actor, thread, query, recallLimit)
		if err != nil {
			// Recall is enrichment; a failed scan must not kill the turn.
			o.logger.Warn("memory recall failed", zap.Error(err))
		} else if len(recalled) > 0 {
			// Recalled context goes ahead of the checkpoint history.
			working = append([]core.Message{recallMessage(recalled)}, working...)
			o.logger.Debug("recalled memories",
				zap.String("actor", actor),
				zap.String("thread", thread),
				zap.Int("count", len(recalled)))
		}
	}

	reply, err := o.responder.Respond(ctx, working)
	if err != nil {
		return "", err
	}
	working = append(working, core.Message{Role: core.RoleAssistant, Content: reply})

	// Long-term tier: every new user utterance and the reply.
	for _, m := range newMessages {
		if !m.Role.IsUser() {
			continue
		}
		if _, err := o.store.SaveItem(actor, thread, core.RoleUser, m.Content); err != nil {
			return "", fmt.Errorf("persist user memory: %w", err)
		}
	}
	if _, err := o.store.SaveItem(actor, thread, core.RoleAssistant, reply); err != nil {
		return "", fmt.Errorf("persist assistant memory: %w", err)
	}

	// Short-term tier: the whole resulting log, replacing the previous
	// checkpoint.
	if err := o.store.SaveCheckpoint(actor, thread, working); err != nil {
		return "", fmt.Errorf("persist checkpoint: %w", err)
	}

	return reply, nil
}

// recallMessage renders recalled items as a synthetic system entry.
func recallMessage(items []memstore.Item) core.Message {
	var b strings.Builder
	b.WriteString("Relevant memories:\n")
	for _, it := range items {
		fmt.Fprintf(&b, "- %s: %s\n", it.Role, it.Content)
	}
	return core.Message{Role: core.RoleSystem, Content: strings.TrimRight(b.String(), "\n")}
}

// lastUserContent scans the working log from the end for the most
// recent user-role message.
func lastUserContent(log []core.Message) string {
	for i := len(log) - 1; i >= 0; i-- {
		if log[i].Role.IsUser() {
			return log[i].Content
		}
	}
	return ""
}
