package answer

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/siftlabs/ragcore/core"
	"github.com/siftlabs/ragcore/llm"
)

const chatSystem = `You are a helpful assistant with access to a document knowledge base and memory of past conversations.`

// Responder produces the assistant reply for a conversation turn,
// enriching the system prompt with knowledge-base context retrieved for
// the latest user message. It implements conversation.Responder.
type Responder struct {
	retriever ContextRetriever
	model     llm.ChatModel
	system    string
	logger    *zap.Logger
}

// NewResponder creates a Responder. An empty system prompt uses the
// default assistant persona.
func NewResponder(retriever ContextRetriever, model llm.ChatModel, system string, logger *zap.Logger) *Responder {
	if system == "" {
		system = chatSystem
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Responder{retriever: retriever, model: model, system: system, logger: logger}
}

// Respond completes the working log. Context retrieval failures are
// non-fatal: an empty knowledge base must not prevent the agent from
// holding a conversation.
func (r *Responder) Respond(ctx context.Context, log []core.Message) (string, error) {
	system := r.system

	if query := lastUserContent(log); query != "" {
		chunks, err := r.retriever.Retrieve(ctx, query)
		switch {
		case errors.Is(err, core.ErrIndexNotReady):
			// Nothing ingested yet; answer from the conversation alone.
		case err != nil:
			r.logger.Warn("context retrieval failed", zap.Error(err))
		case len(chunks) > 0:
			var b strings.Builder
			b.WriteString("Knowledge base entries relevant to the current question:\n")
			for i, c := range chunks {
				fmt.Fprintf(&b, "%d. %s\n", i+1, c.Content)
			}
			system = system + "\n\n" + b.String()
		}
	}

	return r.model.Complete(ctx, system, log)
}

func lastUserContent(log []core.Message) string {
	for i := len(log) - 1; i >= 0; i-- {
		if log[i].Role.IsUser() {
			return log[i].Content
		}
	}
	return ""
}
