package conversation

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/siftlabs/ragcore/core"
	"github.com/siftlabs/ragcore/memstore"
)

// scriptedResponder returns canned replies and records the logs it saw.
type scriptedResponder struct {
	replies []string
	calls   [][]core.Message
}

func (r *scriptedResponder) Respond(ctx context.Context, log []core.Message) (string, error) {
	r.calls = append(r.calls, append([]core.Message(nil), log...))
	reply := "ok"
	if len(r.replies) > 0 {
		reply = r.replies[0]
		r.replies = r.replies[1:]
	}
	return reply, nil
}

func newOrchestrator(t *testing.T) (*Orchestrator, *memstore.Store, *scriptedResponder) {
	t.Helper()
	root := t.TempDir()
	store := memstore.New(filepath.Join(root, "memory"), filepath.Join(root, "checkpoints"), nil)
	responder := &scriptedResponder{}
	return New(store, responder, nil), store, responder
}

func TestRunTurnPersistsMemoryAndCheckpoint(t *testing.T) {
	ctx := context.Background()
	o, store, responder := newOrchestrator(t)
	responder.replies = []string{"nice to meet you"}

	reply, err := o.RunTurn(ctx, "a1", "t1", []core.Message{
		{Role: core.RoleUser, Content: "hi, I love hiking"},
	})
	require.NoError(t, err)
	assert.Equal(t, "nice to meet you", reply)

	// Both the user utterance and the reply became long-term items.
	items, err := store.ListItems("a1", "t1")
	require.NoError(t, err)
	require.Len(t, items, 2)

	// The checkpoint holds the full working log.
	log, err := store.LoadCheckpoint("a1", "t1")
	require.NoError(t, err)
	require.Len(t, log, 2)
	assert.Equal(t, core.RoleUser, log[0].Role)
	assert.Equal(t, "nice to meet you", log[1].Content)
}

func TestSecondTurnIncludesFirstTurnLog(t *testing.T) {
	ctx := context.Background()
	o, store, responder := newOrchestrator(t)
	responder.replies = []string{"reply one", "reply two"}

	_, err := o.RunTurn(ctx, "a1", "t1", []core.Message{
		{Role: core.RoleUser, Content: "first question"},
	})
	require.NoError(t, err)

	_, err = o.RunTurn(ctx, "a1", "t1", []core.Message{
		{Role: core.RoleUser, Content: "second question"},
	})
	require.NoError(t, err)

	log, err := store.LoadCheckpoint("a1", "t1")
	require.NoError(t, err)

	// Turn 1's full log precedes turn 2's new message. A recall entry
	// may have been prepended, so locate by content order.
	var contents []string
	for _, m := range log {
		contents = append(contents, m.Content)
	}
	joined := strings.Join(contents, "|")
	assert.Less(t, strings.Index(joined, "first question"), strings.Index(joined, "reply one"))
	assert.Less(t, strings.Index(joined, "reply one"), strings.Index(joined, "second question"))
	assert.Less(t, strings.Index(joined, "second question"), strings.Index(joined, "reply two"))
}

func TestRecallPrependsSystemMessage(t *testing.T) {
	ctx := context.Background()
	o, store, responder := newOrchestrator(t)

	_, err := store.SaveItem("a1", "t1", core.RoleUser, "I love hiking in the mountains")
	require.NoError(t, err)

	// Recall is a substring filter over item content, so the terse
	// query matches the stored memory.
	_, err = o.RunTurn(ctx, "a1", "t1", []core.Message{
		{Role: core.RoleUser, Content: "hiking"},
	})
	require.NoError(t, err)

	require.Len(t, responder.calls, 1)
	seen := responder.calls[0]
	require.NotEmpty(t, seen)

	// The synthetic recall entry sits at position 0, ahead of history.
	assert.Equal(t, core.RoleSystem, seen[0].Role)
	assert.Contains(t, seen[0].Content, "Relevant memories:")
	assert.Contains(t, seen[0].Content, "I love hiking in the mountains")
}

func TestNoUserMessageSkipsRecall(t *testing.T) {
	ctx := context.Background()
	o, store, responder := newOrchestrator(t)

	_, err := store.SaveItem("a1", "t1", core.RoleUser, "anything at all")
	require.NoError(t, err)

	_, err = o.RunTurn(ctx, "a1", "t1", []core.Message{
		{Role: core.RoleSystem, Content: "system directive only"},
	})
	require.NoError(t, err)

	require.Len(t, responder.calls, 1)
	for _, m := range responder.calls[0] {
		assert.NotContains(t, m.Content, "Relevant memories:")
	}
}

func TestCorruptCheckpointAbortsTurn(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	store := memstore.New(filepath.Join(root, "memory"), filepath.Join(root, "checkpoints"), nil)
	o := New(store, &scriptedResponder{}, nil)

	// Valid turn, then corrupt the checkpoint file on disk.
	_, err := o.RunTurn(ctx, "a1", "t1", []core.Message{
		{Role: core.RoleUser, Content: "hello"},
	})
	require.NoError(t, err)

	cpPath := filepath.Join(root, "checkpoints", "a1", "t1.json")
	require.NoError(t, os.WriteFile(cpPath, []byte("{{{"), 0o600))

	_, err = o.RunTurn(ctx, "a1", "t1", []core.Message{
		{Role: core.RoleUser, Content: "are you still there?"},
	})
	var corrupt *core.CorruptCheckpointError
	require.ErrorAs(t, err, &corrupt)
}

func TestAssistantOnlyNewMessagesNotSavedAsUserMemory(t *testing.T) {
	ctx := context.Background()
	o, store, responder := newOrchestrator(t)
	responder.replies = []string{"summary done"}

	_, err := o.RunTurn(ctx, "a1", "t1", []core.Message{
		{Role: core.RoleAssistant, Content: "prior assistant note"},
	})
	require.NoError(t, err)

	items, err := store.ListItems("a1", "t1")
	require.NoError(t, err)
	// Only the new reply is persisted; the assistant-originated input
	// is not a user utterance.
	require.Len(t, items, 1)
	assert.Equal(t, core.RoleAssistant, items[0].Role)
	assert.Equal(t, "summary done", items[0].Content)
}
