// Package memstore is the two-tier durable conversation store:
// long-term memory items (one immutable JSON record per utterance,
// namespaced by actor and thread) and short-term checkpoints (the full
// message log of a thread, overwritten wholesale every turn).
//
// Layout:
//
//	<memoryDir>/<actor>/<thread>/<uuid>.json   one item per file
//	<checkpointDir>/<actor>/<thread>.json      whole-log snapshot
package memstore

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/siftlabs/ragcore/core"
)

// Item is a single retained utterance. Never mutated after creation;
// no eviction or TTL applies.
type Item struct {
	ID        string    `json:"id"`
	Role      core.Role `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// Store persists memory items and checkpoints on the local filesystem.
// Writes are guarded by a store-wide mutex; cross-process writers to
// the same thread are not coordinated.
type Store struct {
	memoryDir     string
	checkpointDir string
	logger        *zap.Logger
	mu            sync.Mutex
}

// New creates a Store rooted at the two directories.
func New(memoryDir, checkpointDir string, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{memoryDir: memoryDir, checkpointDir: checkpointDir, logger: logger}
}

// SaveItem appends a new immutable item under the (actor, thread)
// namespace with a fresh id, written durably before returning.
func (s *Store) SaveItem(actor, thread string, role core.Role, content string) (Item, error) {
	if err := validateKey(actor, thread); err != nil {
		return Item{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	dir := filepath.Join(s.memoryDir, actor, thread)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return Item{}, fmt.Errorf("create namespace dir: %w", err)
	}

	item := Item{
		ID:        uuid.New().String(),
		Role:      role,
		Content:   content,
		CreatedAt: time.Now().UTC(),
	}
	data, err := json.MarshalIndent(item, "", "  ")
	if err != nil {
		return Item{}, fmt.Errorf("marshal item: %w", err)
	}
	if err := atomicWrite(filepath.Join(dir, item.ID+".json"), data); err != nil {
		return Item{}, fmt.Errorf("write item: %w", err)
	}
	return item, nil
}

// ListItems returns all items for a namespace in filename order.
// Corrupt records are skipped with a warning, never fatal. A namespace
// that has never been written yields an empty list.
func (s *Store) ListItems(actor, thread string) ([]Item, error) {
	if err := validateKey(actor, thread); err != nil {
		return nil, err
	}
	return s.readItems(filepath.Join(s.memoryDir, actor, thread))
}

// Search returns at most limit items whose content contains the query,
// case-insensitively, in storage order. The thread is searched first;
// when it has no matches the entire actor namespace is scanned as a
// fallback. A limit <= 0 means no truncation.
func (s *Store) Search(actor, thread, query string, limit int) ([]Item, error) {
	if err := validateKey(actor, thread); err != nil {
		return nil, err
	}
	q := strings.ToLower(query)

	items, err := s.readItems(filepath.Join(s.memoryDir, actor, thread))
	if err != nil {
		return nil, err
	}
	matched := filterItems(items, q)

	if len(matched) == 0 {
		matched, err = s.searchActorWide(actor, q)
		if err != nil {
			return nil, err
		}
	}

	if limit > 0 && len(matched) > limit {
		matched = matched[:limit]
	}
	return matched, nil
}

func (s *Store) searchActorWide(actor, q string) ([]Item, error) {
	actorDir := filepath.Join(s.memoryDir, actor)
	threads, err := os.ReadDir(actorDir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read actor dir: %w", err)
	}

	var matched []Item
	for _, t := range threads {
		if !t.IsDir() {
			continue
		}
		items, err := s.readItems(filepath.Join(actorDir, t.Name()))
		if err != nil {
			return nil, err
		}
		matched = append(matched, filterItems(items, q)...)
	}
	return matched, nil
}

// SaveCheckpoint overwrites the thread's full message log.
func (s *Store) SaveCheckpoint(actor, thread string, messages []core.Message) error {
	if err := validateKey(actor, thread); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	dir := filepath.Join(s.checkpointDir, actor)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create checkpoint dir: %w", err)
	}
	if messages == nil {
		messages = []core.Message{}
	}
	data, err := json.MarshalIndent(messages, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal checkpoint: %w", err)
	}
	if err := atomicWrite(filepath.Join(dir, thread+".json"), data); err != nil {
		return fmt.Errorf("write checkpoint: %w", err)
	}
	return nil
}

// LoadCheckpoint reads the thread's message log. A never-written thread
// loads as an empty log. A checkpoint that exists but cannot be read or
// parsed returns core.CorruptCheckpointError: silently resetting would
// discard conversation history.
func (s *Store) LoadCheckpoint(actor, thread string) ([]core.Message, error) {
	if err := validateKey(actor, thread); err != nil {
		return nil, err
	}
	path := filepath.Join(s.checkpointDir, actor, thread+".json")
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, &core.CorruptCheckpointError{Path: path, Err: err}
	}
	var messages []core.Message
	if err := json.Unmarshal(data, &messages); err != nil {
		return nil, &core.CorruptCheckpointError{Path: path, Err: err}
	}
	return messages, nil
}

// readItems loads every .json record under dir in filename order.
func (s *Store) readItems(dir string) ([]Item, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read namespace dir: %w", err)
	}

	var items []Item
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		path := filepath.Join(dir, e.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			s.logger.Warn("skipping unreadable memory record",
				zap.Error(&core.CorruptRecordError{Path: path, Err: err}))
			continue
		}
		var item Item
		if err := json.Unmarshal(data, &item); err != nil {
			s.logger.Warn("skipping corrupt memory record",
				zap.Error(&core.CorruptRecordError{Path: path, Err: err}))
			continue
		}
		items = append(items, item)
	}
	return items, nil
}

func filterItems(items []Item, q string) []Item {
	var out []Item
	for _, it := range items {
		if strings.Contains(strings.ToLower(it.Content), q) {
			out = append(out, it)
		}
	}
	return out
}

// validateKey rejects namespace components that would escape the
// store's directory tree.
func validateKey(parts ...string) error {
	for _, p := range parts {
		if p == "" || p == "." || p == ".." || strings.ContainsAny(p, `/\`) {
			return fmt.Errorf("invalid namespace component %q", p)
		}
	}
	return nil
}

// atomicWrite writes via a temp file and rename so a crash never
// leaves a half-written record behind.
func atomicWrite(path string, data []byte) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return err
	}
	return nil
}
