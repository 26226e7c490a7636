package jsonl

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"maps"
	"os"
	"reflect"
	"sync"

	"github.com/google/uuid"
)

// Document is a schemaless store record.
type Document = map[string]any

const (
	fieldID      = "_id"
	fieldDeleted = "$$deleted"

	// Appended lines before the journal is rewritten in place.
	compactThreshold = 1024
)

// Collection is a persistent set of schemaless documents backed by a single
// line-delimited JSON file. Every mutation appends a line holding the full new
// state of the document (deletions append a tombstone); loading replays the
// journal, last state per _id winning. A mutex serializes individual
// operations; sequences of calls are not transactional.
type Collection struct {
	mu      sync.Mutex
	path    string
	file    *os.File
	docs    []Document
	index   map[string]int // _id -> position in docs
	appends int
}

// Open loads the collection at path, creating the file if needed. The journal
// is compacted as part of loading.
func Open(path string) (*Collection, error) {
	c := &Collection{
		path:  path,
		index: make(map[string]int),
	}

	if err := c.load(); err != nil {
		return nil, err
	}

	if err := c.compact(); err != nil {
		return nil, err
	}

	return c, nil
}

func (c *Collection) load() error {
	f, err := os.Open(c.path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to open store file: %w", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var doc Document
		if err := json.Unmarshal(line, &doc); err != nil {
			return fmt.Errorf("corrupt store line: %w", err)
		}

		id, _ := doc[fieldID].(string)
		if deleted, _ := doc[fieldDeleted].(bool); deleted {
			c.removeByID(id)
			continue
		}
		c.upsert(id, doc)
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("failed to read store file: %w", err)
	}

	return nil
}

// upsert replaces the document with the same id in place, preserving insertion
// order, or appends it.
func (c *Collection) upsert(id string, doc Document) {
	if pos, ok := c.index[id]; ok {
		c.docs[pos] = doc
		return
	}
	c.docs = append(c.docs, doc)
	c.index[id] = len(c.docs) - 1
}

func (c *Collection) removeByID(id string) {
	pos, ok := c.index[id]
	if !ok {
		return
	}
	c.docs = append(c.docs[:pos], c.docs[pos+1:]...)
	delete(c.index, id)
	for i := pos; i < len(c.docs); i++ {
		docID, _ := c.docs[i][fieldID].(string)
		c.index[docID] = i
	}
}

// Find returns copies of all documents whose fields match the filter exactly.
// An empty filter matches everything.
func (c *Collection) Find(ctx context.Context, filter Document) ([]Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	var out []Document
	for _, doc := range c.docs {
		if matches(doc, filter) {
			out = append(out, maps.Clone(doc))
		}
	}
	return out, nil
}

// FindOne returns a copy of the first matching document, or nil when none
// matches.
func (c *Collection) FindOne(ctx context.Context, filter Document) (Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	for _, doc := range c.docs {
		if matches(doc, filter) {
			return maps.Clone(doc), nil
		}
	}
	return nil, nil
}

// Insert stores a new document, assigning an _id when absent, and returns a
// copy of the stored state.
func (c *Collection) Insert(ctx context.Context, doc Document) (Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	stored := maps.Clone(doc)
	if _, ok := stored[fieldID].(string); !ok {
		stored[fieldID] = uuid.New().String()
	}

	if err := c.appendLine(stored); err != nil {
		return nil, err
	}

	id, _ := stored[fieldID].(string)
	c.upsert(id, stored)

	return maps.Clone(stored), nil
}

// Update overwrites the set fields and removes the unset fields on every
// matching document, returning the matched count. The _id field is never
// rewritten.
func (c *Collection) Update(ctx context.Context, filter, set Document, unset []string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	matched := 0
	for i, doc := range c.docs {
		if !matches(doc, filter) {
			continue
		}
		matched++

		updated := maps.Clone(doc)
		for k, v := range set {
			if k == fieldID {
				continue
			}
			updated[k] = v
		}
		for _, k := range unset {
			if k == fieldID {
				continue
			}
			delete(updated, k)
		}

		if err := c.appendLine(updated); err != nil {
			return matched, err
		}
		c.docs[i] = updated
	}

	return matched, nil
}

// Delete removes every matching document, returning the deleted count.
func (c *Collection) Delete(ctx context.Context, filter Document) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	var ids []string
	for _, doc := range c.docs {
		if matches(doc, filter) {
			id, _ := doc[fieldID].(string)
			ids = append(ids, id)
		}
	}

	for _, id := range ids {
		if err := c.appendLine(Document{fieldID: id, fieldDeleted: true}); err != nil {
			return 0, err
		}
		c.removeByID(id)
	}

	return len(ids), nil
}

// Compact rewrites the journal so it holds exactly one line per live document.
func (c *Collection) Compact() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.compact()
}

func (c *Collection) compact() error {
	if c.file != nil {
		c.file.Close()
		c.file = nil
	}

	tmp := c.path + ".tmp"
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("failed to create compaction file: %w", err)
	}

	w := bufio.NewWriter(f)
	for _, doc := range c.docs {
		line, err := json.Marshal(doc)
		if err != nil {
			f.Close()
			return fmt.Errorf("failed to encode document: %w", err)
		}
		w.Write(line)
		w.WriteByte('\n')
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return fmt.Errorf("failed to write compaction file: %w", err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return fmt.Errorf("failed to sync compaction file: %w", err)
	}
	if err := f.Close(); err != nil {
		return err
	}

	if err := os.Rename(tmp, c.path); err != nil {
		return fmt.Errorf("failed to replace store file: %w", err)
	}

	c.appends = 0
	return c.reopen()
}

func (c *Collection) reopen() error {
	f, err := os.OpenFile(c.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return fmt.Errorf("failed to open store file for append: %w", err)
	}
	c.file = f
	return nil
}

func (c *Collection) appendLine(doc Document) error {
	if c.file == nil {
		if err := c.reopen(); err != nil {
			return err
		}
	}

	line, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to encode document: %w", err)
	}

	if _, err := c.file.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("failed to append to store file: %w", err)
	}

	c.appends++
	if c.appends > compactThreshold {
		return c.compact()
	}
	return nil
}

// Close flushes and closes the journal.
func (c *Collection) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.file == nil {
		return nil
	}
	err := c.file.Close()
	c.file = nil
	return err
}

// matches reports whether every filter field equals the corresponding document
// field.
func matches(doc, filter Document) bool {
	for k, want := range filter {
		got, ok := doc[k]
		if !ok || !reflect.DeepEqual(got, want) {
			return false
		}
	}
	return true
}
