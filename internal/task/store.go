package task

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// Store persists the task list as a single JSON document. Nothing holds task
// state in memory across operations; every read re-loads from disk.
//
// Mutations (Update, Mutate, Add) run a load-modify-save cycle under both an
// in-process mutex and a short-lived lock file, so the dispatch loop and
// control-surface processes never interleave their cycles and lose updates.
type Store struct {
	path string
	mu   sync.Mutex
	lock fileLock
}

// NewStore creates a store for the given tasks.json path.
func NewStore(path string) *Store {
	return &Store{
		path: path,
		lock: fileLock{path: path + ".lock"},
	}
}

// Path returns the document path.
func (s *Store) Path() string {
	return s.path
}

// Load reads the task document. A missing file yields an empty list, and so
// does a malformed one; neither is an error.
func (s *Store) Load() (*List, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return &List{Tasks: []Task{}}, nil
		}
		return nil, fmt.Errorf("failed to read %s: %w", s.path, err)
	}

	var list List
	if err := json.Unmarshal(data, &list); err != nil {
		return &List{Tasks: []Task{}}, nil
	}
	if list.Tasks == nil {
		list.Tasks = []Task{}
	}
	return &list, nil
}

// Save rewrites the whole document atomically via a temp file + rename, so no
// reader ever observes a half-written document.
func (s *Store) Save(list *List) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return fmt.Errorf("failed to create store directory: %w", err)
	}

	data, err := json.MarshalIndent(list, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal tasks: %w", err)
	}

	tmpPath := fmt.Sprintf("%s.tmp.%d", s.path, os.Getpid())
	if err := os.WriteFile(tmpPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to rename temp file: %w", err)
	}
	return nil
}

// Mutate runs fn against a fresh load of the document and saves the result,
// all under the store lock.
func (s *Store) Mutate(fn func(*List)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.lock.acquire(); err != nil {
		return err
	}
	defer s.lock.release()

	list, err := s.Load()
	if err != nil {
		return err
	}
	fn(list)
	return s.Save(list)
}

// Update applies fn to the first task with the given id and saves. A missing
// id is a silent no-op.
func (s *Store) Update(id int, fn func(*Task)) error {
	return s.Mutate(func(list *List) {
		if t := list.Find(id); t != nil {
			fn(t)
		}
	})
}

// Add appends a new pending task with the next id and returns it.
func (s *Store) Add(prompt, priority string, parent *int) (Task, error) {
	var created Task
	err := s.Mutate(func(list *List) {
		created = Task{
			ID:        list.NextID(),
			Status:    StatusPending,
			Prompt:    prompt,
			Priority:  priority,
			Parent:    parent,
			CreatedAt: Now(),
		}
		list.Tasks = append(list.Tasks, created)
	})
	return created, err
}
