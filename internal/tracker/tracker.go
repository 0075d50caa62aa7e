// Package tracker persists the set of PDFs whose pages have all been sent
// through extraction, so repeated runs only do new work.
package tracker

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/joseph-ayodele/procurement-extractor/internal/common"
	"github.com/joseph-ayodele/procurement-extractor/internal/utils"
)

// Document is the on-disk JSON shape.
type Document struct {
	ProcessedPDFs  []string `json:"processed_pdfs"`
	LastUpdated    string   `json:"last_updated"`
	TotalProcessed int      `json:"total_processed"`
}

// Tracker is the processed-set. It is safe for concurrent use but expects a
// single process per store, enforced with Lock.
type Tracker struct {
	path      string
	saveEvery int
	log       *slog.Logger
	now       func() time.Time

	mu        sync.Mutex
	set       map[string]struct{}
	sinceSave int
	locked    bool
}

// New returns an empty tracker for path. saveEvery <= 0 disables periodic saves.
func New(path string, saveEvery int, logger *slog.Logger) *Tracker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Tracker{
		path:      path,
		saveEvery: saveEvery,
		log:       logger,
		now:       time.Now,
		set:       make(map[string]struct{}),
	}
}

// Path is the JSON file location.
func (t *Tracker) Path() string { return t.path }

// Load replaces the in-memory set with the file's contents and returns the
// count. A missing or unreadable file yields an empty set.
func (t *Tracker) Load() int {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.set = make(map[string]struct{})
	t.sinceSave = 0

	doc, err := readDocument(t.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			t.log.Info("tracker.load.empty", "path", t.path)
		} else {
			t.log.Warn("tracker.load.unreadable", "path", t.path, "error", err)
		}
		return 0
	}
	for _, id := range doc.ProcessedPDFs {
		if id != "" {
			t.set[id] = struct{}{}
		}
	}
	t.log.Info("tracker.load.ok", "path", t.path, "processed", len(t.set), "last_updated", doc.LastUpdated)
	return len(t.set)
}

// IsProcessed reports whether id was marked.
func (t *Tracker) IsProcessed(id string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.set[id]
	return ok
}

// MarkProcessed adds id. Every saveEvery-th new addition persists the set;
// the returned error is that save's.
func (t *Tracker) MarkProcessed(id string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, ok := t.set[id]; ok {
		return nil
	}
	t.set[id] = struct{}{}
	t.sinceSave++
	t.log.Debug("tracker.mark", "id", id, "processed", len(t.set))

	if t.saveEvery > 0 && t.sinceSave >= t.saveEvery {
		return t.saveLocked()
	}
	return nil
}

// Save writes the whole set atomically (temp file, fsync, rename).
func (t *Tracker) Save() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.saveLocked()
}

func (t *Tracker) saveLocked() error {
	ids := t.idsLocked()
	doc := Document{
		ProcessedPDFs:  ids,
		LastUpdated:    t.now().Format(time.RFC3339),
		TotalProcessed: len(ids),
	}
	b, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encode tracker: %w", err)
	}
	if err := utils.WriteFileAtomic(t.path, b); err != nil {
		t.log.Error("tracker.save.error", "path", t.path, "error", err)
		return err
	}
	t.sinceSave = 0
	t.log.Info("tracker.save.ok", "path", t.path, "processed", len(ids))
	return nil
}

// Clear forgets every PDF and deletes the file.
func (t *Tracker) Clear() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.set = make(map[string]struct{})
	t.sinceSave = 0
	if err := os.Remove(t.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove tracker: %w", err)
	}
	t.log.Info("tracker.clear", "path", t.path)
	return nil
}

// IDs returns the marked identifiers, sorted.
func (t *Tracker) IDs() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.idsLocked()
}

// Len is the number of marked PDFs.
func (t *Tracker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.set)
}

func (t *Tracker) idsLocked() []string {
	ids := make([]string, 0, len(t.set))
	for id := range t.set {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// LockPath is the guard file next to the tracker JSON.
func LockPath(path string) string { return path + ".lock" }

// Lock claims the store for this process. A second holder gets an error
// wrapping common.ErrTrackerLocked.
func (t *Tracker) Lock() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.locked {
		return nil
	}

	lp := LockPath(t.path)
	if err := os.MkdirAll(filepath.Dir(lp), 0o755); err != nil {
		return fmt.Errorf("create tracker dir: %w", err)
	}
	f, err := os.OpenFile(lp, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			owner, _ := os.ReadFile(lp)
			return common.NewAppError("TRACKER_LOCKED",
				fmt.Sprintf("%s held by %s", lp, strings.TrimSpace(string(owner))), common.ErrTrackerLocked)
		}
		return fmt.Errorf("create lock: %w", err)
	}
	_, werr := f.WriteString("pid " + strconv.Itoa(os.Getpid()) + " since " + t.now().Format(time.RFC3339) + "\n")
	cerr := f.Close()
	if err := errors.Join(werr, cerr); err != nil {
		_ = os.Remove(lp)
		return fmt.Errorf("write lock: %w", err)
	}
	t.locked = true
	t.log.Debug("tracker.lock", "path", lp)
	return nil
}

// Unlock releases a lock taken by Lock.
func (t *Tracker) Unlock() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.locked {
		return nil
	}
	t.locked = false
	if err := os.Remove(LockPath(t.path)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove lock: %w", err)
	}
	return nil
}

// ForceUnlock removes a stale lock left behind by a crashed run. It reports
// whether a lock file existed.
func ForceUnlock(path string) (bool, error) {
	err := os.Remove(LockPath(path))
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("remove lock: %w", err)
	}
	return true, nil
}

// Status summarizes the persisted store without loading it into a Tracker.
type Status struct {
	Path           string
	Exists         bool
	TotalProcessed int
	LastUpdated    string
	Locked         bool
}

// ReadStatus inspects the tracker file at path.
func ReadStatus(path string) (Status, error) {
	st := Status{Path: path}
	if _, err := os.Stat(LockPath(path)); err == nil {
		st.Locked = true
	}
	doc, err := readDocument(path)
	if errors.Is(err, fs.ErrNotExist) {
		return st, nil
	}
	if err != nil {
		return st, err
	}
	st.Exists = true
	st.TotalProcessed = len(doc.ProcessedPDFs)
	st.LastUpdated = doc.LastUpdated
	return st, nil
}

func readDocument(path string) (Document, error) {
	var doc Document
	b, err := os.ReadFile(path)
	if err != nil {
		return doc, err
	}
	if err := json.Unmarshal(b, &doc); err != nil {
		return doc, fmt.Errorf("decode %s: %w", path, err)
	}
	return doc, nil
}
