package annotation

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

const (
	backupPrefix    = "annotations_"
	backupTimeField = "20060102T150405.000000000"
	retryBackoff    = 500 * time.Millisecond
)

// requiredFields must be present in every persisted entry for the file
// to pass integrity validation.
var requiredFields = []string{"image", "subset", "class_name", "status"}

// Store persists the crop_id → Annotation collection to a JSON file
// shared between concurrently running annotator processes. The file is
// the authoritative state; the in-memory map is a cache merged into it
// on every save.
type Store struct {
	path       string
	backupsDir string
	lock       *FileLock
	maxBackups int
	maxRetries int

	annotations map[string]Annotation
}

// NewStore creates a store over the annotations file. lockPath is the
// sentinel file used for cross-process mutual exclusion.
func NewStore(path, backupsDir, lockPath string, lockTimeout time.Duration, maxBackups, maxRetries int) *Store {
	return &Store{
		path:        path,
		backupsDir:  backupsDir,
		lock:        NewFileLock(lockPath, lockTimeout),
		maxBackups:  maxBackups,
		maxRetries:  maxRetries,
		annotations: make(map[string]Annotation),
	}
}

// LoadExisting replaces the in-memory collection with the on-disk one.
// A missing file yields an empty collection.
func (s *Store) LoadExisting() error {
	s.annotations = make(map[string]Annotation)

	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	loaded, err := decodeCollection(data)
	if err != nil {
		return err
	}
	s.annotations = loaded
	return nil
}

// IsAnnotated reports whether a crop id already has a decision. When
// the cache is empty it consults the file, since another process may
// have annotated the crop in the meantime.
func (s *Store) IsAnnotated(cropID string) bool {
	if len(s.annotations) == 0 {
		_ = s.LoadExisting()
	}
	_, ok := s.annotations[cropID]
	return ok
}

// Upsert replaces any existing entry for the annotation's crop id.
func (s *Store) Upsert(a Annotation) {
	s.annotations[a.CropID] = a
}

// Remove deletes an entry; no-op if absent.
func (s *Store) Remove(cropID string) {
	delete(s.annotations, cropID)
}

// Get returns the cached annotation for a crop id.
func (s *Store) Get(cropID string) (Annotation, bool) {
	a, ok := s.annotations[cropID]
	return a, ok
}

// Len returns the size of the in-memory collection.
func (s *Store) Len() int {
	return len(s.annotations)
}

// All returns a snapshot of the in-memory collection.
func (s *Store) All() []Annotation {
	out := make([]Annotation, 0, len(s.annotations))
	for _, a := range s.annotations {
		out = append(out, a)
	}
	return out
}

// Count returns the number of entries in the on-disk file, the shared
// source of truth across processes. Unreadable or missing files count
// as zero.
func (s *Store) Count() int {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return 0
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return 0
	}
	return len(raw)
}

// Save persists the in-memory collection under the cross-process lock,
// retrying transient failures. On final failure the in-memory data is
// left intact for a later attempt.
func (s *Store) Save() error {
	var lastErr error
	for attempt := 0; attempt <= s.maxRetries; attempt++ {
		if attempt > 0 {
			time.Sleep(time.Duration(attempt) * retryBackoff)
			fmt.Printf("[Store] Save retry %d/%d\n", attempt, s.maxRetries)
		}
		lastErr = s.saveOnce()
		if lastErr == nil {
			return nil
		}
	}
	return fmt.Errorf("annotation: save failed after %d retries: %w", s.maxRetries, lastErr)
}

// saveOnce performs one locked backup+merge+atomic-write cycle.
func (s *Store) saveOnce() error {
	return s.lock.WithLock(func() error {
		if err := s.backupCurrent(); err != nil {
			return err
		}

		// Another process may have written since our last load; merge
		// our entries over a fresh read rather than overwriting blindly.
		merged := map[string]json.RawMessage{}
		if data, err := os.ReadFile(s.path); err == nil {
			// An unparsable file is treated as empty; the backup taken
			// above preserves its bytes for manual recovery.
			_ = json.Unmarshal(data, &merged)
		}
		for id, a := range s.annotations {
			encoded, err := json.Marshal(a)
			if err != nil {
				return err
			}
			merged[id] = encoded
		}

		return s.writeAtomic(merged)
	})
}

// writeAtomic serializes the collection to a temp file in the target
// directory and renames it over the annotations file, so readers never
// observe a partial document.
func (s *Store) writeAtomic(collection map[string]json.RawMessage) error {
	data, err := json.MarshalIndent(collection, "", "  ")
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".annotations-*.tmp")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return err
	}
	return os.Rename(tmpPath, s.path)
}

// backupCurrent copies the live file into the backup directory with a
// sortable timestamp name, then prunes all but the newest maxBackups.
func (s *Store) backupCurrent() error {
	src, err := os.Open(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	defer src.Close()

	if err := os.MkdirAll(s.backupsDir, 0o755); err != nil {
		return err
	}

	name := backupPrefix + time.Now().UTC().Format(backupTimeField) + ".json"
	dst, err := os.Create(filepath.Join(s.backupsDir, name))
	if err != nil {
		return err
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		return err
	}
	if err := dst.Close(); err != nil {
		return err
	}

	return s.pruneBackups()
}

// pruneBackups removes the oldest backups beyond the retention limit.
func (s *Store) pruneBackups() error {
	backups, err := s.listBackups()
	if err != nil {
		return err
	}
	for len(backups) > s.maxBackups {
		if err := os.Remove(filepath.Join(s.backupsDir, backups[0])); err != nil {
			return err
		}
		backups = backups[1:]
	}
	return nil
}

// listBackups returns backup file names sorted oldest first. The
// timestamp format makes lexical order chronological.
func (s *Store) listBackups() ([]string, error) {
	entries, err := os.ReadDir(s.backupsDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var names []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasPrefix(e.Name(), backupPrefix) && strings.HasSuffix(e.Name(), ".json") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}

// Validate is a pure structural check of the on-disk file: it must
// deserialize to a mapping and every entry must carry the required
// fields. A missing file is valid (empty collection). No error is ever
// raised; the result drives the offer to restore from backup.
func (s *Store) Validate() bool {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return os.IsNotExist(err)
	}

	var raw map[string]map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return false
	}
	for _, entry := range raw {
		for _, field := range requiredFields {
			if _, ok := entry[field]; !ok {
				return false
			}
		}
	}
	return true
}

// RestoreFromLatestBackup copies the most recent backup over the live
// file and reloads the collection. Returns ErrNoBackup if none exists.
func (s *Store) RestoreFromLatestBackup() error {
	backups, err := s.listBackups()
	if err != nil {
		return err
	}
	if len(backups) == 0 {
		return ErrNoBackup
	}

	latest := filepath.Join(s.backupsDir, backups[len(backups)-1])
	data, err := os.ReadFile(latest)
	if err != nil {
		return err
	}
	if err := os.WriteFile(s.path, data, 0o644); err != nil {
		return err
	}

	fmt.Printf("[Store] Restored from backup %s\n", backups[len(backups)-1])
	return s.LoadExisting()
}

// decodeCollection parses the persisted mapping, stamping each entry
// with its crop id key.
func decodeCollection(data []byte) (map[string]Annotation, error) {
	var raw map[string]Annotation
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrIntegrity, err)
	}
	for id, a := range raw {
		a.CropID = id
		raw[id] = a
	}
	return raw, nil
}
