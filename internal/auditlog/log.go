// Package auditlog is the append-only, crash-durable record of every
// authorization decision and override event. The trail is segmented by
// category; each category is its own JSONL file with SHA-256 hash
// chaining, so tampering in one category is detectable independently.
package auditlog

import (
	"bufio"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"iter"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// GenesisHash is the prev_hash for the first entry in a new category log.
const GenesisHash = "sha256:0000000000000000000000000000000000000000000000000000000000000000"

// TimestampFormat is the layout used in audit entry timestamps.
const TimestampFormat = "2006-01-02T15:04:05.000Z"

// categoryLog owns one category file. One writer at a time; the mutex
// serializes appends so submission order equals file order even under
// concurrent requests.
type categoryLog struct {
	path     string
	file     *os.File
	prevHash string
	mu       sync.Mutex
}

// Log is the category-segmented audit store.
type Log struct {
	dir  string
	mu   sync.Mutex
	cats map[Category]*categoryLog
}

// Open opens (or creates) the audit directory. Category files are
// opened lazily on first write.
func Open(dir string) (*Log, error) {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("auditlog: create directory: %w", err)
	}
	return &Log{
		dir:  dir,
		cats: make(map[Category]*categoryLog),
	}, nil
}

// DefaultDir returns the default audit log directory.
func DefaultDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), "commandgate-audit")
	}
	return filepath.Join(home, ".commandgate", "audit")
}

// Record appends entry to its category log with hash chaining. The
// write is fsynced before Record returns success; a nil return means
// the entry is durable.
func (l *Log) Record(entry Entry) error {
	if !entry.Category.Valid() {
		return fmt.Errorf("auditlog: unknown category %q", entry.Category)
	}

	cl, err := l.category(entry.Category)
	if err != nil {
		return err
	}

	cl.mu.Lock()
	defer cl.mu.Unlock()

	if entry.Timestamp == "" {
		entry.Timestamp = time.Now().UTC().Format(TimestampFormat)
	}
	entry.PrevHash = cl.prevHash

	line, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("auditlog: marshal entry: %w", err)
	}

	if _, err := cl.file.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("auditlog: write entry: %w", err)
	}
	if err := cl.file.Sync(); err != nil {
		return fmt.Errorf("auditlog: sync: %w", err)
	}

	cl.prevHash = HashLine(line)
	return nil
}

// ReadCategory returns a lazy, restartable sequence of the category's
// entries in insertion order. Each call re-opens the file, so ranging
// twice yields the same sequence. Malformed lines are skipped.
func (l *Log) ReadCategory(cat Category) iter.Seq[Entry] {
	path := l.pathFor(cat)
	return func(yield func(Entry) bool) {
		f, err := os.Open(path)
		if err != nil {
			return
		}
		defer f.Close()

		scanner := bufio.NewScanner(f)
		for scanner.Scan() {
			var entry Entry
			if err := json.Unmarshal(scanner.Bytes(), &entry); err != nil {
				continue
			}
			if !yield(entry) {
				return
			}
		}
	}
}

// ClearCategory truncates a category log and immediately writes a
// single genesis-anchored entry recording who cleared it and when. The
// trail is never left fully silent about its own wipe. Callers must
// gate this behind an AdminOverride-or-higher verdict.
func (l *Log) ClearCategory(cat Category, actorID string) error {
	if !cat.Valid() {
		return fmt.Errorf("auditlog: unknown category %q", cat)
	}

	cl, err := l.category(cat)
	if err != nil {
		return err
	}

	cl.mu.Lock()
	defer cl.mu.Unlock()

	if err := cl.file.Truncate(0); err != nil {
		return fmt.Errorf("auditlog: truncate: %w", err)
	}
	if _, err := cl.file.Seek(0, 0); err != nil {
		return fmt.Errorf("auditlog: seek: %w", err)
	}
	cl.prevHash = GenesisHash

	entry := Entry{
		Timestamp: time.Now().UTC().Format(TimestampFormat),
		ActorID:   actorID,
		Category:  cat,
		Outcome:   "allowed",
		Detail:    fmt.Sprintf("category %q cleared by %s", cat, actorID),
		PrevHash:  cl.prevHash,
	}

	line, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("auditlog: marshal clear entry: %w", err)
	}
	if _, err := cl.file.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("auditlog: write clear entry: %w", err)
	}
	if err := cl.file.Sync(); err != nil {
		return fmt.Errorf("auditlog: sync: %w", err)
	}

	cl.prevHash = HashLine(line)
	return nil
}

// Close flushes and closes all open category files.
func (l *Log) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	var firstErr error
	for _, cl := range l.cats {
		cl.mu.Lock()
		if err := cl.file.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		cl.mu.Unlock()
	}
	l.cats = make(map[Category]*categoryLog)
	return firstErr
}

// category returns the open categoryLog, recovering the chain tail from
// an existing file on first access.
func (l *Log) category(cat Category) (*categoryLog, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if cl, ok := l.cats[cat]; ok {
		return cl, nil
	}

	path := l.pathFor(cat)
	prevHash := GenesisHash

	if info, err := os.Stat(path); err == nil && info.Size() > 0 {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("auditlog: read existing log: %w", err)
		}
		scanner := bufio.NewScanner(f)
		var lastLine []byte
		for scanner.Scan() {
			lastLine = make([]byte, len(scanner.Bytes()))
			copy(lastLine, scanner.Bytes())
		}
		f.Close()
		if err := scanner.Err(); err != nil {
			return nil, fmt.Errorf("auditlog: scan existing log: %w", err)
		}
		if len(lastLine) > 0 {
			prevHash = HashLine(lastLine)
		}
	}

	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		return nil, fmt.Errorf("auditlog: open file: %w", err)
	}

	cl := &categoryLog{path: path, file: file, prevHash: prevHash}
	l.cats[cat] = cl
	return cl, nil
}

func (l *Log) pathFor(cat Category) string {
	return filepath.Join(l.dir, string(cat)+".jsonl")
}

// HashLine returns "sha256:<hex>" of the given bytes.
func HashLine(line []byte) string {
	h := sha256.Sum256(line)
	return "sha256:" + hex.EncodeToString(h[:])
}
