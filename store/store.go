package store

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"maps"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strings"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/cwbudde/algo-spectra/internal/codec"
)

const (
	indexFile  = "index.cbor"
	objectsDir = "objects"
	tmpDir     = "tmp"

	indexVersion = 1
)

// snapshot is an immutable view of the index. Entries are never modified
// once published; mutations replace them.
type snapshot map[string]*Entry

type indexDoc struct {
	Version int     `cbor:"version"`
	Entries []Entry `cbor:"entries"`
}

// Store is a content-addressed payload cache rooted at a directory.
// It is safe for concurrent use.
type Store struct {
	root string
	cfg  config

	// lock is a one-slot semaphore serializing index mutations; unlike a
	// sync.Mutex it can be abandoned when the write deadline expires.
	lock  chan struct{}
	index atomic.Pointer[snapshot]

	// rename and sync are os.Rename and (*os.File).Sync; tests replace
	// them to inject failures.
	rename func(oldpath, newpath string) error
	sync   func(*os.File) error
}

// Open opens or creates the cache at root.
func Open(root string, opts ...Option) (*Store, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(&cfg); err != nil {
			return nil, err
		}
	}

	for _, dir := range []string{root, filepath.Join(root, objectsDir), filepath.Join(root, tmpDir)} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("store: create %s: %w", dir, err)
		}
	}
	cleanTmp(filepath.Join(root, tmpDir), cfg.logger)

	s := &Store{
		root:   root,
		cfg:    cfg,
		lock:   make(chan struct{}, 1),
		rename: os.Rename,
		sync:   (*os.File).Sync,
	}

	snap, err := s.loadIndex()
	if err != nil {
		return nil, err
	}
	s.index.Store(&snap)

	cfg.logger.Debug("store opened", zap.String("root", root), zap.Int("entries", len(snap)))
	return s, nil
}

// Root returns the cache directory.
func (s *Store) Root() string { return s.root }

// Len returns the number of entries.
func (s *Store) Len() int { return len(*s.index.Load()) }

// Put stores payload and merges metadata into its entry. The metadata maps
// are merged in order, so a later map never overwrites an earlier value:
// conflicts land under "key#N" sub-keys and in Entry.Conflicts. Putting a
// payload that is already cached only updates metadata and counters;
// putting one whose entry is flagged rewrites the payload and clears the
// flag.
func (s *Store) Put(ctx context.Context, payload []byte, metadata ...map[string]string) (*Entry, error) {
	sum := Checksum(payload)

	ctx, cancel := context.WithTimeout(ctx, s.cfg.writeTimeout)
	defer cancel()

	if err := s.acquire(ctx); err != nil {
		return nil, &WriteError{Op: "lock", Checksum: sum, Err: err}
	}
	defer s.release()

	cur := *s.index.Load()
	now := s.cfg.clock.Now()

	var (
		entry   *Entry
		created string
	)
	if old, ok := cur[sum]; ok {
		entry = old.clone()
		for _, m := range metadata {
			entry.mergeMetadata(m, now)
		}
		entry.IngestCount++
		entry.UpdatedAt = now
		if entry.Flagged {
			if err := s.writeObject(ctx, entry, payload); err != nil {
				return nil, err
			}
			entry.Flagged, entry.FlagReason = false, ""
		}
	} else {
		entry = &Entry{
			Checksum:    sum,
			Metadata:    map[string]string{},
			StoragePath: s.objectPath(sum),
			Size:        int64(len(payload)),
			CreatedAt:   now,
			UpdatedAt:   now,
			IngestCount: 1,
		}
		for _, m := range metadata {
			entry.mergeMetadata(m, now)
		}
		if err := s.writeObject(ctx, entry, payload); err != nil {
			return nil, err
		}
		created = filepath.Join(s.root, filepath.FromSlash(entry.StoragePath))
	}

	next := maps.Clone(cur)
	next[sum] = entry
	if err := s.persist(ctx, next); err != nil {
		if created != "" {
			os.Remove(created)
		}
		return nil, &WriteError{Op: "write index", Checksum: sum, Err: err}
	}
	s.index.Store(&next)

	s.cfg.logger.Debug("payload stored",
		zap.String("checksum", sum),
		zap.Bool("dedup", created == ""),
		zap.Int("ingest_count", entry.IngestCount),
		zap.Int("conflicts", len(entry.Conflicts)))

	return entry.clone(), nil
}

// Get returns a copy of the entry for checksum.
func (s *Store) Get(checksum string) (*Entry, error) {
	e, ok := (*s.index.Load())[checksum]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, checksum)
	}
	return e.clone(), nil
}

// Has reports whether checksum is cached.
func (s *Store) Has(checksum string) bool {
	_, ok := (*s.index.Load())[checksum]
	return ok
}

// List returns copies of all entries ordered by checksum.
func (s *Store) List() []Entry {
	snap := *s.index.Load()
	out := make([]Entry, 0, len(snap))
	for _, e := range snap {
		out = append(out, *e.clone())
	}
	slices.SortFunc(out, func(a, b Entry) int { return strings.Compare(a.Checksum, b.Checksum) })
	return out
}

// Read returns the verified payload for checksum.
func (s *Store) Read(ctx context.Context, checksum string) ([]byte, error) {
	e, err := s.Get(checksum)
	if err != nil {
		return nil, err
	}
	if e.Flagged {
		return nil, &IntegrityError{Checksum: checksum, Reason: e.FlagReason}
	}

	data, reason := s.load(e)
	if reason == "" {
		return data, nil
	}

	s.cfg.logger.Warn("payload failed verification", zap.String("checksum", checksum), zap.String("reason", reason))
	if err := s.flag(ctx, map[string]string{checksum: reason}); err != nil {
		return nil, errors.Join(&IntegrityError{Checksum: checksum, Reason: reason}, err)
	}
	return nil, &IntegrityError{Checksum: checksum, Reason: reason}
}

// Verify re-hashes every unflagged payload, flags the ones that no longer
// match and returns their checksums.
func (s *Store) Verify(ctx context.Context) ([]string, error) {
	bad := map[string]string{}
	for _, e := range s.List() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if e.Flagged {
			continue
		}
		if _, reason := s.load(&e); reason != "" {
			bad[e.Checksum] = reason
		}
	}
	if len(bad) == 0 {
		return nil, nil
	}

	if err := s.flag(ctx, bad); err != nil {
		return nil, err
	}
	sums := slices.Sorted(maps.Keys(bad))
	s.cfg.logger.Warn("integrity sweep flagged entries", zap.Strings("checksums", sums))
	return sums, nil
}

// load reads and verifies a payload. A non-empty reason means it failed.
func (s *Store) load(e *Entry) ([]byte, string) {
	raw, err := os.ReadFile(filepath.Join(s.root, filepath.FromSlash(e.StoragePath)))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, "payload missing"
		}
		return nil, "read payload: " + err.Error()
	}
	data, err := decompress(raw, e.Compression, e.Size)
	if err != nil {
		return nil, err.Error()
	}
	if got := Checksum(data); got != e.Checksum {
		return nil, "checksum mismatch: payload hashes to " + got
	}
	return data, ""
}

func (s *Store) flag(ctx context.Context, reasons map[string]string) error {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.writeTimeout)
	defer cancel()

	if err := s.acquire(ctx); err != nil {
		return &WriteError{Op: "lock", Err: err}
	}
	defer s.release()

	next := maps.Clone(*s.index.Load())
	for sum, reason := range reasons {
		old, ok := next[sum]
		if !ok {
			continue
		}
		e := old.clone()
		e.Flagged, e.FlagReason = true, reason
		e.UpdatedAt = s.cfg.clock.Now()
		next[sum] = e
	}

	if err := s.persist(ctx, next); err != nil {
		return &WriteError{Op: "flag", Err: err}
	}
	s.index.Store(&next)
	return nil
}

func (s *Store) acquire(ctx context.Context) error {
	select {
	case s.lock <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Store) release() { <-s.lock }

func (s *Store) objectPath(sum string) string {
	return path.Join(objectsDir, sum[:s.cfg.prefixLength], sum)
}

func (s *Store) writeObject(ctx context.Context, e *Entry, payload []byte) error {
	if err := ctx.Err(); err != nil {
		return &WriteError{Op: "write payload", Checksum: e.Checksum, Err: err}
	}

	stored, c, err := compress(payload, s.cfg.compression)
	if err != nil {
		return &WriteError{Op: "compress payload", Checksum: e.Checksum, Err: err}
	}

	final := filepath.Join(s.root, filepath.FromSlash(e.StoragePath))
	if err := os.MkdirAll(filepath.Dir(final), 0o755); err != nil {
		return &WriteError{Op: "write payload", Checksum: e.Checksum, Err: err}
	}
	if err := s.writeAtomic(ctx, final, stored); err != nil {
		return &WriteError{Op: "write payload", Checksum: e.Checksum, Err: err}
	}

	e.Compression = c
	e.StoredSize = int64(len(stored))
	return nil
}

func (s *Store) persist(ctx context.Context, snap snapshot) error {
	doc := indexDoc{Version: indexVersion, Entries: make([]Entry, 0, len(snap))}
	for _, e := range snap {
		doc.Entries = append(doc.Entries, *e)
	}
	slices.SortFunc(doc.Entries, func(a, b Entry) int { return strings.Compare(a.Checksum, b.Checksum) })

	data, err := codec.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode index: %w", err)
	}
	return s.writeAtomic(ctx, filepath.Join(s.root, indexFile), data)
}

// writeAtomic stages data in tmp/, syncs it and renames it into place.
// The temp file is removed on any failure. ctx is checked before each of
// the three steps; a write or fsync already in progress runs to completion.
func (s *Store) writeAtomic(ctx context.Context, final string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Join(s.root, tmpDir), "write-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()

	success := false
	defer func() {
		if !success {
			os.Remove(tmpPath)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := ctx.Err(); err != nil {
		tmp.Close()
		return err
	}
	if err := s.sync(tmp); err != nil {
		tmp.Close()
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.rename(tmpPath, final); err != nil {
		return fmt.Errorf("rename to %s: %w", final, err)
	}

	success = true
	return nil
}

func (s *Store) loadIndex() (snapshot, error) {
	data, err := os.ReadFile(filepath.Join(s.root, indexFile))
	if errors.Is(err, fs.ErrNotExist) {
		return snapshot{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrIndex, err)
	}

	var doc indexDoc
	if err := codec.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrIndex, err)
	}
	if doc.Version != indexVersion {
		return nil, fmt.Errorf("%w: version %d", ErrIndex, doc.Version)
	}

	snap := make(snapshot, len(doc.Entries))
	for i := range doc.Entries {
		e := doc.Entries[i]
		if !validChecksum(e.Checksum) {
			return nil, fmt.Errorf("%w: bad checksum %q", ErrIndex, e.Checksum)
		}
		if e.Metadata == nil {
			e.Metadata = map[string]string{}
		}
		snap[e.Checksum] = &e
	}
	return snap, nil
}

// cleanTmp removes files left behind by interrupted writes.
func cleanTmp(dir string, logger *zap.Logger) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return
	}
	for _, de := range entries {
		if err := os.Remove(filepath.Join(dir, de.Name())); err != nil {
			logger.Warn("stale temp file not removed", zap.String("name", de.Name()), zap.Error(err))
		}
	}
}
