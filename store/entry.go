package store

import (
	"maps"
	"slices"
	"strconv"
	"strings"
	"time"
)

// Entry is the index record of one cached payload.
type Entry struct {
	Checksum    string            `cbor:"checksum" json:"checksum"`
	Metadata    map[string]string `cbor:"metadata" json:"metadata"`
	Conflicts   []Conflict        `cbor:"conflicts,omitempty" json:"conflicts,omitempty"`
	StoragePath string            `cbor:"storage_path" json:"storage_path"`
	Size        int64             `cbor:"size" json:"size"`
	StoredSize  int64             `cbor:"stored_size" json:"stored_size"`
	Compression Compression       `cbor:"compression" json:"compression"`
	CreatedAt   time.Time         `cbor:"created_at" json:"created_at"`
	UpdatedAt   time.Time         `cbor:"updated_at" json:"updated_at"`
	IngestCount int               `cbor:"ingest_count" json:"ingest_count"`
	Flagged     bool              `cbor:"flagged,omitempty" json:"flagged,omitempty"`
	FlagReason  string            `cbor:"flag_reason,omitempty" json:"flag_reason,omitempty"`
}

// Conflict records a metadata value that disagreed with the value already
// stored under Key and was kept under SubKey instead.
type Conflict struct {
	Key        string    `cbor:"key" json:"key"`
	SubKey     string    `cbor:"sub_key" json:"sub_key"`
	Value      string    `cbor:"value" json:"value"`
	RecordedAt time.Time `cbor:"recorded_at" json:"recorded_at"`
}

func (e *Entry) clone() *Entry {
	c := *e
	c.Metadata = maps.Clone(e.Metadata)
	c.Conflicts = slices.Clone(e.Conflicts)
	return &c
}

// Values returns every value recorded for key: the original first, then
// the disambiguated values in the order they arrived.
func (e *Entry) Values(key string) []string {
	v, ok := e.Metadata[key]
	if !ok {
		return nil
	}
	out := []string{v}
	for _, c := range e.Conflicts {
		if c.Key == key {
			out = append(out, e.Metadata[c.SubKey])
		}
	}
	return out
}

// mergeMetadata folds incoming into e and records the conflicts.
func (e *Entry) mergeMetadata(incoming map[string]string, now time.Time) {
	if e.Metadata == nil {
		e.Metadata = make(map[string]string, len(incoming))
	}
	for _, c := range MergeMetadata(e.Metadata, incoming) {
		c.RecordedAt = now
		e.Conflicts = append(e.Conflicts, c)
	}
}

// MergeMetadata folds incoming into dst. A key that already holds a
// different value keeps it; the new value goes under the next free "key#N"
// sub-key and is returned as a Conflict. Values already recorded under the
// key or one of its sub-keys are skipped. Keys are visited in sorted order
// so the sub-key numbering is deterministic.
func MergeMetadata(dst, incoming map[string]string) []Conflict {
	var conflicts []Conflict
	for _, k := range slices.Sorted(maps.Keys(incoming)) {
		v := incoming[k]
		old, ok := dst[k]
		if !ok {
			dst[k] = v
			continue
		}
		if old == v || hasSubValue(dst, k, v) {
			continue
		}

		sub := nextSubKey(dst, k)
		dst[sub] = v
		conflicts = append(conflicts, Conflict{Key: k, SubKey: sub, Value: v})
	}
	return conflicts
}

func hasSubValue(meta map[string]string, key, value string) bool {
	prefix := key + "#"
	for k, v := range meta {
		if v != value || !strings.HasPrefix(k, prefix) {
			continue
		}
		if _, err := strconv.Atoi(k[len(prefix):]); err == nil {
			return true
		}
	}
	return false
}

func nextSubKey(meta map[string]string, key string) string {
	for n := 1; ; n++ {
		sub := key + "#" + strconv.Itoa(n)
		if _, taken := meta[sub]; !taken {
			return sub
		}
	}
}

// IsSubKey reports whether key is a disambiguated "key#N" sub-key.
func IsSubKey(key string) bool {
	i := strings.LastIndexByte(key, '#')
	if i <= 0 || i == len(key)-1 {
		return false
	}
	_, err := strconv.Atoi(key[i+1:])
	return err == nil
}
