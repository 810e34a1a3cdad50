package store

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/cwbudde/algo-spectra/internal/clock"
)

var epoch = time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

func openTest(t *testing.T, opts ...Option) *Store {
	t.Helper()
	opts = append([]Option{WithClock(clock.Fake(epoch, time.Second))}, opts...)
	s, err := Open(t.TempDir(), opts...)
	require.NoError(t, err)
	return s
}

func payload(n int) []byte {
	return bytes.Repeat([]byte(fmt.Sprintf("spectrum-%d;", n)), 64)
}

func TestChecksumDeterministic(t *testing.T) {
	a := Checksum([]byte("abc"))
	assert.Equal(t, a, Checksum([]byte("abc")))
	assert.NotEqual(t, a, Checksum([]byte("abd")))
	assert.Len(t, a, ChecksumSize)
	assert.True(t, validChecksum(a))
}

func TestPutGetRead(t *testing.T) {
	for _, c := range []Compression{CompressionNone, CompressionLZ4, CompressionZstd} {
		t.Run(string(c), func(t *testing.T) {
			s := openTest(t, WithCompression(c))
			data := payload(1)

			e, err := s.Put(context.Background(), data, map[string]string{"source": "a.xy"})
			require.NoError(t, err)
			assert.Equal(t, Checksum(data), e.Checksum)
			assert.Equal(t, int64(len(data)), e.Size)
			assert.Equal(t, c, e.Compression)
			assert.Equal(t, 1, e.IngestCount)
			assert.Equal(t, "objects/"+e.Checksum[:2]+"/"+e.Checksum, e.StoragePath)
			assert.FileExists(t, filepath.Join(s.Root(), e.StoragePath))

			got, err := s.Read(context.Background(), e.Checksum)
			require.NoError(t, err)
			assert.Equal(t, data, got)

			_, err = s.Get("missing")
			assert.ErrorIs(t, err, ErrNotFound)
		})
	}
}

func TestIncompressiblePayloadStoredRaw(t *testing.T) {
	s := openTest(t, WithCompression(CompressionZstd))
	e, err := s.Put(context.Background(), []byte{1, 2, 3}, nil)
	require.NoError(t, err)
	assert.Equal(t, CompressionNone, e.Compression)
	assert.Equal(t, int64(3), e.StoredSize)
}

func TestDedupMergesMetadata(t *testing.T) {
	s := openTest(t)
	data := payload(2)
	ctx := context.Background()

	first, err := s.Put(ctx, data, map[string]string{"instrument": "A", "observer": "x"})
	require.NoError(t, err)
	objInfo, err := os.Stat(filepath.Join(s.Root(), first.StoragePath))
	require.NoError(t, err)

	second, err := s.Put(ctx, data, map[string]string{"instrument": "B", "site": "north"})
	require.NoError(t, err)
	third, err := s.Put(ctx, data, map[string]string{"instrument": "B"})
	require.NoError(t, err)
	fourth, err := s.Put(ctx, data, map[string]string{"instrument": "C"})
	require.NoError(t, err)

	assert.Equal(t, 1, s.Len())
	assert.Equal(t, first.Checksum, second.Checksum)
	assert.Equal(t, 4, fourth.IngestCount)
	assert.Equal(t, 3, third.IngestCount)

	want := map[string]string{
		"instrument":   "A",
		"instrument#1": "B",
		"instrument#2": "C",
		"observer":     "x",
		"site":         "north",
	}
	if diff := cmp.Diff(want, fourth.Metadata); diff != "" {
		t.Fatalf("metadata mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, []string{"A", "B", "C"}, fourth.Values("instrument"))
	require.Len(t, fourth.Conflicts, 2)
	assert.Equal(t, "instrument#1", fourth.Conflicts[0].SubKey)
	assert.True(t, fourth.UpdatedAt.After(fourth.CreatedAt))

	after, err := os.Stat(filepath.Join(s.Root(), first.StoragePath))
	require.NoError(t, err)
	assert.Equal(t, objInfo.ModTime(), after.ModTime(), "payload must not be rewritten on dedup")
}

func TestPutLayersKeepFirstValue(t *testing.T) {
	s := openTest(t)

	e, err := s.Put(context.Background(), payload(5),
		map[string]string{"role": "raw"},
		map[string]string{"role": "science", "instrument": "A"},
		map[string]string{"instrument": "B"},
		nil,
	)
	require.NoError(t, err)

	want := map[string]string{
		"role":         "raw",
		"role#1":       "science",
		"instrument":   "A",
		"instrument#1": "B",
	}
	if diff := cmp.Diff(want, e.Metadata); diff != "" {
		t.Fatalf("metadata mismatch (-want +got):\n%s", diff)
	}
	require.Len(t, e.Conflicts, 2)
	assert.Equal(t, "role", e.Conflicts[0].Key)
	assert.Equal(t, "instrument", e.Conflicts[1].Key)
	assert.Equal(t, 1, e.IngestCount)
}

func TestMergeMetadata(t *testing.T) {
	dst := map[string]string{"k": "a", "k#1": "b"}
	conflicts := MergeMetadata(dst, map[string]string{"k": "b", "n": "x"})
	assert.Empty(t, conflicts)
	assert.Equal(t, map[string]string{"k": "a", "k#1": "b", "n": "x"}, dst)

	conflicts = MergeMetadata(dst, map[string]string{"k": "c"})
	require.Len(t, conflicts, 1)
	assert.Equal(t, Conflict{Key: "k", SubKey: "k#2", Value: "c"}, conflicts[0])
	assert.Equal(t, "c", dst["k#2"])
}

func TestIndexPersists(t *testing.T) {
	root := t.TempDir()
	s, err := Open(root, WithPrefixLength(3))
	require.NoError(t, err)

	e, err := s.Put(context.Background(), payload(3), map[string]string{"k": "v"})
	require.NoError(t, err)

	reopened, err := Open(root, WithPrefixLength(3))
	require.NoError(t, err)
	got, err := reopened.Get(e.Checksum)
	require.NoError(t, err)
	assert.Equal(t, "v", got.Metadata["k"])
	assert.Equal(t, "objects/"+e.Checksum[:3]+"/"+e.Checksum, got.StoragePath)
	assert.True(t, got.CreatedAt.Equal(e.CreatedAt))
}

func TestWriteFailureLeavesIndexUnchanged(t *testing.T) {
	root := t.TempDir()
	s, err := Open(root)
	require.NoError(t, err)

	kept, err := s.Put(context.Background(), payload(4), nil)
	require.NoError(t, err)

	s.rename = func(oldpath, newpath string) error {
		if filepath.Base(newpath) == indexFile {
			return errors.New("disk full")
		}
		return os.Rename(oldpath, newpath)
	}

	data := payload(5)
	_, err = s.Put(context.Background(), data, nil)
	require.ErrorIs(t, err, ErrWrite)
	var we *WriteError
	require.ErrorAs(t, err, &we)
	assert.Equal(t, Checksum(data), we.Checksum)

	_, err = s.Get(Checksum(data))
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, 1, s.Len())
	assert.NoFileExists(t, filepath.Join(root, s.objectPath(Checksum(data))))

	tmp, err := os.ReadDir(filepath.Join(root, tmpDir))
	require.NoError(t, err)
	assert.Empty(t, tmp)

	reopened, err := Open(root)
	require.NoError(t, err)
	assert.Equal(t, 1, reopened.Len())
	assert.True(t, reopened.Has(kept.Checksum))
}

func TestCanceledWriteLeavesNoTrace(t *testing.T) {
	tests := []struct {
		name string
		hook func(s *Store, cancel context.CancelFunc)
		op   string
	}{
		{
			name: "after payload sync",
			hook: func(s *Store, cancel context.CancelFunc) {
				s.sync = func(f *os.File) error {
					cancel()
					return f.Sync()
				}
			},
			op: "write payload",
		},
		{
			name: "before index write",
			hook: func(s *Store, cancel context.CancelFunc) {
				s.rename = func(oldpath, newpath string) error {
					err := os.Rename(oldpath, newpath)
					cancel()
					return err
				}
			},
			op: "write index",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			root := t.TempDir()
			s, err := Open(root)
			require.NoError(t, err)

			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()
			tt.hook(s, cancel)

			data := payload(9)
			_, err = s.Put(ctx, data, nil)
			require.ErrorIs(t, err, context.Canceled)
			var we *WriteError
			require.ErrorAs(t, err, &we)
			assert.Equal(t, tt.op, we.Op)

			assert.Equal(t, 0, s.Len())
			assert.NoFileExists(t, filepath.Join(root, s.objectPath(Checksum(data))))
			tmp, err := os.ReadDir(filepath.Join(root, tmpDir))
			require.NoError(t, err)
			assert.Empty(t, tmp)
		})
	}
}

func TestWriteTimeout(t *testing.T) {
	s := openTest(t, WithWriteTimeout(time.Nanosecond))
	time.Sleep(time.Millisecond)

	_, err := s.Put(context.Background(), payload(6), nil)
	require.ErrorIs(t, err, ErrWrite)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, 0, s.Len())
}

func TestReadFlagsCorruptPayload(t *testing.T) {
	root := t.TempDir()
	s, err := Open(root, WithCompression(CompressionNone))
	require.NoError(t, err)

	e, err := s.Put(context.Background(), payload(7), nil)
	require.NoError(t, err)

	objPath := filepath.Join(root, e.StoragePath)
	raw, err := os.ReadFile(objPath)
	require.NoError(t, err)
	raw[0] ^= 0xff
	require.NoError(t, os.WriteFile(objPath, raw, 0o644))

	_, err = s.Read(context.Background(), e.Checksum)
	require.ErrorIs(t, err, ErrIntegrity)

	got, err := s.Get(e.Checksum)
	require.NoError(t, err)
	assert.True(t, got.Flagged)
	assert.Contains(t, got.FlagReason, "checksum mismatch")

	// The flag survives a restart and the entry is not served.
	reopened, err := Open(root)
	require.NoError(t, err)
	_, err = reopened.Read(context.Background(), e.Checksum)
	assert.ErrorIs(t, err, ErrIntegrity)

	// Putting the original bytes again repairs the entry.
	repaired, err := reopened.Put(context.Background(), payload(7), nil)
	require.NoError(t, err)
	assert.False(t, repaired.Flagged)
	data, err := reopened.Read(context.Background(), e.Checksum)
	require.NoError(t, err)
	assert.Equal(t, payload(7), data)
}

func TestVerify(t *testing.T) {
	s := openTest(t)
	ctx := context.Background()

	good, err := s.Put(ctx, payload(8), nil)
	require.NoError(t, err)
	bad, err := s.Put(ctx, payload(9), nil)
	require.NoError(t, err)
	require.NoError(t, os.Remove(filepath.Join(s.Root(), bad.StoragePath)))

	flagged, err := s.Verify(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{bad.Checksum}, flagged)

	e, err := s.Get(bad.Checksum)
	require.NoError(t, err)
	assert.True(t, e.Flagged)
	assert.Equal(t, "payload missing", e.FlagReason)

	_, err = s.Read(ctx, good.Checksum)
	assert.NoError(t, err)

	again, err := s.Verify(ctx)
	require.NoError(t, err)
	assert.Empty(t, again)
}

func TestConcurrentPuts(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	s := openTest(t, WithCompression(CompressionLZ4))
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := range 32 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			// Half the goroutines share a payload to exercise dedup.
			_, err := s.Put(ctx, payload(i%16), map[string]string{"worker": fmt.Sprint(i)})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	entries := s.List()
	require.Len(t, entries, 16)
	for _, e := range entries {
		assert.Equal(t, 2, e.IngestCount)
		assert.Len(t, e.Values("worker"), 2)
	}
}

func TestOpenRejectsBadOptions(t *testing.T) {
	_, err := Open(t.TempDir(), WithPrefixLength(0))
	assert.Error(t, err)
	_, err = Open(t.TempDir(), WithCompression("brotli"))
	assert.Error(t, err)
	_, err = Open(t.TempDir(), WithWriteTimeout(0))
	assert.Error(t, err)
}

func TestOpenRejectsCorruptIndex(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, indexFile), []byte{0xff, 0xfe}, 0o644))
	_, err := Open(root)
	assert.ErrorIs(t, err, ErrIndex)
}

func TestIsSubKey(t *testing.T) {
	assert.True(t, IsSubKey("instrument#2"))
	assert.False(t, IsSubKey("instrument"))
	assert.False(t, IsSubKey("#2"))
	assert.False(t, IsSubKey("a#b"))
}
