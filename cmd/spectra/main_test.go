package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cwbudde/algo-spectra/config"
)

const sampleXY = `# axis_unit: angstrom
# intensity_unit: %T
4000 50
5000 25
6000 10
`

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv(config.EnvVar, "")

	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestIngestAndReplayExport(t *testing.T) {
	dir := t.TempDir()
	cache := filepath.Join(dir, "cache")
	src := filepath.Join(dir, "sample.xy")
	require.NoError(t, os.WriteFile(src, []byte(sampleXY), 0o644))

	first := filepath.Join(dir, "first")
	out, err := run(t, "--store", cache, "ingest", "--normalize", "2", "--display-intensity", "%T", "--bundle", first, src)
	require.NoError(t, err, out)
	assert.Contains(t, out, "calibrated")

	out, err = run(t, "--store", cache, "ingest", src)
	require.NoError(t, err, out)
	assert.Contains(t, out, "cached")

	second := filepath.Join(dir, "second")
	out, err = run(t, "--store", cache, "export", "--manifest", filepath.Join(first, "manifest.json"), "--out", second)
	require.NoError(t, err, out)

	want, err := os.ReadDir(filepath.Join(first, "spectra"))
	require.NoError(t, err)
	require.Len(t, want, 1)
	a, err := os.ReadFile(filepath.Join(first, "spectra", want[0].Name()))
	require.NoError(t, err)
	b, err := os.ReadFile(filepath.Join(second, "spectra", want[0].Name()))
	require.NoError(t, err)
	assert.Equal(t, string(a), string(b))

	out, err = run(t, "--store", cache, "list", "--role", "raw")
	require.NoError(t, err, out)
	assert.Equal(t, 2, len(strings.Split(strings.TrimSpace(out), "\n")), out)

	out, err = run(t, "--store", cache, "verify")
	require.NoError(t, err, out)
	assert.Contains(t, out, "payload(s) ok")
}

func TestIngestReportsFailures(t *testing.T) {
	dir := t.TempDir()
	bad := filepath.Join(dir, "bad.xy")
	require.NoError(t, os.WriteFile(bad, []byte("400 1\n"), 0o644))

	out, err := run(t, "--store", filepath.Join(dir, "cache"), "ingest", bad)
	require.ErrorIs(t, err, errFailures)
	assert.Contains(t, out, "error:")
}

func TestIngestResolutionNeedsSource(t *testing.T) {
	_, err := run(t, "--store", t.TempDir(), "ingest", "--target-fwhm", "2", "x.xy")
	require.Error(t, err)
}

func TestConvert(t *testing.T) {
	out, err := run(t, "convert", "--from", "angstrom", "--to", "nm", "5000", "6500")
	require.NoError(t, err)
	assert.Equal(t, "500 650", strings.TrimSpace(out))

	out, err = run(t, "convert", "--domain", "intensity", "--from", "%T", "--to", "transmittance", "50")
	require.NoError(t, err)
	v, err := strconv.ParseFloat(strings.TrimSpace(out), 64)
	require.NoError(t, err)
	assert.InDelta(t, 0.5, v, 1e-12)

	_, err = run(t, "convert", "--domain", "intensity", "--from", "counts", "--to", "absorbance", "1")
	require.Error(t, err)

	_, err = run(t, "convert", "--domain", "phase", "--from", "nm", "--to", "nm", "1")
	require.Error(t, err)
}
