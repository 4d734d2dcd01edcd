package storage

import (
	"bytes"
	"context"
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lixenwraith/synth-evolve/parameter"
)

func TestBlob_RoundTrip(t *testing.T) {
	values := []float32{0, 1.5, -2.25, 3e-8}
	var buf bytes.Buffer
	require.NoError(t, EncodeBlob(&buf, values))
	assert.Equal(t, 4+4*len(values), buf.Len())

	got, err := DecodeBlob(bytes.NewReader(buf.Bytes()), len(values))
	require.NoError(t, err)
	assert.Equal(t, values, got)
}

func TestBlob_CountMismatch(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, EncodeBlob(&buf, []float32{1, 2, 3}))

	_, err := DecodeBlob(bytes.NewReader(buf.Bytes()), 4)
	assert.ErrorIs(t, err, ErrBlobCount)
}

func TestBlob_Truncated(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, EncodeBlob(&buf, []float32{1, 2, 3}))
	data := buf.Bytes()[:buf.Len()-2]

	_, err := DecodeBlob(bytes.NewReader(data), -1)
	assert.ErrorIs(t, err, ErrBlobTruncated)

	_, err = DecodeBlob(bytes.NewReader(nil), -1)
	assert.ErrorIs(t, err, ErrBlobTruncated)
}

func TestBlobFile_Missing(t *testing.T) {
	_, ok, err := ReadBlobFile(filepath.Join(t.TempDir(), "none.bin"), 3)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestDataset_HeaderAndAppend(t *testing.T) {
	dir := t.TempDir()
	names := []string{"a", "b"}

	ds, err := OpenDataset(dir, names, nil)
	require.NoError(t, err)
	require.NoError(t, ds.Append(Record{
		Genome:       []float64{0.25, 0.5},
		Rating:       1,
		PlaySeconds:  3.5,
		SampleIndex:  1,
		ConfigFlags:  "adaptive+novelty",
		Timestamp:    time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
		SampleWeight: 0.75,
	}))
	assert.Error(t, ds.Append(Record{Genome: []float64{1}}))
	require.NoError(t, ds.Close())
	assert.ErrorIs(t, ds.Append(Record{Genome: []float64{0, 0}}), ErrDatasetClosed)

	f, err := os.Open(filepath.Join(dir, parameter.DatasetFileName))
	require.NoError(t, err)
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, DatasetHeader(names), rows[0])
	assert.Equal(t, []string{
		"0.250000", "0.500000", "1.0", "3.50", "1", "0.000000", "0.000000",
		"adaptive+novelty", "2026-01-02T03:04:05Z", "0.7500",
	}, rows[1])
}

func TestDataset_ReopenKeepsMatchingFile(t *testing.T) {
	dir := t.TempDir()
	names := []string{"a"}

	ds, err := OpenDataset(dir, names, nil)
	require.NoError(t, err)
	require.NoError(t, ds.Append(Record{Genome: []float64{0.1}}))
	require.NoError(t, ds.Close())

	ds, err = OpenDataset(dir, names, nil)
	require.NoError(t, err)
	assert.Empty(t, ds.Rotated())
	require.NoError(t, ds.Append(Record{Genome: []float64{0.2}}))
	require.NoError(t, ds.Close())

	data, err := os.ReadFile(ds.Path())
	require.NoError(t, err)
	assert.Equal(t, 3, strings.Count(string(data), "\n"))
}

func TestDataset_RotatesOnSchemaChange(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, parameter.DatasetFileName)
	require.NoError(t, os.WriteFile(path, []byte("p0,p1,rating\n0.1,0.2,1\n"), 0644))

	ds, err := OpenDataset(dir, []string{"a", "b"}, nil)
	require.NoError(t, err)
	defer ds.Close()

	require.NotEmpty(t, ds.Rotated())
	assert.True(t, strings.HasPrefix(filepath.Base(ds.Rotated()), parameter.DatasetBackupPrefix))
	old, err := os.ReadFile(ds.Rotated())
	require.NoError(t, err)
	assert.Contains(t, string(old), "p0,p1,rating")

	fresh, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, strings.Join(DatasetHeader([]string{"a", "b"}), ",")+"\n", string(fresh))
}

func testStoreContract(t *testing.T, store Store) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, store.Init(ctx))
	t.Cleanup(func() { _ = store.Close() })

	_, ok, err := store.LoadWeights(ctx, "net")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, store.SaveWeights(ctx, "net", []float32{1, 2}))
	require.NoError(t, store.SaveWeights(ctx, "net", []float32{3, 4, 5}))
	blob, ok, err := store.LoadWeights(ctx, "net")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []float32{3, 4, 5}, blob)

	for i := 0; i < 5; i++ {
		require.NoError(t, store.SaveSample(ctx, Sample{
			Session:   "s",
			CreatedAt: time.Unix(int64(i), 0).UTC(),
			Genome:    []float64{float64(i), 0.5},
			Rating:    float64(i % 2),
			Weight:    1,
		}))
	}
	recent, err := store.RecentSamples(ctx, 3)
	require.NoError(t, err)
	require.Len(t, recent, 3)
	assert.Equal(t, []float64{2, 0.5}, recent[0].Genome)
	assert.Equal(t, []float64{4, 0.5}, recent[2].Genome)
	assert.Equal(t, 0.0, recent[2].Rating)
}

func TestMemoryStore(t *testing.T) {
	testStoreContract(t, NewMemoryStore())
}

func TestFileStore(t *testing.T) {
	dir := t.TempDir()
	testStoreContract(t, NewFileStore(dir))
	_, err := os.Stat(filepath.Join(dir, "net"))
	assert.NoError(t, err)
}

func TestSQLiteStore(t *testing.T) {
	testStoreContract(t, NewSQLiteStore(filepath.Join(t.TempDir(), "test.db")))
}

func TestMemoryStore_RequiresInit(t *testing.T) {
	err := NewMemoryStore().SaveSample(context.Background(), Sample{})
	assert.ErrorIs(t, err, ErrNotInitialized)
}

func TestNewStore(t *testing.T) {
	for _, kind := range []string{BackendMemory, BackendFile, BackendSQLite, ""} {
		store, err := NewStore(kind, t.TempDir())
		require.NoError(t, err, kind)
		assert.NotNil(t, store)
	}
	_, err := NewStore("redis", t.TempDir())
	assert.Error(t, err)
}
