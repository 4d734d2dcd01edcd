package storage

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/lixenwraith/synth-evolve/parameter"
)

// Fixed trailing dataset columns after the gene names
var datasetColumns = []string{
	"rating", "playTimeSeconds", "sampleIndex", "mlpPrediction", "audioPrediction",
	"configFlags", "timestamp", "sampleWeight",
}

// ErrDatasetClosed is returned when appending to a closed dataset
var ErrDatasetClosed = errors.New("dataset is closed")

// Record is one dataset row
type Record struct {
	Genome          []float64
	Rating          float64
	PlaySeconds     float64
	SampleIndex     uint64
	MLPPrediction   float64
	AudioPrediction float64
	ConfigFlags     string
	Timestamp       time.Time
	SampleWeight    float64
}

// Dataset is an append-only CSV feedback log with a fixed header
// An existing file with a different header is rotated to a timestamped backup
type Dataset struct {
	mu      sync.Mutex
	path    string
	header  []string
	file    *os.File
	writer  *csv.Writer
	rotated string
}

// OpenDataset opens or creates the dataset file in dir for the given gene names
func OpenDataset(dir string, geneNames []string, logger *slog.Logger) (*Dataset, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}

	d := &Dataset{
		path:   filepath.Join(dir, parameter.DatasetFileName),
		header: DatasetHeader(geneNames),
	}

	existing, err := readHeaderLine(d.path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return nil, err
	case existing == "":
	case existing != strings.Join(d.header, ","):
		backup, err := rotate(d.path, time.Now())
		if err != nil {
			return nil, fmt.Errorf("rotate dataset: %w", err)
		}
		d.rotated = backup
		logger.Info("dataset schema changed, rotated", "backup", filepath.Base(backup))
	}

	f, err := os.OpenFile(d.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, err
	}
	d.file = f
	d.writer = csv.NewWriter(f)

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}
	if info.Size() == 0 {
		if err := d.writeRow(d.header); err != nil {
			f.Close()
			return nil, err
		}
	}

	return d, nil
}

// DatasetHeader returns the column names for the given gene names
func DatasetHeader(geneNames []string) []string {
	header := make([]string, 0, len(geneNames)+len(datasetColumns))
	header = append(header, geneNames...)
	return append(header, datasetColumns...)
}

// Path returns the active dataset file
func (d *Dataset) Path() string {
	return d.path
}

// Rotated returns the backup path created on open, or empty
func (d *Dataset) Rotated() string {
	return d.rotated
}

// Append writes one row and flushes it
func (d *Dataset) Append(r Record) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.file == nil {
		return ErrDatasetClosed
	}

	genes := len(d.header) - len(datasetColumns)
	if len(r.Genome) != genes {
		return fmt.Errorf("dataset row has %d genes, header has %d", len(r.Genome), genes)
	}

	row := make([]string, 0, len(d.header))
	for _, g := range r.Genome {
		row = append(row, strconv.FormatFloat(g, 'f', 6, 64))
	}
	ts := r.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	row = append(row,
		strconv.FormatFloat(r.Rating, 'f', 1, 64),
		strconv.FormatFloat(r.PlaySeconds, 'f', 2, 64),
		strconv.FormatUint(r.SampleIndex, 10),
		strconv.FormatFloat(r.MLPPrediction, 'f', 6, 64),
		strconv.FormatFloat(r.AudioPrediction, 'f', 6, 64),
		r.ConfigFlags,
		ts.Format(time.RFC3339Nano),
		strconv.FormatFloat(r.SampleWeight, 'f', 4, 64),
	)

	return d.writeRow(row)
}

// Close flushes and closes the file
func (d *Dataset) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.file == nil {
		return nil
	}
	d.writer.Flush()
	err := errors.Join(d.writer.Error(), d.file.Close())
	d.file = nil
	return err
}

func (d *Dataset) writeRow(row []string) error {
	if err := d.writer.Write(row); err != nil {
		return err
	}
	d.writer.Flush()
	return d.writer.Error()
}

func readHeaderLine(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	if scanner.Scan() {
		return strings.TrimSpace(scanner.Text()), nil
	}
	return "", scanner.Err()
}

func rotate(path string, now time.Time) (string, error) {
	dir := filepath.Dir(path)
	base := parameter.DatasetBackupPrefix + now.Format("20060102_150405")
	backup := filepath.Join(dir, base+".csv")
	for i := 1; ; i++ {
		if _, err := os.Stat(backup); errors.Is(err, os.ErrNotExist) {
			break
		}
		backup = filepath.Join(dir, fmt.Sprintf("%s_%d.csv", base, i))
	}
	return backup, os.Rename(path, backup)
}
