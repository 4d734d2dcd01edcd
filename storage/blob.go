package storage

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
)

// Weight blob layout, little-endian
// [Count:4][Value:4 x Count], values are IEEE-754 float32
const blobHeaderSize = 4

var (
	// ErrBlobCount is returned when a blob holds a different element count than expected
	ErrBlobCount = errors.New("weight blob count mismatch")
	// ErrBlobTruncated is returned when a blob ends before its declared count
	ErrBlobTruncated = errors.New("weight blob truncated")
)

// EncodeBlob writes a count-prefixed float32 sequence
func EncodeBlob(w io.Writer, values []float32) error {
	if uint64(len(values)) > math.MaxUint32 {
		return errors.New("blob exceeds maximum size")
	}

	buf := make([]byte, blobHeaderSize+4*len(values))
	binary.LittleEndian.PutUint32(buf[0:4], uint32(len(values)))
	for i, v := range values {
		off := blobHeaderSize + 4*i
		binary.LittleEndian.PutUint32(buf[off:off+4], math.Float32bits(v))
	}

	_, err := w.Write(buf)
	return err
}

// DecodeBlob reads a count-prefixed float32 sequence
// expected < 0 accepts any count
func DecodeBlob(r io.Reader, expected int) ([]float32, error) {
	header := make([]byte, blobHeaderSize)
	if _, err := io.ReadFull(r, header); err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF) {
			return nil, ErrBlobTruncated
		}
		return nil, err
	}

	count := binary.LittleEndian.Uint32(header)
	if expected >= 0 && uint64(count) != uint64(expected) {
		return nil, fmt.Errorf("%w: have %d, want %d", ErrBlobCount, count, expected)
	}

	payload := make([]byte, 4*int(count))
	if _, err := io.ReadFull(r, payload); err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF) {
			return nil, ErrBlobTruncated
		}
		return nil, err
	}

	values := make([]float32, count)
	for i := range values {
		values[i] = math.Float32frombits(binary.LittleEndian.Uint32(payload[4*i:]))
	}
	return values, nil
}

// WriteBlobFile replaces path atomically with an encoded blob
func WriteBlobFile(path string, values []float32) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return err
	}
	if err := EncodeBlob(f, values); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, path)
}

// ReadBlobFile loads a blob; ok is false when the file does not exist
func ReadBlobFile(path string, expected int) ([]float32, bool, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, false, nil
		}
		return nil, false, err
	}
	defer f.Close()

	values, err := DecodeBlob(f, expected)
	if err != nil {
		return nil, false, err
	}
	return values, true, nil
}
