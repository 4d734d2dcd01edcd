package audio

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/wav"

	"github.com/lixenwraith/synth-evolve/genetic"
	"github.com/lixenwraith/synth-evolve/parameter"
)

// ErrEmptyWAV is returned when a decoded file has no samples
var ErrEmptyWAV = errors.New("wav file contains no samples")

// WAVFormat is the export format: 16-bit stereo at sampleRate
func WAVFormat(sampleRate float64) beep.Format {
	return beep.Format{
		SampleRate:  beep.SampleRate(int(sampleRate)),
		NumChannels: parameter.AudioChannels,
		Precision:   parameter.AudioBitDepth / 8,
	}
}

// WriteWAV encodes the audition phrase of g into w
func WriteWAV(w io.WriteSeeker, g genetic.Genome, sampleRate float64) error {
	seq := PhraseStreamer(g, sampleRate)
	if err := wav.Encode(w, beep.Take(seq.Len(), seq), WAVFormat(sampleRate)); err != nil {
		return fmt.Errorf("encode wav: %w", err)
	}
	return nil
}

// WriteWAVFile renders g into a WAV file at path
func WriteWAVFile(path string, g genetic.Genome, sampleRate float64) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := WriteWAV(f, g, sampleRate); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// ReadWAV decodes a WAV stream into mono samples and its sample rate
// At most maxSamples are read; 0 reads the whole stream
func ReadWAV(r io.Reader, maxSamples int) ([]float64, float64, error) {
	streamer, format, err := wav.Decode(r)
	if err != nil {
		return nil, 0, fmt.Errorf("decode wav: %w", err)
	}
	defer streamer.Close()

	limit := streamer.Len()
	if maxSamples > 0 && (limit <= 0 || limit > maxSamples) {
		limit = maxSamples
	}
	samples := Drain(streamer, limit)
	if err := streamer.Err(); err != nil {
		return nil, 0, fmt.Errorf("read wav: %w", err)
	}
	if len(samples) == 0 {
		return nil, 0, ErrEmptyWAV
	}
	return samples, float64(format.SampleRate), nil
}

// ReadWAVFile decodes the WAV file at path, truncated to the audition phrase length
func ReadWAVFile(path string) ([]float64, float64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	// Phrase length depends on the file rate, so trim after decode
	samples, rate, err := ReadWAV(f, 0)
	if err != nil {
		return nil, 0, err
	}
	if limit := int(rate * parameter.AudioPhraseDuration.Seconds()); len(samples) > limit {
		samples = samples[:limit]
	}
	return samples, rate, nil
}
