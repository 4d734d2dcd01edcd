package audio

import (
	"errors"
	"os"
	"os/exec"
	"runtime"
	"strconv"
)

// ErrNoAudioBackend is returned when no playback command or device is available
var ErrNoAudioBackend = errors.New("no compatible audio backend found")

// BackendType identifies how PCM reaches the sound card
type BackendType int

const (
	BackendPulse BackendType = iota
	BackendPipeWire
	BackendALSA
	BackendSoX
	BackendFFplay
	BackendOSS
)

// BackendConfig is a resolved playback backend fed raw s16le stereo
// OSS has no command: Path is the device written directly
type BackendConfig struct {
	Type BackendType
	Name string
	Path string
	Args []string
}

// backendCandidate is a playback command and its arguments for a rate string
type backendCandidate struct {
	typ    BackendType
	name   string
	binary string
	args   func(rate string) []string
}

// backendCandidates is ordered by preference
var backendCandidates = []backendCandidate{
	{BackendPulse, "pacat", "pacat", func(rate string) []string {
		return []string{"--raw", "--format=s16le", "--rate=" + rate, "--channels=2", "--latency-msec=50", "--playback"}
	}},
	{BackendPipeWire, "pw-cat", "pw-cat", func(rate string) []string {
		return []string{"--playback", "--format=s16", "--rate=" + rate, "--channels=2", "--latency=50ms", "-"}
	}},
	{BackendALSA, "aplay", "aplay", func(rate string) []string {
		return []string{"-t", "raw", "-f", "S16_LE", "-r", rate, "-c", "2", "-q"}
	}},
	{BackendSoX, "sox", "play", func(rate string) []string {
		return []string{"-t", "raw", "-e", "signed", "-b", "16", "-c", "2", "-r", rate, "-", "-d", "-q"}
	}},
	{BackendFFplay, "ffplay", "ffplay", func(rate string) []string {
		return []string{"-nodisp", "-autoexit", "-f", "s16le", "-ac", "2", "-ar", rate,
			"-probesize", "32", "-analyzeduration", "0", "-i", "pipe:0", "-loglevel", "quiet"}
	}},
}

// DetectBackend returns the first installed backend able to play 16-bit stereo at sampleRate
func DetectBackend(sampleRate int) (*BackendConfig, error) {
	return detectBackend(sampleRate, exec.LookPath)
}

func detectBackend(sampleRate int, lookPath func(string) (string, error)) (*BackendConfig, error) {
	rate := strconv.Itoa(sampleRate)
	for _, c := range backendCandidates {
		path, err := lookPath(c.binary)
		if err != nil {
			continue
		}
		return &BackendConfig{Type: c.typ, Name: c.name, Path: path, Args: c.args(rate)}, nil
	}

	// FreeBSD without pulse still has the OSS device
	if runtime.GOOS == "freebsd" {
		if _, err := os.Stat("/dev/dsp"); err == nil {
			return &BackendConfig{Type: BackendOSS, Name: "oss", Path: "/dev/dsp"}, nil
		}
	}
	return nil, ErrNoAudioBackend
}
