package audio

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"os/exec"
	"sync"
	"sync/atomic"
	"time"

	"github.com/lixenwraith/synth-evolve/genetic"
	"github.com/lixenwraith/synth-evolve/parameter"
)

// ErrPipeClosed wraps write failures on the backend's stdin
var ErrPipeClosed = errors.New("audio pipe closed")

// Player auditions genomes through a piped CLI audio backend
// Without a backend it runs in silent mode and Play reports false
// A new clip interrupts the one playing
type Player struct {
	sampleRate float64
	logger     *slog.Logger
	detect     func(int) (*BackendConfig, error)

	backend *BackendConfig
	cmd     *exec.Cmd
	output  io.WriteCloser

	queue    chan []float64
	stopChan chan struct{}
	errChan  chan error

	running atomic.Bool
	muted   atomic.Bool
	silent  atomic.Bool

	mu     sync.RWMutex // protects volume
	volume float64

	played  atomic.Uint64
	dropped atomic.Uint64

	wg sync.WaitGroup
}

// NewPlayer creates a stopped player for sampleRate
func NewPlayer(sampleRate float64, logger *slog.Logger) *Player {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Player{
		sampleRate: sampleRate,
		logger:     logger,
		detect:     DetectBackend,
		volume:     parameter.AudioDefaultVolume,
	}
}

// Start launches the detected backend
// Missing backends are not an error: the player enters silent mode
func (p *Player) Start() error {
	if p.running.Load() {
		return fmt.Errorf("audio player already running")
	}

	backend, err := p.detect(int(p.sampleRate))
	if err != nil {
		p.logger.Info("audio playback disabled", "reason", err)
		p.silent.Store(true)
		p.running.Store(true)
		return nil
	}
	p.backend = backend

	var writer io.WriteCloser
	if backend.Type == BackendOSS {
		f, err := os.OpenFile(backend.Path, os.O_WRONLY, 0)
		if err != nil {
			p.logger.Warn("open oss device failed", "path", backend.Path, "error", err)
			p.silent.Store(true)
			p.running.Store(true)
			return nil
		}
		writer = f
	} else {
		cmd := exec.Command(backend.Path, backend.Args...)
		stdin, err := cmd.StdinPipe()
		if err != nil {
			p.silent.Store(true)
			p.running.Store(true)
			return nil
		}
		if err := cmd.Start(); err != nil {
			stdin.Close()
			p.logger.Warn("start audio backend failed", "backend", backend.Name, "error", err)
			p.silent.Store(true)
			p.running.Store(true)
			return nil
		}
		p.cmd = cmd
		writer = stdin

		p.wg.Add(1)
		go p.monitorProcess()
	}

	p.logger.Info("audio playback started", "backend", backend.Name)
	p.startOutput(writer)
	return nil
}

// StartWriter streams PCM to w instead of a detected backend
func (p *Player) StartWriter(w io.WriteCloser) error {
	if p.running.Load() {
		return fmt.Errorf("audio player already running")
	}
	p.startOutput(w)
	return nil
}

func (p *Player) startOutput(w io.WriteCloser) {
	p.output = w
	p.queue = make(chan []float64, 1)
	p.stopChan = make(chan struct{})
	p.errChan = make(chan error, 1)
	p.silent.Store(false)
	p.running.Store(true)

	p.wg.Add(1)
	go p.loop()
}

// monitorProcess watches for subprocess exit
func (p *Player) monitorProcess() {
	defer p.wg.Done()

	err := p.cmd.Wait()
	if err != nil && p.running.Load() && !p.silent.Load() {
		p.logger.Warn("audio backend exited", "error", err)
		p.silent.Store(true)
	}
}

// loop writes the current clip, or silence, at a fixed cadence
func (p *Player) loop() {
	defer p.wg.Done()

	ticker := time.NewTicker(parameter.AudioBufferDuration)
	defer ticker.Stop()

	perTick := max(1, int(p.sampleRate*parameter.AudioBufferDuration.Seconds()))
	chunk := make([]float64, perTick)
	outBytes := make([]byte, perTick*parameter.AudioBytesPerFrame)

	var current []float64
	pos := 0

	for {
		select {
		case <-p.stopChan:
			return

		case clip := <-p.queue:
			current, pos = clip, 0

		case <-ticker.C:
			clear(chunk)
			if pos < len(current) {
				n := copy(chunk, current[pos:])
				pos += n
				vol := p.Volume()
				for i := 0; i < n; i++ {
					chunk[i] *= vol
				}
			}
			floatToBytes(chunk, outBytes)

			if _, err := p.output.Write(outBytes); err != nil {
				select {
				case p.errChan <- fmt.Errorf("%w: %v", ErrPipeClosed, err):
				default:
				}
				p.silent.Store(true)
				return
			}
		}
	}
}

// Play renders the audition phrase of g and queues it
// Returns false when nothing will be heard
func (p *Player) Play(g genetic.Genome) bool {
	if !p.IsEnabled() {
		return false
	}
	return p.PlaySamples(Renderer{}.Render(g, p.sampleRate))
}

// PlaySamples queues a mono clip, replacing any clip not yet picked up
func (p *Player) PlaySamples(samples []float64) bool {
	if !p.IsEnabled() {
		return false
	}
	for {
		select {
		case p.queue <- samples:
			p.played.Add(1)
			return true
		default:
		}
		select {
		case <-p.queue:
			p.dropped.Add(1)
		default:
		}
	}
}

// Errors returns the channel receiving pipe write failures
func (p *Player) Errors() <-chan error {
	return p.errChan
}

// Stop terminates playback and the backend process
func (p *Player) Stop() {
	if !p.running.CompareAndSwap(true, false) {
		return
	}

	if p.stopChan != nil {
		close(p.stopChan)
	}
	if p.output != nil {
		p.output.Close()
	}
	if p.cmd != nil && p.cmd.Process != nil {
		// Give the backend a moment to drain before killing it
		done := make(chan struct{})
		go func() {
			p.wg.Wait()
			close(done)
		}()
		select {
		case <-done:
		case <-time.After(parameter.AudioDrainTimeout):
			p.cmd.Process.Kill()
		}
	}
	p.wg.Wait()
}

// ToggleMute toggles mute state, returns true if now audible
func (p *Player) ToggleMute() bool {
	newMute := !p.muted.Load()
	p.muted.Store(newMute)
	return !newMute
}

// IsMuted returns current mute state
func (p *Player) IsMuted() bool {
	return p.muted.Load()
}

// IsEnabled returns true if running, unmuted and attached to an output
func (p *Player) IsEnabled() bool {
	return p.running.Load() && !p.muted.Load() && !p.silent.Load()
}

// IsRunning returns true if the player is running (even in silent mode)
func (p *Player) IsRunning() bool {
	return p.running.Load()
}

// BackendName returns the active backend, empty in silent mode
func (p *Player) BackendName() string {
	if p.backend == nil || p.silent.Load() {
		return ""
	}
	return p.backend.Name
}

// SetVolume updates playback gain (0.0-1.0)
func (p *Player) SetVolume(vol float64) {
	vol = min(max(vol, 0), 1)
	p.mu.Lock()
	p.volume = vol
	p.mu.Unlock()
}

// Volume returns playback gain
func (p *Player) Volume() float64 {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.volume
}

// Stats returns queued and superseded clip counts
func (p *Player) Stats() (played, dropped uint64) {
	return p.played.Load(), p.dropped.Load()
}

// floatToBytes converts mono samples to interleaved s16le stereo with soft limiting
func floatToBytes(in []float64, out []byte) {
	for i, v := range in {
		v = softLimit(v)
		v = math.Max(-1, math.Min(1, v))

		i16 := int16(v * 32767)
		idx := i * parameter.AudioBytesPerFrame
		binary.LittleEndian.PutUint16(out[idx:], uint16(i16))   // L
		binary.LittleEndian.PutUint16(out[idx+2:], uint16(i16)) // R
	}
}
