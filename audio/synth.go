package audio

import (
	"math"
	"math/rand/v2"

	"github.com/lixenwraith/synth-evolve/genetic"
	"github.com/lixenwraith/synth-evolve/parameter"
)

// noiseSeed fixes the noise sequence so renders are reproducible
const noiseSeed = 22222

// Synth is a polyphonic subtractive synthesizer driven by a Patch
// It implements beep.Streamer and never ends; callers bound it with beep.Take
// Not safe for concurrent use
type Synth struct {
	sampleRate float64
	patch      Patch
	voices     [parameter.AudioVoiceCount]voice

	noise     *rand.Rand
	lfoPhase  float64
	lfoStep   int
	filterZip float64
}

// NewSynth creates a silent synth with the patch of g
func NewSynth(g genetic.Genome, sampleRate float64) *Synth {
	s := &Synth{sampleRate: sampleRate}
	s.SetGenome(g)
	s.Reset()
	return s
}

// SetGenome replaces the patch; sounding voices keep their envelope coefficients
func (s *Synth) SetGenome(g genetic.Genome) {
	s.patch = PatchFromGenome(g, s.sampleRate)
}

// Patch returns the active patch
func (s *Synth) Patch() Patch {
	return s.patch
}

// Reset silences every voice and rewinds modulation and noise state
func (s *Synth) Reset() {
	for i := range s.voices {
		s.voices[i].reset()
		s.voices[i].filter.sampleRate = s.sampleRate
	}
	s.noise = rand.New(rand.NewPCG(noiseSeed, noiseSeed))
	s.lfoPhase = 0
	s.lfoStep = 0
	s.filterZip = 0
}

// NoteOn starts note on the quietest voice not in attack
// Velocity 0 is treated as note-off
func (s *Synth) NoteOn(note, velocity int) {
	if velocity <= 0 {
		s.NoteOff(note)
		return
	}
	v := s.freeVoice()
	s.voices[v].start(&s.patch, note, velocity, s.sampleRate)
	s.voices[v].control(&s.patch, s.filterZip)
}

// NoteOff releases every voice playing note
func (s *Synth) NoteOff(note int) {
	for i := range s.voices {
		if s.voices[i].note == note {
			s.voices[i].release()
			s.voices[i].note = 0
		}
	}
}

// Active reports whether any voice is still sounding
func (s *Synth) Active() bool {
	for i := range s.voices {
		if s.voices[i].env.active() {
			return true
		}
	}
	return false
}

func (s *Synth) freeVoice() int {
	best := 0
	lowest := math.Inf(1)
	for i := range s.voices {
		v := &s.voices[i]
		if v.env.level < lowest && !v.env.inAttack() {
			lowest = v.env.level
			best = i
		}
	}
	return best
}

// Stream renders mono output into both channels
func (s *Synth) Stream(samples [][2]float64) (n int, ok bool) {
	for i := range samples {
		v := s.next()
		samples[i][0] = v
		samples[i][1] = v
	}
	return len(samples), true
}

// Err always returns nil
func (s *Synth) Err() error {
	return nil
}

func (s *Synth) next() float64 {
	s.lfoStep--
	if s.lfoStep <= 0 {
		s.lfoStep = parameter.AudioControlRate
		s.updateModulation()
	}

	noise := (s.noise.Float64()*2 - 1) * s.patch.NoiseMix
	out := 0.0
	for i := range s.voices {
		v := &s.voices[i]
		if !v.env.active() {
			continue
		}
		out += v.render(&s.patch, noise)
	}
	return softLimit(out * s.patch.OutputTrim)
}

func (s *Synth) updateModulation() {
	s.lfoPhase += s.patch.LFOIncrement
	if s.lfoPhase > math.Pi {
		s.lfoPhase -= 2 * math.Pi
	}
	sine := math.Sin(s.lfoPhase)

	filterMod := s.patch.FilterKeyTrack + s.patch.FilterLFODepth*sine
	s.filterZip += 0.005 * (filterMod - s.filterZip)

	for i := range s.voices {
		v := &s.voices[i]
		if !v.env.active() {
			// Idle voices drop filter state so the next note starts clean
			if v.note == 0 {
				v.filter.ic1, v.filter.ic2 = 0, 0
			}
			continue
		}
		v.vibratoMod = 1 + sine*s.patch.Vibrato
		v.pulseMod = 1 + sine*s.patch.PulseModulation
		v.control(&s.patch, s.filterZip)
	}
}
