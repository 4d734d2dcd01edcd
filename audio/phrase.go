package audio

import (
	"sort"

	"github.com/gopxl/beep"

	"github.com/lixenwraith/synth-evolve/genetic"
	"github.com/lixenwraith/synth-evolve/parameter"
)

// NoteEvent is a note-on or note-off at a sample offset
type NoteEvent struct {
	Offset   int
	Note     int
	Velocity int // 0 for note-off
}

// Phrase returns the audition phrase events and its length in samples
// Four notes share the window equally; each is released just before the next starts
func Phrase(sampleRate float64) ([]NoteEvent, int) {
	total := int(sampleRate * parameter.AudioPhraseDuration.Seconds())
	noteLen := total / len(parameter.AudioPhraseNotes)

	events := make([]NoteEvent, 0, 2*len(parameter.AudioPhraseNotes))
	last := len(parameter.AudioPhraseNotes) - 1
	for i, note := range parameter.AudioPhraseNotes {
		on := i * noteLen
		off := (i+1)*noteLen - parameter.AudioNoteGapSamples
		if i == last {
			off = total - parameter.AudioTailGapSamples
		}
		events = append(events,
			NoteEvent{Offset: on, Note: note, Velocity: parameter.AudioPhraseVelocities[i]},
			NoteEvent{Offset: max(on, off), Note: note},
		)
	}
	sort.SliceStable(events, func(a, b int) bool { return events[a].Offset < events[b].Offset })
	return events, total
}

// Sequence plays timed note events through a synth
// It implements beep.Streamer and ends after length samples
type Sequence struct {
	synth  *Synth
	events []NoteEvent
	next   int
	pos    int
	length int
}

// NewSequence creates a sequence over a reset synth
func NewSequence(synth *Synth, events []NoteEvent, length int) *Sequence {
	synth.Reset()
	return &Sequence{synth: synth, events: events, length: length}
}

// PhraseStreamer returns a finite streamer playing the audition phrase with g's patch
func PhraseStreamer(g genetic.Genome, sampleRate float64) *Sequence {
	events, total := Phrase(sampleRate)
	return NewSequence(NewSynth(g, sampleRate), events, total)
}

// Len returns the sequence length in samples
func (q *Sequence) Len() int {
	return q.length
}

// Position returns the number of samples streamed so far
func (q *Sequence) Position() int {
	return q.pos
}

// Stream renders up to the next event boundary at a time
func (q *Sequence) Stream(samples [][2]float64) (n int, ok bool) {
	for n < len(samples) && q.pos < q.length {
		q.fire()

		end := q.length
		if q.next < len(q.events) {
			end = min(end, q.events[q.next].Offset)
		}
		chunk := min(len(samples)-n, end-q.pos)
		q.synth.Stream(samples[n : n+chunk])
		n += chunk
		q.pos += chunk
	}
	return n, n > 0
}

// Err always returns nil
func (q *Sequence) Err() error {
	return nil
}

func (q *Sequence) fire() {
	for q.next < len(q.events) && q.events[q.next].Offset <= q.pos {
		e := q.events[q.next]
		if e.Velocity > 0 {
			q.synth.NoteOn(e.Note, e.Velocity)
		} else {
			q.synth.NoteOff(e.Note)
		}
		q.next++
	}
}

// Renderer renders genomes as the audition phrase
type Renderer struct{}

// Render returns the mono audition phrase of g
func (Renderer) Render(g genetic.Genome, sampleRate float64) []float64 {
	seq := PhraseStreamer(g, sampleRate)
	return Drain(beep.Take(seq.Len(), seq), seq.Len())
}

// Drain reads a streamer to exhaustion into a mono buffer of at most limit samples
// Channels are averaged
func Drain(s beep.Streamer, limit int) []float64 {
	out := make([]float64, 0, limit)
	buf := make([][2]float64, 512)
	for len(out) < limit {
		want := min(len(buf), limit-len(out))
		n, ok := s.Stream(buf[:want])
		for i := 0; i < n; i++ {
			out = append(out, 0.5*(buf[i][0]+buf[i][1]))
		}
		if !ok {
			break
		}
	}
	return out
}
