package main

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/gdamore/tcell/v2"

	"github.com/lixenwraith/synth-evolve/audio"
	"github.com/lixenwraith/synth-evolve/config"
	"github.com/lixenwraith/synth-evolve/fitness"
	"github.com/lixenwraith/synth-evolve/genetic"
	"github.com/lixenwraith/synth-evolve/preference"
	"github.com/lixenwraith/synth-evolve/search"
)

const (
	// frameInterval matches a 30 fps control panel
	frameInterval = 33 * time.Millisecond
	statusTimeout = 3 * time.Second
	barWidth      = 32
	nameWidth     = 14
)

var (
	styleDefault = tcell.StyleDefault
	styleTitle   = tcell.StyleDefault.Foreground(tcell.ColorAqua).Bold(true)
	styleDim     = tcell.StyleDefault.Foreground(tcell.ColorGray)
	styleBar     = tcell.StyleDefault.Foreground(tcell.ColorGreen)
	styleExplore = tcell.StyleDefault.Foreground(tcell.ColorYellow)
	styleStatus  = tcell.StyleDefault.Foreground(tcell.ColorWhite).Reverse(true)
)

// host is the terminal audition panel
// The run loop is the only goroutine touching screen, audition and cfg
type host struct {
	screen    tcell.Screen
	app       *app
	scheduler *search.Scheduler
	model     *preference.Model
	player    *audio.Player
	audition  *audition
	reload    <-chan config.Config

	cfg      config.Config
	status   string
	statusAt time.Time
}

func newHost(screen tcell.Screen, a *app, s *search.Scheduler, m *preference.Model, p *audio.Player, reload <-chan config.Config) *host {
	var ap auditionPlayer
	if p != nil {
		ap = p
	}
	var fm fitness.Model = fitness.Constant{}
	if m != nil {
		fm = m
	}
	return &host{
		screen:    screen,
		app:       a,
		scheduler: s,
		model:     m,
		player:    p,
		audition:  newAudition(s.Mailbox(), fm, ap),
		reload:    reload,
		cfg:       a.cfg,
	}
}

// run drives input, redraw and config reloads until quit or ctx is done
func (h *host) run(ctx context.Context) error {
	ticker := time.NewTicker(frameInterval)
	defer ticker.Stop()

	events := make(chan tcell.Event, 100)
	done := make(chan struct{})
	defer close(done)
	go func() {
		for {
			ev := h.screen.PollEvent()
			if ev == nil {
				return
			}
			select {
			case events <- ev:
			case <-done:
				return
			}
		}
	}()

	h.audition.fetch()
	h.draw()

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev := <-events:
			if !h.handleEvent(ev) {
				return nil
			}
			h.draw()

		case cfg := <-h.reload:
			h.applyConfig(cfg)
			h.setStatus("config reloaded: " + cfg.Tag())

		case <-ticker.C:
			if _, ok := h.audition.Current(); !ok {
				h.audition.fetch()
			}
			h.draw()
		}
	}
}

// handleEvent applies one input event; false requests exit
func (h *host) handleEvent(ev tcell.Event) bool {
	switch ev := ev.(type) {
	case *tcell.EventKey:
		switch ev.Key() {
		case tcell.KeyEscape, tcell.KeyCtrlC:
			return false
		case tcell.KeyRight:
			h.like()
			return true
		case tcell.KeyLeft:
			h.dislike()
			return true
		case tcell.KeyTab:
			h.skip()
			return true
		case tcell.KeyRune:
		default:
			return true
		}

		switch ev.Rune() {
		case 'q':
			return false
		case 'l':
			h.like()
		case 'd':
			h.dislike()
		case 'n':
			h.skip()
		case ' ':
			if h.audition.play() {
				h.setStatus("replaying")
			}
		case 'p':
			h.togglePause()
		case 'm':
			if h.player != nil {
				if h.player.ToggleMute() {
					h.setStatus("sound on")
				} else {
					h.setStatus("muted")
				}
			}
		case 'e':
			h.cycleExperiment()
		case 'i':
			h.toggleInput()
		case 's':
			if err := h.app.saveSnapshot(h.scheduler); err != nil {
				h.setStatus("snapshot failed: " + err.Error())
			} else {
				h.setStatus("population saved")
			}
		}

	case *tcell.EventResize:
		h.screen.Sync()
	}
	return true
}

func (h *host) like() {
	if h.audition.rate(ratingLike) {
		h.setStatus("liked")
	}
}

func (h *host) dislike() {
	if h.audition.rate(ratingDislike) {
		h.setStatus("disliked")
	}
}

func (h *host) skip() {
	if h.audition.skip() {
		h.setStatus("skipped")
	}
}

func (h *host) togglePause() {
	switch h.scheduler.State() {
	case search.StateRunning:
		h.scheduler.Pause()
		h.setStatus("search paused")
	case search.StatePaused:
		h.scheduler.Resume()
		h.setStatus("search resumed")
	}
}

// cycleExperiment moves to the next preset; custom toggles restart at baseline
func (h *host) cycleExperiment() {
	cfg := h.cfg
	next := config.Experiments[0]
	if i := slices.Index(config.Experiments, cfg.Experiment()); i >= 0 {
		next = config.Experiments[(i+1)%len(config.Experiments)]
	}
	if err := cfg.ApplyExperiment(next); err != nil {
		h.app.logger.Warn("apply experiment failed", "experiment", next, "error", err)
		h.setStatus("experiment unchanged: " + err.Error())
		return
	}
	h.applyConfig(cfg)
	h.setStatus("experiment: " + next)
}

func (h *host) toggleInput() {
	cfg := h.cfg
	if cfg.Model.Input == config.InputAudio {
		cfg.Model.Input = config.InputGenome
	} else {
		cfg.Model.Input = config.InputAudio
	}
	h.applyConfig(cfg)
	h.setStatus("input: " + h.cfg.Model.Input)
}

// applyConfig pushes toggles to the scheduler, model and player
func (h *host) applyConfig(cfg config.Config) {
	if cfg.Audio.SampleRate != h.cfg.Audio.SampleRate {
		// Cached features were rendered at the old rate
		h.app.cfg.Audio.SampleRate = cfg.Audio.SampleRate
		h.app.cache.SetSampleRate(h.app.sampleRate())
		if h.player != nil {
			h.app.logger.Info("playback keeps its sample rate until restart",
				"playback_rate", h.cfg.Audio.SampleRate, "render_rate", cfg.Audio.SampleRate)
		}
	}
	h.cfg = cfg
	h.scheduler.SetConfig(cfg.SearchConfig())
	if h.model != nil {
		h.model.SetModality(cfg.Modality())
		h.model.SetConfigFlags(cfg.Tag())
	}
	if h.player != nil {
		h.player.SetVolume(cfg.Audio.Volume)
	}
}

func (h *host) setStatus(msg string) {
	h.status = msg
	h.statusAt = time.Now()
}

func (h *host) draw() {
	h.screen.Clear()

	y := 0
	h.text(0, y, styleTitle, "synth-evolve")
	st := h.scheduler.Stats()
	h.text(14, y, styleDim, fmt.Sprintf("%s  gen %d  best %.3f  avg %.3f  eps %.2f  [%s]",
		st.State, st.Generation, st.BestFitness, st.AverageFitness, st.Epsilon, h.cfg.Tag()))
	y += 2

	cur, ok := h.audition.Current()
	if !ok {
		h.text(0, y, styleDim, "waiting for the next proposal...")
	} else {
		style := styleDefault
		if cur.Kind == search.KindExplore {
			style = styleExplore
		}
		h.text(0, y, style, fmt.Sprintf("proposal: %-7s fitness %.3f  generation %d  listening %.1fs",
			cur.Kind, cur.Fitness, cur.Generation, h.audition.playSeconds()))
		y += 2
		y = h.drawGenome(y, cur.Genome)
	}
	y++

	if h.model != nil {
		ms := h.model.Stats()
		h.text(0, y, styleDim, fmt.Sprintf("model: %s  trained %d  replay %d  dropped %d",
			h.model.Modality(), ms.Trained, ms.Replay, ms.Dropped))
		y++
	}
	cs := h.app.cache.Stats()
	h.text(0, y, styleDim, fmt.Sprintf("cache: %d entries  hits %d  misses %d", cs.Size, cs.Hits, cs.Misses))
	y++
	audioLine := "audio: silent"
	if h.player != nil && h.player.BackendName() != "" {
		audioLine = "audio: " + h.player.BackendName()
		if h.player.IsMuted() {
			audioLine += " (muted)"
		}
	}
	h.text(0, y, styleDim, fmt.Sprintf("%s  liked %d  disliked %d  skipped %d",
		audioLine, h.audition.liked, h.audition.disliked, h.audition.skipped))
	y += 2

	h.text(0, y, styleDim, "l/→ like  d/← dislike  n/tab skip  space replay  p pause  m mute  e experiment  i input  s save  q quit")
	y += 2

	if h.status != "" && time.Since(h.statusAt) < statusTimeout {
		h.text(0, y, styleStatus, " "+h.status+" ")
	}

	h.screen.Show()
}

func (h *host) drawGenome(y int, g genetic.Genome) int {
	for i, v := range g {
		name := fmt.Sprintf("gene%d", i)
		if i < len(genetic.GeneNames) {
			name = genetic.GeneNames[i]
		}
		h.text(0, y, styleDefault, fmt.Sprintf("%-*s", nameWidth, name))
		filled := int(v*barWidth + 0.5)
		for x := 0; x < barWidth; x++ {
			r, style := '░', styleDim
			if x < filled {
				r, style = '█', styleBar
			}
			h.screen.SetContent(nameWidth+1+x, y, r, nil, style)
		}
		h.text(nameWidth+barWidth+2, y, styleDim, fmt.Sprintf("%.3f", v))
		y++
	}
	return y
}

func (h *host) text(x, y int, style tcell.Style, s string) {
	for _, r := range s {
		h.screen.SetContent(x, y, r, nil, style)
		x++
	}
}
