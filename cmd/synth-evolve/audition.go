package main

import (
	"time"

	"github.com/lixenwraith/synth-evolve/fitness"
	"github.com/lixenwraith/synth-evolve/genetic"
	"github.com/lixenwraith/synth-evolve/search"
)

// Ratings sent for the like and dislike keys
const (
	ratingLike    = 1.0
	ratingDislike = 0.0
)

// auditionPlayer plays a genome; false when nothing will be heard
type auditionPlayer interface {
	Play(g genetic.Genome) bool
}

// audition tracks the proposal under review and turns ratings into feedback
// Not safe for concurrent use; owned by the host loop
type audition struct {
	mailbox *search.Mailbox
	model   fitness.Model
	player  auditionPlayer
	now     func() time.Time

	current  search.Result
	has      bool
	loadedAt time.Time

	liked    uint64
	disliked uint64
	skipped  uint64
}

func newAudition(mb *search.Mailbox, m fitness.Model, p auditionPlayer) *audition {
	return &audition{mailbox: mb, model: m, player: p, now: time.Now}
}

// fetch loads the next proposal when one is waiting and plays it
func (a *audition) fetch() bool {
	r, ok := a.mailbox.Pop()
	if !ok {
		return false
	}
	a.current = r
	a.has = true
	a.loadedAt = a.now()
	a.play()
	return true
}

// Current returns the proposal under review
func (a *audition) Current() (search.Result, bool) {
	return a.current, a.has
}

// playSeconds is the time the current proposal has been auditioned
func (a *audition) playSeconds() float64 {
	if !a.has {
		return 0
	}
	return a.now().Sub(a.loadedAt).Seconds()
}

// rate submits feedback for the current proposal and moves on
// Returns false when nothing is under review
func (a *audition) rate(rating float64) bool {
	if !a.has {
		return false
	}
	a.model.SubmitFeedback(a.current.Genome, rating, a.playSeconds())
	if rating >= ratingLike {
		a.liked++
	} else {
		a.disliked++
	}
	a.has = false
	a.fetch()
	return true
}

// skip moves to the next proposal without feedback
func (a *audition) skip() bool {
	if !a.has {
		return false
	}
	a.skipped++
	a.has = false
	a.fetch()
	return true
}

// play restarts playback of the current proposal
func (a *audition) play() bool {
	if !a.has || a.player == nil {
		return false
	}
	return a.player.Play(a.current.Genome)
}
