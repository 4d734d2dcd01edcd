package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/lixenwraith/synth-evolve/audio"
	"github.com/lixenwraith/synth-evolve/fitness"
	"github.com/lixenwraith/synth-evolve/genetic"
	"github.com/lixenwraith/synth-evolve/parameter"
	"github.com/lixenwraith/synth-evolve/search"
)

type bootstrapFlags struct {
	targetWAV    string
	targetGenome string
	targetSeed   uint64
	count        int
	threshold    float64
	recordOnly   bool
}

func newBootstrapCmd(global *globalFlags) *cobra.Command {
	flags := &bootstrapFlags{}
	cmd := &cobra.Command{
		Use:   "bootstrap",
		Short: "Train the preference model against a target sound",
		Long: `Scores each proposal by timbre similarity to a target and submits the
result as like/dislike feedback, so the preference model starts warm before
a human listens. The target is a WAV file, an explicit genome, or a random
patch derived from --target-seed.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runBootstrap(ctx, cmd.OutOrStdout(), global, flags)
		},
	}
	cmd.Flags().StringVar(&flags.targetWAV, "target-wav", "", "WAV file whose timbre is the target")
	cmd.Flags().StringVar(&flags.targetGenome, "target-genome", "", "comma-separated genome whose rendering is the target")
	cmd.Flags().Uint64Var(&flags.targetSeed, "target-seed", 1, "seed for a random target patch when no target is given")
	cmd.Flags().IntVarP(&flags.count, "count", "n", 200, "number of proposals to rate")
	cmd.Flags().Float64Var(&flags.threshold, "threshold", 0.5, "similarity at or above which a proposal is liked")
	cmd.Flags().BoolVar(&flags.recordOnly, "record-only", false, "log labelled samples to the dataset without training")
	return cmd
}

func runBootstrap(ctx context.Context, out io.Writer, global *globalFlags, flags *bootstrapFlags) (err error) {
	if ctx == nil {
		ctx = context.Background()
	}
	a, err := newApp(global)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := a.close(); err == nil {
			err = cerr
		}
	}()
	if err := a.openStorage(ctx); err != nil {
		return err
	}

	target, err := bootstrapTarget(a, flags)
	if err != nil {
		return err
	}
	sim := fitness.NewSimilarity(a.pipeline, a.sampleRate())
	sim.SetTarget(target)

	// Either the learned model or a recorder receives the labels
	var learner fitness.Model
	if flags.recordOnly {
		rec := fitness.NewRecorder(sim, a.dataset, a.logger.With("component", "recorder"))
		rec.SetConfigFlags(a.cfg.Tag())
		learner = rec
	} else {
		m := a.newPreferenceModel(ctx, uuid.NewString())
		m.Start()
		learner = m
	}

	// Search is steered by the similarity score itself so proposals approach the target
	scheduler := a.newScheduler(sim)
	if err := scheduler.Start(); err != nil {
		fitness.Close(learner)
		return err
	}

	liked, rated := runBootstrapLoop(ctx, scheduler.Mailbox(), sim, learner, flags, out)

	stopErr := scheduler.Stop()
	closeErr := fitness.Close(learner)
	if err := a.saveSnapshot(scheduler); err != nil {
		a.logger.Warn("save population failed", "error", err)
	}

	st := scheduler.Stats()
	fmt.Fprintf(out, "rated %d proposals (%d liked) over %d generations, best similarity %.3f\n",
		rated, liked, st.Generation, st.BestSoFar)
	if stopErr != nil {
		return stopErr
	}
	return closeErr
}

// runBootstrapLoop rates proposals until count is reached or ctx is done
func runBootstrapLoop(ctx context.Context, mb *search.Mailbox, sim *fitness.Similarity, learner fitness.Model, flags *bootstrapFlags, out io.Writer) (liked, rated int) {
	// Every bootstrap listen counts as a full audition
	playSeconds := parameter.FeedbackFullWeightPlay.Seconds()

	ticker := time.NewTicker(parameter.GAWaitTimeout / 10)
	defer ticker.Stop()

	for rated < flags.count {
		r, ok := mb.Pop()
		if !ok {
			select {
			case <-ctx.Done():
				return liked, rated
			case <-ticker.C:
				continue
			}
		}

		score := sim.Evaluate(r.Genome)
		rating := bootstrapRating(score, flags.threshold)
		learner.SubmitFeedback(r.Genome, rating, playSeconds)
		rated++
		if rating >= ratingLike {
			liked++
		}
		if rated%25 == 0 {
			fmt.Fprintf(out, "%d/%d rated, last similarity %.3f (%s)\n", rated, flags.count, score, r.Kind)
		}
	}
	return liked, rated
}

// bootstrapRating maps a similarity score to binary feedback
func bootstrapRating(similarity, threshold float64) float64 {
	if similarity >= threshold {
		return ratingLike
	}
	return ratingDislike
}

// bootstrapTarget resolves the raw target feature vector from flags
func bootstrapTarget(a *app, flags *bootstrapFlags) ([]float64, error) {
	switch {
	case flags.targetWAV != "":
		samples, rate, err := audio.ReadWAVFile(flags.targetWAV)
		if err != nil {
			return nil, err
		}
		a.logger.Info("bootstrap target loaded", "path", flags.targetWAV, "sample_rate", rate, "samples", len(samples))
		return a.pipeline.Extractor.Extract(samples, rate), nil

	case flags.targetGenome != "":
		g, err := parseGenome(flags.targetGenome)
		if err != nil {
			return nil, err
		}
		return a.pipeline.Raw(g, a.sampleRate()), nil

	default:
		g := genetic.RandomGenome(parameter.GAGenomeSize, genetic.NewRand(flags.targetSeed))
		genetic.Repair(g)
		return a.pipeline.Raw(g, a.sampleRate()), nil
	}
}
