package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/lixenwraith/synth-evolve/audio"
	"github.com/lixenwraith/synth-evolve/features"
	"github.com/lixenwraith/synth-evolve/genetic"
	"github.com/lixenwraith/synth-evolve/genetic/persistence"
	"github.com/lixenwraith/synth-evolve/parameter"
)

type renderFlags struct {
	genome   string
	seed     uint64
	best     bool
	output   string
	features bool
}

func newRenderCmd(global *globalFlags) *cobra.Command {
	flags := &renderFlags{}
	cmd := &cobra.Command{
		Use:   "render",
		Short: "Render a patch's audition phrase to a WAV file",
		Long: `Renders the C4-E4-G4-C5 audition phrase for one genome. The genome is
taken from --genome, the best member of the saved population (--best), or a
random patch from --seed.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runRender(cmd.OutOrStdout(), global, flags)
		},
	}
	cmd.Flags().StringVar(&flags.genome, "genome", "", "comma-separated gene values in [0,1]")
	cmd.Flags().Uint64Var(&flags.seed, "seed", 0, "seed for a random patch (0 picks one)")
	cmd.Flags().BoolVar(&flags.best, "best", false, "render the best member of the saved population")
	cmd.Flags().StringVarP(&flags.output, "output", "o", "patch.wav", "output WAV path")
	cmd.Flags().BoolVar(&flags.features, "features", false, "print the normalized feature vector")
	return cmd
}

func runRender(out io.Writer, global *globalFlags, flags *renderFlags) (err error) {
	a, err := newApp(global)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := a.close(); err == nil {
			err = cerr
		}
	}()

	g, source, err := renderGenome(a, flags)
	if err != nil {
		return err
	}
	genetic.Repair(g)

	if err := audio.WriteWAVFile(flags.output, g, a.sampleRate()); err != nil {
		return err
	}
	fmt.Fprintf(out, "wrote %s (%s, %d Hz)\n", flags.output, source, a.cfg.Audio.SampleRate)
	fmt.Fprintln(out, formatGenome(g))

	if flags.features {
		feats := features.Normalize(a.pipeline.Raw(g, a.sampleRate()))
		fmt.Fprintln(out, formatGenome(feats))
	}
	return nil
}

func renderGenome(a *app, flags *renderFlags) (genetic.Genome, string, error) {
	switch {
	case flags.genome != "":
		g, err := parseGenome(flags.genome)
		return g, "genome flag", err

	case flags.best:
		dto, err := persistence.NewManager(a.snapshotDir()).Load(snapshotName)
		if err != nil {
			return nil, "", fmt.Errorf("load population: %w", err)
		}
		members, _ := dto.ToIndividuals(parameter.GAGenomeSize)
		best := -1
		for i := range members {
			if !members[i].Evaluated() {
				continue
			}
			if best < 0 || members[i].Fitness() > members[best].Fitness() {
				best = i
			}
		}
		if best < 0 {
			return nil, "", fmt.Errorf("saved population has no evaluated members")
		}
		return members[best].Genes().Clone(), fmt.Sprintf("saved best, fitness %.3f", members[best].Fitness()), nil

	default:
		return genetic.RandomGenome(parameter.GAGenomeSize, genetic.NewRand(flags.seed)), "random", nil
	}
}

// parseGenome reads comma-separated gene values, clamped to [0,1]
func parseGenome(s string) (genetic.Genome, error) {
	fields := strings.Split(s, ",")
	if len(fields) != parameter.GAGenomeSize {
		return nil, fmt.Errorf("%w: got %d values, want %d", genetic.ErrGenomeLength, len(fields), parameter.GAGenomeSize)
	}
	g := make(genetic.Genome, len(fields))
	for i, f := range fields {
		v, err := strconv.ParseFloat(strings.TrimSpace(f), 64)
		if err != nil {
			return nil, fmt.Errorf("gene %d: %w", i, err)
		}
		g[i] = min(max(v, 0), 1)
	}
	return g, nil
}

func formatGenome(g []float64) string {
	parts := make([]string, len(g))
	for i, v := range g {
		parts[i] = strconv.FormatFloat(v, 'f', 4, 64)
	}
	return strings.Join(parts, ",")
}
