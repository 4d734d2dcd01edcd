package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/lixenwraith/synth-evolve/audio"
	"github.com/lixenwraith/synth-evolve/config"
)

type runFlags struct {
	metricsAddr string
	noResume    bool
	watch       bool
}

func newRunCmd(global *globalFlags) *cobra.Command {
	flags := &runFlags{}
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Start the terminal audition panel",
		Long: `Runs the search in the background and auditions each proposal.
Like or dislike a patch to train the preference model; skip to move on.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runHost(cmd.Context(), global, flags)
		},
	}
	cmd.Flags().StringVar(&flags.metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address (e.g. :9464)")
	cmd.Flags().BoolVar(&flags.noResume, "fresh", false, "ignore the saved population and start from random patches")
	cmd.Flags().BoolVar(&flags.watch, "watch", true, "reload the config file when it changes")
	return cmd
}

func runHost(parent context.Context, global *globalFlags, flags *runFlags) (err error) {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(global)
	if err != nil {
		return err
	}
	defer func() {
		err = errors.Join(err, a.close())
	}()

	if err := a.openStorage(ctx); err != nil {
		return err
	}

	session := uuid.NewString()
	model := a.newPreferenceModel(ctx, session)
	model.Start()

	scheduler := a.newScheduler(model)
	if !flags.noResume {
		a.resumeSnapshot(scheduler)
	}

	var player *audio.Player
	if a.cfg.Audio.Playback {
		player = audio.NewPlayer(a.sampleRate(), a.logger.With("component", "audio"))
		if err := player.Start(); err != nil {
			a.logger.Warn("audio playback unavailable", "error", err)
			player = nil
		} else {
			player.SetVolume(a.cfg.Audio.Volume)
		}
	}

	abort := func(cause error) error {
		if player != nil {
			player.Stop()
		}
		return errors.Join(cause, model.Close())
	}

	screen, err := tcell.NewScreen()
	if err != nil {
		return abort(fmt.Errorf("create screen: %w", err))
	}
	if err := screen.Init(); err != nil {
		return abort(fmt.Errorf("init screen: %w", err))
	}

	if err := scheduler.Start(); err != nil {
		screen.Fini()
		return abort(err)
	}

	reload := make(chan config.Config, 1)
	h := newHost(screen, a, scheduler, model, player, reload)

	g, gctx := errgroup.WithContext(ctx)
	hostCtx, quit := context.WithCancel(gctx)
	defer quit()

	g.Go(func() error {
		// Leaving the panel ends the session for every other goroutine
		defer quit()
		defer screen.Fini()
		return h.run(hostCtx)
	})

	if flags.watch {
		g.Go(func() error {
			return config.Watch(hostCtx, a.cfgPath, a.logger, func(c config.Config) {
				select {
				case reload <- c:
				default:
					// Drop a stale pending reload in favour of the latest
					select {
					case <-reload:
					default:
					}
					reload <- c
				}
			})
		})
	}

	if flags.metricsAddr != "" {
		g.Go(func() error {
			return serveMetrics(hostCtx, a, flags.metricsAddr)
		})
	}

	runErr := g.Wait()

	// Shutdown order: search first so no new proposals, then training, then audio
	stopErr := scheduler.Stop()
	if serr := a.saveSnapshot(scheduler); serr != nil {
		a.logger.Warn("save population failed", "error", serr)
	}
	closeErr := model.Close()
	if player != nil {
		player.Stop()
	}

	st := scheduler.Stats()
	ms := model.Stats()
	a.logger.Info("session ended",
		"session", session,
		"generations", st.Generation,
		"published", st.Published,
		"trained", ms.Trained,
	)
	return errors.Join(runErr, stopErr, closeErr)
}

// serveMetrics exposes the app registry until ctx is done
func serveMetrics(ctx context.Context, a *app, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(a.registry, promhttp.HandlerOpts{Registry: a.registry}))
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()
	a.logger.Info("metrics server listening", "addr", addr)

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("metrics server: %w", err)
	}
}
