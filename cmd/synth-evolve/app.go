package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/lixenwraith/synth-evolve/audio"
	"github.com/lixenwraith/synth-evolve/config"
	"github.com/lixenwraith/synth-evolve/features"
	"github.com/lixenwraith/synth-evolve/fitness"
	"github.com/lixenwraith/synth-evolve/genetic"
	"github.com/lixenwraith/synth-evolve/genetic/persistence"
	"github.com/lixenwraith/synth-evolve/logging"
	"github.com/lixenwraith/synth-evolve/metrics"
	"github.com/lixenwraith/synth-evolve/parameter"
	"github.com/lixenwraith/synth-evolve/preference"
	"github.com/lixenwraith/synth-evolve/search"
	"github.com/lixenwraith/synth-evolve/storage"
)

// snapshotName is the population snapshot resumed on the next run
const snapshotName = "population"

// app holds the components shared by every subcommand
type app struct {
	cfg     config.Config
	cfgPath string

	logger    *slog.Logger
	logCloser io.Closer

	registry *prometheus.Registry
	metrics  *metrics.Metrics

	pipeline features.Pipeline
	cache    *features.Cache

	store     storage.Store
	dataset   *storage.Dataset
	snapshots *persistence.Manager
}

// newApp loads configuration and sets up logging, metrics and the feature pipeline
// Storage is opened separately by openStorage since render and config need none
func newApp(flags *globalFlags) (*app, error) {
	logger, closer := logging.Setup(flags.debug, flags.logDir)

	path := flags.configPath
	if path == "" {
		path = config.DefaultFileName
	}
	cfg, fixes, err := config.Load(path)
	if err != nil {
		closer.Close()
		return nil, err
	}
	for _, f := range fixes {
		logger.Warn("config corrected", "detail", f)
	}

	reg := prometheus.NewRegistry()
	a := &app{
		cfg:       cfg,
		cfgPath:   path,
		logger:    logger,
		logCloser: closer,
		registry:  reg,
		metrics:   metrics.New(reg),
		pipeline:  features.Pipeline{Renderer: audio.Renderer{}, Extractor: audio.NewExtractor()},
	}
	a.cache = features.NewCache(a.pipeline, a.sampleRate(), parameter.FeatureCacheCapacity)
	a.cache.SetMetrics(a.metrics)

	logger.Info("configuration loaded", "path", path, "tag", cfg.Tag())
	return a, nil
}

func (a *app) sampleRate() float64 {
	return float64(a.cfg.Audio.SampleRate)
}

// openStorage opens the weight/sample store, the CSV dataset and the snapshot manager
func (a *app) openStorage(ctx context.Context) error {
	dir := a.cfg.Model.DataDir
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}

	store, err := storage.NewStore(a.cfg.Model.Store, dir)
	if err != nil {
		return err
	}
	if err := store.Init(ctx); err != nil {
		return fmt.Errorf("init %s store: %w", a.cfg.Model.Store, err)
	}
	a.store = store

	dataset, err := storage.OpenDataset(dir, genetic.GeneNames[:], a.logger)
	if err != nil {
		return fmt.Errorf("open dataset: %w", err)
	}
	if rotated := dataset.Rotated(); rotated != "" {
		a.logger.Warn("dataset schema changed, previous file rotated", "backup", rotated)
	}
	a.dataset = dataset

	a.snapshots = persistence.NewManager(a.snapshotDir())
	return nil
}

func (a *app) snapshotDir() string {
	return filepath.Join(a.cfg.Model.DataDir, "snapshots")
}

// newPreferenceModel builds the learned model over the opened storage
func (a *app) newPreferenceModel(ctx context.Context, session string) *preference.Model {
	return preference.New(ctx, preference.Options{
		Store:        a.store,
		Dataset:      a.dataset,
		Features:     a.cache,
		Modality:     a.cfg.Modality(),
		GenomeSize:   parameter.GAGenomeSize,
		LearningRate: a.cfg.Model.LearningRate,
		ReplayBatch:  a.cfg.Model.ReplayBatch,
		Seed:         a.cfg.Search.Seed,
		Session:      session,
		ConfigFlags:  a.cfg.Tag(),
		Logger:       a.logger.With("component", "preference"),
		Metrics:      a.metrics,
	})
}

// newScheduler builds a scheduler scoring with m
func (a *app) newScheduler(m fitness.Model) *search.Scheduler {
	return search.NewScheduler(search.Options{
		Model:   m,
		Config:  a.cfg.SearchConfig(),
		Logger:  a.logger.With("component", "search"),
		Metrics: a.metrics,
	})
}

// resumeSnapshot seeds s from the last saved population, if any
func (a *app) resumeSnapshot(s *search.Scheduler) {
	if a.snapshots == nil {
		return
	}
	dto, err := a.snapshots.Load(snapshotName)
	if errors.Is(err, persistence.ErrNoSnapshot) {
		return
	}
	if err != nil {
		a.logger.Warn("population snapshot unreadable", "error", err)
		return
	}
	seed, dropped := dto.ToIndividuals(parameter.GAGenomeSize)
	if dropped > 0 {
		a.logger.Warn("snapshot candidates dropped", "count", dropped)
	}
	if err := s.Seed(seed); err != nil {
		a.logger.Warn("seed scheduler failed", "error", err)
		return
	}
	a.logger.Info("population resumed", "session", dto.Session, "candidates", len(seed))
}

// saveSnapshot persists the population of s for the next run
func (a *app) saveSnapshot(s *search.Scheduler) error {
	if a.snapshots == nil {
		return nil
	}
	members := s.Snapshot()
	if len(members) == 0 {
		return nil
	}
	st := s.Stats()
	return a.snapshots.Save(snapshotName, persistence.FromIndividuals(st.Session, st.Generation, members))
}

// close releases storage and the log file
func (a *app) close() error {
	var errs []error
	if a.dataset != nil {
		errs = append(errs, a.dataset.Close())
	}
	if a.store != nil {
		errs = append(errs, a.store.Close())
	}
	errs = append(errs, a.logCloser.Close())
	return errors.Join(errs...)
}
