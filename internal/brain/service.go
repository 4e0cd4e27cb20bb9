// Package brain implements the lifecycle of named brains: configuration,
// accumulating observations, two-pass training and cached prediction.
package brain

import (
	"context"
	"errors"
	"io/fs"
	"time"

	"github.com/sirupsen/logrus"

	"learninghouse/internal/data"
	"learninghouse/internal/fault"
	"learninghouse/internal/history"
	"learninghouse/internal/metrics"
	"learninghouse/internal/models"
	"learninghouse/internal/preprocessing"
	"learninghouse/internal/sensors"
	"learninghouse/internal/versions"
)

// SensorRegistry provides the current sensor types.
type SensorRegistry interface {
	Load() (sensors.Sensors, error)
}

// HistoryRecorder stores finished training runs.
type HistoryRecorder interface {
	Record(ctx context.Context, e history.Entry) error
	List(ctx context.Context, brain string, limit int) ([]history.Entry, error)
	Forget(ctx context.Context, brain string) error
}

type Option func(*Service)

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func WithHistory(h HistoryRecorder) Option {
	return func(s *Service) { s.history = h }
}

// WithVersions overrides the version stamp of the running service.
func WithVersions(v versions.Versions) Option {
	return func(s *Service) { s.versions = v }
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// Service trains brains and answers predictions. Training runs of the same
// brain are serialized; predictions run concurrently on the cached compiled
// brain.
type Service struct {
	store     *Store
	sensors   SensorRegistry
	versions  versions.Versions
	cache     *Cache
	locks     *nameLocks
	validator *data.DataValidator
	metrics   *metrics.Metrics
	history   HistoryRecorder
	log       logrus.FieldLogger
	now       func() time.Time
}

func NewService(store *Store, registry SensorRegistry, log logrus.FieldLogger, opts ...Option) *Service {
	s := &Service{
		store:     store,
		sensors:   registry,
		versions:  versions.Current(),
		cache:     NewCache(),
		locks:     newNameLocks(),
		validator: data.NewDataValidator(),
		log:       log.WithField("component", "brain"),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) Versions() versions.Versions {
	return s.versions
}

func (s *Service) Directory() string {
	return s.store.Directory()
}

// Request appends an observation to the brain's training data, if one is
// given, and trains the brain on everything logged so far. The dependent value
// falls back to the sensors field named like the brain. A NotEnoughData error
// still leaves the new observation saved.
func (s *Service) Request(ctx context.Context, name string, dependentValue any, sensorsData map[string]any) (Info, error) {
	start := time.Now()

	unlock := s.locks.lock(name)
	defer unlock()

	info, err := s.request(ctx, name, dependentValue, sensorsData)
	s.metrics.ObserveTraining(name, resultLabel(err), time.Since(start))

	return info, err
}

// Retrain trains the brain on the observations already logged.
func (s *Service) Retrain(ctx context.Context, name string) (Info, error) {
	return s.Request(ctx, name, nil, nil)
}

func (s *Service) request(ctx context.Context, name string, dependentValue any, sensorsData map[string]any) (Info, error) {
	log := s.log.WithField("brain", name)

	cfg, err := s.store.LoadConfiguration(name)
	if err != nil {
		return Info{}, asKind(name, err)
	}

	observations, err := s.store.ObservationLog(name)
	if err != nil {
		return Info{}, asKind(name, err)
	}

	if sensorsData != nil {
		record, err := s.observation(name, dependentValue, sensorsData)
		if err != nil {
			return Info{}, err
		}

		if err := observations.Append(record); err != nil {
			return Info{}, asKind(name, err)
		}
		s.metrics.ObservationAppended(name)
		log.WithField("fields", len(record)).Debug("observation appended")
	}

	frame, err := observations.Load()
	if errors.Is(err, fs.ErrNotExist) {
		return Info{}, fault.New(fault.NotEnoughData, name, "")
	}
	if err != nil {
		return Info{}, asKind(name, err)
	}

	return s.train(ctx, cfg, frame)
}

func (s *Service) observation(name string, dependentValue any, sensorsData map[string]any) (data.Record, error) {
	record, err := data.NormalizeRecord(sensorsData)
	if err != nil {
		return nil, fault.Wrap(fault.BadRequest, name, err)
	}

	if dependentValue == nil {
		dependentValue = record[name]
	}
	dependent, err := data.Normalize(dependentValue)
	if err != nil {
		return nil, fault.Wrap(fault.BadRequest, name, err)
	}
	if dependent == nil {
		return nil, fault.New(fault.BadRequest, name, "Missing dependent variable!")
	}
	record[name] = dependent

	return preprocessing.AddTimeInformation(record, s.now()), nil
}

// train fits a fresh brain in two passes. The first pass fits on every
// engineered column to rank importances; the second refits on the selected
// columns only and scores on the held out rows.
func (s *Service) train(ctx context.Context, cfg Configuration, frame *data.Frame) (Info, error) {
	name := cfg.Name
	start := time.Now()

	if frame.Len() < MinTrainingRows {
		return Info{}, fault.New(fault.NotEnoughData, name, "")
	}
	if err := s.validator.ValidateTrainingData(frame, name); err != nil {
		return Info{}, fault.Wrap(fault.BadRequest, name, err)
	}

	registry, err := s.sensors.Load()
	if err != nil {
		return Info{}, asKind(name, err)
	}
	engine := preprocessing.NewEngine(registry)

	b := New(cfg)
	est, err := b.Estimator()
	if err != nil {
		return Info{}, fault.Wrap(fault.BadRequest, name, err)
	}
	opts := cfg.Options()

	set, err := engine.PrepareTraining(frame, opts, &b.Dataset.State, false)
	if err != nil {
		return Info{}, fault.Wrap(fault.BadRequest, name, err)
	}
	if err := est.Fit(set.XTrain.Values(), set.YTrain); err != nil {
		return Info{}, asKind(name, err)
	}

	features, err := models.SelectFromModel(est, set.XTrain.Columns())
	if err != nil {
		return Info{}, asKind(name, err)
	}
	b.Dataset.Features = features

	set, err = engine.PrepareTraining(frame, opts, &b.Dataset.State, true)
	if err != nil {
		return Info{}, fault.Wrap(fault.BadRequest, name, err)
	}
	if err := est.Fit(set.XTrain.Values(), set.YTrain); err != nil {
		return Info{}, asKind(name, err)
	}

	b.Dataset.Features = set.XTrain.Columns()
	b.Dataset.DataSize = frame.Len()
	b.Score = cfg.Estimator.Typed.Score(est, set.XTest.Values(), set.YTest)
	b.TrainedAt = s.now()
	b.Versions = s.versions

	info := b.Info(s.versions)
	if err := s.store.SaveTrained(b, info); err != nil {
		return Info{}, asKind(name, err)
	}

	s.metrics.SetTrained(name, b.Dataset.DataSize, b.Score)
	s.recordHistory(ctx, b, time.Since(start))

	s.log.WithFields(logrus.Fields{
		"brain":    name,
		"rows":     b.Dataset.DataSize,
		"features": len(b.Dataset.Features),
		"score":    b.Score,
	}).Info("brain trained")

	return info, nil
}

func (s *Service) recordHistory(ctx context.Context, b *Brain, d time.Duration) {
	if s.history == nil {
		return
	}

	err := s.history.Record(ctx, history.Entry{
		Brain:            b.Name,
		Estimator:        string(b.Configuration.Estimator.Typed),
		Score:            b.Score,
		TrainingDataSize: b.Dataset.DataSize,
		Features:         b.Dataset.Features,
		TrainedAt:        b.TrainedAt,
		Duration:         d,
	})
	if err != nil {
		s.log.WithError(err).WithField("brain", b.Name).Warn("failed to record training history")
	}
}

// Predict answers a single observation with the compiled brain. The brain
// must have been trained by a service running the same versions.
func (s *Service) Predict(ctx context.Context, name string, observation map[string]any) (PredictionResult, error) {
	start := time.Now()

	result, err := s.predict(name, observation)
	s.metrics.ObservePrediction(name, resultLabel(err), time.Since(start))

	return result, err
}

func (s *Service) predict(name string, observation map[string]any) (PredictionResult, error) {
	b, err := s.loadTrained(name)
	if err != nil {
		return PredictionResult{}, err
	}

	if b.Versions != s.versions {
		return PredictionResult{}, fault.Newf(fault.NotActual, name,
			"Brain %s was trained with versions (%s) but the service runs with (%s). Retrain the brain.",
			name, b.Versions, s.versions)
	}
	if !b.Trained() {
		return PredictionResult{}, fault.New(fault.NotTrained, name, "")
	}

	record, err := data.NormalizeRecord(observation)
	if err != nil {
		return PredictionResult{}, fault.Wrap(fault.BadRequest, name, err)
	}
	record = preprocessing.AddTimeInformation(record, s.now())

	registry, err := s.sensors.Load()
	if err != nil {
		return PredictionResult{}, asKind(name, err)
	}

	x, err := preprocessing.NewEngine(registry).PreparePrediction(data.NewFrame(record), &b.Dataset.State)
	if err != nil {
		return PredictionResult{}, asKind(name, err)
	}

	prediction, err := b.decode(b.Model.Predict(x.Values())[0])
	if err != nil {
		return PredictionResult{}, asKind(name, err)
	}

	return PredictionResult{
		Brain:        b.Info(s.versions),
		Preprocessed: x.Row(0),
		Prediction:   prediction,
	}, nil
}

// loadTrained returns the compiled brain, deserializing it only when the file
// changed since the cached copy was loaded.
func (s *Service) loadTrained(name string) (*Brain, error) {
	stamp, err := s.store.TrainedStamp(name)
	if err != nil {
		return nil, asKind(name, err)
	}

	if b, ok := s.cache.Get(name, stamp); ok {
		s.metrics.CacheLookup(true)
		return b, nil
	}
	s.metrics.CacheLookup(false)

	b, err := s.store.LoadTrained(name)
	if fault.KindOf(err) == fault.NotTrained {
		return nil, asKind(name, err)
	}
	if err != nil {
		return nil, &fault.Error{
			Kind:        fault.NotTrained,
			Subject:     name,
			Description: "Compiled brain could not be loaded, retrain the brain.",
			Err:         err,
		}
	}

	s.cache.Put(name, stamp, b)
	return b, nil
}

// Info describes a brain. Untrained brains report their configuration and the
// number of logged observations.
func (s *Service) Info(name string) (Info, error) {
	if b, err := s.loadTrained(name); err == nil {
		return b.Info(s.versions), nil
	} else if fault.KindOf(err) == fault.Security {
		return Info{}, err
	}

	cfg, err := s.store.LoadConfiguration(name)
	if err != nil {
		return Info{}, asKind(name, err)
	}

	b := New(cfg)
	b.Versions = s.versions
	info := b.Info(s.versions)

	observations, err := s.store.ObservationLog(name)
	if err != nil {
		return Info{}, asKind(name, err)
	}
	count, err := observations.Count()
	if err != nil {
		return Info{}, asKind(name, err)
	}
	info.TrainingDataSize = count

	return info, nil
}

// ListInfos describes every configured brain by name.
func (s *Service) ListInfos() (map[string]Info, error) {
	names, err := s.store.Names()
	if err != nil {
		return nil, asKind("", err)
	}

	infos := make(map[string]Info, len(names))
	for _, name := range names {
		info, err := s.Info(name)
		if fault.KindOf(err) == fault.NoConfiguration {
			continue
		}
		if err != nil {
			return nil, err
		}
		infos[name] = info
	}
	return infos, nil
}

// History lists the latest training runs of a brain, newest first.
func (s *Service) History(ctx context.Context, name string, limit int) ([]history.Entry, error) {
	if _, err := s.store.LoadConfiguration(name); err != nil {
		return nil, asKind(name, err)
	}
	if s.history == nil {
		return []history.Entry{}, nil
	}

	entries, err := s.history.List(ctx, name, limit)
	if err != nil {
		return nil, asKind(name, err)
	}
	return entries, nil
}

// Forget drops in-memory and derived state of a deleted brain.
func (s *Service) Forget(name string) {
	unlock := s.locks.lock(name)
	defer unlock()

	s.cache.Forget(name)
	s.metrics.Forget(name)

	if s.history != nil {
		if err := s.history.Forget(context.Background(), name); err != nil {
			s.log.WithError(err).WithField("brain", name).Warn("failed to forget training history")
		}
	}
}

func resultLabel(err error) string {
	if err == nil {
		return "ok"
	}
	return string(fault.KindOf(err))
}
