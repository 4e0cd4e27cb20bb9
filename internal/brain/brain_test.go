package brain

import (
	"context"
	"errors"
	"io"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"learninghouse/internal/fault"
	"learninghouse/internal/models"
	"learninghouse/internal/sensors"
	"learninghouse/internal/versions"
)

type staticRegistry sensors.Sensors

func (r staticRegistry) Load() (sensors.Sensors, error) {
	return sensors.Sensors(r), nil
}

var testVersions = versions.Versions{Service: "1.0.0", Go: "go1.23.0", Decimal: "v1.3.1", Gonum: "v0.16.0"}

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func fixedClock() time.Time {
	return time.Date(2024, 6, 14, 21, 30, 0, 0, time.UTC)
}

type fixture struct {
	store   *Store
	configs *ConfigurationService
	service *Service
}

func newFixture(t *testing.T, registry sensors.Sensors, opts ...Option) *fixture {
	t.Helper()

	store := NewStore(t.TempDir())
	opts = append([]Option{WithVersions(testVersions), WithClock(fixedClock)}, opts...)

	return &fixture{
		store:   store,
		configs: NewConfigurationService(store, quietLogger()),
		service: NewService(store, staticRegistry(registry), quietLogger(), opts...),
	}
}

func (f *fixture) configure(t *testing.T, cfg Configuration) {
	t.Helper()
	_, err := f.configs.Create(cfg)
	require.NoError(t, err)
}

func darknessRegistry() sensors.Sensors {
	return sensors.Sensors{
		"azimuth":    sensors.Numerical,
		"elevation":  sensors.Numerical,
		"rain_gauge": sensors.Numerical,
	}
}

func darknessConfiguration() Configuration {
	return Configuration{
		Name:            "darkness",
		Estimator:       EstimatorConfiguration{Typed: models.Classifier},
		DependentEncode: true,
		TestSize:        0.2,
	}
}

func darknessObservation(i int) (bool, map[string]any) {
	elevation := float64(i*4 - 18)
	return elevation < 0, map[string]any{
		"azimuth":    float64(90 + i*15),
		"elevation":  elevation,
		"rain_gauge": float64(i % 3),
	}
}

func TestNotEnoughDataBoundary(t *testing.T) {
	f := newFixture(t, darknessRegistry())
	f.configure(t, darknessConfiguration())
	ctx := context.Background()

	for i := 0; i < 9; i++ {
		dark, obs := darknessObservation(i)
		_, err := f.service.Request(ctx, "darkness", dark, obs)
		require.Error(t, err)
		assert.True(t, errors.Is(err, fault.ErrNotEnoughData))
	}

	info, err := f.service.Info("darkness")
	require.NoError(t, err)
	assert.Equal(t, 9, info.TrainingDataSize)
	assert.Nil(t, info.TrainedAt)

	dark, obs := darknessObservation(9)
	info, err = f.service.Request(ctx, "darkness", dark, obs)
	require.NoError(t, err)
	assert.Equal(t, 10, info.TrainingDataSize)
}

func trainDarkness(t *testing.T, f *fixture) Info {
	t.Helper()
	f.configure(t, darknessConfiguration())

	var info Info
	var err error
	for i := 0; i < 10; i++ {
		dark, obs := darknessObservation(i)
		info, err = f.service.Request(context.Background(), "darkness", dark, obs)
	}
	require.NoError(t, err)
	return info
}

func TestHappyPath(t *testing.T) {
	f := newFixture(t, darknessRegistry())
	info := trainDarkness(t, f)

	assert.Equal(t, "darkness", info.Name)
	assert.Equal(t, 10, info.TrainingDataSize)
	assert.GreaterOrEqual(t, info.Score, 0.0)
	assert.LessOrEqual(t, info.Score, 1.0)
	assert.NotEmpty(t, info.Features)
	assert.True(t, info.ActualVersions)
	require.NotNil(t, info.TrainedAt)
	assert.True(t, fixedClock().Equal(*info.TrainedAt))

	result, err := f.service.Predict(context.Background(), "darkness", map[string]any{
		"azimuth":    120.0,
		"elevation":  10.0,
		"rain_gauge": 0.0,
	})
	require.NoError(t, err)

	assert.IsType(t, true, result.Prediction)

	var columns []string
	for column := range result.Preprocessed {
		columns = append(columns, column)
	}
	assert.ElementsMatch(t, info.Features, columns)
	assert.Equal(t, info.Features, result.Brain.Features)
}

func TestPredictionReusesCachedBrain(t *testing.T) {
	f := newFixture(t, darknessRegistry())
	trainDarkness(t, f)

	for i := 0; i < 3; i++ {
		_, err := f.service.Predict(context.Background(), "darkness", map[string]any{"elevation": 5.0})
		require.NoError(t, err)
	}
	assert.Equal(t, 1, f.service.cache.Len())

	f.service.Forget("darkness")
	assert.Equal(t, 0, f.service.cache.Len())
}

func TestStaleVersionsAreRejected(t *testing.T) {
	f := newFixture(t, darknessRegistry())
	trainDarkness(t, f)

	bumped := testVersions
	bumped.Service = "1.1.0"
	stale := NewService(f.store, staticRegistry(darknessRegistry()), quietLogger(), WithVersions(bumped))

	_, err := stale.Predict(context.Background(), "darkness", map[string]any{"elevation": 5.0})
	require.Error(t, err)
	assert.True(t, errors.Is(err, fault.ErrNotActual))

	description := fault.Describe(err)
	assert.Contains(t, description, testVersions.String())
	assert.Contains(t, description, bumped.String())

	info, err := stale.Info("darkness")
	require.NoError(t, err)
	assert.False(t, info.ActualVersions)
}

func TestCategoricalTargetRoundTrip(t *testing.T) {
	f := newFixture(t, darknessRegistry())
	cfg := darknessConfiguration()
	cfg.Name = "daylight"
	f.configure(t, cfg)

	for i := 0; i < 12; i++ {
		dark, obs := darknessObservation(i)
		label := "light"
		if dark {
			label = "dark"
		}
		_, err := f.service.Request(context.Background(), "daylight", label, obs)
		if i >= 9 {
			require.NoError(t, err)
		}
	}

	result, err := f.service.Predict(context.Background(), "daylight", map[string]any{"elevation": -30.0})
	require.NoError(t, err)
	assert.Contains(t, []any{"dark", "light"}, result.Prediction)
}

func TestMissingSensorIsImputedWithTrainingMean(t *testing.T) {
	registry := sensors.Sensors{
		"azimuth":  sensors.Numerical,
		"pressure": sensors.Numerical,
	}
	f := newFixture(t, registry)
	f.configure(t, Configuration{
		Name:            "rain",
		Estimator:       EstimatorConfiguration{Typed: models.Classifier},
		DependentEncode: true,
		TestSize:        0.2,
	})

	for i := 0; i < 20; i++ {
		pressure := 980.0 + float64(i*2)
		obs := map[string]any{"azimuth": float64(i % 4), "pressure": pressure}
		_, err := f.service.Request(context.Background(), "rain", pressure < 1000, obs)
		if i >= 9 {
			require.NoError(t, err)
		}
	}

	trained, err := f.store.LoadTrained("rain")
	require.NoError(t, err)
	require.Contains(t, trained.Dataset.Features, "pressure")

	result, err := f.service.Predict(context.Background(), "rain", map[string]any{"azimuth": 1.0})
	require.NoError(t, err)
	assert.InDelta(t, trained.Dataset.Imputer.Statistics["pressure"], result.Preprocessed["pressure"], 1e-9)
	assert.Greater(t, result.Preprocessed["pressure"], 979.0)
}

func TestRegressorPredictsFloat(t *testing.T) {
	registry := sensors.Sensors{"outside": sensors.Numerical}
	f := newFixture(t, registry)
	f.configure(t, Configuration{
		Name:      "setpoint",
		Estimator: EstimatorConfiguration{Typed: models.Regressor, Estimators: 100, MaxDepth: 4},
		TestSize:  3,
	})

	for i := 0; i < 15; i++ {
		_, err := f.service.Request(context.Background(), "setpoint", 25-float64(i)/2, map[string]any{"outside": float64(i)})
		if i >= 9 {
			require.NoError(t, err)
		}
	}

	result, err := f.service.Predict(context.Background(), "setpoint", map[string]any{"outside": 4.0})
	require.NoError(t, err)
	prediction, ok := result.Prediction.(float64)
	require.True(t, ok)
	assert.InDelta(t, 23.0, prediction, 2.0)
}

func TestRequestErrors(t *testing.T) {
	f := newFixture(t, darknessRegistry())
	ctx := context.Background()

	_, err := f.service.Request(ctx, "unknown", true, map[string]any{"azimuth": 1.0})
	assert.Equal(t, fault.NoConfiguration, fault.KindOf(err))

	_, err = f.service.Request(ctx, "../etc", true, map[string]any{"azimuth": 1.0})
	assert.Equal(t, fault.Security, fault.KindOf(err))

	f.configure(t, darknessConfiguration())

	_, err = f.service.Request(ctx, "darkness", nil, map[string]any{"azimuth": 1.0})
	assert.Equal(t, fault.BadRequest, fault.KindOf(err))

	_, err = f.service.Retrain(ctx, "darkness")
	assert.Equal(t, fault.NotEnoughData, fault.KindOf(err))

	_, err = f.service.Predict(ctx, "darkness", map[string]any{"azimuth": 1.0})
	assert.Equal(t, fault.NotTrained, fault.KindOf(err))

	_, err = f.service.Request(ctx, "darkness", nil, map[string]any{"azimuth": 1.0, "darkness": false})
	assert.Equal(t, fault.NotEnoughData, fault.KindOf(err))
}

func TestRetrainUsesLoggedObservations(t *testing.T) {
	f := newFixture(t, darknessRegistry())
	first := trainDarkness(t, f)

	info, err := f.service.Retrain(context.Background(), "darkness")
	require.NoError(t, err)
	assert.Equal(t, first.TrainingDataSize, info.TrainingDataSize)
	assert.Equal(t, first.Features, info.Features)
}

func TestFailedTrainingKeepsPreviousBrain(t *testing.T) {
	f := newFixture(t, darknessRegistry())
	trainDarkness(t, f)

	before, err := f.store.TrainedStamp("darkness")
	require.NoError(t, err)

	_, err = f.service.Request(context.Background(), "darkness", "not-a-number-target", map[string]any{"azimuth": 1.0})
	require.NoError(t, err, "encoded targets accept strings")

	cfg, err := f.configs.Get("darkness")
	require.NoError(t, err)
	cfg.DependentEncode = false
	_, err = f.configs.Update("darkness", cfg)
	require.NoError(t, err)

	_, err = f.service.Retrain(context.Background(), "darkness")
	assert.Equal(t, fault.BadRequest, fault.KindOf(err))

	after, err := f.store.TrainedStamp("darkness")
	require.NoError(t, err)
	assert.True(t, before.Before(after) || before.Equal(after))

	_, err = f.store.LoadTrained("darkness")
	assert.NoError(t, err)
}

func TestListInfos(t *testing.T) {
	f := newFixture(t, darknessRegistry())
	trainDarkness(t, f)

	cfg := darknessConfiguration()
	cfg.Name = "other"
	f.configure(t, cfg)

	infos, err := f.service.ListInfos()
	require.NoError(t, err)
	assert.Len(t, infos, 2)
	assert.Equal(t, 10, infos["darkness"].TrainingDataSize)
	assert.Equal(t, 0, infos["other"].TrainingDataSize)
}

func TestHistoryWithoutRecorderIsEmpty(t *testing.T) {
	f := newFixture(t, darknessRegistry())
	trainDarkness(t, f)

	entries, err := f.service.History(context.Background(), "darkness", 10)
	require.NoError(t, err)
	assert.Empty(t, entries)

	_, err = f.service.History(context.Background(), "missing", 10)
	assert.Equal(t, fault.NoConfiguration, fault.KindOf(err))
}

func TestConfigurationService(t *testing.T) {
	f := newFixture(t, darknessRegistry())

	cfg, err := f.configs.Create(Configuration{Name: "darkness", Estimator: EstimatorConfiguration{Typed: models.Classifier}})
	require.NoError(t, err)
	assert.Equal(t, DefaultEstimators, cfg.Estimator.Estimators)
	assert.Equal(t, DefaultMaxDepth, cfg.Estimator.MaxDepth)
	assert.Equal(t, DefaultTestSize, cfg.TestSize)

	_, err = f.configs.Create(cfg)
	assert.Equal(t, fault.ConfigurationExists, fault.KindOf(err))

	_, err = f.configs.Create(Configuration{Name: "bad", Estimator: EstimatorConfiguration{Typed: "svm"}})
	assert.Equal(t, fault.BadRequest, fault.KindOf(err))

	_, err = f.configs.Create(Configuration{Name: "deep", Estimator: EstimatorConfiguration{Typed: models.Regressor, MaxDepth: 20}})
	assert.Equal(t, fault.BadRequest, fault.KindOf(err))

	_, err = f.configs.Update("missing", cfg)
	assert.Equal(t, fault.NoConfiguration, fault.KindOf(err))

	cfg.TestSize = 5
	updated, err := f.configs.Update("darkness", cfg)
	require.NoError(t, err)
	assert.Equal(t, 5.0, updated.TestSize)

	loaded, err := f.configs.Get("darkness")
	require.NoError(t, err)
	assert.Equal(t, updated, loaded)

	all, err := f.configs.List()
	require.NoError(t, err)
	assert.Len(t, all, 1)

	var deleted []string
	f.configs.OnDelete(func(name string) { deleted = append(deleted, name) })

	require.NoError(t, f.configs.Delete("darkness"))
	assert.Equal(t, []string{"darkness"}, deleted)
	assert.NoDirExists(t, filepath.Join(f.store.Directory(), "darkness"))

	err = f.configs.Delete("darkness")
	assert.Equal(t, fault.NoConfiguration, fault.KindOf(err))
}

func TestStoreRejectsEscapingNames(t *testing.T) {
	store := NewStore(t.TempDir())

	for _, name := range []string{"", ".", "..", "../x", "a/b", `a\b`} {
		_, err := store.Dir(name)
		assert.Equal(t, fault.Security, fault.KindOf(err), name)
	}

	dir, err := store.Dir("darkness")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(store.Directory(), "darkness"), dir)
}

func TestCacheStamps(t *testing.T) {
	cache := NewCache()
	stamp := time.Unix(100, 0)
	b := &Brain{Name: "darkness"}

	cache.Put("darkness", stamp, b)

	got, ok := cache.Get("darkness", stamp)
	assert.True(t, ok)
	assert.Same(t, b, got)

	_, ok = cache.Get("darkness", stamp.Add(time.Nanosecond))
	assert.False(t, ok)

	_, ok = cache.Get("other", stamp)
	assert.False(t, ok)
}

func TestDecode(t *testing.T) {
	b := New(Configuration{Estimator: EstimatorConfiguration{Typed: models.Regressor}, DependentEncode: true})
	v, err := b.decode(2.5)
	require.NoError(t, err)
	assert.Equal(t, 2.5, v)

	b = New(Configuration{Estimator: EstimatorConfiguration{Typed: models.Classifier}, DependentEncode: true})
	_, err = b.decode(0)
	assert.Error(t, err)
}
