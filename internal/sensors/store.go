package sensors

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"sync"

	"github.com/sirupsen/logrus"

	"learninghouse/internal/fault"
	"learninghouse/internal/persistence"
)

const registryFile = "sensors.yaml"

// Store persists the registry as a single YAML file in the brains directory.
type Store struct {
	filename string
	log      logrus.FieldLogger
	mu       sync.Mutex
}

func NewStore(directory string, log logrus.FieldLogger) *Store {
	return &Store{
		filename: filepath.Join(directory, registryFile),
		log:      log.WithField("component", "sensors"),
	}
}

// Load returns the registry. A missing file is an empty registry.
func (s *Store) Load() (Sensors, error) {
	sensors := Sensors{}
	err := persistence.LoadYAML(s.filename, &sensors)
	if errors.Is(err, fs.ErrNotExist) {
		s.log.Warn("no sensors.yaml found")
		return Sensors{}, nil
	}
	if err != nil {
		return nil, err
	}
	for name, typed := range sensors {
		if _, err := ParseType(string(typed)); err != nil {
			return nil, fmt.Errorf("sensor %s: %w", name, err)
		}
	}
	return sensors, nil
}

func (s *Store) List() ([]Sensor, error) {
	sensors, err := s.Load()
	if err != nil {
		return nil, err
	}
	return sensors.List(), nil
}

func (s *Store) Get(name string) (Sensor, error) {
	sensors, err := s.Load()
	if err != nil {
		return Sensor{}, err
	}
	typed, ok := sensors[name]
	if !ok {
		return Sensor{}, fault.New(fault.NoSensor, name, "")
	}
	return Sensor{Name: name, Typed: typed}, nil
}

func (s *Store) Create(sensor Sensor) (Sensor, error) {
	return s.modify(sensor, func(sensors Sensors) error {
		if _, ok := sensors[sensor.Name]; ok {
			return fault.New(fault.SensorExists, sensor.Name, "")
		}
		return nil
	})
}

func (s *Store) Update(sensor Sensor) (Sensor, error) {
	return s.modify(sensor, func(sensors Sensors) error {
		if _, ok := sensors[sensor.Name]; !ok {
			return fault.New(fault.NoSensor, sensor.Name, "")
		}
		return nil
	})
}

func (s *Store) Delete(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sensors, err := s.Load()
	if err != nil {
		return err
	}
	if _, ok := sensors[name]; !ok {
		return fault.New(fault.NoSensor, name, "")
	}
	delete(sensors, name)
	return persistence.SaveYAML(s.filename, sensors)
}

func (s *Store) modify(sensor Sensor, check func(Sensors) error) (Sensor, error) {
	if sensor.Name == "" {
		return Sensor{}, fault.New(fault.BadRequest, "", "sensor name must not be empty")
	}
	if _, err := ParseType(string(sensor.Typed)); err != nil {
		return Sensor{}, fault.Wrap(fault.BadRequest, sensor.Name, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	sensors, err := s.Load()
	if err != nil {
		return Sensor{}, err
	}
	if err := check(sensors); err != nil {
		return Sensor{}, err
	}
	sensors[sensor.Name] = sensor.Typed

	if err := persistence.SaveYAML(s.filename, sensors); err != nil {
		return Sensor{}, err
	}
	s.log.WithField("sensor", sensor.Name).Info("sensor saved")
	return sensor, nil
}
