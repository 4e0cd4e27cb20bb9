package brain

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"learninghouse/internal/data"
	"learninghouse/internal/fault"
	"learninghouse/internal/persistence"
)

const (
	ConfigFile       = "config.yaml"
	TrainedFile      = "trained.gob"
	InfoFile         = "info.json"
	TrainingDataFile = "training_data.csv"
)

// Store lays out one directory per brain below the brains directory.
type Store struct {
	directory string
}

func NewStore(directory string) *Store {
	return &Store{directory: filepath.Clean(directory)}
}

func (s *Store) Directory() string {
	return s.directory
}

// Dir returns the directory of a brain. Names that could leave the brains
// directory are rejected.
func (s *Store) Dir(name string) (string, error) {
	if name == "" || name == "." || name == ".." ||
		strings.ContainsAny(name, `/\`) || strings.ContainsRune(name, 0) {
		return "", fault.New(fault.Security, name, "Brain name breaks brains directory.")
	}

	dir := filepath.Join(s.directory, name)
	if filepath.Dir(dir) != s.directory {
		return "", fault.New(fault.Security, name, "Brain name breaks brains directory.")
	}
	return dir, nil
}

func (s *Store) path(name, file string) (string, error) {
	dir, err := s.Dir(name)
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, file), nil
}

func (s *Store) ConfigurationExists(name string) (bool, error) {
	filename, err := s.path(name, ConfigFile)
	if err != nil {
		return false, err
	}
	return fileExists(filename), nil
}

func (s *Store) LoadConfiguration(name string) (Configuration, error) {
	var cfg Configuration

	filename, err := s.path(name, ConfigFile)
	if err != nil {
		return cfg, err
	}

	err = persistence.LoadYAML(filename, &cfg)
	if errors.Is(err, fs.ErrNotExist) {
		return cfg, fault.ErrNoConfiguration
	}
	if err != nil {
		return cfg, err
	}

	cfg.Name = name
	return cfg.WithDefaults(), nil
}

func (s *Store) SaveConfiguration(cfg Configuration) error {
	filename, err := s.path(cfg.Name, ConfigFile)
	if err != nil {
		return err
	}
	return persistence.SaveYAML(filename, cfg)
}

// Remove deletes the whole brain directory.
func (s *Store) Remove(name string) error {
	dir, err := s.Dir(name)
	if err != nil {
		return err
	}
	if !fileExists(dir) {
		return fault.ErrNoConfiguration
	}
	return os.RemoveAll(dir)
}

// Names lists the brain directories that hold a configuration.
func (s *Store) Names() ([]string, error) {
	entries, err := os.ReadDir(s.directory)
	if errors.Is(err, fs.ErrNotExist) {
		return []string{}, nil
	}
	if err != nil {
		return nil, err
	}

	names := []string{}
	for _, entry := range entries {
		if !entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		if fileExists(filepath.Join(s.directory, entry.Name(), ConfigFile)) {
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}

func (s *Store) ObservationLog(name string) (*data.ObservationLog, error) {
	filename, err := s.path(name, TrainingDataFile)
	if err != nil {
		return nil, err
	}
	return data.NewObservationLog(filename), nil
}

// SaveTrained replaces the compiled brain and its info file. The compiled
// file is renamed into place, so a failed run leaves the previous one intact.
func (s *Store) SaveTrained(b *Brain, info Info) error {
	trained, err := s.path(b.Name, TrainedFile)
	if err != nil {
		return err
	}
	if err := persistence.SaveGob(trained, b); err != nil {
		return err
	}

	infoFile, err := s.path(b.Name, InfoFile)
	if err != nil {
		return err
	}
	return persistence.SaveJSON(infoFile, info)
}

// TrainedStamp returns the modification time of the compiled brain.
func (s *Store) TrainedStamp(name string) (time.Time, error) {
	filename, err := s.path(name, TrainedFile)
	if err != nil {
		return time.Time{}, err
	}

	stat, err := os.Stat(filename)
	if errors.Is(err, fs.ErrNotExist) {
		return time.Time{}, fault.ErrNotTrained
	}
	if err != nil {
		return time.Time{}, err
	}
	return stat.ModTime(), nil
}

func (s *Store) LoadTrained(name string) (*Brain, error) {
	filename, err := s.path(name, TrainedFile)
	if err != nil {
		return nil, err
	}

	b := &Brain{}
	err = persistence.LoadGob(filename, b)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fault.ErrNotTrained
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load compiled brain %s: %w", name, err)
	}
	return b, nil
}

func fileExists(filename string) bool {
	_, err := os.Stat(filename)
	return err == nil
}
