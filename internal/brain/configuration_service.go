package brain

import (
	"errors"

	"github.com/sirupsen/logrus"

	"learninghouse/internal/fault"
)

// ConfigurationService manages the user authored configuration of brains.
type ConfigurationService struct {
	store    *Store
	log      logrus.FieldLogger
	onDelete []func(name string)
}

func NewConfigurationService(store *Store, log logrus.FieldLogger) *ConfigurationService {
	return &ConfigurationService{
		store: store,
		log:   log.WithField("component", "configuration"),
	}
}

func (cs *ConfigurationService) Get(name string) (Configuration, error) {
	cfg, err := cs.store.LoadConfiguration(name)
	if err != nil {
		return cfg, asKind(name, err)
	}
	return cfg, nil
}

func (cs *ConfigurationService) List() ([]Configuration, error) {
	names, err := cs.store.Names()
	if err != nil {
		return nil, asKind("", err)
	}

	configurations := make([]Configuration, 0, len(names))
	for _, name := range names {
		cfg, err := cs.store.LoadConfiguration(name)
		if err != nil {
			cs.log.WithError(err).WithField("brain", name).Warn("skipping unreadable configuration")
			continue
		}
		configurations = append(configurations, cfg)
	}
	return configurations, nil
}

func (cs *ConfigurationService) Create(cfg Configuration) (Configuration, error) {
	cfg = cfg.WithDefaults()
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}

	exists, err := cs.store.ConfigurationExists(cfg.Name)
	if err != nil {
		return cfg, asKind(cfg.Name, err)
	}
	if exists {
		return cfg, fault.New(fault.ConfigurationExists, cfg.Name, "")
	}

	if err := cs.store.SaveConfiguration(cfg); err != nil {
		return cfg, asKind(cfg.Name, err)
	}

	cs.log.WithField("brain", cfg.Name).Info("brain configuration created")
	return cfg, nil
}

// Update replaces the configuration of an existing brain. The name in the
// path wins over the one in the body.
func (cs *ConfigurationService) Update(name string, cfg Configuration) (Configuration, error) {
	cfg.Name = name
	cfg = cfg.WithDefaults()
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}

	exists, err := cs.store.ConfigurationExists(name)
	if err != nil {
		return cfg, asKind(name, err)
	}
	if !exists {
		return cfg, fault.New(fault.NoConfiguration, name, "")
	}

	if err := cs.store.SaveConfiguration(cfg); err != nil {
		return cfg, asKind(name, err)
	}

	cs.log.WithField("brain", name).Info("brain configuration updated")
	return cfg, nil
}

// OnDelete registers a callback run after a brain was removed.
func (cs *ConfigurationService) OnDelete(f func(name string)) {
	cs.onDelete = append(cs.onDelete, f)
}

// Delete removes configuration, observations and the compiled brain.
func (cs *ConfigurationService) Delete(name string) error {
	if err := cs.store.Remove(name); err != nil {
		return asKind(name, err)
	}
	for _, f := range cs.onDelete {
		f(name)
	}

	cs.log.WithField("brain", name).Info("brain removed")
	return nil
}

// asKind attaches the brain name to fault kinds raised below the service and
// turns anything else into an Unknown error that keeps its cause.
func asKind(name string, err error) error {
	if err == nil {
		return nil
	}

	var fe *fault.Error
	if errors.As(err, &fe) {
		if fe.Subject != "" || name == "" {
			return fe
		}
		return &fault.Error{Kind: fe.Kind, Subject: name, Description: fe.Description, Err: fe.Err}
	}
	return fault.Wrap(fault.Unknown, name, err)
}
