// Package config loads service settings from defaults, an optional YAML file,
// a .env file and LEARNINGHOUSE_ prefixed environment variables.
package config

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"net"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const EnvPrefix = "LEARNINGHOUSE"

const (
	Production  = "production"
	Development = "development"
)

type Settings struct {
	Environment          string          `mapstructure:"environment"`
	Debug                bool            `mapstructure:"debug"`
	Host                 string          `mapstructure:"host"`
	Port                 int             `mapstructure:"port"`
	BrainsDirectory      string          `mapstructure:"brains_directory"`
	LoggingLevel         string          `mapstructure:"logging_level"`
	LogJSON              bool            `mapstructure:"log_json"`
	JWTSecret            string          `mapstructure:"jwt_secret"`
	JWTExpireMinutes     int             `mapstructure:"jwt_expire_minutes"`
	InitialAdminPassword string          `mapstructure:"initial_admin_password"`
	MQTT                 MQTTSettings    `mapstructure:"mqtt"`
	History              HistorySettings `mapstructure:"history"`
}

type MQTTSettings struct {
	Enabled     bool   `mapstructure:"enabled"`
	Broker      string `mapstructure:"broker"`
	ClientID    string `mapstructure:"client_id"`
	Username    string `mapstructure:"username"`
	Password    string `mapstructure:"password"`
	TopicPrefix string `mapstructure:"topic_prefix"`
	QoS         int    `mapstructure:"qos"`
}

type HistorySettings struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("environment", Production)
	v.SetDefault("debug", false)
	v.SetDefault("host", "0.0.0.0")
	v.SetDefault("port", 5000)
	v.SetDefault("brains_directory", "./brains")
	v.SetDefault("logging_level", "info")
	v.SetDefault("log_json", false)
	v.SetDefault("jwt_secret", "")
	v.SetDefault("jwt_expire_minutes", 10)
	v.SetDefault("initial_admin_password", "learninghouse")

	v.SetDefault("mqtt.enabled", false)
	v.SetDefault("mqtt.broker", "tcp://localhost:1883")
	v.SetDefault("mqtt.client_id", "learninghouse")
	v.SetDefault("mqtt.username", "")
	v.SetDefault("mqtt.password", "")
	v.SetDefault("mqtt.topic_prefix", "learninghouse")
	v.SetDefault("mqtt.qos", 1)

	v.SetDefault("history.enabled", true)
	v.SetDefault("history.path", "")
}

// Load reads the settings. configFile may be empty; a named file that does
// not exist is an error.
func Load(configFile string) (*Settings, error) {
	// .env is optional
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "__"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", configFile, err)
		}
	}

	settings := &Settings{}
	if err := v.Unmarshal(settings); err != nil {
		return nil, fmt.Errorf("failed to unmarshal settings: %w", err)
	}

	if err := settings.normalize(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return settings, nil
}

func (s *Settings) normalize() error {
	s.Environment = strings.ToLower(strings.TrimSpace(s.Environment))
	switch s.Environment {
	case Production:
	case Development:
		s.Debug = true
	default:
		return fmt.Errorf("unknown environment %q", s.Environment)
	}
	if s.Debug {
		s.LoggingLevel = "debug"
	}

	if s.Port <= 0 || s.Port > 65535 {
		return fmt.Errorf("port %d out of range", s.Port)
	}
	if s.BrainsDirectory == "" {
		return errors.New("brains_directory must not be empty")
	}
	if s.JWTExpireMinutes <= 0 {
		return errors.New("jwt_expire_minutes must be positive")
	}
	if s.MQTT.QoS < 0 || s.MQTT.QoS > 2 {
		return fmt.Errorf("mqtt qos %d out of range", s.MQTT.QoS)
	}
	if s.MQTT.Enabled && s.MQTT.Broker == "" {
		return errors.New("mqtt broker is required when mqtt is enabled")
	}

	if s.JWTSecret == "" {
		secret, err := randomSecret()
		if err != nil {
			return err
		}
		s.JWTSecret = secret
	}
	return nil
}

func randomSecret() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate jwt secret: %w", err)
	}
	return hex.EncodeToString(b), nil
}

func (s *Settings) Address() string {
	return net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
}

func (s *Settings) JWTExpire() time.Duration {
	return time.Duration(s.JWTExpireMinutes) * time.Minute
}

// HistoryPath defaults to history.db inside the brains directory.
func (s *Settings) HistoryPath() string {
	if s.History.Path != "" {
		return s.History.Path
	}
	return filepath.Join(s.BrainsDirectory, "history.db")
}
