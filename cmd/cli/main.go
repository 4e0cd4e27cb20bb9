package main

import (
	"flag"
	"os"

	"github.com/sirupsen/logrus"

	"learninghouse/internal/brain"
	"learninghouse/internal/commander"
	"learninghouse/internal/config"
	"learninghouse/internal/history"
	"learninghouse/internal/logging"
	"learninghouse/internal/sensors"
)

func main() {
	configFile := flag.String("config", "", "Path to an optional YAML settings file")
	flag.Parse()

	settings, err := config.Load(*configFile)
	if err != nil {
		logrus.WithError(err).Fatal("failed to load settings")
	}

	// Keep the shell readable; only warnings go to the log.
	log := logging.New("warning", false)
	log.SetOutput(os.Stderr)

	store := brain.NewStore(settings.BrainsDirectory)
	sensorStore := sensors.NewStore(settings.BrainsDirectory, log)

	var opts []brain.Option
	if settings.History.Enabled {
		runs, err := history.Open(settings.HistoryPath())
		if err != nil {
			log.WithError(err).Fatal("failed to open training history")
		}
		defer runs.Close()
		opts = append(opts, brain.WithHistory(runs))
	}

	service := brain.NewService(store, sensorStore, log, opts...)
	configs := brain.NewConfigurationService(store, log)
	configs.OnDelete(service.Forget)

	commander.NewCommander(service, configs, sensorStore, os.Stdout).Start(os.Stdin)
}
