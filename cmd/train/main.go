// Command train retrains brains from their logged observations, typically
// after an upgrade left them trained with outdated versions.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/fatih/color"
	"github.com/sirupsen/logrus"

	"learninghouse/internal/brain"
	"learninghouse/internal/config"
	"learninghouse/internal/fault"
	"learninghouse/internal/history"
	"learninghouse/internal/logging"
	"learninghouse/internal/sensors"
)

func main() {
	configFile := flag.String("config", "", "Path to an optional YAML settings file")
	name := flag.String("brain", "", "Retrain only this brain")
	outdated := flag.Bool("outdated", false, "Retrain only brains trained with other versions or never trained")
	flag.Parse()

	settings, err := config.Load(*configFile)
	if err != nil {
		logrus.WithError(err).Fatal("failed to load settings")
	}
	log := logging.New(settings.LoggingLevel, settings.LogJSON)
	log.SetOutput(os.Stderr)

	store := brain.NewStore(settings.BrainsDirectory)
	var opts []brain.Option
	if settings.History.Enabled {
		runs, err := history.Open(settings.HistoryPath())
		if err != nil {
			log.WithError(err).Fatal("failed to open training history")
		}
		defer runs.Close()
		opts = append(opts, brain.WithHistory(runs))
	}
	service := brain.NewService(store, sensors.NewStore(settings.BrainsDirectory, log), log, opts...)

	names, err := selectBrains(service, *name, *outdated)
	if err != nil {
		log.WithError(err).Fatal("failed to list brains")
	}
	if len(names) == 0 {
		fmt.Println("Nothing to train")
		return
	}

	if failed := retrain(service, names); failed > 0 {
		os.Exit(1)
	}
}

func selectBrains(service *brain.Service, name string, outdated bool) ([]string, error) {
	if name != "" {
		return []string{name}, nil
	}

	infos, err := service.ListInfos()
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(infos))
	for n, info := range infos {
		if outdated && info.TrainedAt != nil && info.ActualVersions {
			continue
		}
		names = append(names, n)
	}
	sort.Strings(names)
	return names, nil
}

func retrain(service *brain.Service, names []string) int {
	green := color.New(color.FgGreen).SprintFunc()
	red := color.New(color.FgRed).SprintFunc()
	yellow := color.New(color.FgYellow).SprintFunc()

	failed := 0
	for _, name := range names {
		start := time.Now()
		info, err := service.Retrain(context.Background(), name)
		switch {
		case fault.KindOf(err) == fault.NotEnoughData:
			fmt.Printf("%s %-20s %s\n", yellow("⚠"), name, fault.Describe(err))
		case err != nil:
			failed++
			fmt.Printf("%s %-20s %s: %s\n", red("✗"), name, fault.KindOf(err), fault.Describe(err))
		default:
			fmt.Printf("%s %-20s score %.4f on %d rows (%s)\n",
				green("✓"), name, info.Score, info.TrainingDataSize, time.Since(start).Round(time.Millisecond))
		}
	}
	return failed
}
