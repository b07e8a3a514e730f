package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"

	Md "github.com/maroda/nocturne/display"
	No "github.com/maroda/nocturne/obvy"
	Ns "github.com/maroda/nocturne/server"
)

func init() {
	User := Ns.FillEnvVar("USER")
	fmt.Printf("Nocturne initializing for ... %s\n", User)
}

// configFileName resolves the config location.
// The flag wins, then the environment, then a local default.
func configFileName(flagVal string) string {
	if flagVal != "" {
		return flagVal
	}
	if env := Ns.FillEnvVar("NOCTURNE_CONFIG"); env != "ENOENT" {
		return env
	}
	return "nocturne-config.json"
}

// initTelemetry turns on trace export when the environment asks for it
func initTelemetry() func() {
	switch Ns.FillEnvVar("NOCTURNE_OTEL") {
	case "honeycomb":
		shutdown, err := No.InitOTelHNY()
		if err != nil {
			slog.Error("Could not configure Honeycomb export", slog.Any("Error", err))
			return func() {}
		}
		return shutdown
	case "grafana":
		tp, err := No.InitOTelGRF()
		if err != nil {
			slog.Error("Could not configure Grafana export", slog.Any("Error", err))
			return func() {}
		}
		return func() {
			if err := tp.Shutdown(context.Background()); err != nil {
				slog.Error("Trace provider shutdown failed", slog.Any("Error", err))
			}
		}
	}
	return func() {}
}

func main() {
	configFlag := flag.String("config", "", "cohort configuration JSON")
	once := flag.Bool("once", false, "run one batch pass and exit")
	notui := flag.Bool("notui", false, "web server only, no terminal display")
	flag.Parse()

	shutdown := initTelemetry()
	defer shutdown()

	fileName := configFileName(*configFlag)
	config, err := Ns.LoadConfigFileName(fileName)
	if err != nil {
		slog.Error("Could not load config", slog.String("file", fileName), slog.Any("Error", err))
		os.Exit(1)
	}

	// Batch mode scores everything once and prints a count
	if *once {
		cohorts, err := Ns.NewCohortsFromConfig(config)
		if err != nil {
			slog.Error("Failed to init cohorts", slog.Any("Error", err))
			os.Exit(1)
		}

		if err := cohorts.RunAll(context.Background()); err != nil {
			slog.Error("Batch pass failed", slog.Any("Error", err))
			cohorts.Close()
			os.Exit(1)
		}

		fmt.Printf("Nocturne scored %d nights\n", cohorts.CountAll())
		cohorts.Close()
		return
	}

	if *notui {
		err = Md.StartWebNoTUI(config)
	} else {
		err = Md.StartNocturneViewWithConfig(config)
	}
	if err != nil {
		slog.Error("Problem starting NocturneView", slog.Any("Error", err))
		panic("Failed to start nocturne view")
	}
}
