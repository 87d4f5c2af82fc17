package main

import "github.com/urfave/cli/v3"

var (
	configPath      string
	hwID            int64
	backendName     string
	loopback        bool
	activations     int64
	setSize         int64
	batchSize       int64
	queueDepth      int64
	shimCount       int64
	affinityCSV     string
	ringfenceDriver bool
	logLevel        string
	logFormat       string
)

func commonDeviceFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "config",
			Aliases:     []string{"c"},
			Usage:       "path to device config YAML",
			Destination: &configPath,
		},
		&cli.Int64Flag{
			Name:        "hw-id",
			Usage:       "hardware device id",
			Destination: &hwID,
		},
		&cli.StringFlag{
			Name:        "backend",
			Usage:       "execution backend (auto, loopback, simulated)",
			Value:       "auto",
			Destination: &backendName,
		},
		&cli.BoolFlag{
			Name:        "loopback",
			Usage:       "synthesize completion without calling the backend",
			Destination: &loopback,
		},
		&cli.Int64Flag{
			Name:        "activations",
			Usage:       "activation count",
			Value:       1,
			Destination: &activations,
		},
		&cli.Int64Flag{
			Name:        "set-size",
			Usage:       "payload ring depth per activation",
			Value:       4,
			Destination: &setSize,
		},
		&cli.Int64Flag{
			Name:        "batch-size",
			Usage:       "samples per batch",
			Value:       1,
			Destination: &batchSize,
		},
		&cli.Int64Flag{
			Name:        "queue-depth",
			Usage:       "admission queue capacity",
			Value:       16,
			Destination: &queueDepth,
		},
		&cli.Int64Flag{
			Name:        "shim-count",
			Usage:       "enqueue shim threads (0 = inline)",
			Destination: &shimCount,
		},
		&cli.StringFlag{
			Name:        "affinity",
			Usage:       "comma-separated CPU ids consumed leaf-first",
			Destination: &affinityCSV,
		},
		&cli.BoolFlag{
			Name:        "ringfence-driver",
			Usage:       "reserve one CPU for the vendor driver",
			Destination: &ringfenceDriver,
		},
	}
}

func loggingFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "log-level",
			Usage:       "log level (debug, info, warn, error)",
			Value:       "info",
			Destination: &logLevel,
		},
		&cli.StringFlag{
			Name:        "log-format",
			Usage:       "log format (pretty, json, text)",
			Value:       "pretty",
			Destination: &logFormat,
		},
	}
}
