package main

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/onyxsilicon/qdispatch/internal/device"
	"github.com/onyxsilicon/qdispatch/internal/logger"
	"github.com/onyxsilicon/qdispatch/pkg/config"
)

func buildLogger() logger.Logger {
	level := logger.ParseLevel(logLevel)
	switch logFormat {
	case "json":
		return logger.JSON(os.Stderr, level)
	case "text":
		return logger.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	default:
		return logger.Pretty(os.Stderr, level)
	}
}

func parseAffinity(csv string) ([]int, error) {
	if strings.TrimSpace(csv) == "" {
		return nil, nil
	}
	parts := strings.Split(csv, ",")
	ids := make([]int, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		v, err := strconv.Atoi(p)
		if err != nil {
			return nil, fmt.Errorf("invalid affinity cpu id %q: %w", p, err)
		}
		ids = append(ids, v)
	}
	return ids, nil
}

// resolveDeviceConfig merges a config file (if given) with the flags
// explicitly set on the command line. A flag only overrides the file when
// the caller actually passed it (checked with cmd.IsSet), mirroring the
// teacher's applyServeConfig: file values are defaults, not floors.
func resolveDeviceConfig(cmd *cli.Command) (device.Config, []int, error) {
	var cfg device.Config
	var affinity []int

	if configPath != "" {
		f, err := config.Load(configPath)
		if err != nil {
			return cfg, nil, err
		}
		cfg = f.ToDeviceConfig()
		affinity = f.Affinity
	} else {
		cfg = device.Config{
			ActivationCount:   1,
			SetSize:           4,
			ModelBatchSize:    1,
			SamplesQueueDepth: 16,
		}
	}

	if cmd.IsSet("activations") {
		cfg.ActivationCount = int(activations)
	}
	if cmd.IsSet("set-size") {
		cfg.SetSize = int(setSize)
	}
	if cmd.IsSet("batch-size") {
		cfg.ModelBatchSize = int(batchSize)
	}
	if cmd.IsSet("queue-depth") {
		cfg.SamplesQueueDepth = int(queueDepth)
	}
	if cmd.IsSet("shim-count") {
		cfg.ShimCount = int(shimCount)
	}
	if cmd.IsSet("ringfence-driver") {
		cfg.RingfenceDriver = ringfenceDriver
	}
	if cmd.IsSet("loopback") {
		cfg.Loopback = loopback
	}
	if cmd.IsSet("backend") {
		cfg.BackendName = backendName
	}

	if cmd.IsSet("affinity") {
		ids, err := parseAffinity(affinityCSV)
		if err != nil {
			return cfg, nil, err
		}
		affinity = ids
	}

	return cfg, affinity, nil
}
