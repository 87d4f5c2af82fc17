// Package config resolves the device configuration table from a YAML file,
// following the same "file defaults, flags win when set" pattern this
// codebase uses for its CLI configuration.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/onyxsilicon/qdispatch/internal/device"
)

// File is the on-disk device configuration. All duration/bool/int fields
// that have a meaningful "unset" distinct from their zero value are
// pointers, so a flag can still override an explicit zero in the file.
type File struct {
	ActivationCount   *int   `yaml:"activation_count"`
	SetSize           *int   `yaml:"set_size"`
	ThreadsPerQueue   *int   `yaml:"threads_per_queue"`
	ModelBatchSize    *int   `yaml:"model_batch_size"`
	SamplesQueueDepth *int   `yaml:"samples_queue_depth"`
	ShimCount         *int   `yaml:"shim_count"`
	RingfenceDriver   *bool  `yaml:"ringfence_driver"`
	InputSelect       *int   `yaml:"input_select"`
	Loopback          *bool  `yaml:"loopback"`
	SkipStage         string `yaml:"skip_stage"`
	ModelRoot         string `yaml:"model_root"`
	Backend           string `yaml:"backend"`

	SchedulerYieldTimeUS *int64 `yaml:"scheduler_yield_time_us"`
	EnqueueYieldTimeUS   *int64 `yaml:"enqueue_yield_time_us"`

	Affinity []int `yaml:"affinity"`

	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`
}

// Load reads and parses a device configuration file.
func Load(path string) (File, error) {
	var f File
	data, err := os.ReadFile(path)
	if err != nil {
		return f, fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &f); err != nil {
		return f, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return f, nil
}

// ToDeviceConfig converts the file representation into a device.Config,
// filling in the documented defaults for anything left unset.
func (f File) ToDeviceConfig() device.Config {
	cfg := device.Config{
		ActivationCount:   intOr(f.ActivationCount, 1),
		SetSize:           intOr(f.SetSize, 4),
		ThreadsPerQueue:   intOr(f.ThreadsPerQueue, 1),
		ModelBatchSize:    intOr(f.ModelBatchSize, 1),
		SamplesQueueDepth: intOr(f.SamplesQueueDepth, 16),
		ShimCount:         intOr(f.ShimCount, 0),
		RingfenceDriver:   boolOr(f.RingfenceDriver, false),
		InputSelect:       device.InputSelect(intOr(f.InputSelect, 0)),
		Loopback:          boolOr(f.Loopback, false),
		SkipStage:         f.SkipStage,
		ModelRoot:         f.ModelRoot,
		BackendName:       f.Backend,

		SchedulerYieldTime: time.Duration(int64Or(f.SchedulerYieldTimeUS, 0)) * time.Microsecond,
		EnqueueYieldTime:   time.Duration(int64Or(f.EnqueueYieldTimeUS, 0)) * time.Microsecond,
	}
	return cfg
}

func intOr(p *int, def int) int {
	if p == nil {
		return def
	}
	return *p
}

func int64Or(p *int64, def int64) int64 {
	if p == nil {
		return def
	}
	return *p
}

func boolOr(p *bool, def bool) bool {
	if p == nil {
		return def
	}
	return *p
}
