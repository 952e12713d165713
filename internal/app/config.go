package app

import (
	"errors"
	"fmt"
	"runtime"
)

// Config holds all the necessary configuration for an App instance to run.
type Config struct {
	PipelinePath string // .hcl file or directory, or a .yaml/.yml file
	Workdir      string // run state lives under <Workdir>/.stagegrid
	SourcePath   string // tree copied into stage workspaces; defaults to Workdir
	Variables    map[string]string
	Stages       []string // run only these stages and their upstream closure

	DryRun      bool
	PrintDOT    bool
	ReportPath  string
	KeepWorkdir bool

	LogFormat       string
	LogLevel        string
	HealthcheckPort int
	WorkerCount     int
}

// NewConfig validates cfg and fills in defaults.
func NewConfig(cfg Config) (*Config, error) {
	if cfg.PipelinePath == "" {
		return nil, errors.New("PipelinePath is a required configuration field and cannot be empty")
	}
	if cfg.WorkerCount < 0 {
		return nil, fmt.Errorf("invalid worker count %d: must not be negative", cfg.WorkerCount)
	}
	if cfg.HealthcheckPort < 0 || cfg.HealthcheckPort > 65535 {
		return nil, fmt.Errorf("invalid healthcheck port %d", cfg.HealthcheckPort)
	}
	if cfg.WorkerCount == 0 {
		cfg.WorkerCount = runtime.NumCPU()
	}
	if cfg.Workdir == "" {
		cfg.Workdir = "."
	}
	if cfg.SourcePath == "" {
		cfg.SourcePath = cfg.Workdir
	}
	if cfg.Variables == nil {
		cfg.Variables = map[string]string{}
	}
	if cfg.LogFormat == "" {
		cfg.LogFormat = "text"
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	return &cfg, nil
}
