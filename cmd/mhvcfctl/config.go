package main

import (
	"context"
	"io"
	"log/slog"

	"go.eggybyte.com/evss/configx"
	"go.eggybyte.com/evss/core/errors"
	"go.eggybyte.com/evss/core/log"
	"go.eggybyte.com/evss/logx"
	"go.eggybyte.com/evss/mhvcf"
)

// cliConfig is the partner configuration plus the process-level settings.
type cliConfig struct {
	mhvcf.Config

	LogLevel     string `env:"LOG_LEVEL" default:"info"`
	LogFormat    string `env:"LOG_FORMAT" default:"logfmt" validate:"oneof=logfmt json"`
	OTLPEndpoint string `env:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	OTLPInsecure bool   `env:"OTEL_EXPORTER_OTLP_INSECURE" default:"false"`
}

func loadConfig(ctx context.Context, path string) (cliConfig, error) {
	var sources []configx.Source
	if path != "" {
		sources = append(sources, configx.NewFileSource(path, configx.FileOptions{}))
	}
	sources = append(sources, configx.NewEnvSource(configx.EnvOptions{}))

	var cfg cliConfig
	if err := configx.Load(ctx, &cfg, sources...); err != nil {
		return cliConfig{}, errors.Wrap(errors.CodeInvalidArgument, "mhvcfctl.loadConfig", err)
	}
	return cfg, nil
}

func (c cliConfig) logger(w io.Writer) log.Logger {
	format := logx.FormatLogfmt
	if c.LogFormat == string(logx.FormatJSON) {
		format = logx.FormatJSON
	}
	level := logx.ParseLevel(c.LogLevel)
	return logx.New(
		logx.WithWriter(w),
		logx.WithFormat(format),
		logx.WithLevel(level),
		logx.WithColor(level == slog.LevelDebug && format == logx.FormatLogfmt),
	)
}
