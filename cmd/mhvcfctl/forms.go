package main

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"go.eggybyte.com/evss/clientx"
	"go.eggybyte.com/evss/mhvcf"
	"go.eggybyte.com/evss/obsx"
)

func newFormsCmd(flags *rootFlags) *cobra.Command {
	var dumpMetrics bool
	cmd := &cobra.Command{
		Use:   "forms",
		Short: "Fetch the in-flight forms from the partner service",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := loadConfig(ctx, flags.configPath)
			if err != nil {
				return err
			}
			logger := cfg.logger(cmd.ErrOrStderr())

			provider, err := obsx.NewProvider(ctx, obsx.Options{
				ServiceName:    "mhvcfctl",
				ServiceVersion: Version,
				OTLPEndpoint:   cfg.OTLPEndpoint,
				OTLPInsecure:   cfg.OTLPInsecure,
			})
			if err != nil {
				return err
			}
			defer func() {
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := provider.Shutdown(shutdownCtx); err != nil {
					logger.Error(err, "telemetry shutdown failed")
				}
			}()

			client, err := mhvcf.New(cfg.Config, mhvcf.WithClientOptions(
				clientx.WithLogger(logger),
				clientx.WithMeterProvider(provider.MeterProvider()),
				clientx.WithTracerProvider(provider.TracerProvider()),
			))
			if err != nil {
				return err
			}
			defer client.Close()

			resp, err := client.GetForms(ctx)
			if dumpMetrics {
				if werr := provider.WriteMetrics(cmd.ErrOrStderr()); werr != nil {
					logger.Error(werr, "metrics dump failed")
				}
			}
			if err != nil {
				return err
			}
			return render(cmd.OutOrStdout(), flags.output, resp.Body)
		},
	}
	cmd.Flags().BoolVar(&dumpMetrics, "metrics", false, "Print client metrics in Prometheus text format to stderr")
	return cmd
}
