// Package main provides mhvcfctl, the operator CLI for the MHVCF partner client.
//
// Overview:
//   - Responsibility: Credential checks and one-off partner calls from a shell
//   - Key Types: Cobra command tree built by newRootCmd
//   - Concurrency Model: Single-threaded CLI execution
//   - Error Semantics: Classified errors are printed with their code; exit status 1
//   - Performance Notes: One client per invocation
//
// Usage:
//
//	mhvcfctl check
//	mhvcfctl forms -o yaml
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"go.eggybyte.com/evss/core/errors"
)

type rootFlags struct {
	configPath string
	output     string
}

func newRootCmd() *cobra.Command {
	flags := &rootFlags{}
	cmd := &cobra.Command{
		Use:   "mhvcfctl",
		Short: "Operator CLI for the MHVCF partner client",
		Long: `Operator CLI for the MHVCF partner client.

Configuration is read from the environment (EVSS_CERT_FILE_PATH,
EVSS_CERT_KEY_PATH, EVSS_ROOT_CERT_FILE_PATH, MHVCF_*), optionally layered
over a YAML or JSON file given with --config.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       versionString(),
	}
	cmd.SetVersionTemplate("{{.Version}}\n")
	cmd.PersistentFlags().StringVarP(&flags.configPath, "config", "c", "", "Configuration file (YAML or JSON)")
	cmd.PersistentFlags().StringVarP(&flags.output, "output", "o", "json", "Output format: json or yaml")

	cmd.AddCommand(newCheckCmd(flags), newFormsCmd(flags), newVersionCmd())
	return cmd
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		if code := errors.CodeOf(err); code != "" {
			fmt.Fprintf(os.Stderr, "error [%s]: %v\n", code, err)
		} else {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
		}
		os.Exit(1)
	}
}
