package main

import (
	"time"

	"github.com/spf13/cobra"

	"go.eggybyte.com/evss/clientx"
	"go.eggybyte.com/evss/tlsx"
)

type credentialReport struct {
	Subject   string `json:"subject" yaml:"subject"`
	Issuer    string `json:"issuer" yaml:"issuer"`
	NotBefore string `json:"not_before" yaml:"not_before"`
	NotAfter  string `json:"not_after" yaml:"not_after"`
	DaysLeft  int    `json:"days_left" yaml:"days_left"`
	RootCAs   int    `json:"root_cas" yaml:"root_cas"`
	Status    string `json:"status" yaml:"status"`
	BaseURL   string `json:"base_url" yaml:"base_url"`
}

func newCheckCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Load and describe the client credentials without connecting",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd.Context(), flags.configPath)
			if err != nil {
				return err
			}
			creds, err := tlsx.LoadCredentials(tlsx.Paths{Cert: cfg.CertPath, Key: cfg.KeyPath, CA: cfg.CAPath})
			if err != nil {
				return err
			}
			return render(cmd.OutOrStdout(), flags.output, describe(creds, cfg.BaseURL, time.Now()))
		},
	}
}

func describe(creds *tlsx.Credentials, baseURL string, now time.Time) credentialReport {
	status := "ok"
	switch {
	case creds.Expired(now):
		status = "expired"
	case creds.ExpiresWithin(now, clientx.DefaultCertExpiryWarning):
		status = "expiring"
	}
	return credentialReport{
		Subject:   creds.Leaf.Subject.String(),
		Issuer:    creds.Leaf.Issuer.String(),
		NotBefore: creds.Leaf.NotBefore.UTC().Format(time.RFC3339),
		NotAfter:  creds.Leaf.NotAfter.UTC().Format(time.RFC3339),
		DaysLeft:  int(creds.Leaf.NotAfter.Sub(now).Hours() / 24),
		RootCAs:   creds.CACount,
		Status:    status,
		BaseURL:   baseURL,
	}
}
