// Package mhvcf is the client for the MHV Coordinated Forms partner service.
//
// It binds the EVSS credential environment (EVSS_CERT_FILE_PATH,
// EVSS_CERT_KEY_PATH, EVSS_ROOT_CERT_FILE_PATH) and the MHVCF_* tunables into
// a clientx.Client and exposes the partner operations by name.
//
// Usage:
//
//	cfg, err := mhvcf.LoadConfig(ctx, "")
//	client, err := mhvcf.New(cfg, mhvcf.WithClientOptions(clientx.WithLogger(logger)))
//	defer client.Close()
//	resp, err := client.GetForms(ctx)
package mhvcf
