package obsx

import (
	"context"
	"testing"
	"time"

	promclient "github.com/prometheus/client_golang/prometheus"
)

func TestNewProvider(t *testing.T) {
	tests := []struct {
		name    string
		opts    Options
		wantErr bool
	}{
		{
			name:    "valid options",
			opts:    Options{ServiceName: "mhvcfctl", ServiceVersion: "1.0.0"},
			wantErr: false,
		},
		{
			name:    "missing service name",
			opts:    Options{ServiceVersion: "1.0.0"},
			wantErr: true,
		},
		{
			name: "with resource attributes and sampling",
			opts: Options{
				ServiceName:      "mhvcfctl",
				ResourceAttrs:    map[string]string{"environment": "test"},
				TraceSampleRatio: 0.25,
			},
			wantErr: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			provider, err := NewProvider(context.Background(), tt.opts)
			if (err != nil) != tt.wantErr {
				t.Fatalf("NewProvider() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			defer provider.Shutdown(context.Background())

			if provider.MeterProvider() == nil || provider.TracerProvider() == nil {
				t.Error("providers should not be nil")
			}
			if provider.Meter("clientx") == nil || provider.Tracer("clientx") == nil {
				t.Error("Meter and Tracer should not be nil")
			}
			if provider.PrometheusHandler() == nil {
				t.Error("PrometheusHandler should not be nil")
			}
		})
	}
}

func TestNewProvider_SharedRegistry(t *testing.T) {
	reg := promclient.NewRegistry()
	ctx := context.Background()
	provider, err := NewProvider(ctx, Options{ServiceName: "mhvcfctl", Registry: reg})
	if err != nil {
		t.Fatalf("NewProvider() error = %v", err)
	}
	defer provider.Shutdown(ctx)

	counter, _ := provider.Meter("test").Int64Counter("sample_total")
	counter.Add(ctx, 1)

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather() error = %v", err)
	}
	found := false
	for _, f := range families {
		if f.GetName() == "sample_total" {
			found = true
		}
	}
	if !found {
		t.Error("counter should be registered in the supplied registry")
	}
}

func TestNewProvider_OTLPExport(t *testing.T) {
	// Exporters dial lazily, so an unreachable collector does not fail construction.
	provider, err := NewProvider(context.Background(), Options{
		ServiceName:    "mhvcfctl",
		OTLPEndpoint:   "127.0.0.1:1",
		OTLPInsecure:   true,
		MetricInterval: time.Hour,
	})
	if err != nil {
		t.Fatalf("NewProvider() error = %v", err)
	}
	if provider.Meter("test") == nil || provider.Tracer("test") == nil {
		t.Fatal("expected meter and tracer")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	_ = provider.Shutdown(ctx)
}
