package commands

import (
	"context"
	"errors"
	"sync"
	libtelemetry "tarjomic-watch/lib/telemetry"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

type countingExporter struct {
	mu       sync.Mutex
	exported int
}

func (e *countingExporter) ExportSpans(ctx context.Context, spans []sdktrace.ReadOnlySpan) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.exported += len(spans)
	return nil
}

func (e *countingExporter) Shutdown(ctx context.Context) error {
	return nil
}

func TestExecuteFlushesTelemetryOnFailure(t *testing.T) {
	exporter := &countingExporter{}
	provider := sdktrace.NewTracerProvider(sdktrace.WithBatcher(exporter))

	previous := otelProviders
	otelProviders = libtelemetry.Telemetry{TracerProvider: provider}
	t.Cleanup(func() { otelProviders = previous })

	failing := &cobra.Command{
		Use:          "failing",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, span := provider.Tracer("test").Start(cmd.Context(), "save")
			span.End()
			return errors.New("save failed")
		},
	}
	failing.SetArgs([]string{})

	err := execute(context.Background(), failing)
	require.EqualError(t, err, "save failed")

	exporter.mu.Lock()
	defer exporter.mu.Unlock()
	require.Equal(t, 1, exporter.exported)
}
