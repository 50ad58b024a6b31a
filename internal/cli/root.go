// Package cli contains the Cobra commands of the pcg operator tool.
package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/spf13/cobra"

	"github.com/arloliu/pcgroups"
	"github.com/arloliu/pcgroups/internal/logging"
)

// globalOptions are the persistent flags shared by every command.
type globalOptions struct {
	server     string
	configPath string
	logLevel   string
	timeout    time.Duration
}

// NewRootCommand constructs the pcg root command with the static and elastic
// command groups registered.
func NewRootCommand() *cobra.Command {
	opts := &globalOptions{}

	root := &cobra.Command{
		Use:           "pcg",
		Short:         "Partitioned consumer groups for NATS JetStream",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVarP(&opts.server, "server", "s", envOr("NATS_URL", nats.DefaultURL), "NATS server URL")
	root.PersistentFlags().StringVar(&opts.configPath, "config", os.Getenv("PCG_CONFIG"), "Runtime config YAML file")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", envOr("PCG_LOG_LEVEL", "warn"), "Log level: debug|info|warn|error")
	root.PersistentFlags().DurationVar(&opts.timeout, "timeout", 10*time.Second, "Connection timeout")

	root.AddCommand(
		newKindCommand(opts, pcgroups.KindStatic),
		newKindCommand(opts, pcgroups.KindElastic),
	)

	return root
}

// withRegistry connects to NATS, builds a registry and runs fn with it.
func withRegistry(cmd *cobra.Command, opts *globalOptions, fn func(ctx context.Context, reg *pcgroups.Registry) error) error {
	cfg := pcgroups.DefaultConfig()
	if opts.configPath != "" {
		loaded, err := pcgroups.LoadConfig(opts.configPath)
		if err != nil {
			return err
		}
		cfg = loaded
	}

	logger := logging.NewSlogText(cmd.ErrOrStderr(), opts.logLevel)

	nc, err := nats.Connect(opts.server, nats.Name("pcg"), nats.Timeout(opts.timeout))
	if err != nil {
		return fmt.Errorf("failed to connect to %s: %w", opts.server, err)
	}
	defer nc.Close()

	js, err := jetstream.New(nc)
	if err != nil {
		return fmt.Errorf("failed to create JetStream context: %w", err)
	}

	reg, err := pcgroups.NewRegistry(js, &cfg, pcgroups.WithLogger(logger))
	if err != nil {
		return err
	}

	return fn(cmd.Context(), reg)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}

	return fallback
}
