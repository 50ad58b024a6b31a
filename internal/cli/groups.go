package cli

import (
	"context"
	"fmt"
	"io"
	"os/signal"
	"slices"
	"strconv"
	"strings"
	"syscall"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/arloliu/pcgroups"
	"github.com/arloliu/pcgroups/strategy"
)

// newKindCommand constructs the `static` or `elastic` command group.
func newKindCommand(opts *globalOptions, kind pcgroups.Kind) *cobra.Command {
	kindCmd := &cobra.Command{
		Use:   kind.String(),
		Short: fmt.Sprintf("Manage and consume %s consumer groups", kind),
	}

	kindCmd.AddCommand(
		newCreateCommand(opts, kind),
		newDeleteCommand(opts, kind),
		newListCommand(opts, kind),
		newInfoCommand(opts, kind),
		newMembersCommand(opts, kind),
		newStepDownCommand(opts, kind),
		newConsumeCommand(opts, kind),
	)

	if kind == pcgroups.KindElastic {
		kindCmd.AddCommand(
			newAddCommand(opts),
			newDropCommand(opts),
			newSetMappingsCommand(opts),
			newClearMappingsCommand(opts),
		)
	}

	return kindCmd
}

// newCreateCommand constructs the `create <stream> <group>` subcommand.
func newCreateCommand(opts *globalOptions, kind pcgroups.Kind) *cobra.Command {
	var (
		maxMembers int
		filter     string
		members    []string
		wildcards  []int
		maxMsgs    int64
		maxBytes   string
	)

	createCmd := &cobra.Command{
		Use:   "create <stream> <group>",
		Short: fmt.Sprintf("Create a %s consumer group", kind),
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := pcgroups.GroupConfig{
				MaxMembers:            maxMembers,
				Filter:                filter,
				Members:               members,
				PartitioningWildcards: wildcards,
				MaxBufferedMsgs:       maxMsgs,
			}
			if maxBytes != "" {
				n, err := humanize.ParseBytes(maxBytes)
				if err != nil {
					return fmt.Errorf("invalid --max-buffered-bytes: %w", err)
				}
				cfg.MaxBufferedBytes = int64(n)
			}

			return withRegistry(cmd, opts, func(ctx context.Context, reg *pcgroups.Registry) error {
				stored, err := reg.Groups(kind).Create(ctx, args[0], args[1], cfg)
				if err != nil {
					return err
				}
				printConfig(cmd.OutOrStdout(), args[0], args[1], stored)

				return nil
			})
		},
	}
	createCmd.Flags().IntVar(&maxMembers, "max-members", 0, "Number of partitions")
	createCmd.Flags().StringVar(&filter, "filter", "", "Subject filter of the group")
	createCmd.Flags().StringSliceVar(&members, "members", nil, "Member names")
	_ = createCmd.MarkFlagRequired("max-members")

	if kind == pcgroups.KindElastic {
		createCmd.Flags().IntSliceVar(&wildcards, "wildcards", nil, "1-based indexes of the filter wildcards used for partitioning")
		createCmd.Flags().Int64Var(&maxMsgs, "max-buffered-msgs", 0, "Work stream message limit, 0 for unbounded")
		createCmd.Flags().StringVar(&maxBytes, "max-buffered-bytes", "", "Work stream size limit, e.g. 512MiB")
		_ = createCmd.MarkFlagRequired("filter")
		_ = createCmd.MarkFlagRequired("wildcards")
	}

	return createCmd
}

// newDeleteCommand constructs the `delete <stream> <group>` subcommand.
func newDeleteCommand(opts *globalOptions, kind pcgroups.Kind) *cobra.Command {
	return &cobra.Command{
		Use:     "delete <stream> <group>",
		Aliases: []string{"rm"},
		Short:   "Delete a consumer group and its consumers",
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRegistry(cmd, opts, func(ctx context.Context, reg *pcgroups.Registry) error {
				if err := reg.Groups(kind).Delete(ctx, args[0], args[1]); err != nil {
					return err
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "deleted %s group %s on %s\n", kind, args[1], args[0])

				return nil
			})
		},
	}
}

// newListCommand constructs the `ls <stream>` subcommand.
func newListCommand(opts *globalOptions, kind pcgroups.Kind) *cobra.Command {
	return &cobra.Command{
		Use:     "ls <stream>",
		Aliases: []string{"list"},
		Short:   "List the consumer groups of a stream",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRegistry(cmd, opts, func(ctx context.Context, reg *pcgroups.Registry) error {
				groups, err := reg.Groups(kind).List(ctx, args[0])
				if err != nil {
					return err
				}
				for _, g := range groups {
					_, _ = fmt.Fprintln(cmd.OutOrStdout(), g)
				}

				return nil
			})
		},
	}
}

// newInfoCommand constructs the `info <stream> <group>` subcommand.
func newInfoCommand(opts *globalOptions, kind pcgroups.Kind) *cobra.Command {
	return &cobra.Command{
		Use:   "info <stream> <group>",
		Short: "Show a consumer group config and its partition assignment",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRegistry(cmd, opts, func(ctx context.Context, reg *pcgroups.Registry) error {
				cfg, err := reg.Groups(kind).Get(ctx, args[0], args[1])
				if err != nil {
					return err
				}
				printConfig(cmd.OutOrStdout(), args[0], args[1], cfg)

				return nil
			})
		},
	}
}

// newMembersCommand constructs the `members <stream> <group>` subcommand.
func newMembersCommand(opts *globalOptions, kind pcgroups.Kind) *cobra.Command {
	return &cobra.Command{
		Use:   "members <stream> <group>",
		Short: "List the members whose consumer currently exists",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRegistry(cmd, opts, func(ctx context.Context, reg *pcgroups.Registry) error {
				active, err := reg.Groups(kind).ActiveMembers(ctx, args[0], args[1])
				if err != nil {
					return err
				}
				for _, m := range active {
					_, _ = fmt.Fprintln(cmd.OutOrStdout(), m)
				}

				return nil
			})
		},
	}
}

// newStepDownCommand constructs the `step-down <stream> <group> <member>` subcommand.
func newStepDownCommand(opts *globalOptions, kind pcgroups.Kind) *cobra.Command {
	return &cobra.Command{
		Use:   "step-down <stream> <group> <member>",
		Short: "Unpin the active instance of a member so a standby takes over",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRegistry(cmd, opts, func(ctx context.Context, reg *pcgroups.Registry) error {
				if err := reg.Groups(kind).MemberStepDown(ctx, args[0], args[1], args[2]); err != nil {
					return err
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "member %s stepped down\n", args[2])

				return nil
			})
		},
	}
}

// newConsumeCommand constructs the `consume <stream> <group> <member>` subcommand.
func newConsumeCommand(opts *globalOptions, kind pcgroups.Kind) *cobra.Command {
	var (
		quiet       bool
		metricsAddr string
	)

	consumeCmd := &cobra.Command{
		Use:   "consume <stream> <group> <member>",
		Short: "Join a group as member and print received messages until interrupted",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()
			cmd.SetContext(ctx)

			out := cmd.OutOrStdout()
			handler := pcgroups.MessageHandlerFunc(func(_ context.Context, msg *pcgroups.Msg) error {
				if !quiet {
					_, _ = fmt.Fprintf(out, "[%d] %s: %s\n", msg.Partition(), msg.Subject(), msg.Data())
				}

				return nil
			})

			return withRegistry(cmd, opts, func(ctx context.Context, reg *pcgroups.Registry) error {
				hooks := &pcgroups.Hooks{
					OnPartitionsChanged: func(_ context.Context, _, partitions []int) error {
						_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "consuming partitions %v\n", partitions)
						return nil
					},
				}

				consumeOpts := []pcgroups.Option{pcgroups.WithHooks(hooks)}
				if metricsAddr != "" {
					collector, stop := serveMetrics(ctx, metricsAddr, cmd.ErrOrStderr())
					defer stop()
					consumeOpts = append(consumeOpts, pcgroups.WithMetrics(collector))
				}

				cc, err := reg.Groups(kind).Consume(ctx, args[0], args[1], args[2], handler, consumeOpts...)
				if err != nil {
					return err
				}
				_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "member %s active (instance %s), partitions %v\n",
					cc.Member(), cc.Instance(), cc.Partitions())

				select {
				case <-ctx.Done():
					cc.Stop()
					<-cc.Done()

					return nil
				case <-cc.Done():
					return cc.Err()
				}
			})
		},
	}
	consumeCmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "Do not print messages")
	consumeCmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address, e.g. :9090")

	return consumeCmd
}

// newAddCommand constructs the elastic `add <stream> <group> <member>...` subcommand.
func newAddCommand(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "add <stream> <group> <member>...",
		Short: "Add members to an elastic group",
		Args:  cobra.MinimumNArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRegistry(cmd, opts, func(ctx context.Context, reg *pcgroups.Registry) error {
				cfg, err := reg.Elastic().AddMembers(ctx, args[0], args[1], args[2:]...)
				if err != nil {
					return err
				}
				printConfig(cmd.OutOrStdout(), args[0], args[1], cfg)

				return nil
			})
		},
	}
}

// newDropCommand constructs the elastic `drop <stream> <group> <member>...` subcommand.
func newDropCommand(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "drop <stream> <group> <member>...",
		Short: "Remove members from an elastic group",
		Args:  cobra.MinimumNArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRegistry(cmd, opts, func(ctx context.Context, reg *pcgroups.Registry) error {
				cfg, err := reg.Elastic().DeleteMembers(ctx, args[0], args[1], args[2:]...)
				if err != nil {
					return err
				}
				printConfig(cmd.OutOrStdout(), args[0], args[1], cfg)

				return nil
			})
		},
	}
}

// newSetMappingsCommand constructs the elastic `set-mappings` subcommand.
func newSetMappingsCommand(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "set-mappings <stream> <group> <member=p1,p2,...>...",
		Short: "Replace the membership of an elastic group with explicit partition mappings",
		Args:  cobra.MinimumNArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			mappings, err := parseMappings(args[2:])
			if err != nil {
				return err
			}

			return withRegistry(cmd, opts, func(ctx context.Context, reg *pcgroups.Registry) error {
				cfg, err := reg.Elastic().SetMemberMappings(ctx, args[0], args[1], mappings)
				if err != nil {
					return err
				}
				printConfig(cmd.OutOrStdout(), args[0], args[1], cfg)

				return nil
			})
		},
	}
}

// newClearMappingsCommand constructs the elastic `clear-mappings` subcommand.
func newClearMappingsCommand(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "clear-mappings <stream> <group>",
		Short: "Remove the explicit partition mappings of an elastic group",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRegistry(cmd, opts, func(ctx context.Context, reg *pcgroups.Registry) error {
				cfg, err := reg.Elastic().DeleteMemberMappings(ctx, args[0], args[1])
				if err != nil {
					return err
				}
				printConfig(cmd.OutOrStdout(), args[0], args[1], cfg)

				return nil
			})
		},
	}
}

// parseMappings parses "member=0,1,2" arguments.
func parseMappings(args []string) ([]pcgroups.MemberMapping, error) {
	mappings := make([]pcgroups.MemberMapping, 0, len(args))
	for _, arg := range args {
		member, list, ok := strings.Cut(arg, "=")
		if !ok || member == "" || list == "" {
			return nil, fmt.Errorf("invalid mapping %q, expected member=p1,p2,...", arg)
		}

		var partitions []int
		for _, field := range strings.Split(list, ",") {
			p, err := strconv.Atoi(strings.TrimSpace(field))
			if err != nil {
				return nil, fmt.Errorf("invalid partition %q in mapping %q", field, arg)
			}
			partitions = append(partitions, p)
		}
		mappings = append(mappings, pcgroups.MemberMapping{Member: member, Partitions: partitions})
	}

	return mappings, nil
}

// printConfig renders a group config followed by its partition assignment.
func printConfig(w io.Writer, stream, group string, cfg *pcgroups.GroupConfig) {
	_, _ = fmt.Fprintf(w, "Group:        %s (%s) on %s\n", group, cfg.Kind, stream)
	_, _ = fmt.Fprintf(w, "Revision:     %d\n", cfg.Revision)
	_, _ = fmt.Fprintf(w, "Partitions:   %d\n", cfg.MaxMembers)
	if cfg.Filter != "" {
		_, _ = fmt.Fprintf(w, "Filter:       %s\n", cfg.Filter)
	}

	if cfg.Kind == pcgroups.KindElastic {
		_, _ = fmt.Fprintf(w, "Wildcards:    %v\n", cfg.PartitioningWildcards)
		_, _ = fmt.Fprintf(w, "Buffer:       %s, %s\n", limitMsgs(cfg.MaxBufferedMsgs), limitBytes(cfg.MaxBufferedBytes))
	}

	members := cfg.AllMembers()
	if len(members) == 0 {
		_, _ = fmt.Fprintln(w, "Members:      none")
		return
	}

	_, _ = fmt.Fprintln(w, "Members:")
	for _, m := range members {
		_, _ = fmt.Fprintf(w, "  %-12s %s\n", m, formatPartitions(strategy.PartitionsFor(cfg, m)))
	}
}

func limitMsgs(n int64) string {
	if n == 0 {
		return "unlimited messages"
	}

	return humanize.Comma(n) + " messages"
}

func limitBytes(n int64) string {
	if n == 0 {
		return "unlimited size"
	}

	return humanize.IBytes(uint64(n))
}

func formatPartitions(parts []int) string {
	if len(parts) == 0 {
		return "idle"
	}
	parts = slices.Clone(parts)
	slices.Sort(parts)

	fields := make([]string, len(parts))
	for i, p := range parts {
		fields[i] = strconv.Itoa(p)
	}

	return strings.Join(fields, ",")
}
