package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rentshield/rentshield/internal/api"
	"github.com/rentshield/rentshield/internal/config"
	"github.com/rentshield/rentshield/internal/logging"
	"github.com/rentshield/rentshield/internal/pipeline"
	"github.com/rentshield/rentshield/internal/validation"
)

const appName = "evidencectl"

// engineFactory builds the pipeline; tests replace it.
type engineFactory func(ctx context.Context, cfg config.Config, logger *slog.Logger) (api.Engine, error)

func defaultFactory(ctx context.Context, cfg config.Config, logger *slog.Logger) (api.Engine, error) {
	asm, err := pipeline.FromConfig(ctx, cfg, nil, logger)
	if err != nil {
		return nil, err
	}
	return asm.Engine, nil
}

type options struct {
	logLevel string
	policy   string
	factory  engineFactory
}

func rootCmd() *cobra.Command {
	return newRootCmd(defaultFactory)
}

func newRootCmd(factory engineFactory) *cobra.Command {
	opts := &options{factory: factory}

	cmd := &cobra.Command{
		Use:   appName,
		Short: "Evidence authenticity and claim consistency checks",
		Long: `evidencectl scores photographic evidence for tenant/landlord disputes.

Model server and limits are read from the same environment variables as the
server (OLLAMA_BASE_URL, OLLAMA_MODEL, OLLAMA_VISION_MODEL, ...).`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "warn", "Log level (debug, info, warn, error)")
	cmd.PersistentFlags().StringVar(&opts.policy, "policy", "", "Scoring policy YAML file (overrides SCORING_POLICY_FILE)")

	cmd.AddCommand(validateCmd(opts), analyzeCmd(opts), healthCmd(opts), versionCmd())
	return cmd
}

func validateCmd(opts *options) *cobra.Command {
	var claim, incidentDate string

	cmd := &cobra.Command{
		Use:   "validate <image>",
		Short: "Score a local image from its embedded metadata",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, err := opts.engine(cmd.Context(), cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			result, err := engine.Validate(cmd.Context(), args[0], validation.ValidateOptions{
				Claim:        claim,
				IncidentDate: incidentDate,
			})
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), result)
		},
	}

	cmd.Flags().StringVar(&claim, "claim", "", "Claim text to check against the metadata")
	cmd.Flags().StringVar(&incidentDate, "incident-date", "", "Reported incident date (ISO-8601)")
	return cmd
}

func analyzeCmd(opts *options) *cobra.Command {
	var claim, incidentDate string

	cmd := &cobra.Command{
		Use:   "analyze <image path or URL>",
		Short: "Run the full multimodal analysis on a local file or an http(s)/s3 URL",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(claim) == "" {
				return fmt.Errorf("--claim is required")
			}
			engine, err := opts.engine(cmd.Context(), cmd.ErrOrStderr())
			if err != nil {
				return err
			}

			req := pipeline.AnalyzeRequest{Claim: claim, IncidentDate: incidentDate}
			if isURL(args[0]) {
				req.ImageURL = args[0]
			} else {
				req.LocalPath = args[0]
			}

			result, err := engine.Analyze(cmd.Context(), req)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), result)
		},
	}

	cmd.Flags().StringVar(&claim, "claim", "", "Tenant claim the image should support")
	cmd.Flags().StringVar(&incidentDate, "incident-date", "", "Reported incident date (ISO-8601)")
	return cmd
}

func healthCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check that the reasoning and vision models are installed",
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, err := opts.engine(cmd.Context(), cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			health := engine.Health(cmd.Context())
			if err := printJSON(cmd.OutOrStdout(), health); err != nil {
				return err
			}
			if !health.Healthy() {
				return fmt.Errorf("model server degraded")
			}
			return nil
		},
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "%s version %s\n", appName, api.Version)
		},
	}
}

func (o *options) engine(ctx context.Context, logOut io.Writer) (api.Engine, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	if o.policy != "" {
		policy, err := config.LoadPolicy(o.policy)
		if err != nil {
			return nil, fmt.Errorf("load policy: %w", err)
		}
		cfg.Policy = policy
	}
	if err := cfg.Logging.Level.UnmarshalText([]byte(o.logLevel)); err != nil {
		return nil, fmt.Errorf("invalid --log-level: %w", err)
	}
	cfg.Logging.Format = "text"

	logger, err := logging.NewWithWriter(cfg.Logging, logOut)
	if err != nil {
		return nil, err
	}
	return o.factory(ctx, cfg, logger)
}

func isURL(s string) bool {
	for _, scheme := range []string{"http://", "https://", "s3://"} {
		if strings.HasPrefix(s, scheme) {
			return true
		}
	}
	return false
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
