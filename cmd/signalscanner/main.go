package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"SignalScanner/internal/app"
	"SignalScanner/internal/config"
	"SignalScanner/internal/logging"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "signalscanner",
		Short:         "Ingests, scores and publishes AI signal items",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(serveCmd(), runCmd(), prepareCmd(), publishCmd(), generateCmd(), statusCmd())
	return root
}

// withApp loads env and config, builds the application and tears it
// down afterwards.
func withApp(fn func(ctx context.Context, a *app.Application) error) error {
	_ = godotenv.Load()

	cfg := config.Load()
	logger := logging.New(cfg.Logging.Level)

	application, err := app.New(cfg, logger)
	if err != nil {
		return err
	}
	defer application.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return fn(ctx, application)
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the resident scheduler and admin API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(func(ctx context.Context, a *app.Application) error {
				return a.Serve(ctx)
			})
		},
	}
}

func runCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Execute one fetch-score-publish run",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(func(ctx context.Context, a *app.Application) error {
				result, err := a.RunOnce(ctx)
				if err != nil {
					return err
				}
				return printJSON(cmd, result)
			})
		},
	}
}

func prepareCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "prepare",
		Short: "Snapshot scored candidates without publishing",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(func(ctx context.Context, a *app.Application) error {
				candidates, errs := a.Prepare(ctx)
				for _, sig := range candidates {
					cmd.Printf("%.2f  [%s]  %s\n", sig.Score, sig.Source, sig.Title)
				}
				for _, msg := range errs {
					cmd.PrintErrln("warning:", msg)
				}
				return nil
			})
		},
	}
}

func publishCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "publish",
		Short: "Publish previously snapshotted candidates",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(func(ctx context.Context, a *app.Application) error {
				result, err := a.PublishPending(ctx, limit)
				if err != nil {
					return err
				}
				return printJSON(cmd, result)
			})
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 0, "maximum pending signals to publish (0 = all)")
	return cmd
}

func generateCmd() *cobra.Command {
	var topics int
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate synthetic topics via the language model and publish them",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(func(ctx context.Context, a *app.Application) error {
				result, err := a.Generate(ctx, topics)
				if err != nil {
					return err
				}
				return printJSON(cmd, result)
			})
		},
	}
	cmd.Flags().IntVar(&topics, "topics", 0, "number of topics to generate (0 = configured default)")
	return cmd
}

func statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Print the persisted schedule status",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(func(_ context.Context, a *app.Application) error {
				return printJSON(cmd, a.Status())
			})
		},
	}
}

func printJSON(cmd *cobra.Command, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	cmd.Println(string(data))
	return nil
}
