package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/kirillkom/engineering-analysis-ai/internal/bootstrap"
	"github.com/kirillkom/engineering-analysis-ai/internal/config"
	"github.com/kirillkom/engineering-analysis-ai/internal/core/domain"
	"github.com/kirillkom/engineering-analysis-ai/internal/observability/logging"
)

const serviceName = "engai-cli"

type ui struct {
	title func(a ...interface{}) string
	ok    func(a ...interface{}) string
	info  func(a ...interface{}) string
	warn  func(a ...interface{}) string
	err   func(a ...interface{}) string
	dim   func(a ...interface{}) string
}

func newUI() *ui {
	return &ui{
		title: color.New(color.FgHiCyan, color.Bold).SprintFunc(),
		ok:    color.New(color.FgGreen, color.Bold).SprintFunc(),
		info:  color.New(color.FgCyan).SprintFunc(),
		warn:  color.New(color.FgYellow).SprintFunc(),
		err:   color.New(color.FgRed, color.Bold).SprintFunc(),
		dim:   color.New(color.FgHiBlack).SprintFunc(),
	}
}

func main() {
	ui := newUI()
	logLevel := getenv("LOG_LEVEL", "warn")

	root := &cobra.Command{
		Use:   "engai",
		Short: "Engineering image analysis",
		Long:  "Describe an engineering image with a vision model and turn the description into a domain analysis report.",
	}
	root.SilenceUsage = true
	root.SilenceErrors = true
	root.PersistentFlags().StringVar(&logLevel, "log-level", logLevel, "Log level written to stderr (debug, info, warn, error)")
	root.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		slog.SetDefault(logging.NewJSONLogger(os.Stderr, serviceName, logLevel))
		return nil
	}

	root.AddCommand(analyzeCmd(ui))
	root.AddCommand(domainsCmd(ui))
	root.AddCommand(eventsCmd(ui))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := root.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, ui.err("[ERROR]"), err.Error())
		os.Exit(1)
	}
}

func domainsCmd(ui *ui) *cobra.Command {
	return &cobra.Command{
		Use:   "domains",
		Short: "List supported engineering domains",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			for _, d := range domain.Domains() {
				fmt.Fprintf(out, "%s %s\n", d.String(), ui.dim("("+d.Slug()+")"))
			}
			return nil
		},
	}
}

// loadApp reads configuration from the environment and wires the pipeline.
func loadApp(ctx context.Context) (*bootstrap.App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	return bootstrap.New(ctx, cfg, serviceName)
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
