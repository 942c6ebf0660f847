package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kirillkom/engineering-analysis-ai/internal/config"
	"github.com/kirillkom/engineering-analysis-ai/internal/core/domain"
	natsevents "github.com/kirillkom/engineering-analysis-ai/internal/infrastructure/events/nats"
)

func eventsCmd(ui *ui) *cobra.Command {
	var (
		url     string
		subject string
		asJSON  bool
	)

	cmd := &cobra.Command{
		Use:   "events",
		Short: "Follow pipeline events published on NATS",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("nats-url") {
				url = cfg.NATSURL
			}
			if !cmd.Flags().Changed("subject") {
				subject = cfg.NATSSubject
			}
			if strings.TrimSpace(url) == "" {
				return errors.New("NATS_URL is not set (use --nats-url)")
			}

			retry := false
			sub, err := natsevents.New(url, subject, natsevents.Options{
				Name:                 serviceName + "-events",
				RetryOnFailedConnect: &retry,
			})
			if err != nil {
				return err
			}
			defer sub.Close()

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s %s\n", ui.title("Following"), url)
			return sub.SubscribeAnalysisEvents(cmd.Context(), func(_ context.Context, event domain.AnalysisEvent) error {
				return printEvent(out, ui, event, asJSON)
			})
		},
	}
	cmd.Flags().StringVar(&url, "nats-url", "", "NATS server URL (default NATS_URL)")
	cmd.Flags().StringVar(&subject, "subject", "", "Event subject (default NATS_SUBJECT)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print raw JSON events")
	return cmd
}

func printEvent(w io.Writer, ui *ui, event domain.AnalysisEvent, asJSON bool) error {
	if asJSON {
		return json.NewEncoder(w).Encode(event)
	}
	label := ui.ok(string(event.Type))
	if event.FailureCode != "" {
		label = ui.warn(string(event.Type))
	}
	line := fmt.Sprintf("%s %s session=%s provider=%s duration=%dms",
		ui.dim(event.OccurredAt.Format("15:04:05")), label, event.SessionID, event.Provider, event.DurationMS)
	if event.Domain != "" {
		line += " domain=" + ui.info(event.Domain.String())
	}
	if event.FailureCode != "" {
		line += " failure=" + ui.err(event.FailureCode)
	}
	_, err := fmt.Fprintln(w, line)
	return err
}
