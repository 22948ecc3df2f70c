// Command seed creates a health check and fills it with sample responses,
// driving each one through the same session state machine as a participant.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"teamhealth/internal/model"
	"teamhealth/internal/results"
	"teamhealth/internal/service"
	"teamhealth/internal/session"
	"teamhealth/internal/survey"
)

func main() {
	cfg, err := parseFlags(flag.CommandLine, os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(2)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	backend := service.NewHealthCheckClient(cfg.Endpoint, cfg.Timeout, 3)
	if err := run(ctx, cfg, backend, os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg Config, backend service.Backend, out io.Writer) error {
	checks := service.NewHealthCheckService(backend, cfg.PublicURL)

	created, err := checks.Create(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "created health check %s\n", created.ID)

	for k := 0; k < cfg.Responses; k++ {
		ratings := cfg.Pattern
		if ratings == nil {
			ratings = rotating(k)
		}

		m := session.New(survey.TopicCount())
		if err := m.Begin(); err != nil {
			return err
		}
		for i, r := range ratings {
			if err := m.SelectRating(i, r); err != nil {
				return fmt.Errorf("response %d topic %d: %w", k, i, err)
			}
			if err := m.ConfirmTopic(); err != nil {
				return fmt.Errorf("response %d topic %d: %w", k, i, err)
			}
		}
		id, err := m.Submit(ctx, backend, created.ID)
		if err != nil {
			return fmt.Errorf("response %d: %w", k, err)
		}
		fmt.Fprintf(out, "submitted response %s\n", id)
	}

	summary, err := checks.Results(ctx, created.ID)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "share:   %s\n", created.ShareURL)
	fmt.Fprintf(out, "results: %s\n", checks.ResultsURL(created.ID))
	fmt.Fprintln(out, summary.ResponsesText)
	printSummary(out, summary)
	return nil
}

// rotating gives response k the rating (i+k) mod 3 on topic i
func rotating(k int) model.ResponseVector {
	out := make(model.ResponseVector, survey.TopicCount())
	for i := range out {
		out[i] = model.Rating((i + k) % model.RatingLevels)
	}
	return out
}

func printSummary(out io.Writer, s *results.Summary) {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "TOPIC\tSUCKY\tOK\tAWESOME\tAVERAGE\tBUCKET")
	for _, t := range s.Topics {
		avg := "-"
		if t.Average != nil {
			avg = fmt.Sprintf("%.2f", *t.Average)
		}
		fmt.Fprintf(tw, "%s\t%d\t%d\t%d\t%s\t%s\n", t.Title, t.Counts[0], t.Counts[1], t.Counts[2], avg, t.Bucket)
	}
	tw.Flush()
}
