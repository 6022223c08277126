package learn

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/tagwise/tagwise/internal/activelearning"
	"github.com/tagwise/tagwise/internal/app"
	"github.com/tagwise/tagwise/internal/conf"
	"github.com/tagwise/tagwise/internal/logger"
)

// Report is the YAML document written after a one-shot pass.
type Report struct {
	Instance       string                         `yaml:"instance,omitempty"`
	RunID          string                         `yaml:"run_id"`
	Skipped        bool                           `yaml:"skipped"`
	Duration       string                         `yaml:"duration"`
	Pinned         int                            `yaml:"pinned"`
	TrainedSchemes []string                       `yaml:"trained_schemes"`
	SkippedSchemes []activelearning.SkippedScheme `yaml:"skipped_schemes,omitempty"`
	RandomCount    int                            `yaml:"random_count"`
	OverflowCount  int                            `yaml:"overflow_count"`
	Queue          []QueueEntry                   `yaml:"queue,omitempty"`
}

// QueueEntry is one position of the new order with its selection tag.
type QueueEntry struct {
	ID            string `yaml:"id"`
	SelectionType string `yaml:"selection_type"`
}

// Command creates the learn command.
func Command(settings *conf.Settings) *cobra.Command {
	var (
		output string
		full   bool
	)

	cmd := &cobra.Command{
		Use:   "learn",
		Short: "Run one active-learning pass and print a YAML report",
		Long: "Load the corpus and persisted annotations, retrain the classifiers, " +
			"re-rank every user's queue once and print what was done.",
		RunE: func(cmd *cobra.Command, args []string) error {
			w := cmd.OutOrStdout()
			if output != "" && output != "-" {
				f, err := os.Create(output)
				if err != nil {
					return fmt.Errorf("failed to create report file: %w", err)
				}
				defer func() { _ = f.Close() }()
				w = f
			}
			return run(cmd.Context(), settings, afero.NewOsFs(), w, full)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "-", "Report file, - for stdout")
	cmd.Flags().BoolVar(&full, "full", false, "Include the whole new order in the report")

	return cmd
}

func run(ctx context.Context, settings *conf.Settings, fs afero.Fs, w io.Writer, full bool) error {
	log := logger.Global().Module("learn")
	defer app.FlushSentry(2 * time.Second)

	a, err := app.New(ctx, settings, fs, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			log.Warn("failed to close datastore", logger.Error(err))
		}
	}()

	res, err := a.Learner.ActivelyLearn(ctx)
	if err != nil {
		return err
	}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(newReport(settings.Main.Name, res, full)); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return enc.Close()
}

func newReport(instance string, res *activelearning.Result, full bool) Report {
	r := Report{
		Instance:       instance,
		RunID:          res.RunID,
		Skipped:        res.Skipped,
		Duration:       res.Duration.Round(time.Millisecond).String(),
		Pinned:         len(res.Pinned),
		TrainedSchemes: res.TrainedSchemes,
		SkippedSchemes: res.SkippedSchemes,
		RandomCount:    res.RandomCount,
		OverflowCount:  res.OverflowCount,
	}
	if full {
		for _, id := range res.NewOrder {
			r.Queue = append(r.Queue, QueueEntry{ID: id, SelectionType: res.SelectionTypes[id]})
		}
	}
	return r
}
