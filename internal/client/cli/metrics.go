package cli

import (
	"fmt"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/fitiq/fitiq/internal/client/models"
	"github.com/fitiq/fitiq/internal/client/repositories/mood"
	"github.com/fitiq/fitiq/internal/client/repositories/progress"
	"github.com/spf13/cobra"
)

func (r *runner) progressCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "progress",
		Short: "Log and list body and activity metrics",
	}
	cmd.AddCommand(r.progressLogCommand(), r.progressListCommand())
	return cmd
}

func (r *runner) progressLogCommand() *cobra.Command {
	var date, notes string
	cmd := &cobra.Command{
		Use:   "log <type> <quantity>",
		Short: "Record a measurement (weight, height, body_fat, steps, resting_heart_rate)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			q, err := strconv.ParseFloat(args[1], 64)
			if err != nil {
				return fmt.Errorf("invalid quantity %q", args[1])
			}
			at, err := parseDate(date)
			if err != nil {
				return err
			}

			e, created, err := r.app.progress.Log(cmd.Context(), models.ProgressEntry{
				Type:     models.MetricType(strings.ToLower(args[0])),
				Quantity: q,
				Date:     at,
				Notes:    notes,
			})
			if err != nil {
				return err
			}
			if !created {
				fmt.Fprintf(r.app.out, "Already logged: %s\n", e.ID)
				return nil
			}
			fmt.Fprintf(r.app.out, "Logged %s %g %s (%s)\n", e.Type, e.Quantity, e.Type.Unit(), e.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&date, "date", "", "measurement date (default now)")
	cmd.Flags().StringVar(&notes, "notes", "", "free text")
	return cmd
}

func (r *runner) progressListCommand() *cobra.Command {
	var (
		typ, from, to string
		limit         int
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List logged measurements, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			f := progress.Filter{Type: models.MetricType(strings.ToLower(typ)), Limit: limit}
			var err error
			if f.From, err = optionalDate(from); err != nil {
				return err
			}
			if f.To, err = optionalDate(to); err != nil {
				return err
			}

			list, err := r.app.progress.List(cmd.Context(), f)
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(r.app.out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "DATE\tTYPE\tQUANTITY\tSTATUS\tID")
			for _, e := range list {
				fmt.Fprintf(tw, "%s\t%s\t%g %s\t%s\t%s\n",
					formatDate(&e.Date), e.Type, e.Quantity, e.Type.Unit(), e.SyncStatus, e.ID)
			}
			return tw.Flush()
		},
	}
	f := cmd.Flags()
	f.StringVar(&typ, "type", "", "only this metric")
	f.StringVar(&from, "from", "", "earliest date")
	f.StringVar(&to, "to", "", "latest date")
	f.IntVar(&limit, "limit", 20, "maximum rows, 0 for all")
	return cmd
}

func optionalDate(s string) (*time.Time, error) {
	t, err := parseDate(s)
	if err != nil || t.IsZero() {
		return nil, err
	}
	return &t, nil
}

func (r *runner) moodCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mood",
		Short: "Log and list mood check-ins",
	}
	cmd.AddCommand(r.moodLogCommand(), r.moodListCommand())
	return cmd
}

func (r *runner) moodLogCommand() *cobra.Command {
	var date, notes, emotions string
	cmd := &cobra.Command{
		Use:   "log <score>",
		Short: "Record a mood score from 1 to 10",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			score, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid score %q", args[0])
			}
			at, err := parseDate(date)
			if err != nil {
				return err
			}

			e, created, err := r.app.mood.Log(cmd.Context(), models.MoodEntry{
				Score:    score,
				Emotions: splitList(emotions),
				Date:     at,
				Notes:    notes,
			})
			if err != nil {
				return err
			}
			if !created {
				fmt.Fprintf(r.app.out, "Already logged: %s\n", e.ID)
				return nil
			}
			fmt.Fprintf(r.app.out, "Logged mood %d (%s)\n", e.Score, e.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&date, "date", "", "check-in date (default now)")
	cmd.Flags().StringVar(&emotions, "emotions", "", "comma separated, e.g. calm,grateful")
	cmd.Flags().StringVar(&notes, "notes", "", "free text")
	return cmd
}

func (r *runner) moodListCommand() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List mood check-ins, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			list, err := r.app.mood.List(cmd.Context(), mood.Filter{Limit: limit})
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(r.app.out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "DATE\tSCORE\tEMOTIONS\tSTATUS\tID")
			for _, e := range list {
				fmt.Fprintf(tw, "%s\t%d\t%s\t%s\t%s\n",
					formatDate(&e.Date), e.Score, orDash(strings.Join(e.Emotions, ",")), e.SyncStatus, e.ID)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "maximum rows, 0 for all")
	return cmd
}
