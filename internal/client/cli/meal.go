package cli

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/fitiq/fitiq/internal/client/models"
	"github.com/spf13/cobra"
)

func (r *runner) mealCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "meal",
		Short: "Log meals in plain language",
	}
	cmd.AddCommand(r.mealLogCommand(), r.mealShowCommand(), r.mealListCommand())
	return cmd
}

func (r *runner) mealLogCommand() *cobra.Command {
	var mealType, at string
	cmd := &cobra.Command{
		Use:   "log <description>",
		Short: "Describe a meal; the backend works out the items and calories",
		Example: `  fitiq meal log --type lunch "chicken caesar salad and an apple"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			loggedAt, err := parseDate(at)
			if err != nil {
				return err
			}
			m, err := r.app.meals.Submit(cmd.Context(), strings.Join(args, " "),
				models.MealType(strings.ToLower(mealType)), loggedAt)
			if err != nil {
				return err
			}
			fmt.Fprintf(r.app.out, "Queued %s meal %s\n", m.MealType, m.ID)
			return nil
		},
	}
	cmd.Flags().StringVarP(&mealType, "type", "t", string(models.MealSnack), "breakfast, lunch, dinner or snack")
	cmd.Flags().StringVar(&at, "at", "", "when the meal was eaten (default now)")
	return cmd
}

func (r *runner) mealShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show a meal log and its analysed items",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := r.app.meals.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			printMealLog(r.app.out, m)
			return nil
		},
	}
}

func printMealLog(w io.Writer, m *models.MealLog) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "Meal:\t%s\n", m.RawInput)
	fmt.Fprintf(tw, "Type:\t%s\n", m.MealType)
	fmt.Fprintf(tw, "Eaten:\t%s\n", formatTime(&m.LoggedAt))
	fmt.Fprintf(tw, "Status:\t%s\n", m.Status)
	if m.Status == models.MealLogCompleted {
		for _, it := range m.Items {
			fmt.Fprintf(tw, "  %s\t%s\t%.0f kcal\n", it.Name, orDash(it.Quantity), it.Calories)
		}
		fmt.Fprintf(tw, "Total:\t%.0f kcal\n", m.TotalCalories)
	}
	_ = tw.Flush()
}

func (r *runner) mealListCommand() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List meal logs, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			list, err := r.app.meals.List(cmd.Context(), limit)
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(r.app.out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "EATEN\tTYPE\tSTATUS\tKCAL\tID")
			for _, m := range list {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%.0f\t%s\n", formatTime(&m.LoggedAt), m.MealType, m.Status, m.TotalCalories, m.ID)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "maximum rows, 0 for all")
	return cmd
}
