package main

import (
	"context"
	"fmt"
	"strings"

	"binops/cmd/bins/ui"
	"binops/internal/model"

	"github.com/spf13/cobra"
)

var capacityDate string

var plantsCmd = &cobra.Command{
	Use:     "plants",
	Aliases: []string{"p"},
	Short:   "Recycling plants and dumpster assignment",
}

var plantsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recycling plants with their capacity today",
	Args:  cobra.NoArgs,
	RunE:  runPlantsList,
}

var plantsCapacityCmd = &cobra.Command{
	Use:   "capacity <plant>",
	Short: "Show a plant's available capacity on a day",
	Args:  cobra.ExactArgs(1),
	RunE:  runPlantsCapacity,
}

var plantsAssignCmd = &cobra.Command{
	Use:   "assign <plant> <dumpster-id>...",
	Short: "Assign dumpsters to a recycling plant",
	Args:  cobra.MinimumNArgs(2),
	RunE:  runPlantsAssign,
}

func init() {
	plantsListCmd.Flags().BoolVar(&jsonOutput, "json", false, "Print JSON")
	plantsListCmd.Flags().StringVar(&capacityDate, "date", "", "Day for the capacity column, YYYY-MM-DD (default: today)")
	plantsCapacityCmd.Flags().StringVar(&capacityDate, "date", "", "Day, YYYY-MM-DD (default: today)")

	plantsCmd.AddCommand(plantsListCmd)
	plantsCmd.AddCommand(plantsCapacityCmd)
	plantsCmd.AddCommand(plantsAssignCmd)
}

func runPlantsList(cmd *cobra.Command, args []string) error {
	date, err := dateFlag(capacityDate, model.Today())
	if err != nil {
		return err
	}
	return withApp(func(ctx context.Context, a *app) error {
		choices, err := a.fleet.PlantChoices(ctx, date)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if jsonOutput {
			return writeJSON(out, choices)
		}

		plants := make([]model.RecyclingPlant, len(choices))
		for i, c := range choices {
			plants[i] = c.Plant
		}
		styles := ui.DefaultStyles()
		fmt.Fprint(out, ui.PlantTable(plants).View(styles))
		if len(choices) > 0 {
			fmt.Fprintln(out)
			fmt.Fprint(out, ui.ChoiceTable(date, choices).View(styles))
		}
		return nil
	})
}

func runPlantsCapacity(cmd *cobra.Command, args []string) error {
	date, err := dateFlag(capacityDate, model.Today())
	if err != nil {
		return err
	}
	name := strings.TrimSpace(args[0])
	return withApp(func(ctx context.Context, a *app) error {
		capacity, found, err := a.fleet.PlantCapacity(ctx, name, date)
		if err != nil {
			return err
		}
		if !found {
			return fmt.Errorf("recycling plant %q not found", name)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s has %d L available on %s\n", name, capacity, date)
		return nil
	})
}

func runPlantsAssign(cmd *cobra.Command, args []string) error {
	ids := make([]int64, 0, len(args)-1)
	for _, arg := range args[1:] {
		id, err := parseID(arg)
		if err != nil {
			return err
		}
		ids = append(ids, id)
	}
	return withApp(func(ctx context.Context, a *app) error {
		if err := a.fleet.AssignToPlant(ctx, args[0], ids...); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Assigned %d dumpster(s) to %s\n", len(ids), strings.TrimSpace(args[0]))
		return nil
	})
}
