package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"time"

	"binops/cmd/bins/ui"
	"binops/internal/controller"
	"binops/internal/model"

	"github.com/charmbracelet/glamour"
	"github.com/spf13/cobra"
)

var (
	listOffline bool
	jsonOutput  bool

	createLocation string
	createPostal   int
	createCapacity int
	createFill     int

	usageFrom string
	usageTo   string

	searchPostal int
	searchDate   string
)

var dumpstersCmd = &cobra.Command{
	Use:     "dumpsters",
	Aliases: []string{"d"},
	Short:   "List and manage dumpsters",
}

var dumpstersListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all dumpsters, fullest first",
	Long: `Lists every dumpster with its fill level.

With --offline the last listing fetched from the server is shown instead.`,
	Args: cobra.NoArgs,
	RunE: runDumpstersList,
}

var dumpstersShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show one dumpster",
	Args:  cobra.ExactArgs(1),
	RunE:  runDumpstersShow,
}

var dumpstersCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Register a new dumpster",
	Args:  cobra.NoArgs,
	RunE:  runDumpstersCreate,
}

var dumpstersFillCmd = &cobra.Command{
	Use:   "fill <id> <liters>",
	Short: "Report the current fill of a dumpster",
	Args:  cobra.ExactArgs(2),
	RunE:  runDumpstersFill,
}

var dumpstersUsageCmd = &cobra.Command{
	Use:   "usage <id>",
	Short: "Show the usage history of a dumpster",
	Args:  cobra.ExactArgs(1),
	RunE:  runDumpstersUsage,
}

var dumpstersSearchCmd = &cobra.Command{
	Use:   "search",
	Short: "Find the dumpsters of a postal code on a date",
	Args:  cobra.NoArgs,
	RunE:  runDumpstersSearch,
}

func init() {
	dumpstersListCmd.Flags().BoolVar(&listOffline, "offline", false, "Show the cached listing without contacting the server")
	dumpstersListCmd.Flags().BoolVar(&jsonOutput, "json", false, "Print JSON")
	dumpstersShowCmd.Flags().BoolVar(&jsonOutput, "json", false, "Print JSON")
	dumpstersSearchCmd.Flags().BoolVar(&jsonOutput, "json", false, "Print JSON")
	dumpstersUsageCmd.Flags().BoolVar(&jsonOutput, "json", false, "Print JSON")

	dumpstersCreateCmd.Flags().StringVar(&createLocation, "location", "", "Street address")
	dumpstersCreateCmd.Flags().IntVar(&createPostal, "postal-code", 0, "Postal code (1000-99999)")
	dumpstersCreateCmd.Flags().IntVar(&createCapacity, "capacity", 0, "Capacity in liters")
	dumpstersCreateCmd.Flags().IntVar(&createFill, "fill", 0, "Current fill in liters")
	_ = dumpstersCreateCmd.MarkFlagRequired("location")
	_ = dumpstersCreateCmd.MarkFlagRequired("postal-code")
	_ = dumpstersCreateCmd.MarkFlagRequired("capacity")

	dumpstersUsageCmd.Flags().StringVar(&usageFrom, "from", "", "First day, YYYY-MM-DD (default: 7 days ago)")
	dumpstersUsageCmd.Flags().StringVar(&usageTo, "to", "", "Last day, YYYY-MM-DD (default: today)")

	dumpstersSearchCmd.Flags().IntVar(&searchPostal, "postal-code", 0, "Postal code")
	dumpstersSearchCmd.Flags().StringVar(&searchDate, "date", "", "Day, YYYY-MM-DD (default: today)")
	_ = dumpstersSearchCmd.MarkFlagRequired("postal-code")

	dumpstersCmd.AddCommand(dumpstersListCmd)
	dumpstersCmd.AddCommand(dumpstersShowCmd)
	dumpstersCmd.AddCommand(dumpstersCreateCmd)
	dumpstersCmd.AddCommand(dumpstersFillCmd)
	dumpstersCmd.AddCommand(dumpstersUsageCmd)
	dumpstersCmd.AddCommand(dumpstersSearchCmd)
}

func runDumpstersList(cmd *cobra.Command, args []string) error {
	return withApp(func(ctx context.Context, a *app) error {
		var (
			ds    []model.Dumpster
			title = "Dumpsters"
			err   error
		)
		if listOffline {
			var fetched time.Time
			ds, fetched, err = a.fleet.CachedDumpsters()
			if err != nil {
				return err
			}
			if fetched.IsZero() {
				return fmt.Errorf("no cached dumpsters, run 'bins dumpsters list' while online first")
			}
			title = fmt.Sprintf("Dumpsters (cached %s)", fetched.Local().Format("2006-01-02 15:04"))
		} else if ds, err = a.fleet.Dumpsters(ctx); err != nil {
			return err
		}

		controller.SortByFill(ds)
		out := cmd.OutOrStdout()
		if jsonOutput {
			return writeJSON(out, ds)
		}
		styles := ui.DefaultStyles()
		fmt.Fprint(out, ui.DumpsterTable(title, ds, styles).View(styles))
		if len(ds) > 0 {
			fmt.Fprintf(out, "Loaded %d dumpsters\n", len(ds))
		}
		return nil
	})
}

func runDumpstersShow(cmd *cobra.Command, args []string) error {
	id, err := parseID(args[0])
	if err != nil {
		return err
	}
	return withApp(func(ctx context.Context, a *app) error {
		d, err := a.fleet.Dumpster(ctx, id)
		if err != nil {
			return err
		}
		if jsonOutput {
			return writeJSON(cmd.OutOrStdout(), d)
		}
		return writeMarkdown(cmd.OutOrStdout(), ui.DumpsterMarkdown(d))
	})
}

func runDumpstersCreate(cmd *cobra.Command, args []string) error {
	return withApp(func(ctx context.Context, a *app) error {
		d, err := a.fleet.CreateDumpster(ctx, createLocation, createPostal, createCapacity, createFill)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Created dumpster %d at %s (%d)\n", d.IDValue(), d.Location, d.PostalCode)
		return nil
	})
}

func runDumpstersFill(cmd *cobra.Command, args []string) error {
	id, err := parseID(args[0])
	if err != nil {
		return err
	}
	fill, err := strconv.Atoi(args[1])
	if err != nil {
		return fmt.Errorf("fill must be a whole number of liters: %q", args[1])
	}
	return withApp(func(ctx context.Context, a *app) error {
		ok, err := a.fleet.UpdateFill(ctx, id, fill)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("dumpster %d not found", id)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Dumpster %d now holds %d L\n", id, fill)
		return nil
	})
}

func runDumpstersUsage(cmd *cobra.Command, args []string) error {
	id, err := parseID(args[0])
	if err != nil {
		return err
	}
	end, err := dateFlag(usageTo, model.Today())
	if err != nil {
		return err
	}
	start, err := dateFlag(usageFrom, end.AddDays(-7))
	if err != nil {
		return err
	}
	return withApp(func(ctx context.Context, a *app) error {
		recs, err := a.fleet.Usage(ctx, id, start, end)
		if err != nil {
			return err
		}
		if jsonOutput {
			return writeJSON(cmd.OutOrStdout(), recs)
		}
		styles := ui.DefaultStyles()
		fmt.Fprint(cmd.OutOrStdout(), ui.UsageTable(id, recs, styles).View(styles))
		return nil
	})
}

func runDumpstersSearch(cmd *cobra.Command, args []string) error {
	date, err := dateFlag(searchDate, model.Today())
	if err != nil {
		return err
	}
	return withApp(func(ctx context.Context, a *app) error {
		ds, err := a.fleet.SearchByPostalCode(ctx, searchPostal, date)
		if err != nil {
			return err
		}
		if jsonOutput {
			return writeJSON(cmd.OutOrStdout(), ds)
		}
		styles := ui.DefaultStyles()
		title := fmt.Sprintf("Dumpsters in %d on %s", searchPostal, date)
		fmt.Fprint(cmd.OutOrStdout(), ui.DumpsterTable(title, ds, styles).View(styles))
		return nil
	})
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid dumpster id: %q", s)
	}
	return id, nil
}

func dateFlag(v string, def model.Date) (model.Date, error) {
	if v == "" {
		return def, nil
	}
	d, err := model.ParseDate(v)
	if err != nil {
		return model.Date{}, fmt.Errorf("invalid date %q, want YYYY-MM-DD", v)
	}
	return d, nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// writeMarkdown renders md with glamour, falling back to the raw text.
func writeMarkdown(w io.Writer, md string) error {
	r, err := glamour.NewTermRenderer(glamour.WithStandardStyle("notty"), glamour.WithWordWrap(80))
	if err == nil {
		if out, rerr := r.Render(md); rerr == nil {
			_, err = io.WriteString(w, out)
			return err
		}
	}
	_, err = io.WriteString(w, md)
	return err
}
