// Command schedctl inspects the booking engine from a terminal: the type
// catalog, the normalizer and live availability on the configured calendar.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/rehacentrum/booking-engine/cmd/mainconfig"
	appconfig "github.com/rehacentrum/booking-engine/internal/config"
	"github.com/rehacentrum/booking-engine/internal/holiday"
	"github.com/rehacentrum/booking-engine/internal/scheduling"
	"github.com/rehacentrum/booking-engine/pkg/logging"
)

// engineFactory builds the engine lazily so commands that only read the
// catalog never touch the calendar credentials.
type engineFactory func(ctx context.Context) (*mainconfig.Engine, error)

func main() {
	build := func(ctx context.Context) (*mainconfig.Engine, error) {
		cfg := appconfig.Load()
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
		return mainconfig.BuildEngine(ctx, cfg, logging.New("error"), nil)
	}
	if err := newRootCmd(build).Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd(build engineFactory) *cobra.Command {
	root := &cobra.Command{
		Use:          "schedctl",
		Short:        "Inspect appointment types and availability",
		SilenceUsage: true,
	}
	root.PersistentFlags().Bool("json", false, "Print JSON instead of a table")

	root.AddCommand(typesCmd(build))
	root.AddCommand(normalizeCmd(build))
	root.AddCommand(slotsCmd(build))
	root.AddCommand(closestCmd(build))
	root.AddCommand(holidaysCmd(build))
	return root
}

func withEngine(cmd *cobra.Command, build engineFactory, fn func(e *mainconfig.Engine) error) error {
	engine, err := build(cmd.Context())
	if err != nil {
		return err
	}
	defer engine.Close()
	return fn(engine)
}

func jsonOutput(cmd *cobra.Command) bool {
	v, _ := cmd.Flags().GetBool("json")
	return v
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func typesCmd(build engineFactory) *cobra.Command {
	return &cobra.Command{
		Use:   "types",
		Short: "List appointment types with windows and daily caps",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd, build, func(e *mainconfig.Engine) error {
				types := e.Service.Catalog().All()
				if jsonOutput(cmd) {
					return printJSON(cmd.OutOrStdout(), types)
				}
				tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "KEY\tNAME\tWINDOWS\tCAP\tPRICE")
				for _, t := range types {
					windows := make([]string, 0, len(t.Windows))
					for _, w := range t.Windows {
						windows = append(windows, fmt.Sprintf("%s-%s/%dm", w.Start, w.End, w.Interval))
					}
					price := t.PriceText()
					if t.InsuranceCovered {
						price = "poisťovňa"
					}
					fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\n", t.Key, t.Name, strings.Join(windows, " "), t.DailyCap, price)
				}
				return tw.Flush()
			})
		},
	}
}

func normalizeCmd(build engineFactory) *cobra.Command {
	return &cobra.Command{
		Use:   "normalize <text>",
		Short: "Resolve spoken or typed text to an appointment type key",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd, build, func(e *mainconfig.Engine) error {
				typ, err := e.Service.ResolveType(strings.Join(args, " "))
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", typ.Key, typ.Name)
				return nil
			})
		},
	}
}

func slotsCmd(build engineFactory) *cobra.Command {
	return &cobra.Command{
		Use:   "slots <date> <type>",
		Short: "List free slots of a type on a date",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd, build, func(e *mainconfig.Engine) error {
				date, err := scheduling.ParseDate(args[0], e.Location)
				if err != nil {
					return err
				}
				typ, slots, err := e.Service.GetAvailableSlots(cmd.Context(), date, args[1])
				if err != nil {
					return err
				}
				if jsonOutput(cmd) {
					return printJSON(cmd.OutOrStdout(), slots)
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "%s %s: %d free\n", typ.Name, date.Format("02.01.2006"), len(slots))
				times := make([]string, 0, len(slots))
				for _, s := range slots {
					times = append(times, s.Time)
				}
				if len(times) > 0 {
					fmt.Fprintln(out, strings.Join(times, " "))
				}
				return nil
			})
		},
	}
}

func closestCmd(build engineFactory) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "closest <type>",
		Short: "Find the earliest bookable slot",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			fromFlag, _ := cmd.Flags().GetString("from")
			days, _ := cmd.Flags().GetInt("days")
			return withEngine(cmd, build, func(e *mainconfig.Engine) error {
				var from time.Time
				if fromFlag != "" {
					d, err := scheduling.ParseDate(fromFlag, e.Location)
					if err != nil {
						return err
					}
					from = d
				}
				found, ok, err := e.Service.FindClosestSlot(cmd.Context(), strings.Join(args, " "), from, days)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if !ok {
					fmt.Fprintf(out, "no free slot within %d days\n", days)
					return nil
				}
				if jsonOutput(cmd) {
					return printJSON(out, found.Slot)
				}
				start := found.Slot.Start.In(e.Location)
				fmt.Fprintf(out, "%s %s %s (+%d days)\n", found.Type.Key, start.Format("02.01.2006"), found.Slot.Time, found.DaysFromStart)
				return nil
			})
		},
	}
	cmd.Flags().String("from", "", "First date to search (YYYY-MM-DD), default today")
	cmd.Flags().Int("days", 7, "Number of dates to search")
	return cmd
}

func holidaysCmd(build engineFactory) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "holidays",
		Short: "List upcoming public holidays the clinic is closed on",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			days, _ := cmd.Flags().GetInt("days")
			fromFlag, _ := cmd.Flags().GetString("from")
			year, _ := cmd.Flags().GetInt("year")
			return withEngine(cmd, build, func(e *mainconfig.Engine) error {
				var list []holiday.Holiday
				if year > 0 {
					list = e.Holidays.Year(year, e.Location)
				} else {
					from := time.Now().In(e.Location)
					if fromFlag != "" {
						d, err := scheduling.ParseDate(fromFlag, e.Location)
						if err != nil {
							return err
						}
						from = d
					}
					list = e.Holidays.Upcoming(from, days)
				}
				if jsonOutput(cmd) {
					return printJSON(cmd.OutOrStdout(), list)
				}
				for _, h := range list {
					fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", h.Date.Format("02.01.2006"), h.Name)
				}
				return nil
			})
		},
	}
	cmd.Flags().Int("days", 90, "Look-ahead window in days")
	cmd.Flags().String("from", "", "First date (YYYY-MM-DD), default today")
	cmd.Flags().Int("year", 0, "List every statutory holiday of a year instead")
	return cmd
}
