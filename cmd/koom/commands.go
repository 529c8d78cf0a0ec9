package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/ursineenterprises/koom/internal/alarm"
	"github.com/ursineenterprises/koom/internal/backup"
	"github.com/ursineenterprises/koom/internal/catalog"
	"github.com/ursineenterprises/koom/internal/db"
	"github.com/ursineenterprises/koom/internal/mcpserver"
)

// withService runs fn against a service built from the config.
func withService(configPath string, fn func(ctx context.Context, svc *alarm.Service, d *runtimeDeps) error) error {
	d, err := setup(configPath, false)
	if err != nil {
		return err
	}
	defer d.Close()
	return fn(context.Background(), alarm.NewService(d.env), d)
}

func listCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List alarms",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withService(*configPath, func(ctx context.Context, svc *alarm.Service, _ *runtimeDeps) error {
				alarms, err := svc.List(ctx)
				if err != nil {
					return err
				}
				printAlarms(cmd.OutOrStdout(), alarms, time.Now())
				return nil
			})
		},
	}
}

func printAlarms(w io.Writer, alarms []db.AlarmRecord, now time.Time) {
	if len(alarms) == 0 {
		fmt.Fprintln(w, "No alarms.")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTIME\tDAY\tTRACK\tENABLED\tRECURRING\tNEXT")
	for _, a := range alarms {
		next := "-"
		if a.Enabled {
			if at, err := alarm.NextOccurrence(a, now); err == nil {
				next = at.Format("Mon Jan 2 15:04")
			}
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%t\t%t\t%s\n", a.ID, a.Time, a.Day, strings.Join(a.TrackIDs, ","), a.Enabled, a.Recurring, next)
	}
	_ = tw.Flush()
}

func addCmd(configPath *string) *cobra.Command {
	var (
		clock     string
		day       string
		tracks    []string
		recurring bool
		disabled  bool
	)

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Create an alarm",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withService(*configPath, func(ctx context.Context, svc *alarm.Service, _ *runtimeDeps) error {
				enabled := !disabled
				rec, err := svc.CreateOrUpdate(ctx, alarm.SaveRequest{
					Time:      clock,
					Day:       day,
					TrackIDs:  tracks,
					Recurring: recurring,
					Enabled:   &enabled,
				})
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Saved alarm %s: %s %s (%s)\n", rec.ID, rec.Day, rec.Time, rec.PrimaryTrack())
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&clock, "time", "", "Time of day, HH:MM 24-hour")
	cmd.Flags().StringVar(&day, "day", time.Now().Weekday().String(), "Weekday label")
	cmd.Flags().StringSliceVar(&tracks, "track", nil, "Track id (see koom tracks); repeatable")
	cmd.Flags().BoolVar(&recurring, "recurring", false, "Repeat weekly")
	cmd.Flags().BoolVar(&disabled, "disabled", false, "Save the alarm switched off")
	_ = cmd.MarkFlagRequired("time")
	_ = cmd.MarkFlagRequired("track")
	return cmd
}

func deleteCmd(configPath *string) *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "delete [id]",
		Short: "Delete an alarm, or all of them with --all",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if all == (len(args) == 1) {
				return fmt.Errorf("give either an alarm id or --all")
			}
			return withService(*configPath, func(ctx context.Context, svc *alarm.Service, _ *runtimeDeps) error {
				if all {
					if err := svc.DeleteAll(ctx); err != nil {
						return err
					}
					fmt.Fprintln(cmd.OutOrStdout(), "Deleted all alarms.")
					return nil
				}
				if _, err := svc.Get(ctx, args[0]); err != nil {
					return err
				}
				if err := svc.Delete(ctx, args[0]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted alarm %s.\n", args[0])
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&all, "all", false, "Delete every alarm")
	return cmd
}

func tracksCmd(configPath *string) *cobra.Command {
	var collection string

	cmd := &cobra.Command{
		Use:   "tracks",
		Short: "List the tracks an alarm can use",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withService(*configPath, func(_ context.Context, _ *alarm.Service, d *runtimeDeps) error {
				cat := d.env.Catalog
				entries := cat.Entries()
				if collection != "" {
					entries = cat.Collection(catalog.Collection(strings.ToUpper(collection)))
				}
				tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "TRACK\tCOLLECTION\tLENGTH\tFILE")
				for _, e := range entries {
					length := "-"
					if e.Source.Length > 0 {
						length = e.Source.Length.Round(time.Second).String()
					}
					fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", e.TrackID, e.Collection, length, e.Source.FileName)
				}
				return tw.Flush()
			})
		},
	}

	cmd.Flags().StringVar(&collection, "collection", "", "Only MUSIC or SPEECH tracks")
	return cmd
}

func exportCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "export [file]",
		Short: "Write every alarm to a YAML backup (stdout by default)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withService(*configPath, func(ctx context.Context, svc *alarm.Service, _ *runtimeDeps) error {
				w := cmd.OutOrStdout()
				if len(args) == 1 {
					f, err := os.Create(args[0])
					if err != nil {
						return fmt.Errorf("create backup: %w", err)
					}
					defer f.Close()
					w = f
				}
				n, err := backup.Export(ctx, svc, w, time.Now())
				if err != nil {
					return err
				}
				if len(args) == 1 {
					fmt.Fprintf(cmd.ErrOrStderr(), "Exported %d alarm(s) to %s.\n", n, args[0])
				}
				return nil
			})
		},
	}
}

func importCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file>",
		Short: "Restore alarms from a YAML backup",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("open backup: %w", err)
			}
			defer f.Close()
			return withService(*configPath, func(ctx context.Context, svc *alarm.Service, _ *runtimeDeps) error {
				n, err := backup.Import(ctx, svc, f)
				if err != nil {
					return fmt.Errorf("imported %d alarm(s) before failing: %w", n, err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Imported %d alarm(s).\n", n)
				return nil
			})
		},
	}
}

func mcpCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve alarm tools over MCP on stdio",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := setup(*configPath, true)
			if err != nil {
				return err
			}
			defer d.Close()
			d.log.Info().Msg("mcp server starting")
			return mcpserver.Serve(mcpserver.New(d.env, Version))
		},
	}
}
