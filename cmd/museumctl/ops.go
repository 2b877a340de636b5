package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Harsha6202/Museum-reservation-using-chatbot/internal/app"
	"github.com/Harsha6202/Museum-reservation-using-chatbot/internal/models"
	"github.com/Harsha6202/Museum-reservation-using-chatbot/internal/report"

	"github.com/spf13/cobra"
)

// withStack opens the configured stores for a one-shot command.
func withStack(fn func(ctx context.Context, stack *app.Stack) error) error {
	cfg, logger, cleanup, err := app.LoadConfigAndLogger()
	if err != nil {
		return err
	}
	defer cleanup()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	stack, err := app.Build(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer stack.Close()

	return fn(ctx, stack)
}

func newReconcileCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reconcile",
		Short: "Run due sync tasks once and report how many were handled",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withStack(func(ctx context.Context, stack *app.Stack) error {
				unsynced, err := stack.DB.ListUnsyncedBookings(ctx)
				if err != nil {
					return err
				}

				n, err := stack.Worker.RunOnce(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%d unsynced bookings, %d tasks processed\n", len(unsynced), n)
				return nil
			})
		},
	}
}

func newExportCmd() *cobra.Command {
	var fromStr, toStr string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write an xlsx report of bookings in a date range",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			from, to, err := exportRange(fromStr, toStr, time.Now())
			if err != nil {
				return err
			}
			return withStack(func(ctx context.Context, stack *app.Stack) error {
				exporter := report.NewExcelExporter(stack.Bookings, stack.Config.Exports.Path, *stack.Logger)
				path, err := exporter.SaveFile(ctx, from, to)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), path)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&fromStr, "from", "", "first date, YYYY-MM-DD (default: 30 days ago)")
	cmd.Flags().StringVar(&toStr, "to", "", "last date, YYYY-MM-DD (default: today)")
	return cmd
}

func exportRange(fromStr, toStr string, now time.Time) (time.Time, time.Time, error) {
	to := models.NormalizeDate(now)
	if toStr != "" {
		d, err := models.ParseDate(toStr)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("--to: %w", err)
		}
		to = d
	}
	from := to.AddDate(0, 0, -30)
	if fromStr != "" {
		d, err := models.ParseDate(fromStr)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("--from: %w", err)
		}
		from = d
	}
	if from.After(to) {
		return time.Time{}, time.Time{}, errors.New("--from is after --to")
	}
	return from, to, nil
}

func newSheetsCmd() *cobra.Command {
	sheets := &cobra.Command{
		Use:   "sheets",
		Short: "Google Sheets mirror maintenance",
	}
	sheets.AddCommand(&cobra.Command{
		Use:   "resync",
		Short: "Rewrite the Bookings sheet from the booking store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withStack(func(ctx context.Context, stack *app.Stack) error {
				if stack.Sheets == nil {
					return errors.New("google sheets is not configured")
				}
				if err := stack.Sheets.TestConnection(ctx); err != nil {
					return err
				}
				bookings, err := stack.Bookings.List(ctx, models.BookingFilter{})
				if err != nil {
					return err
				}
				if err := stack.Sheets.ReplaceBookings(ctx, bookings); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%d bookings written\n", len(bookings))
				return nil
			})
		},
	})
	return sheets
}
