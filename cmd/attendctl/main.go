// Package main provides attendctl, an offline tool that reconciles a saved
// students payload and prints the resulting attendance table.
package main

import (
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/spf13/cobra"

	"attendboard/internal/reconcile"
	"attendboard/internal/source"
)

var (
	reconcileFile      string
	reconcileDate      string
	reconcileTZ        string
	reconcileQuery     string
	reconcileStatus    string
	reconcileDashboard bool
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:          "attendctl",
		Short:        "Attendance reconciliation tools",
		SilenceUsage: true,
	}
	rootCmd.AddCommand(newReconcileCmd())
	return rootCmd
}

func newReconcileCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Reconcile a students payload for one day and print the table",
		Args:  cobra.NoArgs,
		RunE:  runReconcileCmd,
	}
	cmd.Flags().StringVarP(&reconcileFile, "file", "f", "-", "students payload (JSON), - for stdin")
	cmd.Flags().StringVar(&reconcileDate, "date", "", "calendar day YYYY-MM-DD (default: today in --tz)")
	cmd.Flags().StringVar(&reconcileTZ, "tz", "UTC", "IANA timezone for calendar days and zone-less times")
	cmd.Flags().StringVarP(&reconcileQuery, "query", "q", "", "case-insensitive match on name, index number or email")
	cmd.Flags().StringVar(&reconcileStatus, "status", "all", "status filter: all, present, left, late, absent, unknown")
	cmd.Flags().BoolVar(&reconcileDashboard, "dashboard", false, "only list present and left students")
	return cmd
}

func runReconcileCmd(cmd *cobra.Command, _ []string) error {
	loc, err := time.LoadLocation(reconcileTZ)
	if err != nil {
		return fmt.Errorf("invalid --tz: %w", err)
	}
	filter, err := reconcile.ParseStatusFilter(reconcileStatus)
	if err != nil {
		return err
	}

	data, err := readInput(cmd.InOrStdin(), reconcileFile)
	if err != nil {
		return err
	}
	snap, err := source.DecodeSnapshot(data)
	if err != nil {
		return fmt.Errorf("failed to decode %s: %w", reconcileFile, err)
	}

	pipeline := reconcile.NewPipeline(loc, time.Now, func(field, value string, err error) {
		log.Printf("ignoring unparseable %s %q: %v", field, value, err)
	})
	date := pipeline.Today()
	if reconcileDate != "" {
		if date, err = reconcile.ParseDate(reconcileDate); err != nil {
			return err
		}
	}

	view := reconcile.ByDateView(date)
	if reconcileDashboard {
		view = reconcile.DashboardView(date)
	}
	res := pipeline.Run(snap, view)

	out := cmd.OutOrStdout()
	fmt.Fprint(out, formatTable(res.Filter(reconcileQuery, filter), loc))
	fmt.Fprintln(out, formatStats(res.Date, res.Stats))
	return nil
}

func readInput(stdin io.Reader, path string) ([]byte, error) {
	if path == "-" || path == "" {
		return io.ReadAll(stdin)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read payload: %w", err)
	}
	return data, nil
}
