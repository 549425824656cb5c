package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/shashiranjanraj/panaya/app/lifecycle"
	"github.com/shashiranjanraj/panaya/app/services"
	"github.com/shashiranjanraj/panaya/internal/bootstrap"
	"github.com/shashiranjanraj/panaya/pkg/export"
)

var (
	reconcileRepairFlag bool
	reconcileJSONFlag   bool

	exportFormatFlag string
	exportStatusFlag string
	exportUserFlag   uint
	exportOutputFlag string
)

// panaya orders:reconcile
var ordersReconcileCmd = &cobra.Command{
	Use:   "orders:reconcile",
	Short: "Find orders whose statuses disagree and optionally repair them",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		a, err := bootstrap.New(ctx, bootstrap.Options{})
		if err != nil {
			return err
		}
		defer a.Close()

		rep, err := a.Services.Reconcile.Run(ctx, reconcileRepairFlag)
		if err != nil {
			return err
		}
		if reconcileJSONFlag {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(rep)
		}
		return printReconcile(cmd.OutOrStdout(), rep)
	},
}

func printReconcile(out io.Writer, rep *services.ReconcileReport) error {
	fmt.Fprintf(out, "Scanned %d open orders, %d drifted.\n", rep.Scanned, len(rep.Drifted))
	if len(rep.Drifted) == 0 {
		return nil
	}
	w := tabwriter.NewWriter(out, 0, 0, 3, ' ', 0)
	fmt.Fprintln(w, "ORDER\tPROBLEMS\tREPAIRED")
	for _, d := range rep.Drifted {
		repaired := "-"
		if d.Repaired != "" {
			repaired = string(d.Repaired)
		}
		fmt.Fprintf(w, "%d\t%s\t%s\n", d.OrderID, strings.Join(d.Problems, "; "), repaired)
	}
	return w.Flush()
}

// panaya orders:export
var ordersExportCmd = &cobra.Command{
	Use:   "orders:export",
	Short: "Write the order report as CSV or XLSX",
	RunE: func(cmd *cobra.Command, args []string) error {
		format, err := export.ParseFormat(exportFormatFlag)
		if err != nil {
			return err
		}
		f := services.ExportFilter{UserID: exportUserFlag}
		if exportStatusFlag != "" {
			if f.Status, err = lifecycle.ParseOrderStatus(exportStatusFlag); err != nil {
				return err
			}
		}

		a, err := bootstrap.New(cmd.Context(), bootstrap.Options{})
		if err != nil {
			return err
		}
		defer a.Close()

		out := cmd.OutOrStdout()
		if exportOutputFlag != "" && exportOutputFlag != "-" {
			file, err := os.Create(exportOutputFlag)
			if err != nil {
				return err
			}
			defer file.Close()
			out = file
		}
		return a.Services.Export.Write(cmd.Context(), out, format, f)
	},
}

func init() {
	ordersReconcileCmd.Flags().BoolVar(&reconcileRepairFlag, "repair", false, "Move drifted orders to the status their payment and shipment imply")
	ordersReconcileCmd.Flags().BoolVar(&reconcileJSONFlag, "json", false, "Print the report as JSON")

	ordersExportCmd.Flags().StringVarP(&exportFormatFlag, "format", "f", "csv", "csv or xlsx")
	ordersExportCmd.Flags().StringVar(&exportStatusFlag, "status", "", "Only orders with this status")
	ordersExportCmd.Flags().UintVar(&exportUserFlag, "user", 0, "Only orders of this user ID")
	ordersExportCmd.Flags().StringVarP(&exportOutputFlag, "output", "o", "", "File to write (default stdout)")
}
