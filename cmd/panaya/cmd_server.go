package main

import (
	"context"
	"fmt"
	"io"
	"os/signal"
	"sort"
	"syscall"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/shashiranjanraj/panaya/app/routes"
	"github.com/shashiranjanraj/panaya/app/services"
	"github.com/shashiranjanraj/panaya/internal/bootstrap"
	"github.com/shashiranjanraj/panaya/internal/server"
	"github.com/shashiranjanraj/panaya/pkg/router"
)

var (
	serveWorkersFlag    int
	serveNoScheduleFlag bool
)

// panaya serve
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		a, err := bootstrap.New(ctx, bootstrap.Options{Idempotency: true})
		if err != nil {
			return err
		}
		defer a.Close()

		opts := server.OptionsFromConfig()
		if cmd.Flags().Changed("workers") {
			opts.Workers = serveWorkersFlag
		}
		opts.Schedule = !serveNoScheduleFlag
		return server.Run(ctx, a, opts)
	},
}

// panaya route:list
var routeListCmd = &cobra.Command{
	Use:   "route:list",
	Short: "List all registered named routes",
	RunE: func(cmd *cobra.Command, args []string) error {
		// Handlers are never invoked, so the services need no connections.
		r := router.New()
		if err := routes.Register(r, routes.Deps{Services: &services.Services{}}); err != nil {
			return err
		}
		return printRoutes(cmd.OutOrStdout(), r.Routes())
	},
}

// printRoutes sorts by path then method.
func printRoutes(out io.Writer, infos []router.RouteInfo) error {
	if len(infos) == 0 {
		fmt.Fprintln(out, "No named routes registered.")
		return nil
	}
	sort.Slice(infos, func(i, j int) bool {
		if infos[i].Path != infos[j].Path {
			return infos[i].Path < infos[j].Path
		}
		return infos[i].Method < infos[j].Method
	})

	w := tabwriter.NewWriter(out, 0, 0, 3, ' ', 0)
	fmt.Fprintln(w, "METHOD\tPATH\tNAME")
	fmt.Fprintln(w, "------\t----\t----")
	for _, ri := range infos {
		fmt.Fprintf(w, "%s\t%s\t%s\n", ri.Method, ri.Path, ri.Name)
	}
	return w.Flush()
}

func init() {
	serveCmd.Flags().IntVarP(&serveWorkersFlag, "workers", "w", 0, "In-process queue workers (default QUEUE_WORKERS)")
	serveCmd.Flags().BoolVar(&serveNoScheduleFlag, "no-schedule", false, "Do not run the scheduler in this process")
}
