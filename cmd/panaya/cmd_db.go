package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/shashiranjanraj/panaya/config"
	"github.com/shashiranjanraj/panaya/database/seeders"
	"github.com/shashiranjanraj/panaya/pkg/database"
	"github.com/shashiranjanraj/panaya/pkg/logger"
	"github.com/shashiranjanraj/panaya/pkg/migration"
)

// bootDB loads config and opens the database connection.
func bootDB() error {
	if err := config.Load(); err != nil {
		return err
	}
	if _, err := logger.Setup(logger.OptionsFromConfig()); err != nil {
		return err
	}
	return database.Connect()
}

// panaya migrate
var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Run all pending database migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := bootDB(); err != nil {
			return err
		}
		ran, err := migration.New(database.DB).Run()
		for _, name := range ran {
			fmt.Println("  migrated:", name)
		}
		if err != nil {
			return err
		}
		if len(ran) == 0 {
			fmt.Println("Nothing to migrate.")
		}
		return nil
	},
}

// panaya migrate:rollback
var migrateRollbackCmd = &cobra.Command{
	Use:   "migrate:rollback",
	Short: "Rollback the last batch of migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := bootDB(); err != nil {
			return err
		}
		reverted, err := migration.New(database.DB).Rollback()
		for _, name := range reverted {
			fmt.Println("  rolled back:", name)
		}
		if err != nil {
			return err
		}
		if len(reverted) == 0 {
			fmt.Println("Nothing to roll back.")
		}
		return nil
	},
}

// panaya migrate:status
var migrateStatusCmd = &cobra.Command{
	Use:   "migrate:status",
	Short: "Show the status of each migration",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := bootDB(); err != nil {
			return err
		}
		rows, err := migration.New(database.DB).Status()
		if err != nil {
			return err
		}
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
		fmt.Fprintln(w, "RAN\tBATCH\tMIGRATION")
		for _, r := range rows {
			ran, batch := "no", "-"
			if r.Ran {
				ran, batch = "yes", fmt.Sprint(r.Batch)
			}
			fmt.Fprintf(w, "%s\t%s\t%s\n", ran, batch, r.Name)
		}
		return w.Flush()
	},
}

// panaya seed
var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Run all database seeders",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := bootDB(); err != nil {
			return err
		}
		fmt.Println("Running seeders…")
		return seeders.RunAll(database.DB, os.Stdout)
	},
}
