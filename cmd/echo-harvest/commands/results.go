package commands

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/edgi-govdata-archiving/epa-echo/lib/scrapers/echo"
	"github.com/edgi-govdata-archiving/epa-echo/lib/serviceutil"
	"github.com/edgi-govdata-archiving/epa-echo/lib/sqliteutil"
	"github.com/edgi-govdata-archiving/epa-echo/lib/telemetry"
	"github.com/edgi-govdata-archiving/epa-echo/services/harvester"
	"github.com/edgi-govdata-archiving/epa-echo/services/harvester/db"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(resultsCmd)
}

var resultsCmd = &cobra.Command{
	Use:   "results [category...]",
	Short: "Builds the result set corpus, one CSV per partition leaf, for the given search categories (default: all).",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		cfg := readConfig()

		categories := echo.Categories
		if len(args) > 0 {
			categories = nil
			for _, name := range args {
				category, ok := echo.CategoryByName(name)
				if !ok {
					return fmt.Errorf("unknown category %q", name)
				}
				categories = append(categories, category)
			}
		}

		client := newEchoClient(cfg)

		lookups, err := client.FetchLookups(ctx)
		if err != nil {
			serviceutil.Fatal("parameter discovery failed", err)
		}
		slog.Info("discovered query grammar", "states", len(lookups.States))

		qcolumns, err := client.FetchColumns(ctx)
		if err != nil {
			serviceutil.Fatal("column discovery failed", err)
		}

		manifestDb, err := sqliteutil.OpenDB(db.Schema, cfg.ManifestDb)
		if err != nil {
			serviceutil.Fatal("failed to open manifest db", err)
		}
		defer manifestDb.Close()

		telemetry.InstrumentPerfStats(ctx)

		h := harvester.New(harvester.Options{
			Client:     client,
			Manifest:   db.New(manifestDb),
			ResultsDir: cfg.ResultsDir,
			RowCap:     cfg.RowCap,
			Qcolumns:   qcolumns,
			Lookups:    lookups,
		})

		t1 := time.Now()
		err = h.Run(ctx, categories)
		if err != nil {
			return err
		}
		slog.Info("harvest complete", "seconds", time.Since(t1).Seconds())
		return nil
	},
}
