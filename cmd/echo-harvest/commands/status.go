package commands

import (
	"os"
	"time"

	"github.com/edgi-govdata-archiving/epa-echo/lib/sqliteutil"
	"github.com/edgi-govdata-archiving/epa-echo/services/harvester/db"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(statusCmd)
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Renders the harvest manifest: one row per resolved partition with its outcome.",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := readConfig()

		manifestDb, err := sqliteutil.OpenDB(db.Schema, cfg.ManifestDb)
		if err != nil {
			return err
		}
		defer manifestDb.Close()

		partitions, err := db.New(manifestDb).ListPartitions(cmd.Context())
		if err != nil {
			return err
		}

		writer := table.NewWriter()
		writer.SetOutputMirror(os.Stdout)
		writer.AppendHeader(table.Row{"Category", "Key", "Outcome", "Rows", "Fetched", "File"})
		for _, p := range partitions {
			writer.AppendRow(table.Row{
				p.Category,
				p.Key,
				p.Outcome,
				p.RowCount,
				time.Unix(p.FetchedAt, 0).Format(time.DateOnly),
				p.File,
			})
		}
		writer.Render()
		return nil
	},
}
