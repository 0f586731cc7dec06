package commands

import (
	"fmt"
	"strings"

	"github.com/edgi-govdata-archiving/epa-echo/services/reporturls"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(urlsCmd)
}

func reportTypeNames() []string {
	var names []string
	for _, r := range reporturls.ReportTypes {
		names = append(names, r.Name)
	}
	return names
}

var urlsCmd = &cobra.Command{
	Use:       fmt.Sprintf("urls <%s>", strings.Join(reportTypeNames(), "|")),
	Short:     "Writes the follow-up URL list for one report type from the harvested corpus.",
	Args:      cobra.ExactArgs(1),
	ValidArgs: reportTypeNames(),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := readConfig()

		report, ok := reporturls.ReportTypeByName(args[0])
		if !ok {
			return fmt.Errorf("unknown report type %q", args[0])
		}

		generator := reporturls.Generator{
			ResultsDir: cfg.ResultsDir,
			OutputDir:  cfg.OutputDir,
		}
		_, err := generator.Generate(cmd.Context(), report)
		return err
	},
}
