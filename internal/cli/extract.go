package cli

import (
	"github.com/spf13/cobra"

	"insightchat-backend/internal/charts"
	"insightchat-backend/internal/models"
)

var extractCmd = &cobra.Command{
	Use:   "extract [reply-file]",
	Short: "Split a model reply into prose and validated chart suggestions",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		text, err := readInput(cmd, args)
		if err != nil {
			return err
		}
		ext := charts.Extract(text)
		resp := models.ExtractChartsResponse{
			Prose:    ext.Prose,
			Charts:   ext.Suggestions,
			RawBlock: ext.RawBlock,
			Rejected: len(ext.Problems),
		}
		if resp.Charts == nil {
			resp.Charts = []models.ChartSuggestion{}
		}
		for _, p := range ext.Problems {
			cmd.PrintErrln("⚠ dropped", p)
		}
		return writeOutput(cmd.OutOrStdout(), outputFormat, resp)
	},
}

var tablesCmd = &cobra.Command{
	Use:   "tables [markdown-file]",
	Short: "Extract markdown tables with per-cell rendering hints",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		text, err := readInput(cmd, args)
		if err != nil {
			return err
		}
		tables := charts.ExtractTables(text)
		if tables == nil {
			tables = []models.Table{}
		}
		return writeOutput(cmd.OutOrStdout(), outputFormat, models.ExtractTablesResponse{Tables: tables})
	},
}
