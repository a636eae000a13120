package cli

import (
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"insightchat-backend/internal/insights"
)

var (
	anaSheet   string
	anaTopN    int
	anaMinCorr float64
	anaMaxKPIs int
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze <data-file>",
	Short: "Compute KPIs, performers and hypotheses for a JSON/CSV/XLSX file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		records, err := loadRecords(args[0], anaSheet)
		if err != nil {
			return err
		}
		opt := insights.DefaultOptions()
		if anaTopN > 0 {
			opt.TopN = anaTopN
		}
		if anaMaxKPIs > 0 {
			opt.MaxKPIFields = anaMaxKPIs
		}
		if cmd.Flags().Changed("min-corr") {
			opt.MinCorrelation = anaMinCorr
		}
		ins := insights.Analyze(uuid.New(), records, opt)
		return writeOutput(cmd.OutOrStdout(), outputFormat, ins)
	},
}

func init() {
	analyzeCmd.Flags().StringVar(&anaSheet, "sheet", "", "worksheet name for .xlsx input (default first sheet)")
	analyzeCmd.Flags().IntVar(&anaTopN, "top", 0, "number of top/bottom performers")
	analyzeCmd.Flags().IntVar(&anaMaxKPIs, "max-kpis", 0, "max numeric fields summarized as KPIs")
	analyzeCmd.Flags().Float64Var(&anaMinCorr, "min-corr", 0, "minimum |r| for a correlation hypothesis")
}
