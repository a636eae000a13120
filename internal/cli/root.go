package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
)

var (
	cfgFile      string
	outputFormat string
)

var rootCmd = &cobra.Command{
	Use:   "insightctl",
	Short: "InsightChat CLI: chart extraction, dataset insights and one-shot questions",
	Long: `insightctl runs the InsightChat pipeline locally: split model replies into
prose, charts and tables, compute dataset insights, and ask a question about a
data file without running the server.`,
	SilenceUsage: true,
}

// Execute is the entry point called by main.main()
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "✗ Error:", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ~/.insightchat/config.yaml)")
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "format", "f", formatYAML, "output format: yaml|json")

	rootCmd.AddCommand(extractCmd, tablesCmd, analyzeCmd, askCmd)
}

// readInput returns the contents of path, or stdin when path is "-" or absent.
func readInput(cmd *cobra.Command, args []string) (string, error) {
	if len(args) == 0 || args[0] == "-" {
		b, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return "", fmt.Errorf("read stdin: %w", err)
		}
		return string(b), nil
	}
	b, err := os.ReadFile(args[0])
	if err != nil {
		return "", fmt.Errorf("read %s: %w", args[0], err)
	}
	return string(b), nil
}
