package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"document-reconciliation-service/cmd/docrecon/config"
	"document-reconciliation-service/internal/labels"
)

// classifyCmd represents the classify command
var classifyCmd = &cobra.Command{
	Use:   "classify LABEL [LABEL...]",
	Short: "Show the canonical document type of raw labels",
	Long: `Classify normalizes raw document type labels the way loaded records are
classified. Labels that do not resolve fall back to keywords found in
--body.

Examples:
  docrecon classify "Tax Invoice" "Electricity Bill" "SOA"
  docrecon classify "Document" --body "TENAGA NASIONAL BERHAD electricity charges 250 kWh"
  docrecon classify "Rent Statement" --label-aliases aliases.yaml`,
	Args: cobra.MinimumNArgs(1),
	RunE: runClassify,
}

func init() {
	rootCmd.AddCommand(classifyCmd)

	classifyCmd.Flags().String("body", "", "document text used when the label does not resolve")
	classifyCmd.Flags().String(config.KeyLabelAliases, "", "YAML file with extra label aliases and keywords")
}

func runClassify(cmd *cobra.Command, args []string) error {
	normalizer := labels.New()
	if path := viper.GetString(config.KeyLabelAliases); path != "" {
		if err := normalizer.LoadAliases(path); err != nil {
			return err
		}
	}
	body := viper.GetString("body")

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "LABEL\tCATEGORY\tTYPE")
	for _, raw := range args {
		label := normalizer.Classify(raw, body)
		fmt.Fprintf(w, "%s\t%s\t%s\n", raw, label, label.ShortType())
	}
	return w.Flush()
}
