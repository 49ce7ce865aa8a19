package cmd

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"document-reconciliation-service/cmd/docrecon/config"
	"document-reconciliation-service/internal/reconciler"
	"document-reconciliation-service/pkg/errors"
)

// matchCmd represents the match command
var matchCmd = &cobra.Command{
	Use:   "match",
	Short: "Match utility bills to rental invoices",
	Long: `Match loads extraction records, links every utility bill to the rental
invoice that shares the most identifiers (lease ID, lot number, vendor,
TIN, account number) and copies the shared details across both rows.

Examples:
  docrecon match --records batch1.json,batch2.json
  docrecon match --records extracted.json --format csv --output rows.csv
  docrecon match --records extracted.json --min-score 4 --parallel`,
	PreRunE: validateMatchFlags,
	RunE:    runMatch,
}

func init() {
	rootCmd.AddCommand(matchCmd)

	matchCmd.Flags().StringSlice(keyRecords, nil, "extraction record files (JSON)")

	addInputFlags(matchCmd)
	addMatchFlags(matchCmd)
	addOutputFlags(matchCmd)
}

func validateMatchFlags(cmd *cobra.Command, args []string) error {
	records := viper.GetStringSlice(keyRecords)
	if len(records) == 0 {
		return errors.ValidationError(errors.CodeInvalidValue, keyRecords, nil, nil).
			WithSuggestion("pass one or more --records files")
	}
	for _, path := range records {
		if err := validateFileExists(path); err != nil {
			return err
		}
	}
	return validateOutputPath(viper.GetString(config.KeyOutput))
}

func runMatch(cmd *cobra.Command, args []string) error {
	v := viper.GetViper()
	request := &reconciler.Request{RecordFiles: v.GetStringSlice(keyRecords)}
	return runPipeline(cmd, v, request, nil)
}
