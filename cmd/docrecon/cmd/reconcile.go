package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"document-reconciliation-service/cmd/docrecon/config"
	"document-reconciliation-service/internal/reconciler"
	"document-reconciliation-service/internal/reporter"
	"document-reconciliation-service/internal/reviewstore"
	"document-reconciliation-service/pkg/errors"
	"document-reconciliation-service/pkg/logger"
)

const (
	keyRecords  = "records"
	keySOA      = "soa"
	keyLedger   = "ledger"
	keyNoReview = "no-review"
)

// reconcileCmd represents the reconcile command
var reconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Reconcile a supplier statement against the ledger",
	Long: `Reconcile pairs statement of account (SOA) lines with ledger lines by
document number, computes variances and aging, and overlays the saved
review state (investigation, assignee) of every document.

Record files given with --records are matched and enriched in the same run.

Input files:
  --soa, --ledger   CSV (doc_no, doc_type, date, amount; common header
                    spellings such as "Posting Date" are accepted) or JSON
  --records         JSON extraction records

Examples:
  # Console summary of exceptions
  docrecon reconcile --soa soa.csv --ledger ledger.csv

  # Fixed-width report for the supplier, aged against month end
  docrecon reconcile --soa soa.csv --ledger ledger.csv --format txt \
    --supplier "Acme Supplies" --as-of 2026-01-31 --output acme.txt

  # Workbook with review state kept in Redis
  docrecon reconcile --soa soa.csv --ledger ledger.csv --format xlsx --output recon.xlsx \
    --review-backend redis --redis-addr localhost:6379`,
	PreRunE: validateReconcileFlags,
	RunE:    runReconcile,
}

func init() {
	rootCmd.AddCommand(reconcileCmd)

	flags := reconcileCmd.Flags()
	flags.StringSlice(keySOA, nil, "statement of account files (CSV or JSON)")
	flags.StringSlice(keyLedger, nil, "ledger export files (CSV or JSON)")
	flags.StringSlice(keyRecords, nil, "extraction record files to match and enrich (JSON)")
	flags.String(config.KeyAsOf, "", "date items are aged against, YYYY-MM-DD (default today)")
	flags.Bool(config.KeyCaseInsensitive, false, "pair doc numbers regardless of case")
	flags.Bool(keyNoReview, false, "do not read saved review state")

	addInputFlags(reconcileCmd)
	addMatchFlags(reconcileCmd)
	addOutputFlags(reconcileCmd)
	addStoreFlags(reconcileCmd)
}

// addInputFlags registers the flags that control file loading
func addInputFlags(c *cobra.Command) {
	flags := c.Flags()
	flags.String(config.KeyDelimiter, ",", "CSV delimiter: comma, semicolon, tab or pipe")
	flags.Int(config.KeyMaxFiles, 4, "maximum input files loaded at once")
	flags.String(config.KeyLabelAliases, "", "YAML file with extra document label aliases and keywords")
}

func addMatchFlags(c *cobra.Command) {
	flags := c.Flags()
	flags.Int(config.KeyMinScore, 2, "lowest score accepted as a utility to rental match")
	flags.Bool(config.KeyParallel, false, "score utility bills on a worker pool")
	flags.Int(config.KeyWorkers, 4, "worker count when --parallel is set")
}

func addOutputFlags(c *cobra.Command) {
	flags := c.Flags()
	flags.StringP(config.KeyFormat, "f", "console", "output format: console, json, csv, txt, xlsx")
	flags.StringP(config.KeyOutput, "o", "", "output file path (default: stdout)")
	flags.String(config.KeySupplier, "", "supplier name shown in the report title")
	flags.String(config.KeyTable, "auto", "CSV table: auto, reconciliation, records")
	flags.Bool(config.KeyIncludeMatched, false, "list matched items on the console too")
	flags.Int(config.KeyMaxItems, 50, "maximum items listed on the console (0 for all)")
}

func addStoreFlags(c *cobra.Command) {
	flags := c.Flags()
	flags.String(config.KeyReviewBackend, reviewstore.BackendFile, "review state backend: memory, file, redis, postgres")
	flags.String(config.KeyReviewPath, "review_state.json", "review state file for the file backend")
	flags.String(config.KeyRedisAddr, "localhost:6379", "Redis address for the redis backend")
	flags.String(config.KeyRedisPassword, "", "Redis password")
	flags.Int(config.KeyRedisDB, 0, "Redis database number")
	flags.String(config.KeyRedisPrefix, "docrecon:review:", "Redis key prefix")
	flags.Duration(config.KeyRedisTTL, 0, "expiry of saved review states in Redis (0 keeps them)")
	flags.String(config.KeyPostgresURL, "", "PostgreSQL connection URL for the postgres backend")
	flags.Bool(config.KeyPostgresSchema, true, "create the review_states table when missing")
}

func validateReconcileFlags(cmd *cobra.Command, args []string) error {
	soa := viper.GetStringSlice(keySOA)
	ledger := viper.GetStringSlice(keyLedger)
	records := viper.GetStringSlice(keyRecords)

	if len(soa) == 0 && len(ledger) == 0 && len(records) == 0 {
		return errors.ValidationError(errors.CodeInvalidValue, "input", nil, nil).
			WithSuggestion("pass --soa and --ledger, or --records")
	}

	for _, group := range []struct {
		flag  string
		paths []string
	}{{keySOA, soa}, {keyLedger, ledger}, {keyRecords, records}} {
		for _, path := range group.paths {
			if err := validateFileExists(path); err != nil {
				return err.WithContext("flag", "--"+group.flag)
			}
		}
	}

	return validateOutputPath(viper.GetString(config.KeyOutput))
}

// validateFileExists checks that path names a readable regular file
func validateFileExists(path string) *errors.ReconcilerError {
	if path == "" {
		return errors.ValidationError(errors.CodeInvalidValue, "path", path, nil).
			WithSuggestion("file paths cannot be empty")
	}

	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return errors.FileError(errors.CodeFileNotFound, path, err)
	}
	if err != nil {
		return errors.FileError(errors.CodeFilePermission, path, err)
	}
	if info.IsDir() {
		return errors.FileError(errors.CodeInvalidFormat, path, fmt.Errorf("is a directory, expected a file"))
	}

	file, err := os.Open(path)
	if err != nil {
		return errors.FileError(errors.CodeFilePermission, path, err)
	}
	file.Close()
	return nil
}

// validateOutputPath rejects an output path that names a directory
func validateOutputPath(path string) error {
	if path == "" {
		return nil
	}
	if info, err := os.Stat(path); err == nil && info.IsDir() {
		return errors.FileError(errors.CodeFileWrite, path, fmt.Errorf("is a directory"))
	}
	return nil
}

func runReconcile(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	v := viper.GetViper()

	request := &reconciler.Request{
		RecordFiles: v.GetStringSlice(keyRecords),
		SOAFiles:    v.GetStringSlice(keySOA),
		LedgerFiles: v.GetStringSlice(keyLedger),
	}

	var store reviewstore.Store
	if !v.GetBool(keyNoReview) && (len(request.SOAFiles) > 0 || len(request.LedgerFiles) > 0) {
		s, err := openStore(ctx, v)
		if err != nil {
			return err
		}
		defer s.Close()
		store = s
	}

	return runPipeline(cmd, v, request, store)
}

// runPipeline processes request and writes the report
func runPipeline(cmd *cobra.Command, v *viper.Viper, request *reconciler.Request, store reviewstore.Store) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	serviceConfig, err := config.ServiceConfig(v)
	if err != nil {
		return err
	}
	reportConfig, err := config.ReportConfig(v)
	if err != nil {
		return err
	}

	service, err := reconciler.NewService(serviceConfig, store)
	if err != nil {
		return err
	}

	result, err := service.Process(ctx, request)
	if err != nil {
		return err
	}

	generator, err := reporter.NewSafeReportGenerator(reportConfig, logger.GetGlobalLogger())
	if err != nil {
		return err
	}

	if output := v.GetString(config.KeyOutput); output != "" {
		if err := generator.WriteToFile(result, output); err != nil {
			return err
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "Report written to %s\n", output)
		return nil
	}
	return generator.GenerateReportSafely(result, cmd.OutOrStdout())
}

func openStore(ctx context.Context, v *viper.Viper) (reviewstore.Store, error) {
	storeConfig, err := config.StoreConfig(v)
	if err != nil {
		return nil, err
	}
	store, err := reviewstore.Open(ctx, storeConfig)
	if err != nil {
		return nil, err
	}
	logger.WithComponent("cli").WithField("backend", storeConfig.Backend).Debug("Opened review store")
	return store, nil
}
