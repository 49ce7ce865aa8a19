package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"document-reconciliation-service/cmd/docrecon/config"
	"document-reconciliation-service/pkg/errors"
	"document-reconciliation-service/pkg/logger"
)

var (
	cfgFile string
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "docrecon",
	Short: "Document matching and statement reconciliation tool",
	Long: `Docrecon links extracted utility bills to the rental invoices they belong
to, and reconciles a supplier statement of account (SOA) against the
accounts-payable ledger line by line.

Examples:
  docrecon match --records extracted.json
  docrecon reconcile --soa soa.csv --ledger ledger.csv --supplier "Acme Supplies"
  docrecon reconcile --soa soa.csv --ledger ledger.json --format xlsx --output recon.xlsx
  docrecon review set INV-2002 --investigation resolved --assigned-to Wei
  docrecon classify "Tax Invoice" "Electricity Bill"`,
	Version:           getVersionString(),
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setupLogging,
}

// Execute runs the command line and returns the process exit code
func Execute() int {
	err := rootCmd.Execute()
	return NewCLIErrorHandler(rootCmd.ErrOrStderr()).HandleError(err)
}

func init() {
	cobra.OnInitialize(initConfig)

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (yaml, toml or json)")
	flags.BoolP(config.KeyVerbose, "v", false, "verbose output (debug logging)")
	flags.String(config.KeyLogLevel, "info", "log level: debug, info, warn, error")
	flags.String(config.KeyLogFormat, "text", "log format: text, json")
	flags.String(config.KeyLogFile, "", "write logs to this file instead of stderr")

	viper.BindPFlags(flags)
}

// initConfig reads in config file and ENV variables.
func initConfig() {
	config.Setup(viper.GetViper())

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	}
}

// setupLogging reads the config file and installs the global logger before
// any command runs. Each command binds its own flags first so the same key
// can be defined on several commands.
func setupLogging(cmd *cobra.Command, args []string) error {
	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return errors.InternalError(errors.CodeUnexpectedError, "bind_flags", err)
	}

	if cfgFile != "" {
		if err := viper.ReadInConfig(); err != nil {
			return errors.ConfigurationError(errors.CodeInvalidConfig, "config", cfgFile, err).
				WithSuggestion("check that the config file exists and is valid yaml, toml or json")
		}
	}

	logConfig, err := config.LoggerConfig(viper.GetViper())
	if err != nil {
		return err
	}
	log, err := logger.NewLogger(logConfig)
	if err != nil {
		return errors.ConfigurationError(errors.CodeInvalidConfig, "log", logConfig.File, err)
	}
	logger.SetGlobalLogger(log)

	if cfgFile != "" {
		logger.WithField("file", viper.ConfigFileUsed()).Debug("Using config file")
	}
	return nil
}

// SetVersionInfo sets the version information for the CLI
func SetVersionInfo(v, c, d string) {
	version = v
	commit = c
	date = d
	rootCmd.Version = getVersionString()
}

func getVersionString() string {
	if version == "dev" {
		return fmt.Sprintf("%s (commit %s, built %s)", version, commit, date)
	}
	return version
}
