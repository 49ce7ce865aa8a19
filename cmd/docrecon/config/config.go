// Package config turns command-line flags, DOCRECON_ environment variables
// and an optional config file (all merged by viper) into the configuration
// structs of the pipeline packages.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"document-reconciliation-service/internal/labels"
	"document-reconciliation-service/internal/parsers"
	"document-reconciliation-service/internal/reconciler"
	"document-reconciliation-service/internal/reporter"
	"document-reconciliation-service/internal/reviewstore"
	"document-reconciliation-service/pkg/errors"
	"document-reconciliation-service/pkg/logger"
)

// EnvPrefix is prepended to every environment variable viper reads
const EnvPrefix = "DOCRECON"

// AsOfLayout is the format of the --as-of flag
const AsOfLayout = "2006-01-02"

// Keys shared by flags, environment variables and config files
const (
	KeyVerbose   = "verbose"
	KeyLogLevel  = "log-level"
	KeyLogFormat = "log-format"
	KeyLogFile   = "log-file"

	KeyAsOf            = "as-of"
	KeyMinScore        = "min-score"
	KeyParallel        = "parallel"
	KeyWorkers         = "workers"
	KeyMaxFiles        = "max-files"
	KeyDelimiter       = "delimiter"
	KeyColumnAliases   = "column-aliases"
	KeyLabelAliases    = "label-aliases"
	KeyCaseInsensitive = "case-insensitive-doc-no"
	KeyWeights         = "weights"

	KeyFormat         = "format"
	KeyOutput         = "output"
	KeySupplier       = "supplier"
	KeyTable          = "table"
	KeyIncludeMatched = "include-matched"
	KeyMaxItems       = "max-items"

	KeyReviewBackend  = "review-backend"
	KeyReviewPath     = "review-path"
	KeyRedisAddr      = "redis-addr"
	KeyRedisPassword  = "redis-password"
	KeyRedisDB        = "redis-db"
	KeyRedisPrefix    = "redis-prefix"
	KeyRedisTTL       = "redis-ttl"
	KeyPostgresURL    = "postgres-url"
	KeyPostgresSchema = "postgres-init-schema"
)

// Setup wires environment variables into v. "redis-addr" reads
// DOCRECON_REDIS_ADDR.
func Setup(v *viper.Viper) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()
}

// LoggerConfig builds the logger configuration. --verbose forces debug level.
func LoggerConfig(v *viper.Viper) (*logger.Config, error) {
	config := logger.DefaultConfig()

	if level := v.GetString(KeyLogLevel); level != "" {
		config.Level = logger.Level(strings.ToLower(level))
	}
	if v.GetBool(KeyVerbose) {
		config.Level = logger.DebugLevel
	}
	if format := v.GetString(KeyLogFormat); format != "" {
		config.Format = logger.Format(strings.ToLower(format))
	}
	if file := v.GetString(KeyLogFile); file != "" {
		config.Output = logger.FileOutput
		config.File = file
	}

	if err := config.Validate(); err != nil {
		return nil, errors.ConfigurationError(errors.CodeInvalidConfig, "log", config.Level, err).
			WithSuggestion("use --log-level debug|info|warn|error and --log-format text|json")
	}
	return config, nil
}

// ParseAsOf reads an as-of date; empty means today
func ParseAsOf(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return reconciler.Today(), nil
	}
	t, err := time.Parse(AsOfLayout, s)
	if err != nil {
		return time.Time{}, errors.ConfigurationError(errors.CodeInvalidConfig, KeyAsOf, s, err).
			WithSuggestion("use the YYYY-MM-DD format, e.g. --as-of 2026-02-24")
	}
	return t, nil
}

// ServiceConfig builds the pipeline configuration
func ServiceConfig(v *viper.Viper) (*reconciler.ServiceConfig, error) {
	config := reconciler.DefaultServiceConfig()

	asOf, err := ParseAsOf(v.GetString(KeyAsOf))
	if err != nil {
		return nil, err
	}
	config.Reconciler.AsOf = asOf
	config.Reconciler.Preprocessing.CaseInsensitiveDocNo = v.GetBool(KeyCaseInsensitive)

	if v.IsSet(KeyMinScore) {
		config.Matcher.MinScore = v.GetInt(KeyMinScore)
	}
	config.Matcher.Parallel = v.GetBool(KeyParallel)
	if v.IsSet(KeyWorkers) {
		config.Matcher.MaxWorkers = v.GetInt(KeyWorkers)
	}
	applyWeights(v, config)

	if v.IsSet(KeyMaxFiles) {
		config.Loader.MaxConcurrentFiles = v.GetInt(KeyMaxFiles)
	}

	statement := config.Loader.Statement
	if d := v.GetString(KeyDelimiter); d != "" {
		delimiter, err := parsers.ParseDelimiter(d)
		if err != nil {
			return nil, errors.ConfigurationError(errors.CodeInvalidConfig, KeyDelimiter, d, err).
				WithSuggestion("use comma, semicolon, tab or pipe")
		}
		statement.Parse.Delimiter = delimiter
	}
	for alias, column := range v.GetStringMapString(KeyColumnAliases) {
		statement.ColumnAliases[alias] = column
	}

	if path := v.GetString(KeyLabelAliases); path != "" {
		normalizer := labels.New()
		if err := normalizer.LoadAliases(path); err != nil {
			return nil, err
		}
		config.Normalizer = normalizer
	}

	if err := config.Validate(); err != nil {
		return nil, errors.ConfigurationError(errors.CodeInvalidConfig, "pipeline", nil, err)
	}
	return config, nil
}

// applyWeights reads per-identifier weights from a config file section:
//
//	weights:
//	  lease_id: 5
//	  account_no: 0
func applyWeights(v *viper.Viper, config *reconciler.ServiceConfig) {
	w := &config.Matcher.Weights
	for key, field := range map[string]*int{
		"lease_id":   &w.LeaseID,
		"lot_no":     &w.LotNo,
		"vendor":     &w.Vendor,
		"tin_no":     &w.TINNo,
		"account_no": &w.AccountNo,
	} {
		if full := KeyWeights + "." + key; v.IsSet(full) {
			*field = v.GetInt(full)
		}
	}
}

// ReportConfig builds the report configuration. The title names the
// supplier when one is given.
func ReportConfig(v *viper.Viper) (*reporter.ReportConfig, error) {
	config := reporter.DefaultReportConfig()

	if format := v.GetString(KeyFormat); format != "" {
		config.Format = reporter.OutputFormat(strings.ToLower(format))
	}
	if supplier := strings.TrimSpace(v.GetString(KeySupplier)); supplier != "" {
		config.Title = fmt.Sprintf("%s  –  %s", config.Title, supplier)
	}
	if table := v.GetString(KeyTable); table != "" {
		config.Table = reporter.Table(strings.ToLower(table))
	}
	config.IncludeMatchedItems = v.GetBool(KeyIncludeMatched)
	if v.IsSet(KeyMaxItems) {
		config.MaxConsoleItems = v.GetInt(KeyMaxItems)
	}

	if d := v.GetString(KeyDelimiter); d != "" {
		delimiter, err := parsers.ParseDelimiter(d)
		if err != nil {
			return nil, errors.ConfigurationError(errors.CodeInvalidConfig, KeyDelimiter, d, err)
		}
		config.CSVDelimiter = delimiter
	}

	if err := config.Validate(); err != nil {
		return nil, errors.ConfigurationError(errors.CodeInvalidConfig, KeyFormat, config.Format, err).
			WithSuggestion("valid formats: console, json, csv, txt, xlsx")
	}

	if config.Format.IsBinary() && v.GetString(KeyOutput) == "" {
		return nil, errors.ConfigurationError(errors.CodeMissingConfig, KeyOutput, nil, nil).
			WithSuggestion("xlsx reports must be written to a file with --output")
	}
	return config, nil
}

// StoreConfig builds the review store configuration
func StoreConfig(v *viper.Viper) (*reviewstore.Config, error) {
	config := reviewstore.DefaultConfig()

	if backend := v.GetString(KeyReviewBackend); backend != "" {
		config.Backend = strings.ToLower(backend)
	}
	if path := v.GetString(KeyReviewPath); path != "" {
		config.Path = path
	}

	if addr := v.GetString(KeyRedisAddr); addr != "" {
		config.Redis.Addr = addr
	}
	config.Redis.Password = v.GetString(KeyRedisPassword)
	if v.IsSet(KeyRedisDB) {
		config.Redis.DB = v.GetInt(KeyRedisDB)
	}
	if prefix := v.GetString(KeyRedisPrefix); prefix != "" {
		config.Redis.KeyPrefix = prefix
	}
	if v.IsSet(KeyRedisTTL) {
		config.Redis.TTL = v.GetDuration(KeyRedisTTL)
	}

	config.Postgres.URL = v.GetString(KeyPostgresURL)
	if v.IsSet(KeyPostgresSchema) {
		config.Postgres.InitSchema = v.GetBool(KeyPostgresSchema)
	}

	if err := config.Validate(); err != nil {
		return nil, errors.ConfigurationError(errors.CodeInvalidConfig, KeyReviewBackend, config.Backend, err).
			WithSuggestion("set --review-backend to memory, file, redis or postgres with its connection flags")
	}
	return config, nil
}
