package parsers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"document-reconciliation-service/internal/models"
	"document-reconciliation-service/pkg/errors"
	"document-reconciliation-service/pkg/logger"
)

// StatementParser reads SOA and ledger entries from CSV or JSON files
type StatementParser struct {
	*BaseParser
	config  *StatementConfig
	aliases map[string]string
}

// NewStatementParser creates a statement parser. A nil config means
// DefaultStatementConfig.
func NewStatementParser(config *StatementConfig) (*StatementParser, error) {
	if config == nil {
		config = DefaultStatementConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, errors.ConfigurationError(errors.CodeInvalidConfig, "statement", config.ColumnAliases, err)
	}
	return &StatementParser{
		BaseParser: NewBaseParser(config.Parse, "statement_parser"),
		config:     config,
		aliases:    config.Aliases(),
	}, nil
}

// ParseFile reads entries from path. Files ending in .json are decoded as
// JSON; everything else is read as delimited text.
func (sp *StatementParser) ParseFile(ctx context.Context, path string) ([]models.StatementEntry, *ParseStats, error) {
	if strings.EqualFold(filepath.Ext(path), ".json") {
		data, err := sp.ReadFile(path)
		if err != nil {
			return nil, NewParseStats(path), err
		}
		return sp.ParseJSON(ctx, path, data)
	}
	return sp.parseCSV(ctx, path)
}

func (sp *StatementParser) parseCSV(ctx context.Context, path string) ([]models.StatementEntry, *ParseStats, error) {
	stats := NewParseStats(path)

	file, reader, err := sp.OpenCSV(path)
	if err != nil {
		return nil, stats, err
	}
	defer file.Close()

	parseCtx := NewParseContext(ctx, path)
	if err := sp.ReadHeaders(reader, parseCtx, sp.aliases); err != nil {
		return nil, stats, err
	}

	if parseCtx.ColumnIndex(ColumnDocNo) < 0 {
		return nil, stats, errors.ParseError(errors.CodeMissingColumn, path, 1, ColumnDocNo, nil)
	}
	if parseCtx.ColumnIndex(ColumnAmount) < 0 && parseCtx.ColumnIndex(ColumnDebit) < 0 && parseCtx.ColumnIndex(ColumnCredit) < 0 {
		return nil, stats, errors.ParseError(errors.CodeMissingColumn, path, 1, ColumnAmount, nil)
	}

	var entries []models.StatementEntry
	for {
		row, err := sp.ReadRow(reader, parseCtx)
		if err == io.EOF {
			break
		}
		if err != nil {
			if parseCtx.IsCancelled() {
				return entries, stats, err
			}
			if re, ok := errors.AsReconcilerError(err); ok {
				stats.Skip(re)
			}
			sp.logger.WithError(err).WithField("line", parseCtx.LineNumber).Warn("Skipping unreadable row")
			continue
		}

		stats.RecordsParsed++
		values := map[string]string{}
		for _, col := range []string{ColumnDocNo, ColumnDocType, ColumnDate, ColumnAmount, ColumnDebit, ColumnCredit} {
			values[col] = parseCtx.Value(row, col)
		}

		entry, ok := sp.entryFrom(values, path, parseCtx.LineNumber, stats)
		if !ok {
			continue
		}
		entries = append(entries, entry)
		stats.RecordsValid++
	}

	stats.TotalLines = parseCtx.LineNumber
	sp.logger.WithFields(logger.Fields{
		"file":    path,
		"entries": len(entries),
		"skipped": stats.SkippedCount(),
	}).Debug("Parsed statement file")

	return entries, stats, nil
}

// ParseJSON reads entries from an array of objects, an object holding such
// an array under one of the configured keys, or a single entry object
func (sp *StatementParser) ParseJSON(ctx context.Context, name string, data []byte) ([]models.StatementEntry, *ParseStats, error) {
	stats := NewParseStats(name)

	raw, err := decodeJSON(data)
	if err != nil {
		return nil, stats, errors.ParseError(errors.CodeInvalidJSON, name, 0, "", err)
	}

	objects, ok := sp.entryObjects(raw)
	if !ok {
		return nil, stats, errors.ParseError(errors.CodeInvalidFormat, name, 0,
			fmt.Sprintf("expected an array of entries or an object with one of %v", sp.config.EntriesKey), nil)
	}

	var entries []models.StatementEntry
	for i, obj := range objects {
		if ctx != nil && ctx.Err() != nil {
			return entries, stats, errors.InternalError(errors.CodeUnexpectedError, "parsing "+name, ctx.Err())
		}

		stats.RecordsParsed++
		values := map[string]string{}
		for k, v := range obj {
			key := NormalizeKey(k)
			if canonical, ok := sp.aliases[key]; ok {
				key = canonical
			}
			if _, seen := values[key]; !seen || values[key] == "" {
				values[key] = stringValue(v)
			}
		}

		entry, ok := sp.entryFrom(values, name, i+1, stats)
		if !ok {
			continue
		}
		entries = append(entries, entry)
		stats.RecordsValid++
	}

	stats.TotalLines = len(objects)
	return entries, stats, nil
}

func (sp *StatementParser) entryObjects(raw interface{}) ([]map[string]interface{}, bool) {
	switch v := raw.(type) {
	case []interface{}:
		return objectsOf(v), true
	case map[string]interface{}:
		for _, key := range sp.config.EntriesKey {
			for k, inner := range v {
				if NormalizeKey(k) != key {
					continue
				}
				if list, ok := inner.([]interface{}); ok {
					return objectsOf(list), true
				}
			}
		}
		return []map[string]interface{}{v}, true
	default:
		return nil, false
	}
}

// entryFrom builds an entry from canonical column values. A missing amount
// column falls back to debit, then to credit as a negative amount.
func (sp *StatementParser) entryFrom(values map[string]string, file string, line int, stats *ParseStats) (models.StatementEntry, bool) {
	docNo := strings.TrimSpace(values[ColumnDocNo])
	if docNo == "" {
		err := errors.ValidationError(errors.CodeMissingDocNo, ColumnDocNo, fmt.Sprintf("%s:%d", file, line), nil)
		stats.Skip(err)
		sp.logger.WithFields(logger.Fields{
			"file": file,
			"line": line,
		}).Warn("Skipping entry without doc_no")
		return models.StatementEntry{}, false
	}

	amount := strings.TrimSpace(values[ColumnAmount])
	if amount == "" {
		amount = signedAmount(values[ColumnDebit], values[ColumnCredit])
	}

	return models.StatementEntry{
		DocNo:   docNo,
		DocType: strings.TrimSpace(values[ColumnDocType]),
		Date:    strings.TrimSpace(values[ColumnDate]),
		Amount:  amount,
	}, true
}

func signedAmount(debit, credit string) string {
	debit = strings.TrimSpace(debit)
	credit = strings.TrimSpace(credit)
	if d := models.ParseAmount(debit); d.Valid && !d.Value.IsZero() {
		return debit
	}
	if credit != "" {
		if strings.HasPrefix(credit, "-") || strings.HasPrefix(credit, "(") {
			return credit
		}
		return "-" + credit
	}
	return debit
}

func decodeJSON(data []byte) (interface{}, error) {
	dec := json.NewDecoder(bytes.NewReader(bytes.TrimPrefix(data, []byte(utf8BOM))))
	dec.UseNumber()
	var raw interface{}
	if err := dec.Decode(&raw); err != nil {
		return nil, err
	}
	return raw, nil
}

func objectsOf(list []interface{}) []map[string]interface{} {
	out := make([]map[string]interface{}, 0, len(list))
	for _, item := range list {
		if obj, ok := item.(map[string]interface{}); ok {
			out = append(out, obj)
		}
	}
	return out
}

// stringValue renders a decoded JSON scalar as text. Numbers keep their
// source digits.
func stringValue(v interface{}) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(x)
	case json.Number:
		return x.String()
	case bool:
		if x {
			return "true"
		}
		return "false"
	default:
		return ""
	}
}
