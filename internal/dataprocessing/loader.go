package dataprocessing

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/csv"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"banvicdash/internal/config"
	"banvicdash/internal/errors"
	"banvicdash/pkg/contracts/domain"
)

// requiredColumns lists the columns each source table must carry. Extra
// columns are ignored.
var requiredColumns = map[string][]string{
	config.TableBranches:         {"cod_agencia", "nome"},
	config.TableCustomers:        {"cod_cliente", "primeiro_nome", "ultimo_nome"},
	config.TableEmployeeBranches: {"cod_colaborador", "cod_agencia"},
	config.TableEmployees:        {"cod_colaborador", "primeiro_nome", "ultimo_nome"},
	config.TableAccounts:         {"num_conta", "cod_cliente", "cod_agencia", "cod_colaborador"},
	config.TableProposals:        {"cod_proposta", "cod_cliente", "data_entrada_proposta", "status_proposta"},
	config.TableTransactions:     {"cod_transacao", "num_conta", "data_transacao", "valor_transacao"},
}

// timestampLayouts are tried in order. Fractional seconds after the seconds
// field are accepted by every layout that has one.
var timestampLayouts = []string{
	"2006-01-02 15:04:05 MST",
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02 15:04:05 -0700",
	"2006-01-02 15:04:05 -07:00",
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// LoadResult is the outcome of reading all source tables.
type LoadResult struct {
	Tables      *domain.Tables
	Fingerprint string
	Parse       domain.ParseStats
}

// Loader reads the seven BanVic source tables from disk. Files ending in
// .xlsx are read from their first sheet; everything else is parsed as CSV.
type Loader struct {
	files  []config.DataFile
	logger *slog.Logger
}

// NewLoader creates a loader for the files named by cfg.
func NewLoader(cfg config.DataConfig, logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{
		files:  cfg.Files(),
		logger: logger.With(slog.String("component", "loader")),
	}
}

// Files returns the source files this loader reads.
func (l *Loader) Files() []config.DataFile {
	return l.files
}

// Fingerprint hashes the content of every source file without parsing it.
// Two calls return the same value iff no file changed.
func (l *Loader) Fingerprint(ctx context.Context) (string, error) {
	h := sha256.New()
	for _, f := range l.files {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		data, err := readSource(f)
		if err != nil {
			return "", err
		}
		writeFingerprint(h, f.Table, data)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// Load reads, validates and parses every source table. A missing file or a
// missing required column is a schema error. Unparseable timestamps and
// amounts are coerced to null and counted.
func (l *Loader) Load(ctx context.Context) (*LoadResult, error) {
	start := time.Now()
	h := sha256.New()
	result := &LoadResult{Tables: &domain.Tables{}}

	for _, f := range l.files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		data, err := readSource(f)
		if err != nil {
			return nil, err
		}
		writeFingerprint(h, f.Table, data)

		rows, err := decodeRows(f.Path, data)
		if err != nil {
			return nil, errors.NewParsingError(fmt.Sprintf("decode %s", f.Table), err).
				WithContext("table", f.Table).
				WithContext("path", f.Path)
		}

		t, err := newTable(f, rows)
		if err != nil {
			return nil, err
		}

		n := l.parseTable(t, result)
		l.logger.InfoContext(ctx, "loaded table",
			slog.String("table", f.Table),
			slog.String("path", f.Path),
			slog.Int("rows", n))
	}

	result.Fingerprint = hex.EncodeToString(h.Sum(nil))

	if total := result.Parse.Total(); total > 0 {
		l.logger.WarnContext(ctx, "coerced unparseable values to null",
			slog.Int("invalid_timestamps", result.Parse.InvalidTimestamps),
			slog.Int("invalid_amounts", result.Parse.InvalidAmounts),
			slog.Int("invalid_proposal_dates", result.Parse.InvalidProposalDates))
	}

	l.logger.InfoContext(ctx, "dataset loaded",
		slog.String("fingerprint", result.Fingerprint),
		slog.Duration("duration", time.Since(start)))

	return result, nil
}

func (l *Loader) parseTable(t *table, result *LoadResult) int {
	tables := result.Tables
	switch t.name {
	case config.TableBranches:
		for _, r := range t.rows {
			tables.Branches = append(tables.Branches, domain.Branch{
				Code: normalizeCode(t.get(r, "cod_agencia")),
				Name: strings.TrimSpace(t.get(r, "nome")),
			})
		}
		return len(tables.Branches)

	case config.TableCustomers:
		for _, r := range t.rows {
			tables.Customers = append(tables.Customers, domain.Customer{
				Code:      normalizeCode(t.get(r, "cod_cliente")),
				FirstName: strings.TrimSpace(t.get(r, "primeiro_nome")),
				LastName:  strings.TrimSpace(t.get(r, "ultimo_nome")),
			})
		}
		return len(tables.Customers)

	case config.TableEmployeeBranches:
		for _, r := range t.rows {
			tables.EmployeeBranches = append(tables.EmployeeBranches, domain.EmployeeBranch{
				EmployeeCode: normalizeCode(t.get(r, "cod_colaborador")),
				BranchCode:   normalizeCode(t.get(r, "cod_agencia")),
			})
		}
		return len(tables.EmployeeBranches)

	case config.TableEmployees:
		for _, r := range t.rows {
			tables.Employees = append(tables.Employees, domain.Employee{
				Code:      normalizeCode(t.get(r, "cod_colaborador")),
				FirstName: strings.TrimSpace(t.get(r, "primeiro_nome")),
				LastName:  strings.TrimSpace(t.get(r, "ultimo_nome")),
			})
		}
		return len(tables.Employees)

	case config.TableAccounts:
		for _, r := range t.rows {
			tables.Accounts = append(tables.Accounts, domain.Account{
				Number:           normalizeCode(t.get(r, "num_conta")),
				CustomerCode:     normalizeCode(t.get(r, "cod_cliente")),
				BranchCode:       normalizeCode(t.get(r, "cod_agencia")),
				CollaboratorCode: normalizeCode(t.get(r, "cod_colaborador")),
			})
		}
		return len(tables.Accounts)

	case config.TableProposals:
		for _, r := range t.rows {
			raw := t.get(r, "data_entrada_proposta")
			entered, ok := ParseTimestamp(raw)
			if !ok && strings.TrimSpace(raw) != "" {
				result.Parse.InvalidProposalDates++
			}
			amount, _ := ParseAmount(t.get(r, "valor_proposta"))
			tables.Proposals = append(tables.Proposals, domain.CreditProposal{
				Code:             normalizeCode(t.get(r, "cod_proposta")),
				CustomerCode:     normalizeCode(t.get(r, "cod_cliente")),
				CollaboratorCode: normalizeCode(t.get(r, "cod_colaborador")),
				EnteredAt:        entered,
				Status:           strings.TrimSpace(t.get(r, "status_proposta")),
				Amount:           amount,
			})
		}
		return len(tables.Proposals)

	case config.TableTransactions:
		for _, r := range t.rows {
			rawTS := t.get(r, "data_transacao")
			ts, ok := ParseTimestamp(rawTS)
			if !ok && strings.TrimSpace(rawTS) != "" {
				result.Parse.InvalidTimestamps++
			}
			rawAmount := t.get(r, "valor_transacao")
			amount, ok := ParseAmount(rawAmount)
			if !ok && strings.TrimSpace(rawAmount) != "" {
				result.Parse.InvalidAmounts++
			}
			tables.Transactions = append(tables.Transactions, domain.Transaction{
				Code:          normalizeCode(t.get(r, "cod_transacao")),
				AccountNumber: normalizeCode(t.get(r, "num_conta")),
				Timestamp:     ts,
				Description:   strings.TrimSpace(t.get(r, "nome_transacao")),
				Amount:        amount,
			})
		}
		return len(tables.Transactions)
	}
	return 0
}

// ParseTimestamp parses a source timestamp, converts it to UTC and drops the
// zone. ok is false for empty or unparseable input.
func ParseTimestamp(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

// ParseAmount parses a numeric amount. ok is false for empty or non-numeric input.
func ParseAmount(raw string) (decimal.NullDecimal, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return decimal.NullDecimal{}, false
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.NullDecimal{}, false
	}
	return decimal.NewNullDecimal(d), true
}

// normalizeCode trims a key value and drops a float suffix such as "100.0",
// which spreadsheet exports produce for integer columns with blanks.
func normalizeCode(raw string) string {
	raw = strings.TrimSpace(raw)
	if whole, ok := strings.CutSuffix(raw, ".0"); ok && whole != "" && isDigits(whole) {
		return whole
	}
	return raw
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func readSource(f config.DataFile) ([]byte, error) {
	data, err := os.ReadFile(f.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.NewSchemaError(fmt.Sprintf("source file for %s not found", f.Table), err).
				WithContext("table", f.Table).
				WithContext("path", f.Path)
		}
		return nil, errors.NewStorageError(fmt.Sprintf("read %s", f.Table), err).
			WithContext("table", f.Table).
			WithContext("path", f.Path)
	}
	return data, nil
}

func writeFingerprint(w io.Writer, table string, data []byte) {
	fmt.Fprintf(w, "%s\x00%d\x00", table, len(data))
	_, _ = w.Write(data)
}

func decodeRows(path string, data []byte) ([][]string, error) {
	if strings.EqualFold(filepath.Ext(path), ".xlsx") {
		return decodeWorkbook(data)
	}

	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))
	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true
	return r.ReadAll()
}

func decodeWorkbook(data []byte) ([][]string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("workbook has no sheets")
	}
	return f.GetRows(sheets[0])
}

// table is a decoded source file with its header index.
type table struct {
	name    string
	columns map[string]int
	rows    [][]string
}

func newTable(f config.DataFile, rows [][]string) (*table, error) {
	if len(rows) == 0 {
		return nil, errors.NewSchemaError(fmt.Sprintf("%s has no header row", f.Table), nil).
			WithContext("table", f.Table).
			WithContext("path", f.Path)
	}

	columns := make(map[string]int, len(rows[0]))
	for i, name := range rows[0] {
		name = strings.ToLower(strings.TrimSpace(name))
		if _, dup := columns[name]; !dup {
			columns[name] = i
		}
	}

	for _, col := range requiredColumns[f.Table] {
		if _, ok := columns[col]; !ok {
			return nil, errors.NewSchemaError(fmt.Sprintf("%s is missing required column %q", f.Table, col), nil).
				WithContext("table", f.Table).
				WithContext("path", f.Path).
				WithContext("column", col)
		}
	}

	body := rows[1:]
	out := body[:0:0]
	for _, r := range body {
		if !blankRow(r) {
			out = append(out, r)
		}
	}

	return &table{name: f.Table, columns: columns, rows: out}, nil
}

// get returns the named cell, or "" when the column is absent or the row is short.
func (t *table) get(row []string, column string) string {
	i, ok := t.columns[column]
	if !ok || i >= len(row) {
		return ""
	}
	return row[i]
}

func blankRow(r []string) bool {
	for _, cell := range r {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
