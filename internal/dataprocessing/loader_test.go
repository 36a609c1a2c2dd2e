package dataprocessing

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"banvicdash/internal/errors"
	"banvicdash/internal/shared/testutil"
)

func TestLoaderLoad(t *testing.T) {
	logger, handler := testutil.NewTestLogger(t)
	loader := NewLoader(testutil.WriteFixtures(t, nil), logger)

	result, err := loader.Load(context.Background())
	require.NoError(t, err)

	tables := result.Tables
	assert.Len(t, tables.Branches, 3)
	assert.Len(t, tables.Customers, 3)
	assert.Len(t, tables.EmployeeBranches, 2)
	assert.Len(t, tables.Employees, 2)
	assert.Len(t, tables.Accounts, 4)
	assert.Len(t, tables.Proposals, 5)
	assert.Len(t, tables.Transactions, 8)

	assert.Equal(t, "Agência Centro", tables.Branches[0].Name)
	assert.Equal(t, "Ana Silva", tables.Customers[0].FullName())
	assert.Equal(t, "", tables.Accounts[3].CollaboratorCode)

	first := tables.Transactions[0]
	assert.Equal(t, "1000", first.AccountNumber)
	assert.True(t, time.Date(2024, 1, 10, 9, 30, 0, 0, time.UTC).Equal(first.Timestamp))
	assert.True(t, first.Amount.Valid)
	assert.True(t, decimal.RequireFromString("-100.50").Equal(first.Amount.Decimal))
	assert.Equal(t, "Pix - Realizado", first.Description)

	assert.False(t, tables.Transactions[6].Dated(), "unparseable timestamp is null")
	assert.False(t, tables.Transactions[7].Amount.Valid, "unparseable amount is null")

	assert.Equal(t, 1, result.Parse.InvalidTimestamps)
	assert.Equal(t, 1, result.Parse.InvalidAmounts)
	assert.Equal(t, 0, result.Parse.InvalidProposalDates)
	assert.Len(t, result.Fingerprint, 64)

	testutil.AssertLogContains(t, handler, slog.LevelWarn, "coerced unparseable values to null")
}

func TestLoaderSchemaErrors(t *testing.T) {
	tests := []struct {
		name      string
		overrides map[string]string
		wantMsg   string
	}{
		{
			name:      "missing file",
			overrides: map[string]string{"contas.csv": ""},
			wantMsg:   "source file for accounts not found",
		},
		{
			name:      "missing required column",
			overrides: map[string]string{"agencias.csv": "cod_agencia,endereco\n1,Rua A\n"},
			wantMsg:   `branches is missing required column "nome"`,
		},
		{
			name:      "empty file",
			overrides: map[string]string{"transacoes.csv": "\n"},
			wantMsg:   "transactions has no header row",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			loader := NewLoader(testutil.WriteFixtures(t, tt.overrides), nil)

			_, err := loader.Load(context.Background())
			require.Error(t, err)
			assert.True(t, errors.IsType(err, errors.ErrTypeSchema), "got %v", err)
			assert.Contains(t, err.Error(), tt.wantMsg)
		})
	}
}

func TestLoaderHeaderNormalization(t *testing.T) {
	overrides := map[string]string{
		"agencias.csv": "\xef\xbb\xbfCOD_AGENCIA, Nome \n1.0,  Agência Centro\n\n,\n",
	}
	loader := NewLoader(testutil.WriteFixtures(t, overrides), nil)

	result, err := loader.Load(context.Background())
	require.NoError(t, err)
	require.Len(t, result.Tables.Branches, 1)
	assert.Equal(t, "1", result.Tables.Branches[0].Code)
	assert.Equal(t, "Agência Centro", result.Tables.Branches[0].Name)
}

func TestLoaderReadsWorkbook(t *testing.T) {
	cfg := testutil.WriteFixtures(t, nil)

	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	rows := [][]any{
		{"cod_agencia", "nome"},
		{"1", "Agência Centro"},
		{"2", "Agência Norte"},
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow(sheet, cell, &row))
	}
	path := filepath.Join(cfg.Dir, "agencias.xlsx")
	require.NoError(t, f.SaveAs(path))
	require.NoError(t, f.Close())
	cfg.Branches = "agencias.xlsx"

	result, err := NewLoader(cfg, nil).Load(context.Background())
	require.NoError(t, err)
	require.Len(t, result.Tables.Branches, 2)
	assert.Equal(t, "Agência Norte", result.Tables.Branches[1].Name)
}

func TestLoaderFingerprint(t *testing.T) {
	cfg := testutil.WriteFixtures(t, nil)
	loader := NewLoader(cfg, nil)
	ctx := context.Background()

	fp1, err := loader.Fingerprint(ctx)
	require.NoError(t, err)
	fp2, err := loader.Fingerprint(ctx)
	require.NoError(t, err)
	assert.Equal(t, fp1, fp2)

	loaded, err := loader.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, fp1, loaded.Fingerprint, "load and fingerprint hash the same bytes")

	path := filepath.Join(cfg.Dir, "transacoes.csv")
	require.NoError(t, os.WriteFile(path, []byte(testutil.TransactionsCSV+"9,1000,2024-01-12 10:00:00 UTC,Pix,1\n"), 0644))

	fp3, err := loader.Fingerprint(ctx)
	require.NoError(t, err)
	assert.NotEqual(t, fp1, fp3)
}

func TestLoaderCancelled(t *testing.T) {
	loader := NewLoader(testutil.WriteFixtures(t, nil), nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := loader.Load(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestParseTimestamp(t *testing.T) {
	tests := []struct {
		raw    string
		want   time.Time
		wantOK bool
	}{
		{"2024-01-10 09:30:00 UTC", time.Date(2024, 1, 10, 9, 30, 0, 0, time.UTC), true},
		{"2024-01-15 23:59:59.123456 UTC", time.Date(2024, 1, 15, 23, 59, 59, 123456000, time.UTC), true},
		{"2024-01-10T09:30:00Z", time.Date(2024, 1, 10, 9, 30, 0, 0, time.UTC), true},
		{"2024-01-10T23:30:00-03:00", time.Date(2024, 1, 11, 2, 30, 0, 0, time.UTC), true},
		{"2024-01-10 09:30:00", time.Date(2024, 1, 10, 9, 30, 0, 0, time.UTC), true},
		{"2024-01-10", time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC), true},
		{"  ", time.Time{}, false},
		{"not-a-date", time.Time{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, ok := ParseTimestamp(tt.raw)
			assert.Equal(t, tt.wantOK, ok)
			assert.True(t, tt.want.Equal(got), "got %v", got)
			if ok {
				assert.Equal(t, time.UTC, got.Location())
			}
		})
	}
}

func TestParseAmount(t *testing.T) {
	tests := []struct {
		raw    string
		want   string
		wantOK bool
	}{
		{"100", "100", true},
		{"-100.50", "-100.5", true},
		{" 0.01 ", "0.01", true},
		{"abc", "", false},
		{"", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, ok := ParseAmount(tt.raw)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.wantOK, got.Valid)
			if ok {
				assert.Equal(t, tt.want, got.Decimal.String())
			}
		})
	}
}

func TestNormalizeCode(t *testing.T) {
	assert.Equal(t, "100", normalizeCode("100.0"))
	assert.Equal(t, "100", normalizeCode(" 100 "))
	assert.Equal(t, "A.0", normalizeCode("A.0"))
	assert.Equal(t, ".0", normalizeCode(".0"))
	assert.Equal(t, "", normalizeCode(""))
}
