package errors

import (
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAppError(t *testing.T) {
	tests := []struct {
		name     string
		err      *AppError
		wantType ErrorType
		wantMsg  string
	}{
		{
			name:     "schema error with cause",
			err:      NewSchemaError("open contas.csv", fs.ErrNotExist),
			wantType: ErrTypeSchema,
			wantMsg:  "[SCHEMA] open contas.csv: file does not exist",
		},
		{
			name:     "parsing error",
			err:      NewParsingError("bad row", nil),
			wantType: ErrTypeParsing,
			wantMsg:  "[PARSING] bad row",
		},
		{
			name:     "not found",
			err:      NewNotFoundError("chart"),
			wantType: ErrTypeNotFound,
			wantMsg:  "[NOT_FOUND] chart not found",
		},
		{
			name:     "config",
			err:      NewConfigError("weekdays", nil),
			wantType: ErrTypeConfig,
			wantMsg:  "[CONFIG] weekdays",
		},
		{
			name:     "storage",
			err:      NewStorageError("read", nil),
			wantType: ErrTypeStorage,
			wantMsg:  "[STORAGE] read",
		},
		{
			name:     "validation",
			err:      NewAppValidationError("start after end"),
			wantType: ErrTypeValidation,
			wantMsg:  "[VALIDATION] start after end",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantType, tt.err.Type)
			assert.Equal(t, tt.wantMsg, tt.err.Error())
			assert.True(t, IsType(fmt.Errorf("wrapped: %w", tt.err), tt.wantType))
		})
	}
}

func TestAppErrorUnwrapAndContext(t *testing.T) {
	err := NewSchemaError("missing file", fs.ErrNotExist).
		WithContext("table", "accounts").
		WithContext("path", "/data/contas.csv")

	assert.True(t, errors.Is(err, fs.ErrNotExist))
	assert.Equal(t, "accounts", err.Context["table"])
	assert.False(t, IsType(fmt.Errorf("plain"), ErrTypeSchema))

	bare := &AppError{Type: ErrTypeParsing}
	bare.WithContext("row", 3)
	assert.Equal(t, 3, bare.Context["row"])
}

func TestAPIErrorConstructors(t *testing.T) {
	v := ErrValidation("branch", "unknown branch")
	assert.Equal(t, http.StatusBadRequest, v.StatusCode)
	assert.Equal(t, ValidationErrors{Errors: []ValidationError{{Field: "branch", Message: "unknown branch"}}}, v.Details)

	nf := NotFoundError("export table")
	assert.Equal(t, "export table not found", nf.Error())
	assert.Equal(t, http.StatusNotFound, nf.StatusCode)
}
