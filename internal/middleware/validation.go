package middleware

import (
	"fmt"
	"log/slog"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	apierrors "banvicdash/internal/errors"
	api "banvicdash/pkg/contracts/api/v1"
)

// QueryValidator parses and validates dashboard query strings.
type QueryValidator struct {
	validator *validator.Validate
	logger    *slog.Logger
}

// NewQueryValidator creates a validator that reports fields by their query
// parameter names.
func NewQueryValidator(logger *slog.Logger) *QueryValidator {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("query"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	return &QueryValidator{
		validator: v,
		logger:    logger.With(slog.String("component", "query_validator")),
	}
}

// DashboardQuery reads start, end and the repeated branch and customer
// parameters from r.
func (v *QueryValidator) DashboardQuery(r *http.Request) (api.DashboardQuery, error) {
	values := r.URL.Query()
	q := api.DashboardQuery{
		Start:     strings.TrimSpace(values.Get("start")),
		End:       strings.TrimSpace(values.Get("end")),
		Branches:  nonEmpty(values["branch"]),
		Customers: nonEmpty(values["customer"]),
	}
	if err := v.ValidateStruct(q); err != nil {
		v.logger.DebugContext(r.Context(), "invalid dashboard query",
			slog.String("query", r.URL.RawQuery),
			slog.String("error", err.Error()))
		return api.DashboardQuery{}, err
	}
	return q, nil
}

// ExportQuery is DashboardQuery plus the format parameter.
func (v *QueryValidator) ExportQuery(r *http.Request) (api.ExportQuery, error) {
	dq, err := v.DashboardQuery(r)
	if err != nil {
		return api.ExportQuery{}, err
	}
	q := api.ExportQuery{
		DashboardQuery: dq,
		Format:         strings.ToLower(strings.TrimSpace(r.URL.Query().Get("format"))),
	}
	if err := v.ValidateStruct(q); err != nil {
		return api.ExportQuery{}, err
	}
	return q, nil
}

// ValidateStruct validates a struct and returns validation errors
func (v *QueryValidator) ValidateStruct(s any) error {
	err := v.validator.Struct(s)
	if err == nil {
		return nil
	}

	fieldErrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return apierrors.ErrInvalidRequest
	}

	out := make([]apierrors.ValidationError, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		out = append(out, apierrors.ValidationError{
			Field:   fe.Field(),
			Message: formatValidationError(fe),
		})
	}
	return apierrors.NewValidationErrors(out)
}

// nonEmpty drops blank values from repeated parameters such as branch=.
func nonEmpty(values []string) []string {
	var out []string
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func formatValidationError(err validator.FieldError) string {
	field := err.Field()
	param := err.Param()

	switch err.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "max":
		if err.Kind() == reflect.Slice {
			return fmt.Sprintf("%s accepts at most %s values", field, param)
		}
		return fmt.Sprintf("%s must be at most %s characters", field, param)
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, strings.ReplaceAll(param, " ", ", "))
	case "datetime":
		return fmt.Sprintf("%s must be a date formatted YYYY-MM-DD", field)
	default:
		return fmt.Sprintf("%s failed %s validation", field, err.Tag())
	}
}
