// Package api contains the HTTP API contracts of the dashboard.
// Version v1 represents the current stable API version.
package api

// DashboardQuery is the filter accepted by the report, options, export and
// chart endpoints. Dates are inclusive calendar days; an empty value means
// the observed bound of the dataset.
type DashboardQuery struct {
	Start     string   `json:"start" query:"start" validate:"omitempty,datetime=2006-01-02"`
	End       string   `json:"end" query:"end" validate:"omitempty,datetime=2006-01-02"`
	Branches  []string `json:"branch" query:"branch" validate:"omitempty,max=500,dive,required,max=200"`
	Customers []string `json:"customer" query:"customer" validate:"omitempty,max=5000,dive,required,max=200"`
}

// ExportQuery adds the output format to a dashboard query.
type ExportQuery struct {
	DashboardQuery
	Format string `json:"format" query:"format" validate:"omitempty,oneof=csv xlsx"`
}
