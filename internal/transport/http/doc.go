// Package http implements the HTTP handlers of the dashboard. Handlers parse
// and validate the request, call the service layer and render the result.
//
// # Endpoints
//
//	GET  /                                  HTML dashboard
//	GET  /api/dashboard/options             filter options for a date range
//	GET  /api/dashboard/report              full report as JSON
//	GET  /api/dashboard/export/{table}      one table as CSV or XLSX
//	GET  /api/dashboard/charts/{chart}.svg  one bar chart
//	GET  /api/dashboard/dataset             dataset summary
//	POST /api/dashboard/reload              force a dataset rebuild
//	GET  /api/health[/ready|/live|/sources|/files] health checks
//	GET  /api/version                       build information
//	POST /api/log                           client-side log entries
//	GET  /ws                                dataset change notifications
//
// Filters are read from the query string: start and end as YYYY-MM-DD and
// repeated branch and customer parameters.
//
// # Error Handling
//
// All API errors are RFC 7807 problem details written by
// errors.ErrorHandler. A dataset that cannot be loaded is reported as 503,
// unknown tables and charts as 404 and invalid filters as 400. The HTML page
// renders the same errors inline with the matching status code.
package http
