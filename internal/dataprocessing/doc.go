// Package dataprocessing implements the BanVic reporting pipeline.
//
// The stages are:
//
//	Loader      reads the seven CSV (or XLSX) extracts and validates their headers
//	Joiner      left-joins transactions to accounts, branches and customers
//	Calendar    derives weekday labels and month periods
//	Filter      applies date range, branch and customer selections
//	Aggregator  computes count, mean and sum per grouping
//
// Pipeline composes them. A Dataset is immutable once built, so reports can
// be computed concurrently from the same Dataset.
package dataprocessing
