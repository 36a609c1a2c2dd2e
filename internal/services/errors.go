package services

import "errors"

// Dashboard service errors
var (
	// ErrDatasetUnavailable wraps every failure to produce a dataset when
	// none is cached yet.
	ErrDatasetUnavailable = errors.New("dataset unavailable")

	// ErrUnknownFormat is returned for export formats other than csv and xlsx.
	ErrUnknownFormat = errors.New("unknown export format")
)
