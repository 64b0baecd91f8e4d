package models

import "time"

// Detection is the persisted outcome of one inference request. Records are
// immutable once stored and removed only together with their account.
type Detection struct {
	ID         string
	AccountID  string
	Prediction string
	Confidence float64
	Timestamp  time.Time
	IPAddress  string
	Protocol   string
	SrcBytes   int64
	DstBytes   int64
}

// DetectionStats aggregates detection counts for dashboards.
type DetectionStats struct {
	Total  int64
	Normal int64
	Attack int64
}
