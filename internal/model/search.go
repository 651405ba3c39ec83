package model

import "time"

// SearchFilters compose with AND semantics. Zero values mean "no filter".
type SearchFilters struct {
	Query    string     // case-insensitive substring over text/type/category
	Type     string     // exact match on record type
	Category string     // exact match
	Priority string     // exact match
	Read     *bool      // exact match on read state
	From     *time.Time // inclusive lower bound on creation time
	To       *time.Time // inclusive upper bound on creation time
}

// HistoryPage is one page of the server-side notification log.
type HistoryPage struct {
	Items []Notification `json:"items"`
	Total int            `json:"total"`
}
