// Package masterdata serves the reference data the review engine filters
// against: companies, cost centers, and their management units.
package masterdata

import "errors"

// Company is a legal entity running review campaigns.
type Company struct {
	ID     int64
	Code   string
	Name   string
	Branch string
}

// CostCenter belongs to exactly one management unit.
type CostCenter struct {
	Code           string
	Description    string
	ManagementUnit string
}

// ErrNotFound indicates missing reference data.
var ErrNotFound = errors.New("masterdata: not found")
