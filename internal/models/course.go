package models

// Course is a catalog course with a base price that offerings may override.
type Course struct {
	ID          string  `db:"id" json:"id"`
	Name        string  `db:"name" json:"name"`
	Description *string `db:"description" json:"description,omitempty"`
	BasePrice   float64 `db:"base_price" json:"base_price"`
}

// Package bundles multiple courses under a single price.
type Package struct {
	ID          string  `db:"id" json:"id"`
	Name        string  `db:"name" json:"name"`
	Description *string `db:"description" json:"description,omitempty"`
	BasePrice   float64 `db:"base_price" json:"base_price"`
}

// PackageDetail enriches Package with the aggregated course names.
type PackageDetail struct {
	Package
	Courses *string `db:"courses" json:"courses,omitempty"`
}
