package models

import (
	"time"

	"github.com/google/uuid"
)

// FieldSummary describes one field of a record set.
type FieldSummary struct {
	Name      string          `json:"name"`
	Kind      string          `json:"kind"` // numeric|categorical|date|text|unknown
	NonNull   int             `json:"non_null"`
	Missing   int             `json:"missing"`
	Distinct  int             `json:"distinct"`
	Min       float64         `json:"min,omitempty"`
	Max       float64         `json:"max,omitempty"`
	Mean      float64         `json:"mean,omitempty"`
	Sum       float64         `json:"sum,omitempty"`
	TopValues []CategoryCount `json:"top_values,omitempty"`
}

type CategoryCount struct {
	Value string `json:"value"`
	Count int    `json:"count"`
}

// KPI is a headline metric shown in analysis mode.
type KPI struct {
	Label string  `json:"label"`
	Value float64 `json:"value"`
	Unit  string  `json:"unit,omitempty"`
}

// Performer is one entry of a top/bottom list: a category and its aggregate.
type Performer struct {
	Category string  `json:"category"`
	Metric   string  `json:"metric"`
	Value    float64 `json:"value"`
}

// DatasetInsights are the precomputed aggregate statistics used by the
// analysis prompt strategy.
type DatasetInsights struct {
	FileID           uuid.UUID      `json:"file_id"`
	RowCount         int            `json:"row_count"`
	KPIs             []KPI          `json:"kpis"`
	Hypotheses       []string       `json:"hypotheses"`
	TopPerformers    []Performer    `json:"top_performers"`
	BottomPerformers []Performer    `json:"bottom_performers"`
	Fields           []FieldSummary `json:"fields"`
	GeneratedAt      time.Time      `json:"generated_at"`
}

// Dataset is an uploaded record set that conversations are opened over.
type Dataset struct {
	ID        uuid.UUID `json:"id"`
	UserID    uuid.UUID `json:"user_id"`
	Name      string    `json:"name"`
	RowCount  int       `json:"row_count"`
	CreatedAt time.Time `json:"created_at"`
}

type CreateDatasetRequest struct {
	Name    string   `json:"name"`
	Records []Record `json:"records"`
}
