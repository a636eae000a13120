package models

// ChartType is the renderer kind of a chart. Values outside the supported
// set are carried verbatim; the renderer treats them as a no-op.
type ChartType string

const (
	ChartBar     ChartType = "bar"
	ChartLine    ChartType = "line"
	ChartPie     ChartType = "pie"
	ChartArea    ChartType = "area"
	ChartScatter ChartType = "scatter"
)

// Supported reports whether the renderer knows how to draw t.
func (t ChartType) Supported() bool {
	switch t {
	case ChartBar, ChartLine, ChartPie, ChartArea, ChartScatter:
		return true
	}
	return false
}

// ChartSpec is a validated, render-ready chart descriptor.
type ChartSpec struct {
	Type        ChartType `json:"type"`
	Title       string    `json:"title,omitempty"`
	Description string    `json:"description,omitempty"`
	Data        []Record  `json:"data"`
}

// RoleKind tags a RoleAssignment variant.
type RoleKind string

const (
	RolesResolved                   RoleKind = "resolved"
	RolesResolvedScatter            RoleKind = "resolved_scatter"
	RolesInsufficientDimensionality RoleKind = "insufficient_dimensionality"
)

// RoleAssignment says which record fields play which rendering role.
// CategoryKey/ValueKey are set for RolesResolved, XKey/YKey for
// RolesResolvedScatter, and nothing for RolesInsufficientDimensionality.
type RoleAssignment struct {
	Kind        RoleKind `json:"kind"`
	CategoryKey string   `json:"category_key,omitempty"`
	ValueKey    string   `json:"value_key,omitempty"`
	XKey        string   `json:"x_key,omitempty"`
	YKey        string   `json:"y_key,omitempty"`
}

// Renderable is false only for the insufficient-dimensionality variant.
func (a RoleAssignment) Renderable() bool {
	return a.Kind == RolesResolved || a.Kind == RolesResolvedScatter
}

// ChartSuggestion is the descriptor handed to the external renderer.
type ChartSuggestion struct {
	ChartSpec
	Roles RoleAssignment `json:"roles"`
}

// CellHint is an advisory display class for a table cell.
type CellHint string

const (
	CellText     CellHint = "text"
	CellNumeric  CellHint = "numeric"
	CellDate     CellHint = "date"
	CellCurrency CellHint = "currency"
)

// Table is a pipe-delimited markdown table found in prose. Hints runs
// parallel to Rows and never alters cell text.
type Table struct {
	Headers []string     `json:"headers"`
	Rows    [][]string   `json:"rows"`
	Hints   [][]CellHint `json:"hints"`
}
