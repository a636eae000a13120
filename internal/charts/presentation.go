package charts

import (
	"sync"

	"insightchat-backend/internal/models"
)

// Presentation holds the display rules shared by every renderer of table
// hints. The host application initializes it once at startup.
type Presentation struct {
	CellClasses map[models.CellHint]string `json:"cell_classes"`
	ChartTypes  []models.ChartType         `json:"chart_types"`
}

var (
	presentationOnce sync.Once
	presentation     *Presentation
)

// InitPresentation builds the shared presentation rules. Repeated calls
// return the same value.
func InitPresentation() *Presentation {
	presentationOnce.Do(func() {
		presentation = &Presentation{
			CellClasses: map[models.CellHint]string{
				models.CellText:     "cell-text",
				models.CellNumeric:  "cell-numeric",
				models.CellDate:     "cell-date",
				models.CellCurrency: "cell-currency",
			},
			ChartTypes: []models.ChartType{
				models.ChartBar, models.ChartLine, models.ChartPie, models.ChartArea, models.ChartScatter,
			},
		}
	})
	return presentation
}
