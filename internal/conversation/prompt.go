package conversation

import (
	"fmt"
	"strings"

	"insightchat-backend/internal/models"
)

const chartInstructions = `When a chart would help, add it as a fenced block tagged "chart" containing one JSON object:
` + "```chart" + `
{"type": "bar", "title": "Sales by region", "description": "optional", "data": [{"region": "North", "sales": 100}]}
` + "```" + `
Supported types are bar, line, pie, area and scatter. Scatter data needs two numeric fields per row.
Use plain numbers in data values. Markdown pipe tables are fine for small tabular answers.`

// turnPrompt is what a prompt strategy needs to build one request.
type turnPrompt struct {
	Question string
	History  []models.Message
	Insights *models.DatasetInsights
	Records  []models.Record
	// RawUnavailable is set when raw mode could not load any records.
	RawUnavailable bool
}

type promptStrategy func(in turnPrompt, lim Limits) string

func strategyFor(m Mode) promptStrategy {
	if m == ModeRawData {
		return composeRawDataPrompt
	}
	return composeAnalysisPrompt
}

func composeAnalysisPrompt(in turnPrompt, lim Limits) string {
	var b strings.Builder
	b.WriteString("You are a data analyst helping a user understand their dataset. ")
	b.WriteString("Answer using the precomputed statistics below. Do not invent numbers that are not supported by them.\n\n")

	writeInsights(&b, in.Insights)
	b.WriteString("\n")
	b.WriteString(chartInstructions)
	b.WriteString("\n\n")
	writeHistory(&b, in.History)
	fmt.Fprintf(&b, "User question: %s\n", in.Question)
	return b.String()
}

func composeRawDataPrompt(in turnPrompt, lim Limits) string {
	var b strings.Builder
	b.WriteString("You are a data analyst with direct access to the user's raw records. ")
	b.WriteString("Base your answer on the rows below and say so when the sample is too small to be conclusive.\n\n")

	if in.RawUnavailable || len(in.Records) == 0 {
		b.WriteString("The raw records could not be loaded for this dataset. Tell the user, and answer from general reasoning only if they ask you to.\n\n")
	} else {
		body, shown := serializeRecords(in.Records, lim.RawMaxRows, lim.RawMaxChars)
		fmt.Fprintf(&b, "Raw records (%d of %d rows, one JSON object per line):\n", shown, len(in.Records))
		b.WriteString(body)
		b.WriteString("\n")
	}

	b.WriteString(chartInstructions)
	b.WriteString("\n\n")
	writeHistory(&b, in.History)
	fmt.Fprintf(&b, "User question: %s\n", in.Question)
	return b.String()
}

// serializeRecords writes records as JSON lines until either cap is hit.
// Non-positive caps are treated as unlimited.
func serializeRecords(records []models.Record, maxRows, maxChars int) (string, int) {
	var b strings.Builder
	shown := 0
	for _, rec := range records {
		if maxRows > 0 && shown >= maxRows {
			break
		}
		line, err := rec.MarshalJSON()
		if err != nil {
			continue
		}
		if maxChars > 0 && b.Len()+len(line)+1 > maxChars {
			break
		}
		b.Write(line)
		b.WriteByte('\n')
		shown++
	}
	return b.String(), shown
}

func writeInsights(b *strings.Builder, ins *models.DatasetInsights) {
	if ins == nil {
		b.WriteString("No statistics are available for this dataset yet.\n")
		return
	}

	fmt.Fprintf(b, "Dataset: %d rows.\n", ins.RowCount)

	if len(ins.KPIs) > 0 {
		b.WriteString("KPIs:\n")
		for _, k := range ins.KPIs {
			fmt.Fprintf(b, "- %s: %s%s\n", k.Label, formatNumber(k.Value), k.Unit)
		}
	}

	if len(ins.Hypotheses) > 0 {
		b.WriteString("Hypotheses:\n")
		for _, h := range ins.Hypotheses {
			fmt.Fprintf(b, "- %s\n", h)
		}
	}

	writePerformers(b, "Top performers", ins.TopPerformers)
	writePerformers(b, "Bottom performers", ins.BottomPerformers)

	if len(ins.Fields) > 0 {
		b.WriteString("Fields:\n")
		for _, f := range ins.Fields {
			switch f.Kind {
			case "numeric":
				fmt.Fprintf(b, "- %s (numeric): min %s, max %s, mean %s, sum %s, %d missing\n",
					f.Name, formatNumber(f.Min), formatNumber(f.Max), formatNumber(f.Mean), formatNumber(f.Sum), f.Missing)
			case "categorical":
				tops := make([]string, 0, len(f.TopValues))
				for _, tv := range f.TopValues {
					tops = append(tops, fmt.Sprintf("%s (%d)", tv.Value, tv.Count))
				}
				fmt.Fprintf(b, "- %s (categorical): %d distinct; top %s\n", f.Name, f.Distinct, strings.Join(tops, ", "))
			default:
				fmt.Fprintf(b, "- %s (%s): %d distinct, %d missing\n", f.Name, f.Kind, f.Distinct, f.Missing)
			}
		}
	}
}

func writePerformers(b *strings.Builder, label string, ps []models.Performer) {
	if len(ps) == 0 {
		return
	}
	fmt.Fprintf(b, "%s by %s:\n", label, ps[0].Metric)
	for i, p := range ps {
		fmt.Fprintf(b, "%d. %s: %s\n", i+1, p.Category, formatNumber(p.Value))
	}
}

func writeHistory(b *strings.Builder, history []models.Message) {
	if len(history) == 0 {
		return
	}
	b.WriteString("Conversation so far:\n")
	for _, m := range history {
		fmt.Fprintf(b, "%s: %s\n", m.Role, m.Content)
	}
	b.WriteString("\n")
}

func formatNumber(v float64) string {
	if v == float64(int64(v)) {
		return fmt.Sprintf("%d", int64(v))
	}
	return fmt.Sprintf("%.2f", v)
}
