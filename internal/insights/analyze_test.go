package insights

import (
	"strings"
	"testing"

	"github.com/google/uuid"

	"insightchat-backend/internal/models"
)

func salesRecords() []models.Record {
	return []models.Record{
		models.NewRecord("region", "North", "sales", 100.0, "units", 10.0, "month", "2024-01"),
		models.NewRecord("region", "South", "sales", 50.0, "units", 5.0, "month", "2024-01"),
		models.NewRecord("region", "North", "sales", 30.0, "units", 3.0, "month", "2024-02"),
		models.NewRecord("region", "East", "sales", 20.0, "units", 2.0, "month", "2024-02"),
	}
}

func TestAnalyze_FieldSummaries(t *testing.T) {
	res := Analyze(uuid.New(), salesRecords(), DefaultOptions())

	if res.RowCount != 4 {
		t.Fatalf("expected 4 rows, got %d", res.RowCount)
	}
	wantKinds := []struct{ name, kind string }{
		{"region", KindCategorical},
		{"sales", KindNumeric},
		{"units", KindNumeric},
		{"month", KindDate},
	}
	if len(res.Fields) != len(wantKinds) {
		t.Fatalf("expected %d fields, got %d", len(wantKinds), len(res.Fields))
	}
	for i, want := range wantKinds {
		if res.Fields[i].Name != want.name || res.Fields[i].Kind != want.kind {
			t.Errorf("field %d: expected %s/%s, got %s/%s", i, want.name, want.kind, res.Fields[i].Name, res.Fields[i].Kind)
		}
	}

	sales := res.Fields[1]
	if sales.Sum != 200 || sales.Mean != 50 || sales.Min != 20 || sales.Max != 100 {
		t.Fatalf("unexpected sales summary: %+v", sales)
	}

	region := res.Fields[0]
	if region.Distinct != 3 {
		t.Fatalf("expected 3 distinct regions, got %d", region.Distinct)
	}
	if len(region.TopValues) == 0 || region.TopValues[0].Value != "North" || region.TopValues[0].Count != 2 {
		t.Fatalf("unexpected top values: %+v", region.TopValues)
	}
}

func TestAnalyze_Performers(t *testing.T) {
	res := Analyze(uuid.New(), salesRecords(), DefaultOptions())

	wantTop := []string{"North", "South", "East"}
	if len(res.TopPerformers) != 3 {
		t.Fatalf("expected 3 performers, got %+v", res.TopPerformers)
	}
	for i, c := range wantTop {
		if res.TopPerformers[i].Category != c {
			t.Errorf("top %d: expected %s, got %s", i, c, res.TopPerformers[i].Category)
		}
		if res.TopPerformers[i].Metric != "sales" {
			t.Errorf("expected metric sales, got %s", res.TopPerformers[i].Metric)
		}
	}
	if res.TopPerformers[0].Value != 130 {
		t.Fatalf("expected North total 130, got %v", res.TopPerformers[0].Value)
	}
	if res.BottomPerformers[0].Category != "East" || res.BottomPerformers[2].Category != "North" {
		t.Fatalf("unexpected bottom order: %+v", res.BottomPerformers)
	}
}

func TestAnalyze_TopNCapsLists(t *testing.T) {
	var recs []models.Record
	for _, r := range []string{"a", "b", "c", "d", "e", "f", "g"} {
		recs = append(recs, models.NewRecord("name", r, "score", float64(len(recs)+1)))
	}
	res := Analyze(uuid.New(), recs, DefaultOptions())

	if len(res.TopPerformers) != 5 || len(res.BottomPerformers) != 5 {
		t.Fatalf("expected 5/5, got %d/%d", len(res.TopPerformers), len(res.BottomPerformers))
	}
	if res.TopPerformers[0].Category != "g" || res.BottomPerformers[0].Category != "a" {
		t.Fatalf("unexpected ordering: top=%+v bottom=%+v", res.TopPerformers[0], res.BottomPerformers[0])
	}
}

func TestAnalyze_Hypotheses(t *testing.T) {
	res := Analyze(uuid.New(), salesRecords(), DefaultOptions())

	if len(res.Hypotheses) != 2 {
		t.Fatalf("expected 2 hypotheses, got %v", res.Hypotheses)
	}
	if !strings.Contains(res.Hypotheses[0], "North accounts for 65%") {
		t.Errorf("unexpected concentration hypothesis: %s", res.Hypotheses[0])
	}
	if !strings.Contains(res.Hypotheses[1], "sales and units") || !strings.Contains(res.Hypotheses[1], "r=1.00") {
		t.Errorf("unexpected correlation hypothesis: %s", res.Hypotheses[1])
	}
}

func TestAnalyze_KPIs(t *testing.T) {
	res := Analyze(uuid.New(), salesRecords(), DefaultOptions())

	want := map[string]float64{
		"Rows":          4,
		"Total sales":   200,
		"Average sales": 50,
		"Total units":   20,
		"Average units": 5,
	}
	if len(res.KPIs) != len(want) {
		t.Fatalf("expected %d KPIs, got %+v", len(want), res.KPIs)
	}
	for _, k := range res.KPIs {
		if want[k.Label] != k.Value {
			t.Errorf("%s: expected %v, got %v", k.Label, want[k.Label], k.Value)
		}
	}
}

func TestAnalyze_StringNumbersAndMissing(t *testing.T) {
	recs := []models.Record{
		models.NewRecord("item", "pen", "price", "$1,200"),
		models.NewRecord("item", "cup", "price", ""),
		models.NewRecord("item", "pad"),
	}
	res := Analyze(uuid.New(), recs, DefaultOptions())

	price := res.Fields[1]
	if price.Kind != KindNumeric || price.Sum != 1200 {
		t.Fatalf("unexpected price summary: %+v", price)
	}
	if price.Missing != 2 || price.NonNull != 1 {
		t.Fatalf("expected 1 present and 2 missing, got %+v", price)
	}
}

func TestAnalyze_Empty(t *testing.T) {
	res := Analyze(uuid.New(), nil, DefaultOptions())

	if res.RowCount != 0 || len(res.Fields) != 0 {
		t.Fatalf("unexpected result: %+v", res)
	}
	if res.TopPerformers == nil || res.Hypotheses == nil {
		t.Fatal("expected empty, non-nil slices")
	}
}
