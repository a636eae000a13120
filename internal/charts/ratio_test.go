package charts

import "testing"

func TestTryEvalRatio(t *testing.T) {
	tests := []struct {
		input  string
		want   float64
		wantOK bool
	}{
		{"4/5", 0.8, true},
		{" 10 / 4 ", 2.5, true},
		{"-3/2", -1.5, true},
		{"1.5/0.5", 3, true},
		{"4/0", 0, false},
		{"4", 0, false},
		{"4/5/6", 0, false},
		{"x()/2", 0, false},
		{"2*3", 0, false},
		{"1e3/2", 0, false},
		{"", 0, false},
	}

	for _, tc := range tests {
		t.Run(tc.input, func(t *testing.T) {
			got, ok := TryEvalRatio(tc.input)
			if ok != tc.wantOK {
				t.Fatalf("expected ok=%v, got %v", tc.wantOK, ok)
			}
			if ok && got != tc.want {
				t.Errorf("expected %v, got %v", tc.want, got)
			}
		})
	}
}

func TestRewriteRatios_OnlyValueField(t *testing.T) {
	in := `{"ratio": 1/2, "value": 1/2}`
	want := `{"ratio": 1/2, "value": 0.5}`
	if got := rewriteRatios(in); got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
}
