package database

import "testing"

func TestMigrationVersion(t *testing.T) {
	tests := []struct {
		name string
		want int
	}{
		{"001_dataset_analyses.sql", 1},
		{"012_add_index.sql", 12},
		{"embed.go", 0},
		{"readme.sql", 0},
		{"1.sql", 0},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := migrationVersion(tc.name); got != tc.want {
				t.Errorf("migrationVersion(%q) = %d, want %d", tc.name, got, tc.want)
			}
		})
	}
}
