package workbook

import "testing"

func TestSanitizeTableName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Sales Data", "sales_data"},
		{"Q1-2025 (Final)", "q1_2025_final"},
		{"  Revenue  ", "revenue"},
		{"Already_Clean", "already_clean"},
		{"a  b   c", "a_b_c"},
		{"__Padded__", "padded"},
		{"Sheet1", "sheet1"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := SanitizeTableName(tt.in); got != tt.want {
				t.Errorf("SanitizeTableName(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestSanitizeTableNameDeterministic(t *testing.T) {
	for _, in := range []string{"Sales Data", "Mixed CASE", "a-b-c"} {
		if SanitizeTableName(in) != SanitizeTableName(in) {
			t.Errorf("SanitizeTableName(%q) not deterministic", in)
		}
	}
}

func TestInferColumnType(t *testing.T) {
	tests := []struct {
		name   string
		values []string
		want   ColumnType
	}{
		{"all numbers", []string{"1", "4,665", "3.14"}, TypeNumber},
		{"numbers with nulls", []string{"1", "-", "N/A", "2"}, TypeNumber},
		{"mixed", []string{"1", "hello"}, TypeText},
		{"dates", []string{"2025-01-05", "01/07/2025"}, TypeDate},
		{"bools", []string{"true", "no", "YES"}, TypeBool},
		{"all nulls", []string{"-", ""}, TypeText},
		{"empty", nil, TypeText},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := InferColumnType(tt.values); got != tt.want {
				t.Errorf("InferColumnType(%v) = %s, want %s", tt.values, got, tt.want)
			}
		})
	}
}
