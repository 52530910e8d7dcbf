package util

import "testing"

func TestFormatTimestamp(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{
			name: "RFC3339 keeps its own clock",
			raw:  "2024-03-05T14:07:00-03:00",
			want: "05/03/2024 14:07",
		},
		{
			name: "ISO without zone",
			raw:  "2024-03-05T08:30:59",
			want: "05/03/2024 08:30",
		},
		{
			name: "space separated",
			raw:  "2024-12-31 23:59:00",
			want: "31/12/2024 23:59",
		},
		{
			name: "surrounding spaces",
			raw:  " 2024-01-02 03:04:05 ",
			want: "02/01/2024 03:04",
		},
		{
			name: "already formatted",
			raw:  "05/03/2024 14:07",
			want: "05/03/2024 14:07",
		},
		{
			name: "free text",
			raw:  "ontem à tarde",
			want: "ontem à tarde",
		},
		{
			name: "empty",
			raw:  "",
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FormatTimestamp(tt.raw); got != tt.want {
				t.Errorf("FormatTimestamp(%q) = %q, want %q", tt.raw, got, tt.want)
			}
		})
	}
}
