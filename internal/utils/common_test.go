package utils

import "testing"

func TestTruncateOutput(t *testing.T) {
	type args struct {
		output string
		max    int
	}
	tests := []struct {
		name string
		args args
		want string
	}{
		{
			name: "shorter than limit",
			args: args{
				output: "hello",
				max:    10,
			},
			want: "hello",
		},
		{
			name: "exactly at limit",
			args: args{
				output: "hello",
				max:    5,
			},
			want: "hello",
		},
		{
			name: "longer than limit",
			args: args{
				output: "hello world",
				max:    5,
			},
			want: "hello... (truncated)",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := TruncateOutput(tt.args.output, tt.args.max); got != tt.want {
				t.Errorf("TruncateOutput() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSummarizeLines(t *testing.T) {
	type args struct {
		lines []string
		max   int
	}
	tests := []struct {
		name string
		args args
		want string
	}{
		{
			name: "under limit",
			args: args{
				lines: []string{"a", "b"},
				max:   3,
			},
			want: "a, b",
		},
		{
			name: "over limit",
			args: args{
				lines: []string{"a", "b", "c", "d"},
				max:   2,
			},
			want: "a, b",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SummarizeLines(tt.args.lines, tt.args.max); got != tt.want {
				t.Errorf("SummarizeLines() = %v, want %v", got, tt.want)
			}
		})
	}
}
