package utils

import "strings"

// TruncateOutput bounds collaborator output (sandbox stdout, webhook bodies)
// before it lands in execution logs.
func TruncateOutput(output string, max int) string {
	if len(output) <= max {
		return output
	}
	return output[:max] + "... (truncated)"
}

func SummarizeLines(lines []string, max int) string {
	if len(lines) > max {
		lines = lines[:max]
	}
	return strings.Join(lines, ", ")
}
