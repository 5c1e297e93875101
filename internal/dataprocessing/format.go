package dataprocessing

import (
	"math"
	"strconv"
)

// formatStat renders a statistic cell. The shortest exact decimal form is
// used so 70 stays "70" and 12.5 stays "12.5"; NaN renders as an empty cell
// (undefined statistic, e.g. std of a single-row group).
func formatStat(v float64) string {
	if math.IsNaN(v) {
		return ""
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// formatCount renders a group-size cell.
func formatCount(n int) string {
	return strconv.Itoa(n)
}
