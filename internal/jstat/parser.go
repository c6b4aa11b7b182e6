package jstat

import (
	"strconv"
	"strings"
)

// Parse converts one jstat table (a whitespace-aligned header row followed by
// a single data row) into a metric-name -> value map.
//
// jstat output varies across JVM and tool versions, so the parser is
// deliberately tolerant: header and data columns are zipped positionally and
// iteration stops at the shorter of the two, a "-" cell is reported as 0, a
// cell that does not parse as a number skips that single column, and empty
// output yields an empty map rather than an error.
func Parse(raw string) map[string]float64 {
	out := make(map[string]float64)

	var rows [][]string
	for _, line := range strings.Split(raw, "\n") {
		fields := strings.Fields(line)
		if len(fields) > 0 {
			rows = append(rows, fields)
		}
		if len(rows) == 2 {
			break
		}
	}
	if len(rows) < 2 {
		return out
	}

	headers, values := rows[0], rows[1]
	n := len(headers)
	if len(values) < n {
		n = len(values)
	}
	for i := 0; i < n; i++ {
		if values[i] == "-" {
			out[headers[i]] = 0
			continue
		}
		v, err := strconv.ParseFloat(values[i], 64)
		if err != nil {
			continue
		}
		out[headers[i]] = v
	}
	return out
}
