package export

import (
	"strconv"
	"strings"

	"github.com/ppiankov/panicbutton/internal/model"
)

// CSVHeader is the column-name row of the tabular export
var CSVHeader = []string{"title", "type", "dateISO", "time24h", "confidence"}

// BuildCSV renders one quoted row per exportable candidate under an unquoted header.
// Rows are joined with LF and there is no trailing newline.
func BuildCSV(candidates []model.DeadlineCandidate) string {
	lines := []string{strings.Join(CSVHeader, ",")}

	for _, c := range candidates {
		if !Exportable(c) {
			continue
		}
		fields := []string{
			c.Title,
			string(c.Category),
			c.ISODate,
			c.Time24h,
			strconv.Itoa(c.Confidence),
		}
		for i, f := range fields {
			fields[i] = quoteField(f)
		}
		lines = append(lines, strings.Join(fields, ","))
	}

	return strings.Join(lines, "\n")
}

// quoteField wraps a value in double quotes, doubling embedded quotes
func quoteField(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}
