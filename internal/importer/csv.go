package importer

import (
	"bytes"
	"encoding/csv"
	"io"
	"strings"
	"time"

	errors "github.com/frahmantamala/dot-spend/internal"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// ParseCSV reads a delimited statement with a header row. The delimiter is sniffed from the
// header line unless Options.Delimiter is set.
func ParseCSV(r io.Reader, opts Options) (*Parsed, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, unreadable("csv file", err)
	}
	data = bytes.TrimPrefix(data, utf8BOM)

	reader := csv.NewReader(bytes.NewReader(data))
	reader.Comma = opts.Delimiter
	if reader.Comma == 0 {
		reader.Comma = sniffDelimiter(data)
	}
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, unreadable("csv file", err)
	}

	start := 0
	for start < len(records) && blank(records[start]) {
		start++
	}
	if start == len(records) {
		return nil, errors.NewImportParseError("csv file has no header row", errors.ErrCodeImportColumns)
	}

	layouts := opts.dateFormats()
	return table(records[start], records[start+1:], start+1, opts, func(raw string) (time.Time, error) {
		return parseDate(raw, layouts)
	})
}

func sniffDelimiter(data []byte) rune {
	line := string(data)
	if i := strings.IndexAny(line, "\r\n"); i >= 0 {
		line = line[:i]
	}
	best, bestCount := ',', 0
	for _, d := range []rune{',', ';', '\t', '|'} {
		if n := strings.Count(line, string(d)); n > bestCount {
			best, bestCount = d, n
		}
	}
	return best
}
