package submission

import (
	"bytes"
	"strings"
)

// EncodeCSV renders the header row and one line per row. Every data cell is quoted.
func EncodeCSV(rows []Row) []byte {
	var buf bytes.Buffer
	buf.WriteString(strings.Join(Columns, ","))
	for _, row := range rows {
		buf.WriteByte('\n')
		writeCSVLine(&buf, row.Values())
	}
	return buf.Bytes()
}

// writeCSVLine writes one quoted line without a trailing newline.
func writeCSVLine(buf *bytes.Buffer, cells []string) {
	for i, cell := range cells {
		if i > 0 {
			buf.WriteByte(',')
		}
		buf.WriteByte('"')
		buf.WriteString(strings.ReplaceAll(cell, `"`, `""`))
		buf.WriteByte('"')
	}
}
