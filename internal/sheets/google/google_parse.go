package google

import (
	"fmt"
	"strings"

	gsheet "google.golang.org/api/sheets/v4"
)

// findRowByID returns the zero-based row index whose first cell equals id,
// or -1.
func findRowByID(values [][]any, id string) int {
	id = strings.TrimSpace(id)
	if id == "" {
		return -1
	}
	for i, row := range values {
		if len(row) == 0 {
			continue
		}
		if strings.TrimSpace(fmt.Sprint(row[0])) == id {
			return i
		}
	}
	return -1
}

func sheetIDByTitle(sheets []*gsheet.Sheet, title string) (int64, bool) {
	for _, s := range sheets {
		if s == nil || s.Properties == nil {
			continue
		}
		if strings.EqualFold(strings.TrimSpace(s.Properties.Title), strings.TrimSpace(title)) {
			return s.Properties.SheetId, true
		}
	}
	return 0, false
}
