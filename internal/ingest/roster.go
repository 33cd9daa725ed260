package ingest

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// ErrNoTeamColumn means the roster header has no "team" column
var ErrNoTeamColumn = errors.New("missing 'team' header in roster")

const teamHeader = "team"

// ParseRoster extracts team names from a roster document, choosing the CSV or
// HTML parser from the document's type.
func ParseRoster(doc Document) ([]string, error) {
	if doc.IsHTML() {
		return ParseRosterHTML(doc.Body)
	}
	return ParseRosterCSV(doc.Body)
}

// ParseRosterCSV reads a delimited roster whose first row is a header. Column
// order does not matter; rows without a team value are skipped.
func ParseRosterCSV(body []byte) ([]string, error) {
	body = bytes.TrimPrefix(body, []byte("\xef\xbb\xbf"))

	r := csv.NewReader(bytes.NewReader(body))
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true

	header, err := r.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("empty roster: %w", ErrNoTeamColumn)
	}
	if err != nil {
		return nil, fmt.Errorf("reading roster header: %w", err)
	}

	col := teamColumn(header)
	if col < 0 {
		return nil, ErrNoTeamColumn
	}

	var teams []string
	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading roster row: %w", err)
		}
		if col >= len(record) {
			continue
		}
		if name := strings.TrimSpace(record[col]); name != "" {
			teams = append(teams, name)
		}
	}
	return teams, nil
}

// ParseRosterHTML reads the first table in an HTML page that has a "team"
// header cell.
func ParseRosterHTML(body []byte) ([]string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	var (
		teams []string
		found bool
	)
	doc.Find("table").EachWithBreak(func(_ int, table *goquery.Selection) bool {
		rows := table.Find("tr")
		if rows.Length() == 0 {
			return true
		}

		header := cellTexts(rows.First())
		col := teamColumn(header)
		if col < 0 {
			return true
		}

		found = true
		rows.Slice(1, goquery.ToEnd).Each(func(_ int, row *goquery.Selection) {
			cells := cellTexts(row)
			if col >= len(cells) {
				return
			}
			if name := cells[col]; name != "" {
				teams = append(teams, name)
			}
		})
		return false
	})

	if !found {
		return nil, ErrNoTeamColumn
	}
	return teams, nil
}

func cellTexts(row *goquery.Selection) []string {
	var out []string
	row.Find("th, td").Each(func(_ int, cell *goquery.Selection) {
		out = append(out, strings.TrimSpace(cell.Text()))
	})
	return out
}

func teamColumn(header []string) int {
	for i, h := range header {
		if strings.ToLower(strings.TrimSpace(h)) == teamHeader {
			return i
		}
	}
	return -1
}
