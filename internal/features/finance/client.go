package finance

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"google.golang.org/api/option"
	sheets "google.golang.org/api/sheets/v4"
)

// sheetIDPattern pulls the spreadsheet ID out of a share link.
var sheetIDPattern = regexp.MustCompile(`/spreadsheets/d/([a-zA-Z0-9-_]+)`)

// SpreadsheetID extracts the document ID from a Google Sheets URL.
// Returns an empty string when the URL is not a Sheets link.
func SpreadsheetID(url string) string {
	m := sheetIDPattern.FindStringSubmatch(url)
	if m == nil {
		return ""
	}
	return m[1]
}

// Summary aggregates the expense rows of a connected sheet.
type Summary struct {
	Rows       int
	Total      float64
	ByCategory map[string]float64
}

// Client reads expense spreadsheets through the Sheets API.
type Client struct {
	apiKey string
}

func NewClient(apiKey string) *Client {
	return &Client{apiKey: apiKey}
}

// Entry is one expense row of a connected sheet.
type Entry struct {
	Date     string
	Category string
	Amount   float64
}

// Entries reads the first sheet and returns rows shaped as
// date | category | amount. Header rows and rows without a parseable
// amount are skipped.
func (c *Client) Entries(ctx context.Context, spreadsheetID string) ([]Entry, error) {
	svc, err := sheets.NewService(ctx, option.WithAPIKey(c.apiKey))
	if err != nil {
		return nil, fmt.Errorf("creating sheets service: %w", err)
	}

	resp, err := svc.Spreadsheets.Values.Get(spreadsheetID, "A:C").Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("reading spreadsheet %s: %w", spreadsheetID, err)
	}

	var entries []Entry
	for _, row := range resp.Values {
		if len(row) < 3 {
			continue
		}
		amount, ok := parseAmount(row[2])
		if !ok {
			continue
		}
		category := strings.TrimSpace(fmt.Sprint(row[1]))
		if category == "" {
			category = "other"
		}
		entries = append(entries, Entry{
			Date:     strings.TrimSpace(fmt.Sprint(row[0])),
			Category: category,
			Amount:   amount,
		})
	}
	return entries, nil
}

// Summarize totals the sheet's expense rows per category.
func (c *Client) Summarize(ctx context.Context, spreadsheetID string) (*Summary, error) {
	entries, err := c.Entries(ctx, spreadsheetID)
	if err != nil {
		return nil, err
	}

	sum := &Summary{ByCategory: make(map[string]float64)}
	for _, e := range entries {
		sum.Rows++
		sum.Total += e.Amount
		sum.ByCategory[e.Category] += e.Amount
	}
	return sum, nil
}

func parseAmount(cell any) (float64, bool) {
	s := strings.TrimSpace(fmt.Sprint(cell))
	s = strings.ReplaceAll(s, ",", ".")
	s = strings.ReplaceAll(s, " ", "")
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}
