// Package report renders placed orders as text, CSV, HTML or JSON.
//
// Amounts are rounded to two fraction digits only here, at presentation time.
package report

import (
	"context"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// Format selects the output encoding.
type Format string

const (
	FormatText Format = "text"
	FormatCSV  Format = "csv"
	FormatHTML Format = "html"
	FormatJSON Format = "json"
)

// SortKey selects the row ordering.
type SortKey string

const (
	SortNone   SortKey = ""
	SortName   SortKey = "name"
	SortDate   SortKey = "date"
	SortAmount SortKey = "amount"
)

const dateLayout = "2006-01-02"

var (
	// ErrUnknownFormat is returned for a format outside text, csv, html and json.
	ErrUnknownFormat = errors.New("unknown report format")
	// ErrNoData is returned when there are no rows to render.
	ErrNoData = errors.New("no data found")
)

// Row is a single placed order as seen by reports.
type Row struct {
	ID     string
	Name   string
	Date   time.Time
	Amount decimal.Decimal
	Status string
}

// Source lists placed orders created in [from, to). A zero bound is open.
type Source interface {
	ListOrders(ctx context.Context, from, to time.Time) ([]Row, error)
}

// Request describes a report.
type Request struct {
	Title  string
	Format Format
	Sort   SortKey
	From   time.Time
	To     time.Time
}

// ParseFormat parses a format name, ignoring case.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(s)); f {
	case FormatText, FormatCSV, FormatHTML, FormatJSON:
		return f, nil
	default:
		return "", errors.Wrapf(ErrUnknownFormat, "%q", s)
	}
}

// ContentType returns the MIME type for f.
func (f Format) ContentType() string {
	switch f {
	case FormatCSV:
		return "text/csv; charset=utf-8"
	case FormatHTML:
		return "text/html; charset=utf-8"
	case FormatJSON:
		return "application/json"
	default:
		return "text/plain; charset=utf-8"
	}
}

// Generate loads rows from src and renders them to w.
func Generate(ctx context.Context, w io.Writer, src Source, req Request) error {
	rows, err := src.ListOrders(ctx, req.From, req.To)
	if err != nil {
		return errors.Wrap(err, "list orders")
	}
	return Render(w, req, rows)
}

// Render sorts rows as requested and writes them in the requested format.
// The input slice is not modified.
func Render(w io.Writer, req Request, rows []Row) error {
	if len(rows) == 0 {
		return ErrNoData
	}

	sorted := make([]Row, len(rows))
	copy(sorted, rows)
	sortRows(sorted, req.Sort)

	if req.Title == "" {
		req.Title = "Orders"
	}

	switch req.Format {
	case FormatText:
		return renderText(w, req, sorted)
	case FormatCSV:
		return renderCSV(w, sorted)
	case FormatHTML:
		return renderHTML(w, req, sorted)
	case FormatJSON:
		return renderJSON(w, req, sorted)
	default:
		return errors.Wrapf(ErrUnknownFormat, "%q", req.Format)
	}
}

func sortRows(rows []Row, key SortKey) {
	var less func(a, b Row) bool
	switch key {
	case SortName:
		less = func(a, b Row) bool { return a.Name < b.Name }
	case SortDate:
		less = func(a, b Row) bool { return a.Date.Before(b.Date) }
	case SortAmount:
		less = func(a, b Row) bool { return a.Amount.LessThan(b.Amount) }
	default:
		return
	}
	sort.SliceStable(rows, func(i, j int) bool { return less(rows[i], rows[j]) })
}

func total(rows []Row) decimal.Decimal {
	sum := decimal.Zero
	for _, r := range rows {
		sum = sum.Add(r.Amount)
	}
	return sum
}

func money(v decimal.Decimal) string {
	return "$" + v.StringFixed(2)
}

func period(req Request) string {
	from, to := "beginning", "now"
	if !req.From.IsZero() {
		from = req.From.Format(dateLayout)
	}
	if !req.To.IsZero() {
		to = req.To.Format(dateLayout)
	}
	return from + " to " + to
}
