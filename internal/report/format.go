package report

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"html/template"
	"io"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
)

func renderText(w io.Writer, req Request, rows []Row) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "=== %s Report ===\n", req.Title)
	fmt.Fprintf(bw, "Period: %s\n\n", period(req))
	for _, r := range rows {
		fmt.Fprintf(bw, "%s | %s | %s | %s | %s\n",
			r.ID, r.Name, r.Date.Format(dateLayout), money(r.Amount), r.Status)
	}
	fmt.Fprintf(bw, "\nTotal: %s\n", money(total(rows)))
	return bw.Flush()
}

func renderCSV(w io.Writer, rows []Row) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"ID", "Name", "Date", "Amount", "Status"}); err != nil {
		return errors.Wrap(err, "write header")
	}
	for _, r := range rows {
		rec := []string{r.ID, r.Name, r.Date.Format(dateLayout), r.Amount.StringFixed(2), r.Status}
		if err := cw.Write(rec); err != nil {
			return errors.Wrapf(err, "write row %s", r.ID)
		}
	}
	if err := cw.Write([]string{"TOTAL", "", "", total(rows).StringFixed(2), ""}); err != nil {
		return errors.Wrap(err, "write footer")
	}
	cw.Flush()
	return cw.Error()
}

var htmlReport = template.Must(template.New("report").Funcs(template.FuncMap{
	"date": func(r Row) string { return r.Date.Format(dateLayout) },
}).Parse(`<html><head><title>{{.Title}} Report</title>
<style>table { border-collapse: collapse; } td, th { border: 1px solid black; padding: 5px; }</style>
</head><body>
<h1>{{.Title}} Report</h1>
<p>Period: {{.Period}}</p>
<table><tr><th>ID</th><th>Name</th><th>Date</th><th>Amount</th><th>Status</th></tr>
{{- range .Rows}}
<tr><td>{{.Row.ID}}</td><td>{{.Row.Name}}</td><td>{{date .Row}}</td><td>{{.Amount}}</td><td>{{.Row.Status}}</td></tr>
{{- end}}
</table>
<p><strong>Total: {{.Total}}</strong></p>
</body></html>
`))

type htmlRow struct {
	Row    Row
	Amount string
}

func renderHTML(w io.Writer, req Request, rows []Row) error {
	data := struct {
		Title  string
		Period string
		Rows   []htmlRow
		Total  string
	}{
		Title:  req.Title,
		Period: period(req),
		Rows:   make([]htmlRow, len(rows)),
		Total:  money(total(rows)),
	}
	for i, r := range rows {
		data.Rows[i] = htmlRow{Row: r, Amount: money(r.Amount)}
	}
	if err := htmlReport.Execute(w, data); err != nil {
		return errors.Wrap(err, "execute template")
	}
	return nil
}

func renderJSON(w io.Writer, req Request, rows []Row) error {
	var e jx.Encoder
	e.ObjStart()
	e.FieldStart("report")
	e.Str(req.Title)
	e.FieldStart("data")
	e.ArrStart()
	for _, r := range rows {
		e.ObjStart()
		e.FieldStart("id")
		e.Str(r.ID)
		e.FieldStart("name")
		e.Str(r.Name)
		e.FieldStart("date")
		e.Str(r.Date.Format(dateLayout))
		e.FieldStart("amount")
		e.Raw([]byte(r.Amount.StringFixed(2)))
		e.FieldStart("status")
		e.Str(r.Status)
		e.ObjEnd()
	}
	e.ArrEnd()
	e.FieldStart("total")
	e.Raw([]byte(total(rows).StringFixed(2)))
	e.ObjEnd()

	if _, err := w.Write(e.Bytes()); err != nil {
		return errors.Wrap(err, "write json")
	}
	return nil
}
