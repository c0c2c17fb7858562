package handler

import (
	"bytes"
	"net/http"
	"time"

	"github.com/go-faster/errors"

	"github.com/xenking/order-pipeline/internal/report"
)

const queryDate = "2006-01-02"

// OrderReport handles GET /api/reports/orders?format=&sort=&from=&to=.
// Dates are YYYY-MM-DD; to is exclusive.
func (h *Handler) OrderReport(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	req := report.Request{Title: "Orders", Format: report.FormatJSON}
	if v := q.Get("format"); v != "" {
		f, err := report.ParseFormat(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		req.Format = f
	}
	switch s := report.SortKey(q.Get("sort")); s {
	case report.SortNone, report.SortName, report.SortDate, report.SortAmount:
		req.Sort = s
	default:
		writeError(w, http.StatusBadRequest, "unknown sort key "+string(s))
		return
	}
	for _, bound := range []struct {
		name string
		dst  *time.Time
	}{{"from", &req.From}, {"to", &req.To}} {
		v := q.Get(bound.name)
		if v == "" {
			continue
		}
		t, err := time.Parse(queryDate, v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid "+bound.name+" date "+v)
			return
		}
		*bound.dst = t
	}

	var buf bytes.Buffer
	if err := report.Generate(r.Context(), &buf, h.reports, req); err != nil {
		if errors.Is(err, report.ErrNoData) {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		internalError(w, r, "Generate report", err)
		return
	}

	w.Header().Set("Content-Type", req.Format.ContentType())
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}
