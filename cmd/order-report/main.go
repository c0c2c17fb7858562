package main

import (
	"context"
	"flag"
	"io"
	"os"
	"os/signal"
	"time"

	"github.com/go-faster/errors"
	"go.uber.org/zap"

	"github.com/xenking/order-pipeline/internal/report"
	"github.com/xenking/order-pipeline/internal/storage/postgres"
)

func main() {
	var (
		databaseURL string
		format      string
		sortKey     string
		from, to    string
		title       string
		out         string
	)

	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&format, "format", "text", "report format: text, csv, html or json")
	flag.StringVar(&sortKey, "sort", "", "sort by name, date or amount")
	flag.StringVar(&from, "from", "", "first day to include, YYYY-MM-DD")
	flag.StringVar(&to, "to", "", "first day to exclude, YYYY-MM-DD")
	flag.StringVar(&title, "title", "Orders", "report title")
	flag.StringVar(&out, "out", "", "output file (default stdout)")
	flag.Parse()

	lg, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer func() { _ = lg.Sync() }()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		lg.Fatal("database URL is required: set --database-url or DATABASE_URL")
	}

	req, err := buildRequest(title, format, sortKey, from, to)
	if err != nil {
		lg.Fatal("Invalid arguments", zap.Error(err))
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, databaseURL, req, out); err != nil {
		if errors.Is(err, report.ErrNoData) {
			lg.Warn("No orders in period")
			return
		}
		lg.Fatal("Report failed", zap.Error(err))
	}
}

func buildRequest(title, format, sortKey, from, to string) (report.Request, error) {
	req := report.Request{Title: title}

	f, err := report.ParseFormat(format)
	if err != nil {
		return req, err
	}
	req.Format = f

	switch s := report.SortKey(sortKey); s {
	case report.SortNone, report.SortName, report.SortDate, report.SortAmount:
		req.Sort = s
	default:
		return req, errors.Errorf("unknown sort key %q", sortKey)
	}

	if req.From, err = parseDay(from); err != nil {
		return req, errors.Wrap(err, "from")
	}
	if req.To, err = parseDay(to); err != nil {
		return req, errors.Wrap(err, "to")
	}
	return req, nil
}

func parseDay(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return time.Parse("2006-01-02", s)
}

func run(ctx context.Context, databaseURL string, req report.Request, out string) error {
	pool, err := postgres.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	var w io.Writer = os.Stdout
	if out != "" {
		f, err := os.Create(out)
		if err != nil {
			return errors.Wrap(err, "create output")
		}
		defer func() { _ = f.Close() }()
		w = f
	}

	return report.Generate(ctx, w, postgres.NewOrderRepository(pool), req)
}
