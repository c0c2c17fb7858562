// Package stockfile reads "name,stock" CSV files used to seed inventory.
// Files may be plain or gzip-compressed.
package stockfile

import (
	"bufio"
	"bytes"
	"context"
	"encoding/csv"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/go-faster/errors"
	pgzip "github.com/klauspost/pgzip"
	"golang.org/x/sync/errgroup"
)

const (
	bloomCapacity = 1_000_000
	bloomFPR      = 0.001
)

// Record is one stock line.
type Record struct {
	Item  string
	Stock int
	Line  int
}

// Duplicate is an item listed more than once. The later listing wins.
// Files and Lines are parallel and in listing order.
type Duplicate struct {
	Item  string
	Files []string
	Lines []int
}

// Result is the merged content of several stock files.
type Result struct {
	Stock      map[string]int
	Duplicates []Duplicate
}

type file struct {
	path    string
	records []Record
}

// Load reads every path concurrently and merges them in argument order.
// Items repeated across or within files are reported in Duplicates.
func Load(ctx context.Context, paths []string) (*Result, error) {
	files := make([]file, len(paths))

	g, ctx := errgroup.WithContext(ctx)
	for i, path := range paths {
		g.Go(func() error {
			records, err := readFile(ctx, path)
			if err != nil {
				return errors.Wrapf(err, "read %s", path)
			}
			files[i] = file{path: path, records: records}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return merge(files), nil
}

// merge applies files in order. The bloom filter screens items so the exact
// origin lookup only runs for probable repeats.
func merge(files []file) *Result {
	type listing struct {
		path string
		line int
	}
	var (
		res    = &Result{Stock: make(map[string]int)}
		seen   = bloom.NewWithEstimates(bloomCapacity, bloomFPR)
		origin = make(map[string]listing)
		dupAt  = make(map[string]int)
	)
	for _, f := range files {
		for _, rec := range f.records {
			if seen.TestOrAddString(rec.Item) {
				if first, ok := origin[rec.Item]; ok {
					if i, ok := dupAt[rec.Item]; ok {
						dup := &res.Duplicates[i]
						dup.Files = append(dup.Files, f.path)
						dup.Lines = append(dup.Lines, rec.Line)
					} else {
						dupAt[rec.Item] = len(res.Duplicates)
						res.Duplicates = append(res.Duplicates, Duplicate{
							Item:  rec.Item,
							Files: []string{first.path, f.path},
							Lines: []int{first.line, rec.Line},
						})
					}
				}
			}
			if _, ok := origin[rec.Item]; !ok {
				origin[rec.Item] = listing{path: f.path, line: rec.Line}
			}
			res.Stock[rec.Item] = rec.Stock
		}
	}
	return res
}

var gzipMagic = []byte{0x1f, 0x8b}

func readFile(ctx context.Context, path string) ([]Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "open")
	}
	defer func() { _ = f.Close() }()

	br := bufio.NewReader(f)
	head, err := br.Peek(len(gzipMagic))
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, errors.Wrap(err, "peek")
	}
	if !bytes.Equal(head, gzipMagic) {
		return Parse(ctx, br)
	}

	gz, err := pgzip.NewReader(br)
	if err != nil {
		return nil, errors.Wrap(err, "create gzip reader")
	}
	defer func() { _ = gz.Close() }()

	return Parse(ctx, gz)
}

// Parse reads "name,stock" records from r. A leading "name,stock" header,
// blank lines and lines starting with # are skipped.
func Parse(ctx context.Context, r io.Reader) ([]Record, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = 2
	cr.Comment = '#'
	cr.TrimLeadingSpace = true

	var records []Record
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		fields, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return records, nil
		}
		if err != nil {
			return nil, errors.Wrap(err, "parse csv")
		}
		line, _ := cr.FieldPos(0)

		item := strings.TrimSpace(fields[0])
		if len(records) == 0 && strings.EqualFold(item, "name") && strings.EqualFold(strings.TrimSpace(fields[1]), "stock") {
			continue
		}
		if item == "" {
			return nil, errors.Errorf("line %d: empty item name", line)
		}
		stock, err := strconv.Atoi(strings.TrimSpace(fields[1]))
		if err != nil {
			return nil, errors.Wrapf(err, "line %d: stock", line)
		}
		if stock < 0 {
			return nil, errors.Errorf("line %d: negative stock %d for %q", line, stock, item)
		}
		records = append(records, Record{Item: item, Stock: stock, Line: line})
	}
}

// Store receives seeded stock levels. Both inventory gateways implement it.
type Store interface {
	SetStock(ctx context.Context, item string, stock int) error
}

// Apply writes stock to store with at most workers concurrent writes.
func Apply(ctx context.Context, store Store, stock map[string]int, workers int) error {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(max(workers, 1))
	for item, n := range stock {
		g.Go(func() error {
			return store.SetStock(ctx, item, n)
		})
	}
	return g.Wait()
}
