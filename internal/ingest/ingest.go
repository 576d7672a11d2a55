// Package ingest imports coupon definitions from gzip-compressed text files.
//
// Each line holds "code;discount;min_order;expiry;name". Blank lines and
// lines starting with '#' are ignored. An empty min_order means no minimum.
// The expiry is RFC 3339 or a date, in which case the coupon stays valid
// until the end of that day (UTC).
package ingest

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/go-faster/errors"
	"github.com/google/uuid"
	pgzip "github.com/klauspost/pgzip"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/xenking/flowershop/internal/catalog"
	"github.com/xenking/flowershop/internal/domain/coupon"
)

const (
	fieldCount = 5
	bloomFPR   = 0.001
	// maxLineLen bounds a single line; longer lines fail the file.
	maxLineLen = 64 * 1024
)

// LineError describes a line that could not be parsed.
type LineError struct {
	File string
	Line int
	Err  error
}

func (e *LineError) Error() string {
	return fmt.Sprintf("%s:%d: %v", e.File, e.Line, e.Err)
}

func (e *LineError) Unwrap() error { return e.Err }

// ParseLine parses one coupon definition. The code is upper-cased and the
// coupon is active.
func ParseLine(line string) (coupon.Coupon, error) {
	fields := strings.Split(line, ";")
	if len(fields) != fieldCount {
		return coupon.Coupon{}, errors.Errorf("expected %d fields, got %d", fieldCount, len(fields))
	}
	for i := range fields {
		fields[i] = strings.TrimSpace(fields[i])
	}

	code := strings.ToUpper(fields[0])
	if code == "" {
		return coupon.Coupon{}, errors.New("empty code")
	}

	discount, err := decimal.NewFromString(fields[1])
	if err != nil {
		return coupon.Coupon{}, errors.Wrap(err, "discount")
	}
	if discount.IsNegative() || discount.GreaterThan(decimal.NewFromInt(100)) {
		return coupon.Coupon{}, errors.Errorf("discount %s out of range 0..100", discount)
	}

	var minOrder decimal.NullDecimal
	if fields[2] != "" {
		v, err := decimal.NewFromString(fields[2])
		if err != nil {
			return coupon.Coupon{}, errors.Wrap(err, "min order")
		}
		if v.IsNegative() {
			return coupon.Coupon{}, errors.New("min order must not be negative")
		}
		minOrder = decimal.NewNullDecimal(v)
	}

	expires, err := parseExpiry(fields[3])
	if err != nil {
		return coupon.Coupon{}, err
	}

	name := fields[4]
	if name == "" {
		name = code
	}

	return coupon.Coupon{
		Code:           code,
		Name:           name,
		Discount:       discount,
		Active:         true,
		ExpiresAt:      expires,
		MinOrderAmount: minOrder,
	}, nil
}

func parseExpiry(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC(), nil
	}
	d, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return time.Time{}, errors.Errorf("expiry %q is neither RFC 3339 nor a date", s)
	}
	return d.Add(24*time.Hour - time.Second), nil
}

// ReadFile streams path through a parallel gzip reader and calls fn for
// every parsed coupon. Malformed lines are passed to bad and skipped.
func ReadFile(ctx context.Context, path string, fn func(coupon.Coupon), bad func(*LineError)) error {
	f, err := os.Open(path)
	if err != nil {
		return errors.Wrapf(err, "open %s", path)
	}
	defer func() { _ = f.Close() }()

	gz, err := pgzip.NewReader(f)
	if err != nil {
		return errors.Wrapf(err, "create gzip reader for %s", path)
	}
	defer func() { _ = gz.Close() }()

	scanner := bufio.NewScanner(gz)
	scanner.Buffer(make([]byte, 0, 4096), maxLineLen)
	lineNo := 0
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		lineNo++

		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		c, err := ParseLine(line)
		if err != nil {
			bad(&LineError{File: path, Line: lineNo, Err: err})
			continue
		}
		fn(c)
	}
	if err := scanner.Err(); err != nil {
		return errors.Wrapf(err, "scan %s", path)
	}
	return nil
}

// Report summarises an import run.
type Report struct {
	Parsed    int
	Invalid   int
	Inserted  int
	Existing  int
	Duplicate int
}

// Importer loads coupon files into the catalog.
type Importer struct {
	coupons coupon.Repository
	writer  catalog.Writer
	lg      *zap.Logger
}

// NewImporter creates an Importer that checks existing codes in coupons and
// inserts new ones through writer.
func NewImporter(coupons coupon.Repository, writer catalog.Writer, lg *zap.Logger) *Importer {
	return &Importer{coupons: coupons, writer: writer, lg: lg}
}

// Import parses files concurrently and inserts every coupon whose code is
// not stored yet. A code repeated across files is taken from the first file
// listing it.
func (im *Importer) Import(ctx context.Context, files []string) (Report, error) {
	var rep Report

	existing, err := im.coupons.List(ctx)
	if err != nil {
		return rep, errors.Wrap(err, "list existing coupons")
	}
	filter := bloom.NewWithEstimates(uint(max(len(existing), 1)), bloomFPR)
	for _, c := range existing {
		filter.AddString(strings.ToUpper(c.Code))
	}
	im.lg.Info("Existing coupons indexed", zap.Int("count", len(existing)))

	parsed := make([][]coupon.Coupon, len(files))
	var (
		mu      sync.Mutex
		invalid int
	)
	g, gctx := errgroup.WithContext(ctx)
	for i, path := range files {
		g.Go(func() error {
			var out []coupon.Coupon
			err := ReadFile(gctx, path,
				func(c coupon.Coupon) { out = append(out, c) },
				func(le *LineError) {
					mu.Lock()
					invalid++
					mu.Unlock()
					im.lg.Warn("Skipping malformed line", zap.Error(le))
				},
			)
			if err != nil {
				return err
			}
			parsed[i] = out
			im.lg.Info("File parsed", zap.String("file", path), zap.Int("coupons", len(out)))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return rep, errors.Wrap(err, "parse files")
	}
	rep.Invalid = invalid

	seen := make(map[string]struct{})
	for _, batch := range parsed {
		for _, c := range batch {
			rep.Parsed++
			if _, dup := seen[c.Code]; dup {
				rep.Duplicate++
				continue
			}
			seen[c.Code] = struct{}{}

			stored, err := im.exists(ctx, filter, c.Code)
			if err != nil {
				return rep, err
			}
			if stored {
				rep.Existing++
				continue
			}

			c.ID = uuid.NewString()
			inserted, err := im.writer.EnsureCoupon(ctx, c)
			if err != nil {
				return rep, errors.Wrapf(err, "insert coupon %s", c.Code)
			}
			if inserted {
				rep.Inserted++
			} else {
				rep.Existing++
			}
		}
	}
	return rep, nil
}

// exists consults the bloom filter first and confirms positives exactly.
func (im *Importer) exists(ctx context.Context, filter *bloom.BloomFilter, code string) (bool, error) {
	if !filter.TestString(code) {
		return false, nil
	}
	_, err := im.coupons.FindByCode(ctx, code)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, coupon.ErrNotFound):
		return false, nil
	default:
		return false, errors.Wrapf(err, "find coupon %s", code)
	}
}
