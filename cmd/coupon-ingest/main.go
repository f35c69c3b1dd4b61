package main

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"log/slog"
	"math/bits"
	"os"
	"os/signal"
	"path/filepath"
	"slices"
	"strings"
	"sync/atomic"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/google/uuid"
	pgzip "github.com/klauspost/pgzip"
	"golang.org/x/sync/errgroup"

	"github.com/xenking/storefront/internal/domain/coupon"
	"github.com/xenking/storefront/internal/storage/postgres"
)

const (
	bloomFPR      = 0.001
	progressEvery = 100_000
	maxLineBytes  = 1 << 20
	maxFiles      = 64
)

type options struct {
	dataDir       string
	pattern       string
	databaseURL   string
	expected      uint
	writers       int
	dryRun        bool
	skipConflicts bool
}

// stats is shared by the writer goroutines.
type stats struct {
	created   atomic.Int64
	updated   atomic.Int64
	invalid   atomic.Int64
	conflicts atomic.Int64
}

func main() {
	var opts options

	flag.StringVar(&opts.dataDir, "data-dir", "data", "directory containing coupon files")
	flag.StringVar(&opts.pattern, "pattern", "*.ndjson.gz", "glob of gzip NDJSON coupon files inside data-dir")
	flag.StringVar(&opts.databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.UintVar(&opts.expected, "expected-codes", 1_000_000, "expected number of codes per file, sizes the bloom filters")
	flag.IntVar(&opts.writers, "writers", 4, "concurrent database writers")
	flag.BoolVar(&opts.dryRun, "dry-run", false, "validate and report without writing")
	flag.BoolVar(&opts.skipConflicts, "skip-conflicts", true, "skip codes defined in more than one file")
	flag.Parse()

	if opts.databaseURL == "" {
		opts.databaseURL = os.Getenv("DATABASE_URL")
	}
	if opts.databaseURL == "" && !opts.dryRun {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, opts); err != nil {
		slog.Error("coupon ingest failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("coupon ingest completed successfully")
}

func run(ctx context.Context, opts options) error {
	files, err := filepath.Glob(filepath.Join(opts.dataDir, opts.pattern))
	if err != nil {
		return errors.Wrap(err, "match coupon files")
	}
	if len(files) == 0 {
		return errors.Errorf("no files match %s in %s", opts.pattern, opts.dataDir)
	}
	if len(files) > maxFiles {
		return errors.Errorf("too many files: %d (max %d)", len(files), maxFiles)
	}
	slices.Sort(files)

	// Pass 1: one bloom filter of codes per file.
	slog.Info("pass 1: building bloom filters", slog.Int("files", len(files)))

	filters, err := buildBloomFilters(ctx, files, opts.expected)
	if err != nil {
		return errors.Wrap(err, "build bloom filters")
	}

	// Pass 2: exact set of codes present in two or more files.
	slog.Info("pass 2: finding cross-file duplicates")

	dups, err := findDuplicates(ctx, files, filters)
	if err != nil {
		return errors.Wrap(err, "find duplicates")
	}

	slog.Info("cross-file duplicates found", slog.Int("count", len(dups)))

	var store coupon.Store
	if !opts.dryRun {
		slog.Info("connecting to database")

		pool, err := postgres.NewPool(ctx, opts.databaseURL)
		if err != nil {
			return errors.Wrap(err, "connect to database")
		}
		defer pool.Close()

		store = postgres.NewCouponRepository(pool)
	}

	// Pass 3: decode, validate and upsert.
	slog.Info("pass 3: importing coupons", slog.Bool("dry_run", opts.dryRun))

	var st stats
	if err := importCoupons(ctx, files, dups, store, opts, &st); err != nil {
		return errors.Wrap(err, "import coupons")
	}

	slog.Info("import summary",
		slog.Int64("created", st.created.Load()),
		slog.Int64("updated", st.updated.Load()),
		slog.Int64("invalid", st.invalid.Load()),
		slog.Int64("conflicts", st.conflicts.Load()),
	)

	return nil
}

// buildBloomFilters creates one bloom filter per file, concurrently.
func buildBloomFilters(ctx context.Context, files []string, expected uint) ([]*bloom.BloomFilter, error) {
	filters := make([]*bloom.BloomFilter, len(files))

	g, ctx := errgroup.WithContext(ctx)
	for i, f := range files {
		g.Go(func() error {
			filter := bloom.NewWithEstimates(expected, bloomFPR)
			var count uint64

			if err := streamGzFile(ctx, f, func(line []byte) error {
				code, err := codeOf(line)
				if err != nil || code == "" {
					return nil
				}
				filter.AddString(code)
				count++
				if count%progressEvery == 0 {
					slog.Info("pass 1 progress", slog.String("file", filepath.Base(f)), slog.Uint64("codes", count))
				}
				return nil
			}); err != nil {
				return errors.Wrapf(err, "build filter for %s", f)
			}

			slog.Info("pass 1 complete", slog.String("file", filepath.Base(f)), slog.Uint64("total_codes", count))

			filters[i] = filter
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return filters, nil
}

// findDuplicates re-streams each file and keeps the codes that hit another
// file's bloom filter. Merging the per-file masks discards false positives:
// a code is a duplicate only when two files actually reported it.
func findDuplicates(ctx context.Context, files []string, filters []*bloom.BloomFilter) (map[string]struct{}, error) {
	results := make([]map[string]uint64, len(files))

	g, ctx := errgroup.WithContext(ctx)
	for i, f := range files {
		g.Go(func() error {
			candidates := make(map[string]uint64)
			fileBit := uint64(1) << uint(i)

			if err := streamGzFile(ctx, f, func(line []byte) error {
				code, err := codeOf(line)
				if err != nil || code == "" {
					return nil
				}
				for j, other := range filters {
					if j != i && other.TestString(code) {
						candidates[code] |= fileBit
						break
					}
				}
				return nil
			}); err != nil {
				return errors.Wrapf(err, "scan %s for candidates", f)
			}

			slog.Info("pass 2 complete", slog.String("file", filepath.Base(f)), slog.Int("candidates", len(candidates)))

			results[i] = candidates
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	merged := make(map[string]uint64)
	for _, r := range results {
		for code, mask := range r {
			merged[code] |= mask
		}
	}

	dups := make(map[string]struct{})
	for code, mask := range merged {
		if bits.OnesCount64(mask) >= 2 {
			dups[code] = struct{}{}
		}
	}
	return dups, nil
}

func importCoupons(
	ctx context.Context,
	files []string,
	dups map[string]struct{},
	store coupon.Store,
	opts options,
	st *stats,
) error {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(max(opts.writers, 1))

	for _, f := range files {
		var lineNo int
		err := streamGzFile(ctx, f, func(line []byte) error {
			lineNo++

			var c coupon.Coupon
			if err := json.Unmarshal(line, &c); err != nil {
				st.invalid.Add(1)
				slog.Warn("skipping malformed line",
					slog.String("file", filepath.Base(f)),
					slog.Int("line", lineNo),
					slog.String("error", err.Error()),
				)
				return nil
			}
			if _, dup := dups[strings.TrimSpace(c.Code)]; dup && opts.skipConflicts {
				st.conflicts.Add(1)
				slog.Warn("skipping code defined in several files",
					slog.String("file", filepath.Base(f)),
					slog.String("code", c.Code),
				)
				return nil
			}
			if err := coupon.Validate(&c); err != nil {
				st.invalid.Add(1)
				slog.Warn("skipping invalid coupon",
					slog.String("file", filepath.Base(f)),
					slog.Int("line", lineNo),
					slog.String("code", c.Code),
					slog.String("error", err.Error()),
				)
				return nil
			}
			if store == nil {
				return nil
			}

			g.Go(func() error {
				return upsertCoupon(ctx, store, &c, st)
			})
			return nil
		})
		if err != nil {
			// A failed writer cancels ctx; report its error rather than the cancellation.
			if werr := g.Wait(); werr != nil {
				return werr
			}
			return errors.Wrapf(err, "import %s", f)
		}
	}

	return g.Wait()
}

// upsertCoupon updates the coupon holding c.Code in place, or creates it.
// A create that loses a race on the same code falls back to an update.
func upsertCoupon(ctx context.Context, store coupon.Store, c *coupon.Coupon, st *stats) error {
	existing, err := store.FindByCode(ctx, c.Code)
	if errors.Is(err, coupon.ErrNotFound) {
		c.ID = uuid.New().String()
		err = store.Create(ctx, c)
		if err == nil {
			st.created.Add(1)
			return progress(st)
		}
		if !errors.Is(err, coupon.ErrDuplicateCode) {
			return errors.Wrapf(err, "create coupon %s", c.Code)
		}
		existing, err = store.FindByCode(ctx, c.Code)
	}
	if err != nil {
		return errors.Wrapf(err, "find coupon %s", c.Code)
	}

	c.ID = existing.ID
	if err := store.Update(ctx, c); err != nil {
		return errors.Wrapf(err, "update coupon %s", c.Code)
	}
	st.updated.Add(1)
	return progress(st)
}

func progress(st *stats) error {
	if n := st.created.Load() + st.updated.Load(); n%progressEvery == 0 {
		slog.Info("write progress", slog.Int64("written", n))
	}
	return nil
}

// codeOf extracts the trimmed "code" field of one NDJSON document without
// decoding the rest of it.
func codeOf(line []byte) (string, error) {
	var code string
	err := jx.DecodeBytes(line).ObjBytes(func(d *jx.Decoder, key []byte) error {
		if string(key) != "code" {
			return d.Skip()
		}
		s, err := d.Str()
		if err != nil {
			return err
		}
		code = strings.TrimSpace(s)
		return nil
	})
	return code, err
}

// streamGzFile opens a gzip-compressed file and calls fn for each non-empty line.
func streamGzFile(ctx context.Context, path string, fn func(line []byte) error) error {
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
	scanner.Buffer(make([]byte, 64*1024), maxLineBytes)
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		line := scanner.Bytes()
		if len(bytes.TrimSpace(line)) == 0 {
			continue
		}
		if err := fn(line); err != nil {
			return err
		}
	}

	if err := scanner.Err(); err != nil {
		return errors.Wrapf(err, "scan %s", path)
	}

	return nil
}
