// Command password-blocklist builds the compressed bloom filter of common
// passwords that sign-up rejects. Inputs are newline separated word lists,
// optionally gzip-compressed.
package main

import (
	"bufio"
	"context"
	"flag"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/go-faster/errors"
	pgzip "github.com/klauspost/pgzip"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/xenking/greenbasket/internal/domain/auth"
)

const progressEvery = 1_000_000

func main() {
	var (
		out    string
		fpRate float64
	)
	flag.StringVar(&out, "out", "password-blocklist.bin.gz", "output file")
	flag.Float64Var(&fpRate, "fp-rate", 0.001, "bloom filter false positive rate")
	flag.Parse()

	lg := zap.Must(zap.NewDevelopment())
	defer func() { _ = lg.Sync() }()

	files := flag.Args()
	if len(files) == 0 {
		lg.Fatal("At least one word list is required")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, lg, files, out, fpRate); err != nil {
		lg.Fatal("Build blocklist failed", zap.Error(err))
	}
	lg.Info("Blocklist written", zap.String("path", out))
}

func run(ctx context.Context, lg *zap.Logger, files []string, out string, fpRate float64) error {
	// Pass 1: count entries so every per-file filter gets the same size.
	lg.Info("Pass 1: counting entries", zap.Int("files", len(files)))
	total, err := countEntries(ctx, files)
	if err != nil {
		return errors.Wrap(err, "count entries")
	}
	lg.Info("Pass 1 complete", zap.Uint("entries", total))

	// Pass 2: fill one filter per file concurrently, then merge.
	lg.Info("Pass 2: building filters")
	list, err := build(ctx, lg, files, total, fpRate)
	if err != nil {
		return errors.Wrap(err, "build filters")
	}

	f, err := os.Create(out)
	if err != nil {
		return errors.Wrap(err, "create output")
	}
	if _, err := list.WriteTo(f); err != nil {
		_ = f.Close()
		return errors.Wrap(err, "write blocklist")
	}
	return f.Close()
}

func countEntries(ctx context.Context, files []string) (uint, error) {
	counts := make([]uint, len(files))

	g, ctx := errgroup.WithContext(ctx)
	for i, path := range files {
		g.Go(func() error {
			return streamFile(ctx, path, func(string) { counts[i]++ })
		})
	}
	if err := g.Wait(); err != nil {
		return 0, err
	}

	var total uint
	for _, c := range counts {
		total += c
	}
	return total, nil
}

func build(ctx context.Context, lg *zap.Logger, files []string, total uint, fpRate float64) (*auth.Blocklist, error) {
	lists := make([]*auth.Blocklist, len(files))

	g, ctx := errgroup.WithContext(ctx)
	for i, path := range files {
		g.Go(func() error {
			list := auth.NewBlocklist(total, fpRate)
			var n uint64
			if err := streamFile(ctx, path, func(word string) {
				list.Add(word)
				n++
				if n%progressEvery == 0 {
					lg.Info("Pass 2 progress", zap.String("file", path), zap.Uint64("entries", n))
				}
			}); err != nil {
				return errors.Wrapf(err, "build filter for %s", path)
			}
			lg.Info("Pass 2 file complete", zap.String("file", path), zap.Uint64("entries", n))
			lists[i] = list
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	merged := lists[0]
	for _, l := range lists[1:] {
		if err := merged.Merge(l); err != nil {
			return nil, err
		}
	}
	return merged, nil
}

// streamFile calls fn for each non-blank line of path. Files ending in .gz
// are decompressed.
func streamFile(ctx context.Context, path string, fn func(word string)) error {
	f, err := os.Open(path)
	if err != nil {
		return errors.Wrapf(err, "open %s", path)
	}
	defer func() { _ = f.Close() }()

	var r io.Reader = f
	if strings.HasSuffix(path, ".gz") {
		gz, err := pgzip.NewReader(f)
		if err != nil {
			return errors.Wrapf(err, "create gzip reader for %s", path)
		}
		defer func() { _ = gz.Close() }()
		r = gz
	}

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		if word := strings.TrimSpace(scanner.Text()); word != "" {
			fn(word)
		}
	}
	if err := scanner.Err(); err != nil {
		return errors.Wrapf(err, "scan %s", path)
	}
	return nil
}
