package auth

import (
	"io"
	"os"
	"strings"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/go-faster/errors"
	pgzip "github.com/klauspost/pgzip"
)

// Blocklist is a probabilistic set of common passwords. False positives
// reject a few acceptable passwords; there are no false negatives.
type Blocklist struct {
	filter *bloom.BloomFilter
}

// NewBlocklist sizes a filter for n entries at the given false positive rate.
func NewBlocklist(n uint, fpRate float64) *Blocklist {
	return &Blocklist{filter: bloom.NewWithEstimates(max(n, 1), fpRate)}
}

// Add inserts a password. Entries are case-insensitive.
func (b *Blocklist) Add(password string) {
	b.filter.AddString(normalizePassword(password))
}

// Contains reports whether password is probably listed. A nil Blocklist
// contains nothing.
func (b *Blocklist) Contains(password string) bool {
	if b == nil || b.filter == nil {
		return false
	}
	return b.filter.TestString(normalizePassword(password))
}

// Merge adds every entry of other. Both lists must have been created with
// the same size and false positive rate.
func (b *Blocklist) Merge(other *Blocklist) error {
	if err := b.filter.Merge(other.filter); err != nil {
		return errors.Wrap(err, "merge filter")
	}
	return nil
}

// WriteTo writes the gzip-compressed filter to w.
func (b *Blocklist) WriteTo(w io.Writer) (int64, error) {
	zw := pgzip.NewWriter(w)
	n, err := b.filter.WriteTo(zw)
	if err != nil {
		_ = zw.Close()
		return n, errors.Wrap(err, "write filter")
	}
	if err := zw.Close(); err != nil {
		return n, errors.Wrap(err, "close gzip writer")
	}
	return n, nil
}

// ReadBlocklist decodes a filter written by WriteTo.
func ReadBlocklist(r io.Reader) (*Blocklist, error) {
	zr, err := pgzip.NewReader(r)
	if err != nil {
		return nil, errors.Wrap(err, "open gzip reader")
	}
	defer func() { _ = zr.Close() }()

	var f bloom.BloomFilter
	if _, err := f.ReadFrom(zr); err != nil {
		return nil, errors.Wrap(err, "read filter")
	}
	return &Blocklist{filter: &f}, nil
}

// LoadBlocklistFile reads a blocklist from path. An empty path yields a nil
// Blocklist, which disables the check.
func LoadBlocklistFile(path string) (*Blocklist, error) {
	if path == "" {
		return nil, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "open blocklist")
	}
	defer func() { _ = f.Close() }()

	return ReadBlocklist(f)
}

func normalizePassword(p string) string {
	return strings.ToLower(strings.TrimSpace(p))
}
