package cache

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"golang.org/x/sync/singleflight"
)

// ErrWrite marks a failure to persist a freshly filled entry. The data
// returned alongside it is valid; only the cache file is missing.
var ErrWrite = errors.New("cache: write failed")

// Key computes a content address from a domain and a list of parts.
// Format: SHA256(domain + 0x00 + len(part0) + part0 + len(part1) + ...)
// Length prefixes keep part boundaries unambiguous.
func Key(domain string, parts ...[]byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	var n [8]byte
	for _, p := range parts {
		binary.LittleEndian.PutUint64(n[:], uint64(len(p)))
		h.Write(n[:])
		h.Write(p)
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Disk is a content-addressed file store.
//
// An entry is a single file named after its key. The existence of that
// file is the only hit test: entries are never checked for staleness.
//
// Concurrent requests for the same key within one Disk are collapsed so
// that only one of them reads or fills the file, and files are written
// to a temporary name and renamed into place, so readers never observe
// a partially written entry.
type Disk struct {
	dir   string
	ext   string
	group singleflight.Group
}

// NewDisk creates dir if needed and returns a store whose files carry ext.
func NewDisk(dir, ext string) (*Disk, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("cache: create dir: %w", err)
	}
	return &Disk{dir: dir, ext: ext}, nil
}

// Dir returns the directory holding the cache files.
func (d *Disk) Dir() string { return d.dir }

// Path returns the file path of the entry for key.
func (d *Disk) Path(key string) string {
	return filepath.Join(d.dir, key+d.ext)
}

// Origin reports where the data returned by GetOrFill came from.
type Origin uint8

const (
	// FromDisk means the entry already existed.
	FromDisk Origin = iota
	// Filled means this caller ran fill.
	Filled
	// SharedFill means a concurrent caller ran fill and this caller
	// received its result.
	SharedFill
)

type diskResult struct {
	data []byte
	hit  bool
}

// GetOrFill returns the contents of the entry for key. On a miss it calls
// fill, stores the result and returns it. Concurrent callers for the same
// key share one read or fill; origin tells each of them whether the data
// was read, filled by itself or filled by another caller.
//
// If fill fails its error is returned unchanged. If only storing fails,
// the filled data is returned together with an error matching ErrWrite.
func (d *Disk) GetOrFill(key string, fill func() ([]byte, error)) (data []byte, origin Origin, err error) {
	path := d.Path(key)
	leader := false
	v, err, _ := d.group.Do(path, func() (any, error) {
		leader = true
		data, err := os.ReadFile(path)
		if err == nil {
			return diskResult{data: data, hit: true}, nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("cache: read %s: %w", path, err)
		}

		data, err = fill()
		if err != nil {
			return nil, err
		}
		if err := d.write(path, data); err != nil {
			return diskResult{data: data}, err
		}
		return diskResult{data: data}, nil
	})
	r, _ := v.(diskResult)
	switch {
	case r.hit:
		origin = FromDisk
	case leader:
		origin = Filled
	default:
		origin = SharedFill
	}
	return r.data, origin, err
}

func (d *Disk) write(path string, data []byte) error {
	f, err := os.CreateTemp(d.dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("%w: %w", ErrWrite, err)
	}
	tmp := f.Name()
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return fmt.Errorf("%w: %w", ErrWrite, err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("%w: %w", ErrWrite, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("%w: %w", ErrWrite, err)
	}
	return nil
}
