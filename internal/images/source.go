package images

import (
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
)

const (
	// MaxBatchSize is the most images one batch accepts.
	MaxBatchSize = 100

	// MaxFileSize is the per-image size cap (60 MiB).
	MaxFileSize int64 = 60 << 20
)

// Limits caps what a Loader accepts.
type Limits struct {
	MaxImages   int
	MaxFileSize int64
}

// DefaultLimits returns the standard batch caps.
func DefaultLimits() Limits {
	return Limits{MaxImages: MaxBatchSize, MaxFileSize: MaxFileSize}
}

// Rejection records a path the loader skipped and why.
type Rejection struct {
	Path   string `json:"path"`
	Reason string `json:"reason"`
}

// Loader turns file and directory arguments into an image batch.
type Loader struct {
	limits    Limits
	recursive bool
	logger    *slog.Logger
}

// LoaderConfig configures a Loader.
type LoaderConfig struct {
	Limits    Limits
	Recursive bool
	Logger    *slog.Logger
}

// NewLoader creates a loader. Zero limits fall back to the defaults.
func NewLoader(cfg LoaderConfig) *Loader {
	if cfg.Limits.MaxImages <= 0 {
		cfg.Limits.MaxImages = MaxBatchSize
	}
	if cfg.Limits.MaxFileSize <= 0 {
		cfg.Limits.MaxFileSize = MaxFileSize
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Loader{limits: cfg.Limits, recursive: cfg.Recursive, logger: cfg.Logger}
}

// Load expands directories (sorted by name) and keeps image/* files within
// the size cap, in argument order, up to the batch cap. Everything skipped is
// returned as a Rejection. A missing path is an error.
func (l *Loader) Load(paths []string) ([]*Image, []Rejection, error) {
	var files []string
	for _, p := range paths {
		expanded, err := l.expand(p)
		if err != nil {
			return nil, nil, err
		}
		files = append(files, expanded...)
	}

	var (
		imgs     []*Image
		rejected []Rejection
		seen     = make(map[string]bool)
	)
	for _, f := range files {
		abs, err := filepath.Abs(f)
		if err == nil {
			if seen[abs] {
				continue
			}
			seen[abs] = true
		}

		img, err := FromFile(f)
		if err != nil {
			rejected = append(rejected, Rejection{Path: f, Reason: err.Error()})
			continue
		}
		if !img.IsImage() {
			rejected = append(rejected, Rejection{Path: f, Reason: fmt.Sprintf("not an image (%s)", img.MIMEType)})
			continue
		}
		if img.Size > l.limits.MaxFileSize {
			rejected = append(rejected, Rejection{Path: f, Reason: fmt.Sprintf("larger than %d MiB", l.limits.MaxFileSize>>20)})
			continue
		}
		if len(imgs) >= l.limits.MaxImages {
			rejected = append(rejected, Rejection{Path: f, Reason: fmt.Sprintf("batch limit of %d images reached", l.limits.MaxImages)})
			continue
		}
		imgs = append(imgs, img)
	}

	for _, r := range rejected {
		l.logger.Debug("skipping file", "path", r.Path, "reason", r.Reason)
	}
	return imgs, rejected, nil
}

func (l *Loader) expand(p string) ([]string, error) {
	info, err := os.Stat(p)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return []string{p}, nil
	}

	var out []string
	if l.recursive {
		err = filepath.WalkDir(p, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				if path != p && isHidden(d.Name()) {
					return filepath.SkipDir
				}
				return nil
			}
			if !isHidden(d.Name()) {
				out = append(out, path)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
		sort.Strings(out)
		return out, nil
	}

	entries, err := os.ReadDir(p)
	if err != nil {
		return nil, err
	}
	for _, e := range entries {
		if e.IsDir() || isHidden(e.Name()) {
			continue
		}
		out = append(out, filepath.Join(p, e.Name()))
	}
	return out, nil
}

func isHidden(name string) bool {
	return len(name) > 0 && name[0] == '.'
}
