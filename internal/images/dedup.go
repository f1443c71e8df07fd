package images

import (
	"bytes"
	"fmt"
	"image"
	"sync"

	"github.com/corona10/goimagehash"
)

// DefaultDuplicateThreshold is the Hamming distance between two dHash values
// below which images count as perceptually identical.
const DefaultDuplicateThreshold = 10

// DuplicateFilter remembers the difference hash of every image it accepts and
// flags later images that are perceptually identical. Safe for concurrent use.
type DuplicateFilter struct {
	threshold int

	mu     sync.Mutex
	hashes []*goimagehash.ImageHash
	names  []string
}

// NewDuplicateFilter creates a filter. threshold <= 0 uses the default.
func NewDuplicateFilter(threshold int) *DuplicateFilter {
	if threshold <= 0 {
		threshold = DefaultDuplicateThreshold
	}
	return &DuplicateFilter{threshold: threshold}
}

// Check decodes img and reports the name of an earlier accepted image it
// duplicates, or "" when it is new (and now remembered). Images that cannot
// be decoded are accepted with a non-nil error.
func (d *DuplicateFilter) Check(img *Image) (string, error) {
	data, err := img.Bytes()
	if err != nil {
		return "", err
	}
	decoded, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("failed to decode %s for hashing: %w", img.Name, err)
	}
	return d.checkImage(img.Name, decoded)
}

func (d *DuplicateFilter) checkImage(name string, decoded image.Image) (string, error) {
	hash, err := goimagehash.DifferenceHash(decoded)
	if err != nil {
		return "", fmt.Errorf("failed to hash %s: %w", name, err)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	for i, h := range d.hashes {
		dist, err := hash.Distance(h)
		if err == nil && dist < d.threshold {
			return d.names[i], nil
		}
	}
	d.hashes = append(d.hashes, hash)
	d.names = append(d.names, name)
	return "", nil
}

// Filter splits imgs into unique images and duplicates (keyed by the
// duplicate's ID, valued by the name of the image it matches). Images that
// fail to decode are kept.
func (d *DuplicateFilter) Filter(imgs []*Image) (unique []*Image, dupes map[string]string) {
	dupes = make(map[string]string)
	for _, img := range imgs {
		match, err := d.Check(img)
		if err == nil && match != "" {
			dupes[img.ID] = match
			continue
		}
		unique = append(unique, img)
	}
	return unique, dupes
}
