package images

import (
	"bytes"
	"strings"

	"github.com/bep/imagemeta"
)

// Embedded holds stock metadata already written into an image file.
type Embedded struct {
	Title       string   `json:"title,omitempty" yaml:"title,omitempty"`
	Description string   `json:"description,omitempty" yaml:"description,omitempty"`
	Keywords    []string `json:"keywords,omitempty" yaml:"keywords,omitempty"`
	Creator     string   `json:"creator,omitempty" yaml:"creator,omitempty"`
	Copyright   string   `json:"copyright,omitempty" yaml:"copyright,omitempty"`
}

// HasStockMetadata reports whether both a title and keywords are present.
func (e *Embedded) HasStockMetadata() bool {
	return e != nil && e.Title != "" && len(e.Keywords) > 0
}

var embeddedTags = map[imagemeta.Source]map[string]bool{
	imagemeta.IPTC: {
		"ObjectName":       true,
		"Headline":         true,
		"Caption-Abstract": true,
		"Keywords":         true,
		"By-line":          true,
		"Byline":           true,
		"CopyrightNotice":  true,
	},
	imagemeta.EXIF: {
		"ImageDescription": true,
		"Artist":           true,
		"Copyright":        true,
	},
	imagemeta.XMP: {
		"Title":       true,
		"Description": true,
		"Subject":     true,
		"Creator":     true,
		"Rights":      true,
	},
}

var imagemetaFormats = map[string]imagemeta.ImageFormat{
	"image/jpeg": imagemeta.JPEG,
	"image/png":  imagemeta.PNG,
	"image/webp": imagemeta.WebP,
	"image/tiff": imagemeta.TIFF,
}

// ReadEmbedded extracts IPTC, XMP and EXIF title/description/keywords.
// Returns nil when the format is unsupported, nothing relevant is present,
// or the metadata cannot be parsed.
func ReadEmbedded(data []byte, mimeType string) *Embedded {
	format, ok := imagemetaFormats[mimeType]
	if !ok || len(data) == 0 {
		return nil
	}

	e := &Embedded{}
	found := false
	set := func(dst *string, v any) {
		if *dst != "" {
			return
		}
		if s := tagString(v); s != "" {
			*dst = s
			found = true
		}
	}

	_, err := imagemeta.Decode(imagemeta.Options{
		R:           bytes.NewReader(data),
		ImageFormat: format,
		Sources:     imagemeta.EXIF | imagemeta.IPTC | imagemeta.XMP,
		ShouldHandleTag: func(ti imagemeta.TagInfo) bool {
			return embeddedTags[ti.Source][ti.Tag]
		},
		HandleTag: func(ti imagemeta.TagInfo) error {
			switch ti.Tag {
			case "ObjectName", "Title", "Headline":
				set(&e.Title, ti.Value)
			case "Caption-Abstract", "Description", "ImageDescription":
				set(&e.Description, ti.Value)
			case "By-line", "Byline", "Creator", "Artist":
				set(&e.Creator, ti.Value)
			case "CopyrightNotice", "Rights", "Copyright":
				set(&e.Copyright, ti.Value)
			case "Keywords", "Subject":
				for _, k := range tagList(ti.Value) {
					if !containsFold(e.Keywords, k) {
						e.Keywords = append(e.Keywords, k)
						found = true
					}
				}
			}
			return nil
		},
	})
	if err != nil || !found {
		return nil
	}
	return e
}

// tagString extracts a string from a tag value. XMP values may be string or
// []string (alt/seq lists).
func tagString(v any) string {
	switch val := v.(type) {
	case string:
		return strings.TrimSpace(val)
	case []string:
		if len(val) > 0 {
			return strings.TrimSpace(val[0])
		}
	case []any:
		if len(val) > 0 {
			if s, ok := val[0].(string); ok {
				return strings.TrimSpace(s)
			}
		}
	}
	return ""
}

// tagList flattens a keyword tag. IPTC writers often pack several keywords
// into one dataset separated by commas or semicolons.
func tagList(v any) []string {
	var raw []string
	switch val := v.(type) {
	case string:
		raw = []string{val}
	case []string:
		raw = val
	case []any:
		for _, x := range val {
			if s, ok := x.(string); ok {
				raw = append(raw, s)
			}
		}
	}

	var out []string
	for _, r := range raw {
		for _, part := range strings.FieldsFunc(r, func(c rune) bool { return c == ',' || c == ';' }) {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

func containsFold(list []string, s string) bool {
	for _, x := range list {
		if strings.EqualFold(x, s) {
			return true
		}
	}
	return false
}
