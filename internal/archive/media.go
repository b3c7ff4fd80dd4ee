package archive

import (
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path"
	"sort"
	"strings"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"
)

// MediaKind groups media extensions.
type MediaKind string

const (
	KindImage    MediaKind = "image"
	KindDocument MediaKind = "document"
	KindAudio    MediaKind = "audio"
	KindVideo    MediaKind = "video"
)

var mediaExtensions = map[string]MediaKind{
	".jpg":  KindImage,
	".jpeg": KindImage,
	".png":  KindImage,
	".gif":  KindImage,
	".bmp":  KindImage,
	".webp": KindImage,

	".pdf":  KindDocument,
	".doc":  KindDocument,
	".docx": KindDocument,
	".xls":  KindDocument,
	".xlsx": KindDocument,
	".ppt":  KindDocument,
	".pptx": KindDocument,
	".txt":  KindDocument,
	".vcf":  KindDocument,

	".mp3":  KindAudio,
	".wav":  KindAudio,
	".ogg":  KindAudio,
	".opus": KindAudio,
	".m4a":  KindAudio,
	".aac":  KindAudio,

	".mp4": KindVideo,
	".avi": KindVideo,
	".mov": KindVideo,
	".3gp": KindVideo,
	".mkv": KindVideo,
}

// KindOf returns the media kind for a file name by extension.
func KindOf(name string) (MediaKind, bool) {
	k, ok := mediaExtensions[strings.ToLower(path.Ext(name))]
	return k, ok
}

// IsImage reports whether name has an image extension.
func IsImage(name string) bool {
	k, ok := KindOf(name)
	return ok && k == KindImage
}

func isMedia(name string) bool {
	_, ok := KindOf(name)
	return ok
}

// MediaIndex maps bare file names to extracted paths. It is read-only once
// built.
type MediaIndex struct {
	files map[string]string
}

// NewMediaIndex builds a frozen index from a name to path map.
func NewMediaIndex(files map[string]string) *MediaIndex {
	b := newIndexBuilder()
	for name, p := range files {
		b.add(name, p)
	}
	return b.freeze()
}

// Lookup returns the path for name.
func (m *MediaIndex) Lookup(name string) (string, bool) {
	if m == nil {
		return "", false
	}
	p, ok := m.files[name]
	return p, ok
}

// Len returns the number of indexed files.
func (m *MediaIndex) Len() int {
	if m == nil {
		return 0
	}
	return len(m.files)
}

// Names returns the indexed file names in sorted order.
func (m *MediaIndex) Names() []string {
	if m == nil {
		return nil
	}
	names := make([]string, 0, len(m.files))
	for n := range m.files {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Images returns the indexed image names in sorted order.
func (m *MediaIndex) Images() []string {
	var out []string
	for _, n := range m.Names() {
		if IsImage(n) {
			out = append(out, n)
		}
	}
	return out
}

type indexBuilder struct {
	files map[string]string
}

func newIndexBuilder() *indexBuilder {
	return &indexBuilder{files: make(map[string]string)}
}

// add keeps the first path seen for a name.
func (b *indexBuilder) add(name, p string) {
	if _, exists := b.files[name]; exists {
		return
	}
	b.files[name] = p
}

// validateImages removes images that fail to decode and returns their names.
func (b *indexBuilder) validateImages() []string {
	var dropped []string
	for name, p := range b.files {
		if !IsImage(name) {
			continue
		}
		if err := decodeCheck(p); err != nil {
			dropped = append(dropped, name)
		}
	}
	for _, name := range dropped {
		delete(b.files, name)
	}
	sort.Strings(dropped)
	return dropped
}

func (b *indexBuilder) freeze() *MediaIndex {
	m := &MediaIndex{files: b.files}
	b.files = nil
	return m
}

// decodeCheck reads only the image header. Animated WebP stickers pass
// here even though they cannot be decoded as a still frame.
func decodeCheck(p string) error {
	f, err := os.Open(p)
	if err != nil {
		return err
	}
	defer f.Close()
	_, _, err = image.DecodeConfig(f)
	return err
}
