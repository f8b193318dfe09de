// Package media persists uploaded videos on disk and lists them as
// descriptors the playback flow can point at.
package media

import (
	"errors"
	"fmt"
	"io"
	"math/rand"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/akarpov/lanhub/internal/domain"
)

var (
	ErrNotVideo = errors.New("only video files are allowed")
	ErrTooLarge = errors.New("file exceeds upload size limit")
	ErrNoName   = errors.New("empty file name")
)

// PublicPrefix is the URL path uploads are served under.
const PublicPrefix = "/uploads/"

var whitespace = regexp.MustCompile(`\s+`)

type Store struct {
	dir      string
	maxBytes int64
	now      func() time.Time
}

func NewStore(dir string, maxBytes int64) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create uploads dir: %w", err)
	}
	return &Store{dir: dir, maxBytes: maxBytes, now: time.Now}, nil
}

func (s *Store) Dir() string { return s.dir }

// Save writes the upload under a unique collision-free name and returns its
// descriptor. contentType must be a video mime type; size is checked against
// the configured cap before any bytes are read.
func (s *Store) Save(name, contentType string, size int64, r io.Reader) (domain.VideoDescriptor, error) {
	if name == "" {
		return domain.VideoDescriptor{}, ErrNoName
	}
	if !strings.HasPrefix(contentType, "video/") {
		return domain.VideoDescriptor{}, ErrNotVideo
	}
	if s.maxBytes > 0 && size > s.maxBytes {
		return domain.VideoDescriptor{}, ErrTooLarge
	}

	base := whitespace.ReplaceAllString(filepath.Base(name), "_")
	fileName := fmt.Sprintf("%d-%d-%s", s.now().UnixMilli(), rand.Intn(1_000_000_000), base)

	dst, err := os.Create(filepath.Join(s.dir, fileName))
	if err != nil {
		return domain.VideoDescriptor{}, fmt.Errorf("create upload: %w", err)
	}
	defer dst.Close()

	written, err := io.Copy(dst, r)
	if err != nil {
		_ = os.Remove(dst.Name())
		return domain.VideoDescriptor{}, fmt.Errorf("write upload: %w", err)
	}
	log.Info().Str("module", "media").Str("file", fileName).Int64("bytes", written).Msg("upload stored")

	return domain.VideoDescriptor{Name: fileName, URL: PublicPrefix + fileName}, nil
}

// List returns a descriptor for every stored file, oldest first (names carry
// the upload timestamp prefix).
func (s *Store) List() ([]domain.VideoDescriptor, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("scan uploads dir: %w", err)
	}
	out := make([]domain.VideoDescriptor, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		out = append(out, domain.VideoDescriptor{Name: e.Name(), URL: PublicPrefix + e.Name()})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}
