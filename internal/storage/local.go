package storage

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"
)

const (
	ThumbnailURLPrefix    = "/thumbnails"
	ContentImageURLPrefix = "/content-images"

	DefaultMaxThumbnailBytes    int64 = 5 << 20
	DefaultMaxContentImageBytes int64 = 10 << 20
)

var (
	// ErrInvalidImage marks an upload rejected by size, extension or content checks.
	ErrInvalidImage = errors.New("invalid image")
	// ErrStorage marks a file system failure while writing an upload.
	ErrStorage = errors.New("image storage failed")
)

var allowedExtensions = map[string]struct{}{
	".jpg":  {},
	".jpeg": {},
	".png":  {},
	".gif":  {},
	".bmp":  {},
	".webp": {},
}

var contentImagePattern = regexp.MustCompile(regexp.QuoteMeta(ContentImageURLPrefix+"/") + `([A-Za-z0-9_.\-]+)`)

// Options configures where uploads live and how large they may be.
type Options struct {
	ThumbnailDir         string
	ContentImageDir      string
	MaxThumbnailBytes    int64
	MaxContentImageBytes int64
}

// LocalStore keeps thumbnails and content images on the local file system.
type LocalStore struct {
	opts   Options
	logger zerolog.Logger
}

// NewLocalStore creates a LocalStore, filling in default limits.
func NewLocalStore(opts Options) *LocalStore {
	if opts.MaxThumbnailBytes <= 0 {
		opts.MaxThumbnailBytes = DefaultMaxThumbnailBytes
	}
	if opts.MaxContentImageBytes <= 0 {
		opts.MaxContentImageBytes = DefaultMaxContentImageBytes
	}
	return &LocalStore{opts: opts, logger: zerolog.Nop()}
}

// SetLogger replaces the no-op logger.
func (s *LocalStore) SetLogger(logger zerolog.Logger) {
	s.logger = logger.With().Str("component", "assets").Logger()
}

// StoreThumbnail validates and writes a thumbnail, returning its stored name.
func (s *LocalStore) StoreThumbnail(src io.Reader, originalName string) (string, error) {
	return s.store(src, originalName, s.opts.ThumbnailDir, s.opts.MaxThumbnailBytes)
}

// StoreContentImage validates and writes an image embedded in post bodies,
// returning the path to reference it by.
func (s *LocalStore) StoreContentImage(src io.Reader, originalName string) (string, error) {
	name, err := s.store(src, originalName, s.opts.ContentImageDir, s.opts.MaxContentImageBytes)
	if err != nil {
		return "", err
	}
	return ContentImageURLPrefix + "/" + name, nil
}

// ThumbnailURL returns the public path of a stored thumbnail name.
func ThumbnailURL(name string) string {
	if name == "" {
		return ""
	}
	return ThumbnailURLPrefix + "/" + name
}

// DeleteThumbnail removes a stored thumbnail. Failures are logged, never returned.
func (s *LocalStore) DeleteThumbnail(name string) {
	if strings.TrimSpace(name) == "" {
		return
	}
	if s.remove(s.opts.ThumbnailDir, name) {
		s.logger.Info().Str("file", name).Msg("thumbnail deleted")
	}
}

// DeleteContentImagesReferencedIn deletes every content image referenced in body
// and reports how many files were removed.
func (s *LocalStore) DeleteContentImagesReferencedIn(body string) int {
	matches := contentImagePattern.FindAllStringSubmatch(body, -1)
	if len(matches) == 0 {
		return 0
	}

	seen := make(map[string]struct{}, len(matches))
	deleted := 0
	for _, match := range matches {
		name := match[1]
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		if s.remove(s.opts.ContentImageDir, name) {
			deleted++
		}
	}

	s.logger.Info().Int("referenced", len(seen)).Int("deleted", deleted).Msg("content images cleaned up")
	return deleted
}

func (s *LocalStore) store(src io.Reader, originalName, dir string, limit int64) (string, error) {
	ext := strings.ToLower(filepath.Ext(strings.TrimSpace(originalName)))
	if _, ok := allowedExtensions[ext]; !ok {
		return "", fmt.Errorf("%w: extension %q is not allowed", ErrInvalidImage, ext)
	}

	data, err := io.ReadAll(io.LimitReader(src, limit+1))
	if err != nil {
		return "", fmt.Errorf("%w: read upload: %v", ErrStorage, err)
	}
	if int64(len(data)) > limit {
		return "", fmt.Errorf("%w: file exceeds %d bytes", ErrInvalidImage, limit)
	}
	if len(data) == 0 {
		return "", fmt.Errorf("%w: file is empty", ErrInvalidImage)
	}
	if _, _, err := image.DecodeConfig(bytes.NewReader(data)); err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("%w: create dir: %v", ErrStorage, err)
	}

	name := uuid.NewString() + ext
	path := filepath.Join(dir, name)
	file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrStorage, err)
	}
	if _, err := file.Write(data); err != nil {
		file.Close()
		os.Remove(path)
		return "", fmt.Errorf("%w: %v", ErrStorage, err)
	}
	if err := file.Close(); err != nil {
		os.Remove(path)
		return "", fmt.Errorf("%w: %v", ErrStorage, err)
	}

	s.logger.Debug().Str("file", name).Int("bytes", len(data)).Msg("image stored")
	return name, nil
}

// remove deletes dir/name, refusing names that could leave dir.
func (s *LocalStore) remove(dir, name string) bool {
	base := filepath.Base(name)
	if base != name || base == "." || base == ".." {
		s.logger.Warn().Str("file", name).Msg("refusing to delete suspicious file name")
		return false
	}

	if err := os.Remove(filepath.Join(dir, base)); err != nil {
		if os.IsNotExist(err) {
			s.logger.Warn().Str("file", base).Msg("image already missing")
		} else {
			s.logger.Error().Err(err).Str("file", base).Msg("image delete failed")
		}
		return false
	}
	return true
}
