package filestorage

import (
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/helphive/servicehours/internal/pkg/logger"
)

// Options restricts what LocalStorage accepts.
type Options struct {
	// MaxBytes of zero disables the size check.
	MaxBytes int64
	// AllowedExtensions are lower-case with a leading dot. Empty allows all.
	AllowedExtensions []string
}

// LocalStorage handles saving files to the local filesystem.
type LocalStorage struct {
	basePath string
	baseURL  string
	opts     Options
}

// NewLocalStorage creates the base directory if needed. Returned URLs are
// baseURL joined with the stored relative path.
func NewLocalStorage(basePath, baseURL string, opts Options) (*LocalStorage, error) {
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		logger.Error().Err(err).Str("path", basePath).Msg("Failed to create storage directory")
		return nil, fmt.Errorf("failed to create storage directory %s: %w", basePath, err)
	}
	return &LocalStorage{
		basePath: basePath,
		baseURL:  strings.TrimRight(baseURL, "/"),
		opts:     opts,
	}, nil
}

func (ls *LocalStorage) check(fileHeader *multipart.FileHeader) error {
	if ls.opts.MaxBytes > 0 && fileHeader.Size > ls.opts.MaxBytes {
		return ErrFileTooLarge
	}
	if len(ls.opts.AllowedExtensions) == 0 {
		return nil
	}
	ext := strings.ToLower(filepath.Ext(fileHeader.Filename))
	for _, allowed := range ls.opts.AllowedExtensions {
		if ext == allowed {
			return nil
		}
	}
	return ErrUnsupportedType
}

// SaveFileWithPath saves a file to a specified subdirectory
func (ls *LocalStorage) SaveFileWithPath(fileHeader *multipart.FileHeader, subPath string) (string, error) {
	if fileHeader == nil {
		return "", fmt.Errorf("no file provided")
	}
	if err := ls.check(fileHeader); err != nil {
		return "", err
	}

	src, err := fileHeader.Open()
	if err != nil {
		return "", fmt.Errorf("failed to open uploaded file: %w", err)
	}
	defer src.Close()

	subPath = strings.Trim(filepath.ToSlash(filepath.Clean("/"+subPath)), "/")
	dir := filepath.Join(ls.basePath, filepath.FromSlash(subPath))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create subdirectory: %w", err)
	}

	name := uuid.New().String() + strings.ToLower(filepath.Ext(fileHeader.Filename))
	dstPath := filepath.Join(dir, name)

	dst, err := os.Create(dstPath)
	if err != nil {
		return "", fmt.Errorf("failed to create destination file: %w", err)
	}
	defer dst.Close()

	if _, err = io.Copy(dst, src); err != nil {
		_ = os.Remove(dstPath)
		return "", fmt.Errorf("failed to save file content: %w", err)
	}

	url := ls.baseURL + "/" + path.Join(subPath, name)
	logger.Info().Str("filename", fileHeader.Filename).Str("url", url).Msg("File saved")
	return url, nil
}

// DeleteFile removes a file previously returned by SaveFileWithPath.
func (ls *LocalStorage) DeleteFile(fileURL string) error {
	full, ok := ls.pathFor(fileURL)
	if !ok {
		return nil
	}
	if err := os.Remove(full); err != nil && !os.IsNotExist(err) {
		logger.Error().Err(err).Str("path", full).Msg("Failed to delete file")
		return fmt.Errorf("failed to delete file: %w", err)
	}
	return nil
}

// pathFor maps a URL back into basePath, refusing anything that escapes it.
func (ls *LocalStorage) pathFor(fileURL string) (string, bool) {
	if fileURL == "" || !strings.HasPrefix(fileURL, ls.baseURL+"/") {
		return "", false
	}
	rel := path.Clean("/" + strings.TrimPrefix(fileURL, ls.baseURL+"/"))
	rel = strings.TrimPrefix(rel, "/")
	if rel == "" || rel == "." {
		return "", false
	}
	return filepath.Join(ls.basePath, filepath.FromSlash(rel)), true
}
