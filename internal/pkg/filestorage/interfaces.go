package filestorage

import (
	"errors"
	"mime/multipart"
)

var (
	// ErrFileTooLarge is returned when an upload exceeds the configured limit.
	ErrFileTooLarge = errors.New("file exceeds the maximum allowed size")
	// ErrUnsupportedType is returned for extensions outside the allow list.
	ErrUnsupportedType = errors.New("file type is not allowed")
)

// FileStorage stores uploaded files and hands back a URL clients can fetch.
type FileStorage interface {
	// SaveFileWithPath stores the upload under subPath and returns its public URL.
	SaveFileWithPath(fileHeader *multipart.FileHeader, subPath string) (string, error)

	// DeleteFile removes a previously stored file given its URL. Missing files are not an error.
	DeleteFile(fileURL string) error
}
