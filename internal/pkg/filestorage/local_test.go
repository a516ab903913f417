package filestorage

import (
	"bytes"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fileHeader(t *testing.T, name string, content []byte) *multipart.FileHeader {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	part, err := w.CreateFormFile("photo", name)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/", &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	require.NoError(t, req.ParseMultipartForm(1<<20))
	return req.MultipartForm.File["photo"][0]
}

func TestSaveAndDelete(t *testing.T) {
	dir := t.TempDir()
	ls, err := NewLocalStorage(dir, "/uploads", Options{AllowedExtensions: []string{".png"}})
	require.NoError(t, err)

	url, err := ls.SaveFileWithPath(fileHeader(t, "me.PNG", []byte("png-bytes")), "profile-photos/42")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(url, "/uploads/profile-photos/42/"))
	assert.True(t, strings.HasSuffix(url, ".png"))

	full, ok := ls.pathFor(url)
	require.True(t, ok)
	data, err := os.ReadFile(full)
	require.NoError(t, err)
	assert.Equal(t, "png-bytes", string(data))

	require.NoError(t, ls.DeleteFile(url))
	_, err = os.Stat(full)
	assert.True(t, os.IsNotExist(err))

	// deleting twice is fine
	require.NoError(t, ls.DeleteFile(url))
}

func TestSaveRejectsDisallowedFiles(t *testing.T) {
	ls, err := NewLocalStorage(t.TempDir(), "/uploads", Options{MaxBytes: 4, AllowedExtensions: []string{".jpg"}})
	require.NoError(t, err)

	_, err = ls.SaveFileWithPath(fileHeader(t, "a.exe", []byte("x")), "")
	assert.ErrorIs(t, err, ErrUnsupportedType)

	_, err = ls.SaveFileWithPath(fileHeader(t, "a.jpg", []byte("too large")), "")
	assert.ErrorIs(t, err, ErrFileTooLarge)
}

func TestPathForStaysInsideBase(t *testing.T) {
	dir := t.TempDir()
	ls, err := NewLocalStorage(dir, "/uploads", Options{})
	require.NoError(t, err)

	full, ok := ls.pathFor("/uploads/../../etc/passwd")
	require.True(t, ok)
	assert.True(t, strings.HasPrefix(full, filepath.Clean(dir)))

	_, ok = ls.pathFor("https://elsewhere.example.org/x.png")
	assert.False(t, ok)
}
