package service

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/therafiali/internal-app-sub000/internal/dto"
	"github.com/therafiali/internal-app-sub000/internal/models"
	appErrors "github.com/therafiali/internal-app-sub000/pkg/errors"
	"github.com/therafiali/internal-app-sub000/pkg/storage"
)

var pngHeader = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n', 0, 0, 0, 0x0d, 'I', 'H', 'D', 'R'}

type stubSubmitter struct {
	checkErr  error
	submitErr error
	url       string
}

func (s *stubSubmitter) CheckScreenshotAllowed(context.Context, *models.JWTClaims, string) error {
	return s.checkErr
}

func (s *stubSubmitter) SubmitScreenshot(_ context.Context, _ *models.JWTClaims, id, url string) (*models.Recharge, error) {
	if s.submitErr != nil {
		return nil, s.submitErr
	}
	s.url = url
	return &models.Recharge{RequestBase: models.RequestBase{ID: id}, Status: models.RechargeSCSubmitted, ScreenshotURL: &url}, nil
}

func newScreenshotFixture(t *testing.T, sub *stubSubmitter, maxSize int64) (*ScreenshotService, string) {
	t.Helper()
	dir := t.TempDir()
	store, err := storage.NewLocalStorage(dir)
	require.NoError(t, err)
	signer := storage.NewSignedURLSigner("test-secret", time.Hour)
	return NewScreenshotService(sub, store, signer, ScreenshotConfig{PublicBaseURL: "https://api.example.com/api/v1/files/", MaxFileSize: maxSize}, nil), dir
}

func storedFiles(t *testing.T, dir string) []string {
	t.Helper()
	var files []string
	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err == nil && !info.IsDir() {
			files = append(files, path)
		}
		return err
	})
	require.NoError(t, err)
	return files
}

func TestScreenshotUploadAndOpen(t *testing.T) {
	sub := &stubSubmitter{}
	svc, dir := newScreenshotFixture(t, sub, 1024)
	body := append(append([]byte{}, pngHeader...), bytes.Repeat([]byte{1}, 64)...)

	rec, err := svc.Upload(context.Background(), supportAgent, "rec-1", dto.ScreenshotUpload{Filename: "proof.png", Size: int64(len(body))}, bytes.NewReader(body))
	require.NoError(t, err)
	assert.Equal(t, models.RechargeSCSubmitted, rec.Status)
	require.True(t, strings.HasPrefix(sub.url, "https://api.example.com/api/v1/files/"))
	require.Len(t, storedFiles(t, dir), 1)

	token := strings.TrimPrefix(sub.url, "https://api.example.com/api/v1/files/")
	file, err := svc.Open(token)
	require.NoError(t, err)
	defer file.File.Close()
	assert.Equal(t, "image/png", file.ContentType)
	content, err := io.ReadAll(file.File)
	require.NoError(t, err)
	assert.Equal(t, body, content)

	_, err = svc.Open(token + "x")
	requireCode(t, err, appErrors.ErrNotFound)
}

func TestScreenshotUploadRejectsNonImages(t *testing.T) {
	svc, dir := newScreenshotFixture(t, &stubSubmitter{}, 1024)

	_, err := svc.Upload(context.Background(), supportAgent, "rec-1", dto.ScreenshotUpload{Filename: "proof.png"}, strings.NewReader("%PDF-1.4 not an image"))
	requireCode(t, err, appErrors.ErrValidation)
	assert.Empty(t, storedFiles(t, dir))
}

func TestScreenshotUploadEnforcesSize(t *testing.T) {
	svc, dir := newScreenshotFixture(t, &stubSubmitter{}, 32)
	body := append(append([]byte{}, pngHeader...), bytes.Repeat([]byte{1}, 64)...)

	_, err := svc.Upload(context.Background(), supportAgent, "rec-1", dto.ScreenshotUpload{Size: 10}, bytes.NewReader(body))
	requireCode(t, err, appErrors.ErrValidation)
	assert.Empty(t, storedFiles(t, dir))

	_, err = svc.Upload(context.Background(), supportAgent, "rec-1", dto.ScreenshotUpload{Size: 500}, bytes.NewReader(body))
	requireCode(t, err, appErrors.ErrValidation)
}

func TestScreenshotUploadCleansUpOnRefusal(t *testing.T) {
	sub := &stubSubmitter{checkErr: appErrors.Clone(appErrors.ErrLockHeld, "busy")}
	svc, dir := newScreenshotFixture(t, sub, 1024)
	_, err := svc.Upload(context.Background(), supportAgent, "rec-1", dto.ScreenshotUpload{}, bytes.NewReader(pngHeader))
	requireCode(t, err, appErrors.ErrLockHeld)
	assert.Empty(t, storedFiles(t, dir))

	sub.checkErr = nil
	sub.submitErr = errors.New("database unavailable")
	_, err = svc.Upload(context.Background(), supportAgent, "rec-1", dto.ScreenshotUpload{}, bytes.NewReader(pngHeader))
	require.Error(t, err)
	assert.Empty(t, storedFiles(t, dir))
}
