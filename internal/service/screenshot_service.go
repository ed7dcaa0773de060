package service

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/therafiali/internal-app-sub000/internal/dto"
	"github.com/therafiali/internal-app-sub000/internal/models"
	appErrors "github.com/therafiali/internal-app-sub000/pkg/errors"
	"github.com/therafiali/internal-app-sub000/pkg/storage"
)

type objectStorage interface {
	SaveStream(name string, r io.Reader) (int64, error)
	Open(name string) (*os.File, error)
	Delete(name string) error
}

type screenshotSubmitter interface {
	CheckScreenshotAllowed(ctx context.Context, actor *models.JWTClaims, id string) error
	SubmitScreenshot(ctx context.Context, actor *models.JWTClaims, id, url string) (*models.Recharge, error)
}

// ScreenshotConfig tunes proof uploads.
type ScreenshotConfig struct {
	PublicBaseURL string
	MaxFileSize   int64
	AllowedMIMEs  []string
}

var screenshotExtensions = map[string]string{
	"image/png":  ".png",
	"image/jpeg": ".jpg",
	"image/webp": ".webp",
}

// ScreenshotService stores payment proof images and serves them back through
// signed links.
type ScreenshotService struct {
	recharges screenshotSubmitter
	store     objectStorage
	signer    *storage.SignedURLSigner
	cfg       ScreenshotConfig
	allowed   map[string]bool
	logger    *zap.Logger
}

// NewScreenshotService constructs the service.
func NewScreenshotService(recharges screenshotSubmitter, store objectStorage, signer *storage.SignedURLSigner, cfg ScreenshotConfig, logger *zap.Logger) *ScreenshotService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.MaxFileSize <= 0 {
		cfg.MaxFileSize = 5 * 1024 * 1024
	}
	if cfg.PublicBaseURL == "" {
		cfg.PublicBaseURL = "/api/v1/files"
	}
	allowed := make(map[string]bool)
	for _, mime := range cfg.AllowedMIMEs {
		allowed[strings.ToLower(strings.TrimSpace(mime))] = true
	}
	if len(allowed) == 0 {
		for mime := range screenshotExtensions {
			allowed[mime] = true
		}
	}
	return &ScreenshotService{recharges: recharges, store: store, signer: signer, cfg: cfg, allowed: allowed, logger: logger}
}

// Upload stores the image and submits it as the recharge's payment proof.
// The stored object is removed again when the submission fails.
func (s *ScreenshotService) Upload(ctx context.Context, actor *models.JWTClaims, rechargeID string, meta dto.ScreenshotUpload, body io.Reader) (*models.Recharge, error) {
	if meta.Size > s.cfg.MaxFileSize {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("screenshot exceeds %d bytes", s.cfg.MaxFileSize))
	}
	if err := s.recharges.CheckScreenshotAllowed(ctx, actor, rechargeID); err != nil {
		return nil, err
	}

	reader := bufio.NewReaderSize(body, 512)
	head, _ := reader.Peek(512)
	mime := http.DetectContentType(head)
	if !s.allowed[mime] {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported screenshot type %s", mime))
	}
	ext := screenshotExtensions[mime]
	if ext == "" {
		ext = path.Ext(meta.Filename)
	}

	name := path.Join("recharges", rechargeID, uuid.NewString()+ext)
	written, err := s.store.SaveStream(name, io.LimitReader(reader, s.cfg.MaxFileSize+1))
	if err != nil {
		return nil, internalError(err, "failed to store screenshot")
	}
	if written > s.cfg.MaxFileSize {
		s.discard(name)
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("screenshot exceeds %d bytes", s.cfg.MaxFileSize))
	}

	token, _, err := s.signer.Generate(rechargeID, name)
	if err != nil {
		s.discard(name)
		return nil, internalError(err, "failed to sign screenshot url")
	}
	url := strings.TrimRight(s.cfg.PublicBaseURL, "/") + "/" + token

	rec, err := s.recharges.SubmitScreenshot(ctx, actor, rechargeID, url)
	if err != nil {
		s.discard(name)
		return nil, err
	}
	return rec, nil
}

// StoredFile is an opened object ready to stream.
type StoredFile struct {
	File        *os.File
	ContentType string
	ExpiresAt   time.Time
}

// Open resolves a signed token to the stored object.
func (s *ScreenshotService) Open(token string) (*StoredFile, error) {
	_, objectPath, expiresAt, err := s.signer.Parse(token)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrNotFound.Code, appErrors.ErrNotFound.Status, "file link is invalid or expired")
	}
	file, err := s.store.Open(objectPath)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrNotFound.Code, appErrors.ErrNotFound.Status, "file not found")
	}
	contentType := "application/octet-stream"
	for mime, ext := range screenshotExtensions {
		if strings.EqualFold(path.Ext(objectPath), ext) {
			contentType = mime
		}
	}
	return &StoredFile{File: file, ContentType: contentType, ExpiresAt: expiresAt}, nil
}

func (s *ScreenshotService) discard(name string) {
	if err := s.store.Delete(name); err != nil {
		s.logger.Warn("failed to remove orphaned screenshot", zap.String("object", name), zap.Error(err))
	}
}
