// Package images stores user-uploaded photos in the blob store and tracks
// them as datastore rows. Each image is an original plus an optional
// thumbnail, both addressed by account-scoped object keys. Presigned URLs
// are cached so repeated page loads do not re-sign every object.
package images

import (
	"context"
	"fmt"
	"io"
	"log"
	"log/slog"
	"path"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"

	"github.com/rangelog/rangelog/internal/blobstore"
	"github.com/rangelog/rangelog/internal/conf"
	"github.com/rangelog/rangelog/internal/datastore"
	"github.com/rangelog/rangelog/internal/errors"
	"github.com/rangelog/rangelog/internal/logging"
)

// Package-level logger specific to the image service
var (
	logger          *slog.Logger
	serviceLevelVar = new(slog.LevelVar)
	closeLogger     func() error
)

func init() {
	var err error
	logFilePath := filepath.Join("logs", "images.log")
	serviceLevelVar.Set(slog.LevelInfo)

	logger, closeLogger, err = logging.NewFileLogger(logFilePath, "images", serviceLevelVar)
	if err != nil {
		log.Printf("Failed to initialize images file logger at %s: %v. Service logging disabled.", logFilePath, err)
		fbHandler := slog.NewJSONHandler(io.Discard, &slog.HandlerOptions{Level: serviceLevelVar})
		logger = slog.New(fbHandler).With("service", "images")
		closeLogger = func() error { return nil }
	}
}

// keyExtPattern accepts short alphanumeric file extensions. Anything else
// is dropped from generated keys rather than rejected.
var keyExtPattern = regexp.MustCompile(`^\.[a-z0-9]{1,8}$`)

// NewKey mints a fresh account-scoped object key, preserving the lowercased
// extension of filename when it is safe to embed.
func NewKey(accountID uint, filename string) string {
	ext := strings.ToLower(path.Ext(filename))
	if !keyExtPattern.MatchString(ext) {
		ext = ""
	}
	return fmt.Sprintf("images/%d/%s%s", accountID, uuid.NewString(), ext)
}

// Upload is one file handed to Attach.
type Upload struct {
	Filename    string
	ContentType string
	Reader      io.Reader
}

// Service ties the blob store and the datastore image rows together.
type Service struct {
	store          blobstore.Store
	ds             datastore.Interface
	urlCache       *cache.Cache
	urlTTL         time.Duration
	maxUploadBytes int64
	debug          bool
}

// NewService creates the image service from settings. The presigned-URL
// cache TTL is clamped below the URL lifetime so cached URLs cannot outlive
// their signatures.
func NewService(settings *conf.Settings, ds datastore.Interface, store blobstore.Store) *Service {
	urlTTL := settings.Images.URLTTL
	if urlTTL <= 0 {
		urlTTL = 15 * time.Minute
	}
	cacheTTL := settings.Images.URLCacheTTL
	if cacheTTL <= 0 || cacheTTL >= urlTTL {
		cacheTTL = urlTTL / 2
	}

	maxUploadMB := settings.Images.MaxUploadMB
	if maxUploadMB <= 0 {
		maxUploadMB = 20
	}

	return &Service{
		store:          store,
		ds:             ds,
		urlCache:       cache.New(cacheTTL, cacheTTL*2),
		urlTTL:         urlTTL,
		maxUploadBytes: int64(maxUploadMB) * 1024 * 1024,
		debug:          settings.Images.Debug,
	}
}

// Attach stores the original and optional thumbnail in the blob store and
// records the image row under parent. Uploaded blobs are removed again if a
// later step fails, so a failed Attach leaves nothing behind.
func (s *Service) Attach(ctx context.Context, accountID uint, parent datastore.ImageParent, original Upload, thumb *Upload, caption string) (*datastore.Image, error) {
	if original.Reader == nil {
		return nil, errors.Newf("image upload requires content").
			Component("images").
			Category(errors.CategoryValidation).
			Build()
	}

	objectKey, err := s.putUpload(ctx, accountID, original)
	if err != nil {
		return nil, err
	}

	var thumbKey string
	if thumb != nil && thumb.Reader != nil {
		thumbKey, err = s.putUpload(ctx, accountID, *thumb)
		if err != nil {
			s.discardBlob(ctx, objectKey)
			return nil, err
		}
	}

	img := &datastore.Image{
		AccountID: accountID,
		ObjectKey: objectKey,
		ThumbKey:  thumbKey,
		Caption:   caption,
	}
	if err := img.SetParent(parent); err != nil {
		s.discardBlob(ctx, objectKey)
		s.discardBlob(ctx, thumbKey)
		return nil, err
	}
	if err := s.ds.SaveImage(img); err != nil {
		s.discardBlob(ctx, objectKey)
		s.discardBlob(ctx, thumbKey)
		return nil, err
	}

	if s.debug {
		logger.Debug("image attached",
			"account_id", accountID,
			"parent_kind", parent.Kind,
			"parent_id", parent.ID,
			"object_key", objectKey,
			"thumb", thumbKey != "")
	}
	return img, nil
}

// putUpload streams one upload into the blob store under a fresh key,
// enforcing the configured size limit.
func (s *Service) putUpload(ctx context.Context, accountID uint, up Upload) (string, error) {
	key := NewKey(accountID, up.Filename)
	limited := io.LimitReader(up.Reader, s.maxUploadBytes+1)

	info, err := s.store.Put(ctx, key, limited, blobstore.PutOptions{
		ContentType: up.ContentType,
		Metadata:    map[string]string{"filename": path.Base(up.Filename)},
	})
	if err != nil {
		return "", errors.New(err).
			Component("images").
			Category(errors.CategoryObjectStore).
			Context("operation", "put_upload").
			Context("object_key", key).
			Build()
	}
	if info.Size > s.maxUploadBytes {
		s.discardBlob(ctx, key)
		return "", errors.Newf("image %s exceeds upload limit of %d bytes", up.Filename, s.maxUploadBytes).
			Component("images").
			Category(errors.CategoryValidation).
			Context("size_bytes", info.Size).
			Build()
	}
	return key, nil
}

// Remove deletes the image row, then its blobs. The row is authoritative,
// blob deletes failing afterwards only leaves orphaned objects behind and
// is logged rather than surfaced.
func (s *Service) Remove(ctx context.Context, accountID uint, imageID uint) error {
	img, err := s.ds.GetImage(accountID, imageID)
	if err != nil {
		return err
	}
	if err := s.ds.DeleteImage(accountID, imageID); err != nil {
		return err
	}
	for _, key := range img.BlobKeys() {
		s.discardBlob(ctx, key)
		s.urlCache.Delete(key)
	}
	return nil
}

// PresignedURL returns a URL for the object key, serving from the cache
// when a previously signed URL is still comfortably within its lifetime.
func (s *Service) PresignedURL(ctx context.Context, key string) (string, error) {
	if cached, found := s.urlCache.Get(key); found {
		if u, ok := cached.(string); ok {
			return u, nil
		}
	}
	u, err := s.store.PresignURL(ctx, key, blobstore.SignedURLOptions{Expiry: s.urlTTL})
	if err != nil {
		return "", err
	}
	s.urlCache.Set(key, u, cache.DefaultExpiration)
	return u, nil
}

// discardBlob best-effort deletes a blob written by this service.
func (s *Service) discardBlob(ctx context.Context, key string) {
	if key == "" {
		return
	}
	if _, err := s.store.Delete(ctx, key); err != nil {
		logger.Warn("failed to delete image blob", "object_key", key, "error", err)
	}
}

// FlushURLCache drops all cached presigned URLs.
func (s *Service) FlushURLCache() {
	s.urlCache.Flush()
}

// CloseLogger releases the package log file.
func CloseLogger() error {
	if closeLogger != nil {
		return closeLogger()
	}
	return nil
}
