package videos

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/vidfriends/vidvault/internal/apperrors"
	"github.com/vidfriends/vidvault/internal/auth"
	"github.com/vidfriends/vidvault/internal/logging"
	"github.com/vidfriends/vidvault/internal/models"
	"github.com/vidfriends/vidvault/internal/repositories"
)

// TokenVerifier decodes bearer tokens.
type TokenVerifier interface {
	Verify(kind auth.TokenKind, token string) (auth.Claims, error)
}

// Transcoder normalises a video stream to MP4.
type Transcoder interface {
	ConvertToMP4(ctx context.Context, input io.Reader) ([]byte, error)
}

// ObjectStore stores and removes video objects.
type ObjectStore interface {
	Upload(ctx context.Context, key string, body io.Reader) (string, error)
	Delete(ctx context.Context, key string) error
	URL(key string) string
}

// Store persists video metadata.
type Store interface {
	Create(ctx context.Context, video models.Video) error
	FindByID(ctx context.Context, id string) (models.Video, error)
	ListByOwner(ctx context.Context, ownerID string) ([]models.Video, error)
	Delete(ctx context.Context, id string) error
}

// Upload is an uploaded file as declared by the client.
type Upload struct {
	Size      int64
	MediaType string
	Body      io.Reader
}

// CreateRequest carries everything needed to ingest a video.
type CreateRequest struct {
	Token       string
	Title       string
	Description string
	OwnerID     string
	File        *Upload
}

// Service runs the ingestion pipeline and the owner-gated read and delete flows.
type Service struct {
	tokens     TokenVerifier
	store      Store
	objects    ObjectStore
	transcoder Transcoder
	now        func() time.Time
	newID      func() string
}

// NewService wires the video service.
func NewService(tokens TokenVerifier, store Store, objects ObjectStore, transcoder Transcoder) *Service {
	return &Service{
		tokens:     tokens,
		store:      store,
		objects:    objects,
		transcoder: transcoder,
		now:        func() time.Time { return time.Now().UTC() },
		newID:      uuid.NewString,
	}
}

// Create validates, optionally transcodes, records and uploads a video.
//
// Transcoding happens before the record is written, so a failed conversion
// leaves nothing behind. A failed upload after the record is written is logged
// and reported but not rolled back.
func (s *Service) Create(ctx context.Context, req CreateRequest) (models.Video, error) {
	if strings.TrimSpace(auth.StripBearer(req.Token)) == "" {
		return models.Video{}, apperrors.Unauthorized("missing token")
	}
	if strings.TrimSpace(req.Title) == "" || strings.TrimSpace(req.Description) == "" ||
		strings.TrimSpace(req.OwnerID) == "" || req.File == nil || req.File.Body == nil {
		return models.Video{}, apperrors.BadRequest("missing required fields")
	}

	claims, err := s.authenticate(req.Token)
	if err != nil {
		return models.Video{}, err
	}
	if claims.UserID != req.OwnerID {
		return models.Video{}, apperrors.Unauthorized("invalid user")
	}

	if !IsSizeValid(req.File.Size) {
		return models.Video{}, apperrors.BadRequest(fmt.Sprintf("file too large, the maximum file size is %dMB", MaxUploadSize/(1024*1024)))
	}
	if !IsVideoFile(req.File.MediaType) {
		return models.Video{}, apperrors.BadRequest("invalid file format")
	}

	// Authorized work runs to completion even if the caller goes away.
	ctx = logging.WithUserID(context.WithoutCancel(ctx), claims.UserID)
	ctx, span := logging.StartSpan(ctx, "videos.create", "mediaType", req.File.MediaType, "size", req.File.Size)
	defer span.End()
	logger := logging.FromContext(ctx)

	body, err := s.prepare(ctx, req.File)
	if err != nil {
		span.Fail(err)
		return models.Video{}, err
	}

	id := s.newID()
	video := models.Video{
		ID:          id,
		Title:       strings.TrimSpace(req.Title),
		Description: strings.TrimSpace(req.Description),
		URL:         s.objects.URL(models.ObjectKeyFor(id)),
		OwnerID:     req.OwnerID,
		Size:        req.File.Size,
		CreatedAt:   s.now(),
	}

	if err := s.store.Create(ctx, video); err != nil {
		span.Fail(err)
		return models.Video{}, apperrors.Internal("save video", err)
	}

	if err := s.upload(ctx, video.ObjectKey(), body); err != nil {
		span.Fail(err)
		logger.Error("upload failed after metadata commit; record is orphaned",
			"videoId", video.ID, "key", video.ObjectKey(), "error", err)
		return models.Video{}, apperrors.Internal("upload video", err)
	}

	logger.Info("video ingested", "videoId", video.ID, "ownerId", video.OwnerID, "size", video.Size)
	return video, nil
}

func (s *Service) upload(ctx context.Context, key string, body io.Reader) error {
	ctx, span := logging.StartSpan(ctx, "videos.upload", "key", key)
	defer span.End()

	_, err := s.objects.Upload(ctx, key, body)
	span.Fail(err)
	return err
}

// prepare returns the MP4 bytes to upload, transcoding when needed.
func (s *Service) prepare(ctx context.Context, file *Upload) (io.Reader, error) {
	if IsMP4File(file.MediaType) {
		return file.Body, nil
	}

	ctx, span := logging.StartSpan(ctx, "videos.transcode")
	defer span.End()

	if s.transcoder == nil {
		return nil, apperrors.Internal("transcode video", ErrTranscoderUnavailable)
	}
	out, err := s.transcoder.ConvertToMP4(ctx, file.Body)
	if err != nil {
		span.Fail(err)
		return nil, apperrors.Internal("transcode video", err)
	}
	return bytes.NewReader(out), nil
}

// Get returns a single video owned by the caller.
func (s *Service) Get(ctx context.Context, token, id string) (models.Video, error) {
	claims, err := s.requireToken(token)
	if err != nil {
		return models.Video{}, err
	}

	video, err := s.load(ctx, id)
	if err != nil {
		return models.Video{}, err
	}
	if video.OwnerID != claims.UserID {
		return models.Video{}, apperrors.Unauthorized("invalid user")
	}
	return video, nil
}

// ListByUser returns the videos of userID, which must be the caller.
func (s *Service) ListByUser(ctx context.Context, token, userID string) ([]models.Video, error) {
	claims, err := s.requireToken(token)
	if err != nil {
		return nil, err
	}
	if claims.UserID != userID {
		return nil, apperrors.Unauthorized("invalid user")
	}

	videos, err := s.store.ListByOwner(ctx, userID)
	if err != nil {
		return nil, apperrors.Internal("list videos", err)
	}
	return videos, nil
}

// Delete removes a video's record and then its object. A failed object
// delete after the record is gone is logged and reported but not rolled back.
func (s *Service) Delete(ctx context.Context, token, id string) error {
	claims, err := s.requireToken(token)
	if err != nil {
		return err
	}

	video, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	if video.OwnerID != claims.UserID {
		return apperrors.Unauthorized("only the owner can delete")
	}

	ctx = logging.WithUserID(context.WithoutCancel(ctx), claims.UserID)
	ctx, span := logging.StartSpan(ctx, "videos.delete", "videoId", video.ID)
	defer span.End()
	logger := logging.FromContext(ctx)

	if err := s.store.Delete(ctx, video.ID); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return apperrors.NotFound("video not found")
		}
		span.Fail(err)
		return apperrors.Internal("delete video record", err)
	}

	if err := s.objects.Delete(ctx, video.ObjectKey()); err != nil {
		span.Fail(err)
		logger.Error("object delete failed after metadata delete; object is orphaned",
			"videoId", video.ID, "key", video.ObjectKey(), "error", err)
		return apperrors.Internal("delete video object", err)
	}

	logger.Info("video deleted", "videoId", video.ID)
	return nil
}

func (s *Service) requireToken(token string) (auth.Claims, error) {
	if strings.TrimSpace(auth.StripBearer(token)) == "" {
		return auth.Claims{}, apperrors.Unauthorized("missing token")
	}
	return s.authenticate(token)
}

func (s *Service) authenticate(token string) (auth.Claims, error) {
	claims, err := s.tokens.Verify(auth.TokenAccess, token)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidToken) {
			return auth.Claims{}, apperrors.Unauthorized(err.Error())
		}
		return auth.Claims{}, apperrors.Internal("verify token", err)
	}
	return claims, nil
}

func (s *Service) load(ctx context.Context, id string) (models.Video, error) {
	video, err := s.store.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return models.Video{}, apperrors.NotFound("video not found")
		}
		return models.Video{}, apperrors.Internal("load video", err)
	}
	return video, nil
}
