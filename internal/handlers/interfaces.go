package handlers

import (
	"context"

	"github.com/vidfriends/vidvault/internal/auth"
	"github.com/vidfriends/vidvault/internal/models"
	"github.com/vidfriends/vidvault/internal/videos"
)

// AccountService captures the account operations exposed over HTTP.
type AccountService interface {
	Register(ctx context.Context, in auth.RegisterInput) (models.User, error)
	VerifyEmail(ctx context.Context, token string) (models.User, error)
	Login(ctx context.Context, email, password string) (auth.Session, error)
	Refresh(ctx context.Context, token string) (auth.Session, error)
	UpdateProfile(ctx context.Context, bearer, userID string, update auth.ProfileUpdate) (models.User, error)
}

// VideoService captures the video operations exposed over HTTP.
type VideoService interface {
	Create(ctx context.Context, req videos.CreateRequest) (models.Video, error)
	Get(ctx context.Context, token, id string) (models.Video, error)
	ListByUser(ctx context.Context, token, userID string) ([]models.Video, error)
	Delete(ctx context.Context, token, id string) error
}

// Pinger reports whether a backing dependency is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}
