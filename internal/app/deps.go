package app

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/vidfriends/vidvault/internal/auth"
	"github.com/vidfriends/vidvault/internal/config"
	"github.com/vidfriends/vidvault/internal/db"
	"github.com/vidfriends/vidvault/internal/handlers"
	"github.com/vidfriends/vidvault/internal/mailer"
	"github.com/vidfriends/vidvault/internal/middleware"
	"github.com/vidfriends/vidvault/internal/repositories"
	"github.com/vidfriends/vidvault/internal/storage"
	"github.com/vidfriends/vidvault/internal/videos"
)

const rateLimitIdleTTL = 10 * time.Minute

// buildDependencies wires together concrete implementations used by the HTTP handlers.
func buildDependencies(ctx context.Context, pool db.Pool, cfg config.Config, logger *slog.Logger) (handlers.Dependencies, error) {
	authority, err := auth.NewAuthority(cfg.Tokens)
	if err != nil {
		return handlers.Dependencies{}, err
	}

	var verificationMailer auth.Mailer = mailer.LogMailer{}
	if strings.TrimSpace(cfg.Mail.Host) != "" {
		smtpMailer, err := mailer.NewSMTPMailer(cfg.Mail)
		if err != nil {
			return handlers.Dependencies{}, err
		}
		verificationMailer = smtpMailer
	}

	gateway, err := storage.NewS3Gateway(ctx, cfg.ObjectStore)
	if err != nil {
		return handlers.Dependencies{}, err
	}

	accounts := auth.NewService(
		repositories.NewPostgresUserRepository(pool),
		authority,
		auth.NewBcryptHasher(auth.DefaultBcryptCost),
		verificationMailer,
		cfg.ClientURL,
	)

	videoService := videos.NewService(
		authority,
		repositories.NewPostgresVideoRepository(pool),
		gateway,
		videos.NewFFmpegTranscoder(cfg.Transcode.FFmpegPath, cfg.Transcode.Timeout),
	)

	return handlers.Dependencies{
		Accounts: accounts,
		Videos:   videoService,
		DB:       pool,
		Limiter:  middleware.NewKeyedLimiter(cfg.RateLimit, rateLimitIdleTTL),
		Logger:   logger,
	}, nil
}
