package repositories

import (
	"context"
	"sort"
	"sync"

	"github.com/vidfriends/vidvault/internal/models"
)

// NewInMemoryUserRepository returns a UserRepository backed by an in-memory map.
func NewInMemoryUserRepository() *InMemoryUserRepository {
	return &InMemoryUserRepository{users: make(map[string]models.User)}
}

// InMemoryUserRepository implements UserRepository for tests and local development.
type InMemoryUserRepository struct {
	mu    sync.RWMutex
	users map[string]models.User
}

// Create persists the provided user, rejecting duplicate ids and emails.
func (r *InMemoryUserRepository) Create(_ context.Context, user models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.users[user.ID]; ok {
		return ErrConflict
	}
	for _, existing := range r.users {
		if existing.Email == user.Email {
			return ErrConflict
		}
	}
	r.users[user.ID] = user
	return nil
}

// FindByEmail retrieves a user by email.
func (r *InMemoryUserRepository) FindByEmail(_ context.Context, email string) (models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, user := range r.users {
		if user.Email == email {
			return user, nil
		}
	}
	return models.User{}, ErrNotFound
}

// FindByID retrieves a user by identifier.
func (r *InMemoryUserRepository) FindByID(_ context.Context, id string) (models.User, error) {
	r.mu.RLock()
	user, ok := r.users[id]
	r.mu.RUnlock()
	if !ok {
		return models.User{}, ErrNotFound
	}
	return user, nil
}

// Activate marks the user as verified.
func (r *InMemoryUserRepository) Activate(_ context.Context, id string) error {
	return r.mutate(id, func(u *models.User) { u.IsActive = true })
}

// SetRefreshToken overwrites the user's refresh token slot.
func (r *InMemoryUserRepository) SetRefreshToken(_ context.Context, id, token string) error {
	return r.mutate(id, func(u *models.User) { u.RefreshToken = token })
}

// UpdateProfile writes the mutable profile fields.
func (r *InMemoryUserRepository) UpdateProfile(_ context.Context, user models.User) error {
	return r.mutate(user.ID, func(u *models.User) {
		u.Name = user.Name
		u.Password = user.Password
	})
}

func (r *InMemoryUserRepository) mutate(id string, fn func(*models.User)) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	user, ok := r.users[id]
	if !ok {
		return ErrNotFound
	}
	fn(&user)
	r.users[id] = user
	return nil
}

// NewInMemoryVideoRepository returns a VideoRepository backed by an in-memory map.
func NewInMemoryVideoRepository() *InMemoryVideoRepository {
	return &InMemoryVideoRepository{videos: make(map[string]models.Video)}
}

// InMemoryVideoRepository implements VideoRepository for tests and local development.
type InMemoryVideoRepository struct {
	mu     sync.RWMutex
	videos map[string]models.Video
}

// Create stores a new video record.
func (r *InMemoryVideoRepository) Create(_ context.Context, video models.Video) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.videos[video.ID]; ok {
		return ErrConflict
	}
	r.videos[video.ID] = video
	return nil
}

// FindByID loads a video record.
func (r *InMemoryVideoRepository) FindByID(_ context.Context, id string) (models.Video, error) {
	r.mu.RLock()
	video, ok := r.videos[id]
	r.mu.RUnlock()
	if !ok {
		return models.Video{}, ErrNotFound
	}
	return video, nil
}

// ListByOwner returns the owner's videos, newest first.
func (r *InMemoryVideoRepository) ListByOwner(_ context.Context, ownerID string) ([]models.Video, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	videos := make([]models.Video, 0)
	for _, video := range r.videos {
		if video.OwnerID == ownerID {
			videos = append(videos, video)
		}
	}
	sort.Slice(videos, func(i, j int) bool { return videos[i].CreatedAt.After(videos[j].CreatedAt) })
	return videos, nil
}

// Delete removes a video record.
func (r *InMemoryVideoRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.videos[id]; !ok {
		return ErrNotFound
	}
	delete(r.videos, id)
	return nil
}

var _ UserRepository = (*InMemoryUserRepository)(nil)
var _ VideoRepository = (*InMemoryVideoRepository)(nil)
