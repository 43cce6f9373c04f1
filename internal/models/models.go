package models

import "time"

// User represents an account that owns uploaded videos.
type User struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	Password     string    `json:"-"`
	RefreshToken string    `json:"-"`
	IsActive     bool      `json:"isActive"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Video is the persisted metadata for an uploaded video object.
type Video struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	URL         string    `json:"url"`
	OwnerID     string    `json:"user_ids"`
	Size        int64     `json:"size"`
	CreatedAt   time.Time `json:"created_at"`
}

// ObjectKey returns the object store key backing the video.
func (v Video) ObjectKey() string {
	return ObjectKeyFor(v.ID)
}

// ObjectKeyFor derives the object store key for a video identifier.
func ObjectKeyFor(id string) string {
	return id + ".mp4"
}
