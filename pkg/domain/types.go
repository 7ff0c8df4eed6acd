package domain

import "time"

type StoryStatus string

const (
	StoryPending  StoryStatus = "pending"
	StoryApproved StoryStatus = "approved"
	StoryRejected StoryStatus = "rejected"
)

type NewsStatus string

const (
	NewsPublished NewsStatus = "published"
	NewsDraft     NewsStatus = "draft"
)

// Story is a student testimonial. Public submissions always start pending;
// approval happens out-of-band in the admin dashboard.
type Story struct {
	ID         string      `json:"id"`
	Name       string      `json:"name"`
	Program    string      `json:"program"`
	University string      `json:"university"`
	Content    string      `json:"content"`
	Rating     int         `json:"rating"`
	ImageID    string      `json:"imageId,omitempty"`
	ImageURL   string      `json:"imageUrl,omitempty"`
	Status     StoryStatus `json:"status"`
	CreatedAt  time.Time   `json:"createdAt"`
	UpdatedAt  time.Time   `json:"updatedAt"`
}

// GalleryImage stores only the opaque file ID; the display URL is derived
// on every read and never persisted.
type GalleryImage struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	ImageID   string    `json:"imageId"`
	URL       string    `json:"url,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

type NewsEvent struct {
	ID        string     `json:"id"`
	Title     string     `json:"title"`
	Type      string     `json:"type"`
	Content   string     `json:"content"`
	Date      time.Time  `json:"date"`
	Status    NewsStatus `json:"status"`
	CreatedAt time.Time  `json:"createdAt"`
}

// Resource is downloadable file metadata backed by an object in the
// resources bucket.
type Resource struct {
	ID          string            `json:"id"`
	Name        string            `json:"name"`
	Description string            `json:"description,omitempty"`
	Type        string            `json:"type"`
	SizeBytes   int64             `json:"sizeBytes"`
	FileID      string            `json:"fileId"`
	MimeType    string            `json:"mimeType,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`
	CreatedAt   time.Time         `json:"createdAt"`
}

// ChatMessage is one turn of a chat session. History lives only in the
// client; the full list so far is replayed on every request.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
)

type User struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}
