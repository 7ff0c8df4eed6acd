package store

import (
	"joeunedu/pkg/domain"
)

// Store defines persistence operations for users and site content documents.
type Store interface {
	// users
	SaveUser(domain.User) error
	HasUserEmail(email string) (bool, error)
	GetUserByEmail(email string) (domain.User, bool, error)
	GetUserByID(id string) (domain.User, bool, error)

	// stories
	SaveStory(domain.Story) error
	GetStory(id string) (domain.Story, bool, error)
	ListStoriesByStatus(status domain.StoryStatus) ([]domain.Story, error)

	// gallery
	SaveGalleryImage(domain.GalleryImage) error
	ListGalleryImages() ([]domain.GalleryImage, error)

	// news events
	SaveNewsEvent(domain.NewsEvent) error
	ListPublishedNewsEvents(limit int) ([]domain.NewsEvent, error)

	// resources
	SaveResource(domain.Resource) error
	GetResourceByFileID(fileID string) (domain.Resource, bool, error)
	ListResources() ([]domain.Resource, error)
}

// SessionStore issues and validates session tokens for the signup cookie.
type SessionStore interface {
	NewSession(userID string) (string, error)
	UserIDFromToken(token string) (string, bool, error)
}
