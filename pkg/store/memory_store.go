package store

import (
	"sync"

	"joeunedu/pkg/domain"
)

// MemoryStore keeps documents in-process. Used in tests and as a fallback
// when no database is configured.
type MemoryStore struct {
	mu            sync.RWMutex
	users         map[string]domain.User // key: user ID
	email         map[string]string      // email -> user ID
	stories       map[string]domain.Story
	storyOrder    []string
	gallery       []domain.GalleryImage
	news          []domain.NewsEvent
	resources     map[string]domain.Resource // key: resource ID
	resourceOrder []string
}

// NewMemoryStore initializes an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:     make(map[string]domain.User),
		email:     make(map[string]string),
		stories:   make(map[string]domain.Story),
		resources: make(map[string]domain.Resource),
	}
}

func (m *MemoryStore) SaveUser(u domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[u.ID] = u
	m.email[u.Email] = u.ID
	return nil
}

func (m *MemoryStore) HasUserEmail(email string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.email[email]
	return ok, nil
}

func (m *MemoryStore) GetUserByEmail(email string) (domain.User, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.email[email]
	if !ok {
		return domain.User{}, false, nil
	}
	u, ok := m.users[id]
	return u, ok, nil
}

func (m *MemoryStore) GetUserByID(id string) (domain.User, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.users[id]
	return u, ok, nil
}

func (m *MemoryStore) SaveStory(story domain.Story) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.stories[story.ID]; !exists {
		m.storyOrder = append(m.storyOrder, story.ID)
	}
	m.stories[story.ID] = story
	return nil
}

func (m *MemoryStore) GetStory(id string) (domain.Story, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.stories[id]
	return s, ok, nil
}

// ListStoriesByStatus returns matching stories in insertion order.
func (m *MemoryStore) ListStoriesByStatus(status domain.StoryStatus) ([]domain.Story, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]domain.Story, 0, len(m.storyOrder))
	for _, id := range m.storyOrder {
		if s, ok := m.stories[id]; ok && s.Status == status {
			out = append(out, s)
		}
	}
	return out, nil
}

func (m *MemoryStore) SaveGalleryImage(img domain.GalleryImage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.gallery = append(m.gallery, img)
	return nil
}

func (m *MemoryStore) ListGalleryImages() ([]domain.GalleryImage, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]domain.GalleryImage, len(m.gallery))
	copy(out, m.gallery)
	return out, nil
}

func (m *MemoryStore) SaveNewsEvent(event domain.NewsEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.news = append(m.news, event)
	return nil
}

func (m *MemoryStore) ListPublishedNewsEvents(limit int) ([]domain.NewsEvent, error) {
	if limit <= 0 {
		limit = 5
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]domain.NewsEvent, 0, limit)
	for _, e := range m.news {
		if e.Status != domain.NewsPublished {
			continue
		}
		out = append(out, e)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (m *MemoryStore) SaveResource(res domain.Resource) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.resources[res.ID]; !exists {
		m.resourceOrder = append(m.resourceOrder, res.ID)
	}
	m.resources[res.ID] = res
	return nil
}

func (m *MemoryStore) GetResourceByFileID(fileID string) (domain.Resource, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, res := range m.resources {
		if res.FileID == fileID {
			return res, true, nil
		}
	}
	return domain.Resource{}, false, nil
}

func (m *MemoryStore) ListResources() ([]domain.Resource, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]domain.Resource, 0, len(m.resourceOrder))
	for _, id := range m.resourceOrder {
		if res, ok := m.resources[id]; ok {
			out = append(out, res)
		}
	}
	return out, nil
}
