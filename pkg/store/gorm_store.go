package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"gorm.io/datatypes"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"joeunedu/pkg/domain"
)

// GormStore implements Store using GORM + Postgres.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore opens the DB and runs auto-migrations.
func NewGormStore(dsn string) (*GormStore, error) {
	gormLog := gormlogger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		gormlogger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  gormlogger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{Logger: gormLog})
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if err := db.AutoMigrate(
		&UserModel{},
		&StoryModel{},
		&GalleryImageModel{},
		&NewsEventModel{},
		&ResourceModel{},
	); err != nil {
		return nil, fmt.Errorf("auto migrate: %w", err)
	}
	return &GormStore{db: db}, nil
}

// users

func (s *GormStore) SaveUser(u domain.User) error {
	model := UserModel{
		ID:           u.ID,
		Name:         u.Name,
		Email:        u.Email,
		PasswordHash: u.PasswordHash,
		CreatedAt:    u.CreatedAt,
		UpdatedAt:    u.UpdatedAt,
	}
	if err := s.db.Save(&model).Error; err != nil {
		return fmt.Errorf("save user: %w", err)
	}
	return nil
}

func (s *GormStore) HasUserEmail(email string) (bool, error) {
	var count int64
	if err := s.db.Model(&UserModel{}).Where("email = ?", email).Count(&count).Error; err != nil {
		return false, fmt.Errorf("count user email: %w", err)
	}
	return count > 0, nil
}

func (s *GormStore) GetUserByEmail(email string) (domain.User, bool, error) {
	var model UserModel
	err := s.db.Where("email = ?", email).First(&model).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.User{}, false, nil
	}
	if err != nil {
		return domain.User{}, false, fmt.Errorf("get user by email: %w", err)
	}
	return userFromModel(model), true, nil
}

func (s *GormStore) GetUserByID(id string) (domain.User, bool, error) {
	var model UserModel
	err := s.db.Where("id = ?", id).First(&model).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.User{}, false, nil
	}
	if err != nil {
		return domain.User{}, false, fmt.Errorf("get user: %w", err)
	}
	return userFromModel(model), true, nil
}

// stories

func (s *GormStore) SaveStory(story domain.Story) error {
	model := StoryModel{
		ID:         story.ID,
		Name:       story.Name,
		Program:    story.Program,
		University: story.University,
		Content:    story.Content,
		Rating:     story.Rating,
		ImageID:    story.ImageID,
		Status:     string(story.Status),
		CreatedAt:  story.CreatedAt,
		UpdatedAt:  story.UpdatedAt,
	}
	if err := s.db.Save(&model).Error; err != nil {
		return fmt.Errorf("save story: %w", err)
	}
	return nil
}

func (s *GormStore) GetStory(id string) (domain.Story, bool, error) {
	var model StoryModel
	err := s.db.Where("id = ?", id).First(&model).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.Story{}, false, nil
	}
	if err != nil {
		return domain.Story{}, false, fmt.Errorf("get story: %w", err)
	}
	return storyFromModel(model), true, nil
}

func (s *GormStore) ListStoriesByStatus(status domain.StoryStatus) ([]domain.Story, error) {
	var models []StoryModel
	if err := s.db.Where("status = ?", string(status)).Order("created_at DESC").Find(&models).Error; err != nil {
		return nil, fmt.Errorf("list stories: %w", err)
	}
	out := make([]domain.Story, 0, len(models))
	for _, m := range models {
		out = append(out, storyFromModel(m))
	}
	return out, nil
}

// gallery

func (s *GormStore) SaveGalleryImage(img domain.GalleryImage) error {
	model := GalleryImageModel{
		ID:        img.ID,
		Title:     img.Title,
		ImageID:   img.ImageID,
		CreatedAt: img.CreatedAt,
	}
	if err := s.db.Save(&model).Error; err != nil {
		return fmt.Errorf("save gallery image: %w", err)
	}
	return nil
}

func (s *GormStore) ListGalleryImages() ([]domain.GalleryImage, error) {
	var models []GalleryImageModel
	if err := s.db.Order("created_at DESC").Find(&models).Error; err != nil {
		return nil, fmt.Errorf("list gallery images: %w", err)
	}
	out := make([]domain.GalleryImage, 0, len(models))
	for _, m := range models {
		out = append(out, domain.GalleryImage{
			ID:        m.ID,
			Title:     m.Title,
			ImageID:   m.ImageID,
			CreatedAt: m.CreatedAt,
		})
	}
	return out, nil
}

// news events

func (s *GormStore) SaveNewsEvent(event domain.NewsEvent) error {
	model := NewsEventModel{
		ID:        event.ID,
		Title:     event.Title,
		Type:      event.Type,
		Content:   event.Content,
		Date:      event.Date,
		Status:    string(event.Status),
		CreatedAt: event.CreatedAt,
	}
	if err := s.db.Save(&model).Error; err != nil {
		return fmt.Errorf("save news event: %w", err)
	}
	return nil
}

func (s *GormStore) ListPublishedNewsEvents(limit int) ([]domain.NewsEvent, error) {
	if limit <= 0 {
		limit = 5
	}
	var models []NewsEventModel
	err := s.db.Where("status = ?", string(domain.NewsPublished)).
		Order("date DESC").
		Limit(limit).
		Find(&models).Error
	if err != nil {
		return nil, fmt.Errorf("list news events: %w", err)
	}
	out := make([]domain.NewsEvent, 0, len(models))
	for _, m := range models {
		out = append(out, domain.NewsEvent{
			ID:        m.ID,
			Title:     m.Title,
			Type:      m.Type,
			Content:   m.Content,
			Date:      m.Date,
			Status:    domain.NewsStatus(m.Status),
			CreatedAt: m.CreatedAt,
		})
	}
	return out, nil
}

// resources

func (s *GormStore) SaveResource(res domain.Resource) error {
	var metadata datatypes.JSON
	if len(res.Metadata) > 0 {
		raw, err := json.Marshal(res.Metadata)
		if err != nil {
			return fmt.Errorf("encode resource metadata: %w", err)
		}
		metadata = datatypes.JSON(raw)
	}
	model := ResourceModel{
		ID:          res.ID,
		Name:        res.Name,
		Description: res.Description,
		Type:        res.Type,
		SizeBytes:   res.SizeBytes,
		FileID:      res.FileID,
		MimeType:    res.MimeType,
		Metadata:    metadata,
		CreatedAt:   res.CreatedAt,
	}
	if err := s.db.Save(&model).Error; err != nil {
		return fmt.Errorf("save resource: %w", err)
	}
	return nil
}

func (s *GormStore) GetResourceByFileID(fileID string) (domain.Resource, bool, error) {
	var model ResourceModel
	err := s.db.Where("file_id = ?", fileID).First(&model).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.Resource{}, false, nil
	}
	if err != nil {
		return domain.Resource{}, false, fmt.Errorf("get resource: %w", err)
	}
	return resourceFromModel(model), true, nil
}

func (s *GormStore) ListResources() ([]domain.Resource, error) {
	var models []ResourceModel
	if err := s.db.Order("created_at DESC").Find(&models).Error; err != nil {
		return nil, fmt.Errorf("list resources: %w", err)
	}
	out := make([]domain.Resource, 0, len(models))
	for _, m := range models {
		out = append(out, resourceFromModel(m))
	}
	return out, nil
}

func userFromModel(m UserModel) domain.User {
	return domain.User{
		ID:           m.ID,
		Name:         m.Name,
		Email:        m.Email,
		PasswordHash: m.PasswordHash,
		CreatedAt:    m.CreatedAt,
		UpdatedAt:    m.UpdatedAt,
	}
}

func storyFromModel(m StoryModel) domain.Story {
	return domain.Story{
		ID:         m.ID,
		Name:       m.Name,
		Program:    m.Program,
		University: m.University,
		Content:    m.Content,
		Rating:     m.Rating,
		ImageID:    m.ImageID,
		Status:     domain.StoryStatus(m.Status),
		CreatedAt:  m.CreatedAt,
		UpdatedAt:  m.UpdatedAt,
	}
}

func resourceFromModel(m ResourceModel) domain.Resource {
	res := domain.Resource{
		ID:          m.ID,
		Name:        m.Name,
		Description: m.Description,
		Type:        m.Type,
		SizeBytes:   m.SizeBytes,
		FileID:      m.FileID,
		MimeType:    m.MimeType,
		CreatedAt:   m.CreatedAt,
	}
	if len(m.Metadata) > 0 {
		meta := map[string]string{}
		if err := json.Unmarshal(m.Metadata, &meta); err == nil {
			res.Metadata = meta
		}
	}
	return res
}
