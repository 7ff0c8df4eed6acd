package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"joeunedu/internal/intent"
	"joeunedu/internal/listing"
	"joeunedu/pkg/ai"
	"joeunedu/pkg/auth"
	"joeunedu/pkg/domain"
	"joeunedu/pkg/storage"
	"joeunedu/pkg/store"
)

const (
	storyThumbWidth  = 200
	storyThumbHeight = 200
)

// Buckets names the file buckets backing each image-bearing feature.
type Buckets struct {
	Stories   string
	Gallery   string
	Resources string
}

// Config holds runtime dependencies for the core application.
type Config struct {
	Store          store.Store
	Sessions       store.SessionStore
	StoryFiles     storage.ObjectStore
	ResourceFiles  storage.ObjectStore
	URLs           *storage.FileURLBuilder
	Completer      ai.ChatCompleter
	Intents        *intent.Resolver
	Buckets        Buckets
	ImageExts      []string
	NewsFetchLimit int
	TickerInterval time.Duration
}

// App is the core application service wiring storage, intents and the LLM
// proxy behind the HTTP surface.
type App struct {
	store          store.Store
	sessions       store.SessionStore
	storyFiles     storage.ObjectStore
	resourceFiles  storage.ObjectStore
	urls           *storage.FileURLBuilder
	completer      ai.ChatCompleter
	intents        *intent.Resolver
	buckets        Buckets
	imageExts      map[string]struct{}
	newsFetchLimit int
	ticker         *listing.Ticker
}

// New constructs the application.
func New(cfg Config) (*App, error) {
	if cfg.Store == nil {
		return nil, fmt.Errorf("store required")
	}
	if cfg.Sessions == nil {
		return nil, fmt.Errorf("session store required")
	}
	if cfg.URLs == nil {
		return nil, fmt.Errorf("file url builder required")
	}
	if cfg.Completer == nil {
		return nil, fmt.Errorf("chat completer required")
	}
	intents := cfg.Intents
	if intents == nil {
		intents = intent.NewResolver(intent.DefaultConsultancyInfo())
	}
	newsFetchLimit := cfg.NewsFetchLimit
	if newsFetchLimit <= 0 {
		newsFetchLimit = 5
	}
	return &App{
		store:          cfg.Store,
		sessions:       cfg.Sessions,
		storyFiles:     cfg.StoryFiles,
		resourceFiles:  cfg.ResourceFiles,
		urls:           cfg.URLs,
		completer:      cfg.Completer,
		intents:        intents,
		buckets:        cfg.Buckets,
		imageExts:      normalizeExtensions(cfg.ImageExts),
		newsFetchLimit: newsFetchLimit,
		ticker:         listing.NewTicker(nil, cfg.TickerInterval),
	}, nil
}

// ChatReply resolves one chat turn: recognized intents answer from the
// canned table without touching the LLM; everything else is forwarded with
// the full conversation history.
func (a *App) ChatReply(ctx context.Context, message string, history []domain.ChatMessage) (string, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return "", ErrEmptyMessage
	}
	if reply, matched := a.intents.Resolve(message); matched {
		return reply, nil
	}
	reply, err := a.completer.Complete(ctx, history, message)
	if err != nil {
		return "", fmt.Errorf("complete chat turn: %w", err)
	}
	return reply, nil
}

// StorySubmission carries the multipart fields of a story submission.
type StorySubmission struct {
	Name       string
	Program    string
	University string
	Content    string
	Rating     int

	// Optional photo. File is nil when no photo was attached.
	File        io.Reader
	Filename    string
	SizeBytes   int64
	ContentType string
}

// SubmitStory uploads the optional photo and creates the story document
// with status forced to pending regardless of any client-supplied value.
// Upload-then-create is not transactional; a failed create triggers a
// best-effort delete of the just-uploaded object.
func (a *App) SubmitStory(ctx context.Context, sub StorySubmission) (domain.Story, error) {
	sub.Name = strings.TrimSpace(sub.Name)
	sub.Program = strings.TrimSpace(sub.Program)
	sub.University = strings.TrimSpace(sub.University)
	sub.Content = strings.TrimSpace(sub.Content)
	if sub.Name == "" || sub.Program == "" || sub.University == "" || sub.Content == "" {
		return domain.Story{}, ErrMissingFields
	}
	if sub.Rating < 1 || sub.Rating > 5 {
		return domain.Story{}, ErrInvalidRating
	}

	imageID := ""
	if sub.File != nil {
		if !a.isImageAllowed(sub.Filename) {
			return domain.Story{}, ErrUnsupportedImage
		}
		if a.storyFiles == nil {
			return domain.Story{}, fmt.Errorf("story file storage not configured")
		}
		imageID = store.NewID() + strings.ToLower(filepath.Ext(sub.Filename))
		if err := a.storyFiles.Put(ctx, imageID, sub.File, sub.SizeBytes, sub.ContentType); err != nil {
			return domain.Story{}, fmt.Errorf("upload story image: %w", err)
		}
	}

	now := time.Now().UTC()
	story := domain.Story{
		ID:         store.NewID(),
		Name:       sub.Name,
		Program:    sub.Program,
		University: sub.University,
		Content:    sub.Content,
		Rating:     sub.Rating,
		ImageID:    imageID,
		Status:     domain.StoryPending,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := a.store.SaveStory(story); err != nil {
		if imageID != "" {
			if delErr := a.storyFiles.Delete(ctx, imageID); delErr != nil {
				slog.Warn("orphaned story image after failed create",
					"image_id", imageID, "err", delErr)
			}
		}
		return domain.Story{}, fmt.Errorf("create story: %w", err)
	}
	return story, nil
}

// ApprovedStories returns approved stories with display URLs resolved,
// optionally filtered by a case-insensitive substring across the text
// fields. Only approved records are ever served publicly.
func (a *App) ApprovedStories(search string) ([]domain.Story, error) {
	stories, err := a.store.ListStoriesByStatus(domain.StoryApproved)
	if err != nil {
		return nil, fmt.Errorf("list approved stories: %w", err)
	}
	stories = listing.Search(stories, search, func(s domain.Story) []string {
		return []string{s.Name, s.Program, s.University, s.Content}
	})
	for i := range stories {
		stories[i].ImageURL = a.urls.FileURL(stories[i].ImageID, a.buckets.Stories, storyThumbWidth, storyThumbHeight)
	}
	return stories, nil
}

// Gallery returns gallery images with display URLs resolved, optionally
// filtered by title substring. URLs are recomputed on every call and never
// persisted.
func (a *App) Gallery(search string) ([]domain.GalleryImage, error) {
	images, err := a.store.ListGalleryImages()
	if err != nil {
		return nil, fmt.Errorf("list gallery images: %w", err)
	}
	images = listing.Search(images, search, func(img domain.GalleryImage) []string {
		return []string{img.Title}
	})
	for i := range images {
		images[i].URL = a.urls.FileURL(images[i].ImageID, a.buckets.Gallery, 0, 0)
	}
	return images, nil
}

// GalleryTracks splits the gallery into the two carousel tracks.
func (a *App) GalleryTracks(search string) (first, second []domain.GalleryImage, err error) {
	images, err := a.Gallery(search)
	if err != nil {
		return nil, nil, err
	}
	first, second = listing.SplitHalves(images)
	return first, second, nil
}

// NewsEvents returns published news events, newest first. An empty feed
// yields the standing welcome item so the ticker always has something to
// show.
func (a *App) NewsEvents(limit int) ([]domain.NewsEvent, error) {
	if limit <= 0 {
		limit = a.newsFetchLimit
	}
	events, err := a.store.ListPublishedNewsEvents(limit)
	if err != nil {
		return nil, fmt.Errorf("list news events: %w", err)
	}
	if len(events) == 0 {
		return []domain.NewsEvent{listing.FallbackNewsEvent()}, nil
	}
	return events, nil
}

// RefreshNewsTicker reloads the ticker rotation set from the store. An
// empty or failed read leaves the current set in place.
func (a *App) RefreshNewsTicker() error {
	events, err := a.store.ListPublishedNewsEvents(a.newsFetchLimit)
	if err != nil {
		return fmt.Errorf("refresh news ticker: %w", err)
	}
	a.ticker.SetEvents(events)
	return nil
}

// RunNewsTicker rotates the current news item and periodically reloads the
// rotation set until ctx is cancelled.
func (a *App) RunNewsTicker(ctx context.Context) {
	if err := a.RefreshNewsTicker(); err != nil {
		slog.Warn("initial news ticker load failed", "err", err)
	}
	go a.ticker.Run(ctx)
	refresh := time.NewTicker(time.Minute)
	defer refresh.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-refresh.C:
			if err := a.RefreshNewsTicker(); err != nil {
				slog.Warn("news ticker refresh failed", "err", err)
			}
		}
	}
}

// CurrentNewsItem returns the item the ticker is presently showing.
func (a *App) CurrentNewsItem() domain.NewsEvent {
	return a.ticker.Current()
}

// HomeContent aggregates the three public lists for the landing page.
type HomeContent struct {
	Stories       []domain.Story           `json:"stories"`
	Gallery       []domain.GalleryImage    `json:"gallery"`
	GalleryTracks [2][]domain.GalleryImage `json:"galleryTracks"`
	NewsEvents    []domain.NewsEvent       `json:"newsEvents"`
}

// Home fetches stories, gallery and news concurrently.
func (a *App) Home(ctx context.Context) (HomeContent, error) {
	var content HomeContent
	g, _ := errgroup.WithContext(ctx)
	g.Go(func() error {
		stories, err := a.ApprovedStories("")
		if err != nil {
			return err
		}
		content.Stories = stories
		return nil
	})
	g.Go(func() error {
		images, err := a.Gallery("")
		if err != nil {
			return err
		}
		content.Gallery = images
		first, second := listing.SplitHalves(images)
		content.GalleryTracks = [2][]domain.GalleryImage{first, second}
		return nil
	})
	g.Go(func() error {
		events, err := a.NewsEvents(0)
		if err != nil {
			return err
		}
		content.NewsEvents = events
		return nil
	})
	if err := g.Wait(); err != nil {
		return HomeContent{}, err
	}
	return content, nil
}

// Resources lists downloadable resource metadata for the downloads page.
func (a *App) Resources() ([]domain.Resource, error) {
	resources, err := a.store.ListResources()
	if err != nil {
		return nil, fmt.Errorf("list resources: %w", err)
	}
	return resources, nil
}

// ResourceDownload looks up resource metadata by file ID and opens the
// stored object for streaming. The caller owns the returned reader.
func (a *App) ResourceDownload(ctx context.Context, fileID string) (domain.Resource, io.ReadCloser, storage.ObjectInfo, error) {
	fileID = strings.TrimSpace(fileID)
	if fileID == "" {
		return domain.Resource{}, nil, storage.ObjectInfo{}, ErrResourceNotFound
	}
	resource, ok, err := a.store.GetResourceByFileID(fileID)
	if err != nil {
		return domain.Resource{}, nil, storage.ObjectInfo{}, fmt.Errorf("lookup resource: %w", err)
	}
	if !ok {
		return domain.Resource{}, nil, storage.ObjectInfo{}, ErrResourceNotFound
	}
	if a.resourceFiles == nil {
		return domain.Resource{}, nil, storage.ObjectInfo{}, fmt.Errorf("resource file storage not configured")
	}
	body, info, err := a.resourceFiles.Get(ctx, resource.FileID)
	if err != nil {
		return domain.Resource{}, nil, storage.ObjectInfo{}, fmt.Errorf("open resource object: %w", err)
	}
	return resource, body, info, nil
}

// DownloadFilename derives the attachment filename, appending an extension
// from the mime type when the stored name has none.
func DownloadFilename(resource domain.Resource) string {
	name := strings.TrimSpace(resource.Name)
	if name == "" {
		name = resource.FileID
	}
	if !strings.Contains(name, ".") {
		if parts := strings.SplitN(resource.MimeType, "/", 2); len(parts) == 2 && parts[1] != "" {
			name = name + "." + parts[1]
		}
	}
	return name
}

// SignUp registers a new account and issues a session token for the
// http-only cookie.
func (a *App) SignUp(name, email, password string) (domain.User, string, error) {
	name = strings.TrimSpace(name)
	email = strings.TrimSpace(strings.ToLower(email))
	if name == "" || email == "" || password == "" {
		return domain.User{}, "", ErrSignupFieldsRequired
	}
	if err := auth.ValidatePassword(password); err != nil {
		return domain.User{}, "", err
	}
	exists, err := a.store.HasUserEmail(email)
	if err != nil {
		return domain.User{}, "", fmt.Errorf("check email: %w", err)
	}
	if exists {
		return domain.User{}, "", ErrEmailAlreadyExists
	}
	passwordHash, err := auth.HashPassword(password)
	if err != nil {
		return domain.User{}, "", fmt.Errorf("hash password: %w", err)
	}
	now := time.Now().UTC()
	user := domain.User{
		ID:           store.NewID(),
		Name:         name,
		Email:        email,
		PasswordHash: passwordHash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := a.store.SaveUser(user); err != nil {
		return domain.User{}, "", fmt.Errorf("create user: %w", err)
	}
	token, err := a.sessions.NewSession(user.ID)
	if err != nil {
		return domain.User{}, "", fmt.Errorf("create session: %w", err)
	}
	return user, token, nil
}

// UserFromSession resolves a session token back to its user.
func (a *App) UserFromSession(token string) (domain.User, bool) {
	userID, ok, err := a.sessions.UserIDFromToken(token)
	if err != nil || !ok {
		return domain.User{}, false
	}
	user, ok, err := a.store.GetUserByID(userID)
	if err != nil || !ok {
		return domain.User{}, false
	}
	return user, true
}

func (a *App) isImageAllowed(filename string) bool {
	if len(a.imageExts) == 0 {
		return true
	}
	ext := strings.ToLower(filepath.Ext(filename))
	_, ok := a.imageExts[ext]
	return ok
}

func normalizeExtensions(exts []string) map[string]struct{} {
	if len(exts) == 0 {
		exts = []string{".jpg", ".jpeg", ".png", ".webp"}
	}
	out := make(map[string]struct{}, len(exts))
	for _, ext := range exts {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		out[ext] = struct{}{}
	}
	return out
}
