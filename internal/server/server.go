package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"time"

	"joeunedu/internal/app"
	"joeunedu/internal/ratelimit"
	"joeunedu/internal/util"
	"joeunedu/pkg/ai"
	"joeunedu/pkg/auth"
	"joeunedu/pkg/domain"
)

// Config wires required dependencies for the HTTP server.
type Config struct {
	App *app.App

	RedisAddr     string
	RedisPassword string

	ChatRateLimitPerMinute   int
	StoryRateLimitPerMinute  int
	SignupRateLimitPerMinute int

	TrustedProxyCIDRs []string

	SessionCookieName string
	SessionTTL        time.Duration
	SecureCookies     bool

	MaxUploadBytes int64
}

// Server exposes the public HTTP API.
type Server struct {
	app            *app.App
	mux            *http.ServeMux
	trustedProxies *util.TrustedProxies
	cookieName     string
	sessionTTL     time.Duration
	secureCookies  bool
	maxUploadBytes int64
	chatLimiter    *ratelimit.FixedWindowLimiter
	storyLimiter   *ratelimit.FixedWindowLimiter
	signupLimiter  *ratelimit.FixedWindowLimiter
}

// New constructs the server with routes configured.
func New(cfg Config) (*Server, error) {
	if cfg.App == nil {
		return nil, errors.New("app required")
	}
	trusted, err := util.NewTrustedProxies(cfg.TrustedProxyCIDRs)
	if err != nil {
		return nil, fmt.Errorf("parse trusted proxies: %w", err)
	}
	chatLimit := cfg.ChatRateLimitPerMinute
	if chatLimit <= 0 {
		chatLimit = 30
	}
	storyLimit := cfg.StoryRateLimitPerMinute
	if storyLimit <= 0 {
		storyLimit = 10
	}
	signupLimit := cfg.SignupRateLimitPerMinute
	if signupLimit <= 0 {
		signupLimit = 5
	}
	rateWindow := time.Minute
	newLimiter := func(name string, limit int) (*ratelimit.FixedWindowLimiter, error) {
		prefix := "joeun:ratelimit:" + name
		limiter, err := ratelimit.NewRedisFixedWindowLimiter(cfg.RedisAddr, cfg.RedisPassword, prefix, limit, rateWindow)
		if err != nil {
			return nil, fmt.Errorf("init %s limiter: %w", name, err)
		}
		return limiter, nil
	}
	chatLimiter, err := newLimiter("chat", chatLimit)
	if err != nil {
		return nil, err
	}
	storyLimiter, err := newLimiter("story", storyLimit)
	if err != nil {
		return nil, err
	}
	signupLimiter, err := newLimiter("signup", signupLimit)
	if err != nil {
		return nil, err
	}
	cookieName := cfg.SessionCookieName
	if cookieName == "" {
		cookieName = "session"
	}
	sessionTTL := cfg.SessionTTL
	if sessionTTL <= 0 {
		sessionTTL = 30 * 24 * time.Hour
	}
	maxUploadBytes := cfg.MaxUploadBytes
	if maxUploadBytes <= 0 {
		maxUploadBytes = 10 << 20
	}
	s := &Server{
		app:            cfg.App,
		mux:            http.NewServeMux(),
		trustedProxies: trusted,
		cookieName:     cookieName,
		sessionTTL:     sessionTTL,
		secureCookies:  cfg.SecureCookies,
		maxUploadBytes: maxUploadBytes,
		chatLimiter:    chatLimiter,
		storyLimiter:   storyLimiter,
		signupLimiter:  signupLimiter,
	}
	s.routes()
	return s, nil
}

// Router returns the configured handler with middleware applied.
func (s *Server) Router() http.Handler {
	return util.WithSecurityHeaders(util.WithCORS(util.WithRequestID(util.WithRequestLog(s.mux))))
}

func (s *Server) routes() {
	s.mux.HandleFunc("/healthz", s.handleHealth)

	s.mux.HandleFunc("/api/chat", s.handleChat)
	s.mux.HandleFunc("/api/stories", s.handleStories)
	s.mux.HandleFunc("/api/gallery", s.handleGallery)
	s.mux.HandleFunc("/api/news-events", s.handleNewsEvents)
	s.mux.HandleFunc("/api/news-events/current", s.handleCurrentNewsItem)
	s.mux.HandleFunc("/api/resources", s.handleResources)
	s.mux.HandleFunc("/api/resources/download/", s.handleResourceDownload)
	s.mux.HandleFunc("/api/auth/signup", s.handleSignup)
	s.mux.HandleFunc("/api/home", s.handleHome)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type chatRequest struct {
	Message string               `json:"message"`
	History []domain.ChatMessage `json:"conversationHistory"`
}

type chatResponse struct {
	Reply string `json:"reply"`
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	if !s.allowRate(w, r, s.chatLimiter, "too many chat requests") {
		s.audit(r, "chat.message", "rate_limited")
		return
	}
	var req chatRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	reply, err := s.app.ChatReply(r.Context(), req.Message, req.History)
	if err != nil {
		writeChatError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, chatResponse{Reply: reply})
}

func writeChatError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, app.ErrEmptyMessage):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, ai.ErrMissingAPIKey):
		writeError(w, http.StatusInternalServerError, "chat service not configured")
	default:
		var providerErr *ai.ProviderError
		var responseErr *ai.ResponseError
		if errors.As(err, &providerErr) || errors.As(err, &responseErr) {
			writeError(w, http.StatusBadGateway, "assistant is unavailable right now")
			return
		}
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func (s *Server) handleStories(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.handleListStories(w, r)
	case http.MethodPost:
		s.handleSubmitStory(w, r)
	default:
		methodNotAllowed(w)
	}
}

func (s *Server) handleListStories(w http.ResponseWriter, r *http.Request) {
	stories, err := s.app.ApprovedStories(r.URL.Query().Get("search"))
	if err != nil {
		slog.Error("list stories", "err", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"documents": stories})
}

func (s *Server) handleSubmitStory(w http.ResponseWriter, r *http.Request) {
	if !s.allowRate(w, r, s.storyLimiter, "too many story submissions") {
		s.audit(r, "story.submit", "rate_limited")
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadBytes)
	if err := r.ParseMultipartForm(s.maxUploadBytes); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}
	rating, _ := strconv.Atoi(r.FormValue("rating"))
	sub := app.StorySubmission{
		Name:       r.FormValue("name"),
		Program:    r.FormValue("program"),
		University: r.FormValue("university"),
		Content:    r.FormValue("content"),
		Rating:     rating,
	}
	file, header, err := r.FormFile("image")
	switch {
	case err == nil:
		defer file.Close()
		sub.File = file
		sub.Filename = header.Filename
		sub.SizeBytes = header.Size
		sub.ContentType = formFileContentType(header)
	case errors.Is(err, http.ErrMissingFile):
		// photo is optional
	default:
		writeError(w, http.StatusBadRequest, "invalid image upload")
		return
	}
	story, err := s.app.SubmitStory(r.Context(), sub)
	if err != nil {
		writeStoryError(w, err)
		return
	}
	s.audit(r, "story.submit", "success", "story_id", story.ID)
	writeJSON(w, http.StatusCreated, story)
}

func writeStoryError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, app.ErrMissingFields),
		errors.Is(err, app.ErrInvalidRating),
		errors.Is(err, app.ErrUnsupportedImage):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		slog.Error("submit story", "err", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func formFileContentType(header *multipart.FileHeader) string {
	if header == nil {
		return ""
	}
	return header.Header.Get("Content-Type")
}

func (s *Server) handleGallery(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	images, err := s.app.Gallery(r.URL.Query().Get("search"))
	if err != nil {
		slog.Error("list gallery", "err", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if images == nil {
		images = []domain.GalleryImage{}
	}
	writeJSON(w, http.StatusOK, images)
}

func (s *Server) handleNewsEvents(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	events, err := s.app.NewsEvents(limit)
	if err != nil {
		slog.Error("list news events", "err", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"documents": events})
}

func (s *Server) handleCurrentNewsItem(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	writeJSON(w, http.StatusOK, s.app.CurrentNewsItem())
}

func (s *Server) handleResources(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	resources, err := s.app.Resources()
	if err != nil {
		slog.Error("list resources", "err", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"resources": resources})
}

func (s *Server) handleResourceDownload(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	fileID := strings.TrimPrefix(r.URL.Path, "/api/resources/download/")
	if fileID == "" || strings.Contains(fileID, "/") {
		writeError(w, http.StatusNotFound, "resource not found")
		return
	}
	resource, body, info, err := s.app.ResourceDownload(r.Context(), fileID)
	if err != nil {
		if errors.Is(err, app.ErrResourceNotFound) {
			writeError(w, http.StatusNotFound, "resource not found")
			return
		}
		slog.Error("resource download", "err", err, "file_id", fileID)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	defer body.Close()

	contentType := resource.MimeType
	if contentType == "" {
		contentType = info.ContentType
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", app.DownloadFilename(resource)))
	if info.SizeBytes > 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(info.SizeBytes, 10))
	}
	if _, err := io.Copy(w, body); err != nil {
		slog.Warn("resource download interrupted", "err", err, "file_id", fileID)
	}
}

type signupRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type signupResponse struct {
	Success bool   `json:"success"`
	UserID  string `json:"userId"`
}

func (s *Server) handleSignup(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	if !s.allowRate(w, r, s.signupLimiter, "too many signup attempts") {
		s.audit(r, "auth.signup", "rate_limited")
		return
	}
	var req signupRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&req); err != nil {
		s.audit(r, "auth.signup", "fail", "reason", "invalid_json")
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	user, token, err := s.app.SignUp(req.Name, req.Email, req.Password)
	if err != nil {
		s.audit(r, "auth.signup", "fail", "reason", err.Error())
		writeSignupError(w, err)
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     s.cookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(s.sessionTTL / time.Second),
		HttpOnly: true,
		Secure:   s.secureCookies,
		SameSite: http.SameSiteLaxMode,
	})
	s.audit(r, "auth.signup", "success", "user_id", user.ID)
	writeJSON(w, http.StatusCreated, signupResponse{Success: true, UserID: user.ID})
}

func writeSignupError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, app.ErrSignupFieldsRequired), errors.Is(err, auth.ErrPasswordTooShort):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, app.ErrEmailAlreadyExists):
		writeError(w, http.StatusConflict, err.Error())
	default:
		slog.Error("signup", "err", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func (s *Server) handleHome(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	home, err := s.app.Home(r.Context())
	if err != nil {
		slog.Error("home content", "err", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, home)
}

func (s *Server) audit(r *http.Request, event, outcome string, attrs ...any) {
	logAttrs := []any{
		"event", event,
		"outcome", outcome,
		"path", r.URL.Path,
		"method", r.Method,
		"ip", util.ClientIP(r, s.trustedProxies),
		"request_id", util.RequestIDFromRequest(r),
	}
	logAttrs = append(logAttrs, attrs...)
	if outcome == "success" {
		slog.Info("security_event", logAttrs...)
		return
	}
	slog.Warn("security_event", logAttrs...)
}

func (s *Server) allowRate(w http.ResponseWriter, r *http.Request, limiter *ratelimit.FixedWindowLimiter, msg string) bool {
	key := r.URL.Path + "|" + util.ClientIP(r, s.trustedProxies)
	if limiter.Allow(key) {
		return true
	}
	w.Header().Set("Retry-After", "60")
	writeError(w, http.StatusTooManyRequests, msg)
	return false
}

func methodNotAllowed(w http.ResponseWriter) {
	writeError(w, http.StatusMethodNotAllowed, "method not allowed")
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
