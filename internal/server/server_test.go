package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"

	"joeunedu/internal/app"
	"joeunedu/pkg/domain"
	"joeunedu/pkg/storage"
	"joeunedu/pkg/store"
)

type stubObjects struct {
	objects map[string][]byte
	types   map[string]string
}

func newStubObjects() *stubObjects {
	return &stubObjects{objects: map[string][]byte{}, types: map[string]string{}}
}

func (s *stubObjects) Put(_ context.Context, key string, r io.Reader, _ int64, contentType string) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	s.objects[key] = data
	s.types[key] = contentType
	return nil
}

func (s *stubObjects) Get(_ context.Context, key string) (io.ReadCloser, storage.ObjectInfo, error) {
	data, ok := s.objects[key]
	if !ok {
		return nil, storage.ObjectInfo{}, errors.New("object not found")
	}
	return io.NopCloser(bytes.NewReader(data)), storage.ObjectInfo{Key: key, SizeBytes: int64(len(data)), ContentType: s.types[key]}, nil
}

func (s *stubObjects) Stat(_ context.Context, key string) (storage.ObjectInfo, error) {
	data, ok := s.objects[key]
	if !ok {
		return storage.ObjectInfo{}, errors.New("object not found")
	}
	return storage.ObjectInfo{Key: key, SizeBytes: int64(len(data)), ContentType: s.types[key]}, nil
}

func (s *stubObjects) Delete(_ context.Context, key string) error {
	delete(s.objects, key)
	return nil
}

type stubCompleter struct {
	reply string
	err   error
	calls int
}

func (s *stubCompleter) Complete(context.Context, []domain.ChatMessage, string) (string, error) {
	s.calls++
	if s.err != nil {
		return "", s.err
	}
	return s.reply, nil
}

type testEnv struct {
	store     *store.MemoryStore
	objects   *stubObjects
	completer *stubCompleter
	srv       *httptest.Server
}

func newTestServer(t *testing.T, mutate func(*Config)) *testEnv {
	t.Helper()
	st := store.NewMemoryStore()
	objects := newStubObjects()
	completer := &stubCompleter{reply: "llm answer"}
	sessions, err := store.NewJWTSessionStore("test-secret-key-0123456789", 30*24*time.Hour)
	if err != nil {
		t.Fatalf("session store: %v", err)
	}
	core, err := app.New(app.Config{
		Store:         st,
		Sessions:      sessions,
		StoryFiles:    objects,
		ResourceFiles: objects,
		URLs:          storage.NewFileURLBuilder("https://cloud.example.com/v1", "joeun"),
		Completer:     completer,
		Buckets:       app.Buckets{Stories: "stories", Gallery: "gallery", Resources: "resources"},
	})
	if err != nil {
		t.Fatalf("new app: %v", err)
	}
	redis := miniredis.RunT(t)
	cfg := Config{
		App:       core,
		RedisAddr: redis.Addr(),
	}
	if mutate != nil {
		mutate(&cfg)
	}
	srv, err := New(cfg)
	if err != nil {
		t.Fatalf("new server: %v", err)
	}
	ts := httptest.NewServer(srv.Router())
	t.Cleanup(ts.Close)
	return &testEnv{store: st, objects: objects, completer: completer, srv: ts}
}

func postJSON(t *testing.T, url string, payload any) *http.Response {
	t.Helper()
	body, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	resp, err := http.Post(url, "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("post %s: %v", url, err)
	}
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, out any) {
	t.Helper()
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
}

func TestChatIntentAnswersWithoutLLM(t *testing.T) {
	env := newTestServer(t, nil)

	resp := postJSON(t, env.srv.URL+"/api/chat", map[string]any{"message": "What services do you offer?"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var body struct {
		Reply string `json:"reply"`
	}
	decodeBody(t, resp, &body)
	if !strings.Contains(body.Reply, "Study Abroad Consulting, Visa Assistance, Test Preparation") {
		t.Fatalf("reply = %q", body.Reply)
	}
	if env.completer.calls != 0 {
		t.Fatalf("LLM called for recognized intent")
	}
}

func TestChatFallsThroughToLLM(t *testing.T) {
	env := newTestServer(t, nil)

	resp := postJSON(t, env.srv.URL+"/api/chat", map[string]any{
		"message":             "How much should I budget for living expenses in Busan?",
		"conversationHistory": []map[string]string{{"role": "user", "content": "hi"}},
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var body struct {
		Reply string `json:"reply"`
	}
	decodeBody(t, resp, &body)
	if body.Reply != "llm answer" {
		t.Fatalf("reply = %q", body.Reply)
	}
	if env.completer.calls != 1 {
		t.Fatalf("calls = %d", env.completer.calls)
	}
}

func TestChatEmptyMessage(t *testing.T) {
	env := newTestServer(t, nil)
	resp := postJSON(t, env.srv.URL+"/api/chat", map[string]any{"message": "  "})
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
}

func TestChatRateLimit(t *testing.T) {
	env := newTestServer(t, func(cfg *Config) {
		cfg.ChatRateLimitPerMinute = 1
	})

	resp1 := postJSON(t, env.srv.URL+"/api/chat", map[string]any{"message": "hello there"})
	resp1.Body.Close()
	if resp1.StatusCode != http.StatusOK {
		t.Fatalf("first request status = %d", resp1.StatusCode)
	}
	resp2 := postJSON(t, env.srv.URL+"/api/chat", map[string]any{"message": "hello again"})
	resp2.Body.Close()
	if resp2.StatusCode != http.StatusTooManyRequests {
		t.Fatalf("second request status = %d, want 429", resp2.StatusCode)
	}
	if resp2.Header.Get("Retry-After") != "60" {
		t.Fatalf("Retry-After = %q", resp2.Header.Get("Retry-After"))
	}
}

func multipartStory(t *testing.T, fields map[string]string, filename string, fileData []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			t.Fatalf("write field: %v", err)
		}
	}
	if filename != "" {
		fw, err := mw.CreateFormFile("image", filename)
		if err != nil {
			t.Fatalf("create form file: %v", err)
		}
		if _, err := fw.Write(fileData); err != nil {
			t.Fatalf("write file: %v", err)
		}
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}
	return &buf, mw.FormDataContentType()
}

func TestSubmitStoryEndpoint(t *testing.T) {
	env := newTestServer(t, nil)

	body, contentType := multipartStory(t, map[string]string{
		"name":       "Anisha",
		"program":    "Korean Language",
		"university": "Seoul National University",
		"content":    "The team handled my D-4 visa smoothly.",
		"rating":     "5",
	}, "photo.jpg", []byte("jpegdata"))

	resp, err := http.Post(env.srv.URL+"/api/stories", contentType, body)
	if err != nil {
		t.Fatalf("post story: %v", err)
	}
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("status = %d, want 201", resp.StatusCode)
	}
	var out domain.Story
	decodeBody(t, resp, &out)
	if out.ID == "" {
		t.Fatal("created story has no ID")
	}
	if out.Status != domain.StoryPending {
		t.Fatalf("status = %q, want pending", out.Status)
	}
	if len(env.objects.objects) != 1 {
		t.Fatalf("uploaded objects = %d", len(env.objects.objects))
	}

	// pending stories stay hidden from the public list
	listResp, err := http.Get(env.srv.URL + "/api/stories")
	if err != nil {
		t.Fatalf("list stories: %v", err)
	}
	var listOut struct {
		Documents []domain.Story `json:"documents"`
	}
	decodeBody(t, listResp, &listOut)
	if len(listOut.Documents) != 0 {
		t.Fatalf("pending story exposed: %+v", listOut.Documents)
	}
}

func TestSubmitStoryValidationErrors(t *testing.T) {
	env := newTestServer(t, nil)

	body, contentType := multipartStory(t, map[string]string{
		"name":       "Anisha",
		"program":    "",
		"university": "SNU",
		"content":    "x",
		"rating":     "4",
	}, "", nil)
	resp, err := http.Post(env.srv.URL+"/api/stories", contentType, body)
	if err != nil {
		t.Fatalf("post story: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("missing field status = %d, want 400", resp.StatusCode)
	}

	body, contentType = multipartStory(t, map[string]string{
		"name":       "Anisha",
		"program":    "KLI",
		"university": "SNU",
		"content":    "x",
		"rating":     "0",
	}, "", nil)
	resp, err = http.Post(env.srv.URL+"/api/stories", contentType, body)
	if err != nil {
		t.Fatalf("post story: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("bad rating status = %d, want 400", resp.StatusCode)
	}
}

func TestGalleryEndpointResolvesURLs(t *testing.T) {
	env := newTestServer(t, nil)
	now := time.Now().UTC()
	for _, title := range []string{"Orientation", "Sendoff", "Seminar"} {
		if err := env.store.SaveGalleryImage(domain.GalleryImage{
			ID: store.NewID(), Title: title, ImageID: "img-" + title, CreatedAt: now,
		}); err != nil {
			t.Fatalf("seed gallery: %v", err)
		}
	}

	resp, err := http.Get(env.srv.URL + "/api/gallery")
	if err != nil {
		t.Fatalf("get gallery: %v", err)
	}
	var images []domain.GalleryImage
	decodeBody(t, resp, &images)
	if len(images) != 3 {
		t.Fatalf("images = %d", len(images))
	}
	for _, img := range images {
		if img.URL == "" {
			t.Fatalf("gallery URL not resolved: %+v", img)
		}
	}
}

func TestNewsEventsEndpoint(t *testing.T) {
	env := newTestServer(t, nil)
	now := time.Now().UTC()
	if err := env.store.SaveNewsEvent(domain.NewsEvent{
		ID: "n1", Title: "Spring Intake Open", Type: "news", Status: domain.NewsPublished, Date: now, CreatedAt: now,
	}); err != nil {
		t.Fatalf("seed news: %v", err)
	}
	if err := env.store.SaveNewsEvent(domain.NewsEvent{
		ID: "n2", Title: "Draft Item", Type: "news", Status: domain.NewsDraft, Date: now, CreatedAt: now,
	}); err != nil {
		t.Fatalf("seed news: %v", err)
	}

	resp, err := http.Get(env.srv.URL + "/api/news-events")
	if err != nil {
		t.Fatalf("get news: %v", err)
	}
	var out struct {
		Documents []domain.NewsEvent `json:"documents"`
	}
	decodeBody(t, resp, &out)
	if len(out.Documents) != 1 || out.Documents[0].ID != "n1" {
		t.Fatalf("documents = %+v", out.Documents)
	}
}

func TestCurrentNewsItemEndpoint(t *testing.T) {
	env := newTestServer(t, nil)

	resp, err := http.Get(env.srv.URL + "/api/news-events/current")
	if err != nil {
		t.Fatalf("get current: %v", err)
	}
	var item domain.NewsEvent
	decodeBody(t, resp, &item)
	if item.Title != "Welcome to Joeun Education Consultancy" {
		t.Fatalf("current item = %+v", item)
	}
}

func TestResourceDownloadEndpoint(t *testing.T) {
	env := newTestServer(t, nil)
	if err := env.objects.Put(context.Background(), "file-1", strings.NewReader("%PDF-1.4"), 8, "application/pdf"); err != nil {
		t.Fatalf("seed object: %v", err)
	}
	if err := env.store.SaveResource(domain.Resource{
		ID: "r1", Name: "Visa Checklist", FileID: "file-1", MimeType: "application/pdf", SizeBytes: 8, CreatedAt: time.Now(),
	}); err != nil {
		t.Fatalf("seed resource: %v", err)
	}

	listResp, err := http.Get(env.srv.URL + "/api/resources")
	if err != nil {
		t.Fatalf("list resources: %v", err)
	}
	var list struct {
		Resources []domain.Resource `json:"resources"`
	}
	decodeBody(t, listResp, &list)
	if len(list.Resources) != 1 || list.Resources[0].FileID != "file-1" {
		t.Fatalf("resources = %+v", list.Resources)
	}

	resp, err := http.Get(env.srv.URL + "/api/resources/download/file-1")
	if err != nil {
		t.Fatalf("download: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if got := resp.Header.Get("Content-Type"); got != "application/pdf" {
		t.Fatalf("Content-Type = %q", got)
	}
	if got := resp.Header.Get("Content-Disposition"); !strings.Contains(got, `attachment`) || !strings.Contains(got, "Visa Checklist.pdf") {
		t.Fatalf("Content-Disposition = %q", got)
	}
	data, _ := io.ReadAll(resp.Body)
	if string(data) != "%PDF-1.4" {
		t.Fatalf("body = %q", data)
	}

	missing, err := http.Get(env.srv.URL + "/api/resources/download/nope")
	if err != nil {
		t.Fatalf("download missing: %v", err)
	}
	missing.Body.Close()
	if missing.StatusCode != http.StatusNotFound {
		t.Fatalf("missing status = %d, want 404", missing.StatusCode)
	}
}

func TestSignupSetsSessionCookie(t *testing.T) {
	env := newTestServer(t, nil)

	resp := postJSON(t, env.srv.URL+"/api/auth/signup", map[string]string{
		"name": "Sita", "email": "sita@example.com", "password": "supersecret",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("status = %d, want 201", resp.StatusCode)
	}
	var out struct {
		Success bool   `json:"success"`
		UserID  string `json:"userId"`
	}
	decodeBody(t, resp, &out)
	if !out.Success || out.UserID == "" {
		t.Fatalf("response = %+v", out)
	}

	var session *http.Cookie
	for _, c := range resp.Cookies() {
		if c.Name == "session" {
			session = c
		}
	}
	if session == nil {
		t.Fatal("session cookie not set")
	}
	if !session.HttpOnly {
		t.Fatal("session cookie not http-only")
	}
	if session.MaxAge != int(30*24*time.Hour/time.Second) {
		t.Fatalf("cookie MaxAge = %d", session.MaxAge)
	}
}

func TestSignupShortPasswordNoCookie(t *testing.T) {
	env := newTestServer(t, nil)

	resp := postJSON(t, env.srv.URL+"/api/auth/signup", map[string]string{
		"name": "Sita", "email": "sita@example.com", "password": "short",
	})
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
	if len(resp.Cookies()) != 0 {
		t.Fatalf("cookie set on failed signup: %+v", resp.Cookies())
	}
	if exists, _ := env.store.HasUserEmail("sita@example.com"); exists {
		t.Fatal("user created despite invalid password")
	}
}

func TestSignupDuplicateEmailConflicts(t *testing.T) {
	env := newTestServer(t, nil)

	first := postJSON(t, env.srv.URL+"/api/auth/signup", map[string]string{
		"name": "Sita", "email": "sita@example.com", "password": "supersecret",
	})
	first.Body.Close()
	if first.StatusCode != http.StatusCreated {
		t.Fatalf("first signup status = %d", first.StatusCode)
	}

	second := postJSON(t, env.srv.URL+"/api/auth/signup", map[string]string{
		"name": "Sita Again", "email": "Sita@Example.com", "password": "othersecret",
	})
	defer second.Body.Close()
	if second.StatusCode != http.StatusConflict {
		t.Fatalf("duplicate signup status = %d, want 409", second.StatusCode)
	}
}

func TestHomeEndpoint(t *testing.T) {
	env := newTestServer(t, nil)
	now := time.Now().UTC()
	if err := env.store.SaveStory(domain.Story{
		ID: "s1", Name: "A", Program: "P", University: "U", Content: "c", Rating: 5,
		Status: domain.StoryApproved, CreatedAt: now,
	}); err != nil {
		t.Fatalf("seed story: %v", err)
	}

	resp, err := http.Get(env.srv.URL + "/api/home")
	if err != nil {
		t.Fatalf("get home: %v", err)
	}
	var out struct {
		Stories    []domain.Story     `json:"stories"`
		NewsEvents []domain.NewsEvent `json:"newsEvents"`
	}
	decodeBody(t, resp, &out)
	if len(out.Stories) != 1 {
		t.Fatalf("stories = %+v", out.Stories)
	}
}

func TestCORSPreflight(t *testing.T) {
	env := newTestServer(t, nil)

	req, err := http.NewRequest(http.MethodOptions, env.srv.URL+"/api/chat", nil)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("preflight: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("preflight status = %d, want 200", resp.StatusCode)
	}
	if resp.Header.Get("Access-Control-Allow-Origin") == "" {
		t.Fatal("CORS headers missing")
	}
}

func TestMethodNotAllowed(t *testing.T) {
	env := newTestServer(t, nil)
	resp, err := http.Get(env.srv.URL + "/api/chat")
	if err != nil {
		t.Fatalf("get chat: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Fatalf("status = %d, want 405", resp.StatusCode)
	}
}
