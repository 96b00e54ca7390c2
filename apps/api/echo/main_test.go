package echoapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"
	"time"

	"github.com/somaedu/soma-backend/core"
	"github.com/somaedu/soma-backend/core/ai"
	"github.com/somaedu/soma-backend/core/chapter"
	"github.com/somaedu/soma-backend/core/identity"
	"github.com/somaedu/soma-backend/core/learning"
	"github.com/somaedu/soma-backend/core/notification"
	emailsvc "github.com/somaedu/soma-backend/services/email"
	inmemdb "github.com/somaedu/soma-backend/storage/database/inmem"
)

type nopLogger struct{}

func (nopLogger) Enable(bool)                  {}
func (nopLogger) Debug(string, ...interface{}) {}
func (nopLogger) Info(string, ...interface{})  {}
func (nopLogger) Error(string, ...interface{}) {}

func testConfig() *core.Config {
	return &core.Config{
		Debug:            false,
		TestMode:         true,
		Env:              "TEST",
		AppName:          "Soma",
		SecretKey:        "test-secret-key",
		DefaultFromEmail: "noreply@localhost",
		Server: core.ServerConfig{
			Host:             "localhost",
			Port:             "8000",
			ParentSessionTTL: 7 * 24 * time.Hour,
			ChildSessionTTL:  24 * time.Hour,
		},
		AI: core.AIConfig{
			GenerateModel:        "mock",
			VerifyModel:          "mock",
			RepairModel:          "mock",
			VerificationFailOpen: true,
		},
		Quota: core.QuotaConfig{
			GenerationRequests: 100,
			Window:             time.Hour,
		},
	}
}

type testEnv struct {
	app         Server
	auth        *sessionAuth
	conf        *core.Config
	identitySvc *identity.Service
	chapterSvc  *chapter.Service
	learningSvc *learning.Service
	notifSvc    *notification.Service
	chapterRepo chapter.Repository
	generator   *ai.MockCapability
	verifier    *ai.MockCapability
	repairer    *ai.MockCapability
}

func setup(t *testing.T, config ...*core.Config) *testEnv {
	t.Helper()

	conf := testConfig()
	if len(config) > 0 {
		conf = config[0]
	}
	db := inmemdb.Open()

	var seq int
	idFunc := func() string {
		seq++
		return fmt.Sprintf("id-%d", seq)
	}
	logger := nopLogger{}
	mailSvc := emailsvc.NewConsoleService(conf)

	gen := ai.NewMockCapability()
	ver := ai.NewMockCapability()
	rep := ai.NewMockCapability()
	pipeline := chapter.NewPipeline(gen, ver, rep, conf.AI, logger)

	parentRepo := inmemdb.NewParentRepository(db)
	chapterRepo := inmemdb.NewChapterRepository(db)
	identitySvc := identity.NewService(parentRepo, inmemdb.NewChildRepository(db), idFunc)
	notifSvc := notification.NewService(inmemdb.NewNotificationRepository(db), idFunc)
	chapterSvc := chapter.NewService(chapterRepo, parentRepo, pipeline, notifSvc, mailSvc, logger, idFunc)
	learningSvc := learning.NewService(inmemdb.NewLearningSessionRepository(db), inmemdb.NewResultRepository(db), idFunc)

	validate, translator := core.NewValidator()

	app := NewServer(ServerDeps{
		Conf:           conf,
		Logger:         logger,
		IdentitySvc:    identitySvc,
		ChapterSvc:     chapterSvc,
		LearningSvc:    learningSvc,
		NotifSvc:       notifSvc,
		Validate:       validate,
		Translator:     translator,
		DisableReqLogs: true,
	})

	return &testEnv{
		app:         app,
		auth:        newSessionAuth(conf),
		conf:        conf,
		identitySvc: identitySvc,
		chapterSvc:  chapterSvc,
		learningSvc: learningSvc,
		notifSvc:    notifSvc,
		chapterRepo: chapterRepo,
		generator:   gen,
		verifier:    ver,
		repairer:    rep,
	}
}

// Fixtures

func createParent(t *testing.T, env *testEnv, email string) identity.Parent {
	t.Helper()
	p, err := env.identitySvc.RegisterParent(context.Background(), identity.NewParent{
		Name:     "Parent",
		Email:    email,
		Password: "s3cretpwd",
	})
	if err != nil {
		t.Fatalf("createParent(): %v", err)
	}
	return p
}

func createChild(t *testing.T, env *testEnv, parentID, name string) identity.Child {
	t.Helper()
	c, err := env.identitySvc.CreateChild(context.Background(), parentID, identity.NewChild{
		Name:       name,
		GradeLevel: 3,
	})
	if err != nil {
		t.Fatalf("createChild(): %v", err)
	}
	return c
}

// createReadyChapter persists a chapter with content, bypassing the pipeline.
func createReadyChapter(t *testing.T, env *testEnv, child identity.Child) chapter.Chapter {
	t.Helper()
	now := time.Now().UTC()
	lc := testLesson()
	ch, err := env.chapterRepo.CreateChapter(context.Background(), chapter.Chapter{
		ID:         fmt.Sprintf("ch-%d", now.UnixNano()),
		ChildID:    child.ID,
		ParentID:   child.ParentID,
		Subject:    chapter.SubjectMath,
		GradeLevel: child.GradeLevel,
		Status:     chapter.StatusReady,
		Content:    &lc,
		CreatedAt:  now,
		UpdatedAt:  now,
	})
	if err != nil {
		t.Fatalf("createReadyChapter(): %v", err)
	}
	return ch
}

func testLesson() chapter.LessonContent {
	question := func(i int) chapter.Question {
		return chapter.Question{
			Text:       fmt.Sprintf("Question %d?", i),
			Options:    []string{"one", "two", "three", "four"},
			Answer:     i % 4,
			Difficulty: chapter.DifficultyEasy,
		}
	}
	lc := chapter.LessonContent{
		Topic:       "Fractions",
		Explanation: []string{"First.", "Second.", "Third."},
	}
	for i := 0; i < chapter.PracticeCount; i++ {
		lc.Practice = append(lc.Practice, question(i))
	}
	for i := 0; i < chapter.TestCount; i++ {
		lc.Test = append(lc.Test, question(i))
	}
	return lc
}

func lessonJSON(t *testing.T, lc chapter.LessonContent) string {
	t.Helper()
	data, err := json.Marshal(lc)
	if err != nil {
		t.Fatalf("lessonJSON(): %v", err)
	}
	return string(data)
}

// Cookies

func sessionCookie(t *testing.T, env *testEnv, s identity.Session) *http.Cookie {
	t.Helper()
	token, err := env.auth.GenerateToken(env.auth.claims(s))
	if err != nil {
		t.Fatalf("sessionCookie(): %v", err)
	}
	name := parentCookieName
	if _, ok := s.(identity.ChildSession); ok {
		name = childCookieName
	}
	return &http.Cookie{Name: name, Value: token}
}

func parentCookie(t *testing.T, env *testEnv, parentID string) *http.Cookie {
	now := time.Now()
	return sessionCookie(t, env, identity.ParentSession{
		ParentID:  parentID,
		IssuedAt:  now,
		ExpiresAt: now.Add(env.conf.Server.ParentSessionTTL),
	})
}

func childCookie(t *testing.T, env *testEnv, child identity.Child) *http.Cookie {
	now := time.Now()
	return sessionCookie(t, env, identity.ChildSession{
		ChildID:   child.ID,
		ParentID:  child.ParentID,
		IssuedAt:  now,
		ExpiresAt: now.Add(env.conf.Server.ChildSessionTTL),
	})
}

func expiredParentCookie(t *testing.T, env *testEnv, parentID string) *http.Cookie {
	now := time.Now()
	return sessionCookie(t, env, identity.ParentSession{
		ParentID:  parentID,
		IssuedAt:  now.Add(-8 * 24 * time.Hour),
		ExpiresAt: now.Add(-24 * time.Hour),
	})
}

// Requests

type httpTest struct {
	name     string
	method   string
	path     string
	body     []byte
	cookies  []*http.Cookie
	wantCode int
	wantData []byte
}

func newRequest(method, path string, body []byte, cookies ...*http.Cookie) (*http.Request, *httptest.ResponseRecorder) {
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for _, c := range cookies {
		req.AddCookie(c)
	}
	return req, httptest.NewRecorder()
}

// newUploadRequest builds a multipart chapter submission with n fake images.
func newUploadRequest(t *testing.T, path, childID, subject string, n int, cookies ...*http.Cookie) (*http.Request, *httptest.ResponseRecorder) {
	t.Helper()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	if childID != "" {
		if err := w.WriteField("child_id", childID); err != nil {
			t.Fatalf("newUploadRequest(): %v", err)
		}
	}
	if err := w.WriteField("subject", subject); err != nil {
		t.Fatalf("newUploadRequest(): %v", err)
	}
	for i := 0; i < n; i++ {
		hdr := make(map[string][]string)
		hdr["Content-Disposition"] = []string{fmt.Sprintf(`form-data; name="images"; filename="page%d.png"`, i)}
		hdr["Content-Type"] = []string{"image/png"}
		part, err := w.CreatePart(hdr)
		if err != nil {
			t.Fatalf("newUploadRequest(): %v", err)
		}
		if _, err = part.Write([]byte("not-really-a-png")); err != nil {
			t.Fatalf("newUploadRequest(): %v", err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("newUploadRequest(): %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	for _, c := range cookies {
		req.AddCookie(c)
	}
	return req, httptest.NewRecorder()
}

func marshallObj(t *testing.T, obj interface{}) []byte {
	t.Helper()
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marshallObj(): %v", err)
	}
	return data
}

func jsonBytesEqual(b1, b2 []byte) (bool, error) {
	var j1, j2 interface{}
	if err := json.Unmarshal(b1, &j1); err != nil {
		return false, err
	}
	if err := json.Unmarshal(b2, &j2); err != nil {
		return false, err
	}
	return reflect.DeepEqual(j1, j2), nil
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	t.Helper()
	if rec.Code != tt.wantCode {
		t.Errorf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
	}
	if tt.wantData == nil {
		return
	}
	ok, err := jsonBytesEqual(rec.Body.Bytes(), tt.wantData)
	if err != nil {
		t.Errorf("jsonBytesEqual() failed to compare; err %v", err)
	}
	if !ok {
		t.Errorf("failed! data = %v; wantData %v", rec.Body.String(), string(tt.wantData))
	}
}
