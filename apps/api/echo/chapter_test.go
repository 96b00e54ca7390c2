package echoapi

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/somaedu/soma-backend/core/ai"
	"github.com/somaedu/soma-backend/core/chapter"
	"github.com/somaedu/soma-backend/core/identity"
	"github.com/somaedu/soma-backend/core/learning"
)

func Test_chapterApi_create(t *testing.T) {
	env := setup(t)
	parent := createParent(t, env, "ada@example.com")
	child := createChild(t, env, parent.ID, "Junior")

	t.Run("parent creates for an owned child", func(t *testing.T) {
		env.generator.AddResponse(ai.MockResponse{Text: lessonJSON(t, testLesson())})
		env.verifier.AddResponse(ai.MockResponse{Text: `{"pass": true, "issues": []}`})

		req, rec := newUploadRequest(t, "/v1/chapters", child.ID, "math", 2, parentCookie(t, env, parent.ID))
		env.app.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusAccepted, rec.Code)
		var ch chapter.Chapter
		assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &ch))
		assert.Equal(t, child.ID, ch.ChildID)
		assert.Equal(t, parent.ID, ch.ParentID)
		assert.Equal(t, chapter.StatusProcessing, ch.Status)
		assert.Nil(t, ch.Content)

		env.chapterSvc.Wait()
		done, err := env.chapterSvc.Get(context.Background(), ch.ID)
		assert.NoError(t, err)
		assert.Equal(t, chapter.StatusReady, done.Status)
		if assert.NotNil(t, done.Content) {
			assert.Equal(t, "Fractions", done.Content.Topic)
		}
	})

	t.Run("child creates for itself", func(t *testing.T) {
		env.generator.AddResponse(ai.MockResponse{Text: lessonJSON(t, testLesson())})
		env.verifier.AddResponse(ai.MockResponse{Text: `{"pass": true, "issues": []}`})

		req, rec := newUploadRequest(t, "/v1/chapters", "", "science", 1, childCookie(t, env, child))
		env.app.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusAccepted, rec.Code)
		env.chapterSvc.Wait()
	})
}

func Test_chapterApi_create_gates(t *testing.T) {
	env := setup(t)
	parent := createParent(t, env, "ada@example.com")
	other := createParent(t, env, "bob@example.com")
	child := createChild(t, env, parent.ID, "Junior")
	sibling := createChild(t, env, parent.ID, "Sis")

	tests := []struct {
		name     string
		childID  string
		subject  string
		images   int
		cookies  []*http.Cookie
		wantCode int
	}{
		{name: "no session", childID: child.ID, subject: "math", images: 1, wantCode: http.StatusUnauthorized},
		{name: "parent missing child_id", childID: "", subject: "math", images: 1, cookies: []*http.Cookie{parentCookie(t, env, parent.ID)}, wantCode: http.StatusBadRequest},
		{name: "parent unknown child", childID: "nope", subject: "math", images: 1, cookies: []*http.Cookie{parentCookie(t, env, parent.ID)}, wantCode: http.StatusNotFound},
		{name: "parent not the owner", childID: child.ID, subject: "math", images: 1, cookies: []*http.Cookie{parentCookie(t, env, other.ID)}, wantCode: http.StatusForbidden},
		{name: "child cannot act for a sibling", childID: sibling.ID, subject: "math", images: 1, cookies: []*http.Cookie{childCookie(t, env, child)}, wantCode: http.StatusForbidden},
		{name: "unknown subject", childID: child.ID, subject: "alchemy", images: 1, cookies: []*http.Cookie{parentCookie(t, env, parent.ID)}, wantCode: http.StatusBadRequest},
		{name: "no images", childID: child.ID, subject: "math", images: 0, cookies: []*http.Cookie{parentCookie(t, env, parent.ID)}, wantCode: http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newUploadRequest(t, "/v1/chapters", tt.childID, tt.subject, tt.images, tt.cookies...)
			env.app.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantCode, rec.Code)
		})
	}

	// none of the rejected submissions may have reached the pipeline
	assert.Zero(t, env.generator.CallCount())
	assert.Zero(t, env.verifier.CallCount())
	assert.Zero(t, env.repairer.CallCount())
}

func Test_chapterApi_create_quota(t *testing.T) {
	conf := testConfig()
	conf.Quota.GenerationRequests = 2
	env := setup(t, conf)
	parent := createParent(t, env, "ada@example.com")
	other := createParent(t, env, "bob@example.com")
	child := createChild(t, env, parent.ID, "Junior")
	otherChild := createChild(t, env, other.ID, "Theirs")

	create := func(c identity.Child, cookie *http.Cookie) int {
		env.generator.AddResponse(ai.MockResponse{Text: lessonJSON(t, testLesson())})
		env.verifier.AddResponse(ai.MockResponse{Text: `{"pass": true, "issues": []}`})
		req, rec := newUploadRequest(t, "/v1/chapters", c.ID, "math", 1, cookie)
		env.app.ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusAccepted, create(child, parentCookie(t, env, parent.ID)))
	// the child session draws from the same parent allowance
	assert.Equal(t, http.StatusAccepted, create(child, childCookie(t, env, child)))
	env.chapterSvc.Wait()
	callsBefore := env.generator.CallCount()

	req, rec := newUploadRequest(t, "/v1/chapters", child.ID, "math", 1, parentCookie(t, env, parent.ID))
	env.app.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Contains(t, rec.Body.String(), "quota")
	// rejected before any pipeline work
	env.chapterSvc.Wait()
	assert.Equal(t, callsBefore, env.generator.CallCount())

	// another parent's allowance is untouched
	assert.Equal(t, http.StatusAccepted, create(otherChild, parentCookie(t, env, other.ID)))
	env.chapterSvc.Wait()
}

func Test_chapterApi_retrieveAndQuery(t *testing.T) {
	env := setup(t)
	parent := createParent(t, env, "ada@example.com")
	other := createParent(t, env, "bob@example.com")
	child := createChild(t, env, parent.ID, "Junior")
	sibling := createChild(t, env, parent.ID, "Sis")
	otherChild := createChild(t, env, other.ID, "Theirs")
	ch := createReadyChapter(t, env, child)

	t.Run("retrieve", func(t *testing.T) {
		tests := []httpTest{
			{name: "no session", path: "/v1/chapters/" + ch.ID, wantCode: http.StatusUnauthorized},
			{name: "owning child", path: "/v1/chapters/" + ch.ID, cookies: []*http.Cookie{childCookie(t, env, child)}, wantCode: http.StatusOK, wantData: marshallObj(t, ch)},
			{name: "owning parent", path: "/v1/chapters/" + ch.ID, cookies: []*http.Cookie{parentCookie(t, env, parent.ID)}, wantCode: http.StatusOK, wantData: marshallObj(t, ch)},
			{name: "sibling is forbidden, not hidden", path: "/v1/chapters/" + ch.ID, cookies: []*http.Cookie{childCookie(t, env, sibling)}, wantCode: http.StatusForbidden},
			{name: "other child is forbidden", path: "/v1/chapters/" + ch.ID, cookies: []*http.Cookie{childCookie(t, env, otherChild)}, wantCode: http.StatusForbidden},
			{name: "other parent is forbidden", path: "/v1/chapters/" + ch.ID, cookies: []*http.Cookie{parentCookie(t, env, other.ID)}, wantCode: http.StatusForbidden},
			{name: "unknown chapter", path: "/v1/chapters/nope", cookies: []*http.Cookie{parentCookie(t, env, parent.ID)}, wantCode: http.StatusNotFound},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				req, rec := newRequest(http.MethodGet, tt.path, nil, tt.cookies...)
				env.app.ServeHTTP(rec, req)
				checkCodeAndData(t, tt, rec)
			})
		}
	})

	t.Run("query", func(t *testing.T) {
		tests := []httpTest{
			{name: "child lists its own", path: "/v1/chapters", cookies: []*http.Cookie{childCookie(t, env, child)}, wantCode: http.StatusOK, wantData: marshallObj(t, []chapter.Chapter{ch})},
			{name: "parent must name a child", path: "/v1/chapters", cookies: []*http.Cookie{parentCookie(t, env, parent.ID)}, wantCode: http.StatusBadRequest},
			{name: "parent lists an owned child", path: "/v1/chapters?child_id=" + child.ID, cookies: []*http.Cookie{parentCookie(t, env, parent.ID)}, wantCode: http.StatusOK, wantData: marshallObj(t, []chapter.Chapter{ch})},
			{name: "sibling has none", path: "/v1/chapters", cookies: []*http.Cookie{childCookie(t, env, sibling)}, wantCode: http.StatusOK, wantData: []byte(`[]`)},
			{name: "parent of another child", path: "/v1/chapters?child_id=" + child.ID, cookies: []*http.Cookie{parentCookie(t, env, other.ID)}, wantCode: http.StatusForbidden},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				req, rec := newRequest(http.MethodGet, tt.path, nil, tt.cookies...)
				env.app.ServeHTTP(rec, req)
				checkCodeAndData(t, tt, rec)
			})
		}
	})
}

func Test_chapterApi_sessions(t *testing.T) {
	env := setup(t)
	parent := createParent(t, env, "ada@example.com")
	other := createParent(t, env, "bob@example.com")
	child := createChild(t, env, parent.ID, "Junior")
	ch := createReadyChapter(t, env, child)

	var ls learning.LearningSession
	t.Run("start", func(t *testing.T) {
		req, rec := newRequest(http.MethodPost, "/v1/chapters/"+ch.ID+"/sessions", nil, childCookie(t, env, child))
		env.app.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusCreated, rec.Code)
		assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &ls))
		assert.Equal(t, child.ID, ls.ChildID)
		assert.Equal(t, ch.ID, ls.ChapterID)
		assert.Nil(t, ls.CompletedAt)
	})

	t.Run("start on a processing chapter", func(t *testing.T) {
		processing, err := env.chapterRepo.CreateChapter(context.Background(), chapter.Chapter{
			ID: "ch-processing", ChildID: child.ID, ParentID: parent.ID,
			Subject: chapter.SubjectMath, GradeLevel: child.GradeLevel,
			Status: chapter.StatusProcessing,
		})
		assert.NoError(t, err)

		req, rec := newRequest(http.MethodPost, "/v1/chapters/"+processing.ID+"/sessions", nil, childCookie(t, env, child))
		env.app.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("retrieve", func(t *testing.T) {
		tests := []httpTest{
			{name: "owning child", path: "/v1/sessions/" + ls.ID, cookies: []*http.Cookie{childCookie(t, env, child)}, wantCode: http.StatusOK, wantData: marshallObj(t, ls)},
			{name: "owning parent", path: "/v1/sessions/" + ls.ID, cookies: []*http.Cookie{parentCookie(t, env, parent.ID)}, wantCode: http.StatusOK, wantData: marshallObj(t, ls)},
			{name: "other parent", path: "/v1/sessions/" + ls.ID, cookies: []*http.Cookie{parentCookie(t, env, other.ID)}, wantCode: http.StatusForbidden},
			{name: "unknown session", path: "/v1/sessions/nope", cookies: []*http.Cookie{childCookie(t, env, child)}, wantCode: http.StatusNotFound},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				req, rec := newRequest(http.MethodGet, tt.path, nil, tt.cookies...)
				env.app.ServeHTTP(rec, req)
				checkCodeAndData(t, tt, rec)
			})
		}
	})

	t.Run("complete", func(t *testing.T) {
		req, rec := newRequest(http.MethodPost, "/v1/sessions/"+ls.ID+"/complete", nil, parentCookie(t, env, other.ID))
		env.app.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusForbidden, rec.Code)

		req, rec = newRequest(http.MethodPost, "/v1/sessions/"+ls.ID+"/complete", nil, childCookie(t, env, child))
		env.app.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusNoContent, rec.Code)

		got, err := env.learningSvc.GetSession(context.Background(), ls.ID)
		assert.NoError(t, err)
		assert.NotNil(t, got.CompletedAt)
	})
}

func Test_chapterApi_submitAndResult(t *testing.T) {
	env := setup(t)
	parent := createParent(t, env, "ada@example.com")
	other := createParent(t, env, "bob@example.com")
	child := createChild(t, env, parent.ID, "Junior")
	ch := createReadyChapter(t, env, child)

	answers := func(practice, test []string) []byte {
		return marshallObj(t, learning.SubmitAnswers{
			PracticeAnswers:  practice,
			TestAnswers:      test,
			TimeSpentSeconds: 300,
		})
	}
	correct := func(qs []chapter.Question) []string {
		letters := []string{"A", "B", "C", "D"}
		out := make([]string, len(qs))
		for i, q := range qs {
			out[i] = letters[q.Answer]
		}
		return out
	}

	t.Run("result before submission", func(t *testing.T) {
		req, rec := newRequest(http.MethodGet, "/v1/chapters/"+ch.ID+"/result", nil, childCookie(t, env, child))
		env.app.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("too few practice answers", func(t *testing.T) {
		body := answers([]string{"A", "B"}, correct(ch.Content.Test))
		req, rec := newRequest(http.MethodPost, "/v1/chapters/"+ch.ID+"/submit", body, childCookie(t, env, child))
		env.app.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	var result learning.Result
	t.Run("submit ok", func(t *testing.T) {
		body := answers(correct(ch.Content.Practice), correct(ch.Content.Test))
		req, rec := newRequest(http.MethodPost, "/v1/chapters/"+ch.ID+"/submit", body, childCookie(t, env, child))
		env.app.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusCreated, rec.Code)
		assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
		assert.Equal(t, 5, result.PracticeScore)
		assert.Equal(t, 10, result.TestScore)
		assert.Equal(t, 15, result.TotalScore)
		assert.Equal(t, 5, result.Stars)
		// the submitted value is deliberately dropped
		assert.Zero(t, result.TimeSpentSeconds)
	})

	t.Run("second submission is rejected", func(t *testing.T) {
		body := answers(correct(ch.Content.Practice), correct(ch.Content.Test))
		req, rec := newRequest(http.MethodPost, "/v1/chapters/"+ch.ID+"/submit", body, childCookie(t, env, child))
		env.app.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("result", func(t *testing.T) {
		tests := []httpTest{
			{name: "owning child", cookies: []*http.Cookie{childCookie(t, env, child)}, wantCode: http.StatusOK, wantData: marshallObj(t, result)},
			{name: "owning parent", cookies: []*http.Cookie{parentCookie(t, env, parent.ID)}, wantCode: http.StatusOK, wantData: marshallObj(t, result)},
			{name: "other parent", cookies: []*http.Cookie{parentCookie(t, env, other.ID)}, wantCode: http.StatusForbidden},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				req, rec := newRequest(http.MethodGet, "/v1/chapters/"+ch.ID+"/result", nil, tt.cookies...)
				env.app.ServeHTTP(rec, req)
				checkCodeAndData(t, tt, rec)
			})
		}
	})
}
