package echoapi

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/somaedu/soma-backend/core/identity"
)

func responseCookie(rec *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func Test_accountApi_register(t *testing.T) {
	env := setup(t)

	t.Run("ok", func(t *testing.T) {
		body := []byte(`{"name": "Ada", "email": "ada@example.com", "password": "s3cretpwd"}`)
		req, rec := newRequest(http.MethodPost, "/v1/parents/register", body)
		env.app.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusCreated, rec.Code)
		var p identity.Parent
		assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &p))
		assert.NotEmpty(t, p.ID)
		assert.Equal(t, "Ada", p.Name)
		assert.Equal(t, "ada@example.com", p.Email)
		assert.NotContains(t, rec.Body.String(), "password")
	})

	t.Run("duplicate email", func(t *testing.T) {
		body := []byte(`{"name": "Imposter", "email": "ada@example.com", "password": "password1"}`)
		req, rec := newRequest(http.MethodPost, "/v1/parents/register", body)
		env.app.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, rec.Body.String(), "email")
	})

	t.Run("invalid payload", func(t *testing.T) {
		body := []byte(`{"name": "", "email": "not-an-email", "password": "short"}`)
		req, rec := newRequest(http.MethodPost, "/v1/parents/register", body)
		env.app.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func Test_accountApi_login(t *testing.T) {
	env := setup(t)
	createParent(t, env, "ada@example.com")

	t.Run("ok", func(t *testing.T) {
		body := []byte(`{"email": "ada@example.com", "password": "s3cretpwd"}`)
		req, rec := newRequest(http.MethodPost, "/v1/parents/login", body)
		env.app.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		cookie := responseCookie(rec, parentCookieName)
		if assert.NotNil(t, cookie) {
			assert.NotEmpty(t, cookie.Value)
			assert.True(t, cookie.HttpOnly)
			assert.Equal(t, http.SameSiteLaxMode, cookie.SameSite)
			assert.WithinDuration(t, time.Now().Add(env.conf.Server.ParentSessionTTL), cookie.Expires, time.Minute)
		}
	})

	// unknown email and wrong password return the same response
	badCreds := []httpTest{
		{name: "wrong password", body: []byte(`{"email": "ada@example.com", "password": "wrongpwd!"}`)},
		{name: "unknown email", body: []byte(`{"email": "nobody@example.com", "password": "s3cretpwd"}`)},
	}
	for _, tt := range badCreds {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newRequest(http.MethodPost, "/v1/parents/login", tt.body)
			env.app.ServeHTTP(rec, req)

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Contains(t, rec.Body.String(), "invalid credentials")
			assert.Nil(t, responseCookie(rec, parentCookieName))
		})
	}

	t.Run("missing fields", func(t *testing.T) {
		req, rec := newRequest(http.MethodPost, "/v1/parents/login", []byte(`{}`))
		env.app.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func Test_accountApi_me(t *testing.T) {
	env := setup(t)
	parent := createParent(t, env, "ada@example.com")
	child := createChild(t, env, parent.ID, "Junior")

	tests := []httpTest{
		{name: "no cookie", wantCode: http.StatusUnauthorized},
		{name: "garbage token", cookies: []*http.Cookie{{Name: parentCookieName, Value: "not.a.jwt"}}, wantCode: http.StatusUnauthorized},
		{name: "expired session", cookies: []*http.Cookie{expiredParentCookie(t, env, parent.ID)}, wantCode: http.StatusUnauthorized},
		{name: "child cookie is not enough", cookies: []*http.Cookie{childCookie(t, env, child)}, wantCode: http.StatusUnauthorized},
		{name: "ok", cookies: []*http.Cookie{parentCookie(t, env, parent.ID)}, wantCode: http.StatusOK, wantData: marshallObj(t, parent)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newRequest(http.MethodGet, "/v1/parents/me", nil, tt.cookies...)
			env.app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_accountApi_children(t *testing.T) {
	env := setup(t)
	parent := createParent(t, env, "ada@example.com")
	cookie := parentCookie(t, env, parent.ID)

	t.Run("create requires parent", func(t *testing.T) {
		req, rec := newRequest(http.MethodPost, "/v1/children", []byte(`{"name": "Junior", "grade_level": 3}`))
		env.app.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("create ok", func(t *testing.T) {
		req, rec := newRequest(http.MethodPost, "/v1/children", []byte(`{"name": "Junior", "grade_level": 3}`), cookie)
		env.app.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusCreated, rec.Code)
		var c identity.Child
		assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &c))
		assert.Equal(t, parent.ID, c.ParentID)
		assert.Equal(t, "Junior", c.Name)
		assert.Equal(t, 3, c.GradeLevel)
	})

	t.Run("create grade out of range", func(t *testing.T) {
		req, rec := newRequest(http.MethodPost, "/v1/children", []byte(`{"name": "Junior", "grade_level": 9}`), cookie)
		env.app.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("query lists own children only", func(t *testing.T) {
		other := createParent(t, env, "bob@example.com")
		createChild(t, env, other.ID, "NotMine")

		req, rec := newRequest(http.MethodGet, "/v1/children", nil, cookie)
		env.app.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		var children []identity.Child
		assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &children))
		if assert.Len(t, children, 1) {
			assert.Equal(t, "Junior", children[0].Name)
		}
	})
}

func Test_accountApi_childLogin(t *testing.T) {
	env := setup(t)
	parent := createParent(t, env, "ada@example.com")
	other := createParent(t, env, "bob@example.com")
	child := createChild(t, env, parent.ID, "Junior")

	t.Run("ok", func(t *testing.T) {
		req, rec := newRequest(http.MethodPost, "/v1/children/"+child.ID+"/login", nil, parentCookie(t, env, parent.ID))
		env.app.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		cookie := responseCookie(rec, childCookieName)
		if assert.NotNil(t, cookie) {
			assert.NotEmpty(t, cookie.Value)
			assert.True(t, cookie.HttpOnly)
			// the child cookie lives 24h, not the parent's 7d
			assert.WithinDuration(t, time.Now().Add(env.conf.Server.ChildSessionTTL), cookie.Expires, time.Minute)
		}
		checkCodeAndData(t, httpTest{wantCode: http.StatusOK, wantData: marshallObj(t, child)}, rec)
	})

	tests := []httpTest{
		{name: "no parent session", path: "/v1/children/" + child.ID + "/login", wantCode: http.StatusUnauthorized},
		{
			name:     "child session cannot mint another",
			path:     "/v1/children/" + child.ID + "/login",
			cookies:  []*http.Cookie{childCookie(t, env, child)},
			wantCode: http.StatusUnauthorized,
		},
		{
			name:     "unknown child",
			path:     "/v1/children/nope/login",
			cookies:  []*http.Cookie{parentCookie(t, env, parent.ID)},
			wantCode: http.StatusNotFound,
		},
		{
			name:     "not the owner",
			path:     "/v1/children/" + child.ID + "/login",
			cookies:  []*http.Cookie{parentCookie(t, env, other.ID)},
			wantCode: http.StatusForbidden,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newRequest(http.MethodPost, tt.path, nil, tt.cookies...)
			env.app.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantCode, rec.Code)
			assert.Nil(t, responseCookie(rec, childCookieName))
		})
	}
}

func Test_accountApi_logout(t *testing.T) {
	env := setup(t)
	parent := createParent(t, env, "ada@example.com")
	child := createChild(t, env, parent.ID, "Junior")

	t.Run("parent logout clears both cookies", func(t *testing.T) {
		req, rec := newRequest(http.MethodPost, "/v1/parents/logout", nil, parentCookie(t, env, parent.ID), childCookie(t, env, child))
		env.app.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusNoContent, rec.Code)
		for _, name := range []string{parentCookieName, childCookieName} {
			cookie := responseCookie(rec, name)
			if assert.NotNil(t, cookie) {
				assert.Empty(t, cookie.Value)
				assert.Negative(t, cookie.MaxAge)
			}
		}
	})

	t.Run("child logout keeps the parent cookie", func(t *testing.T) {
		req, rec := newRequest(http.MethodPost, "/v1/children/logout", nil, parentCookie(t, env, parent.ID), childCookie(t, env, child))
		env.app.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusNoContent, rec.Code)
		cookie := responseCookie(rec, childCookieName)
		if assert.NotNil(t, cookie) {
			assert.Negative(t, cookie.MaxAge)
		}
		assert.Nil(t, responseCookie(rec, parentCookieName))
	})
}
