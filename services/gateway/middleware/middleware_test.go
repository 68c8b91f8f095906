// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func sessionRouter(provider SessionProvider) *gin.Engine {
	router := gin.New()
	router.GET("/whoami", RequireSession(provider), func(c *gin.Context) {
		session := GetSession(c)
		if session == nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "session missing"})
			return
		}
		c.JSON(http.StatusOK, session)
	})
	return router
}

func TestStaticProviderAuthenticatesEverything(t *testing.T) {
	router := sessionRouter(&StaticProvider{UserID: "op-1", Name: "Operator"})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/whoami", nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"userId":"op-1"`)
}

func TestRemoteProviderForwardsCookies(t *testing.T) {
	var gotCookie string
	authSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotCookie = r.Header.Get("Cookie")
		_, _ = w.Write([]byte(`{"user":{"id":"u-7","name":"Jane","email":"jane@example.com"}}`))
	}))
	t.Cleanup(authSrv.Close)

	provider := NewRemoteProvider(authSrv.URL, nil)

	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set("Cookie", "session=abc123")

	session, err := provider.Session(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "session=abc123", gotCookie)
	assert.Equal(t, "u-7", session.UserID)
	assert.Equal(t, "jane@example.com", session.Email)
}

func TestRemoteProviderAnonymousIsNoSession(t *testing.T) {
	authSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`null`))
	}))
	t.Cleanup(authSrv.Close)

	provider := NewRemoteProvider(authSrv.URL, nil)
	_, err := provider.Session(context.Background(),
		httptest.NewRequest(http.MethodGet, "/", nil))
	assert.ErrorIs(t, err, ErrNoSession)
}

func TestRequireSessionRejectsAnonymous(t *testing.T) {
	authSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	t.Cleanup(authSrv.Close)

	router := sessionRouter(NewRemoteProvider(authSrv.URL, nil))

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/whoami", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRateLimiterBoundsBursts(t *testing.T) {
	limiter := NewRateLimiter(1, 3)

	router := gin.New()
	router.GET("/ping", limiter.Middleware(), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	statuses := make([]int, 0, 5)
	for i := 0; i < 5; i++ {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))
		statuses = append(statuses, w.Code)
	}

	// Burst of 3 passes; the rest of the tight loop is rejected.
	assert.Equal(t, http.StatusOK, statuses[0])
	assert.Equal(t, http.StatusOK, statuses[1])
	assert.Equal(t, http.StatusOK, statuses[2])
	assert.Equal(t, http.StatusTooManyRequests, statuses[3])
	assert.Equal(t, http.StatusTooManyRequests, statuses[4])
}
