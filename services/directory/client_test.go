// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package directory

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tweetJSON(id, screenName, retweetedID, inReplyToID string) string {
	return fmt.Sprintf(`{
		"tweet": {
			"id": %q, "conversationId": %q,
			"text": "text %s", "fullText": "full text %s",
			"createdAt": "2026-08-30T10:00:00Z",
			"retweetedTweetId": %q, "inReplyToTweetId": %q,
			"favoriteCount": 5, "replyCount": 1, "retweetCount": 2,
			"quoteCount": 0, "bookmarkCount": 0, "viewCount": 100
		},
		"user": {"id": "u-%s", "name": "Name", "screenName": %q,
			"description": "", "followersCount": 10, "friendsCount": 5,
			"kolFollowersCount": 3, "isKol": true}
	}`, id, id, id, id, retweetedID, inReplyToID, screenName, screenName)
}

func TestUserInfoQueryAndDecode(t *testing.T) {
	var gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query().Get("screen_names")
		assert.Equal(t, "/user_info", r.URL.Path)
		_, _ = w.Write([]byte(`[
			{"id":"1","name":"Alice","screenName":"alice","description":"d",
			 "followersCount":100,"friendsCount":50,"kolFollowersCount":7,
			 "isKol":true,"tags":["defi"]},
			{"id":"2","name":"Bob","screenName":"bob","description":"",
			 "followersCount":5,"friendsCount":5,"kolFollowersCount":0,"isKol":false}
		]`))
	}))
	t.Cleanup(srv.Close)

	client := NewClient(Config{BaseURL: srv.URL})
	users, err := client.UserInfo(context.Background(), []string{"alice", "bob"})
	require.NoError(t, err)

	assert.Equal(t, "alice,bob", gotQuery)
	require.Len(t, users, 2)
	assert.Equal(t, "alice", users[0].ScreenName)
	assert.True(t, users[0].IsKOL)
	assert.Equal(t, 7, users[0].KOLFollowersCount)
	assert.False(t, users[1].IsKOL)
}

func TestUserInfoRejectsInvalidHandle(t *testing.T) {
	client := NewClient(Config{BaseURL: "http://unused.invalid"})
	_, err := client.UserInfo(context.Background(), []string{"ok_handle", "bad handle"})
	assert.Error(t, err)
}

func TestUserInfoSurfacesAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("upstream unavailable"))
	}))
	t.Cleanup(srv.Close)

	client := NewClient(Config{BaseURL: srv.URL})
	_, err := client.UserInfo(context.Background(), []string{"alice"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
	assert.Contains(t, err.Error(), "upstream unavailable")
}

func TestFilterKOLsPostsParams(t *testing.T) {
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/kol_filter", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		_, _ = w.Write([]byte(`[{"username":"alice","language_tags":["English"],
			"ecosystem_tags":["Solana"],"user_type_tags":["Builder"],
			"MBTI":"INTJ","summary":"s","location":"","description":"",
			"website":"","followersCount":100,"friendsCount":10,"kolFollowersCount":4}]`))
	}))
	t.Cleanup(srv.Close)

	client := NewClient(Config{BaseURL: srv.URL})
	results, err := client.FilterKOLs(context.Background(), FilterParams{
		LanguageTags:  []string{"English"},
		EcosystemTags: []string{"Solana"},
		UserTypeTags:  []string{"Builder"},
	})
	require.NoError(t, err)

	assert.Equal(t, []any{"English"}, gotBody["language_tags"])
	assert.Equal(t, []any{"Solana"}, gotBody["ecosystem_tags"])
	require.Len(t, results, 1)
	assert.Equal(t, "alice", results[0].Username)
	assert.Equal(t, "INTJ", results[0].MBTI)

	user := results[0].AsUser()
	assert.Equal(t, "alice", user.ScreenName)
	assert.True(t, user.IsKOL)
	assert.Contains(t, user.Tags, "Solana")
}

func TestOriginalTweetsFiltersAndCaps(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tweets := []string{
			tweetJSON("1", "alice", "", ""),   // original
			tweetJSON("2", "alice", "rt", ""), // retweet
			tweetJSON("3", "alice", "", "p"),  // reply
			tweetJSON("4", "alice", "", ""),   // original
			tweetJSON("5", "alice", "", ""),   // original, over the cap
		}
		_, _ = fmt.Fprintf(w, "[%s,%s,%s,%s,%s]",
			tweets[0], tweets[1], tweets[2], tweets[3], tweets[4])
	}))
	t.Cleanup(srv.Close)

	client := NewClient(Config{BaseURL: srv.URL})
	got, err := client.OriginalTweets(context.Background(), "alice", 2)
	require.NoError(t, err)

	require.Len(t, got, 2)
	assert.Equal(t, "1", got[0].Tweet.ID)
	assert.Equal(t, "4", got[1].Tweet.ID)
	assert.Equal(t, "full text 1", got[0].Tweet.Body())
}

func TestOriginalTweetsByUserFanOut(t *testing.T) {
	var calls atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		name := r.URL.Query().Get("screen_names")
		_, _ = fmt.Fprintf(w, "[%s]", tweetJSON("t-"+name, name, "", ""))
	}))
	t.Cleanup(srv.Close)

	client := NewClient(Config{BaseURL: srv.URL})
	got, err := client.OriginalTweetsByUser(context.Background(),
		[]string{"alice", "bob", "carol"}, 5)
	require.NoError(t, err)

	assert.Equal(t, int64(3), calls.Load())
	require.Len(t, got, 3)
	assert.Equal(t, "t-alice", got["alice"][0].Tweet.ID)
	assert.Equal(t, "t-bob", got["bob"][0].Tweet.ID)
	assert.Equal(t, "carol", got["carol"][0].User.ScreenName)
}

func TestOriginalTweetsByUserPropagatesFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("screen_names") == "bob" {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_, _ = w.Write([]byte(`[]`))
	}))
	t.Cleanup(srv.Close)

	client := NewClient(Config{BaseURL: srv.URL})
	_, err := client.OriginalTweetsByUser(context.Background(),
		[]string{"alice", "bob"}, 5)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bob")
}
