// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package directory

// User is one KOL profile as returned by the data API.
type User struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	ScreenName  string `json:"screenName"`
	Location    string `json:"location,omitempty"`
	Description string `json:"description"`
	Website     string `json:"website,omitempty"`

	FollowersCount    int `json:"followersCount"`
	FriendsCount      int `json:"friendsCount"`
	KOLFollowersCount int `json:"kolFollowersCount"`

	IsKOL bool     `json:"isKol"`
	Tags  []string `json:"tags,omitempty"`

	ProfileImageURLHTTPS string `json:"profileImageUrlHttps,omitempty"`
	ProfileBannerURL     string `json:"profileBannerUrl,omitempty"`
	Verified             bool   `json:"verified,omitempty"`
	CreatedAt            string `json:"createdAt,omitempty"`
	StatusesCount        int    `json:"statusesCount,omitempty"`
}

// Tweet is one tweet as returned by the data API.
type Tweet struct {
	ID             string `json:"id"`
	ConversationID string `json:"conversationId"`
	Text           string `json:"text"`
	FullText       string `json:"fullText"`
	CreatedAt      string `json:"createdAt"`

	InReplyToTweetID string `json:"inReplyToTweetId,omitempty"`
	QuotedTweetID    string `json:"quotedTweetId,omitempty"`
	RetweetedTweetID string `json:"retweetedTweetId,omitempty"`

	FavoriteCount int `json:"favoriteCount"`
	BookmarkCount int `json:"bookmarkCount"`
	ViewCount     int `json:"viewCount"`
	QuoteCount    int `json:"quoteCount"`
	ReplyCount    int `json:"replyCount"`
	RetweetCount  int `json:"retweetCount"`
}

// IsOriginal reports whether the tweet is neither a retweet nor a
// reply. The reply workflow only targets original tweets.
func (t *Tweet) IsOriginal() bool {
	return t.RetweetedTweetID == "" && t.InReplyToTweetID == ""
}

// Body returns the best available tweet text.
func (t *Tweet) Body() string {
	if t.FullText != "" {
		return t.FullText
	}
	return t.Text
}

// TweetWithUser pairs a tweet with its author profile.
type TweetWithUser struct {
	Tweet Tweet `json:"tweet"`
	User  User  `json:"user"`
}

// FilterParams selects KOLs by tag facets.
type FilterParams struct {
	LanguageTags  []string `json:"language_tags"`
	EcosystemTags []string `json:"ecosystem_tags"`
	UserTypeTags  []string `json:"user_type_tags"`
}

// FilterResult is one KOL matched by the filter endpoint.
type FilterResult struct {
	Username      string   `json:"username"`
	LanguageTags  []string `json:"language_tags"`
	EcosystemTags []string `json:"ecosystem_tags"`
	UserTypeTags  []string `json:"user_type_tags"`
	MBTI          string   `json:"MBTI"`
	Summary       string   `json:"summary"`
	Location      string   `json:"location"`
	Description   string   `json:"description"`
	Website       string   `json:"website"`

	FollowersCount    int `json:"followersCount"`
	FriendsCount      int `json:"friendsCount"`
	KOLFollowersCount int `json:"kolFollowersCount"`
}

// AsUser converts a filter match into the profile shape used by the
// rest of the system.
func (r *FilterResult) AsUser() User {
	tags := make([]string, 0, len(r.LanguageTags)+len(r.EcosystemTags)+len(r.UserTypeTags))
	tags = append(tags, r.LanguageTags...)
	tags = append(tags, r.EcosystemTags...)
	tags = append(tags, r.UserTypeTags...)

	return User{
		ID:                r.Username,
		Name:              r.Username,
		ScreenName:        r.Username,
		Location:          r.Location,
		Description:       r.Description,
		Website:           r.Website,
		FollowersCount:    r.FollowersCount,
		FriendsCount:      r.FriendsCount,
		KOLFollowersCount: r.KOLFollowersCount,
		IsKOL:             true,
		Tags:              tags,
	}
}
