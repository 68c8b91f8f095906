// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/AleutianAI/kolwatch/services/composer"
	"github.com/AleutianAI/kolwatch/services/directory"
	"github.com/AleutianAI/kolwatch/services/feed"
	"github.com/AleutianAI/kolwatch/services/gateway/handlers"
	"github.com/AleutianAI/kolwatch/services/gateway/middleware"
	"github.com/AleutianAI/kolwatch/services/outreach"
	"github.com/AleutianAI/kolwatch/services/posting"
	"github.com/AleutianAI/kolwatch/services/reply"
)

// Deps carries the services the routes dispatch to.
type Deps struct {
	Feed      *feed.Channel
	Composer  composer.Composer
	Directory *directory.Client
	Outreach  *outreach.Client
	Store     posting.CredentialStore
	Publisher *posting.Publisher
	Replies   *reply.Manager

	Sessions    middleware.SessionProvider
	RateLimiter *middleware.RateLimiter

	// MetricsGatherer serves /metrics when non-nil.
	MetricsGatherer prometheus.Gatherer
}

// SetupRoutes registers every gateway route on the router.
func SetupRoutes(router *gin.Engine, deps Deps) {
	router.GET("/health", handlers.HealthCheck)

	if deps.MetricsGatherer != nil {
		router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(
			deps.MetricsGatherer, promhttp.HandlerOpts{})))
	}

	v1 := router.Group("/v1")
	v1.Use(middleware.RequireSession(deps.Sessions))
	if deps.RateLimiter != nil {
		v1.Use(deps.RateLimiter.Middleware())
	}
	{
		feedGroup := v1.Group("/feed")
		{
			feedGroup.POST("/connect", handlers.ConnectFeed(deps.Feed))
			feedGroup.POST("/disconnect", handlers.DisconnectFeed(deps.Feed))
			feedGroup.GET("/status", handlers.FeedStatus(deps.Feed))
			feedGroup.POST("/subscribe", handlers.SubscribeFeed(deps.Feed))
			feedGroup.POST("/unsubscribe", handlers.UnsubscribeFeed(deps.Feed))
			feedGroup.GET("/roster", handlers.FeedRoster(deps.Feed))
			feedGroup.GET("/frames", handlers.FeedFrames(deps.Feed))
			feedGroup.POST("/clear", handlers.ClearFeed(deps.Feed))
		}

		replies := v1.Group("/replies")
		{
			replies.POST("/generate", handlers.GenerateReply(deps.Replies))
			replies.GET("", handlers.ReplyStates(deps.Replies))
			replies.GET("/:contentId", handlers.ReplyState(deps.Replies))
			replies.POST("/:contentId/edit", handlers.EditReply(deps.Replies))
			replies.POST("/:contentId/send", handlers.SendReply(deps.Replies))
		}

		twitter := v1.Group("/twitter")
		{
			twitter.GET("/accounts/:accountId/status", handlers.AccountStatus(deps.Store))
			twitter.DELETE("/accounts/:accountId", handlers.UnlinkAccount(deps.Store))
			twitter.POST("/post", handlers.PostTweet(deps.Publisher))
		}

		style := v1.Group("/style")
		{
			style.POST("/analyze", handlers.AnalyzeStyle(deps.Directory, deps.Composer))
			style.POST("/samples", handlers.SampleReplies(deps.Directory, deps.Composer))
		}

		kols := v1.Group("/kols")
		{
			kols.GET("/user_info", handlers.KolUserInfo(deps.Directory))
			kols.GET("/tweets_info", handlers.KolTweetsInfo(deps.Directory))
			kols.POST("/filter", handlers.FilterKols(deps.Directory))
		}

		// Outreach routes exist only when a lookup API is configured.
		if deps.Outreach != nil {
			outreachGroup := v1.Group("/outreach")
			{
				outreachGroup.POST("/search", handlers.OutreachSearch(deps.Outreach))
				outreachGroup.POST("/enrich", handlers.OutreachEnrich(deps.Outreach))
			}
		}
	}
}
