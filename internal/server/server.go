package server

import (
	"strings"
	"time"

	"chirpnet.io/chirp/internal/config"
	"chirpnet.io/chirp/internal/middleware"

	feedHttp "chirpnet.io/chirp/internal/modules/feed/delivery/http"
	feedRepo "chirpnet.io/chirp/internal/modules/feed/repository"
	feedService "chirpnet.io/chirp/internal/modules/feed/service"

	interactionHttp "chirpnet.io/chirp/internal/modules/interaction/delivery/http"
	interactionRepo "chirpnet.io/chirp/internal/modules/interaction/repository"
	interactionService "chirpnet.io/chirp/internal/modules/interaction/service"

	messageHttp "chirpnet.io/chirp/internal/modules/message/delivery/http"
	messageRepo "chirpnet.io/chirp/internal/modules/message/repository"
	messageService "chirpnet.io/chirp/internal/modules/message/service"

	noteHttp "chirpnet.io/chirp/internal/modules/note/delivery/http"
	noteRepo "chirpnet.io/chirp/internal/modules/note/repository"
	noteService "chirpnet.io/chirp/internal/modules/note/service"

	notiHttp "chirpnet.io/chirp/internal/modules/notification/delivery/http"
	notifRepo "chirpnet.io/chirp/internal/modules/notification/repository"
	notifService "chirpnet.io/chirp/internal/modules/notification/service"

	pollHttp "chirpnet.io/chirp/internal/modules/poll/delivery/http"
	pollRepo "chirpnet.io/chirp/internal/modules/poll/repository"
	pollService "chirpnet.io/chirp/internal/modules/poll/service"

	postHttp "chirpnet.io/chirp/internal/modules/post/delivery/http"
	postRepo "chirpnet.io/chirp/internal/modules/post/repository"
	postService "chirpnet.io/chirp/internal/modules/post/service"

	relHttp "chirpnet.io/chirp/internal/modules/relationship/delivery/http"
	relRepo "chirpnet.io/chirp/internal/modules/relationship/repository"
	relService "chirpnet.io/chirp/internal/modules/relationship/service"

	reportHttp "chirpnet.io/chirp/internal/modules/report/delivery/http"
	reportRepo "chirpnet.io/chirp/internal/modules/report/repository"
	reportService "chirpnet.io/chirp/internal/modules/report/service"

	searchHttp "chirpnet.io/chirp/internal/modules/search/delivery/http"
	searchService "chirpnet.io/chirp/internal/modules/search/service"

	userHttp "chirpnet.io/chirp/internal/modules/user/delivery/http"
	userRepo "chirpnet.io/chirp/internal/modules/user/repository"
	userService "chirpnet.io/chirp/internal/modules/user/service"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/meilisearch/meilisearch-go"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type Server struct {
	engine      *gin.Engine
	db          *gorm.DB
	redisClient *redis.Client
}

func NewServer(cfg *config.Config, db *gorm.DB, redisClient *redis.Client) *Server {
	var meiliClient meilisearch.ServiceManager
	if cfg.MeiliSearchHost != "" {
		meiliClient = meilisearch.New(cfg.MeiliSearchHost, meilisearch.WithAPIKey(cfg.MeiliMasterKey))
	}

	userRepository := userRepo.NewUserRepository(db)
	postRepository := postRepo.NewPostRepository(db)
	relRepository := relRepo.NewRelationshipRepository(db)
	interactionRepository := interactionRepo.NewInteractionRepository(db)
	pollRepository := pollRepo.NewPollRepository(db)
	noteRepository := noteRepo.NewNoteRepository(db)
	feedRepository := feedRepo.NewFeedRepository(db)
	messageRepository := messageRepo.NewMessageRepository(db)
	notificationRepository := notifRepo.NewNotificationRepository(db)

	notificationSvc := notifService.NewNotificationService(notificationRepository, redisClient)
	notificationHandler := notiHttp.NewNotificationHandler(notificationSvc, redisClient)

	relationshipSvc := relService.NewRelationshipService(db, relRepository, userRepository, notificationSvc)
	relationshipHandler := relHttp.NewRelationshipHandler(relationshipSvc, userRepository)

	aggregator := interactionService.NewAggregator(interactionRepository, postRepository, noteRepository, pollRepository, redisClient)

	interactionSvc := interactionService.NewInteractionService(db, interactionRepository, postRepository, relationshipSvc, notificationSvc, aggregator)
	interactionHandler := interactionHttp.NewInteractionHandler(interactionSvc)

	searchSvc := searchService.NewSearchService(meiliClient, postRepository, userRepository)
	searchHandler := searchHttp.NewSearchHandler(searchSvc, aggregator)

	postSvc := postService.NewPostService(db, postRepository, pollRepository, userRepository, relationshipSvc, notificationSvc, aggregator, searchSvc, cfg.PostEditWindow)
	postHandler := postHttp.NewPostHandler(postSvc)

	pollSvc := pollService.NewPollService(pollRepository, postRepository, relationshipSvc)
	pollHandler := pollHttp.NewPollHandler(pollSvc)

	feedSvc := feedService.NewFeedService(feedRepository, postRepository, userRepository, interactionRepository, relationshipSvc, aggregator)
	feedHandler := feedHttp.NewFeedHandler(feedSvc)

	noteSvc := noteService.NewNoteService(db, noteRepository, postRepository, userRepository, relationshipSvc)
	noteHandler := noteHttp.NewNoteHandler(noteSvc)

	messageSvc := messageService.NewMessageService(db, messageRepository, userRepository, relationshipSvc, notificationSvc)
	messageHandler := messageHttp.NewMessageHandler(messageSvc)

	userSvc := userService.NewUserService(userRepository, postRepository, relRepository)
	userHandler := userHttp.NewUserHandler(userSvc)

	reportSvc := reportService.NewReportService(db, reportRepo.NewReportRepository(db), postRepository, relationshipSvc)
	reportHandler := reportHttp.NewReportHandler(reportSvc)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(gin.Logger())
	setupCORS(router, cfg.AllowedOrigins)

	authMiddleware := middleware.NewAuthMiddleware(userRepository, cfg.JWTSecret)
	limiter := middleware.NewTokenBucketLimiter(cfg.RateLimitPerMinute, cfg.RateLimitBurst)

	api := router.Group("/api")

	// Public and optionally-authenticated discovery surfaces.
	public := api.Group("")
	public.Use(authMiddleware.OptionalAuth())
	{
		public.GET("/users/:handle", userHandler.GetProfile)
		public.GET("/users/:handle/posts", feedHandler.ProfileTimeline)
		public.GET("/posts/:post_id", postHandler.GetPost)
		public.GET("/posts/:post_id/history", postHandler.GetEditHistory)
		public.GET("/posts/:post_id/thread", feedHandler.Thread)
		public.GET("/posts/:post_id/notes", noteHandler.NotesForPost)
		public.GET("/hashtags/:tag", feedHandler.HashtagTimeline)
		public.GET("/explore", feedHandler.Explore)
		public.GET("/search", searchHandler.Search)
		public.GET("/polls/:poll_id", pollHandler.Results)
	}

	protected := api.Group("")
	protected.Use(authMiddleware.RequireAuth())
	protected.Use(middleware.RateLimit(limiter))
	{
		protected.PUT("/profile", userHandler.UpdateProfile)
		protected.PUT("/profile/affiliation", userHandler.SetAffiliation)

		protected.POST("/users/:handle/follow", relationshipHandler.ToggleFollow)
		protected.POST("/users/:handle/block", relationshipHandler.ToggleBlock)
		protected.POST("/users/:handle/mute", relationshipHandler.ToggleMute)
		protected.GET("/users/:handle/followers", relationshipHandler.GetFollowers)
		protected.GET("/users/:handle/following", relationshipHandler.GetFollowing)

		protected.POST("/posts", postHandler.CreatePost)
		protected.POST("/posts/:post_id/replies", postHandler.Reply)
		protected.PUT("/posts/:post_id", postHandler.EditPost)
		protected.DELETE("/posts/:post_id", postHandler.DeletePost)
		protected.POST("/posts/:post_id/repost", postHandler.ToggleRepost)
		protected.POST("/posts/:post_id/pin", postHandler.TogglePin)
		protected.POST("/posts/:post_id/like", interactionHandler.ToggleLike)
		protected.POST("/posts/:post_id/bookmark", interactionHandler.ToggleBookmark)
		protected.POST("/posts/:post_id/notes", noteHandler.SubmitNote)
		protected.POST("/posts/:post_id/report", reportHandler.SubmitReport)

		protected.POST("/polls/:poll_id/vote", pollHandler.Vote)
		protected.POST("/notes/:note_id/rate", noteHandler.RateNote)

		protected.GET("/feed", feedHandler.HomeTimeline)
		protected.GET("/bookmarks", feedHandler.Bookmarks)

		protected.GET("/notifications", notificationHandler.GetNotifications)
		protected.GET("/notifications/unread-count", notificationHandler.UnreadCount)
		protected.PUT("/notifications/:id/read", notificationHandler.MarkAsRead)
		protected.PUT("/notifications/read-all", notificationHandler.MarkAllAsRead)
		protected.GET("/notifications/ws", notificationHandler.HandleWebSocket)

		protected.POST("/conversations", messageHandler.StartConversation)
		protected.GET("/conversations", messageHandler.Inbox)
		protected.GET("/conversations/:conversation_id/messages", messageHandler.Messages)
		protected.POST("/conversations/:conversation_id/messages", messageHandler.SendMessage)
		protected.PUT("/conversations/:conversation_id/read", messageHandler.MarkRead)

		moderation := protected.Group("/moderation")
		moderation.Use(authMiddleware.RequireModerator())
		{
			moderation.GET("/notes", noteHandler.ModerationQueue)
			moderation.PUT("/notes/:note_id/status", noteHandler.OverrideStatus)
			moderation.DELETE("/notes/:note_id", noteHandler.DeleteNote)
			moderation.POST("/posts/:post_id/staff-notes", noteHandler.CreateStaffNote)
			moderation.DELETE("/staff-notes/:note_id", noteHandler.DeleteStaffNote)
			moderation.GET("/reports", reportHandler.ReportQueue)
			moderation.PUT("/reports/:report_id", reportHandler.ResolveReport)
		}
	}

	return &Server{
		engine:      router,
		db:          db,
		redisClient: redisClient,
	}
}

func (s *Server) Run(addr string) error {
	return s.engine.Run(addr)
}

func setupCORS(router *gin.Engine, allowedOrigins string) {
	origins := []string{"http://localhost:3000"}
	if allowedOrigins != "" {
		origins = strings.Split(allowedOrigins, ",")
	}

	router.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "HEAD", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
}
