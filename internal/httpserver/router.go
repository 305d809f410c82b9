package httpserver

import (
	"database/sql"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	goredis "github.com/redis/go-redis/v9"

	"chatd/internal/blob"
	"chatd/internal/config"
	"chatd/internal/push"
	"chatd/internal/security"
	"chatd/internal/service"
	redisstore "chatd/internal/store/redis"
	"chatd/internal/store/sqlite"
	"chatd/internal/ws"
)

// NewRouter constructs the main HTTP router and wires routes, services, and middleware.
func NewRouter(
	cfg *config.Config,
	db *sql.DB,
	rdb *goredis.Client,
	hub *ws.Hub,
	tokenSvc *security.TokenService,
	passwordHasher *security.PasswordHasher,
	dispatcher *push.Dispatcher,
	blobStore blob.Store,
) http.Handler {
	r := chi.NewRouter()

	// Middlewares
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Repositories
	userRepo := sqlite.NewUserRepo(db)
	msgRepo := sqlite.NewMessageRepo(db)
	groupRepo := sqlite.NewGroupRepo(db)
	convRepo := sqlite.NewConversationRepo(db)
	typingRepo := redisstore.NewTypingRepo(rdb)

	// Services
	authSvc := service.NewAuthService(userRepo, tokenSvc, passwordHasher)
	userSvc := service.NewUserService(userRepo)
	msgSvc := service.NewMessageService(msgRepo, groupRepo, convRepo, userRepo, typingRepo, dispatcher)
	groupSvc := service.NewGroupService(groupRepo, msgRepo, userRepo)
	convSvc := service.NewConversationService(convRepo)
	presenceSvc := service.NewPresenceService(typingRepo, userRepo)
	adminSvc := service.NewAdminService(userRepo, groupRepo, msgRepo, convRepo)

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"message":"chatd API","version":"1.0.0"}`))
	})

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"healthy"}`))
	})

	// API routes
	r.Route("/api", func(r chi.Router) {
		// Auth routes (no auth required)
		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", handleRegister(authSvc))
			r.Post("/login", handleLogin(authSvc))
		})

		// Authenticated routes
		r.Group(func(r chi.Router) {
			r.Use(AuthMiddleware(tokenSvc, userRepo))

			// Authenticated auth endpoints
			r.Post("/auth/logout", handleLogout(authSvc))
			r.Get("/auth/me", handleMe())

			// Users
			r.Route("/users", func(r chi.Router) {
				r.Get("/", handleListUsers(userSvc))
				r.Get("/online", handleListOnlineUsers(userSvc))
				r.Get("/{userID}", handleGetUser(userSvc))
			})

			// Messages
			r.Route("/messages", func(r chi.Router) {
				r.Post("/", handleSendMessage(msgSvc, blobStore))
				r.Get("/", handleListMessages(msgSvc))
				r.Post("/{messageID}/read", handleMarkRead(msgSvc))
				r.Put("/{messageID}/reaction", handleAddReaction(msgSvc))
				r.Post("/{messageID}/forward", handleForwardMessage(msgSvc))
			})

			// Direct conversation directory
			r.Get("/conversations", handleListConversations(convSvc))

			// Groups
			r.Route("/groups", func(r chi.Router) {
				r.Post("/", handleCreateGroup(groupSvc))
				r.Get("/", handleListGroups(groupSvc))
				r.Get("/{groupID}", handleGetGroup(groupSvc))
				r.Delete("/{groupID}", handleDeleteGroup(groupSvc))
				r.Get("/{groupID}/members", handleListGroupMembers(groupSvc))
				r.Post("/{groupID}/members", handleAddGroupMember(groupSvc))
				r.Delete("/{groupID}/members/{userID}", handleRemoveGroupMember(groupSvc))
			})

			// Typing indicators
			r.Post("/typing", handleSetTyping(presenceSvc))
			r.Get("/typing", handleListTyping(presenceSvc))

			// Push tokens and the notification inbox
			r.Post("/push/token", handleSavePushToken(dispatcher))
			r.Get("/notifications", handleListNotifications(dispatcher))

			// Uploads
			r.Post("/uploads", handleUpload(blobStore))

			// Admin
			r.Route("/admin", func(r chi.Router) {
				r.Get("/stats", handleAdminStats(adminSvc))
				r.Post("/wipe", handleAdminWipe(adminSvc))
			})
		})
	})

	// Locally stored uploads are served straight from disk; the s3 backend
	// returns absolute URLs instead.
	if local, ok := blobStore.(*blob.LocalStore); ok {
		r.Handle("/uploads/*", http.StripPrefix("/uploads/", http.FileServer(http.Dir(local.Dir()))))
	}

	// WebSocket endpoint
	r.Get("/ws", ws.MakeHandler(hub, tokenSvc, userRepo, groupRepo, msgSvc, presenceSvc, cfg.CORSOrigins))

	return r
}
