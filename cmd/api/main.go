package main

import (
	"fmt"
	"log"
	"net/http"

	"fileops-backend/internal/config"
	"fileops-backend/internal/database"
	"fileops-backend/internal/handlers"
	"fileops-backend/internal/middleware"
	"fileops-backend/internal/repository"
	"fileops-backend/internal/services"
	"fileops-backend/internal/storage"
)

func main() {
	cfg := config.Load()

	db, err := database.Init(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	store, err := storage.NewContentStore(cfg.StorageRoot)
	if err != nil {
		log.Fatalf("Failed to initialize content store: %v", err)
	}

	userRepo := repository.NewPostgresUserRepository(db.DB)
	fileRepo := repository.NewPostgresFileRepository(db.DB)
	auditRepo := repository.NewPostgresAuditRepository(db.DB)

	auditService := services.NewAuditService(auditRepo)
	authService := services.NewAuthService(userRepo, auditService, cfg.JWTSecret)
	fileService := services.NewFileService(fileRepo, userRepo, store, auditService, cfg.MaxUploadSize)
	userService := services.NewUserService(userRepo, fileService)

	authMiddleware := middleware.NewAuthMiddleware(cfg.JWTSecret)
	authHandler := handlers.NewAuthHandler(authService)
	fileHandler := handlers.NewFileHandler(fileService, cfg.MaxUploadSize)
	shareHandler := handlers.NewShareHandler(fileService)
	adminHandler := handlers.NewAdminHandler(userService)
	logHandler := handlers.NewLogHandler(auditService)

	router := http.NewServeMux()

	router.HandleFunc("POST /api/auth/register", authHandler.RegisterUser)
	router.HandleFunc("POST /api/auth/login", authHandler.LoginUser)

	auth := func(h http.HandlerFunc) http.Handler {
		return authMiddleware.RequireAuth(h)
	}
	admin := func(h http.HandlerFunc) http.Handler {
		return authMiddleware.RequireAdmin(h)
	}

	router.Handle("POST /api/auth/logout", auth(authHandler.LogoutUser))
	router.Handle("GET /api/auth/me", auth(authHandler.GetMe))
	router.Handle("PUT /api/users/me", auth(authHandler.UpdateMe))

	router.Handle("POST /api/upload", auth(fileHandler.UploadFile))
	router.Handle("GET /api/files", auth(fileHandler.ListFiles))
	router.Handle("GET /api/files/{id}/info", auth(fileHandler.GetFileInfo))
	router.Handle("GET /api/files/{id}/versions", auth(fileHandler.ListVersions))
	router.Handle("GET /api/download/{id}", auth(fileHandler.DownloadFile))
	router.Handle("POST /api/files/download-zip", auth(fileHandler.DownloadZip))
	router.Handle("DELETE /api/delete/{id}", auth(fileHandler.DeleteFile))
	router.Handle("POST /api/delete-multiple", auth(fileHandler.DeleteMultiple))
	router.Handle("POST /api/files/{id}/rollback/{version}", auth(fileHandler.RollbackVersion))
	router.Handle("POST /api/files/{id}/share", auth(fileHandler.ShareFile))

	router.HandleFunc("GET /share/{token}", shareHandler.DownloadShared)

	router.Handle("GET /api/admin/users", admin(adminHandler.ListUsers))
	router.Handle("DELETE /api/admin/users/{id}", admin(adminHandler.DeleteUser))
	router.Handle("PUT /api/admin/users/{id}/role", admin(adminHandler.UpdateUserRole))

	router.Handle("GET /api/logbook", admin(logHandler.ListEntries))
	router.Handle("GET /api/logbook/stats", admin(logHandler.GetStats))
	router.Handle("GET /api/logbook/export", admin(logHandler.ExportCSV))

	handler := corsMiddleware(cfg.CORSOrigin, router)

	addr := fmt.Sprintf("%s:%s", cfg.Host, cfg.Port)
	fmt.Printf("Server starting on http://%s\n", addr)
	log.Fatal(http.ListenAndServe(addr, handler))
}

func corsMiddleware(origin string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Must be more strict, because of http-only cookies, otherwise won't work
		w.Header().Set("Access-Control-Allow-Origin", origin)
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		w.Header().Set("Access-Control-Allow-Credentials", "true")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}
