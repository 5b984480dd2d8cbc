package main

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "biblio-backend/docs"
	"biblio-backend/internal/library/books"
	"biblio-backend/internal/library/categories"
	"biblio-backend/internal/library/loans"
	"biblio-backend/internal/library/members"
	"biblio-backend/internal/library/penalties"
	"biblio-backend/internal/library/reservations"
	"biblio-backend/internal/library/stats"
	"biblio-backend/internal/platform/auth"
	"biblio-backend/internal/platform/db"
	"biblio-backend/internal/platform/requestid"
)

func newServeCmd(cfgPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := db.LoadConfig(*cfgPath)
			if err != nil {
				return err
			}
			return serve(cmd.Context(), cfg)
		},
	}
}

func serve(ctx context.Context, cfg *db.Config) error {
	log.Printf("[INFO] mode:%s version:%s", cfg.Mode, cfg.Version)

	conn, err := db.Connect(ctx, cfg.DB)
	if err != nil {
		return err
	}
	defer conn.Close()
	log.Printf("[INFO] connected to DB: %s", cfg.DB.DBName)

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           newRouter(cfg, conn),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		var err error
		if cfg.TLSEnabled() {
			log.Printf("[INFO] listening on https://%s", cfg.Server.Addr)
			err = srv.ListenAndServeTLS(cfg.Certificate.Cert, cfg.Certificate.Key)
		} else {
			log.Printf("[INFO] listening on http://%s", cfg.Server.Addr)
			err = srv.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal(err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit
	log.Println("[INFO] shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func newRouter(cfg *db.Config, conn *sql.DB) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery(), requestid.Middleware())
	_ = r.SetTrustedProxies(nil)

	if cfg.Mode == "dev" {
		// CORS（開発中のみ必要）
		r.Use(cors.New(cors.Config{
			AllowOrigins:     []string{"http://localhost:3000"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", requestid.Header},
			ExposeHeaders:    []string{"Content-Length", "Location", requestid.Header},
			AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowCredentials: true,
		}))
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	// ヘルス
	r.GET("/healthz", func(c *gin.Context) { c.String(http.StatusOK, "ok") })

	secret := []byte(cfg.Auth.JWTSecret)
	authSvc := auth.NewService(conn, secret, cfg.Auth.TokenTTL)

	// /api/v1
	api := r.Group("/api/v1")
	protected := api.Group("", auth.RequireAuth(secret))

	auth.RegisterRoutes(api, protected, authSvc)
	categories.RegisterRoutes(protected, categories.NewService(conn))
	members.RegisterRoutes(protected, members.NewService(conn, cfg.Rules))
	books.RegisterRoutes(protected, books.NewService(conn))
	loans.RegisterRoutes(protected, loans.NewService(conn, cfg.Rules))
	penalties.RegisterRoutes(protected, penalties.NewService(conn))
	reservations.RegisterRoutes(protected, reservations.NewService(conn))
	stats.RegisterRoutes(protected, stats.NewService(conn))

	return r
}
