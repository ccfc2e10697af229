package main

import (
	"cagchat/internal/auth"
	"cagchat/internal/config"
	"cagchat/internal/database"
	"cagchat/internal/document"
	"cagchat/internal/llm"
	"cagchat/internal/pdf"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/sync/errgroup"
)

const welcomePage = `<!DOCTYPE html>
<html>
<head><title>Chat with your PDF</title></head>
<body>
<h1>Chat with your PDF</h1>
<p>Upload a PDF under a UUID, then ask questions about it.</p>
<ul>
<li>POST /api/v1/auth/signup</li>
<li>POST /api/v1/auth/login</li>
<li><a href="/api/v1/take_uuid">GET /api/v1/take_uuid</a></li>
<li>POST /api/v1/upload/{uuid}</li>
<li>PUT /api/v1/update/{uuid}</li>
<li>GET /api/v1/query/{uuid}?query=...</li>
<li>DELETE /api/v1/delete/{uuid}</li>
<li>GET /api/v1/list_uuids</li>
<li><a href="/health">GET /health</a></li>
</ul>
</body>
</html>`

type handlers struct {
	auth     *auth.Handler
	document *document.Handler
	tokens   *auth.TokenService
}

func newRouter(cfg *config.Config, h handlers) *gin.Engine {
	r := gin.Default()
	r.Use(auth.CORSMiddleware(cfg.AllowedOrigins, cfg.AllowAllOrigins))

	r.GET("/", func(ctx *gin.Context) {
		ctx.Data(http.StatusOK, "text/html; charset=utf-8", []byte(welcomePage))
	})
	r.GET("/health", func(ctx *gin.Context) {
		ctx.JSON(http.StatusOK, gin.H{})
	})

	v1 := r.Group("/api/v1")
	v1.POST("/auth/signup", h.auth.Signup)
	v1.POST("/auth/login", h.auth.Login)
	v1.GET("/take_uuid", h.document.TakeUUID)

	protected := v1.Group("/")
	protected.Use(auth.MiddleWare(h.tokens))
	protected.POST("/upload/:uuid", h.document.Upload)
	protected.PUT("/update/:uuid", h.document.Update)
	protected.GET("/query/:uuid", h.document.Query)
	protected.DELETE("/delete/:uuid", h.document.Delete)
	protected.GET("/list_uuids", h.document.List)
	return r
}

func main() {
	configPath := flag.String("config", os.Getenv("CAGCHAT_CONFIG"), "path to a TOML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("error loading config: %v", err)
	}

	var logOut io.Writer = os.Stderr
	if cfg.LogFile != "" {
		logFile, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o666)
		if err != nil {
			log.Fatalf("Failed to open log file %s: %v", cfg.LogFile, err)
		}
		defer func(logFile *os.File) {
			if err := logFile.Close(); err != nil {
				log.Println("Failed to close log file")
			}
		}(logFile)
		logOut = logFile
	}
	logger := slog.New(slog.NewTextHandler(logOut, nil))

	if err := run(cfg, logger); err != nil {
		logger.Error("server stopped", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger) error {
	db := database.NewDatabaseManager()
	if err := db.Connect(); err != nil {
		return fmt.Errorf("error connecting to database: %w", err)
	}
	defer func(db *database.Manager) {
		if err := db.Close(); err != nil {
			logger.Error("error closing database", "error", err)
		}
	}(db)

	tokens := auth.NewTokenService([]byte(cfg.JWTSecret), cfg.AccessTokenTTL)
	authService, err := auth.NewService(db.Users, auth.NewHasher(bcrypt.DefaultCost), tokens)
	if err != nil {
		return err
	}

	for _, warning := range cfg.GeminiWarnings() {
		logger.Warn(warning)
	}
	gemini := llm.NewGemini(llm.GeminiConfig{
		APIKey:    cfg.GeminiAPIKey,
		ProjectID: cfg.ProjectID,
		Region:    cfg.VertexAIRegion,
		Model:     cfg.GeminiModel,
	})
	defer func() {
		if err := gemini.Close(); err != nil {
			logger.Error("error closing gemini client", "error", err)
		}
	}()

	docService := document.NewService(db.Documents, pdf.NewTextExtractor(logger), gemini, logger, document.Config{
		UploadDir:      cfg.UploadDir,
		ExtractTimeout: cfg.ExtractTimeout,
		LLMTimeout:     cfg.LLMTimeout,
	})

	router := newRouter(cfg, handlers{
		auth:     auth.NewHandler(authService, logger),
		document: document.NewHandler(docService, logger, cfg.MaxUploadBytes),
		tokens:   tokens,
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("listening", "addr", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("error starting server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		logger.Info("shutting down")
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
