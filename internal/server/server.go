package server

import (
	"context"
	"embed"
	"errors"
	"html/template"
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"telecom-assistant/internal/config"
	"telecom-assistant/internal/index"
	"telecom-assistant/internal/logger"
	"telecom-assistant/internal/models"
	"telecom-assistant/internal/session"
	"telecom-assistant/internal/telemetry"
)

//go:embed templates/chat.html
var templates embed.FS

// Responder answers a question given the conversation so far.
type Responder interface {
	Respond(ctx context.Context, conv models.Conversation, question string) (models.Conversation, models.Answer)
}

// Server is the HTTP chat front end.
type Server struct {
	engine    *gin.Engine
	assistant Responder
	sessions  session.Store
	index     *index.Lazy
	metrics   *telemetry.Metrics
	cfg       *config.Config
}

func New(cfg *config.Config, assistant Responder, sessions session.Store, idx *index.Lazy, metrics *telemetry.Metrics) (*Server, error) {
	if cfg.Server.Mode == gin.ReleaseMode || cfg.Server.Mode == gin.TestMode || cfg.Server.Mode == gin.DebugMode {
		gin.SetMode(cfg.Server.Mode)
	}

	tmpl, err := template.ParseFS(templates, "templates/chat.html")
	if err != nil {
		return nil, err
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(RequestID())
	router.Use(logger.Gin())
	router.Use(otelgin.Middleware(cfg.Telemetry.ServiceName))

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = cfg.Server.CORSOrigins
	corsConfig.AllowMethods = []string{"GET", "POST", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Accept", RequestIDHeader}
	router.Use(cors.New(corsConfig))
	router.SetHTMLTemplate(tmpl)

	s := &Server{
		engine:    router,
		assistant: assistant,
		sessions:  sessions,
		index:     idx,
		metrics:   metrics,
		cfg:       cfg,
	}
	s.routes()
	return s, nil
}

func (s *Server) routes() {
	s.engine.GET("/", s.handleIndex)
	s.engine.GET("/health", s.handleHealth)
	s.engine.GET("/ready", s.handleReady)
	s.engine.GET("/metrics", gin.WrapH(s.metrics.Handler()))

	api := s.engine.Group("/api", Timeout(s.cfg.Server.RequestTimeout))
	api.POST("/chat", s.handleChat)
	api.GET("/chat/:session_id", s.handleHistory)
	api.DELETE("/chat/:session_id", s.handleClear)
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:    s.cfg.Server.Addr,
		Handler: s.engine,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", srv.Addr).Msg("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info().Msg("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return <-errCh
}
