package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/user/image-pipeline/internal/cache"
	"github.com/user/image-pipeline/internal/config"
	"github.com/user/image-pipeline/internal/persister"
	"github.com/user/image-pipeline/internal/pipeline"
)

// Server holds the dependencies for the HTTP server.
type Server struct {
	config     *config.Config
	router     http.Handler
	httpServer *http.Server
	pipeline   *pipeline.Pipeline
	store      *persister.Store
	redisStore *cache.RedisStore
	logger     *zap.Logger
}

func NewServer(cfg *config.Config, p *pipeline.Pipeline, st *persister.Store, rs *cache.RedisStore, l *zap.Logger) *Server {
	s := &Server{
		config:     cfg,
		pipeline:   p,
		store:      st,
		redisStore: rs,
		logger:     l,
	}
	s.router = s.setupRouter()
	return s
}

func (s *Server) Start() error {
	s.httpServer = &http.Server{
		Addr:        fmt.Sprintf(":%s", s.config.ServerPort),
		Handler:     s.router,
		ReadTimeout: 10 * time.Second,
		// Batch runs are long-lived; the run handler streams no partial
		// output, so the write deadline has to cover a whole batch.
		WriteTimeout: 60 * time.Minute,
	}
	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
