package api

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/dante-labs/paper-search/pkg/observability"
)

// Server is the thin HTTP transport over the request entry. It adapts
// each inbound request into the event envelope the handler consumes.
type Server struct {
	router  *gin.Engine
	server  *http.Server
	handler *Handler
	logger  observability.Logger
}

// NewServer creates the HTTP server.
func NewServer(addr string, handler *Handler, logger observability.Logger) *Server {
	if logger == nil {
		logger = observability.NewNoopLogger()
	}

	router := gin.New()
	router.Use(gin.Recovery())

	s := &Server{
		router:  router,
		handler: handler,
		logger:  logger,
		server: &http.Server{
			Addr:         addr,
			Handler:      router,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 60 * time.Second,
		},
	}

	router.POST("/api/v1/paper-search", s.handlePaperSearch)
	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	return s
}

func (s *Server) handlePaperSearch(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.Data(http.StatusBadRequest, "application/json", []byte(`{"message":"Invalid JSON payload."}`))
		return
	}

	requestID := c.GetHeader("x-request-id")
	if requestID == "" {
		requestID = uuid.NewString()
	}

	event := RequestEvent{
		Body: string(body),
		RequestContext: RequestContext{
			RequestID: requestID,
			HTTP:      &HTTPRequestContext{SourceIP: c.ClientIP()},
		},
	}

	response := s.handler.Handle(c.Request.Context(), event)
	for key, value := range response.Headers {
		c.Header(key, value)
	}
	c.Data(response.StatusCode, "application/json", []byte(response.Body))
}

// Start begins serving. It blocks until the server stops.
func (s *Server) Start() error {
	s.logger.Info("server listening", map[string]interface{}{"addr": s.server.Addr})
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests and stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}
