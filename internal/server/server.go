// Package server exposes liveness and status over HTTP for the hosting platform.
package server

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/hray3182/coachline/internal/clock"
	"github.com/hray3182/coachline/internal/format"
)

// StatusSource supplies the status snapshot.
type StatusSource interface {
	Status(ctx context.Context) format.Status
}

const displayLayout = "03:04:05 PM MST"

var homeTmpl = template.Must(template.New("home").Parse(
	`<h1>🇮🇳 Bot Running</h1><p>Time: {{.Time}}</p><p>Chat ID: {{.Chat}}</p><p>Scheduler: {{.Scheduler}}</p>`))

type Server struct {
	status StatusSource
	clock  clock.Clock
	router *gin.Engine
}

func New(status StatusSource, c clock.Clock, devMode bool) *Server {
	if !devMode {
		gin.SetMode(gin.ReleaseMode)
	}
	s := &Server{status: status, clock: c, router: gin.New()}
	s.router.Use(gin.Recovery())
	s.setupRoutes()
	return s
}

func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) setupRoutes() {
	s.router.GET("/", s.home)

	s.router.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "alive", "time": s.clock.Now().Format(displayLayout)})
	})

	s.router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	s.router.GET("/status", func(c *gin.Context) {
		st := s.status.Status(c.Request.Context())
		body := gin.H{
			"time":          s.clock.Now().Format(time.RFC3339),
			"running":       st.Running,
			"recipient":     nil,
			"last_check":    nil,
			"last_sent":     st.LastSent,
			"error_count":   st.ErrorCount,
			"fired_today":   st.FiredToday,
			"workout_done":  st.WorkoutDone,
			"pending_tasks": st.Pending,
			"next_event":    st.NextEvent,
		}
		if st.HasRecipient {
			body["recipient"] = st.Recipient
		}
		if !st.LastCheck.IsZero() {
			body["last_check"] = st.LastCheck.Format(time.RFC3339)
		}
		c.JSON(http.StatusOK, body)
	})
}

func (s *Server) home(c *gin.Context) {
	st := s.status.Status(c.Request.Context())
	data := struct {
		Time, Chat, Scheduler string
	}{
		Time:      s.clock.Now().Format(displayLayout),
		Chat:      "None",
		Scheduler: "Stopped",
	}
	if st.HasRecipient {
		data.Chat = fmt.Sprintf("%d", st.Recipient)
	}
	if st.Running {
		data.Scheduler = "Running"
	}

	c.Header("Content-Type", "text/html; charset=utf-8")
	c.Status(http.StatusOK)
	if err := homeTmpl.Execute(c.Writer, data); err != nil {
		log.Printf("[server] failed to render home: %v", err)
	}
}

// Run serves on addr until ctx is cancelled.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("[server] listening on %s", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
