package server

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/cwbudde/algo-keys/chord"
	"github.com/cwbudde/algo-keys/piano"
	"github.com/cwbudde/algo-keys/roll"
)

// Source is the read side of the engine. Every method must be safe to call
// from HTTP handler goroutines.
type Source interface {
	Now() time.Duration
	Roll() []roll.NoteEvent
	Visible(span time.Duration) []roll.NoteEvent
	ActiveNotes() []int
	Chord() chord.Result
	PedalDown() bool
}

// DefaultSpan is the visible piano-roll span when a request names none.
const DefaultSpan = 5 * time.Second

// Server exposes engine snapshots over HTTP. Key presses posted to it are
// queued on the control timeline's event channel; they never touch the
// engine directly.
type Server struct {
	src    Source
	events chan<- piano.Event
	logger *slog.Logger
}

// New creates a server reading from src. events may be nil, which makes the
// key endpoints report 503.
func New(src Source, events chan<- piano.Event, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{src: src, events: events, logger: logger}
}

// Router builds the gin engine serving the API.
func (s *Server) Router() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(s.requestLog())

	router.GET("/healthz", s.health)

	api := router.Group("/api")
	{
		api.GET("/roll", s.roll)
		api.GET("/active", s.active)
		api.GET("/chord", s.chord)
		api.POST("/keys/:note/down", s.key(true))
		api.POST("/keys/:note/up", s.key(false))
	}
	return router
}

func (s *Server) requestLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Debug("http: request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"elapsed", time.Since(start))
	}
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
		"now_ms": s.src.Now().Milliseconds(),
	})
}

// RollEvent is the wire form of a timeline event.
type RollEvent struct {
	ID         string `json:"id"`
	Note       int    `json:"note"`
	Name       string `json:"name"`
	StartMs    int64  `json:"start_ms"`
	DurationMs int64  `json:"duration_ms"`
	Open       bool   `json:"open"`
}

func (s *Server) roll(c *gin.Context) {
	span := DefaultSpan
	if raw := c.Query("span"); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil || d <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "span must be a positive duration"})
			return
		}
		span = d
	}
	now := s.src.Now()
	events := s.src.Visible(span)
	out := make([]RollEvent, 0, len(events))
	for _, ev := range events {
		d := ev.Duration
		if ev.Open {
			d = ev.Elapsed(now)
		}
		out = append(out, RollEvent{
			ID:         ev.ID.String(),
			Note:       ev.Note,
			Name:       chord.PitchClassName(ev.Note, false),
			StartMs:    ev.Start.Milliseconds(),
			DurationMs: d.Milliseconds(),
			Open:       ev.Open,
		})
	}
	c.JSON(http.StatusOK, gin.H{
		"now_ms":  now.Milliseconds(),
		"span_ms": span.Milliseconds(),
		"events":  out,
	})
}

func (s *Server) active(c *gin.Context) {
	notes := s.src.ActiveNotes()
	if notes == nil {
		notes = []int{}
	}
	c.JSON(http.StatusOK, gin.H{
		"notes":      notes,
		"pedal_down": s.src.PedalDown(),
	})
}

func (s *Server) chord(c *gin.Context) {
	res := s.src.Chord()
	names := res.Names
	if names == nil {
		names = []string{}
	}
	c.JSON(http.StatusOK, gin.H{
		"kind":       res.Kind.String(),
		"label":      res.String(),
		"notes":      res.NotesString(),
		"names":      names,
		"candidates": res.Candidates,
	})
}

func (s *Server) key(down bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		note, err := strconv.Atoi(c.Param("note"))
		if err != nil || note < 0 || note > 127 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "note must be 0..127"})
			return
		}
		if s.events == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "input disabled"})
			return
		}
		ev := piano.NoteOffEvent(note)
		if down {
			ev = piano.NoteOnEvent(note, piano.UIVelocity)
		}
		select {
		case s.events <- ev:
			c.JSON(http.StatusAccepted, gin.H{"queued": ev.String()})
		default:
			s.logger.Warn("http: event queue full", "event", ev.String())
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "event queue full"})
		}
	}
}
