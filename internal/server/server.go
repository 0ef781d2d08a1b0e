// Package server exposes the authorization gate over HTTP.
package server

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/powerstream/commandgate/internal/auditlog"
	"github.com/powerstream/commandgate/internal/config"
	"github.com/powerstream/commandgate/internal/gate"
	"github.com/powerstream/commandgate/internal/model"
	"github.com/powerstream/commandgate/internal/notify"
)

// Server handles the HTTP boundary. All authorization semantics live in
// the gate; handlers only translate between JSON and requests.
type Server struct {
	gate    *gate.Gate
	logger  *slog.Logger
	cfgPath string
}

// New creates a Server for the given gate. cfgPath is the config file
// watched for webhook hot-reload; empty disables reload.
func New(g *gate.Gate, logger *slog.Logger, cfgPath string) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{gate: g, logger: logger, cfgPath: cfgPath}
}

// Router builds the gin engine with all routes registered.
func (s *Server) Router() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())

	v1 := r.Group("/v1")
	v1.POST("/commands", s.submitCommand)
	v1.POST("/queue/clear", s.clearQueue)
	v1.POST("/signatures", s.enrollSignature)
	v1.POST("/override/reset", s.resetTier)
	v1.GET("/queue", s.listQueue)
	v1.GET("/audit/:category", s.readAudit)
	v1.GET("/status", s.status)

	return r
}

// ReloadWebhooks re-reads the config file and swaps the gate's
// notification dispatcher. Called by the file watcher on config writes.
func (s *Server) ReloadWebhooks() error {
	cfg, err := config.Load(s.cfgPath)
	if err != nil {
		return err
	}
	s.gate.SetNotifier(notify.NewDispatcher(cfg.Webhooks))
	s.logger.Info("webhooks reloaded", "count", len(cfg.Webhooks))
	return nil
}

type commandInput struct {
	ActorID         string `json:"actor_id" binding:"required"`
	Role            string `json:"role"`
	Command         string `json:"command" binding:"required"`
	Credential      string `json:"credential"`
	SignatureSample string `json:"signature_sample"`
	Tier            string `json:"tier"`

	TransferAuthorized bool   `json:"transfer_authorized"`
	TransferRecipient  string `json:"transfer_recipient"`
}

func (s *Server) submitCommand(c *gin.Context) {
	var in commandInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	tier := model.TierNormal
	if in.Tier != "" {
		t, ok := model.ParseTier(in.Tier)
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unknown tier"})
			return
		}
		tier = t
	}

	var sample []byte
	if in.SignatureSample != "" {
		sample = []byte(in.SignatureSample)
	}

	verdict, err := s.gate.Submit(model.Request{
		ActorID:            in.ActorID,
		Role:               model.ParseRole(in.Role),
		CommandText:        in.Command,
		Credential:         in.Credential,
		SignatureSample:    sample,
		RequestedTier:      tier,
		TransferAuthorized: in.TransferAuthorized,
		TransferRecipient:  in.TransferRecipient,
	})
	if err != nil {
		s.logger.Error("submit failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "request could not be recorded"})
		return
	}

	if !verdict.Allowed {
		c.JSON(http.StatusForbidden, verdict)
		return
	}
	c.JSON(http.StatusOK, verdict)
}

type adminInput struct {
	ActorID    string `json:"actor_id" binding:"required"`
	Credential string `json:"credential" binding:"required"`
}

func (s *Server) clearQueue(c *gin.Context) {
	var in adminInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	verdict, err := s.gate.ClearQueue(in.ActorID, in.Credential)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "clear could not be recorded"})
		return
	}
	if !verdict.Allowed {
		c.JSON(http.StatusForbidden, verdict)
		return
	}
	c.JSON(http.StatusOK, verdict)
}

func (s *Server) resetTier(c *gin.Context) {
	var in adminInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	verdict, err := s.gate.ResetTier(in.ActorID, in.Credential)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "reset could not be recorded"})
		return
	}
	if !verdict.Allowed {
		c.JSON(http.StatusForbidden, verdict)
		return
	}
	c.JSON(http.StatusOK, verdict)
}

type enrollInput struct {
	ActorID    string `json:"actor_id" binding:"required"`
	Credential string `json:"credential" binding:"required"`
	OwnerID    string `json:"owner_id" binding:"required"`
	Sample     string `json:"sample" binding:"required"`
}

func (s *Server) enrollSignature(c *gin.Context) {
	var in enrollInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	verdict, err := s.gate.EnrollSignature(in.ActorID, in.Credential, in.OwnerID, []byte(in.Sample))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "enrollment could not be recorded"})
		return
	}
	if !verdict.Allowed {
		c.JSON(http.StatusForbidden, verdict)
		return
	}
	c.JSON(http.StatusOK, verdict)
}

func (s *Server) listQueue(c *gin.Context) {
	commands := []model.QueuedCommand{}
	for cmd := range s.gate.Queue().Replay() {
		commands = append(commands, cmd)
	}
	c.JSON(http.StatusOK, gin.H{"commands": commands, "count": len(commands)})
}

func (s *Server) readAudit(c *gin.Context) {
	cat := auditlog.Category(c.Param("category"))
	if !cat.Valid() {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown audit category"})
		return
	}

	entries := []auditlog.Entry{}
	for e := range s.gate.Audit().ReadCategory(cat) {
		entries = append(entries, e)
	}
	c.JSON(http.StatusOK, gin.H{"category": cat, "entries": entries, "count": len(entries)})
}

func (s *Server) status(c *gin.Context) {
	queued, err := s.gate.Queue().Len()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "queue unavailable"})
		return
	}

	machine := s.gate.Machine()
	resp := gin.H{
		"tier":   machine.Current().String(),
		"queued": queued,
	}
	if r := machine.Recipient(); r != "" {
		resp["transfer_recipient"] = r
	}
	c.JSON(http.StatusOK, resp)
}
