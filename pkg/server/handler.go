package server

import (
	"context"
	"encoding/json"
	"iter"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mikeboe/deep-research/pkg/research"
)

// Researcher is what the handler needs from the service layer.
type Researcher interface {
	Run(ctx context.Context, req ResearchRequest) (research.Response, error)
	Stream(ctx context.Context, req ResearchRequest) iter.Seq2[research.Chunk, error]
}

// streamError is the terminal SSE frame sent when a run fails mid-stream.
type streamError struct {
	Error string `json:"error"`
}

type Handler struct {
	Service Researcher
}

func NewHandler(s Researcher) *Handler {
	return &Handler{Service: s}
}

func (h *Handler) RegisterRoutes(r *gin.Engine) {
	api := r.Group("/api")
	{
		api.POST("/research", h.streamResearch)
		api.POST("/research/run", h.runResearch)
	}
}

func (h *Handler) runResearch(c *gin.Context) {
	var req ResearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	resp, err := h.Service.Run(c.Request.Context(), req)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (h *Handler) streamResearch(c *gin.Context) {
	var req ResearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("Transfer-Encoding", "chunked")

	for chunk, err := range h.Service.Stream(c.Request.Context(), req) {
		if err != nil {
			// Try to surface the failure as a terminal event.
			if data, merr := json.Marshal(streamError{Error: err.Error()}); merr == nil {
				writeEvent(c, data)
			}
			return
		}
		data, err := json.Marshal(chunk)
		if err != nil {
			return
		}
		writeEvent(c, data)
	}
}

func writeEvent(c *gin.Context, data []byte) {
	_, _ = c.Writer.Write([]byte("data: "))
	_, _ = c.Writer.Write(data)
	_, _ = c.Writer.Write([]byte("\n\n"))
	c.Writer.Flush()
}
