package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"telecom-assistant/internal/helper"
	"telecom-assistant/internal/models"
)

type chatRequest struct {
	SessionID string `json:"session_id"`
	Question  string `json:"question" binding:"required"`
}

type source struct {
	Document string  `json:"document"`
	Page     int     `json:"page"`
	Section  string  `json:"section,omitempty"`
	Score    float32 `json:"score"`
}

type chatResponse struct {
	SessionID  string              `json:"session_id"`
	Answer     string              `json:"answer"`
	Source     models.AnswerSource `json:"source"`
	Sources    []source            `json:"sources,omitempty"`
	WebSources []models.WebResult  `json:"web_sources,omitempty"`
	History    []models.Turn       `json:"history"`
}

type historyResponse struct {
	SessionID string        `json:"session_id"`
	Greeting  string        `json:"greeting"`
	History   []models.Turn `json:"history"`
}

func (s *Server) handleIndex(c *gin.Context) {
	c.HTML(http.StatusOK, "chat.html", gin.H{
		"Title":    s.cfg.UI.Title,
		"Subtitle": s.cfg.UI.Subtitle,
		"Greeting": s.cfg.UI.Greeting,
		"Topics":   s.cfg.UI.Topics,
	})
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) handleReady(c *gin.Context) {
	if !s.index.Ready() {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "building"})
		return
	}
	idx, err := s.index.Get(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ready", "chunks": idx.Len()})
}

func (s *Server) handleChat(c *gin.Context) {
	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondWithBadRequest(c, "question is required", err.Error())
		return
	}
	if strings.TrimSpace(req.Question) == "" {
		RespondWithBadRequest(c, "question is required", nil)
		return
	}
	if req.SessionID == "" {
		id, err := helper.GenerateUUID()
		if err != nil {
			RespondWithInternalError(c, "could not start a session")
			return
		}
		req.SessionID = id
	}

	ctx := c.Request.Context()
	conv, err := s.sessions.Load(ctx, req.SessionID)
	if err != nil {
		log.Error().Err(err).Str("session_id", req.SessionID).Msg("Error loading session")
		RespondWithInternalError(c, "could not load the conversation")
		return
	}

	conv, answer := s.assistant.Respond(ctx, conv, req.Question)

	if err := s.sessions.Save(ctx, req.SessionID, conv); err != nil {
		// a lost history entry does not fail the request
		log.Error().Err(err).Str("session_id", req.SessionID).Msg("Error saving session")
	}

	resp := chatResponse{
		SessionID:  req.SessionID,
		Answer:     answer.Text,
		Source:     answer.Source,
		WebSources: answer.WebResults,
		History:    turns(conv),
	}
	for _, r := range answer.Chunks {
		resp.Sources = append(resp.Sources, source{
			Document: r.Chunk.DocumentID,
			Page:     r.Chunk.PageNumber,
			Section:  r.Chunk.Section,
			Score:    r.Similarity,
		})
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) handleHistory(c *gin.Context) {
	id := c.Param("session_id")
	conv, err := s.sessions.Load(c.Request.Context(), id)
	if err != nil {
		log.Error().Err(err).Str("session_id", id).Msg("Error loading session")
		RespondWithInternalError(c, "could not load the conversation")
		return
	}
	c.JSON(http.StatusOK, historyResponse{SessionID: id, Greeting: s.cfg.UI.Greeting, History: turns(conv)})
}

func (s *Server) handleClear(c *gin.Context) {
	id := c.Param("session_id")
	if err := s.sessions.Delete(c.Request.Context(), id); err != nil {
		log.Error().Err(err).Str("session_id", id).Msg("Error clearing session")
		RespondWithInternalError(c, "could not clear the conversation")
		return
	}
	c.Status(http.StatusNoContent)
}

func turns(conv models.Conversation) []models.Turn {
	if conv.Turns == nil {
		return []models.Turn{}
	}
	return conv.Turns
}
