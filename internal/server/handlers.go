package server

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/kangwei01/dsa-mod-planning-chatbot/internal/chat"
)

// shutdownTimeout bounds graceful shutdown.
const shutdownTimeout = 10 * time.Second

type chatRequest struct {
	Prompt        string `json:"prompt"`
	DeveloperView bool   `json:"developer_view"`
}

func (s *Server) handleChat(c echo.Context) error {
	var req chatRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}

	resp, err := s.session(c).Ask(c.Request().Context(), req.Prompt, req.DeveloperView)
	if err != nil {
		if errors.Is(err, chat.ErrInvalidInput) {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "prompt is required"})
		}
		s.log.Error().Err(err).Msg("chat turn failed")
		return c.JSON(http.StatusBadGateway, map[string]string{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, resp)
}

func (s *Server) handleReset(c echo.Context) error {
	s.session(c).Reset()
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

type configureRequest struct {
	SystemPromptTemplate *string `json:"system_prompt_template"`
	ReasoningEnabled     *bool   `json:"reasoning_enabled"`
	RetrieverEnabled     *bool   `json:"retriever_enabled"`
}

func (s *Server) handleConfigure(c echo.Context) error {
	var req configureRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}

	session := s.session(c)
	session.Configure(chat.ConfigUpdate{
		SystemPromptTemplate: req.SystemPromptTemplate,
		ReasoningEnabled:     req.ReasoningEnabled,
		RetrieverEnabled:     req.RetrieverEnabled,
	})
	return c.JSON(http.StatusOK, map[string]any{
		"status":        "ok",
		"configuration": session.Config(),
	})
}

type evaluateRequest struct {
	Prompts []string `json:"prompts"`
}

func (s *Server) handleEvaluate(c echo.Context) error {
	var req evaluateRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}

	results, err := s.session(c).Evaluate(c.Request().Context(), req.Prompts)
	if err != nil {
		s.log.Error().Err(err).Msg("evaluation sweep failed")
		return c.JSON(http.StatusBadGateway, map[string]string{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, map[string]any{"results": results})
}

type gradeRequest struct {
	Question      string `json:"question"`
	GroundTruth   string `json:"ground_truth"`
	Answer        string `json:"answer"`
	DeveloperView bool   `json:"developer_view"`
}

func (s *Server) handleGrade(c echo.Context) error {
	var req gradeRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}

	result, err := s.grader.Grade(c.Request().Context(), req.Question, req.GroundTruth, req.Answer, req.DeveloperView)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, result)
}
