package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/hyperjump/kokoro/internal/models"
	"go.uber.org/zap"
)

// maxBodyBytes bounds the JSON request body of POST /rag.
const maxBodyBytes = 64 << 10

func (s *Server) handleRAG(w http.ResponseWriter, r *http.Request) {
	question := r.URL.Query().Get("question")
	if question == "" && r.Body != nil {
		var req models.RAGRequest
		err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(&req)
		if err != nil && !errors.Is(err, io.EOF) {
			s.respondError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		question = req.Question
	}
	if strings.TrimSpace(question) == "" {
		s.respondError(w, http.StatusBadRequest, "question is required")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.requestTimeout())
	defer cancel()
	ans, err := s.answerer.Ask(ctx, question)
	if err != nil {
		switch {
		case models.IsInvalidQuestion(err):
			s.respondError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded):
			s.logger.Warn("rag request timed out", zap.Duration("timeout", s.requestTimeout()), zap.Error(err))
			s.respondError(w, http.StatusGatewayTimeout, "request timed out: "+err.Error())
		default:
			s.logger.Error("rag request failed", zap.Error(err))
			s.respondError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}
	s.respondJSON(w, http.StatusOK, models.RAGResponse{Question: ans.Question, Answer: ans.Answer})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if s.status == nil {
		s.respondError(w, http.StatusNotImplemented, "status not available")
		return
	}
	st, err := s.status.Status(r.Context())
	if err != nil {
		s.logger.Error("status failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, st)
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, models.ErrorResponse{Detail: message})
}
