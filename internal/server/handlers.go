package server

import (
	"encoding/json"
	"net/http"
	"unicode/utf8"

	"github.com/hyperjump/intentbot/internal/chatbot"
	"github.com/hyperjump/intentbot/internal/config"
	"github.com/hyperjump/intentbot/internal/models"
	"github.com/hyperjump/intentbot/internal/storage"
	"go.uber.org/zap"
)

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req models.ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := req.Validate(); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	reply := s.responder.Respond(r.Context(), req.Message)
	s.logger.Debug("chat request",
		zap.Int("message_len", utf8.RuneCountInString(req.Message)),
		zap.String("tag", reply.Tag),
		zap.Float64("confidence", reply.Confidence),
		zap.Bool("matched", reply.Matched),
	)
	s.recordExchange(r, req.Message, reply)
	s.respondJSON(w, http.StatusOK, models.ChatResponse{
		Response:   reply.Text,
		Tag:        reply.Tag,
		Confidence: reply.Confidence,
		Matched:    reply.Matched,
	})
}

// recordExchange logs the exchange to storage. Failures never reach the caller.
func (s *Server) recordExchange(r *http.Request, message string, reply chatbot.Reply) {
	if s.storage == nil {
		return
	}
	ex := &models.Exchange{
		Message:    message,
		Response:   reply.Text,
		Tag:        reply.Tag,
		Confidence: reply.Confidence,
		Matched:    reply.Matched,
		Engine:     s.config.Chatbot.Engine,
	}
	if s.holder != nil {
		if svc := s.holder.Current(); svc != nil {
			ex.SnapshotID = svc.Snapshot().ID
		}
	}
	if err := s.storage.RecordExchange(r.Context(), ex); err != nil {
		s.logger.Warn("record exchange failed", zap.Error(err))
	}
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	resp := models.StatusResponse{Engine: s.config.Chatbot.Engine}

	if s.holder != nil {
		svc, err := s.holder.Get(ctx)
		if err != nil {
			s.logger.Error("status: chatbot not loaded", zap.Error(err))
			s.respondError(w, http.StatusServiceUnavailable, err.Error())
			return
		}
		snap := svc.Snapshot()
		resp.Backend = svc.Backend()
		resp.SnapshotID = snap.ID
		resp.SnapshotCreatedAt = snap.CreatedAt
		resp.InputSize = snap.InputSize
		resp.HiddenSize = snap.HiddenSize
		resp.OutputSize = snap.OutputSize
		resp.Tags = snap.Tags
	}

	if s.storage != nil {
		n, err := s.storage.CountExchanges(ctx)
		if err != nil {
			s.logger.Error("status: count exchanges failed", zap.Error(err))
			s.respondError(w, http.StatusInternalServerError, err.Error())
			return
		}
		resp.Exchanges = n
		runs, err := s.storage.CountTrainingRuns(ctx)
		if err != nil {
			s.logger.Error("status: count training runs failed", zap.Error(err))
			s.respondError(w, http.StatusInternalServerError, err.Error())
			return
		}
		resp.TrainingRuns = runs
	}

	if diskBytes, err := storage.DiskUsageBytes(s.config.Storage.DatabasePath, s.config.Snapshot.Path); err == nil {
		resp.DiskUsageBytes = diskBytes
	}
	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleReload(w http.ResponseWriter, r *http.Request) {
	if s.holder == nil {
		s.respondError(w, http.StatusConflict, "reload is only available for the "+config.EngineClassifier+" engine")
		return
	}
	svc, err := s.holder.Reload(r.Context())
	if err != nil {
		s.logger.Error("reload failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "reloaded", "snapshot_id": svc.Snapshot().ID})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}
