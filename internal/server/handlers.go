package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"subcast/internal/dispatch"
	"subcast/internal/storage"
)

const (
	msgInvalidChannel = "Invalid channel name. Only letters, numbers, and underscores are allowed."
	msgEmptyMessage   = "Message cannot be empty"
	msgTooLong        = "Message too long (max 1000 chars)"
	msgDatabaseError  = "Database error occurred"
)

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleSendMessage(w http.ResponseWriter, r *http.Request) {
	var req sendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	// Bounds and name checks run before any storage or delivery call.
	if err := dispatch.ValidateMessage(req.Message); err != nil {
		writeError(w, http.StatusBadRequest, messageErrorText(err))
		return
	}
	if !storage.ValidateChannel(req.ChannelName) {
		writeError(w, http.StatusBadRequest, msgInvalidChannel)
		return
	}

	recipients, err := s.registry.Subscribers(r.Context(), req.ChannelName)
	if err != nil {
		s.log.Error().Err(err).Str("channel", req.ChannelName).Msg("subscriber lookup failed")
		writeError(w, http.StatusInternalServerError, msgDatabaseError)
		return
	}

	rep := s.dispatcher.Dispatch(r.Context(), recipients, req.Message)
	writeJSON(w, http.StatusOK, sendMessageResponse{
		Sent:    rep.Sent,
		Errors:  rep.Errors,
		Channel: req.ChannelName,
	})
}

func (s *Server) handleBroadcast(w http.ResponseWriter, r *http.Request) {
	var req broadcastRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := dispatch.ValidateMessage(req.Message); err != nil {
		writeError(w, http.StatusBadRequest, messageErrorText(err))
		return
	}

	recipients, err := s.registry.AllSubscribers(r.Context())
	if err != nil {
		s.log.Error().Err(err).Msg("recipient lookup failed")
		writeError(w, http.StatusInternalServerError, msgDatabaseError)
		return
	}

	rep := s.dispatcher.Dispatch(r.Context(), recipients, req.Message)
	writeJSON(w, http.StatusOK, broadcastResponse{
		Sent:             rep.Sent,
		Errors:           rep.Errors,
		TotalSubscribers: len(recipients),
	})
}

func (s *Server) handleSubscriptions(w http.ResponseWriter, r *http.Request) {
	subs, err := s.registry.Subscriptions(r.Context())
	if err != nil {
		s.log.Error().Err(err).Msg("subscription listing failed")
		writeError(w, http.StatusInternalServerError, msgDatabaseError)
		return
	}
	if subs == nil {
		subs = []storage.Subscription{}
	}
	writeJSON(w, http.StatusOK, subscriptionsResponse{Subscriptions: subs, Total: len(subs)})
}

func messageErrorText(err error) string {
	if errors.Is(err, dispatch.ErrEmptyMessage) {
		return msgEmptyMessage
	}
	return msgTooLong
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}
