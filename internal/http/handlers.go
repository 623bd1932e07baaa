package http

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/charmbracelet/log"
	"github.com/mauv0809/legend-tracker/internal/clash"
	"github.com/mauv0809/legend-tracker/internal/pubsub"
	"github.com/mauv0809/legend-tracker/internal/summary"
)

func (s *Server) HealthCheckHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log.Debug("Received health check request")
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, "OK!")
	}
}

// StatsHandler returns the lifetime counters persisted in the database.
func (s *Server) StatsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		stats, err := s.MetricsStore.GetAll()
		if err != nil {
			log.Error("Failed to load stats", "error", err)
			http.Error(w, "Failed to load stats", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, stats)
	}
}

// TrackedHandler lists every stored tracking record and whether its poller
// is running.
func (s *Server) TrackedHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		records, err := s.Store.ListTracking()
		if err != nil {
			log.Error("Failed to list tracked players", "error", err)
			http.Error(w, "Failed to list tracked players", http.StatusInternalServerError)
			return
		}

		active := make(map[string]bool)
		for _, p := range s.Registry.Active() {
			active[p.PlayerTag+"/"+p.DestinationID] = true
		}

		resp := make([]trackedPlayerResponse, 0, len(records))
		for _, p := range records {
			resp = append(resp, trackedPlayerResponse{
				TrackedPlayer: p,
				Active:        active[p.PlayerTag+"/"+p.DestinationID],
			})
		}
		log.Debug("Listing tracked players", "count", len(resp))
		writeJSON(w, http.StatusOK, resp)
	}
}

// SummaryHandler runs the daily summary on demand, for every record or for
// the one given in the 'tag' query parameter.
func (s *Server) SummaryHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.Header().Set("Allow", http.MethodPost)
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		tag := r.URL.Query().Get("tag")
		log.Info("Running summary on demand", "tag", tag)

		res, err := s.Summary.RunSummary(r.Context(), tag)
		if errors.Is(err, summary.ErrNotTracked) {
			http.Error(w, fmt.Sprintf("%s is not being tracked", clash.DisplayTag(tag)), http.StatusNotFound)
			return
		}
		if err != nil {
			log.Error("Summary failed", "error", err)
			http.Error(w, "Failed to run summary", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, res)
	}
}

// PubSubPushHandler receives the events published by this service through a
// push subscription and logs them.
func (s *Server) PubSubPushHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		bodyBytes, err := io.ReadAll(r.Body)
		if err != nil {
			log.Error("Failed to read request body", "error", err)
			http.Error(w, "Failed to read request body", http.StatusInternalServerError)
			return
		}

		var req pushRequest
		if err := json.Unmarshal(bodyBytes, &req); err != nil {
			log.Error("Failed to unmarshal wrapper JSON", "error", err)
			http.Error(w, "Invalid JSON", http.StatusBadRequest)
			return
		}
		rawData, err := base64.StdEncoding.DecodeString(req.Message.Data)
		if err != nil {
			log.Error("Failed to decode base64 data", "error", err)
			http.Error(w, "Invalid base64 data", http.StatusBadRequest)
			return
		}

		switch event := pubsub.EventType(req.Message.Attributes["event"]); event {
		case pubsub.EventTrophyChange:
			var msg pubsub.TrophyChangeMessage
			if err := pubsub.Decode(rawData, &msg); err != nil {
				http.Error(w, "Invalid payload", http.StatusBadRequest)
				return
			}
			log.Info("Trophy change event", "tag", msg.Tag, "destination", msg.DestinationID, "delta", msg.Delta, "category", msg.Category)
		case pubsub.EventDailySummary:
			var msg pubsub.DailySummaryMessage
			if err := pubsub.Decode(rawData, &msg); err != nil {
				http.Error(w, "Invalid payload", http.StatusBadRequest)
				return
			}
			log.Info("Daily summary event", "tag", msg.Tag, "destination", msg.DestinationID, "date", msg.Date, "delta", msg.Delta)
		default:
			// Unknown events are acknowledged so they are not redelivered.
			log.Warn("Ignoring unknown event", "event", event, "messageId", req.Message.MessageID)
		}
		w.Write([]byte("OK"))
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error("Failed to write response", "error", err)
	}
}
