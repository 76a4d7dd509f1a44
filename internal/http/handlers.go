package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/tobjohnbx/demo-mobile-charging/internal/models"
	"github.com/tobjohnbx/demo-mobile-charging/internal/pricing"
	"github.com/tobjohnbx/demo-mobile-charging/internal/repository"
	"github.com/tobjohnbx/demo-mobile-charging/internal/service"
)

// SessionReader exposes the controller state needed by the status API.
type SessionReader interface {
	CurrentSession() *models.ChargingSession
}

// Purchaser books a side product against a scanned tag.
type Purchaser interface {
	PurchaseProduct(ctx context.Context, tagID string) error
}

// JournalReader lists recently completed sessions.
type JournalReader interface {
	Recent(ctx context.Context, stationID string, limit int) ([]repository.SessionRecord, error)
}

// NewHealthHandler returns GET /health handler.
func NewHealthHandler(stationID string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{
			"status":    "ok",
			"stationId": stationID,
		})
	}
}

// NewSessionStatusHandler returns GET /api/session handler.
func NewSessionStatusHandler(reader SessionReader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session := reader.CurrentSession()
		if session == nil {
			writeJSON(w, http.StatusOK, map[string]interface{}{
				"active": false,
			})
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"active": true,
			"session": map[string]interface{}{
				"tagId":           session.TagID,
				"startTime":       session.StartTime,
				"durationMinutes": session.Duration(time.Now()).Minutes(),
			},
		})
	}
}

// NewPricingHandler returns GET /api/pricing handler. It summarizes the
// plan options attached to the running session: the rate in effect now
// for time-banded plans and the tier schedule for tiered ones.
func NewPricingHandler(reader SessionReader) http.HandlerFunc {
	type rateDoc struct {
		Amount   float64 `json:"amount"`
		Currency string  `json:"currency,omitempty"`
	}
	type planDoc struct {
		Name         string         `json:"name"`
		Role         string         `json:"role"`
		QuantityType string         `json:"quantityType"`
		CurrentRate  *rateDoc       `json:"currentRate,omitempty"`
		Tiers        []pricing.Tier `json:"tiers,omitempty"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		session := reader.CurrentSession()
		if session == nil {
			writeJSON(w, http.StatusOK, map[string]interface{}{
				"active": false,
				"plans":  []planDoc{},
			})
			return
		}

		now := time.Now()
		plans := make([]planDoc, 0, len(session.PlanOptions))
		for _, opt := range session.PlanOptions {
			doc := planDoc{
				Name:         opt.Name,
				Role:         roleLabel(opt.Role),
				QuantityType: string(opt.QuantityType),
			}
			switch opt.Kind {
			case pricing.KindTimeBanded:
				if rule, ok := pricing.ActiveRule(opt.Rules, now); ok {
					doc.CurrentRate = &rateDoc{Amount: rule.Amount, Currency: rule.Currency}
				}
			case pricing.KindTiered:
				doc.Tiers = opt.Tiers
			}
			plans = append(plans, doc)
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"active": true,
			"plans":  plans,
		})
	}
}

func roleLabel(role pricing.PlanRole) string {
	switch role {
	case pricing.RoleBlocking:
		return "blocking"
	case pricing.RoleCharging:
		return "charging"
	default:
		return "unknown"
	}
}

// NewRecentSessionsHandler returns GET /api/sessions/recent handler.
func NewRecentSessionsHandler(journal JournalReader, stationID string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := 20
		if raw := r.URL.Query().Get("limit"); raw != "" {
			parsed, err := strconv.Atoi(raw)
			if err != nil || parsed < 1 || parsed > 100 {
				writeError(w, http.StatusBadRequest, "limit must be between 1 and 100")
				return
			}
			limit = parsed
		}

		sessions, err := journal.Recent(r.Context(), stationID, limit)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "failed to fetch sessions")
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"sessions": sessions,
		})
	}
}

// NewPurchaseHandler returns POST /api/purchase handler.
func NewPurchaseHandler(purchaser Purchaser) http.HandlerFunc {
	type request struct {
		TagID string `json:"tagId"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		var req request
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.TagID == "" {
			writeError(w, http.StatusBadRequest, "tagId is required")
			return
		}

		if err := purchaser.PurchaseProduct(r.Context(), req.TagID); err != nil {
			if errors.Is(err, service.ErrUnknownTag) {
				writeError(w, http.StatusNotFound, "unknown tag")
				return
			}
			writeError(w, http.StatusBadGateway, "purchase failed")
			return
		}
		writeJSON(w, http.StatusCreated, map[string]string{"status": "purchased"})
	}
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
