package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tobjohnbx/demo-mobile-charging/internal/models"
	"github.com/tobjohnbx/demo-mobile-charging/internal/pricing"
	"github.com/tobjohnbx/demo-mobile-charging/internal/repository"
	"github.com/tobjohnbx/demo-mobile-charging/internal/service"
)

type stubReader struct {
	session *models.ChargingSession
}

func (s *stubReader) CurrentSession() *models.ChargingSession { return s.session }

type stubPurchaser struct {
	err  error
	tags []string
}

func (s *stubPurchaser) PurchaseProduct(ctx context.Context, tagID string) error {
	s.tags = append(s.tags, tagID)
	return s.err
}

type stubJournal struct {
	records []repository.SessionRecord
	err     error
	limit   int
}

func (s *stubJournal) Recent(ctx context.Context, stationID string, limit int) ([]repository.SessionRecord, error) {
	s.limit = limit
	return s.records, s.err
}

func doRequest(t *testing.T, handler http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestHealthHandler(t *testing.T) {
	rec := doRequest(t, NewHealthHandler("station-7"), http.MethodGet, "/health", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "station-7", body["stationId"])
}

func TestSessionStatusIdle(t *testing.T) {
	rec := doRequest(t, NewSessionStatusHandler(&stubReader{}), http.MethodGet, "/api/session", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, false, body["active"])
	assert.NotContains(t, body, "session")
}

func TestSessionStatusActive(t *testing.T) {
	reader := &stubReader{session: &models.ChargingSession{
		TagID:     "tag-1",
		StartTime: time.Now().Add(-10 * time.Minute),
	}}
	rec := doRequest(t, NewSessionStatusHandler(reader), http.MethodGet, "/api/session", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, true, body["active"])

	session, ok := body["session"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "tag-1", session["tagId"])
	assert.InDelta(t, 10.0, session["durationMinutes"].(float64), 0.1)
}

func TestPricingHandlerIdle(t *testing.T) {
	rec := doRequest(t, NewPricingHandler(&stubReader{}), http.MethodGet, "/api/pricing", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, false, body["active"])
	assert.Empty(t, body["plans"])
}

func TestPricingHandlerActive(t *testing.T) {
	reader := &stubReader{session: &models.ChargingSession{
		TagID:     "tag-1",
		StartTime: time.Now(),
		PlanOptions: []pricing.PlanOption{
			{
				Name:         "blocking-time",
				Kind:         pricing.KindTimeBanded,
				Role:         pricing.RoleBlocking,
				QuantityType: pricing.QuantityMinute,
				Rules: []pricing.PricingRule{
					{Start: "00:00", End: "12:00", Amount: 0.10, Currency: "EUR"},
					{Start: "12:00", End: "00:00", Amount: 0.10, Currency: "EUR"},
				},
			},
			{
				Name:         "charging-time",
				Kind:         pricing.KindTiered,
				Role:         pricing.RoleCharging,
				QuantityType: pricing.QuantitySecond,
				Tiers:        []pricing.Tier{{Quantity: 5, UnitPrice: 0.0}, {Quantity: 1, UnitPrice: 0.01}},
			},
		},
	}}
	rec := doRequest(t, NewPricingHandler(reader), http.MethodGet, "/api/pricing", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, true, body["active"])

	plans, ok := body["plans"].([]interface{})
	require.True(t, ok)
	require.Len(t, plans, 2)

	blocking := plans[0].(map[string]interface{})
	assert.Equal(t, "blocking", blocking["role"])
	rate, ok := blocking["currentRate"].(map[string]interface{})
	require.True(t, ok)
	assert.InDelta(t, 0.10, rate["amount"].(float64), 1e-9)

	charging := plans[1].(map[string]interface{})
	assert.Equal(t, "charging", charging["role"])
	tiers, ok := charging["tiers"].([]interface{})
	require.True(t, ok)
	assert.Len(t, tiers, 2)
}

func TestRecentSessionsDefaultLimit(t *testing.T) {
	journal := &stubJournal{records: []repository.SessionRecord{{TagID: "tag-1"}}}
	rec := doRequest(t, NewRecentSessionsHandler(journal, "station-7"), http.MethodGet, "/api/sessions/recent", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 20, journal.limit)
}

func TestRecentSessionsLimitValidation(t *testing.T) {
	journal := &stubJournal{}
	for _, raw := range []string{"0", "101", "abc"} {
		rec := doRequest(t, NewRecentSessionsHandler(journal, "station-7"), http.MethodGet, fmt.Sprintf("/api/sessions/recent?limit=%s", raw), "")
		assert.Equal(t, http.StatusBadRequest, rec.Code, "limit=%s", raw)
	}
}

func TestRecentSessionsJournalError(t *testing.T) {
	journal := &stubJournal{err: errors.New("db down")}
	rec := doRequest(t, NewRecentSessionsHandler(journal, "station-7"), http.MethodGet, "/api/sessions/recent", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestPurchaseHandler(t *testing.T) {
	purchaser := &stubPurchaser{}
	rec := doRequest(t, NewPurchaseHandler(purchaser), http.MethodPost, "/api/purchase", `{"tagId":"tag-1"}`)

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, []string{"tag-1"}, purchaser.tags)
}

func TestPurchaseHandlerUnknownTag(t *testing.T) {
	purchaser := &stubPurchaser{err: fmt.Errorf("%w: stranger", service.ErrUnknownTag)}
	rec := doRequest(t, NewPurchaseHandler(purchaser), http.MethodPost, "/api/purchase", `{"tagId":"stranger"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestPurchaseHandlerMissingTag(t *testing.T) {
	rec := doRequest(t, NewPurchaseHandler(&stubPurchaser{}), http.MethodPost, "/api/purchase", `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRouterRejectsWrongMethod(t *testing.T) {
	router := NewRouter(Routes{
		Health: NewHealthHandler("station-7"),
	})
	rec := doRequest(t, router, http.MethodPost, "/health", "")

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	assert.Equal(t, http.MethodGet, rec.Header().Get("Allow"))
}
