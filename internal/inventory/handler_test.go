package inventory

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/assetdesk/assetdesk/internal/platform/httpx"
)

func newTestServer(t *testing.T) (*httptest.Server, *memoryRepo) {
	t.Helper()
	repo := newMemoryRepo()
	service := NewService(repo, nil, nil)
	reports := NewReports(&stubReportsRepo{}, NewCache(nil, time.Minute))
	handler := NewHandler(slog.Default(), service, reports)

	router := chi.NewRouter()
	router.Route("/api/inventory", handler.MountRoutes)
	server := httptest.NewServer(router)
	t.Cleanup(server.Close)
	return server, repo
}

func postJSON(t *testing.T, url string, body any) *http.Response {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(url, "application/json", bytes.NewReader(payload))
	require.NoError(t, err)
	return resp
}

func TestHandleReceiveCreatesItem(t *testing.T) {
	server, _ := newTestServer(t)

	resp := postJSON(t, server.URL+"/api/inventory", map[string]any{
		"barcode":        "B100",
		"name":           "Widget",
		"quantity":       10,
		"price_per_unit": "50.00",
	})
	defer resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var result MovementResult
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&result))
	require.Equal(t, "Widget", result.Item.Name)
	require.EqualValues(t, 10, result.Item.Quantity)
	require.Equal(t, "50", result.Item.PricePerUnit.String())
	require.EqualValues(t, 10, result.Entry.QuantityChange)
}

func TestHandleDispenseInsufficientStock(t *testing.T) {
	server, _ := newTestServer(t)

	resp := postJSON(t, server.URL+"/api/inventory", map[string]any{
		"barcode":        "B100",
		"name":           "Widget",
		"quantity":       3,
		"price_per_unit": "50.00",
	})
	resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = postJSON(t, server.URL+"/api/inventory/dispense", map[string]any{
		"itemId":             1,
		"quantityToDispense": 4,
	})
	defer resp.Body.Close()
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	var problem httpx.ProblemDetail
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&problem))
	require.Equal(t, "Insufficient Stock", problem.Title)
	require.Equal(t, http.StatusBadRequest, problem.Status)
}

func TestHandleAdjustRequiresNotes(t *testing.T) {
	server, _ := newTestServer(t)

	resp := postJSON(t, server.URL+"/api/inventory", map[string]any{
		"barcode":        "B100",
		"name":           "Widget",
		"quantity":       8,
		"price_per_unit": "10.00",
	})
	resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = postJSON(t, server.URL+"/api/inventory/adjust", map[string]any{
		"itemId":      1,
		"newQuantity": 5,
	})
	defer resp.Body.Close()
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestHandleListByBarcode(t *testing.T) {
	server, _ := newTestServer(t)

	resp := postJSON(t, server.URL+"/api/inventory", map[string]any{
		"barcode":        "B7",
		"name":           "Dock",
		"quantity":       2,
		"price_per_unit": "99.95",
	})
	resp.Body.Close()

	lookup, err := http.Get(server.URL + "/api/inventory?barcode=B7")
	require.NoError(t, err)
	defer lookup.Body.Close()
	require.Equal(t, http.StatusOK, lookup.StatusCode)

	var item Item
	require.NoError(t, json.NewDecoder(lookup.Body).Decode(&item))
	require.Equal(t, "Dock", item.Name)

	missing, err := http.Get(server.URL + "/api/inventory?barcode=nope")
	require.NoError(t, err)
	defer missing.Body.Close()
	require.Equal(t, http.StatusNotFound, missing.StatusCode)
}

func TestHandleHistoryNotFound(t *testing.T) {
	server, _ := newTestServer(t)

	resp, err := http.Get(fmt.Sprintf("%s/api/inventory/%d/history", server.URL, 42))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestHandleReceiveRejectsUnknownFields(t *testing.T) {
	server, _ := newTestServer(t)

	resp := postJSON(t, server.URL+"/api/inventory", map[string]any{
		"name":     "Widget",
		"quantity": 1,
		"evil":     true,
	})
	defer resp.Body.Close()
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
