package customers

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRouter(repo Repository) chi.Router {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	handler := NewHandler(logger, NewService(repo, nil, logger))
	router := chi.NewRouter()
	router.Route("/customers", handler.MountRoutes)
	return router
}

func TestCustomerRoutes(t *testing.T) {
	acme := Customer{ID: uuid.New(), Name: "Acme Ltd"}
	repo := &countingRepo{customers: map[uuid.UUID]Customer{acme.ID: acme}}
	router := newTestRouter(repo)

	// Search.
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/customers?search=acme", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var list []Customer
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list, 1)
	assert.Equal(t, acme.ID, list[0].ID)

	// Detail.
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/customers/"+acme.ID.String(), nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var got Customer
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "Acme Ltd", got.Name)

	// Malformed and unknown ids.
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/customers/not-a-uuid", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/customers/"+uuid.NewString(), nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
