package quotations

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atlas-erp/atlas-erp/internal/auth"
	"github.com/atlas-erp/atlas-erp/internal/observability"
)

type handlerEnv struct {
	*testEnv
	router     chi.Router
	tokens     *auth.TokenIssuer
	salesToken string
	buyerToken string
}

func newHandlerEnv(t *testing.T) *handlerEnv {
	t.Helper()
	env := newTestEnv()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	tokens := auth.NewTokenIssuer("test-secret", "atlas-erp-test", time.Hour)
	mw := auth.Middleware{Tokens: tokens, Logger: logger}

	handler := NewHandler(logger, env.svc, validator.New(), mw, observability.NewMetrics())
	router := chi.NewRouter()
	router.Route("/quotations", handler.MountRoutes)

	salesToken, err := tokens.Issue(&auth.User{ID: env.salesUser.ID, Role: auth.RoleSales})
	require.NoError(t, err)
	buyerToken, err := tokens.Issue(&auth.User{ID: env.buyer.ID, Role: auth.RoleCustomer})
	require.NoError(t, err)

	return &handlerEnv{
		testEnv:    env,
		router:     router,
		tokens:     tokens,
		salesToken: salesToken,
		buyerToken: buyerToken,
	}
}

func (e *handlerEnv) do(method, path, token, body string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func TestQuotationRoutesRequireAuth(t *testing.T) {
	env := newHandlerEnv(t)

	for _, tc := range []struct {
		method string
		path   string
	}{
		{http.MethodPost, "/quotations"},
		{http.MethodGet, "/quotations"},
		{http.MethodGet, "/quotations/" + uuid.NewString()},
		{http.MethodPut, "/quotations/" + uuid.NewString() + "/approve"},
	} {
		rec := env.do(tc.method, tc.path, "", "")
		assert.Equal(t, http.StatusUnauthorized, rec.Code, "%s %s", tc.method, tc.path)
	}
}

func TestCreateQuotationHTTP(t *testing.T) {
	env := newHandlerEnv(t)

	body := fmt.Sprintf(`{"customer_id":%q,"items":[{"product_id":%q,"quantity":2},{"product_id":%q,"quantity":1}]}`,
		env.customer.ID, env.product1.ID, env.product2.ID)
	rec := env.do(http.MethodPost, "/quotations", env.salesToken, body)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var detail QuotationDetail
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &detail))
	assert.Equal(t, QuotationStatusPending, detail.Status)
	assert.Len(t, detail.Items, 2)
	assert.Equal(t, "400", detail.Total.String())
	assert.Len(t, detail.StatusHistory, 1)
}

func TestCreateQuotationHTTPValidation(t *testing.T) {
	env := newHandlerEnv(t)

	// Missing customer_id.
	rec := env.do(http.MethodPost, "/quotations", env.salesToken, `{"items":[]}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// Zero quantity.
	body := fmt.Sprintf(`{"customer_id":%q,"items":[{"product_id":%q,"quantity":0}]}`,
		env.customer.ID, env.product1.ID)
	rec = env.do(http.MethodPost, "/quotations", env.salesToken, body)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// Malformed JSON.
	rec = env.do(http.MethodPost, "/quotations", env.salesToken, `{"customer_id":`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateQuotationHTTPUnknownCustomer(t *testing.T) {
	env := newHandlerEnv(t)

	body := fmt.Sprintf(`{"customer_id":%q,"items":[]}`, uuid.New())
	rec := env.do(http.MethodPost, "/quotations", env.salesToken, body)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestApproveQuotationHTTP(t *testing.T) {
	env := newHandlerEnv(t)
	quotation := env.createQuotation(t)

	rec := env.do(http.MethodPut, "/quotations/"+quotation.ID.String()+"/approve", env.salesToken, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var result ApprovalResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Equal(t, QuotationStatusApproved, result.Quotation.Status)
	assert.Equal(t, quotation.ID, result.SalesOrder.QuotationID)
}

func TestApproveQuotationHTTPForbidden(t *testing.T) {
	env := newHandlerEnv(t)
	quotation := env.createQuotation(t)

	rec := env.do(http.MethodPut, "/quotations/"+quotation.ID.String()+"/approve", env.buyerToken, "")
	assert.Equal(t, http.StatusForbidden, rec.Code)

	// The middleware rejects before the service runs; state is untouched.
	detail, err := env.svc.Get(context.Background(), quotation.ID)
	require.NoError(t, err)
	assert.Equal(t, QuotationStatusPending, detail.Status)
}

func TestApproveQuotationHTTPConflict(t *testing.T) {
	env := newHandlerEnv(t)
	quotation := env.createQuotation(t)

	rec := env.do(http.MethodPut, "/quotations/"+quotation.ID.String()+"/approve", env.salesToken, "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(http.MethodPut, "/quotations/"+quotation.ID.String()+"/approve", env.salesToken, "")
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestShowQuotationHTTP(t *testing.T) {
	env := newHandlerEnv(t)
	quotation := env.createQuotation(t)

	rec := env.do(http.MethodGet, "/quotations/"+quotation.ID.String(), env.buyerToken, "")
	require.Equal(t, http.StatusOK, rec.Code)

	var detail QuotationDetail
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &detail))
	assert.Equal(t, quotation.ID, detail.ID)
	assert.Equal(t, env.customer.Name, detail.Customer.Name)

	rec = env.do(http.MethodGet, "/quotations/not-a-uuid", env.buyerToken, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(http.MethodGet, "/quotations/"+uuid.NewString(), env.buyerToken, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListQuotationsHTTP(t *testing.T) {
	env := newHandlerEnv(t)
	env.createQuotation(t)
	env.createQuotation(t)

	rec := env.do(http.MethodGet, "/quotations?status=pending&page=1&limit=1", env.salesToken, "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp ListQuotationsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Len(t, resp.Data, 1)
	assert.Equal(t, 2, resp.Meta.Total)
	assert.Equal(t, 2, resp.Meta.TotalPages)

	rec = env.do(http.MethodGet, "/quotations?status=bogus", env.salesToken, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
