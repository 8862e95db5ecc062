package handlers

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/traderedge/apiserver/internal/services"
	"github.com/traderedge/apiserver/types"
)

func newAccountServer(t *testing.T, userID int) (*httptest.Server, *fakeAccountRepo) {
	t.Helper()

	repo := newFakeAccountRepo()
	handler := NewAccountHandler(services.NewAccountService(repo), zap.NewNop())

	router := chi.NewRouter()
	router.Route("/api/accounts", func(r chi.Router) {
		r.Use(withIdentity(userID, "session"))
		AccountRouter(r, handler)
	})

	ts := httptest.NewServer(router)
	t.Cleanup(ts.Close)
	return ts, repo
}

func TestAccountLifecycle(t *testing.T) {
	ts, _ := newAccountServer(t, 1)

	resp := postJSON(t, ts.URL+"/api/accounts/",
		`{"name":"Funded Eval","broker":"Apex","currency":"USD","starting_balance":50000,"current_balance":50000}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var account types.Account
	decodeBody(t, resp, &account)
	assert.NotZero(t, account.ID)
	assert.Equal(t, "Funded Eval", account.Name)

	resp = doRequest(t, http.MethodGet, ts.URL+"/api/accounts/", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var accounts []types.Account
	decodeBody(t, resp, &accounts)
	require.Len(t, accounts, 1)

	update := `{"name":"Funded Live","broker":"Apex","currency":"USD","starting_balance":50000,"current_balance":51250.5}`
	resp = doRequest(t, http.MethodPut, ts.URL+fmt.Sprintf("/api/accounts/%d/", account.ID), bytes.NewBufferString(update))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var updated types.Account
	decodeBody(t, resp, &updated)
	assert.Equal(t, "Funded Live", updated.Name)
	assert.Equal(t, 51250.5, updated.CurrentBalance)

	resp = doRequest(t, http.MethodDelete, ts.URL+fmt.Sprintf("/api/accounts/%d/", account.ID), nil)
	resp.Body.Close()
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = doRequest(t, http.MethodGet, ts.URL+fmt.Sprintf("/api/accounts/%d/", account.ID), nil)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestAccountValidation(t *testing.T) {
	ts, _ := newAccountServer(t, 1)

	resp := postJSON(t, ts.URL+"/api/accounts/", `{"broker":"Apex"}`)
	require.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	var out ValidationErrorResponse
	decodeBody(t, resp, &out)
	assert.Contains(t, out.Errors, "name")
	assert.Contains(t, out.Errors, "currency")
}

func TestAccountUserScoping(t *testing.T) {
	ts, repo := newAccountServer(t, 1)

	other, err := repo.Create(context.Background(), types.Account{UserID: 2, Name: "Not yours", Currency: "EUR"})
	require.NoError(t, err)

	resp := doRequest(t, http.MethodGet, ts.URL+"/api/accounts/", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var accounts []types.Account
	decodeBody(t, resp, &accounts)
	assert.Empty(t, accounts)

	resp = doRequest(t, http.MethodGet, ts.URL+fmt.Sprintf("/api/accounts/%d/", other.ID), nil)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
