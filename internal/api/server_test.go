package api

import (
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/settleflow/settleflow/internal/account"
	"github.com/settleflow/settleflow/internal/storage"
	"github.com/settleflow/settleflow/internal/transaction"
	"github.com/settleflow/settleflow/pkg/config"
	"github.com/settleflow/settleflow/pkg/health"
	"github.com/settleflow/settleflow/pkg/logging"
	"github.com/settleflow/settleflow/pkg/metrics"
	"github.com/settleflow/settleflow/pkg/service"
)

func newTestServer(t *testing.T) (*Server, *storage.MemoryStore[transaction.ClientID, account.Account]) {
	t.Helper()
	return newTestServerAt(t, "0")
}

func newTestServerAt(t *testing.T, port string) (*Server, *storage.MemoryStore[transaction.ClientID, account.Account]) {
	t.Helper()

	logger := logging.New(logging.Config{
		Level:       logging.ErrorLevel,
		Output:      io.Discard,
		ServiceName: "test",
	})
	cfg := &config.Config{
		API: config.APIConfig{Port: port, CORSAllowedOrigins: []string{"*"}},
	}
	accounts := storage.NewMemoryStore[transaction.ClientID, account.Account]()

	srv := NewServer(cfg, accounts, logger, metrics.New(metrics.DefaultConfig()), health.NewRegistry(logger))
	return srv, accounts
}

func TestGetAccount(t *testing.T) {
	srv, accounts := newTestServer(t)
	require.NoError(t, accounts.Set(context.Background(), 1, account.Account{
		ID: 1, Available: 15000, Held: 5000, Total: 20000,
	}))

	req := httptest.NewRequest(http.MethodGet, "/v1/accounts/1", nil)
	rec := httptest.NewRecorder()
	srv.router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var view struct {
		ID        uint16 `json:"id"`
		Available string `json:"available"`
		Held      string `json:"held"`
		Total     string `json:"total"`
		Locked    bool   `json:"locked"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &view))
	assert.Equal(t, uint16(1), view.ID)
	assert.Equal(t, "1.5", view.Available)
	assert.Equal(t, "0.5", view.Held)
	assert.Equal(t, "2", view.Total)
	assert.False(t, view.Locked)
}

func TestGetAccountNotFound(t *testing.T) {
	srv, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/v1/accounts/42", nil)
	rec := httptest.NewRecorder()
	srv.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetAccountBadID(t *testing.T) {
	srv, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/v1/accounts/not-a-number", nil)
	rec := httptest.NewRecorder()
	srv.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListAccounts(t *testing.T) {
	srv, accounts := newTestServer(t)
	ctx := context.Background()
	require.NoError(t, accounts.Set(ctx, 1, account.Account{ID: 1, Available: 10000, Total: 10000}))
	require.NoError(t, accounts.Set(ctx, 2, account.Account{ID: 2, Locked: true}))

	req := httptest.NewRequest(http.MethodGet, "/v1/accounts", nil)
	rec := httptest.NewRecorder()
	srv.router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var views []json.RawMessage
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &views))
	assert.Len(t, views, 2)
}

func TestHealthEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	srv.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	srv.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestServiceStartAndStop(t *testing.T) {
	srv, _ := newTestServer(t)
	svc := NewService(srv)

	require.NoError(t, svc.Start(context.Background()))
	assert.Equal(t, service.StatusRunning, svc.Status())
	assert.NoError(t, svc.Health())

	require.NoError(t, svc.Stop(context.Background()))
	assert.Equal(t, service.StatusStopped, svc.Status())
}

func TestServiceStartFailsOnOccupiedPort(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()
	port := strconv.Itoa(ln.Addr().(*net.TCPAddr).Port)

	srv, _ := newTestServerAt(t, port)
	svc := NewService(srv)

	err = svc.Start(context.Background())
	require.Error(t, err)
	assert.Equal(t, service.StatusError, svc.Status())
}
