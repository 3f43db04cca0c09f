package api

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docmarkapp/docmark-server/internal/domain"
	"github.com/docmarkapp/docmark-server/internal/provider"
	"github.com/docmarkapp/docmark-server/internal/service"
)

func (ts *testServer) watchFile(fileID, name string) {
	ts.provider.mu.Lock()
	defer ts.provider.mu.Unlock()
	ts.provider.folders["folder-1"] = append(ts.provider.folders["folder-1"], provider.File{
		ID:         fileID,
		Name:       name,
		ModifiedAt: time.Now().UTC(),
	})
}

func TestFullSyncEndpoint(t *testing.T) {
	ts := newTestServer(t)
	ts.provider.setSnapshot("file-1", "Draft One", draftText)
	ts.watchFile("file-1", "Draft One")

	rec := ts.do(t, http.MethodPost, "/api/v1/sync/full", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var result service.FullSyncResult
	decodeData(t, rec, &result)
	assert.Equal(t, domain.SyncStatusSuccess, result.Status)
	assert.Equal(t, 1, result.DocumentsAdded)
}

func TestFullSync_NoWatchFolder(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodPut, "/api/v1/auth/settings", map[string]any{
		"watch_folder_id": "",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = ts.do(t, http.MethodPost, "/api/v1/sync/full", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
}

func TestSyncStatusEndpoint(t *testing.T) {
	ts := newTestServer(t)
	ts.provider.setSnapshot("file-1", "Draft One", draftText)
	ts.watchFile("file-1", "Draft One")

	rec := ts.do(t, http.MethodPost, "/api/v1/sync/full", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = ts.do(t, http.MethodGet, "/api/v1/sync/status", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var logs []*domain.SyncLog
	env := decodeData(t, rec, &logs)
	require.NotEmpty(t, logs)
	assert.Equal(t, domain.SyncActionFull, logs[0].Action)
	require.NotNil(t, env.Pagination)
	assert.Equal(t, env.Pagination.Total, len(logs))
}

func TestSyncRateLimit(t *testing.T) {
	ts := newTestServer(t)

	// Limiter allows a burst of 3 at 1 req/s; the 4th must be rejected.
	var last int
	for range 4 {
		rec := ts.do(t, http.MethodGet, "/api/v1/sync/status", nil)
		last = rec.Code
	}
	assert.Equal(t, http.StatusTooManyRequests, last)
}
