package client

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/bramburn/timetracker/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.uber.org/zap"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *APIClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewAPIClient(srv.URL, 5*time.Second, zap.NewNop())
}

func sampleEntries() []models.LogEntry {
	return []models.LogEntry{
		{
			Timestamp: "2026-03-01 09:15:30.120",
			EventType: "KEY_DOWN",
			Details:   "VK Code: 65",
			UserID:    "user@example.com",
			SessionID: "session-1",
		},
		{
			Timestamp: "2026-03-01 09:15:31.000",
			EventType: "ACTIVE_APP",
			Details:   "PROCESS: chrome.exe - TITLE: Inbox - Gmail",
			UserID:    "user@example.com",
			SessionID: "session-1",
		},
	}
}

func TestUploadActivityLogsPayload(t *testing.T) {
	var gotPath, gotContentType string
	var gotBody []models.LogEntry

	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotContentType = r.Header.Get("Content-Type")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.WriteHeader(http.StatusOK)
	})

	require.NoError(t, c.UploadActivityLogs(sampleEntries()))

	assert.Equal(t, "/activity", gotPath)
	assert.Equal(t, "application/json", gotContentType)
	require.Len(t, gotBody, 2)
	assert.Equal(t, "KEY_DOWN", gotBody[0].EventType)
	assert.Equal(t, "VK Code: 65", gotBody[0].Details)
	assert.Equal(t, "user@example.com", gotBody[0].UserID)
	assert.Equal(t, "session-1", gotBody[0].SessionID)
	assert.Equal(t, "2026-03-01 09:15:30.120", gotBody[0].Timestamp)
}

func TestUploadActivityLogsJSONFieldNames(t *testing.T) {
	var raw []map[string]any

	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&raw))
		w.WriteHeader(http.StatusOK)
	})

	require.NoError(t, c.UploadActivityLogs(sampleEntries()[:1]))

	require.Len(t, raw, 1)
	for _, key := range []string{"timestamp", "eventType", "details", "userId", "sessionId"} {
		assert.Contains(t, raw[0], key)
	}
}

func TestUploadActivityLogsEmptyBatchRejected(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("no request expected for an empty batch")
	})

	assert.Error(t, c.UploadActivityLogs(nil))
}

func TestUploadScreenshotMultipart(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "screenshot_20260301_091530_000.jpg")
	require.NoError(t, os.WriteFile(path, []byte("fake jpeg bytes"), 0o644))

	var gotPath string
	var gotUser, gotSession, gotFilename string
	var gotFile []byte

	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		require.NoError(t, r.ParseMultipartForm(1<<20))
		gotUser = r.FormValue("userId")
		gotSession = r.FormValue("sessionId")

		file, header, err := r.FormFile("file")
		require.NoError(t, err)
		defer file.Close()
		gotFilename = header.Filename
		gotFile, err = io.ReadAll(file)
		require.NoError(t, err)

		w.WriteHeader(http.StatusOK)
	})

	require.NoError(t, c.UploadScreenshot(path, "user@example.com", "session-1"))

	assert.Equal(t, "/screenshots", gotPath)
	assert.Equal(t, "user@example.com", gotUser)
	assert.Equal(t, "session-1", gotSession)
	assert.Equal(t, "screenshot_20260301_091530_000.jpg", gotFilename)
	assert.Equal(t, []byte("fake jpeg bytes"), gotFile)
}

func TestUploadScreenshotMissingFile(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("no request expected for a missing file")
	})

	assert.Error(t, c.UploadScreenshot(filepath.Join(t.TempDir(), "gone.jpg"), "u", "s"))
}

func TestUploadIdleAnnotationPayload(t *testing.T) {
	var gotPath string
	var raw map[string]any

	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		require.NoError(t, json.NewDecoder(r.Body).Decode(&raw))
		w.WriteHeader(http.StatusCreated)
	})

	req := models.IdleAnnotationRequest{
		IdleAnnotation: models.IdleAnnotation{
			Reason:          "Meeting",
			Note:            "standup",
			StartTime:       time.Now().Add(-2 * time.Minute),
			EndTime:         time.Now(),
			DurationSeconds: 120,
		},
		UserID:    "user@example.com",
		SessionID: "session-1",
	}
	require.NoError(t, c.UploadIdleAnnotation(req))

	assert.Equal(t, "/idle", gotPath)
	assert.Equal(t, "Meeting", raw["reason"])
	assert.Equal(t, "standup", raw["note"])
	assert.Equal(t, float64(120), raw["durationSeconds"])
	assert.Equal(t, "user@example.com", raw["userId"])
	assert.Equal(t, "session-1", raw["sessionId"])
}

func TestAnyTwoHundredIsSuccess(t *testing.T) {
	for _, status := range []int{http.StatusOK, http.StatusCreated, http.StatusAccepted, http.StatusNoContent} {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(status)
		})
		assert.NoError(t, c.UploadActivityLogs(sampleEntries()), "status %d", status)
	}
}

func TestErrorTypesByStatus(t *testing.T) {
	cases := []struct {
		status int
		check  func(t *testing.T, err error)
	}{
		{http.StatusUnauthorized, func(t *testing.T, err error) {
			var authErr *AuthError
			assert.ErrorAs(t, err, &authErr)
		}},
		{http.StatusForbidden, func(t *testing.T, err error) {
			var authErr *AuthError
			assert.ErrorAs(t, err, &authErr)
		}},
		{http.StatusTooManyRequests, func(t *testing.T, err error) {
			var rlErr *RateLimitError
			assert.ErrorAs(t, err, &rlErr)
		}},
		{http.StatusBadRequest, func(t *testing.T, err error) {
			var brErr *BadRequestError
			assert.ErrorAs(t, err, &brErr)
		}},
		{http.StatusInternalServerError, func(t *testing.T, err error) {
			var beErr *BackendError
			assert.ErrorAs(t, err, &beErr)
		}},
	}

	for _, tc := range cases {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(tc.status)
		})
		err := c.UploadActivityLogs(sampleEntries())
		require.Error(t, err, "status %d", tc.status)
		tc.check(t, err)
	}
}

func TestUserAgentHeader(t *testing.T) {
	var gotUA string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		w.WriteHeader(http.StatusOK)
	})

	require.NoError(t, c.UploadActivityLogs(sampleEntries()))
	assert.Equal(t, "TimeTracker-Client/1.0", gotUA)
}
