package shared

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/phrazzld/deckstudy/internal/platform/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWithTraceID(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		incoming string
		keep     bool
	}{
		{name: "client value kept", incoming: "abc-123", keep: true},
		{name: "empty generates", incoming: ""},
		{name: "unsafe characters replaced", incoming: "abc\nlevel=ERROR"},
		{name: "too long replaced", incoming: strings.Repeat("a", 65)},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			ctx := WithTraceID(context.Background(), tc.incoming)
			got := GetTraceID(ctx)

			if tc.keep {
				assert.Equal(t, tc.incoming, got)
				return
			}
			assert.Len(t, got, 32)
			_, err := hex.DecodeString(got)
			assert.NoError(t, err)
		})
	}
}

func TestGetTraceID_Missing(t *testing.T) {
	t.Parallel()
	assert.Empty(t, GetTraceID(context.Background()))
	assert.Empty(t, GetTraceID(context.WithValue(context.Background(), TraceIDKey, 123)))
}

func TestNewTraceID_Unique(t *testing.T) {
	t.Parallel()
	seen := make(map[string]bool)
	for range 500 {
		id := NewTraceID()
		require.False(t, seen[id], "duplicate trace ID %s", id)
		seen[id] = true
	}
}

func TestDecodeJSON(t *testing.T) {
	t.Parallel()

	type payload struct {
		Outcome string `json:"outcome"`
	}

	tests := []struct {
		name        string
		body        string
		wantErr     bool
		errContains string
	}{
		{name: "valid", body: `{"outcome":"pass"}`},
		{name: "malformed", body: `{"outcome":"pass",}`, wantErr: true, errContains: "invalid character"},
		{name: "empty", body: ``, wantErr: true, errContains: "EOF"},
		{name: "unknown field", body: `{"outcome":"pass","extra":1}`, wantErr: true, errContains: "unknown field"},
		{name: "trailing object", body: `{"outcome":"pass"}{"outcome":"fail"}`, wantErr: true, errContains: "single JSON object"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			req := httptest.NewRequest(http.MethodPost, "/test", strings.NewReader(tc.body))

			var got payload
			err := DecodeJSON(req, &got)
			if tc.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tc.errContains)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "pass", got.Outcome)
		})
	}
}

type selfValidating struct{ ok bool }

func (s *selfValidating) Validate() error {
	if !s.ok {
		return errors.New("not ok")
	}
	return nil
}

func TestValidateRequest(t *testing.T) {
	t.Parallel()

	type tagged struct {
		Outcome string `validate:"required,oneof=pass fail"`
	}

	assert.NoError(t, ValidateRequest(&tagged{Outcome: "pass"}))
	assert.Error(t, ValidateRequest(&tagged{Outcome: "maybe"}))
	assert.Error(t, ValidateRequest(&tagged{}))
	assert.NoError(t, ValidateRequest(&selfValidating{ok: true}))
	assert.EqualError(t, ValidateRequest(&selfValidating{}), "not ok")
}

func TestRespondWithJSON(t *testing.T) {
	t.Parallel()

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	w := httptest.NewRecorder()

	RespondWithJSON(w, req, http.StatusCreated, map[string]int{"remaining": 3})

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"remaining":3}`, w.Body.String())
}

func TestRespondWithJSON_EncodingError(t *testing.T) {
	t.Parallel()

	buf, log := logger.NewTestLogger(t)
	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	req = req.WithContext(logger.WithLogger(req.Context(), log))
	w := httptest.NewRecorder()

	RespondWithJSON(w, req, http.StatusOK, map[string]any{"bad": make(chan int)})

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, buf.String(), "failed to encode JSON response")
}

func TestRespondWithErrorAndLog(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		status    int
		elevate   bool
		wantLevel string
	}{
		{name: "server error", status: http.StatusInternalServerError, wantLevel: "ERROR"},
		{name: "client error", status: http.StatusBadRequest, wantLevel: "DEBUG"},
		{name: "elevated client error", status: http.StatusConflict, elevate: true, wantLevel: "WARN"},
		{name: "elevation leaves server errors alone", status: http.StatusServiceUnavailable, elevate: true, wantLevel: "ERROR"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			buf, log := logger.NewTestLogger(t)
			ctx := context.WithValue(context.Background(), TraceIDKey, "trace-2")
			req := httptest.NewRequest(http.MethodPost, "/api/sessions/x/rate", nil)
			req = req.WithContext(logger.WithLogger(ctx, log))
			w := httptest.NewRecorder()

			var opts []ResponseOption
			if tc.elevate {
				opts = append(opts, WithElevatedLogLevel())
			}
			RespondWithErrorAndLog(w, req, tc.status, "Something failed", errors.New("disk full"), opts...)

			assert.Equal(t, tc.status, w.Code)
			var resp ErrorResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.Equal(t, "Something failed", resp.Error)
			assert.NotContains(t, w.Body.String(), "disk full")

			entries, err := buf.GetLogEntries()
			require.NoError(t, err)
			require.Len(t, entries, 1)
			assert.Equal(t, tc.wantLevel, entries[0]["level"])
			assert.Equal(t, "disk full", entries[0]["error"])
			assert.Equal(t, "trace-2", entries[0]["trace_id"])
			assert.Equal(t, "trace-2", resp.TraceID)
		})
	}
}

func TestRespondWithErrorAndLog_RedactsLoggedError(t *testing.T) {
	t.Parallel()

	buf, log := logger.NewTestLogger(t)
	req := httptest.NewRequest(http.MethodGet, "/api/decks", nil)
	req = req.WithContext(logger.WithLogger(req.Context(), log))
	w := httptest.NewRecorder()

	err := errors.New("dial postgres://study:hunter2@db:5432/study: connection refused")
	RespondWithErrorAndLog(w, req, http.StatusInternalServerError, "Failed to list decks", err)

	assert.NotContains(t, buf.String(), "hunter2")
	assert.NotContains(t, w.Body.String(), "hunter2")
	assert.Contains(t, buf.String(), "[REDACTED_CREDENTIAL]")
}
