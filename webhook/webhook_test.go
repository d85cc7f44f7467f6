package webhook

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/josequispe9/ScraperMELI-Linkedin/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fast(n *Notifier) *Notifier {
	n.policy.BaseDelay = time.Millisecond
	return n
}

func TestNotifySignsBody(t *testing.T) {
	var (
		gotBody []byte
		gotSig  string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotBody, _ = io.ReadAll(r.Body)
		gotSig = r.Header.Get(SignatureHeader)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	summary := models.RunSummary{Site: "linkedin", Success: true, ItemCount: 4, Errors: []string{}}
	require.NoError(t, fast(New(srv.URL, "s3cret")).Notify(context.Background(), summary))

	assert.Equal(t, Sign("s3cret", gotBody), gotSig)

	var payload map[string]any
	require.NoError(t, json.Unmarshal(gotBody, &payload))
	assert.Equal(t, EventRunCompleted, payload["type"])
	assert.Equal(t, "linkedin", payload["site"])
	assert.EqualValues(t, 4, payload["item_count"])
	assert.NotZero(t, payload["timestamp"])
}

func TestNotifyWithoutSecretIsUnsigned(t *testing.T) {
	var sig atomic.Value
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sig.Store(r.Header.Get(SignatureHeader))
	}))
	defer srv.Close()

	require.NoError(t, fast(New(srv.URL, "")).Notify(context.Background(), models.RunSummary{}))
	assert.Equal(t, "", sig.Load())
}

func TestNotifyRetries(t *testing.T) {
	tests := []struct {
		name      string
		statuses  []int
		wantCalls int32
		wantErr   bool
		wantCode  string
	}{
		{"recovers after 503", []int{503, 200}, 2, false, ""},
		{"gives up after three 500s", []int{500, 500, 500, 500}, 3, true, models.ErrCodeWebhook},
		{"client error is final", []int{400, 200}, 1, true, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls atomic.Int32
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				i := calls.Add(1) - 1
				w.WriteHeader(tt.statuses[i])
			}))
			defer srv.Close()

			err := fast(New(srv.URL, "k")).Notify(context.Background(), models.RunSummary{Site: "mercadolibre"})
			assert.Equal(t, tt.wantCalls, calls.Load())
			if tt.wantErr {
				assert.Error(t, err)
				if tt.wantCode != "" {
					var se *models.ScrapeError
					require.ErrorAs(t, err, &se)
					assert.Equal(t, tt.wantCode, se.Code)
				}
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestSign(t *testing.T) {
	// echo -n 'hello' | openssl dgst -sha256 -hmac key
	assert.Equal(t,
		"sha256=9307b3b915efb5171ff14d8cb55fbcc798c6c0ef1456d66ded1a6aa723a58b7b",
		Sign("key", []byte("hello")))
}
