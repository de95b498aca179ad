package sink

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saturnino-fabrica-de-software/socialhook/internal/domain"
)

func TestHTTPForwarder_PublishSignsBody(t *testing.T) {
	event := testEvent()

	var gotBody []byte
	var gotSig, gotType, gotID string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotBody, _ = io.ReadAll(r.Body)
		gotSig = r.Header.Get(HeaderForwardSignature)
		gotType = r.Header.Get(HeaderForwardEvent)
		gotID = r.Header.Get(HeaderForwardID)
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	f := NewHTTPForwarder(HTTPOptions{URL: srv.URL, Secret: "downstream"}, discard())
	require.NoError(t, f.Publish(context.Background(), event))

	assert.Equal(t, Sign("downstream", gotBody), gotSig)
	assert.Equal(t, "comment_created", gotType)
	assert.Equal(t, event.WebhookEventID.String(), gotID)

	var decoded domain.NormalizedEvent
	require.NoError(t, json.Unmarshal(gotBody, &decoded))
	assert.Equal(t, event.ObjectID, decoded.ObjectID)
	require.NoError(t, f.Close())
}

func TestHTTPForwarder_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	f := NewHTTPForwarder(HTTPOptions{URL: srv.URL, MaxElapsed: 5 * time.Second}, discard())
	require.NoError(t, f.Publish(context.Background(), testEvent()))
	assert.Equal(t, int32(3), calls.Load())
}

func TestHTTPForwarder_ClientErrorIsPermanent(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	f := NewHTTPForwarder(HTTPOptions{URL: srv.URL}, discard())
	err := f.Publish(context.Background(), testEvent())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "HTTP 400")
	assert.Equal(t, int32(1), calls.Load())
}

func TestHTTPForwarder_NoSecretNoSignature(t *testing.T) {
	var gotSig string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotSig = r.Header.Get(HeaderForwardSignature)
	}))
	defer srv.Close()

	f := NewHTTPForwarder(HTTPOptions{URL: srv.URL}, discard())
	require.NoError(t, f.Publish(context.Background(), testEvent()))
	assert.Empty(t, gotSig)
}
