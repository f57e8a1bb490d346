package explorer

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testAddress = "0xdAC17F958D2ee523a2206206994597C13D831ec7"

func newStubExplorer(t *testing.T, body string) (*httptest.Server, *int32) {
	t.Helper()
	var hit int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hit, 1)
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv, &hit
}

func TestResolveSuppliedSkipsNetwork(t *testing.T) {
	srv, hit := newStubExplorer(t, `{}`)
	c := &Client{BaseURL: srv.URL, APIKey: "k"}

	supplied := json.RawMessage(`[{"type":"function","name":"x"}]`)
	got, err := c.Resolve(context.Background(), testAddress, supplied)
	require.NoError(t, err)
	assert.Equal(t, supplied, got)
	assert.Equal(t, int32(0), atomic.LoadInt32(hit))
}

func TestFetchABISuccess(t *testing.T) {
	var query map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		query = map[string]string{}
		for k, v := range r.URL.Query() {
			query[k] = v[0]
		}
		_, _ = io.WriteString(w, `{"status":"1","message":"OK","result":"[{\"type\":\"function\",\"name\":\"owner\"}]"}`)
	}))
	defer srv.Close()

	c := &Client{BaseURL: srv.URL, APIKey: "es-key", ChainID: 1}
	got, err := c.Resolve(context.Background(), testAddress, nil)
	require.NoError(t, err)
	assert.JSONEq(t, `[{"type":"function","name":"owner"}]`, string(got))
	assert.Equal(t, map[string]string{
		"module":  "contract",
		"action":  "getabi",
		"address": testAddress,
		"apikey":  "es-key",
		"chainid": "1",
	}, query)
}

func TestFetchABIProviderFailure(t *testing.T) {
	srv, _ := newStubExplorer(t, `{"status":"0","message":"NOTOK","result":"rate limited"}`)
	c := &Client{BaseURL: srv.URL, APIKey: "k"}

	_, err := c.Resolve(context.Background(), testAddress, json.RawMessage("null"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrProviderFailure))
	assert.Equal(t, "rate limited", err.Error())

	var perr *ProviderError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, "NOTOK", perr.Message)
}

func TestFetchABIProviderFailureWithoutReason(t *testing.T) {
	srv, _ := newStubExplorer(t, `{"status":0,"result":{"oops":true}}`)
	c := &Client{BaseURL: srv.URL, APIKey: "k"}

	_, err := c.FetchABI(context.Background(), testAddress)
	assert.ErrorIs(t, err, ErrProviderFailure)
	assert.Equal(t, "Unknown error fetching ABI", err.Error())
}

func TestFetchABIMalformedEnvelope(t *testing.T) {
	srv, _ := newStubExplorer(t, `<html>bad gateway</html>`)
	c := &Client{BaseURL: srv.URL, APIKey: "k"}

	_, err := c.FetchABI(context.Background(), testAddress)
	assert.ErrorIs(t, err, ErrMalformedEnvelope)
}

func TestFetchABIResultNotString(t *testing.T) {
	srv, _ := newStubExplorer(t, `{"status":"1","result":[]}`)
	c := &Client{BaseURL: srv.URL, APIKey: "k"}

	_, err := c.FetchABI(context.Background(), testAddress)
	assert.ErrorIs(t, err, ErrInvalidResult)
}

func TestFetchABINestedParseFailure(t *testing.T) {
	srv, _ := newStubExplorer(t, `{"status":"1","message":"OK","result":"Contract source code not verified"}`)
	c := &Client{BaseURL: srv.URL, APIKey: "k"}

	_, err := c.FetchABI(context.Background(), testAddress)
	assert.ErrorIs(t, err, ErrMalformedABI)
}

func TestFetchABIMissingKeySkipsNetwork(t *testing.T) {
	srv, hit := newStubExplorer(t, `{}`)
	c := &Client{BaseURL: srv.URL}

	_, err := c.FetchABI(context.Background(), testAddress)
	assert.ErrorIs(t, err, ErrMissingAPIKey)
	assert.Equal(t, int32(0), atomic.LoadInt32(hit))
}

func TestFetchABIForwardsAddressVerbatim(t *testing.T) {
	var (
		mu   sync.Mutex
		seen []string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		seen = append(seen, r.URL.Query().Get("address"))
		mu.Unlock()
		_, _ = io.WriteString(w, `{"status":"0","message":"NOTOK","result":"Invalid Address format"}`)
	}))
	t.Cleanup(srv.Close)

	logger := slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelDebug}))
	c := &Client{BaseURL: srv.URL, APIKey: "k", Logger: logger}

	addrs := []string{"0x123", "not-an-address", strings.ToLower(testAddress)}
	for _, addr := range addrs {
		_, err := c.FetchABI(context.Background(), addr)
		assert.ErrorIs(t, err, ErrProviderFailure, "address %q", addr)
		assert.EqualError(t, err, "Invalid Address format")
	}
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, addrs, seen)
}

func TestFetchABIEnvelopeKeysMatchExactly(t *testing.T) {
	srv, _ := newStubExplorer(t, `{"Status":"1","status":"0","RESULT":"[]","result":"rate limited"}`)
	c := &Client{BaseURL: srv.URL, APIKey: "k"}

	_, err := c.FetchABI(context.Background(), testAddress)
	assert.ErrorIs(t, err, ErrProviderFailure)
	assert.EqualError(t, err, "rate limited")
}

func TestFetchABITransportErrorRedactsKey(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	c := &Client{BaseURL: url, APIKey: "super-secret-key"}
	_, err := c.FetchABI(context.Background(), testAddress)
	require.ErrorIs(t, err, ErrTransport)
	assert.NotContains(t, err.Error(), "super-secret-key")
}

func TestGetABIURLOmitsZeroChainID(t *testing.T) {
	c := &Client{APIKey: "k"}
	got := c.GetABIURL(testAddress)
	assert.Equal(t, "https://api.etherscan.io/api?action=getabi&address="+testAddress+"&apikey=k&module=contract", got)
}
