package ai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClientGenerate(t *testing.T) {
	var got generateRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"text": "[{\"title\": \"x\"}]"}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "secret", "m1", time.Second)
	text, err := c.Generate(context.Background(), "do it", []byte(`{"total_nodes":3}`))
	require.NoError(t, err)
	assert.Equal(t, `[{"title": "x"}]`, text)
	assert.Equal(t, "do it", got.Instructions)
	assert.Equal(t, "m1", got.Model)
	assert.JSONEq(t, `{"total_nodes":3}`, string(got.Summary))
}

func TestClientGenerateRawBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("Sure! [] is all I have"))
	}))
	defer srv.Close()

	text, err := NewClient(srv.URL, "", "", 0).Generate(context.Background(), "i", []byte(`{}`))
	require.NoError(t, err)
	assert.Equal(t, "Sure! [] is all I have", text)
}

func TestClientGenerateErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, "", "", time.Second).Generate(context.Background(), "i", []byte(`{}`))
	assert.ErrorContains(t, err, "status 502")

	_, err = NewClient("", "", "", time.Second).Generate(context.Background(), "i", []byte(`{}`))
	assert.Error(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = NewClient(srv.URL, "", "", time.Second).Generate(ctx, "i", []byte(`{}`))
	assert.ErrorIs(t, err, context.Canceled)
}

type countingGenerator struct {
	calls int
	err   error
}

func (g *countingGenerator) Generate(_ context.Context, _ string, _ []byte) (string, error) {
	g.calls++
	return "generated", g.err
}

func TestCachedGenerator(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	next := &countingGenerator{}
	c := NewCachedGenerator(next, client, time.Hour, nil)
	ctx := context.Background()

	text, err := c.Generate(ctx, "i", []byte(`{"a":1}`))
	require.NoError(t, err)
	assert.Equal(t, "generated", text)

	text, err = c.Generate(ctx, "i", []byte(`{"a":1}`))
	require.NoError(t, err)
	assert.Equal(t, "generated", text)
	assert.Equal(t, 1, next.calls)

	key := CacheKey("i", []byte(`{"a":1}`))
	assert.True(t, mr.Exists(key))
	assert.Equal(t, time.Hour, mr.TTL(key))

	_, err = c.Generate(ctx, "i", []byte(`{"a":2}`))
	require.NoError(t, err)
	assert.Equal(t, 2, next.calls)

	mr.FastForward(2 * time.Hour)
	_, err = c.Generate(ctx, "i", []byte(`{"a":1}`))
	require.NoError(t, err)
	assert.Equal(t, 3, next.calls)
}

func TestCachedGeneratorBypassesBrokenCache(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	defer client.Close()
	mr.Close()

	next := &countingGenerator{}
	text, err := NewCachedGenerator(next, client, 0, nil).Generate(context.Background(), "i", []byte(`{}`))
	require.NoError(t, err)
	assert.Equal(t, "generated", text)
	assert.Equal(t, 1, next.calls)
}

func TestCachedGeneratorDoesNotCacheErrors(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	next := &countingGenerator{err: errors.New("boom")}
	_, err := NewCachedGenerator(next, client, 0, nil).Generate(context.Background(), "i", []byte(`{}`))
	assert.Error(t, err)
	assert.False(t, mr.Exists(CacheKey("i", []byte(`{}`))))
}

func TestCacheKeyStable(t *testing.T) {
	assert.Equal(t, CacheKey("a", []byte("b")), CacheKey("a", []byte("b")))
	assert.NotEqual(t, CacheKey("a", []byte("b")), CacheKey("ab", nil))
	assert.Regexp(t, `^archscan:ai:[0-9a-f]{16}$`, CacheKey("a", nil))
}
