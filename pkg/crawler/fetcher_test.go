package crawler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testPage = `<!DOCTYPE html>
<html>
<head>
	<title>Espresso Brewing Guide</title>
	<meta name="description" content="Dialing in espresso shots at home.">
</head>
<body>
	<article>
		<h1>Espresso Brewing</h1>
		<p>Grind size and dose are the two variables that matter most when
		dialing in a new bag of beans for espresso.</p>
	</article>
</body>
</html>`

func newTestFetcher(opts ...FetcherOption) *Fetcher {
	base := []FetcherOption{
		WithBackoffBase(time.Millisecond),
		WithRateLimit(1000),
	}
	return NewFetcher("SEOSmith-test/1.0", append(base, opts...)...)
}

func TestFetchExtractsMetadata(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(testPage))
	}))
	defer server.Close()

	page, err := newTestFetcher().Fetch(context.Background(), server.URL+"/guide")
	require.NoError(t, err)

	assert.Equal(t, server.URL+"/guide", page.URL)
	assert.Equal(t, "Espresso Brewing Guide", page.Title)
	assert.Equal(t, "Dialing in espresso shots at home.", page.Description)
	assert.Contains(t, page.Content, "Grind size and dose")
}

func TestFetchRetriesTransientFailures(t *testing.T) {
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if attempts.Add(1) <= 2 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(testPage))
	}))
	defer server.Close()

	page, err := newTestFetcher().Fetch(context.Background(), server.URL)
	require.NoError(t, err)
	assert.Equal(t, "Espresso Brewing Guide", page.Title)
	assert.Equal(t, int32(3), attempts.Load())
}

func TestFetchExhaustsRetryBudget(t *testing.T) {
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	_, err := newTestFetcher(WithMaxRetries(3)).Fetch(context.Background(), server.URL)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "4 attempts")
	assert.Equal(t, int32(4), attempts.Load())
}

func TestFetchHonorsContextCancellation(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := newTestFetcher().Fetch(ctx, server.URL)
	assert.Error(t, err)
}
