package polymarket_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alejandrodnm/polycopy/internal/adapters/polymarket"
)

func TestFetchTraders_TruncatesAndAuths(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[
			{"address":"0xaaa","label":"alpha","rank":1},
			{"address":"0xbbb","rank":2},
			{"address":"","rank":3},
			{"address":"0xccc","rank":4}
		]`))
	}))
	defer srv.Close()

	client := polymarket.NewClient("", "", "",
		polymarket.WithLeaderboard(srv.URL, "sk-test", 2))

	traders, err := client.FetchTraders(context.Background())
	require.NoError(t, err)

	// La entrada sin address se descarta, y el resultado se trunca a 2
	require.Len(t, traders, 2)
	assert.Equal(t, "0xaaa", traders[0].Address)
	assert.Equal(t, "alpha", traders[0].Label)
	assert.Equal(t, "api", traders[0].Source)
	assert.Equal(t, "0xbbb", traders[1].Address)
}

func TestFetchTraders_NoAPIKey(t *testing.T) {
	client := polymarket.NewClient("", "", "")
	_, err := client.FetchTraders(context.Background())
	assert.Error(t, err)
}

func TestFetchTraders_Unauthorized(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	client := polymarket.NewClient("", "", "",
		polymarket.WithLeaderboard(srv.URL, "bad-key", 5))
	_, err := client.FetchTraders(context.Background())
	assert.Error(t, err)
}
