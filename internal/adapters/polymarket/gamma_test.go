package polymarket_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alejandrodnm/polycopy/internal/adapters/polymarket"
)

const gammaJSON = `[{
  "id":"512233",
  "conditionId":"0xcond9",
  "question":"Will X happen?",
  "clobTokenIds":"[\"tok_yes\",\"tok_no\"]",
  "outcomes":"[\"Yes\",\"No\"]",
  "active":true,
  "closed":false
}]`

func TestResolveMarket_ParsesEncodedLists(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/markets", r.URL.Path)
		assert.Equal(t, "512233", r.URL.Query().Get("id"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(gammaJSON))
	}))
	defer srv.Close()

	client := polymarket.NewClient("", srv.URL, "")
	info, err := client.ResolveMarket(context.Background(), "512233")
	require.NoError(t, err)

	assert.Equal(t, "0xcond9", info.ConditionID)
	assert.Equal(t, "Will X happen?", info.Question)
	assert.Equal(t, []string{"tok_yes", "tok_no"}, info.TokenIDs)
	assert.Equal(t, []string{"Yes", "No"}, info.Outcomes)
}

func TestResolveMarket_CachesForever(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(gammaJSON))
	}))
	defer srv.Close()

	client := polymarket.NewClient("", srv.URL, "")
	for i := 0; i < 3; i++ {
		_, err := client.ResolveMarket(context.Background(), "512233")
		require.NoError(t, err)
	}

	assert.Equal(t, int32(1), hits.Load(), "segunda y tercera llamada deben salir de cache")
}

func TestResolveMarket_NotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	client := polymarket.NewClient("", srv.URL, "")
	_, err := client.ResolveMarket(context.Background(), "0xmissing")
	assert.Error(t, err)
}
