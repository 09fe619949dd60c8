package score

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestFetchKnownWallet(t *testing.T) {
	addr := common.HexToAddress("0x00000000000000000000000000000000000000b1")
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.True(t, strings.HasPrefix(r.URL.Path, "/api/points/"))
		fmt.Fprint(w, `{"total_points": 1234.5, "rank": 42}`)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, zaptest.NewLogger(t))
	s, err := client.Fetch(context.Background(), addr)
	require.NoError(t, err)
	require.NotNil(t, s)
	assert.Equal(t, 1234.5, s.TotalPoints)
	assert.Equal(t, 42, s.Rank)
}

func TestFetchUnknownWalletReturnsNil(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, zaptest.NewLogger(t))
	s, err := client.Fetch(context.Background(), common.Address{})
	require.NoError(t, err)
	assert.Nil(t, s)
}

func TestFetchServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, zaptest.NewLogger(t))
	_, err := client.Fetch(context.Background(), common.Address{})
	assert.Error(t, err)
}

func TestHistoryAppendOnly(t *testing.T) {
	h := NewHistory()
	h.Append(0, Sample{Iteration: 1, TotalPoints: 10, Rank: 5})
	h.Append(0, Sample{Iteration: 2, PointsEarned: 5, TotalPoints: 15, Rank: 4, RankChange: 1})
	h.Append(1, Sample{Iteration: 1, TotalPoints: 3, Rank: 9})

	samples := h.Samples(0)
	require.Len(t, samples, 2)
	assert.Equal(t, 1, samples[0].Iteration)
	assert.Equal(t, float64(15), samples[1].TotalPoints)
	assert.False(t, samples[0].At.IsZero())

	all := h.All()
	assert.Len(t, all, 2)
	assert.Len(t, all[1], 1)

	// Mutating a returned slice must not affect the history.
	samples[0].TotalPoints = 999
	assert.Equal(t, float64(10), h.Samples(0)[0].TotalPoints)
}
