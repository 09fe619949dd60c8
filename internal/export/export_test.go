package export

import (
	"encoding/csv"
	"encoding/json"
	"math/big"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/nbekov/farmbot/internal/score"
)

func TestExportFeesCSV(t *testing.T) {
	dir := t.TempDir()
	exporter := NewExporter(dir, zaptest.NewLogger(t))

	fees := map[int]*big.Int{
		1: big.NewInt(42000),
		0: big.NewInt(21000),
	}
	addresses := map[int]string{0: "0xaaa", 1: "0xbbb"}

	path, err := exporter.ExportFees(fees, addresses, FormatCSV)
	require.NoError(t, err)

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, []string{"wallet_index", "address", "fee_wei"}, records[0])
	assert.Equal(t, []string{"0", "0xaaa", "21000"}, records[1], "rows are sorted by wallet index")
	assert.Equal(t, []string{"1", "0xbbb", "42000"}, records[2])
}

func TestExportScoresJSON(t *testing.T) {
	dir := t.TempDir()
	exporter := NewExporter(dir, zaptest.NewLogger(t))

	history := map[int][]score.Sample{
		0: {
			{Iteration: 1, TotalPoints: 10, Rank: 3},
			{Iteration: 2, PointsEarned: 5, TotalPoints: 15, Rank: 2, RankChange: 1},
		},
	}

	path, err := exporter.ExportScores(history, FormatJSON)
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var rows []map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &rows))
	require.Len(t, rows, 2)
	assert.Equal(t, float64(15), rows[1]["total_points"])
	assert.Equal(t, float64(1), rows[1]["rank_change"])
}
