package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"math/big"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/nbekov/farmbot/internal/score"
)

// Format selects the export file format.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatJSON Format = "json"
)

// Exporter writes run results (fee totals and score history) to files.
type Exporter struct {
	outputDir string
	logger    *zap.Logger
}

func NewExporter(outputDir string, logger *zap.Logger) *Exporter {
	return &Exporter{outputDir: outputDir, logger: logger.Named("export")}
}

// feeRow is one wallet's cumulative fee in the export.
type feeRow struct {
	WalletIndex int    `json:"wallet_index"`
	Address     string `json:"address"`
	FeeWei      string `json:"fee_wei"`
}

// ExportFees writes per-wallet cumulative fees. Addresses are indexed
// by wallet position.
func (e *Exporter) ExportFees(fees map[int]*big.Int, addresses map[int]string, format Format) (string, error) {
	rows := make([]feeRow, 0, len(fees))
	for w, fee := range fees {
		rows = append(rows, feeRow{WalletIndex: w, Address: addresses[w], FeeWei: fee.String()})
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].WalletIndex < rows[j].WalletIndex })

	path := e.outputPath("fees", format)
	switch format {
	case FormatJSON:
		if err := e.writeJSON(path, rows); err != nil {
			return "", err
		}
	default:
		records := [][]string{{"wallet_index", "address", "fee_wei"}}
		for _, r := range rows {
			records = append(records, []string{strconv.Itoa(r.WalletIndex), r.Address, r.FeeWei})
		}
		if err := e.writeCSV(path, records); err != nil {
			return "", err
		}
	}

	e.logger.Info("Exported fee totals", zap.String("path", path), zap.Int("wallets", len(rows)))
	return path, nil
}

// scoreRow flattens one score sample for export.
type scoreRow struct {
	WalletIndex  int     `json:"wallet_index"`
	Iteration    int     `json:"iteration"`
	PointsEarned float64 `json:"points_earned"`
	TotalPoints  float64 `json:"total_points"`
	Rank         int     `json:"rank"`
	RankChange   int     `json:"rank_change"`
}

// ExportScores writes the full score history.
func (e *Exporter) ExportScores(history map[int][]score.Sample, format Format) (string, error) {
	var rows []scoreRow
	for w, samples := range history {
		for _, s := range samples {
			rows = append(rows, scoreRow{
				WalletIndex:  w,
				Iteration:    s.Iteration,
				PointsEarned: s.PointsEarned,
				TotalPoints:  s.TotalPoints,
				Rank:         s.Rank,
				RankChange:   s.RankChange,
			})
		}
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].WalletIndex != rows[j].WalletIndex {
			return rows[i].WalletIndex < rows[j].WalletIndex
		}
		return rows[i].Iteration < rows[j].Iteration
	})

	path := e.outputPath("scores", format)
	switch format {
	case FormatJSON:
		if err := e.writeJSON(path, rows); err != nil {
			return "", err
		}
	default:
		records := [][]string{{"wallet_index", "iteration", "points_earned", "total_points", "rank", "rank_change"}}
		for _, r := range rows {
			records = append(records, []string{
				strconv.Itoa(r.WalletIndex),
				strconv.Itoa(r.Iteration),
				strconv.FormatFloat(r.PointsEarned, 'f', -1, 64),
				strconv.FormatFloat(r.TotalPoints, 'f', -1, 64),
				strconv.Itoa(r.Rank),
				strconv.Itoa(r.RankChange),
			})
		}
		if err := e.writeCSV(path, records); err != nil {
			return "", err
		}
	}

	e.logger.Info("Exported score history", zap.String("path", path), zap.Int("samples", len(rows)))
	return path, nil
}

func (e *Exporter) outputPath(name string, format Format) string {
	filename := fmt.Sprintf("%s_%s.%s", name, time.Now().Format("20060102_150405"), format)
	return filepath.Join(e.outputDir, filename)
}

func (e *Exporter) writeCSV(path string, records [][]string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create output dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create export file: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.WriteAll(records); err != nil {
		return fmt.Errorf("failed to write csv: %w", err)
	}
	return w.Error()
}

func (e *Exporter) writeJSON(path string, v interface{}) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create output dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create export file: %w", err)
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
