// Package loader reads the raw per-instrument inputs: OHLC candle files and
// the shared trade-history CSV.
package loader

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"copytrader-lab/internal/domain"
	"copytrader-lab/internal/labeling"
)

// CandleSource supplies the candle series of an instrument.
type CandleSource interface {
	Candles(ctx context.Context, instrument, timeframe string) ([]domain.Candle, error)
}

// TradeSource supplies the executed trades of an instrument, sorted by time.
type TradeSource interface {
	Trades(ctx context.Context, instrument string) ([]domain.TradeEvent, error)
}

// CandleFileName returns the file name of an instrument's candle series.
func CandleFileName(instrument, timeframe string) string {
	return fmt.Sprintf("%s-ohlc-%s.json", strings.ToLower(instrument), timeframe)
}

// FileCandles reads <coin>-ohlc-<timeframe>.json files from Dir.
type FileCandles struct {
	Dir string
}

// Candles loads and decodes the candle file of an instrument.
// A missing file returns ErrMissingInput.
func (f FileCandles) Candles(_ context.Context, instrument, timeframe string) ([]domain.Candle, error) {
	path := filepath.Join(f.Dir, CandleFileName(instrument, timeframe))

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("candles %s: %w", path, domain.ErrMissingInput)
		}
		return nil, fmt.Errorf("read candles %s: %w", path, err)
	}

	var candles []domain.Candle
	if err := json.Unmarshal(data, &candles); err != nil {
		return nil, fmt.Errorf("decode candles %s: %w", path, err)
	}
	return candles, nil
}

// TradeHistory reads trades from the shared trade-history CSV.
// Expected columns: coin, time, dir, px, sz, closedPnl (any order, extra
// columns ignored).
type TradeHistory struct {
	Path     string
	Layout   string         // time layout, e.g. "01/02/2006 - 15:04:05"
	Location *time.Location // zone the timestamps are written in
}

var requiredColumns = []string{"coin", "time", "dir", "px", "sz", "closedPnl"}

// Trades returns the trades of one instrument sorted by time.
// Any unparsable row returns ErrMalformedTrade.
func (h TradeHistory) Trades(_ context.Context, instrument string) ([]domain.TradeEvent, error) {
	file, err := os.Open(h.Path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("trade history %s: %w", h.Path, domain.ErrMissingInput)
		}
		return nil, fmt.Errorf("open trade history: %w", err)
	}
	defer file.Close()

	trades, err := ParseTrades(file, instrument, h.Layout, h.Location)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", h.Path, err)
	}
	return trades, nil
}

// ParseTrades reads trade rows of one instrument from CSV input.
func ParseTrades(r io.Reader, instrument, layout string, loc *time.Location) ([]domain.TradeEvent, error) {
	if loc == nil {
		loc = time.UTC
	}

	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("empty trade history: %w", domain.ErrMissingInput)
		}
		return nil, fmt.Errorf("read header: %w", err)
	}

	cols := make(map[string]int, len(header))
	for i, name := range header {
		cols[strings.TrimSpace(name)] = i
	}
	for _, name := range requiredColumns {
		if _, ok := cols[name]; !ok {
			return nil, fmt.Errorf("missing column %q: %w", name, domain.ErrMalformedTrade)
		}
	}

	var trades []domain.TradeEvent
	for line := 2; ; line++ {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %v: %w", line, err, domain.ErrMalformedTrade)
		}

		if row[cols["coin"]] != instrument {
			continue
		}

		trade, err := parseTradeRow(row, cols, layout, loc)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		trades = append(trades, trade)
	}

	labeling.SortTrades(trades)
	return trades, nil
}

func parseTradeRow(row []string, cols map[string]int, layout string, loc *time.Location) (domain.TradeEvent, error) {
	ts, err := time.ParseInLocation(layout, row[cols["time"]], loc)
	if err != nil {
		return domain.TradeEvent{}, fmt.Errorf("time %q: %w", row[cols["time"]], domain.ErrMalformedTrade)
	}

	direction := strings.TrimSpace(row[cols["dir"]])
	if direction == "" {
		return domain.TradeEvent{}, fmt.Errorf("empty direction: %w", domain.ErrMalformedTrade)
	}

	price, err := parseFloat("px", row[cols["px"]])
	if err != nil {
		return domain.TradeEvent{}, err
	}
	size, err := parseFloat("sz", row[cols["sz"]])
	if err != nil {
		return domain.TradeEvent{}, err
	}

	var pnl float64
	if raw := strings.TrimSpace(row[cols["closedPnl"]]); raw != "" {
		pnl, err = parseFloat("closedPnl", raw)
		if err != nil {
			return domain.TradeEvent{}, err
		}
	}

	return domain.TradeEvent{
		Instrument: row[cols["coin"]],
		TimeMs:     float64(ts.UnixMilli()),
		Direction:  direction,
		Price:      price,
		Size:       size,
		ClosedPnl:  pnl,
	}, nil
}

func parseFloat(field, raw string) (float64, error) {
	v, err := strconv.ParseFloat(strings.ReplaceAll(strings.TrimSpace(raw), ",", ""), 64)
	if err != nil {
		return 0, fmt.Errorf("%s %q: %w", field, raw, domain.ErrMalformedTrade)
	}
	return v, nil
}

// LoadCandles reads the candle file of an instrument from dir.
func LoadCandles(dir, instrument, timeframe string) ([]domain.Candle, error) {
	return FileCandles{Dir: dir}.Candles(context.Background(), instrument, timeframe)
}

// LoadTrades reads the trades of an instrument from the trade-history CSV at path.
func LoadTrades(path, instrument, layout string, loc *time.Location) ([]domain.TradeEvent, error) {
	return TradeHistory{Path: path, Layout: layout, Location: loc}.Trades(context.Background(), instrument)
}

var (
	_ CandleSource = FileCandles{}
	_ TradeSource  = TradeHistory{}
)
