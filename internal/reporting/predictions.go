package reporting

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"copytrader-lab/internal/domain"
)

// PredictionsHeader is the column line of every predictions CSV.
const PredictionsHeader = "timestamp,datetime,action,direction,price,confidence"

// PredictionsFileName returns the CSV file name of an instrument's predictions.
func PredictionsFileName(instrument string) string {
	return fmt.Sprintf("predicted-trades-%s.csv", strings.ToLower(instrument))
}

// RenderPredictionsCSV renders predicted trades as CSV. Price and confidence
// use 4 fixed decimals; datetime is RFC 3339 in loc. No trades renders the
// header only.
func RenderPredictionsCSV(trades []domain.PredictedTrade, loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}

	var sb strings.Builder
	sb.WriteString(PredictionsHeader)
	sb.WriteByte('\n')

	for _, t := range trades {
		sb.WriteString(strconv.FormatInt(t.TimestampMs, 10))
		sb.WriteByte(',')
		sb.WriteString(time.UnixMilli(t.TimestampMs).In(loc).Format(time.RFC3339))
		sb.WriteByte(',')
		sb.WriteString(t.Action.String())
		sb.WriteByte(',')
		sb.WriteString(t.Direction)
		sb.WriteByte(',')
		sb.WriteString(fixed4(t.Price))
		sb.WriteByte(',')
		sb.WriteString(fixed4(t.Confidence))
		sb.WriteByte('\n')
	}

	return sb.String()
}

// WritePredictionsCSV writes the predictions of an instrument into dir and
// returns the file path.
func WritePredictionsCSV(dir, instrument string, trades []domain.PredictedTrade, loc *time.Location) (string, error) {
	path := filepath.Join(dir, PredictionsFileName(instrument))
	if err := writeFile(path, []byte(RenderPredictionsCSV(trades, loc))); err != nil {
		return "", fmt.Errorf("write predictions %s: %w", instrument, err)
	}
	return path, nil
}

// fixed4 formats v with exactly four decimals, rounding half away from zero.
func fixed4(v float64) string {
	return decimal.NewFromFloat(v).StringFixed(4)
}
