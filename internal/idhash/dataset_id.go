// Package idhash derives deterministic identifiers for persisted artifacts.
package idhash

import (
	"crypto/sha256"
	"fmt"
	"strconv"
	"strings"

	"github.com/mr-tron/base58"

	"copytrader-lab/internal/domain"
)

// ComputeDatasetID computes a deterministic dataset_id.
// Formula: SHA256(instrument|timeframe|lookback|window_count|means...|stds...)
// Floats use the shortest round-trip representation, so equal params always
// hash equal. Returns the base58-encoded hash.
func ComputeDatasetID(
	instrument string,
	timeframe string,
	lookback int,
	windowCount int,
	params domain.NormalizationParams,
) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s|%s|%d|%d", instrument, timeframe, lookback, windowCount)
	for _, v := range params.Means {
		b.WriteByte('|')
		b.WriteString(strconv.FormatFloat(v, 'g', -1, 64))
	}
	for _, v := range params.Stds {
		b.WriteByte('|')
		b.WriteString(strconv.FormatFloat(v, 'g', -1, 64))
	}

	hash := sha256.Sum256([]byte(b.String()))
	return base58.Encode(hash[:])
}
