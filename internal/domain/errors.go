package domain

import "errors"

// Error kinds shared by the labeling, windowing and decoding stages.
// Callers classify with errors.Is; stages wrap them with context.
var (
	// ErrMissingInput is returned when an expected candle, trade, model or dataset artifact is absent.
	ErrMissingInput = errors.New("missing input")

	// ErrInsufficientData is returned when there are fewer candles than the lookback
	// window or no trades for an instrument.
	ErrInsufficientData = errors.New("insufficient data")

	// ErrMalformedTrade is returned when a trade row cannot be parsed.
	ErrMalformedTrade = errors.New("malformed trade")

	// ErrUnsortedSeries is returned when candles or trades violate time ordering.
	// It is a MalformedTrade condition for failure-policy purposes.
	ErrUnsortedSeries = errors.New("series not in ascending time order")

	// ErrShapeMismatch is returned when classifier output disagrees with the window set.
	ErrShapeMismatch = errors.New("shape mismatch")

	// ErrOutOfBounds marks a decoded candle index beyond the series length.
	// The decoder skips such windows and reports them in Stats.Skipped; it
	// never returns this error.
	ErrOutOfBounds = errors.New("candle index out of bounds")
)
