package idhash

import (
	"testing"

	"github.com/mr-tron/base58"

	"copytrader-lab/internal/domain"
)

func testParams() domain.NormalizationParams {
	return domain.NormalizationParams{
		Means: [domain.FeatureCount]float64{10.5, 11, 9.75, 10.25, 1200},
		Stds:  [domain.FeatureCount]float64{0.5, 0.6, 0.4, 0.55, 300},
	}
}

func TestComputeDatasetID(t *testing.T) {
	got := ComputeDatasetID("ZEC", "5m", 20, 480, testParams())

	raw, err := base58.Decode(got)
	if err != nil {
		t.Fatalf("ComputeDatasetID() is not base58: %v", err)
	}
	if len(raw) != 32 {
		t.Errorf("decoded length = %d, want 32", len(raw))
	}

	// Verify determinism: same inputs should produce same output
	if again := ComputeDatasetID("ZEC", "5m", 20, 480, testParams()); again != got {
		t.Errorf("ComputeDatasetID() not deterministic: %s != %s", got, again)
	}
}

func TestComputeDatasetID_DifferentInputs(t *testing.T) {
	base := ComputeDatasetID("ZEC", "5m", 20, 480, testParams())

	tests := []struct {
		name string
		id   string
	}{
		{"instrument", ComputeDatasetID("MET", "5m", 20, 480, testParams())},
		{"timeframe", ComputeDatasetID("ZEC", "1h", 20, 480, testParams())},
		{"lookback", ComputeDatasetID("ZEC", "5m", 30, 480, testParams())},
		{"window count", ComputeDatasetID("ZEC", "5m", 20, 479, testParams())},
	}

	p := testParams()
	p.Stds[4] = 300.0000000001
	tests = append(tests, struct {
		name string
		id   string
	}{"std", ComputeDatasetID("ZEC", "5m", 20, 480, p)})

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.id == base {
				t.Errorf("different %s should produce different id", tt.name)
			}
		})
	}
}

func TestComputeModelID(t *testing.T) {
	got := ComputeModelID("ds", "centroid", []byte(`{"a":1}`))
	if len(got) != 64 {
		t.Errorf("ComputeModelID() length = %d, want 64", len(got))
	}
	if got != ComputeModelID("ds", "centroid", []byte(`{"a":1}`)) {
		t.Error("ComputeModelID() not deterministic")
	}
	if got == ComputeModelID("ds", "centroid", []byte(`{"a":2}`)) {
		t.Error("different payload should produce different id")
	}
}
