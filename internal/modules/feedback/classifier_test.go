package feedback

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify_Boundaries(t *testing.T) {
	tests := []struct {
		name  string
		entry float64
		exit  float64
		want  Category
	}{
		{"large gain", 100, 120, SignificantProfit},
		{"exactly five percent gain", 100, 105, SignificantProfit},
		{"small gain", 100, 103, ModerateProfit},
		{"barely positive", 100, 100.01, ModerateProfit},
		{"flat", 100, 100, BreakEven},
		{"small dip", 100, 99, BreakEven},
		{"exactly two percent loss", 100, 98, BreakEven},
		{"moderate loss", 100, 95, ModerateLoss},
		{"just above ten percent loss", 100, 90.01, ModerateLoss},
		{"exactly ten percent loss", 100, 90, SignificantLoss},
		{"deep loss", 100, 60, SignificantLoss},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.entry, tt.exit))
		})
	}
}

func TestClassify_ZeroEntryPrice(t *testing.T) {
	// Degenerate input; never produced by the ledger but must not panic.
	assert.Equal(t, BreakEven, Classify(0, 50))
}
