package eval_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pcax/internal/domain"
	"pcax/internal/eval"
)

func intPtr(n int) *int { return &n }

func TestNormalizeAddress(t *testing.T) {
	cases := map[string]string{
		"123 Main Street":              "123 MAIN STREET",
		"  123  main street  ":         "123 MAIN STREET",
		"123 Main St, Suite 4B":        "123 MAIN ST",
		"123 Main St Unit #12":         "123 MAIN ST",
		"123 Main St #3":               "123 MAIN ST",
		"123 Main St, Denver 80202":    "123 MAIN ST DENVER",
		"123 Main St 80202-1234":       "123 MAIN ST",
		"St. John's Plaza, 45 King Rd": "ST JOHN S PLAZA 45 KING RD",
	}
	for in, want := range cases {
		assert.Equal(t, want, eval.NormalizeAddress(in), "input %q", in)
	}
}

func TestExtractPCANumber(t *testing.T) {
	assert.Equal(t, 12, *eval.ExtractPCANumber("PCA #12 - Gas Station"))
	assert.Equal(t, 3, *eval.ExtractPCANumber("aoc-3 dry cleaner"))
	assert.Equal(t, 7, *eval.ExtractPCANumber("REC 7"))
	assert.Nil(t, eval.ExtractPCANumber("Gas Station"))
}

func TestMatch_MixedOutcomeMetrics(t *testing.T) {
	groundTruth := []domain.ExtractedRow{
		{Address: "123 Main Street", PCANumber: intPtr(1), PCAName: "Gas Station", DescriptionTimeline: "Former gas station with underground storage tanks"},
		{Address: "456 Oak Avenue", PCANumber: intPtr(2), PCAName: "Dry Cleaner", DescriptionTimeline: "Dry cleaning with chlorinated solvents"},
		{Address: "789 Pine Road", PCANumber: intPtr(3), PCAName: "Auto Repair", DescriptionTimeline: "Automotive repair and hydraulic lifts"},
	}
	extracted := []domain.ExtractedRow{
		// Accepted: same normalized address, same category, overlapping text.
		{Address: "123 MAIN STREET", PCANumber: intPtr(1), PCAName: "Gas Station", DescriptionTimeline: "Former gas station with underground storage tanks"},
		// Near miss: right street, abbreviated, no category evidence.
		{Address: "456 Oak Ave", PCAName: "Laundry"},
		// False positive: nothing plausible in the ground truth.
		{Address: "999 Industrial Blvd", PCAName: "Warehouse", DescriptionTimeline: "General storage"},
	}

	report := eval.Match(groundTruth, extracted, eval.DefaultWeights())
	m := report.Metrics

	assert.Equal(t, 1, m.TruePositives)
	assert.Equal(t, 1, m.FalsePositives)
	assert.Equal(t, 2, m.FalseNegatives)
	assert.InDelta(t, 0.5, m.Precision, 1e-9)
	assert.InDelta(t, 1.0/3.0, m.Recall, 1e-9)
	assert.InDelta(t, 0.4, m.F1Score, 1e-9)
	assert.InDelta(t, 0.25, m.Accuracy, 1e-9)
	assert.Equal(t, 3, m.GroundTruthCnt)
	assert.Equal(t, 3, m.ExtractedCnt)

	require.Len(t, report.FalseNegatives, 2)
	require.Len(t, report.FalsePositives, 1)
	assert.Equal(t, "999 Industrial Blvd", report.FalsePositives[0].Address)

	tiers := map[domain.MatchTier]int{}
	for _, res := range report.Matches {
		tiers[res.Tier]++
	}
	assert.Equal(t, 1, tiers[domain.MatchTierAccepted])
	assert.Equal(t, 1, tiers[domain.MatchTierNearMiss])
}

func TestMatch_OneToOneAssignment(t *testing.T) {
	groundTruth := []domain.ExtractedRow{
		{Address: "123 Main Street", PCANumber: intPtr(1), PCAName: "Gas Station", DescriptionTimeline: "USTs on site"},
	}
	// Two near-identical extracted rows compete for one ground-truth entry.
	extracted := []domain.ExtractedRow{
		{Address: "123 Main Street", PCANumber: intPtr(1), PCAName: "Gas Station", DescriptionTimeline: "USTs on site"},
		{Address: "123 Main Street", PCANumber: intPtr(1), PCAName: "Gas Station", DescriptionTimeline: "USTs on site"},
	}

	report := eval.Match(groundTruth, extracted, eval.DefaultWeights())

	assert.Equal(t, 1, report.Metrics.TruePositives)
	// The loser of the tie still had a plausible candidate, so it is a near
	// miss rather than a false positive.
	assert.Equal(t, 0, report.Metrics.FalsePositives)
	assert.Equal(t, 0, report.Metrics.FalseNegatives)
}

func TestMatch_CategoryMismatchBlocksAcceptance(t *testing.T) {
	groundTruth := []domain.ExtractedRow{
		{Address: "123 Main Street", PCANumber: intPtr(1), PCAName: "Gas Station", DescriptionTimeline: "Fuel dispensing"},
	}
	extracted := []domain.ExtractedRow{
		{Address: "123 Main Street", PCANumber: intPtr(9), PCAName: "Gas Station", DescriptionTimeline: "Fuel dispensing"},
	}

	report := eval.Match(groundTruth, extracted, eval.DefaultWeights())

	// Identical address but contradictory category evidence: the negative
	// category contribution keeps the pair under the threshold.
	assert.Equal(t, 0, report.Metrics.TruePositives)
	assert.Equal(t, 1, report.Metrics.FalseNegatives)
}

func TestMatch_EmptyInputsYieldZeroMetrics(t *testing.T) {
	report := eval.Match(nil, nil, eval.DefaultWeights())
	m := report.Metrics

	assert.Zero(t, m.TruePositives)
	assert.Zero(t, m.Precision)
	assert.Zero(t, m.Recall)
	assert.Zero(t, m.F1Score)
	assert.Zero(t, m.Accuracy)
}

func TestScore_PCANumberFallsBackToName(t *testing.T) {
	gt := domain.ExtractedRow{Address: "123 Main Street", PCAName: "PCA #4 Gas Station", DescriptionTimeline: "Fuel"}
	ex := domain.ExtractedRow{Address: "123 Main Street", PCANumber: intPtr(4), PCAName: "Gas Station", DescriptionTimeline: "Fuel"}

	w := eval.DefaultWeights()
	score := eval.Score(gt, ex, w)
	assert.GreaterOrEqual(t, score, w.Threshold)
}
