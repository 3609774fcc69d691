package eval

import "pcax/internal/domain"

// computeMetrics derives precision, recall, F1 and accuracy from raw
// counts. Every ratio with a zero denominator is reported as zero.
func computeMetrics(gtCount, extractedCount, tp, fp int) domain.EvalMetrics {
	fn := gtCount - tp

	m := domain.EvalMetrics{
		TruePositives:  tp,
		FalsePositives: fp,
		FalseNegatives: fn,
		GroundTruthCnt: gtCount,
		ExtractedCnt:   extractedCount,
	}
	if tp+fp > 0 {
		m.Precision = float64(tp) / float64(tp+fp)
	}
	if tp+fn > 0 {
		m.Recall = float64(tp) / float64(tp+fn)
	}
	if m.Precision+m.Recall > 0 {
		m.F1Score = 2 * m.Precision * m.Recall / (m.Precision + m.Recall)
	}
	if tp+fp+fn > 0 {
		m.Accuracy = float64(tp) / float64(tp+fp+fn)
	}
	return m
}
