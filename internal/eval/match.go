package eval

import (
	"sort"
	"strconv"
	"strings"

	"github.com/agnivade/levenshtein"

	"pcax/internal/domain"
)

// Weights configures the composite match score and its cutoffs.
type Weights struct {
	Address       float64
	Category      float64
	Text          float64
	Threshold     float64
	NearMissFloor float64
}

// DefaultWeights returns the tuning used in production.
func DefaultWeights() Weights {
	return Weights{
		Address:       0.50,
		Category:      0.35,
		Text:          0.15,
		Threshold:     0.75,
		NearMissFloor: 0.25,
	}
}

// addressSimilarity compares two normalized addresses. Identical strings
// score 1.0; otherwise a Levenshtein ratio, capped when the leading street
// numbers disagree since those almost never describe the same parcel.
func addressSimilarity(a, b string) float64 {
	if a == "" || b == "" {
		return 0
	}
	if a == b {
		return 1
	}
	longest := len(a)
	if len(b) > longest {
		longest = len(b)
	}
	dist := levenshtein.ComputeDistance(a, b)
	sim := 1 - float64(dist)/float64(longest)
	if sim < 0 {
		sim = 0
	}
	na, nb := StreetNumber(a), StreetNumber(b)
	if na != "" && nb != "" && na != nb && sim > 0.30 {
		sim = 0.30
	}
	return sim
}

// categoryScore compares PCA numbers: +1 when both present and equal,
// -1 when both present and different, 0 when either side is missing.
func categoryScore(a, b *int) float64 {
	if a == nil || b == nil {
		return 0
	}
	if *a == *b {
		return 1
	}
	return -1
}

// textOverlap is the Jaccard similarity of the description token sets.
func textOverlap(a, b string) float64 {
	ta, tb := tokens(a), tokens(b)
	if len(ta) == 0 || len(tb) == 0 {
		return 0
	}
	inter := 0
	for tok := range ta {
		if tb[tok] {
			inter++
		}
	}
	union := len(ta) + len(tb) - inter
	return float64(inter) / float64(union)
}

func tokens(s string) map[string]bool {
	out := make(map[string]bool)
	for _, f := range strings.Fields(punctRe.ReplaceAllString(strings.ToUpper(s), " ")) {
		out[f] = true
	}
	return out
}

// Score computes the weighted similarity between a ground-truth entry and
// an extracted row. Negative category evidence can pull the score below
// zero; callers treat anything under the near-miss floor as noise.
func Score(gt, ex domain.ExtractedRow, w Weights) float64 {
	addr := addressSimilarity(NormalizeAddress(gt.Address), NormalizeAddress(ex.Address))
	gtNum := gt.PCANumber
	if gtNum == nil {
		gtNum = ExtractPCANumber(gt.PCAName)
	}
	exNum := ex.PCANumber
	if exNum == nil {
		exNum = ExtractPCANumber(ex.PCAName)
	}
	cat := categoryScore(gtNum, exNum)
	text := textOverlap(gt.DescriptionTimeline, ex.DescriptionTimeline)
	return w.Address*addr + w.Category*cat + w.Text*text
}

// pairScore is one candidate ground-truth/extracted pairing.
type pairScore struct {
	gtIdx int
	exIdx int
	score float64
}

// Match greedily assigns extracted rows to ground-truth entries one-to-one,
// highest score first, accepting only pairs at or above the threshold. The
// report carries one entry per ground-truth row plus tier assignments for
// every unmatched extracted row.
func Match(groundTruth, extracted []domain.ExtractedRow, w Weights) domain.EvalReport {
	pairs := make([]pairScore, 0, len(groundTruth)*len(extracted))
	best := make([]float64, len(extracted)) // best score per extracted row, matched or not
	for g := range groundTruth {
		for e := range extracted {
			s := Score(groundTruth[g], extracted[e], w)
			if s > best[e] {
				best[e] = s
			}
			pairs = append(pairs, pairScore{gtIdx: g, exIdx: e, score: s})
		}
	}
	sort.SliceStable(pairs, func(i, j int) bool {
		if pairs[i].score != pairs[j].score {
			return pairs[i].score > pairs[j].score
		}
		if pairs[i].gtIdx != pairs[j].gtIdx {
			return pairs[i].gtIdx < pairs[j].gtIdx
		}
		return pairs[i].exIdx < pairs[j].exIdx
	})

	gtMatched := make([]int, len(groundTruth))
	exMatched := make([]bool, len(extracted))
	gtScore := make([]float64, len(groundTruth))
	for i := range gtMatched {
		gtMatched[i] = -1
	}
	for _, p := range pairs {
		if p.score < w.Threshold {
			break
		}
		if gtMatched[p.gtIdx] != -1 || exMatched[p.exIdx] {
			continue
		}
		gtMatched[p.gtIdx] = p.exIdx
		exMatched[p.exIdx] = true
		gtScore[p.gtIdx] = p.score
	}

	report := domain.EvalReport{}
	for g := range groundTruth {
		res := domain.MatchResult{
			GroundTruthIndex: g,
			ExtractedIndex:   gtMatched[g],
			GroundTruthAddr:  groundTruth[g].Address,
			PCANumber:        pcaNumString(groundTruth[g].PCANumber),
		}
		if gtMatched[g] >= 0 {
			res.Score = gtScore[g]
			res.Tier = domain.MatchTierAccepted
			res.ExtractedAddr = extracted[gtMatched[g]].Address
			report.Matches = append(report.Matches, res)
		} else {
			res.Tier = domain.MatchTierNone
			report.FalseNegatives = append(report.FalseNegatives, res)
		}
	}
	for e := range extracted {
		if exMatched[e] {
			continue
		}
		// A near-miss had a plausible candidate but lost on the threshold;
		// it is not counted against precision.
		if best[e] >= w.NearMissFloor {
			report.Matches = append(report.Matches, domain.MatchResult{
				GroundTruthIndex: -1,
				ExtractedIndex:   e,
				Score:            best[e],
				Tier:             domain.MatchTierNearMiss,
				ExtractedAddr:    extracted[e].Address,
				PCANumber:        pcaNumString(extracted[e].PCANumber),
			})
		} else {
			report.FalsePositives = append(report.FalsePositives, extracted[e])
		}
	}

	report.Metrics = computeMetrics(len(groundTruth), len(extracted), countAccepted(gtMatched), len(report.FalsePositives))
	return report
}

func countAccepted(gtMatched []int) int {
	n := 0
	for _, m := range gtMatched {
		if m >= 0 {
			n++
		}
	}
	return n
}

func pcaNumString(n *int) string {
	if n == nil {
		return ""
	}
	return strconv.Itoa(*n)
}
