package service

import (
	"go.uber.org/zap"

	"pcax/internal/config"
	"pcax/internal/domain"
	"pcax/internal/eval"
	"pcax/internal/port"
)

// EvalService scores a run's compiled table against a ground-truth table
// and persists the report into the run directory.
type EvalService struct {
	store   port.RunStore
	weights eval.Weights
	log     *zap.Logger
}

// NewEvalService creates the evaluation service from the scorer config.
func NewEvalService(store port.RunStore, cfg config.EvalConfig, log *zap.Logger) *EvalService {
	if log == nil {
		log = zap.NewNop()
	}
	w := eval.Weights{
		Address:       cfg.AddressWeight,
		Category:      cfg.CategoryWeight,
		Text:          cfg.TextWeight,
		Threshold:     cfg.Threshold,
		NearMissFloor: cfg.NearMissFloor,
	}
	if w.Address == 0 && w.Category == 0 && w.Text == 0 {
		w = eval.DefaultWeights()
	}
	return &EvalService{store: store, weights: w, log: log}
}

// EvaluateRows scores extracted rows directly, without touching disk.
func (s *EvalService) EvaluateRows(groundTruth, extracted []domain.ExtractedRow) *domain.EvalReport {
	report := eval.Match(groundTruth, extracted, s.weights)
	return &report
}

// EvaluateRun loads a run's final rows, scores them, and writes the report
// back into the run directory.
func (s *EvalService) EvaluateRun(runRef string, groundTruth []domain.ExtractedRow) (*domain.EvalReport, error) {
	extracted, err := s.store.LoadFinalRows(runRef)
	if err != nil {
		return nil, err
	}
	if len(extracted) == 0 {
		return nil, domain.ErrNoRows
	}

	report := eval.Match(groundTruth, extracted, s.weights)
	if err := s.store.SaveEvaluation(runRef, &report); err != nil {
		s.log.Warn("failed to persist evaluation report", zap.String("run", runRef), zap.Error(err))
	}

	s.log.Info("evaluation complete",
		zap.String("run", runRef),
		zap.Int("tp", report.Metrics.TruePositives),
		zap.Int("fp", report.Metrics.FalsePositives),
		zap.Int("fn", report.Metrics.FalseNegatives),
		zap.Float64("recall", report.Metrics.Recall))
	return &report, nil
}
