// Package stages generates and stores the workflow stages of an analysis.
package stages

import (
	"context"

	"go.uber.org/zap"

	"clonescout/internal/gateway/repository/archive"
	"clonescout/internal/gateway/repository/store"
	"clonescout/internal/gateway/service/providers"
	"clonescout/internal/workflow"
)

type Service struct {
	store     store.Store
	archive   archive.Store
	providers *providers.Service
	log       *zap.Logger
}

func New(st store.Store, ar archive.Store, ps *providers.Service, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{store: st, archive: ar, providers: ps, log: log}
}

// List returns the stages of an analysis the user owns, by stage number.
func (s *Service) List(ctx context.Context, userID, analysisID string) ([]store.Stage, error) {
	if _, err := s.store.GetAnalysis(ctx, userID, analysisID); err != nil {
		return nil, err
	}
	return s.store.ListStages(ctx, analysisID)
}

// Generate produces stage n from the analysis and the stage before it,
// stores it as completed and moves the analysis to stage n.
func (s *Service) Generate(ctx context.Context, userID, analysisID string, n int) (*store.Stage, error) {
	if err := workflow.Validate(n); err != nil {
		return nil, err
	}
	a, err := s.store.GetAnalysis(ctx, userID, analysisID)
	if err != nil {
		return nil, err
	}
	pipe, _, err := s.providers.Pipeline(ctx, userID)
	if err != nil {
		return nil, err
	}
	defer pipe.Client().Close()

	existing, err := s.store.ListStages(ctx, analysisID)
	if err != nil {
		return nil, err
	}
	var prev map[string]any
	for _, st := range existing {
		if st.StageNumber == n-1 {
			prev = st.Data
		}
	}

	content, err := workflow.NewGenerator(pipe, s.log).Generate(ctx, n, workflow.Context{Analysis: a.Result(), Previous: prev})
	if err != nil {
		return nil, err
	}
	if content == nil {
		content = map[string]any{}
	}
	saved, err := s.store.UpsertStage(ctx, store.Stage{
		AnalysisID:  analysisID,
		StageNumber: n,
		StageName:   workflow.Name(n),
		Status:      store.StatusCompleted,
		Data:        content,
	})
	if err != nil {
		return nil, err
	}
	if _, err := s.store.UpdateAnalysis(ctx, userID, analysisID, store.AnalysisUpdate{CurrentStage: &n}); err != nil {
		return nil, err
	}
	if s.archive != nil {
		if err := archive.PutJSON(ctx, s.archive, analysisID, archive.StageFile(n), saved); err != nil {
			s.log.Warn("archive snapshot failed", zap.String("analysis_id", analysisID), zap.Int("stage", n), zap.Error(err))
		}
	}
	s.log.Info("workflow stage generated", zap.String("analysis_id", analysisID), zap.Int("stage", n))
	return saved, nil
}
