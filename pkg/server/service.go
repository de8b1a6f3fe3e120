package server

import (
	"context"
	"iter"
	"log/slog"

	"github.com/google/uuid"
	"github.com/mikeboe/deep-research/pkg/research"
)

// ResearchRequest is the payload of both research endpoints.
type ResearchRequest struct {
	Messages []research.Message `json:"messages"`
	Question string             `json:"question" binding:"required"`
}

// Service runs research requests against a shared DeepResearch instance.
// Each request gets its own conversation state, so concurrent requests
// don't interfere.
type Service struct {
	DR *research.DeepResearch
}

func NewService(dr *research.DeepResearch) *Service {
	return &Service{DR: dr}
}

func (s *Service) Run(ctx context.Context, req ResearchRequest) (research.Response, error) {
	runID := uuid.New()
	slog.Info("starting research run", "run_id", runID, "question", req.Question)

	resp, err := s.DR.RunDeepResearch(ctx, &research.Request{Messages: req.Messages}, req.Question)
	if err != nil {
		slog.Error("research run failed", "run_id", runID, "error", err)
		return research.Response{}, err
	}
	slog.Info("research run completed", "run_id", runID)
	return resp, nil
}

func (s *Service) Stream(ctx context.Context, req ResearchRequest) iter.Seq2[research.Chunk, error] {
	runID := uuid.New()
	slog.Info("starting research stream", "run_id", runID, "question", req.Question)

	return func(yield func(research.Chunk, error) bool) {
		for chunk, err := range s.DR.StreamDeepResearch(ctx, &research.Request{Messages: req.Messages}, req.Question) {
			if err != nil {
				slog.Error("research stream failed", "run_id", runID, "error", err)
				yield(research.Chunk{}, err)
				return
			}
			if !yield(chunk, nil) {
				return
			}
		}
		slog.Info("research stream completed", "run_id", runID)
	}
}
