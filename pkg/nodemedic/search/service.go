package search

import (
	"context"
	"log/slog"
)

// Source is one evidence backend.
type Source interface {
	Search(ctx context.Context, query string) ([]Result, error)
}

// Service fans a query out to every configured source and synthesizes
// solutions from the combined results. A failing source degrades to
// partial results; it never fails the query.
type Service struct {
	sources     []Source
	synthesizer *Synthesizer
	logger      *slog.Logger
}

// NewService builds a search service. The synthesizer may be nil, in
// which case Gather returns evidence without solutions.
func NewService(sources []Source, synthesizer *Synthesizer, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{sources: sources, synthesizer: synthesizer, logger: logger}
}

// Gather collects evidence and candidate solutions for an error
// report. Source and synthesis failures are logged and degrade the
// result rather than propagating.
func (s *Service) Gather(ctx context.Context, query, errorLog, language string) ([]Result, []Solution) {
	var results []Result
	for _, source := range s.sources {
		found, err := source.Search(ctx, query)
		if err != nil {
			s.logger.Warn("evidence source failed", slog.String("error", err.Error()))
			continue
		}
		results = append(results, found...)
	}

	if s.synthesizer == nil || len(results) == 0 {
		return results, nil
	}

	solutions, err := s.synthesizer.Synthesize(ctx, results, errorLog, language)
	if err != nil {
		s.logger.Warn("solution synthesis failed", slog.String("error", err.Error()))
		return results, nil
	}
	return results, solutions
}
