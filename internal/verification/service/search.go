package service

import (
	"context"
	"fmt"
	"runtime/debug"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	auditmodels "kycgate/internal/audit/models"
	"kycgate/internal/verification/models"
	"kycgate/pkg/requestcontext"
)

// Search looks up the closest stored identity for one face image. It never
// writes to the registry.
func (s *Service) Search(ctx context.Context, data []byte) models.SearchResult {
	ctx, span := s.tracer.Start(ctx, "verification.Search")
	defer span.End()

	res := s.searchGuarded(ctx, data)
	span.SetAttributes(attribute.String("search.status", res.Status))
	if res.Status == models.SearchError {
		span.SetStatus(codes.Error, res.Reason)
	}

	s.record(ctx, auditmodels.Attempt{
		Type:       auditmodels.AttemptSearch,
		Status:     res.Status,
		Reason:     res.Reason,
		Similarity: res.Score(),
	})
	return res
}

func (s *Service) searchGuarded(ctx context.Context, data []byte) (res models.SearchResult) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.ErrorContext(ctx, "identity search panicked",
				"request_id", requestcontext.RequestID(ctx),
				"panic", fmt.Sprint(r),
				"stack", string(debug.Stack()),
			)
			res = models.SearchResult{Status: models.SearchError, Reason: models.SearchReasonFailed}
		}
	}()

	ctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	img, _, err := decodeImage(data)
	if err != nil {
		return models.SearchResult{Status: models.SearchError, Reason: models.SearchReasonInvalidImage}
	}

	vector, err := stage(ctx, s, "embedding", func(ctx context.Context) ([]float64, error) {
		return offload(ctx, s.pool, func(ctx context.Context) ([]float64, error) {
			return s.deps.Embeddings.ExtractEmbedding(ctx, img)
		})
	})
	if err != nil {
		s.searchFailed(ctx, "extract search embedding", err)
		return models.SearchResult{Status: models.SearchError, Reason: models.SearchReasonFailed}
	}
	if len(vector) == 0 {
		return models.SearchResult{Status: models.SearchRejected, Reason: models.SearchReasonEncodingFailed}
	}

	found, err := s.deps.Registry.Search(ctx, vector)
	if err != nil {
		s.searchFailed(ctx, "scan registry", err)
		return models.SearchResult{Status: models.SearchError, Reason: models.SearchReasonFailed}
	}
	if found.Matched {
		return models.MatchFound(found.Score)
	}
	return models.NoMatch(found.Score)
}

func (s *Service) searchFailed(ctx context.Context, step string, err error) {
	s.logger.ErrorContext(ctx, "identity search failed",
		"request_id", requestcontext.RequestID(ctx),
		"step", step,
		"error", err,
	)
}
