package analyses

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"ats-backend/internal/shared/auth"
	"ats-backend/internal/shared/storage/object"
	"ats-backend/internal/shared/telemetry"
)

// ArchiveResume stores the uploaded file behind analysis. It is a no-op
// when no store is configured.
func (s *Service) ArchiveResume(ctx context.Context, analysis Analysis, contentType string, data []byte) error {
	if s.Store == nil || len(data) == 0 {
		return nil
	}
	key := object.ResumeKey(analysis.CandidateID, analysis.ID, analysis.ResumeFileName)
	size, err := s.Store.Put(ctx, key, contentType, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("archive resume: %w", err)
	}
	telemetry.Info("analysis.resume_archived", map[string]any{
		"analysis_id": analysis.ID,
		"request_id":  requestIDFromContext(ctx),
		"size_bytes":  size,
	})
	return nil
}

// OpenResume returns the archived resume file for an analysis visible to
// actor. The caller closes the reader.
func (s *Service) OpenResume(ctx context.Context, actor auth.Principal, analysisID string) (io.ReadCloser, Analysis, error) {
	analysis, err := s.Get(ctx, actor, analysisID)
	if err != nil {
		return nil, Analysis{}, err
	}
	if s.Store == nil {
		return nil, Analysis{}, fmt.Errorf("%w: resume archive not configured", ErrNotFound)
	}
	rc, err := s.Store.Open(ctx, object.ResumeKey(analysis.CandidateID, analysis.ID, analysis.ResumeFileName))
	if err != nil {
		if errors.Is(err, object.ErrNotFound) {
			return nil, Analysis{}, fmt.Errorf("%w: resume file not archived", ErrNotFound)
		}
		return nil, Analysis{}, fmt.Errorf("open resume: %w", err)
	}
	return rc, analysis, nil
}
