package mocks

import (
	"context"

	"github.com/SuhasKaranth/codeAnalyzerUI/internal/models"
)

type SessionRecordRepositoryMock struct {
	GetByUserFunc    func(ctx context.Context, userIdentity string) (*models.AnalysisSession, error)
	UpsertFunc       func(ctx context.Context, record *models.AnalysisSession) error
	DeleteByUserFunc func(ctx context.Context, userIdentity string) error
}

func (m *SessionRecordRepositoryMock) GetByUser(ctx context.Context, userIdentity string) (*models.AnalysisSession, error) {
	if m.GetByUserFunc != nil {
		return m.GetByUserFunc(ctx, userIdentity)
	}
	return nil, nil
}

func (m *SessionRecordRepositoryMock) Upsert(ctx context.Context, record *models.AnalysisSession) error {
	if m.UpsertFunc != nil {
		return m.UpsertFunc(ctx, record)
	}
	return nil
}

func (m *SessionRecordRepositoryMock) DeleteByUser(ctx context.Context, userIdentity string) error {
	if m.DeleteByUserFunc != nil {
		return m.DeleteByUserFunc(ctx, userIdentity)
	}
	return nil
}
