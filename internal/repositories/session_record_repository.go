package repositories

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/SuhasKaranth/codeAnalyzerUI/internal/models"
)

type SessionRecordRepository interface {
	GetByUser(ctx context.Context, userIdentity string) (*models.AnalysisSession, error)
	Upsert(ctx context.Context, record *models.AnalysisSession) error
	DeleteByUser(ctx context.Context, userIdentity string) error
}

type sessionRecordRepository struct {
	db *gorm.DB
}

func NewSessionRecordRepository(db *gorm.DB) SessionRecordRepository {
	return &sessionRecordRepository{db: db}
}

func (r *sessionRecordRepository) GetByUser(ctx context.Context, userIdentity string) (*models.AnalysisSession, error) {
	var record models.AnalysisSession
	res := r.db.WithContext(ctx).Where("user_identity = ?", userIdentity).Take(&record)
	if res.Error != nil {
		if errors.Is(res.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, res.Error
	}
	return &record, nil
}

func (r *sessionRecordRepository) Upsert(ctx context.Context, record *models.AnalysisSession) error {
	// One record per user identity; a full write replaces the previous one.
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_identity"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"repository_url", "session_identifier", "status",
			"file_tree_json", "qa_log_json", "updated_at",
		}),
	}).Create(record).Error
}

func (r *sessionRecordRepository) DeleteByUser(ctx context.Context, userIdentity string) error {
	return r.db.WithContext(ctx).Where("user_identity = ?", userIdentity).Delete(&models.AnalysisSession{}).Error
}
