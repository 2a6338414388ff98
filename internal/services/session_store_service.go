package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/SuhasKaranth/codeAnalyzerUI/internal/models"
	"github.com/SuhasKaranth/codeAnalyzerUI/internal/repositories"
	"github.com/SuhasKaranth/codeAnalyzerUI/internal/tree"
)

// SessionMaxAge is the rolling expiry measured from the last write. Records
// older than this are treated as absent and actively purged.
const SessionMaxAge = 24 * time.Hour

// SessionStoreService persists one analysis session snapshot per user
// identity. Reads are all-or-nothing: an expired or foreign record yields
// "no session", never a partial merge.
type SessionStoreService interface {
	Startup(ctx context.Context)
	Load(userIdentity string) (*models.SessionSnapshot, error)
	Save(snapshot *models.SessionSnapshot) error
	UpdateStatus(userIdentity, status string) error
	UpdateFileTree(userIdentity string, fileTree *tree.Node) error
	AppendQuestion(userIdentity string, entry models.QAEntry) error
	Clear(userIdentity string) error
}

type sessionStoreService struct {
	records repositories.SessionRecordRepository
	ctx     context.Context
	now     func() time.Time
}

func NewSessionStoreService(records repositories.SessionRecordRepository) SessionStoreService {
	return &sessionStoreService{records: records, now: time.Now}
}

func (s *sessionStoreService) Startup(ctx context.Context) {
	s.ctx = ctx
}

func (s *sessionStoreService) requestContext() context.Context {
	if s.ctx != nil {
		return s.ctx
	}
	return context.Background()
}

func (s *sessionStoreService) Load(userIdentity string) (*models.SessionSnapshot, error) {
	userIdentity = strings.TrimSpace(userIdentity)
	if userIdentity == "" {
		return nil, fmt.Errorf("user identity is required")
	}

	record, err := s.records.GetByUser(s.requestContext(), userIdentity)
	if err != nil {
		return nil, fmt.Errorf("failed to load session record: %w", err)
	}
	if record == nil {
		return nil, nil
	}
	if record.UserIdentity != userIdentity {
		// Lookups are keyed by identity, so this cannot normally happen;
		// treat it as no session rather than restoring foreign state.
		return nil, nil
	}
	if s.now().Sub(record.UpdatedAt) >= SessionMaxAge {
		// Expired records are purged, not merely ignored.
		if err := s.records.DeleteByUser(s.requestContext(), userIdentity); err != nil {
			return nil, fmt.Errorf("failed to purge expired session record: %w", err)
		}
		return nil, nil
	}

	snapshot := &models.SessionSnapshot{
		RepositoryURL:     record.RepositoryURL,
		SessionIdentifier: record.SessionIdentifier,
		Status:            record.Status,
		UserIdentity:      record.UserIdentity,
		LastWrittenAt:     record.UpdatedAt,
	}
	if record.FileTreeJSON != "" {
		var root tree.Node
		if err := json.Unmarshal([]byte(record.FileTreeJSON), &root); err != nil {
			return nil, fmt.Errorf("failed to decode persisted file tree: %w", err)
		}
		snapshot.FileTree = &root
	}
	if record.QALogJSON != "" {
		if err := json.Unmarshal([]byte(record.QALogJSON), &snapshot.Questions); err != nil {
			return nil, fmt.Errorf("failed to decode persisted question log: %w", err)
		}
	}
	return snapshot, nil
}

func (s *sessionStoreService) Save(snapshot *models.SessionSnapshot) error {
	if snapshot == nil {
		return fmt.Errorf("snapshot is required")
	}
	userIdentity := strings.TrimSpace(snapshot.UserIdentity)
	if userIdentity == "" {
		return fmt.Errorf("user identity is required")
	}
	if strings.TrimSpace(snapshot.SessionIdentifier) == "" {
		return fmt.Errorf("session identifier is required")
	}

	record := &models.AnalysisSession{
		UserIdentity:      userIdentity,
		RepositoryURL:     snapshot.RepositoryURL,
		SessionIdentifier: snapshot.SessionIdentifier,
		Status:            snapshot.Status,
		UpdatedAt:         s.now(),
	}
	if snapshot.FileTree != nil {
		data, err := json.Marshal(snapshot.FileTree)
		if err != nil {
			return fmt.Errorf("failed to encode file tree: %w", err)
		}
		record.FileTreeJSON = string(data)
	}
	if len(snapshot.Questions) > 0 {
		data, err := json.Marshal(snapshot.Questions)
		if err != nil {
			return fmt.Errorf("failed to encode question log: %w", err)
		}
		record.QALogJSON = string(data)
	}

	if err := s.records.Upsert(s.requestContext(), record); err != nil {
		return fmt.Errorf("failed to persist session record: %w", err)
	}
	return nil
}

func (s *sessionStoreService) UpdateStatus(userIdentity, status string) error {
	return s.mutate(userIdentity, func(record *models.AnalysisSession) error {
		record.Status = status
		return nil
	})
}

func (s *sessionStoreService) UpdateFileTree(userIdentity string, fileTree *tree.Node) error {
	return s.mutate(userIdentity, func(record *models.AnalysisSession) error {
		if fileTree == nil {
			record.FileTreeJSON = ""
			return nil
		}
		data, err := json.Marshal(fileTree)
		if err != nil {
			return fmt.Errorf("failed to encode file tree: %w", err)
		}
		record.FileTreeJSON = string(data)
		return nil
	})
}

func (s *sessionStoreService) AppendQuestion(userIdentity string, entry models.QAEntry) error {
	return s.mutate(userIdentity, func(record *models.AnalysisSession) error {
		var questions []models.QAEntry
		if record.QALogJSON != "" {
			if err := json.Unmarshal([]byte(record.QALogJSON), &questions); err != nil {
				return fmt.Errorf("failed to decode persisted question log: %w", err)
			}
		}
		// Newest-first.
		questions = append([]models.QAEntry{entry}, questions...)
		data, err := json.Marshal(questions)
		if err != nil {
			return fmt.Errorf("failed to encode question log: %w", err)
		}
		record.QALogJSON = string(data)
		return nil
	})
}

func (s *sessionStoreService) Clear(userIdentity string) error {
	userIdentity = strings.TrimSpace(userIdentity)
	if userIdentity == "" {
		return fmt.Errorf("user identity is required")
	}
	if err := s.records.DeleteByUser(s.requestContext(), userIdentity); err != nil {
		return fmt.Errorf("failed to clear session record: %w", err)
	}
	return nil
}

// mutate implements the read-modify-write cycle shared by the incremental
// mutators. Last full write wins; there is no record-level locking.
func (s *sessionStoreService) mutate(userIdentity string, apply func(record *models.AnalysisSession) error) error {
	userIdentity = strings.TrimSpace(userIdentity)
	if userIdentity == "" {
		return fmt.Errorf("user identity is required")
	}

	record, err := s.records.GetByUser(s.requestContext(), userIdentity)
	if err != nil {
		return fmt.Errorf("failed to load session record: %w", err)
	}
	if record == nil {
		return fmt.Errorf("no session record for %s", userIdentity)
	}
	if err := apply(record); err != nil {
		return err
	}
	record.UpdatedAt = s.now()
	if err := s.records.Upsert(s.requestContext(), record); err != nil {
		return fmt.Errorf("failed to persist session record: %w", err)
	}
	return nil
}
