package unit_tests

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/SuhasKaranth/codeAnalyzerUI/internal/models"
	"github.com/SuhasKaranth/codeAnalyzerUI/internal/tests/mocks"
)

func jsonUnmarshal(data string, v interface{}) error {
	return json.Unmarshal([]byte(data), v)
}

// newMemoryRecords returns a repository mock backed by a single in-memory
// record, enough to exercise the read-modify-write paths.
func newMemoryRecords(initial *models.AnalysisSession) *mocks.SessionRecordRepositoryMock {
	var mu sync.Mutex
	record := initial

	return &mocks.SessionRecordRepositoryMock{
		GetByUserFunc: func(ctx context.Context, userIdentity string) (*models.AnalysisSession, error) {
			mu.Lock()
			defer mu.Unlock()
			if record == nil || record.UserIdentity != userIdentity {
				return nil, nil
			}
			copied := *record
			return &copied, nil
		},
		UpsertFunc: func(ctx context.Context, r *models.AnalysisSession) error {
			mu.Lock()
			defer mu.Unlock()
			copied := *r
			record = &copied
			return nil
		},
		DeleteByUserFunc: func(ctx context.Context, userIdentity string) error {
			mu.Lock()
			defer mu.Unlock()
			record = nil
			return nil
		},
	}
}
