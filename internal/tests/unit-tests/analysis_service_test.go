package unit_tests

import (
	"context"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SuhasKaranth/codeAnalyzerUI/internal/backend"
	"github.com/SuhasKaranth/codeAnalyzerUI/internal/models"
	"github.com/SuhasKaranth/codeAnalyzerUI/internal/services"
	"github.com/SuhasKaranth/codeAnalyzerUI/internal/tests/mocks"
)

const testUser = "user@example.com"

func newAnalysisService(t *testing.T, records *mocks.SessionRecordRepositoryMock, gateway *mocks.BackendGatewayMock) *services.AnalysisService {
	t.Helper()
	svc := services.NewAnalysisService(services.NewSessionStoreService(records), gateway)
	require.NoError(t, svc.Startup(context.Background()))
	return svc
}

func TestAnalysis_Initialize_MintsFreshIdentifier(t *testing.T) {
	continueCalled := false
	gateway := &mocks.BackendGatewayMock{
		ContinueSessionFunc: func(ctx context.Context, sessionID, userID, repoURL string) error {
			continueCalled = true
			return nil
		},
	}
	svc := newAnalysisService(t, newMemoryRecords(nil), gateway)

	snapshot, err := svc.Initialize(testUser)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(snapshot.SessionIdentifier, "session-"))
	assert.Equal(t, models.StatusIdle, snapshot.Status)
	assert.False(t, continueCalled, "fresh sessions have nothing to rebind")
}

func TestAnalysis_Initialize_RestoresIdentifierVerbatim(t *testing.T) {
	var continuedWith string
	gateway := &mocks.BackendGatewayMock{
		ContinueSessionFunc: func(ctx context.Context, sessionID, userID, repoURL string) error {
			continuedWith = sessionID
			return nil
		},
	}
	records := newMemoryRecords(&models.AnalysisSession{
		UserIdentity:      testUser,
		RepositoryURL:     "https://github.com/acme/widget",
		SessionIdentifier: "session-1700000000000-abcd1234",
		Status:            models.StatusCompleted,
		UpdatedAt:         time.Now().Add(-time.Hour),
	})
	svc := newAnalysisService(t, records, gateway)

	snapshot, err := svc.Initialize(testUser)
	require.NoError(t, err)
	assert.Equal(t, "session-1700000000000-abcd1234", snapshot.SessionIdentifier)
	assert.Equal(t, "https://github.com/acme/widget", snapshot.RepositoryURL)
	assert.Equal(t, "session-1700000000000-abcd1234", continuedWith)
}

func TestAnalysis_Initialize_RebindFailureKeepsSessionUsable(t *testing.T) {
	gateway := &mocks.BackendGatewayMock{
		ContinueSessionFunc: func(ctx context.Context, sessionID, userID, repoURL string) error {
			return assert.AnError
		},
	}
	records := newMemoryRecords(&models.AnalysisSession{
		UserIdentity:      testUser,
		RepositoryURL:     "https://github.com/acme/widget",
		SessionIdentifier: "session-1-a",
		Status:            models.StatusCompleted,
		UpdatedAt:         time.Now(),
	})
	svc := newAnalysisService(t, records, gateway)

	snapshot, err := svc.Initialize(testUser)
	require.NoError(t, err)
	assert.Equal(t, "session-1-a", snapshot.SessionIdentifier)
}

func TestAnalysis_StartAnalysis_ProgressResponse(t *testing.T) {
	gateway := &mocks.BackendGatewayMock{
		StartAnalysisFunc: func(ctx context.Context, req backend.ChatRequest) (*backend.ChatResponse, error) {
			return &backend.ChatResponse{Response: "Cloning repository, this may take a few minutes"}, nil
		},
	}
	records := newMemoryRecords(nil)
	svc := newAnalysisService(t, records, gateway)
	_, err := svc.Initialize(testUser)
	require.NoError(t, err)

	snapshot, err := svc.StartAnalysis("https://github.com/acme/widget")
	require.NoError(t, err)
	assert.Equal(t, models.StatusCloning, snapshot.Status)
	assert.Nil(t, snapshot.FileTree)

	// The record was created on the first successful start.
	stored, err := services.NewSessionStoreService(records).Load(testUser)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, snapshot.SessionIdentifier, stored.SessionIdentifier)
}

func TestAnalysis_StartAnalysis_ServerIdentifierIsIgnored(t *testing.T) {
	gateway := &mocks.BackendGatewayMock{
		StartSessionFunc: func(ctx context.Context, sessionID, userID string) (*backend.SessionAck, error) {
			return &backend.SessionAck{SessionID: "srv-totally-different"}, nil
		},
	}
	svc := newAnalysisService(t, newMemoryRecords(nil), gateway)
	first, err := svc.Initialize(testUser)
	require.NoError(t, err)

	snapshot, err := svc.StartAnalysis("https://github.com/acme/widget")
	require.NoError(t, err)
	assert.Equal(t, first.SessionIdentifier, snapshot.SessionIdentifier)
}

func TestAnalysis_CompletedResponseLoadsFileTree(t *testing.T) {
	gateway := &mocks.BackendGatewayMock{
		StartAnalysisFunc: func(ctx context.Context, req backend.ChatRequest) (*backend.ChatResponse, error) {
			return &backend.ChatResponse{Response: `{"status":"completed"}`}, nil
		},
		FetchFileListFunc: func(ctx context.Context, repoURL string) ([]string, error) {
			return []string{"src/Main.java", "src/Util.java", "pom.xml"}, nil
		},
	}
	records := newMemoryRecords(nil)
	svc := newAnalysisService(t, records, gateway).WithCompletionDelay(10 * time.Millisecond)
	_, err := svc.Initialize(testUser)
	require.NoError(t, err)

	_, err = svc.StartAnalysis("https://github.com/acme/widget")
	require.NoError(t, err)

	assert.Eventually(t, func() bool {
		return svc.Snapshot().FileTree != nil
	}, 2*time.Second, 10*time.Millisecond)

	root := svc.Snapshot().FileTree
	assert.Equal(t, models.StatusCompleted, svc.Snapshot().Status)
	assert.Equal(t, 3, root.CountFiles())
	src := root.Children["src"]
	require.NotNil(t, src)
	assert.Len(t, src.Children, 2)
}

func TestAnalysis_CompletionFetchFailureFallsBackToChat(t *testing.T) {
	var enumeration string
	gateway := &mocks.BackendGatewayMock{
		StartAnalysisFunc: func(ctx context.Context, req backend.ChatRequest) (*backend.ChatResponse, error) {
			return &backend.ChatResponse{Response: `{"status":"completed"}`}, nil
		},
		FetchFileListFunc: func(ctx context.Context, repoURL string) ([]string, error) {
			return nil, assert.AnError
		},
		SendMessageFunc: func(ctx context.Context, req backend.ChatRequest) (*backend.ChatResponse, error) {
			if strings.Contains(req.Message, "list the files") {
				enumeration = req.Message
				return &backend.ChatResponse{Response: "pom.xml\nsrc/Main.java"}, nil
			}
			return &backend.ChatResponse{}, nil
		},
	}
	svc := newAnalysisService(t, newMemoryRecords(nil), gateway).WithCompletionDelay(10 * time.Millisecond)
	_, err := svc.Initialize(testUser)
	require.NoError(t, err)

	_, err = svc.StartAnalysis("https://github.com/acme/widget")
	require.NoError(t, err)

	assert.Eventually(t, func() bool {
		return enumeration != ""
	}, 2*time.Second, 10*time.Millisecond)

	assert.Contains(t, enumeration, "https://github.com/acme/widget")
	// The chat fallback is a display aid only; it never builds the tree.
	assert.Nil(t, svc.Snapshot().FileTree)
	assert.Equal(t, models.StatusCompleted, svc.Snapshot().Status)
}

func TestAnalysis_RepeatedCompletionTextsFetchOnce(t *testing.T) {
	var fetches int32
	gateway := &mocks.BackendGatewayMock{
		StartAnalysisFunc: func(ctx context.Context, req backend.ChatRequest) (*backend.ChatResponse, error) {
			return &backend.ChatResponse{Response: "Analysis complete!"}, nil
		},
		SendMessageFunc: func(ctx context.Context, req backend.ChatRequest) (*backend.ChatResponse, error) {
			return &backend.ChatResponse{Response: `{"status":"completed"}`}, nil
		},
		FetchFileListFunc: func(ctx context.Context, repoURL string) ([]string, error) {
			atomic.AddInt32(&fetches, 1)
			return []string{"pom.xml"}, nil
		},
	}
	svc := newAnalysisService(t, newMemoryRecords(nil), gateway).WithCompletionDelay(100 * time.Millisecond)
	_, err := svc.Initialize(testUser)
	require.NoError(t, err)

	// Two completion cues inside one debounce window rearm the timer rather
	// than queueing a second routine run.
	_, err = svc.StartAnalysis("https://github.com/acme/widget")
	require.NoError(t, err)
	_, err = svc.CheckProgress()
	require.NoError(t, err)

	assert.Eventually(t, func() bool {
		return svc.Snapshot().FileTree != nil
	}, 2*time.Second, 10*time.Millisecond)

	time.Sleep(200 * time.Millisecond)
	assert.Equal(t, int32(1), atomic.LoadInt32(&fetches))
}

func TestAnalysis_StaleCompletionIsDiscarded(t *testing.T) {
	var fetches int32
	gateway := &mocks.BackendGatewayMock{
		StartAnalysisFunc: func(ctx context.Context, req backend.ChatRequest) (*backend.ChatResponse, error) {
			return &backend.ChatResponse{Response: "Analysis complete!"}, nil
		},
		FetchFileListFunc: func(ctx context.Context, repoURL string) ([]string, error) {
			atomic.AddInt32(&fetches, 1)
			return []string{"pom.xml"}, nil
		},
	}
	svc := newAnalysisService(t, newMemoryRecords(nil), gateway).WithCompletionDelay(100 * time.Millisecond)
	_, err := svc.Initialize(testUser)
	require.NoError(t, err)

	_, err = svc.StartAnalysis("https://github.com/acme/widget")
	require.NoError(t, err)

	// Clearing before the debounce elapses must stop the pending completion.
	cleared, err := svc.ClearSession()
	require.NoError(t, err)

	time.Sleep(300 * time.Millisecond)
	assert.Equal(t, int32(0), atomic.LoadInt32(&fetches))
	assert.Nil(t, svc.Snapshot().FileTree)
	assert.Equal(t, cleared.SessionIdentifier, svc.Snapshot().SessionIdentifier)
}

func TestAnalysis_AskQuestion_PrependsNewestFirst(t *testing.T) {
	gateway := &mocks.BackendGatewayMock{
		SendMessageFunc: func(ctx context.Context, req backend.ChatRequest) (*backend.ChatResponse, error) {
			if strings.Contains(req.Message, "controllers") {
				return &backend.ChatResponse{Response: "Three controllers."}, nil
			}
			return &backend.ChatResponse{Answer: "It builds widgets."}, nil
		},
	}
	records := newMemoryRecords(nil)
	svc := newAnalysisService(t, records, gateway)
	_, err := svc.Initialize(testUser)
	require.NoError(t, err)
	_, err = svc.StartAnalysis("https://github.com/acme/widget")
	require.NoError(t, err)

	first, err := svc.AskQuestion("What does this project do?")
	require.NoError(t, err)
	require.NotNil(t, first)
	assert.Equal(t, "It builds widgets.", first.Answer)

	second, err := svc.AskQuestion("How many controllers are there?")
	require.NoError(t, err)
	require.NotNil(t, second)

	questions := svc.Snapshot().Questions
	require.Len(t, questions, 2)
	assert.Equal(t, "How many controllers are there?", questions[0].Question)
	assert.Equal(t, "What does this project do?", questions[1].Question)
}

func TestAnalysis_AskQuestion_UnusableAnswerIsDropped(t *testing.T) {
	gateway := &mocks.BackendGatewayMock{
		SendMessageFunc: func(ctx context.Context, req backend.ChatRequest) (*backend.ChatResponse, error) {
			return &backend.ChatResponse{}, nil
		},
	}
	svc := newAnalysisService(t, newMemoryRecords(nil), gateway)
	_, err := svc.Initialize(testUser)
	require.NoError(t, err)

	entry, err := svc.AskQuestion("Anything?")
	assert.NoError(t, err)
	assert.Nil(t, entry)
	assert.Empty(t, svc.Snapshot().Questions)
}

func TestAnalysis_ProgressDedupResetsAfterInterleavedEntry(t *testing.T) {
	gateway := &mocks.BackendGatewayMock{
		SendMessageFunc: func(ctx context.Context, req backend.ChatRequest) (*backend.ChatResponse, error) {
			if strings.Contains(req.Message, "status") {
				return &backend.ChatResponse{Response: "Cloning repository from GitHub..."}, nil
			}
			return &backend.ChatResponse{Answer: "It builds widgets."}, nil
		},
	}
	svc := newAnalysisService(t, newMemoryRecords(nil), gateway)
	_, err := svc.Initialize(testUser)
	require.NoError(t, err)
	_, err = svc.StartAnalysis("https://github.com/acme/widget")
	require.NoError(t, err)

	countCloning := func() int {
		n := 0
		for _, entry := range svc.ActivityLog() {
			if entry.Action == "cloning repository" {
				n++
			}
		}
		return n
	}
	require.Equal(t, 1, countCloning())

	// Same progress text again: still the head of the log, so suppressed.
	_, err = svc.CheckProgress()
	require.NoError(t, err)
	assert.Equal(t, 1, countCloning())

	// An answered question interleaves; the next identical progress text is
	// no longer the head and must be logged again.
	_, err = svc.AskQuestion("What does this project do?")
	require.NoError(t, err)
	_, err = svc.CheckProgress()
	require.NoError(t, err)
	assert.Equal(t, 2, countCloning())
}

func TestAnalysis_ForceComplete_WithoutRepository(t *testing.T) {
	var fetches int32
	gateway := &mocks.BackendGatewayMock{
		FetchFileListFunc: func(ctx context.Context, repoURL string) ([]string, error) {
			atomic.AddInt32(&fetches, 1)
			return nil, nil
		},
	}
	svc := newAnalysisService(t, newMemoryRecords(nil), gateway)
	_, err := svc.Initialize(testUser)
	require.NoError(t, err)

	require.NoError(t, svc.ForceComplete())

	assert.Equal(t, int32(0), atomic.LoadInt32(&fetches), "no network traffic without a repository")
	log := svc.ActivityLog()
	require.NotEmpty(t, log)
	assert.Equal(t, "no repository available", log[0].Action)
	assert.Equal(t, models.StatusIdle, svc.Snapshot().Status)
}

func TestAnalysis_ClearSession_PurgesAndMintsFresh(t *testing.T) {
	records := newMemoryRecords(&models.AnalysisSession{
		UserIdentity:      testUser,
		RepositoryURL:     "https://github.com/acme/widget",
		SessionIdentifier: "session-1-a",
		Status:            models.StatusCompleted,
		UpdatedAt:         time.Now(),
	})
	svc := newAnalysisService(t, records, &mocks.BackendGatewayMock{})
	_, err := svc.Initialize(testUser)
	require.NoError(t, err)

	snapshot, err := svc.ClearSession()
	require.NoError(t, err)
	assert.NotEqual(t, "session-1-a", snapshot.SessionIdentifier)
	assert.True(t, strings.HasPrefix(snapshot.SessionIdentifier, "session-"))
	assert.Equal(t, models.StatusIdle, snapshot.Status)
	assert.Empty(t, snapshot.RepositoryURL)

	stored, err := services.NewSessionStoreService(records).Load(testUser)
	require.NoError(t, err)
	assert.Nil(t, stored)
}

func TestAnalysis_CheckProgress_ErrorResponse(t *testing.T) {
	gateway := &mocks.BackendGatewayMock{
		SendMessageFunc: func(ctx context.Context, req backend.ChatRequest) (*backend.ChatResponse, error) {
			return &backend.ChatResponse{Response: "Failed to clone the repository"}, nil
		},
	}
	svc := newAnalysisService(t, newMemoryRecords(nil), gateway)
	_, err := svc.Initialize(testUser)
	require.NoError(t, err)
	_, err = svc.StartAnalysis("https://github.com/acme/widget")
	require.NoError(t, err)

	snapshot, err := svc.CheckProgress()
	require.NoError(t, err)
	assert.Equal(t, models.StatusError, snapshot.Status)
	assert.Equal(t, "failed to clone repository", svc.ActivityLog()[0].Action)
}
