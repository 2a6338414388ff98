package services

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/SuhasKaranth/codeAnalyzerUI/internal/backend"
	"github.com/SuhasKaranth/codeAnalyzerUI/internal/classifier"
	"github.com/SuhasKaranth/codeAnalyzerUI/internal/events"
	"github.com/SuhasKaranth/codeAnalyzerUI/internal/models"
	"github.com/SuhasKaranth/codeAnalyzerUI/internal/tree"
)

// BackendGateway is the slice of the analysis backend the controller
// depends on.
type BackendGateway interface {
	StartSession(ctx context.Context, sessionID, userID string) (*backend.SessionAck, error)
	ContinueSession(ctx context.Context, sessionID, userID, repoURL string) error
	StartAnalysis(ctx context.Context, req backend.ChatRequest) (*backend.ChatResponse, error)
	SendMessage(ctx context.Context, req backend.ChatRequest) (*backend.ChatResponse, error)
	FetchFileList(ctx context.Context, repoURL string) ([]string, error)
}

// identifierOrigin tags where the canonical session identifier came from.
// Exactly one identifier is canonical at any instant; the origin enforces
// the restore > fresh > clear priority instead of a bare nullable string.
type identifierOrigin int

const (
	identifierNone identifierOrigin = iota
	identifierRestored
	identifierFresh
)

type sessionIdentity struct {
	origin identifierOrigin
	value  string
}

// defaultCompletionDelay is the debounce between a detected completion cue
// and the completion routine, giving backend-side persistence time to settle.
// It is a deliberate delay, not a wait on a real signal.
const defaultCompletionDelay = 2 * time.Second

// AnalysisService owns the in-memory analysis session: repository URL,
// canonical session identifier, coarse status, activity timeline and Q&A
// log. Every chat response flows through the classifier and its side effects
// are applied here; a snapshot is persisted on each significant change.
type AnalysisService struct {
	context context.Context
	store   SessionStoreService
	gateway BackendGateway

	mu              sync.Mutex
	userIdentity    string
	repositoryURL   string
	identity        sessionIdentity
	status          string
	analyzing       bool
	fileTree        *tree.Node
	questions       []models.QAEntry       // newest-first
	activityLog     []events.ActivityEntry // newest-first
	completionTimer *time.Timer
	completionDelay time.Duration
}

func NewAnalysisService(store SessionStoreService, gateway BackendGateway) *AnalysisService {
	return &AnalysisService{
		store:           store,
		gateway:         gateway,
		status:          models.StatusIdle,
		completionDelay: defaultCompletionDelay,
	}
}

// WithCompletionDelay overrides the completion debounce, mainly for tests.
func (s *AnalysisService) WithCompletionDelay(d time.Duration) *AnalysisService {
	if d >= 0 {
		s.completionDelay = d
	}
	return s
}

func (s *AnalysisService) Startup(ctx context.Context) error {
	s.context = ctx
	if s.store == nil {
		return fmt.Errorf("session store service not configured")
	}
	if s.gateway == nil {
		return fmt.Errorf("backend gateway not configured")
	}
	return nil
}

// Initialize settles the canonical session identifier for userIdentity.
// A valid persisted record is adopted verbatim (a new identifier is never
// minted on this path); otherwise a fresh identifier is synthesized. The
// restore path additionally notifies the backend, best-effort: its failure
// is logged and never blocks local session usability.
func (s *AnalysisService) Initialize(userIdentity string) (*models.SessionSnapshot, error) {
	userIdentity = strings.TrimSpace(userIdentity)
	if userIdentity == "" {
		return nil, fmt.Errorf("user identity is required")
	}

	snapshot, err := s.store.Load(userIdentity)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.userIdentity = userIdentity
	if snapshot != nil {
		s.identity = sessionIdentity{origin: identifierRestored, value: snapshot.SessionIdentifier}
		s.repositoryURL = snapshot.RepositoryURL
		s.status = snapshot.Status
		s.fileTree = snapshot.FileTree
		s.questions = snapshot.Questions
		s.analyzing = snapshot.Status == models.StatusCloning ||
			snapshot.Status == models.StatusParsing ||
			snapshot.Status == models.StatusAnalyzing
		s.logActivityLocked(events.StatusLoaded, "session restored", fmt.Sprintf("repository: %s", snapshot.RepositoryURL))
	} else {
		s.identity = sessionIdentity{origin: identifierFresh, value: newSessionIdentifier()}
		s.repositoryURL = ""
		s.status = models.StatusIdle
		s.fileTree = nil
		s.questions = nil
		s.analyzing = false
		s.logActivityLocked(events.StatusStarted, "session started", "")
	}
	sessionID := s.identity.value
	repoURL := s.repositoryURL
	restored := snapshot != nil
	s.mu.Unlock()

	if restored && repoURL != "" {
		if err := s.gateway.ContinueSession(s.requestContext(), sessionID, userIdentity, repoURL); err != nil {
			// Advisory call; the restored session stays usable.
			s.logActivity(events.StatusInProgress, "session rebind skipped", err.Error())
		}
	}

	return s.Snapshot(), nil
}

// StartAnalysis submits repositoryURL to the backend and classifies the
// acknowledgment. The persisted record is created on the first successful
// start.
func (s *AnalysisService) StartAnalysis(repositoryURL string) (*models.SessionSnapshot, error) {
	repositoryURL = strings.TrimSpace(repositoryURL)
	if repositoryURL == "" {
		return nil, fmt.Errorf("repository URL is required")
	}

	s.mu.Lock()
	if s.identity.origin == identifierNone || s.userIdentity == "" {
		s.mu.Unlock()
		return nil, fmt.Errorf("session is not initialized")
	}
	s.repositoryURL = repositoryURL
	s.analyzing = true
	s.status = models.StatusCloning
	s.logActivityLocked(events.StatusStarted, "analysis started", repositoryURL)
	sessionID := s.identity.value
	userIdentity := s.userIdentity
	s.mu.Unlock()

	ack, err := s.gateway.StartSession(s.requestContext(), sessionID, userIdentity)
	if err != nil {
		// Advisory, like the continue call: analysis proceeds on the
		// locally settled identifier.
		s.logActivity(events.StatusInProgress, "session announce skipped", err.Error())
	} else if ack != nil && ack.SessionID != "" && ack.SessionID != sessionID {
		// The locally settled identifier stays canonical.
		s.logActivity(events.StatusInProgress, "backend proposed different session id", ack.SessionID)
	}

	resp, err := s.gateway.StartAnalysis(s.requestContext(), backend.ChatRequest{
		Message:       fmt.Sprintf("Analyze the repository at %s", repositoryURL),
		UserID:        userIdentity,
		SessionID:     sessionID,
		RepositoryURL: repositoryURL,
	})
	if err != nil {
		s.mu.Lock()
		s.status = models.StatusError
		s.analyzing = false
		s.logActivityLocked(events.StatusError, "analysis request failed", err.Error())
		s.mu.Unlock()
		s.persist()
		return nil, err
	}

	s.applyClassification(resp.Text())
	s.persist()
	return s.Snapshot(), nil
}

// CheckProgress asks the backend for the current analysis status and runs
// the reply through the classifier.
func (s *AnalysisService) CheckProgress() (*models.SessionSnapshot, error) {
	s.mu.Lock()
	if s.identity.origin == identifierNone {
		s.mu.Unlock()
		return nil, fmt.Errorf("session is not initialized")
	}
	sessionID := s.identity.value
	userIdentity := s.userIdentity
	repoURL := s.repositoryURL
	s.mu.Unlock()

	resp, err := s.gateway.SendMessage(s.requestContext(), backend.ChatRequest{
		Message:       "What is the current status of the analysis?",
		UserID:        userIdentity,
		SessionID:     sessionID,
		RepositoryURL: repoURL,
	})
	if err != nil {
		s.logActivity(events.StatusError, "status check failed", err.Error())
		return nil, err
	}

	s.applyClassification(resp.Text())
	s.persist()
	return s.Snapshot(), nil
}

// AskQuestion sends a natural-language question about the analyzed
// repository and prepends the answered exchange to the Q&A log. A reply
// with no usable text is dropped silently, mirroring the backend's own
// behavior for empty answers.
func (s *AnalysisService) AskQuestion(question string) (*models.QAEntry, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, fmt.Errorf("question is required")
	}

	s.mu.Lock()
	if s.identity.origin == identifierNone || s.userIdentity == "" {
		s.mu.Unlock()
		return nil, fmt.Errorf("session is not initialized")
	}
	sessionID := s.identity.value
	userIdentity := s.userIdentity
	repoURL := s.repositoryURL
	s.mu.Unlock()

	// Make sure the backend still associates this session with the
	// repository before asking. Best-effort: a failed bind is logged and
	// the question is sent regardless.
	if repoURL != "" {
		if err := s.gateway.ContinueSession(s.requestContext(), sessionID, userIdentity, repoURL); err != nil {
			s.logActivity(events.StatusInProgress, "session rebind skipped", err.Error())
		}
	}

	message := question
	if repoURL != "" {
		message = fmt.Sprintf("Regarding the repository %s: %s", repoURL, question)
	}

	resp, err := s.gateway.SendMessage(s.requestContext(), backend.ChatRequest{
		Message:       message,
		UserID:        userIdentity,
		SessionID:     sessionID,
		RepositoryURL: repoURL,
	})
	if err != nil {
		s.logActivity(events.StatusError, "question failed", err.Error())
		return nil, err
	}

	answer := resp.Text()
	if strings.TrimSpace(answer) == "" {
		// No usable field in the payload; the exchange is dropped from the
		// log rather than surfaced as an error.
		return nil, nil
	}

	entry := models.QAEntry{Question: question, Answer: answer, AskedAt: time.Now()}
	s.mu.Lock()
	s.questions = append([]models.QAEntry{entry}, s.questions...)
	s.logActivityLocked(events.StatusCompleted, "question answered", question)
	s.mu.Unlock()

	if err := s.store.AppendQuestion(userIdentity, entry); err != nil {
		s.logActivity(events.StatusError, "failed to persist question", err.Error())
	}
	return &entry, nil
}

// ForceComplete runs the completion routine immediately, without the
// debounce. Used when the backend's completion cue was missed.
func (s *AnalysisService) ForceComplete() error {
	s.mu.Lock()
	if s.identity.origin == identifierNone {
		s.mu.Unlock()
		return fmt.Errorf("session is not initialized")
	}
	sessionID := s.identity.value
	s.mu.Unlock()

	s.completeAnalysis(sessionID)
	return nil
}

// ClearSession purges the persisted record, resets in-memory state and
// mints a fresh identifier. Always, regardless of prior state.
func (s *AnalysisService) ClearSession() (*models.SessionSnapshot, error) {
	s.mu.Lock()
	userIdentity := s.userIdentity
	if s.completionTimer != nil {
		s.completionTimer.Stop()
		s.completionTimer = nil
	}
	s.identity = sessionIdentity{origin: identifierFresh, value: newSessionIdentifier()}
	s.repositoryURL = ""
	s.status = models.StatusIdle
	s.analyzing = false
	s.fileTree = nil
	s.questions = nil
	s.logActivityLocked(events.StatusCompleted, "session cleared", "")
	s.mu.Unlock()

	if userIdentity != "" {
		if err := s.store.Clear(userIdentity); err != nil {
			return nil, err
		}
	}
	return s.Snapshot(), nil
}

// Snapshot returns a copy of the current session state.
func (s *AnalysisService) Snapshot() *models.SessionSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	snapshot := &models.SessionSnapshot{
		RepositoryURL:     s.repositoryURL,
		SessionIdentifier: s.identity.value,
		Status:            s.status,
		FileTree:          s.fileTree,
		UserIdentity:      s.userIdentity,
		Questions:         append([]models.QAEntry(nil), s.questions...),
	}
	return snapshot
}

// ActivityLog returns the activity timeline, newest-first.
func (s *AnalysisService) ActivityLog() []events.ActivityEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]events.ActivityEntry(nil), s.activityLog...)
}

// applyClassification runs a raw chat response through the rule list and
// applies its side effects in order: status transition, activity log
// append, completion scheduling. Dedup is anchored on the head of the
// activity log, so any interleaved entry resets it.
func (s *AnalysisService) applyClassification(raw string) classifier.Outcome {
	s.mu.Lock()
	lastAction := ""
	if len(s.activityLog) > 0 {
		lastAction = s.activityLog[0].Action
	}
	res := classifier.Classify(raw, lastAction)

	if res.Status != "" {
		s.status = res.Status
		if res.Status == models.StatusCompleted || res.Status == models.StatusError {
			s.analyzing = false
		}
	}
	if res.LogLabel != "" {
		s.logActivityLocked(activityStatusFor(res.Outcome), res.LogLabel, raw)
	}
	sessionID := s.identity.value
	s.mu.Unlock()

	if res.ScheduleCompletion {
		s.scheduleCompletion(sessionID)
	}
	return res.Outcome
}

func activityStatusFor(outcome classifier.Outcome) events.ActivityStatus {
	switch outcome {
	case classifier.OutcomeCompleted:
		return events.StatusCompleted
	case classifier.OutcomeError, classifier.OutcomeHealthCheckFailed:
		return events.StatusError
	default:
		return events.StatusInProgress
	}
}

// scheduleCompletion arms the debounce timer. The session identifier is
// captured at schedule time so a completion that fires after a clear (or a
// rescheduled one) is discarded instead of mutating the successor session.
func (s *AnalysisService) scheduleCompletion(sessionID string) {
	s.mu.Lock()
	if s.completionTimer != nil {
		s.completionTimer.Stop()
	}
	s.completionTimer = time.AfterFunc(s.completionDelay, func() {
		s.completeAnalysis(sessionID)
	})
	s.mu.Unlock()
}

// completeAnalysis is the completion routine: mark the session completed,
// fetch the file list and materialize the tree. scheduledFor guards against
// stale debounce callbacks.
func (s *AnalysisService) completeAnalysis(scheduledFor string) {
	s.mu.Lock()
	if s.identity.value != scheduledFor {
		s.mu.Unlock()
		return
	}
	repoURL := s.repositoryURL
	userIdentity := s.userIdentity
	sessionID := s.identity.value

	if repoURL == "" {
		s.logActivityLocked(events.StatusError, "no repository available", "set a repository URL before completing analysis")
		s.mu.Unlock()
		return
	}

	s.status = models.StatusCompleted
	s.analyzing = false
	s.logActivityLocked(events.StatusCompleted, "analysis complete", repoURL)
	s.mu.Unlock()

	files, err := s.gateway.FetchFileList(s.requestContext(), repoURL)
	if err != nil {
		s.logActivity(events.StatusError, "failed to load file list", err.Error())
		// Last-resort visibility aid: ask the backend to enumerate the
		// files in chat. This never populates the tree.
		if sessionID != "" && userIdentity != "" {
			resp, chatErr := s.gateway.SendMessage(s.requestContext(), backend.ChatRequest{
				Message:       fmt.Sprintf("Please list the files in the repository %s", repoURL),
				UserID:        userIdentity,
				SessionID:     sessionID,
				RepositoryURL: repoURL,
			})
			if chatErr != nil {
				s.logActivity(events.StatusError, "file list fallback failed", chatErr.Error())
			} else {
				s.logActivity(events.StatusInProgress, "file list requested in chat", resp.Text())
			}
		}
		s.persist()
		return
	}

	root := tree.Build(files)
	s.mu.Lock()
	if s.identity.value != scheduledFor {
		// The session was cleared while the fetch was in flight.
		s.mu.Unlock()
		return
	}
	s.fileTree = root
	s.logActivityLocked(events.StatusLoaded, "file tree loaded", fmt.Sprintf("%d files", root.CountFiles()))
	s.mu.Unlock()

	s.persist()
	s.emitDone()
}

// persist writes the current snapshot through the session store. Failures
// are logged, never propagated: persistence is a convenience, not a
// precondition for using the session.
func (s *AnalysisService) persist() {
	snapshot := s.Snapshot()
	if snapshot.UserIdentity == "" || snapshot.SessionIdentifier == "" {
		return
	}
	if err := s.store.Save(snapshot); err != nil {
		s.logActivity(events.StatusError, "failed to persist session", err.Error())
	}
}

func (s *AnalysisService) emitDone() {
	ctx := s.requestContext()
	s.mu.Lock()
	sessionID := s.identity.value
	s.mu.Unlock()
	events.Emit(events.WithSession(ctx, sessionID), events.AnalysisDone,
		events.NewActivity(events.StatusCompleted, "analysis complete", ""))
}

func (s *AnalysisService) logActivity(status events.ActivityStatus, action, details string) {
	s.mu.Lock()
	s.logActivityLocked(status, action, details)
	s.mu.Unlock()
}

// logActivityLocked appends to the newest-first activity log and emits the
// entry to the frontend. Callers must hold s.mu.
func (s *AnalysisService) logActivityLocked(status events.ActivityStatus, action, details string) {
	entry := events.NewActivity(status, action, details)
	entry.SessionKey = s.identity.value
	s.activityLog = append([]events.ActivityEntry{entry}, s.activityLog...)
	events.Emit(events.WithSession(s.requestContext(), s.identity.value), events.AnalysisActivity, entry)
}

func (s *AnalysisService) requestContext() context.Context {
	if s.context != nil {
		return s.context
	}
	return context.Background()
}

// newSessionIdentifier synthesizes a practically unique identifier from a
// high-resolution timestamp and a random suffix.
func newSessionIdentifier() string {
	return fmt.Sprintf("session-%d-%s", time.Now().UnixMilli(), uuid.NewString()[:8])
}
