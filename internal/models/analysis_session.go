package models

import (
	"time"

	"github.com/SuhasKaranth/codeAnalyzerUI/internal/tree"
)

// Session status values as last inferred by the response classifier.
const (
	StatusIdle      = "idle"
	StatusCloning   = "cloning"
	StatusParsing   = "parsing"
	StatusAnalyzing = "analyzing"
	StatusCompleted = "completed"
	StatusError     = "error"
)

// AnalysisSession is the persisted snapshot of one user's repository
// analysis. One row per user identity; writes replace the whole record.
type AnalysisSession struct {
	ID                uint   `gorm:"primaryKey"`
	UserIdentity      string `gorm:"size:255;not null;uniqueIndex"`
	RepositoryURL     string `gorm:"size:1024"`
	SessionIdentifier string `gorm:"size:255;not null"`
	Status            string `gorm:"size:32;not null;default:idle"`
	FileTreeJSON      string `gorm:"type:text"`
	QALogJSON         string `gorm:"type:text"`
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// QAEntry is one answered question. The Q&A log keeps entries newest-first.
type QAEntry struct {
	Question string    `json:"question"`
	Answer   string    `json:"answer"`
	AskedAt  time.Time `json:"askedAt"`
}

// SessionSnapshot is the in-memory session state exchanged with the frontend
// and serialized into AnalysisSession.
type SessionSnapshot struct {
	RepositoryURL     string     `json:"repositoryUrl"`
	SessionIdentifier string     `json:"sessionIdentifier"`
	Status            string     `json:"status"`
	FileTree          *tree.Node `json:"fileTree,omitempty"`
	UserIdentity      string     `json:"userIdentity"`
	LastWrittenAt     time.Time  `json:"lastWrittenAt"`
	Questions         []QAEntry  `json:"questions"`
}
