package models

import "time"

// BranchInfo represents a git branch with its latest commit timestamp
type BranchInfo struct {
	Name           string    `json:"name"`
	LastCommitDate time.Time `json:"lastCommitDate"`
}

// PreflightReport summarizes a local repository before it is submitted for
// analysis.
type PreflightReport struct {
	Path      string       `json:"path"`
	Branches  []BranchInfo `json:"branches"`
	FileCount int          `json:"fileCount"`
}
