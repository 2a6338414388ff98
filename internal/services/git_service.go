package services

import (
	"context"
	"fmt"
	"sort"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/yargevad/filepathx"

	"github.com/SuhasKaranth/codeAnalyzerUI/internal/models"
	"github.com/SuhasKaranth/codeAnalyzerUI/internal/utils"
)

type GitService struct {
	context context.Context
}

func (g *GitService) Startup(ctx context.Context) {
	g.context = ctx
}

func NewGitService() *GitService {
	return &GitService{}
}

// Open an existing repo
func (g *GitService) Open(path string) (*git.Repository, error) {
	repo, err := git.PlainOpen(path)
	if err != nil {
		return nil, err
	}
	return repo, nil
}

// ValidateRepository checks if the given path is a valid git repository
func (g *GitService) ValidateRepository(repoPath string) error {
	if repoPath == "" {
		return fmt.Errorf("repository path cannot be empty")
	}

	repo, err := git.PlainOpen(repoPath)
	if err != nil {
		return fmt.Errorf("not a valid git repository: %w", err)
	}

	// Try to get HEAD to ensure repository is in a valid state
	_, err = repo.Head()
	if err != nil {
		return fmt.Errorf("repository is in an invalid state: %w", err)
	}

	return nil
}

// ListBranches returns all local branches and their last commit date for an opened repository.
func (g *GitService) ListBranches(repo *git.Repository) ([]models.BranchInfo, error) {
	if repo == nil {
		return nil, fmt.Errorf("repo cannot be nil")
	}

	iter, err := repo.Branches()
	if err != nil {
		return nil, err
	}
	defer iter.Close()

	var branches []models.BranchInfo
	if err := iter.ForEach(func(ref *plumbing.Reference) error {
		name := ref.Name().Short()
		// Get the commit at the tip of this branch to extract the commit date
		commit, cErr := repo.CommitObject(ref.Hash())
		if cErr != nil {
			return cErr
		}
		branches = append(branches, models.BranchInfo{
			Name:           name,
			LastCommitDate: commit.Author.When,
		})
		return nil
	}); err != nil {
		return nil, err
	}

	// Keep alphabetical order by branch name; frontend can sort by recency
	sort.Slice(branches, func(i, j int) bool { return branches[i].Name < branches[j].Name })
	return branches, nil
}

// ListBranchesByPath opens the repo at repoPath and returns all local branches.
func (g *GitService) ListBranchesByPath(repoPath string) ([]models.BranchInfo, error) {
	if repoPath == "" {
		return nil, fmt.Errorf("repository path cannot be empty")
	}
	repo, err := git.PlainOpen(repoPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open repository at %s: %w", repoPath, err)
	}
	return g.ListBranches(repo)
}

// Preflight inspects a local repository before it is submitted for analysis:
// the path must be a valid checkout, and the report carries its branches and
// a rough source-file count so the user can sanity-check what the backend
// will receive.
func (g *GitService) Preflight(repoPath string) (*models.PreflightReport, error) {
	if !utils.DirectoryExists(repoPath) {
		return nil, fmt.Errorf("directory does not exist: %s", repoPath)
	}
	if !utils.HasGitRepo(repoPath) {
		return nil, fmt.Errorf("no git repository at %s", repoPath)
	}
	if err := g.ValidateRepository(repoPath); err != nil {
		return nil, err
	}

	branches, err := g.ListBranchesByPath(repoPath)
	if err != nil {
		return nil, err
	}

	count, err := countSourceFiles(repoPath)
	if err != nil {
		return nil, fmt.Errorf("failed to count files: %w", err)
	}

	return &models.PreflightReport{
		Path:      repoPath,
		Branches:  branches,
		FileCount: count,
	}, nil
}

// Source extensions the analysis backend understands.
var sourceGlobs = []string{
	"/**/*.java", "/**/*.go", "/**/*.py", "/**/*.js", "/**/*.ts",
	"/**/*.kt", "/**/*.rb", "/**/*.rs", "/**/*.c", "/**/*.cpp",
}

func countSourceFiles(repoPath string) (int, error) {
	total := 0
	for _, pattern := range sourceGlobs {
		matches, err := filepathx.Glob(repoPath + pattern)
		if err != nil {
			return 0, err
		}
		total += len(matches)
	}
	return total, nil
}
