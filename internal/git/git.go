// Package git initialises a git repository in a freshly scaffolded project
// and records the scaffold as the first commit.
package git

import (
	"context"
	"errors"
	"fmt"
	"time"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
)

// DefaultBranch is the branch a new project repository starts on.
const DefaultBranch = "main"

// InitialCommitMessage is the message of the scaffold commit.
const InitialCommitMessage = "Initial PocketBase project"

var (
	ErrEmptyMessage  = errors.New("commit message cannot be empty")
	ErrNoFiles       = errors.New("no files specified to stage")
	ErrGitInitFailed = errors.New("git initialization failed")
	ErrInvalidRepo   = errors.New("invalid git repository")
)

// GitUserInfo is the identity recorded on the scaffold commit and where it
// came from.
type GitUserInfo struct {
	Name       string
	Email      string
	FromEnv    bool
	FromConfig bool
	IsDefault  bool
}

// Git is the interface for the repository operations pbsetup performs.
type Git interface {
	InitRepo(ctx context.Context) error
	IsGitRepo(ctx context.Context) (bool, error)
	ConfigureUser(ctx context.Context, userInfo GitUserInfo) error
	CreateInitialCommit(ctx context.Context, message string, files []string) (string, error)
}

// Client implements Git for a project directory.
type Client struct {
	dir string
}

// NewClient returns a Client for the project at dir.
func NewClient(dir string) *Client {
	return &Client{dir: dir}
}

// InitRepo creates a repository in the project directory with DefaultBranch
// checked out. An existing repository is an ErrGitInitFailed.
func (c *Client) InitRepo(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("context cancelled: %w", err)
	}

	_, err := gogit.PlainInitWithOptions(c.dir, &gogit.PlainInitOptions{
		InitOptions: gogit.InitOptions{
			DefaultBranch: plumbing.NewBranchReferenceName(DefaultBranch),
		},
	})
	if err != nil {
		return fmt.Errorf("%w: %s", ErrGitInitFailed, err.Error())
	}
	return nil
}

// IsGitRepo reports whether the project directory already belongs to a work
// tree, either its own or one of a parent directory. A corrupt repository
// is an ErrInvalidRepo.
func (c *Client) IsGitRepo(ctx context.Context) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, fmt.Errorf("context cancelled: %w", err)
	}

	_, err := gogit.PlainOpenWithOptions(c.dir, &gogit.PlainOpenOptions{DetectDotGit: true})
	if errors.Is(err, gogit.ErrRepositoryNotExists) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("%w: %s", ErrInvalidRepo, err.Error())
	}
	return true, nil
}

// ConfigureUser writes the identity into the repository-local config so later
// commits made with the git CLI use it too.
func (c *Client) ConfigureUser(ctx context.Context, userInfo GitUserInfo) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("context cancelled: %w", err)
	}

	repo, err := gogit.PlainOpen(c.dir)
	if err != nil {
		return fmt.Errorf("open repository: %w", err)
	}

	cfg, err := repo.Config()
	if err != nil {
		return fmt.Errorf("read repo config: %w", err)
	}
	cfg.User.Name = userInfo.Name
	cfg.User.Email = userInfo.Email

	if err := repo.Storer.SetConfig(cfg); err != nil {
		return fmt.Errorf("write repo config: %w", err)
	}
	return nil
}

// CreateInitialCommit stages files, given as slash-separated paths relative
// to the project directory, and commits them as the configured user. It
// returns the commit hash.
func (c *Client) CreateInitialCommit(ctx context.Context, message string, files []string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("context cancelled: %w", err)
	}
	if message == "" {
		return "", ErrEmptyMessage
	}
	if len(files) == 0 {
		return "", ErrNoFiles
	}

	repo, err := gogit.PlainOpen(c.dir)
	if err != nil {
		return "", fmt.Errorf("open repository: %w", err)
	}
	worktree, err := repo.Worktree()
	if err != nil {
		return "", fmt.Errorf("get worktree: %w", err)
	}

	for _, file := range files {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		if _, err := worktree.Add(file); err != nil {
			return "", fmt.Errorf("stage %s: %w", file, err)
		}
	}

	cfg, err := repo.Config()
	if err != nil {
		return "", fmt.Errorf("read repo config: %w", err)
	}
	signature := &object.Signature{Name: cfg.User.Name, Email: cfg.User.Email, When: time.Now()}

	hash, err := worktree.Commit(message, &gogit.CommitOptions{Author: signature, Committer: signature})
	if err != nil {
		return "", fmt.Errorf("create commit: %w", err)
	}
	return hash.String(), nil
}

// InitResult reports what InitProject did.
type InitResult struct {
	Initialized bool        // false when the directory was already under git
	Commit      string      // hash of the scaffold commit, empty when skipped
	User        GitUserInfo // identity written to the local config
}

// InitProject turns a project directory into a repository holding files as
// its first commit. A directory already under git is left untouched.
func InitProject(ctx context.Context, g Git, files []string) (*InitResult, error) {
	isRepo, err := g.IsGitRepo(ctx)
	if err != nil {
		return nil, err
	}
	if isRepo {
		return &InitResult{}, nil
	}

	if err := g.InitRepo(ctx); err != nil {
		return nil, err
	}

	user := DetectGitUser()
	if err := g.ConfigureUser(ctx, user); err != nil {
		return nil, fmt.Errorf("configure git user: %w", err)
	}

	hash, err := g.CreateInitialCommit(ctx, InitialCommitMessage, files)
	if err != nil {
		return nil, fmt.Errorf("initial commit: %w", err)
	}

	return &InitResult{Initialized: true, Commit: hash, User: user}, nil
}
