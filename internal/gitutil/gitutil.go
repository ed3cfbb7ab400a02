// Package gitutil edits and commits the demo application between the blue
// and the green deployment.
package gitutil

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
)

var versionRe = regexp.MustCompile(`(?m)^(\s*const APP_VERSION\s*=\s*)(['"])[^'"]*(['"])`)

// BumpVersion rewrites the APP_VERSION constant in the application source so
// the green deployment serves a visibly different version string.
func BumpVersion(repoDir, filePath, version string) error {
	path := filepath.Join(repoDir, filePath)
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", filePath, err)
	}

	if !versionRe.Match(data) {
		return fmt.Errorf("no APP_VERSION constant in %s", filePath)
	}

	updated := versionRe.ReplaceAll(data, []byte("${1}${2}"+version+"${3}"))

	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("failed to stat %s: %w", filePath, err)
	}
	if err := os.WriteFile(path, updated, info.Mode()); err != nil {
		return fmt.Errorf("failed to write %s: %w", filePath, err)
	}

	return nil
}

// IsDirty reports whether the worktree has uncommitted changes.
func IsDirty(repoDir string) (bool, error) {
	repo, err := git.PlainOpen(repoDir)
	if err != nil {
		return false, fmt.Errorf("failed to open repository %s: %w", repoDir, err)
	}

	worktree, err := repo.Worktree()
	if err != nil {
		return false, fmt.Errorf("failed to open worktree: %w", err)
	}

	status, err := worktree.Status()
	if err != nil {
		return false, fmt.Errorf("failed to read worktree status: %w", err)
	}

	return !status.IsClean(), nil
}

// CommitAll stages every change and commits it.
func CommitAll(repoDir, message string) error {
	repo, err := git.PlainOpen(repoDir)
	if err != nil {
		return fmt.Errorf("failed to open repository %s: %w", repoDir, err)
	}

	worktree, err := repo.Worktree()
	if err != nil {
		return fmt.Errorf("failed to open worktree: %w", err)
	}

	if err := worktree.AddWithOptions(&git.AddOptions{All: true}); err != nil {
		return fmt.Errorf("failed to stage changes: %w", err)
	}

	_, err = worktree.Commit(message, &git.CommitOptions{
		Author: &object.Signature{
			Name:  "greenswitch",
			Email: "greenswitch@localhost",
			When:  time.Now(),
		},
	})
	if err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}

	return nil
}
