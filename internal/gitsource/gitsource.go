package gitsource

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-git/go-git/v5"
)

// IsRemote reports whether source looks like a git URL rather than a
// local path.
func IsRemote(source string) bool {
	return strings.HasSuffix(source, ".git") ||
		strings.HasPrefix(source, "git@") ||
		strings.HasPrefix(source, "https://") ||
		strings.HasPrefix(source, "http://")
}

// Sync clones a git repository if it doesn't exist at the given path,
// or pulls the latest changes if it does.
func Sync(ctx context.Context, repoURL, localPath string) error {
	_, err := os.Stat(localPath)
	switch {
	case os.IsNotExist(err):
		slog.Info("Cloning deck repository", "url", repoURL, "path", localPath)
		// Full clone: go-git cannot reliably pull into a shallow one.
		if _, err := git.PlainCloneContext(ctx, localPath, false, &git.CloneOptions{
			URL: repoURL,
		}); err != nil {
			return fmt.Errorf("failed to clone repo %s: %w", repoURL, err)
		}
	case err == nil:
		slog.Info("Pulling deck repository", "path", localPath)
		repo, err := git.PlainOpen(localPath)
		if err != nil {
			return fmt.Errorf("failed to open existing repo at %s: %w", localPath, err)
		}

		worktree, err := repo.Worktree()
		if err != nil {
			return fmt.Errorf("failed to get worktree for repo at %s: %w", localPath, err)
		}

		err = worktree.PullContext(ctx, &git.PullOptions{RemoteName: "origin"})
		if err != nil && !errors.Is(err, git.NoErrAlreadyUpToDate) {
			return fmt.Errorf("failed to pull changes for repo at %s: %w", localPath, err)
		}
	default:
		return fmt.Errorf("error checking path %s: %w", localPath, err)
	}

	return nil
}

// LocalPath maps a repository URL to a directory under baseDir, e.g.
// https://github.com/a/b.git -> baseDir/github.com/a/b. URLs that would
// resolve outside baseDir are rejected.
func LocalPath(baseDir, repoURL string) (string, error) {
	host, repoPath, err := splitURL(repoURL)
	if err != nil {
		return "", err
	}

	local := filepath.Join(baseDir, host, strings.TrimSuffix(repoPath, ".git"))
	rel, err := filepath.Rel(filepath.Clean(baseDir), local)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("git URL %s escapes work dir %s", repoURL, baseDir)
	}
	return local, nil
}

func splitURL(repoURL string) (host, repoPath string, err error) {
	parsed, err := url.Parse(repoURL)
	if err == nil && (parsed.Scheme == "https" || parsed.Scheme == "http") {
		return parsed.Host, parsed.Path, nil
	}

	// scp-like syntax: git@host:owner/repo.git
	user, rest, ok := strings.Cut(repoURL, "@")
	if ok && user != "" {
		host, repoPath, ok := strings.Cut(rest, ":")
		if ok && host != "" && repoPath != "" {
			return host, repoPath, nil
		}
	}
	return "", "", fmt.Errorf("could not parse git URL: %s", repoURL)
}
