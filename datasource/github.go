package datasource

import (
	"context"
	"io/fs"
	"path"

	"github.com/google/go-github/v58/github"
	"golang.org/x/oauth2"
)

// GithubConfig configures the remote-repository backend. The fields map
// onto the ZHANG_GITHUB_* environment variables.
type GithubConfig struct {
	Token string
	Owner string
	Repo  string
}

// GithubOperator stores ledger files in a GitHub repository via the
// contents API. Each write is a single commit, which the API applies
// atomically per file.
type GithubOperator struct {
	client *github.Client
	owner  string
	repo   string
}

// NewGithubOperator creates a GitHub operator from its configuration.
func NewGithubOperator(ctx context.Context, cfg GithubConfig) *GithubOperator {
	source := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: cfg.Token})
	client := github.NewClient(oauth2.NewClient(ctx, source))
	return &GithubOperator{client: client, owner: cfg.Owner, repo: cfg.Repo}
}

var _ Operator = (*GithubOperator)(nil)

// Stat reports whether the path exists.
func (g *GithubOperator) Stat(ctx context.Context, p string) (bool, error) {
	_, _, resp, err := g.client.Repositories.GetContents(ctx, g.owner, g.repo, path.Clean(p), nil)
	if err != nil {
		if resp != nil && resp.StatusCode == 404 {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// Read returns the decoded file content; a missing file returns
// fs.ErrNotExist.
func (g *GithubOperator) Read(ctx context.Context, p string) ([]byte, error) {
	file, _, resp, err := g.client.Repositories.GetContents(ctx, g.owner, g.repo, path.Clean(p), nil)
	if err != nil {
		if resp != nil && resp.StatusCode == 404 {
			return nil, fs.ErrNotExist
		}
		return nil, err
	}
	if file == nil {
		return nil, fs.ErrNotExist
	}
	content, err := file.GetContent()
	if err != nil {
		return nil, err
	}
	return []byte(content), nil
}

// Write creates or updates the file in a single commit.
func (g *GithubOperator) Write(ctx context.Context, p string, content []byte) error {
	clean := path.Clean(p)
	message := "update " + clean
	opts := &github.RepositoryContentFileOptions{
		Message: &message,
		Content: content,
	}

	file, _, resp, err := g.client.Repositories.GetContents(ctx, g.owner, g.repo, clean, nil)
	switch {
	case err == nil && file != nil:
		opts.SHA = file.SHA
		_, _, err = g.client.Repositories.UpdateFile(ctx, g.owner, g.repo, clean, opts)
		return err
	case resp != nil && resp.StatusCode == 404:
		_, _, err = g.client.Repositories.CreateFile(ctx, g.owner, g.repo, clean, opts)
		return err
	default:
		return err
	}
}

// List returns the directory's entries.
func (g *GithubOperator) List(ctx context.Context, dir string) ([]DirEntry, error) {
	_, contents, resp, err := g.client.Repositories.GetContents(ctx, g.owner, g.repo, path.Clean(dir), nil)
	if err != nil {
		if resp != nil && resp.StatusCode == 404 {
			return nil, fs.ErrNotExist
		}
		return nil, err
	}
	entries := make([]DirEntry, 0, len(contents))
	for _, content := range contents {
		entries = append(entries, DirEntry{
			Name:  content.GetName(),
			IsDir: content.GetType() == "dir",
		})
	}
	return entries, nil
}
