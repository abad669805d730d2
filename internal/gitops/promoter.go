package gitops

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/go-git/go-billy/v5/memfs"
	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/plumbing/transport"
	githttp "github.com/go-git/go-git/v5/plumbing/transport/http"
	"github.com/go-git/go-git/v5/storage/memory"
	"go.uber.org/zap"
)

var (
	ErrAuthFailed = errors.New("authentication to tracking repository failed")
)

// Options configures a Promoter.
type Options struct {
	// RepoURL is the tracking repository holding the manifests.
	RepoURL string
	// Branch is the tracking branch the delivery controller watches.
	Branch string
	// ManifestPath is the manifest file inside the repository.
	ManifestPath string
	// ContainerName selects the container whose image is rewritten.
	ContainerName string
	// AuthorName and AuthorEmail form the automation identity the
	// promotion commit is attributed to.
	AuthorName  string
	AuthorEmail string
	// Token authenticates pushes. Empty for unauthenticated remotes
	// (local paths in tests).
	Token string
}

// Promoter performs the manifest-promotion step of the pipeline: it
// rewrites the image tag in the tracked Deployment manifest and
// publishes exactly one commit for the delivery controller to observe.
//
// There is deliberately no retry or backoff: any failure, including
// authentication, aborts the run and the deployment does not advance.
type Promoter struct {
	opts   Options
	logger *zap.Logger
}

// NewPromoter creates a Promoter
func NewPromoter(opts Options, logger *zap.Logger) *Promoter {
	return &Promoter{opts: opts, logger: logger}
}

// Promote clones the tracking branch, splices the new image reference
// into the manifest, commits with the automation identity, and pushes.
// When the manifest already references image the run is a no-op: the
// delivery controller never sees an empty commit.
//
// The push is compare-and-swap on the head observed at clone time, so
// two builds racing on the branch cannot silently interleave; the
// loser fails closed like any other push failure.
func (p *Promoter) Promote(ctx context.Context, image string) error {
	branchRef := plumbing.NewBranchReferenceName(p.opts.Branch)

	repo, err := git.CloneContext(ctx, memory.NewStorage(), memfs.New(), &git.CloneOptions{
		URL:           p.opts.RepoURL,
		Auth:          p.auth(),
		ReferenceName: branchRef,
		SingleBranch:  true,
	})
	if err != nil {
		return p.classify(fmt.Errorf("failed to clone tracking branch: %w", err))
	}

	head, err := repo.Head()
	if err != nil {
		return fmt.Errorf("failed to resolve tracking branch head: %w", err)
	}

	worktree, err := repo.Worktree()
	if err != nil {
		return fmt.Errorf("failed to open worktree: %w", err)
	}

	manifest, err := readFile(worktree, p.opts.ManifestPath)
	if err != nil {
		return fmt.Errorf("failed to read manifest %s: %w", p.opts.ManifestPath, err)
	}

	updated, oldImage, changed, err := SetContainerImage(manifest, p.opts.ContainerName, image)
	if err != nil {
		return fmt.Errorf("failed to update manifest: %w", err)
	}

	if !changed {
		p.logger.Info("Manifest already references image, nothing to promote",
			zap.String("image", image),
		)
		return nil
	}

	if err := writeFile(worktree, p.opts.ManifestPath, updated); err != nil {
		return fmt.Errorf("failed to write manifest: %w", err)
	}

	if _, err := worktree.Add(p.opts.ManifestPath); err != nil {
		return fmt.Errorf("failed to stage manifest: %w", err)
	}

	commit, err := worktree.Commit(fmt.Sprintf("deploy: %s", image), &git.CommitOptions{
		Author: &object.Signature{
			Name:  p.opts.AuthorName,
			Email: p.opts.AuthorEmail,
			When:  time.Now(),
		},
	})
	if err != nil {
		return fmt.Errorf("failed to commit manifest change: %w", err)
	}

	err = repo.PushContext(ctx, &git.PushOptions{
		Auth: p.auth(),
		RefSpecs: []config.RefSpec{
			config.RefSpec(branchRef.String() + ":" + branchRef.String()),
		},
		// Only update the branch if it still points where we fetched it
		RequireRemoteRefs: []config.RefSpec{
			config.RefSpec(head.Hash().String() + ":" + branchRef.String()),
		},
	})
	if err != nil {
		return p.classify(fmt.Errorf("failed to push promotion commit: %w", err))
	}

	p.logger.Info("Manifest promoted",
		zap.String("old_image", oldImage),
		zap.String("new_image", image),
		zap.String("branch", p.opts.Branch),
		zap.String("commit", commit.String()),
	)

	return nil
}

func (p *Promoter) auth() transport.AuthMethod {
	if p.opts.Token == "" {
		return nil
	}
	// GitHub and GitLab accept a token as the password with any
	// non-empty username over HTTPS.
	return &githttp.BasicAuth{
		Username: "x-access-token",
		Password: p.opts.Token,
	}
}

// classify maps transport auth errors onto ErrAuthFailed so callers
// can tell a credential problem from everything else.
func (p *Promoter) classify(err error) error {
	if errors.Is(err, transport.ErrAuthenticationRequired) || errors.Is(err, transport.ErrAuthorizationFailed) {
		return fmt.Errorf("%w: %v", ErrAuthFailed, err)
	}
	return err
}

func readFile(worktree *git.Worktree, path string) ([]byte, error) {
	f, err := worktree.Filesystem.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}

func writeFile(worktree *git.Worktree, path string, data []byte) error {
	f, err := worktree.Filesystem.Create(path)
	if err != nil {
		return err
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
