package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"storefront/internal/config"
	"storefront/internal/gitops"
	"storefront/internal/logger"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

// promote is the pipeline step between "image pushed" and "delivery
// controller syncs": it rewrites the image tag in the tracked manifest
// and commits to the tracking branch. It makes exactly one attempt and
// exits nonzero on any failure so the pipeline fails closed.
func main() {
	// Best effort; CI provides real env vars
	_ = godotenv.Load()

	var (
		image     = flag.String("image", "", "full image reference to promote (registry/name:tag)")
		manifest  = flag.String("manifest", "", "manifest path in the tracking repository (overrides GITOPS_MANIFEST_PATH)")
		branch    = flag.String("branch", "", "tracking branch (overrides GITOPS_BRANCH)")
		container = flag.String("container", "", "container name in the Deployment (overrides GITOPS_CONTAINER_NAME)")
		timeout   = flag.Duration("timeout", 2*time.Minute, "overall timeout")
	)
	flag.Parse()

	if *image == "" {
		fmt.Fprintln(os.Stderr, "promote: -image is required")
		flag.Usage()
		os.Exit(2)
	}

	cfg := config.Load()

	log, err := logger.New(cfg.Server.Env)
	if err != nil {
		fmt.Fprintf(os.Stderr, "promote: failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	opts := gitops.Options{
		RepoURL:       cfg.GitOps.RepoURL,
		Branch:        cfg.GitOps.Branch,
		ManifestPath:  cfg.GitOps.ManifestPath,
		ContainerName: cfg.GitOps.ContainerName,
		AuthorName:    cfg.GitOps.AuthorName,
		AuthorEmail:   cfg.GitOps.AuthorEmail,
		Token:         cfg.GitOps.Token,
	}
	if *manifest != "" {
		opts.ManifestPath = *manifest
	}
	if *branch != "" {
		opts.Branch = *branch
	}
	if *container != "" {
		opts.ContainerName = *container
	}

	if opts.RepoURL == "" {
		log.Fatal("GITOPS_REPO_URL is not configured")
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	promoter := gitops.NewPromoter(opts, log)
	if err := promoter.Promote(ctx, *image); err != nil {
		log.Fatal("Promotion failed",
			zap.String("image", *image),
			zap.String("branch", opts.Branch),
			zap.Error(err),
		)
	}

	log.Info("Promotion complete", zap.String("image", *image))
}
