// Package artifacts captures what the browser showed when a scenario failed
// (a screenshot and the page source) and stores it on disk or in S3.
package artifacts

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/kuitang/quoteform-e2e/internal/automation"
	"github.com/kuitang/quoteform-e2e/internal/config"
	"github.com/kuitang/quoteform-e2e/internal/obs"
	"github.com/kuitang/quoteform-e2e/internal/s3client"
)

// Artifact is one stored file.
type Artifact struct {
	Kind     string `json:"kind"`
	Location string `json:"location"`
	Bytes    int    `json:"bytes"`
}

const (
	KindScreenshot = "screenshot"
	KindPageSource = "page_source"
)

// Store persists artifact bytes and reports where they went.
type Store interface {
	Put(ctx context.Context, key string, data []byte, contentType string) (string, error)
}

// DirStore writes artifacts below Root.
type DirStore struct {
	Root string
}

func (d DirStore) Put(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	path := filepath.Join(d.Root, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("artifacts: create dir: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("artifacts: write %s: %w", path, err)
	}
	return path, nil
}

// S3Store uploads artifacts with an optional key prefix.
type S3Store struct {
	Client *s3client.Client
	Prefix string
}

func (s S3Store) Put(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	full := key
	if s.Prefix != "" {
		full = strings.TrimSuffix(s.Prefix, "/") + "/" + key
	}
	if err := s.Client.PutObject(ctx, full, data, contentType); err != nil {
		return "", err
	}
	return s.Client.URI(full), nil
}

// NewStore picks a store from configuration: S3 when a bucket is set, a local
// directory when ArtifactDir is set, otherwise nil (capture disabled).
func NewStore(ctx context.Context, cfg *config.Config) (Store, error) {
	switch {
	case cfg.ArtifactBucket != "":
		client, err := s3client.New(ctx, s3client.Config{
			Endpoint:        cfg.AWSEndpointS3,
			Region:          cfg.AWSRegion,
			AccessKeyID:     cfg.AWSAccessKeyID,
			SecretAccessKey: cfg.AWSSecretKey,
			BucketName:      cfg.ArtifactBucket,
			UsePathStyle:    cfg.AWSEndpointS3 != "",
		})
		if err != nil {
			return nil, err
		}
		return S3Store{Client: client}, nil
	case cfg.ArtifactDir != "":
		return DirStore{Root: cfg.ArtifactDir}, nil
	default:
		return nil, nil
	}
}

var unsafeKeyChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// KeyPrefix builds the "<run>/<scenario>" prefix artifacts are stored under.
func KeyPrefix(runID, scenario string) string {
	if runID == "" {
		runID = "run"
	}
	name := strings.Trim(unsafeKeyChars.ReplaceAllString(scenario, "-"), "-")
	if name == "" {
		name = "scenario"
	}
	return runID + "/" + name
}

// Capture takes a screenshot and the page source from b and stores both. It
// stores whatever it can; the returned error joins every failure.
func Capture(ctx context.Context, store Store, b automation.Browser, runID, scenario string) ([]Artifact, error) {
	if store == nil || b == nil {
		return nil, nil
	}
	log := obs.From(ctx).With("pkg", "artifacts")
	prefix := KeyPrefix(runID, scenario)

	var out []Artifact
	var errList []error
	put := func(kind, name, contentType string, data []byte) {
		loc, err := store.Put(ctx, prefix+"/"+name, data, contentType)
		if err != nil {
			errList = append(errList, err)
			return
		}
		out = append(out, Artifact{Kind: kind, Location: loc, Bytes: len(data)})
	}

	if shot, err := b.Screenshot(ctx); err != nil {
		errList = append(errList, fmt.Errorf("artifacts: screenshot: %w", err))
	} else {
		put(KindScreenshot, "screenshot.png", "image/png", shot)
	}
	if src, err := b.PageSource(ctx); err != nil {
		errList = append(errList, fmt.Errorf("artifacts: page source: %w", err))
	} else {
		put(KindPageSource, "page.html", "text/html; charset=utf-8", []byte(src))
	}

	err := errors.Join(errList...)
	if err != nil {
		log.Warn("artifact_capture_incomplete", "stored", len(out), "error", err)
	} else {
		log.Info("artifacts_captured", "count", len(out), "prefix", prefix)
	}
	return out, err
}
