// Package source resolves the payload argument into a local file. Besides
// plain paths it understands s3://bucket/key and drive://<file id>, which are
// downloaded into a scratch directory that Close removes again.
package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/andresuchdata/zenodo-publish/internal/storage"
	"github.com/andresuchdata/zenodo-publish/pkg/logger"
)

// ErrNotConfigured is returned when a payload needs a backend nobody set up.
var ErrNotConfigured = errors.New("payload backend not configured")

type Kind string

const (
	KindLocal Kind = "local"
	KindS3    Kind = "s3"
	KindDrive Kind = "drive"
)

// Ref is a parsed payload reference.
type Ref struct {
	Kind   Kind
	Path   string
	Bucket string
	Key    string
	FileID string
}

// ParseRef splits a payload argument into its parts.
func ParseRef(raw string) (Ref, error) {
	raw = strings.TrimSpace(raw)
	switch {
	case raw == "":
		return Ref{}, fmt.Errorf("payload reference is empty")
	case strings.HasPrefix(raw, "s3://"):
		rest := strings.TrimPrefix(raw, "s3://")
		bucket, key, _ := strings.Cut(rest, "/")
		key = strings.TrimPrefix(key, "/")
		if bucket == "" || key == "" || strings.HasSuffix(key, "/") {
			return Ref{}, fmt.Errorf("s3 payload %q must name a bucket and an object key", raw)
		}
		return Ref{Kind: KindS3, Bucket: bucket, Key: key}, nil
	case strings.HasPrefix(raw, "drive://"):
		id := strings.Trim(strings.TrimPrefix(raw, "drive://"), "/")
		if id == "" {
			return Ref{}, fmt.Errorf("drive payload %q must name a file id", raw)
		}
		return Ref{Kind: KindDrive, FileID: id}, nil
	default:
		return Ref{Kind: KindLocal, Path: strings.TrimPrefix(raw, "file://")}, nil
	}
}

// DriveDownloader fetches files from Google Drive.
type DriveDownloader interface {
	FileName(ctx context.Context, fileID string) (string, error)
	DownloadFile(ctx context.Context, fileID string, w io.Writer) error
}

// Payload is a local, readable copy of the file to publish.
type Payload struct {
	name    string
	path    string
	cleanup func() error
}

// Name is the basename the archive will see.
func (p *Payload) Name() string { return p.name }

// Path is where the payload lives on disk.
func (p *Payload) Path() string { return p.path }

// Open opens the payload for reading. Callers close the returned reader.
func (p *Payload) Open() (io.ReadCloser, error) {
	f, err := os.Open(p.path)
	if err != nil {
		return nil, fmt.Errorf("failed to open payload %s: %w", p.path, err)
	}
	return f, nil
}

// Close releases any scratch space held by the payload.
func (p *Payload) Close() error {
	if p.cleanup == nil {
		return nil
	}
	err := p.cleanup()
	p.cleanup = nil
	return err
}

// Resolver turns references into payloads.
type Resolver struct {
	Objects storage.ObjectStorage
	Drive   DriveDownloader

	// TempDir is where remote payloads are staged; defaults to os.TempDir().
	TempDir string
}

// Resolve makes raw available locally.
func (r *Resolver) Resolve(ctx context.Context, raw string) (*Payload, error) {
	ref, err := ParseRef(raw)
	if err != nil {
		return nil, err
	}

	switch ref.Kind {
	case KindS3:
		return r.fetchObject(ctx, ref)
	case KindDrive:
		return r.fetchDrive(ctx, ref)
	default:
		return local(ref.Path)
	}
}

func local(p string) (*Payload, error) {
	info, err := os.Stat(p)
	if err != nil {
		return nil, fmt.Errorf("payload %s: %w", p, err)
	}
	if !info.Mode().IsRegular() {
		return nil, fmt.Errorf("payload %s is not a regular file", p)
	}
	return &Payload{name: filepath.Base(p), path: p}, nil
}

func (r *Resolver) fetchObject(ctx context.Context, ref Ref) (*Payload, error) {
	if r.Objects == nil {
		return nil, fmt.Errorf("s3://%s/%s: %w", ref.Bucket, ref.Key, ErrNotConfigured)
	}

	info, err := r.Objects.StatObject(ctx, ref.Bucket, ref.Key)
	if err != nil {
		return nil, err
	}

	dir, err := r.scratch()
	if err != nil {
		return nil, err
	}
	name := path.Base(ref.Key)
	dest := filepath.Join(dir, name)

	logger.Log.Info().Str("bucket", ref.Bucket).Str("key", ref.Key).Int64("size", info.Size).
		Msg("downloading payload from object storage")
	if err := r.Objects.DownloadObject(ctx, ref.Bucket, ref.Key, dest); err != nil {
		os.RemoveAll(dir)
		return nil, err
	}
	return &Payload{name: name, path: dest, cleanup: removeDir(dir)}, nil
}

func (r *Resolver) fetchDrive(ctx context.Context, ref Ref) (*Payload, error) {
	if r.Drive == nil {
		return nil, fmt.Errorf("drive://%s: %w", ref.FileID, ErrNotConfigured)
	}

	name, err := r.Drive.FileName(ctx, ref.FileID)
	if err != nil {
		return nil, err
	}
	name = filepath.Base(name)
	if name == "." || name == string(filepath.Separator) {
		return nil, fmt.Errorf("drive file %s has no usable name", ref.FileID)
	}

	dir, err := r.scratch()
	if err != nil {
		return nil, err
	}
	dest := filepath.Join(dir, name)

	logger.Log.Info().Str("file_id", ref.FileID).Str("name", name).Msg("downloading payload from drive")
	if err := writeTo(dest, func(w io.Writer) error {
		return r.Drive.DownloadFile(ctx, ref.FileID, w)
	}); err != nil {
		os.RemoveAll(dir)
		return nil, fmt.Errorf("failed to download %s: %w", name, err)
	}
	return &Payload{name: name, path: dest, cleanup: removeDir(dir)}, nil
}

func (r *Resolver) scratch() (string, error) {
	root := r.TempDir
	if root == "" {
		root = os.TempDir()
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return "", fmt.Errorf("failed to create download dir: %w", err)
	}
	dir, err := os.MkdirTemp(root, "zenodo-publish-")
	if err != nil {
		return "", fmt.Errorf("failed to create scratch dir: %w", err)
	}
	return dir, nil
}

func writeTo(dest string, fill func(io.Writer) error) error {
	out, err := os.Create(dest)
	if err != nil {
		return fmt.Errorf("failed to create local file %s: %w", dest, err)
	}
	if err := fill(out); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

func removeDir(dir string) func() error {
	return func() error {
		return os.RemoveAll(dir)
	}
}
