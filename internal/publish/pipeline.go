// Package publish reconciles a local release with the archive's record
// history and pushes it: find the record series, open a draft (a new
// version or a fresh deposition), then update metadata, upload and publish.
package publish

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/andresuchdata/zenodo-publish/internal/metadata"
	"github.com/andresuchdata/zenodo-publish/internal/release"
	"github.com/andresuchdata/zenodo-publish/internal/zenodo"
	"github.com/andresuchdata/zenodo-publish/pkg/logger"
)

// ErrNoDeposition is returned when no draft could be opened, so nothing can
// be uploaded.
var ErrNoDeposition = errors.New("no deposition resolved")

// API is the slice of the deposition service the pipeline drives.
type API interface {
	CheckToken(ctx context.Context) (int, error)
	SearchRecords(ctx context.Context, q zenodo.RecordQuery) ([]zenodo.RecordSummary, error)
	CreateDeposition(ctx context.Context) (*zenodo.Deposition, error)
	NewVersion(ctx context.Context, id string) (*zenodo.Deposition, error)
	GetDeposition(ctx context.Context, id string) (*zenodo.Deposition, error)
	DeleteFile(ctx context.Context, id, fileID string) error
	UpdateMetadata(ctx context.Context, id string, body any) (*zenodo.Deposition, error)
	UploadFile(ctx context.Context, id, name string, r io.Reader) (*zenodo.DepositionFile, error)
	Publish(ctx context.Context, id string) (*zenodo.Deposition, error)
}

// Payload is the file being published.
type Payload interface {
	Name() string
	Open() (io.ReadCloser, error)
}

// Options are the run switches.
type Options struct {
	// Debug suppresses every mutating call and logs the intent instead.
	Debug bool

	// NoPublish uploads but leaves the draft unpublished.
	NoPublish bool

	// MatchQuery matches series on the filename query instead of the title.
	MatchQuery bool

	Community string
	PageSize  int
}

// Request is the immutable input of one run.
type Request struct {
	Options Options
	Input   release.Input
	Record  *metadata.Record
	Payload Payload
}

// MatchKey is the substring the series lookup searches titles for.
func (r Request) MatchKey() string {
	if r.Options.MatchQuery && r.Input.Query != "" {
		return r.Input.Query
	}
	return r.Input.Title
}

// Result describes what a run did.
type Result struct {
	Match      *zenodo.RecordSummary
	Resolution Resolution
	Steps      []StepResult
}

// Failed reports whether any publisher step failed.
func (r *Result) Failed() bool {
	for _, s := range r.Steps {
		if s.Err != nil {
			return true
		}
	}
	return false
}

// Run executes the whole pipeline against api.
func Run(ctx context.Context, api API, req Request) (*Result, error) {
	if req.Record == nil {
		return nil, fmt.Errorf("metadata record is required")
	}
	if req.Payload == nil {
		return nil, fmt.Errorf("payload is required")
	}

	log := logger.Log.With().Str("title", req.Input.Title).Logger()

	if req.Options.Debug {
		status, err := api.CheckToken(ctx)
		ev := log.Info()
		if err != nil {
			ev = log.Warn().Err(err)
		}
		ev.Int("status", status).Msg("DEBUG: token check")
	}

	locator := &Locator{api: api, community: req.Options.Community, pageSize: req.Options.PageSize}
	index := locator.Locate(ctx, req.Payload.Name())

	result := &Result{}
	if match, ok := index.Match(req.MatchKey()); ok {
		result.Match = &match
		log.Info().Str("record", match.ID).Str("record_title", match.Title).Msg("found earlier version")
	} else {
		log.Info().Int("records", index.Len()).Msg("no earlier version found")
	}

	resolver := &Resolver{api: api, debug: req.Options.Debug}
	resolution, err := resolver.Resolve(ctx, result.Match)
	result.Resolution = resolution
	if err != nil {
		return result, err
	}
	if !resolution.DryRun && resolution.DepositionID == "" {
		return result, ErrNoDeposition
	}

	publisher := &Publisher{api: api, debug: req.Options.Debug, noPublish: req.Options.NoPublish}
	result.Steps = publisher.Run(ctx, resolution.DepositionID, req.Record, req.Payload)

	return result, nil
}
