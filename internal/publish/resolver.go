package publish

import (
	"context"
	"fmt"

	"github.com/andresuchdata/zenodo-publish/internal/zenodo"
	"github.com/andresuchdata/zenodo-publish/pkg/logger"
)

// State is a step of deposition resolution.
type State string

const (
	StateNoMatch               State = "NO_MATCH"
	StateMatched               State = "MATCHED"
	StateVersioning            State = "VERSIONING"
	StateVersionBlockedByFiles State = "VERSION_BLOCKED_BY_FILES"
	StateFallbackNew           State = "FALLBACK_NEW"
	StateResolved              State = "RESOLVED"
)

// Resolution is the outcome of resolving a draft to upload into.
type Resolution struct {
	// DepositionID is the draft all later calls target. In dry runs it is
	// the matched record id, or empty when a new deposition would be made.
	DepositionID string

	// Bucket is the draft's file bucket link, informational only.
	Bucket string

	// NewVersion is true when the draft continues an existing series.
	NewVersion bool

	DryRun bool
	Trace  []State
}

// Resolver opens the draft deposition for a run.
type Resolver struct {
	api   API
	debug bool
}

// Resolve versions match when given, falling back to a brand new deposition
// whenever versioning fails. Only a failed deposition creation is an error.
func (r *Resolver) Resolve(ctx context.Context, match *zenodo.RecordSummary) (Resolution, error) {
	res := Resolution{Trace: []State{StateNoMatch}, DryRun: r.debug}

	if match != nil {
		res.Trace = append(res.Trace, StateMatched)
		logger.Log.Info().Str("record", match.ID).Msg("creating a new version of earlier record")

		if r.debug {
			logger.Log.Info().Str("record", match.ID).Msg("DEBUG: would request a new version")
			res.DepositionID = match.ID
			res.NewVersion = true
			res.Trace = append(res.Trace, StateResolved)
			return res, nil
		}

		dep, err := r.newVersion(ctx, match.ID, &res)
		if err == nil && dep.LatestDraftID() == "" {
			err = fmt.Errorf("%w: new version of %s has no draft link", zenodo.ErrUnexpectedResponse, match.ID)
		}
		if err == nil {
			res.DepositionID = dep.LatestDraftID()
			res.Bucket = dep.Links.Bucket
			res.NewVersion = true
			res.Trace = append(res.Trace, StateResolved)
			return res, nil
		}

		logger.Log.Warn().Err(err).Int("status", zenodo.StatusCode(err)).
			Msg("error creating new version, falling back to creating new deposition")
		res.Trace = append(res.Trace, StateFallbackNew)
	}

	logger.Log.Info().Msg("creating a new deposition")
	if r.debug {
		logger.Log.Info().Msg("DEBUG: would create a new deposition")
		res.Trace = append(res.Trace, StateResolved)
		return res, nil
	}

	dep, err := r.api.CreateDeposition(ctx)
	if err != nil {
		return res, fmt.Errorf("failed to create deposition: %w", err)
	}
	res.DepositionID = dep.ID.String()
	res.Bucket = dep.Links.Bucket
	res.Trace = append(res.Trace, StateResolved)
	return res, nil
}

// newVersion requests a new draft of id. When the archive refuses because the
// previous draft still holds files, those are deleted and the request is
// retried once.
func (r *Resolver) newVersion(ctx context.Context, id string, res *Resolution) (*zenodo.Deposition, error) {
	res.Trace = append(res.Trace, StateVersioning)
	dep, err := r.api.NewVersion(ctx, id)
	if err == nil || !zenodo.IsFilesPresent(err) {
		return dep, err
	}

	res.Trace = append(res.Trace, StateVersionBlockedByFiles)
	logger.Log.Info().Str("record", id).Msg("removing existing files before creating new version")
	if err := r.clearFiles(ctx, id); err != nil {
		return nil, err
	}

	res.Trace = append(res.Trace, StateVersioning)
	return r.api.NewVersion(ctx, id)
}

func (r *Resolver) clearFiles(ctx context.Context, id string) error {
	current, err := r.api.GetDeposition(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to list files of %s: %w", id, err)
	}

	for _, f := range current.Files {
		if f.ID == "" {
			continue
		}
		logger.Log.Info().Str("record", id).Str("file", f.ID).Msg("removing file")
		// a failed delete surfaces again as a refused retry
		if err := r.api.DeleteFile(ctx, id, f.ID); err != nil {
			logger.Log.Warn().Err(err).Str("file", f.ID).Msg("delete failed")
		}
	}
	return nil
}
