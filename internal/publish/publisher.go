package publish

import (
	"context"
	"fmt"

	"github.com/andresuchdata/zenodo-publish/internal/metadata"
	"github.com/andresuchdata/zenodo-publish/pkg/logger"
)

// Step names a publisher call.
type Step string

const (
	StepMetadata Step = "metadata"
	StepUpload   Step = "upload"
	StepPublish  Step = "publish"
)

// StepResult is the outcome of one publisher step.
type StepResult struct {
	Step    Step
	Skipped bool
	Err     error
}

// Publisher pushes metadata and the payload into a resolved draft.
type Publisher struct {
	api       API
	debug     bool
	noPublish bool
}

// Run performs metadata update, upload and publish in order. Each step runs
// regardless of how the previous one went; failures are logged and returned.
func (p *Publisher) Run(ctx context.Context, id string, rec *metadata.Record, payload Payload) []StepResult {
	return []StepResult{
		p.updateMetadata(ctx, id, rec),
		p.upload(ctx, id, payload),
		p.publish(ctx, id),
	}
}

func (p *Publisher) updateMetadata(ctx context.Context, id string, rec *metadata.Record) StepResult {
	if p.debug {
		logger.Log.Info().Str("deposition", id).Msg("DEBUG: would upload these metadata:\n" + rec.Pretty())
		return StepResult{Step: StepMetadata, Skipped: true}
	}

	logger.Log.Info().Str("deposition", id).Msg("updating metadata")
	_, err := p.api.UpdateMetadata(ctx, id, rec)
	return finish(StepMetadata, id, err)
}

func (p *Publisher) upload(ctx context.Context, id string, payload Payload) StepResult {
	if p.debug {
		logger.Log.Info().Str("deposition", id).Str("file", payload.Name()).Msg("DEBUG: would upload this file")
		return StepResult{Step: StepUpload, Skipped: true}
	}

	logger.Log.Info().Str("deposition", id).Str("file", payload.Name()).Msg("uploading file")
	return finish(StepUpload, id, p.send(ctx, id, payload))
}

func (p *Publisher) send(ctx context.Context, id string, payload Payload) error {
	rc, err := payload.Open()
	if err != nil {
		return err
	}
	defer rc.Close()

	file, err := p.api.UploadFile(ctx, id, payload.Name(), rc)
	if err != nil {
		return err
	}
	logger.Log.Info().Str("file_id", file.ID).Int64("size", file.Filesize).Str("checksum", file.Checksum).Msg("file stored")
	return nil
}

func (p *Publisher) publish(ctx context.Context, id string) StepResult {
	switch {
	case p.debug:
		logger.Log.Info().Str("deposition", id).Msg("DEBUG: would publish deposition")
		return StepResult{Step: StepPublish, Skipped: true}
	case p.noPublish:
		logger.Log.Info().Str("deposition", id).Msg("NOTE: deposition has not been published")
		return StepResult{Step: StepPublish, Skipped: true}
	}

	logger.Log.Info().Str("deposition", id).Msg("publishing deposition")
	_, err := p.api.Publish(ctx, id)
	return finish(StepPublish, id, err)
}

func finish(step Step, id string, err error) StepResult {
	if err != nil {
		err = fmt.Errorf("%s step for deposition %s: %w", step, id, err)
		logger.Log.Error().Err(err).Msg("step failed")
	}
	return StepResult{Step: step, Err: err}
}
