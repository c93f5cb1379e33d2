package handler

import (
	"context"
	"encoding/json"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"

	"github.com/vivekg189/smart-classroom/dto"
	"github.com/vivekg189/smart-classroom/service"
)

type ServiceDependencies struct {
	TranscriptionService service.TranscriptionService
}

// TranscriptionJobHandler consumes one queued transcription job.
func TranscriptionJobHandler(ctx context.Context, msg amqp.Delivery, deps ServiceDependencies) error {
	var job dto.TranscriptionJobMessage
	if err := json.Unmarshal(msg.Body, &job); err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Msg("failed to unmarshal transcription job")
		return err
	}

	return deps.TranscriptionService.Process(ctx, job)
}
