// Package worker provides a NATS worker that turns text jobs into audio with the studio's profiles.
package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/book-expert/events"
	"github.com/book-expert/logger"
	"github.com/book-expert/tts-studio/internal/core"
	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
)

// ErrTextKeyEmpty indicates that a job did not name its text object.
var ErrTextKeyEmpty = errors.New("text key cannot be empty")

// NatsWorker listens for TextProcessedEvent jobs on a NATS subject. The event's
// Voice names the voice profile to speak with; empty selects the current one.
type NatsWorker struct {
	natsConnection *nats.Conn
	subject        string
	replySubject   string
	store          core.ObjectStore
	synthesizer    core.Synthesizer
	log            *logger.Logger
}

// NewNatsWorker creates a new instance of a NATS worker. Replies go back on the
// request's reply subject, or are published on replySubject when the job was a
// plain publish.
func NewNatsWorker(
	natsConnection *nats.Conn,
	subject string,
	replySubject string,
	store core.ObjectStore,
	synthesizer core.Synthesizer,
	log *logger.Logger,
) *NatsWorker {
	return &NatsWorker{
		natsConnection: natsConnection,
		subject:        subject,
		replySubject:   replySubject,
		store:          store,
		synthesizer:    synthesizer,
		log:            log,
	}
}

// Run starts the worker and blocks until ctx is done. Jobs are handled one at a time.
func (w *NatsWorker) Run(ctx context.Context) error {
	sub, err := w.natsConnection.Subscribe(w.subject, func(msg *nats.Msg) {
		w.handleMessage(ctx, msg)
	})
	if err != nil {
		return fmt.Errorf("failed to subscribe to subject %s: %w", w.subject, err)
	}

	w.log.System("Listening for jobs on subject: %s", w.subject)

	<-ctx.Done()

	drainErr := sub.Drain()
	if drainErr != nil {
		return fmt.Errorf("failed to drain subscription: %w", drainErr)
	}

	return nil
}

func (w *NatsWorker) handleMessage(ctx context.Context, msg *nats.Msg) {
	event, err := w.parseAndValidateEvent(msg)
	if err != nil {
		w.log.Error("Failed to parse and validate event: %v", err)

		return
	}

	audioKey, processErr := w.processTTSJob(ctx, event)
	if processErr != nil {
		w.log.Error("Failed to process TTS job for event %s: %v", event.Header.WorkflowID, processErr)

		return
	}

	replyEvent := &events.AudioChunkCreatedEvent{
		Header:     event.Header,
		AudioKey:   audioKey,
		PageNumber: event.PageNumber,
		TotalPages: event.TotalPages,
	}

	err = w.publishReplyEvent(msg, replyEvent)
	if err != nil {
		w.log.Error("Failed to publish reply event for workflow %s: %v", event.Header.WorkflowID, err)
	}
}

// processTTSJob downloads the job text, synthesizes it through the profile the
// event names, and uploads the written audio.
func (w *NatsWorker) processTTSJob(ctx context.Context, event *events.TextProcessedEvent) (string, error) {
	textData, err := w.store.Download(ctx, event.TextKey)
	if err != nil {
		return "", fmt.Errorf("failed to download text data for key '%s': %w", event.TextKey, err)
	}

	result, err := w.synthesizer.Synthesize(ctx, string(textData), event.Voice)
	if err != nil {
		return "", fmt.Errorf("failed to process text to speech: %w", err)
	}

	audioData, err := os.ReadFile(result.Path)
	if err != nil {
		return "", fmt.Errorf("failed to read synthesized audio '%s': %w", result.Path, err)
	}

	audioKey := uuid.NewString() + "." + result.Format

	err = w.store.Upload(ctx, audioKey, audioData)
	if err != nil {
		return "", fmt.Errorf("failed to upload audio data for key '%s': %w", audioKey, err)
	}

	w.log.Info("Workflow %s: %s -> %s (profile %q)",
		event.Header.WorkflowID, event.TextKey, audioKey, result.ProfileName)

	return audioKey, nil
}

// publishReplyEvent answers the request, or publishes on the reply subject
// when the job arrived without one.
func (w *NatsWorker) publishReplyEvent(msg *nats.Msg, replyEvent *events.AudioChunkCreatedEvent) error {
	replyData, err := json.Marshal(replyEvent)
	if err != nil {
		return fmt.Errorf("failed to marshal reply event: %w", err)
	}

	if msg.Reply != "" {
		err = msg.Respond(replyData)
	} else {
		err = w.natsConnection.Publish(w.replySubject, replyData)
	}

	if err != nil {
		return fmt.Errorf("failed to publish reply event: %w", err)
	}

	return nil
}

func (w *NatsWorker) parseAndValidateEvent(msg *nats.Msg) (*events.TextProcessedEvent, error) {
	var event events.TextProcessedEvent

	err := json.Unmarshal(msg.Data, &event)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal event: %w", err)
	}

	if event.TextKey == "" {
		return nil, ErrTextKeyEmpty
	}

	return &event, nil
}
