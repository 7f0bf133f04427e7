package fanout

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"pushflow/internal/broker"
	"pushflow/internal/config"
	"pushflow/internal/contacts"
	"pushflow/internal/logger"
	"pushflow/pkg/logging"
	"pushflow/pkg/metrics"
	"pushflow/pkg/models"
)

// publishConcurrency bounds concurrent publishes within one chunk.
const publishConcurrency = 8

// SendRequest is one API-level send: a message for a domain, delivered either
// to an explicit recipient list or to every active contact of the domain.
type SendRequest struct {
	Domain    string
	MessageID string

	Title    string
	Body     string
	Link     string
	ImageURL string
	Actions  []models.PushAction

	ReceivedEventEndpoint string
	ClickedEventEndpoint  string

	// MandatoryPersonalization rejects a recipient before publishing when
	// any referenced placeholder has no value for them.
	MandatoryPersonalization bool
}

// Recipient is one targeted-mode addressee with optional personalization
// values.
type Recipient struct {
	Subscription models.Subscription
	Fields       map[string]string
}

// Rejection names the placeholders that blocked one recipient's dispatch,
// separately for title and body. No task was published for them.
type Rejection struct {
	Endpoint     string
	MissingTitle []string
	MissingBody  []string
}

type ContactStreamer interface {
	StreamActiveByDomain(ctx context.Context, domain string) (contacts.Stream, error)
}

// Producer turns send requests into individually published push tasks.
type Producer struct {
	queue     string
	chunkSize int
	publisher broker.Producer
	contacts  ContactStreamer
	resolver  Resolver
	logger    logger.Logger
}

func NewProducer(cfg config.FanoutConfig, publisher broker.Producer, contactStore ContactStreamer, resolver Resolver, log logger.Logger) *Producer {
	return &Producer{
		queue:     cfg.Queue,
		chunkSize: cfg.ChunkSize,
		publisher: publisher,
		contacts:  contactStore,
		resolver:  resolver,
		logger:    log,
	}
}

// SendToRecipients validates and publishes one task per recipient. Recipients
// failing mandatory-personalization validation are returned as rejections and
// get no task; a publish failure aborts the remainder.
func (p *Producer) SendToRecipients(ctx context.Context, req SendRequest, recipients []Recipient) ([]Rejection, error) {
	ctx = logging.WithDomain(ctx, req.Domain)
	ctx = logging.WithMessageID(ctx, req.MessageID)

	var rejections []Rejection
	published := 0

	for _, recipient := range recipients {
		if req.MandatoryPersonalization {
			missingTitle := p.resolver.FindMissingPlaceholders(req.Title, recipient.Fields)
			missingBody := p.resolver.FindMissingPlaceholders(req.Body, recipient.Fields)
			if len(missingTitle) > 0 || len(missingBody) > 0 {
				metrics.FanoutRejectedRecipientsTotal.Inc()
				rejections = append(rejections, Rejection{
					Endpoint:     recipient.Subscription.Endpoint,
					MissingTitle: missingTitle,
					MissingBody:  missingBody,
				})
				continue
			}
		}

		task := p.buildTask(req, recipient.Subscription, recipient.Fields)
		if err := p.publisher.Publish(ctx, p.queue, task); err != nil {
			return rejections, fmt.Errorf("failed to publish push task: %w", err)
		}
		published++
	}

	metrics.FanoutTasksPublishedTotal.WithLabelValues("targeted").Add(float64(published))
	p.logger.InfowCtx(ctx, "Targeted fan-out published",
		"published", published,
		"rejected", len(rejections),
	)
	return rejections, nil
}

// SendToDomain fans the message out to every active contact of the domain.
// It returns as soon as the fan-out is scheduled; publishing proceeds in the
// background in bounded-size chunks. A mid-stream failure stops the stream;
// tasks already published still proceed to delivery.
func (p *Producer) SendToDomain(ctx context.Context, req SendRequest) {
	fanoutCtx := context.WithoutCancel(ctx)
	fanoutCtx = logging.WithDomain(fanoutCtx, req.Domain)
	fanoutCtx = logging.WithMessageID(fanoutCtx, req.MessageID)

	go func() {
		if err := p.FanOutDomain(fanoutCtx, req); err != nil {
			p.logger.ErrorwCtx(fanoutCtx, "Domain fan-out aborted",
				"error", err,
			)
		}
	}()
}

// FanOutDomain is the synchronous form of SendToDomain: it blocks until the
// whole contact stream has been published or the fan-out aborts.
func (p *Producer) FanOutDomain(ctx context.Context, req SendRequest) error {
	stream, err := p.contacts.StreamActiveByDomain(ctx, req.Domain)
	if err != nil {
		return fmt.Errorf("failed to open contact stream: %w", err)
	}
	defer stream.Close(ctx)

	published := 0
	chunk := make([]models.PushTask, 0, p.chunkSize)

	for stream.Next(ctx) {
		contact, err := stream.Contact()
		if err != nil {
			return err
		}

		chunk = append(chunk, p.buildTask(req, contact.Subscription(), contact.Fields))
		if len(chunk) < p.chunkSize {
			continue
		}

		if err := p.publishChunk(ctx, chunk); err != nil {
			return err
		}
		published += len(chunk)
		chunk = chunk[:0]
	}
	if err := stream.Err(); err != nil {
		return fmt.Errorf("contact stream failed: %w", err)
	}

	if len(chunk) > 0 {
		if err := p.publishChunk(ctx, chunk); err != nil {
			return err
		}
		published += len(chunk)
	}

	metrics.FanoutTasksPublishedTotal.WithLabelValues("domain").Add(float64(published))
	p.logger.InfowCtx(ctx, "Domain fan-out finished",
		"published", published,
	)
	return nil
}

func (p *Producer) publishChunk(ctx context.Context, chunk []models.PushTask) error {
	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(publishConcurrency)

	for _, task := range chunk {
		g.Go(func() error {
			return p.publisher.Publish(gCtx, p.queue, task)
		})
	}

	if err := g.Wait(); err != nil {
		return fmt.Errorf("failed to publish fan-out chunk: %w", err)
	}
	return nil
}

func (p *Producer) buildTask(req SendRequest, subscription models.Subscription, fields map[string]string) models.PushTask {
	return models.PushTask{
		CorrelationID:         uuid.NewString(),
		Domain:                req.Domain,
		MessageID:             req.MessageID,
		CreatedAt:             time.Now().UTC(),
		Subscription:          subscription,
		Title:                 p.resolver.Resolve(req.Title, fields),
		Body:                  p.resolver.Resolve(req.Body, fields),
		Link:                  req.Link,
		ImageURL:              req.ImageURL,
		Actions:               req.Actions,
		ReceivedEventEndpoint: req.ReceivedEventEndpoint,
		ClickedEventEndpoint:  req.ClickedEventEndpoint,
	}
}
