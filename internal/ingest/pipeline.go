// Package ingest turns inbound channel posts into catalog entries.
//
// A Pipeline runs one message start to finish: authenticity check, photo check, extraction,
// validation, duplicate guard, photo re-hosting with placeholder fallback, deep link, catalog
// append and event publication. Nothing is retried; a failed message is reported and dropped.
package ingest

import (
	"context"
	"crypto/subtle"
	"fmt"
	"strconv"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/SashaDiz/autoved-sub000/internal/catalog"
	"github.com/SashaDiz/autoved-sub000/internal/extract"
	"github.com/SashaDiz/autoved-sub000/internal/metrics"
	"github.com/SashaDiz/autoved-sub000/internal/telegram"
	"github.com/SashaDiz/autoved-sub000/internal/telemetry"
)

// Outcome is the coarse result of processing one message.
type Outcome string

// Possible outcomes.
const (
	OutcomeProcessed    Outcome = "processed"
	OutcomeNotProcessed Outcome = "not_processed"
	OutcomeUnauthorized Outcome = "unauthorized"
	OutcomeFailed       Outcome = "failed"
)

// Reasons attached to non-processed outcomes.
const (
	ReasonNoPhoto    = "no_photo"
	ReasonNotListing = "not_listing"
	ReasonInvalid    = "invalid"
	ReasonDuplicate  = "duplicate"
	ReasonBadSecret  = "bad_secret"
	ReasonWriteError = "write_error"
)

// EventEntryCreated is the event name published after a successful append.
const EventEntryCreated = "catalog.entry.created"

// Result reports what happened to a message. Entry is set only when Outcome is processed.
type Result struct {
	Outcome Outcome
	Reason  string
	Entry   *catalog.CatalogEntry
}

// Processed reports whether the message became a catalog entry.
func (r Result) Processed() bool {
	return r.Outcome == OutcomeProcessed
}

// EntryCreated is the payload of catalog.entry.created events.
type EntryCreated struct {
	Event     string    `json:"event"`
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	SortOrder int       `json:"sort_order"`
	ImageURL  string    `json:"image_url"`
	Link      string    `json:"link"`
	CreatedAt time.Time `json:"created_at"`
}

// Extractor parses a message into a candidate listing.
type Extractor interface {
	Extract(msg telegram.Message) (catalog.CandidateListing, bool)
}

// AssetRetriever re-hosts a photo and knows the placeholder URL.
type AssetRetriever interface {
	Retrieve(ctx context.Context, ref string) (string, error)
	DefaultURL() string
}

// Writer appends entries to the catalog.
type Writer interface {
	Append(ctx context.Context, entry catalog.CatalogEntry) (catalog.CatalogEntry, error)
}

// Config holds pipeline settings.
type Config struct {
	// Secret, when set, must equal the token passed to Process.
	Secret string
	// EventTopic is passed to the publisher; empty selects its default.
	EventTopic string
}

// Option customises a Pipeline.
type Option func(*Pipeline)

// WithDeduper enables the duplicate-message guard.
func WithDeduper(d catalog.Deduper) Option {
	return func(p *Pipeline) { p.deduper = d }
}

// WithPublisher enables catalog event publication.
func WithPublisher(pub catalog.Publisher) Option {
	return func(p *Pipeline) { p.publisher = pub }
}

// WithLogger sets the pipeline logger.
func WithLogger(l *zap.Logger) Option {
	return func(p *Pipeline) {
		if l != nil {
			p.logger = l
		}
	}
}

// WithTracer overrides the tracer used for pipeline spans.
func WithTracer(t trace.Tracer) Option {
	return func(p *Pipeline) {
		if t != nil {
			p.tracer = t
		}
	}
}

// Pipeline coordinates extraction, asset retrieval and catalog writes. It is safe for
// concurrent use; invocations share no mutable state.
type Pipeline struct {
	cfg       Config
	extractor Extractor
	assets    AssetRetriever
	writer    Writer
	deduper   catalog.Deduper
	publisher catalog.Publisher
	logger    *zap.Logger
	tracer    trace.Tracer
}

// New builds a Pipeline.
func New(cfg Config, extractor Extractor, assets AssetRetriever, writer Writer, opts ...Option) (*Pipeline, error) {
	if extractor == nil || assets == nil || writer == nil {
		return nil, fmt.Errorf("ingest pipeline requires extractor, asset retriever and writer")
	}
	p := &Pipeline{
		cfg:       cfg,
		extractor: extractor,
		assets:    assets,
		writer:    writer,
		logger:    zap.NewNop(),
		tracer:    telemetry.Tracer(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Process runs one message through the pipeline. token is the authenticity token that came
// with the message. Expected rejections are reported through Result; the error is non-nil
// only when the catalog write fails.
func (p *Pipeline) Process(ctx context.Context, msg telegram.Message, token string) (res Result, err error) {
	ctx, span := p.tracer.Start(ctx, "ingest.process", trace.WithAttributes(
		attribute.Int64("telegram.message_id", msg.MessageID),
	))
	defer func() {
		span.SetAttributes(attribute.String("ingest.outcome", string(res.Outcome)), attribute.String("ingest.reason", res.Reason))
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
		metrics.ObserveIngest(string(res.Outcome), res.Reason)
	}()

	logger := p.logger.With(zap.Int64("message_id", msg.MessageID))
	if msg.Chat != nil {
		logger = logger.With(zap.Int64("chat_id", msg.Chat.ID))
	}

	if !p.authorized(token) {
		logger.Warn("rejected message with invalid secret")
		return Result{Outcome: OutcomeUnauthorized, Reason: ReasonBadSecret}, nil
	}
	if !msg.HasPhoto() {
		logger.Debug("skipping message without photo")
		return notProcessed(ReasonNoPhoto), nil
	}

	candidate, ok := p.extract(ctx, msg)
	if !ok {
		logger.Debug("message is not a listing")
		return notProcessed(ReasonNotListing), nil
	}
	if verr := extract.Validate(candidate); verr != nil {
		logger.Info("listing failed validation", zap.Error(verr))
		return notProcessed(ReasonInvalid), nil
	}

	claimKey, claimed := p.claim(ctx, logger, msg)
	if claimKey != "" && !claimed {
		logger.Info("duplicate message skipped", zap.String("key", claimKey))
		return notProcessed(ReasonDuplicate), nil
	}

	imageURL := p.retrieveImage(ctx, logger, candidate.ImageReference)
	link := DeepLink(msg)
	if link == "" {
		link = candidate.ExternalLink
	}

	entry, err := p.write(ctx, catalog.NewEntry(candidate, imageURL, link))
	if err != nil {
		logger.Error("catalog write failed", zap.Error(err))
		if claimKey != "" {
			if rerr := p.deduper.Release(ctx, claimKey); rerr != nil {
				logger.Warn("release duplicate guard failed", zap.Error(rerr))
			}
		}
		return Result{Outcome: OutcomeFailed, Reason: ReasonWriteError}, fmt.Errorf("append catalog entry: %w", err)
	}

	logger.Info("catalog entry created",
		zap.String("id", entry.ID),
		zap.Int("sort_order", entry.SortOrder),
		zap.String("title", entry.Title),
	)
	p.publish(ctx, logger, entry)
	return Result{Outcome: OutcomeProcessed, Entry: &entry}, nil
}

func (p *Pipeline) authorized(token string) bool {
	if p.cfg.Secret == "" {
		return true
	}
	return subtle.ConstantTimeCompare([]byte(token), []byte(p.cfg.Secret)) == 1
}

func (p *Pipeline) extract(ctx context.Context, msg telegram.Message) (catalog.CandidateListing, bool) {
	_, span := p.tracer.Start(ctx, "ingest.extract")
	defer span.End()
	c, ok := p.extractor.Extract(msg)
	span.SetAttributes(attribute.Bool("extract.listing", ok))
	return c, ok
}

// claim returns the guard key and whether this call owns it. An empty key means no guard
// applies; guard errors fail open.
func (p *Pipeline) claim(ctx context.Context, logger *zap.Logger, msg telegram.Message) (string, bool) {
	if p.deduper == nil || msg.Chat == nil || msg.MessageID == 0 {
		return "", true
	}
	key := MessageKey(msg)
	ok, err := p.deduper.Claim(ctx, key)
	if err != nil {
		logger.Warn("duplicate guard unavailable, continuing", zap.Error(err))
		return "", true
	}
	return key, ok
}

func (p *Pipeline) retrieveImage(ctx context.Context, logger *zap.Logger, ref string) string {
	ctx, span := p.tracer.Start(ctx, "ingest.asset")
	defer span.End()

	start := time.Now()
	url, err := p.assets.Retrieve(ctx, ref)
	if ref != "" {
		metrics.ObserveAssetRetrieval(time.Since(start), err)
	}
	if err != nil {
		span.RecordError(err)
		logger.Warn("photo retrieval failed, using placeholder", zap.String("file_id", ref), zap.Error(err))
		return p.assets.DefaultURL()
	}
	return url
}

func (p *Pipeline) write(ctx context.Context, entry catalog.CatalogEntry) (catalog.CatalogEntry, error) {
	ctx, span := p.tracer.Start(ctx, "ingest.write")
	defer span.End()

	saved, err := p.writer.Append(ctx, entry)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "append failed")
		metrics.ObserveCatalogWrite("error")
		return catalog.CatalogEntry{}, err
	}
	span.SetAttributes(attribute.Int("catalog.sort_order", saved.SortOrder))
	metrics.ObserveCatalogWrite("ok")
	return saved, nil
}

func (p *Pipeline) publish(ctx context.Context, logger *zap.Logger, entry catalog.CatalogEntry) {
	if p.publisher == nil {
		return
	}
	event := EntryCreated{
		Event:     EventEntryCreated,
		ID:        entry.ID,
		Title:     entry.Title,
		SortOrder: entry.SortOrder,
		ImageURL:  entry.ImageURL,
		Link:      entry.Link,
		CreatedAt: entry.CreatedAt,
	}
	if _, err := p.publisher.Publish(ctx, p.cfg.EventTopic, event); err != nil {
		logger.Warn("publish catalog event failed", zap.String("id", entry.ID), zap.Error(err))
	}
}

func notProcessed(reason string) Result {
	return Result{Outcome: OutcomeNotProcessed, Reason: reason}
}

// MessageKey identifies a channel post for duplicate detection.
func MessageKey(msg telegram.Message) string {
	var chatID int64
	if msg.Chat != nil {
		chatID = msg.Chat.ID
	}
	return "tg:" + strconv.FormatInt(chatID, 10) + ":" + strconv.FormatInt(msg.MessageID, 10)
}
