package companion

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/companiondir/backend/internal/domain/companion"
	"github.com/companiondir/backend/internal/domain/shared"
	"github.com/companiondir/backend/internal/infrastructure/telemetry"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

// SyncService handles companion profile writes against the catalog backend.
// Every operation is a sequence of independent backend calls; there is no
// rollback, so partial outcomes are reported rather than hidden.
type SyncService struct {
	catalog  companion.Catalog
	fetcher  companion.ImageFetcher
	verifier *UniquenessVerifier
	cache    ListingCache
	codec    *companion.Codec
	mapper   *companion.Mapper
	validate *validator.Validate
	config   Config
	logger   *zap.Logger
	metrics  *telemetry.DirectoryMetrics
}

// NewSyncService creates a new SyncService. cache may be nil.
func NewSyncService(
	catalog companion.Catalog,
	fetcher companion.ImageFetcher,
	verifier *UniquenessVerifier,
	cache ListingCache,
	codec *companion.Codec,
	cfg Config,
	logger *zap.Logger,
) *SyncService {
	return &SyncService{
		catalog:  catalog,
		fetcher:  fetcher,
		verifier: verifier,
		cache:    cache,
		codec:    codec,
		mapper:   companion.NewMapper(codec),
		validate: newValidator(),
		config:   cfg.withDefaults(),
		logger:   logger,
	}
}

// SetMetrics sets the directory metrics recorder
func (s *SyncService) SetMetrics(m *telemetry.DirectoryMetrics) {
	s.metrics = m
}

// ---------------------------------------------------------------------------
// Create
// ---------------------------------------------------------------------------

// Create registers a new companion. The record is created as a draft and
// only becomes publicly listed after review.
//
// Failures before the record exists return an error and leave nothing behind.
// Once the record exists the operation returns a result; problems in the
// attribute, collection or status steps are reported in CreateResult.Partial.
func (s *SyncService) Create(ctx context.Context, input CreateInput) (*CreateResult, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "companion", "create",
		telemetry.WithAttribute(telemetry.SpanAttrImages, len(input.Images)),
	)
	defer span.End()

	result, err := s.create(ctx, input)
	if err != nil {
		telemetry.RecordError(span, err)
		s.metrics.RecordCreated(ctx, outcomeOf(err))
		return nil, err
	}

	telemetry.SetAttributes(span,
		telemetry.SpanAttrRecordID, result.Companion.ID,
		telemetry.SpanAttrAttributes, result.AttributesWritten,
	)
	if result.Partial != nil {
		telemetry.AddEvent(span, "partial_write", "detail", result.Partial.Error())
		s.metrics.RecordCreated(ctx, telemetry.OutcomePartial)
		s.metrics.RecordAttributeErrors(ctx, result.Partial.AttributesFailed)
	} else {
		s.metrics.RecordCreated(ctx, telemetry.OutcomeSuccess)
	}
	return result, nil
}

func (s *SyncService) create(ctx context.Context, input CreateInput) (*CreateResult, error) {
	if verr := s.validateCreate(input); verr != nil {
		return nil, verr
	}

	profile := input.ToProfile()

	exists, err := s.verifier.Exists(ctx, profile.UserName)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, companion.ErrHandleTaken
	}

	hash, err := companion.HashPassword(input.Password)
	if err != nil {
		requestLogger(ctx, s.logger).Error("Failed to hash password", zap.Error(err))
		return nil, fmt.Errorf("hash password: %w", err)
	}
	profile.Password = hash
	profile.RefreshDerived()

	attachments := uploadAttachments(input.Images, 1)
	record, err := s.catalog.CreateRecord(ctx, companion.RecordInput{
		Title:         companion.TitleFor(profile),
		BodyHTML:      descriptionHTML(profile.Description),
		Vendor:        s.config.Vendor,
		ProductType:   s.config.ProductType,
		Status:        companion.StatusDraft,
		Images:        attachments,
		ReplaceImages: true,
	})
	if err != nil {
		requestLogger(ctx, s.logger).Error("Failed to create companion record",
			zap.String("user_name", profile.UserName),
			zap.Error(err),
		)
		return nil, upstreamError("Failed to create companion record", err)
	}

	partial := &companion.PartialWriteError{
		RecordID:        record.ID,
		ImagesPersisted: len(record.Images),
		ImagesRequested: len(attachments),
		CollectionAdded: true,
		StatusSet:       true,
	}

	// The record exists from here on; later failures are reported, not returned.
	written := s.writeCreateAttributes(ctx, record.ID, profile, partial)

	if s.config.CollectionID != 0 {
		if err := s.catalog.AddToCollection(ctx, record.ID, s.config.CollectionID); err != nil {
			partial.CollectionAdded = false
			requestLogger(ctx, s.logger).Warn("Failed to add companion to collection",
				zap.Int64("record_id", record.ID),
				zap.Int64("collection_id", s.config.CollectionID),
				zap.Error(err),
			)
		}
	}
	if err := s.catalog.SetStatus(ctx, record.ID, companion.StatusDraft); err != nil {
		partial.StatusSet = false
		requestLogger(ctx, s.logger).Warn("Failed to set companion status",
			zap.Int64("record_id", record.ID),
			zap.Error(err),
		)
	}

	s.invalidateListing(ctx)

	record.Status = companion.StatusDraft
	record.Attributes = written
	c := s.mapper.ToDomain(*record).Public()

	result := &CreateResult{
		Companion:         &c,
		AttributesWritten: partial.AttributesWritten,
		ImagesPersisted:   partial.ImagesPersisted,
	}
	if isPartial(partial) {
		result.Partial = partial
		requestLogger(ctx, s.logger).Warn("Companion created with partial data", zap.String("detail", partial.Error()))
	} else {
		requestLogger(ctx, s.logger).Info("Companion created",
			zap.Int64("record_id", record.ID),
			zap.Int("attributes", partial.AttributesWritten),
			zap.Int("images", partial.ImagesPersisted),
		)
	}
	return result, nil
}

func (s *SyncService) validateCreate(input CreateInput) *companion.ValidationError {
	verr := validateStruct(s.validate, input)
	if verr == nil {
		verr = &companion.ValidationError{}
	}

	profile := input.ToProfile()
	profile.Password = input.Password
	for _, key := range companion.RequiredAtCreation {
		if s.isBlankField(profile, key) && !hasFieldError(verr, key) {
			verr.Add(key, "This field is required")
		}
	}

	switch n := len(input.Images); {
	case n < s.config.MinImages:
		verr.Add("images", fmt.Sprintf("At least %d image(s) required", s.config.MinImages))
	case n > s.config.MaxImages:
		verr.Add("images", fmt.Sprintf("At most %d images allowed", s.config.MaxImages))
	}
	s.validateUploads("images", input.Images, verr)

	if verr.HasErrors() {
		return verr
	}
	return nil
}

// writeCreateAttributes performs the single attribute batch of a creation
// and records the outcome on partial. It never fails the creation.
func (s *SyncService) writeCreateAttributes(ctx context.Context, id int64, profile companion.Profile, partial *companion.PartialWriteError) []companion.Attribute {
	attrs := s.codec.Encode(profile)

	res, err := s.catalog.SetAttributes(ctx, id, attrs)
	if err != nil {
		partial.AttributesFailed = len(attrs)
		for _, a := range attrs {
			partial.FailedAttributeKey = append(partial.FailedAttributeKey, a.Key)
		}
		requestLogger(ctx, s.logger).Error("Failed to write companion attributes",
			zap.Int64("record_id", id),
			zap.Int("attributes", len(attrs)),
			zap.Error(err),
		)
		return nil
	}

	partial.AttributesWritten = len(res.Written)
	partial.AttributesFailed = len(res.Errors)
	for _, ae := range res.Errors {
		partial.FailedAttributeKey = append(partial.FailedAttributeKey, ae.Key)
		requestLogger(ctx, s.logger).Warn("Companion attribute rejected",
			zap.Int64("record_id", id),
			zap.String("key", ae.Key),
			zap.String("message", ae.Message),
		)
	}
	return res.Written
}

func isPartial(p *companion.PartialWriteError) bool {
	return p.AttributesFailed > 0 ||
		p.ImagesPersisted < p.ImagesRequested ||
		!p.CollectionAdded ||
		!p.StatusSet
}

// ---------------------------------------------------------------------------
// Get
// ---------------------------------------------------------------------------

// Get returns one companion by record id, in any lifecycle state, without
// the password
func (s *SyncService) Get(ctx context.Context, id int64) (*companion.Companion, error) {
	record, attrs, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	record.Attributes = attrs
	c := s.mapper.ToDomain(*record).Public()
	return &c, nil
}

func (s *SyncService) load(ctx context.Context, id int64) (*companion.Record, []companion.Attribute, error) {
	record, err := s.catalog.GetRecord(ctx, id)
	if err != nil {
		if companion.IsNotFound(err) {
			return nil, nil, companion.ErrCompanionNotFound
		}
		requestLogger(ctx, s.logger).Error("Failed to get companion record", zap.Int64("record_id", id), zap.Error(err))
		return nil, nil, upstreamError("Failed to get companion record", err)
	}
	attrs, err := s.catalog.GetAttributes(ctx, id)
	if err != nil {
		requestLogger(ctx, s.logger).Error("Failed to get companion attributes", zap.Int64("record_id", id), zap.Error(err))
		return nil, nil, upstreamError("Failed to get companion attributes", err)
	}
	return record, attrs, nil
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

func (s *SyncService) invalidateListing(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx); err != nil {
		requestLogger(ctx, s.logger).Warn("Failed to invalidate listing cache", zap.Error(err))
	}
}

// outcomeOf classifies a failed operation for metrics
func outcomeOf(err error) string {
	switch shared.CodeOf(err) {
	case shared.CodeValidation, shared.CodeConflict, shared.CodeUnauthenticated, shared.CodeNotFound:
		return telemetry.OutcomeRejected
	}
	if errors.Is(err, shared.ErrValidation) {
		return telemetry.OutcomeRejected
	}
	return telemetry.OutcomeFailed
}

// upstreamError wraps a catalog failure, keeping not-found conditions intact
func upstreamError(message string, err error) error {
	if companion.IsNotFound(err) {
		return err
	}
	return shared.WrapDomainError(shared.CodeUpstreamUnavailable, message, err)
}

func (s *SyncService) isBlankField(p companion.Profile, key string) bool {
	a, ok := s.codec.EncodeField(p, key)
	return !ok || a.IsAbsent() || strings.TrimSpace(a.Value) == ""
}

func hasFieldError(verr *companion.ValidationError, key string) bool {
	for _, f := range verr.Fields {
		if f.Field == key {
			return true
		}
	}
	return false
}
