package companion

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/companiondir/backend/internal/domain/companion"
	"github.com/companiondir/backend/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// ---------------------------------------------------------------------------
// Update
// ---------------------------------------------------------------------------

// Update applies an owner's edit to an existing companion. The current
// password must match the stored credential. The record is reconciled in
// three phases: record-level fields, the image list, then attributes.
// Attribute failures fail the whole update with a ReconcileError; phases
// already applied are not rolled back.
func (s *SyncService) Update(ctx context.Context, input UpdateInput) (*UpdateResult, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "companion", "update",
		telemetry.WithAttribute(telemetry.SpanAttrRecordID, input.ID),
	)
	defer span.End()

	result, err := s.update(ctx, input)
	if err != nil {
		telemetry.RecordError(span, err)
		s.metrics.RecordUpdated(ctx, outcomeOf(err))
		var rerr *companion.ReconcileError
		if errors.As(err, &rerr) {
			s.metrics.RecordAttributeErrors(ctx, len(rerr.Errors))
		}
		return nil, err
	}

	telemetry.SetAttributes(span,
		telemetry.SpanAttrAttributes, result.AttributesWritten+result.AttributesDeleted,
		telemetry.SpanAttrImages, result.ImagesKept+result.ImagesAdded,
	)
	s.metrics.RecordUpdated(ctx, telemetry.OutcomeSuccess)
	return result, nil
}

func (s *SyncService) update(ctx context.Context, input UpdateInput) (*UpdateResult, error) {
	if verr := s.validateUpdate(input); verr != nil {
		return nil, verr
	}

	record, stored, err := s.load(ctx, input.ID)
	if err != nil {
		return nil, err
	}
	current := s.codec.Decode(stored)

	if !companion.VerifyPassword(current.Password, input.CurrentPassword) {
		requestLogger(ctx, s.logger).Info("Companion update rejected: password mismatch", zap.Int64("record_id", input.ID))
		return nil, companion.ErrPasswordMismatch
	}

	desired := input.ToProfile()
	if !strings.EqualFold(desired.UserName, strings.TrimSpace(current.UserName)) {
		exists, err := s.verifier.Exists(ctx, desired.UserName)
		if err != nil {
			return nil, err
		}
		if exists {
			return nil, companion.ErrHandleTaken
		}
	}

	desired.Password, err = s.nextPassword(current.Password, input.NewPassword)
	if err != nil {
		return nil, err
	}
	desired.RefreshDerived()

	result := &UpdateResult{}

	// Phase 1 and 2: record-level fields and images share one record update
	recInput, imagesKept, err := s.planRecordUpdate(ctx, record, desired, input)
	if err != nil {
		return nil, err
	}
	result.ImagesKept = imagesKept
	result.ImagesAdded = len(input.NewImages)
	result.TitleChanged = recInput.Title != ""

	if recInput.Title != "" || recInput.BodyHTML != "" || recInput.ClearBody || recInput.ReplaceImages {
		updated, err := s.catalog.UpdateRecord(ctx, record.ID, recInput)
		if err != nil {
			requestLogger(ctx, s.logger).Error("Failed to update companion record", zap.Int64("record_id", record.ID), zap.Error(err))
			return nil, upstreamError("Failed to update companion record", err)
		}
		record = updated
	}

	// Phase 3: attributes
	attrs := s.planAttributes(desired, stored)
	res, err := s.catalog.SetAttributes(ctx, record.ID, attrs)
	if err != nil {
		requestLogger(ctx, s.logger).Error("Failed to reconcile companion attributes", zap.Int64("record_id", record.ID), zap.Error(err))
		return nil, &companion.ReconcileError{RecordID: record.ID, Cause: err}
	}
	if res.Failed() {
		requestLogger(ctx, s.logger).Error("Companion attributes partially rejected",
			zap.Int64("record_id", record.ID),
			zap.Int("failed", len(res.Errors)),
		)
		return nil, &companion.ReconcileError{RecordID: record.ID, Errors: res.Errors}
	}
	result.AttributesWritten = len(res.Written)
	result.AttributesDeleted = len(res.Deleted)

	if s.config.ResubmitOnUpdate && record.Status == companion.StatusActive {
		if err := s.catalog.SetStatus(ctx, record.ID, companion.StatusDraft); err != nil {
			requestLogger(ctx, s.logger).Warn("Failed to resubmit companion for review", zap.Int64("record_id", record.ID), zap.Error(err))
		} else {
			record.Status = companion.StatusDraft
			result.Resubmitted = true
		}
	}

	s.invalidateListing(ctx)

	record.Attributes = s.codec.Encode(desired)
	c := s.mapper.ToDomain(*record).Public()
	result.Companion = &c

	requestLogger(ctx, s.logger).Info("Companion updated",
		zap.Int64("record_id", record.ID),
		zap.Int("attributes_written", result.AttributesWritten),
		zap.Int("attributes_deleted", result.AttributesDeleted),
		zap.Int("images", len(c.Images)),
	)
	return result, nil
}

func (s *SyncService) validateUpdate(input UpdateInput) *companion.ValidationError {
	verr := validateStruct(s.validate, input)
	if verr == nil {
		verr = &companion.ValidationError{}
	}
	if input.ID <= 0 {
		verr.Add("id", "Invalid companion id")
	}
	s.validateUploads("new_images", input.NewImages, verr)

	if verr.HasErrors() {
		return verr
	}
	return nil
}

// nextPassword returns the credential to store after an update. A new
// password is hashed; otherwise a stored hash is kept and legacy plaintext
// is upgraded to a hash.
func (s *SyncService) nextPassword(stored, newPassword string) (string, error) {
	switch {
	case newPassword != "":
	case companion.IsPasswordHash(stored):
		return stored, nil
	default:
		newPassword = stored
	}
	hash, err := companion.HashPassword(newPassword)
	if err != nil {
		s.logger.Error("Failed to hash password", zap.Error(err))
		return "", fmt.Errorf("hash password: %w", err)
	}
	return hash, nil
}

// planRecordUpdate computes the record-level changes. Only fields that differ
// from the stored record are set.
func (s *SyncService) planRecordUpdate(ctx context.Context, record *companion.Record, desired companion.Profile, input UpdateInput) (companion.RecordInput, int, error) {
	var recInput companion.RecordInput

	if title := companion.TitleFor(desired); title != "" && title != record.Title {
		recInput.Title = title
	}
	// An empty description clears the stored body
	if body := descriptionHTML(desired.Description); body != record.BodyHTML {
		recInput.BodyHTML = body
		recInput.ClearBody = body == ""
	}

	if len(input.RemoveImageIndices) == 0 && len(input.NewImages) == 0 {
		return recInput, len(record.Images), nil
	}

	images, kept, err := s.reconcileImages(ctx, record.Images, input.RemoveImageIndices, input.NewImages)
	if err != nil {
		return recInput, 0, err
	}
	recInput.Images = images
	recInput.ReplaceImages = true
	return recInput, kept, nil
}

// reconcileImages builds the full replacement image list: the current images
// minus the removed indices, in their existing order, followed by the new
// uploads. The backend replaces images as a whole list, so kept images are
// downloaded and resent.
func (s *SyncService) reconcileImages(ctx context.Context, current []companion.RecordImage, remove []int, uploads []ImageUpload) ([]companion.ImageAttachment, int, error) {
	ordered := slices.Clone(current)
	slices.SortStableFunc(ordered, func(a, b companion.RecordImage) int {
		return a.Position - b.Position
	})

	removed := make(map[int]struct{}, len(remove))
	verr := &companion.ValidationError{}
	for _, idx := range remove {
		if idx < 0 || idx >= len(ordered) {
			verr.Add("remove_images", fmt.Sprintf("Image index %d out of range", idx))
			continue
		}
		removed[idx] = struct{}{}
	}
	if verr.HasErrors() {
		return nil, 0, verr
	}

	attachments := make([]companion.ImageAttachment, 0, len(ordered)-len(removed)+len(uploads))
	for i, img := range ordered {
		if _, drop := removed[i]; drop {
			continue
		}
		data, err := s.fetcher.FetchImage(ctx, img.Src)
		if err != nil {
			requestLogger(ctx, s.logger).Error("Failed to download kept image",
				zap.String("src", img.Src),
				zap.Error(err),
			)
			return nil, 0, upstreamError("Failed to download existing image", err)
		}
		attachments = append(attachments, companion.NewImageAttachment(data, filenameFromURL(img.Src), img.Alt, len(attachments)+1))
	}
	kept := len(attachments)

	attachments = append(attachments, uploadAttachments(uploads, kept+1)...)
	return attachments, kept, nil
}

// planAttributes returns the attribute batch for an update: every canonical
// field, with unpopulated ones encoded empty so they are deleted, plus
// deletions for values still stored under legacy alias keys.
func (s *SyncService) planAttributes(desired companion.Profile, stored []companion.Attribute) []companion.Attribute {
	attrs := s.codec.EncodeAll(desired)
	for _, stale := range s.codec.StaleAliases(stored) {
		if stale.Namespace == "" {
			stale.Namespace = s.codec.Namespace()
		}
		stale.Value = ""
		attrs = append(attrs, stale)
	}
	return attrs
}
