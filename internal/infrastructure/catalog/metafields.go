package catalog

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/companiondir/backend/internal/domain/companion"
	"github.com/companiondir/backend/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// BatchGetAttributes loads the attributes of many products with one GraphQL
// nodes query. Ids the backend does not know are absent from the result.
func (a *Adapter) BatchGetAttributes(ctx context.Context, ids []int64) (out map[int64][]companion.Attribute, err error) {
	out = make(map[int64][]companion.Attribute, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	ctx, _, done := a.observe(ctx, "batch_get_attributes", telemetry.WithAttribute("catalog.ids", len(ids)))
	defer func() { done(err) }()

	gids := make([]string, len(ids))
	for i, id := range ids {
		gids[i] = productGID(id)
	}

	var data nodesData
	if err := a.graphQL(ctx, batchAttributesQuery, map[string]any{
		"ids":   gids,
		"first": a.config.AttributeReadLimit,
	}, &data); err != nil {
		return nil, err
	}

	for _, node := range data.Nodes {
		if node == nil {
			continue
		}
		id, ok := parseGID(node.ID)
		if !ok {
			continue
		}
		attrs := make([]companion.Attribute, 0, len(node.Metafields.Nodes))
		for _, m := range node.Metafields.Nodes {
			attrs = append(attrs, companion.Attribute(m))
		}
		out[id] = attrs
	}
	return out, nil
}

// GetAttributes loads the attributes of one product
func (a *Adapter) GetAttributes(ctx context.Context, id int64) (attrs []companion.Attribute, err error) {
	ctx, _, done := a.observe(ctx, "get_attributes", telemetry.WithAttribute(telemetry.SpanAttrRecordID, id))
	defer func() { done(err) }()

	q := url.Values{}
	q.Set("limit", strconv.Itoa(MaxPageSize))

	var env metafieldsEnvelope
	if _, err := a.doJSON(ctx, http.MethodGet, a.config.restURL(fmt.Sprintf("products/%d/metafields.json", id))+"?"+q.Encode(), nil, &env); err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, fmt.Errorf("%w: record %d", companion.ErrCompanionNotFound, id)
		}
		return nil, err
	}

	attrs = make([]companion.Attribute, 0, len(env.Metafields))
	for _, m := range env.Metafields {
		attrs = append(attrs, companion.Attribute{
			Namespace: m.Namespace,
			Key:       m.Key,
			Value:     m.Value,
			Type:      m.Type,
		})
	}
	return attrs, nil
}

// SetAttributes writes present attributes with metafieldsSet and deletes
// absent ones with metafieldsDelete, both in chunks of AttributeChunkSize.
// Attributes are independent: a rejected value is reported on its own key
// while the rest of its chunk is still written, and a failed chunk turns into
// per-attribute errors without stopping the remaining chunks. An error is returned only
// when no chunk reached the backend.
func (a *Adapter) SetAttributes(ctx context.Context, id int64, attrs []companion.Attribute) (result *companion.AttributeWriteResult, err error) {
	ctx, _, done := a.observe(ctx, "set_attributes",
		telemetry.WithAttribute(telemetry.SpanAttrRecordID, id),
		telemetry.WithAttribute(telemetry.SpanAttrAttributes, len(attrs)),
	)
	defer func() { done(err) }()

	var writes, deletes []companion.Attribute
	for _, attr := range attrs {
		if attr.IsAbsent() {
			deletes = append(deletes, attr)
		} else {
			writes = append(writes, attr)
		}
	}

	result = &companion.AttributeWriteResult{}
	var firstErr error
	sent, failed := 0, 0

	for _, chunk := range chunks(writes, a.config.AttributeChunkSize) {
		sent++
		if err := a.setChunk(ctx, id, chunk, result); err != nil {
			failed++
			firstErr = errors.Join(firstErr, err)
			failChunk(result, chunk, err)
		}
	}
	for _, chunk := range chunks(deletes, a.config.AttributeChunkSize) {
		sent++
		if err := a.deleteChunk(ctx, id, chunk, result); err != nil {
			failed++
			firstErr = errors.Join(firstErr, err)
			failChunk(result, chunk, err)
		}
	}

	if sent > 0 && failed == sent {
		a.logger.Error("Failed to write catalog attributes",
			zap.Int64("record_id", id),
			zap.Int("attributes", len(attrs)),
			zap.Error(firstErr),
		)
		return nil, firstErr
	}
	return result, nil
}

// setChunk writes one chunk with metafieldsSet. The mutation is atomic, so a
// user error rejects every entry of the call; the rejected entries are
// recorded and the rest are sent again until the chunk settles. Only a
// transport failure of the first call is returned.
func (a *Adapter) setChunk(ctx context.Context, id int64, chunk []companion.Attribute, result *companion.AttributeWriteResult) error {
	pending := chunk
	for attempt := 0; len(pending) > 0; attempt++ {
		userErrs, err := a.sendSet(ctx, id, pending)
		if err != nil {
			if attempt == 0 {
				return err
			}
			failChunk(result, pending, err)
			return nil
		}
		if len(userErrs) == 0 {
			result.Written = append(result.Written, pending...)
			return nil
		}

		rejected := userErrorsByIndex(userErrs, len(pending))
		retry := make([]companion.Attribute, 0, len(pending))
		for i, attr := range pending {
			if msg, ok := rejected[i]; ok {
				result.Errors = append(result.Errors, companion.AttributeError{Key: attr.QualifiedKey(), Message: msg})
				continue
			}
			retry = append(retry, attr)
		}
		if len(retry) > 0 {
			a.logger.Debug("Resending attributes after rejection",
				zap.Int64("record_id", id),
				zap.Int("rejected", len(pending)-len(retry)),
				zap.Int("remaining", len(retry)),
			)
		}
		pending = retry
	}
	return nil
}

// sendSet performs a single metafieldsSet call and returns its user errors
func (a *Adapter) sendSet(ctx context.Context, id int64, attrs []companion.Attribute) ([]userError, error) {
	owner := productGID(id)
	inputs := make([]metafieldSetInput, len(attrs))
	for i, attr := range attrs {
		inputs[i] = metafieldSetInput{
			OwnerID:   owner,
			Namespace: attr.Namespace,
			Key:       attr.Key,
			Value:     attr.Value,
			Type:      attr.Type,
		}
	}

	var data metafieldsSetData
	if err := a.graphQL(ctx, setAttributesMutation, map[string]any{"metafields": inputs}, &data); err != nil {
		return nil, err
	}
	return data.MetafieldsSet.UserErrors, nil
}

// deleteChunk sends one metafieldsDelete call. Deleting an attribute that is
// not stored is not an error.
func (a *Adapter) deleteChunk(ctx context.Context, id int64, chunk []companion.Attribute, result *companion.AttributeWriteResult) error {
	owner := productGID(id)
	inputs := make([]metafieldIdentifier, len(chunk))
	for i, attr := range chunk {
		inputs[i] = metafieldIdentifier{OwnerID: owner, Namespace: attr.Namespace, Key: attr.Key}
	}

	var data metafieldsDeleteData
	if err := a.graphQL(ctx, deleteAttributesMutation, map[string]any{"metafields": inputs}, &data); err != nil {
		return err
	}

	if userErrs := data.MetafieldsDelete.UserErrors; len(userErrs) > 0 {
		rejected := userErrorsByIndex(userErrs, len(chunk))
		for i, attr := range chunk {
			if msg, ok := rejected[i]; ok {
				result.Errors = append(result.Errors, companion.AttributeError{Key: attr.QualifiedKey(), Message: msg})
				continue
			}
			result.Deleted = append(result.Deleted, attr)
		}
		return nil
	}

	result.Deleted = append(result.Deleted, chunk...)
	return nil
}

// userErrorsByIndex maps user errors to chunk positions using their field
// path, e.g. ["metafields", "3", "value"]. Errors without a usable path are
// attributed to every entry.
func userErrorsByIndex(errs []userError, n int) map[int]string {
	out := make(map[int]string, len(errs))
	for _, ue := range errs {
		if len(ue.Field) >= 2 {
			if idx, err := strconv.Atoi(ue.Field[1]); err == nil && idx >= 0 && idx < n {
				out[idx] = ue.Message
				continue
			}
		}
		for i := 0; i < n; i++ {
			if _, ok := out[i]; !ok {
				out[i] = ue.Message
			}
		}
	}
	return out
}

func failChunk(result *companion.AttributeWriteResult, chunk []companion.Attribute, err error) {
	for _, attr := range chunk {
		result.Errors = append(result.Errors, companion.AttributeError{Key: attr.QualifiedKey(), Message: err.Error()})
	}
}

func chunks(attrs []companion.Attribute, size int) [][]companion.Attribute {
	if size <= 0 {
		size = MaxAttributesPerWrite
	}
	var out [][]companion.Attribute
	for start := 0; start < len(attrs); start += size {
		end := min(start+size, len(attrs))
		out = append(out, attrs[start:end])
	}
	return out
}
