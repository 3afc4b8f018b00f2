package catalog

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/companiondir/backend/internal/domain/companion"
	"github.com/companiondir/backend/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// productFields limits listing payloads to what the directory reads
const productFields = "id,title,body_html,vendor,product_type,tags,status,images,created_at,updated_at"

// ListRecords returns one page of products. A page token carries the original
// filters, so only the page size is sent alongside it.
func (a *Adapter) ListRecords(ctx context.Context, filter companion.RecordListFilter) (page *companion.RecordPage, err error) {
	ctx, _, done := a.observe(ctx, "list_records",
		telemetry.WithAttribute(telemetry.SpanAttrCollectionID, filter.CollectionID),
	)
	defer func() { done(err) }()

	size := filter.PageSize
	if size <= 0 || size > MaxPageSize {
		size = MaxPageSize
	}

	q := url.Values{}
	q.Set("limit", strconv.Itoa(size))
	if filter.PageToken != "" {
		q.Set("page_info", filter.PageToken)
	} else {
		q.Set("fields", productFields)
		if filter.CollectionID != 0 {
			q.Set("collection_id", strconv.FormatInt(filter.CollectionID, 10))
		}
		if filter.Status.IsValid() {
			q.Set("status", string(filter.Status))
		}
	}

	var env productsEnvelope
	header, err := a.doJSON(ctx, http.MethodGet, a.config.restURL("products.json")+"?"+q.Encode(), nil, &env)
	if err != nil {
		a.logger.Error("Failed to list catalog records", zap.Error(err))
		return nil, err
	}

	page = &companion.RecordPage{
		Records:       make([]companion.Record, 0, len(env.Products)),
		NextPageToken: nextPageToken(header),
	}
	for _, p := range env.Products {
		page.Records = append(page.Records, toRecord(p))
	}
	return page, nil
}

// GetRecord returns one product without attributes
func (a *Adapter) GetRecord(ctx context.Context, id int64) (record *companion.Record, err error) {
	ctx, _, done := a.observe(ctx, "get_record", telemetry.WithAttribute(telemetry.SpanAttrRecordID, id))
	defer func() { done(err) }()

	var env productEnvelope
	if _, err := a.doJSON(ctx, http.MethodGet, a.productURL(id), nil, &env); err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, fmt.Errorf("%w: record %d", companion.ErrCompanionNotFound, id)
		}
		return nil, err
	}
	r := toRecord(env.Product)
	return &r, nil
}

// CreateRecord creates a product with its initial image attachments
func (a *Adapter) CreateRecord(ctx context.Context, input companion.RecordInput) (record *companion.Record, err error) {
	ctx, _, done := a.observe(ctx, "create_record", telemetry.WithAttribute(telemetry.SpanAttrImages, len(input.Images)))
	defer func() { done(err) }()

	var env productEnvelope
	if _, err := a.doJSON(ctx, http.MethodPost, a.config.restURL("products.json"), map[string]any{
		"product": productPayload(input),
	}, &env); err != nil {
		return nil, err
	}
	r := toRecord(env.Product)

	a.logger.Debug("Catalog record created",
		zap.Int64("record_id", r.ID),
		zap.Int("images_sent", len(input.Images)),
		zap.Int("images_stored", len(r.Images)),
	)
	return &r, nil
}

// UpdateRecord updates the set fields of a product. When ReplaceImages is set
// the image list is replaced as a whole, including with an empty list.
func (a *Adapter) UpdateRecord(ctx context.Context, id int64, input companion.RecordInput) (record *companion.Record, err error) {
	ctx, _, done := a.observe(ctx, "update_record", telemetry.WithAttribute(telemetry.SpanAttrRecordID, id))
	defer func() { done(err) }()

	payload := productPayload(input)
	payload["id"] = id

	var env productEnvelope
	if _, err := a.doJSON(ctx, http.MethodPut, a.productURL(id), map[string]any{"product": payload}, &env); err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, fmt.Errorf("%w: record %d", companion.ErrCompanionNotFound, id)
		}
		return nil, err
	}
	r := toRecord(env.Product)
	return &r, nil
}

// SetStatus moves a product to a lifecycle state. Only states the directory
// may write are accepted; publishing is left to review.
func (a *Adapter) SetStatus(ctx context.Context, id int64, status companion.Status) (err error) {
	if !status.CanBeWrittenByCore() {
		return companion.ErrStatusNotWritable
	}

	ctx, _, done := a.observe(ctx, "set_status", telemetry.WithAttribute(telemetry.SpanAttrRecordID, id))
	defer func() { done(err) }()

	_, err = a.doJSON(ctx, http.MethodPut, a.productURL(id), map[string]any{
		"product": map[string]any{"id": id, "status": string(status)},
	}, nil)
	if errors.Is(err, ErrNotFound) {
		return fmt.Errorf("%w: record %d", companion.ErrCompanionNotFound, id)
	}
	return err
}

// AddToCollection registers a product in a collection. An existing
// membership counts as success.
func (a *Adapter) AddToCollection(ctx context.Context, id, collectionID int64) (err error) {
	ctx, _, done := a.observe(ctx, "add_to_collection",
		telemetry.WithAttribute(telemetry.SpanAttrRecordID, id),
		telemetry.WithAttribute(telemetry.SpanAttrCollectionID, collectionID),
	)
	defer func() { done(err) }()

	_, err = a.doJSON(ctx, http.MethodPost, a.config.restURL("collects.json"), collectEnvelope{
		Collect: collectJSON{ProductID: id, CollectionID: collectionID},
	}, nil)
	if err != nil && errors.Is(err, ErrRequestFailed) && strings.Contains(err.Error(), "already exists") {
		a.logger.Debug("Record already in collection",
			zap.Int64("record_id", id),
			zap.Int64("collection_id", collectionID),
		)
		return nil
	}
	return err
}

func (a *Adapter) productURL(id int64) string {
	return a.config.restURL(fmt.Sprintf("products/%d.json", id))
}

// productPayload converts a RecordInput into the fields sent on the wire.
// Empty strings are left out so update calls do not clear stored values,
// except the body when ClearBody asks for it.
func productPayload(input companion.RecordInput) map[string]any {
	payload := make(map[string]any)
	if input.Title != "" {
		payload["title"] = input.Title
	}
	switch {
	case input.BodyHTML != "":
		payload["body_html"] = input.BodyHTML
	case input.ClearBody:
		payload["body_html"] = ""
	}
	if input.Vendor != "" {
		payload["vendor"] = input.Vendor
	}
	if input.ProductType != "" {
		payload["product_type"] = input.ProductType
	}
	if input.Status.IsValid() {
		payload["status"] = string(input.Status)
	}
	if input.ReplaceImages {
		images := make([]imageJSON, 0, len(input.Images))
		for _, img := range input.Images {
			images = append(images, imageJSON{
				Attachment: img.Attachment,
				Filename:   img.Filename,
				Alt:        img.Alt,
				Position:   img.Position,
			})
		}
		payload["images"] = images
	}
	return payload
}

func toRecord(p productJSON) companion.Record {
	images := make([]companion.RecordImage, 0, len(p.Images))
	for _, img := range p.Images {
		images = append(images, companion.RecordImage{
			ID:       img.ID,
			Src:      img.Src,
			Alt:      img.Alt,
			Position: img.Position,
		})
	}
	return companion.Record{
		ID:          p.ID,
		Title:       p.Title,
		BodyHTML:    p.BodyHTML,
		Vendor:      p.Vendor,
		ProductType: p.ProductType,
		Tags:        p.Tags,
		Status:      companion.ParseStatus(p.Status),
		Images:      images,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}
