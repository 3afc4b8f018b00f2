package handler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	appcompanion "github.com/companiondir/backend/internal/application/companion"
	"github.com/companiondir/backend/internal/domain/companion"
	"github.com/companiondir/backend/internal/interfaces/http/dto"
	"github.com/companiondir/backend/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
)

// CompanionWriter creates, edits and reads single companion profiles
type CompanionWriter interface {
	Create(ctx context.Context, input appcompanion.CreateInput) (*appcompanion.CreateResult, error)
	Update(ctx context.Context, input appcompanion.UpdateInput) (*appcompanion.UpdateResult, error)
	Get(ctx context.Context, id int64) (*companion.Companion, error)
}

// CompanionSearcher serves the public listing
type CompanionSearcher interface {
	Search(ctx context.Context, q appcompanion.SearchQuery) (*appcompanion.SearchResult, error)
}

// HandleChecker answers user name lookups
type HandleChecker interface {
	Exists(ctx context.Context, handle string) (bool, error)
}

// Multipart file fields
const (
	formFieldImages    = "images"
	formFieldNewImages = "new_images"
)

// CompanionHandler handles companion profile API endpoints
type CompanionHandler struct {
	BaseHandler
	writer   CompanionWriter
	searcher CompanionSearcher
	handles  HandleChecker
}

// NewCompanionHandler creates a new CompanionHandler
func NewCompanionHandler(writer CompanionWriter, searcher CompanionSearcher, handles HandleChecker) *CompanionHandler {
	return &CompanionHandler{
		writer:   writer,
		searcher: searcher,
		handles:  handles,
	}
}

// Create registers a new companion from a multipart form.
// POST /api/v1/companions
//
// A 201 response may still carry a "partial" section when the record was
// created but some follow-up writes did not apply.
func (h *CompanionHandler) Create(c *gin.Context) {
	var req dto.CreateCompanionRequest
	if err := c.ShouldBind(&req); err != nil {
		h.bindError(c, err)
		return
	}
	images, err := readUploads(c, formFieldImages)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	result, err := h.writer.Create(c.Request.Context(), appcompanion.CreateInput{
		ProfileInput: toProfileInput(req.ProfileForm),
		Password:     req.Password,
		Images:       images,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	resp := dto.CreateCompanionResponse{
		Companion:         result.Companion,
		AttributesWritten: result.AttributesWritten,
		ImagesPersisted:   result.ImagesPersisted,
	}
	if p := result.Partial; p != nil {
		resp.Partial = &dto.PartialWriteResponse{
			AttributesFailed: p.AttributesFailed,
			FailedAttributes: p.FailedAttributeKey,
			ImagesRequested:  p.ImagesRequested,
			ImagesPersisted:  p.ImagesPersisted,
			CollectionAdded:  p.CollectionAdded,
			StatusSet:        p.StatusSet,
			Hint:             "资料已提交，但部分信息未能保存，请稍后编辑补充",
		}
	}
	h.Created(c, resp)
}

// Update applies an owner's edit from a multipart form.
// PUT /api/v1/companions/:id
func (h *CompanionHandler) Update(c *gin.Context) {
	id, ok := h.parseID(c)
	if !ok {
		return
	}

	var req dto.UpdateCompanionRequest
	if err := c.ShouldBind(&req); err != nil {
		h.bindError(c, err)
		return
	}
	images, err := readUploads(c, formFieldNewImages)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	result, err := h.writer.Update(c.Request.Context(), appcompanion.UpdateInput{
		ID:                 id,
		ProfileInput:       toProfileInput(req.ProfileForm),
		CurrentPassword:    req.CurrentPassword,
		NewPassword:        req.NewPassword,
		NewImages:          images,
		RemoveImageIndices: req.RemoveImages,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, dto.UpdateCompanionResponse{
		Companion:         result.Companion,
		AttributesWritten: result.AttributesWritten,
		AttributesDeleted: result.AttributesDeleted,
		ImagesKept:        result.ImagesKept,
		ImagesAdded:       result.ImagesAdded,
		Resubmitted:       result.Resubmitted,
	})
}

// Get returns one companion by record id.
// GET /api/v1/companions/:id
func (h *CompanionHandler) Get(c *gin.Context) {
	id, ok := h.parseID(c)
	if !ok {
		return
	}

	result, err := h.writer.Get(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

// Search returns one page of the public listing.
// GET /api/v1/companions?q=&city=&page=
func (h *CompanionHandler) Search(c *gin.Context) {
	var req dto.SearchCompanionsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		h.bindError(c, err)
		return
	}

	result, err := h.searcher.Search(c.Request.Context(), appcompanion.SearchQuery{
		Query:  req.Query,
		Cities: splitList(req.Cities),
		Page:   req.Page,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessWithMeta(c, result.Items, int64(result.Total), result.Page, result.PageSize)
}

// HandleExists reports whether a user name is already registered.
// GET /api/v1/companions/handles/exists?user_name=
func (h *CompanionHandler) HandleExists(c *gin.Context) {
	var req dto.HandleExistsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		h.bindError(c, err)
		return
	}

	handle := appcompanion.NormalizeHandle(req.UserName)
	exists, err := h.handles.Exists(c.Request.Context(), handle)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, dto.HandleExistsResponse{UserName: handle, Exists: exists})
}

func (h *CompanionHandler) parseID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		h.NotFound(c, "Companion not found")
		return 0, false
	}
	return id, true
}

func (h *CompanionHandler) bindError(c *gin.Context, err error) {
	if middleware.IsBodyTooLarge(err) {
		middleware.AbortBodyTooLarge(c)
		return
	}
	middleware.HandleValidationError(c, err)
}

// readUploads reads every file sent under field. A request that is not
// multipart has no uploads.
func readUploads(c *gin.Context, field string) ([]appcompanion.ImageUpload, error) {
	form, err := c.MultipartForm()
	if err != nil {
		if errors.Is(err, http.ErrNotMultipart) {
			return nil, nil
		}
		return nil, err
	}

	files := form.File[field]
	uploads := make([]appcompanion.ImageUpload, 0, len(files))
	for _, fh := range files {
		up, err := readUpload(fh)
		if err != nil {
			return nil, err
		}
		uploads = append(uploads, up)
	}
	return uploads, nil
}

func readUpload(fh *multipart.FileHeader) (appcompanion.ImageUpload, error) {
	f, err := fh.Open()
	if err != nil {
		return appcompanion.ImageUpload{}, fmt.Errorf("open upload %q: %w", fh.Filename, err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return appcompanion.ImageUpload{}, fmt.Errorf("read upload %q: %w", fh.Filename, err)
	}
	return appcompanion.ImageUpload{
		Filename:    fh.Filename,
		ContentType: uploadContentType(fh, data),
		Data:        data,
	}, nil
}

// uploadContentType trusts a declared image type and sniffs anything else
func uploadContentType(fh *multipart.FileHeader, data []byte) string {
	if mediaType, _, err := mime.ParseMediaType(fh.Header.Get("Content-Type")); err == nil &&
		strings.HasPrefix(mediaType, "image/") {
		return mediaType
	}
	mediaType, _, _ := mime.ParseMediaType(http.DetectContentType(data))
	return mediaType
}

func toProfileInput(f dto.ProfileForm) appcompanion.ProfileInput {
	return appcompanion.ProfileInput{
		UserName:      f.UserName,
		FirstName:     f.FirstName,
		LastName:      f.LastName,
		Major:         f.Major,
		Location:      f.Location,
		Description:   f.Description,
		WechatID:      f.WechatID,
		Education:     f.Education,
		Age:           f.Age,
		Language:      splitList(f.Language),
		AgeGroup:      splitList(f.AgeGroup),
		Skill:         splitList(f.Skill),
		Certification: splitList(f.Certification),
		Availability:  splitList(f.Availability),
		BlueCard:      f.BlueCard,
		PoliceCheck:   f.PoliceCheck,
		FirstAid:      f.FirstAid,
	}
}

// splitList flattens repeated form values and comma-separated values
// into one trimmed list without blanks
func splitList(values []string) []string {
	var out []string
	for _, v := range values {
		for _, part := range strings.FieldsFunc(v, func(r rune) bool { return r == ',' || r == '，' }) {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
