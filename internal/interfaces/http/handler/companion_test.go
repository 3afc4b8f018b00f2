package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"net/url"
	"strings"
	"testing"

	appcompanion "github.com/companiondir/backend/internal/application/companion"
	"github.com/companiondir/backend/internal/domain/companion"
	"github.com/companiondir/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockWriter struct {
	mock.Mock
}

func (m *mockWriter) Create(ctx context.Context, input appcompanion.CreateInput) (*appcompanion.CreateResult, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*appcompanion.CreateResult), args.Error(1)
}

func (m *mockWriter) Update(ctx context.Context, input appcompanion.UpdateInput) (*appcompanion.UpdateResult, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*appcompanion.UpdateResult), args.Error(1)
}

func (m *mockWriter) Get(ctx context.Context, id int64) (*companion.Companion, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*companion.Companion), args.Error(1)
}

type mockSearcher struct {
	mock.Mock
}

func (m *mockSearcher) Search(ctx context.Context, q appcompanion.SearchQuery) (*appcompanion.SearchResult, error) {
	args := m.Called(ctx, q)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*appcompanion.SearchResult), args.Error(1)
}

type mockHandles struct {
	mock.Mock
}

func (m *mockHandles) Exists(ctx context.Context, handle string) (bool, error) {
	args := m.Called(ctx, handle)
	return args.Bool(0), args.Error(1)
}

type companionFixture struct {
	writer   *mockWriter
	searcher *mockSearcher
	handles  *mockHandles
	router   *gin.Engine
}

func newCompanionFixture() *companionFixture {
	f := &companionFixture{
		writer:   new(mockWriter),
		searcher: new(mockSearcher),
		handles:  new(mockHandles),
	}
	h := NewCompanionHandler(f.writer, f.searcher, f.handles)

	f.router = gin.New()
	g := f.router.Group("/api/v1/companions")
	g.GET("", h.Search)
	g.POST("", h.Create)
	g.GET("/handles/exists", h.HandleExists)
	g.GET("/:id", h.Get)
	g.PUT("/:id", h.Update)
	return f
}

func (f *companionFixture) serve(req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

type upload struct {
	field       string
	filename    string
	contentType string
	data        []byte
}

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

// multipartRequest builds a multipart/form-data request with repeated values and files
func multipartRequest(t *testing.T, method, target string, fields url.Values, files ...upload) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for key, values := range fields {
		for _, v := range values {
			require.NoError(t, mw.WriteField(key, v))
		}
	}
	for _, f := range files {
		hdr := make(textproto.MIMEHeader)
		hdr.Set("Content-Disposition", `form-data; name="`+f.field+`"; filename="`+f.filename+`"`)
		if f.contentType != "" {
			hdr.Set("Content-Type", f.contentType)
		}
		part, err := mw.CreatePart(hdr)
		require.NoError(t, err)
		_, err = part.Write(f.data)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(method, target, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func profileFields() url.Values {
	return url.Values{
		"user_name":  {"  Alice@Example.com "},
		"first_name": {"Alice"},
		"last_name":  {"Wang"},
		"location":   {"Sydney"},
		"language":   {"English, 中文"},
		"skill":      {"Swimming", "Piano"},
		"blue_card":  {"是"},
	}
}

func TestCompanionHandler_Create(t *testing.T) {
	t.Run("binds form and uploads", func(t *testing.T) {
		f := newCompanionFixture()
		fields := profileFields()
		fields.Set("password", "s3cret-pass")

		var got appcompanion.CreateInput
		f.writer.On("Create", mock.Anything, mock.Anything).
			Run(func(args mock.Arguments) { got = args.Get(1).(appcompanion.CreateInput) }).
			Return(&appcompanion.CreateResult{
				Companion:         &companion.Companion{ID: 42, Title: "Alice Wang"},
				AttributesWritten: 9,
				ImagesPersisted:   3,
			}, nil)

		req := multipartRequest(t, http.MethodPost, "/api/v1/companions", fields,
			upload{field: "images", filename: "a.png", contentType: "image/png", data: pngHeader},
			upload{field: "images", filename: "b.png", contentType: "application/octet-stream", data: pngHeader},
			upload{field: "images", filename: "c.jpg", contentType: "image/jpeg", data: []byte("jpeg")},
		)
		w := f.serve(req)

		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
		f.writer.AssertExpectations(t)

		assert.Equal(t, "  Alice@Example.com ", got.UserName)
		assert.Equal(t, "s3cret-pass", got.Password)
		assert.Equal(t, []string{"English", "中文"}, got.Language)
		assert.Equal(t, []string{"Swimming", "Piano"}, got.Skill)
		assert.Equal(t, "是", got.BlueCard)
		require.Len(t, got.Images, 3)
		assert.Equal(t, "a.png", got.Images[0].Filename)
		assert.Equal(t, "image/png", got.Images[0].ContentType)
		assert.Equal(t, "image/png", got.Images[1].ContentType, "octet-stream should be sniffed")
		assert.Equal(t, "image/jpeg", got.Images[2].ContentType)
		assert.Equal(t, pngHeader, got.Images[0].Data)

		var resp struct {
			Success bool                        `json:"success"`
			Data    dto.CreateCompanionResponse `json:"data"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.True(t, resp.Success)
		assert.Equal(t, int64(42), resp.Data.Companion.ID)
		assert.Equal(t, 9, resp.Data.AttributesWritten)
		assert.Nil(t, resp.Data.Partial)
	})

	t.Run("reports partial creation", func(t *testing.T) {
		f := newCompanionFixture()
		f.writer.On("Create", mock.Anything, mock.Anything).Return(&appcompanion.CreateResult{
			Companion:         &companion.Companion{ID: 43},
			AttributesWritten: 7,
			ImagesPersisted:   2,
			Partial: &companion.PartialWriteError{
				RecordID:           43,
				AttributesWritten:  7,
				AttributesFailed:   2,
				ImagesPersisted:    2,
				ImagesRequested:    3,
				CollectionAdded:    true,
				FailedAttributeKey: []string{"skill", "language"},
			},
		}, nil)

		w := f.serve(multipartRequest(t, http.MethodPost, "/api/v1/companions", profileFields()))

		require.Equal(t, http.StatusCreated, w.Code)
		var resp struct {
			Data dto.CreateCompanionResponse `json:"data"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		require.NotNil(t, resp.Data.Partial)
		assert.Equal(t, 2, resp.Data.Partial.AttributesFailed)
		assert.Equal(t, []string{"skill", "language"}, resp.Data.Partial.FailedAttributes)
		assert.Equal(t, 3, resp.Data.Partial.ImagesRequested)
		assert.True(t, resp.Data.Partial.CollectionAdded)
		assert.False(t, resp.Data.Partial.StatusSet)
		assert.NotEmpty(t, resp.Data.Partial.Hint)
	})

	t.Run("handle taken is a conflict", func(t *testing.T) {
		f := newCompanionFixture()
		f.writer.On("Create", mock.Anything, mock.Anything).Return(nil, companion.ErrHandleTaken)

		w := f.serve(multipartRequest(t, http.MethodPost, "/api/v1/companions", profileFields()))

		assert.Equal(t, http.StatusConflict, w.Code)
		assert.Contains(t, w.Body.String(), dto.ErrCodeAlreadyExists)
	})

	t.Run("validation failure lists fields", func(t *testing.T) {
		f := newCompanionFixture()
		f.writer.On("Create", mock.Anything, mock.Anything).
			Return(nil, companion.NewValidationError("images", "at least 3 images are required"))

		w := f.serve(multipartRequest(t, http.MethodPost, "/api/v1/companions", profileFields()))

		require.Equal(t, http.StatusBadRequest, w.Code)
		resp := decodeResponse(t, w)
		require.NotNil(t, resp.Error)
		require.Len(t, resp.Error.Details, 1)
		assert.Equal(t, "images", resp.Error.Details[0].Field)
	})

	t.Run("url-encoded form has no uploads", func(t *testing.T) {
		f := newCompanionFixture()
		var got appcompanion.CreateInput
		f.writer.On("Create", mock.Anything, mock.Anything).
			Run(func(args mock.Arguments) { got = args.Get(1).(appcompanion.CreateInput) }).
			Return(nil, companion.NewValidationError("images", "at least 3 images are required"))

		req := httptest.NewRequest(http.MethodPost, "/api/v1/companions", strings.NewReader(profileFields().Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		w := f.serve(req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "Alice", got.FirstName)
		assert.Empty(t, got.Images)
	})
}

func TestCompanionHandler_Update(t *testing.T) {
	t.Run("passes removals and new images", func(t *testing.T) {
		f := newCompanionFixture()
		fields := profileFields()
		fields.Set("current_password", "old-pass")
		fields["remove_images"] = []string{"0", "2"}

		var got appcompanion.UpdateInput
		f.writer.On("Update", mock.Anything, mock.Anything).
			Run(func(args mock.Arguments) { got = args.Get(1).(appcompanion.UpdateInput) }).
			Return(&appcompanion.UpdateResult{
				Companion:         &companion.Companion{ID: 42},
				AttributesWritten: 8,
				AttributesDeleted: 1,
				ImagesKept:        2,
				ImagesAdded:       1,
			}, nil)

		w := f.serve(multipartRequest(t, http.MethodPut, "/api/v1/companions/42", fields,
			upload{field: "new_images", filename: "d.gif", data: []byte("GIF89a....")},
			upload{field: "images", filename: "ignored.png", contentType: "image/png", data: pngHeader},
		))

		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		assert.Equal(t, int64(42), got.ID)
		assert.Equal(t, "old-pass", got.CurrentPassword)
		assert.Equal(t, []int{0, 2}, got.RemoveImageIndices)
		require.Len(t, got.NewImages, 1)
		assert.Equal(t, "image/gif", got.NewImages[0].ContentType)

		var resp struct {
			Data dto.UpdateCompanionResponse `json:"data"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, 1, resp.Data.AttributesDeleted)
		assert.Equal(t, 2, resp.Data.ImagesKept)
	})

	t.Run("wrong password", func(t *testing.T) {
		f := newCompanionFixture()
		f.writer.On("Update", mock.Anything, mock.Anything).Return(nil, companion.ErrPasswordMismatch)

		w := f.serve(multipartRequest(t, http.MethodPut, "/api/v1/companions/42", profileFields()))

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("partial attribute failure", func(t *testing.T) {
		f := newCompanionFixture()
		f.writer.On("Update", mock.Anything, mock.Anything).Return(nil, &companion.ReconcileError{
			RecordID: 42,
			Errors:   []companion.AttributeError{{Key: "age", Message: "value is invalid"}},
		})

		w := f.serve(multipartRequest(t, http.MethodPut, "/api/v1/companions/42", profileFields()))

		assert.Equal(t, http.StatusBadGateway, w.Code)
		assert.Contains(t, w.Body.String(), dto.ErrCodePartialWrite)
	})

	t.Run("invalid id", func(t *testing.T) {
		f := newCompanionFixture()

		w := f.serve(multipartRequest(t, http.MethodPut, "/api/v1/companions/abc", profileFields()))

		assert.Equal(t, http.StatusNotFound, w.Code)
		f.writer.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
	})

	t.Run("malformed removal index", func(t *testing.T) {
		f := newCompanionFixture()
		fields := profileFields()
		fields.Set("remove_images", "first")

		w := f.serve(multipartRequest(t, http.MethodPut, "/api/v1/companions/42", fields))

		assert.Equal(t, http.StatusBadRequest, w.Code)
		f.writer.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
	})
}

func TestCompanionHandler_Get(t *testing.T) {
	f := newCompanionFixture()
	f.writer.On("Get", mock.Anything, int64(42)).Return(&companion.Companion{ID: 42, Title: "Alice Wang"}, nil)
	f.writer.On("Get", mock.Anything, int64(7)).Return(nil, companion.ErrCompanionNotFound)

	w := f.serve(httptest.NewRequest(http.MethodGet, "/api/v1/companions/42", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Alice Wang")

	w = f.serve(httptest.NewRequest(http.MethodGet, "/api/v1/companions/7", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = f.serve(httptest.NewRequest(http.MethodGet, "/api/v1/companions/0", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCompanionHandler_Search(t *testing.T) {
	t.Run("returns page with meta", func(t *testing.T) {
		f := newCompanionFixture()
		f.searcher.On("Search", mock.Anything, appcompanion.SearchQuery{
			Query:  "piano",
			Cities: []string{"Sydney", "Melbourne"},
			Page:   2,
		}).Return(&appcompanion.SearchResult{
			Items:      []companion.Companion{{ID: 1}, {ID: 2}},
			Total:      14,
			Page:       2,
			PageSize:   12,
			TotalPages: 2,
		}, nil)

		w := f.serve(httptest.NewRequest(http.MethodGet, "/api/v1/companions?q=piano&city=Sydney,Melbourne&page=2", nil))

		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		resp := decodeResponse(t, w)
		require.NotNil(t, resp.Meta)
		assert.Equal(t, int64(14), resp.Meta.Total)
		assert.Equal(t, 2, resp.Meta.Page)
		assert.Equal(t, 2, resp.Meta.TotalPages)
		f.searcher.AssertExpectations(t)
	})

	t.Run("defaults to first page", func(t *testing.T) {
		f := newCompanionFixture()
		f.searcher.On("Search", mock.Anything, appcompanion.SearchQuery{Page: 1}).
			Return(&appcompanion.SearchResult{Items: []companion.Companion{}, Page: 1, PageSize: 12}, nil)

		w := f.serve(httptest.NewRequest(http.MethodGet, "/api/v1/companions", nil))

		assert.Equal(t, http.StatusOK, w.Code)
		f.searcher.AssertExpectations(t)
	})

	t.Run("page past the end", func(t *testing.T) {
		f := newCompanionFixture()
		f.searcher.On("Search", mock.Anything, mock.Anything).Return(nil, companion.ErrPageNotFound)

		w := f.serve(httptest.NewRequest(http.MethodGet, "/api/v1/companions?page=9", nil))

		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("catalog unavailable", func(t *testing.T) {
		f := newCompanionFixture()
		f.searcher.On("Search", mock.Anything, mock.Anything).Return(nil, companion.ErrCatalogUnavailable)

		w := f.serve(httptest.NewRequest(http.MethodGet, "/api/v1/companions", nil))

		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	})
}

func TestCompanionHandler_HandleExists(t *testing.T) {
	f := newCompanionFixture()
	f.handles.On("Exists", mock.Anything, "alice@example.com").Return(true, nil)

	w := f.serve(httptest.NewRequest(http.MethodGet, "/api/v1/companions/handles/exists?user_name=Alice@Example.com", nil))

	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Data dto.HandleExistsResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "alice@example.com", resp.Data.UserName)
	assert.True(t, resp.Data.Exists)

	w = f.serve(httptest.NewRequest(http.MethodGet, "/api/v1/companions/handles/exists", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHealthHandler(t *testing.T) {
	c, w := newTestContext()

	NewHealthHandler("companion-directory", "1.2.3").Health(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"healthy"`)
	assert.Contains(t, w.Body.String(), `"version":"1.2.3"`)
}

func TestSplitList(t *testing.T) {
	tests := []struct {
		name string
		in   []string
		want []string
	}{
		{"nil", nil, nil},
		{"repeated values", []string{"a", "b"}, []string{"a", "b"}},
		{"comma separated", []string{"a, b ,c"}, []string{"a", "b", "c"}},
		{"full-width comma", []string{"英语，中文"}, []string{"英语", "中文"}},
		{"drops blanks", []string{" ", "a,,", ""}, []string{"a"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, splitList(tt.in))
		})
	}
}
