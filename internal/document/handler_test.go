package document

import (
	"bytes"
	"cagchat/internal/auth"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"net/url"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type api struct {
	router *gin.Engine
	token  string
	fix    *fixture
}

func newAPI(t *testing.T, maxUpload int64) *api {
	t.Helper()
	fix := newFixture(t)
	tokens := auth.NewTokenService([]byte("secret"), time.Hour)
	h := NewHandler(fix.svc, slog.New(slog.NewTextHandler(io.Discard, nil)), maxUpload)

	r := gin.New()
	r.GET("/take_uuid", h.TakeUUID)
	protected := r.Group("/")
	protected.Use(auth.MiddleWare(tokens))
	protected.POST("/upload/:uuid", h.Upload)
	protected.PUT("/update/:uuid", h.Update)
	protected.GET("/query/:uuid", h.Query)
	protected.DELETE("/delete/:uuid", h.Delete)
	protected.GET("/list_uuids", h.List)

	token, _, err := tokens.Issue(1, "ada@example.com")
	require.NoError(t, err)
	return &api{router: r, token: token, fix: fix}
}

type upload struct {
	content     string
	contentType string
	fileName    string
	date        string
	noFile      bool
}

func (a *api) send(method, path string, body io.Reader, contentType string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Authorization", "Bearer "+a.token)
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	return w
}

func (a *api) upload(t *testing.T, method, path string, u upload) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if !u.noFile {
		ct := u.contentType
		if ct == "" {
			ct = "application/pdf"
		}
		hdr := make(textproto.MIMEHeader)
		hdr.Set("Content-Disposition", `form-data; name="file"; filename="upload.pdf"`)
		hdr.Set("Content-Type", ct)
		part, err := mw.CreatePart(hdr)
		require.NoError(t, err)
		_, err = part.Write([]byte(u.content))
		require.NoError(t, err)
	}
	if u.fileName != "" {
		require.NoError(t, mw.WriteField("file_name", u.fileName))
	}
	if u.date != "" {
		require.NoError(t, mw.WriteField("date", u.date))
	}
	require.NoError(t, mw.Close())
	return a.send(method, path, &buf, mw.FormDataContentType())
}

func body(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var m map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &m), w.Body.String())
	return m
}

func TestHandler_TakeUUID(t *testing.T) {
	t.Parallel()
	a := newAPI(t, 0)

	req := httptest.NewRequest(http.MethodGet, "/take_uuid", nil)
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	id, _ := body(t, w)["uuid"].(string)
	assert.Len(t, id, 36)
	assert.Empty(t, a.fix.svc.List(req.Context()))
}

func TestHandler_UploadQueryRoundTrip(t *testing.T) {
	t.Parallel()
	a := newAPI(t, 0)

	w := a.upload(t, http.MethodPost, "/upload/"+id1, upload{content: "Hello world", fileName: "greeting.pdf", date: "2024-01-02"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	b := body(t, w)
	assert.Equal(t, id1, b["uuid"])
	assert.Equal(t, "greeting.pdf", b["file_name"])
	assert.Equal(t, "2024-01-02", b["date"])

	w = a.send(http.MethodGet, "/query/"+id1+"?"+url.Values{"query": {"What is said?"}}.Encode(), nil, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	b = body(t, w)
	assert.Equal(t, id1, b["uuid"])
	assert.Equal(t, "greeting.pdf", b["file_name"])
	assert.Equal(t, "What is said?", b["query"])
	resp, ok := b["llm_response"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "Hello world", resp["text"])
	assert.Equal(t, float64(len("Hello world")), resp["tokens_used"])
}

func TestHandler_UploadErrors(t *testing.T) {
	t.Parallel()
	a := newAPI(t, 0)

	w := a.upload(t, http.MethodPost, "/upload/"+id1, upload{content: "x", contentType: "text/plain"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Invalid file type. Only PDF files are accepted.", body(t, w)["detail"])

	w = a.upload(t, http.MethodPost, "/upload/not-a-uuid", upload{content: "x"})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, "validation failed: uuid path parameter must be a valid UUID", body(t, w)["detail"])

	w = a.upload(t, http.MethodPost, "/upload/"+id1, upload{noFile: true, fileName: "a.pdf"})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, "validation failed: file field is required", body(t, w)["detail"])

	require.Equal(t, http.StatusCreated, a.upload(t, http.MethodPost, "/upload/"+id1, upload{content: "x"}).Code)
	w = a.upload(t, http.MethodPost, "/upload/"+id1, upload{content: "y"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, fmt.Sprintf("UUID %s already exists. Use PUT /update/%s to append data.", id1, id1), body(t, w)["detail"])
}

func TestHandler_UploadExtractionFailure(t *testing.T) {
	t.Parallel()
	a := newAPI(t, 0)

	w := a.upload(t, http.MethodPost, "/upload/"+id1, upload{content: "   "})
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "Failed to extract text from PDF.", body(t, w)["detail"])
	a.fix.assertNoTempFiles(t)
}

func TestHandler_UploadTooLarge(t *testing.T) {
	t.Parallel()
	a := newAPI(t, 64)

	w := a.upload(t, http.MethodPost, "/upload/"+id1, upload{content: string(bytes.Repeat([]byte("a"), 4096))})
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	assert.Equal(t, "Uploaded file is too large.", body(t, w)["detail"])
	assert.Equal(t, 0, a.fix.docs.Count())
}

func TestHandler_UpdateAppends(t *testing.T) {
	t.Parallel()
	a := newAPI(t, 0)

	w := a.upload(t, http.MethodPut, "/update/"+id1, upload{content: "B"})
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, fmt.Sprintf("UUID %s not found. Upload first.", id1), body(t, w)["detail"])

	require.Equal(t, http.StatusCreated, a.upload(t, http.MethodPost, "/upload/"+id1, upload{content: "A", fileName: "a.pdf"}).Code)

	w = a.upload(t, http.MethodPut, "/update/"+id1, upload{content: "B", fileName: "b.pdf"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "b.pdf", body(t, w)["file_name"])

	doc, err := a.fix.docs.Get(context.Background(), id1)
	require.NoError(t, err)
	assert.Equal(t, "A\n\nB", doc.Text)
	assert.Equal(t, "a.pdf", doc.FileName)
}

func TestHandler_DeleteThenQuery(t *testing.T) {
	t.Parallel()
	a := newAPI(t, 0)
	require.Equal(t, http.StatusCreated, a.upload(t, http.MethodPost, "/upload/"+id1, upload{content: "A", fileName: "a.pdf", date: "2024-01-02"}).Code)

	w := a.send(http.MethodDelete, "/delete/"+id1, nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	b := body(t, w)
	assert.Equal(t, "a.pdf", b["file_name"])
	assert.Equal(t, "2024-01-02", b["date"])

	w = a.send(http.MethodGet, "/query/"+id1+"?query=hi", nil, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, fmt.Sprintf("UUID %s not found.", id1), body(t, w)["detail"])

	w = a.send(http.MethodDelete, "/delete/"+id1, nil, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHandler_QueryValidation(t *testing.T) {
	t.Parallel()
	a := newAPI(t, 0)
	require.Equal(t, http.StatusCreated, a.upload(t, http.MethodPost, "/upload/"+id1, upload{content: "A"}).Code)

	w := a.send(http.MethodGet, "/query/"+id1, nil, "")
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, "validation failed: query parameter is required", body(t, w)["detail"])

	w = a.send(http.MethodGet, "/query/bad?query=hi", nil, "")
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestHandler_QueryLLMFailure(t *testing.T) {
	t.Parallel()
	a := newAPI(t, 0)
	require.Equal(t, http.StatusCreated, a.upload(t, http.MethodPost, "/upload/"+id1, upload{content: "A"}).Code)
	a.fix.answerer.err = fmt.Errorf("quota exceeded")

	w := a.send(http.MethodGet, "/query/"+id1+"?query=hi", nil, "")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestHandler_List(t *testing.T) {
	t.Parallel()
	a := newAPI(t, 0)

	w := a.send(http.MethodGet, "/list_uuids", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"items":[]}`, w.Body.String())

	require.Equal(t, http.StatusCreated, a.upload(t, http.MethodPost, "/upload/"+id1, upload{content: "A", fileName: "a.pdf", date: "2024-01-02"}).Code)

	w = a.send(http.MethodGet, "/list_uuids", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, fmt.Sprintf(`{"items":[{"uuid":%q,"file_name":"a.pdf","date":"2024-01-02"}]}`, id1), w.Body.String())
}

func TestHandler_RequiresToken(t *testing.T) {
	t.Parallel()
	a := newAPI(t, 0)

	for _, tc := range []struct{ method, path string }{
		{http.MethodPost, "/upload/" + id1},
		{http.MethodPut, "/update/" + id1},
		{http.MethodGet, "/query/" + id1 + "?query=q"},
		{http.MethodDelete, "/delete/" + id1},
		{http.MethodGet, "/list_uuids"},
	} {
		req := httptest.NewRequest(tc.method, tc.path, nil)
		w := httptest.NewRecorder()
		a.router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusUnauthorized, w.Code, tc.path)
	}
}
