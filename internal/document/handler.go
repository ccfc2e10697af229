package document

import (
	"cagchat/internal/auth"
	"cagchat/internal/errs"
	"cagchat/internal/utils"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	service        *Service
	logger         *slog.Logger
	maxUploadBytes int64
}

func NewHandler(service *Service, logger *slog.Logger, maxUploadBytes int64) *Handler {
	return &Handler{
		service:        service,
		logger:         logger,
		maxUploadBytes: maxUploadBytes,
	}
}

// TakeUUID hands out a fresh identifier. Nothing is stored.
func (h *Handler) TakeUUID(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, gin.H{
		"message": "Copy this UUID and use it for upload/update/query operations.",
		"uuid":    utils.NewIdentifier(),
	})
}

func (h *Handler) Upload(ctx *gin.Context) {
	in, file, ok := h.bindUpload(ctx)
	if !ok {
		return
	}
	defer file.Close()

	receipt, err := h.service.Upload(ctx.Request.Context(), in)
	if err != nil {
		h.fail(ctx, in.ID, err, fmt.Sprintf("UUID %s already exists. Use PUT /update/%s to append data.", in.ID, in.ID), "")
		return
	}

	h.logger.Info("Document uploaded", "uuid", receipt.ID, "user_id", userID(ctx), "fileName", receipt.FileName)
	ctx.JSON(http.StatusCreated, gin.H{
		"message":   "File uploaded and text extracted successfully.",
		"uuid":      receipt.ID,
		"file_name": receipt.FileName,
		"date":      receipt.Date,
	})
}

func (h *Handler) Update(ctx *gin.Context) {
	in, file, ok := h.bindUpload(ctx)
	if !ok {
		return
	}
	defer file.Close()

	receipt, err := h.service.Update(ctx.Request.Context(), in)
	if err != nil {
		h.fail(ctx, in.ID, err, "", fmt.Sprintf("UUID %s not found. Upload first.", in.ID))
		return
	}

	h.logger.Info("Document text appended", "uuid", receipt.ID, "user_id", userID(ctx))
	ctx.JSON(http.StatusOK, gin.H{
		"message":   "New PDF text appended successfully.",
		"uuid":      receipt.ID,
		"file_name": receipt.FileName,
		"date":      receipt.Date,
	})
}

func (h *Handler) Query(ctx *gin.Context) {
	id, ok := h.bindID(ctx)
	if !ok {
		return
	}
	query, ok := ctx.GetQuery("query")
	if !ok {
		h.fail(ctx, id, fmt.Errorf("%w: query parameter is required", errs.ErrValidation), "", "")
		return
	}

	result, err := h.service.Query(ctx.Request.Context(), id, query)
	if err != nil {
		h.fail(ctx, id, err, "", "")
		return
	}

	h.logger.Info("Document queried", "uuid", id, "user_id", userID(ctx), "tokensUsed", result.Answer.TokensUsed)
	ctx.JSON(http.StatusOK, gin.H{
		"uuid":         result.Document.ID,
		"file_name":    result.Document.FileName,
		"date":         result.Document.Date,
		"query":        result.Query,
		"llm_response": result.Answer,
	})
}

func (h *Handler) Delete(ctx *gin.Context) {
	id, ok := h.bindID(ctx)
	if !ok {
		return
	}

	deleted, err := h.service.Delete(ctx.Request.Context(), id)
	if err != nil {
		h.fail(ctx, id, err, "", "")
		return
	}

	h.logger.Info("Document deleted", "uuid", id, "user_id", userID(ctx))
	ctx.JSON(http.StatusOK, gin.H{
		"message":   fmt.Sprintf("Data for UUID %s deleted successfully.", id),
		"file_name": deleted.FileName,
		"date":      deleted.Date,
	})
}

func (h *Handler) List(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, gin.H{"items": h.service.List(ctx.Request.Context())})
}

func (h *Handler) bindID(ctx *gin.Context) (string, bool) {
	id, err := utils.ParseIdentifier(ctx.Param("uuid"))
	if err != nil {
		h.fail(ctx, ctx.Param("uuid"), fmt.Errorf("%w: uuid path parameter must be a valid UUID", errs.ErrValidation), "", "")
		return "", false
	}
	return id, true
}

// bindUpload reads the path identifier, the multipart file and the optional
// file_name/date fields. The caller closes the returned file.
func (h *Handler) bindUpload(ctx *gin.Context) (UploadInput, io.Closer, bool) {
	id, ok := h.bindID(ctx)
	if !ok {
		return UploadInput{}, nil, false
	}

	if h.maxUploadBytes > 0 {
		ctx.Request.Body = http.MaxBytesReader(ctx.Writer, ctx.Request.Body, h.maxUploadBytes)
	}
	fileHeader, err := ctx.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			ctx.JSON(http.StatusRequestEntityTooLarge, gin.H{"detail": "Uploaded file is too large."})
			return UploadInput{}, nil, false
		}
		h.fail(ctx, id, fmt.Errorf("%w: file field is required", errs.ErrValidation), "", "")
		return UploadInput{}, nil, false
	}

	file, err := fileHeader.Open()
	if err != nil {
		h.logger.Error("Failed to open uploaded file", "uuid", id, "error", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"detail": "Internal server error"})
		return UploadInput{}, nil, false
	}
	return UploadInput{
		ID:          id,
		FileName:    ctx.PostForm("file_name"),
		Date:        ctx.PostForm("date"),
		ContentType: fileHeader.Header.Get("Content-Type"),
		Content:     file,
	}, file, true
}

// fail maps a service error onto a response. conflictMsg and notFoundMsg
// override the default messages for those cases when set.
func (h *Handler) fail(ctx *gin.Context, id string, err error, conflictMsg, notFoundMsg string) {
	switch {
	case errors.Is(err, errs.ErrValidation):
		ctx.JSON(http.StatusUnprocessableEntity, gin.H{"detail": err.Error()})
	case errors.Is(err, errs.ErrUnsupportedMediaType):
		ctx.JSON(http.StatusBadRequest, gin.H{"detail": "Invalid file type. Only PDF files are accepted."})
	case errors.Is(err, errs.ErrAlreadyExists):
		if conflictMsg == "" {
			conflictMsg = fmt.Sprintf("UUID %s already exists.", id)
		}
		ctx.JSON(http.StatusBadRequest, gin.H{"detail": conflictMsg})
	case errors.Is(err, errs.ErrNotFound):
		if notFoundMsg == "" {
			notFoundMsg = fmt.Sprintf("UUID %s not found.", id)
		}
		ctx.JSON(http.StatusNotFound, gin.H{"detail": notFoundMsg})
	case errors.Is(err, errs.ErrExtractionFailed):
		h.logger.Error("Failed to extract text from PDF", "uuid", id, "error", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"detail": "Failed to extract text from PDF."})
	case errors.Is(err, errs.ErrLLMFailed):
		h.logger.Error("Language model request failed", "uuid", id, "error", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"detail": "Failed to get a response from the language model."})
	default:
		h.logger.Error("Unexpected error", "uuid", id, "error", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"detail": "Internal server error"})
	}
}

func userID(ctx *gin.Context) int64 {
	if claims, ok := auth.CurrentUser(ctx); ok {
		return claims.UserID
	}
	return 0
}
