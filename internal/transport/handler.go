package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go-image-enhancer/internal/config"
	apperrors "go-image-enhancer/internal/errors"
	"go-image-enhancer/internal/logger"
	"go-image-enhancer/internal/media"
	"go-image-enhancer/internal/service"
	"go-image-enhancer/pkg/models"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

const uploadField = "image"

type handler struct {
	svc            service.EnhancementService
	requestTimeout time.Duration
	maxUploadSize  int64
}

func NewHandler(svc service.EnhancementService, cfg *config.Config) http.Handler {
	h := &handler{
		svc:            svc,
		requestTimeout: cfg.RequestTimeout,
		maxUploadSize:  cfg.MaxRequestBodySize,
	}

	r := gin.Default()

	// Add middleware
	r.Use(
		requestSizeLimiter(cfg.MaxRequestBodySize),
		errorHandler(),
	)

	r.GET("/health", healthCheck)
	r.GET("/stats", h.stats)

	sessions := r.Group("/sessions")
	{
		sessions.POST("", h.createSession)
		sessions.GET("/:id", h.getSession)
		sessions.DELETE("/:id", h.deleteSession)
		sessions.POST("/:id/image", h.uploadImage)
		sessions.POST("/:id/image/url", h.uploadImageURL)
		sessions.POST("/:id/recommendation", h.requestRecommendation)
		sessions.POST("/:id/recommendation/accept", h.acceptRecommendation)
		sessions.PUT("/:id/filter", h.setFilterType)
		sessions.PUT("/:id/kernel", h.setKernelSize)
		sessions.POST("/:id/apply", h.apply)
		sessions.GET("/:id/output", h.output)
		sessions.POST("/:id/reset", h.reset)
	}

	return r
}

func (h *handler) requestContext(c *gin.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request.Context(), h.requestTimeout)
}

func (h *handler) createSession(c *gin.Context) {
	ctx, cancel := h.requestContext(c)
	defer cancel()

	resp, err := h.svc.CreateSession(ctx)
	if err != nil {
		respondError(c, apperrors.GetStatusCode(err), "failed to create session", err)
		return
	}

	logger.ForSession(resp.ID).WithField("ip", c.ClientIP()).Info("Session created")
	c.JSON(http.StatusCreated, resp)
}

func (h *handler) getSession(c *gin.Context) {
	ctx, cancel := h.requestContext(c)
	defer cancel()

	resp, err := h.svc.GetSession(ctx, c.Param("id"))
	h.respond(c, resp, err, "failed to load session")
}

func (h *handler) deleteSession(c *gin.Context) {
	ctx, cancel := h.requestContext(c)
	defer cancel()

	if err := h.svc.DeleteSession(ctx, c.Param("id")); err != nil {
		respondError(c, apperrors.GetStatusCode(err), "failed to delete session", err)
		return
	}
	c.Status(http.StatusNoContent)
}

// uploadImage accepts a multipart form with an "image" file, or the raw image
// as the request body with its Content-Type.
func (h *handler) uploadImage(c *gin.Context) {
	ctx, cancel := h.requestContext(c)
	defer cancel()

	startTime := time.Now()
	id := c.Param("id")

	raw, err := h.readUpload(c)
	if err != nil {
		respondError(c, apperrors.GetStatusCode(err), "invalid upload", err)
		return
	}

	logger.ForSession(id).WithFields(logrus.Fields{
		"declared_type": raw.MediaType,
		"size_bytes":    len(raw.Data),
		"ip":            c.ClientIP(),
	}).Debug("Processing image upload")

	resp, err := h.svc.Upload(ctx, id, raw)
	if err != nil {
		respondError(c, apperrors.GetStatusCode(err), "upload failed", err)
		return
	}

	logger.ForSession(id).WithFields(logrus.Fields{
		"processing_time_ms": time.Since(startTime).Milliseconds(),
		"blur":               resp.Metrics.Blur,
		"brightness":         resp.Metrics.Brightness,
		"contrast":           resp.Metrics.Contrast,
	}).Info("Image upload completed successfully")

	c.JSON(http.StatusOK, resp)
}

func (h *handler) readUpload(c *gin.Context) (media.Raw, error) {
	if strings.HasPrefix(c.ContentType(), "multipart/") {
		header, err := c.FormFile(uploadField)
		if err != nil {
			return media.Raw{}, apperrors.NewValidationError(fmt.Sprintf("multipart field %q is required", uploadField), err)
		}
		file, err := header.Open()
		if err != nil {
			return media.Raw{}, apperrors.NewValidationError("failed to open uploaded file", err)
		}
		defer file.Close()

		data, err := h.readAll(file)
		if err != nil {
			return media.Raw{}, err
		}
		return media.Raw{Data: data, MediaType: declaredType(header), Source: header.Filename}, nil
	}

	data, err := h.readAll(c.Request.Body)
	if err != nil {
		return media.Raw{}, err
	}
	if len(data) == 0 {
		return media.Raw{}, apperrors.NewValidationError("request body is empty", nil)
	}
	return media.Raw{Data: data, MediaType: c.GetHeader("Content-Type"), Source: "body"}, nil
}

func (h *handler) readAll(r io.Reader) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, h.maxUploadSize+1))
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return nil, apperrors.NewValidationError("upload exceeds the size limit", err)
		}
		return nil, apperrors.NewValidationError("failed to read upload", err)
	}
	if int64(len(data)) > h.maxUploadSize {
		return nil, apperrors.NewValidationError("upload exceeds the size limit", nil)
	}
	return data, nil
}

func declaredType(header *multipart.FileHeader) string {
	return header.Header.Get("Content-Type")
}

func (h *handler) uploadImageURL(c *gin.Context) {
	ctx, cancel := h.requestContext(c)
	defer cancel()

	var req models.UploadURLRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.WithError(err).WithFields(logrus.Fields{
			"ip": c.ClientIP(),
		}).Error("Invalid request format")
		respondError(c, http.StatusBadRequest, "invalid request format", err)
		return
	}

	logger.ForSession(c.Param("id")).WithField("url", req.URL).Debug("Fetching image")

	resp, err := h.svc.UploadFromURL(ctx, c.Param("id"), req.URL)
	h.respond(c, resp, err, "upload by URL failed")
}

func (h *handler) requestRecommendation(c *gin.Context) {
	ctx, cancel := h.requestContext(c)
	defer cancel()

	wait, err := strconv.ParseBool(c.DefaultQuery("wait", "false"))
	if err != nil {
		respondError(c, http.StatusBadRequest, "invalid wait parameter", err)
		return
	}

	resp, err := h.svc.RequestRecommendation(ctx, c.Param("id"), wait)
	if err != nil {
		respondError(c, apperrors.GetStatusCode(err), "recommendation failed", err)
		return
	}
	if resp.Analyzing {
		c.JSON(http.StatusAccepted, resp)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *handler) acceptRecommendation(c *gin.Context) {
	ctx, cancel := h.requestContext(c)
	defer cancel()

	resp, err := h.svc.AcceptRecommendation(ctx, c.Param("id"))
	h.respond(c, resp, err, "failed to accept recommendation")
}

func (h *handler) setFilterType(c *gin.Context) {
	ctx, cancel := h.requestContext(c)
	defer cancel()

	var req models.FilterTypeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "invalid request format", err)
		return
	}

	resp, err := h.svc.SetFilterType(ctx, c.Param("id"), req.FilterType)
	h.respond(c, resp, err, "failed to set filter type")
}

func (h *handler) setKernelSize(c *gin.Context) {
	ctx, cancel := h.requestContext(c)
	defer cancel()

	var req models.KernelSizeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "invalid request format", err)
		return
	}

	resp, err := h.svc.SetKernelSize(ctx, c.Param("id"), *req.KernelSize)
	h.respond(c, resp, err, "failed to set kernel size")
}

func (h *handler) apply(c *gin.Context) {
	ctx, cancel := h.requestContext(c)
	defer cancel()

	startTime := time.Now()
	resp, err := h.svc.Apply(ctx, c.Param("id"))
	if err != nil {
		respondError(c, apperrors.GetStatusCode(err), "filter application failed", err)
		return
	}

	logger.ForSession(resp.ID).WithFields(logrus.Fields{
		"processing_time_ms": time.Since(startTime).Milliseconds(),
		"filter_type":        resp.Output.Descriptor.FilterType,
		"kernel_size":        resp.Output.Descriptor.KernelSize,
	}).Info("Filter applied successfully")

	c.JSON(http.StatusOK, resp)
}

func (h *handler) output(c *gin.Context) {
	ctx, cancel := h.requestContext(c)
	defer cancel()

	download, err := h.svc.Output(ctx, c.Param("id"))
	if err != nil {
		respondError(c, apperrors.GetStatusCode(err), "output unavailable", err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", download.Filename))
	c.Data(http.StatusOK, download.ContentType, download.Data)
}

func (h *handler) reset(c *gin.Context) {
	ctx, cancel := h.requestContext(c)
	defer cancel()

	resp, err := h.svc.Reset(ctx, c.Param("id"))
	h.respond(c, resp, err, "reset failed")
}

func (h *handler) stats(c *gin.Context) {
	c.JSON(http.StatusOK, h.svc.Stats())
}

func (h *handler) respond(c *gin.Context, resp *models.SessionResponse, err error, message string) {
	if err != nil {
		respondError(c, determineStatusCode(err), message, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "available",
		"version": "1.0.0",
		"time":    time.Now().UTC().Format(time.RFC3339),
	})
}

// Middleware and helper functions
func requestSizeLimiter(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		// multipart framing needs some headroom over the image itself
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes+64*1024)
		c.Next()
	}
}

func errorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) > 0 && !c.Writer.Written() {
			err := c.Errors.Last()
			respondError(c, determineStatusCode(err.Err), "request processing failed", err.Err)
		}
	}
}

func determineStatusCode(err error) int {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return appErr.StatusCode
	}

	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, context.Canceled):
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

func respondError(c *gin.Context, code int, message string, err error) {
	fields := logrus.Fields{
		"status_code": code,
		"message":     message,
		"path":        c.Request.URL.Path,
		"method":      c.Request.Method,
		"ip":          c.ClientIP(),
	}
	if id := c.Param("id"); id != "" {
		fields["session_id"] = id
	}
	entry := logger.WithError(err).WithFields(fields)
	if code >= http.StatusInternalServerError {
		entry.Error("Request failed")
	} else {
		entry.Warn("Request failed")
	}

	resp := models.ErrorResponse{
		Error:   http.StatusText(code),
		Message: fmt.Sprintf("%s: %v", message, err),
	}
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		resp.Type = string(appErr.Type)
	}
	c.AbortWithStatusJSON(code, resp)
}
