package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"
	"path/filepath"

	"github.com/gabriel-vasile/mimetype"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/example/pictech-gateway/internal/imagefile"
	"github.com/example/pictech-gateway/internal/pictech"
	"github.com/example/pictech-gateway/internal/poller"
	"github.com/example/pictech-gateway/internal/usecase"
)

// MaxUploadSize caps uploaded translation images.
const MaxUploadSize = 10 << 20

// multipart framing allowance on top of MaxUploadSize
const multipartOverhead = 1 << 20

// ImageService is the use case surface served over HTTP.
// *usecase.ImageUseCase implements it.
type ImageService interface {
	SubmitTranslationByURL(ctx context.Context, imageURL string, langs usecase.Languages) (*pictech.Response, error)
	SubmitTranslationByBase64(ctx context.Context, imageBase64 string, langs usecase.Languages) (*pictech.Response, error)
	SubmitTranslationUpload(ctx context.Context, data []byte, contentType string, langs usecase.Languages) (*pictech.Response, error)
	QueryTranslationResult(ctx context.Context, requestID string) (*pictech.Response, error)
	SaveCanvasState(ctx context.Context, input usecase.CanvasInput) (string, error)
	GetCanvasState(ctx context.Context, requestID string) (*usecase.CanvasInput, error)
	SaveExportedImage(ctx context.Context, imageBase64, filename string) (string, error)
	Inpaint(ctx context.Context, image, mask string) (*usecase.InpaintResult, error)
	SaveInpaintedImage(ctx context.Context, imageBase64 string) (string, error)
	RemoveBackground(ctx context.Context, input usecase.RemoveBackgroundInput) (*poller.Outcome, error)
	GetTask(ctx context.Context, requestID string) (*usecase.TaskStatus, error)
	GetTaskSummary(ctx context.Context) (*usecase.TaskSummary, error)
}

var _ ImageService = (*usecase.ImageUseCase)(nil)

// Options configures the HTTP surface.
type Options struct {
	// UploadDir is served read-only under /files when set.
	UploadDir      string
	AllowedOrigins []string
	// Middleware guards every /api route.
	Middleware []gin.HandlerFunc
}

type urlTranslationRequest struct {
	ImageURL       string `json:"imageUrl"`
	SourceLanguage string `json:"sourceLanguage"`
	TargetLanguage string `json:"targetLanguage"`
}

type base64TranslationRequest struct {
	ImageBase64    string `json:"imageBase64"`
	SourceLanguage string `json:"sourceLanguage"`
	TargetLanguage string `json:"targetLanguage"`
}

type saveStateRequest struct {
	RequestID string `json:"RequestId"`
	Code      int    `json:"Code"`
	Message   string `json:"Message"`
	Data      *struct {
		FinalImageURL string `json:"FinalImageUrl"`
		InPaintingURL string `json:"InPaintingUrl"`
		SourceURL     string `json:"SourceUrl"`
		TemplateJSON  string `json:"TemplateJson"`
	} `json:"Data"`
}

type exportedImageRequest struct {
	RequestID   string `json:"requestId"`
	Filename    string `json:"filename"`
	ImageBase64 string `json:"imageBase64"`
}

type inpaintRequest struct {
	Image string `json:"image"`
	Mask  string `json:"mask"`
}

type backgroundRequest struct {
	ImageURL       string `json:"imageUrl"`
	ImageBase64    string `json:"imageBase64"`
	BgColor        string `json:"bgColor"`
	OutputFilename string `json:"outputFilename"`
}

// RegisterRoutes wires the HTTP handlers to the Gin router.
func RegisterRoutes(router *gin.Engine, svc ImageService, opts Options) {
	router.Use(CORS(opts.AllowedOrigins))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	if opts.UploadDir != "" {
		router.Static("/files", opts.UploadDir)
		router.Static("/"+usecase.InpaintedImagesPath, filepath.Join(opts.UploadDir, usecase.InpaintedImagesPath))
	}

	api := router.Group("/api", opts.Middleware...)

	translate := api.Group("/translate")
	translate.POST("/url", func(c *gin.Context) {
		var req urlTranslationRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}
		resp, err := svc.SubmitTranslationByURL(c.Request.Context(), req.ImageURL, usecase.Languages{Source: req.SourceLanguage, Target: req.TargetLanguage})
		if err != nil {
			writeError(c, err, nil)
			return
		}
		writeEnvelope(c, resp)
	})

	translate.POST("/base64", func(c *gin.Context) {
		var req base64TranslationRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}
		resp, err := svc.SubmitTranslationByBase64(c.Request.Context(), req.ImageBase64, usecase.Languages{Source: req.SourceLanguage, Target: req.TargetLanguage})
		if err != nil {
			writeError(c, err, nil)
			return
		}
		writeEnvelope(c, resp)
	})

	translate.POST("/upload", func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, MaxUploadSize+multipartOverhead)

		file, err := c.FormFile("file")
		if err != nil {
			var maxErr *http.MaxBytesError
			if errors.As(err, &maxErr) {
				c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "file too large"})
				return
			}
			c.JSON(http.StatusBadRequest, gin.H{"error": "file is required"})
			return
		}
		if file.Size > MaxUploadSize {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "file too large"})
			return
		}
		if file.Size == 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "file is empty"})
			return
		}

		src, err := file.Open()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unable to open file"})
			return
		}
		defer src.Close()

		data, err := io.ReadAll(src)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read file"})
			return
		}

		contentType := file.Header.Get("Content-Type")
		if !imagefile.IsImageType(contentType) && !imagefile.IsImageType(mimetype.Detect(data).String()) {
			c.JSON(http.StatusUnsupportedMediaType, gin.H{"error": "only image uploads are supported"})
			return
		}

		langs := usecase.Languages{Source: c.PostForm("sourceLanguage"), Target: c.PostForm("targetLanguage")}
		resp, err := svc.SubmitTranslationUpload(c.Request.Context(), data, contentType, langs)
		if err != nil {
			writeError(c, err, nil)
			return
		}
		writeEnvelope(c, resp)
	})

	translate.GET("/result/:requestId", func(c *gin.Context) {
		resp, err := svc.QueryTranslationResult(c.Request.Context(), c.Param("requestId"))
		if err != nil {
			writeError(c, err, gin.H{"requestId": c.Param("requestId")})
			return
		}
		writeEnvelope(c, resp)
	})

	translate.POST("/save", func(c *gin.Context) {
		var req saveStateRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}

		saveID := uuid.NewString()
		if req.Data != nil {
			id, err := svc.SaveCanvasState(c.Request.Context(), usecase.CanvasInput{
				RequestID:     req.RequestID,
				FinalImageURL: req.Data.FinalImageURL,
				InPaintingURL: req.Data.InPaintingURL,
				SourceURL:     req.Data.SourceURL,
				TemplateJSON:  req.Data.TemplateJSON,
			})
			if err != nil {
				writeError(c, err, nil)
				return
			}
			saveID = id
		}
		c.JSON(http.StatusOK, gin.H{"Code": pictech.CodeSuccess, "Message": "state saved", "RequestId": saveID})
	})

	translate.GET("/save/:requestId", func(c *gin.Context) {
		state, err := svc.GetCanvasState(c.Request.Context(), c.Param("requestId"))
		if err != nil {
			writeError(c, err, gin.H{"requestId": c.Param("requestId")})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"Code":      pictech.CodeSuccess,
			"Message":   "ok",
			"RequestId": state.RequestID,
			"Data": gin.H{
				"FinalImageUrl": state.FinalImageURL,
				"InPaintingUrl": state.InPaintingURL,
				"SourceUrl":     state.SourceURL,
				"TemplateJson":  state.TemplateJSON,
			},
		})
	})

	translate.POST("/uploadExportedImage", func(c *gin.Context) {
		var req exportedImageRequest
		if err := c.ShouldBindJSON(&req); err != nil || req.ImageBase64 == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "imageBase64 is required"})
			return
		}
		path, err := svc.SaveExportedImage(c.Request.Context(), req.ImageBase64, req.Filename)
		if err != nil {
			writeError(c, err, nil)
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "file uploaded", "filePath": path})
	})

	translate.POST("/iopaint", func(c *gin.Context) {
		var req inpaintRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}
		result, err := svc.Inpaint(c.Request.Context(), req.Image, req.Mask)
		if err != nil {
			writeError(c, err, nil)
			return
		}
		c.JSON(http.StatusOK, gin.H{"newImageBase64": result.ImageBase64, "requestId": result.RequestID})
	})

	translate.POST("/uploadIoInpaintImage", func(c *gin.Context) {
		var req struct {
			ImageData string `json:"imageData"`
		}
		if err := c.ShouldBindJSON(&req); err != nil || req.ImageData == "" {
			c.JSON(http.StatusBadRequest, gin.H{"Code": http.StatusBadRequest, "Message": "imageData is required", "Data": nil})
			return
		}
		url, err := svc.SaveInpaintedImage(c.Request.Context(), req.ImageData)
		if err != nil {
			status := statusFor(err)
			c.JSON(status, gin.H{"Code": status, "Message": err.Error(), "Data": nil})
			return
		}
		c.JSON(http.StatusOK, gin.H{"Code": pictech.CodeSuccess, "Message": "upload succeeded", "Data": gin.H{"Url": url}})
	})

	api.POST("/background/remove", func(c *gin.Context) {
		var req backgroundRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}
		outcome, err := svc.RemoveBackground(c.Request.Context(), usecase.RemoveBackgroundInput{
			ImageURL:       req.ImageURL,
			ImageBase64:    req.ImageBase64,
			BgColor:        req.BgColor,
			OutputFilename: req.OutputFilename,
		})
		if err != nil {
			extra := gin.H{}
			if outcome != nil {
				extra["requestId"] = outcome.RequestID
				extra["attempts"] = outcome.Attempts
			}
			writeError(c, err, extra)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"requestId":  outcome.RequestID,
			"status":     outcome.State,
			"attempts":   outcome.Attempts,
			"outputUrl":  outcome.OutputURL,
			"path":       outcome.SavedPath,
			"durationMs": outcome.Duration.Milliseconds(),
		})
	})

	api.GET("/tasks/summary", func(c *gin.Context) {
		summary, err := svc.GetTaskSummary(c.Request.Context())
		if err != nil {
			writeError(c, err, nil)
			return
		}
		c.JSON(http.StatusOK, summary)
	})

	api.GET("/tasks/:id", func(c *gin.Context) {
		status, err := svc.GetTask(c.Request.Context(), c.Param("id"))
		if err != nil {
			writeError(c, err, nil)
			return
		}
		c.JSON(http.StatusOK, status)
	})
}

// writeEnvelope relays a vendor envelope byte for byte when the raw body is
// available.
func writeEnvelope(c *gin.Context, resp *pictech.Response) {
	if len(resp.Raw) > 0 {
		c.Data(http.StatusOK, "application/json; charset=utf-8", resp.Raw)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, usecase.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, usecase.ErrTaskNotFound), errors.Is(err, usecase.ErrCanvasNotFound):
		return http.StatusNotFound
	}
	kind, ok := pictech.KindOf(err)
	if !ok {
		return http.StatusInternalServerError
	}
	switch kind {
	case pictech.KindTimeout:
		return http.StatusGatewayTimeout
	case pictech.KindVendor, pictech.KindMalformed, pictech.KindTransport, pictech.KindDecode:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func writeError(c *gin.Context, err error, extra gin.H) {
	status := statusFor(err)
	body := gin.H{"error": err.Error()}
	for k, v := range extra {
		body[k] = v
	}
	if status == http.StatusGatewayTimeout {
		body["status"] = "incomplete"
	}
	var vendorErr *pictech.Error
	if errors.As(err, &vendorErr) {
		if vendorErr.Code != 0 {
			body["code"] = vendorErr.Code
		}
		if vendorErr.ErrorCode != "" {
			body["errorCode"] = vendorErr.ErrorCode
		}
	}
	_ = c.Error(err)
	c.JSON(status, body)
}
