package handler

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"ons-backend/internal/domain"
	"ons-backend/internal/service"
	"ons-backend/internal/transport/http/ez"
)

const (
	maxFilesPerUpload = 10
	downloadExpiresIn = 3600
)

type MediaHandler struct {
	svc *service.MediaService
}

func NewMediaHandler(svc *service.MediaService) *MediaHandler {
	return &MediaHandler{svc: svc}
}

// uploadQ 上传选项走 query，文件走 multipart
type uploadQ struct {
	EventID           string `form:"eventId" binding:"omitempty,uuid"`
	Tags              string `form:"tags"`
	IsPublic          string `form:"isPublic"`
	GenerateThumbnail string `form:"generateThumbnail"`
	Description       string `form:"description" binding:"omitempty,max=1000"`
	AltText           string `form:"altText" binding:"omitempty,max=500"`
	Category          string `form:"category" binding:"omitempty,max=100"`
}

func (q uploadQ) options() service.UploadOptions {
	opts := service.UploadOptions{
		IsPublic:          q.IsPublic == "true",
		GenerateThumbnail: q.GenerateThumbnail != "false",
		Tags:              splitTags(q.Tags),
		Description:       q.Description,
		AltText:           q.AltText,
		Category:          q.Category,
	}
	if q.EventID != "" {
		id := q.EventID
		opts.EventID = &id
	}
	return opts
}

func splitTags(s string) []string {
	out := []string{}
	for _, t := range strings.Split(s, ",") {
		if t = strings.TrimSpace(t); t != "" {
			out = append(out, t)
		}
	}
	return out
}

type galleryQ struct {
	pageQ
	Type string `form:"type" binding:"omitempty,mediatype"`
}

type searchQ struct {
	pageQ
	Q       string `form:"q" binding:"required,min=1,max=100"`
	Type    string `form:"type" binding:"omitempty,mediatype"`
	EventID string `form:"eventId" binding:"omitempty,uuid"`
}

type tagsQ struct {
	pageQ
	Tags    string `form:"tags" binding:"required"`
	EventID string `form:"eventId" binding:"omitempty,uuid"`
}

type statsQ struct {
	UserID  string `form:"userId" binding:"omitempty,uuid"`
	EventID string `form:"eventId" binding:"omitempty,uuid"`
	Type    string `form:"type" binding:"omitempty,mediatype"`
}

type sizeQ struct {
	Size string `form:"size" binding:"omitempty,oneof=thumbnail medium large original"`
}

type bulkDeleteIn struct {
	IDs []string `json:"ids" binding:"required,min=1,max=100,dive,required"`
}

type metadataIn struct {
	Tags        []string `json:"tags" binding:"omitempty,max=50,dive,max=50"`
	Description *string  `json:"description" binding:"omitempty,max=1000"`
	AltText     *string  `json:"altText" binding:"omitempty,max=500"`
	Category    *string  `json:"category" binding:"omitempty,max=100"`
}

type downloadOut struct {
	DownloadURL string `json:"downloadUrl"`
	ExpiresIn   int    `json:"expiresIn"`
}

// galleryOut 画廊分页结构：条目按场景放在 media/photos/videos 之一
type galleryOut struct {
	Media       any   `json:"media,omitempty"`
	Photos      any   `json:"photos,omitempty"`
	Videos      any   `json:"videos,omitempty"`
	TotalCount  int64 `json:"totalCount"`
	HasMore     bool  `json:"hasMore"`
	CurrentPage int   `json:"currentPage"`
	TotalPages  int   `json:"totalPages"`
	StoryFormat bool  `json:"storyFormat,omitempty"`
}

func newGallery[T any](p *service.Paged[T]) galleryOut {
	return galleryOut{
		TotalCount:  p.Total,
		HasMore:     p.Page.HasNext(p.Total),
		CurrentPage: p.Page.Page,
		TotalPages:  p.Page.TotalPages(p.Total),
	}
}

func mediaGallery(p *service.Paged[service.GalleryItem], err error) (galleryOut, error) {
	if err != nil {
		return galleryOut{}, err
	}
	out := newGallery(p)
	out.Media = p.Items
	return out, nil
}

func (h *MediaHandler) Mount(e ez.EZ, g Guards) {
	r := e.Group("/media", chain(g.Auth)...)
	upload := chain(g.UploadLimit)

	ez.RegisterAction(r, ez.Action[uploadQ, *domain.Media]{
		Method:  http.MethodPost,
		Path:    "/upload",
		Binder:  ez.BindQuery,
		Use:     upload,
		Auth:    true,
		Status:  http.StatusCreated,
		Message: "File uploaded successfully",
		Handler: func(c *gin.Context, in *uploadQ) (*domain.Media, error) {
			fh, err := c.FormFile("file")
			if err != nil {
				return nil, noFile(err, "No file was uploaded")
			}
			f, err := readUpload(fh)
			if err != nil {
				return nil, err
			}
			return h.svc.Upload(c.Request.Context(), f, ez.CurrentUser(c).ID, in.options())
		},
	})

	ez.RegisterAction(r, ez.Action[uploadQ, []service.UploadOutcome]{
		Method:  http.MethodPost,
		Path:    "/upload/multiple",
		Binder:  ez.BindQuery,
		Use:     upload,
		Auth:    true,
		Status:  http.StatusCreated,
		Handler: func(c *gin.Context, in *uploadQ) ([]service.UploadOutcome, error) {
			form, err := c.MultipartForm()
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				return nil, err
			}
			if err != nil || len(form.File["files"]) == 0 {
				return nil, ez.BadRequest("NO_FILES_UPLOADED", "No files were uploaded")
			}
			headers := form.File["files"]
			if len(headers) > maxFilesPerUpload {
				return nil, ez.BadRequest("TOO_MANY_FILES", fmt.Sprintf("At most %d files per upload", maxFilesPerUpload))
			}
			files := make([]service.FileUpload, 0, len(headers))
			for _, fh := range headers {
				f, err := readUpload(fh)
				if err != nil {
					return nil, err
				}
				files = append(files, f)
			}
			return h.svc.UploadMany(c.Request.Context(), files, ez.CurrentUser(c).ID, in.options()), nil
		},
	})

	ez.RegisterAction(r, ez.Action[struct{}, service.ValidationReport]{
		Method: http.MethodPost,
		Path:   "/validate",
		Binder: ez.BindNone,
		Auth:   true,
		Handler: func(c *gin.Context, _ *struct{}) (service.ValidationReport, error) {
			fh, err := c.FormFile("file")
			if err != nil {
				return service.ValidationReport{}, noFile(err, "No file was uploaded for validation")
			}
			f, err := readUpload(fh)
			if err != nil {
				return service.ValidationReport{}, err
			}
			return h.svc.Validate(f), nil
		},
	})

	ez.RegisterAction(r, ez.Action[searchQ, galleryOut]{
		Method: http.MethodGet,
		Path:   "/search",
		Binder: ez.BindQuery,
		Auth:   true,
		Handler: func(c *gin.Context, in *searchQ) (galleryOut, error) {
			return mediaGallery(h.svc.Search(c.Request.Context(), strings.TrimSpace(in.Q),
				strings.ToUpper(in.Type), in.EventID, in.page(20)))
		},
	})

	ez.RegisterAction(r, ez.Action[tagsQ, galleryOut]{
		Method: http.MethodGet,
		Path:   "/tags",
		Binder: ez.BindQuery,
		Auth:   true,
		Handler: func(c *gin.Context, in *tagsQ) (galleryOut, error) {
			return mediaGallery(h.svc.ByTags(c.Request.Context(), splitTags(in.Tags), in.EventID, in.page(20)))
		},
	})

	ez.RegisterAction(r, ez.Action[statsQ, *service.MediaStats]{
		Method: http.MethodGet,
		Path:   "/statistics",
		Binder: ez.BindQuery,
		Auth:   true,
		Handler: func(c *gin.Context, in *statsQ) (*service.MediaStats, error) {
			return h.svc.Stats(c.Request.Context(), domain.MediaStatsFilter{
				UploadedBy: in.UserID,
				EventID:    in.EventID,
				Type:       strings.ToUpper(in.Type),
			})
		},
	})

	ez.RegisterAction(r, ez.Action[galleryQ, galleryOut]{
		Method: http.MethodGet,
		Path:   "/gallery/:eventId",
		Binder: ez.BindQuery,
		Auth:   true,
		Handler: func(c *gin.Context, in *galleryQ) (galleryOut, error) {
			return mediaGallery(h.svc.Gallery(c.Request.Context(), c.Param("eventId"), strings.ToUpper(in.Type), in.page(20)))
		},
	})

	ez.RegisterAction(r, ez.Action[pageQ, galleryOut]{
		Method: http.MethodGet,
		Path:   "/gallery/:eventId/photos",
		Binder: ez.BindQuery,
		Auth:   true,
		Handler: func(c *gin.Context, in *pageQ) (galleryOut, error) {
			p, err := h.svc.Gallery(c.Request.Context(), c.Param("eventId"), domain.MediaImage, in.page(20))
			if err != nil {
				return galleryOut{}, err
			}
			out := newGallery(p)
			out.Photos = p.Items
			return out, nil
		},
	})

	ez.RegisterAction(r, ez.Action[pageQ, galleryOut]{
		Method: http.MethodGet,
		Path:   "/gallery/:eventId/videos",
		Binder: ez.BindQuery,
		Auth:   true,
		Handler: func(c *gin.Context, in *pageQ) (galleryOut, error) {
			p, err := h.svc.VideoGallery(c.Request.Context(), c.Param("eventId"), in.page(10))
			if err != nil {
				return galleryOut{}, err
			}
			out := newGallery(p)
			out.Videos = p.Items
			out.StoryFormat = true
			return out, nil
		},
	})

	ez.RegisterAction(r, ez.Action[bulkDeleteIn, []service.BulkDeleteResult]{
		Method: http.MethodDelete,
		Path:   "/bulk",
		Binder: ez.BindJSON,
		Auth:   true,
		Handler: func(c *gin.Context, in *bulkDeleteIn) ([]service.BulkDeleteResult, error) {
			return h.svc.BulkDelete(c.Request.Context(), in.IDs, ez.CurrentUser(c)), nil
		},
	})

	ez.RegisterAction(r, ez.Action[sizeQ, *domain.Media]{
		Method: http.MethodGet,
		Path:   "/:id",
		Binder: ez.BindQuery,
		Auth:   true,
		Handler: func(c *gin.Context, in *sizeQ) (*domain.Media, error) {
			return h.svc.Get(c.Request.Context(), c.Param("id"), in.Size)
		},
	})

	ez.RegisterAction(r, ez.Action[struct{}, downloadOut]{
		Method: http.MethodGet,
		Path:   "/:id/download",
		Binder: ez.BindNone,
		Auth:   true,
		Handler: func(c *gin.Context, _ *struct{}) (downloadOut, error) {
			u, err := h.svc.DownloadURL(c.Request.Context(), c.Param("id"), ez.CurrentUser(c))
			if err != nil {
				return downloadOut{}, err
			}
			return downloadOut{DownloadURL: u, ExpiresIn: downloadExpiresIn}, nil
		},
	})

	ez.RegisterAction(r, ez.Action[metadataIn, *domain.Media]{
		Method:  http.MethodPut,
		Path:    "/:id",
		Binder:  ez.BindJSON,
		Auth:    true,
		Message: "Media updated successfully",
		Handler: func(c *gin.Context, in *metadataIn) (*domain.Media, error) {
			return h.svc.UpdateMetadata(c.Request.Context(), c.Param("id"), domain.MetadataPatch{
				Tags:        in.Tags,
				Description: in.Description,
				AltText:     in.AltText,
				Category:    in.Category,
			}, ez.CurrentUser(c))
		},
	})

	ez.RegisterAction(r, ez.Action[struct{}, struct{}]{
		Method:  http.MethodDelete,
		Path:    "/:id",
		Binder:  ez.BindNone,
		Auth:    true,
		Message: "Media deleted successfully",
		Handler: func(c *gin.Context, _ *struct{}) (struct{}, error) {
			return struct{}{}, h.svc.Delete(c.Request.Context(), c.Param("id"), ez.CurrentUser(c))
		},
	})
}

// noFile 请求体超限保留原错误（413），其余按未上传文件处理
func noFile(err error, msg string) error {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return err
	}
	return ez.BadRequest("NO_FILE_UPLOADED", msg)
}

// readUpload 读出整个文件；大小上限由 MaxBodyBytes 和业务层类型限额共同约束
func readUpload(fh *multipart.FileHeader) (service.FileUpload, error) {
	f, err := fh.Open()
	if err != nil {
		return service.FileUpload{}, fmt.Errorf("open upload %s: %w", fh.Filename, err)
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		return service.FileUpload{}, fmt.Errorf("read upload %s: %w", fh.Filename, err)
	}
	return service.FileUpload{
		Name:     fh.Filename,
		MimeType: fh.Header.Get("Content-Type"),
		Data:     data,
	}, nil
}
