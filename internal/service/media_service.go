package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"path/filepath"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"ons-backend/internal/core/storage"
	"ons-backend/internal/domain"
	"ons-backend/pkg/utils"
)

var uploadsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{Name: "media_uploads_total", Help: "Media uploads by media type and result"},
	[]string{"type", "result"},
)

func init() { prometheus.MustRegister(uploadsTotal) }

const (
	galleryTTL       = 30 * 24 * time.Hour
	downloadURLTTL   = time.Hour
	multiUploadLimit = 3
)

var allowedMime = map[string][]string{
	domain.MediaImage:    {"image/jpeg", "image/png", "image/webp", "image/gif"},
	domain.MediaVideo:    {"video/mp4", "video/webm", "video/quicktime"},
	domain.MediaDocument: {"application/pdf", "application/msword", "application/vnd.openxmlformats-officedocument.wordprocessingml.document"},
}

// ObjectStore S3 兼容存储的最小接口
type ObjectStore interface {
	Put(ctx context.Context, key string, data []byte, contentType string) error
	Remove(ctx context.Context, key string) error
	SignedURL(ctx context.Context, key string, ttl time.Duration) (string, error)
}

type ImageCDN interface {
	Enabled() bool
	URL(key string) string
	Transformed(raw, size string) string
}

type ImageProcessor interface {
	Process(data []byte) ([]byte, error)
	Thumbnail(data []byte) ([]byte, error)
	Probe(data []byte) (int, int, error)
}

// MediaLimits 各类型的最大字节数
type MediaLimits struct {
	Image    int64
	Video    int64
	Document int64
}

func DefaultMediaLimits() MediaLimits {
	return MediaLimits{Image: 10 << 20, Video: 100 << 20, Document: 50 << 20}
}

func (l MediaLimits) For(mediaType string) int64 {
	switch mediaType {
	case domain.MediaImage:
		return l.Image
	case domain.MediaVideo:
		return l.Video
	default:
		return l.Document
	}
}

type MediaService struct {
	repo   domain.MediaRepository
	store  ObjectStore
	cdn    ImageCDN
	img    ImageProcessor
	limits MediaLimits
	log    *zap.Logger
}

func NewMediaService(repo domain.MediaRepository, store ObjectStore, cdn ImageCDN, img ImageProcessor, limits MediaLimits, log *zap.Logger) *MediaService {
	return &MediaService{repo: repo, store: store, cdn: cdn, img: img, limits: limits, log: log.Named("media")}
}

type FileUpload struct {
	Name     string
	MimeType string
	Data     []byte
}

type UploadOptions struct {
	EventID           *string
	IsPublic          bool
	GenerateThumbnail bool
	Tags              []string
	Description       string
	AltText           string
	Category          string
}

type UploadOutcome struct {
	OriginalName string        `json:"originalName"`
	Success      bool          `json:"success"`
	Media        *domain.Media `json:"media,omitempty"`
	Error        string        `json:"error,omitempty"`
}

type BulkDeleteResult struct {
	ID      string `json:"id"`
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

type MediaStats struct {
	TotalCount    int64                  `json:"totalCount"`
	TotalSize     int64                  `json:"totalSize"`
	TypeBreakdown []domain.MediaTypeStat `json:"typeBreakdown"`
}

type ValidationReport struct {
	IsValid   bool     `json:"isValid"`
	Errors    []string `json:"errors"`
	MediaType string   `json:"mediaType,omitempty"`
}

// GalleryItem 画廊条目，元数据展开为顶层字段
type GalleryItem struct {
	ID           string          `json:"id"`
	Filename     string          `json:"filename"`
	OriginalName string          `json:"originalName"`
	URL          string          `json:"url"`
	ThumbnailURL *string         `json:"thumbnailUrl,omitempty"`
	Type         string          `json:"type"`
	Size         int64           `json:"size"`
	MimeType     string          `json:"mimeType"`
	Tags         []string        `json:"tags"`
	Description  string          `json:"description,omitempty"`
	AltText      string          `json:"altText,omitempty"`
	Category     string          `json:"category,omitempty"`
	UploadedBy   *domain.UserRef `json:"uploadedBy,omitempty"`
	CreatedAt    time.Time       `json:"createdAt"`
}

// VideoItem 故事形式展示用；时长按码率估算，过期时间不做清理
type VideoItem struct {
	GalleryItem
	Duration  int       `json:"duration"`
	AutoPlay  bool      `json:"autoPlay"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// MediaTypeOf 按声明的 MIME 类型归类
func MediaTypeOf(mime string) (string, error) {
	for t, list := range allowedMime {
		for _, m := range list {
			if m == mime {
				return t, nil
			}
		}
	}
	return "", fmt.Errorf("%w: %s", domain.ErrUnsupportedType, mime)
}

// declaredMime 未声明或声明为通用二进制时按内容嗅探
func declaredMime(f FileUpload) string {
	m := strings.ToLower(strings.TrimSpace(f.MimeType))
	if m == "" || m == "application/octet-stream" {
		m = mimetype.Detect(f.Data).String()
	}
	if i := strings.IndexByte(m, ';'); i >= 0 {
		m = strings.TrimSpace(m[:i])
	}
	return m
}

func (s *MediaService) checkFile(f FileUpload) (mediaType, mime string, err error) {
	mime = declaredMime(f)
	mediaType, err = MediaTypeOf(mime)
	if err != nil {
		return "", mime, err
	}
	if limit := s.limits.For(mediaType); int64(len(f.Data)) > limit {
		return mediaType, mime, fmt.Errorf("%w: %d bytes exceeds limit of %d bytes for %s files",
			domain.ErrFileTooLarge, len(f.Data), limit, strings.ToLower(mediaType))
	}
	return mediaType, mime, nil
}

func storageKey(mediaType, filename string) string {
	return "media/" + strings.ToLower(mediaType) + "s/" + filename
}

func thumbnailKey(filename string) string { return "media/thumbnails/" + filename }

func (s *MediaService) Upload(ctx context.Context, f FileUpload, uploaderID string, opts UploadOptions) (*domain.Media, error) {
	m, err := s.upload(ctx, f, uploaderID, opts)
	label := "unknown"
	if m != nil {
		label = m.Type
	} else if t, terr := MediaTypeOf(declaredMime(f)); terr == nil {
		label = t
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	uploadsTotal.WithLabelValues(label, result).Inc()
	return m, err
}

func (s *MediaService) upload(ctx context.Context, f FileUpload, uploaderID string, opts UploadOptions) (*domain.Media, error) {
	mediaType, mime, err := s.checkFile(f)
	if err != nil {
		return nil, err
	}
	ext := strings.ToLower(utils.SanitizeFileName(filepath.Ext(f.Name)))
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	filename := utils.NewID() + ext

	body, contentType := f.Data, mime
	var thumb []byte
	if mediaType == domain.MediaImage {
		if body, err = s.img.Process(f.Data); err != nil {
			return nil, domain.Invalid("invalid image file: " + err.Error())
		}
		contentType = "image/jpeg"
		if opts.GenerateThumbnail {
			if thumb, err = s.img.Thumbnail(f.Data); err != nil {
				return nil, domain.Invalid("invalid image file: " + err.Error())
			}
		}
	}

	key := storageKey(mediaType, filename)
	if err := s.store.Put(ctx, key, body, contentType); err != nil {
		return nil, s.storageErr("put object", key, err)
	}
	m := &domain.Media{
		ID:           utils.NewID(),
		Filename:     filename,
		OriginalName: f.Name,
		StorageKey:   key,
		Type:         mediaType,
		Size:         int64(len(f.Data)),
		MimeType:     mime,
		Metadata: domain.MediaMetadata{
			Tags:        opts.Tags,
			Description: opts.Description,
			AltText:     opts.AltText,
			Category:    opts.Category,
		},
		EventID:    opts.EventID,
		UploadedBy: uploaderID,
		IsPublic:   opts.IsPublic,
	}
	if thumb != nil {
		tk := thumbnailKey(filename)
		if err := s.store.Put(ctx, tk, thumb, "image/jpeg"); err != nil {
			return nil, s.storageErr("put thumbnail", tk, err)
		}
		m.ThumbnailKey = &tk
		u, err := s.publicURL(ctx, domain.MediaImage, tk)
		if err != nil {
			return nil, err
		}
		m.ThumbnailURL = &u
	}
	if m.URL, err = s.publicURL(ctx, mediaType, key); err != nil {
		return nil, err
	}

	// 数据库写失败时存储对象成为孤儿，不做补偿
	if err := s.repo.Create(ctx, m); err != nil {
		s.log.Error("media row insert failed, storage object orphaned", zap.String("key", key), zap.Error(err))
		return nil, fmt.Errorf("create media: %w", err)
	}
	s.log.Info("media uploaded", zap.String("id", m.ID), zap.String("key", key), zap.Int64("size", m.Size))
	return m, nil
}

// publicURL 图片走 CDN，其余类型（或 CDN 未配置）用签名链接
func (s *MediaService) publicURL(ctx context.Context, mediaType, key string) (string, error) {
	if s.servedByCDN(mediaType) {
		return s.cdn.URL(key), nil
	}
	u, err := s.store.SignedURL(ctx, key, storage.DefaultSignedURLTTL)
	if err != nil {
		return "", s.storageErr("sign url", key, err)
	}
	return u, nil
}

func (s *MediaService) storageErr(op, key string, err error) error {
	s.log.Error("storage "+op+" failed", zap.String("key", key), zap.Error(err))
	if errors.Is(err, domain.ErrStorageNotConfigured) {
		return err
	}
	return fmt.Errorf("%s: %w", op, err)
}

// UploadMany 每个文件独立成败，结果顺序与入参一致
func (s *MediaService) UploadMany(ctx context.Context, files []FileUpload, uploaderID string, opts UploadOptions) []UploadOutcome {
	out := make([]UploadOutcome, len(files))
	var g errgroup.Group
	g.SetLimit(multiUploadLimit)
	for i, f := range files {
		g.Go(func() error {
			m, err := s.Upload(ctx, f, uploaderID, opts)
			out[i] = UploadOutcome{OriginalName: f.Name, Success: err == nil, Media: m}
			if err != nil {
				out[i].Error = err.Error()
			}
			return nil
		})
	}
	_ = g.Wait()
	return out
}

func (s *MediaService) Get(ctx context.Context, id, size string) (*domain.Media, error) {
	if size == "" {
		size = storage.SizeOriginal
	}
	if !storage.ValidSize(size) {
		return nil, domain.Invalid("invalid size: " + size)
	}
	m, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	s.refreshURLs(ctx, m)
	if m.Type == domain.MediaImage && size != storage.SizeOriginal && s.cdn != nil {
		m.URL = s.cdn.Transformed(m.URL, size)
	}
	return m, nil
}

func (s *MediaService) servedByCDN(mediaType string) bool {
	return mediaType == domain.MediaImage && s.cdn != nil && s.cdn.Enabled()
}

// refreshURLs 签名链接会过期，读出时重新签；签失败保留库里的旧值
func (s *MediaService) refreshURLs(ctx context.Context, m *domain.Media) {
	if s.servedByCDN(m.Type) {
		return
	}
	if u, err := s.store.SignedURL(ctx, m.StorageKey, storage.DefaultSignedURLTTL); err == nil {
		m.URL = u
	} else {
		s.log.Warn("re-sign media url failed", zap.String("id", m.ID), zap.Error(err))
		return
	}
	if m.ThumbnailKey != nil && *m.ThumbnailKey != "" {
		if u, err := s.store.SignedURL(ctx, *m.ThumbnailKey, storage.DefaultSignedURLTTL); err == nil {
			m.ThumbnailURL = &u
		}
	}
}

func (s *MediaService) find(ctx context.Context, id string) (*domain.Media, error) {
	m, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("find media: %w", err)
	}
	if m == nil {
		return nil, domain.ErrNotFound
	}
	return m, nil
}

func (s *MediaService) list(ctx context.Context, q domain.MediaQuery, p domain.Page) (*Paged[GalleryItem], error) {
	items, total, err := s.repo.List(ctx, q, p)
	if err != nil {
		return nil, fmt.Errorf("list media: %w", err)
	}
	out := make([]GalleryItem, 0, len(items))
	for i := range items {
		s.refreshURLs(ctx, &items[i])
		out = append(out, toGalleryItem(&items[i]))
	}
	return newPaged(out, total, p), nil
}

// Gallery mediaType 为空时返回活动下全部媒体
func (s *MediaService) Gallery(ctx context.Context, eventID, mediaType string, p domain.Page) (*Paged[GalleryItem], error) {
	return s.list(ctx, domain.MediaQuery{EventID: eventID, Type: mediaType}, p)
}

func (s *MediaService) VideoGallery(ctx context.Context, eventID string, p domain.Page) (*Paged[VideoItem], error) {
	page, err := s.list(ctx, domain.MediaQuery{EventID: eventID, Type: domain.MediaVideo}, p)
	if err != nil {
		return nil, err
	}
	out := make([]VideoItem, 0, len(page.Items))
	for _, it := range page.Items {
		out = append(out, VideoItem{
			GalleryItem: it,
			Duration:    EstimateVideoDuration(it.MimeType, it.Size),
			AutoPlay:    true,
			ExpiresAt:   it.CreatedAt.Add(galleryTTL),
		})
	}
	return newPaged(out, page.Total, p), nil
}

func (s *MediaService) Search(ctx context.Context, query, mediaType, eventID string, p domain.Page) (*Paged[GalleryItem], error) {
	return s.list(ctx, domain.MediaQuery{Search: query, Type: mediaType, EventID: eventID}, p)
}

// ByTags 任一标签作为子串出现在元数据中即命中
func (s *MediaService) ByTags(ctx context.Context, tags []string, eventID string, p domain.Page) (*Paged[GalleryItem], error) {
	if len(tags) == 0 {
		return nil, domain.Invalid("at least one tag is required")
	}
	return s.list(ctx, domain.MediaQuery{Tags: tags, EventID: eventID}, p)
}

func canModifyMedia(m *domain.Media, actor *domain.User) bool {
	return actor != nil && (m.UploadedBy == actor.ID || actor.Role == domain.RoleAdmin)
}

// Delete 先删存储对象和缩略图，再删数据库行
func (s *MediaService) Delete(ctx context.Context, id string, actor *domain.User) error {
	m, err := s.find(ctx, id)
	if err != nil {
		return err
	}
	if !canModifyMedia(m, actor) {
		return domain.ErrForbidden
	}
	if err := s.store.Remove(ctx, m.StorageKey); err != nil {
		return s.storageErr("remove object", m.StorageKey, err)
	}
	if m.ThumbnailKey != nil {
		if err := s.store.Remove(ctx, *m.ThumbnailKey); err != nil {
			return s.storageErr("remove thumbnail", *m.ThumbnailKey, err)
		}
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		s.log.Error("media row delete failed after storage removal", zap.String("id", id), zap.Error(err))
		return fmt.Errorf("delete media: %w", err)
	}
	s.log.Info("media deleted", zap.String("id", id), zap.String("by", actor.ID))
	return nil
}

func (s *MediaService) BulkDelete(ctx context.Context, ids []string, actor *domain.User) []BulkDeleteResult {
	out := make([]BulkDeleteResult, 0, len(ids))
	for _, id := range ids {
		r := BulkDeleteResult{ID: id, Success: true}
		if err := s.Delete(ctx, id, actor); err != nil {
			r.Success, r.Error = false, err.Error()
		}
		out = append(out, r)
	}
	return out
}

func (s *MediaService) UpdateMetadata(ctx context.Context, id string, patch domain.MetadataPatch, actor *domain.User) (*domain.Media, error) {
	m, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if !canModifyMedia(m, actor) {
		return nil, domain.ErrForbidden
	}
	md := m.Metadata.Merge(patch)
	if err := s.repo.UpdateMetadata(ctx, id, md); err != nil {
		return nil, fmt.Errorf("update metadata: %w", err)
	}
	m.Metadata = md
	return m, nil
}

// DownloadURL 公开、上传者、管理员或会员可下载
func (s *MediaService) DownloadURL(ctx context.Context, id string, actor *domain.User) (string, error) {
	m, err := s.find(ctx, id)
	if err != nil {
		return "", err
	}
	allowed := m.IsPublic || (actor != nil &&
		(m.UploadedBy == actor.ID || actor.Role == domain.RoleAdmin || actor.Role == domain.RoleMember))
	if !allowed {
		return "", domain.ErrAccessDenied
	}
	u, err := s.store.SignedURL(ctx, m.StorageKey, downloadURLTTL)
	if err != nil {
		return "", s.storageErr("sign download url", m.StorageKey, err)
	}
	return u, nil
}

func (s *MediaService) Stats(ctx context.Context, f domain.MediaStatsFilter) (*MediaStats, error) {
	rows, err := s.repo.Stats(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("media stats: %w", err)
	}
	out := &MediaStats{TypeBreakdown: rows}
	if out.TypeBreakdown == nil {
		out.TypeBreakdown = []domain.MediaTypeStat{}
	}
	for _, r := range rows {
		out.TotalCount += r.Count
		out.TotalSize += r.TotalSize
	}
	return out, nil
}

// Validate 只做类型、大小检查和图片解码探测，不上传
func (s *MediaService) Validate(f FileUpload) ValidationReport {
	rep := ValidationReport{Errors: []string{}}
	mediaType, mime, err := s.checkFile(f)
	rep.MediaType = mediaType
	if err != nil {
		if errors.Is(err, domain.ErrUnsupportedType) {
			rep.Errors = append(rep.Errors, "Unsupported file type: "+mime)
			return rep
		}
		rep.Errors = append(rep.Errors, err.Error())
	}
	if mediaType == domain.MediaImage {
		if w, h, err := s.img.Probe(f.Data); err != nil || w == 0 || h == 0 {
			rep.Errors = append(rep.Errors, "Invalid image file - corrupted or unsupported format")
		}
	}
	rep.IsValid = len(rep.Errors) == 0
	return rep
}

// EstimateVideoDuration 按文件大小和经验码率估算秒数
func EstimateVideoDuration(mime string, size int64) int {
	bitrate := 800_000.0
	if strings.Contains(mime, "mp4") {
		bitrate = 1_000_000.0
	}
	return int(math.Round(float64(size) * 8 / bitrate))
}

func toGalleryItem(m *domain.Media) GalleryItem {
	tags := m.Metadata.Tags
	if tags == nil {
		tags = []string{}
	}
	it := GalleryItem{
		ID:           m.ID,
		Filename:     m.Filename,
		OriginalName: m.OriginalName,
		URL:          m.URL,
		ThumbnailURL: m.ThumbnailURL,
		Type:         m.Type,
		Size:         m.Size,
		MimeType:     m.MimeType,
		Tags:         tags,
		Description:  m.Metadata.Description,
		AltText:      m.Metadata.AltText,
		Category:     m.Metadata.Category,
		CreatedAt:    m.CreatedAt,
	}
	if ref := m.Uploader.Ref(); ref != nil {
		ref.Email = ""
		it.UploadedBy = ref
	}
	return it
}
