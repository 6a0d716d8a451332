package domain

import (
	"bytes"
	"context"
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

const (
	MediaImage    = "IMAGE"
	MediaVideo    = "VIDEO"
	MediaDocument = "DOCUMENT"
)

// MediaMetadata 以 JSON 文本列存储，兼容旧版只有标签数组的格式
type MediaMetadata struct {
	Tags        []string `json:"tags,omitempty"`
	Description string   `json:"description,omitempty"`
	AltText     string   `json:"altText,omitempty"`
	Category    string   `json:"category,omitempty"`
}

func (m *MediaMetadata) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*m = MediaMetadata{}
		return nil
	}
	// 旧格式：["tag1","tag2"]
	if b[0] == '[' {
		var tags []string
		if err := json.Unmarshal(b, &tags); err != nil {
			return err
		}
		*m = MediaMetadata{Tags: tags}
		return nil
	}
	type plain MediaMetadata
	var p plain
	if err := json.Unmarshal(b, &p); err != nil {
		return err
	}
	*m = MediaMetadata(p)
	return nil
}

// Value 不转义 & < >，列里存原字符，LIKE 搜索才能命中
func (m MediaMetadata) Value() (driver.Value, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(m); err != nil {
		return nil, err
	}
	return string(bytes.TrimRight(buf.Bytes(), "\n")), nil
}

// Scan 解析失败时退化为空元数据，不让一行脏数据拖垮整个列表
func (m *MediaMetadata) Scan(src any) error {
	var b []byte
	switch v := src.(type) {
	case nil:
		*m = MediaMetadata{}
		return nil
	case string:
		b = []byte(v)
	case []byte:
		b = v
	default:
		return fmt.Errorf("media metadata: unsupported scan type %T", src)
	}
	if err := json.Unmarshal(b, m); err != nil {
		*m = MediaMetadata{}
	}
	return nil
}

// MetadataPatch 为 nil 的字段保持原值
type MetadataPatch struct {
	Tags        []string `json:"tags"`
	Description *string  `json:"description"`
	AltText     *string  `json:"altText"`
	Category    *string  `json:"category"`
}

func (m MediaMetadata) Merge(p MetadataPatch) MediaMetadata {
	if p.Tags != nil {
		m.Tags = p.Tags
	}
	if p.Description != nil {
		m.Description = *p.Description
	}
	if p.AltText != nil {
		m.AltText = *p.AltText
	}
	if p.Category != nil {
		m.Category = *p.Category
	}
	return m
}

type Media struct {
	ID           string        `gorm:"primaryKey;size:36" json:"id"`
	Filename     string        `gorm:"size:255;not null" json:"filename"`
	OriginalName string        `gorm:"size:255;not null" json:"originalName"`
	StorageKey   string        `gorm:"size:512;not null" json:"-"`
	ThumbnailKey *string       `gorm:"size:512" json:"-"`
	URL          string        `gorm:"size:2048;not null" json:"url"`
	ThumbnailURL *string       `gorm:"size:2048" json:"thumbnailUrl,omitempty"`
	Type         string        `gorm:"size:16;not null;index" json:"type"`
	Size         int64         `gorm:"not null" json:"size"`
	MimeType     string        `gorm:"size:100;not null" json:"mimeType"`
	Metadata     MediaMetadata `gorm:"type:text" json:"metadata"`
	EventID      *string       `gorm:"size:36;index" json:"eventId,omitempty"`
	UploadedBy   string        `gorm:"size:36;not null;index" json:"uploadedBy"`
	Uploader     *User         `gorm:"foreignKey:UploadedBy" json:"-"`
	IsPublic     bool          `gorm:"not null" json:"isPublic"`
	CreatedAt    time.Time     `gorm:"index" json:"createdAt"`
	UpdatedAt    time.Time     `json:"updatedAt"`
}

func (Media) TableName() string { return "media" }

func (m Media) MarshalJSON() ([]byte, error) {
	type alias Media
	return json.Marshal(struct {
		alias
		Uploader *UserRef `json:"uploader,omitempty"`
	}{alias(m), m.Uploader.Ref()})
}

// MediaQuery 所有条件为空即不过滤；Tags 任一命中即可
type MediaQuery struct {
	EventID string
	Type    string
	Search  string
	Tags    []string
}

type MediaStatsFilter struct {
	UploadedBy string
	EventID    string
	Type       string
}

type MediaTypeStat struct {
	Type      string `json:"type"`
	Count     int64  `json:"count"`
	TotalSize int64  `json:"totalSize"`
}

type MediaRepository interface {
	Create(ctx context.Context, m *Media) error
	FindByID(ctx context.Context, id string) (*Media, error)
	List(ctx context.Context, q MediaQuery, p Page) ([]Media, int64, error)
	UpdateMetadata(ctx context.Context, id string, md MediaMetadata) error
	Delete(ctx context.Context, id string) error
	Stats(ctx context.Context, f MediaStatsFilter) ([]MediaTypeStat, error)
}
