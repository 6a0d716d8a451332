package storage

import (
	"fmt"
	"net/url"
	"strings"
)

const (
	SizeOriginal  = "original"
	SizeThumbnail = "thumbnail"
	SizeMedium    = "medium"
	SizeLarge     = "large"
)

// Transform 图片 CDN 的实时变换参数
type Transform struct {
	Width   int
	Height  int
	Crop    string
	Quality int
}

func (t Transform) String() string {
	return fmt.Sprintf("w-%d,h-%d,c-%s,q-%d", t.Width, t.Height, t.Crop, t.Quality)
}

var Presets = map[string]Transform{
	SizeThumbnail: {Width: 300, Height: 300, Crop: "maintain_ratio", Quality: 80},
	SizeMedium:    {Width: 800, Height: 600, Crop: "maintain_ratio", Quality: 85},
	SizeLarge:     {Width: 1200, Height: 900, Crop: "maintain_ratio", Quality: 90},
}

func ValidSize(s string) bool {
	if s == SizeOriginal {
		return true
	}
	_, ok := Presets[s]
	return ok
}

// CDN 挂在存储桶前面的图片 CDN（ImageKit 风格的 URL 变换）
type CDN struct {
	endpoint string
}

func NewCDN(endpoint string) *CDN {
	return &CDN{endpoint: strings.TrimRight(endpoint, "/")}
}

func (c *CDN) Enabled() bool { return c != nil && c.endpoint != "" }

// URL 存储 key 去掉 "media/" 前缀后拼到 CDN 根路径
func (c *CDN) URL(key string) string {
	return c.endpoint + "/" + strings.TrimPrefix(key, "media/")
}

// Transformed 按预设尺寸追加 tr 参数；original 或未知尺寸返回原 URL
func (c *CDN) Transformed(raw, size string) string {
	if !c.Enabled() {
		return raw
	}
	t, ok := Presets[size]
	if !ok {
		return raw
	}
	params := url.Values{}
	params.Set("tr", t.String())
	sep := "?"
	if strings.Contains(raw, "?") {
		sep = "&"
	}
	return raw + sep + params.Encode()
}
