package imaging

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"io"

	"github.com/disintegration/imaging"
	"github.com/rwcarlsen/goexif/exif"
	_ "golang.org/x/image/webp" // WebP decoder
)

var ErrInvalidImage = errors.New("invalid image")

// Processor 上传图片的缩放与缩略图生成，统一输出 JPEG
type Processor struct {
	MaxWidth     int
	MaxHeight    int
	Quality      int
	ThumbSize    int
	ThumbQuality int
}

func NewProcessor() *Processor {
	return &Processor{
		MaxWidth:     1920,
		MaxHeight:    1080,
		Quality:      90,
		ThumbSize:    300,
		ThumbQuality: 80,
	}
}

// Process 按 EXIF 方向校正后等比缩到 MaxWidth x MaxHeight 以内（不放大）
func (p *Processor) Process(data []byte) ([]byte, error) {
	img, err := decode(data)
	if err != nil {
		return nil, err
	}
	b := img.Bounds()
	if b.Dx() > p.MaxWidth || b.Dy() > p.MaxHeight {
		img = imaging.Fit(img, p.MaxWidth, p.MaxHeight, imaging.Lanczos)
	}
	return encodeJPEG(img, p.Quality)
}

// Thumbnail 居中裁剪为 ThumbSize 正方形
func (p *Processor) Thumbnail(data []byte) ([]byte, error) {
	img, err := decode(data)
	if err != nil {
		return nil, err
	}
	thumb := imaging.Fill(img, p.ThumbSize, p.ThumbSize, imaging.Center, imaging.Lanczos)
	return encodeJPEG(thumb, p.ThumbQuality)
}

// Probe 只读头部拿宽高，用于上传前的损坏检测
func (p *Processor) Probe(data []byte) (int, int, error) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return 0, 0, fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}
	if cfg.Width == 0 || cfg.Height == 0 {
		return 0, 0, fmt.Errorf("%w: unable to read dimensions", ErrInvalidImage)
	}
	return cfg.Width, cfg.Height, nil
}

func decode(data []byte) (image.Image, error) {
	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}
	return applyOrientation(img, readExifOrientation(bytes.NewReader(data))), nil
}

func encodeJPEG(img image.Image, quality int) ([]byte, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, fmt.Errorf("encode jpeg: %w", err)
	}
	return buf.Bytes(), nil
}

// readExifOrientation 读不到时按 1（正常）处理
func readExifOrientation(r io.Reader) int {
	x, err := exif.Decode(r)
	if err != nil {
		return 1
	}
	tag, err := x.Get(exif.Orientation)
	if err != nil {
		return 1
	}
	o, err := tag.Int(0)
	if err != nil {
		return 1
	}
	return o
}

func applyOrientation(img image.Image, orientation int) image.Image {
	switch orientation {
	case 2:
		return imaging.FlipH(img)
	case 3:
		return imaging.Rotate180(img)
	case 4:
		return imaging.FlipV(img)
	case 5:
		return imaging.FlipH(imaging.Rotate270(img))
	case 6:
		return imaging.Rotate270(img)
	case 7:
		return imaging.FlipH(imaging.Rotate90(img))
	case 8:
		return imaging.Rotate90(img)
	default:
		return img
	}
}
