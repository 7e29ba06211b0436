package services

import (
	"bytes"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"image"
	"image/draw"
	"image/jpeg"
	_ "image/png"
	"os"
)

// CanonicalJPEG 把图片文件解码为规范字节表示
// 统一拍平到白底 RGB 再按固定质量重编码为 JPEG，保证同一视觉内容 +
// 同一编码参数得到的字节序列稳定，内容哈希才能用于去重。
func CanonicalJPEG(path string, quality int) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("打开图片失败: %w", err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("解码图片失败: %w", err)
	}

	// 白底拍平，去掉 alpha 通道（等价于转 RGB 模式）
	bounds := img.Bounds()
	canvas := image.NewRGBA(bounds)
	draw.Draw(canvas, bounds, image.White, image.Point{}, draw.Src)
	draw.Draw(canvas, bounds, img, bounds.Min, draw.Over)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, canvas, &jpeg.Options{Quality: quality}); err != nil {
		return nil, fmt.Errorf("编码图片失败: %w", err)
	}

	return buf.Bytes(), nil
}

// ContentHash 计算规范字节的 MD5 内容哈希（十六进制小写）
func ContentHash(data []byte) string {
	sum := md5.Sum(data)
	return hex.EncodeToString(sum[:])
}

// HashImageFile 计算图片文件的内容哈希
func HashImageFile(path string, quality int) (string, error) {
	data, err := CanonicalJPEG(path, quality)
	if err != nil {
		return "", err
	}
	return ContentHash(data), nil
}
