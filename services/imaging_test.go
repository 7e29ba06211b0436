package services

import (
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"
)

// writeTestPNG 生成一张小图写入临时目录
func writeTestPNG(t *testing.T, dir, name string, fill color.Color) string {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, 16, 16))
	for y := 0; y < 16; y++ {
		for x := 0; x < 16; x++ {
			img.Set(x, y, fill)
		}
	}

	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("Failed to create test image: %v", err)
	}
	defer f.Close()

	if err := png.Encode(f, img); err != nil {
		t.Fatalf("Failed to encode test image: %v", err)
	}
	return path
}

func TestHashImageFileDeterministic(t *testing.T) {
	dir := t.TempDir()
	path := writeTestPNG(t, dir, "red.png", color.RGBA{R: 200, G: 10, B: 10, A: 255})

	first, err := HashImageFile(path, 90)
	if err != nil {
		t.Fatalf("HashImageFile failed: %v", err)
	}
	second, err := HashImageFile(path, 90)
	if err != nil {
		t.Fatalf("HashImageFile failed: %v", err)
	}

	if first != second {
		t.Errorf("Hash not deterministic: %s != %s", first, second)
	}
	if len(first) != 32 {
		t.Errorf("Expected 32 hex chars, got %q", first)
	}
}

// 同一内容复制成不同文件名，哈希必须一致（路径不是身份）
func TestHashIgnoresFilename(t *testing.T) {
	dir := t.TempDir()
	path1 := writeTestPNG(t, dir, "a.png", color.RGBA{R: 0, G: 120, B: 0, A: 255})

	data, err := os.ReadFile(path1)
	if err != nil {
		t.Fatalf("Failed to read test image: %v", err)
	}
	path2 := filepath.Join(dir, "b.png")
	if err := os.WriteFile(path2, data, 0o644); err != nil {
		t.Fatalf("Failed to copy test image: %v", err)
	}

	hash1, err := HashImageFile(path1, 90)
	if err != nil {
		t.Fatalf("HashImageFile failed: %v", err)
	}
	hash2, err := HashImageFile(path2, 90)
	if err != nil {
		t.Fatalf("HashImageFile failed: %v", err)
	}

	if hash1 != hash2 {
		t.Errorf("Same content produced different hashes: %s != %s", hash1, hash2)
	}
}

func TestHashDiffersForDifferentContent(t *testing.T) {
	dir := t.TempDir()
	red := writeTestPNG(t, dir, "red.png", color.RGBA{R: 255, A: 255})
	blue := writeTestPNG(t, dir, "blue.png", color.RGBA{B: 255, A: 255})

	hashRed, err := HashImageFile(red, 90)
	if err != nil {
		t.Fatalf("HashImageFile failed: %v", err)
	}
	hashBlue, err := HashImageFile(blue, 90)
	if err != nil {
		t.Fatalf("HashImageFile failed: %v", err)
	}

	if hashRed == hashBlue {
		t.Errorf("Different content produced identical hash: %s", hashRed)
	}
}

// 带 alpha 通道的 PNG 也能拍平成规范 JPEG
func TestCanonicalJPEGFlattensAlpha(t *testing.T) {
	dir := t.TempDir()
	path := writeTestPNG(t, dir, "alpha.png", color.RGBA{R: 50, G: 50, B: 50, A: 128})

	data, err := CanonicalJPEG(path, 90)
	if err != nil {
		t.Fatalf("CanonicalJPEG failed: %v", err)
	}
	if len(data) == 0 {
		t.Error("Expected non-empty canonical bytes")
	}
}

func TestCanonicalJPEGRejectsNonImage(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "not_an_image.jpg")
	if err := os.WriteFile(path, []byte("definitely not an image"), 0o644); err != nil {
		t.Fatalf("Failed to write file: %v", err)
	}

	if _, err := CanonicalJPEG(path, 90); err == nil {
		t.Error("Expected error for non-image file")
	}
}
