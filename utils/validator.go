package utils

import (
	"fmt"
	"path/filepath"
	"strings"

	"ai-image-tagger/models"
)

// ValidateIngestRequest 验证图片入库请求
func ValidateIngestRequest(req *models.IngestRequest) error {
	if req.Path == "" {
		return fmt.Errorf("路径不能为空")
	}

	if strings.ContainsRune(req.Path, 0) {
		return fmt.Errorf("无效的路径")
	}

	// 规范化路径，拒绝相对路径逃逸
	cleaned := filepath.Clean(req.Path)
	if strings.HasPrefix(cleaned, "..") {
		return fmt.Errorf("不允许的路径: %s", req.Path)
	}
	req.Path = cleaned

	return nil
}

// ValidateTagFilter 验证标签过滤参数
func ValidateTagFilter(tags []string) error {
	if len(tags) > 50 {
		return fmt.Errorf("标签过多（最多50个）")
	}

	for _, tag := range tags {
		if len(tag) > 100 {
			return fmt.Errorf("标签名过长: %s（最多100字符）", tag)
		}
	}

	return nil
}

// ValidateDateRange 验证日期范围参数（YYYY-MM-DD）
func ValidateDateRange(from, to string) error {
	for _, d := range []string{from, to} {
		if d == "" {
			continue
		}
		if len(d) != 10 || d[4] != '-' || d[7] != '-' {
			return fmt.Errorf("无效的日期格式: %s（需要 YYYY-MM-DD）", d)
		}
	}
	return nil
}
