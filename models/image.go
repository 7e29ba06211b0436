package models

import "time"

// Image 图片数据模型
type Image struct {
	ID               int64     `json:"id"`
	ContentHash      string    `json:"content_hash"`
	FilePath         string    `json:"file_path"`
	OriginalFilename string    `json:"original_filename"`
	CreatedAt        time.Time `json:"created_at"`
	ProcessCount     int       `json:"process_count"`
	TagNames         []string  `json:"tag_names"`
}

// ImageFilter 图片查询过滤条件
type ImageFilter struct {
	Tags     []string // 标签交集过滤：图片必须带有所有这些标签
	Filename string   // 原始文件名子串匹配
	DateFrom string   // 创建日期范围起点（YYYY-MM-DD）
	DateTo   string   // 创建日期范围终点（YYYY-MM-DD）
}

// IngestRequest 图片入库请求
type IngestRequest struct {
	Path string `json:"path"`
}

// IngestedImage 入库结果（内容寻址存储中的一张图片）
type IngestedImage struct {
	ID          int64  `json:"id"`
	ContentHash string `json:"content_hash"`
	StoredPath  string `json:"stored_path"`
	SourcePath  string `json:"source_path"`
}
