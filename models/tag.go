package models

// Tag 标签数据模型（name 为规范化后的唯一形式，创建后不再变更）
type Tag struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// TagStat 某张图片上某个标签的出现统计
type TagStat struct {
	Name            string  `json:"name"`
	OccurrenceCount int     `json:"occurrence_count"`
	ProcessCount    int     `json:"process_count"`
	Confidence      float64 `json:"confidence"` // occurrence_count / process_count，派生值，不落库
}

// TagUsage 标签在多少张图片上出现过
type TagUsage struct {
	Name       string `json:"name"`
	ImageCount int    `json:"image_count"`
}

// VocabularyStats 标签词汇表统计摘要
type VocabularyStats struct {
	TotalTags   int         `json:"total_tags"`
	TotalImages int         `json:"total_images"`
	TotalPasses int         `json:"total_passes"`
	TopTags     []*TagUsage `json:"top_tags"`
}
