package db

import (
	"database/sql"
	"fmt"

	"ai-image-tagger/models"
)

// TagRepository 标签数据库操作
type TagRepository struct {
	db *sql.DB
}

// NewTagRepository 创建标签仓库
func NewTagRepository() *TagRepository {
	return &TagRepository{db: DB}
}

// GetByID 根据 ID 获取标签
func (r *TagRepository) GetByID(id int64) (*models.Tag, error) {
	var tag models.Tag
	err := r.db.QueryRow("SELECT id, name FROM tags WHERE id = ?", id).Scan(&tag.ID, &tag.Name)
	if err != nil {
		return nil, err
	}
	return &tag, nil
}

// GetOrCreate 获取或创建标签（name 必须是规范化后的形式）
func (r *TagRepository) GetOrCreate(tagName string) (int64, error) {
	// 先尝试获取
	var tagID int64
	err := r.db.QueryRow("SELECT id FROM tags WHERE name = ?", tagName).Scan(&tagID)
	if err == nil {
		return tagID, nil
	}

	// 不存在则创建
	result, err := r.db.Exec("INSERT INTO tags (name) VALUES (?)", tagName)
	if err != nil {
		return 0, fmt.Errorf("创建标签失败: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("获取标签ID失败: %w", err)
	}

	return id, nil
}

// List 获取所有标签（按名称排序）
func (r *TagRepository) List() ([]*models.Tag, error) {
	rows, err := r.db.Query("SELECT id, name FROM tags ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("查询标签列表失败: %w", err)
	}
	defer rows.Close()

	tags := []*models.Tag{}
	for rows.Next() {
		var tag models.Tag
		if err := rows.Scan(&tag.ID, &tag.Name); err != nil {
			continue
		}
		tags = append(tags, &tag)
	}

	return tags, nil
}

// ListNames 获取所有标签名称（用于筛选 UI 的下拉选项）
func (r *TagRepository) ListNames() ([]string, error) {
	rows, err := r.db.Query("SELECT DISTINCT name FROM tags ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("查询标签名称失败: %w", err)
	}
	defer rows.Close()

	names := []string{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			continue
		}
		names = append(names, name)
	}

	return names, nil
}

// GetImageCount 获取标签关联的图片数量
func (r *TagRepository) GetImageCount(tagID int64) (int, error) {
	var count int
	err := r.db.QueryRow("SELECT COUNT(*) FROM image_tag_stats WHERE tag_id = ?", tagID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("查询图片数量失败: %w", err)
	}
	return count, nil
}
