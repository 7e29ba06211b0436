package db

import (
	"database/sql"
	"fmt"
	"log"
	"strings"
	"time"

	"ai-image-tagger/models"
)

// ImageRepository 图片数据库操作（以内容哈希为唯一身份）
type ImageRepository struct {
	db *sql.DB
}

// NewImageRepository 创建图片仓库
func NewImageRepository() *ImageRepository {
	return &ImageRepository{db: DB}
}

// GetOrCreate 按内容哈希获取或创建图片记录
// 哈希已存在时返回现有 ID，不覆盖已有的路径和文件名（哈希才是身份，路径只是元数据）。
// INSERT OR IGNORE + 回退查询保证并发下同一哈希的竞争插入最终都拿到同一个 ID。
func (r *ImageRepository) GetOrCreate(contentHash, filePath, originalFilename string) (int64, error) {
	now := time.Now().UTC().Format(time.RFC3339Nano)

	result, err := r.db.Exec(`
		INSERT OR IGNORE INTO images (content_hash, file_path, original_filename, created_at, process_count)
		VALUES (?, ?, ?, ?, 0)
	`, contentHash, filePath, originalFilename, now)
	if err != nil {
		return 0, fmt.Errorf("插入图片失败: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("获取插入结果失败: %w", err)
	}

	if rows == 0 {
		// 哈希已存在（或竞争插入落败），回退查询现有记录
		var id int64
		if err := r.db.QueryRow("SELECT id FROM images WHERE content_hash = ?", contentHash).Scan(&id); err != nil {
			return 0, fmt.Errorf("查询已有图片失败: %w", err)
		}
		return id, nil
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("获取图片ID失败: %w", err)
	}
	return id, nil
}

// GetByHash 根据内容哈希获取图片（只读，不存在返回 sql.ErrNoRows）
func (r *ImageRepository) GetByHash(contentHash string) (*models.Image, error) {
	var img models.Image
	err := r.db.QueryRow(`
		SELECT id, content_hash, file_path, original_filename, created_at, process_count
		FROM images WHERE content_hash = ?
	`, contentHash).Scan(&img.ID, &img.ContentHash, &img.FilePath, &img.OriginalFilename, &img.CreatedAt, &img.ProcessCount)

	if err != nil {
		return nil, err
	}
	return &img, nil
}

// GetByID 根据 ID 获取图片（含标签列表）
func (r *ImageRepository) GetByID(id int64) (*models.Image, error) {
	// 使用 LEFT JOIN 一次性获取图片和标签（解决 N+1 问题）
	query := `
		SELECT
			i.id, i.content_hash, i.file_path, i.original_filename,
			i.created_at, i.process_count,
			GROUP_CONCAT(t.name, ',') as tag_names
		FROM images i
		LEFT JOIN image_tag_stats s ON i.id = s.image_id
		LEFT JOIN tags t ON s.tag_id = t.id
		WHERE i.id = ?
		GROUP BY i.id
	`

	var img models.Image
	var tagNamesStr sql.NullString

	err := r.db.QueryRow(query, id).Scan(
		&img.ID, &img.ContentHash, &img.FilePath, &img.OriginalFilename,
		&img.CreatedAt, &img.ProcessCount,
		&tagNamesStr,
	)
	if err != nil {
		return nil, err
	}

	// 解析标签
	if tagNamesStr.Valid && tagNamesStr.String != "" {
		img.TagNames = strings.Split(tagNamesStr.String, ",")
	} else {
		img.TagNames = []string{}
	}

	return &img, nil
}

// List 获取图片列表（支持标签交集、文件名子串和日期范围过滤）
func (r *ImageRepository) List(limit, offset int, filter *models.ImageFilter) ([]*models.Image, error) {
	query := `
		SELECT
			i.id, i.content_hash, i.file_path, i.original_filename,
			i.created_at, i.process_count,
			GROUP_CONCAT(t.name, ',') as tag_names
		FROM images i
		LEFT JOIN image_tag_stats s ON i.id = s.image_id
		LEFT JOIN tags t ON s.tag_id = t.id
	`

	whereClauses, args := buildImageFilter(filter)
	if len(whereClauses) > 0 {
		query += " WHERE " + strings.Join(whereClauses, " AND ")
	}

	query += " GROUP BY i.id ORDER BY i.created_at DESC LIMIT ? OFFSET ?"
	args = append(args, limit, offset)

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("查询图片列表失败: %w", err)
	}
	defer rows.Close()

	images := []*models.Image{}
	for rows.Next() {
		var img models.Image
		var tagNamesStr sql.NullString
		if err := rows.Scan(
			&img.ID, &img.ContentHash, &img.FilePath, &img.OriginalFilename,
			&img.CreatedAt, &img.ProcessCount, &tagNamesStr,
		); err != nil {
			log.Printf("❌ Scan错误: %v", err)
			continue
		}

		if tagNamesStr.Valid && tagNamesStr.String != "" {
			img.TagNames = strings.Split(tagNamesStr.String, ",")
		} else {
			img.TagNames = []string{}
		}
		images = append(images, &img)
	}

	return images, nil
}

// Count 统计满足过滤条件的图片数量
func (r *ImageRepository) Count(filter *models.ImageFilter) (int, error) {
	query := "SELECT COUNT(*) FROM images i"

	whereClauses, args := buildImageFilter(filter)
	if len(whereClauses) > 0 {
		query += " WHERE " + strings.Join(whereClauses, " AND ")
	}

	var count int
	if err := r.db.QueryRow(query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("统计图片数量失败: %w", err)
	}
	return count, nil
}

// buildImageFilter 构建图片查询的 WHERE 条件
// 标签过滤是交集语义：图片必须带有所有指定标签（HAVING COUNT(DISTINCT) = n）。
func buildImageFilter(filter *models.ImageFilter) ([]string, []interface{}) {
	whereClauses := []string{}
	args := []interface{}{}

	if filter == nil {
		return whereClauses, args
	}

	if len(filter.Tags) > 0 {
		placeholders := strings.TrimSuffix(strings.Repeat("?,", len(filter.Tags)), ",")
		whereClauses = append(whereClauses, fmt.Sprintf(`
			i.id IN (
				SELECT s2.image_id
				FROM image_tag_stats s2
				JOIN tags t2 ON s2.tag_id = t2.id
				WHERE t2.name IN (%s)
				GROUP BY s2.image_id
				HAVING COUNT(DISTINCT t2.name) = %d
			)
		`, placeholders, len(filter.Tags)))
		for _, tag := range filter.Tags {
			args = append(args, tag)
		}
	}

	if filter.Filename != "" {
		whereClauses = append(whereClauses, "i.original_filename LIKE ?")
		args = append(args, "%"+filter.Filename+"%")
	}

	if filter.DateFrom != "" && filter.DateTo != "" {
		whereClauses = append(whereClauses, "DATE(i.created_at) BETWEEN DATE(?) AND DATE(?)")
		args = append(args, filter.DateFrom, filter.DateTo)
	} else if filter.DateFrom != "" {
		whereClauses = append(whereClauses, "DATE(i.created_at) >= DATE(?)")
		args = append(args, filter.DateFrom)
	} else if filter.DateTo != "" {
		whereClauses = append(whereClauses, "DATE(i.created_at) <= DATE(?)")
		args = append(args, filter.DateTo)
	}

	return whereClauses, args
}
