package db

import (
	"database/sql"
	"fmt"

	"ai-image-tagger/models"
)

// StatRepository 图片标签统计账本
// 每完成一轮分析调用一次 RecordPass，置信度 = occurrence_count / process_count。
type StatRepository struct {
	db *sql.DB
}

// NewStatRepository 创建统计仓库
func NewStatRepository() *StatRepository {
	return &StatRepository{db: DB}
}

// RecordPass 记录一轮完成的分析（单事务）
// 空标签集合也算一轮：process_count 照常递增，从而稀释旧标签的置信度。
// 事务失败时整体回滚，不会出现只加了 process_count 没加标签的中间状态。
func (r *StatRepository) RecordPass(imageID int64, tagNames []string) error {
	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("开始事务失败: %w", err)
	}
	defer tx.Rollback()

	// 1. 递增分析轮数
	result, err := tx.Exec("UPDATE images SET process_count = process_count + 1 WHERE id = ?", imageID)
	if err != nil {
		return fmt.Errorf("更新分析轮数失败: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("获取更新结果失败: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("图片不存在: id=%d", imageID)
	}

	// 2. 对本轮出现的每个标签做 get-or-create + 原子递增
	// ON CONFLICT DO UPDATE 消除了先查后改之间的竞争窗口
	seen := make(map[string]bool)
	for _, name := range tagNames {
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true

		tagID, err := getOrCreateTagTx(tx, name)
		if err != nil {
			return fmt.Errorf("创建标签失败: %s: %w", name, err)
		}

		if _, err := tx.Exec(`
			INSERT INTO image_tag_stats (image_id, tag_id, occurrence_count)
			VALUES (?, ?, 1)
			ON CONFLICT(image_id, tag_id) DO UPDATE SET occurrence_count = occurrence_count + 1
		`, imageID, tagID); err != nil {
			return fmt.Errorf("更新标签统计失败: %s: %w", name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("提交事务失败: %w", err)
	}
	return nil
}

// getOrCreateTagTx 在事务内获取或创建标签
func getOrCreateTagTx(tx *sql.Tx, tagName string) (int64, error) {
	var tagID int64
	err := tx.QueryRow("SELECT id FROM tags WHERE name = ?", tagName).Scan(&tagID)
	if err == nil {
		return tagID, nil
	}
	if err != sql.ErrNoRows {
		return 0, err
	}

	result, err := tx.Exec("INSERT INTO tags (name) VALUES (?)", tagName)
	if err != nil {
		return 0, err
	}
	return result.LastInsertId()
}

// GetRanked 获取一张图片的标签及置信度，按置信度降序、同分按名称升序
// 排序在 SQL 里完成，保证结果稳定可复现。
func (r *StatRepository) GetRanked(imageID int64) ([]*models.TagStat, error) {
	rows, err := r.db.Query(`
		SELECT t.name, s.occurrence_count, i.process_count
		FROM image_tag_stats s
		JOIN tags t ON s.tag_id = t.id
		JOIN images i ON s.image_id = i.id
		WHERE s.image_id = ?
		ORDER BY (s.occurrence_count * 1.0 / i.process_count) DESC, t.name ASC
	`, imageID)
	if err != nil {
		return nil, fmt.Errorf("查询标签统计失败: %w", err)
	}
	defer rows.Close()

	stats := []*models.TagStat{}
	for rows.Next() {
		var stat models.TagStat
		if err := rows.Scan(&stat.Name, &stat.OccurrenceCount, &stat.ProcessCount); err != nil {
			continue
		}
		if stat.ProcessCount > 0 {
			stat.Confidence = float64(stat.OccurrenceCount) / float64(stat.ProcessCount)
		}
		stats = append(stats, &stat)
	}

	return stats, nil
}

// VocabularyStats 统计标签词汇表摘要
func (r *StatRepository) VocabularyStats(topN int) (*models.VocabularyStats, error) {
	stats := &models.VocabularyStats{TopTags: []*models.TagUsage{}}

	if err := r.db.QueryRow("SELECT COUNT(*) FROM tags").Scan(&stats.TotalTags); err != nil {
		return nil, fmt.Errorf("统计标签总数失败: %w", err)
	}
	if err := r.db.QueryRow("SELECT COUNT(*) FROM images").Scan(&stats.TotalImages); err != nil {
		return nil, fmt.Errorf("统计图片总数失败: %w", err)
	}
	if err := r.db.QueryRow("SELECT COALESCE(SUM(process_count), 0) FROM images").Scan(&stats.TotalPasses); err != nil {
		return nil, fmt.Errorf("统计分析轮数失败: %w", err)
	}

	rows, err := r.db.Query(`
		SELECT t.name, COUNT(s.image_id) as image_count
		FROM tags t
		JOIN image_tag_stats s ON t.id = s.tag_id
		GROUP BY t.id
		ORDER BY image_count DESC, t.name
		LIMIT ?
	`, topN)
	if err != nil {
		return nil, fmt.Errorf("统计热门标签失败: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var usage models.TagUsage
		if err := rows.Scan(&usage.Name, &usage.ImageCount); err != nil {
			continue
		}
		stats.TopTags = append(stats.TopTags, &usage)
	}

	return stats, nil
}
