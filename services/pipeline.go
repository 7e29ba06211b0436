package services

import (
	"database/sql"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"ai-image-tagger/db"
	"ai-image-tagger/models"
	"ai-image-tagger/utils"

	"github.com/schollz/progressbar/v3"
)

// Analyzer 视觉分析协作方：输入图片路径，输出模型原始文本回复
type Analyzer interface {
	AnalyzeImage(path string) (string, error)
}

// hashStemPattern 内容寻址存储中的文件名就是内容哈希
var hashStemPattern = regexp.MustCompile(`^[0-9a-f]{32}$`)

// imageExtensions 支持的图片扩展名
var imageExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
}

// Pipeline 图片处理流水线
// 单张图片的一轮：解析身份 → 调用视觉模型 → 提取 → 规范化 → 记账。
// 同一张图片可以反复处理，多轮结果累积成置信度。
type Pipeline struct {
	imageRepo   *db.ImageRepository
	statRepo    *db.StatRepository
	analyzer    Analyzer
	imageDir    string
	jpegQuality int
}

// BatchResult 批量处理结果
type BatchResult struct {
	Processed []int64  `json:"processed"` // 成功处理的图片 ID
	Failed    []string `json:"failed"`    // 失败的图片路径
}

// NewPipeline 创建处理流水线
func NewPipeline(imageRepo *db.ImageRepository, statRepo *db.StatRepository, analyzer Analyzer, imageDir string, jpegQuality int) *Pipeline {
	// 创建图片目录（如果不存在）
	if err := os.MkdirAll(imageDir, 0o755); err != nil {
		log.Printf("⚠️ 创建图片目录失败: %v", err)
	}

	return &Pipeline{
		imageRepo:   imageRepo,
		statRepo:    statRepo,
		analyzer:    analyzer,
		imageDir:    imageDir,
		jpegQuality: jpegQuality,
	}
}

// resolveHash 解析图片的内容哈希
// 内容寻址存储里的文件名本身就是哈希，直接取文件名；其他路径重新计算。
func (p *Pipeline) resolveHash(path string) (string, error) {
	stem := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	if hashStemPattern.MatchString(stem) {
		return stem, nil
	}
	return HashImageFile(path, p.jpegQuality)
}

// ProcessImage 处理一张图片并记录其标签
// 视觉模型失败时本张图片整体失败，统计账本不发生任何变更；
// 只有标签集合（哪怕为空）确定之后才会递增 process_count。
func (p *Pipeline) ProcessImage(path string) (int64, error) {
	// 1. 解析身份
	contentHash, err := p.resolveHash(path)
	if err != nil {
		return 0, fmt.Errorf("计算内容哈希失败: %w", err)
	}

	if existing, err := p.imageRepo.GetByHash(contentHash); err == nil {
		log.Printf("🔄 再次处理已有图片: %s (第 %d 轮)", filepath.Base(path), existing.ProcessCount+1)
	} else if err != sql.ErrNoRows {
		return 0, fmt.Errorf("查询图片失败: %w", err)
	} else {
		log.Printf("📝 新图片入库: %s", filepath.Base(path))
	}

	imageID, err := p.imageRepo.GetOrCreate(contentHash, path, filepath.Base(path))
	if err != nil {
		return 0, fmt.Errorf("解析图片身份失败: %w", err)
	}

	// 2. 调用视觉模型
	rawText, err := p.analyzer.AnalyzeImage(path)
	if err != nil {
		return 0, fmt.Errorf("分析失败: %s: %w", filepath.Base(path), err)
	}
	log.Printf("✨ 模型回复: %s", rawText[:utils.Min(150, len(rawText))])

	// 3. 提取并规范化标签（尽力而为，结果可能为空但不是错误）
	tagNames := NormalizeTags(ExtractTags(rawText))

	// 4. 记账（空标签集合也算一轮）
	if err := p.statRepo.RecordPass(imageID, tagNames); err != nil {
		return 0, fmt.Errorf("记录分析结果失败: %w", err)
	}

	log.Printf("✅ 处理完成: %s, 本轮 %d 个标签", filepath.Base(path), len(tagNames))
	return imageID, nil
}

// ProcessImageByID 按图片 ID 重新分析（worker pool 的任务入口）
func (p *Pipeline) ProcessImageByID(imageID int64) {
	img, err := p.imageRepo.GetByID(imageID)
	if err != nil {
		log.Printf("❌ 后台任务: 图片不存在 ID=%d, 错误: %v", imageID, err)
		return
	}

	if _, err := p.ProcessImage(img.FilePath); err != nil {
		log.Printf("⚠️ 后台分析失败: %v", err)
	}
}

// ProcessDirectory 处理目录下的所有图片
// 单张失败不会中止批次，结果里分别给出成功 ID 和失败路径。
func (p *Pipeline) ProcessDirectory(dir string) (*BatchResult, error) {
	files, err := listImageFiles(dir)
	if err != nil {
		return nil, err
	}

	result := &BatchResult{Processed: []int64{}, Failed: []string{}}
	bar := progressbar.Default(int64(len(files)), "处理图片")

	for _, path := range files {
		imageID, err := p.ProcessImage(path)
		if err != nil {
			log.Printf("❌ 处理图片失败: %v", err)
			result.Failed = append(result.Failed, path)
		} else {
			result.Processed = append(result.Processed, imageID)
		}
		_ = bar.Add(1)
	}

	log.Printf("✅ 批量处理完成: 成功 %d, 失败 %d", len(result.Processed), len(result.Failed))
	return result, nil
}

// Ingest 把图片复制进内容寻址存储并登记身份
// 存储文件名就是规范字节的内容哈希，同一内容不管来源路径如何都只存一份。
// 只登记身份，不触发分析。
func (p *Pipeline) Ingest(path string) ([]*models.IngestedImage, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("访问路径失败: %w", err)
	}

	var files []string
	if info.IsDir() {
		files, err = listImageFiles(path)
		if err != nil {
			return nil, err
		}
	} else {
		if !imageExtensions[strings.ToLower(filepath.Ext(path))] {
			return nil, fmt.Errorf("不支持的图片格式: %s", filepath.Ext(path))
		}
		files = []string{path}
	}

	ingested := []*models.IngestedImage{}
	for _, src := range files {
		data, err := CanonicalJPEG(src, p.jpegQuality)
		if err != nil {
			log.Printf("⚠️ 跳过无法解码的文件: %s, 错误: %v", src, err)
			continue
		}

		contentHash := ContentHash(data)
		dest := filepath.Join(p.imageDir, contentHash+".jpg")

		if _, err := os.Stat(dest); os.IsNotExist(err) {
			if err := os.WriteFile(dest, data, 0o644); err != nil {
				return nil, fmt.Errorf("写入图片失败: %s: %w", dest, err)
			}
			log.Printf("📥 入库: %s -> %s", src, dest)
		} else {
			log.Printf("ℹ️ 内容已存在，跳过复制: %s", src)
		}

		imageID, err := p.imageRepo.GetOrCreate(contentHash, dest, filepath.Base(src))
		if err != nil {
			return nil, err
		}

		ingested = append(ingested, &models.IngestedImage{
			ID:          imageID,
			ContentHash: contentHash,
			StoredPath:  dest,
			SourcePath:  src,
		})
	}

	return ingested, nil
}

// listImageFiles 列出目录下的图片文件（按文件名排序，保证批次顺序稳定）
func listImageFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("读取目录失败: %w", err)
	}

	files := []string{}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if imageExtensions[strings.ToLower(filepath.Ext(entry.Name()))] {
			files = append(files, filepath.Join(dir, entry.Name()))
		}
	}

	return files, nil
}
