package api

import (
	"encoding/json"
	"log"
	"net/http"
	"strconv"
	"strings"

	"ai-image-tagger/db"
	"ai-image-tagger/models"
	"ai-image-tagger/services"
	"ai-image-tagger/utils"
)

var (
	imageRepo  *db.ImageRepository
	tagRepo    *db.TagRepository
	statRepo   *db.StatRepository
	pipeline   *services.Pipeline
	workerPool *services.AnalyzeWorkerPool
)

// SetRepositories 设置数据仓库依赖
func SetRepositories(images *db.ImageRepository, tags *db.TagRepository, stats *db.StatRepository) {
	imageRepo = images
	tagRepo = tags
	statRepo = stats
}

// SetPipeline 设置流水线和异步工作池依赖
func SetPipeline(p *services.Pipeline, pool *services.AnalyzeWorkerPool) {
	pipeline = p
	workerPool = pool
}

// HandleListImages 获取图片列表（支持标签交集、文件名和日期范围过滤）
func HandleListImages(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	limit, _ := strconv.Atoi(query.Get("limit"))
	if limit <= 0 || limit > 100 {
		limit = 100
	}
	offset, _ := strconv.Atoi(query.Get("offset"))
	if offset < 0 {
		offset = 0
	}

	filter := &models.ImageFilter{
		Filename: query.Get("q"),
		DateFrom: query.Get("from"),
		DateTo:   query.Get("to"),
	}

	// tags 参数是逗号分隔的标签列表，交集语义
	if tagsParam := query.Get("tags"); tagsParam != "" {
		for _, tag := range strings.Split(tagsParam, ",") {
			tag = strings.TrimSpace(tag)
			if tag != "" {
				filter.Tags = append(filter.Tags, services.NormalizeTag(tag))
			}
		}
	}

	if err := utils.ValidateTagFilter(filter.Tags); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := utils.ValidateDateRange(filter.DateFrom, filter.DateTo); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	images, err := imageRepo.List(limit, offset, filter)
	if err != nil {
		log.Printf("❌ 查询图片失败: %v", err)
		http.Error(w, "查询失败", http.StatusInternalServerError)
		return
	}

	count, _ := imageRepo.Count(filter)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"count":   count,
		"results": images,
	})
}

// HandleImageByID 获取单张图片（含标签列表）
func HandleImageByID(w http.ResponseWriter, r *http.Request, id int64) {
	img, err := imageRepo.GetByID(id)
	if err != nil {
		http.Error(w, "图片不存在", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(img)
}

// HandleImageTags 获取单张图片的标签置信度排名
func HandleImageTags(w http.ResponseWriter, r *http.Request, id int64) {
	if _, err := imageRepo.GetByID(id); err != nil {
		http.Error(w, "图片不存在", http.StatusNotFound)
		return
	}

	stats, err := statRepo.GetRanked(id)
	if err != nil {
		log.Printf("❌ 查询标签统计失败: %v", err)
		http.Error(w, "查询失败", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"image_id": id,
		"tags":     stats,
	})
}

// HandleProcessImage 手动触发一轮异步分析
func HandleProcessImage(w http.ResponseWriter, r *http.Request, id int64) {
	if _, err := imageRepo.GetByID(id); err != nil {
		http.Error(w, "图片不存在", http.StatusNotFound)
		return
	}

	// 异步入队，立即返回
	workerPool.Submit(id)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"message": "分析任务已入队",
		"id":      id,
	})
}

// HandleIngest 把图片复制进内容寻址存储并登记身份
func HandleIngest(w http.ResponseWriter, r *http.Request) {
	var req models.IngestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "无效的请求数据", http.StatusBadRequest)
		return
	}

	if err := utils.ValidateIngestRequest(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	ingested, err := pipeline.Ingest(req.Path)
	if err != nil {
		log.Printf("❌ 图片入库失败: %v", err)
		http.Error(w, "入库失败", http.StatusInternalServerError)
		return
	}

	// 入库之后排队首轮分析
	for _, img := range ingested {
		workerPool.Submit(img.ID)
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"count":   len(ingested),
		"results": ingested,
	})
}

// HandleGetTags 获取所有标签
func HandleGetTags(w http.ResponseWriter, r *http.Request) {
	tags, err := tagRepo.List()
	if err != nil {
		log.Printf("❌ 查询标签失败: %v", err)
		http.Error(w, "查询失败", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(tags)
}

// HandleGetTagStats 获取标签词汇表统计
func HandleGetTagStats(w http.ResponseWriter, r *http.Request) {
	stats, err := statRepo.VocabularyStats(20)
	if err != nil {
		log.Printf("❌ 获取标签统计失败: %v", err)
		http.Error(w, "获取统计失败", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(stats)
}
