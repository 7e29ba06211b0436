package main

import (
	"encoding/json"
	"log"
	"net/http"
	"os"
	"strconv"
	"strings"

	"ai-image-tagger/api"
	"ai-image-tagger/config"
	"ai-image-tagger/db"
	"ai-image-tagger/mcp"
	"ai-image-tagger/services"
	"ai-image-tagger/utils"

	"github.com/mark3labs/mcp-go/server"
)

var (
	cfg         *config.Config
	imageRepo   *db.ImageRepository
	tagRepo     *db.TagRepository
	statRepo    *db.StatRepository
	analyzer    *services.AnalyzerService
	pipeline    *services.Pipeline
	rateLimiter *api.RateLimiter
	workerPool  *services.AnalyzeWorkerPool
)

func main() {
	// 1. 加载配置
	var err error
	cfg, err = config.Load()
	if err != nil {
		log.Fatalf("❌ 加载配置失败: %v", err)
	}

	// 验证配置
	if err := cfg.Validate(); err != nil {
		log.Printf("⚠️ 配置验证警告: %v", err)
	}

	log.Printf("✅ 配置加载成功")
	log.Printf("📊 Ollama: %s", cfg.OllamaHost)
	log.Printf("📊 视觉模型: %s", cfg.VisionModel)
	log.Printf("📊 API Token: %s", utils.SanitizeToken(cfg.APIToken))

	// 2. 初始化数据库
	if err := db.Init(cfg.DBPath); err != nil {
		log.Fatalf("❌ 数据库初始化失败: %v", err)
	}
	defer db.Close()

	// 加载动态配置
	if err := cfg.LoadFromDB(db.DB); err != nil {
		log.Printf("⚠️ 从数据库加载动态配置失败: %v", err)
	}

	// 3. 初始化仓库
	imageRepo = db.NewImageRepository()
	tagRepo = db.NewTagRepository()
	statRepo = db.NewStatRepository()

	// 4. 初始化服务
	analyzer = services.NewAnalyzerService(cfg)
	pipeline = services.NewPipeline(imageRepo, statRepo, analyzer, cfg.ImageDir, cfg.JPEGQuality)

	// 运行模式分发（serve 之外的模式跑完即退出）
	mode := "serve"
	if len(os.Args) > 1 {
		mode = os.Args[1]
	}

	switch mode {
	case "process":
		runProcess()
		return
	case "ingest":
		runIngest()
		return
	case "check-model":
		runCheckModel()
		return
	case "serve":
		// 继续往下走
	default:
		log.Fatalf("❌ 未知模式: %s (支持 serve | process | ingest | check-model)", mode)
	}

	// 5. 设置 API 处理器依赖
	api.SetRepositories(imageRepo, tagRepo, statRepo)

	// 6. 初始化限流器
	if cfg.RateLimitEnabled {
		rateLimiter = api.NewRateLimiter(cfg.RateLimitPerIP, cfg.RateLimitBurst)
	}

	// 7. 初始化分析工作池
	workerPool = services.NewAnalyzeWorkerPool(cfg.AnalyzeWorkerCount, pipeline.ProcessImageByID)
	workerPool.Start()
	defer workerPool.Stop()
	api.SetPipeline(pipeline, workerPool)

	// 8. 初始化 MCP 服务器
	mcpSrv := mcp.NewMCPServer(imageRepo, tagRepo, statRepo, analyzer)
	httpServer := server.NewStreamableHTTPServer(mcpSrv.Server())
	log.Printf("✅ MCP 服务器初始化成功")

	// 9. 设置路由
	mux := http.NewServeMux()

	// MCP HTTP 端点 - 使用 StreamableHTTPServer
	mux.Handle("/mcp/", http.StripPrefix("/mcp", httpServer))

	// 健康检查端点(不需要认证)
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]string{"status": "healthy"})
	})

	// 系统状态端点
	mux.HandleFunc("/api/system/status", handleSystemStatus)

	// 系统配置端点 (支持热重载)
	mux.HandleFunc("/api/system/config", handleSystemConfig)

	// 图片 API
	mux.HandleFunc("/api/images", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == "GET" {
			api.HandleListImages(w, r)
		} else {
			http.Error(w, "方法不允许", http.StatusMethodNotAllowed)
		}
	})
	mux.HandleFunc("/api/images/", handleImageSubpath)

	// 标签 API
	mux.HandleFunc("/api/tags", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == "GET" {
			api.HandleGetTags(w, r)
		} else {
			http.Error(w, "方法不允许", http.StatusMethodNotAllowed)
		}
	})
	mux.HandleFunc("/api/tags/stats", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == "GET" {
			api.HandleGetTagStats(w, r)
		} else {
			http.Error(w, "方法不允许", http.StatusMethodNotAllowed)
		}
	})

	// 10. 应用中间件
	handler := api.LoggingMiddleware(mux)
	handler = api.AuthMiddleware(func() string { return cfg.APIToken })(handler)
	handler = api.RateLimitMiddleware(rateLimiter)(handler)
	handler = api.CORSMiddleware(handler) // CORS 必须在最外层
	handler = api.RecoveryMiddleware(handler)

	// 11. 启动服务器
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	log.Printf("🚀 服务器启动: http://localhost:%s", port)
	log.Printf("🖼️ REST API: http://localhost:%s/api/images", port)
	log.Printf("🔗 MCP 端点: http://localhost:%s/mcp", port)
	if err := http.ListenAndServe(":"+port, handler); err != nil {
		log.Fatalf("❌ 服务器启动失败: %v", err)
	}
}

// handleImageSubpath 处理 /api/images/ 下的子路径
func handleImageSubpath(w http.ResponseWriter, r *http.Request) {
	// /api/images/ without ID should list all images
	if r.URL.Path == "/api/images/" {
		api.HandleListImages(w, r)
		return
	}

	// /api/images/ingest
	if r.URL.Path == "/api/images/ingest" {
		if r.Method == "POST" {
			api.HandleIngest(w, r)
		} else {
			http.Error(w, "方法不允许", http.StatusMethodNotAllowed)
		}
		return
	}

	rest := strings.TrimPrefix(r.URL.Path, "/api/images/")
	rest = strings.TrimSuffix(rest, "/")

	// /api/images/{id}/tags
	if strings.HasSuffix(rest, "/tags") {
		id, err := parseImageID(strings.TrimSuffix(rest, "/tags"))
		if err != nil {
			http.Error(w, "无效的ID", http.StatusBadRequest)
			return
		}
		if r.Method == "GET" {
			api.HandleImageTags(w, r, id)
		} else {
			http.Error(w, "方法不允许", http.StatusMethodNotAllowed)
		}
		return
	}

	// /api/images/{id}/process
	if strings.HasSuffix(rest, "/process") {
		id, err := parseImageID(strings.TrimSuffix(rest, "/process"))
		if err != nil {
			http.Error(w, "无效的ID", http.StatusBadRequest)
			return
		}
		if r.Method == "POST" {
			api.HandleProcessImage(w, r, id)
		} else {
			http.Error(w, "方法不允许", http.StatusMethodNotAllowed)
		}
		return
	}

	// /api/images/{id}
	id, err := parseImageID(rest)
	if err != nil {
		http.Error(w, "无效的ID", http.StatusBadRequest)
		return
	}
	if r.Method == "GET" {
		api.HandleImageByID(w, r, id)
	} else {
		http.Error(w, "方法不允许", http.StatusMethodNotAllowed)
	}
}

// parseImageID 解析路径中的图片 ID
func parseImageID(s string) (int64, error) {
	return strconv.ParseInt(strings.Trim(s, "/"), 10, 64)
}

// handleSystemStatus 系统状态（用于前端引导页）
func handleSystemStatus(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	dbStatus := "connected"
	imageCount, err := imageRepo.Count(nil)
	if err != nil {
		dbStatus = "error"
	}

	status := map[string]interface{}{
		"status":          "ok",
		"database":        dbStatus,
		"images_count":    imageCount,
		"model_available": analyzer.IsModelAvailable(),
		"vision_model":    cfg.VisionModel,
	}

	json.NewEncoder(w).Encode(status)
}

// handleSystemConfig 系统配置读取与热重载
func handleSystemConfig(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodGet {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"ollama_host":     cfg.OllamaHost,
			"vision_model":    cfg.VisionModel,
			"analyze_timeout": cfg.AnalyzeTimeout,
		})
		return
	}

	if r.Method == http.MethodPost {
		var newConfig map[string]string
		if err := json.NewDecoder(r.Body).Decode(&newConfig); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		// 持久化到数据库
		for k, v := range newConfig {
			_, err := db.DB.Exec("INSERT OR REPLACE INTO system_configs (key, value) VALUES (?, ?)", k, v)
			if err != nil {
				log.Printf("❌ 无法保存配置 %s: %v", k, err)
			}
		}

		// 内存重载
		if err := cfg.LoadFromDB(db.DB); err != nil {
			log.Printf("⚠️ 内存重载失败: %v", err)
		}
		log.Printf("✅ 系统配置已更新并热重载")

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
		return
	}
	http.Error(w, "方法不允许", http.StatusMethodNotAllowed)
}

// runProcess 批量处理图片目录，REPEAT 控制重复轮数以累积置信度
func runProcess() {
	dir := cfg.ImageDir
	if len(os.Args) > 2 {
		dir = os.Args[2]
	}

	repeat := 1
	if v := os.Getenv("REPEAT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			repeat = n
		}
	}

	if !analyzer.IsModelAvailable() {
		log.Printf("⚠️ 视觉模型不可用,处理大概率会失败 (模型: %s)", cfg.VisionModel)
	}

	for round := 1; round <= repeat; round++ {
		log.Printf("🔁 第 %d/%d 轮处理: %s", round, repeat, dir)
		result, err := pipeline.ProcessDirectory(dir)
		if err != nil {
			log.Fatalf("❌ 批量处理失败: %v", err)
		}
		log.Printf("📊 本轮结果: 成功 %d, 失败 %d", len(result.Processed), len(result.Failed))
		for _, path := range result.Failed {
			log.Printf("   ❌ %s", path)
		}
	}
}

// runIngest 把图片复制进内容寻址存储
func runIngest() {
	if len(os.Args) < 3 {
		log.Fatalf("❌ 用法: %s ingest <图片或目录路径>", os.Args[0])
	}

	ingested, err := pipeline.Ingest(os.Args[2])
	if err != nil {
		log.Fatalf("❌ 入库失败: %v", err)
	}

	log.Printf("✅ 入库完成: %d 张图片已存入 %s", len(ingested), cfg.ImageDir)
}

// runCheckModel 检查视觉模型可用性
func runCheckModel() {
	if analyzer.IsModelAvailable() {
		log.Printf("✅ 视觉模型已就绪: %s @ %s", cfg.VisionModel, cfg.OllamaHost)
		return
	}
	log.Fatalf("❌ 视觉模型不可用: %s @ %s", cfg.VisionModel, cfg.OllamaHost)
}
