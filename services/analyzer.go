package services

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"ai-image-tagger/config"
	"ai-image-tagger/models"
)

// defaultPrompt 提示词要求模型只返回 JSON 标签列表
// 实际回复经常混着额外说明文字和代码块标记，由提取器兜底。
const defaultPrompt = `Analyze this image and return an extensive list of tags in JSON format.
The tags are used for image search, filtering, and organizing application.
The tags should be as diverse as possible.
The more tags the better.
The more detailed tags the better.
Example response format: { "tags": ["tag1", "tag2", "tag3"] }

Return only the JSON object without any additional text.`

// AnalyzerService 视觉模型分析服务（Ollama）
type AnalyzerService struct {
	config *config.Config
}

// NewAnalyzerService 创建分析服务
func NewAnalyzerService(cfg *config.Config) *AnalyzerService {
	return &AnalyzerService{config: cfg}
}

// AnalyzeImage 调用视觉模型分析一张图片，返回模型的原始文本回复
// 超时由 ANALYZE_TIMEOUT 控制，超时或传输失败都作为本张图片的失败返回。
func (s *AnalyzerService) AnalyzeImage(path string) (string, error) {
	data, err := CanonicalJPEG(path, s.config.JPEGQuality)
	if err != nil {
		return "", fmt.Errorf("准备图片失败: %w", err)
	}

	payload := models.GenerateRequest{
		Model:  s.config.VisionModel,
		Prompt: defaultPrompt,
		Images: []string{base64.StdEncoding.EncodeToString(data)},
		Stream: false,
	}

	reqJSON, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("JSON序列化失败: %w", err)
	}

	apiURL := s.config.OllamaHost + "/api/generate"
	req, err := http.NewRequest("POST", apiURL, bytes.NewReader(reqJSON))
	if err != nil {
		return "", fmt.Errorf("创建请求失败: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	client := &http.Client{Timeout: time.Duration(s.config.AnalyzeTimeout) * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("模型请求失败: %w", err)
	}
	defer resp.Body.Close()

	// 检查HTTP状态码
	if resp.StatusCode != http.StatusOK {
		log.Printf("❌ 模型服务返回错误状态: %d %s", resp.StatusCode, resp.Status)
		return "", fmt.Errorf("模型服务错误: %s (状态码: %d)", resp.Status, resp.StatusCode)
	}

	// 限制响应体大小为1MB,防止超大响应
	limitedReader := io.LimitReader(resp.Body, 1024*1024)

	var result models.GenerateResponse
	if err := json.NewDecoder(limitedReader).Decode(&result); err != nil {
		return "", fmt.Errorf("解析模型响应失败: %w", err)
	}

	if result.Response == "" {
		return "", fmt.Errorf("模型无响应")
	}

	return result.Response, nil
}

// IsModelAvailable 检查视觉模型是否已在 Ollama 中就绪
func (s *AnalyzerService) IsModelAvailable() bool {
	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Get(s.config.OllamaHost + "/api/tags")
	if err != nil {
		return false
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return false
	}

	var result models.OllamaTagsResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1024*1024)).Decode(&result); err != nil {
		return false
	}

	for _, m := range result.Models {
		// Ollama 的模型名带版本后缀，如 llava:latest
		if m.Name == s.config.VisionModel || strings.HasPrefix(m.Name, s.config.VisionModel+":") {
			return true
		}
	}
	return false
}
