package models

// GenerateRequest Ollama /api/generate 请求体
type GenerateRequest struct {
	Model  string   `json:"model"`
	Prompt string   `json:"prompt"`
	Images []string `json:"images"` // base64 编码的图片
	Stream bool     `json:"stream"`
}

// GenerateResponse Ollama /api/generate 响应外层结构（只关心 response 字段）
type GenerateResponse struct {
	Model    string `json:"model"`
	Response string `json:"response"`
}

// OllamaModel Ollama /api/tags 返回的模型条目
type OllamaModel struct {
	Name string `json:"name"`
}

// OllamaTagsResponse Ollama /api/tags 响应
type OllamaTagsResponse struct {
	Models []OllamaModel `json:"models"`
}
