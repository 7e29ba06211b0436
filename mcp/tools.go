package mcp

import (
	"context"
	"fmt"
	"strings"

	"ai-image-tagger/models"
	"ai-image-tagger/services"

	"github.com/mark3labs/mcp-go/mcp"
)

// registerTools registers all MCP tools using correct API
func (s *MCPServer) registerTools() {
	// Tool 1: Search images
	searchTool := mcp.NewTool("search_images",
		mcp.WithDescription("搜索图片,支持按标签（逗号分隔,交集匹配）和文件名子串过滤"),
		mcp.WithString("tags",
			mcp.Description("逗号分隔的标签列表,图片必须带有所有标签"),
		),
		mcp.WithString("filename",
			mcp.Description("原始文件名子串"),
		),
	)
	s.mcpServer.AddTool(searchTool, s.handleSearchImages)

	// Tool 2: Get tags
	tagsTool := mcp.NewTool("get_tags",
		mcp.WithDescription("获取所有标签列表"),
	)
	s.mcpServer.AddTool(tagsTool, s.handleGetTags)

	// Tool 3: Get ranked tags for one image
	imageTagsTool := mcp.NewTool("get_image_tags",
		mcp.WithDescription("获取一张图片的标签及置信度排名"),
		mcp.WithNumber("image_id",
			mcp.Required(),
			mcp.Description("图片ID"),
		),
	)
	s.mcpServer.AddTool(imageTagsTool, s.handleGetImageTags)

	// Tool 4: Check model availability
	checkModelTool := mcp.NewTool("check_model",
		mcp.WithDescription("检查视觉模型是否已在 Ollama 中就绪"),
	)
	s.mcpServer.AddTool(checkModelTool, s.handleCheckModel)
}

// Tool handlers - using GetString/GetFloat methods from official example

func (s *MCPServer) handleSearchImages(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	filter := &models.ImageFilter{
		Filename: request.GetString("filename", ""),
	}

	if tagsParam := request.GetString("tags", ""); tagsParam != "" {
		for _, tag := range strings.Split(tagsParam, ",") {
			tag = strings.TrimSpace(tag)
			if tag != "" {
				filter.Tags = append(filter.Tags, services.NormalizeTag(tag))
			}
		}
	}

	if len(filter.Tags) == 0 && filter.Filename == "" {
		return mcp.NewToolResultError("tags or filename parameter required"), nil
	}

	images, err := s.imageRepo.List(100, 0, filter)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to search images: %v", err)), nil
	}

	result := formatImages(images, "搜索结果")
	return mcp.NewToolResultText(result), nil
}

func (s *MCPServer) handleGetTags(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	tags, err := s.tagRepo.List()
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to get tags: %v", err)), nil
	}

	result := formatTags(tags)
	return mcp.NewToolResultText(result), nil
}

func (s *MCPServer) handleGetImageTags(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	imageID := request.GetFloat("image_id", 0)
	if imageID == 0 {
		return mcp.NewToolResultError("image_id parameter required"), nil
	}

	stats, err := s.statRepo.GetRanked(int64(imageID))
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to get image tags: %v", err)), nil
	}

	result := formatRankedTags(int64(imageID), stats)
	return mcp.NewToolResultText(result), nil
}

func (s *MCPServer) handleCheckModel(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if s.analyzer.IsModelAvailable() {
		return mcp.NewToolResultText("✅ 视觉模型已就绪"), nil
	}
	return mcp.NewToolResultText("❌ 视觉模型不可用,请确认 Ollama 已启动并拉取了模型"), nil
}
