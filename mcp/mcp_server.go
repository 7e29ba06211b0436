package mcp

import (
	"fmt"
	"strings"

	"ai-image-tagger/db"
	"ai-image-tagger/models"
	"ai-image-tagger/services"

	"github.com/mark3labs/mcp-go/server"
)

// MCPServer wraps the MCP server with image tagging repositories
type MCPServer struct {
	imageRepo *db.ImageRepository
	tagRepo   *db.TagRepository
	statRepo  *db.StatRepository
	analyzer  *services.AnalyzerService
	mcpServer *server.MCPServer
}

// NewMCPServer creates a new MCP server instance
func NewMCPServer(
	imageRepo *db.ImageRepository,
	tagRepo *db.TagRepository,
	statRepo *db.StatRepository,
	analyzer *services.AnalyzerService,
) *MCPServer {
	s := &MCPServer{
		imageRepo: imageRepo,
		tagRepo:   tagRepo,
		statRepo:  statRepo,
		analyzer:  analyzer,
	}

	s.mcpServer = server.NewMCPServer(
		"ai-image-tagger",
		"1.0.0",
		server.WithResourceCapabilities(true, false),
		server.WithToolCapabilities(false),
		server.WithRecovery(),
	)

	// Register tools and resources
	s.registerTools()
	s.registerResources()

	return s
}

// Server returns the underlying MCP server
func (s *MCPServer) Server() *server.MCPServer {
	return s.mcpServer
}

// formatImages formats images as markdown
func formatImages(images []*models.Image, title string) string {
	if len(images) == 0 {
		return fmt.Sprintf("# %s\n\n没有找到图片。", title)
	}

	var result strings.Builder
	result.WriteString(fmt.Sprintf("# %s\n\n", title))
	result.WriteString(fmt.Sprintf("共 %d 张图片\n", len(images)))

	for _, img := range images {
		result.WriteString(fmt.Sprintf("\n## %s\n", img.OriginalFilename))
		result.WriteString(fmt.Sprintf("- **ID**: %d\n", img.ID))
		result.WriteString(fmt.Sprintf("- **内容哈希**: %s\n", img.ContentHash))
		result.WriteString(fmt.Sprintf("- **已分析轮数**: %d\n", img.ProcessCount))

		if len(img.TagNames) > 0 {
			result.WriteString(fmt.Sprintf("- **标签**: %s\n", strings.Join(img.TagNames, ", ")))
		}
	}

	return result.String()
}

// formatTags formats tags as markdown
func formatTags(tags []*models.Tag) string {
	if len(tags) == 0 {
		return "# 标签列表\n\n没有找到标签。"
	}

	var result strings.Builder
	result.WriteString("# 标签列表\n\n")
	result.WriteString(fmt.Sprintf("共 %d 个标签\n\n", len(tags)))

	// Extract tag names
	tagNames := make([]string, len(tags))
	for i, tag := range tags {
		tagNames[i] = tag.Name
	}
	result.WriteString(strings.Join(tagNames, ", "))

	return result.String()
}

// formatRankedTags formats a ranked confidence list as markdown
func formatRankedTags(imageID int64, stats []*models.TagStat) string {
	if len(stats) == 0 {
		return fmt.Sprintf("# 图片 %d 的标签\n\n暂无标签（可能还没有分析过）。", imageID)
	}

	var result strings.Builder
	result.WriteString(fmt.Sprintf("# 图片 %d 的标签\n\n", imageID))
	result.WriteString(fmt.Sprintf("已分析 %d 轮，按置信度排序：\n\n", stats[0].ProcessCount))

	for _, stat := range stats {
		result.WriteString(fmt.Sprintf("- **%s**: 置信度 %.2f (%d/%d)\n",
			stat.Name, stat.Confidence, stat.OccurrenceCount, stat.ProcessCount))
	}

	return result.String()
}
