package mcp

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
)

// registerResources registers all MCP resources
func (s *MCPServer) registerResources() {
	// Resource 1: Recent images
	recentResource := mcp.NewResource("images://recent",
		"最近的图片",
		mcp.WithMIMEType("text/markdown"),
		mcp.WithResourceDescription("最近入库的图片列表"),
	)
	s.mcpServer.AddResource(recentResource, s.handleRecentImages)

	// Resource 2: Tags
	tagsResource := mcp.NewResource("tags://all",
		"标签列表",
		mcp.WithMIMEType("text/markdown"),
		mcp.WithResourceDescription("所有规范化标签"),
	)
	s.mcpServer.AddResource(tagsResource, s.handleTagsResource)
}

// Resource handlers - correct signature from official example

func (s *MCPServer) handleRecentImages(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	images, err := s.imageRepo.List(100, 0, nil)
	if err != nil {
		return nil, err
	}

	result := formatImages(images, "最近的图片")

	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      "images://recent",
			MIMEType: "text/markdown",
			Text:     result,
		},
	}, nil
}

func (s *MCPServer) handleTagsResource(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	tags, err := s.tagRepo.List()
	if err != nil {
		return nil, err
	}

	result := formatTags(tags)

	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      "tags://all",
			MIMEType: "text/markdown",
			Text:     result,
		},
	}, nil
}
