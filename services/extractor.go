package services

import (
	"encoding/json"
	"log"
	"regexp"
	"strings"
)

// fragmentPattern 非贪婪匹配花括号片段，允许跨行
// 标签字符串里出现 } 或嵌套结构时会错切，这是已知的启发式局限：
// 错切出来的碎片过不了严格解析，会在第二阶段被丢弃。
var fragmentPattern = regexp.MustCompile(`\{[\s\S]*?\}`)

// ExtractTags 从模型原始回复中提取标签候选集
// 两阶段：先用正则扫出所有候选片段，再对每个片段独立做严格 JSON 解析。
// 只接受带 "tags" 字段且值为字符串数组的片段，结果为所有合法片段的并集（去重）。
// 这是尽力而为的扫描：解析失败只丢弃当前片段，永远不会让调用方失败。
func ExtractTags(text string) []string {
	tags := []string{}
	seen := make(map[string]bool)

	for _, fragment := range fragmentPattern.FindAllString(text, -1) {
		list, ok := parseTagFragment(fragment)
		if !ok {
			continue
		}
		for _, tag := range list {
			if seen[tag] {
				continue
			}
			seen[tag] = true
			tags = append(tags, tag)
		}
	}

	return tags
}

// parseTagFragment 严格解析单个候选片段
func parseTagFragment(fragment string) ([]string, bool) {
	fragment = strings.TrimSpace(fragment)

	// 模型经常把 JSON 包在转义过的代码块里，先还原转义的换行
	if strings.Contains(fragment, `\n`) {
		fragment = strings.ReplaceAll(fragment, `\n`, "\n")
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal([]byte(fragment), &obj); err != nil {
		log.Printf("⚠️ 片段解析失败: %v", err)
		log.Printf("⚠️ 失败片段: %s", fragment)
		return nil, false
	}

	rawTags, ok := obj["tags"]
	if !ok {
		// 缺少 tags 字段的片段静默丢弃
		return nil, false
	}

	var list []string
	if err := json.Unmarshal(rawTags, &list); err != nil {
		// tags 不是字符串数组，同样静默丢弃
		return nil, false
	}

	return list, true
}
