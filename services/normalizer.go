package services

import (
	"strings"
	"unicode"
)

// NormalizeTag 把原始标签规范化为展示形式
// 规则依次为：下划线转空格、逐词首字母大写（其余小写）、去除首尾空白。
// 纯函数，幂等："red_car"、"Red Car"、"RED_CAR" 都归一到 "Red Car"。
func NormalizeTag(raw string) string {
	s := strings.ReplaceAll(raw, "_", " ")

	words := strings.Fields(s)
	for i, word := range words {
		words[i] = titleWord(word)
	}

	return strings.Join(words, " ")
}

// NormalizeTags 批量规范化并去重（保留首次出现顺序，丢弃空串）
func NormalizeTags(raw []string) []string {
	result := []string{}
	seen := make(map[string]bool)

	for _, tag := range raw {
		name := NormalizeTag(tag)
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		result = append(result, name)
	}

	return result
}

// titleWord 单词首字母大写，其余小写
func titleWord(word string) string {
	runes := []rune(strings.ToLower(word))
	for i, r := range runes {
		if unicode.IsLetter(r) {
			runes[i] = unicode.ToUpper(r)
			break
		}
	}
	return string(runes)
}
