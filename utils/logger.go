package utils

// SanitizeToken 脱敏 Token（只显示后4位）
func SanitizeToken(token string) string {
	if token == "" {
		return "未设置"
	}
	if len(token) > 4 {
		return "***" + token[len(token)-4:]
	}
	return "***"
}

// Truncate 截断字符串用于日志输出
func Truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

// Min 返回两个整数中的较小值
func Min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
