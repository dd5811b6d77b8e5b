package contract

import "unicode/utf8"

// FileID: 逻辑文档ID（通常为路径，需规范化，跨平台一致）。
type FileID string

// Index: 单文件内稳定递增的行号（0..n-1）。
type Index int64

// Line: 输入文件中的一行。
// 约束：
// - Text 含行终止符（统一为 "\n"）；末行可无终止符；
// - Length 为 Text 的字符数（Unicode 码点）减一，末行无终止符时会少计一位；
// - Reader 不产出空 Text，因此 Length >= 0。
type Line struct {
	Index  Index
	Text   string
	Length int
}

// LineLength 计算一行的桶长度：字符数（Unicode 码点）减一。
// 假定恰有一个终止符占位；末行缺少终止符时少计一位，保持原有约定不做修正。
func LineLength(text string) int {
	return utf8.RuneCountInString(text) - 1
}
