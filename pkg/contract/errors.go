package contract

import "github.com/cockroachdb/errors"

// 最小错误分类（哨兵）。
var (
	// ErrPathInvalid: 输出名映射为无效/越界路径（例如含目录分隔符或 '..'）。
	ErrPathInvalid = errors.New("path invalid")
	// ErrInvalidInput: 输入内容无法按文本解码（例如非法 UTF-8 序列）。
	ErrInvalidInput = errors.New("invalid input")
	// ErrInvariantViolation: 领域不变量违例（通用哨兵）。
	ErrInvariantViolation = errors.New("invariant violation")
)
