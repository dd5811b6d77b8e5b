package contract

import "context"

// LineReader: 输入源抽象。
// 约束：
// 1) 流式读取，按原始顺序逐行回调；
// 2) 行终止符统一为 "\n" 并保留在 Text 中；
// 3) yield 返回错误时立即停止并原样返回；
// 4) 不在内部起并发。
type LineReader interface {
	Lines(ctx context.Context, path string, yield func(Line) error) error
}
