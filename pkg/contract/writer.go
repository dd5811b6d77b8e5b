package contract

import "io"

// Sink: 分桶输出的打开者。
// 约束：
//  1. 同一 name 只由一个调用方持有（单写者）；
//  2. 追加语义：不截断已有内容，多次运行累积；
//  3. 返回的 WriteCloser 由调用方负责 Close；
//  4. 错误直接上抛（不做重试/回退）。
type Sink interface {
	Open(name string) (io.WriteCloser, error)
}
