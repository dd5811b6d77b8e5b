package diag

import (
	"context"
	"io/fs"
	"os"
	"time"

	"github.com/cockroachdb/errors"

	"lenbucket/pkg/contract"
)

// Code 为日志中的错误分类，与退出码无关。
type Code string

const (
	CodeUnknown   Code = "unknown"
	CodeCancel    Code = "cancel"
	CodeEncoding  Code = "encoding"  // 输入不是合法 UTF-8
	CodeName      Code = "name"      // 输出名非平铺文件名
	CodeInvariant Code = "invariant" // 其余内部约束
	CodeMissing   Code = "missing"   // 输入文件或输出目录不存在
	CodePerm      Code = "perm"
	CodeIO        Code = "io"
)

// 按顺序匹配，先中先得。
var classes = []struct {
	target error
	code   Code
}{
	{context.Canceled, CodeCancel},
	{context.DeadlineExceeded, CodeCancel},
	{contract.ErrInvalidInput, CodeEncoding},
	{contract.ErrPathInvalid, CodeName},
	{contract.ErrInvariantViolation, CodeInvariant},
	{fs.ErrNotExist, CodeMissing},
	{fs.ErrPermission, CodePerm},
}

// Classify 依据哨兵错误与 *os.PathError 归类 err；不做字符串匹配。
func Classify(err error) Code {
	if err == nil {
		return CodeUnknown
	}
	for _, c := range classes {
		if errors.Is(err, c.target) {
			return c.code
		}
	}
	var perr *os.PathError
	if errors.As(err, &perr) {
		return CodeIO
	}
	return CodeUnknown
}

// NowUTC 返回日志字段 ts 使用的时间。
func NowUTC() string { return time.Now().UTC().Format(time.RFC3339) }
