package pipeline

import (
	"context"
	"strconv"

	"github.com/cockroachdb/errors"
	"github.com/hashicorp/go-multierror"

	"lenbucket/internal/bucket"
	"lenbucket/internal/diag"
	"lenbucket/pkg/contract"
)

// - 单线程顺序执行：读一行、写一行，无并发。
// - 首错即停：任何读/开/写错误立即返回，不重试、不清理已写出的内容。
// - 作用域释放：无论成功或失败，所有已打开的分桶输出都会在返回前关闭。

// Components 聚合运行所需的组件。
type Components struct {
	Reader contract.LineReader
	Sink   contract.Sink
}

// Settings 运行期配置（最小必要）。
type Settings struct {
	// Input: 输入文件路径（输出名取其基名）。
	Input string
	// Progress: 可选进度回调，每写出一行调用一次（参数为累计行数）。
	Progress func(lines int64)
}

// Run 执行 Reader → Bucketer → Sink。
// 返回值中的 Result 在出错时反映已写出的部分。
func Run(ctx context.Context, comp Components, set Settings, logger *diag.Logger) (res bucket.Result, err error) {
	if err := sanity(comp, set); err != nil {
		return res, errors.Wrap(err, "sanity")
	}
	fileID := contract.NormalizeFileID(set.Input)
	b := bucket.New(comp.Sink, fileID)
	t := logger.StartWith("bucket", "stream", string(fileID), nil)
	defer func() {
		if cerr := b.Close(); cerr != nil {
			err = multierror.Append(err, cerr).ErrorOrNil()
		}
		res = b.Result()
		if err != nil {
			logger.ErrorWith("bucket", string(diag.Classify(err)), err.Error(), t.Since(), string(fileID), nil)
			return
		}
		t.FinishWith("stream", res.Lines, map[string]string{
			"buckets": strconv.Itoa(len(res.Buckets)),
			"files":   strconv.Itoa(len(res.Files)),
		})
	}()

	var n int64
	err = comp.Reader.Lines(ctx, set.Input, func(line contract.Line) error {
		if err := b.Add(line); err != nil {
			return err
		}
		n++
		if set.Progress != nil {
			set.Progress(n)
		}
		return nil
	})
	return res, err
}

func sanity(c Components, s Settings) error {
	if c.Reader == nil || c.Sink == nil {
		return errors.Wrap(contract.ErrInvariantViolation, "nil component")
	}
	if s.Input == "" {
		return errors.Wrap(contract.ErrInvariantViolation, "empty input path")
	}
	return nil
}
