// Package bucket 按行长度把输入行分组写入各自的输出。
//
// 每个不同的长度对应一个输出，首次出现时才通过 Sink 打开（追加语义），
// 运行期间一直持有，Close 时统一释放。
package bucket

import (
	"io"
	"sort"

	"github.com/cockroachdb/errors"
	"github.com/hashicorp/go-multierror"

	"lenbucket/pkg/contract"
)

// Result 为一次运行的汇总。
type Result struct {
	// Lines: 写出的总行数。
	Lines int64
	// Buckets: 长度 → 行数。
	Buckets map[int]int64
	// Files: 打开过的输出名，按首次出现顺序。
	Files []string
}

// Bucketer 持有长度 → 输出句柄的映射。非并发安全；一次运行一个实例。
type Bucketer struct {
	sink    contract.Sink
	fileID  contract.FileID
	handles map[int]io.WriteCloser
	counts  map[int]int64
	files   []string
	lines   int64
	closed  bool
}

// New 创建 Bucketer；输出名由 fileID 的基名派生。
func New(sink contract.Sink, fileID contract.FileID) *Bucketer {
	return &Bucketer{
		sink:    sink,
		fileID:  fileID,
		handles: make(map[int]io.WriteCloser),
		counts:  make(map[int]int64),
	}
}

// Add 将 line 原样（含终止符）写入其长度对应的输出；必要时先打开该输出。
func (b *Bucketer) Add(line contract.Line) error {
	if b.closed {
		return errors.Wrap(contract.ErrInvariantViolation, "bucketer closed")
	}
	if line.Length < 0 {
		return errors.Wrapf(contract.ErrInvariantViolation, "line %d: negative length %d", line.Index+1, line.Length)
	}
	w, ok := b.handles[line.Length]
	if !ok {
		name := contract.BucketName(line.Length, b.fileID)
		var err error
		w, err = b.sink.Open(name)
		if err != nil {
			return errors.Wrapf(err, "open bucket %s", name)
		}
		b.handles[line.Length] = w
		b.files = append(b.files, name)
	}
	if _, err := io.WriteString(w, line.Text); err != nil {
		return errors.Wrapf(err, "write line %d to bucket %d", line.Index+1, line.Length)
	}
	b.counts[line.Length]++
	b.lines++
	return nil
}

// Close 释放全部已打开的输出（按长度升序），聚合所有关闭错误。可重复调用。
func (b *Bucketer) Close() error {
	if b.closed {
		return nil
	}
	b.closed = true
	var merr *multierror.Error
	for _, l := range sortedKeys(b.handles) {
		if err := b.handles[l].Close(); err != nil {
			merr = multierror.Append(merr, errors.Wrapf(err, "close bucket %d", l))
		}
	}
	b.handles = nil
	return merr.ErrorOrNil()
}

// Result 返回当前汇总的副本。
func (b *Bucketer) Result() Result {
	res := Result{Lines: b.lines, Buckets: make(map[int]int64, len(b.counts))}
	for k, v := range b.counts {
		res.Buckets[k] = v
	}
	res.Files = append([]string(nil), b.files...)
	return res
}

func sortedKeys(m map[int]io.WriteCloser) []int {
	keys := make([]int, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	return keys
}
