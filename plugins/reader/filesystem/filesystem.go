package filesystem

import (
	"bufio"
	"context"
	"io"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/cockroachdb/errors"

	"lenbucket/pkg/contract"
)

// Options 为 FileSystem Reader 的可选配置（最小必要）。
type Options struct {
	// BufSize 为读缓冲区大小（字节）。默认 64KiB。
	BufSize int `koanf:"buf_size"`
}

// FileSystem 按行读取单个文本文件。
// 终止符 "\n"、"\r\n" 与单独的 "\r" 均视为行尾，并统一为 "\n"。
type FileSystem struct {
	bufSize int
}

// New 创建 FileSystem Reader。
func New(opts *Options) *FileSystem {
	const defaultBuf = 64 * 1024
	b := defaultBuf
	if opts != nil && opts.BufSize > 0 {
		b = opts.BufSize
	}
	return &FileSystem{bufSize: b}
}

var _ contract.LineReader = (*FileSystem)(nil)

// Lines 打开 path 并按原始顺序对每一行调用 yield。
// 空文件不产生任何回调；含非法 UTF-8 时在首次回调前返回 contract.ErrInvalidInput。
func (r *FileSystem) Lines(ctx context.Context, path string, yield func(contract.Line) error) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	// 先整体校验编码：非法输入在产出第一行之前失败，不留下任何输出
	if err := checkUTF8(bufio.NewReaderSize(f, r.bufSize)); err != nil {
		return errors.Wrap(err, path)
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return err
	}
	return r.scan(ctx, bufio.NewReaderSize(f, r.bufSize), yield)
}

// checkUTF8 流式检查 br 的全部内容是否为合法 UTF-8。
func checkUTF8(br *bufio.Reader) error {
	var off int64
	for {
		c, size, err := br.ReadRune()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		if c == utf8.RuneError && size == 1 {
			return errors.Wrapf(contract.ErrInvalidInput, "byte %d: not valid UTF-8", off)
		}
		off += int64(size)
	}
}

func (r *FileSystem) scan(ctx context.Context, br *bufio.Reader, yield func(contract.Line) error) error {
	var (
		sb  strings.Builder
		idx contract.Index
	)
	emit := func() error {
		text := sb.String()
		sb.Reset()
		if !utf8.ValidString(text) {
			return errors.Wrapf(contract.ErrInvalidInput, "line %d: not valid UTF-8", idx+1)
		}
		line := contract.Line{Index: idx, Text: text, Length: contract.LineLength(text)}
		idx++
		if err := yield(line); err != nil {
			return err
		}
		// 行间检查取消
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		return nil
	}

	for {
		b, err := br.ReadByte()
		if err == io.EOF {
			// 末行可无终止符
			if sb.Len() > 0 {
				return emit()
			}
			return nil
		}
		if err != nil {
			return err
		}
		switch b {
		case '\n':
			sb.WriteByte('\n')
			if err := emit(); err != nil {
				return err
			}
		case '\r':
			sb.WriteByte('\n')
			// "\r\n" 合并为一个终止符
			if next, perr := br.Peek(1); perr == nil && next[0] == '\n' {
				_, _ = br.ReadByte()
			}
			if err := emit(); err != nil {
				return err
			}
		default:
			sb.WriteByte(b)
		}
	}
}
