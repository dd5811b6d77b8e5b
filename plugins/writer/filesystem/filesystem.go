package filesystem

import (
	"bufio"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/hashicorp/go-multierror"

	"lenbucket/pkg/contract"
)

// Options: 最小必要选项。
type Options struct {
	// OutputDir: 输出目录；为空时使用当前工作目录。目录须已存在。
	OutputDir string `koanf:"output_dir"`
	// PermFile: 新建文件权限；为 0 表示 0644。
	PermFile os.FileMode `koanf:"perm_file"`
	// BufSize: 每个输出的写缓冲区大小；<=0 使用实现默认。
	BufSize int `koanf:"buf_size"`
}

// FS 以追加模式打开输出目录下的分桶文件。
type FS struct {
	root    string
	permF   os.FileMode
	bufSize int
}

// New 创建文件系统 Sink。
func New(opts *Options) *FS {
	w := &FS{root: ".", permF: 0o644, bufSize: 64 * 1024}
	if opts == nil {
		return w
	}
	if d := strings.TrimSpace(opts.OutputDir); d != "" {
		w.root = d
	}
	if opts.PermFile != 0 {
		w.permF = opts.PermFile
	}
	if opts.BufSize > 0 {
		w.bufSize = opts.BufSize
	}
	return w
}

var _ contract.Sink = (*FS)(nil)

// Open 以 O_CREATE|O_APPEND 打开 name；从不截断已有内容。
func (w *FS) Open(name string) (io.WriteCloser, error) {
	if !contract.ValidName(name) {
		return nil, errors.Wrapf(contract.ErrPathInvalid, "output name %q", name)
	}
	f, err := os.OpenFile(filepath.Join(w.root, name), os.O_CREATE|os.O_APPEND|os.O_WRONLY, w.permF)
	if err != nil {
		return nil, err
	}
	return &bufferedFile{Writer: bufio.NewWriterSize(f, w.bufSize), f: f}, nil
}

// Root 返回输出目录。
func (w *FS) Root() string { return w.root }

// bufferedFile: Close 时先 Flush 再关闭底层文件。
type bufferedFile struct {
	*bufio.Writer
	f *os.File
}

func (b *bufferedFile) Close() error {
	var merr *multierror.Error
	if err := b.Flush(); err != nil {
		merr = multierror.Append(merr, errors.Wrapf(err, "flush %s", b.f.Name()))
	}
	if err := b.f.Close(); err != nil {
		merr = multierror.Append(merr, err)
	}
	return merr.ErrorOrNil()
}
