package discard

import (
	"io"

	"github.com/cockroachdb/errors"

	"lenbucket/pkg/contract"
)

// Discard 是 dry-run 用的 Sink：校验输出名后丢弃全部写入，不触碰文件系统。
type Discard struct{}

func New() *Discard { return &Discard{} }

var _ contract.Sink = (*Discard)(nil)

func (d *Discard) Open(name string) (io.WriteCloser, error) {
	if !contract.ValidName(name) {
		return nil, errors.Wrapf(contract.ErrPathInvalid, "output name %q", name)
	}
	return &output{name: name}, nil
}

type output struct {
	name   string
	closed bool
}

func (o *output) Write(p []byte) (int, error) {
	if o.closed {
		return 0, errors.Newf("write to closed output %q", o.name)
	}
	return len(p), nil
}

func (o *output) Close() error {
	o.closed = true
	return nil
}
