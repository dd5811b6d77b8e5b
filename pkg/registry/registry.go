package registry

import (
	"github.com/go-viper/mapstructure/v2"

	"lenbucket/pkg/contract"
	rfs "lenbucket/plugins/reader/filesystem"
	"lenbucket/plugins/writer/discard"
	wfs "lenbucket/plugins/writer/filesystem"
)

// strictDecode: 按 koanf 标签解码 Options 子树，拒绝未知字段。
func strictDecode(raw map[string]any, v any) error {
	if len(raw) == 0 {
		// 保持零值（默认选项）
		return nil
	}
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "koanf",
		ErrorUnused:      true,
		WeaklyTypedInput: true,
		Result:           v,
	})
	if err != nil {
		return err
	}
	return dec.Decode(raw)
}

// NewReader 工厂签名：接收原样 Options 子树。
type NewReader func(raw map[string]any) (contract.LineReader, error)

// NewSink 工厂签名：接收原样 Options 子树。
type NewSink func(raw map[string]any) (contract.Sink, error)

// Reader 工厂注册表（显式、零反射）。
var Reader = map[string]NewReader{
	// fs: 文件系统逐行 Reader
	"fs": func(raw map[string]any) (contract.LineReader, error) {
		var opts rfs.Options
		if err := strictDecode(raw, &opts); err != nil {
			return nil, err
		}
		return rfs.New(&opts), nil
	},
}

// Sink 工厂注册表。
var Sink = map[string]NewSink{
	// fs: 输出目录下追加写入
	"fs": func(raw map[string]any) (contract.Sink, error) {
		var opts wfs.Options
		if err := strictDecode(raw, &opts); err != nil {
			return nil, err
		}
		return wfs.New(&opts), nil
	},
	// discard: dry-run，不写任何文件；不接受选项
	"discard": func(raw map[string]any) (contract.Sink, error) {
		var opts struct{}
		if err := strictDecode(raw, &opts); err != nil {
			return nil, err
		}
		return discard.New(), nil
	},
}
