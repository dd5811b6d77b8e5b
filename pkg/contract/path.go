package contract

import (
	"path"
	"path/filepath"
	"strconv"
	"strings"
)

// NormalizeFileID 规范化路径，统一为跨平台稳定的 FileID。
// 规则：
// - 使用正斜杠分隔符
// - 清理多余分隔符与路径片段（.、..）
// - 保留相对/绝对语义，不做隐式绝对化
func NormalizeFileID(p string) FileID {
	s := strings.ReplaceAll(p, "\\", "/")
	return FileID(path.Clean(s))
}

// Base 返回 FileID 的基名。
func (id FileID) Base() string { return path.Base(string(id)) }

// BucketName 返回长度桶的输出文件名："{length}-{base}"。
func BucketName(length int, id FileID) string {
	return strconv.Itoa(length) + "-" + id.Base()
}

// ValidName 判断 name 能否作为输出目录下的平铺文件名。
func ValidName(name string) bool {
	if name == "" || name == "." || name == ".." {
		return false
	}
	if strings.ContainsAny(name, `/\`) {
		return false
	}
	return filepath.VolumeName(name) == ""
}
