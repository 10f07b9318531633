package contract

import (
	"path"
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

// NormalizePath 与 NormalizeFileID 等价，但保持 string 类型（用于元数据内部键）。
func NormalizePath(p string) string {
	return string(NormalizeFileID(p))
}

// TrimExtension 去除最后一个扩展名（"src/main.ts" → "src/main"）。
// 无扩展名时原样返回；隐藏文件（".env"）不视为扩展名。
func TrimExtension(p string) string {
	ext := path.Ext(p)
	if ext == "" || ext == p || strings.HasSuffix(p, "/"+ext) {
		return p
	}
	return p[:len(p)-len(ext)]
}
