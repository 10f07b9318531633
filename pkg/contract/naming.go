package contract

import "strings"

// 文件命名约定是管线契约的一部分（路由依赖后缀匹配），
// 多段后缀的匹配顺序固定：先排除更长的 .nls.metadata.json，再匹配 .nls[.<lang>].json。
const (
	SuffixNLS         = ".nls.json"
	SuffixNLSMetaData = ".nls.metadata.json"
	SuffixI18N        = ".i18n.json"
	SuffixXLF         = ".xlf"

	// PackageNLS: 包级字符串表的固定基名。
	PackageNLS = "package.nls.json"
	// MetaDataAggregate / MetaDataHeader: 聚合产物的固定名。
	MetaDataAggregate = "nls.metadata.json"
	MetaDataHeader    = "nls.metadata.header.json"

	// DefaultLanguage: 片段名缺省语言标记。
	DefaultLanguage = "en"
)

// IsMetaDataFile 判断是否为单文件元数据（*.nls.metadata.json）。
// 聚合产物 nls.metadata.json 不属于此类。
func IsMetaDataFile(id FileID) bool {
	s := string(id)
	return strings.HasSuffix(s, SuffixNLSMetaData) && !strings.HasSuffix(s, "/"+MetaDataAggregate) && s != MetaDataAggregate
}

// IsPackageNLS 判断是否为包级字符串表（package.nls.json，任意目录下）。
func IsPackageNLS(id FileID) bool {
	s := string(id)
	return s == PackageNLS || strings.HasSuffix(s, "/"+PackageNLS)
}

// MatchNLSFragment 解析本地化片段名 <module>.nls[.<lang>].json。
// 返回模块键（正斜杠、无后缀）与语言标记（缺省为 DefaultLanguage）。
// *.nls.metadata.json 不是片段，返回 ok=false。
func MatchNLSFragment(id FileID) (module, lang string, ok bool) {
	s := NormalizePath(string(id))
	if strings.HasSuffix(s, SuffixNLSMetaData) {
		return "", "", false
	}
	if strings.HasSuffix(s, SuffixNLS) {
		return s[:len(s)-len(SuffixNLS)], DefaultLanguage, true
	}
	// <module>.nls.<lang>.json
	if !strings.HasSuffix(s, ".json") {
		return "", "", false
	}
	rest := s[:len(s)-len(".json")]
	dot := strings.LastIndexByte(rest, '.')
	if dot < 0 {
		return "", "", false
	}
	lang = rest[dot+1:]
	rest = rest[:dot]
	if lang == "" || !strings.HasSuffix(rest, ".nls") {
		return "", "", false
	}
	return rest[:len(rest)-len(".nls")], lang, true
}
