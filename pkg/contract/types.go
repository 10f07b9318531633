package contract

import (
	"bytes"
	"encoding/json"
)

// FileID: 逻辑文档ID（通常为路径，需规范化，跨平台一致）。
type FileID string

// ArtifactID: 与 FileID 等价的持久化工件标识（语义别名）。
type ArtifactID = FileID

// Record: 流水线中的原子输入单元（一个完整文件）。
// 约束：
// - FileID 已规范化（正斜杠、Clean）；
// - Data 为完整字节内容，阶段不得修改底层数组。
type Record struct {
	FileID FileID
	Data   []byte
}

// Artifact: 阶段产出的输出工件（一个待落盘文件）。
type Artifact struct {
	ID   ArtifactID
	Data []byte
}

// Result: 阶段单次调用的产出。
// Problems 为非致命的数据质量问题（如缺失翻译），由编排层以 warn 级别上报；
// 不中断处理。
type Result struct {
	Artifacts []Artifact
	Problems  []string
}

// KeyInfo: 消息键。JSON 形态为裸字符串或 {key, comment}；
// Comment 为面向翻译者的说明，可为空。
type KeyInfo struct {
	Key     string
	Comment string
}

// UnmarshalJSON 接受裸字符串或 {key, comment} 对象两种形态。
func (k *KeyInfo) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		k.Key = s
		k.Comment = ""
		return nil
	}
	var obj struct {
		Key     string `json:"key"`
		Comment string `json:"comment"`
	}
	if err := json.Unmarshal(b, &obj); err != nil {
		return err
	}
	k.Key = obj.Key
	k.Comment = obj.Comment
	return nil
}

// MarshalJSON 在无注释时输出裸字符串，保持与输入等价的最简形态。
func (k KeyInfo) MarshalJSON() ([]byte, error) {
	if k.Comment == "" {
		return json.Marshal(k.Key)
	}
	return json.Marshal(struct {
		Key     string `json:"key"`
		Comment string `json:"comment"`
	}{k.Key, k.Comment})
}

// MessageBundle: 单文件消息束。
// 不变量：len(Keys) == len(Messages)；索引 i 的键与文本配对；
// 顺序贯穿始终（数组扁平化后顺序是键与文本唯一的关联）。
type MessageBundle struct {
	Keys     []KeyInfo `json:"keys"`
	Messages []string  `json:"messages"`
}

// MetaDataFile: 源分析器对单个源文件的输出（*.nls.metadata.json）。
// 创建后不可变。
type MetaDataFile struct {
	MessageBundle
	// FilePath: 相对项目根的源文件路径（正斜杠）。
	FilePath string `json:"filePath"`
}

// BundleHeader: 聚合头（nls.metadata.header.json）。
// 每次聚合运行恰有一个实例，构造时固定。
type BundleHeader struct {
	ID     string `json:"id"`
	OutDir string `json:"outDir"`
}

// BundleContent: 聚合内容（nls.metadata.json）。
// 键为去扩展名的规范化相对路径；终态只读，是 XLIFF 导出的权威来源。
type BundleContent map[string]MessageBundle

// PackageMessage: 包级字符串表的值。JSON 形态为裸字符串或 {message, comment}。
type PackageMessage struct {
	Message string
	Comment string
}

// UnmarshalJSON 接受裸字符串或 {message, comment} 对象两种形态。
func (m *PackageMessage) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		m.Message = s
		m.Comment = ""
		return nil
	}
	var obj struct {
		Message string `json:"message"`
		Comment string `json:"comment"`
	}
	if err := json.Unmarshal(b, &obj); err != nil {
		return err
	}
	m.Message = obj.Message
	m.Comment = obj.Comment
	return nil
}

// MarshalJSON 在无注释时输出裸字符串。
func (m PackageMessage) MarshalJSON() ([]byte, error) {
	if m.Comment == "" {
		return json.Marshal(m.Message)
	}
	return json.Marshal(struct {
		Message string `json:"message"`
		Comment string `json:"comment"`
	}{m.Message, m.Comment})
}

// PackageBundle: 包级字符串表（package.nls.json 形态）。
// 与单文件束不同：无数组顺序，键即映射键。
type PackageBundle map[string]PackageMessage

// Language: 目标语言与其输出目录名。
// FolderName 为空表示不加子目录。
type Language struct {
	ID         string `json:"id"`
	FolderName string `json:"folder_name"`
}

// ParsedXLF: 解析一个 XLIFF file 组的结果。
// Messages 可为空（组内无可用单元是合法情形）。
type ParsedXLF struct {
	Messages         map[string]string
	OriginalFilePath string
	Language         string
}
