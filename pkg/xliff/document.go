package xliff

import (
	"fmt"
	"sort"
	"strings"

	"nlspipe/pkg/contract"
)

// Namespace: XLIFF 1.2 命名空间（固定）。
const Namespace = "urn:oasis:names:tc:xliff:document:1.2"

// item: 一个 trans-unit。文本字段均以转义后形态存储。
type item struct {
	id      string
	message string
	comment string
	target  string
	hasTgt  bool
}

// Document: 单次运行的 XLIFF 1.2 文档累加器。
// 约束：
// - file 组按插入顺序保留；组内 id 唯一（重复丢弃，首个保留）；
// - 流式阶段只写，Serialize 后只读；
// - 非全局：每次导出新建实例。
type Document struct {
	targetLanguage string
	order          []string
	groups         map[string][]item
}

// New 创建空文档。targetLanguage 为空时序列化不携带 target-language 属性。
func New(targetLanguage string) *Document {
	return &Document{
		targetLanguage: targetLanguage,
		groups:         make(map[string][]item),
	}
}

// AddFile 以键/文本对添加一个 file 组。
// 前置条件：len(keys) == len(messages)；违例为致命错误（管线缺陷，不可恢复）。
// 组内按 id 去重（首个保留）；消息与注释文本在存储前转义。
func (d *Document) AddFile(original string, keys []contract.KeyInfo, messages []string) error {
	if len(keys) != len(messages) {
		return fmt.Errorf("%w: unmatching keys (%d) and messages (%d) in %q", contract.ErrInvariantViolation, len(keys), len(messages), original)
	}
	return d.add(original, keys, messages, nil)
}

// AddPackage 以包级字符串表添加一个 file 组（键按字典序，保证产物确定性）。
// 消息值自带的注释仅在键本身无注释时生效。
func (d *Document) AddPackage(original string, pkg contract.PackageBundle) error {
	keys := make([]contract.KeyInfo, 0, len(pkg))
	for k := range pkg {
		keys = append(keys, contract.KeyInfo{Key: k})
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].Key < keys[j].Key })
	messages := make([]string, len(keys))
	comments := make([]string, len(keys))
	for i, k := range keys {
		m := pkg[k.Key]
		messages[i] = m.Message
		comments[i] = m.Comment
	}
	return d.add(original, keys, messages, comments)
}

// add: 共享插入路径。comments 为消息值携带的注释（可为 nil）；
// 键上的注释优先于消息值携带的注释。
func (d *Document) add(original string, keys []contract.KeyInfo, messages, comments []string) error {
	items, exists := d.groups[original]
	seen := make(map[string]struct{}, len(items)+len(keys))
	for _, it := range items {
		seen[it.id] = struct{}{}
	}
	for i, k := range keys {
		if _, dup := seen[k.Key]; dup {
			continue
		}
		seen[k.Key] = struct{}{}
		comment := k.Comment
		if comment == "" && comments != nil {
			comment = comments[i]
		}
		items = append(items, item{
			id:      k.Key,
			message: Escape(messages[i]),
			comment: Escape(comment),
		})
	}
	if !exists {
		d.order = append(d.order, original)
	}
	d.groups[original] = items
	return nil
}

// SetLanguageBundle 将数组形态的翻译覆盖到已存在的 file 组。
// 组不存在、translations 缺失或数量不匹配均为致命错误；绝不静默截断。
func (d *Document) SetLanguageBundle(original string, translations []string) error {
	items, ok := d.groups[original]
	if !ok {
		return fmt.Errorf("%w: no original file %q to translate", contract.ErrInvariantViolation, original)
	}
	if translations == nil {
		return fmt.Errorf("%w: missing translations for %q", contract.ErrInvariantViolation, original)
	}
	if len(translations) != len(items) {
		return fmt.Errorf("%w: unmatching translations (%d) for %d units in %q", contract.ErrInvariantViolation, len(translations), len(items), original)
	}
	for i := range items {
		items[i].target = Escape(translations[i])
		items[i].hasTgt = true
	}
	return nil
}

// SetLanguagePackage 将键索引形态的翻译覆盖到已存在的 file 组（按 id 匹配）。
// 翻译中出现组内不存在的键，或键集合与组不完全一致，均为致命错误。
func (d *Document) SetLanguagePackage(original string, translations contract.PackageBundle) error {
	items, ok := d.groups[original]
	if !ok {
		return fmt.Errorf("%w: no original file %q to translate", contract.ErrInvariantViolation, original)
	}
	if translations == nil {
		return fmt.Errorf("%w: missing translations for %q", contract.ErrInvariantViolation, original)
	}
	if len(translations) != len(items) {
		return fmt.Errorf("%w: unmatching translations (%d) for %d units in %q", contract.ErrInvariantViolation, len(translations), len(items), original)
	}
	byID := make(map[string]int, len(items))
	for i, it := range items {
		byID[it.id] = i
	}
	for key, m := range translations {
		i, ok := byID[key]
		if !ok {
			return fmt.Errorf("%w: unmatching key %q in original %q", contract.ErrInvariantViolation, key, original)
		}
		items[i].target = Escape(m.Message)
		items[i].hasTgt = true
	}
	return nil
}

// Empty 报告文档是否不含任何 file 组。
func (d *Document) Empty() bool { return len(d.order) == 0 }

// Serialize 输出 XLIFF 1.2 字节内容。
// 行以 CRLF 连接（下游交换工具的既定约定）；file 组按插入顺序。
func (d *Document) Serialize() []byte {
	lines := []string{
		`<?xml version="1.0" encoding="utf-8"?>`,
		`<xliff version="1.2" xmlns="` + Namespace + `">`,
	}
	for _, original := range d.order {
		attrs := `original="` + Escape(original) + `" source-language="en"`
		if d.targetLanguage != "" {
			attrs += ` target-language="` + Escape(d.targetLanguage) + `"`
		}
		attrs += ` datatype="plaintext"`
		lines = append(lines, `  <file `+attrs+`><body>`)
		for _, it := range d.groups[original] {
			lines = append(lines, `    <trans-unit id="`+Escape(it.id)+`">`)
			lines = append(lines, `      <source xml:lang="en">`+it.message+`</source>`)
			if it.comment != "" {
				lines = append(lines, `      <note>`+it.comment+`</note>`)
			}
			if it.hasTgt {
				lines = append(lines, `      <target>`+it.target+`</target>`)
			}
			lines = append(lines, `    </trans-unit>`)
		}
		lines = append(lines, `  </body></file>`)
	}
	lines = append(lines, `</xliff>`)
	return []byte(strings.Join(lines, "\r\n"))
}
