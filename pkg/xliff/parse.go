package xliff

import (
	"encoding/xml"
	"fmt"

	"nlspipe/pkg/contract"
)

// XML 解码结构。叶子文本统一经 xlfText 收口：
// 解析器对叶子节点的不同表示（属性有无、空元素）在此处归一为“文本或缺失”，
// 三态歧义不向解析器之外传播。
type xlfRoot struct {
	XMLName xml.Name  `xml:"xliff"`
	Files   []xlfFile `xml:"file"`
}

type xlfFile struct {
	Original       string    `xml:"original,attr"`
	TargetLanguage string    `xml:"target-language,attr"`
	Units          []xlfUnit `xml:"body>trans-unit"`
}

type xlfUnit struct {
	ID     string   `xml:"id,attr"`
	Source *xlfText `xml:"source"`
	Target *xlfText `xml:"target"`
}

type xlfText struct {
	Text string `xml:",chardata"`
}

// text: 叶子文本提取；nil 元素视为缺失。
func (t *xlfText) text() (string, bool) {
	if t == nil {
		return "", false
	}
	return t.Text, true
}

// Parse 解析翻译完成的 XLIFF 文档。
// forceLanguage 语义：
// - true（语言包生成）：要求 target-language 属性；无 <target> 的单元跳过（只收确认翻译）；
// - false（导出自检回环）：缺失 <target> 回退 <source>。
// 结构性缺失（无 xliff/file 节点、缺 original 属性）为致命解析错误，
// 携带定位上下文整体失败，不返回部分数据。
func Parse(data []byte, forceLanguage bool) ([]contract.ParsedXLF, error) {
	var root xlfRoot
	if err := xml.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("%w: %v", contract.ErrFormatInvalid, err)
	}
	if len(root.Files) == 0 {
		return nil, fmt.Errorf("%w: XLIFF file does not contain 'xliff' or 'file' node(s) required for parsing", contract.ErrFormatInvalid)
	}

	out := make([]contract.ParsedXLF, 0, len(root.Files))
	for i, f := range root.Files {
		if f.Original == "" {
			return nil, fmt.Errorf("%w: XLIFF file node %d does not contain original attribute to determine the original location of the resource file", contract.ErrFormatInvalid, i)
		}
		lang := f.TargetLanguage
		if lang == "" && forceLanguage {
			return nil, fmt.Errorf("%w: XLIFF file %q node does not contain target-language attribute to determine translated language", contract.ErrFormatInvalid, f.Original)
		}

		messages := make(map[string]string, len(f.Units))
		for _, u := range f.Units {
			val, has := u.Target.text()
			if !has {
				if forceLanguage {
					// 语言包只接收确认过的翻译
					continue
				}
				val, has = u.Source.text()
			}
			if u.ID == "" || !has {
				return nil, fmt.Errorf("%w: XLIFF file %q does not contain full localization data. ID or target translation for one of the trans-unit nodes is not present", contract.ErrFormatInvalid, f.Original)
			}
			// 实体解码（Escape 的逆操作）后入表
			messages[u.ID] = Unescape(val)
		}
		out = append(out, contract.ParsedXLF{
			Messages:         messages,
			OriginalFilePath: f.Original,
			Language:         lang,
		})
	}
	return out, nil
}
