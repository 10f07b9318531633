package xlfimport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"path"
	"strings"

	"golang.org/x/text/language"

	"nlspipe/pkg/contract"
	"nlspipe/pkg/xliff"
)

// Prolog: 置于 JSON 结构体之外的字面前言。
// JSON 形态为单个字符串或行列表（换行连接）。
type Prolog struct {
	lines []string
}

// UnmarshalJSON 接受字符串或字符串数组两种形态。
func (p *Prolog) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '[' {
		return json.Unmarshal(b, &p.lines)
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	if s == "" {
		p.lines = nil
		return nil
	}
	p.lines = strings.Split(s, "\n")
	return nil
}

// MarshalJSON 以行列表形态输出。
func (p Prolog) MarshalJSON() ([]byte, error) { return json.Marshal(p.lines) }

// Options: 最小必要选项。
type Options struct {
	// Languages: 语言 ID 到输出目录名的配置；未配置的语言不加子目录。
	Languages []contract.Language `json:"languages"`
	// Prolog: 可选前言，逐字置于每个产出 JSON 之前。
	Prolog Prolog `json:"prolog"`
	// ForceLanguage: 语言包模式（默认 true）。要求 target-language 属性，
	// 只接收带 <target> 的已确认翻译。
	ForceLanguage *bool `json:"force_language"`
}

// Importer 将翻译完成的 XLIFF 文档还原为逐语言的本地化 JSON 工件。
// 输出路径为 [<folder>/]<originalFilePath>.i18n.json。
type Importer struct {
	// canonical(语言 ID) → folder
	folders map[string]string
	prolog  []string
	force   bool
}

// New 创建 XLIFF 导入阶段。
func New(opts *Options) (*Importer, error) {
	force := true
	var langs []contract.Language
	var prolog []string
	if opts != nil {
		if opts.ForceLanguage != nil {
			force = *opts.ForceLanguage
		}
		langs = opts.Languages
		prolog = opts.Prolog.lines
	}
	folders := make(map[string]string, len(langs))
	for _, l := range langs {
		if _, err := language.Parse(l.ID); err != nil {
			return nil, fmt.Errorf("%w: language %q: %v", contract.ErrInvalidInput, l.ID, err)
		}
		folders[canonical(l.ID)] = l.FolderName
	}
	return &Importer{folders: folders, prolog: prolog, force: force}, nil
}

var _ contract.Stage = (*Importer)(nil)

// canonical 将语言 ID 归一为可比较形态（BCP 47 规范化 + 小写）。
func canonical(id string) string {
	if t, err := language.Parse(id); err == nil {
		return strings.ToLower(t.String())
	}
	return strings.ToLower(id)
}

// Consume 路由 *.xlf；其余文件原样透传。
// 解析失败为致命错误（携带文件定位，整体失败，不产出部分数据）。
func (im *Importer) Consume(ctx context.Context, rec contract.Record) (contract.Result, error) {
	select {
	case <-ctx.Done():
		return contract.Result{}, ctx.Err()
	default:
	}

	if !strings.HasSuffix(string(rec.FileID), contract.SuffixXLF) {
		return contract.Result{Artifacts: []contract.Artifact{{ID: rec.FileID, Data: rec.Data}}}, nil
	}

	parsed, err := xliff.Parse(rec.Data, im.force)
	if err != nil {
		return contract.Result{}, fmt.Errorf("%s: %w", rec.FileID, err)
	}
	res := contract.Result{Artifacts: make([]contract.Artifact, 0, len(parsed))}
	for _, p := range parsed {
		res.Artifacts = append(res.Artifacts, contract.Artifact{
			ID:   im.destination(p),
			Data: im.render(p.Messages),
		})
	}
	return res, nil
}

// Flush: 流式阶段，无屏障产物。
func (im *Importer) Flush(ctx context.Context) (contract.Result, error) {
	return contract.Result{}, nil
}

// destination 解析产物路径：语言目录（未配置则无子目录）+ 原始路径 + .i18n.json。
func (im *Importer) destination(p contract.ParsedXLF) contract.ArtifactID {
	folder := ""
	if p.Language != "" {
		folder = im.folders[canonical(p.Language)]
	}
	name := contract.NormalizePath(p.OriginalFilePath) + contract.SuffixI18N
	if folder == "" {
		return contract.ArtifactID(name)
	}
	return contract.ArtifactID(path.Join(folder, name))
}

// render 产出 JSON 文档：可选前言逐字前置，键值映射以制表符缩进
// 美化打印，文本中的 CRLF 归一为 LF。
func (im *Importer) render(messages map[string]string) []byte {
	normalized := make(map[string]string, len(messages))
	for k, v := range messages {
		normalized[k] = strings.ReplaceAll(v, "\r\n", "\n")
	}
	body, _ := json.MarshalIndent(normalized, "", "\t")

	var buf bytes.Buffer
	for _, line := range im.prolog {
		buf.WriteString(line)
		buf.WriteByte('\n')
	}
	buf.Write(body)
	return buf.Bytes()
}
