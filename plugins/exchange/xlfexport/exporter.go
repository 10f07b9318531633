package xlfexport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path"
	"sort"
	"strings"

	"golang.org/x/text/language"

	"nlspipe/pkg/contract"
	"nlspipe/pkg/xliff"
)

// Options: 最小必要选项。
type Options struct {
	// ProjectName: 产物路径前缀（必需）。
	ProjectName string `json:"project_name"`
	// ExtensionID: 产物基名；缺省取 nls.metadata.header.json 的 id。
	ExtensionID string `json:"extension_id"`
	// Language: 可选目标语言。设置后要求每个 file 组都有对应翻译覆盖；
	// 不完整的翻译是致命错误。
	Language string `json:"language"`
}

// Exporter 将包级字符串表与聚合元数据合成一个 XLIFF 1.2 文档。
// 约束：
// - 流结束屏障：输入可以任意顺序到达，仅在 Flush 合成；
// - 包 file 组最先加入，随后按模块路径字典序加入元数据组；
// - 识别任一输入即产出恰好一个工件，否则零产出。
type Exporter struct {
	project   string
	extension string
	lang      string

	pkg     contract.PackageBundle
	pkgLang contract.PackageBundle
	header  *contract.BundleHeader
	content contract.BundleContent
	// 翻译捆绑的模块值保持原样：数组（消息数组片段）或对象（键值映射片段）
	// 两种形态都合法，覆盖时按形态分派。
	bundleLang map[string]json.RawMessage
}

// New 创建 XLIFF 导出阶段。
func New(opts *Options) (*Exporter, error) {
	if opts == nil || strings.TrimSpace(opts.ProjectName) == "" {
		return nil, os.ErrInvalid
	}
	if opts.Language != "" {
		if _, err := language.Parse(opts.Language); err != nil {
			return nil, fmt.Errorf("%w: language %q: %v", contract.ErrInvalidInput, opts.Language, err)
		}
	}
	return &Exporter{
		project:   opts.ProjectName,
		extension: opts.ExtensionID,
		lang:      opts.Language,
	}, nil
}

var _ contract.Stage = (*Exporter)(nil)

// Consume 按基名/后缀路由导出素材；其余文件原样透传。
func (e *Exporter) Consume(ctx context.Context, rec contract.Record) (contract.Result, error) {
	select {
	case <-ctx.Done():
		return contract.Result{}, ctx.Err()
	default:
	}

	base := path.Base(contract.NormalizePath(string(rec.FileID)))
	switch {
	case base == contract.PackageNLS:
		return contract.Result{}, e.decode(rec, &e.pkg)

	case e.lang != "" && base == "package.nls."+e.lang+".json":
		return contract.Result{}, e.decode(rec, &e.pkgLang)

	case base == contract.MetaDataHeader:
		var h contract.BundleHeader
		if err := e.decode(rec, &h); err != nil {
			return contract.Result{}, err
		}
		e.header = &h
		return contract.Result{}, nil

	case base == contract.MetaDataAggregate:
		return contract.Result{}, e.decode(rec, &e.content)

	case e.lang != "" && base == "nls.bundle."+e.lang+".json":
		return contract.Result{}, e.decode(rec, &e.bundleLang)

	default:
		return contract.Result{Artifacts: []contract.Artifact{{ID: rec.FileID, Data: rec.Data}}}, nil
	}
}

func (e *Exporter) decode(rec contract.Record, v any) error {
	if err := json.Unmarshal(rec.Data, v); err != nil {
		return fmt.Errorf("%w: %s: %v", contract.ErrFormatInvalid, rec.FileID, err)
	}
	return nil
}

// Flush 合成并序列化文档。识别到的输入不完整（有内容无头）或
// 请求了目标语言却缺少对应翻译时为致命错误。
func (e *Exporter) Flush(ctx context.Context) (contract.Result, error) {
	select {
	case <-ctx.Done():
		return contract.Result{}, ctx.Err()
	default:
	}

	if e.pkg == nil && e.content == nil {
		// 无可识别输入：零产出
		return contract.Result{}, nil
	}
	if e.content != nil && e.header == nil {
		return contract.Result{}, fmt.Errorf("%w: metadata content without %s", contract.ErrInvalidInput, contract.MetaDataHeader)
	}

	doc := xliff.New(e.lang)

	// 包组最先；键空间即 package.nls.json 的键
	if e.pkg != nil {
		if err := doc.AddPackage("package", e.pkg); err != nil {
			return contract.Result{}, err
		}
		if e.lang != "" {
			if err := doc.SetLanguagePackage("package", e.pkgLang); err != nil {
				return contract.Result{}, err
			}
		}
	}

	// 元数据组：original = outDir 与模块路径拼接，始终正斜杠
	if e.content != nil {
		modules := make([]string, 0, len(e.content))
		for m := range e.content {
			modules = append(modules, m)
		}
		sort.Strings(modules)
		for _, m := range modules {
			b := e.content[m]
			original := path.Join(contract.NormalizePath(e.header.OutDir), contract.NormalizePath(m))
			if err := doc.AddFile(original, b.Keys, b.Messages); err != nil {
				return contract.Result{}, err
			}
			if e.lang != "" {
				if err := e.overlayModule(doc, original, e.bundleLang[m]); err != nil {
					return contract.Result{}, err
				}
			}
		}
	}

	ext := e.extension
	if ext == "" && e.header != nil {
		ext = e.header.ID
	}
	if ext == "" {
		ext = "package"
	}
	return contract.Result{Artifacts: []contract.Artifact{{
		ID:   contract.ArtifactID(path.Join(e.project, ext+contract.SuffixXLF)),
		Data: doc.Serialize(),
	}}}, nil
}

// overlayModule 将翻译捆绑中一个模块的值覆盖到 file 组。
// 数组 → 按索引覆盖；对象 → 按键覆盖（键集须与组完全一致）。
// 值缺失仍走数组路径，由 Document 报不完整翻译。
func (e *Exporter) overlayModule(doc *xliff.Document, original string, raw json.RawMessage) error {
	raw = bytes.TrimSpace(raw)
	if len(raw) > 0 && raw[0] == '{' {
		var pkg contract.PackageBundle
		if err := json.Unmarshal(raw, &pkg); err != nil {
			return fmt.Errorf("%w: translated bundle for %q: %v", contract.ErrFormatInvalid, original, err)
		}
		return doc.SetLanguagePackage(original, pkg)
	}
	var arr []string
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &arr); err != nil {
			return fmt.Errorf("%w: translated bundle for %q: %v", contract.ErrFormatInvalid, original, err)
		}
	}
	return doc.SetLanguageBundle(original, arr)
}
