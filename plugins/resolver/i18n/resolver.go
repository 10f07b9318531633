package i18n

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"golang.org/x/text/language"

	"nlspipe/pkg/contract"
)

// Options: 最小必要选项。
type Options struct {
	// Languages: 目标语言集合（必需，至少一项）。ID 须为合法 BCP 47 标签。
	Languages []contract.Language `json:"languages"`
	// BaseI18NDir: 翻译仓库根目录（必需）。
	// 翻译源按 <base_i18n_dir>/<folder>/<module>.i18n.json 查找。
	BaseI18NDir string `json:"base_i18n_dir"`
	// BaseDir: 输入路径的相对化前缀（可选）；命中时从模块键中剥除。
	BaseDir string `json:"base_dir"`
}

// Resolver 为每个流经的消息束生成各目标语言的本地化片段
// （<module>.nls.<lang>.json）。输出路径只由原始（未翻译）工件派生，
// 绝不取自翻译源自身的路径字段。
type Resolver struct {
	langs   []contract.Language
	i18nDir string
	baseDir string
}

// New 创建语言文件解析阶段。语言 ID 在构造期整体校验。
func New(opts *Options) (*Resolver, error) {
	if opts == nil || len(opts.Languages) == 0 || strings.TrimSpace(opts.BaseI18NDir) == "" {
		return nil, os.ErrInvalid
	}
	for _, l := range opts.Languages {
		if _, err := language.Parse(l.ID); err != nil {
			return nil, fmt.Errorf("%w: language %q: %v", contract.ErrInvalidInput, l.ID, err)
		}
	}
	return &Resolver{
		langs:   opts.Languages,
		i18nDir: opts.BaseI18NDir,
		baseDir: contract.NormalizePath(opts.BaseDir),
	}, nil
}

var _ contract.Stage = (*Resolver)(nil)

// Consume 路由 *.nls.metadata.json（数组索引束）与 package.nls.json（键索引表）；
// 其余文件原样透传。缺失的翻译文件或翻译键仅产生 problems，不中断运行。
func (r *Resolver) Consume(ctx context.Context, rec contract.Record) (contract.Result, error) {
	select {
	case <-ctx.Done():
		return contract.Result{}, ctx.Err()
	default:
	}

	switch {
	case contract.IsMetaDataFile(rec.FileID):
		var m contract.MetaDataFile
		if err := json.Unmarshal(rec.Data, &m); err != nil {
			return contract.Result{}, fmt.Errorf("%w: %s: %v", contract.ErrFormatInvalid, rec.FileID, err)
		}
		if err := contract.ValidateMetaDataFile(m); err != nil {
			return contract.Result{}, fmt.Errorf("%s: %w", rec.FileID, err)
		}
		module := r.moduleKey(string(rec.FileID), contract.SuffixNLSMetaData)
		return r.resolveAll(module, m.Keys), nil

	case contract.IsPackageNLS(rec.FileID):
		var pkg contract.PackageBundle
		if err := json.Unmarshal(rec.Data, &pkg); err != nil {
			return contract.Result{}, fmt.Errorf("%w: %s: %v", contract.ErrFormatInvalid, rec.FileID, err)
		}
		// 包级表无数组顺序；键按字典序以保证产物确定性
		keys := make([]contract.KeyInfo, 0, len(pkg))
		for k := range pkg {
			keys = append(keys, contract.KeyInfo{Key: k})
		}
		sort.Slice(keys, func(i, j int) bool { return keys[i].Key < keys[j].Key })
		module := r.moduleKey(string(rec.FileID), ".nls.json")
		return r.resolveAll(module, keys), nil

	default:
		return contract.Result{Artifacts: []contract.Artifact{{ID: rec.FileID, Data: rec.Data}}}, nil
	}
}

// Flush: 流式阶段，无屏障产物。
func (r *Resolver) Flush(ctx context.Context) (contract.Result, error) {
	return contract.Result{}, nil
}

// moduleKey 从记录路径派生模块键：剥除后缀与可选的 baseDir 前缀。
func (r *Resolver) moduleKey(p, suffix string) string {
	s := contract.NormalizePath(p)
	s = strings.TrimSuffix(s, suffix)
	if r.baseDir != "" && r.baseDir != "." {
		s = strings.TrimPrefix(s, r.baseDir+"/")
	}
	return s
}

// resolveAll 对每个配置语言解析一次并产出片段。
func (r *Resolver) resolveAll(module string, keys []contract.KeyInfo) contract.Result {
	var res contract.Result
	for _, l := range r.langs {
		src, err := r.loadSource(l, module)
		if err != nil {
			res.Problems = append(res.Problems, fmt.Sprintf("no translations found for module %q and language %q: %v", module, l.ID, err))
			continue
		}
		messages, problems := Resolve(module, src, keys)
		res.Problems = append(res.Problems, problems...)
		data, merr := json.MarshalIndent(messages, "", "\t")
		if merr != nil {
			// map[string]string 序列化不应失败；保守上报为 problem
			res.Problems = append(res.Problems, fmt.Sprintf("marshal failed for module %q and language %q: %v", module, l.ID, merr))
			continue
		}
		res.Artifacts = append(res.Artifacts, contract.Artifact{
			ID:   contract.ArtifactID(module + ".nls." + l.ID + ".json"),
			Data: data,
		})
	}
	return res
}

// loadSource 读取 <base_i18n_dir>/<folder>/<module>.i18n.json 为翻译源。
// 目录名优先取配置的 folder_name，缺省用语言 ID。
// 翻译源形态（数组索引束 / 键索引表）在此处一次性适配为 TranslationSource，
// 解析核心不再分辨形态。
func (r *Resolver) loadSource(l contract.Language, module string) (contract.TranslationSource, error) {
	folder := l.FolderName
	if folder == "" {
		folder = l.ID
	}
	p := filepath.Join(r.i18nDir, filepath.FromSlash(folder), filepath.FromSlash(path.Clean(module))+contract.SuffixI18N)
	data, err := os.ReadFile(p)
	if err != nil {
		return nil, err
	}
	// 束形态探测：携带 keys/messages 字段的对象按 MessageBundle 处理
	var probe struct {
		Keys     json.RawMessage `json:"keys"`
		Messages json.RawMessage `json:"messages"`
	}
	if err := json.Unmarshal(data, &probe); err == nil && probe.Keys != nil && probe.Messages != nil {
		var b contract.MessageBundle
		if err := json.Unmarshal(data, &b); err != nil {
			return nil, fmt.Errorf("%w: %v", contract.ErrFormatInvalid, err)
		}
		if err := contract.ValidateBundle(b); err != nil {
			return nil, err
		}
		return contract.NewBundleSource(b), nil
	}
	var pkg contract.PackageBundle
	if err := json.Unmarshal(data, &pkg); err != nil {
		return nil, fmt.Errorf("%w: %v", contract.ErrFormatInvalid, err)
	}
	return contract.NewPackageSource(pkg), nil
}
