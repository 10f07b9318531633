package nls

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"golang.org/x/text/language"

	"nlspipe/pkg/contract"
)

// Options: 预留占位，聚合无需配置。
type Options struct{}

// Aggregator 将逐模块、逐语言的本地化片段（<module>.nls[.<lang>].json）
// 聚合为每语言一个捆绑文件：缺省语言为 nls.bundle.json，其余为
// nls.bundle.<lang>.json。
// 约束：
// - 流结束屏障：语言全集只有在见到全部输入后才确定，产出仅在 Flush；
// - 同语言聚合与输入顺序无关（同一模块键后写覆盖）；
// - 模块值原样保留片段内容（缺省语言为消息数组，解析产物为键值映射）。
type Aggregator struct {
	// lang → module → 片段原文
	bundles map[string]map[string]json.RawMessage
}

// New 创建语言捆绑聚合阶段（当前忽略选项）。
func New(opts *Options) *Aggregator {
	_ = opts
	return &Aggregator{bundles: make(map[string]map[string]json.RawMessage)}
}

var _ contract.Stage = (*Aggregator)(nil)

// Consume 吸收一个片段；模块键为剥除 .nls[.<lang>].json 后缀、
// 正斜杠规范化的路径（跨平台稳定标识）。其余文件原样透传。
func (a *Aggregator) Consume(ctx context.Context, rec contract.Record) (contract.Result, error) {
	select {
	case <-ctx.Done():
		return contract.Result{}, ctx.Err()
	default:
	}

	module, lang, ok := contract.MatchNLSFragment(rec.FileID)
	if !ok {
		return contract.Result{Artifacts: []contract.Artifact{{ID: rec.FileID, Data: rec.Data}}}, nil
	}
	if lang != contract.DefaultLanguage {
		// 语言标记须为合法 BCP 47 标签；否则按无法识别透传
		if _, err := language.Parse(lang); err != nil {
			return contract.Result{Artifacts: []contract.Artifact{{ID: rec.FileID, Data: rec.Data}}}, nil
		}
	}
	if !json.Valid(rec.Data) {
		return contract.Result{}, fmt.Errorf("%w: %s is not valid JSON", contract.ErrFormatInvalid, rec.FileID)
	}
	m := a.bundles[lang]
	if m == nil {
		m = make(map[string]json.RawMessage)
		a.bundles[lang] = m
	}
	m[module] = json.RawMessage(rec.Data)
	return contract.Result{}, nil
}

// Flush 产出每语言一个捆绑文件（语言按字典序，保证产物顺序确定）。
func (a *Aggregator) Flush(ctx context.Context) (contract.Result, error) {
	select {
	case <-ctx.Done():
		return contract.Result{}, ctx.Err()
	default:
	}

	langs := make([]string, 0, len(a.bundles))
	for l := range a.bundles {
		langs = append(langs, l)
	}
	sort.Strings(langs)

	var res contract.Result
	for _, l := range langs {
		data, err := marshalBundle(a.bundles[l])
		if err != nil {
			return contract.Result{}, err
		}
		name := "nls.bundle.json"
		if l != contract.DefaultLanguage {
			name = "nls.bundle." + l + ".json"
		}
		res.Artifacts = append(res.Artifacts, contract.Artifact{ID: contract.ArtifactID(name), Data: data})
	}
	return res, nil
}

// marshalBundle 手工装配捆绑 JSON：模块键按字典序，片段字节原样嵌入。
// encoding/json 的缩进序列化会重排嵌套 RawMessage 的空白，破坏“原样保留”约束。
func marshalBundle(m map[string]json.RawMessage) ([]byte, error) {
	modules := make([]string, 0, len(m))
	for k := range m {
		modules = append(modules, k)
	}
	sort.Strings(modules)

	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range modules {
		if i > 0 {
			buf.WriteByte(',')
		}
		buf.WriteString("\n\t")
		kb, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		buf.Write(kb)
		buf.WriteString(": ")
		buf.Write(bytes.TrimSpace(m[k]))
	}
	if len(modules) > 0 {
		buf.WriteByte('\n')
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
