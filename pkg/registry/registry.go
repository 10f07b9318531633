package registry

import (
	"bytes"
	"encoding/json"

	"nlspipe/pkg/contract"
	anls "nlspipe/plugins/aggregator/nls"
	bmeta "nlspipe/plugins/bundler/metadata"
	xexp "nlspipe/plugins/exchange/xlfexport"
	ximp "nlspipe/plugins/exchange/xlfimport"
	rfs "nlspipe/plugins/reader/filesystem"
	ri18n "nlspipe/plugins/resolver/i18n"
	wfs "nlspipe/plugins/writer/filesystem"
)

// strictUnmarshal: 使用 DisallowUnknownFields 严格解码，拒绝未知字段。
func strictUnmarshal(raw json.RawMessage, v any) error {
	if len(raw) == 0 {
		// 保持零值（默认选项）
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

// NewReader 工厂签名：接收原样 JSON Options。
type NewReader func(raw json.RawMessage) (contract.Reader, error)

// NewStage 工厂签名：接收原样 JSON Options。
type NewStage func(raw json.RawMessage) (contract.Stage, error)

// NewWriter 工厂签名：接收原样 JSON Options。
type NewWriter func(raw json.RawMessage) (contract.Writer, error)

// Reader 工厂注册表（显式、零反射）。
var Reader = map[string]NewReader{
	// fs: 文件系统/STDIN Reader
	"fs": func(raw json.RawMessage) (contract.Reader, error) {
		var opts rfs.Options
		if err := strictUnmarshal(raw, &opts); err != nil {
			return nil, err
		}
		return rfs.New(&opts), nil
	},
}

// Stage 工厂注册表。
var Stage = map[string]NewStage{
	// metadata-bundle: 逐文件元数据 → 聚合元数据 + 头文件
	"metadata-bundle": func(raw json.RawMessage) (contract.Stage, error) {
		var opts bmeta.Options
		if err := strictUnmarshal(raw, &opts); err != nil {
			return nil, err
		}
		return bmeta.New(&opts)
	},
	// i18n-resolve: 消息束 × 翻译仓库 → 逐语言本地化片段
	"i18n-resolve": func(raw json.RawMessage) (contract.Stage, error) {
		var opts ri18n.Options
		if err := strictUnmarshal(raw, &opts); err != nil {
			return nil, err
		}
		return ri18n.New(&opts)
	},
	// nls-aggregate: 逐模块片段 → 每语言一个捆绑文件
	"nls-aggregate": func(raw json.RawMessage) (contract.Stage, error) {
		var opts anls.Options
		if err := strictUnmarshal(raw, &opts); err != nil {
			return nil, err
		}
		return anls.New(&opts), nil
	},
	// xlf-export: 字符串表 + 聚合元数据 → XLIFF 1.2 文档
	"xlf-export": func(raw json.RawMessage) (contract.Stage, error) {
		var opts xexp.Options
		if err := strictUnmarshal(raw, &opts); err != nil {
			return nil, err
		}
		return xexp.New(&opts)
	},
	// xlf-import: 翻译完成的 XLIFF → 逐语言 *.i18n.json
	"xlf-import": func(raw json.RawMessage) (contract.Stage, error) {
		var opts ximp.Options
		if err := strictUnmarshal(raw, &opts); err != nil {
			return nil, err
		}
		return ximp.New(&opts)
	},
}

// Writer 工厂注册表。
var Writer = map[string]NewWriter{
	// fs: 文件系统 Writer（覆盖写/原子替换可配置）
	"fs": func(raw json.RawMessage) (contract.Writer, error) {
		var opts wfs.Options
		if err := strictUnmarshal(raw, &opts); err != nil {
			return nil, err
		}
		return wfs.New(&opts)
	},
}
