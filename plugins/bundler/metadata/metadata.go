package metadata

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"nlspipe/pkg/contract"
)

// Options: 聚合头由构造参数固定（非从输入推导）——
// 所有被累加的条目默认属于同一扩展与同一输出根。
type Options struct {
	// ID: 扩展/包标识（必需）。
	ID string `json:"id"`
	// OutDir: 输出根目录（必需，写入头文件并用于 XLIFF 导出路径拼接）。
	OutDir string `json:"out_dir"`
}

// Bundler 将源分析器产出的单文件元数据累加为项目级 header + content。
// 约束：
// - 流式阶段只写，Flush 后只读；
// - 不重算、不修改键/文本（上游校验器已保证格式）；
// - 每次运行新建实例。
type Bundler struct {
	header  contract.BundleHeader
	content contract.BundleContent
}

// New 创建元数据捆绑阶段。
func New(opts *Options) (*Bundler, error) {
	if opts == nil || strings.TrimSpace(opts.ID) == "" || strings.TrimSpace(opts.OutDir) == "" {
		return nil, os.ErrInvalid
	}
	return &Bundler{
		header:  contract.BundleHeader{ID: opts.ID, OutDir: opts.OutDir},
		content: make(contract.BundleContent),
	}, nil
}

var _ contract.Stage = (*Bundler)(nil)

// Consume 吸收一个 *.nls.metadata.json 记录；其余文件原样透传。
// 条目以去扩展名的规范化 filePath 为键存储。
func (b *Bundler) Consume(ctx context.Context, rec contract.Record) (contract.Result, error) {
	select {
	case <-ctx.Done():
		return contract.Result{}, ctx.Err()
	default:
	}

	if !contract.IsMetaDataFile(rec.FileID) {
		return contract.Result{Artifacts: []contract.Artifact{{ID: rec.FileID, Data: rec.Data}}}, nil
	}

	var m contract.MetaDataFile
	if err := json.Unmarshal(rec.Data, &m); err != nil {
		return contract.Result{}, fmt.Errorf("%w: %s: %v", contract.ErrFormatInvalid, rec.FileID, err)
	}
	if err := contract.ValidateMetaDataFile(m); err != nil {
		return contract.Result{}, fmt.Errorf("%s: %w", rec.FileID, err)
	}
	module := contract.TrimExtension(contract.NormalizePath(m.FilePath))
	b.content[module] = m.MessageBundle
	return contract.Result{}, nil
}

// Flush 产出 nls.metadata.json 与 nls.metadata.header.json。
// 纯读累加状态；零条目时产出空内容映射与固定头。
// JSON 映射键经排序序列化，聚合与输入顺序无关。
func (b *Bundler) Flush(ctx context.Context) (contract.Result, error) {
	select {
	case <-ctx.Done():
		return contract.Result{}, ctx.Err()
	default:
	}

	content, err := json.MarshalIndent(b.content, "", "\t")
	if err != nil {
		return contract.Result{}, err
	}
	header, err := json.MarshalIndent(b.header, "", "\t")
	if err != nil {
		return contract.Result{}, err
	}
	return contract.Result{Artifacts: []contract.Artifact{
		{ID: contract.MetaDataAggregate, Data: content},
		{ID: contract.MetaDataHeader, Data: header},
	}}, nil
}
