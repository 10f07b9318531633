package metadata

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"testing"

	"github.com/google/go-cmp/cmp"

	"nlspipe/pkg/contract"
)

func newBundler(t *testing.T) *Bundler {
	t.Helper()
	b, err := New(&Options{ID: "publisher.ext", OutDir: "out"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return b
}

func TestNewRequired(t *testing.T) {
	if _, err := New(nil); !errors.Is(err, os.ErrInvalid) {
		t.Fatalf("nil 选项应失败: %v", err)
	}
	if _, err := New(&Options{OutDir: "out"}); !errors.Is(err, os.ErrInvalid) {
		t.Fatalf("缺 id 应失败: %v", err)
	}
	if _, err := New(&Options{ID: "x"}); !errors.Is(err, os.ErrInvalid) {
		t.Fatalf("缺 out_dir 应失败: %v", err)
	}
}

func TestConsumePassThrough(t *testing.T) {
	b := newBundler(t)
	res, err := b.Consume(context.Background(), contract.Record{FileID: "README.md", Data: []byte("x")})
	if err != nil {
		t.Fatalf("Consume: %v", err)
	}
	if len(res.Artifacts) != 1 || res.Artifacts[0].ID != "README.md" {
		t.Fatalf("未识别文件应透传: %+v", res)
	}
}

// 吸收元数据并冲刷为聚合 + 头
func TestConsumeAndFlush(t *testing.T) {
	b := newBundler(t)
	ctx := context.Background()
	recs := map[string]string{
		"src/main.nls.metadata.json": `{"keys":["greeting"],"messages":["Hello"],"filePath":"src/main.ts"}`,
		"src/util.nls.metadata.json": `{"keys":[{"key":"bye","comment":"on exit"}],"messages":["Bye"],"filePath":"src\\util.ts"}`,
	}
	for id, data := range recs {
		res, err := b.Consume(ctx, contract.Record{FileID: contract.FileID(id), Data: []byte(data)})
		if err != nil {
			t.Fatalf("Consume %s: %v", id, err)
		}
		if len(res.Artifacts) != 0 {
			t.Fatalf("识别文件应被吸收: %+v", res)
		}
	}
	res, err := b.Flush(ctx)
	if err != nil {
		t.Fatalf("Flush: %v", err)
	}
	if len(res.Artifacts) != 2 {
		t.Fatalf("期望聚合 + 头两个产物: %+v", res)
	}
	byID := map[contract.ArtifactID][]byte{}
	for _, a := range res.Artifacts {
		byID[a.ID] = a.Data
	}
	var content contract.BundleContent
	if err := json.Unmarshal(byID[contract.MetaDataAggregate], &content); err != nil {
		t.Fatalf("聚合内容解析: %v", err)
	}
	// 键为去扩展名的规范化 filePath（含反斜杠归一）
	want := contract.BundleContent{
		"src/main": {Keys: []contract.KeyInfo{{Key: "greeting"}}, Messages: []string{"Hello"}},
		"src/util": {Keys: []contract.KeyInfo{{Key: "bye", Comment: "on exit"}}, Messages: []string{"Bye"}},
	}
	if diff := cmp.Diff(want, content); diff != "" {
		t.Fatalf("聚合内容 (-want +got):\n%s", diff)
	}
	var header contract.BundleHeader
	if err := json.Unmarshal(byID[contract.MetaDataHeader], &header); err != nil {
		t.Fatalf("头解析: %v", err)
	}
	if header.ID != "publisher.ext" || header.OutDir != "out" {
		t.Fatalf("头内容错误: %+v", header)
	}
}

func TestConsumeInvalid(t *testing.T) {
	b := newBundler(t)
	ctx := context.Background()
	_, err := b.Consume(ctx, contract.Record{FileID: "a.nls.metadata.json", Data: []byte(`{broken`)})
	if !errors.Is(err, contract.ErrFormatInvalid) {
		t.Fatalf("损坏 JSON 应为 format: %v", err)
	}
	_, err = b.Consume(ctx, contract.Record{FileID: "a.nls.metadata.json", Data: []byte(`{"keys":["a"],"messages":[],"filePath":"a.ts"}`)})
	if !errors.Is(err, contract.ErrInvariantViolation) {
		t.Fatalf("键/文本不匹配应为 invariant: %v", err)
	}
}

// 零条目：空内容映射与固定头
func TestFlushEmpty(t *testing.T) {
	b := newBundler(t)
	res, err := b.Flush(context.Background())
	if err != nil {
		t.Fatalf("Flush: %v", err)
	}
	if len(res.Artifacts) != 2 || string(res.Artifacts[0].Data) != "{}" {
		t.Fatalf("空聚合应为 {}: %+v", res)
	}
}

func TestCtxCancel(t *testing.T) {
	b := newBundler(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := b.Consume(ctx, contract.Record{FileID: "x"}); !errors.Is(err, context.Canceled) {
		t.Fatalf("Consume 应响应取消: %v", err)
	}
	if _, err := b.Flush(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("Flush 应响应取消: %v", err)
	}
}
