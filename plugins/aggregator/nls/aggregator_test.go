package nls

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"nlspipe/pkg/contract"
)

func consume(t *testing.T, a *Aggregator, id, data string) contract.Result {
	t.Helper()
	res, err := a.Consume(context.Background(), contract.Record{FileID: contract.FileID(id), Data: []byte(data)})
	if err != nil {
		t.Fatalf("Consume %s: %v", id, err)
	}
	return res
}

// 片段聚合：缺省语言 + 显式语言，模块值原样保留
func TestAggregate(t *testing.T) {
	a := New(nil)
	ctx := context.Background()

	if res := consume(t, a, "src/a.nls.json", `["Hello","Bye"]`); len(res.Artifacts) != 0 {
		t.Fatalf("片段应被吸收: %+v", res)
	}
	consume(t, a, "src/a.nls.fr.json", `{"greeting":"Bonjour"}`)
	consume(t, a, "src/b.nls.json", `["More"]`)

	res, err := a.Flush(ctx)
	if err != nil {
		t.Fatalf("Flush: %v", err)
	}
	if len(res.Artifacts) != 2 {
		t.Fatalf("期望两个语言捆绑: %+v", res)
	}
	// 语言按字典序：en 捆绑在前
	if res.Artifacts[0].ID != "nls.bundle.json" || res.Artifacts[1].ID != "nls.bundle.fr.json" {
		t.Fatalf("产物命名/顺序错误: %v %v", res.Artifacts[0].ID, res.Artifacts[1].ID)
	}

	var en map[string]json.RawMessage
	if err := json.Unmarshal(res.Artifacts[0].Data, &en); err != nil {
		t.Fatalf("缺省捆绑解析: %v", err)
	}
	want := map[string]json.RawMessage{
		"src/a": json.RawMessage(`["Hello","Bye"]`),
		"src/b": json.RawMessage(`["More"]`),
	}
	if diff := cmp.Diff(want, en); diff != "" {
		t.Fatalf("缺省捆绑 (-want +got):\n%s", diff)
	}

	var fr map[string]json.RawMessage
	_ = json.Unmarshal(res.Artifacts[1].Data, &fr)
	if string(fr["src/a"]) != `{"greeting":"Bonjour"}` {
		t.Fatalf("语言捆绑应保留片段原文: %s", fr["src/a"])
	}
}

// 捆绑序列化不得重排片段内部的空白：产物须包含片段原始字节
func TestFlushPreservesFragmentBytes(t *testing.T) {
	a := New(nil)
	frag := `{"greeting": "Bonjour",  "bye":"Au revoir"}`
	consume(t, a, "src/m.nls.fr.json", frag)
	res, err := a.Flush(context.Background())
	if err != nil {
		t.Fatalf("Flush: %v", err)
	}
	data := res.Artifacts[0].Data
	if !json.Valid(data) {
		t.Fatalf("捆绑不是合法 JSON: %s", data)
	}
	if !bytes.Contains(data, []byte(frag)) {
		t.Fatalf("片段字节被改写: %s", data)
	}
}

// 同一模块/语言后写覆盖
func TestAggregateLastWins(t *testing.T) {
	a := New(&Options{})
	consume(t, a, "m.nls.json", `["first"]`)
	consume(t, a, "m.nls.json", `["second"]`)
	res, _ := a.Flush(context.Background())
	var en map[string]json.RawMessage
	_ = json.Unmarshal(res.Artifacts[0].Data, &en)
	if string(en["m"]) != `["second"]` {
		t.Fatalf("后写应覆盖: %s", en["m"])
	}
}

func TestPassThrough(t *testing.T) {
	a := New(nil)
	// 无关文件
	if res := consume(t, a, "README.md", "x"); len(res.Artifacts) != 1 {
		t.Fatalf("无关文件应透传: %+v", res)
	}
	// 单文件元数据不是片段
	if res := consume(t, a, "m.nls.metadata.json", `{}`); len(res.Artifacts) != 1 {
		t.Fatalf("元数据应透传: %+v", res)
	}
	// 非法语言标记按无法识别透传
	if res := consume(t, a, "m.nls.!!.json", `["x"]`); len(res.Artifacts) != 1 {
		t.Fatalf("非法语言应透传: %+v", res)
	}
	res, _ := a.Flush(context.Background())
	if len(res.Artifacts) != 0 {
		t.Fatalf("无片段时零产出: %+v", res)
	}
}

func TestInvalidJSON(t *testing.T) {
	a := New(nil)
	_, err := a.Consume(context.Background(), contract.Record{FileID: "m.nls.json", Data: []byte(`{broken`)})
	if !errors.Is(err, contract.ErrFormatInvalid) {
		t.Fatalf("损坏片段应为 format: %v", err)
	}
}

func TestCtxCancel(t *testing.T) {
	a := New(nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := a.Consume(ctx, contract.Record{FileID: "m.nls.json"}); !errors.Is(err, context.Canceled) {
		t.Fatalf("Consume 应响应取消: %v", err)
	}
	if _, err := a.Flush(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("Flush 应响应取消: %v", err)
	}
}
