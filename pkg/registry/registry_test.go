package registry

import (
	"encoding/json"
	"fmt"
	"testing"
)

// TestStrictUnmarshal 验证严格解码逻辑。
func TestStrictUnmarshal(t *testing.T) {
	type opt struct {
		A int `json:"a"`
	}
	var o opt
	if err := strictUnmarshal(nil, &o); err != nil || o.A != 0 {
		t.Fatalf("nil 输入失败: %v", err)
	}
	if err := strictUnmarshal(json.RawMessage(`{"a":1}`), &o); err != nil || o.A != 1 {
		t.Fatalf("合法 JSON 解析失败: %v", err)
	}
	if err := strictUnmarshal(json.RawMessage(`{"a":1,"b":2}`), &o); err == nil {
		t.Fatalf("未知字段应报错")
	}
}

// TestFactories 遍历注册表入口。
func TestFactories(t *testing.T) {
	t.Run("reader", func(t *testing.T) {
		if _, err := Reader["fs"](json.RawMessage(`{}`)); err != nil {
			t.Fatalf("reader: %v", err)
		}
		if _, err := Reader["fs"](json.RawMessage(`{"x":1}`)); err == nil {
			t.Fatalf("reader 未对未知字段报错")
		}
	})
	t.Run("metadata-bundle", func(t *testing.T) {
		raw := json.RawMessage(`{"id":"ext","out_dir":"out"}`)
		if _, err := Stage["metadata-bundle"](raw); err != nil {
			t.Fatalf("metadata-bundle: %v", err)
		}
		if _, err := Stage["metadata-bundle"](json.RawMessage(`{}`)); err == nil {
			t.Fatalf("metadata-bundle 未对缺失必选项报错")
		}
		if _, err := Stage["metadata-bundle"](json.RawMessage(`{"id":"ext","out_dir":"out","x":1}`)); err == nil {
			t.Fatalf("metadata-bundle 未对未知字段报错")
		}
	})
	t.Run("i18n-resolve", func(t *testing.T) {
		tmp := t.TempDir()
		raw := json.RawMessage(fmt.Sprintf(`{"languages":[{"id":"fr"}],"base_i18n_dir":%q}`, tmp))
		if _, err := Stage["i18n-resolve"](raw); err != nil {
			t.Fatalf("i18n-resolve: %v", err)
		}
		if _, err := Stage["i18n-resolve"](json.RawMessage(`{}`)); err == nil {
			t.Fatalf("i18n-resolve 未对缺失必选项报错")
		}
	})
	t.Run("nls-aggregate", func(t *testing.T) {
		if _, err := Stage["nls-aggregate"](json.RawMessage(`{}`)); err != nil {
			t.Fatalf("nls-aggregate: %v", err)
		}
		if _, err := Stage["nls-aggregate"](json.RawMessage(`{"x":1}`)); err == nil {
			t.Fatalf("nls-aggregate 未对未知字段报错")
		}
	})
	t.Run("xlf-export", func(t *testing.T) {
		raw := json.RawMessage(`{"project_name":"proj"}`)
		if _, err := Stage["xlf-export"](raw); err != nil {
			t.Fatalf("xlf-export: %v", err)
		}
		if _, err := Stage["xlf-export"](json.RawMessage(`{}`)); err == nil {
			t.Fatalf("xlf-export 未对缺失必选项报错")
		}
	})
	t.Run("xlf-import", func(t *testing.T) {
		raw := json.RawMessage(`{"languages":[{"id":"fr","folder_name":"fra"}],"prolog":"// comment"}`)
		if _, err := Stage["xlf-import"](raw); err != nil {
			t.Fatalf("xlf-import: %v", err)
		}
		if _, err := Stage["xlf-import"](json.RawMessage(`{"languages":[{"id":"!!"}]}`)); err == nil {
			t.Fatalf("xlf-import 未对非法语言报错")
		}
	})
	t.Run("writer", func(t *testing.T) {
		tmp := t.TempDir()
		raw := json.RawMessage(fmt.Sprintf(`{"output_dir":%q}`, tmp))
		if _, err := Writer["fs"](raw); err != nil {
			t.Fatalf("writer: %v", err)
		}
		bad := json.RawMessage(fmt.Sprintf(`{"output_dir":%q,"x":1}`, tmp))
		if _, err := Writer["fs"](bad); err == nil {
			t.Fatalf("writer 未对未知字段报错")
		}
	})
}
