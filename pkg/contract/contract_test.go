package contract

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

// KeyInfo 两种 JSON 形态
func TestKeyInfoJSON(t *testing.T) {
	var k KeyInfo
	if err := json.Unmarshal([]byte(`"greeting"`), &k); err != nil {
		t.Fatalf("裸字符串: %v", err)
	}
	if k.Key != "greeting" || k.Comment != "" {
		t.Fatalf("裸字符串解析错误: %+v", k)
	}
	if err := json.Unmarshal([]byte(`{"key":"farewell","comment":"shown on exit"}`), &k); err != nil {
		t.Fatalf("对象形态: %v", err)
	}
	if k.Key != "farewell" || k.Comment != "shown on exit" {
		t.Fatalf("对象形态解析错误: %+v", k)
	}
	// 无注释时回写裸字符串
	b, err := json.Marshal(KeyInfo{Key: "greeting"})
	if err != nil || string(b) != `"greeting"` {
		t.Fatalf("marshal 裸字符串: %s %v", b, err)
	}
	b, _ = json.Marshal(k)
	if string(b) != `{"key":"farewell","comment":"shown on exit"}` {
		t.Fatalf("marshal 对象: %s", b)
	}
}

// PackageMessage 两种 JSON 形态
func TestPackageMessageJSON(t *testing.T) {
	var p PackageBundle
	raw := []byte(`{"a":"A","b":{"message":"B","comment":"ctx"}}`)
	if err := json.Unmarshal(raw, &p); err != nil {
		t.Fatalf("解析失败: %v", err)
	}
	want := PackageBundle{
		"a": {Message: "A"},
		"b": {Message: "B", Comment: "ctx"},
	}
	if diff := cmp.Diff(want, p); diff != "" {
		t.Fatalf("解析结果 (-want +got):\n%s", diff)
	}
	b, _ := json.Marshal(p["a"])
	if string(b) != `"A"` {
		t.Fatalf("无注释应回写裸字符串: %s", b)
	}
}

func TestNormalizeFileID(t *testing.T) {
	cases := map[string]string{
		`src\out\main.ts`:  "src/out/main.ts",
		"./src//main.ts":   "src/main.ts",
		"a/b/../c/main.ts": "a/c/main.ts",
		"main.ts":          "main.ts",
	}
	for in, want := range cases {
		if got := string(NormalizeFileID(in)); got != want {
			t.Errorf("NormalizeFileID(%q)=%q 期望 %q", in, got, want)
		}
	}
}

func TestTrimExtension(t *testing.T) {
	cases := map[string]string{
		"src/main.ts":  "src/main",
		"src/main":     "src/main",
		".env":         ".env",
		"dir/.hidden":  "dir/.hidden",
		"a.b/file.txt": "a.b/file",
	}
	for in, want := range cases {
		if got := TrimExtension(in); got != want {
			t.Errorf("TrimExtension(%q)=%q 期望 %q", in, got, want)
		}
	}
}

func TestNamingPredicates(t *testing.T) {
	if !IsMetaDataFile("src/main.nls.metadata.json") {
		t.Fatal("单文件元数据应命中")
	}
	if IsMetaDataFile("nls.metadata.json") || IsMetaDataFile("out/nls.metadata.json") {
		t.Fatal("聚合产物不是单文件元数据")
	}
	if !IsPackageNLS("package.nls.json") || !IsPackageNLS("ext/package.nls.json") {
		t.Fatal("包级字符串表应命中")
	}
	if IsPackageNLS("mypackage.nls.json") {
		t.Fatal("前缀相似的片段不应命中")
	}
}

// 片段名解析：<module>.nls[.<lang>].json
func TestMatchNLSFragment(t *testing.T) {
	mod, lang, ok := MatchNLSFragment("src/main.nls.json")
	if !ok || mod != "src/main" || lang != DefaultLanguage {
		t.Fatalf("缺省语言: %q %q %v", mod, lang, ok)
	}
	mod, lang, ok = MatchNLSFragment("src/main.nls.fr.json")
	if !ok || mod != "src/main" || lang != "fr" {
		t.Fatalf("显式语言: %q %q %v", mod, lang, ok)
	}
	mod, lang, ok = MatchNLSFragment("src/main.nls.zh-cn.json")
	if !ok || mod != "src/main" || lang != "zh-cn" {
		t.Fatalf("区域语言: %q %q %v", mod, lang, ok)
	}
	// 多段后缀排除：metadata 不是片段
	if _, _, ok := MatchNLSFragment("src/main.nls.metadata.json"); ok {
		t.Fatal("metadata 不应匹配为片段")
	}
	if _, _, ok := MatchNLSFragment("README.md"); ok {
		t.Fatal("无关文件不应匹配")
	}
	if _, _, ok := MatchNLSFragment("plain.json"); ok {
		t.Fatal("普通 JSON 不应匹配")
	}
}

func TestValidateBundle(t *testing.T) {
	ok := MessageBundle{
		Keys:     []KeyInfo{{Key: "a"}, {Key: "b"}},
		Messages: []string{"A", "B"},
	}
	if err := ValidateBundle(ok); err != nil {
		t.Fatalf("合法束不应报错: %v", err)
	}
	bad := MessageBundle{Keys: []KeyInfo{{Key: "a"}}, Messages: []string{"A", "B"}}
	if err := ValidateBundle(bad); !errors.Is(err, ErrInvariantViolation) {
		t.Fatalf("数量不匹配应为 invariant: %v", err)
	}
	empty := MessageBundle{Keys: []KeyInfo{{Key: ""}}, Messages: []string{"A"}}
	if err := ValidateBundle(empty); !errors.Is(err, ErrFormatInvalid) {
		t.Fatalf("空键应为 format: %v", err)
	}
}

func TestValidateMetaDataFile(t *testing.T) {
	m := MetaDataFile{
		MessageBundle: MessageBundle{Keys: []KeyInfo{{Key: "a"}}, Messages: []string{"A"}},
		FilePath:      "src/main.ts",
	}
	if err := ValidateMetaDataFile(m); err != nil {
		t.Fatalf("合法元数据不应报错: %v", err)
	}
	m.FilePath = ""
	if err := ValidateMetaDataFile(m); !errors.Is(err, ErrFormatInvalid) {
		t.Fatalf("缺失 filePath 应为 format: %v", err)
	}
}

// 数组索引源：重复键保留首个
func TestBundleSource(t *testing.T) {
	src := NewBundleSource(MessageBundle{
		Keys:     []KeyInfo{{Key: "a"}, {Key: "b"}, {Key: "a"}},
		Messages: []string{"first", "B", "second"},
	})
	if v, ok := src.Lookup("a"); !ok || v != "first" {
		t.Fatalf("重复键应保留首个: %q %v", v, ok)
	}
	if v, ok := src.Lookup("b"); !ok || v != "B" {
		t.Fatalf("Lookup b: %q %v", v, ok)
	}
	if _, ok := src.Lookup("missing"); ok {
		t.Fatal("缺失键应返回 false")
	}
}

func TestPackageSource(t *testing.T) {
	src := NewPackageSource(PackageBundle{"a": {Message: "A"}})
	if v, ok := src.Lookup("a"); !ok || v != "A" {
		t.Fatalf("Lookup a: %q %v", v, ok)
	}
	if _, ok := src.Lookup("b"); ok {
		t.Fatal("缺失键应返回 false")
	}
}
