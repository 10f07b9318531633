package contract

// TranslationSource: “按键查文本”的最小能力接口。
// 解析器对数组索引束与键索引包表一视同仁，不在运行期分辨形态。
type TranslationSource interface {
	Lookup(key string) (string, bool)
}

// BundleSource 将数组索引的 MessageBundle 适配为 TranslationSource。
// 构造时建立键→索引映射；重复键保留首个出现。
type BundleSource struct {
	bundle MessageBundle
	index  map[string]int
}

// NewBundleSource 构造数组索引翻译源。
func NewBundleSource(b MessageBundle) *BundleSource {
	idx := make(map[string]int, len(b.Keys))
	for i, k := range b.Keys {
		if _, dup := idx[k.Key]; dup {
			continue
		}
		idx[k.Key] = i
	}
	return &BundleSource{bundle: b, index: idx}
}

// Lookup 返回键对应的消息文本。
func (s *BundleSource) Lookup(key string) (string, bool) {
	i, ok := s.index[key]
	if !ok || i >= len(s.bundle.Messages) {
		return "", false
	}
	return s.bundle.Messages[i], true
}

// PackageSource 将键索引的 PackageBundle 适配为 TranslationSource。
type PackageSource struct {
	pkg PackageBundle
}

// NewPackageSource 构造键索引翻译源。
func NewPackageSource(p PackageBundle) *PackageSource {
	return &PackageSource{pkg: p}
}

// Lookup 返回键对应的消息文本。
func (s *PackageSource) Lookup(key string) (string, bool) {
	m, ok := s.pkg[key]
	if !ok {
		return "", false
	}
	return m.Message, true
}

var (
	_ TranslationSource = (*BundleSource)(nil)
	_ TranslationSource = (*PackageSource)(nil)
)
