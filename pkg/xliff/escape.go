package xliff

import "strings"

// XML 五个敏感字符的实体编码/解码。
// 编码集固定为 &lt; &gt; &amp; &quot; &#39;；解码额外接受 &apos;（等价写法）。
var (
	escaper = strings.NewReplacer(
		"&", "&amp;",
		"<", "&lt;",
		">", "&gt;",
		`"`, "&quot;",
		"'", "&#39;",
	)
	unescaper = strings.NewReplacer(
		"&amp;", "&",
		"&lt;", "<",
		"&gt;", ">",
		"&quot;", `"`,
		"&#39;", "'",
		"&apos;", "'",
	)
)

// Escape 对 < > & " ' 做实体编码。
func Escape(s string) string { return escaper.Replace(s) }

// Unescape 为 Escape 的逆操作（单遍替换，不级联解码）。
func Unescape(s string) string { return unescaper.Replace(s) }
