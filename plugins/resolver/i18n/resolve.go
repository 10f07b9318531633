package i18n

import (
	"fmt"

	"nlspipe/pkg/contract"
)

// Resolve 为一个模块解析单一目标语言的本地化消息集（纯函数，无 I/O）。
// 对束中每个键经 TranslationSource 查找文本；缺失的键记一条 problem
// 并从输出映射省略——缺失翻译降级为“无条目”，不使整个文件失败。
func Resolve(moduleName string, src contract.TranslationSource, keys []contract.KeyInfo) (map[string]string, []string) {
	messages := make(map[string]string, len(keys))
	var problems []string
	for _, k := range keys {
		text, ok := src.Lookup(k.Key)
		if !ok {
			problems = append(problems, fmt.Sprintf("no localized message found for key %q in module %q", k.Key, moduleName))
			continue
		}
		messages[k.Key] = text
	}
	return messages, problems
}
