package contract

import "fmt"

// 校验库函数（纯函数，无 I/O）。
// 束的结构性校验在进入累加器前完成；下游组件假定输入已合法。

// ValidateBundle 校验键/文本对齐与键的非空性。
// 数量不匹配为 ErrInvariantViolation（管线缺陷）；空键为 ErrFormatInvalid（外部数据损坏）。
func ValidateBundle(b MessageBundle) error {
	if len(b.Keys) != len(b.Messages) {
		return fmt.Errorf("%w: unmatching keys (%d) and messages (%d)", ErrInvariantViolation, len(b.Keys), len(b.Messages))
	}
	for i, k := range b.Keys {
		if k.Key == "" {
			return fmt.Errorf("%w: empty key at index %d", ErrFormatInvalid, i)
		}
	}
	return nil
}

// ValidateMetaDataFile 校验单文件元数据：束合法且携带源路径。
func ValidateMetaDataFile(m MetaDataFile) error {
	if m.FilePath == "" {
		return fmt.Errorf("%w: metadata without filePath", ErrFormatInvalid)
	}
	return ValidateBundle(m.MessageBundle)
}
