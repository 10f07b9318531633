package contract

import "errors"

// 最小哨兵错误集合。分类见 internal/diag.Classify。
var (
	// ErrPathInvalid: 目标标识映射为无效/越界路径（例如绝对路径或 '..' 逃逸）。
	ErrPathInvalid = errors.New("path invalid")
	// ErrInvalidInput: 调用方输入非法（空参数、缺失必需字段等）。
	ErrInvalidInput = errors.New("invalid input")
	// ErrInvariantViolation: 结构性不变量违例（键/文本数量不匹配、引用不存在的
	// file 组、翻译覆盖不完整）。属于流水线调用缺陷，致命且不可恢复。
	ErrInvariantViolation = errors.New("invariant violation")
	// ErrFormatInvalid: 外部输入格式损坏（XLIFF 缺失结构节点、元数据 JSON 残缺）。
	// 整个解析操作失败，不静默返回部分数据。
	ErrFormatInvalid = errors.New("format invalid")
)
