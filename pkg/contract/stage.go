package contract

import "context"

// Stage: 流水线的业务阶段（捆绑、解析、聚合、XLIFF 交换）。
// 约束：
// 1) 同步实现，不在内部起并发；并发与背压仅由编排层管理；
// 2) 累加器为单一 Stage 私有，每次运行新建实例，禁止全局共享；
// 3) Consume 按输入到达顺序被顺序调用；
// 4) Flush 为流结束屏障：依赖完整输入集合的产物只能在 Flush 产出；
// 5) 无法识别的文件原样透传（Result 中回显该工件），不视为错误。
type Stage interface {
	Consume(ctx context.Context, rec Record) (Result, error)
	Flush(ctx context.Context) (Result, error)
}
