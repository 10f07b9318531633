package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"nlspipe/internal/diag"
	"nlspipe/pkg/contract"
)

// - 单点并发：仅此层管理并发与背压；原子组件均为同步、无内部并发。
// - 顺序消费：Record 按 Reader 产出顺序串行送入 Stage；阶段累积器无须加锁。
// - 并发落盘：产物写出交给有界 worker 池；运行仅在全部写出完成后结束。
// - 首错取消：任一阶段出现错误，记录首错并 cancel 整体；排空后返回该错误。

// Components 聚合运行所需的原子组件。
type Components struct {
	Reader contract.Reader
	Stage  contract.Stage
	Writer contract.Writer
}

// Settings 运行期配置（最小必要）。
type Settings struct {
	// 输入根（输出由 Writer 的 options 决定，这里只保留输入）
	Inputs      []string
	Concurrency int
}

// Run 执行完整流水线：Reader → Stage(Consume…Flush) → Writer。
// 约束：
// - 所有组件均为同步实现；
// - 产物写出是并发的唯一重负载点，受 Concurrency 控制；
// - Flush 产物在全部 Consume 之后提交，保证屏障阶段语义。
func Run(ctx context.Context, comp Components, set Settings, logger *diag.Logger) error {
	if err := sanity(comp, &set); err != nil {
		return fmt.Errorf("sanity: %w", err)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// 写出 worker 池：有界通道（2×并发度）形成自然背压
	wCh := make(chan contract.Artifact, set.Concurrency*2)
	var wg sync.WaitGroup
	var errMu sync.Mutex
	var firstErr error
	setErr := func(err error) {
		errMu.Lock()
		if firstErr == nil {
			firstErr = err
			cancel()
		}
		errMu.Unlock()
	}

	worker := func() {
		defer wg.Done()
		for a := range wCh {
			wtimer := (*diag.Timer)(nil)
			if logger != nil {
				wtimer = logger.StartWith("writer", "write", string(a.ID))
			}
			if err := comp.Writer.Write(ctx, a.ID, bytes.NewReader(a.Data)); err != nil {
				if logger != nil {
					code := diag.Classify(err)
					logger.ErrorWith("writer", string(code), "write failed", nil, "", string(a.ID))
					diag.IncOp("writer", "error", "error")
					if code != diag.CodeUnknown {
						diag.IncError("writer", string(code))
					}
				}
				setErr(fmt.Errorf("writer write %s: %w", a.ID, err))
				continue
			}
			if wtimer != nil {
				wtimer.Finish("write", int64(len(a.Data)))
				diag.IncOp("writer", "finish", "success")
			}
			if t := diag.GetTerminal(); t != nil {
				t.ArtifactDone()
			}
		}
	}
	wg.Add(set.Concurrency)
	for i := 0; i < set.Concurrency; i++ {
		go worker()
	}

	// submit: 上报降级问题并投递产物；ctx 取消后丢弃剩余产物。
	submit := func(res contract.Result, fileID string) {
		if len(res.Problems) > 0 {
			if logger != nil {
				for _, p := range res.Problems {
					logger.WarnWith("stage", p, fileID)
				}
			}
			if t := diag.GetTerminal(); t != nil {
				t.WarnCount(len(res.Problems))
			}
		}
		for _, a := range res.Artifacts {
			select {
			case <-ctx.Done():
				return
			case wCh <- a:
			}
		}
	}

	// Reader 遍历文件；逐文件串行送入 Stage
	rtimer := (*diag.Timer)(nil)
	if logger != nil {
		rtimer = logger.Start("reader", "iterate")
	}
	files := 0
	err := comp.Reader.Iterate(ctx, set.Inputs, func(fid contract.FileID, rc io.ReadCloser) error {
		defer rc.Close()
		data, rerr := io.ReadAll(rc)
		if rerr != nil {
			if logger != nil {
				code := diag.Classify(rerr)
				logger.ErrorWith("reader", string(code), "read failed", nil, string(fid), "")
				diag.IncOp("reader", "error", "error")
				if code != diag.CodeUnknown {
					diag.IncError("reader", string(code))
				}
			}
			return fmt.Errorf("read %s: %w", fid, rerr)
		}
		ctimer := (*diag.Timer)(nil)
		if logger != nil {
			ctimer = logger.StartWith("stage", "consume", string(fid))
		}
		res, cerr := comp.Stage.Consume(ctx, contract.Record{FileID: fid, Data: data})
		if cerr != nil {
			if logger != nil {
				code := diag.Classify(cerr)
				logger.ErrorWith("stage", string(code), "consume failed", nil, string(fid), "")
				diag.IncOp("stage", "error", "error")
				if code != diag.CodeUnknown {
					diag.IncError("stage", string(code))
				}
			}
			return fmt.Errorf("stage consume %s: %w", fid, cerr)
		}
		if ctimer != nil {
			ctimer.Finish("consume", int64(len(res.Artifacts)))
			diag.IncOp("stage", "finish", "success")
		}
		submit(res, string(fid))
		files++
		if t := diag.GetTerminal(); t != nil {
			t.FileDone(string(fid))
		}
		return nil
	})
	if err != nil {
		setErr(fmt.Errorf("reader iterate: %w", err))
	} else {
		if rtimer != nil {
			rtimer.Finish("iterate", int64(files))
			diag.IncOp("reader", "finish", "success")
		}
		// 流结束屏障：全部输入消费完毕后冲刷
		ftimer := (*diag.Timer)(nil)
		if logger != nil {
			ftimer = logger.Start("stage", "flush")
		}
		res, ferr := comp.Stage.Flush(ctx)
		if ferr != nil {
			if logger != nil {
				code := diag.Classify(ferr)
				logger.Error("stage", string(code), "flush failed", nil)
				diag.IncOp("stage", "error", "error")
				if code != diag.CodeUnknown {
					diag.IncError("stage", string(code))
				}
			}
			setErr(fmt.Errorf("stage flush: %w", ferr))
		} else {
			if ftimer != nil {
				ftimer.Finish("flush", int64(len(res.Artifacts)))
				diag.IncOp("stage", "finish", "success")
			}
			submit(res, "")
		}
	}

	// 排空：关闭投递通道，等待全部写出落盘
	close(wCh)
	wg.Wait()

	errMu.Lock()
	defer errMu.Unlock()
	return firstErr
}

func sanity(c Components, s *Settings) error {
	if c.Reader == nil || c.Stage == nil || c.Writer == nil {
		return errors.New("pipeline: missing components")
	}
	if s.Concurrency < 1 {
		s.Concurrency = 1
	}
	if len(s.Inputs) == 0 {
		return errors.New("pipeline: empty inputs")
	}
	return nil
}
