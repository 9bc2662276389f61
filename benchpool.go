// Copyright 2025 Zintix Labs
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package distlab

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/zintix-labs/distlab/dto"
	"github.com/zintix-labs/distlab/errs"
	"github.com/zintix-labs/distlab/sdk/core"
	"github.com/zintix-labs/distlab/spec"
)

// BenchPool 專門管理「某一個分布」的所有 Bench 實例。
// 它透過兩個通道管理 Bench 生命週期：
//  1. pool：健康且可用的 Bench，供 Draw() 借出 / 歸還。
//  2. broken：在運作過程中發生錯誤或 panic 的壞 Bench，送往此通道以便後續檢查、維修或丟棄。
//
// 若某張 Bench 於取樣執行期間發生 panic 或 fatal error，該 Bench 會被送至 broken，並立即補上一張新 Bench 以維持容量。
// 整體機制確保整個系統在高併發下仍保持穩定與可用性。
type BenchPool struct {
	distName      string
	distId        spec.DID
	family        spec.Family
	ds            *spec.DistSetting
	cf            core.CoreFactory
	initSeed      int64
	seedMaker     *seedMaker
	pool          chan *Bench   // 可用 Bench 的通道，用於取得和歸還 Bench
	broken        chan *Bench   // 壞掉 Bench 的通道，用於送修或丟棄壞掉 Bench
	done          chan struct{} // 關閉訊號：關閉後不再允許借出/歸還/補機
	closeOnce     sync.Once     // 確保 Close() 只執行一次
	poolsize      int           // 好 Bench
	rebuild       atomic.Int32  // 重建 Bench 次數
	inflight      atomic.Int32  // 使用中
	panics        atomic.Int32  // panic 次數
	fatals        atomic.Int32  // fatal 次數（Bench 狀態不可信）
	closeReason   atomic.Value  // string: 關閉原因
	closeInflight atomic.Int32  // 關閉當下 inflight（快照）
	closeAvail    atomic.Int32  // 關閉當下 pool 可用數量（len(pool) 快照）
	closeBroken   atomic.Int32  // 關閉當下 broken backlog（len(broken) 快照）
}

// newBenchPool 建立指定分布的 Bench 池。
//   - n: Bench 數量（至少為 1）
//
// 初始化內容包含：
//   - 建立 pool（可用）與 broken（壞）兩個 channel
//   - 預先建立 n 張 Bench 並放入 pool，以便立即提供服務
func newBenchPool(n int, ds *spec.DistSetting, cf core.CoreFactory, seed int64) (*BenchPool, error) {
	n = max(1, n) // 確保 Bench 數量至少為1
	p := &BenchPool{
		distName:  ds.DistName,
		distId:    ds.DistID,
		family:    ds.Family,
		ds:        ds,
		cf:        cf,
		initSeed:  seed,
		seedMaker: newSeedMaker(seed),
		pool:      make(chan *Bench, n),   // 建立有緩衝的 Bench 通道，容量為 n
		broken:    make(chan *Bench, 100), // 建立有緩衝的壞 Bench 通道，容量固定為100
		done:      make(chan struct{}),
		poolsize:  n,
		inflight:  atomic.Int32{},
		rebuild:   atomic.Int32{},
	}

	p.closeReason.Store("")
	p.closeInflight.Store(-1)
	p.closeAvail.Store(-1)
	p.closeBroken.Store(-1)

	// 上架 Bench，將 n 張新 Bench 放入池中
	for i := 0; i < n; i++ {
		b, err := newBenchWithSeed(ds, cf, p.seedMaker.next())
		if err != nil {
			return nil, err
		}
		p.pool <- b
	}
	return p, nil
}

// Close 進入關閉狀態：
//   - 通知之後所有 Draw() 應該直接回 error
//   - defer 歸還/補機時會觀察 done，避免對已關閉狀態進行 send
func (p *BenchPool) Close() {
	p.closeWithReason("closed")
}

// Closed 回報池是否已進入關閉狀態。
func (p *BenchPool) Closed() bool {
	select {
	case <-p.done:
		return true
	default:
		return false
	}
}

// closeWithReason 進入關閉狀態並記錄原因（thread-safe, reason 只會被寫入一次）。
// reason 建議使用固定字串或小枚舉字串，方便 metrics/telemetry 聚合。
func (p *BenchPool) closeWithReason(reason string) {
	p.closeOnce.Do(func() {
		if reason == "" {
			reason = "closed"
		}
		p.closeReason.Store(reason)
		// 進入關閉狀態的瞬間做一次快照，方便外部觀測與故障排查。
		p.closeInflight.Store(p.inflight.Load())
		p.closeAvail.Store(int32(len(p.pool)))
		p.closeBroken.Store(int32(len(p.broken)))
		close(p.done)
	})
}

// isFatalErr 用於判斷本次錯誤是否代表「Bench 狀態不可信」需要淘汰/補機。
//
// 原則：
//   - panic 一律視為 broken（由 caller 端的 defer/recover 處理）
//   - request/validation 類錯誤（Warn）不應淘汰 Bench
//   - Invalid 等級（合約操作無效，例如無密度卻要求密度加權）是決定性的業務錯誤，Bench 仍然健康
//   - 只有錯誤型別本身明確宣告「fatal」時才視為 broken
func isFatalErr(err error) bool {
	if err == nil {
		return false
	}
	if e, ok := err.(*errs.E); ok {
		if e.ErrLv == errs.Fatal {
			return true
		}
	}
	return false
}

// Draw 借出一張 Bench 執行取樣，並處理歸還/送修/補機的完整生命週期。
func (p *BenchPool) Draw(ctx context.Context, req *dto.DrawRequest) (res dto.DrawResult, err error) {
	b, err := p.borrow(ctx)
	if err != nil {
		return res, err
	}

	defer p.finish(b, &err)

	result, drawErr := b.Draw(req)
	if drawErr != nil {
		err = drawErr
		return
	}

	res = result
	return
}

// Estimate 借出一張 Bench 執行期望估計，生命週期管理與 Draw 相同。
func (p *BenchPool) Estimate(ctx context.Context, req *dto.EstimateRequest) (res dto.EstimateResult, err error) {
	b, err := p.borrow(ctx)
	if err != nil {
		return res, err
	}

	defer p.finish(b, &err)

	result, estErr := b.Expect(req)
	if estErr != nil {
		err = estErr
		return
	}

	res = result
	return
}

// borrow 依序觀察 done / ctx / pool，借出一張 Bench。
func (p *BenchPool) borrow(ctx context.Context) (*Bench, error) {
	select {
	case <-p.done:
		// 先觀察是否已關閉：關閉直接回失敗，不阻塞
		return nil, errs.NewFatal("bench pool closed: " + p.ClosedReason())
	case <-ctx.Done():
		// 如果通知取消
		return nil, errs.NewWarn("draw canceled/timeout: " + ctx.Err().Error())
	case b := <-p.pool:
		// 理論上不會拿到 nil；若發生代表 pool 有嚴重問題。
		if b == nil {
			return nil, errs.NewFatal("bench pool got nil bench")
		}
		p.inflight.Add(1)
		return b, nil
	}
}

// finish 是借出後的統一收尾（需以 defer 呼叫）：
//   - recover panic 並轉成 fatal error
//   - 健康 Bench 歸還 pool；panic/fatal 的 Bench 送 broken 並補機
//   - 關閉狀態下不歸還、不補機
func (p *BenchPool) finish(b *Bench, errp *error) {
	// 有借有還 再借不難
	p.inflight.Add(-1)

	var isPanic bool
	if r := recover(); r != nil {
		// 系統恢復
		isPanic = true
		p.panics.Add(1)
		*errp = errs.NewFatal(fmt.Sprintf("bench %s panic : %v", b.distName, r))
	}

	// 若已關閉，直接丟棄 Bench（不歸還、不補機），避免 send 到已停止的系統。
	if p.Closed() {
		return
	}

	// 若發生 panic 或「致命錯誤」，表示 Bench 狀態不可信，需要送修並補機。
	// 注意：request/validation error（Warn）與合約錯誤（Invalid）不應淘汰 Bench。
	if isPanic || isFatalErr(*errp) {
		if !isPanic && isFatalErr(*errp) {
			p.fatals.Add(1)
		}
		// 1) 壞 Bench 送入 broken（避免阻塞）
		select {
		case p.broken <- b:
		default:
			// broken 通道滿代表系統可能正在連續故障：進入關閉狀態讓上層接管維護。
			p.closeWithReason("overwhelmed_by_failures")
			// 若外層尚未有錯誤，補一個更明確的致命訊息
			if *errp == nil {
				*errp = errs.NewFatal("bench pool overwhelmed by failures")
			}
			return
		}

		// 2) 補一張新 Bench（維持容量）
		nb, buildErr := newBenchWithSeed(p.ds, p.cf, p.seedMaker.next())
		p.rebuild.Add(1)
		if buildErr != nil {
			*errp = errs.NewFatal(fmt.Sprintf("bench %s can not build", p.distName))
			p.closeWithReason("rebuild_failed")
			return
		}

		// 補機前再看一次是否已關閉（避免並行 Close 後 send / block）
		select {
		case <-p.done:
			return
		case p.pool <- nb:
			// ok
		}

		return
	}

	// 若有錯誤但非致命（多半是 request/validation 類錯誤），Bench 仍然是健康的：歸還 pool 並把 err 原樣回傳。
	// 注意：此處不改寫 err。
	select {
	case <-p.done:
		return
	case p.pool <- b:
		// ok
	}
}

func (p *BenchPool) PoolSize() int {
	return p.poolsize
}

func (p *BenchPool) Inflight() int {
	return int(p.inflight.Load())
}

func (p *BenchPool) ReBuild() int {
	return int(p.rebuild.Load())
}

func (p *BenchPool) ClosedReason() string {
	if v := p.closeReason.Load(); v != nil {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

func (p *BenchPool) Panics() int {
	return int(p.panics.Load())
}

func (p *BenchPool) Fatals() int {
	return int(p.fatals.Load())
}

// BenchPoolMetrics 是一期提供的「拉取式（pull）」觀測快照。
//
// 設計原則：
//   - 不綁任何 metrics/telemetry SDK（Prometheus / OpenTelemetry 等），由上層自己決定如何輸出。
//   - 欄位值以讀取當下為主；其中 Available/BrokenBacklog 來自 len(chan)，在高併發下是「近似值」但足夠用於營運觀測。
//   - 關閉瞬間的快照（CloseInflight/CloseAvail/CloseBroken）只會在 Close 時寫入一次，用於事後排查。
type BenchPoolMetrics struct {
	DistName string      `json:"dist_name"`
	DistID   spec.DID    `json:"dist_id"`
	Family   spec.Family `json:"family"`

	PoolSize      int    `json:"pool_size"`      // 目標容量（初始化指定）
	Available     int    `json:"available"`      // 當下可借出的 Bench 數（len(pool)）
	Inflight      int    `json:"inflight"`       // 使用中（借出未歸還）
	BrokenBacklog int    `json:"broken_backlog"` // broken channel 當下 backlog（len(broken)）
	Rebuild       int    `json:"rebuild"`        // 補機次數
	Panics        int    `json:"panics"`         // panic 次數
	Fatals        int    `json:"fatals"`         // fatal 次數
	Closed        bool   `json:"closed"`         // 是否已關閉
	CloseReason   string `json:"close_reason"`   // 關閉原因

	CloseInflight int `json:"close_inflight"` // Close() 當下 inflight（-1 表示尚未關閉）
	CloseAvail    int `json:"close_avail"`    // Close() 當下 available（-1 表示尚未關閉）
	CloseBroken   int `json:"close_broken"`   // Close() 當下 broken backlog（-1 表示尚未關閉）
}

// Metrics 回傳一期的觀測快照；上層可用於 log、/metrics、或餵給 Prometheus/OTEL exporter。
func (p *BenchPool) Metrics() BenchPoolMetrics {
	closed := p.Closed()
	m := BenchPoolMetrics{
		DistName:      p.distName,
		DistID:        p.distId,
		Family:        p.family,
		PoolSize:      p.poolsize,
		Available:     len(p.pool),
		Inflight:      int(p.inflight.Load()),
		BrokenBacklog: len(p.broken),
		Rebuild:       int(p.rebuild.Load()),
		Panics:        int(p.panics.Load()),
		Fatals:        int(p.fatals.Load()),
		Closed:        closed,
		CloseReason:   p.ClosedReason(),
		CloseInflight: int(p.closeInflight.Load()),
		CloseAvail:    int(p.closeAvail.Load()),
		CloseBroken:   int(p.closeBroken.Load()),
	}
	return m
}

// Available 回傳當下 pool 可用 Bench 數（len(pool)）。在高併發下為近似值。
func (p *BenchPool) Available() int {
	return len(p.pool)
}
