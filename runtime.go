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
	"sync"
	"sync/atomic"

	"github.com/zintix-labs/distlab/catalog"
	"github.com/zintix-labs/distlab/dto"
	"github.com/zintix-labs/distlab/errs"
	"github.com/zintix-labs/distlab/spec"
)

// LabRuntime 是對外 serving 的 data-plane：每個分布一個 BenchPool，
// 依 DID 路由請求。
type LabRuntime struct {
	// build-time 來源（只讀引用）
	lab *Lab // 方便取 catalog/corefactory 與共用一些 helper

	// data-plane：關鍵主池（每個分布一個 pool）
	pools map[spec.DID]*BenchPool
	ids   []spec.DID // 固定順序，用於觀測/列舉（來自 cat.IDs()）

	// lifecycle
	done      chan struct{}
	closeOnce sync.Once
	closed    atomic.Bool
	reason    atomic.Value // string

	// runtime 行為設定（一期先簡單，之後可擴展）
	poolSize int // 每個分布的池大小（BuildRuntime(n) 的 n）
}

func (rt *LabRuntime) Draw(ctx context.Context, req *dto.DrawRequest) (dto.DrawResult, error) {
	select {
	case <-ctx.Done():
		// 如果通知取消
		return dto.DrawResult{}, errs.NewWarn("draw canceled/timeout: " + ctx.Err().Error())
	case <-rt.done:
		// done is the source of truth; keep a fast boolean for cheap reads/telemetry.
		rt.closed.Store(true)
		return dto.DrawResult{}, errs.NewFatal("lab runtime closed: " + rt.ClosedReason())
	default:
	}

	bp, ok := rt.pools[req.DistId]
	if !ok {
		return dto.DrawResult{}, errs.NewWarn("dist id not found")
	}

	// pool 自己會處理 done / close / rebuild / metrics
	return bp.Draw(ctx, req)
}

func (rt *LabRuntime) Estimate(ctx context.Context, req *dto.EstimateRequest) (dto.EstimateResult, error) {
	select {
	case <-ctx.Done():
		return dto.EstimateResult{}, errs.NewWarn("estimate canceled/timeout: " + ctx.Err().Error())
	case <-rt.done:
		rt.closed.Store(true)
		return dto.EstimateResult{}, errs.NewFatal("lab runtime closed: " + rt.ClosedReason())
	default:
	}

	bp, ok := rt.pools[req.DistId]
	if !ok {
		return dto.EstimateResult{}, errs.NewWarn("dist id not found")
	}

	return bp.Estimate(ctx, req)
}

// Metrics 回傳所有 pool 的觀測快照，依 DID 固定順序。
func (rt *LabRuntime) Metrics() []BenchPoolMetrics {
	ms := make([]BenchPoolMetrics, 0, len(rt.ids))
	for _, id := range rt.ids {
		if bp, ok := rt.pools[id]; ok {
			ms = append(ms, bp.Metrics())
		}
	}
	return ms
}

// Summary 轉發 Lab 的目錄摘要（觀測/列舉用）。
func (rt *LabRuntime) Summary() ([]catalog.Summary, error) {
	return rt.lab.Summary()
}

// Close transitions the runtime into a closed state. It is safe to call multiple times.
func (rt *LabRuntime) Close() {
	rt.closeWithReason("closed")
}

// closeWithReason closes the runtime and records the reason (written once).
func (rt *LabRuntime) closeWithReason(reason string) {
	rt.closeOnce.Do(func() {
		if reason == "" {
			reason = "closed"
		}
		rt.reason.Store(reason)
		rt.closed.Store(true)
		close(rt.done)

		// runtime 關閉時順手關閉所有 pool，讓借出中的 Bench 自然流乾。
		for _, bp := range rt.pools {
			bp.closeWithReason("runtime_" + reason)
		}
	})
}

// Closed reports whether the runtime has been closed.
func (rt *LabRuntime) Closed() bool {
	return rt.closed.Load()
}

func (rt *LabRuntime) ClosedReason() string {
	if v := rt.reason.Load(); v != nil {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}
