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
	"crypto/rand"
	"math"
	"math/big"
	"strings"
	"sync"

	"github.com/zintix-labs/distlab/corefmt"
	"github.com/zintix-labs/distlab/dto"
	"github.com/zintix-labs/distlab/errs"
	"github.com/zintix-labs/distlab/sdk/core"
	"github.com/zintix-labs/distlab/sdk/dist"
	"github.com/zintix-labs/distlab/sdk/sampler"
	"github.com/zintix-labs/distlab/spec"
	"github.com/zintix-labs/distlab/stats"
)

// maxDrawsPerRequest 是單一 Draw/Estimate 請求的步數上限，
// 避免一個請求長時間霸佔 Bench（serving 邊界的防護，不是統計上的限制）。
const maxDrawsPerRequest = 1 << 20

// Bench 封裝一張「可對外提供 Draw」的取樣工作台。
//
// 你可以把 Bench 視為 Distribution 的「外殼（shell）」：
//   - 對外：提供 Draw / Expect 入口（HTTP/模擬器通常只操作 Bench）。
//   - 對內：持有 RNG（Core）與依設定組裝好的 float64 視角分布。
//
// 並發語意：
//   - Bench 不是 lock-free 結構；Draw/Expect 以 mutex 序列化。
//   - 要併發模擬，由更高層建立多張 Bench 分散到不同 worker 並管理其生命週期。
//
// initseed 用於記錄出生時的 seed（追溯/重現的基礎資訊）；完整審計仍以 Core 的 Snapshot/Restore 為準。
type Bench struct {
	distName string                              // 分布名稱（來自 DistSetting.DistName，主要用於觀測/日誌）
	distId   spec.DID                            // 分布 ID（Catalog 內唯一；用於路由與查表）
	family   spec.Family                         // 取樣家族（決定組裝路徑）
	core     *core.Core                          // RNG 核心（PRNG + Snapshot/Restore 合約；熱路徑會頻繁取樣）
	src      *dist.Source                        // 唯一均勻來源：本 Bench 的所有取樣建塊共用這一條熵流
	d        *dist.Distribution[float64, float64] // float64 視角的分布（serving 的統一出口）
	mu       sync.Mutex                          // 防併發鎖：保護游標與核心狀態一致性
	initseed int64                               // 出生 seed（便於追溯；完整重現請用 Snapshot/Restore）
}

// newBench 以「隨機 seed」建立 Bench。
//
// 這裡使用 crypto/rand 產生 seed 是為了：
//   - 在對外服務情境避免可預測 RNG
//   - 同時保留可追溯性（seed 會被記錄在 Bench.initseed）
func newBench(ds *spec.DistSetting, cf core.CoreFactory) (*Bench, error) {
	seed, err := rand.Int(rand.Reader, big.NewInt(math.MaxInt64))
	if err != nil {
		return nil, errs.Wrap(err, "new crypto seed error in go std lib")
	}
	return newBenchWithSeed(ds, cf, seed.Int64())
}

// newBenchWithSeed 以指定 seed 建立 Bench。
//
// 這是最常用的「可重現」入口：同一份 DistSetting + 同一個 seed，應能得到一致的樣本序列（取決於 Core 實作）。
//
// 建立流程（概念）：
//  1. core.New(cf.New(seed)) 建出 RNG 核心
//  2. dist.NewSource 包裝成唯一均勻來源
//  3. 依 Family 解碼參數並組裝 float64 視角的 Distribution
//
// 注意：Distribution 的建構即推進合約在這裡發生——Bench 建好時，
// 底層熵流已被消費過「恰好一次建構推進」。
func newBenchWithSeed(ds *spec.DistSetting, cf core.CoreFactory, seed int64) (*Bench, error) {
	c := core.New(cf.New(seed))
	src := dist.NewSource(c)

	d, err := buildFloatDist(ds, src)
	if err != nil {
		return nil, err
	}

	return &Bench{
		distName: ds.DistName,
		distId:   ds.DistID,
		family:   ds.Family,
		core:     c,
		src:      src,
		d:        d,
		initseed: seed,
	}, nil
}

// Draw 為主要公開入口，會驗證取樣請求，推進分布並回傳樣本批次。
//
// 快照審計流程：
//  1. 取 start 快照（作為回放入口）
//  2. 若請求帶 start_b64u，restore 到該狀態（回放/續抽）
//  3. 連續 NextSample n 次
//  4. 取 after 快照（作為續抽入口）
//  5. 若是外部狀態，restore 回 Bench 自己的游標（外部回放不污染本機熵流）
func (b *Bench) Draw(r *dto.DrawRequest) (dto.DrawResult, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	// 1. 校驗請求合法性
	if err := b.valid(r.DistName, r.DistId, r.Draws); err != nil {
		return dto.DrawResult{}, err
	}

	// 2. get start snapshot
	startsnap, err := b.SnapshotCore()
	if err != nil {
		return dto.DrawResult{}, errs.NewFatal("before snapshot error " + err.Error())
	}
	rem := startsnap
	external := false
	if r.StartState != nil && r.StartState.StartCoreSnapB64U != "" {
		snap, derr := corefmt.DecodeBase64URL(r.StartState.StartCoreSnapB64U)
		if derr != nil {
			return dto.DrawResult{}, errs.NewWarn("decode start snapshot err " + derr.Error())
		}
		if err := b.RestoreCore(snap); err != nil {
			return dto.DrawResult{}, errs.NewWarn("restore core err " + err.Error())
		}
		startsnap = snap
		external = true
	}

	// 3. draw samples
	values := make([]float64, r.Draws)
	for i := range values {
		values[i] = b.d.NextSample()
	}

	// 4. get after snapshot
	aftersnap, err := b.SnapshotCore()
	if err != nil {
		if e := b.RestoreCore(rem); e != nil {
			return dto.DrawResult{}, errs.NewFatal("fall back err " + e.Error())
		}
		return dto.DrawResult{}, errs.NewWarn("after snapshot error " + err.Error())
	}

	// 5. restore if needed
	if external {
		if err := b.RestoreCore(rem); err != nil {
			return dto.DrawResult{}, errs.NewFatal("restore core back err " + err.Error())
		}
	}

	// 6. dto
	return dto.DrawResult{
		DistName: b.distName,
		DistID:   b.distId,
		Family:   b.family,
		Draws:    r.Draws,
		Values:   values,
		State:    dto.NewDrawState(startsnap, aftersnap),
	}, nil
}

// Expect 以蒙地卡羅估計期望值。
//
// UseDensity = true 時改用綁定密度加權；分布沒有綁定密度時回傳
// Invalid 等級錯誤（決定性：同一狀態重試會得到同一個錯誤），
// 且不推進任何游標。
func (b *Bench) Expect(r *dto.EstimateRequest) (dto.EstimateResult, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.valid(r.DistName, r.DistId, r.Draws); err != nil {
		return dto.EstimateResult{}, err
	}

	startsnap, err := b.SnapshotCore()
	if err != nil {
		return dto.EstimateResult{}, errs.NewFatal("before snapshot error " + err.Error())
	}

	var exp float64
	if r.UseDensity {
		exp, err = stats.ExpectationUsingDensity(b.d, r.Draws)
		if err != nil {
			return dto.EstimateResult{}, err
		}
	} else {
		exp = stats.Expectation(b.d, r.Draws)
	}

	aftersnap, err := b.SnapshotCore()
	if err != nil {
		if e := b.RestoreCore(startsnap); e != nil {
			return dto.EstimateResult{}, errs.NewFatal("fall back err " + e.Error())
		}
		return dto.EstimateResult{}, errs.NewWarn("after snapshot error " + err.Error())
	}

	return dto.EstimateResult{
		DistName:    b.distName,
		DistID:      b.distId,
		Family:      b.family,
		Draws:       r.Draws,
		UseDensity:  r.UseDensity,
		Expectation: exp,
		State:       dto.NewDrawState(startsnap, aftersnap),
	}, nil
}

// DrawInternal 直接推進游標取得下一個樣本；常用於模擬器或測試
//
// 請勿在正式環境使用
//
// 此行為跳過所有檢查與鎖
func (b *Bench) DrawInternal() float64 {
	return b.d.NextSample()
}

// ExpectInternal 直接以 n 步估計期望；常用於模擬器或測試。
// useDensity = true 且分布無密度時回傳 Invalid 等級錯誤。
func (b *Bench) ExpectInternal(n int, useDensity bool) (float64, error) {
	if useDensity {
		return stats.ExpectationUsingDensity(b.d, n)
	}
	return stats.Expectation(b.d, n), nil
}

func (b *Bench) valid(name string, id spec.DID, draws int) error {
	if b.distId != id {
		return errs.NewWarn("dist id is not matched")
	}
	if !strings.EqualFold(b.distName, name) {
		return errs.NewWarn("dist name is not matched")
	}
	if draws < 1 {
		return errs.NewWarn("draws must > 0")
	}
	if draws > maxDrawsPerRequest {
		return errs.NewWarn("draws out of range")
	}
	return nil
}

// DistName 回傳分布名稱。
func (b *Bench) DistName() string {
	return b.distName
}

// DistId 回傳分布 ID。
func (b *Bench) DistId() spec.DID {
	return b.distId
}

// Family 回傳取樣家族。
func (b *Bench) Family() spec.Family {
	return b.family
}

// SnapshotCore 取得Core狀態暫存 當前僅提供取得Core狀態
//
// 之後要實作斷線重連時候提供checkpoint加入必要恢復資訊時實作
// SnapShot() <- 保留語意
func (b *Bench) SnapshotCore() ([]byte, error) {
	return b.core.Snapshot()
}

// RestoreCore 恢復Core狀態暫存 當前僅提供恢復Core狀態
//
// 之後要實作斷線重連時候提供checkpoint加入必要恢復資訊時實作
// Restore() <- 保留語意
func (b *Bench) RestoreCore(src []byte) error {
	return b.core.Restore(src)
}

// ============================================================
// ** 家族組裝 **
// ============================================================

// buildFloatDist 依 DistSetting 組裝 float64 視角的分布。
//
// 參數一律走嚴格解碼（DecodeParams）＋參數層級 Valid；
// 離散家族（bool/int 輸出）經 wrapFloat 映射為 float64 視角，
// 讓所有家族共用同一個 serving 出口。
func buildFloatDist(ds *spec.DistSetting, src *dist.Source) (*dist.Distribution[float64, float64], error) {
	switch ds.Family {
	case spec.FamilyUnitUniform:
		return sampler.UnitUniform[float64](src), nil

	case spec.FamilyUniform:
		var p spec.UniformParams
		if err := spec.DecodeParams(ds, &p); err != nil {
			return nil, err
		}
		if err := p.Valid(); err != nil {
			return nil, err
		}
		return sampler.Uniform(src, p.A, p.B), nil

	case spec.FamilyPointUniform:
		return sampler.PointUniform[float64](src), nil

	case spec.FamilyBernoulli:
		var p spec.BernoulliParams
		if err := spec.DecodeParams(ds, &p); err != nil {
			return nil, err
		}
		if err := p.Valid(); err != nil {
			return nil, err
		}
		td := sampler.Bernoulli(src, p.P)
		// 指示權重在 float64 視角下仍然是指示權重
		return wrapFloat(td, func(b bool) float64 {
			if b {
				return 1.0
			}
			return 0.0
		}, func(v float64) float64 {
			if v != 0 {
				return 1.0
			}
			return 0.0
		}), nil

	case spec.FamilyBinomial:
		var p spec.BinomialParams
		if err := spec.DecodeParams(ds, &p); err != nil {
			return nil, err
		}
		if err := p.Valid(); err != nil {
			return nil, err
		}
		td := sampler.Binomial(src, p.P, p.N)
		return wrapFloat(td, func(n int) float64 { return float64(n) }, nil), nil

	case spec.FamilyGeometric:
		var p spec.GeometricParams
		if err := spec.DecodeParams(ds, &p); err != nil {
			return nil, err
		}
		if err := p.Valid(); err != nil {
			return nil, err
		}
		td := sampler.Geometric(src, p.P)
		return wrapFloat(td, func(n int) float64 { return float64(n) }, nil), nil

	case spec.FamilyNormalExponential:
		return sampler.NormalExponential[float64](src), nil

	case spec.FamilyGaussianBoxMueller:
		p, err := gaussianParams(ds)
		if err != nil {
			return nil, err
		}
		return sampler.GaussianBoxMueller(src, p.Mu, p.Sigma2), nil

	case spec.FamilyGaussianCentral:
		p, err := gaussianParams(ds)
		if err != nil {
			return nil, err
		}
		return sampler.GaussianCentral(src, p.Mu, p.Sigma2), nil

	case spec.FamilyGaussianRejection:
		p, err := gaussianParams(ds)
		if err != nil {
			return nil, err
		}
		return sampler.GaussianRejection(src, p.Mu, p.Sigma2), nil

	case spec.FamilyCategorical:
		var p spec.CategoricalParams
		if err := spec.DecodeParams(ds, &p); err != nil {
			return nil, err
		}
		if err := p.Valid(); err != nil {
			return nil, err
		}
		td := sampler.Categorical[float64](src, p.Weights)
		tden := td.Density()
		return wrapFloat(td, func(i int) float64 { return float64(i) }, func(v float64) float64 {
			return tden(int(v))
		}), nil

	default:
		return nil, errs.Fatalf("unsupported family: %q", ds.Family)
	}
}

func gaussianParams(ds *spec.DistSetting) (*spec.GaussianParams, error) {
	p := new(spec.GaussianParams)
	if err := spec.DecodeParams(ds, p); err != nil {
		return nil, err
	}
	if err := p.Valid(); err != nil {
		return nil, err
	}
	return p, nil
}

// wrapFloat 把型別化分布包成 float64 視角。
//
// 關鍵：被包裝的分布在自己建構時已經推進過一次，第一次 next() 必須
// 「回放」那個已存在的當前值，而不是再推進一次——否則 float64 視角
// 的建構推進會多吃一步底層熵流。
func wrapFloat[T any](td *dist.Distribution[T, float64], conv func(T) float64, den dist.Density[float64, float64]) *dist.Distribution[float64, float64] {
	replayed := false
	next := func() float64 {
		if !replayed {
			replayed = true
			return conv(td.Sample())
		}
		return conv(td.NextSample())
	}
	return dist.NewWithDensity(dist.SamplingFunc[float64](next), den)
}

// validateParams 在註冊期做參數層級檢查（嚴格解碼＋Valid），
// 讓錯誤設定在組裝階段 fail-fast，而不是建 Bench 時才爆。
func validateParams(ds *spec.DistSetting) error {
	switch ds.Family {
	case spec.FamilyUnitUniform, spec.FamilyPointUniform, spec.FamilyNormalExponential:
		return nil
	case spec.FamilyUniform:
		var p spec.UniformParams
		if err := spec.DecodeParams(ds, &p); err != nil {
			return err
		}
		return p.Valid()
	case spec.FamilyBernoulli:
		var p spec.BernoulliParams
		if err := spec.DecodeParams(ds, &p); err != nil {
			return err
		}
		return p.Valid()
	case spec.FamilyBinomial:
		var p spec.BinomialParams
		if err := spec.DecodeParams(ds, &p); err != nil {
			return err
		}
		return p.Valid()
	case spec.FamilyGeometric:
		var p spec.GeometricParams
		if err := spec.DecodeParams(ds, &p); err != nil {
			return err
		}
		return p.Valid()
	case spec.FamilyGaussianBoxMueller, spec.FamilyGaussianCentral, spec.FamilyGaussianRejection:
		_, err := gaussianParams(ds)
		return err
	case spec.FamilyCategorical:
		var p spec.CategoricalParams
		if err := spec.DecodeParams(ds, &p); err != nil {
			return err
		}
		return p.Valid()
	default:
		return errs.Fatalf("unsupported family: %q", ds.Family)
	}
}
