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
	"io"
	"math"
	"math/big"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cheggaaa/pb/v3"
	"github.com/zintix-labs/distlab/errs"
	"github.com/zintix-labs/distlab/recorder"
	"github.com/zintix-labs/distlab/sdk/core"
	"github.com/zintix-labs/distlab/spec"
	"github.com/zintix-labs/distlab/stats"
)

const capPrepare int = 100

// Study 用於大量取樣統計，可建立多張 Bench 並平行紀錄統計。
//
// 所有 Bench 的 seed 都由 initSeed 透過 seedMaker 決定性派生，
// 因此 RunMP 在同一個 initSeed 與同一個 mp 下是可重現的。
type Study struct {
	DistName  string                   // 分布名稱
	DistId    spec.DID                 // 分布編號
	ds        *spec.DistSetting        // 方便重用建立 Bench
	cf        core.CoreFactory         // 亂數生成器
	initSeed  int64                    // 初始下的種子
	seedmaker *seedMaker               // 種子生成器
	mBuf      []*Bench                 // 併發執行工作台實例
	rBuf      []*recorder.DrawRecorder // 併發取樣紀錄員
	sBuf      []*stats.SampleReport    // 併發統計結果報表（僅 RunReplicas 需要）
}

func newStudy(ds *spec.DistSetting, cf core.CoreFactory) (*Study, error) {
	seed, err := rand.Int(rand.Reader, big.NewInt(math.MaxInt64))
	if err != nil {
		return nil, err
	}
	return newStudyWithSeed(ds, cf, seed.Int64())
}

func newStudyWithSeed(ds *spec.DistSetting, cf core.CoreFactory, seed int64) (*Study, error) {
	s := &Study{
		DistName:  ds.DistName,
		DistId:    ds.DistID,
		ds:        ds,
		cf:        cf,
		initSeed:  seed,
		seedmaker: newSeedMaker(seed),
		mBuf:      make([]*Bench, 1, capPrepare),
		rBuf:      make([]*recorder.DrawRecorder, 0, capPrepare),
		sBuf:      make([]*stats.SampleReport, 0, capPrepare),
	}
	b, err := newBenchWithSeed(ds, cf, s.initSeed)
	if err != nil {
		return nil, err
	}
	s.mBuf[0] = b
	return s, nil
}

// Run 單線模擬器：以一張 Bench 連續抽指定 draws 並回傳統計結果與用時
func (s *Study) Run(draws int, showpb bool) (*stats.SampleReport, time.Duration, error) {
	defer s.reset()
	if draws < 1 {
		return nil, 0, errs.NewWarn("draws must > 0")
	}
	if len(s.rBuf) == 0 {
		r, err := recorder.NewDrawRecorder(s.DistName, s.DistId, s.ds.Family)
		if err != nil {
			return nil, 0, err
		}
		s.rBuf = append(s.rBuf, r)
	}
	r := s.rBuf[0]
	b := s.mBuf[0]

	bar := pb.StartNew(draws)
	if !showpb {
		bar.SetWriter(io.Discard)
	}
	for i := 0; i < draws; i++ {
		r.Record(b.DrawInternal())
		bar.Increment()
	}
	used := time.Since(bar.StartTime())
	bar.Finish()
	result := r.Done()

	return result, used, nil
}

// RunMP 平行執行多張 Bench，總計 draws*mp 次取樣，合併統計結果後回傳統計結果與用時
func (s *Study) RunMP(draws int, mp int, showpb bool) (*stats.SampleReport, time.Duration, error) {
	defer s.reset()
	if mp <= 0 {
		return nil, 0, errs.NewWarn("workers must > 0")
	}
	if draws < 1 {
		return nil, 0, errs.NewWarn("draws must > 0")
	}
	if err := s.prepare(mp); err != nil {
		return nil, 0, err
	}

	wg := new(sync.WaitGroup)
	wg.Add(mp)
	bar := pb.StartNew(draws * mp)
	if !showpb {
		bar.SetWriter(io.Discard)
	}
	for i := 0; i < mp; i++ {
		go func(i int) {
			defer wg.Done()
			b := s.mBuf[i]
			st := s.rBuf[i]
			for d := 0; d < draws; d++ {
				st.Record(b.DrawInternal())
				bar.Increment()
			}
		}(i)
	}
	wg.Wait()
	used := time.Since(bar.StartTime())
	bar.Finish()

	st, err := recorder.MergeDrawRecorder(s.rBuf)
	if err != nil {
		return nil, 0, err
	}
	return st.Done(), used, nil
}

// RunReplicas 平行執行 mp 個複本，各抽 draws 次，除了合併後的基準報表外，
// 另外產出「複本一致性」分析：每個複本視為一次獨立重複實驗，
// 檢視複本均值的分位數與相對合併報表信賴區間的覆蓋情況。
func (s *Study) RunReplicas(mp int, draws int, showpb bool) (*stats.SampleReport, *stats.EstimatorReplicas, time.Duration, error) {
	defer s.reset()
	if mp < 1 || draws < 1 {
		return nil, nil, 0, errs.NewWarn("invalid param")
	}
	if err := s.prepare(mp); err != nil {
		return nil, nil, 0, err
	}
	s.sBuf = make([]*stats.SampleReport, mp)

	wg := new(sync.WaitGroup)
	wg.Add(mp)
	bar := pb.StartNew(mp)
	if !showpb {
		bar.SetWriter(io.Discard)
	}
	for i := 0; i < mp; i++ {
		go func(i int) {
			defer wg.Done()
			b := s.mBuf[i]
			st := s.rBuf[i]
			for d := 0; d < draws; d++ {
				st.Record(b.DrawInternal())
			}
			bar.Increment()
		}(i)
	}
	wg.Wait()
	used := time.Since(bar.StartTime())
	bar.Finish()

	// 合併基準報表
	merged, err := recorder.MergeDrawRecorder(s.rBuf)
	if err != nil {
		return nil, nil, 0, err
	}
	pooled := merged.Done()

	// 複本分析報表
	for i, r := range s.rBuf {
		s.sBuf[i] = r.Done()
	}
	est := stats.EstimateReplicas(pooled, s.sBuf)
	return pooled, est, used, nil
}

// prepare 把 mBuf / rBuf 補齊到 mp 個（Bench 的 seed 由 seedmaker 派生）。
func (s *Study) prepare(mp int) error {
	for len(s.mBuf) < mp {
		b, err := newBenchWithSeed(s.ds, s.cf, s.seedmaker.next())
		if err != nil {
			return err
		}
		s.mBuf = append(s.mBuf, b)
	}
	for len(s.rBuf) < mp {
		r, err := recorder.NewDrawRecorder(s.DistName, s.DistId, s.ds.Family)
		if err != nil {
			return err
		}
		s.rBuf = append(s.rBuf, r)
	}
	return nil
}

func (s *Study) reset() {
	s.rBuf = s.rBuf[:0]
	s.sBuf = s.sBuf[:0]
}

const mask63 = uint64(1<<63) - 1

type seedMaker struct {
	state atomic.Uint64 // always in [0, 2^63)
}

func newSeedMaker(seed int64) *seedMaker {
	s := &seedMaker{}
	s.state.Store(uint64(seed) & mask63)
	return s
}

// state 走全週期（不重複），再用可逆 mix63 打散
//
// 注意：此方法可能在併發環境下被多 goroutines 同時呼叫（例如 BenchPool 補機）。
// 因此 state 的推進必須是原子的：
//   - 使用 CAS（Compare-And-Swap）迴圈確保每次呼叫都會取得唯一的下一個 state。
//   - 回傳值使用推進後的 state 經 mix63 打散後的結果。
func (s *seedMaker) next() int64 {
	for {
		old := s.state.Load()                                            // always masked
		next := (old*6364136223846793005 + 1442695040888963407) & mask63 // full-period LCG mod 2^63
		if s.state.CompareAndSwap(old, next) {
			return int64(mix63(next)) // 一定非負
		}
	}
}

// mix63：只用「可逆」的 bit 操作 + 乘奇數（mod 2^63）
func mix63(x uint64) uint64 {
	x &= mask63
	x ^= x >> 30
	x = (x * 0xBF58476D1CE4E5B9) & mask63 // 乘奇數 ⇒ mod 2^63 可逆
	x ^= x >> 27
	x = (x * 0x94D049BB133111EB) & mask63
	x ^= x >> 31
	return x & mask63
}
