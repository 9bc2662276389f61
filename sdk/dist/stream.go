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

package dist

import (
	"iter"

	"github.com/zintix-labs/distlab/sdk/core"
)

// SamplingFunc 是惰性無限取樣序列的游標：每次呼叫「前進一步」並回傳新值。
//
// 合約：
//   - 只進不退：沒有 rewind，沒有 replay。
//   - 共享即共線：把同一個 SamplingFunc 交給多個持有者，所有持有者觀察的是
//     同一條邏輯序列（closure 內的狀態只有一份）。複製 handle 不會複製底層流。
//   - 惰性：呼叫端沒拉，序列就不前進。組合子不得預取超過「下一次輸出所需」
//     的單一待決值——拒絕採樣與累積類演算法依賴「兄弟序列的最近一次取值」
//     不被提早推進。
type SamplingFunc[T any] func() T

// Source 包裝組裝端唯一的亂數核心，輸出 [0,1) 均勻流。
//
// 不是全域單例：由組裝端（Lab / 測試 / demo）建立一個並注入所有取樣建構子，
// 「所有分布共用同一條熵流」因此是組裝保證而非隱藏的 static 狀態。
// 由同一個 Source 派生出來的分布彼此「不」統計獨立——它們交錯消費同一條流，
// 這是設計，不是意外。
type Source struct {
	c *core.Core
}

// NewSource 以指定核心建立均勻來源。
func NewSource(c *core.Core) *Source {
	return &Source{c: c}
}

// Next 前進一步並回傳 [0,1) 均勻亂數。不會失敗。
func (s *Source) Next() float64 {
	return s.c.Float64()
}

// Unit 以 SamplingFunc 視角暴露均勻流。
// 回傳的游標與 Source 本體共用同一條流。
func (s *Source) Unit() SamplingFunc[float64] {
	return s.Next
}

// Core 回傳底層核心。
// 僅供需要整數取樣（如別名表）或快照/還原（審計）的呼叫端使用；
// 請勿藉此另闢第二條熵路徑。
func (s *Source) Core() *core.Core {
	return s.c
}

// ============================================================
// ** 組合子 **
// ============================================================

// Map 對底層序列做逐值轉換（仿射縮放、門檻判定、取對數等）。
// 每輸出一值恰好消費底層一值。
func Map[T, U any](s SamplingFunc[T], f func(T) U) SamplingFunc[U] {
	return func() U {
		return f(s())
	}
}

// AccumN 每輸出一值，依序消費底層 k 個值並以 fold 累積。
// zero 為每次輸出的累積起點（不是一次性的初始值）。
//
// Binomial（n 次成功計數）、中央極限高斯（12 次求和）都建立在這個組合子上。
func AccumN[T, U any](s SamplingFunc[T], k int, zero U, fold func(U, T) U) SamplingFunc[U] {
	return func() U {
		acc := zero
		for i := 0; i < k; i++ {
			acc = fold(acc, s())
		}
		return acc
	}
}

// Filter 回傳拒絕採樣游標：反覆從底層取值，僅於 accept 通過時輸出，
// 否則靜默丟棄並重試。
//
// 重試迴圈無上界（接受機率 > 0 時 almost surely 有限）；
// 核心不提供取消/超時，需要硬上界時由外層（serving 邊界）包裝。
func Filter[T any](s SamplingFunc[T], accept func(T) bool) SamplingFunc[T] {
	return func() T {
		for {
			v := s()
			if accept(v) {
				return v
			}
		}
	}
}

// Take 回傳長度上限 n 的有界前綴，供估計/測試消費。
//
// 迭代是惰性的：每個元素在被消費的當下才從底層前進一步，
// 中途 break 不會多推進底層序列。
func Take[T any](s SamplingFunc[T], n int) iter.Seq[T] {
	return func(yield func(T) bool) {
		for i := 0; i < n; i++ {
			if !yield(s()) {
				return
			}
		}
	}
}
