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

package sampler

import (
	"github.com/zintix-labs/distlab/sdk/dist"
)

// bernoulliFunc 是離散家族共用的底層游標：true iff u ≤ p。
// Binomial / Geometric 以它為兄弟序列逐次消費，不經過 Distribution 的
// 建構推進，避免多吃一個均勻值。
func bernoulliFunc[P Floaters](src *dist.Source, p P) dist.SamplingFunc[bool] {
	return dist.Map(src.Unit(), func(u float64) bool {
		return P(u) <= p
	})
}

// Bernoulli 輸出成功/失敗；密度為指示權重：true → 1.0、false → 0.0。
// 合約要求 0 ≤ p ≤ 1；不驗證。
func Bernoulli[P Floaters](src *dist.Source, p P) *dist.Distribution[bool, P] {
	return dist.NewWithDensity(bernoulliFunc(src, p), func(b bool) P {
		if b {
			return 1.0
		}
		return 0.0
	})
}

// Binomial 每步消費 n 次 Bernoulli(p)，輸出成功次數。
// 合約要求 n ≥ 0；不驗證。
func Binomial[P Floaters](src *dist.Source, p P, n int) *dist.Distribution[int, P] {
	bern := bernoulliFunc(src, p)
	return dist.New[int, P](dist.AccumN(bern, n, 0, func(acc int, ok bool) int {
		if ok {
			return acc + 1
		}
		return acc
	}))
}

// Geometric 輸出「首次失敗前的連續成功次數」。
// 每步消費的 Bernoulli 次數不定（成功次數 + 1）。
// 合約要求 0 < p ≤ 1；不驗證，p = 0 會讓單步永不返回。
func Geometric[P Floaters](src *dist.Source, p P) *dist.Distribution[int, P] {
	bern := bernoulliFunc(src, p)
	return dist.New[int, P](func() int {
		n := 0
		for bern() {
			n++
		}
		return n
	})
}

// Categorical 以非負整數權重建立 [0, len(weights)) 上的加權抽樣分布
// （抽後放回）。底層為 Vose 別名表（O(1) 抽樣）；密度為 weight[i]/total。
//
// 注意：別名表走核心的整數取樣路徑（IntN），與均勻浮點流同源不同寬度。
func Categorical[P Floaters](src *dist.Source, weights []int) *dist.Distribution[int, P] {
	at := BuildAliasTable(weights)
	c := src.Core()
	w := make([]int, len(weights))
	copy(w, weights)

	next := func() int {
		return at.Pick(c)
	}
	density := func(i int) P {
		if i < 0 || i >= len(w) || at.Total == 0 {
			return 0.0
		}
		return P(w[i]) / P(at.Total)
	}
	return dist.NewWithDensity(dist.SamplingFunc[int](next), dist.Density[int, P](density))
}
