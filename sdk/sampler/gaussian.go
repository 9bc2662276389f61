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

// 本檔案 (gaussian.go) 實作三種高斯取樣路徑與其共用的指數建塊。
//
// 三種路徑對照（皆輸出 μ + σ²·Z 形式；σ² 為「參考演算法」使用的縮放因子，
// 不是標準差——保留此行為，請勿改成 σ）：
//   - GaussianBoxMueller : 每步固定 2 個均勻值，三角函數換算。
//   - GaussianCentral    : 每步固定 12 個均勻值，中央極限近似。
//   - GaussianRejection  : 指數提案 + 拒絕採樣，每步消費次數不定。
package sampler

import (
	"math"

	"github.com/zintix-labs/distlab/sdk/dist"
)

// expFunc 共用建塊：−ln(u)，單位指數分布的游標。
func expFunc(src *dist.Source) dist.SamplingFunc[float64] {
	return dist.Map(src.Unit(), func(u float64) float64 {
		return -math.Log(u)
	})
}

// NormalExponential 輸出 −ln(u)，即 rate = 1 的指數分布。期望值為 1。
func NormalExponential[P Floaters](src *dist.Source) *dist.Distribution[P, P] {
	return dist.New[P, P](dist.Map(expFunc(src), func(y float64) P {
		return P(y)
	}))
}

// GaussianBoxMueller 每步消費 u1、u2 兩個均勻值，
// 輸出 μ + σ²·√(−2 ln u1)·cos(2π u2)。
// 合約要求 σ² ≥ 0；不驗證。
func GaussianBoxMueller[P Floaters](src *dist.Source, mu, sigma2 P) *dist.Distribution[P, P] {
	u := src.Unit()
	return dist.New[P, P](func() P {
		u1 := u()
		u2 := u()
		return mu + sigma2*P(math.Sqrt(-2*math.Log(u1))*math.Cos(2*math.Pi*u2))
	})
}

// GaussianCentral 以中央極限定理近似：12 個均勻值之和減 6 為一個近似
// 標準常態值，再以 σ² 縮放、μ 平移。
func GaussianCentral[P Floaters](src *dist.Source, mu, sigma2 P) *dist.Distribution[P, P] {
	sum12 := dist.AccumN(src.Unit(), 12, 0.0, func(acc, u float64) float64 {
		return acc + u
	})
	return dist.New[P, P](dist.Map(sum12, func(s float64) P {
		return mu + sigma2*P(s-6.0)
	}))
}

// GaussianRejection 以兩條指數序列做拒絕採樣：
// 取 y1, y2 ~ Exp(1)，接受 iff y2 ≥ (y1−1)²/2；接受後 y1 為半常態樣本，
// 再以獨立公平 Bernoulli 決定正負，輸出 μ ± σ²·y1。
// 拒絕時整對丟棄重試，不發射——發射率約為每 1.32 對一值，重試無上界。
func GaussianRejection[P Floaters](src *dist.Source, mu, sigma2 P) *dist.Distribution[P, P] {
	exp := expFunc(src)
	u := src.Unit()

	type expPair struct {
		y1, y2 float64
	}
	pairs := dist.SamplingFunc[expPair](func() expPair {
		return expPair{y1: exp(), y2: exp()}
	})
	accepted := dist.Filter(pairs, func(p expPair) bool {
		return p.y2 >= (p.y1-1)*(p.y1-1)/2
	})
	return dist.New[P, P](dist.Map(accepted, func(p expPair) P {
		if u() <= 0.5 {
			return mu + sigma2*P(p.y1)
		}
		return mu - sigma2*P(p.y1)
	}))
}
