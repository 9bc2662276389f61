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

// UnitUniform 每步輸出均勻來源的一個 u ∈ [0,1)。
func UnitUniform[P Floaters](src *dist.Source) *dist.Distribution[P, P] {
	return dist.New[P, P](dist.Map(src.Unit(), func(u float64) P {
		return P(u)
	}))
}

// Uniform 輸出 a + u·(b−a)，即 [a,b) 上的均勻分布。
// 合約要求 a < b；不驗證，a >= b 時輸出無意義。
func Uniform[P Floaters](src *dist.Source, a, b P) *dist.Distribution[P, P] {
	return dist.New[P, P](dist.Map(src.Unit(), func(u float64) P {
		return a + P(u)*(b-a)
	}))
}

// PointUniform 輸出：u < 0.5 時為 0.0，否則為 u。
//
// 這是刻意保留的「非密度一致」家族：一半機率坍縮到點 0.0，
// 另一半照常輸出 [0.5,1) 的均勻值。僅供展示點質量與連續段混合的邊界案例。
func PointUniform[P Floaters](src *dist.Source) *dist.Distribution[P, P] {
	return dist.New[P, P](dist.Map(src.Unit(), func(u float64) P {
		if u < 0.5 {
			return 0.0
		}
		return P(u)
	}))
}
