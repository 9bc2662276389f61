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

// BayesRejection 是通用的接受-拒絕變換：把提案分布 q 重塑成目標密度 p。
//
// 每次嘗試：
//  1. 取一個控制均勻值 u 與一個提案值 x（推進 q 一步）。
//  2. u < p(x)/c 則發射 x；否則丟棄並重試。
//
// 回傳的分布綁定 p 為其密度，定義域沿用提案的定義域。
//
// 合約（不驗證，違反時靜默偏誤輸出）：
//   - c > 0。
//   - 在 q 的支撐上 p(x) ≤ c（包絡常數）。
//
// 發射率為 E[p(x)]/c，低於每步一值；重試迴圈無上界、almost surely 有限。
// 需要硬超時由 serving 邊界包裝，核心不內建取消。
func BayesRejection[T any, P Floaters](src *dist.Source, density dist.Density[T, P], c P, proposal *dist.Distribution[T, P]) *dist.Distribution[T, P] {
	next := func() T {
		for {
			u := src.Next()
			x := proposal.NextSample()
			if P(u) < density(x)/c {
				return x
			}
		}
	}
	return dist.NewWithDensity(dist.SamplingFunc[T](next), density)
}
