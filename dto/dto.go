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

package dto

import (
	"github.com/zintix-labs/distlab/corefmt"
	"github.com/zintix-labs/distlab/spec"
)

// DrawResult 為對外輸出的取樣結果序列化結構。
//
// Values 一律是 float64 映射後的樣本值（bool → 0/1、int → float），
// 讓所有家族共用同一個 serving 介面。
type DrawResult struct {
	DistName string      `json:"dist"`   // 分布名稱
	DistID   spec.DID    `json:"did"`    // 分布編號
	Family   spec.Family `json:"family"` // 取樣家族
	Draws    int         `json:"draws"`  // 本次取樣步數
	Values   []float64   `json:"values"` // 樣本值（依序）
	State    DrawState   `json:"draw_state"`
}

// EstimateResult 為對外輸出的期望估計結果。
type EstimateResult struct {
	DistName    string      `json:"dist"`
	DistID      spec.DID    `json:"did"`
	Family      spec.Family `json:"family"`
	Draws       int         `json:"draws"`
	UseDensity  bool        `json:"use_density"`
	Expectation float64     `json:"expectation"`
	State       DrawState   `json:"draw_state"`
}

// DrawState 是回應端必回的審計狀態。
//
//   - start_b64u：本次取樣前的 Core 快照，回放入口。
//   - after_b64u：本次取樣後的 Core 快照，續抽入口。
type DrawState struct {
	StartCoreSnapB64U string `json:"start_b64u"` // 必回
	AfterCoreSnapB64U string `json:"after_b64u"` // 必回
}

// NewDrawState 由 start/after 快照建立審計狀態。
func NewDrawState(start, after []byte) DrawState {
	return DrawState{
		StartCoreSnapB64U: corefmt.EncodeBase64URL(start),
		AfterCoreSnapB64U: corefmt.EncodeBase64URL(after),
	}
}
