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

// Package sampler 是參數化分布家族的目錄（catalog）：每個建構子由均勻來源
// （直接或間接）組裝一條取樣序列，回傳綁定完成的 dist.Distribution。
//
// 共同合約：
//   - 目錄「不」驗證參數。超界輸入（p ∉ [0,1]、σ² < 0、c ≤ 0、密度超出包絡）
//     靜默產生無意義輸出而不是回報錯誤——這是文件化的呼叫端責任，
//     為了與參考演算法的既有行為相容，請勿在這裡補驗證。
//   - 每個建構子消費的都是注入的同一條均勻流；由同一個 Source 派生的分布
//     交錯使用時彼此不統計獨立（by construction）。
//
// 本檔案 (define.go) 收斂本包簽章使用的泛型約束別名。
package sampler

import "github.com/zintix-labs/distlab/sdk/dist"

// Floaters 是 dist.Floaters 的別名：機率表示型別 P 的約束。
type Floaters = dist.Floaters

// Numbers 是 dist.Numbers 的別名，供需要數值域的輔助函數使用。
type Numbers = dist.Numbers
