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

// Package dist 定義 distlab 的核心抽象：
//   - SamplingFunc[T]：惰性、有狀態、只進不退的無限取樣序列。
//   - 組合子：Map / AccumN / Filter / Take。
//   - Density[T,P]：值 → 機率/權重 的純函數（可缺省）。
//   - Distribution[T,P]：一條取樣序列 + 可選密度，為建構與消費的最小單位。
//
// 本檔案 (define.go) 定義套件中通用的泛型約束 (Generic Constraints)。
//
// 目的：
//   - 估計器要能泛化在「機率表示型別」P 上（float32 / float64 / 自定義浮點別名），
//     所以把「數值-like」收斂成明確的約束，而不是到處寫死 float64。
package dist

// Integers 定義所有底層實現為整數型別的集合
type Integers interface {
	~int | ~int8 | ~int16 | ~int32 | ~int64 | ~uint | ~uint8 | ~uint16 | ~uint32 | ~uint64 | ~uintptr
}

// Floaters 定義所有底層實現為浮點數型別的集合
//
// 機率表示型別 P 的約束：支援零值、加法、整數計數轉換與除法，
// 對應估計器需要的最小數值合約。
type Floaters interface {
	~float32 | ~float64
}

// Numbers 定義所有底層實現為數值型別的集合（整數與浮點數）
type Numbers interface {
	Integers | Floaters
}
