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

import "iter"

// Density 將值映射為機率/權重的純函數。
// 缺省（nil）語意為「原始樣本視為單位權重」。
type Density[T any, P Floaters] func(T) P

// Distribution 綁定一條取樣序列與可選密度，是建構與消費的最小單位。
//
// 建構後除游標推進狀態外不可變；不需顯式銷毀。
//
// 游標語意（重要）：
//   - 建構即推進一次：Sample() 在建構完成後立刻有定義，
//     等於序列將產生的第一個值。
//   - NextSample() 推進並回傳新值；Sample() 讀取當前值、不推進。
//   - Samples(n) 與 NextSample() 共用同一個游標：混用時在同一條全域序列上
//     交錯前進，沒有 replay。
//
// 並發語意：單一邏輯執行緒。與底層 Source 相同，需要併發時由外層包裝。
type Distribution[T any, P Floaters] struct {
	next    SamplingFunc[T]
	cur     T
	density Density[T, P]
}

// New 以取樣序列建構分布（無密度），並執行一次強制推進。
func New[T any, P Floaters](next SamplingFunc[T]) *Distribution[T, P] {
	return NewWithDensity[T, P](next, nil)
}

// NewWithDensity 以取樣序列與密度建構分布，並執行一次強制推進。
func NewWithDensity[T any, P Floaters](next SamplingFunc[T], density Density[T, P]) *Distribution[T, P] {
	d := &Distribution[T, P]{
		next:    next,
		density: density,
	}
	d.cur = next()
	return d
}

// NextSample 推進游標並回傳新值。
func (d *Distribution[T, P]) NextSample() T {
	d.cur = d.next()
	return d.cur
}

// Sample 回傳當前值，不推進。
func (d *Distribution[T, P]) Sample() T {
	return d.cur
}

// Density 回傳綁定的密度；nil 表示缺省。
func (d *Distribution[T, P]) Density() Density[T, P] {
	return d.density
}

// Samples 回傳長度上限 n 的惰性有界前綴。
// 每個元素消費時推進共享游標一步（等價於連續 n 次 NextSample）。
func (d *Distribution[T, P]) Samples(n int) iter.Seq[T] {
	return Take(SamplingFunc[T](d.NextSample), n)
}
