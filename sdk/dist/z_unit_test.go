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
	"testing"

	"github.com/zintix-labs/distlab/sdk/core"
)

// counterFunc 回傳一個從 1 開始遞增的游標，並以 *pulls 記錄底層被消費的次數。
func counterFunc(pulls *int) SamplingFunc[int] {
	n := 0
	return func() int {
		*pulls++
		n++
		return n
	}
}

// TestDistConstructionAdvance 驗證建構即推進一次：
// Sample() 在建構後立刻有定義，且未再推進前維持同值。
func TestDistConstructionAdvance(t *testing.T) {
	pulls := 0
	d := New[int, float64](counterFunc(&pulls))

	if pulls != 1 {
		t.Fatalf("construction should advance exactly once, pulled %d", pulls)
	}
	if got := d.Sample(); got != 1 {
		t.Fatalf("Sample() after construction = %d, want 1", got)
	}
	// Sample() 不推進
	for i := 0; i < 3; i++ {
		if got := d.Sample(); got != 1 {
			t.Fatalf("repeated Sample() = %d, want 1", got)
		}
	}
	if pulls != 1 {
		t.Fatalf("Sample() must not advance, pulled %d", pulls)
	}

	if got := d.NextSample(); got != 2 {
		t.Fatalf("NextSample() = %d, want 2", got)
	}
	if got := d.Sample(); got != 2 {
		t.Fatalf("Sample() after NextSample() = %d, want 2", got)
	}
}

// TestSharedCursor 驗證共享即共線：同一個 SamplingFunc 交給兩個持有者，
// 雙方交錯消費的是同一條邏輯序列。
func TestSharedCursor(t *testing.T) {
	pulls := 0
	s := counterFunc(&pulls)
	a, b := s, s

	if v := a(); v != 1 {
		t.Fatalf("a() = %d, want 1", v)
	}
	if v := b(); v != 2 {
		t.Fatalf("b() = %d, want 2 (shared stream)", v)
	}
	if v := a(); v != 3 {
		t.Fatalf("a() = %d, want 3 (shared stream)", v)
	}
}

// TestMapConsumesOnePerOutput 驗證 Map 每輸出一值恰好消費底層一值，且為惰性。
func TestMapConsumesOnePerOutput(t *testing.T) {
	pulls := 0
	m := Map(counterFunc(&pulls), func(n int) int { return n * 10 })

	if pulls != 0 {
		t.Fatalf("Map must be lazy, pulled %d before first output", pulls)
	}
	if v := m(); v != 10 {
		t.Fatalf("m() = %d, want 10", v)
	}
	if v := m(); v != 20 {
		t.Fatalf("m() = %d, want 20", v)
	}
	if pulls != 2 {
		t.Fatalf("Map pulled %d, want 2", pulls)
	}
}

// TestAccumNConsumesKPerOutput 驗證 AccumN 每輸出一值消費底層 k 個值，
// 且 zero 是「每次輸出」的累積起點。
func TestAccumNConsumesKPerOutput(t *testing.T) {
	pulls := 0
	sum3 := AccumN(counterFunc(&pulls), 3, 0, func(acc, v int) int { return acc + v })

	if v := sum3(); v != 1+2+3 {
		t.Fatalf("first sum = %d, want 6", v)
	}
	if v := sum3(); v != 4+5+6 {
		t.Fatalf("second sum = %d, want 15 (zero resets per output)", v)
	}
	if pulls != 6 {
		t.Fatalf("AccumN pulled %d, want 6", pulls)
	}
}

// TestFilterDropsRejected 驗證 Filter 丟棄未通過的值且不提早預取。
func TestFilterDropsRejected(t *testing.T) {
	pulls := 0
	even := Filter(counterFunc(&pulls), func(n int) bool { return n%2 == 0 })

	if pulls != 0 {
		t.Fatalf("Filter must be lazy, pulled %d before first output", pulls)
	}
	if v := even(); v != 2 {
		t.Fatalf("even() = %d, want 2", v)
	}
	if pulls != 2 {
		t.Fatalf("Filter pulled %d, want 2 (1 rejected + 1 accepted)", pulls)
	}
	if v := even(); v != 4 {
		t.Fatalf("even() = %d, want 4", v)
	}
}

// TestTakeLazyBreak 驗證 Take 的惰性：中途 break 不會多推進底層序列。
func TestTakeLazyBreak(t *testing.T) {
	pulls := 0
	seq := Take(counterFunc(&pulls), 100)

	got := make([]int, 0, 3)
	for v := range seq {
		got = append(got, v)
		if len(got) == 3 {
			break
		}
	}
	if pulls != 3 {
		t.Fatalf("Take pulled %d after break at 3, want 3", pulls)
	}
	if got[0] != 1 || got[1] != 2 || got[2] != 3 {
		t.Fatalf("Take prefix = %v, want [1 2 3]", got)
	}
}

// TestSamplesSharesCursor 驗證 Samples(n) 與 NextSample() 共用游標：
// 混用時在同一條序列上交錯前進。
func TestSamplesSharesCursor(t *testing.T) {
	pulls := 0
	d := New[int, float64](counterFunc(&pulls)) // 建構吃掉 1

	seen := make([]int, 0, 2)
	for v := range d.Samples(2) {
		seen = append(seen, v)
	}
	if seen[0] != 2 || seen[1] != 3 {
		t.Fatalf("Samples(2) = %v, want [2 3]", seen)
	}
	if v := d.NextSample(); v != 4 {
		t.Fatalf("NextSample() after Samples = %d, want 4 (shared cursor)", v)
	}
}

// TestSourceUnitRange 驗證均勻來源輸出落在 [0,1)。
func TestSourceUnitRange(t *testing.T) {
	src := NewSource(core.New(core.NewPCG64WithSeed(20250901)))
	u := src.Unit()
	for i := 0; i < 100000; i++ {
		v := u()
		if v < 0 || v >= 1 {
			t.Fatalf("unit sample out of [0,1): %v", v)
		}
	}
}

// TestSourceSharedStream 驗證 Unit() 游標與 Source.Next() 共線。
func TestSourceSharedStream(t *testing.T) {
	a := NewSource(core.New(core.NewPCG64WithSeed(7)))
	b := NewSource(core.New(core.NewPCG64WithSeed(7)))

	// a: 交錯消費；b: 純 Next。兩邊序列必須完全一致。
	ua := a.Unit()
	for i := 0; i < 64; i++ {
		var va float64
		if i%2 == 0 {
			va = ua()
		} else {
			va = a.Next()
		}
		if vb := b.Next(); va != vb {
			t.Fatalf("step %d: interleaved=%v plain=%v", i, va, vb)
		}
	}
}
