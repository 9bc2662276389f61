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
	"math"
	"testing"

	"github.com/zintix-labs/distlab/sdk/core"
	"github.com/zintix-labs/distlab/sdk/dist"
)

// -----------------------------------------------------------------------------
// Helper Functions
// -----------------------------------------------------------------------------

// newTestSource 以固定 seed 建立均勻來源，讓統計檢定可重現。
func newTestSource(seed int64) *dist.Source {
	return dist.NewSource(core.New(core.NewPCG64WithSeed(seed)))
}

// assertPanic 驗證函數是否如預期觸發 panic
func assertPanic(t *testing.T, f func(), msg string) {
	t.Helper()
	defer func() {
		if r := recover(); r == nil {
			t.Errorf("expected panic for %s, but got none", msg)
		}
	}()
	f()
}

// meanVar 回傳樣本平均與（母體）變異數。
func meanVar(xs []float64) (float64, float64) {
	n := float64(len(xs))
	sum := 0.0
	for _, x := range xs {
		sum += x
	}
	mean := sum / n
	sq := 0.0
	for _, x := range xs {
		d := x - mean
		sq += d * d
	}
	return mean, sq / n
}

// drawFloats 連續推進 n 步並收集輸出。
func drawFloats(d *dist.Distribution[float64, float64], n int) []float64 {
	out := make([]float64, 0, n)
	for v := range d.Samples(n) {
		out = append(out, v)
	}
	return out
}

// checkMoments 以固定容差檢查樣本動差（容差已放寬到 4 個標準誤以上）。
func checkMoments(t *testing.T, name string, xs []float64, wantMean, wantVar, tolMean, tolVar float64) {
	t.Helper()
	mean, v := meanVar(xs)
	if math.Abs(mean-wantMean) > tolMean {
		t.Errorf("[%s] mean = %.5f, want %.5f ± %.5f", name, mean, wantMean, tolMean)
	}
	if math.Abs(v-wantVar) > tolVar {
		t.Errorf("[%s] var = %.5f, want %.5f ± %.5f", name, v, wantVar, tolVar)
	}
}

// -----------------------------------------------------------------------------
// Uniform Family
// -----------------------------------------------------------------------------

func TestUnitUniform(t *testing.T) {
	d := UnitUniform[float64](newTestSource(101))
	xs := drawFloats(d, 200000)
	for _, x := range xs {
		if x < 0 || x >= 1 {
			t.Fatalf("sample out of [0,1): %v", x)
		}
	}
	// U(0,1): mean 1/2, var 1/12
	checkMoments(t, "UnitUniform", xs, 0.5, 1.0/12.0, 0.005, 0.005)
}

func TestUniformAffine(t *testing.T) {
	a, b := -3.0, 5.0
	d := Uniform(newTestSource(102), a, b)
	xs := drawFloats(d, 200000)
	for _, x := range xs {
		if x < a || x >= b {
			t.Fatalf("sample out of [%v,%v): %v", a, b, x)
		}
	}
	// U(a,b): mean (a+b)/2, var (b-a)^2/12
	checkMoments(t, "Uniform", xs, 1.0, 64.0/12.0, 0.05, 0.2)
}

func TestPointUniform(t *testing.T) {
	d := PointUniform[float64](newTestSource(103))
	n := 200000
	zeros := 0
	for x := range d.Samples(n) {
		switch {
		case x == 0.0:
			zeros++
		case x >= 0.5 && x < 1.0:
			// continuous half
		default:
			t.Fatalf("sample neither 0.0 nor in [0.5,1): %v", x)
		}
	}
	rate := float64(zeros) / float64(n)
	if math.Abs(rate-0.5) > 0.005 {
		t.Errorf("point-mass rate = %.4f, want 0.5 ± 0.005", rate)
	}
}

// -----------------------------------------------------------------------------
// Discrete Family
// -----------------------------------------------------------------------------

func TestBernoulliRate(t *testing.T) {
	p := 0.3
	d := Bernoulli(newTestSource(201), p)
	n := 200000
	hits := 0
	for b := range d.Samples(n) {
		if b {
			hits++
		}
	}
	rate := float64(hits) / float64(n)
	if math.Abs(rate-p) > 0.005 {
		t.Errorf("hit rate = %.4f, want %.4f ± 0.005", rate, p)
	}

	den := d.Density()
	if den == nil {
		t.Fatal("Bernoulli must bind an indicator density")
	}
	if den(true) != 1.0 || den(false) != 0.0 {
		t.Errorf("indicator density = (%v, %v), want (1, 0)", den(true), den(false))
	}
}

func TestBinomialMoments(t *testing.T) {
	d := Binomial(newTestSource(202), 0.4, 10)
	n := 100000
	xs := make([]float64, 0, n)
	for k := range d.Samples(n) {
		if k < 0 || k > 10 {
			t.Fatalf("count out of [0,10]: %d", k)
		}
		xs = append(xs, float64(k))
	}
	// Bin(10, 0.4): mean np = 4, var np(1-p) = 2.4
	checkMoments(t, "Binomial", xs, 4.0, 2.4, 0.03, 0.1)
}

func TestBinomialZeroTrials(t *testing.T) {
	d := Binomial(newTestSource(203), 0.9, 0)
	for k := range d.Samples(100) {
		if k != 0 {
			t.Fatalf("zero-trial count = %d, want 0", k)
		}
	}
}

func TestGeometricMean(t *testing.T) {
	p := 0.5
	d := Geometric(newTestSource(204), p)
	n := 100000
	xs := make([]float64, 0, n)
	for k := range d.Samples(n) {
		if k < 0 {
			t.Fatalf("negative run length: %d", k)
		}
		xs = append(xs, float64(k))
	}
	// 首次失敗前的連續成功次數: mean p/(1-p) = 1, var p/(1-p)^2 = 2
	checkMoments(t, "Geometric", xs, 1.0, 2.0, 0.03, 0.15)
}

func TestCategoricalFrequencies(t *testing.T) {
	weights := []int{1, 2, 3, 4}
	d := Categorical[float64](newTestSource(205), weights)
	n := 200000
	counts := make([]int, len(weights))
	for i := range d.Samples(n) {
		if i < 0 || i >= len(weights) {
			t.Fatalf("index out of range: %d", i)
		}
		counts[i]++
	}
	for i, w := range weights {
		want := float64(w) / 10.0
		got := float64(counts[i]) / float64(n)
		if math.Abs(got-want) > 0.01 {
			t.Errorf("index %d: freq %.4f, want %.4f ± 0.01", i, got, want)
		}
	}

	den := d.Density()
	if den(2) != 0.3 {
		t.Errorf("density(2) = %v, want 0.3", den(2))
	}
	if den(-1) != 0.0 || den(4) != 0.0 {
		t.Error("out-of-range density must be 0")
	}
}

// -----------------------------------------------------------------------------
// Gaussian Family
// -----------------------------------------------------------------------------

func TestNormalExponential(t *testing.T) {
	d := NormalExponential[float64](newTestSource(301))
	xs := drawFloats(d, 200000)
	for _, x := range xs {
		if x < 0 {
			t.Fatalf("negative exponential sample: %v", x)
		}
	}
	// Exp(1): mean 1, var 1
	checkMoments(t, "NormalExponential", xs, 1.0, 1.0, 0.02, 0.1)
}

func TestGaussianMoments(t *testing.T) {
	// σ² 依參考演算法直接作為縮放因子使用，輸出變異數為 σ²·σ²。
	cases := []struct {
		name       string
		build      func(src *dist.Source, mu, sigma2 float64) *dist.Distribution[float64, float64]
		mu, sigma2 float64
	}{
		{"BoxMueller", GaussianBoxMueller[float64], 0.0, 1.0},
		{"BoxMueller-shifted", GaussianBoxMueller[float64], 2.0, 0.5},
		{"Central", GaussianCentral[float64], 0.0, 1.0},
		{"Rejection", GaussianRejection[float64], 0.0, 1.0},
		{"Rejection-shifted", GaussianRejection[float64], -1.0, 2.0},
	}
	for i, tc := range cases {
		d := tc.build(newTestSource(302+int64(i)), tc.mu, tc.sigma2)
		xs := drawFloats(d, 200000)
		wantVar := tc.sigma2 * tc.sigma2
		checkMoments(t, tc.name, xs, tc.mu, wantVar, 0.03, 0.1)
	}
}

func TestGaussianDeterministicReplay(t *testing.T) {
	a := GaussianBoxMueller(newTestSource(42), 0.0, 1.0)
	b := GaussianBoxMueller(newTestSource(42), 0.0, 1.0)
	if a.Sample() != b.Sample() {
		t.Fatal("same seed must give same construction advance")
	}
	for i := 0; i < 1000; i++ {
		if va, vb := a.NextSample(), b.NextSample(); va != vb {
			t.Fatalf("step %d: %v != %v", i, va, vb)
		}
	}
}

// -----------------------------------------------------------------------------
// Bayes Rejection
// -----------------------------------------------------------------------------

// TestBayesRejectionTriangular 以三角密度 p(x)=2x on [0,1)、包絡常數 c=2、
// 均勻提案驗證拒絕變換：mean 2/3、var 1/18。
func TestBayesRejectionTriangular(t *testing.T) {
	src := newTestSource(401)
	triangular := func(x float64) float64 { return 2 * x }
	d := BayesRejection(src, triangular, 2.0, Uniform(src, 0.0, 1.0))

	xs := drawFloats(d, 100000)
	for _, x := range xs {
		if x < 0 || x >= 1 {
			t.Fatalf("sample out of [0,1): %v", x)
		}
	}
	checkMoments(t, "BayesRejection", xs, 2.0/3.0, 1.0/18.0, 0.01, 0.01)

	den := d.Density()
	if den == nil {
		t.Fatal("rejection output must bind the target density")
	}
	if den(0.25) != 0.5 {
		t.Errorf("density(0.25) = %v, want 0.5", den(0.25))
	}
}

// -----------------------------------------------------------------------------
// Alias Table
// -----------------------------------------------------------------------------

func TestBuildAliasTableRejectsBadWeights(t *testing.T) {
	assertPanic(t, func() { BuildAliasTable([]int{1, -2, 3}) }, "negative weight")
	assertPanic(t, func() { BuildAliasTable([]int{0, 0, 0}) }, "all-zero weights")
	assertPanic(t, func() { BuildAliasTable([]int{math.MaxInt, math.MaxInt}) }, "total overflow")
}

func TestAliasTableEmpty(t *testing.T) {
	at := BuildAliasTable(nil)
	c := core.New(core.NewPCG64WithSeed(1))
	if got := at.Pick(c); got != -1 {
		t.Fatalf("empty table Pick = %d, want -1", got)
	}
}

func TestAliasTableZeroWeightNeverPicked(t *testing.T) {
	at := BuildAliasTable([]int{5, 0, 5})
	c := core.New(core.NewPCG64WithSeed(2))
	for i := 0; i < 50000; i++ {
		if at.Pick(c) == 1 {
			t.Fatal("zero-weight index must never be picked")
		}
	}
}

// -----------------------------------------------------------------------------
// Stream Contract
// -----------------------------------------------------------------------------

// TestConstructionAdvanceConsumesSource 驗證建構推進確實消費共享熵流一步。
func TestConstructionAdvanceConsumesSource(t *testing.T) {
	src := newTestSource(501)
	ref := newTestSource(501)

	first := ref.Next()
	second := ref.Next()

	d := UnitUniform[float64](src) // 建構吃掉第一個均勻值
	if d.Sample() != first {
		t.Fatalf("construction advance = %v, want first uniform %v", d.Sample(), first)
	}
	if got := src.Next(); got != second {
		t.Fatalf("stream position after construction = %v, want %v", got, second)
	}
}

// TestSharedSourceInterleaving 驗證同源分布交錯消費同一條熵流：
// 兩個分布輪流推進時，合併序列等於直接讀取來源的序列。
func TestSharedSourceInterleaving(t *testing.T) {
	src := newTestSource(502)
	ref := newTestSource(502)

	a := UnitUniform[float64](src) // 吃掉 ref[0]
	b := UnitUniform[float64](src) // 吃掉 ref[1]
	ref.Next()
	ref.Next()

	for i := 0; i < 100; i++ {
		if va := a.NextSample(); va != ref.Next() {
			t.Fatalf("step %d: a out of sync", i)
		}
		if vb := b.NextSample(); vb != ref.Next() {
			t.Fatalf("step %d: b out of sync", i)
		}
	}
}
