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

package stats_test

import (
	"bytes"
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/zintix-labs/distlab/errs"
	"github.com/zintix-labs/distlab/sdk/core"
	"github.com/zintix-labs/distlab/sdk/dist"
	"github.com/zintix-labs/distlab/sdk/sampler"
	"github.com/zintix-labs/distlab/spec"
	"github.com/zintix-labs/distlab/stats"
)

func newSource(seed int64) *dist.Source {
	return dist.NewSource(core.New(core.NewPCG64WithSeed(seed)))
}

// buildSampleReport constructs a SampleReport from raw values.
func buildSampleReport(values []float64) *stats.SampleReport {
	var sum, sqSum float64
	mn, mx := math.Inf(1), math.Inf(-1)
	collect := make([]int, stats.Buckets.Len())
	for _, v := range values {
		sum += v
		sqSum += v * v
		if v < mn {
			mn = v
		}
		if v > mx {
			mx = v
		}
		collect[stats.Buckets.Index(v)]++
	}
	report := &stats.SampleReport{
		Summary: &stats.SummaryReport{
			DistName: "TestDist",
			DistId:   spec.DID(0),
			Family:   spec.FamilyUniform,
			Draws:    len(values),
			Min:      mn,
			Max:      mx,
		},
		Moments: &stats.MomentReport{Sum: sum, SqSum: sqSum},
		Hist: &stats.HistReport{
			Bucket:  stats.Buckets.Labels(),
			Collect: collect,
		},
	}
	report.Done()
	return report
}

func TestExpectationUnitUniform(t *testing.T) {
	d := sampler.UnitUniform[float64](newSource(11))
	got := stats.Expectation(d, 200000)
	if math.Abs(got-0.5) > 0.005 {
		t.Fatalf("E[U(0,1)] = %.5f, want 0.5 ± 0.005", got)
	}
}

func TestExpectationNormalExponential(t *testing.T) {
	d := sampler.NormalExponential[float64](newSource(12))
	got := stats.Expectation(d, 200000)
	if math.Abs(got-1.0) > 0.02 {
		t.Fatalf("E[Exp(1)] = %.5f, want 1 ± 0.02", got)
	}
}

// TestExpectationDeterministicReplay ensures the fixed summation order makes
// same-seed estimates bitwise reproducible.
func TestExpectationDeterministicReplay(t *testing.T) {
	a := stats.Expectation(sampler.UnitUniform[float64](newSource(13)), 50000)
	b := stats.Expectation(sampler.UnitUniform[float64](newSource(13)), 50000)
	if a != b {
		t.Fatalf("same seed gave %v vs %v", a, b)
	}
}

func TestExpectationZeroDraws(t *testing.T) {
	d := sampler.UnitUniform[float64](newSource(14))
	before := d.Sample()
	if got := stats.Expectation(d, 0); got != 0 {
		t.Fatalf("Expectation(d, 0) = %v, want 0", got)
	}
	if d.Sample() != before {
		t.Fatal("zero-draw estimate must not advance the cursor")
	}
}

func TestExpectationUsingDensityNoDensity(t *testing.T) {
	d := sampler.UnitUniform[float64](newSource(15)) // no density bound
	before := d.Sample()

	_, err := stats.ExpectationUsingDensity(d, 1000)
	if !errors.Is(err, stats.ErrNoDensity) {
		t.Fatalf("err = %v, want ErrNoDensity", err)
	}
	e, ok := errs.AsErr(err)
	if !ok || e.ErrLv != errs.Invalid {
		t.Fatalf("err level = %v, want Invalid", err)
	}
	if d.Sample() != before {
		t.Fatal("failed weighted estimate must not advance the cursor")
	}

	// deterministic failure: same call, same state, same error
	_, err2 := stats.ExpectationUsingDensity(d, 1000)
	if !errors.Is(err2, stats.ErrNoDensity) {
		t.Fatalf("second call err = %v, want ErrNoDensity", err2)
	}
}

func TestExpectationUsingDensityBernoulli(t *testing.T) {
	p := 0.3
	d := sampler.Bernoulli(newSource(16), p)
	got, err := stats.ExpectationUsingDensity(d, 200000)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	// indicator density: E[1{X=true}] = p
	if math.Abs(got-p) > 0.005 {
		t.Fatalf("E[density] = %.5f, want %.2f ± 0.005", got, p)
	}
}

func TestSampleReportCoreMetrics(t *testing.T) {
	rep := buildSampleReport([]float64{1, 2, 3})

	if got := rep.Mean(); math.Abs(got-2.0) > 1e-12 {
		t.Fatalf("Mean got %.12f want 2", got)
	}
	// unbiased variance of {1,2,3} is 1
	if got := rep.Var(); math.Abs(got-1.0) > 1e-12 {
		t.Fatalf("Var got %.12f want 1", got)
	}
	if got := rep.Std(); math.Abs(got-1.0) > 1e-12 {
		t.Fatalf("Std got %.12f want 1", got)
	}
	if got := rep.Cv(); math.Abs(got-0.5) > 1e-12 {
		t.Fatalf("Cv got %.12f want 0.5", got)
	}

	ci := rep.Ci()
	if ci.Lo > rep.Mean() || ci.Hi < rep.Mean() {
		t.Fatalf("CI [%v,%v] must contain the mean", ci.Lo, ci.Hi)
	}

	if rep.Summary.Min != 1 || rep.Summary.Max != 3 {
		t.Fatalf("Min/Max got %v/%v want 1/3", rep.Summary.Min, rep.Summary.Max)
	}
}

func TestSampleReportHistDist(t *testing.T) {
	rep := buildSampleReport([]float64{0, 0, 0.7, 1.5})

	sum := 0.0
	for _, f := range rep.Hist.Dist {
		sum += f
	}
	if math.Abs(sum-1.0) > 1e-12 {
		t.Fatalf("hist fractions sum to %v, want 1", sum)
	}
	// two exact zeros land in the point-mass bucket
	zeroIdx := stats.Buckets.Index(0)
	if rep.Hist.Collect[zeroIdx] != 2 {
		t.Fatalf("point-mass bucket count = %d, want 2", rep.Hist.Collect[zeroIdx])
	}
}

func TestValueBucketsIndex(t *testing.T) {
	labels := stats.Buckets.Labels()
	cases := []struct {
		v    float64
		want string
	}{
		{-100, "(-inf,-10)"},
		{-10, "[-10,-5)"},
		{-0.3, "[-0.5,0)"},
		{0, "[0,0]"},
		{0.3, "(0,0.5)"},
		{0.5, "[0.5,1)"},
		{1, "[1,2)"},
		{7, "[5,10)"},
		{10, "[10,+inf)"},
		{1e9, "[10,+inf)"},
	}
	for _, tc := range cases {
		if got := labels[stats.Buckets.Index(tc.v)]; got != tc.want {
			t.Errorf("Index(%v) -> %s, want %s", tc.v, got, tc.want)
		}
	}
}

func TestEstimateReplicas(t *testing.T) {
	pooledVals := make([]float64, 0, 300)
	reps := make([]*stats.SampleReport, 0, 3)
	base := [][]float64{
		{0.9, 1.0, 1.1},
		{1.0, 1.1, 1.2},
		{0.8, 1.0, 1.2},
	}
	for _, vs := range base {
		reps = append(reps, buildSampleReport(vs))
		pooledVals = append(pooledVals, vs...)
	}
	pooled := buildSampleReport(pooledVals)

	est := stats.EstimateReplicas(pooled, reps)
	if est.Replicas != 3 {
		t.Fatalf("Replicas = %d, want 3", est.Replicas)
	}
	if math.Abs(est.MeanStat.Median.Hat-1.0) > 0.2 {
		t.Fatalf("median of replica means = %v, want ≈ 1", est.MeanStat.Median.Hat)
	}
	cov := est.Coverage.BelowPooled
	if cov.Hat < 0 || cov.Hat > 1 || cov.CI.Lo > cov.Hat || cov.CI.Hi < cov.Hat {
		t.Fatalf("coverage point/CI inconsistent: %+v", cov)
	}
}

func TestEstimateReplicasEmpty(t *testing.T) {
	est := stats.EstimateReplicas(nil, nil)
	if est.Replicas != 0 {
		t.Fatalf("Replicas = %d, want 0", est.Replicas)
	}
}

func TestYAMLRenderFlowStyle(t *testing.T) {
	rep := buildSampleReport([]float64{0.1, 0.6, 1.4})

	var buf bytes.Buffer
	if err := rep.WriteWith(&buf, &stats.YAMLSampleReportRender{}); err != nil {
		t.Fatalf("yaml render err: %v", err)
	}
	out := buf.String()
	// one-dimensional sequences render in flow style
	if !strings.Contains(out, "[") {
		t.Fatalf("expected flow-style sequences in yaml output:\n%s", out)
	}
	if !strings.Contains(out, "distname: TestDist") {
		t.Fatalf("missing summary field in yaml output:\n%s", out)
	}
}

func TestJSONRender(t *testing.T) {
	rep := buildSampleReport([]float64{0.1, 0.6})
	var buf bytes.Buffer
	if err := rep.WriteWith(&buf, &stats.JsonSampleReportRender{}); err != nil {
		t.Fatalf("json render err: %v", err)
	}
	if !strings.Contains(buf.String(), `"DistName":"TestDist"`) {
		t.Fatalf("unexpected json output: %s", buf.String())
	}
}
