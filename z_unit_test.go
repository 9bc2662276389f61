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

package distlab_test

import (
	"context"
	"errors"
	"math"
	"testing"
	"testing/fstest"

	"github.com/zintix-labs/distlab"
	"github.com/zintix-labs/distlab/dto"
	"github.com/zintix-labs/distlab/errs"
	"github.com/zintix-labs/distlab/sdk/core"
	"github.com/zintix-labs/distlab/spec"
	"github.com/zintix-labs/distlab/stats"
)

// ============================================================
// ** helpers **
// ============================================================

func cfgFS(files map[string]string) fstest.MapFS {
	m := fstest.MapFS{}
	for name, body := range files {
		m[name] = &fstest.MapFile{Data: []byte(body)}
	}
	return m
}

// testConfigs 覆蓋常用家族；DID 固定方便斷言。
func testConfigs() fstest.MapFS {
	return cfgFS(map[string]string{
		"unit.yaml": `
dist_name: unit
dist_id: 1
family: unit_uniform
`,
		"coin.yaml": `
dist_name: coin
dist_id: 2
family: bernoulli
params:
  p: 0.3
`,
		"span.yaml": `
dist_name: span
dist_id: 3
family: uniform
params:
  a: -1.0
  b: 1.0
`,
		"bell.yaml": `
dist_name: bell
dist_id: 4
family: gaussian_box_mueller
params:
  mu: 0.0
  sigma2: 1.0
`,
		"loot.yaml": `
dist_name: loot
dist_id: 5
family: categorical
params:
  weights: [1, 2, 3, 4]
`,
	})
}

func newTestLab(t *testing.T) *distlab.Lab {
	t.Helper()
	lab, err := distlab.NewAuto(core.Default(), distlab.Configs(testConfigs()))
	if err != nil {
		t.Fatalf("new lab: %v", err)
	}
	return lab
}

// ============================================================
// ** Lab 組裝 **
// ============================================================

func TestLabRegisterAll(t *testing.T) {
	lab := newTestLab(t)

	ids := lab.IDs()
	if len(ids) != 5 {
		t.Fatalf("want 5 dists, got %d", len(ids))
	}

	ent, ok := lab.EntryById(spec.DID(2))
	if !ok || ent.Name != "coin" {
		t.Fatalf("entry by id: %+v ok=%v", ent, ok)
	}
	ent, ok = lab.EntryByName("COIN") // 名稱查表大小寫不敏感
	if !ok || ent.DID != spec.DID(2) {
		t.Fatalf("entry by name: %+v ok=%v", ent, ok)
	}

	sum, err := lab.Summary()
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	if len(sum) != 5 {
		t.Fatalf("summary len: %d", len(sum))
	}
	for _, s := range sum {
		if s.Family == "" {
			t.Fatalf("summary missing family: %+v", s)
		}
	}
}

func TestLabRejectsDuplicateID(t *testing.T) {
	fs := cfgFS(map[string]string{
		"a.yaml": "dist_name: a\ndist_id: 1\nfamily: unit_uniform\n",
		"b.yaml": "dist_name: b\ndist_id: 1\nfamily: point_uniform\n",
	})
	if _, err := distlab.NewAuto(core.Default(), distlab.Configs(fs)); err == nil {
		t.Fatal("expected duplicate id error")
	}
}

func TestLabRejectsBadParams(t *testing.T) {
	cases := map[string]string{
		"uniform a>=b":    "dist_name: x\ndist_id: 1\nfamily: uniform\nparams:\n  a: 2.0\n  b: 1.0\n",
		"bernoulli p>1":   "dist_name: x\ndist_id: 1\nfamily: bernoulli\nparams:\n  p: 1.5\n",
		"geometric p=0":   "dist_name: x\ndist_id: 1\nfamily: geometric\nparams:\n  p: 0.0\n",
		"gaussian neg s2":  "dist_name: x\ndist_id: 1\nfamily: gaussian_central\nparams:\n  mu: 0.0\n  sigma2: -1.0\n",
		"categorical zero": "dist_name: x\ndist_id: 1\nfamily: categorical\nparams:\n  weights: [0, 0]\n",
		"unknown field":    "dist_name: x\ndist_id: 1\nfamily: bernoulli\nparams:\n  pp: 0.5\n",
		"unknown family":   "dist_name: x\ndist_id: 1\nfamily: weibull\n",
	}
	for name, body := range cases {
		fs := cfgFS(map[string]string{"x.yaml": body})
		if _, err := distlab.NewAuto(core.Default(), distlab.Configs(fs)); err == nil {
			t.Fatalf("%s: expected register error", name)
		}
	}
}

// ============================================================
// ** Bench **
// ============================================================

func TestBenchDrawDeterministic(t *testing.T) {
	lab := newTestLab(t)

	b1, err := lab.NewBenchWithSeed(spec.DID(3), 12345)
	if err != nil {
		t.Fatalf("new bench: %v", err)
	}
	b2, err := lab.NewBenchWithSeed(spec.DID(3), 12345)
	if err != nil {
		t.Fatalf("new bench: %v", err)
	}

	req := &dto.DrawRequest{UID: "t", DistName: "span", DistId: spec.DID(3), Draws: 32}
	r1, err := b1.Draw(req)
	if err != nil {
		t.Fatalf("draw: %v", err)
	}
	r2, err := b2.Draw(req)
	if err != nil {
		t.Fatalf("draw: %v", err)
	}
	if len(r1.Values) != 32 || len(r2.Values) != 32 {
		t.Fatalf("draw lengths: %d %d", len(r1.Values), len(r2.Values))
	}
	for i := range r1.Values {
		if r1.Values[i] != r2.Values[i] {
			t.Fatalf("same seed diverged at %d: %v vs %v", i, r1.Values[i], r2.Values[i])
		}
		if r1.Values[i] < -1 || r1.Values[i] >= 1 {
			t.Fatalf("uniform out of range: %v", r1.Values[i])
		}
	}
	if r1.Family != spec.FamilyUniform {
		t.Fatalf("family: %s", r1.Family)
	}
}

func TestBenchDrawValid(t *testing.T) {
	lab := newTestLab(t)
	b, err := lab.NewBenchWithSeed(spec.DID(2), 1)
	if err != nil {
		t.Fatalf("new bench: %v", err)
	}

	bad := []*dto.DrawRequest{
		{DistName: "coin", DistId: spec.DID(99), Draws: 1}, // id 不匹配
		{DistName: "nope", DistId: spec.DID(2), Draws: 1},  // 名稱不匹配
		{DistName: "coin", DistId: spec.DID(2), Draws: 0},  // 步數非法
	}
	for i, req := range bad {
		if _, err := b.Draw(req); err == nil {
			t.Fatalf("case %d: expected validation error", i)
		}
	}
}

func TestBenchDrawReplay(t *testing.T) {
	lab := newTestLab(t)
	b, err := lab.NewBenchWithSeed(spec.DID(4), 777)
	if err != nil {
		t.Fatalf("new bench: %v", err)
	}

	req := &dto.DrawRequest{DistName: "bell", DistId: spec.DID(4), Draws: 16}
	first, err := b.Draw(req)
	if err != nil {
		t.Fatalf("draw: %v", err)
	}

	// 以回傳的 start 快照回放：同一批樣本必須重現
	replayReq := &dto.DrawRequest{
		DistName:   "bell",
		DistId:     spec.DID(4),
		Draws:      16,
		StartState: &dto.StartState{StartCoreSnapB64U: first.State.StartCoreSnapB64U},
	}
	replay, err := b.Draw(replayReq)
	if err != nil {
		t.Fatalf("replay draw: %v", err)
	}
	for i := range first.Values {
		if first.Values[i] != replay.Values[i] {
			t.Fatalf("replay diverged at %d", i)
		}
	}
	if replay.State.StartCoreSnapB64U != first.State.StartCoreSnapB64U {
		t.Fatal("replay must echo the provided start snapshot")
	}

	// 以 after 快照續抽：起點必須等於上一批的 after
	resumeReq := &dto.DrawRequest{
		DistName:   "bell",
		DistId:     spec.DID(4),
		Draws:      8,
		StartState: &dto.StartState{StartCoreSnapB64U: first.State.AfterCoreSnapB64U},
	}
	resume, err := b.Draw(resumeReq)
	if err != nil {
		t.Fatalf("resume draw: %v", err)
	}
	if resume.State.StartCoreSnapB64U != first.State.AfterCoreSnapB64U {
		t.Fatal("resume must start from the previous after snapshot")
	}
}

// 外部回放不得污染 Bench 自己的熵流：
// 先記下「不帶狀態會抽到什麼」，插入一次外部回放後再抽，結果必須一樣。
func TestBenchDrawReplayDoesNotPolluteCursor(t *testing.T) {
	lab := newTestLab(t)
	seed := int64(424242)

	// 參考序列：連續兩批各 8 抽
	ref, err := lab.NewBenchWithSeed(spec.DID(1), seed)
	if err != nil {
		t.Fatalf("new bench: %v", err)
	}
	req8 := &dto.DrawRequest{DistName: "unit", DistId: spec.DID(1), Draws: 8}
	refA, err := ref.Draw(req8)
	if err != nil {
		t.Fatalf("draw: %v", err)
	}
	refB, err := ref.Draw(req8)
	if err != nil {
		t.Fatalf("draw: %v", err)
	}

	// 受測序列：兩批之間插入一次外部回放
	b, err := lab.NewBenchWithSeed(spec.DID(1), seed)
	if err != nil {
		t.Fatalf("new bench: %v", err)
	}
	gotA, err := b.Draw(req8)
	if err != nil {
		t.Fatalf("draw: %v", err)
	}
	if _, err := b.Draw(&dto.DrawRequest{
		DistName:   "unit",
		DistId:     spec.DID(1),
		Draws:      8,
		StartState: &dto.StartState{StartCoreSnapB64U: gotA.State.StartCoreSnapB64U},
	}); err != nil {
		t.Fatalf("replay: %v", err)
	}
	gotB, err := b.Draw(req8)
	if err != nil {
		t.Fatalf("draw: %v", err)
	}

	for i := range refA.Values {
		if refA.Values[i] != gotA.Values[i] {
			t.Fatalf("batch A diverged at %d", i)
		}
	}
	for i := range refB.Values {
		if refB.Values[i] != gotB.Values[i] {
			t.Fatalf("batch B diverged at %d (replay polluted the cursor)", i)
		}
	}
}

func TestBenchExpect(t *testing.T) {
	lab := newTestLab(t)
	b, err := lab.NewBenchWithSeed(spec.DID(2), 2024)
	if err != nil {
		t.Fatalf("new bench: %v", err)
	}

	// Bernoulli：樣本均值 ≈ p、密度加權期望 = P(X=1) ≈ p
	res, err := b.Expect(&dto.EstimateRequest{DistName: "coin", DistId: spec.DID(2), Draws: 200000})
	if err != nil {
		t.Fatalf("expect: %v", err)
	}
	if math.Abs(res.Expectation-0.3) > 0.01 {
		t.Fatalf("plain expectation: %v", res.Expectation)
	}

	res, err = b.Expect(&dto.EstimateRequest{DistName: "coin", DistId: spec.DID(2), Draws: 200000, UseDensity: true})
	if err != nil {
		t.Fatalf("expect density: %v", err)
	}
	if !res.UseDensity {
		t.Fatal("use_density flag lost")
	}
	if math.Abs(res.Expectation-0.3) > 0.01 {
		t.Fatalf("density expectation: %v", res.Expectation)
	}
}

func TestBenchExpectNoDensity(t *testing.T) {
	lab := newTestLab(t)
	b, err := lab.NewBenchWithSeed(spec.DID(3), 2024)
	if err != nil {
		t.Fatalf("new bench: %v", err)
	}

	// uniform 家族沒有綁定密度：密度加權請求必須回 Invalid 等級錯誤
	_, err = b.Expect(&dto.EstimateRequest{DistName: "span", DistId: spec.DID(3), Draws: 100, UseDensity: true})
	if err == nil {
		t.Fatal("expected no-density error")
	}
	if !errors.Is(err, stats.ErrNoDensity) {
		t.Fatalf("want ErrNoDensity, got %v", err)
	}
	if e, ok := errs.AsErr(err); !ok || e.ErrLv != errs.Invalid {
		t.Fatalf("want Invalid level, got %v", err)
	}

	// 錯誤是決定性的：同一狀態重試得到同一個錯誤
	_, err2 := b.Expect(&dto.EstimateRequest{DistName: "span", DistId: spec.DID(3), Draws: 100, UseDensity: true})
	if !errors.Is(err2, stats.ErrNoDensity) {
		t.Fatalf("second failure differs: %v", err2)
	}
}

// 所有家族都要能從設定檔組裝並輸出有限值。
func TestBenchAllFamilies(t *testing.T) {
	bodies := map[string]string{
		"f01.yaml": "dist_name: f01\ndist_id: 1\nfamily: unit_uniform\n",
		"f02.yaml": "dist_name: f02\ndist_id: 2\nfamily: uniform\nparams:\n  a: 3.0\n  b: 5.0\n",
		"f03.yaml": "dist_name: f03\ndist_id: 3\nfamily: point_uniform\n",
		"f04.yaml": "dist_name: f04\ndist_id: 4\nfamily: bernoulli\nparams:\n  p: 0.5\n",
		"f05.yaml": "dist_name: f05\ndist_id: 5\nfamily: binomial\nparams:\n  p: 0.5\n  n: 10\n",
		"f06.yaml": "dist_name: f06\ndist_id: 6\nfamily: geometric\nparams:\n  p: 0.5\n",
		"f07.yaml": "dist_name: f07\ndist_id: 7\nfamily: normal_exponential\n",
		"f08.yaml": "dist_name: f08\ndist_id: 8\nfamily: gaussian_box_mueller\nparams:\n  mu: 1.0\n  sigma2: 2.0\n",
		"f09.yaml": "dist_name: f09\ndist_id: 9\nfamily: gaussian_central\nparams:\n  mu: 0.0\n  sigma2: 1.0\n",
		"f10.yaml": "dist_name: f10\ndist_id: 10\nfamily: gaussian_rejection\nparams:\n  mu: 0.0\n  sigma2: 1.0\n",
		"f11.yaml": "dist_name: f11\ndist_id: 11\nfamily: categorical\nparams:\n  weights: [1, 2, 3]\n",
	}
	lab, err := distlab.NewAuto(core.Default(), distlab.Configs(cfgFS(bodies)))
	if err != nil {
		t.Fatalf("new lab: %v", err)
	}
	for _, id := range lab.IDs() {
		b, err := lab.NewBenchWithSeed(id, 99)
		if err != nil {
			t.Fatalf("did %d: new bench: %v", id, err)
		}
		for i := 0; i < 100; i++ {
			v := b.DrawInternal()
			if math.IsNaN(v) || math.IsInf(v, 0) {
				t.Fatalf("did %d: non-finite sample %v", id, v)
			}
			switch b.Family() {
			case spec.FamilyBernoulli:
				if v != 0 && v != 1 {
					t.Fatalf("bernoulli sample %v", v)
				}
			case spec.FamilyCategorical:
				if v < 0 || v > 2 || v != math.Trunc(v) {
					t.Fatalf("categorical sample %v", v)
				}
			case spec.FamilyUnitUniform:
				if v < 0 || v >= 1 {
					t.Fatalf("unit uniform sample %v", v)
				}
			}
		}
	}
}

// ============================================================
// ** Study **
// ============================================================

func TestStudyRun(t *testing.T) {
	lab := newTestLab(t)
	s, err := lab.NewStudyWithSeed(spec.DID(1), 31337)
	if err != nil {
		t.Fatalf("new study: %v", err)
	}

	report, _, err := s.Run(20000, false)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if report.Summary.Draws != 20000 {
		t.Fatalf("draws: %d", report.Summary.Draws)
	}
	if math.Abs(report.Summary.Mean-0.5) > 0.02 {
		t.Fatalf("unit uniform mean: %v", report.Summary.Mean)
	}
	if report.Summary.Min < 0 || report.Summary.Max >= 1 {
		t.Fatalf("range: [%v, %v]", report.Summary.Min, report.Summary.Max)
	}
}

func TestStudyRunMP(t *testing.T) {
	lab := newTestLab(t)

	run := func() *stats.SampleReport {
		s, err := lab.NewStudyWithSeed(spec.DID(2), 5150)
		if err != nil {
			t.Fatalf("new study: %v", err)
		}
		report, _, err := s.RunMP(5000, 4, false)
		if err != nil {
			t.Fatalf("runmp: %v", err)
		}
		return report
	}

	r1 := run()
	if r1.Summary.Draws != 20000 {
		t.Fatalf("total draws: %d", r1.Summary.Draws)
	}
	if math.Abs(r1.Summary.Mean-0.3) > 0.02 {
		t.Fatalf("bernoulli rate: %v", r1.Summary.Mean)
	}

	// 同一個 initSeed + 同一個 mp ⇒ 結果可重現
	r2 := run()
	if r1.Summary.Mean != r2.Summary.Mean || r1.Moments.Sum != r2.Moments.Sum {
		t.Fatal("runmp not reproducible with fixed seed")
	}
}

func TestStudyRunReplicas(t *testing.T) {
	lab := newTestLab(t)
	s, err := lab.NewStudyWithSeed(spec.DID(3), 8080)
	if err != nil {
		t.Fatalf("new study: %v", err)
	}

	pooled, est, _, err := s.RunReplicas(8, 2000, false)
	if err != nil {
		t.Fatalf("replicas: %v", err)
	}
	if pooled.Summary.Draws != 16000 {
		t.Fatalf("pooled draws: %d", pooled.Summary.Draws)
	}
	if est == nil || est.Replicas != 8 {
		t.Fatalf("estimator: %+v", est)
	}
	// uniform(-1,1) 的複本均值中位數應落在 0 附近
	if math.Abs(est.MeanStat.Median.Hat) > 0.05 {
		t.Fatalf("replica median: %v", est.MeanStat.Median.Hat)
	}
}

func TestStudyInvalidParams(t *testing.T) {
	lab := newTestLab(t)
	s, err := lab.NewStudyWithSeed(spec.DID(1), 1)
	if err != nil {
		t.Fatalf("new study: %v", err)
	}
	if _, _, err := s.Run(0, false); err == nil {
		t.Fatal("expected draws error")
	}
	if _, _, err := s.RunMP(10, 0, false); err == nil {
		t.Fatal("expected workers error")
	}
}

// ============================================================
// ** Runtime / BenchPool **
// ============================================================

func TestRuntimeDraw(t *testing.T) {
	lab := newTestLab(t)
	rt, err := lab.BuildRuntime(2)
	if err != nil {
		t.Fatalf("build runtime: %v", err)
	}
	defer rt.Close()

	ctx := context.Background()
	res, err := rt.Draw(ctx, &dto.DrawRequest{DistName: "coin", DistId: spec.DID(2), Draws: 10})
	if err != nil {
		t.Fatalf("draw: %v", err)
	}
	if len(res.Values) != 10 {
		t.Fatalf("values: %d", len(res.Values))
	}
	if res.State.StartCoreSnapB64U == "" || res.State.AfterCoreSnapB64U == "" {
		t.Fatal("draw state must carry both snapshots")
	}

	if _, err := rt.Draw(ctx, &dto.DrawRequest{DistName: "x", DistId: spec.DID(99), Draws: 1}); err == nil {
		t.Fatal("expected unknown did error")
	}

	ms := rt.Metrics()
	if len(ms) != 5 {
		t.Fatalf("metrics len: %d", len(ms))
	}
	for _, m := range ms {
		if m.PoolSize != 2 {
			t.Fatalf("pool size: %+v", m)
		}
	}
}

func TestRuntimeEstimate(t *testing.T) {
	lab := newTestLab(t)
	rt, err := lab.BuildRuntime(1)
	if err != nil {
		t.Fatalf("build runtime: %v", err)
	}
	defer rt.Close()

	ctx := context.Background()
	res, err := rt.Estimate(ctx, &dto.EstimateRequest{DistName: "coin", DistId: spec.DID(2), Draws: 100000})
	if err != nil {
		t.Fatalf("estimate: %v", err)
	}
	if math.Abs(res.Expectation-0.3) > 0.02 {
		t.Fatalf("expectation: %v", res.Expectation)
	}

	// 無密度家族的密度加權估計：Invalid（Bench 仍健康，pool 不應補機）
	_, err = rt.Estimate(ctx, &dto.EstimateRequest{DistName: "unit", DistId: spec.DID(1), Draws: 10, UseDensity: true})
	if !errors.Is(err, stats.ErrNoDensity) {
		t.Fatalf("want ErrNoDensity, got %v", err)
	}
	for _, m := range rt.Metrics() {
		if m.Rebuild != 0 {
			t.Fatalf("invalid error must not rebuild benches: %+v", m)
		}
	}
}

func TestRuntimeClose(t *testing.T) {
	lab := newTestLab(t)
	rt, err := lab.BuildRuntime(1)
	if err != nil {
		t.Fatalf("build runtime: %v", err)
	}

	rt.Close()
	rt.Close() // 幂等
	if !rt.Closed() {
		t.Fatal("runtime should be closed")
	}
	if rt.ClosedReason() != "closed" {
		t.Fatalf("reason: %q", rt.ClosedReason())
	}
	if _, err := rt.Draw(context.Background(), &dto.DrawRequest{DistName: "coin", DistId: spec.DID(2), Draws: 1}); err == nil {
		t.Fatal("expected closed error")
	}

	// pool 也應該一併進入關閉狀態
	for _, m := range rt.Metrics() {
		if !m.Closed {
			t.Fatalf("pool not closed: %+v", m)
		}
	}
}

func TestRuntimeDrawCanceled(t *testing.T) {
	lab := newTestLab(t)
	rt, err := lab.BuildRuntime(1)
	if err != nil {
		t.Fatalf("build runtime: %v", err)
	}
	defer rt.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := rt.Draw(ctx, &dto.DrawRequest{DistName: "coin", DistId: spec.DID(2), Draws: 1}); err == nil {
		t.Fatal("expected cancellation error")
	}
}
