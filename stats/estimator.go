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

package stats

import (
	"fmt"
	"sort"

	"github.com/zintix-labs/distlab/errs"
	"github.com/zintix-labs/distlab/sdk/dist"
	"gonum.org/v1/gonum/stat/distuv"
)

// ErrNoDensity 表示對未綁定密度的分布要求加權期望。
// 操作不成立（Invalid）：同步回報、不產生部分結果、不推進游標，
// 同一個分布重複呼叫必定得到同一個錯誤。
var ErrNoDensity = errs.NewInvalid("expectation using density: distribution has no bound density")

// ============================================================
// ** 蒙地卡羅期望 **
// ============================================================

// Expectation 以 n 次連續取樣的平均估計期望值（原始樣本、單位權重）。
//
// 數值合約：在機率型別 P 內累積；每一項「先除以 N 再累加」，
// 而不是總和後一次除——固定浮點捨入順序，讓同 seed 的估計逐位可重現。
// n < 1 時回傳 0 且不推進游標。
func Expectation[T dist.Numbers, P dist.Floaters](d *dist.Distribution[T, P], n int) P {
	if n < 1 {
		return 0
	}
	nn := P(n)
	var sum P
	for i := 0; i < n; i++ {
		sum += P(d.NextSample()) / nn
	}
	return sum
}

// ExpectationUsingDensity 以 density(sample) 的平均估計加權期望。
// 分布未綁定密度時回傳 ErrNoDensity；數值合約與 Expectation 相同。
func ExpectationUsingDensity[T any, P dist.Floaters](d *dist.Distribution[T, P], n int) (P, error) {
	den := d.Density()
	if den == nil {
		return 0, ErrNoDensity
	}
	if n < 1 {
		return 0, nil
	}
	nn := P(n)
	var sum P
	for i := 0; i < n; i++ {
		sum += den(d.NextSample()) / nn
	}
	return sum, nil
}

// ============================================================
// ** 結構宣告 **
// ============================================================

// 複本一致性評估
type EstimatorReplicas struct {
	Replicas int
	MeanStat MeanStat
	Coverage Coverage
}

// 複本平均的分布敘事
type MeanStat struct {
	Median PointStat // 複本平均的中位數
	P10    PointStat
	P33    PointStat
	P67    PointStat
	P90    PointStat
}

// 複本相對合併報告的落點敘事
type Coverage struct {
	BelowPooled PointStat // 複本平均 ≤ 合併平均 的比例
	InPooledCI  PointStat // 複本平均落在合併 95% CI 內的比例
}

// PointStat 點估計 回傳 估計值 以及信賴區間
type PointStat struct {
	Hat float64
	CI  CI
}

// ============================================================
// ** 對外 : 複本一致性評估 **
// ============================================================

// EstimateReplicas 複本一致性評估
//
// 1. MeanStat 敘事 : 描述各複本平均的分位分布（order statistic CI）
//
// 2. Coverage 敘事 : 描述複本平均相對合併報告的落點（CP 95% CI）
//
// 多 worker 併發模擬會產出一份合併報告與 N 份複本報告；
// 複本平均若系統性偏出合併 CI，代表派生 seed 或合併流程有問題。
func EstimateReplicas(pooled *SampleReport, sts []*SampleReport) *EstimatorReplicas {
	// 0. 防禦：空輸入
	n := len(sts)
	out := &EstimatorReplicas{Replicas: n}
	if n == 0 || pooled == nil {
		return out
	}

	// ------------------------------------------------------------
	// 1) MeanStat 敘事：收集每個複本的平均並做分位/CI
	// ------------------------------------------------------------
	means := make([]float64, n)
	for i, s := range sts {
		means[i] = s.Mean()
	}

	medHat := quantilePoint(means, 0.5)
	medLo, medHi := quantileCI(means, 0.5, 0.95)

	p10Hat := quantilePoint(means, 0.10)
	p10Lo, p10Hi := quantileCI(means, 0.10, 0.95)

	p33Hat := quantilePoint(means, 1.0/3.0)
	p33Lo, p33Hi := quantileCI(means, 1.0/3.0, 0.95)

	p67Hat := quantilePoint(means, 2.0/3.0)
	p67Lo, p67Hi := quantileCI(means, 2.0/3.0, 0.95)

	p90Hat := quantilePoint(means, 0.90)
	p90Lo, p90Hi := quantileCI(means, 0.90, 0.95)

	out.MeanStat = MeanStat{
		Median: PointStat{Hat: medHat, CI: CI{Lo: medLo, Hi: medHi}},
		P10:    PointStat{Hat: p10Hat, CI: CI{Lo: p10Lo, Hi: p10Hi}},
		P33:    PointStat{Hat: p33Hat, CI: CI{Lo: p33Lo, Hi: p33Hi}},
		P67:    PointStat{Hat: p67Hat, CI: CI{Lo: p67Lo, Hi: p67Hi}},
		P90:    PointStat{Hat: p90Hat, CI: CI{Lo: p90Lo, Hi: p90Hi}},
	}

	// ------------------------------------------------------------
	// 2) Coverage 敘事：複本平均相對合併報告的落點（CP 95% CI）
	// ------------------------------------------------------------
	pooledMean := pooled.Mean()
	pooledCI := pooled.Ci()

	var belowK, inK int
	for _, m := range means {
		if m <= pooledMean {
			belowK++
		}
		if m >= pooledCI.Lo && m <= pooledCI.Hi {
			inK++
		}
	}

	belowHat, belowCI := proportionCICP(belowK, n, 0.95)
	inHat, inCI := proportionCICP(inK, n, 0.95)

	out.Coverage = Coverage{
		BelowPooled: PointStat{Hat: belowHat, CI: belowCI},
		InPooledCI:  PointStat{Hat: inHat, CI: inCI},
	}

	return out
}

// ============================================================
// ** 內部統計函數 **
// ============================================================

// Clopper–Pearson exact CI for binomial proportion (k successes out of n)
func proportionCICP(k int, n int, confidence float64) (pHat float64, ci CI) {
	if n == 0 {
		return 0, CI{0, 1}
	}
	alpha := 1 - confidence
	pHat = float64(k) / float64(n)

	// Beta PPF 映射，處理邊界
	if k == 0 {
		ci.Lo = 0
	} else {
		b := distuv.Beta{Alpha: float64(k), Beta: float64(n - k + 1)}
		ci.Lo = b.Quantile(alpha / 2)
	}
	if k == n {
		ci.Hi = 1
	} else {
		b := distuv.Beta{Alpha: float64(k + 1), Beta: float64(n - k)}
		ci.Hi = b.Quantile(1 - alpha/2)
	}
	return
}

// 想估「第 q 分位」的上下界。做法：把 order statistic 的秩視為二項→Beta 反推 p 範圍，再把 p 轉回樣本索引。
// 回傳 (loValue, hiValue)
func quantileCI(data []float64, q, confidence float64) (float64, float64) {
	n := len(data)
	if n == 0 {
		return 0, 0
	}
	cp := make([]float64, n)
	copy(cp, data)
	sort.Float64s(cp)

	alpha := 1 - confidence
	k := int(q * float64(n))
	if k < 1 {
		k = 1
	} else if k > n-1 {
		k = n - 1
	}

	// 以 CP 思想反推 p 範圍
	bLo := distuv.Beta{Alpha: float64(k), Beta: float64(n - k + 1)}
	bHi := distuv.Beta{Alpha: float64(k + 1), Beta: float64(n - k)}
	pLo := bLo.Quantile(alpha / 2)
	pHi := bHi.Quantile(1 - alpha/2)

	li := int(pLo * float64(n))
	ui := int(pHi * float64(n))
	if ui > 0 {
		ui -= 1
	}
	if li < 0 {
		li = 0
	}
	if li > n-1 {
		li = n - 1
	}
	if ui < 0 {
		ui = 0
	}
	if ui > n-1 {
		ui = n - 1
	}
	return cp[li], cp[ui]
}

// quantilePoint returns the empirical quantile point estimate at q.
func quantilePoint(data []float64, q float64) float64 {
	n := len(data)
	if n == 0 {
		return 0
	}
	cp := make([]float64, n)
	copy(cp, data)
	sort.Float64s(cp)
	// 最近秩法
	idx := int(q * float64(n))
	if idx < 0 {
		idx = 0
	}
	if idx > n-1 {
		idx = n - 1
	}
	return cp[idx]
}

// ============================================================
// ** 輸出函數 **
// ============================================================

func (est *EstimatorReplicas) Out() {
	// 1) Replica Means
	fmt.Println("=== Replica Means ===")
	meanKeys := []string{
		"Median Mean",
		"P10 Mean",
		"P33 Mean",
		"P67 Mean",
		"P90 Mean",
	}
	meanMsg := map[string]string{
		"Median Mean": fmtHatCI(est.MeanStat.Median.Hat, est.MeanStat.Median.CI),
		"P10 Mean":    fmtHatCI(est.MeanStat.P10.Hat, est.MeanStat.P10.CI),
		"P33 Mean":    fmtHatCI(est.MeanStat.P33.Hat, est.MeanStat.P33.CI),
		"P67 Mean":    fmtHatCI(est.MeanStat.P67.Hat, est.MeanStat.P67.CI),
		"P90 Mean":    fmtHatCI(est.MeanStat.P90.Hat, est.MeanStat.P90.CI),
	}
	printTable("Replica Means", meanKeys, meanMsg)

	// 2) Coverage vs pooled report
	fmt.Println("\n=== Coverage vs Pooled ===")
	covKeys := []string{"≤ pooled mean", "in pooled 95% CI"}
	covMsg := map[string]string{
		"≤ pooled mean":    fmtHatCIpct01(est.Coverage.BelowPooled.Hat, est.Coverage.BelowPooled.CI),
		"in pooled 95% CI": fmtHatCIpct01(est.Coverage.InPooledCI.Hat, est.Coverage.InPooledCI.CI),
	}
	printTable("Coverage vs Pooled", covKeys, covMsg)
}

func printTable(title string, keys []string, msg map[string]string) {
	fmt.Println(title)
	maxKeyLen := 0
	for _, k := range keys {
		if len(k) > maxKeyLen {
			maxKeyLen = len(k)
		}
	}
	for _, k := range keys {
		fmt.Printf("  %-*s : %s\n", maxKeyLen, k, msg[k])
	}
}

func fmtPct01(x float64) string {
	return fmt.Sprintf("%.2f%%", x*100)
}

func fmtHatCIpct01(hat float64, ci CI) string {
	return fmt.Sprintf("%s [%s, %s]", fmtPct01(hat), fmtPct01(ci.Lo), fmtPct01(ci.Hi))
}

func fmtHatCI(hat float64, ci CI) string {
	return fmt.Sprintf("%.6f [%.6f, %.6f]", hat, ci.Lo, ci.Hi)
}
