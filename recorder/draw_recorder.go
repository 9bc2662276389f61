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

package recorder

import (
	"fmt"
	"math"

	"github.com/zintix-labs/distlab/errs"
	"github.com/zintix-labs/distlab/spec"
	"github.com/zintix-labs/distlab/stats"
)

// DrawRecorder 取樣紀錄員
//
// DrawRecorder 負責紀錄每次取樣結果，並透過Done輸出統計報表
type DrawRecorder struct {
	DistName string
	DistId   spec.DID
	Family   spec.Family
	Basic    *BasicRecord
	Hist     *HistRecord
}

// BasicRecord 基本取樣資料紀錄
type BasicRecord struct {
	Sum   float64
	SqSum float64 // 平方和
	Min   float64
	Max   float64
	Draws int
}

// HistRecord 樣本值區間落點統計
type HistRecord struct {
	Bucket  *stats.ValueBuckets
	Collect []int
}

func NewDrawRecorder(name string, id spec.DID, family spec.Family) (*DrawRecorder, error) {
	d := new(DrawRecorder)

	if name == "" {
		return d, errs.NewFatal("empty dist name")
	}

	// 通過valid
	d.DistName = name
	d.DistId = id
	d.Family = family
	d.Basic = newBasicRecord()
	d.Hist = newHistRecord()

	return d, nil
}

// MergeDrawRecorder 合併多個複本的紀錄（多 worker 模擬用）。
// 複本必須來自同一個分布設定，否則合併結果沒有意義。
func MergeDrawRecorder(r []*DrawRecorder) (*DrawRecorder, error) {
	r0 := r[0]
	d, err := NewDrawRecorder(r0.DistName, r0.DistId, r0.Family)
	if err != nil {
		return d, err
	}
	for _, v := range r {
		if v.DistName != r0.DistName {
			return d, errs.NewFatal("merge draw record err : different dist name")
		}
		if v.DistId != r0.DistId {
			return d, errs.NewFatal("merge draw record err : different dist id")
		}
		if v.Family != r0.Family {
			return d, errs.NewFatal(fmt.Sprintf("merge draw record err : different family %s vs %s", v.Family, r0.Family))
		}
		d.Basic.Sum += v.Basic.Sum
		d.Basic.SqSum += v.Basic.SqSum
		d.Basic.Draws += v.Basic.Draws
		if v.Basic.Draws > 0 {
			if v.Basic.Min < d.Basic.Min {
				d.Basic.Min = v.Basic.Min
			}
			if v.Basic.Max > d.Basic.Max {
				d.Basic.Max = v.Basic.Max
			}
		}

		// 整合Hist
		for i := range v.Hist.Collect {
			d.Hist.Collect[i] += v.Hist.Collect[i]
		}
	}
	return d, nil
}

// Record 以單次取樣值更新基本統計與分桶
func (d *DrawRecorder) Record(v float64) {
	d.recordBasic(v)
	d.recordHist(v)
}

func (d *DrawRecorder) Done() *stats.SampleReport {
	report := &stats.SampleReport{
		Summary: &stats.SummaryReport{
			DistName: d.DistName,
			DistId:   d.DistId,
			Family:   d.Family,
			Draws:    d.Basic.Draws,
			Min:      d.Basic.Min,
			Max:      d.Basic.Max,
		},
		Moments: &stats.MomentReport{
			Sum:   d.Basic.Sum,
			SqSum: d.Basic.SqSum,
		},
		Hist: &stats.HistReport{
			Bucket:  d.Hist.Bucket.Labels(),
			Collect: d.Hist.Collect,
			Dist:    nil,
		},
	}

	if d.Basic.Draws == 0 {
		report.Summary.Min = 0
		report.Summary.Max = 0
	}

	report.Done()
	return report
}

func (d *DrawRecorder) recordBasic(v float64) {
	b := d.Basic
	b.Sum += v
	b.SqSum += v * v
	if v < b.Min {
		b.Min = v
	}
	if v > b.Max {
		b.Max = v
	}
	b.Draws++
}

func (d *DrawRecorder) recordHist(v float64) {
	h := d.Hist
	h.Collect[h.Bucket.Index(v)]++
}

func newBasicRecord() *BasicRecord {
	b := new(BasicRecord)
	b.Min = math.Inf(1)
	b.Max = math.Inf(-1)
	return b
}

func newHistRecord() *HistRecord {
	h := new(HistRecord)
	h.Bucket = stats.Buckets
	h.Collect = make([]int, stats.Buckets.Len())
	return h
}
