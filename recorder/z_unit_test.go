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

package recorder_test

import (
	"math"
	"testing"

	"github.com/zintix-labs/distlab/recorder"
	"github.com/zintix-labs/distlab/spec"
)

func TestDrawRecorderBasic(t *testing.T) {
	r, err := recorder.NewDrawRecorder("demo", spec.DID(7), spec.FamilyUniform)
	if err != nil {
		t.Fatalf("new recorder err: %v", err)
	}

	for _, v := range []float64{1, 2, 3} {
		r.Record(v)
	}
	rep := r.Done()

	if rep.Summary.Draws != 3 {
		t.Fatalf("Draws = %d, want 3", rep.Summary.Draws)
	}
	if math.Abs(rep.Summary.Mean-2.0) > 1e-12 {
		t.Fatalf("Mean = %v, want 2", rep.Summary.Mean)
	}
	if rep.Summary.Min != 1 || rep.Summary.Max != 3 {
		t.Fatalf("Min/Max = %v/%v, want 1/3", rep.Summary.Min, rep.Summary.Max)
	}
	if rep.Summary.DistId != spec.DID(7) || rep.Summary.Family != spec.FamilyUniform {
		t.Fatal("identity fields lost in report")
	}
}

func TestDrawRecorderEmptyName(t *testing.T) {
	if _, err := recorder.NewDrawRecorder("", spec.DID(1), spec.FamilyUniform); err == nil {
		t.Fatal("expected error for empty dist name")
	}
}

func TestDrawRecorderEmpty(t *testing.T) {
	r, _ := recorder.NewDrawRecorder("empty", spec.DID(1), spec.FamilyBernoulli)
	rep := r.Done()
	if rep.Summary.Draws != 0 || rep.Summary.Mean != 0 {
		t.Fatalf("empty recorder report: %+v", rep.Summary)
	}
	if rep.Summary.Min != 0 || rep.Summary.Max != 0 {
		t.Fatal("empty recorder must report zero min/max")
	}
}

func TestMergeDrawRecorder(t *testing.T) {
	a, _ := recorder.NewDrawRecorder("demo", spec.DID(7), spec.FamilyUniform)
	b, _ := recorder.NewDrawRecorder("demo", spec.DID(7), spec.FamilyUniform)
	for _, v := range []float64{1, 2} {
		a.Record(v)
	}
	for _, v := range []float64{3, 4} {
		b.Record(v)
	}

	m, err := recorder.MergeDrawRecorder([]*recorder.DrawRecorder{a, b})
	if err != nil {
		t.Fatalf("merge err: %v", err)
	}
	rep := m.Done()
	if rep.Summary.Draws != 4 {
		t.Fatalf("merged Draws = %d, want 4", rep.Summary.Draws)
	}
	if math.Abs(rep.Summary.Mean-2.5) > 1e-12 {
		t.Fatalf("merged Mean = %v, want 2.5", rep.Summary.Mean)
	}
	if rep.Summary.Min != 1 || rep.Summary.Max != 4 {
		t.Fatalf("merged Min/Max = %v/%v, want 1/4", rep.Summary.Min, rep.Summary.Max)
	}
}

func TestMergeDrawRecorderMismatch(t *testing.T) {
	a, _ := recorder.NewDrawRecorder("demo", spec.DID(7), spec.FamilyUniform)
	b, _ := recorder.NewDrawRecorder("demo", spec.DID(7), spec.FamilyBernoulli)
	if _, err := recorder.MergeDrawRecorder([]*recorder.DrawRecorder{a, b}); err == nil {
		t.Fatal("expected error for mismatched family")
	}
}
