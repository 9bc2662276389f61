package stats

import (
	"fmt"
	"io"
	"math"
	"strings"
	"time"

	"github.com/mattn/go-runewidth"
	"github.com/zintix-labs/distlab/spec"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var lang language.Tag = language.English

// 信賴區間
type CI struct {
	Lo float64 `json:"Lo"`
	Hi float64 `json:"Hi"`
}

// SampleReport 取樣統計報告
type SampleReport struct {
	Summary *SummaryReport `json:"Summary"`
	Moments *MomentReport  `json:"Moments"`
	Hist    *HistReport    `json:"Hist"`
	isDone  bool
}

type SummaryReport struct {
	DistName string      `json:"DistName"`
	DistId   spec.DID    `json:"DistId"`
	Family   spec.Family `json:"Family"`
	Draws    int         `json:"Draws"`
	Mean     float64     `json:"Mean"`
	MeanCI   CI          `json:"MeanCI"`
	Std      float64     `json:"Std"`
	Variance float64     `json:"Variance"`
	Cv       float64     `json:"Cv"`
	Min      float64     `json:"Min"`
	Max      float64     `json:"Max"`
}

// MomentReport 動差累積
//
// 紀錄時只累積 Sum / SqSum，避免每筆樣本重算。紀錄完成後 Done() 會將結果整理填入 Summary
type MomentReport struct {
	Sum   float64 `json:"Sum"`
	SqSum float64 `json:"SqSum"` // 平方和
}

// HistReport 樣本值區間落點統計
type HistReport struct {
	Bucket  []string  `json:"Bucket"`
	Collect []int     `json:"Collect"`
	Dist    []float64 `json:"Dist"`
}

// ============================================================
// ** 公開方法 **
// ============================================================

// Done 將累積計數轉換為最終統計結果並鎖定 isDone 標記。
//
// 取樣過程因為性能原因只累積 Sum / SqSum / Collect，統計完成後
//
// 請使用 Done 來通知報告統計已經完成，可以一次性計算統計結果
func (s *SampleReport) Done() {
	if s.isDone {
		return
	}
	// Summary
	s.Summary.Mean = s.Mean()
	s.Summary.MeanCI = s.Ci()
	s.Summary.Variance = s.Var()
	s.Summary.Std = s.Std()
	s.Summary.Cv = s.Cv()

	// Hist
	if s.Summary.Draws > 0 {
		s.Hist.Dist = make([]float64, len(s.Hist.Collect))
		for i, c := range s.Hist.Collect {
			s.Hist.Dist[i] = float64(c) / float64(s.Summary.Draws)
		}
	}

	s.isDone = true
}

// Mean 回傳樣本平均
func (s *SampleReport) Mean() float64 {
	if s.Summary.Draws == 0 {
		return 0
	}
	return s.Moments.Sum / float64(s.Summary.Draws)
}

// Var 回傳樣本變異數（不偏估計）
func (s *SampleReport) Var() float64 {
	if s.Summary.Draws < 2 {
		return 0
	}
	draws := float64(s.Summary.Draws)

	sumPow := s.Moments.Sum * s.Moments.Sum
	variance := (s.Moments.SqSum - sumPow/draws) / (draws - 1)

	if variance < 0 {
		variance = 0
	}
	return variance
}

// Std 回傳樣本標準差
func (s *SampleReport) Std() float64 {
	return math.Sqrt(s.Var())
}

// Cv 回傳變異係數
func (s *SampleReport) Cv() float64 {
	mean := s.Mean()
	std := s.Std()
	if mean == 0 {
		return 0
	}
	return std / math.Abs(mean)
}

// Ci 回傳(95% Mean)信賴區間
// 樣本值可為負，區間不做下界截斷。
func (s *SampleReport) Ci() CI {
	mean := s.Mean()
	std := s.Std()
	meanSe := float64(0)
	if s.Summary.Draws > 1 {
		meanSe = std / math.Sqrt(float64(s.Summary.Draws))
	}
	ci := CI{
		Lo: mean - 1.96*meanSe,
		Hi: mean + 1.96*meanSe,
	}
	return ci
}

func (s *SampleReport) WriteWith(w io.Writer, rep SampleReportRender) error {
	s.Done()
	return rep.Write(w, s)
}

func (s *SampleReport) StdOut(ut time.Duration) {
	formatDuration(ut, s.Summary.Draws)
	sk, sm := s.fmtBasic()
	str := fmtTable(s.Summary.DistName, sk, sm)
	fmt.Println(str)
}

// ============================================================
// ** 內部方法 **
// ============================================================

func formatDuration(d time.Duration, draws int) {
	p := message.NewPrinter(lang)
	if d < 0 {
		d = -d
	}
	sec := d.Seconds()
	if sec <= 0 {
		sec = 1e-9
	}
	dps := int(float64(draws) / sec)
	if sec < 60.0 {
		p.Printf("used: %.2f seconds\ndps : %d draws/sec\n", sec, dps)
		return
	}
	s := int(d.Seconds()) % 60
	m := int(d.Minutes()) % 60
	h := int(d.Hours())
	if h == 0 {
		s = s % 60
		p.Printf("used: %dm %ds\ndps : %d draws/sec\n", m, s, dps)
		return
	}
	p.Printf("used: %dh:%dm:%ds\ndps : %d draws/sec\n", h, m, s, dps)
}

// StdOut

func (s *SampleReport) fmtBasic() ([]string, map[string]string) {
	p := message.NewPrinter(lang)
	basic := map[string]string{
		"Dist Name":   p.Sprintf("%s", s.Summary.DistName),
		"Dist ID":     fmt.Sprintf("%d", s.Summary.DistId),
		"Family":      p.Sprintf("%s", s.Summary.Family),
		"Total Draws": p.Sprintf("%d", s.Summary.Draws),
		"Mean":        p.Sprintf("%.6f", s.Summary.Mean),
		"Mean 95% CI": p.Sprintf("[%.6f,%.6f]", s.Summary.MeanCI.Lo, s.Summary.MeanCI.Hi),
		"Variance":    p.Sprintf("%.6f", s.Summary.Variance),
		"STD":         p.Sprintf("%.6f", s.Summary.Std),
		"CV":          p.Sprintf("%.3f", s.Summary.Cv),
		"Min":         p.Sprintf("%.6f", s.Summary.Min),
		"Max":         p.Sprintf("%.6f", s.Summary.Max),
	}
	keys := []string{"Dist Name", "Dist ID", "Family", "Total Draws", "Mean", "Mean 95% CI", "Variance", "STD", "CV", "Min", "Max"}
	return keys, basic
}

func fmtTable(title string, keys []string, msg map[string]string) string {
	p := message.NewPrinter(lang)
	maxKeyLen := 0
	maxValLen := 0
	for k, m := range msg {
		if w := runewidth.StringWidth(k); w > maxKeyLen {
			maxKeyLen = w
		}
		if w := runewidth.StringWidth(m); w > maxValLen {
			maxValLen = w
		}
	}
	maxKeyLen += 2
	maxValLen += 2

	divider := "+" + strings.Repeat("-", maxKeyLen) + "+" + strings.Repeat("-", maxValLen) + "+\n"
	top := "+" + strings.Repeat("-", maxKeyLen+1+maxValLen) + "+\n"

	totalInner := maxKeyLen + maxValLen + 1
	titleW := runewidth.StringWidth(title)

	left := (totalInner - titleW) / 2
	right := totalInner - titleW - left

	fmtStr := top
	fmtStr += p.Sprintf("|%s%s%s|\n", blank(left), title, blank(right))
	fmtStr += divider
	for _, k := range keys {
		fmtStr += p.Sprintf("| %s%s | %s%s |\n", k, blank(maxKeyLen-2-runewidth.StringWidth(k)), msg[k], blank(maxValLen-2-runewidth.StringWidth(msg[k])))
	}
	fmtStr += divider

	return fmtStr
}

func blank(w int) string {
	if w < 1 {
		return ""
	}
	return strings.Repeat(" ", w)
}
