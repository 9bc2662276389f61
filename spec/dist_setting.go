package spec

import (
	"fmt"

	"github.com/zintix-labs/distlab/errs"
)

// DistSetting 包含組裝一個 Bench 所需的所有高階設定。
//
// Params 依 Family 不同而有不同欄位，解碼交由 DecodeParams 以嚴格模式進行
// （多寫/拼錯欄位直接報錯），本層只保留原始 map。
type DistSetting struct {
	DistName string         `yaml:"dist_name" json:"dist_name"`
	DistID   DID            `yaml:"dist_id"   json:"dist_id"`
	Family   Family         `yaml:"family"    json:"family"`
	Params   map[string]any `yaml:"params"    json:"params"`
}

// init
func (ds *DistSetting) init() error {
	return ds.valid()
}

// valid 執行最基本的設定檔檢查，如需更多驗證可在此擴充。
// 參數層級的檢查（機率範圍、權重非負）在各 Params 型別的 Valid 內。
func (ds *DistSetting) valid() error {
	if ds.DistName == "" {
		return errs.NewFatal("empty dist_name")
	}
	if err := ds.Family.valid(); err != nil {
		return errs.NewFatal(fmt.Sprintf("dist_name: %s err:%v", ds.DistName, err))
	}
	return nil
}

// ============================================================
// ** 家族參數 **
// ============================================================

// UniformParams 對應 Family = uniform。合約 a < b。
type UniformParams struct {
	A float64 `yaml:"a" json:"a"`
	B float64 `yaml:"b" json:"b"`
}

func (p *UniformParams) Valid() error {
	if p.A >= p.B {
		return errs.NewFatal(fmt.Sprintf("uniform: a (%v) must be < b (%v)", p.A, p.B))
	}
	return nil
}

// BernoulliParams 對應 Family = bernoulli。合約 0 ≤ p ≤ 1。
type BernoulliParams struct {
	P float64 `yaml:"p" json:"p"`
}

func (p *BernoulliParams) Valid() error {
	if p.P < 0 || p.P > 1 {
		return errs.NewFatal(fmt.Sprintf("bernoulli: p (%v) out of [0,1]", p.P))
	}
	return nil
}

// BinomialParams 對應 Family = binomial。合約 0 ≤ p ≤ 1、n ≥ 0。
type BinomialParams struct {
	P float64 `yaml:"p" json:"p"`
	N int     `yaml:"n" json:"n"`
}

func (p *BinomialParams) Valid() error {
	if p.P < 0 || p.P > 1 {
		return errs.NewFatal(fmt.Sprintf("binomial: p (%v) out of [0,1]", p.P))
	}
	if p.N < 0 {
		return errs.NewFatal(fmt.Sprintf("binomial: n (%d) must be >= 0", p.N))
	}
	return nil
}

// GeometricParams 對應 Family = geometric。
// 合約 0 < p ≤ 1：p = 0 會讓單步永不返回，在組裝期擋下。
type GeometricParams struct {
	P float64 `yaml:"p" json:"p"`
}

func (p *GeometricParams) Valid() error {
	if p.P <= 0 || p.P > 1 {
		return errs.NewFatal(fmt.Sprintf("geometric: p (%v) out of (0,1]", p.P))
	}
	return nil
}

// GaussianParams 對應三種高斯家族。
// Sigma2 是參考演算法直接使用的縮放因子（不是標準差），合約 Sigma2 ≥ 0。
type GaussianParams struct {
	Mu     float64 `yaml:"mu"     json:"mu"`
	Sigma2 float64 `yaml:"sigma2" json:"sigma2"`
}

func (p *GaussianParams) Valid() error {
	if p.Sigma2 < 0 {
		return errs.NewFatal(fmt.Sprintf("gaussian: sigma2 (%v) must be >= 0", p.Sigma2))
	}
	return nil
}

// CategoricalParams 對應 Family = categorical。
// 權重為非負整數且不可全零（別名表建表要求）。
type CategoricalParams struct {
	Weights []int `yaml:"weights" json:"weights"`
}

func (p *CategoricalParams) Valid() error {
	if len(p.Weights) == 0 {
		return errs.NewFatal("categorical: empty weights")
	}
	total := 0
	for i, w := range p.Weights {
		if w < 0 {
			return errs.NewFatal(fmt.Sprintf("categorical: negative weight at index %d", i))
		}
		total += w
	}
	if total == 0 {
		return errs.NewFatal("categorical: all weights are zero")
	}
	return nil
}
