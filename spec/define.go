// Package spec 定義分布設定檔的資料結構與解碼流程。
//
// 設定檔（YAML/JSON）描述「要組裝哪個取樣家族、用什麼參數」；
// 實際的組裝發生在 Lab/Bench 層，本包只負責結構、解碼與基本檢查。
package spec

import "fmt"

// DID 是分布設定在 Catalog 內的唯一編號，用於路由與查表。
type DID uint32

// Family 標示取樣家族，決定 Bench 組裝時走哪條建構路徑。
type Family string

const (
	FamilyUnitUniform        Family = "unit_uniform"
	FamilyUniform            Family = "uniform"
	FamilyPointUniform       Family = "point_uniform"
	FamilyBernoulli          Family = "bernoulli"
	FamilyBinomial           Family = "binomial"
	FamilyGeometric          Family = "geometric"
	FamilyNormalExponential  Family = "normal_exponential"
	FamilyGaussianBoxMueller Family = "gaussian_box_mueller"
	FamilyGaussianCentral    Family = "gaussian_central"
	FamilyGaussianRejection  Family = "gaussian_rejection"
	FamilyCategorical        Family = "categorical"
)

// valid 檢查家族名稱是否為已知家族。
func (f Family) valid() error {
	switch f {
	case FamilyUnitUniform, FamilyUniform, FamilyPointUniform,
		FamilyBernoulli, FamilyBinomial, FamilyGeometric,
		FamilyNormalExponential, FamilyGaussianBoxMueller,
		FamilyGaussianCentral, FamilyGaussianRejection,
		FamilyCategorical:
		return nil
	}
	return fmt.Errorf("unknown family: %q", string(f))
}

// String
func (f Family) String() string {
	return string(f)
}
