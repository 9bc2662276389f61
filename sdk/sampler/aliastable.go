// 本檔案 (aliastable.go) 實作 Vose's Alias Method 加權抽樣（整數優化版），
// 作為 Categorical 家族的底層結構。
//
// 演算法原理：
//   - 將任意離散分佈轉換為均勻分佈的組合。
//   - 每個槽位 (Bucket) 只存放「自己」和「別名 (Alias)」兩個選項。
//   - 抽樣時先選槽位，再根據機率決定是自己還是別名。
//
// 特性：
//   - 建表時間：O(N)；抽樣時間：O(1)（固定 2 次 IntN）；空間：O(N)，
//     與權重總和無關。
//   - 全整數運算（Integer Scaling），避免浮點精度誤差（0.999... != 1.0）。
//   - 內建溢位檢查（Safe Multiply），大數權重下安全運作。

package sampler

import (
	"math"
	"math/bits"

	"github.com/zintix-labs/distlab/sdk/core"
)

// AliasTable 是 Vose Alias Method 的整數版抽樣結構。
//
// 結構欄位：
//   - Prob: 每個元素經整數 scaling 後的「調整後機率」。
//   - Aliases: 別名索引，指向補足機率的元素。
//   - Size: 元素數量。
//   - Total: 權重總和，用於 scaling 與抽樣判斷。
type AliasTable struct {
	Prob    []int
	Aliases []int
	Size    int
	Total   int
}

// BuildAliasTable 根據輸入的非負整數權重建立 AliasTable。
//
// 權重不需事先正規化；單一權重可為零，但全部為零會 panic
// （建表屬組裝期，壞權重表是程式錯誤而不是執行期輸入）。
//
// 流程：
//  1. 將每個權重 w 乘以 n（元素數量）做整數 scaling，得到 prob。
//  2. 依 prob[i] 與 total 比較，分類索引到 small 或 large 兩桶。
//  3. 從兩桶各取 s, l，將 l 指派為 s 的 alias，並調整 l 的 prob。
//  4. 重複直到任一桶空。
func BuildAliasTable(weights []int) *AliasTable {
	if len(weights) == 0 {
		return &AliasTable{
			Prob:    []int{},
			Aliases: []int{},
			Size:    0,
			Total:   0,
		}
	}

	n := len(weights)
	total := uint64(0)
	for _, w := range weights {
		if w < 0 {
			panic("AliasTable: negative weight encountered")
		}
		if total > uint64(math.MaxInt)-uint64(w) {
			panic("AliasTable: total weight overflow int range")
		}
		total += uint64(w)
	}

	if total == 0 {
		panic("AliasTable: all weights are zero")
	}

	if !isSafeMultiply(int(total), n) {
		panic("AliasTable: weights are too large, causing overflow")
	}

	prob := make([]int, n)
	aliases := make([]int, n)

	small := make([]int, 0)
	large := make([]int, 0)

	for i, w := range weights {
		prob[i] = w * n           // 整數 scaling: 將權重乘以元素數量 n，方便後續整數比較
		if prob[i] < int(total) { // 以 total 做 partition，分為 small 與 large 兩組
			small = append(small, i)
		} else {
			large = append(large, i)
		}
	}

	for len(small) > 0 && len(large) > 0 {
		s := small[len(small)-1]
		small = small[:len(small)-1]
		l := large[len(large)-1]
		large = large[:len(large)-1]

		aliases[s] = l                           // 把 s 的剩餘機率補到 l，建立別名關係
		prob[l] = prob[l] + prob[s] - int(total) // 調整 l 的機率，維持 sum(prob) = total * n 的不變性

		if prob[l] < int(total) {
			small = append(small, l)
		} else {
			large = append(large, l)
		}
	}

	return &AliasTable{
		Prob:    prob,
		Aliases: aliases,
		Size:    n,
		Total:   int(total),
	}
}

// isSafeMultiply 使用 bits.Mul64 來檢查兩個 int 乘積是否會超過 math.MaxInt64。
// 此檢查用於建表階段，確保 w*n 的乘法不會溢位。
func isSafeMultiply(a, b int) bool {
	a1 := uint64(a)
	b1 := uint64(b)
	hi, lo := bits.Mul64(a1, b1)
	return hi == 0 && (lo <= math.MaxInt64)
}

// Pick 從 AliasTable 中抽取一個索引，若表為空則回傳 -1。
//
// 抽樣步驟：
//  1. c.IntN(Size) 隨機選擇一個槽位 idx。
//  2. c.IntN(Total) < Prob[idx] 決定取 idx 本身或其 alias
//     （整數版的 U < p[idx] 比較，不經過 float64，避免誤差累積）。
func (at *AliasTable) Pick(c *core.Core) int {
	if at.Size == 0 {
		return -1
	}
	idx := c.IntN(at.Size)
	if c.IntN(at.Total) < at.Prob[idx] {
		return idx
	}
	return at.Aliases[idx]
}
