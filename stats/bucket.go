package stats

// ValueBuckets
//
// 用來定位樣本值 -> HistReport 位置
//
// 請勿修改預設值
//   - 值區間: (-inf,-10), [-10,-5), ..., [-0.5,0), [0,0], (0,0.5), [0.5,1), ..., [10,+inf)
//   - [0,0] 是獨立的點質量桶：PointUniform 這類帶點質量的家族靠它才看得出形狀。
type ValueBuckets struct {
	edges  []float64
	labels []string
}

// Buckets
//
// 用來定位樣本值 -> HistReport 位置
//
// 請勿修改預設值
var Buckets *ValueBuckets = &ValueBuckets{
	edges:  []float64{-10, -5, -2, -1, -0.5, 0, 0.5, 1, 2, 5, 10},
	labels: []string{"(-inf,-10)", "[-10,-5)", "[-5,-2)", "[-2,-1)", "[-1,-0.5)", "[-0.5,0)", "[0,0]", "(0,0.5)", "[0.5,1)", "[1,2)", "[2,5)", "[5,10)", "[10,+inf)"},
}

func (b *ValueBuckets) Labels() []string {
	return b.labels
}

func (b *ValueBuckets) Len() int {
	return len(b.labels)
}

// Index 回傳樣本值所屬的桶位索引。
//
// 負半軸與正半軸各自沿 edges 掃描；0 落入獨立的點質量桶。
// 桶數固定且很小，線性掃描即可。
func (b *ValueBuckets) Index(v float64) int {
	if v == 0 {
		return 6 // [0,0]
	}
	if v < 0 {
		// (-inf,-10), [-10,-5), [-5,-2), [-2,-1), [-1,-0.5), [-0.5,0)
		for i := 0; i < 6; i++ {
			if v < b.edges[i] {
				return i
			}
		}
		return 5
	}
	// (0,0.5), [0.5,1), [1,2), [2,5), [5,10), [10,+inf)
	for i := 6; i < len(b.edges); i++ {
		if v < b.edges[i] {
			return i + 1
		}
	}
	return len(b.labels) - 1
}
