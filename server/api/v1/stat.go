package v1

import (
	"encoding/json"
	"net/http"

	"github.com/zintix-labs/distlab/recorder"
	"github.com/zintix-labs/distlab/spec"
)

type DistStat struct {
	DistName string    `json:"dist_name"`
	DistID   spec.DID  `json:"dist_id"`
	Family   string    `json:"family"`
	Values   []float64 `json:"values"`
}

// Stat 對外部上傳的抽樣資料做離線統計：不經過 Bench，只重建報表。
func Stat(w http.ResponseWriter, r *http.Request) {
	// Post方法限定
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	// 嘗試解析
	dst := new(DistStat)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if len(dst.Values) < 1 {
		http.Error(w, "values must not be empty", http.StatusBadRequest)
		return
	}

	rec, err := recorder.NewDrawRecorder(dst.DistName, dst.DistID, spec.Family(dst.Family))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	for _, v := range dst.Values {
		rec.Record(v)
	}
	st := rec.Done()
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(st); err != nil {
		http.Error(w, err.Error(), http.StatusForbidden)
		return
	}
}
