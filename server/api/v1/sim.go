package v1

import (
	"crypto/rand"
	"encoding/json"
	"fmt"
	"math"
	"math/big"
	"net/http"
	"strconv"

	"github.com/zintix-labs/distlab"
	"github.com/zintix-labs/distlab/errs"
	"github.com/zintix-labs/distlab/server/httperr"
	"github.com/zintix-labs/distlab/spec"
	"github.com/zintix-labs/distlab/stats"
)

type SimHandler struct {
	Lab *distlab.Lab
}

func NewSimHandler(lab *distlab.Lab) (*SimHandler, error) {
	return &SimHandler{Lab: lab}, nil
}

func (sh *SimHandler) Sim(w http.ResponseWriter, q *http.Request) {
	// 內部結構 不影響外部 也不被外部使用
	type SimRequestBody struct {
		DID   spec.DID `json:"did"`
		Draws int      `json:"draws"`
		MP    int      `json:"mp,omitempty"`
		Seed  *int64   `json:"seed,omitempty"`
	}
	// 內部結構 不影響外部 也不被外部使用
	type SimResponse struct {
		Stats    *stats.SampleReport `json:"stats"`
		UsedTime int64               `json:"used_ms"`
	}
	// ---
	req := new(SimRequestBody)
	if q.Method != http.MethodGet && q.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if q.Method == http.MethodGet {
		// did
		if s := q.URL.Query().Get("did"); s != "" {
			u, err := strconv.ParseUint(s, 10, 32)
			if err != nil {
				httperr.Errs(w, errs.NewWarn("did must be non-negative integer"))
				return
			}
			req.DID = spec.DID(u)
		} else {
			// 直接空值
			httperr.Errs(w, errs.NewWarn("did is required"))
			return
		}

		// draws
		if r := q.URL.Query().Get("draws"); r != "" {
			u, err := strconv.ParseInt(r, 10, 64)
			if err != nil {
				httperr.Errs(w, errs.NewWarn("draws must be integer"))
				return
			}
			req.Draws = int(u)
		} else {
			httperr.Errs(w, errs.NewWarn("draws is required"))
			return
		}

		// mp（可選；0 或缺省表示單線）
		if m := q.URL.Query().Get("mp"); m != "" {
			u, err := strconv.ParseInt(m, 10, 64)
			if err != nil {
				httperr.Errs(w, errs.NewWarn("mp must be integer"))
				return
			}
			req.MP = int(u)
		}

		// seed
		if s := q.URL.Query().Get("seed"); s != "" {
			u, err := strconv.ParseInt(s, 10, 64)
			if err != nil {
				httperr.Errs(w, errs.NewWarn("seed must be int64"))
				return
			}
			v := u
			req.Seed = &v
		}
	}
	if q.Method == http.MethodPost {
		if err := json.NewDecoder(q.Body).Decode(req); err != nil {
			httperr.Errs(w, errs.NewWarn("invalid json:"+err.Error()))
			return
		}
	}
	// 業務檢驗
	_, ok := sh.Lab.EntryById(req.DID)
	if !ok {
		httperr.Errs(w, errs.NewWarn("did not found"))
		return
	}
	if req.Draws < 1 || req.Draws > 10000000 {
		httperr.Errs(w, errs.NewWarn("draws must be between 1 to 10,000,000"))
		return
	}
	if req.MP < 0 || req.MP > 64 {
		httperr.Errs(w, errs.NewWarn("mp must be between 0 and 64"))
		return
	}
	if req.Seed == nil {
		rnd, err := rand.Int(rand.Reader, big.NewInt(math.MaxInt64))
		if err != nil {
			httperr.Errs(w, errs.NewWarn("seed generate failed"))
			return
		}
		v := rnd.Int64()
		req.Seed = &v
	}
	study, err := sh.Lab.NewStudyWithSeed(req.DID, *req.Seed)
	if err != nil {
		// 這裡的錯誤是來自 lab 尊重錯誤分級
		httperr.Errs(w, errs.Wrap(err, fmt.Sprintf("build study err: %d", req.DID)))
		return
	}

	var (
		st   *stats.SampleReport
		used = int64(0)
	)
	if req.MP > 1 {
		report, ut, serr := study.RunMP(req.Draws, req.MP, false)
		if serr != nil {
			httperr.Errs(w, errs.Wrap(serr, "simulate err"))
			return
		}
		st, used = report, ut.Milliseconds()
	} else {
		report, ut, serr := study.Run(req.Draws, false)
		if serr != nil {
			httperr.Errs(w, errs.Wrap(serr, "simulate err"))
			return
		}
		st, used = report, ut.Milliseconds()
	}

	resp := SimResponse{
		Stats:    st,
		UsedTime: used,
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// SimReplicas 以 mp 個複本各抽 draws 次，回傳合併報表與複本一致性分析。
func (sh *SimHandler) SimReplicas(w http.ResponseWriter, r *http.Request) {
	// 內部結構 不影響外部 也不被外部使用
	type SimReplicaRequestBody struct {
		DID   spec.DID `json:"did"`
		MP    int      `json:"mp"`
		Draws int      `json:"draws"`
		Seed  *int64   `json:"seed,omitempty"`
	}
	// 內部結構 不影響外部 也不被外部使用
	type SimReplicaResponse struct {
		StatsReport *stats.SampleReport      `json:"stats"`
		Estimator   *stats.EstimatorReplicas `json:"est"`
		UsedTime    int64                    `json:"used_ms"`
	}
	// ---
	if r.Method != http.MethodGet && r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	req := new(SimReplicaRequestBody)
	if r.Method == http.MethodGet {
		// did
		if s := r.URL.Query().Get("did"); s != "" {
			u, err := strconv.ParseUint(s, 10, 32)
			if err != nil {
				httperr.Errs(w, errs.NewWarn("did must be non-negative integer"))
				return
			}
			req.DID = spec.DID(u)
		} else {
			httperr.Errs(w, errs.NewWarn("did is required"))
			return
		}

		// mp
		if m := r.URL.Query().Get("mp"); m != "" {
			u, err := strconv.Atoi(m)
			if err != nil {
				httperr.Errs(w, errs.NewWarn("mp must be integer"))
				return
			}
			req.MP = u
		} else {
			httperr.Errs(w, errs.NewWarn("mp is required"))
			return
		}

		// draws
		if d := r.URL.Query().Get("draws"); d != "" {
			u, err := strconv.Atoi(d)
			if err != nil {
				httperr.Errs(w, errs.NewWarn("draws must be integer"))
				return
			}
			req.Draws = u
		} else {
			httperr.Errs(w, errs.NewWarn("draws is required"))
			return
		}

		// seed
		if s := r.URL.Query().Get("seed"); s != "" {
			u, err := strconv.ParseInt(s, 10, 64)
			if err != nil {
				httperr.Errs(w, errs.NewWarn("seed must be int64"))
				return
			}
			v := u
			req.Seed = &v
		}
	}
	if r.Method == http.MethodPost {
		if err := json.NewDecoder(r.Body).Decode(req); err != nil {
			httperr.Errs(w, errs.NewWarn("invalid json:"+err.Error()))
			return
		}
	}
	// 業務邏輯判斷
	if _, ok := sh.Lab.EntryById(req.DID); !ok {
		httperr.Errs(w, errs.NewWarn("did not found"))
		return
	}
	if req.MP < 2 || req.MP > 256 {
		httperr.Errs(w, errs.NewWarn("mp must be between 2 and 256"))
		return
	}
	if req.Draws < 1 || req.Draws > 1000000 {
		httperr.Errs(w, errs.NewWarn("draws must be between 1 and 1,000,000"))
		return
	}
	if req.Seed == nil {
		rnd, err := rand.Int(rand.Reader, big.NewInt(math.MaxInt64))
		if err != nil {
			httperr.Errs(w, errs.NewWarn("seed generate failed"))
			return
		}
		v := rnd.Int64()
		req.Seed = &v
	}
	// 取得 study
	study, err := sh.Lab.NewStudyWithSeed(req.DID, *req.Seed)
	if err != nil {
		httperr.Errs(w, errs.Wrap(err, fmt.Sprintf("build study err: %d", req.DID)))
		return
	}
	st, est, used, err := study.RunReplicas(req.MP, req.Draws, false)
	if err != nil {
		httperr.Errs(w, errs.Wrap(err, fmt.Sprintf("study err: %d", req.DID)))
		return
	}
	resp := &SimReplicaResponse{
		StatsReport: st,
		Estimator:   est,
		UsedTime:    used.Milliseconds(),
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}
