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

// Package distlab 提供 distlab 引擎的「組裝入口（assembler）」與「運行入口（runtime entry）」。
//
// 你可以把 Lab 視為一個「可被後端/模擬器使用的 runtime」，它負責把下列兩個必需的地基組裝在一起，並提供建立 Bench 的入口：
//  1. Catalog：分布目錄（Single Source of Truth / SSOT），定義有哪些分布、各自對應的設定檔名稱（ConfigName）。
//  2. CoreFactory：亂數核心工廠（PRNG factory），保證可重現（reproducible）與可審計（auditable）。
//
// 設計重點：
//   - Lab 本身不綁定任何「檔案路徑」概念：設定檔來源一律以 fs.FS 的形式注入。
//   - 取樣家族（Family）是封閉枚舉，組裝路徑由 DistSetting.Family 決定，不需要外部 registry。
//   - Bench 是對外提供 Draw/Expect 的最小單位；分布/估計開發者主要操作的是 sdk 內的型別。
//
// 典型使用情境：
//   - 後端服務（HTTP）：由 Lab 建立 Bench / BenchPool，對外提供 Draw。
//   - 模擬器（study）：由 Lab 建立多張 Bench 進行大量取樣統計。
//
// 注意：此套引擎以「一條共用熵流上的分布組裝與消費」為中心，不是泛用數值框架。
package distlab

import (
	"crypto/rand"
	"fmt"
	"io/fs"
	"math"
	"math/big"
	"path/filepath"
	"strings"

	"github.com/zintix-labs/distlab/catalog"
	"github.com/zintix-labs/distlab/errs"
	"github.com/zintix-labs/distlab/sdk/core"
	"github.com/zintix-labs/distlab/spec"
)

// Configs 用來把一或多個設定檔來源（fs.FS）打包成 New() 需要的參數。
//
// 為什麼是 fs.FS：
//   - 你可以用 go:embed 把 configs 直接編進 binary（部署最穩定，不依賴工作目錄）。
//   - 也可以用 os.DirFS 在本機開發時讀取目錄。
//
// Lab 不解析「路徑」：它只依賴 fs.FS + ConfigName（檔名）來取得設定內容。
func Configs(cfgs ...fs.FS) []fs.FS {
	return cfgs
}

// Lab 是「組裝器（assembler）」與「運行入口（runtime entry）」：
//
// 它把兩個必需的地基組合起來：
//  1. Catalog：分布目錄（SSOT），定義有哪些分布、各自對應的設定檔名稱。
//  2. CoreFactory：亂數核心工廠（PRNG factory），保證可重現與可審計。
//
// 使用流程通常分成兩階段：
//   - 註冊/組裝階段（registration/build）：建立 catalog、掃描設定檔、檢查重複與缺漏。
//   - 執行階段（runtime）：依據分布 ID 產生 Bench，並在 Bench 上執行 Draw/Expect。
//
// 重要設計原則：
//   - Catalog 的 ID 唯一性只保證在「同一個 Lab instance」內。
//   - 你要跑哪一批分布、哪一套設定檔，必須由 New() 的參數明確決定。
//   - runtime 一旦開始（例如已建立 Bench 並對外服務），不建議再變更 Catalog。
type Lab struct {
	cat *catalog.Catalog
	cf  core.CoreFactory
	sum []catalog.Summary
}

// New 建立一個 Lab instance。
//
// 這是「組裝階段（registration/build）」的入口：
//   - 會建立 Catalog（同時做檔名存在性/重複性檢查，避免 runtime 才爆）。
//   - 會保存 CoreFactory，確保由這個 Lab 建出來的 Bench 在 RNG 行為上具有一致性。
//
// 參數要求（是合約的一部分）：
//   - cf 不能為 nil：沒有 RNG 工廠就無法建立可重現/可審計的核心。
//   - cfgs 至少一個：沒有設定檔來源，Catalog 無法解析 DistSetting。
func New(cf core.CoreFactory, cfgs []fs.FS) (*Lab, error) {
	if cf == nil {
		return nil, errs.NewFatal("core factory required")
	}
	if len(cfgs) == 0 {
		return nil, errs.NewFatal("configs required")
	}
	cata, err := catalog.New(cfgs...)
	if err != nil {
		return nil, err
	}
	lab := &Lab{
		cat: cata,
		cf:  cf,
	}
	return lab, nil
}

// NewAuto 建立一個直接進入執行階段的 Lab instance。
//
// 等價於 New + RegisterAll + Freeze。
func NewAuto(cf core.CoreFactory, cfgs []fs.FS) (*Lab, error) {
	lab, err := New(cf, cfgs)
	if err != nil {
		return nil, err
	}
	if err := lab.RegisterAll(); err != nil {
		return nil, err
	}
	lab.Freeze()
	return lab, nil
}

func (l *Lab) Register(ents ...catalog.Entry) error {
	return l.cat.Register(ents...)
}

// RegisterAll
//
// 會掃描 catalog 持有的設定檔來源（fs.FS），把所有可辨識的設定檔（.yaml/.yml/.json）嘗試解析成
// *spec.DistSetting，並用設定檔內宣告的 DistID/DistName 產生對應的 catalog.Entry 來批次註冊。
//
// 行為特性（重要）：
//  1. Fail-fast：任何一個檔案讀取/解析/基本檢查失敗，都會立刻回傳 error（不會忽略、也不會繼續掃完）。
//  2. 原子性：只有當「全部檔案」都成功解析並通過基本檢查時，才會呼叫 Register(...) 一次性寫入。
//     因此不會出現只註冊了一半、導致 catalog 處於半完成狀態的情況。
//  3. 參數 fail-fast：除了名稱/ID 唯一性外，家族參數也在這裡做嚴格解碼與範圍檢查，
//     讓錯誤設定在組裝階段就爆，而不是建 Bench 時。
func (l *Lab) RegisterAll() error {
	cfgs := l.cat.Cfg()
	sources := cfgs.Sources()
	if len(sources) == 0 {
		return errs.NewFatal("configs required")
	}

	entries := make([]catalog.Entry, 0, 64)
	seenID := map[spec.DID]string{}
	seenName := map[string]string{}

	for _, src := range sources {
		walkErr := fs.WalkDir(src, ".", func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				if path == "." {
					return nil
				}
				return errs.NewFatal(fmt.Sprintf("configs must be flat (no subdir): %q", path))
			}

			base := filepath.Base(path)
			if strings.Contains(path, "/") && path != base {
				return errs.NewFatal(fmt.Sprintf("configs must be flat (nested path): %q", path))
			}
			if strings.HasPrefix(base, ".") {
				return nil
			}

			ext := strings.ToLower(filepath.Ext(base))
			if ext != ".yaml" && ext != ".yml" && ext != ".json" {
				return nil
			}

			raw, rerr := fs.ReadFile(src, path)
			if rerr != nil {
				return errs.NewFatal(fmt.Sprintf("read config failed: %s", base))
			}

			var (
				ds   *spec.DistSetting
				derr error
			)
			switch ext {
			case ".yaml", ".yml":
				ds, derr = spec.GetDistSettingByYAML(raw)
			case ".json":
				ds, derr = spec.GetDistSettingByJSON(raw)
			default:
				return errs.NewFatal(fmt.Sprintf("unsupported config format: %q", base))
			}
			if derr != nil {
				return errs.NewFatal(fmt.Sprintf("parse distsetting failed: %s err: %v", base, derr))
			}

			name := strings.TrimSpace(ds.DistName)
			if name == "" {
				return errs.NewFatal(fmt.Sprintf("dist name required: %s", base))
			}

			id := ds.DistID
			if prev, ok := seenID[id]; ok {
				return errs.NewFatal(fmt.Sprintf("duplicate dist id: %d (config=%s and %s)", id, prev, base))
			}
			if _, ok := l.cat.GetByID(id); ok {
				return errs.NewFatal(fmt.Sprintf("dist id already registered: %d (config=%s)", id, base))
			}
			seenID[id] = base

			nameKey := strings.ToLower(name)
			if prev, ok := seenName[nameKey]; ok {
				return errs.NewFatal(fmt.Sprintf("duplicate dist name: %s (config=%s and %s)", nameKey, prev, base))
			}
			if _, ok := l.cat.GetByName(name); ok {
				return errs.NewFatal(fmt.Sprintf("dist name already registered: %s (config=%s)", name, base))
			}
			seenName[nameKey] = base

			if err := validateParams(ds); err != nil {
				return errs.Wrap(err, fmt.Sprintf("invalid params (config=%s)", base))
			}

			entries = append(entries, catalog.Entry{
				DID:        id,
				Name:       name,
				ConfigName: base,
			})
			return nil
		})
		if walkErr != nil {
			return walkErr
		}
	}

	if len(entries) == 0 {
		return errs.NewFatal("no config files found to register")
	}

	return l.cat.Register(entries...)
}

func (l *Lab) Freeze() {
	l.cat.Freeze()
}

func (l *Lab) EntryById(id spec.DID) (catalog.Entry, bool) {
	return l.cat.GetByID(id)
}

func (l *Lab) EntryByName(name string) (catalog.Entry, bool) {
	return l.cat.GetByName(name)
}

func (l *Lab) IDs() []spec.DID {
	return l.cat.IDs()
}

func (l *Lab) All() []catalog.Entry {
	return l.cat.All()
}

func (l *Lab) Summary() ([]catalog.Summary, error) {
	if !l.cat.IsFrozen() {
		return nil, errs.NewFatal("catalog is not frozen yet")
	}
	if l.sum != nil {
		return l.sum, nil
	}
	ids := l.cat.IDs()
	cs := make([]catalog.Summary, 0, len(ids))
	for _, id := range ids {
		ds, err := l.cat.DistSettingById(id)
		if err != nil {
			return nil, errs.NewFatal("parse dist setting failed")
		}
		s := catalog.Summary{
			DID:    id,
			Name:   ds.DistName,
			Family: ds.Family,
		}
		cs = append(cs, s)
	}
	l.sum = cs
	return l.sum, nil
}

// NewBench 依據 Catalog 內的分布 ID 建立一張 Bench。
//
// 行為：
//  1. 由 Catalog 取得對應的 DistSetting（通常來自 fs.FS 內的 YAML/JSON）。
//  2. 以 CoreFactory 產生 RNG 核心（seed 由 crypto/rand 產生）。
//  3. 依 Family 組裝 float64 視角的分布。
//
// 注意：seed 會被記錄在 Bench 內（initseed），用於追溯/重現；真正的可審計能力以 Core 的 Snapshot/Restore 合約為準。
func (l *Lab) NewBench(id spec.DID) (*Bench, error) {
	if !l.cat.IsFrozen() {
		return nil, errs.NewFatal("catalog is not frozen yet")
	}
	ds, err := l.cat.DistSettingById(id)
	if err != nil {
		return nil, err
	}
	return newBench(ds, l.cf)
}

// NewBenchWithSeed 與 NewBench 相同，但由呼叫端指定初始 seed。
//
// 使用情境：
//   - 可重現的測試：同一份設定 + 同一個 seed，應產生一致的樣本序列（取決於 Core 實作）。
//
// 注意：seed 只是「出生入口」。若要在任意時間點完整重現，請使用 Core 的 Snapshot/Restore（以 []byte 交換狀態）。
func (l *Lab) NewBenchWithSeed(id spec.DID, seed int64) (*Bench, error) {
	if !l.cat.IsFrozen() {
		return nil, errs.NewFatal("catalog is not frozen yet")
	}
	ds, err := l.cat.DistSettingById(id)
	if err != nil {
		return nil, err
	}
	return newBenchWithSeed(ds, l.cf, seed)
}

func (l *Lab) NewBenchByJSON(raw []byte, seed int64) (*Bench, error) {
	if !l.cat.IsFrozen() {
		return nil, errs.NewFatal("catalog is not frozen yet")
	}
	cfg, err := spec.GetDistSettingByJSON(raw)
	if err != nil {
		return nil, err
	}
	if err := l.validCfg(cfg); err != nil {
		return nil, err
	}
	return newBenchWithSeed(cfg, l.cf, seed)
}

func (l *Lab) NewBenchByYAML(raw []byte, seed int64) (*Bench, error) {
	if !l.cat.IsFrozen() {
		return nil, errs.NewFatal("catalog is not frozen yet")
	}
	cfg, err := spec.GetDistSettingByYAML(raw)
	if err != nil {
		return nil, err
	}
	if err := l.validCfg(cfg); err != nil {
		return nil, err
	}
	return newBenchWithSeed(cfg, l.cf, seed)
}

func (l *Lab) validCfg(cfg *spec.DistSetting) error {
	ent, ok := l.cat.GetByID(cfg.DistID)
	if !ok {
		return errs.NewWarn("did not exist")
	}
	ent2, ok := l.cat.GetByName(cfg.DistName)
	if !ok {
		return errs.NewWarn("dist name not exist")
	}
	if ent.DID != ent2.DID {
		return errs.NewWarn("dist id is not matched dist name")
	}
	return validateParams(cfg)
}

func (l *Lab) NewStudy(id spec.DID) (*Study, error) {
	if !l.cat.IsFrozen() {
		return nil, errs.NewFatal("catalog is not frozen yet")
	}
	ds, err := l.cat.DistSettingById(id)
	if err != nil {
		return nil, err
	}
	return newStudy(ds, l.cf)
}

func (l *Lab) NewStudyWithSeed(id spec.DID, seed int64) (*Study, error) {
	if !l.cat.IsFrozen() {
		return nil, errs.NewFatal("catalog is not frozen yet")
	}
	ds, err := l.cat.DistSettingById(id)
	if err != nil {
		return nil, err
	}
	return newStudyWithSeed(ds, l.cf, seed)
}

func (l *Lab) NewStudyByJSON(raw []byte, seed int64) (*Study, error) {
	if !l.cat.IsFrozen() {
		return nil, errs.NewFatal("catalog is not frozen yet")
	}
	cfg, err := spec.GetDistSettingByJSON(raw)
	if err != nil {
		return nil, err
	}
	if err := l.validCfg(cfg); err != nil {
		return nil, err
	}
	return newStudyWithSeed(cfg, l.cf, seed)
}

func (l *Lab) NewStudyByYAML(raw []byte, seed int64) (*Study, error) {
	if !l.cat.IsFrozen() {
		return nil, errs.NewFatal("catalog is not frozen yet")
	}
	cfg, err := spec.GetDistSettingByYAML(raw)
	if err != nil {
		return nil, err
	}
	if err := l.validCfg(cfg); err != nil {
		return nil, err
	}
	return newStudyWithSeed(cfg, l.cf, seed)
}

func (l *Lab) BuildRuntime(poolSize int) (*LabRuntime, error) {
	// 1. 進入 runtime 前，catalog 必須 Freeze
	l.Freeze()

	ids := l.cat.IDs()
	if len(ids) == 0 {
		return nil, errs.NewFatal("no dists registered")
	}

	rt := &LabRuntime{
		lab:      l,
		pools:    make(map[spec.DID]*BenchPool, len(ids)),
		ids:      ids,
		done:     make(chan struct{}),
		poolSize: max(1, poolSize),
	}
	rt.reason.Store("")

	// 2. 先全建好（fail-fast）
	for _, id := range ids {
		ds, err := l.cat.DistSettingById(id)
		if err != nil {
			return nil, err
		}

		seed, _ := rand.Int(rand.Reader, big.NewInt(math.MaxInt64))
		bp, err := newBenchPool(rt.poolSize, ds, l.cf, seed.Int64())
		if err != nil {
			return nil, err
		}
		rt.pools[id] = bp
	}
	return rt, nil
}
