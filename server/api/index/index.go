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

package index

import (
	"net/http"
)

const indexPage = `<!DOCTYPE html>
<html lang="zh-Hant">
<head><meta charset="utf-8"><title>distlab</title></head>
<body>
<h1>distlab</h1>
<p>分布抽樣與統計服務。</p>
<ul>
<li><code>GET/POST /v1/draw</code> - 從指定分布抽樣（含快照審計）</li>
<li><code>GET/POST /v1/est</code> - 蒙地卡羅期望值估計</li>
<li><code>GET/POST /v1/sim</code> - 大量模擬並回傳統計報表</li>
<li><code>GET/POST /v1/simreplicas</code> - 多複本模擬與一致性分析</li>
<li><code>POST /v1/simbycfg</code> - 以自帶設定檔模擬</li>
<li><code>POST /v1/stat</code> - 對外部資料重建統計報表</li>
<li><code>GET /v1/metrics</code> - BenchPool 觀測快照</li>
<li><code>GET /v1/summary</code> - 已註冊分布清單</li>
</ul>
</body>
</html>
`

// IndexHandlerFn 服務主頁：列出可用端點。
func IndexHandlerFn(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write([]byte(indexPage))
}
