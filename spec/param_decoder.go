package spec

import (
	"bytes"

	"github.com/zintix-labs/distlab/errs"
	"gopkg.in/yaml.v3"
)

// DecodeParams 會把 ds.Params 由 map[string]any 轉成家族對應的型別 T。
// T 應該是各家族的 Params struct，例如 UniformParams。
func DecodeParams[T any](ds *DistSetting, out *T) error {
	// 先把 map[string]any -> YAML bytes
	bs, err := yaml.Marshal(ds.Params)
	if err != nil {
		return errs.Wrap(err, "spec.param_decoder : marshal failed")
	}
	// 再把 YAML bytes -> 家族參數型別
	dec := yaml.NewDecoder(bytes.NewReader(bs))
	dec.KnownFields(true) // 嚴格檢查：多寫/拼錯欄位就報錯
	if err = dec.Decode(out); err != nil {
		return errs.Wrap(err, "spec.param_decoder : decode failed")
	}
	return nil
}
