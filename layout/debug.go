package layout

import (
	"encoding/json"
	"os"
)

// Report 汇总一次渲染的输入与结果，便于调试缓存命中与画布尺寸。
type Report struct {
	Request     Request      `json:"request"`
	Fingerprint string       `json:"fingerprint"`
	CachePath   string       `json:"cachePath,omitempty"`
	CacheHit    bool         `json:"cacheHit"`
	Box         *BoundingBox `json:"box,omitempty"`
	Bytes       int          `json:"bytes"`
}

// WriteDebugJSON 将渲染报告输出为 JSON。
func WriteDebugJSON(rep *Report, path string) error {
	if rep == nil {
		return nil
	}
	data, err := json.MarshalIndent(rep, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
