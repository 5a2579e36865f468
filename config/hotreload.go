// 配置指纹与热更新辅助。
package config

import (
	"encoding/json"
	"fmt"
	"hash/fnv"
)

// Fingerprint returns a stable FNV-1a checksum of the conversation section.
// Two configs with the same fingerprint schedule identically.
func (c ConversationConfig) Fingerprint() string {
	return checksum(c)
}

// Fingerprint returns a checksum of the full configuration.
func (c *Config) Fingerprint() string {
	return checksum(c)
}

// checksum 计算 JSON 序列化后的 FNV hash
func checksum(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	h := fnv.New64a()
	h.Write(data)
	return fmt.Sprintf("%016x", h.Sum64())
}
