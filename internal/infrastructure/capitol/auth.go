package capitol

import (
	"fmt"
	"strings"
	"unicode"
)

// minAPIKeyLength 外部服务签发的 key 不短于该长度
const minAPIKeyLength = 32

const apiKeyAlphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789-._/+="

// NormalizeAPIKey 规范化 API Key：去除空白与已有的 Bearer 前缀，并校验字符集
func NormalizeAPIKey(raw string) (string, error) {
	key := strings.TrimSpace(raw)
	if key == "" {
		return "", fmt.Errorf("api key is missing")
	}
	if len(key) >= 7 && strings.EqualFold(key[:7], "bearer ") {
		key = strings.TrimSpace(key[7:])
	}

	if strings.IndexFunc(key, unicode.IsSpace) >= 0 {
		return "", fmt.Errorf("api key contains whitespace characters")
	}
	if len(key) < minAPIKeyLength {
		return "", fmt.Errorf("api key seems too short: %d chars", len(key))
	}

	var invalid []string
	for _, r := range key {
		if !strings.ContainsRune(apiKeyAlphabet, r) {
			invalid = append(invalid, string(r))
		}
	}
	if len(invalid) > 0 {
		return "", fmt.Errorf("api key contains invalid characters: %q", invalid)
	}

	return key, nil
}
