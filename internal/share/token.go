package share

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
)

// tokenBytes 决定分享令牌的熵量：32 字节 = 256 bit，不可猜测。
const tokenBytes = 32

// NewToken 生成一个 URL 安全的不透明分享令牌。
func NewToken() (string, error) {
	buf := make([]byte, tokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("read random bytes: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
