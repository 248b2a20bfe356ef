// internal/service/payment/interfaces/signature.go
package interfaces

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// SignatureHeader 携带网关对通知体的 HMAC-SHA256 签名（十六进制）。
const SignatureHeader = "X-Gateway-Signature"

// VerifySignature 校验通知体的签名。比较使用常量时间，防时序侧信道。
func VerifySignature(secret string, payload []byte, signature string) bool {
	if secret == "" || signature == "" {
		return false
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}
