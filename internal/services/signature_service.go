package services

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// 签名时间戳允许的最大偏差，防止重放旧请求
const signatureTolerance = 5 * time.Minute

// SignatureService 账单 webhook 签名校验
// 签名头格式: t=<unix秒>,v1=<hex hmac>，签名内容为 "<t>.<原始请求体>"
type SignatureService struct {
	secret string
}

// NewSignatureService 创建签名校验服务实例
func NewSignatureService(secret string) *SignatureService {
	return &SignatureService{secret: secret}
}

// Sign 计算给定时间戳和请求体的签名（测试和对端实现参考用）
func (s *SignatureService) Sign(timestamp int64, payload []byte) string {
	mac := hmac.New(sha256.New, []byte(s.secret))
	mac.Write([]byte(strconv.FormatInt(timestamp, 10)))
	mac.Write([]byte("."))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

// SignatureHeader 生成完整的签名头
func (s *SignatureService) SignatureHeader(timestamp int64, payload []byte) string {
	return fmt.Sprintf("t=%d,v1=%s", timestamp, s.Sign(timestamp, payload))
}

// Verify 校验签名头，时间戳超出容忍窗口或签名不匹配时返回错误
func (s *SignatureService) Verify(header string, payload []byte) error {
	if s.secret == "" {
		return fmt.Errorf("webhook secret is not configured")
	}
	if header == "" {
		return fmt.Errorf("missing signature header")
	}

	timestamp, signature, err := parseSignatureHeader(header)
	if err != nil {
		return err
	}

	// 检查时间戳偏差
	age := time.Since(time.Unix(timestamp, 0))
	if age > signatureTolerance || age < -signatureTolerance {
		return fmt.Errorf("signature timestamp outside tolerance: %v", age)
	}

	expected := s.Sign(timestamp, payload)
	if !hmac.Equal([]byte(expected), []byte(signature)) {
		return fmt.Errorf("signature mismatch")
	}

	return nil
}

// parseSignatureHeader 解析 t=...,v1=... 格式的签名头
func parseSignatureHeader(header string) (int64, string, error) {
	var timestamp int64
	var signature string

	for _, part := range strings.Split(header, ",") {
		key, value, found := strings.Cut(strings.TrimSpace(part), "=")
		if !found {
			continue
		}
		switch key {
		case "t":
			ts, err := strconv.ParseInt(value, 10, 64)
			if err != nil {
				return 0, "", fmt.Errorf("invalid signature timestamp: %s", value)
			}
			timestamp = ts
		case "v1":
			signature = value
		}
	}

	if timestamp == 0 || signature == "" {
		return 0, "", fmt.Errorf("malformed signature header")
	}

	return timestamp, signature, nil
}
