package services

import (
	"crypto/rand"
	"encoding/base32"
	"fmt"

	"affiliate-api/internal/database"
)

const affiliateCodeLength = 8

// CodeService generates unique, shareable affiliate codes
type CodeService struct{}

// NewCodeService creates a new code service instance
func NewCodeService() *CodeService {
	return &CodeService{}
}

// GenerateCode generates a random 8-character uppercase code
func (s *CodeService) GenerateCode() (string, error) {
	bytes := make([]byte, 5)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	// Base32 without padding keeps the code short and unambiguous for sharing
	code := base32.StdEncoding.WithPadding(base32.NoPadding).EncodeToString(bytes)
	return code[:affiliateCodeLength], nil
}

// UniqueAffiliateCode generates a code that is not yet taken by any affiliate
func (s *CodeService) UniqueAffiliateCode() (string, error) {
	for attempt := 0; attempt < 5; attempt++ {
		code, err := s.GenerateCode()
		if err != nil {
			return "", err
		}
		exists, err := database.AffiliateCodeExists(code)
		if err != nil {
			return "", err
		}
		if !exists {
			return code, nil
		}
	}
	return "", fmt.Errorf("failed to generate unique affiliate code after 5 attempts")
}
