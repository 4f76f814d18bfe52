package utils

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strconv"

	"github.com/Dan9191/loanflow/internal/models"
)

// sealPayload serializes the fields that must never change after creation
func sealPayload(l *models.LoanApplication) string {
	return strconv.FormatInt(l.UserID, 10) + "|" +
		strconv.FormatFloat(l.DTI, 'g', -1, 64) + "|" +
		strconv.Itoa(l.RiskScore) + "|" +
		string(l.EligibilityDecision) + "|" +
		strconv.FormatFloat(l.InterestRate, 'g', -1, 64)
}

// GenerateHMAC seals the computed analytics fields of a loan application
func GenerateHMAC(l *models.LoanApplication, secret string) string {
	h := hmac.New(sha256.New, []byte(secret))
	h.Write([]byte(sealPayload(l)))
	return hex.EncodeToString(h.Sum(nil))
}

// VerifyHMAC reports whether the stored seal still matches the analytics fields
func VerifyHMAC(l *models.LoanApplication, secret string) bool {
	want, err := hex.DecodeString(l.HMAC)
	if err != nil {
		return false
	}
	got, _ := hex.DecodeString(GenerateHMAC(l, secret))
	return hmac.Equal(want, got)
}
