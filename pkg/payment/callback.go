package payment

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"

	apperrors "github.com/InfiniteGosi/YolmaFoodApp/pkg/errors"
	"github.com/shopspring/decimal"
)

// SignatureHeader carries the hex HMAC-SHA256 of the callback body.
const SignatureHeader = "X-Signature"

// Outcome is a verified gateway report about one payment attempt.
type Outcome struct {
	OrderID       string
	TransactionID string
	Amount        decimal.Decimal
	Success       bool
	FailureReason string
}

type callbackBody struct {
	OrderID       string           `json:"orderId"`
	TransactionID string           `json:"transactionId"`
	Amount        *decimal.Decimal `json:"amount"`
	Success       *bool            `json:"success"`
	FailureReason string           `json:"failureReason"`
}

// Sign returns the signature a sender must attach for body.
func Sign(body []byte, secret string) string {
	return hex.EncodeToString(hmacSum(body, secret))
}

// ParseCallback authenticates and decodes a callback body. Signature
// checking is skipped when secret is empty.
func ParseCallback(body []byte, signature, secret string) (Outcome, error) {
	if secret != "" {
		want, err := hex.DecodeString(signature)
		if err != nil || !hmac.Equal(want, hmacSum(body, secret)) {
			return Outcome{}, apperrors.New(apperrors.CodeUnauthorized, "invalid callback signature")
		}
	}

	dec := json.NewDecoder(bytes.NewReader(body))
	dec.DisallowUnknownFields()
	var in callbackBody
	if err := dec.Decode(&in); err != nil {
		return Outcome{}, apperrors.Wrap(apperrors.CodeValidation, "malformed callback body", err)
	}

	switch {
	case in.OrderID == "":
		return Outcome{}, apperrors.Validation("orderId is required")
	case in.TransactionID == "":
		return Outcome{}, apperrors.Validation("transactionId is required")
	case in.Amount == nil || !in.Amount.IsPositive():
		return Outcome{}, apperrors.Validation("amount must be positive")
	case in.Success == nil:
		return Outcome{}, apperrors.Validation("success is required")
	}

	out := Outcome{
		OrderID:       in.OrderID,
		TransactionID: in.TransactionID,
		Amount:        *in.Amount,
		Success:       *in.Success,
		FailureReason: in.FailureReason,
	}
	if !out.Success && out.FailureReason == "" {
		out.FailureReason = "payment declined"
	}
	return out, nil
}

func hmacSum(body []byte, secret string) []byte {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return mac.Sum(nil)
}
