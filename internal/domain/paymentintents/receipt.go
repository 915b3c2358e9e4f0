package paymentintents

import (
	"fmt"
	"strings"

	"github.com/speps/go-hashids/v2"
)

// ReceiptNumberer turns intent ids into short, non-sequential receipt codes.
type ReceiptNumberer struct {
	h *hashids.HashID
}

func NewReceiptNumberer(salt string) (*ReceiptNumberer, error) {
	hd := hashids.NewData()
	hd.Salt = salt
	hd.MinLength = 8
	hd.Alphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

	h, err := hashids.NewWithData(hd)
	if err != nil {
		return nil, fmt.Errorf("receipt numberer: %w", err)
	}
	return &ReceiptNumberer{h: h}, nil
}

func (n *ReceiptNumberer) Number(intentID int64) (string, error) {
	code, err := n.h.EncodeInt64([]int64{intentID})
	if err != nil {
		return "", fmt.Errorf("encode receipt number: %w", err)
	}
	return "RCPT-" + code, nil
}

// IntentID reverses Number.
func (n *ReceiptNumberer) IntentID(receiptNo string) (int64, error) {
	code := strings.TrimPrefix(strings.ToUpper(strings.TrimSpace(receiptNo)), "RCPT-")
	ids, err := n.h.DecodeInt64WithError(code)
	if err != nil {
		return 0, fmt.Errorf("decode receipt number: %w", err)
	}
	if len(ids) != 1 {
		return 0, fmt.Errorf("decode receipt number: unexpected length %d", len(ids))
	}
	return ids[0], nil
}
