package model

import (
	"crypto/sha256"
	"fmt"
	"time"
)

// TransactionSource records how a transaction entered the system.
type TransactionSource string

const (
	// SourceManual marks transactions entered through the CLI.
	SourceManual TransactionSource = "manual"
	// SourceOFX marks transactions imported from an OFX/QFX statement.
	SourceOFX TransactionSource = "ofx"
)

// Transaction is a purchase made with a reward card.
//
// Rate and Reward are snapshots taken when the transaction was recorded or
// last edited. They are never recomputed when the card's policy changes.
type Transaction struct {
	Date        time.Time
	CreatedAt   time.Time
	ID          string
	CardID      string
	Merchant    string
	Category    Category
	SpendRegion Region
	Source      TransactionSource
	ExternalID  string // e.g. the OFX FITID, used to skip re-imports
	Hash        string
	Amount      float64 // in the card's billing currency
	SpendAmount float64 // in the spend region's currency
	Rate        float64
	Reward      float64
}

// Year returns the calendar year the transaction counts against for caps on
// a card issued in issuing.
func (t *Transaction) Year(issuing Region) int {
	return CapYear(t.Date, issuing)
}

// WasCapped reports whether a cap cut the stored reward below what the
// nominal rate would have paid.
func (t *Transaction) WasCapped() bool {
	return t.Reward < t.Amount*t.Rate-0.01
}

// GenerateHash creates a unique hash for duplicate detection.
func (t *Transaction) GenerateHash() string {
	data := fmt.Sprintf("%s:%.2f:%s:%s",
		t.Date.Format("2006-01-02"),
		t.Amount,
		t.Merchant,
		t.CardID)
	hash := sha256.Sum256([]byte(data))
	return fmt.Sprintf("%x", hash)
}
