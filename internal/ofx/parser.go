// Package ofx reads OFX/QFX statements into transaction drafts.
package ofx

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"regexp"
	"strings"

	"github.com/Veraticus/cashback-counter/internal/engine"
	"github.com/Veraticus/cashback-counter/internal/model"
	"github.com/aclindsa/ofxgo"
)

var (
	severityRegex = regexp.MustCompile(`(?i)<SEVERITY>(Info|Warn|Error)</SEVERITY>`)
	tagFixRegex   = regexp.MustCompile(`(?m)^(\s*<[A-Z][A-Z0-9._]*[A-Z0-9])$`)
)

// Statement is the spending found in one OFX file.
type Statement struct {
	// Accounts holds every account ID the file covers.
	Accounts []string
	Drafts   []engine.Draft
	// Credits counts payments and refunds, which earn no cashback.
	Credits int
}

// Parser implements OFX/QFX file parsing.
type Parser struct{}

// NewParser creates a new OFX parser.
func NewParser() *Parser {
	return &Parser{}
}

// preprocessOFX fixes common formatting issues in OFX files.
func (p *Parser) preprocessOFX(content string) string {
	content = strings.TrimLeft(content, " \t\r\n")

	// SEVERITY must be INFO, WARN or ERROR; some banks send mixed case.
	content = severityRegex.ReplaceAllStringFunc(content, strings.ToUpper)

	// SGML files sometimes drop the ">" of a bare opening tag at end of line.
	return tagFixRegex.ReplaceAllString(content, "$1>")
}

// ParseFile parses an OFX/QFX file into drafts, one per purchase. Drafts
// carry no card; the importer assigns them.
func (p *Parser) ParseFile(ctx context.Context, reader io.Reader) (*Statement, error) {
	content, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to read OFX file: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	resp, err := ofxgo.ParseResponse(strings.NewReader(p.preprocessOFX(string(content))))
	if err != nil {
		return nil, fmt.Errorf("failed to parse OFX file: %w", err)
	}

	stmt := &Statement{}
	seen := make(map[string]bool)
	addAccount := func(id string) {
		if id != "" && !seen[id] {
			seen[id] = true
			stmt.Accounts = append(stmt.Accounts, id)
		}
	}

	var bankStmts, ccStmts int
	for _, msg := range resp.Bank {
		if bank, ok := msg.(*ofxgo.StatementResponse); ok {
			bankStmts++
			addAccount(string(bank.BankAcctFrom.AcctID))
			if bank.BankTranList != nil {
				p.collect(stmt, bank.BankTranList.Transactions, bank.CurDef.String())
			}
		}
	}
	for _, msg := range resp.CreditCard {
		if cc, ok := msg.(*ofxgo.CCStatementResponse); ok {
			ccStmts++
			addAccount(string(cc.CCAcctFrom.AcctID))
			if cc.BankTranList != nil {
				p.collect(stmt, cc.BankTranList.Transactions, cc.CurDef.String())
			}
		}
	}

	slog.Info("Parsed OFX file",
		"purchases", len(stmt.Drafts),
		"credits", stmt.Credits,
		"bank_statements", bankStmts,
		"cc_statements", ccStmts)

	return stmt, nil
}

func (p *Parser) collect(stmt *Statement, txns []ofxgo.Transaction, statementCurrency string) {
	for _, ofxTx := range txns {
		draft, ok := p.convertTransaction(ofxTx, statementCurrency)
		if !ok {
			stmt.Credits++
			continue
		}
		stmt.Drafts = append(stmt.Drafts, draft)
	}
}

// convertTransaction turns a debit into a draft. Credits return false.
func (p *Parser) convertTransaction(ofxTx ofxgo.Transaction, statementCurrency string) (engine.Draft, bool) {
	// OFX signs debits negative.
	amount, _ := ofxTx.TrnAmt.Float64()
	if amount >= 0 {
		return engine.Draft{}, false
	}
	billing := model.RoundMoney(-amount)

	spendCurrency := statementCurrency
	spendAmount := billing
	if orig := ofxTx.OrigCurrency; orig != nil && orig.CurSym.String() != "" {
		spendCurrency = orig.CurSym.String()
		// CURRATE is the statement currency per unit of the original one.
		if rate, _ := orig.CurRate.Float64(); rate > 0 {
			spendAmount = model.RoundMoney(billing / rate)
		}
	} else if cur := ofxTx.Currency; cur != nil && cur.CurSym.String() != "" {
		spendCurrency = cur.CurSym.String()
	}

	return engine.Draft{
		Date:          ofxTx.DtPosted.Time,
		Merchant:      p.extractMerchantName(ofxTx),
		Category:      model.CategoryFromSIC(int(ofxTx.SIC)),
		SpendRegion:   model.RegionFromCurrency(spendCurrency),
		Source:        model.SourceOFX,
		ExternalID:    string(ofxTx.FiTID),
		SpendAmount:   spendAmount,
		BillingAmount: engine.Billing(billing),
	}, true
}

// extractMerchantName tries to get a clean merchant name from OFX data.
func (p *Parser) extractMerchantName(tx ofxgo.Transaction) string {
	// PAYEE is usually cleaner than NAME.
	if tx.Payee != nil && tx.Payee.Name != "" {
		return strings.TrimSpace(string(tx.Payee.Name))
	}

	name := string(tx.Name)
	if tx.Memo != "" && isGenericDescription(name) {
		name = string(tx.Memo)
	}
	name = strings.TrimSpace(name)

	prefixes := []string{
		"POS PURCHASE ",
		"PURCHASE AUTHORIZED ON ",
		"DEBIT CARD PURCHASE ",
		"CHECK CARD ",
		"VISA PURCHASE ",
		"MC PURCHASE ",
		"DEBIT PURCHASE ",
		"CARD PURCHASE ",
	}
	for _, prefix := range prefixes {
		if strings.HasPrefix(strings.ToUpper(name), prefix) {
			name = name[len(prefix):]
			break
		}
	}

	// Drop a leading "MM/DD " date.
	if len(name) > 5 && name[2] == '/' && name[5] == ' ' {
		name = strings.TrimSpace(name[6:])
	}

	return name
}

func isGenericDescription(name string) bool {
	switch strings.ToUpper(strings.TrimSpace(name)) {
	case "DEBIT", "PURCHASE", "POS TRANSACTION", "CARD PURCHASE":
		return true
	}
	return false
}

// MatchesCard reports whether any account in the statement ends with the
// card's last four digits. Cards without an EndNum match everything.
func (s *Statement) MatchesCard(card *model.RewardCard) bool {
	if card.EndNum == "" || len(s.Accounts) == 0 {
		return true
	}
	for _, acct := range s.Accounts {
		if strings.HasSuffix(acct, card.EndNum) {
			return true
		}
	}
	return false
}
