package ofx

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/Veraticus/cashback-counter/internal/model"
	"github.com/aclindsa/ofxgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Sample OFX data for testing.
const sampleBankOFX = `OFXHEADER:100
DATA:OFXSGML
VERSION:102
SECURITY:NONE
ENCODING:USASCII
CHARSET:1252
COMPRESSION:NONE
OLDFILEUID:NONE
NEWFILEUID:NONE

<OFX>
<SIGNONMSGSRSV1>
<SONRS>
<STATUS>
<CODE>0
<SEVERITY>INFO
</STATUS>
<DTSERVER>20240315120000[0:GMT]
<LANGUAGE>ENG
</SONRS>
</SIGNONMSGSRSV1>
<BANKMSGSRSV1>
<STMTTRNRS>
<TRNUID>1
<STATUS>
<CODE>0
<SEVERITY>INFO
</STATUS>
<STMTRS>
<CURDEF>USD
<BANKACCTFROM>
<BANKID>123456789
<ACCTID>1234567890
<ACCTTYPE>CHECKING
</BANKACCTFROM>
<BANKTRANLIST>
<DTSTART>20240101120000[0:GMT]
<DTEND>20240131120000[0:GMT]
<STMTTRN>
<TRNTYPE>DEBIT
<DTPOSTED>20240115120000[0:GMT]
<TRNAMT>-25.50
<FITID>2024011501
<SIC>5814
<NAME>STARBUCKS STORE #1234
</STMTTRN>
<STMTTRN>
<TRNTYPE>DEBIT
<DTPOSTED>20240120120000[0:GMT]
<TRNAMT>-125.00
<FITID>2024012001
<SIC>5411
<NAME>Whole Foods Market
</STMTTRN>
<STMTTRN>
<TRNTYPE>CREDIT
<DTPOSTED>20240125120000[0:GMT]
<TRNAMT>500.00
<FITID>2024012501
<NAME>PAYROLL DEPOSIT
</STMTTRN>
</BANKTRANLIST>
<LEDGERBAL>
<BALAMT>1000.00
<DTASOF>20240131120000[0:GMT]
</LEDGERBAL>
</STMTRS>
</STMTTRNRS>
</BANKMSGSRSV1>
</OFX>`

const sampleCreditCardOFX = `OFXHEADER:100
DATA:OFXSGML
VERSION:102
SECURITY:NONE
ENCODING:USASCII
CHARSET:1252
COMPRESSION:NONE
OLDFILEUID:NONE
NEWFILEUID:NONE

<OFX>
<SIGNONMSGSRSV1>
<SONRS>
<STATUS>
<CODE>0
<SEVERITY>INFO
</STATUS>
<DTSERVER>20240315120000[0:GMT]
<LANGUAGE>ENG
</SONRS>
</SIGNONMSGSRSV1>
<CREDITCARDMSGSRSV1>
<CCSTMTTRNRS>
<TRNUID>1
<STATUS>
<CODE>0
<SEVERITY>INFO
</STATUS>
<CCSTMTRS>
<CURDEF>HKD
<CCACCTFROM>
<ACCTID>4111111111111234
</CCACCTFROM>
<BANKTRANLIST>
<DTSTART>20240101120000[0:GMT]
<DTEND>20240131120000[0:GMT]
<STMTTRN>
<TRNTYPE>DEBIT
<DTPOSTED>20240110120000[0:GMT]
<TRNAMT>-52.00
<FITID>CC2024011001
<SIC>5812
<NAME>POS PURCHASE ICHIRAN SHIBUYA
<ORIGCURRENCY>
<CURRATE>0.052
<CURSYM>JPY
</ORIGCURRENCY>
</STMTTRN>
<STMTTRN>
<TRNTYPE>DEBIT
<DTPOSTED>20240115120000[0:GMT]
<TRNAMT>-78.00
<FITID>CC2024011501
<SIC>4899
<NAME>NETFLIX.COM
</STMTTRN>
<STMTTRN>
<TRNTYPE>PAYMENT
<DTPOSTED>20240125120000[0:GMT]
<TRNAMT>1000.00
<FITID>CC2024012501
<NAME>PAYMENT - THANK YOU
</STMTTRN>
</BANKTRANLIST>
<LEDGERBAL>
<BALAMT>-500.00
<DTASOF>20240131120000[0:GMT]
</LEDGERBAL>
</CCSTMTRS>
</CCSTMTTRNRS>
</CREDITCARDMSGSRSV1>
</OFX>`

func TestParseFile(t *testing.T) {
	tests := []struct {
		name          string
		ofxData       string
		expectedCount int
		expectedError bool
	}{
		{
			name:          "valid bank statement",
			ofxData:       sampleBankOFX,
			expectedCount: 2,
		},
		{
			name:          "valid credit card statement",
			ofxData:       sampleCreditCardOFX,
			expectedCount: 2,
		},
		{
			name:          "invalid OFX data",
			ofxData:       "not valid OFX",
			expectedError: true,
		},
		{
			name:          "empty OFX",
			ofxData:       "",
			expectedError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			parser := NewParser()
			reader := strings.NewReader(tt.ofxData)

			stmt, err := parser.ParseFile(context.Background(), reader)

			if tt.expectedError {
				assert.Error(t, err)
			} else {
				require.NoError(t, err)
				assert.Len(t, stmt.Drafts, tt.expectedCount)
				assert.Equal(t, 1, stmt.Credits)
			}
		})
	}
}

func TestParseBankTransactions(t *testing.T) {
	parser := NewParser()

	stmt, err := parser.ParseFile(context.Background(), strings.NewReader(sampleBankOFX))
	require.NoError(t, err)
	require.Len(t, stmt.Drafts, 2)
	assert.Equal(t, []string{"1234567890"}, stmt.Accounts)

	coffee := stmt.Drafts[0]
	assert.Equal(t, "2024011501", coffee.ExternalID)
	assert.Equal(t, "STARBUCKS STORE #1234", coffee.Merchant)
	assert.Equal(t, model.CategoryDining, coffee.Category)
	assert.Equal(t, model.RegionUS, coffee.SpendRegion)
	assert.Equal(t, model.SourceOFX, coffee.Source)
	assert.InDelta(t, 25.50, coffee.SpendAmount, 1e-9)
	require.NotNil(t, coffee.BillingAmount)
	assert.InDelta(t, 25.50, *coffee.BillingAmount, 1e-9)
	assert.Equal(t, 2024, coffee.Date.Year())
	assert.Equal(t, time.January, coffee.Date.Month())
	assert.Equal(t, 15, coffee.Date.Day())
	assert.Empty(t, coffee.CardID)

	groceries := stmt.Drafts[1]
	assert.Equal(t, "Whole Foods Market", groceries.Merchant)
	assert.Equal(t, model.CategoryGrocery, groceries.Category)
	assert.InDelta(t, 125.00, groceries.SpendAmount, 1e-9)
}

func TestParseCreditCardTransactions(t *testing.T) {
	parser := NewParser()

	stmt, err := parser.ParseFile(context.Background(), strings.NewReader(sampleCreditCardOFX))
	require.NoError(t, err)
	require.Len(t, stmt.Drafts, 2)
	assert.Equal(t, 1, stmt.Credits)

	// Charged in HKD, spent in JPY.
	ramen := stmt.Drafts[0]
	assert.Equal(t, "CC2024011001", ramen.ExternalID)
	assert.Equal(t, "ICHIRAN SHIBUYA", ramen.Merchant)
	assert.Equal(t, model.CategoryDining, ramen.Category)
	assert.Equal(t, model.RegionJP, ramen.SpendRegion)
	require.NotNil(t, ramen.BillingAmount)
	assert.InDelta(t, 52.00, *ramen.BillingAmount, 1e-9)
	assert.InDelta(t, 1000.00, ramen.SpendAmount, 1e-9)

	streaming := stmt.Drafts[1]
	assert.Equal(t, "NETFLIX.COM", streaming.Merchant)
	assert.Equal(t, model.CategoryDigital, streaming.Category)
	assert.Equal(t, model.RegionHK, streaming.SpendRegion)
	assert.InDelta(t, 78.00, streaming.SpendAmount, 1e-9)
}

func TestParseFile_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewParser().ParseFile(ctx, strings.NewReader(sampleCreditCardOFX))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestPreprocessOFX(t *testing.T) {
	parser := NewParser()
	input := "\n\n  <OFX>\n<SEVERITY>Info</SEVERITY>\n<STMTTRN\n"
	got := parser.preprocessOFX(input)
	assert.True(t, strings.HasPrefix(got, "<OFX>"))
	assert.Contains(t, got, "<SEVERITY>INFO</SEVERITY>")
	assert.Contains(t, got, "<STMTTRN>\n")
}

func TestExtractMerchantName(t *testing.T) {
	parser := NewParser()

	tests := []struct {
		name     string
		input    string
		memo     string
		payee    string
		expected string
	}{
		{
			name:     "remove POS prefix",
			input:    "POS PURCHASE STARBUCKS",
			expected: "STARBUCKS",
		},
		{
			name:     "remove DEBIT CARD prefix",
			input:    "DEBIT CARD PURCHASE WHOLE FOODS",
			expected: "WHOLE FOODS",
		},
		{
			name:     "keep clean name",
			input:    "NETFLIX.COM",
			expected: "NETFLIX.COM",
		},
		{
			name:     "trim whitespace",
			input:    "  AMAZON.COM  ",
			expected: "AMAZON.COM",
		},
		{
			name:     "drop leading date",
			input:    "03/14 CATHAY PACIFIC",
			expected: "CATHAY PACIFIC",
		},
		{
			name:     "generic name falls back to memo",
			input:    "PURCHASE",
			memo:     "PARKNSHOP TSIM SHA TSUI",
			expected: "PARKNSHOP TSIM SHA TSUI",
		},
		{
			name:     "payee wins",
			input:    "SQ *BLUE BOTTLE 1234",
			payee:    "Blue Bottle Coffee",
			expected: "Blue Bottle Coffee",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tx := ofxgo.Transaction{
				Name: ofxgo.String(tt.input),
				Memo: ofxgo.String(tt.memo),
			}
			if tt.payee != "" {
				tx.Payee = &ofxgo.Payee{Name: ofxgo.String(tt.payee)}
			}
			assert.Equal(t, tt.expected, parser.extractMerchantName(tx))
		})
	}
}

func TestStatement_MatchesCard(t *testing.T) {
	stmt := &Statement{Accounts: []string{"4111111111111234"}}

	assert.True(t, stmt.MatchesCard(&model.RewardCard{EndNum: "1234"}))
	assert.False(t, stmt.MatchesCard(&model.RewardCard{EndNum: "9999"}))
	assert.True(t, stmt.MatchesCard(&model.RewardCard{}))
	assert.True(t, (&Statement{}).MatchesCard(&model.RewardCard{EndNum: "9999"}))
}
