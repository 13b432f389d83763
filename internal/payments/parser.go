package payments

import (
	"regexp"
	"strings"

	"github.com/craftmeals/preorder-backend/internal/orders"
	pkgerrors "github.com/craftmeals/preorder-backend/pkg/errors"
	"github.com/shopspring/decimal"
)

// ParsedTransfer carries the fields extracted from a notification email.
type ParsedTransfer struct {
	Reference string
	Amount    decimal.Decimal
}

// Parser extracts the transfer reference and deposit amount from raw
// notification text. Keeping it behind an interface isolates the bank's
// email format from the verification flow; a format change touches only
// the parser.
type Parser interface {
	Parse(subject, body string) (*ParsedTransfer, error)
}

// amountPattern matches the deposit line in e-transfer notification emails.
// Thousands separators are accepted and stripped before parsing.
var amountPattern = regexp.MustCompile(`Funds Deposited!\s*\$([\d,]+\.\d{2})`)

type etransferParser struct{}

// NewETransferParser returns the parser for Interac e-transfer notifications.
func NewETransferParser() Parser {
	return &etransferParser{}
}

func (p *etransferParser) Parse(subject, body string) (*ParsedTransfer, error) {
	text := subject + "\n" + body

	reference := orders.ReferencePattern.FindString(text)
	if reference == "" {
		return nil, pkgerrors.New(pkgerrors.CodeNoReferenceFound, "no reference number in notification")
	}

	match := amountPattern.FindStringSubmatch(text)
	if match == nil {
		return nil, pkgerrors.New(pkgerrors.CodeAmountUnparseable, "no deposit amount in notification")
	}
	amount, err := decimal.NewFromString(strings.ReplaceAll(match[1], ",", ""))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeAmountUnparseable, err, "parsing deposit amount")
	}

	return &ParsedTransfer{Reference: reference, Amount: amount}, nil
}
