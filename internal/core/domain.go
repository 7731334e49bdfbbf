// Package core holds the society ledger domain: transactions, the
// aggregation and filter engines, and the printable receipt model.
package core

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Category classifies the purpose of a single line item. The set is closed;
// adding a member requires touching every switch over it.
type Category string

const (
	CategorySavings          Category = "Monthly Savings"
	CategoryLoanRepayment    Category = "Loan Repayment"
	CategoryMembershipFee    Category = "Membership Fee"
	CategoryDonation         Category = "Donation"
	CategoryLoanDisbursement Category = "Loan Disbursement"
	CategoryWithdrawal       Category = "Withdrawal"
	CategoryOthers           Category = "Others"
)

// TransactionType splits the ledger into money coming in and money going out.
type TransactionType string

const (
	TypeIncome  TransactionType = "Deposit/Income"
	TypeExpense TransactionType = "Withdrawal/Expense"
)

// PaymentMethod is how the money physically moved.
type PaymentMethod string

const (
	PaymentCash   PaymentMethod = "Cash"
	PaymentBank   PaymentMethod = "Bank"
	PaymentBkash  PaymentMethod = "bKash"
	PaymentNagad  PaymentMethod = "Nagad"
	PaymentRocket PaymentMethod = "Rocket"
)

var (
	ErrEmptyTitle       = errors.New("empty item title")
	ErrInvalidQuantity  = errors.New("quantity must be at least 1")
	ErrInvalidAmount    = errors.New("amount must not be negative")
	ErrNoItems          = errors.New("transaction needs at least one item")
	ErrInvalidDate      = errors.New("date must be YYYY-MM-DD")
	ErrUnknownCategory  = errors.New("unknown category")
	ErrUnknownType      = errors.New("unknown transaction type")
	ErrUnknownPayment   = errors.New("unknown payment method")
	ErrItemTotalDrift   = errors.New("item total does not match price times quantity")
	ErrGrandTotalDrift  = errors.New("transaction total does not match item totals")
)

// amountEpsilon absorbs float rounding from JSON round-trips when checking
// the stored totals against their factors.
const amountEpsilon = 0.005

type (
	// TransactionItem is one line on a receipt. Total is fixed at creation;
	// callers must not change Quantity or PricePerUnit afterwards without
	// rebuilding the item.
	TransactionItem struct {
		ID           string   `json:"id"`
		Title        string   `json:"title"`
		Category     Category `json:"category"`
		Quantity     int      `json:"quantity"`
		PricePerUnit float64  `json:"pricePerUnit"`
		Total        float64  `json:"total"`
	}

	// Transaction is one recorded financial event. It is created whole and
	// never edited in place; the only mutations the ledger knows are add
	// and delete.
	Transaction struct {
		ID            string            `json:"id"`
		Date          string            `json:"date"` // ISO calendar date, YYYY-MM-DD
		Type          TransactionType   `json:"type"`
		Items         []TransactionItem `json:"items"`
		TotalAmount   float64           `json:"totalAmount"`
		PaymentMethod PaymentMethod     `json:"paymentMethod"`
		ReceivedFrom  string            `json:"receivedFrom,omitempty"`
		MobileNumber  string            `json:"mobileNumber,omitempty"`
	}

	// FinancialSummary is derived from the full transaction list on every
	// call and never persisted, so it cannot drift from its source.
	FinancialSummary struct {
		CurrentBalance float64 `json:"currentBalance"`
		TotalIncome    float64 `json:"totalIncome"`
		TotalExpense   float64 `json:"totalExpense"`
		TotalItemsSold int     `json:"totalItemsSold"`
	}
)

// NewItem builds a line item with its total computed from price and quantity.
// The item id is a short random token; uniqueness only matters within one
// transaction.
func NewItem(title string, category Category, quantity int, pricePerUnit float64) (TransactionItem, error) {
	item := TransactionItem{
		ID:           uuid.NewString()[:8],
		Title:        strings.TrimSpace(title),
		Category:     category,
		Quantity:     quantity,
		PricePerUnit: pricePerUnit,
		Total:        pricePerUnit * float64(quantity),
	}
	if err := item.Validate(); err != nil {
		return TransactionItem{}, err
	}
	return item, nil
}

// ReceiptID derives the user-facing receipt number USS-<year>-<sequence>,
// sequence being the count of existing transactions plus one, padded to three
// digits. The scheme is not collision-safe after deletions or under
// concurrent sessions; the storage primary key is what enforces uniqueness.
func ReceiptID(year, existingCount int) string {
	return fmt.Sprintf("USS-%d-%03d", year, existingCount+1)
}

func (c Category) Validate() error {
	switch c {
	case CategorySavings, CategoryLoanRepayment, CategoryMembershipFee,
		CategoryDonation, CategoryLoanDisbursement, CategoryWithdrawal, CategoryOthers:
		return nil
	}
	return fmt.Errorf("%w: %q", ErrUnknownCategory, string(c))
}

func (t TransactionType) Validate() error {
	switch t {
	case TypeIncome, TypeExpense:
		return nil
	}
	return fmt.Errorf("%w: %q", ErrUnknownType, string(t))
}

func (p PaymentMethod) Validate() error {
	switch p {
	case PaymentCash, PaymentBank, PaymentBkash, PaymentNagad, PaymentRocket:
		return nil
	}
	return fmt.Errorf("%w: %q", ErrUnknownPayment, string(p))
}

func (i TransactionItem) Validate() error {
	if strings.TrimSpace(i.Title) == "" {
		return ErrEmptyTitle
	}
	if err := i.Category.Validate(); err != nil {
		return err
	}
	if i.Quantity < 1 {
		return ErrInvalidQuantity
	}
	if i.PricePerUnit < 0 || i.Total < 0 {
		return ErrInvalidAmount
	}
	if math.Abs(i.Total-i.PricePerUnit*float64(i.Quantity)) > amountEpsilon {
		return ErrItemTotalDrift
	}
	return nil
}

func (t Transaction) Validate() error {
	if strings.TrimSpace(t.ID) == "" {
		return errors.New("empty transaction id")
	}
	if _, err := time.Parse("2006-01-02", t.Date); err != nil {
		return ErrInvalidDate
	}
	if err := t.Type.Validate(); err != nil {
		return err
	}
	if err := t.PaymentMethod.Validate(); err != nil {
		return err
	}
	if len(t.Items) == 0 {
		return ErrNoItems
	}
	var sum float64
	for _, item := range t.Items {
		if err := item.Validate(); err != nil {
			return fmt.Errorf("item %q: %w", item.Title, err)
		}
		sum += item.Total
	}
	if t.TotalAmount < 0 {
		return ErrInvalidAmount
	}
	if math.Abs(t.TotalAmount-sum) > amountEpsilon {
		return ErrGrandTotalDrift
	}
	return nil
}

// Month returns the YYYY-MM prefix of the transaction date.
func (t Transaction) Month() string {
	if len(t.Date) < 7 {
		return t.Date
	}
	return t.Date[:7]
}

// CurrentMonth formats the wall-clock month the way the aggregation engine
// expects it (YYYY-MM).
func CurrentMonth(now time.Time) string {
	return now.Format("2006-01")
}
