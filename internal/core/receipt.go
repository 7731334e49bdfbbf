package core

// ReceiptKind tells the renderer which of the two document styles applies.
type ReceiptKind string

const (
	KindReceipt ReceiptKind = "receipt" // income: money receipt
	KindVoucher ReceiptKind = "voucher" // expense: payment voucher
)

type (
	// ReceiptLine is one row of the printable line-item table, in the
	// transaction's stored item order.
	ReceiptLine struct {
		Title    string  `json:"title"`
		Quantity int     `json:"quantity"`
		Total    float64 `json:"total"`
	}

	// Receipt is the printable document model for one transaction. It is a
	// pure derivation: building it twice from the same transaction yields
	// the same document, which is what makes reprints trustworthy.
	Receipt struct {
		Kind          ReceiptKind   `json:"kind"`
		Number        string        `json:"number"` // the transaction id, verbatim
		Title         string        `json:"title"`
		SocietyName   string        `json:"societyName"`
		Tagline       string        `json:"tagline"`
		PartyLabel    string        `json:"partyLabel"` // member vs recipient
		PartyName     string        `json:"partyName"`
		MobileNumber  string        `json:"mobileNumber,omitempty"`
		Date          string        `json:"date"`
		PaymentMethod PaymentMethod `json:"paymentMethod"`
		Lines         []ReceiptLine `json:"lines"`
		GrandTotal    float64       `json:"grandTotal"`
		CashStamp     string        `json:"cashStamp,omitempty"` // receipts only
		ThankYou      string        `json:"thankYou"`
		SystemNote    string        `json:"systemNote"`
	}
)

// BuildReceipt derives the printable document for a transaction. The receipt
// number is the stored transaction id, never re-derived or reformatted, and
// the grand total is the stored totalAmount, never recomputed from the lines:
// the printed figure must match what was persisted even if the line items are
// later found inconsistent. The transaction is not mutated.
func BuildReceipt(t Transaction, societyName string, lang Language) Receipt {
	lang = lang.Normalize()
	income := t.Type == TypeIncome

	r := Receipt{
		Number:        t.ID,
		SocietyName:   societyName,
		Date:          t.Date,
		PaymentMethod: t.PaymentMethod,
		GrandTotal:    t.TotalAmount,
	}
	if income {
		r.Kind = KindReceipt
	} else {
		r.Kind = KindVoucher
	}

	if lang == LangBengali {
		r.Tagline = "ক্ষুদ্র সঞ্চয়, সুদৃঢ় ঐক্য"
		r.ThankYou = "আমাদের সাথে সঞ্চয় করার জন্য ধন্যবাদ!"
		r.SystemNote = "এটি একটি কম্পিউটার জেনারেটেড রিসিট, কোন স্বাক্ষরের প্রয়োজন নেই।"
		if income {
			r.Title = "মানি রিসিট"
			r.PartyLabel = "সদস্যের নাম"
			r.CashStamp = "নগদ গ্রহণ"
		} else {
			r.Title = "পেমেন্ট ভাউচার"
			r.PartyLabel = "গ্রহীতার নাম"
		}
	} else {
		r.Tagline = "Small Savings, Strong Unity"
		r.ThankYou = "Thank you for saving with us."
		r.SystemNote = "This is a system generated receipt and requires no physical signature."
		if income {
			r.Title = "Money Receipt"
			r.PartyLabel = "Member Name"
			r.CashStamp = "CASH RECEIVED"
		} else {
			r.Title = "Payment Voucher"
			r.PartyLabel = "Recipient Name"
		}
	}

	r.PartyName = t.ReceivedFrom
	if r.PartyName == "" {
		r.PartyName = GeneralMemberLabel(lang)
	}
	r.MobileNumber = t.MobileNumber

	r.Lines = make([]ReceiptLine, 0, len(t.Items))
	for _, item := range t.Items {
		r.Lines = append(r.Lines, ReceiptLine{
			Title:    item.Title,
			Quantity: item.Quantity,
			Total:    item.Total,
		})
	}
	return r
}
