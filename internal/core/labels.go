package core

// Language selects the display language for derived labels. Only Bengali and
// English are supported.
type Language string

const (
	LangEnglish Language = "en"
	LangBengali Language = "bn"
)

// Normalize maps anything that is not Bengali to English.
func (l Language) Normalize() Language {
	if l == LangBengali {
		return LangBengali
	}
	return LangEnglish
}

// CategoryLabel returns the chart display label for a category. Every
// declared category is covered explicitly; an out-of-set value falls back to
// its raw string so bad data stays visible instead of disappearing.
func CategoryLabel(c Category, lang Language) string {
	if lang.Normalize() == LangBengali {
		switch c {
		case CategorySavings:
			return "সঞ্চয়"
		case CategoryLoanRepayment:
			return "ঋণ পরিশোধ"
		case CategoryMembershipFee:
			return "সদস্যপদ ফি"
		case CategoryDonation:
			return "দান"
		case CategoryLoanDisbursement:
			return "ঋণ বিতরণ"
		case CategoryWithdrawal:
			return "উত্তোলন"
		case CategoryOthers:
			return "অন্যান্য"
		}
		return string(c)
	}
	switch c {
	case CategorySavings:
		return "Savings"
	case CategoryLoanRepayment:
		return "Loan Repayment"
	case CategoryMembershipFee:
		return "Membership Fee"
	case CategoryDonation:
		return "Donation"
	case CategoryLoanDisbursement:
		return "Loan Disbursement"
	case CategoryWithdrawal:
		return "Withdrawal"
	case CategoryOthers:
		return "Others"
	}
	return string(c)
}

// weekday short names indexed by time.Weekday (Sunday first). The standard
// library carries no Bengali locale data, so the Bengali set lives here.
var (
	weekdayShortEN = [7]string{"Sun", "Mon", "Tue", "Wed", "Thu", "Fri", "Sat"}
	weekdayShortBN = [7]string{"রবি", "সোম", "মঙ্গল", "বুধ", "বৃহঃ", "শুক্র", "শনি"}
)

// GeneralMemberLabel is the display fallback when a transaction has no member
// name attached.
func GeneralMemberLabel(lang Language) string {
	if lang.Normalize() == LangBengali {
		return "সাধারণ সদস্য"
	}
	return "General Member"
}
