package classifier

// Synonym rewrites every occurrence of From into To before matching.
type Synonym struct {
	From string `yaml:"from"`
	To   string `yaml:"to"`
}

// DefaultKeywords is the banking vocabulary used when no override is configured.
var DefaultKeywords = []string{
	"bank", "banking", "branch", "ifsc", "micr", "swift", "customer id", "cif",
	"account number", "account", "savings account", "current account", "salary account",
	"joint account", "zero balance account", "student account", "nri account", "demat account",
	"balance", "available balance", "ledger balance", "account statement", "mini statement", "passbook",
	"transaction", "credit", "debit", "transfer", "fund transfer", "money transfer", "bank transfer",
	"net banking", "internet banking", "mobile banking", "online banking", "digital banking",
	"upi", "upi id", "upi pin", "bhim", "google pay", "phonepe", "paytm",
	"neft", "rtgs", "imps", "ecs", "nach",
	"debit card", "credit card", "atm", "card limit", "card blocking",
	"loan", "personal loan", "home loan", "education loan", "car loan", "gold loan", "business loan",
	"interest", "interest rate", "emi",
	"fixed deposit", "fd", "recurring deposit", "rd",
	"kyc", "aadhaar", "pan card",
	"charges", "fees", "penalty", "cheque", "demand draft",
	"fraud", "otp", "mpin",
}

// DefaultSynonyms is applied in order; a later rule sees the output of earlier ones.
var DefaultSynonyms = []Synonym{
	{From: "money", To: "balance"},
	{From: "funds", To: "balance"},
	{From: "cash", To: "balance"},
	{From: "salary", To: "salary account"},
	{From: "income", To: "salary account"},
	{From: "pay", To: "upi"},
	{From: "payment", To: "transaction"},
	{From: "send", To: "transfer"},
	{From: "receive", To: "credit"},
	{From: "withdrawal", To: "withdraw"},
	{From: "depositing", To: "deposit"},
	{From: "loan amount", To: "loan"},
	{From: "interest charge", To: "interest"},
	{From: "monthly payment", To: "emi"},
	{From: "installment", To: "emi"},
	{From: "card swipe", To: "debit card"},
	{From: "bank app", To: "mobile banking"},
	{From: "online transfer", To: "net banking"},
}
