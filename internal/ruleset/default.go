package ruleset

import "time"

// DefaultVersion is the version of the seed ruleset written at install time.
const DefaultVersion = "1.1.0"

var defaultPatterns = []string{
	"free-iphone", "scam", "malware", "fake-bank",
	"suspicious-download", "claim-now", "win-money", "urgent-action",
	"verify-account", "fake-antivirus", "prize-winner", "crypto-giveaway",
	"fake-update", "tech-support", "click-here-free", "download-virus",
	"security-alert", "computer-infected", "microsoft-support",
	"apple-support", "google-support", "amazon-support", "paypal-support",
	"bank-alert", "account-suspended", "immediate-action", "confirm-identity",
	"update-payment", "verify-information", "suspicious-activity",
	"login-attempt", "security-breach", "data-breach", "click-to-continue",
	"activate-account", "temporary-suspension", "refund-pending",
	"tax-refund", "government-grant", "stimulus-check", "inheritance-fund",
	"lottery-winner", "sweepstakes", "congratulations-winner",
	"exclusive-offer", "limited-time", "act-now", "expires-today",
	"final-notice", "last-warning", "overdue-payment", "payment-failed",
}

var defaultDomains = []string{
	"bit.ly", "tinyurl.com", ".tk", ".ml", ".ga", ".cf",
	"temp-mail", "10minutemail", "guerrillamail", "mailinator",
	"throwaway", "tempmail", "fake-", "scam-",
	"malware-", "virus-", "trojan-",
}

// Default returns the seed ruleset, stamped with the given time.
func Default(now time.Time) *Ruleset {
	rs, err := New(DefaultVersion, now, defaultPatterns, defaultDomains)
	if err != nil {
		// DefaultVersion is a non-empty constant.
		panic(err)
	}
	return rs
}
