package email

// Config holds the Postmark credentials and sender identities.
type Config struct {
	PostmarkServerToken  string `env:"POSTMARK_SERVER_TOKEN"`
	PostmarkAccountToken string `env:"POSTMARK_ACCOUNT_TOKEN"`
	SenderEmail          string `env:"EMAIL_SENDER" envDefault:"billing@studyforge.app"`
	SupportEmail         string `env:"EMAIL_SUPPORT" envDefault:"support@studyforge.app"`
}
