package domain

// 邮件类型，worker 按此挑选模板
const (
	MailTypeCreateUser      = "create_user"
	MailTypeResetPassword   = "reset_password"
	MailTypeRosterPublished = "roster_published"
)

type MailMessage struct {
	Type string `json:"type"`
	To   string `json:"to"`
	Data any    `json:"data"`
}

type CreateUserMailData struct {
	FullName string `json:"fullName"`
	Username string `json:"username"`
	Password string `json:"password"`
}

type ResetPasswordMailData struct {
	FullName   string `json:"fullName"`
	OTP        string `json:"otp"`
	Expiration int    `json:"expiration"`
}

type RosterPublishedMailData struct {
	FullName      string  `json:"fullName"`
	ArtifactName  string  `json:"artifactName"`
	EngineerCount int     `json:"engineerCount"`
	Weeks         int     `json:"weeks"`
	EquityScore   float64 `json:"equityScore"`
}
