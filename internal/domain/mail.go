package domain

const (
	MailTypeCreateUser    = "create_user"
	MailTypeResetPassword = "reset_password"
	MailTypeChangeEmail   = "change_email"
	MailTypePayrollPaid   = "payroll_paid"
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

type PayrollPaidMailData struct {
	FullName        string `json:"fullName"`
	AmountPaid      string `json:"amountPaid"`
	AmountDue       string `json:"amountDue"`
	PeriodStartDate string `json:"periodStartDate"`
	PeriodEndDate   string `json:"periodEndDate"`
	PaidAt          string `json:"paidAt"`
}

type ResetPasswordMailData struct {
	FullName   string `json:"fullName"`
	OTP        string `json:"otp"`
	Expiration int    `json:"expiration"`
}

type ChangeEmailMailData struct {
	FullName   string `json:"fullName"`
	OTP        string `json:"otp"`
	Expiration int    `json:"expiration"`
}
