package domain

// OTPKeys builds the cache keys used by the OTP lifecycle. The names are shared
// with the deployment being migrated and must not change.
type OTPKeys struct {
	// LegacyAttemptsKey keeps the historical "opt_attempts:" spelling for the
	// failed-attempt counter. When false the counter lives under "otp_attempts:".
	LegacyAttemptsKey bool
}

func (k OTPKeys) Code(email string) string         { return "otp:" + email }
func (k OTPKeys) Cooldown(email string) string     { return "otp_cooldown:" + email }
func (k OTPKeys) RequestCount(email string) string { return "otp_request_count:" + email }
func (k OTPKeys) SpamLock(email string) string     { return "otp_spam_lock:" + email }
func (k OTPKeys) Lock(email string) string         { return "otp_lock:" + email }
func (k OTPKeys) ResetTicket(email string) string  { return "otp_reset_ticket:" + email }

func (k OTPKeys) Attempts(email string) string {
	if k.LegacyAttemptsKey {
		return "opt_attempts:" + email
	}
	return "otp_attempts:" + email
}

// EmailTemplate names an outbound email layout.
type EmailTemplate string

const (
	TemplateUserActivation       EmailTemplate = "user-activation-mail"
	TemplateSellerActivation     EmailTemplate = "seller-activation"
	TemplateUserForgotPassword   EmailTemplate = "forgot-password-user-mail"
	TemplateSellerForgotPassword EmailTemplate = "forgot-password-seller-mail"
)

// ActivationTemplate selects the registration email for a role.
func ActivationTemplate(role Role) EmailTemplate {
	switch role {
	case RoleSeller:
		return TemplateSellerActivation
	default:
		return TemplateUserActivation
	}
}

// ForgotPasswordTemplate selects the password reset email for a role.
func ForgotPasswordTemplate(role Role) EmailTemplate {
	switch role {
	case RoleSeller:
		return TemplateSellerForgotPassword
	default:
		return TemplateUserForgotPassword
	}
}
