package telemetry

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/arklim/marketplace-auth/internal/core/domain"
	"github.com/arklim/marketplace-auth/internal/core/port"
)

// OTPMetrics counts OTP issuance, rejections and verification outcomes.
type OTPMetrics struct {
	issued   *prometheus.CounterVec
	blocked  *prometheus.CounterVec
	verified *prometheus.CounterVec
}

var _ port.OTPMetrics = (*OTPMetrics)(nil)

// NewOTPMetrics registers the OTP counters on registerer, reusing collectors that already exist.
func NewOTPMetrics(registerer prometheus.Registerer) *OTPMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	return &OTPMetrics{
		issued: registerCounterVec(registerer, prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "auth",
			Name:      "otp_issued_total",
			Help:      "Number of one-time codes emailed, by template.",
		}, []string{"template"})),
		blocked: registerCounterVec(registerer, prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "auth",
			Name:      "otp_blocked_total",
			Help:      "Number of OTP requests or verifications refused, by reason.",
		}, []string{"reason"})),
		verified: registerCounterVec(registerer, prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "auth",
			Name:      "otp_verifications_total",
			Help:      "Number of OTP verification attempts, by result.",
		}, []string{"result"})),
	}
}

func (m *OTPMetrics) OTPIssued(template domain.EmailTemplate) {
	m.issued.WithLabelValues(string(template)).Inc()
}

func (m *OTPMetrics) OTPBlocked(reason string) {
	m.blocked.WithLabelValues(reason).Inc()
}

func (m *OTPMetrics) OTPVerified(result string) {
	m.verified.WithLabelValues(result).Inc()
}

func registerCounterVec(registerer prometheus.Registerer, vec *prometheus.CounterVec) *prometheus.CounterVec {
	if err := registerer.Register(vec); err != nil {
		var already prometheus.AlreadyRegisteredError
		if errors.As(err, &already) {
			if existing, ok := already.ExistingCollector.(*prometheus.CounterVec); ok {
				return existing
			}
		}
		panic(err)
	}
	return vec
}
