package mail

import (
	"context"
	"encoding/json"

	"github.com/storefront/apiserver/internal/mq"
	"github.com/storefront/apiserver/types"
)

// OtpChannel is the broker channel carrying OTP mail events from the
// API server to the mail worker.
const OtpChannel = "auth.otp_email"

// OtpEvent is the wire payload for one OTP delivery.
type OtpEvent struct {
	Email string        `json:"email"`
	Code  string        `json:"code"`
	Type  types.OtpType `json:"type"`
}

// Publisher hands OTP deliveries to the broker so the HTTP path never
// blocks on SMTP.
type Publisher struct {
	broker mq.Broker
}

func NewPublisher(broker mq.Broker) *Publisher {
	return &Publisher{broker: broker}
}

func (p *Publisher) SendOtp(ctx context.Context, email, code string, otpType types.OtpType) error {
	data, err := json.Marshal(OtpEvent{Email: email, Code: code, Type: otpType})
	if err != nil {
		return err
	}
	_, err = p.broker.Publish(ctx, OtpChannel, data, map[string]string{"type": string(otpType)})
	return err
}
