package mail

import (
	"context"
	"encoding/json"
	"log"

	"github.com/storefront/apiserver/internal/mq"
)

// Worker consumes OTP mail events and delivers them over SMTP.
type Worker struct {
	broker mq.Broker
	sender *SMTPSender
}

func NewWorker(broker mq.Broker, sender *SMTPSender) *Worker {
	return &Worker{broker: broker, sender: sender}
}

// Run blocks consuming the OTP channel until ctx is done. A failed
// delivery nacks the event so the broker redelivers it.
func (w *Worker) Run(ctx context.Context) error {
	return w.broker.Subscribe(ctx, OtpChannel, func(ctx context.Context, ev mq.Event) error {
		var event OtpEvent
		if err := json.Unmarshal(ev.Data, &event); err != nil {
			// Undecodable events are dropped, not retried.
			log.Printf("mail worker: discarding malformed event %s: %v", ev.ID, err)
			return nil
		}

		if err := w.sender.SendOtp(event.Email, event.Code, event.Type); err != nil {
			log.Printf("mail worker: delivery to %s failed: %v", event.Email, err)
			return err
		}
		log.Printf("mail worker: sent %s code to %s", event.Type, event.Email)
		return nil
	})
}
