package service

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"ticketflow/internal/models"
	"ticketflow/internal/retry"

	"github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"
)

// brokerEvent is the wire shape of one queued receipt notification. Either
// Status or Receipt is set.
type brokerEvent struct {
	Status  *models.TransportStatusEvent  `json:"status,omitempty"`
	Receipt *models.TransportReceiptEvent `json:"receipt,omitempty"`
}

// ReceiptWorker consumes the broker queue that buffers receipt events the
// webhook path missed (gateway restarts, webhook downtime). It is the third
// independent receipt source; the reconciler's max-merge makes replays and
// overlap with the webhook sources harmless.
type ReceiptWorker struct {
	url      string
	queue    string
	receipts *ReceiptService
	backoff  *retry.Backoff
	logger   *logrus.Logger

	stopCh chan struct{}
	wg     sync.WaitGroup
}

func NewReceiptWorker(url, queue string, receipts *ReceiptService, backoff *retry.Backoff, logger *logrus.Logger) *ReceiptWorker {
	return &ReceiptWorker{
		url:      url,
		queue:    queue,
		receipts: receipts,
		backoff:  backoff,
		logger:   logger,
		stopCh:   make(chan struct{}),
	}
}

// Start begins consuming in a background goroutine. A missing broker URL
// disables the worker.
func (w *ReceiptWorker) Start(ctx context.Context) {
	if w.url == "" {
		w.logger.Info("Broker URL not set, receipt worker disabled")
		return
	}

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		w.run(ctx)
	}()
}

func (w *ReceiptWorker) Stop() {
	close(w.stopCh)
	w.wg.Wait()
}

// run keeps a consumer alive, reconnecting with backoff when the broker
// connection drops.
func (w *ReceiptWorker) run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return
		default:
		}

		err := w.consume(ctx)
		if err == nil {
			return
		}

		w.logger.WithError(err).Warn("Broker consumer stopped, reconnecting")
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return
		case <-time.After(w.backoff.GetNextDelay(1)):
		}
	}
}

func (w *ReceiptWorker) consume(ctx context.Context) error {
	conn, err := amqp091.Dial(w.url)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := conn.Close(); closeErr != nil {
			w.logger.WithError(closeErr).Debug("Failed to close broker connection")
		}
	}()

	channel, err := conn.Channel()
	if err != nil {
		return err
	}

	// Idempotent declare, mirrors the publisher side.
	if _, err := channel.QueueDeclare(w.queue, true, false, false, false, nil); err != nil {
		return err
	}

	deliveries, err := channel.Consume(w.queue, "", false, false, false, false, nil)
	if err != nil {
		return err
	}

	w.logger.WithField("queue", w.queue).Info("Receipt worker consuming")

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-w.stopCh:
			return nil
		case delivery, ok := <-deliveries:
			if !ok {
				return amqp091.ErrClosed
			}
			w.handleDelivery(ctx, delivery)
		}
	}
}

func (w *ReceiptWorker) handleDelivery(ctx context.Context, delivery amqp091.Delivery) {
	var event brokerEvent
	if err := json.Unmarshal(delivery.Body, &event); err != nil {
		w.logger.WithError(err).Warn("Dropping malformed broker event")
		if err := delivery.Nack(false, false); err != nil {
			w.logger.WithError(err).Debug("Failed to nack broker event")
		}
		return
	}

	var err error
	switch {
	case event.Status != nil:
		_, err = w.receipts.ApplyStatusEvent(ctx, event.Status)
	case event.Receipt != nil:
		_, err = w.receipts.ApplyReceiptEvent(ctx, event.Receipt)
	}

	if err != nil {
		// Resolution failures are final, everything else gets a redelivery.
		w.logger.WithError(err).Warn("Failed to apply broker receipt event")
	}
	if err := delivery.Ack(false); err != nil {
		w.logger.WithError(err).Debug("Failed to ack broker event")
	}
}
