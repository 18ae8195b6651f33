package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"

	"buscador-gpt/internal/model"
	"buscador-gpt/internal/platform/logger"
	"buscador-gpt/internal/platform/rabbitmq"
)

var errInvalidActivity = errors.New("activity payload is invalid")

type ActivitySink interface {
	Create(ctx context.Context, activity *model.SearchActivity) error
}

// ActivityPersistWorker drains the activity queue into the database.
type ActivityPersistWorker struct {
	conn      *amqp.Connection
	sink      ActivitySink
	queueName string
	log       *logger.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewActivityPersistWorker(conn *amqp.Connection, sink ActivitySink, queueName string, log *logger.Logger) *ActivityPersistWorker {
	if log == nil {
		log = logger.Nop()
	}
	return &ActivityPersistWorker{
		conn:      conn,
		sink:      sink,
		queueName: queueName,
		log:       log.With("component", "activity_worker", "queue", queueName),
	}
}

func (w *ActivityPersistWorker) Start(ctx context.Context) error {
	if w.cancel != nil {
		return nil
	}

	workerCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel

	ch, err := w.conn.Channel()
	if err != nil {
		cancel()
		return fmt.Errorf("open worker channel failed: %w", err)
	}
	if err := rabbitmq.DeclareQueue(ch, w.queueName); err != nil {
		_ = ch.Close()
		cancel()
		return err
	}
	if err := ch.Qos(16, 0, false); err != nil {
		_ = ch.Close()
		cancel()
		return fmt.Errorf("set worker qos failed: %w", err)
	}

	deliveries, err := ch.Consume(w.queueName, "", false, false, false, false, nil)
	if err != nil {
		_ = ch.Close()
		cancel()
		return fmt.Errorf("consume queue failed: %w", err)
	}

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		defer ch.Close()

		for {
			select {
			case <-workerCtx.Done():
				return
			case d, ok := <-deliveries:
				if !ok {
					w.log.Warn("activity deliveries closed")
					return
				}
				if err := w.handle(workerCtx, d.Body); err != nil {
					// Malformed payloads are dropped; store failures go back to the queue once.
					requeue := !errors.Is(err, errInvalidActivity) && !d.Redelivered
					w.log.Error("persist activity failed", "error", err, "requeue", requeue)
					_ = d.Nack(false, requeue)
					continue
				}
				_ = d.Ack(false)
			}
		}
	}()

	w.log.Info("activity worker started")
	return nil
}

func (w *ActivityPersistWorker) handle(ctx context.Context, body []byte) error {
	var activity model.SearchActivity
	if err := json.Unmarshal(body, &activity); err != nil {
		return fmt.Errorf("%w: %v", errInvalidActivity, err)
	}
	if activity.UserID == 0 || strings.TrimSpace(activity.Question) == "" {
		return errInvalidActivity
	}
	activity.ID = 0
	return w.sink.Create(ctx, &activity)
}

func (w *ActivityPersistWorker) Close() {
	if w.cancel != nil {
		w.cancel()
	}
	w.wg.Wait()
}
