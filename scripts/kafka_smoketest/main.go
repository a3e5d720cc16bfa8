package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	infra_eventbus "github.com/amirasaad/securebank/infra/eventbus"
	"github.com/amirasaad/securebank/pkg/config"
	"github.com/amirasaad/securebank/pkg/domain/events"
)

// RunSmokeTest publishes a TransferCompleted event through the Kafka event
// bus and waits for the registered handler to receive it back.
func RunSmokeTest() error {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	brokers := strings.TrimSpace(os.Getenv("BROKERS"))
	if brokers == "" {
		brokers = "localhost:9093,localhost:9092"
	}
	groupID := strings.TrimSpace(os.Getenv("GROUP_ID"))
	if groupID == "" {
		groupID = fmt.Sprintf("securebank-smoke-%d", time.Now().UnixNano())
	}

	bus, err := infra_eventbus.NewWithKafka(&config.Kafka{
		Brokers:     brokers,
		TopicPrefix: "securebank.smoke",
		GroupID:     groupID,
	}, logger)
	if err != nil {
		logger.Error("kafka event bus unavailable", "error", err)
		return err
	}
	defer func() { _ = bus.Close() }()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	sent := events.TransferCompleted{
		TransactionID: time.Now().UnixNano(),
		SenderID:      1,
		ReceiverID:    2,
		AmountCents:   6000,
		OccurredAt:    time.Now().UTC(),
	}

	received := make(chan events.TransferCompleted, 1)
	bus.Register(events.EventTypeTransferCompleted, func(_ context.Context, e events.Event) error {
		// Events decoded from the broker arrive as pointers.
		var tc events.TransferCompleted
		switch ev := e.(type) {
		case *events.TransferCompleted:
			tc = *ev
		case events.TransferCompleted:
			tc = ev
		default:
			return nil
		}
		if tc.TransactionID != sent.TransactionID {
			return nil
		}
		select {
		case received <- tc:
		default:
		}
		return nil
	})

	if err := bus.Emit(ctx, sent); err != nil {
		logger.Error("emit failed", "error", err)
		return err
	}
	logger.Info("produced", "type", sent.Type(), "transaction_id", sent.TransactionID)

	select {
	case got := <-received:
		if got.AmountCents != sent.AmountCents {
			return fmt.Errorf("amount mismatch: got %d want %d", got.AmountCents, sent.AmountCents)
		}
		logger.Info("consumed", "type", got.Type(), "transaction_id", got.TransactionID)
		return nil
	case <-ctx.Done():
		return fmt.Errorf("timed out waiting for %s: %w", sent.Type(), ctx.Err())
	}
}

func main() {
	if err := RunSmokeTest(); err != nil {
		os.Exit(1)
	}
}
