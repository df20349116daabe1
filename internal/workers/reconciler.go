package workers

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"

	"github.com/bankguard/bankguard/internal/logger"
	"github.com/bankguard/bankguard/internal/models"
)

// UnpairedTransferLister reports transfer ids that do not have exactly
// two legs past the settlement cutoff.
type UnpairedTransferLister interface {
	ListUnpairedTransfers(ctx context.Context, cutoff string) ([]uuid.UUID, error)
}

// KafkaWriter defines a Kafka writer abstraction.
type KafkaWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Reconciler periodically sweeps the operations ledger for transfers
// whose two legs did not both commit. The request path writes both legs
// in one transaction and rolls it back on failure, so unpaired rows point
// at out-of-band writes or storage damage; finding one means manual
// intervention, so the sweep only alerts and never mutates.
type Reconciler struct {
	operations  UnpairedTransferLister
	kafkaWriter KafkaWriter
	interval    time.Duration
	cutoff      string
}

// NewReconciler creates a reconciliation sweeper. The cutoff is a
// Postgres interval literal such as "5 minutes": legs younger than it are
// skipped so in-flight transactions are not flagged.
func NewReconciler(operations UnpairedTransferLister, kafkaWriter KafkaWriter, interval time.Duration, cutoff string) *Reconciler {
	return &Reconciler{
		operations:  operations,
		kafkaWriter: kafkaWriter,
		interval:    interval,
		cutoff:      cutoff,
	}
}

// Run sweeps on the configured interval until the context is cancelled.
func (r *Reconciler) Run(ctx context.Context) {
	logger.Log.Infow("reconciler started", "interval", r.interval, "cutoff", r.cutoff)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Log.Infow("reconciler stopped")
			return
		case <-ticker.C:
			r.Sweep(ctx)
		}
	}
}

// Sweep runs one reconciliation pass.
func (r *Reconciler) Sweep(ctx context.Context) {
	unpaired, err := r.operations.ListUnpairedTransfers(ctx, r.cutoff)
	if err != nil {
		logger.Log.Errorw("reconciliation sweep failed", "error", err)
		return
	}
	if len(unpaired) == 0 {
		return
	}

	logger.Log.Errorw("unpaired transfer legs found", "count", len(unpaired))

	for _, transferID := range unpaired {
		r.alert(ctx, transferID)
	}
}

func (r *Reconciler) alert(ctx context.Context, transferID uuid.UUID) {
	if r.kafkaWriter == nil {
		return
	}

	event := models.OperationEvent{
		EventID:   uuid.NewString(),
		Timestamp: time.Now().Unix(),
		Kind:      models.OperationTransfer,
		Severity:  models.SeverityDegraded,
		Detail:    "transfer " + transferID.String() + " has an unpaired leg",
	}

	data, err := json.Marshal(event)
	if err != nil {
		logger.Log.Errorw("failed to marshal reconciliation alert", "transfer_id", transferID, "error", err)
		return
	}

	msg := kafka.Message{
		Key:   []byte(event.EventID),
		Value: data,
	}

	if err := r.kafkaWriter.WriteMessages(ctx, msg); err != nil {
		logger.Log.Errorw("failed to publish reconciliation alert", "transfer_id", transferID, "error", err)
	}
}
