package workers

import (
	"context"
	"time"

	"flow-pantry-system/models"

	"go.uber.org/zap"
)

const defaultLabelBatch = 20

// LabelQueue is the inventory side of label sync.
type LabelQueue interface {
	ItemsAwaitingLabels(ctx context.Context, limit int) ([]models.InventoryItem, error)
	RecordLabels(ctx context.Context, id string, labels []string) error
}

// Detector turns an image locator into object labels.
type Detector interface {
	DetectObjects(ctx context.Context, imageURL string) []string
}

// LabelSyncWorker runs object detection over inventory photos that have not
// been labelled yet.
type LabelSyncWorker struct {
	queue    LabelQueue
	detector Detector
	interval time.Duration
	batch    int
	log      *zap.Logger
}

func NewLabelSyncWorker(queue LabelQueue, detector Detector, interval time.Duration, log *zap.Logger) *LabelSyncWorker {
	if interval <= 0 {
		interval = time.Minute
	}
	return &LabelSyncWorker{
		queue:    queue,
		detector: detector,
		interval: interval,
		batch:    defaultLabelBatch,
		log:      log,
	}
}

func (w *LabelSyncWorker) Start(ctx context.Context) {
	w.log.Info("🔁 [LABELS] starting label sync worker", zap.Duration("interval", w.interval))
	go w.run(ctx)
}

func (w *LabelSyncWorker) run(ctx context.Context) {
	if _, err := w.SyncBatch(ctx); err != nil {
		w.log.Warn("⚠️ [LABELS] initial sync failed", zap.Error(err))
	}

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if _, err := w.SyncBatch(ctx); err != nil {
				w.log.Error("❌ [LABELS] sync batch failed", zap.Error(err))
			}
		case <-ctx.Done():
			w.log.Info("⏹️ [LABELS] label sync worker stopped")
			return
		}
	}
}

// SyncBatch labels up to one batch of items and returns how many were recorded.
// Detection failures still mark the item checked, with no labels.
func (w *LabelSyncWorker) SyncBatch(ctx context.Context) (int, error) {
	items, err := w.queue.ItemsAwaitingLabels(ctx, w.batch)
	if err != nil {
		return 0, err
	}
	if len(items) == 0 {
		return 0, nil
	}

	w.log.Debug("📥 [LABELS] processing items", zap.Int("count", len(items)))
	recorded := 0
	for _, item := range items {
		if ctx.Err() != nil {
			return recorded, ctx.Err()
		}
		labels := w.detector.DetectObjects(ctx, item.ImageURL)
		if err := w.queue.RecordLabels(ctx, item.ID, labels); err != nil {
			w.log.Error("❌ [LABELS] could not record labels", zap.String("item_id", item.ID), zap.Error(err))
			continue
		}
		recorded++
	}
	w.log.Info("✅ [LABELS] batch done", zap.Int("recorded", recorded), zap.Int("fetched", len(items)))
	return recorded, nil
}
