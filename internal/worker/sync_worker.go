package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"nutrilog/internal/amqp"
	"nutrilog/internal/core"
	"nutrilog/internal/ports"
	"nutrilog/internal/sheets"
)

// SyncWorker mirrors meals from SQLite to Google Sheets.
type SyncWorker struct {
	storage   ports.SyncStore
	mirror    sheets.MealMirror
	batchSize int
}

func NewSyncWorker(storage ports.SyncStore, mirror sheets.MealMirror, batchSize int) *SyncWorker {
	if batchSize < 1 {
		batchSize = 10
	}
	return &SyncWorker{
		storage:   storage,
		mirror:    mirror,
		batchSize: batchSize,
	}
}

// HandleMessage dispatches one AMQP message to the matching handler.
func (w *SyncWorker) HandleMessage(ctx context.Context, msg *amqp.MealSyncMessage) error {
	switch msg.Action {
	case amqp.ActionDelete:
		return w.HandleDeleteMessage(ctx, msg)
	default:
		return w.HandleSyncMessage(ctx, msg)
	}
}

// HandleSyncMessage mirrors the meal named by msg. Messages for a version
// older than the stored one are dropped since a newer message follows.
func (w *SyncWorker) HandleSyncMessage(ctx context.Context, msg *amqp.MealSyncMessage) error {
	slog.InfoContext(ctx, "Processing sync message",
		"component", "worker",
		"id", msg.ID,
		"version", msg.Version)

	current, err := w.storage.MealVersion(ctx, msg.ID)
	if errors.Is(err, core.ErrNotFound) {
		slog.InfoContext(ctx, "Meal no longer exists, skipping sync", "component", "worker", "id", msg.ID)
		return nil
	}
	if err != nil {
		return fmt.Errorf("get meal version: %w", err)
	}
	if msg.Version > 0 && msg.Version < current {
		slog.DebugContext(ctx, "Dropping stale sync message",
			"component", "worker", "id", msg.ID, "version", msg.Version, "current", current)
		return nil
	}

	return w.syncMeal(ctx, msg.ID, current)
}

// HandleDeleteMessage removes the meal's row from the sheet.
func (w *SyncWorker) HandleDeleteMessage(ctx context.Context, msg *amqp.MealSyncMessage) error {
	slog.InfoContext(ctx, "Processing delete message", "component", "worker", "id", msg.ID)

	if err := w.mirror.DeleteMeal(ctx, msg.ID); err != nil {
		return fmt.Errorf("delete meal from sheets: %w", err)
	}

	slog.InfoContext(ctx, "Deleted meal from sheets", "component", "worker", "id", msg.ID)
	return nil
}

// ProcessPending mirrors meals that are still pending or failed earlier.
// It backs up the AMQP path in case messages are lost.
func (w *SyncWorker) ProcessPending(ctx context.Context) error {
	_, _, err := w.sweep(ctx, w.batchSize)
	return err
}

// StartupSyncCheck runs a larger sweep when the worker starts, to recover
// from worker downtime.
func (w *SyncWorker) StartupSyncCheck(ctx context.Context) error {
	synced, failed, err := w.sweep(ctx, w.batchSize*5)
	if err != nil {
		return fmt.Errorf("startup sync check: %w", err)
	}
	if synced+failed == 0 {
		slog.InfoContext(ctx, "No pending meals found on startup", "component", "worker")
		return nil
	}
	slog.InfoContext(ctx, "Startup sync completed",
		"component", "worker",
		"synced", synced,
		"errors", failed)
	return nil
}

func (w *SyncWorker) sweep(ctx context.Context, limit int) (synced, failed int, err error) {
	pending, err := w.storage.PendingSync(ctx, limit)
	if err != nil {
		return 0, 0, fmt.Errorf("get pending meals: %w", err)
	}
	if len(pending) > 0 {
		slog.InfoContext(ctx, "Processing pending meals", "component", "worker", "count", len(pending))
	}

	for _, p := range pending {
		if ctx.Err() != nil {
			return synced, failed, ctx.Err()
		}
		if err := w.syncMeal(ctx, p.ID, p.Version); err != nil {
			slog.ErrorContext(ctx, "Failed to sync meal", "component", "worker", "id", p.ID, "error", err)
			failed++
			continue
		}
		synced++
	}
	return synced, failed, nil
}

func (w *SyncWorker) syncMeal(ctx context.Context, id, version int64) error {
	meal, err := w.storage.GetMeal(ctx, id)
	if errors.Is(err, core.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("get meal from storage: %w", err)
	}

	if err := w.mirror.UpsertMeal(ctx, meal, version); err != nil {
		if markErr := w.storage.MarkSyncError(ctx, id); markErr != nil {
			slog.ErrorContext(ctx, "Failed to mark sync error", "component", "worker", "id", id, "error", markErr)
		}
		return fmt.Errorf("upsert meal to sheets: %w", err)
	}

	// A no-op when the meal changed again meanwhile; it stays pending.
	if err := w.storage.MarkSynced(ctx, id, version); err != nil {
		slog.ErrorContext(ctx, "Failed to mark as synced", "component", "worker", "id", id, "error", err)
	}

	slog.InfoContext(ctx, "Synced meal to sheets",
		"component", "worker",
		"id", id,
		"version", version,
		"date", meal.Date.String(),
		"meal_type", string(meal.MealType))
	return nil
}
