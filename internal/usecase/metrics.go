package usecase

import (
	"context"

	"github.com/example/pictech-gateway/internal/logging"
	"github.com/example/pictech-gateway/internal/poller"
)

// KindSummary aggregates the ledger for one task kind.
type KindSummary struct {
	Total     int64            `json:"total"`
	Succeeded int64            `json:"succeeded"`
	ByStatus  map[string]int64 `json:"by_status"`
}

// TaskSummary represents aggregated ledger insights.
type TaskSummary struct {
	TotalTasks     int64                   `json:"total_tasks"`
	SucceededTasks int64                   `json:"succeeded_tasks"`
	SuccessRate    float64                 `json:"success_rate"`
	Kinds          map[string]*KindSummary `json:"kinds"`
}

// GetTaskSummary aggregates task counts from the persisted ledger.
func (uc *ImageUseCase) GetTaskSummary(ctx context.Context) (*TaskSummary, error) {
	rows, err := uc.repo.CountByStatus(ctx)
	if err != nil {
		return nil, logging.NewOperationError("usecase.task_summary", "", err)
	}

	summary := &TaskSummary{Kinds: make(map[string]*KindSummary)}
	for _, row := range rows {
		kind, ok := summary.Kinds[row.Kind]
		if !ok {
			kind = &KindSummary{ByStatus: make(map[string]int64)}
			summary.Kinds[row.Kind] = kind
		}
		kind.ByStatus[row.Status] += row.Count
		kind.Total += row.Count
		summary.TotalTasks += row.Count
		if row.Status == string(poller.StateSucceeded) {
			kind.Succeeded += row.Count
			summary.SucceededTasks += row.Count
		}
	}

	if summary.TotalTasks > 0 {
		summary.SuccessRate = float64(summary.SucceededTasks) / float64(summary.TotalTasks)
	}

	return summary, nil
}
