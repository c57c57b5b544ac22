package cycle

import (
	"context"
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

const TaskGenerateCycles = "checklist:generate:run"

type GeneratePayload struct {
	RunDate     string `json:"run_date"` // YYYY-MM-DD
	TriggeredBy string `json:"triggered_by"`
}

func NewGenerateTask(runDate time.Time, triggeredBy string) *asynq.Task {
	payload, _ := json.Marshal(GeneratePayload{
		RunDate:     runDate.Format("2006-01-02"),
		TriggeredBy: triggeredBy,
	})
	return asynq.NewTask(TaskGenerateCycles, payload,
		asynq.MaxRetry(3),
		asynq.Timeout(5*time.Minute),
		asynq.Queue("generation"),
	)
}

// RegisterHandlers binds the generation handler to the asynq mux.
func RegisterHandlers(mux *asynq.ServeMux, svc *Service) {
	mux.HandleFunc(TaskGenerateCycles, svc.HandleGenerateTask)
}

// HandleGenerateTask decodes the payload and delegates to GenerateDueCycles;
// the job wrapper only logs the summary.
func (s *Service) HandleGenerateTask(ctx context.Context, t *asynq.Task) error {
	var payload GeneratePayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		zap.L().Error("invalid generation payload", zap.Error(err))
		return err
	}

	runDate, err := time.Parse("2006-01-02", payload.RunDate)
	if err != nil {
		zap.L().Error("invalid run date in generation payload", zap.String("run_date", payload.RunDate), zap.Error(err))
		return err
	}

	summary, err := s.GenerateDueCycles(ctx, runDate, payload.TriggeredBy)
	if err != nil {
		zap.L().Error("generation run failed", zap.String("run_date", payload.RunDate), zap.Error(err))
		return err
	}

	zap.L().Info("generation run finished",
		zap.String("run_id", summary.RunID),
		zap.String("run_date", payload.RunDate),
		zap.Int("generated", summary.GeneratedCount),
		zap.Int("skipped", summary.SkippedCount),
		zap.Int("errors", len(summary.Errors)),
	)
	return nil
}
