package strategy

import (
	"context"
	"fmt"
	"stock-forecast/internal/model"

	"github.com/goccy/go-json"
)

const (
	JOB_EXIT_CODE_SUCCESS         = 200
	JOB_EXIT_CODE_FAILED          = 500
	JOB_EXIT_CODE_SKIPPED         = 204
	JOB_EXIT_CODE_PARTIAL_SUCCESS = 206
)

type JobType string

const (
	JobTypeForecastCleanUp JobType = "forecast_cleanup"
	JobTypeModelWarmUp     JobType = "model_warmup"
)

type JobResult struct {
	ExitCode int32  `json:"exit_code"`
	Output   string `json:"output"`
}

// JobExecutionStrategy runs one scheduled job type.
type JobExecutionStrategy interface {
	Execute(ctx context.Context, job *model.Job) (JobResult, error)
	GetType() JobType
}

// decodePayload fills payload from the job row; an empty payload keeps the defaults.
func decodePayload(job *model.Job, payload any) (JobResult, error) {
	if len(job.Payload) == 0 {
		return JobResult{}, nil
	}
	if err := json.Unmarshal(job.Payload, payload); err != nil {
		return JobResult{ExitCode: JOB_EXIT_CODE_FAILED, Output: fmt.Sprintf("failed to unmarshal job payload: %v", err)},
			fmt.Errorf("failed to unmarshal job payload: %w", err)
	}
	return JobResult{}, nil
}

// summarize encodes per-item results and picks the exit code from the failure count.
func summarize(results any, failed, total int, failure string) (JobResult, error) {
	res, err := json.Marshal(results)
	if err != nil {
		return JobResult{ExitCode: JOB_EXIT_CODE_FAILED, Output: fmt.Sprintf("failed to marshal output message: %v", err)},
			fmt.Errorf("failed to marshal output message: %w", err)
	}

	switch {
	case failed == 0:
		return JobResult{ExitCode: JOB_EXIT_CODE_SUCCESS, Output: string(res)}, nil
	case failed >= total:
		return JobResult{ExitCode: JOB_EXIT_CODE_FAILED, Output: string(res)}, fmt.Errorf("%s", failure)
	default:
		return JobResult{ExitCode: JOB_EXIT_CODE_PARTIAL_SUCCESS, Output: string(res)}, nil
	}
}
