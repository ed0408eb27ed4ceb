package scheduler

import (
	"sync"
	"time"
)

// TaskMetrics tracks execution statistics for a task
type TaskMetrics struct {
	mu sync.RWMutex

	// Execution counts
	TotalExecutions   int64
	SuccessCount      int64
	FailureCount      int64
	LastExecutionTime time.Time

	// Timing statistics
	TotalDuration   time.Duration
	MinDuration     time.Duration
	MaxDuration     time.Duration
	AverageDuration time.Duration

	// Error tracking
	LastError         error
	LastErrorTime     time.Time
	ConsecutiveErrors int64
}

// NewTaskMetrics creates a new metrics tracker
func NewTaskMetrics() *TaskMetrics {
	return &TaskMetrics{
		MinDuration: time.Duration(1<<63 - 1),
	}
}

// RecordExecution records one run with its timing and result
func (tm *TaskMetrics) RecordExecution(duration time.Duration, err error) {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	tm.TotalExecutions++
	tm.LastExecutionTime = time.Now()

	tm.TotalDuration += duration
	if duration < tm.MinDuration {
		tm.MinDuration = duration
	}
	if duration > tm.MaxDuration {
		tm.MaxDuration = duration
	}
	tm.AverageDuration = tm.TotalDuration / time.Duration(tm.TotalExecutions)

	if err == nil {
		tm.SuccessCount++
		tm.ConsecutiveErrors = 0
	} else {
		tm.FailureCount++
		tm.ConsecutiveErrors++
		tm.LastError = err
		tm.LastErrorTime = time.Now()
	}
}

// IsHealthy reports whether consecutive errors are below the threshold
func (tm *TaskMetrics) IsHealthy(consecutiveErrorThreshold int64) bool {
	tm.mu.RLock()
	defer tm.mu.RUnlock()

	if consecutiveErrorThreshold <= 0 {
		consecutiveErrorThreshold = 3 // Default threshold
	}

	return tm.ConsecutiveErrors < consecutiveErrorThreshold
}

// GetStats returns a snapshot of current metrics
func (tm *TaskMetrics) GetStats() TaskStats {
	tm.mu.RLock()
	defer tm.mu.RUnlock()

	stats := TaskStats{
		TotalExecutions:   tm.TotalExecutions,
		SuccessCount:      tm.SuccessCount,
		FailureCount:      tm.FailureCount,
		LastExecutionTime: tm.LastExecutionTime,
		AverageDuration:   tm.AverageDuration,
		MaxDuration:       tm.MaxDuration,
		ConsecutiveErrors: tm.ConsecutiveErrors,
		LastErrorTime:     tm.LastErrorTime,
	}
	if tm.TotalExecutions > 0 {
		stats.MinDuration = tm.MinDuration
		stats.ErrorRate = float64(tm.FailureCount) / float64(tm.TotalExecutions) * 100.0
	}
	if tm.LastError != nil {
		stats.LastError = tm.LastError.Error()
	}
	return stats
}

// TaskStats is a snapshot of task metrics
type TaskStats struct {
	TotalExecutions   int64         `json:"total_executions"`
	SuccessCount      int64         `json:"success_count"`
	FailureCount      int64         `json:"failure_count"`
	LastExecutionTime time.Time     `json:"last_execution_time"`
	AverageDuration   time.Duration `json:"average_duration"`
	MinDuration       time.Duration `json:"min_duration"`
	MaxDuration       time.Duration `json:"max_duration"`
	ErrorRate         float64       `json:"error_rate"`
	ConsecutiveErrors int64         `json:"consecutive_errors"`
	LastError         string        `json:"last_error,omitempty"`
	LastErrorTime     time.Time     `json:"last_error_time"`
}
