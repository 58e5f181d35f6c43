package cron

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/cmlabs-hris/payroll-engine/internal/domain/attendance"
	"github.com/cmlabs-hris/payroll-engine/internal/domain/employee"
	"github.com/cmlabs-hris/payroll-engine/internal/pkg/clock"
	"github.com/cmlabs-hris/payroll-engine/internal/repository/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingClassifier struct {
	attendance.AttendanceService

	mu       sync.Mutex
	requests []attendance.ClassifyRangeRequest
	failFor  string
}

func (c *recordingClassifier) ClassifyRange(_ context.Context, req attendance.ClassifyRangeRequest) (attendance.ClassifyRangeResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.requests = append(c.requests, req)
	if req.CompanyID == c.failFor {
		return attendance.ClassifyRangeResult{}, errors.New("boom")
	}
	return attendance.ClassifyRangeResult{Classified: 2, Flagged: 1}, nil
}

func TestClassifyRecentDays(t *testing.T) {
	hired := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	employees := memory.NewEmployeeRepository(
		employee.Employee{ID: "emp-1", CompanyID: "company-a", HireDate: hired},
		employee.Employee{ID: "emp-2", CompanyID: "company-b", HireDate: hired},
	)
	classifier := &recordingClassifier{failFor: "company-a"}
	clk := clock.NewFixed(time.Date(2025, 6, 10, 1, 0, 0, 0, time.UTC))

	jobs := NewClassificationJobs(employees, classifier, clk, 3)
	require.NoError(t, jobs.ClassifyRecentDays(context.Background()), "one failing tenant must not fail the job")

	require.Len(t, classifier.requests, 2)
	sort.Slice(classifier.requests, func(i, j int) bool {
		return classifier.requests[i].CompanyID < classifier.requests[j].CompanyID
	})
	for _, req := range classifier.requests {
		assert.Equal(t, "2025-06-07", req.From)
		assert.Equal(t, "2025-06-09", req.To)
		assert.Equal(t, SystemActor, req.Actor)
		assert.Empty(t, req.EmployeeIDs)
	}
}

func TestScheduler_RunOnce(t *testing.T) {
	s := NewScheduler()
	var calls []string
	s.AddJob("ok", time.Hour, func(ctx context.Context) error {
		calls = append(calls, "ok")
		return nil
	})
	s.AddJob("broken", time.Hour, func(ctx context.Context) error {
		calls = append(calls, "broken")
		return errors.New("failed")
	})

	err := s.RunOnce(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broken")
	assert.Equal(t, []string{"ok", "broken"}, calls)
}

func TestScheduler_SkipsOverlappingRuns(t *testing.T) {
	s := NewScheduler()
	release := make(chan struct{})
	started := make(chan struct{})
	var runs int
	var mu sync.Mutex

	s.AddJob("slow", time.Hour, func(ctx context.Context) error {
		mu.Lock()
		runs++
		mu.Unlock()
		close(started)
		<-release
		return nil
	})

	s.Start()
	<-started
	require.NoError(t, s.executeJob(context.Background(), s.jobs[0]))
	close(release)
	s.Stop()

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 1, runs)
}
