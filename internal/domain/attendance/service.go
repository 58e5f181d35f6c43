package attendance

import (
	"context"
	"time"
)

type AttendanceService interface {
	RecordPunches(ctx context.Context, req RecordPunchesRequest) (int, error)
	ClassifyDay(ctx context.Context, companyID, employeeID string, date time.Time, actor string) (DailyTimeRecord, error)
	ClassifyRange(ctx context.Context, req ClassifyRangeRequest) (ClassifyRangeResult, error)

	GetRecord(ctx context.Context, companyID, id string) (DailyTimeRecord, error)
	ListRecords(ctx context.Context, companyID string, filter DtrFilter) ([]DailyTimeRecord, int64, error)
	History(ctx context.Context, companyID, id string) ([]DtrEvent, error)
}

type ReviewService interface {
	Resolve(ctx context.Context, req ResolveRequest) (DailyTimeRecord, error)
	ApproveOvertime(ctx context.Context, req OvertimeDecisionRequest) (DailyTimeRecord, error)
	DenyOvertime(ctx context.Context, req OvertimeDecisionRequest) (DailyTimeRecord, error)
}
