package store

import (
	"github.com/egaotan/solana-revertable/workflow"
)

type StepRecord struct {
	Step        string `gorm:"type:varchar(16);not null" json:"step"`
	Signature   string `gorm:"type:varchar(120);not null" json:"signature"`
	Slot        uint64 `gorm:"type:bigint(20);not null" json:"slot"`
	Err         string `gorm:"type:varchar(512);not null" json:"err"`
	RunRecordId uint64 `gorm:"type:bigint(20);not null" json:"-"`
}

type RunRecord struct {
	Id          uint64        `gorm:"primaryKey;type:bigint(20);not null" json:"id"`
	Operator    string        `gorm:"type:varchar(48);not null" json:"operator"`
	Ephemeral   string        `gorm:"type:varchar(48);not null" json:"ephemeral"`
	State       string        `gorm:"type:varchar(16);not null" json:"state"`
	Reached     string        `gorm:"type:varchar(16);not null" json:"reached"`
	FailedAt    string        `gorm:"type:varchar(16);not null" json:"failedAt"`
	Cause       string        `gorm:"type:varchar(32);not null" json:"cause"`
	Expected    bool          `gorm:"not null" json:"expected"`
	PreBalance  uint64        `gorm:"type:bigint(20);not null" json:"preBalance"`
	PostBalance uint64        `gorm:"type:bigint(20);not null" json:"postBalance"`
	Delta       int64         `gorm:"type:bigint(20);not null" json:"delta"`
	StartTime   uint64        `gorm:"type:bigint(20);not null" json:"startTime"`
	EndTime     uint64        `gorm:"type:bigint(20);not null" json:"endTime"`
	StepRecords []*StepRecord `gorm:"foreignKey:RunRecordId;references:Id" json:"stepRecords"`
}

// FromReport flattens a run report into a record. Times are unix
// milliseconds.
func FromReport(report *workflow.Report) *RunRecord {
	record := &RunRecord{
		Id:          report.Id,
		Operator:    report.Operator.String(),
		Ephemeral:   report.Ephemeral.String(),
		State:       string(report.State),
		Reached:     string(report.Reached),
		PreBalance:  report.PreBalance,
		PostBalance: report.PostBalance,
		StartTime:   uint64(report.StartTime.UnixNano() / 1e6),
		EndTime:     uint64(report.EndTime.UnixNano() / 1e6),
		StepRecords: make([]*StepRecord, 0, len(report.Steps)),
	}
	if report.HasPreBalance && report.HasPostBalance {
		record.Delta = report.Delta()
	}
	if report.Failure != nil {
		record.FailedAt = string(report.Failure.AtState)
		record.Cause = string(report.Failure.Cause)
		record.Expected = report.Failure.Expected
	}
	for _, step := range report.Steps {
		record.StepRecords = append(record.StepRecords, &StepRecord{
			Step:        step.Step,
			Signature:   step.Signature.String(),
			Slot:        step.Slot,
			Err:         step.Err,
			RunRecordId: report.Id,
		})
	}
	return record
}
