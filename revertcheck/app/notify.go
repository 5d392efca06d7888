package app

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/egaotan/solana-revertable/balancelisten"
	"github.com/egaotan/solana-revertable/dingsdk"
	"github.com/egaotan/solana-revertable/workflow"
	"github.com/sirupsen/logrus"
)

// Notify forwards finished runs to the webhook from its own goroutine.
type Notify struct {
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	data   chan *workflow.Report
	dsdk   balancelisten.Notifier
	logger *logrus.Entry
}

func NewNotify(ctx context.Context, dsdk balancelisten.Notifier, logger *logrus.Entry) *Notify {
	ctx, cancel := context.WithCancel(ctx)
	notify := &Notify{
		ctx:    ctx,
		cancel: cancel,
		dsdk:   dsdk,
		data:   make(chan *workflow.Report, 32),
		logger: logger,
	}
	return notify
}

func (notify *Notify) Start() {
	notify.wg.Add(1)
	go notify.listen()
}

// Stop sends what is already queued and waits for the sender to exit.
func (notify *Notify) Stop() {
	notify.cancel()
	notify.wg.Wait()
}

func (notify *Notify) OnReport(report *workflow.Report) {
	select {
	case notify.data <- report:
	case <-notify.ctx.Done():
	}
}

func (notify *Notify) listen() {
	defer notify.wg.Done()
	for {
		select {
		case report := <-notify.data:
			notify.tryNotify(report)
		case <-notify.ctx.Done():
			for {
				select {
				case report := <-notify.data:
					notify.tryNotify(report)
				default:
					return
				}
			}
		}
	}
}

func (notify *Notify) tryNotify(report *workflow.Report) {
	if _, err := notify.dsdk.Notify(dingsdk.Text(Summary(report))); err != nil {
		notify.logger.Warnf("notify run %d err: %s", report.Id, err)
	}
}

// Summary is the one message sent per run.
func Summary(report *workflow.Report) string {
	items := make([]string, 0)
	ttStr := time.Unix(int64(report.Id)/1000000, 0).Format("2006-01-02 15:04:05")
	items = append(items, "revertable invoke: ")
	items = append(items, fmt.Sprintf("id: %d;", report.Id))
	items = append(items, fmt.Sprintf("time: %s;", ttStr))
	items = append(items, fmt.Sprintf("ephemeral: %s;", report.Ephemeral))
	items = append(items, fmt.Sprintf("state: %s (reached %s);", report.State, report.Reached))
	if report.Failure != nil {
		items = append(items, fmt.Sprintf("failure: %s at %s, expected: %t;", report.Failure.Cause, report.Failure.AtState, report.Failure.Expected))
	}
	if report.HasPreBalance && report.HasPostBalance {
		items = append(items, fmt.Sprintf("balance: %s -> %s;",
			workflow.Native(int64(report.PreBalance)).StringFixed(9),
			workflow.Native(int64(report.PostBalance)).StringFixed(9)))
	}
	items = append(items, fmt.Sprintf("succeeded: %t;", report.Succeeded()))
	return strings.Join(items, "\n")
}
