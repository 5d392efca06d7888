package store

import (
	"context"
	"sync"

	"github.com/egaotan/solana-revertable/workflow"
	"github.com/sirupsen/logrus"
)

// Store writes run records from a single goroutine so that runs never wait
// on the database.
type Store struct {
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	runChan chan *RunRecord
	dao     Repository
	logger  *logrus.Entry
}

func NewStore(ctx context.Context, dao Repository, logger *logrus.Entry) *Store {
	ctx, cancel := context.WithCancel(ctx)
	s := &Store{
		ctx:     ctx,
		cancel:  cancel,
		runChan: make(chan *RunRecord, 32),
		dao:     dao,
		logger:  logger,
	}
	return s
}

func (s *Store) Start() {
	s.wg.Add(1)
	go s.store()
}

// Stop writes what is already queued and waits for the writer to exit.
func (s *Store) Stop() {
	s.cancel()
	s.wg.Wait()
}

func (s *Store) store() {
	defer s.wg.Done()
	for {
		select {
		case run := <-s.runChan:
			s.save(run)
		case <-s.ctx.Done():
			for {
				select {
				case run := <-s.runChan:
					s.save(run)
				default:
					return
				}
			}
		}
	}
}

func (s *Store) save(run *RunRecord) {
	if err := s.dao.SaveRun(run); err != nil {
		s.logger.Warnf("save run %d err: %s", run.Id, err)
		return
	}
	s.logger.Debugf("run %d saved", run.Id)
}

func (s *Store) StoreRun(run *RunRecord) {
	select {
	case s.runChan <- run:
	case <-s.ctx.Done():
		s.logger.Warnf("store stopped, run %d dropped", run.Id)
	}
}

// OnReport queues the finished run for writing.
func (s *Store) OnReport(report *workflow.Report) {
	s.StoreRun(FromReport(report))
}

func (s *Store) GetRun(id uint64) ([]*RunRecord, error) {
	return s.dao.SelectRun(id)
}

func (s *Store) GetRecentRuns(limit int) ([]*RunRecord, error) {
	return s.dao.SelectRecentRuns(limit)
}
