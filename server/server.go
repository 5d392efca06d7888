package server

import (
	"context"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/egaotan/solana-revertable/store"
	"github.com/egaotan/solana-revertable/workflow"
	"github.com/gagliardetto/solana-go"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

const recentLimit = 100

type Runner interface {
	Run(ctx context.Context) (*workflow.Report, error)
}

type BalanceOracle interface {
	GetBalance(ctx context.Context, pubkey solana.PublicKey) (uint64, error)
}

// RunReader reads persisted runs. It is optional.
type RunReader interface {
	GetRun(id uint64) ([]*store.RunRecord, error)
	GetRecentRuns(limit int) ([]*store.RunRecord, error)
}

type Server struct {
	ctx        context.Context
	logger     *logrus.Entry
	listen     string
	runner     Runner
	oracle     BalanceOracle
	reader     RunReader
	mu         sync.Mutex
	recent     []*store.RunRecord
	httpServer *http.Server
}

func NewServer(ctx context.Context, listen string, runner Runner, oracle BalanceOracle, reader RunReader, logger *logrus.Entry) *Server {
	return &Server{
		ctx:    ctx,
		logger: logger,
		listen: listen,
		runner: runner,
		oracle: oracle,
		reader: reader,
		recent: make([]*store.RunRecord, 0, recentLimit),
	}
}

func (s *Server) Router() http.Handler {
	router := gin.New()
	router.Use(gin.Recovery())
	g := router.Group("/api")
	g.POST("/runs", s.startRun)
	g.GET("/runs", s.listRuns)
	g.GET("/runs/:id", s.getRun)
	g.GET("/balance/:address", s.getBalance)
	return router
}

// Service serves until the context is done.
func (s *Server) Service() {
	s.Start()
	<-s.ctx.Done()
	s.Stop()
}

func (s *Server) Start() {
	s.httpServer = &http.Server{
		Addr:    s.listen,
		Handler: s.Router(),
	}
	s.logger.Infof("start rpc server on %s......", s.listen)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Errorf("ListenAndServe: %s", err.Error())
		}
	}()
}

func (s *Server) Stop() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.httpServer.Shutdown(ctx); err != nil {
		s.logger.Warnf("shutdown err: %s", err)
	}
	s.logger.Infof("rpc server has stopped......")
}

func (s *Server) remember(record *store.RunRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.recent = append(s.recent, record)
	if len(s.recent) > recentLimit {
		s.recent = s.recent[len(s.recent)-recentLimit:]
	}
}

func (s *Server) lookup(id uint64) *store.RunRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, record := range s.recent {
		if record.Id == id {
			return record
		}
	}
	return nil
}

func (s *Server) newest(limit int) []*store.RunRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*store.RunRecord, 0, limit)
	for i := len(s.recent) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, s.recent[i])
	}
	return out
}

type ErrorResponse struct {
	Error string `json:"error"`
}

type RunResponse struct {
	Succeeded bool             `json:"succeeded"`
	Error     string           `json:"error,omitempty"`
	Run       *store.RunRecord `json:"run"`
}

// startRun runs one workflow to completion. It runs under the server
// context so a dropped client does not interrupt it between steps.
func (s *Server) startRun(c *gin.Context) {
	report, err := s.runner.Run(s.ctx)
	record := store.FromReport(report)
	s.remember(record)
	resp := &RunResponse{
		Succeeded: report.Succeeded(),
		Run:       record,
	}
	if err != nil {
		resp.Error = err.Error()
		s.logger.Warnf("run %d err: %s", report.Id, err)
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) getRun(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, &ErrorResponse{Error: "invalid run id"})
		return
	}
	if record := s.lookup(id); record != nil {
		c.JSON(http.StatusOK, record)
		return
	}
	if s.reader != nil {
		records, err := s.reader.GetRun(id)
		if err != nil {
			c.JSON(http.StatusInternalServerError, &ErrorResponse{Error: err.Error()})
			return
		}
		if len(records) > 0 {
			c.JSON(http.StatusOK, records[0])
			return
		}
	}
	c.JSON(http.StatusNotFound, &ErrorResponse{Error: "run not found"})
}

func (s *Server) listRuns(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if err != nil || limit <= 0 || limit > recentLimit {
		c.JSON(http.StatusBadRequest, &ErrorResponse{Error: "invalid limit"})
		return
	}
	if s.reader != nil {
		records, err := s.reader.GetRecentRuns(limit)
		if err != nil {
			c.JSON(http.StatusInternalServerError, &ErrorResponse{Error: err.Error()})
			return
		}
		c.JSON(http.StatusOK, records)
		return
	}
	c.JSON(http.StatusOK, s.newest(limit))
}

type BalanceResponse struct {
	Address  string `json:"address"`
	Lamports uint64 `json:"lamports"`
	Native   string `json:"native"`
}

func (s *Server) getBalance(c *gin.Context) {
	address, err := solana.PublicKeyFromBase58(c.Param("address"))
	if err != nil {
		c.JSON(http.StatusBadRequest, &ErrorResponse{Error: "invalid address"})
		return
	}
	balance, err := s.oracle.GetBalance(c.Request.Context(), address)
	if err != nil {
		c.JSON(http.StatusBadGateway, &ErrorResponse{Error: err.Error()})
		return
	}
	c.JSON(http.StatusOK, &BalanceResponse{
		Address:  address.String(),
		Lamports: balance,
		Native:   workflow.Native(int64(balance)).StringFixed(9),
	})
}
