package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/egaotan/solana-revertable/store"
	"github.com/egaotan/solana-revertable/workflow"
	"github.com/gagliardetto/solana-go"
	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeRunner struct {
	next uint64
}

func (r *fakeRunner) Run(ctx context.Context) (*workflow.Report, error) {
	r.next++
	return &workflow.Report{
		Id:             r.next,
		State:          workflow.StateVerified,
		Reached:        workflow.StateVerified,
		PreBalance:     120000,
		PostBalance:    120000,
		HasPreBalance:  true,
		HasPostBalance: true,
	}, nil
}

type fakeOracle struct {
	balances map[solana.PublicKey]uint64
	err      error
}

func (o *fakeOracle) GetBalance(ctx context.Context, pubkey solana.PublicKey) (uint64, error) {
	if o.err != nil {
		return 0, o.err
	}
	return o.balances[pubkey], nil
}

type fakeReader struct {
	records map[uint64]*store.RunRecord
}

func (r *fakeReader) GetRun(id uint64) ([]*store.RunRecord, error) {
	if record, ok := r.records[id]; ok {
		return []*store.RunRecord{record}, nil
	}
	return []*store.RunRecord{}, nil
}

func (r *fakeReader) GetRecentRuns(limit int) ([]*store.RunRecord, error) {
	out := make([]*store.RunRecord, 0)
	for _, record := range r.records {
		out = append(out, record)
	}
	return out, nil
}

func newTestServer(oracle BalanceOracle, reader RunReader) *Server {
	return NewServer(context.Background(), "127.0.0.1:0", &fakeRunner{}, oracle, reader, logrus.NewEntry(logrus.New()))
}

func do(t *testing.T, h http.Handler, method, path string, out interface{}) int {
	req := httptest.NewRequest(method, path, nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if out != nil {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), out))
	}
	return rec.Code
}

func TestServer_Runs(t *testing.T) {
	s := newTestServer(&fakeOracle{}, nil)
	h := s.Router()

	var resp RunResponse
	assert.Equal(t, http.StatusOK, do(t, h, "POST", "/api/runs", &resp))
	assert.True(t, resp.Succeeded)
	assert.Equal(t, uint64(1), resp.Run.Id)
	assert.Equal(t, "Verified", resp.Run.State)
	do(t, h, "POST", "/api/runs", nil)

	var record store.RunRecord
	assert.Equal(t, http.StatusOK, do(t, h, "GET", "/api/runs/1", &record))
	assert.Equal(t, uint64(1), record.Id)

	var records []*store.RunRecord
	assert.Equal(t, http.StatusOK, do(t, h, "GET", "/api/runs?limit=5", &records))
	require.Len(t, records, 2)
	assert.Equal(t, uint64(2), records[0].Id)

	var errResp ErrorResponse
	assert.Equal(t, http.StatusNotFound, do(t, h, "GET", "/api/runs/9", &errResp))
	assert.Equal(t, http.StatusBadRequest, do(t, h, "GET", "/api/runs/x", &errResp))
	assert.Equal(t, http.StatusBadRequest, do(t, h, "GET", "/api/runs?limit=0", &errResp))
}

func TestServer_RunFromReader(t *testing.T) {
	reader := &fakeReader{records: map[uint64]*store.RunRecord{7: {Id: 7, State: "Failed"}}}
	s := newTestServer(&fakeOracle{}, reader)
	h := s.Router()

	var record store.RunRecord
	assert.Equal(t, http.StatusOK, do(t, h, "GET", "/api/runs/7", &record))
	assert.Equal(t, "Failed", record.State)

	var records []*store.RunRecord
	assert.Equal(t, http.StatusOK, do(t, h, "GET", "/api/runs", &records))
	assert.Len(t, records, 1)
}

func TestServer_Balance(t *testing.T) {
	account := solana.PublicKey{3}
	s := newTestServer(&fakeOracle{balances: map[solana.PublicKey]uint64{account: 1500000000}}, nil)
	h := s.Router()

	var resp BalanceResponse
	assert.Equal(t, http.StatusOK, do(t, h, "GET", "/api/balance/"+account.String(), &resp))
	assert.Equal(t, uint64(1500000000), resp.Lamports)
	assert.Equal(t, "1.500000000", resp.Native)

	var errResp ErrorResponse
	assert.Equal(t, http.StatusBadRequest, do(t, h, "GET", "/api/balance/not-an-address", &errResp))

	failing := newTestServer(&fakeOracle{err: errors.New("connection refused")}, nil)
	assert.Equal(t, http.StatusBadGateway, do(t, failing.Router(), "GET", "/api/balance/"+account.String(), &errResp))
	assert.Equal(t, "connection refused", errResp.Error)
}
