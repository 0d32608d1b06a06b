package server_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/require"

	"github.com/norugfun/ledger/ledger/pkg/protocol"
	"github.com/norugfun/ledger/ledger/pkg/store"
	ledgertest "github.com/norugfun/ledger/utils/pkg/testing"
	"github.com/norugfun/ledger/watchdog/pkg/server"
	"github.com/norugfun/ledger/watchdog/pkg/watchdog"
)

type stubReader struct {
	epochs   []store.EpochRecord
	treasury store.TreasuryRecord
}

func (s *stubReader) ListActiveEpochs(ctx context.Context) ([]store.EpochRecord, error) {
	return s.epochs, nil
}

func (s *stubReader) GetEpoch(ctx context.Context, epochID uint64) (store.EpochRecord, error) {
	for _, e := range s.epochs {
		if e.EpochID == epochID {
			return e, nil
		}
	}
	return store.EpochRecord{}, protocol.ErrEpochNotFound
}

func (s *stubReader) ListProposalsByEpoch(ctx context.Context, epochID uint64) ([]store.ProposalRecord, error) {
	return nil, nil
}

func (s *stubReader) GetProposal(ctx context.Context, proposal solana.PublicKey) (store.ProposalRecord, error) {
	return store.ProposalRecord{}, protocol.ErrProposalNotFound
}

func (s *stubReader) GetTreasury(ctx context.Context) (store.TreasuryRecord, error) {
	return s.treasury, nil
}

// DueEpochs and AutoCheckAndClose satisfy the watchdog's ledger interface.
func (s *stubReader) DueEpochs(ctx context.Context) ([]store.EpochRecord, error) {
	return nil, nil
}

func (s *stubReader) AutoCheckAndClose(ctx context.Context, epochID uint64) (bool, error) {
	return false, nil
}

func newTestServer(t *testing.T, reader *stubReader) (*server.Server, *watchdog.Watchdog) {
	t.Helper()
	log := ledgertest.NewLogger()

	wd, err := watchdog.New(watchdog.Config{
		Logger: log,
		Ledger: reader,
	})
	require.NoError(t, err)

	srv, err := server.New(log, server.Config{
		ListenAddr:  "127.0.0.1:0",
		VersionInfo: server.VersionInfo{Version: "test"},
		Ledger:      reader,
		Watchdog:    wd,
	})
	require.NoError(t, err)
	return srv, wd
}

func TestLedger_Server_Probes(t *testing.T) {
	t.Parallel()

	reader := &stubReader{}
	srv, wd := newTestServer(t, reader)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	resp, err := http.Get(ts.URL + "/healthz")
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	// Not ready until the watchdog has completed a sweep.
	resp, err = http.Get(ts.URL + "/readyz")
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)

	require.NoError(t, wd.Sweep(t.Context()))

	resp, err = http.Get(ts.URL + "/readyz")
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Get(ts.URL + "/version")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var version server.VersionInfo
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&version))
	require.Equal(t, "test", version.Version)
}

func TestLedger_Server_EpochQueries(t *testing.T) {
	t.Parallel()

	reader := &stubReader{
		epochs: []store.EpochRecord{
			{Address: solana.NewWallet().PublicKey(), EpochID: 3, Status: protocol.EpochActive},
		},
	}
	srv, _ := newTestServer(t, reader)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	resp, err := http.Get(ts.URL + "/api/epochs")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var epochs []store.EpochRecord
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&epochs))
	require.Len(t, epochs, 1)
	require.Equal(t, uint64(3), epochs[0].EpochID)

	resp, err = http.Get(ts.URL + "/api/epochs/3")
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Get(ts.URL + "/api/epochs/99")
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, err = http.Get(ts.URL + "/api/epochs/not-a-number")
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestLedger_Server_Metrics(t *testing.T) {
	t.Parallel()

	srv, _ := newTestServer(t, &stubReader{})
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	resp, err := http.Get(ts.URL + "/metrics")
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
}
