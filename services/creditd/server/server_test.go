package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Wenbobobo/Solease/core"
	"github.com/Wenbobobo/Solease/core/events"
	"github.com/Wenbobobo/Solease/core/state"
	"github.com/Wenbobobo/Solease/crypto"
	"github.com/Wenbobobo/Solease/gateway/middleware"
	nativecommon "github.com/Wenbobobo/Solease/native/common"
	"github.com/Wenbobobo/Solease/native/credit"
	"github.com/Wenbobobo/Solease/native/registry"
	"github.com/Wenbobobo/Solease/storage"
)

func testAddress(b byte) crypto.Address {
	var out crypto.Address
	out[0] = 0xD0
	out[31] = b
	return out
}

var (
	admin    = testAddress(1)
	asset    = testAddress(2)
	lender   = testAddress(3)
	borrower = testAddress(4)
)

type harness struct {
	t       *testing.T
	handler http.Handler
	now     int64
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{t: t, now: 1_700_000_000}
	pauses := nativecommon.NewPauseSet()
	feed := events.NewLog(64)
	exec := core.NewExecutor(state.NewManager(storage.NewMemDB()), crypto.NewProgram(testAddress(0xFF)))
	exec.SetPauses(pauses)
	exec.SetEmitter(feed)
	exec.SetNowFunc(func() int64 { return h.now })

	srv, err := New(Options{
		Executor:      exec,
		Pauses:        pauses,
		Feed:          feed,
		Decimals:      6,
		Authenticator: middleware.NewAuthenticator(middleware.AuthConfig{}, nil),
	})
	require.NoError(t, err)
	h.handler = srv.Handler()
	return h
}

func (h *harness) do(method, path string, caller *crypto.Address, body interface{}) *httptest.ResponseRecorder {
	h.t.Helper()
	var payload bytes.Buffer
	if body != nil {
		require.NoError(h.t, json.NewEncoder(&payload).Encode(body))
	}
	req := httptest.NewRequest(method, path, &payload)
	req.Header.Set("Content-Type", "application/json")
	if caller != nil {
		req.Header.Set("X-Caller", caller.String())
	}
	res := httptest.NewRecorder()
	h.handler.ServeHTTP(res, req)
	return res
}

func (h *harness) expect(res *httptest.ResponseRecorder, status int, out interface{}) {
	h.t.Helper()
	require.Equal(h.t, status, res.Code, res.Body.String())
	if out != nil {
		require.NoError(h.t, json.Unmarshal(res.Body.Bytes(), out))
	}
}

func (h *harness) bootstrap() {
	h.t.Helper()
	h.expect(h.do(http.MethodPost, "/v1/credit/admin/initialize", &admin, map[string]interface{}{
		"fundingAsset": asset,
		"params": map[string]interface{}{
			"GracePeriodSeconds":     60,
			"MinBidIncrementBps":     500,
			"AuctionDurationSeconds": 600,
		},
	}), http.StatusCreated, nil)
	h.expect(h.do(http.MethodPost, "/v1/credit/admin/pool", &admin, nil), http.StatusCreated, nil)
	for _, to := range []crypto.Address{lender, borrower} {
		h.expect(h.do(http.MethodPost, "/v1/credit/admin/mint", &admin, mintRequest{To: to, Amount: 100_000_000}), http.StatusOK, nil)
	}
}

func TestPoolLoanLifecycleOverHTTP(t *testing.T) {
	h := newHarness(t)
	h.bootstrap()

	var deposit depositResponse
	h.expect(h.do(http.MethodPost, "/v1/credit/deposit", &lender, amountRequest{Amount: 50_000_000}), http.StatusOK, &deposit)
	require.EqualValues(t, 50_000_000, deposit.Minted)

	var name nameView
	h.expect(h.do(http.MethodPost, "/v1/credit/names", &borrower, registerNameRequest{Name: "alice.sol"}), http.StatusCreated, &name)
	require.Equal(t, registry.AssetAddress("alice.sol"), name.Asset)

	var loan loanView
	h.expect(h.do(http.MethodPost, "/v1/credit/loans", &borrower, map[string]interface{}{
		"collateral": name.Asset,
		"mode":       "pool",
	}), http.StatusCreated, &loan)
	require.Equal(t, credit.LoanSetupPending.String(), loan.Status)

	var byCollateral loanView
	h.expect(h.do(http.MethodGet, "/v1/credit/collateral/"+name.Asset.String()+"/loan", nil, nil), http.StatusOK, &byCollateral)
	require.Equal(t, loan.ID, byCollateral.ID)

	h.expect(h.do(http.MethodPost, "/v1/credit/loans/"+loan.ID.String()+"/fund/pool", &borrower, nil), http.StatusOK, &loan)
	require.Equal(t, credit.LoanActive.String(), loan.Status)
	require.Equal(t, "10.000000", loan.Principal.Display)
	require.Equal(t, "10.00%", ratio(loan.AprBps))

	var pool poolView
	h.expect(h.do(http.MethodGet, "/v1/credit/pool", nil, nil), http.StatusOK, &pool)
	require.EqualValues(t, 10_000_000, pool.TotalBorrowed.Base)
	require.EqualValues(t, 40_000_000, pool.VaultBalance.Base)
	require.Equal(t, "1", pool.SharePrice)

	var owned nameView
	h.expect(h.do(http.MethodGet, "/v1/credit/names/"+name.Asset.String(), nil, nil), http.StatusOK, &owned)
	require.Equal(t, loan.Escrow, owned.Owner)

	h.expect(h.do(http.MethodPost, "/v1/credit/loans/"+loan.ID.String()+"/repay", &borrower, nil), http.StatusOK, &loan)
	require.Equal(t, credit.LoanRepaid.String(), loan.Status)

	h.expect(h.do(http.MethodGet, "/v1/credit/names/"+name.Asset.String(), nil, nil), http.StatusOK, &owned)
	require.Equal(t, borrower, owned.Owner)

	var loans []loanView
	h.expect(h.do(http.MethodGet, "/v1/credit/loans?status=repaid&borrower="+borrower.String(), nil, nil), http.StatusOK, &loans)
	require.Len(t, loans, 1)

	var feed eventsResponse
	h.expect(h.do(http.MethodGet, "/v1/credit/events?limit=1000", nil, nil), http.StatusOK, &feed)
	require.NotEmpty(t, feed.Events)
	require.Equal(t, credit.EventTypeConfigInitialized, feed.Events[0].Event.Type)
	require.Equal(t, feed.Events[len(feed.Events)-1].Sequence, feed.Next)
}

func TestAuctionOverHTTP(t *testing.T) {
	h := newHarness(t)
	h.bootstrap()
	h.expect(h.do(http.MethodPost, "/v1/credit/deposit", &lender, amountRequest{Amount: 50_000_000}), http.StatusOK, nil)

	var name nameView
	h.expect(h.do(http.MethodPost, "/v1/credit/names", &borrower, registerNameRequest{Name: "bob.sol"}), http.StatusCreated, &name)
	var loan loanView
	h.expect(h.do(http.MethodPost, "/v1/credit/loans", &borrower, map[string]interface{}{
		"collateral": name.Asset,
		"mode":       "pool",
	}), http.StatusCreated, &loan)
	h.expect(h.do(http.MethodPost, "/v1/credit/loans/"+loan.ID.String()+"/fund/pool", &borrower, nil), http.StatusOK, &loan)

	h.expect(h.do(http.MethodPost, "/v1/credit/loans/"+loan.ID.String()+"/grace", &lender, nil), http.StatusConflict, nil)
	h.now = loan.DueTs
	h.expect(h.do(http.MethodPost, "/v1/credit/loans/"+loan.ID.String()+"/grace", &lender, nil), http.StatusOK, &loan)
	h.now = loan.GraceEndTs

	var auction auctionView
	h.expect(h.do(http.MethodPost, "/v1/credit/auctions/"+loan.ID.String()+"/start", &lender, nil), http.StatusCreated, &auction)
	require.EqualValues(t, 20_000_000, auction.CurrentPrice.Base)

	h.expect(h.do(http.MethodPost, "/v1/credit/auctions/"+loan.ID.String()+"/bid", &lender, amountRequest{Amount: 9_000_000}), http.StatusBadRequest, nil)
	h.expect(h.do(http.MethodPost, "/v1/credit/auctions/"+loan.ID.String()+"/bid", &lender, amountRequest{Amount: 10_000_000}), http.StatusOK, &auction)
	require.NotNil(t, auction.HighestBidder)

	h.now += 300
	var price priceResponse
	h.expect(h.do(http.MethodGet, "/v1/credit/auctions/"+loan.ID.String()+"/price", nil, nil), http.StatusOK, &price)
	require.EqualValues(t, 15_000_000, price.Price.Base)

	h.expect(h.do(http.MethodPost, "/v1/credit/auctions/"+loan.ID.String()+"/buy", &borrower, nil), http.StatusOK, &auction)
	require.Equal(t, credit.AuctionEnded.String(), auction.Status)

	h.expect(h.do(http.MethodPost, "/v1/credit/auctions/"+loan.ID.String()+"/settle", &lender, nil), http.StatusOK, &loan)
	require.Equal(t, credit.LoanSettled.String(), loan.Status)

	var account accountView
	h.expect(h.do(http.MethodGet, "/v1/credit/balances/"+lender.String(), nil, nil), http.StatusOK, &account)
	require.EqualValues(t, 50_000_000, account.Balance.Base)
}

func TestErrorMapping(t *testing.T) {
	h := newHarness(t)

	var failure errorResponse
	h.expect(h.do(http.MethodGet, "/v1/credit/config", nil, nil), http.StatusConflict, &failure)
	require.Equal(t, "not_initialized", failure.Error)
	require.NotEmpty(t, failure.RequestID)

	h.bootstrap()
	h.expect(h.do(http.MethodPost, "/v1/credit/admin/initialize", &admin, map[string]interface{}{
		"fundingAsset": asset,
	}), http.StatusConflict, &failure)
	require.Equal(t, "already_initialized", failure.Error)

	h.expect(h.do(http.MethodPost, "/v1/credit/admin/pool", &lender, nil), http.StatusForbidden, &failure)
	require.Equal(t, "unauthorized", failure.Error)

	h.expect(h.do(http.MethodPost, "/v1/credit/deposit", nil, amountRequest{Amount: 1}), http.StatusUnauthorized, nil)
	h.expect(h.do(http.MethodGet, "/v1/credit/loans/not-an-address", nil, nil), http.StatusBadRequest, nil)
	h.expect(h.do(http.MethodPost, "/v1/credit/deposit", &lender, map[string]interface{}{"amount": 1, "extra": true}), http.StatusBadRequest, nil)

	h.expect(h.do(http.MethodGet, "/v1/credit/offers/"+testAddress(99).String(), nil, nil), http.StatusNotFound, &failure)
	require.Equal(t, "not_found", failure.Error)

	h.expect(h.do(http.MethodPost, "/v1/credit/deposit", &lender, amountRequest{Amount: 0}), http.StatusBadRequest, &failure)
	require.Equal(t, "invalid_amount", failure.Error)

	h.expect(h.do(http.MethodPost, "/v1/credit/withdraw", &lender, sharesRequest{Shares: 5}), http.StatusUnprocessableEntity, &failure)
	require.Equal(t, "insufficient_liquidity", failure.Error)

	h.expect(h.do(http.MethodPost, "/v1/credit/deposit", &lender, amountRequest{Amount: 500_000_000}), http.StatusUnprocessableEntity, &failure)
	require.Equal(t, "insufficient_balance", failure.Error)

	var pauses pausesResponse
	h.expect(h.do(http.MethodPost, "/v1/credit/admin/pauses", &admin, pauseRequest{Module: "credit", Paused: true}), http.StatusOK, &pauses)
	require.Equal(t, []string{"credit"}, pauses.Paused)
	h.expect(h.do(http.MethodPost, "/v1/credit/deposit", &lender, amountRequest{Amount: 10}), http.StatusServiceUnavailable, &failure)
	require.Equal(t, "module_paused", failure.Error)
	h.expect(h.do(http.MethodPost, "/v1/credit/admin/pauses", &admin, pauseRequest{Module: "ledger"}), http.StatusBadRequest, nil)
}

func TestP2POfferOverHTTP(t *testing.T) {
	h := newHarness(t)
	h.bootstrap()

	var offer offerView
	h.expect(h.do(http.MethodPost, "/v1/credit/offers", &lender, createOfferRequest{
		Nonce:           7,
		Principal:       5_000_000,
		AprBps:          1200,
		DurationSeconds: 3600,
		Expiry:          h.now + 600,
	}), http.StatusCreated, &offer)
	require.True(t, offer.Active)
	require.Equal(t, "12.00%", offer.Apr)

	var active []offerView
	h.expect(h.do(http.MethodGet, "/v1/credit/offers?active=true", nil, nil), http.StatusOK, &active)
	require.Len(t, active, 1)

	var name nameView
	h.expect(h.do(http.MethodPost, "/v1/credit/names", &borrower, registerNameRequest{Name: "carol.sol"}), http.StatusCreated, &name)
	var loan loanView
	h.expect(h.do(http.MethodPost, "/v1/credit/loans", &borrower, map[string]interface{}{
		"collateral": name.Asset,
		"mode":       "p2p",
		"offer":      offer.ID,
	}), http.StatusCreated, &loan)
	h.expect(h.do(http.MethodPost, "/v1/credit/loans/"+loan.ID.String()+"/fund/p2p", &borrower, fundP2PRequest{Offer: offer.ID}), http.StatusOK, &loan)
	require.Equal(t, lender, loan.Lender)
	require.EqualValues(t, 5_000_000, loan.Principal.Base)

	h.expect(h.do(http.MethodPost, "/v1/credit/offers/"+offer.ID.String()+"/cancel", &lender, nil), http.StatusConflict, nil)
}
