package credit

import "errors"

var (
	ErrAlreadyInitialized    = errors.New("credit: already initialized")
	ErrNotInitialized        = errors.New("credit: protocol not initialized")
	ErrUnauthorized          = errors.New("credit: unauthorized")
	ErrMathOverflow          = errors.New("credit: math overflow")
	ErrInsufficientLiquidity = errors.New("credit: insufficient liquidity")
	ErrInvalidDomainOwner    = errors.New("credit: invalid domain owner")
	ErrLoanAlreadyActive     = errors.New("credit: loan already active")
	ErrLoanNotSetup          = errors.New("credit: loan not in the required state")
	ErrLoanNotDue            = errors.New("credit: loan not due")
	ErrOfferExpired          = errors.New("credit: offer expired or inactive")
	ErrBidTooLow             = errors.New("credit: bid too low")
	ErrAuctionEnded          = errors.New("credit: auction ended")
	ErrAuctionLive           = errors.New("credit: auction has not ended")
	ErrGlobalCapExceeded     = errors.New("credit: global cap exceeded")
	ErrInvalidAmount         = errors.New("credit: amount must be positive")
	ErrInvalidParams         = errors.New("credit: invalid parameters")
	ErrNotFound              = errors.New("credit: record not found")

	errNilState    = errors.New("credit engine: state not configured")
	errNilCustody  = errors.New("credit engine: custody service not configured")
	errNilRegistry = errors.New("credit engine: name registry not configured")
)

var errorKinds = []struct {
	err  error
	kind string
}{
	{ErrAlreadyInitialized, "already_initialized"},
	{ErrNotInitialized, "not_initialized"},
	{ErrUnauthorized, "unauthorized"},
	{ErrMathOverflow, "math_overflow"},
	{ErrInsufficientLiquidity, "insufficient_liquidity"},
	{ErrInvalidDomainOwner, "invalid_domain_owner"},
	{ErrLoanAlreadyActive, "loan_already_active"},
	{ErrLoanNotSetup, "loan_not_setup"},
	{ErrLoanNotDue, "loan_not_due"},
	{ErrOfferExpired, "offer_expired"},
	{ErrBidTooLow, "bid_too_low"},
	{ErrAuctionEnded, "auction_ended"},
	{ErrAuctionLive, "auction_live"},
	{ErrGlobalCapExceeded, "global_cap_exceeded"},
	{ErrInvalidAmount, "invalid_amount"},
	{ErrInvalidParams, "invalid_params"},
	{ErrNotFound, "not_found"},
}

// ErrorKind returns a stable label for err suitable for metrics and API
// responses. Nil maps to "ok" and unclassified errors to "internal".
func ErrorKind(err error) string {
	if err == nil {
		return "ok"
	}
	for _, entry := range errorKinds {
		if errors.Is(err, entry.err) {
			return entry.kind
		}
	}
	return "internal"
}
