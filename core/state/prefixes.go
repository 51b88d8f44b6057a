package state

var (
	creditConfigKeyBytes = []byte("credit/config")
	creditPoolPrefix     = []byte("credit/pool/")
	creditLpPrefix       = []byte("credit/lp/")
	creditOfferPrefix    = []byte("credit/offer/")
	creditOfferIndexKey  = []byte("credit/index/offers")
	creditLoanPrefix     = []byte("credit/loan/")
	creditLoanIndexKey   = []byte("credit/index/loans")
	creditAuctionPrefix  = []byte("credit/auction/")
	custodyAccountPrefix = []byte("custody/account/")
	registryNamePrefix   = []byte("registry/name/")
	registryNameIndexKey = []byte("registry/index/names")
)
