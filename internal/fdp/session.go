package fdp

// Session carries everything an operation needs to act for one account:
// the account wallet, the node connection and the payment batch. It
// replaces any process-wide "active account" state, so several accounts
// can be used concurrently. A Session is immutable.
type Session struct {
	Wallet  *Wallet
	Store   ObjectStore
	Feeds   *FeedStore
	BatchID string
}

// NewSession validates its inputs and builds the feed adapter for node.
func NewSession(wallet *Wallet, node Node, batchID string) (*Session, error) {
	if wallet == nil {
		return nil, validationError("session requires a wallet")
	}
	if node == nil {
		return nil, validationError("session requires a node connection")
	}
	if batchID == "" {
		return nil, validationError("session requires a batch ID")
	}
	return &Session{
		Wallet:  wallet,
		Store:   node,
		Feeds:   NewFeedStore(node, batchID),
		BatchID: batchID,
	}, nil
}

// Owner returns the account address.
func (s *Session) Owner() Address { return s.Wallet.Address() }
