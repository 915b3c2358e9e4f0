package payments

import "context"

// Gateway is the outbound boundary to the payment provider. Implementations
// never touch persisted state.
type Gateway interface {
	Initialize(ctx context.Context, req InitializeRequest) (*InitializeResponse, error)
	// Verify returns (nil, err) when the provider could not be reached; that
	// means "could not confirm", not "payment failed".
	Verify(ctx context.Context, txRef string) (*VerifyResponse, error)
}
