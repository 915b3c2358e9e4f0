package payments

import (
	"context"
	"net/http"
	"strings"

	"go.uber.org/zap"
)

// Delivery is what the reconciler knows about an inbound callback before it
// decides whether to trust it.
type Delivery struct {
	Method  string
	TxRef   string
	Status  string
	Payload map[string]any
}

// Verification is the outcome of a trust decision. Response is echoed back
// to the caller for audit and debugging.
type Verification struct {
	Verified bool
	Trusted  bool // true when the gateway was not consulted
	Status   string
	Reason   string
	Response any
}

type Verifier interface {
	Verify(ctx context.Context, d Delivery) (Verification, error)
}

// GatewayVerifier asks the provider for the transaction status.
type GatewayVerifier struct {
	gateway Gateway
	logger  *zap.SugaredLogger
}

func NewGatewayVerifier(gw Gateway, logger *zap.SugaredLogger) *GatewayVerifier {
	return &GatewayVerifier{gateway: gw, logger: logger}
}

func (v *GatewayVerifier) Verify(ctx context.Context, d Delivery) (Verification, error) {
	res, err := v.gateway.Verify(ctx, d.TxRef)
	if err != nil || res == nil {
		v.logger.Warnw("gateway verify unavailable", "tx_ref", d.TxRef, "err", err)
		return Verification{Verified: false, Reason: "could not confirm payment with gateway"}, nil
	}

	out := Verification{
		Verified: res.Succeeded(),
		Status:   res.Status,
		Response: res.Raw,
	}
	if res.Data != nil {
		out.Status = res.Data.Status
		if res.Data.TxRef != "" && res.Data.TxRef != d.TxRef {
			out.Verified = false
			out.Reason = "gateway reference mismatch"
			return out, nil
		}
	}
	if !out.Verified {
		out.Reason = "gateway did not confirm success"
	}
	return out, nil
}

// TrustedVerifier treats the callback as already verified. Only for sandbox
// deployments where the gateway cannot call back with real transactions.
type TrustedVerifier struct{}

func (TrustedVerifier) Verify(ctx context.Context, d Delivery) (Verification, error) {
	return Verification{
		Verified: true,
		Trusted:  true,
		Status:   "success",
		Response: d.Payload,
	}, nil
}

// MethodVerifier routes GET deliveries (browser return / sandbox callbacks)
// to one verifier and everything else to another.
type MethodVerifier struct {
	Get     Verifier
	Default Verifier
}

func (v MethodVerifier) Verify(ctx context.Context, d Delivery) (Verification, error) {
	if strings.EqualFold(d.Method, http.MethodGet) && v.Get != nil {
		return v.Get.Verify(ctx, d)
	}
	return v.Default.Verify(ctx, d)
}

// NewVerifier picks the verification strategy once at startup.
func NewVerifier(production, trustGET bool, gw Gateway, logger *zap.SugaredLogger) Verifier {
	if !production {
		return TrustedVerifier{}
	}
	gv := NewGatewayVerifier(gw, logger)
	if trustGET {
		return MethodVerifier{Get: TrustedVerifier{}, Default: gv}
	}
	return gv
}
