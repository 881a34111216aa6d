package webhooks

import (
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/tobimartins/servicehub-backend/api/responses"
	internalwebhooks "github.com/tobimartins/servicehub-backend/internal/webhooks"
	"github.com/tobimartins/servicehub-backend/pkg/enums"
	pkgerrors "github.com/tobimartins/servicehub-backend/pkg/errors"
	"github.com/tobimartins/servicehub-backend/pkg/logger"
)

// maxWebhookBody caps provider notification payloads at 1 MiB.
const maxWebhookBody = 1 << 20

// signatureHeaders maps each gateway to the header carrying its payload signature.
var signatureHeaders = map[enums.PaymentMethod]string{
	enums.PaymentMethodPaystack:    "X-Paystack-Signature",
	enums.PaymentMethodFlutterwave: "Verif-Hash",
}

// Provider receives gateway notifications. The raw body is authenticated
// before any parsing happens; only authentication failures produce a 401.
func Provider(svc *internalwebhooks.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "webhook service unavailable"))
			return
		}

		method, err := enums.ParsePaymentMethod(strings.TrimSpace(chi.URLParam(r, "provider")))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "unknown webhook provider"))
			return
		}
		header, ok := signatureHeaders[method]
		if !ok {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeNotFound, "provider does not deliver webhooks"))
			return
		}

		rawBody, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "read webhook body"))
			return
		}
		defer r.Body.Close()

		if err := svc.HandleWebhook(r.Context(), method, rawBody, r.Header.Get(header)); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, nil)
	}
}
