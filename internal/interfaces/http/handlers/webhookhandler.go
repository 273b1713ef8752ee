package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	webhookUsecases "github.com/petgourmet/ledgersync/internal/application/webhook/usecases"
	"github.com/petgourmet/ledgersync/internal/shared/config"
	"github.com/petgourmet/ledgersync/internal/shared/logger"
	"github.com/petgourmet/ledgersync/internal/shared/utils"
)

const defaultHandlerTimeout = 25 * time.Second

// flexibleID decodes a JSON string or number. The provider sends numeric ids
// for payment notifications and string ids for preapprovals.
type flexibleID string

func (f *flexibleID) UnmarshalJSON(b []byte) error {
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = flexibleID(s)
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*f = flexibleID(n.String())
	return nil
}

func (f flexibleID) String() string { return string(f) }

// webhookEnvelope is the provider's notification body. Legacy topics carry
// "topic" instead of "type".
type webhookEnvelope struct {
	ID     flexibleID `json:"id"`
	Type   string     `json:"type"`
	Topic  string     `json:"topic"`
	Action string     `json:"action"`
	Data   struct {
		ID flexibleID `json:"id"`
	} `json:"data"`
}

type WebhookHandler struct {
	ingestUC        EventIngester
	secret          string
	verifySignature bool
	timeout         time.Duration
	logger          logger.Interface
}

func NewWebhookHandler(
	ingestUC EventIngester,
	cfg config.WebhookConfig,
	forceVerify bool,
	logger logger.Interface,
) *WebhookHandler {
	timeout := cfg.HandlerTimeout
	if timeout <= 0 {
		timeout = defaultHandlerTimeout
	}

	return &WebhookHandler{
		ingestUC:        ingestUC,
		secret:          cfg.Secret,
		verifySignature: cfg.VerifySignature || forceVerify,
		timeout:         timeout,
		logger:          logger,
	}
}

// Receive handles POST notifications from the payment provider. Everything
// accepted here returns 2xx so the provider stops redelivering; only
// unauthenticated or malformed requests get a 4xx.
func (h *WebhookHandler) Receive(c *gin.Context) {
	var envelope webhookEnvelope
	if err := c.ShouldBindJSON(&envelope); err != nil {
		h.logger.Warnw("rejecting unparseable webhook body", "error", err)
		utils.ErrorResponse(c, http.StatusBadRequest, "invalid notification body")
		return
	}

	// The provider signs the data.id from the query string, which also
	// covers legacy notifications whose body has no data object.
	dataID := c.Query("data.id")
	if dataID == "" {
		dataID = envelope.Data.ID.String()
	}

	if h.verifySignature {
		header := c.GetHeader("x-signature")
		if header == "" {
			utils.ErrorResponse(c, http.StatusUnauthorized, "missing signature")
			return
		}
		if err := verifySignature(h.secret, header, c.GetHeader("x-request-id"), dataID); err != nil {
			h.logger.Warnw("rejecting webhook with bad signature",
				"error", err,
				"request_id", c.GetHeader("x-request-id"),
			)
			utils.ErrorResponse(c, http.StatusUnauthorized, "invalid signature")
			return
		}
	}

	eventID := envelope.ID.String()
	if eventID == "" {
		eventID = c.Query("id")
	}

	rawType := envelope.Type
	if rawType == "" {
		rawType = envelope.Topic
	}
	if rawType == "" {
		rawType = c.Query("topic")
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), h.timeout)
	defer cancel()

	result, err := h.ingestUC.Execute(ctx, webhookUsecases.IngestEventCommand{
		ProviderEventID: eventID,
		RawType:         rawType,
		Action:          envelope.Action,
		ResourceID:      dataID,
	})
	if err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "event acknowledged", result)
}
