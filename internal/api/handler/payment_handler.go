package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/noloji/payments-service/internal/api/service"
	"github.com/noloji/payments-service/internal/config"
	"github.com/noloji/payments-service/internal/domain/customer"
	"github.com/noloji/payments-service/internal/domain/payment"
	"github.com/noloji/payments-service/internal/platform/daraja"
)

// PaymentHandler handles HTTP requests for STK push operations
type PaymentHandler struct {
	paymentService  service.PaymentService
	callbackService service.CallbackService
	trailService    service.TrailService
	darajaCfg       config.DarajaConfig
	logger          *slog.Logger
}

// NewPaymentHandler creates a new payment handler
func NewPaymentHandler(logger *slog.Logger, darajaCfg config.DarajaConfig, paymentService service.PaymentService, callbackService service.CallbackService, trailService service.TrailService) *PaymentHandler {
	return &PaymentHandler{
		paymentService:  paymentService,
		callbackService: callbackService,
		trailService:    trailService,
		darajaCfg:       darajaCfg,
		logger:          logger,
	}
}

// InitiatePush triggers an STK push for a customer
func (h *PaymentHandler) InitiatePush(c *gin.Context) {
	var req InitiateSTKPushRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid request body", "error", err)
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	customerID, err := uuid.Parse(req.CustomerID)
	if err != nil {
		h.logger.Error("Invalid customer ID", "customer_id", req.CustomerID, "error", err)
		RespondBadRequest(c, "Invalid customer ID")
		return
	}

	result, err := h.paymentService.InitiatePayment(c.Request.Context(), customerID, req.PhoneNumber, req.Amount, req.AccountReference, req.Description)
	if err != nil {
		h.respondInitiationError(c, err)
		return
	}

	RespondOK(c, InitiateSTKPushResponse{
		CheckoutRequestID: result.Transaction.CheckoutRequestID,
		MerchantRequestID: result.Transaction.MerchantRequestID,
		Status:            string(result.Transaction.Status),
		CustomerMessage:   result.CustomerMessage,
	})
}

func (h *PaymentHandler) respondInitiationError(c *gin.Context, err error) {
	var rejection daraja.RejectionError
	var request daraja.RequestError

	switch {
	case errors.Is(err, service.ErrProviderNotConfigured):
		RespondServiceUnavailable(c, "Payment provider is not configured")
	case errors.Is(err, service.ErrAmountOutOfRange{}):
		RespondBadRequest(c, err.Error())
	case errors.Is(err, customer.ErrCustomerNotFound{}):
		RespondNotFound(c, "Customer not found")
	case errors.As(err, &rejection):
		RespondProviderError(c, rejection.Description)
	case errors.Is(err, daraja.ErrAuth):
		RespondProviderError(c, "Payment provider authentication failed")
	case errors.As(err, &request):
		RespondProviderError(c, "")
	default:
		h.logger.Error("Failed to initiate STK push", "error", err)
		RespondInternalError(c)
	}
}

// ProviderStatus reports whether STK initiation is available, without
// exposing credentials
func (h *PaymentHandler) ProviderStatus(c *gin.Context) {
	RespondOK(c, ProviderStatusResponse{
		Configured:     h.darajaCfg.Configured(),
		Environment:    h.darajaCfg.Environment,
		ShortCode:      h.darajaCfg.ShortCode,
		HasCallbackURL: h.darajaCfg.CallbackURL != "",
	})
}

// HandleCallback processes the provider's STK result webhook. The provider
// retries anything that is not acknowledged with ResultCode 0, so this
// endpoint answers 200 regardless of what happened internally; failures are
// visible in the audit trail, not to the provider.
func (h *PaymentHandler) HandleCallback(c *gin.Context) {
	rawPayload, err := c.GetRawData()
	if err != nil {
		h.logger.Error("Failed to read callback body", "error", err)
		h.ack(c)
		return
	}

	var envelope daraja.STKCallbackEnvelope
	if err := json.Unmarshal(rawPayload, &envelope); err != nil {
		h.logger.Error("Failed to decode callback body", "error", err)
		// An empty envelope still goes through the service so the malformed
		// payload lands in the audit trail.
	}

	outcome := h.callbackService.ProcessCallback(c.Request.Context(), &envelope, rawPayload)
	h.logger.Info("STK callback acknowledged", "outcome", string(outcome))
	h.ack(c)
}

func (h *PaymentHandler) ack(c *gin.Context) {
	c.JSON(http.StatusOK, CallbackAck{ResultCode: 0, ResultDesc: "Accepted"})
}

// GetStatus returns the current state of an STK push, polling the provider
// when the local row is still pending
func (h *PaymentHandler) GetStatus(c *gin.Context) {
	checkoutRequestID := c.Query("checkout_request_id")
	if checkoutRequestID == "" {
		RespondBadRequest(c, "checkout_request_id is required")
		return
	}

	tx, err := h.paymentService.GetPaymentStatus(c.Request.Context(), checkoutRequestID)
	if err != nil {
		if errors.Is(err, payment.ErrTransactionNotFound{}) {
			RespondNotFound(c, "Payment not found")
			return
		}
		h.logger.Error("Failed to get payment status", "checkout_request_id", checkoutRequestID, "error", err)
		RespondInternalError(c)
		return
	}

	RespondOK(c, mapTransactionToStatusResponse(tx))
}

// GetTrail returns the reconciliation view of a push: the transaction, its
// billing payment and every callback the provider delivered for it
func (h *PaymentHandler) GetTrail(c *gin.Context) {
	checkoutRequestID := c.Query("checkout_request_id")
	if checkoutRequestID == "" {
		RespondBadRequest(c, "checkout_request_id is required")
		return
	}

	trail, err := h.trailService.GetPaymentTrail(c.Request.Context(), checkoutRequestID)
	if err != nil {
		if errors.Is(err, payment.ErrTransactionNotFound{}) {
			RespondNotFound(c, "Payment not found")
			return
		}
		h.logger.Error("Failed to get payment trail", "checkout_request_id", checkoutRequestID, "error", err)
		RespondInternalError(c)
		return
	}

	response := PaymentTrailResponse{
		Transaction: mapTransactionToStatusResponse(trail.Transaction),
		Callbacks:   []CallbackRecordResponse{},
	}
	if trail.Billing != nil {
		response.Billing = &BillingPaymentResponse{
			ID:          trail.Billing.ID.String(),
			Amount:      trail.Billing.Amount,
			Receipt:     trail.Billing.Receipt,
			PhoneNumber: trail.Billing.PhoneNumber,
			PaidAt:      trail.Billing.PaidAt.Format(time.RFC3339),
		}
	}
	for _, record := range trail.Callbacks {
		response.Callbacks = append(response.Callbacks, CallbackRecordResponse{
			ResultCode:        record.ResultCode,
			ResultDescription: record.ResultDescription,
			Outcome:           string(record.Outcome),
			Detail:            record.Detail,
			ReceivedAt:        record.ReceivedAt.Format(time.RFC3339),
		})
	}

	RespondOK(c, response)
}

// GetCustomerPayments retrieves paginated payment history for a customer
func (h *PaymentHandler) GetCustomerPayments(c *gin.Context) {
	customerIDParam := c.Param("id")
	customerID, err := uuid.Parse(customerIDParam)
	if err != nil {
		h.logger.Error("Invalid customer ID", "customer_id", customerIDParam, "error", err)
		RespondBadRequest(c, "Invalid customer ID")
		return
	}

	var pagination PaginationParams
	if err := c.ShouldBindQuery(&pagination); err != nil {
		h.logger.Error("Invalid pagination parameters", "error", err)
		RespondBadRequest(c, "Invalid pagination parameters")
		return
	}

	transactions, total, err := h.paymentService.GetCustomerPayments(
		c.Request.Context(),
		customerID,
		pagination.Page,
		pagination.PerPage,
	)
	if err != nil {
		h.logger.Error("Failed to get customer payments", "customer_id", customerIDParam, "error", err)
		RespondInternalError(c)
		return
	}

	var payments []PaymentStatusResponse
	for _, tx := range transactions {
		payments = append(payments, mapTransactionToStatusResponse(tx))
	}

	RespondWithPaginatedData(c, http.StatusOK, payments, pagination.Page, pagination.PerPage, int(total))
}

// mapTransactionToStatusResponse maps a transaction to its API status view
func mapTransactionToStatusResponse(tx *payment.Transaction) PaymentStatusResponse {
	response := PaymentStatusResponse{
		CheckoutRequestID: tx.CheckoutRequestID,
		Status:            string(tx.Status),
		Amount:            tx.Amount,
		PhoneNumber:       tx.PhoneNumber,
		Receipt:           tx.MpesaReceiptNumber,
		ResultDescription: tx.ResultDescription,
		CreatedAt:         tx.CreatedAt.Format(time.RFC3339),
	}

	if tx.Status == payment.StatusPending {
		response.Message = "Payment is still in progress"
	}

	if tx.CompletedAt != nil {
		response.CompletedAt = tx.CompletedAt.Format(time.RFC3339)
	}

	return response
}
