package simulator

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/dhemutton/mobile-application/pkg/supply"
)

const (
	contextKeyPhone = "session_phone"
	bearerPrefix    = "Bearer "

	messageInvalidKey   = "Invalid key"
	messageInvalidBody  = "Expected phone and key"
	messageOTPRequired  = "OTP login is required"
	messageSignInFailed = "Unable to sign in"

	outcomeOK        = "ok"
	outcomeThrottled = "throttled"
	outcomeRejected  = "rejected"
	outcomeLocked    = "locked"
)

type otpRequest struct {
	Phone string `json:"phone" binding:"required"`
	Key   string `json:"key" binding:"required"`
	OTP   string `json:"otp"`
}

type transactionRequest struct {
	Transaction []supply.Transaction `json:"transaction" binding:"required"`
}

func (server *Server) handleVersion(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, server.envVersion)
}

func (server *Server) handleRequestOTP(ctx *gin.Context) {
	request, ok := server.bindLogin(ctx)
	if !ok {
		return
	}
	code, warning, err := server.otps.issue(request.Phone, server.now())
	if err != nil {
		var wait waitError
		if errors.As(err, &wait) {
			server.metrics.otpRequests.WithLabelValues(outcomeThrottled).Inc()
			ctx.JSON(http.StatusTooManyRequests, messageResponse(wait.Error()))
			return
		}
		server.logger.Error("otp issue failed", zap.Error(err))
		ctx.JSON(http.StatusInternalServerError, messageResponse(messageSignInFailed))
		return
	}
	server.metrics.otpRequests.WithLabelValues(outcomeOK).Inc()
	server.logger.Debug("otp issued", zap.String("phone", maskPhone(request.Phone)), zap.Int("length", len(code)))
	response := gin.H{"status": "OK"}
	if warning != "" {
		response["message"] = warning
	}
	ctx.JSON(http.StatusOK, response)
}

func (server *Server) handleValidateOTP(ctx *gin.Context) {
	request, ok := server.bindLogin(ctx)
	if !ok {
		return
	}
	now := server.now()
	if err := server.otps.check(request.Phone, request.OTP, now); err != nil {
		var wait waitError
		var wrong wrongOTPError
		switch {
		case errors.As(err, &wait):
			server.metrics.otpValidations.WithLabelValues(outcomeLocked).Inc()
			ctx.JSON(http.StatusTooManyRequests, messageResponse(wait.Error()))
		case errors.As(err, &wrong):
			server.metrics.otpValidations.WithLabelValues(outcomeRejected).Inc()
			ctx.JSON(http.StatusUnauthorized, messageResponse(wrong.Error()))
		default:
			server.metrics.otpValidations.WithLabelValues(outcomeRejected).Inc()
			ctx.JSON(http.StatusBadRequest, messageResponse(capitalize(err.Error())))
		}
		return
	}
	server.metrics.otpValidations.WithLabelValues(outcomeOK).Inc()
	server.respondWithSession(ctx, request.Phone)
}

func (server *Server) handleCreateSession(ctx *gin.Context) {
	request, ok := server.bindLogin(ctx)
	if !ok {
		return
	}
	if server.envVersion.Features.RequireOTP {
		ctx.JSON(http.StatusForbidden, messageResponse(messageOTPRequired))
		return
	}
	server.respondWithSession(ctx, request.Phone)
}

func (server *Server) handleQuota(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, server.quotas.quota(ctx.Param("id")))
}

func (server *Server) handleQuotaSummary(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, server.quotas.summary(ctx.Param("id")))
}

func (server *Server) handleTransactions(ctx *gin.Context) {
	var request transactionRequest
	if err := ctx.ShouldBindJSON(&request); err != nil {
		ctx.JSON(http.StatusBadRequest, errorResponse("invalid_payload", "expected a transaction list"))
		return
	}
	groups, err := server.quotas.redeem(ctx.Param("id"), request.Transaction, server.envVersion.Features.TransactionGrouping, server.now())
	if err != nil {
		switch {
		case errors.Is(err, errUnknownCategory):
			ctx.JSON(http.StatusUnprocessableEntity, errorResponse("unknown_category", err.Error()))
		case errors.Is(err, errInvalidQuantity), errors.Is(err, errEmptyBatch):
			ctx.JSON(http.StatusBadRequest, errorResponse("invalid_quantity", err.Error()))
		default:
			ctx.JSON(http.StatusUnprocessableEntity, errorResponse("quota_exceeded", err.Error()))
		}
		return
	}
	for _, group := range groups {
		for _, transaction := range group.Transaction {
			server.metrics.redeemed.WithLabelValues(transaction.Category).Add(float64(transaction.Quantity))
		}
	}
	server.logger.Info("transactions recorded",
		zap.String("phone", maskPhone(ctx.GetString(contextKeyPhone))),
		zap.Int("groups", len(groups)),
	)
	ctx.JSON(http.StatusOK, supply.PostTransactionResult{Transactions: groups})
}

func (server *Server) handleCreateKey(ctx *gin.Context) {
	ctx.JSON(http.StatusCreated, gin.H{"key": server.keys.create()})
}

func (server *Server) handleOutstandingOTP(ctx *gin.Context) {
	phone := ctx.Query("phone")
	code, ok := server.otps.outstanding(phone)
	if !ok {
		ctx.JSON(http.StatusNotFound, errorResponse("not_found", "no outstanding otp"))
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"phone": phone, "otp": code})
}

func (server *Server) requireSession(ctx *gin.Context) {
	header := ctx.GetHeader("Authorization")
	if !strings.HasPrefix(header, bearerPrefix) {
		ctx.AbortWithStatusJSON(http.StatusUnauthorized, errorResponse("unauthorized", "missing session"))
		return
	}
	phone, err := server.tokens.verify(strings.TrimPrefix(header, bearerPrefix), server.now())
	if err != nil {
		ctx.AbortWithStatusJSON(http.StatusUnauthorized, errorResponse("unauthorized", "invalid session"))
		return
	}
	ctx.Set(contextKeyPhone, phone)
	ctx.Next()
}

func (server *Server) bindLogin(ctx *gin.Context) (otpRequest, bool) {
	var request otpRequest
	if err := ctx.ShouldBindJSON(&request); err != nil {
		ctx.JSON(http.StatusBadRequest, messageResponse(messageInvalidBody))
		return otpRequest{}, false
	}
	if !server.keys.valid(request.Key) {
		ctx.JSON(http.StatusUnauthorized, messageResponse(messageInvalidKey))
		return otpRequest{}, false
	}
	return request, true
}

func (server *Server) respondWithSession(ctx *gin.Context, phone string) {
	token, expiresAt, err := server.tokens.issue(phone, server.now())
	if err != nil {
		server.logger.Error("session issue failed", zap.Error(err))
		ctx.JSON(http.StatusInternalServerError, messageResponse(messageSignInFailed))
		return
	}
	ctx.JSON(http.StatusOK, supply.SessionCredentials{SessionToken: token, TTL: supply.EpochMillisFromTime(expiresAt)})
}

func messageResponse(message string) gin.H {
	return gin.H{"message": message}
}

func errorResponse(code string, message string) gin.H {
	return gin.H{
		"error": gin.H{
			"code":    code,
			"message": message,
		},
	}
}

func maskPhone(phone string) string {
	const visible = 4
	if len(phone) <= visible {
		return phone
	}
	return strings.Repeat("*", len(phone)-visible) + phone[len(phone)-visible:]
}

func capitalize(message string) string {
	if message == "" {
		return message
	}
	return strings.ToUpper(message[:1]) + message[1:]
}
