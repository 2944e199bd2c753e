package main

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/hlyanhtet/buildbooks_backend/config"
	"github.com/hlyanhtet/buildbooks_backend/models"
	"github.com/hlyanhtet/buildbooks_backend/utils"
	"github.com/hlyanhtet/buildbooks_backend/workflow"
)

// writeEngineError maps the model error categories onto HTTP statuses:
// validation 400, forbidden 403, not found 404, conflict 409. Anything
// uncategorized is a 500 and gets logged with its correlation id.
func writeEngineError(c *gin.Context, funcName string, err error) {
	switch {
	case errors.Is(err, utils.ErrorValidation):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, utils.ErrorForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case errors.Is(err, utils.ErrorRecordNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "record not found"})
	case errors.Is(err, utils.ErrorConflict):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		logger := config.GetLogger()
		cid, _ := utils.GetCorrelationIdFromContext(c.Request.Context())
		config.LogError(logger, "drawRequestRoutes.go", funcName, "correlation_id="+cid, nil, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}

func writeBindingError(c *gin.Context, err error) {
	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		c.JSON(http.StatusBadRequest, gin.H{"error": utils.ProcessValidationErrors(err)})
		return
	}
	c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
}

func requireAuth(c *gin.Context) bool {
	companyId, ok := utils.GetCompanyIdFromContext(c.Request.Context())
	if !ok || companyId == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return false
	}
	return true
}

func pathId(c *gin.Context, name string) (int, bool) {
	id, err := strconv.Atoi(c.Param(name))
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + name})
		return 0, false
	}
	return id, true
}

func registerDrawRequestRoutes(r *gin.Engine) {
	r.POST("/draw-requests", createDrawRequestHandler())
	r.GET("/draw-requests", listDrawRequestsHandler())
	r.GET("/draw-requests/:id", getDrawRequestHandler())
	r.PUT("/draw-requests/:id", updateDrawRequestHandler())
	r.DELETE("/draw-requests/:id", deleteDrawRequestHandler())
	r.GET("/draw-requests/:id/history", drawRequestHistoryHandler())

	r.POST("/draw-requests/:id/lines", upsertDrawRequestLineHandler(false))
	r.PUT("/draw-requests/:id/lines/:lineId", upsertDrawRequestLineHandler(true))
	r.DELETE("/draw-requests/:id/lines/:lineId", removeDrawRequestLineHandler())

	r.POST("/draw-requests/:id/submit", submitDrawRequestHandler())
	r.POST("/draw-requests/:id/approve", approveDrawRequestHandler())
	r.POST("/draw-requests/:id/reject", rejectDrawRequestHandler())
	r.POST("/draw-requests/:id/mark-submitted-to-lender", sendDrawRequestToLenderHandler())
	r.POST("/draw-requests/:id/mark-funded", fundDrawRequestHandler())
	r.POST("/draw-requests/:id/revise", reviseDrawRequestHandler())

	r.GET("/funding-transactions", listFundingTransactionsHandler())
}

func createDrawRequestHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !requireAuth(c) {
			return
		}
		var input models.NewDrawRequest
		if err := c.ShouldBindJSON(&input); err != nil {
			writeBindingError(c, err)
			return
		}
		draw, err := models.CreateDrawRequest(c.Request.Context(), &input)
		if err != nil {
			writeEngineError(c, "createDrawRequestHandler", err)
			return
		}
		c.JSON(http.StatusCreated, gin.H{"data": draw})
	}
}

func listDrawRequestsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !requireAuth(c) {
			return
		}
		var jobId *int
		if v := c.Query("job_id"); v != "" {
			id, err := strconv.Atoi(v)
			if err != nil || id <= 0 {
				c.JSON(http.StatusBadRequest, gin.H{"error": "invalid job_id"})
				return
			}
			jobId = &id
		}
		var status *models.DrawRequestStatus
		if v := c.Query("status"); v != "" {
			parsed, err := models.ParseDrawRequestStatus(v)
			if err != nil {
				writeEngineError(c, "listDrawRequestsHandler", err)
				return
			}
			status = &parsed
		}
		draws, err := models.GetDrawRequests(c.Request.Context(), jobId, status)
		if err != nil {
			writeEngineError(c, "listDrawRequestsHandler", err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": draws})
	}
}

func getDrawRequestHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !requireAuth(c) {
			return
		}
		id, ok := pathId(c, "id")
		if !ok {
			return
		}
		draw, err := models.GetDrawRequest(c.Request.Context(), id)
		if err != nil {
			writeEngineError(c, "getDrawRequestHandler", err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": draw})
	}
}

func updateDrawRequestHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !requireAuth(c) {
			return
		}
		id, ok := pathId(c, "id")
		if !ok {
			return
		}
		var input models.UpdateDrawRequestInput
		if err := c.ShouldBindJSON(&input); err != nil {
			writeBindingError(c, err)
			return
		}
		draw, err := models.UpdateDrawRequest(c.Request.Context(), id, &input)
		if err != nil {
			writeEngineError(c, "updateDrawRequestHandler", err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": draw})
	}
}

func deleteDrawRequestHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !requireAuth(c) {
			return
		}
		id, ok := pathId(c, "id")
		if !ok {
			return
		}
		draw, err := models.DeleteDrawRequest(c.Request.Context(), id)
		if err != nil {
			writeEngineError(c, "deleteDrawRequestHandler", err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": draw})
	}
}

func drawRequestHistoryHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !requireAuth(c) {
			return
		}
		id, ok := pathId(c, "id")
		if !ok {
			return
		}
		rows, err := models.GetDrawRequestHistory(c.Request.Context(), id)
		if err != nil {
			writeEngineError(c, "drawRequestHistoryHandler", err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": rows})
	}
}

func upsertDrawRequestLineHandler(update bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !requireAuth(c) {
			return
		}
		id, ok := pathId(c, "id")
		if !ok {
			return
		}
		var input models.NewDrawRequestLine
		if err := c.ShouldBindJSON(&input); err != nil {
			writeBindingError(c, err)
			return
		}
		if update {
			lineId, ok := pathId(c, "lineId")
			if !ok {
				return
			}
			input.LineId = lineId
		} else {
			input.LineId = 0
		}
		draw, err := models.UpsertDrawRequestLine(c.Request.Context(), id, &input)
		if err != nil {
			writeEngineError(c, "upsertDrawRequestLineHandler", err)
			return
		}
		if update {
			c.JSON(http.StatusOK, gin.H{"data": draw})
		} else {
			c.JSON(http.StatusCreated, gin.H{"data": draw})
		}
	}
}

func removeDrawRequestLineHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !requireAuth(c) {
			return
		}
		id, ok := pathId(c, "id")
		if !ok {
			return
		}
		lineId, ok := pathId(c, "lineId")
		if !ok {
			return
		}
		draw, err := models.RemoveDrawRequestLine(c.Request.Context(), id, lineId)
		if err != nil {
			writeEngineError(c, "removeDrawRequestLineHandler", err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": draw})
	}
}

func submitDrawRequestHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !requireAuth(c) {
			return
		}
		id, ok := pathId(c, "id")
		if !ok {
			return
		}
		var input models.SubmitDrawInput
		if c.Request.ContentLength > 0 {
			if err := c.ShouldBindJSON(&input); err != nil {
				writeBindingError(c, err)
				return
			}
		}
		draw, err := models.SubmitDrawRequest(c.Request.Context(), id, &input)
		if err != nil {
			writeEngineError(c, "submitDrawRequestHandler", err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": draw})
	}
}

func approveDrawRequestHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !requireAuth(c) {
			return
		}
		id, ok := pathId(c, "id")
		if !ok {
			return
		}
		var input models.ApproveDrawInput
		if c.Request.ContentLength > 0 {
			if err := c.ShouldBindJSON(&input); err != nil {
				writeBindingError(c, err)
				return
			}
		}
		draw, err := models.ApproveDrawRequest(c.Request.Context(), id, &input)
		if err != nil {
			writeEngineError(c, "approveDrawRequestHandler", err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": draw})
	}
}

func rejectDrawRequestHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !requireAuth(c) {
			return
		}
		id, ok := pathId(c, "id")
		if !ok {
			return
		}
		var input models.RejectDrawInput
		if err := c.ShouldBindJSON(&input); err != nil {
			writeBindingError(c, err)
			return
		}
		draw, err := models.RejectDrawRequest(c.Request.Context(), id, &input)
		if err != nil {
			writeEngineError(c, "rejectDrawRequestHandler", err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": draw})
	}
}

func sendDrawRequestToLenderHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !requireAuth(c) {
			return
		}
		id, ok := pathId(c, "id")
		if !ok {
			return
		}
		var input models.SendToLenderInput
		if c.Request.ContentLength > 0 {
			if err := c.ShouldBindJSON(&input); err != nil {
				writeBindingError(c, err)
				return
			}
		}
		draw, err := models.MarkDrawRequestSubmittedToLender(c.Request.Context(), id, &input)
		if err != nil {
			writeEngineError(c, "sendDrawRequestToLenderHandler", err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": draw})
	}
}

func fundDrawRequestHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !requireAuth(c) {
			return
		}
		id, ok := pathId(c, "id")
		if !ok {
			return
		}
		draw, err := workflow.FundDrawRequest(c.Request.Context(), id)
		if err != nil {
			writeEngineError(c, "fundDrawRequestHandler", err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": draw})
	}
}

func reviseDrawRequestHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !requireAuth(c) {
			return
		}
		id, ok := pathId(c, "id")
		if !ok {
			return
		}
		draw, err := models.ReviseDrawRequest(c.Request.Context(), id)
		if err != nil {
			writeEngineError(c, "reviseDrawRequestHandler", err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": draw})
	}
}

func listFundingTransactionsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !requireAuth(c) {
			return
		}
		var jobId *int
		if v := c.Query("job_id"); v != "" {
			id, err := strconv.Atoi(v)
			if err != nil || id <= 0 {
				c.JSON(http.StatusBadRequest, gin.H{"error": "invalid job_id"})
				return
			}
			jobId = &id
		}
		rows, err := models.GetFundingTransactions(c.Request.Context(), jobId)
		if err != nil {
			writeEngineError(c, "listFundingTransactionsHandler", err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": rows})
	}
}
