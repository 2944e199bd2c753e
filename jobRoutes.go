package main

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/hlyanhtet/buildbooks_backend/models"
)

func registerJobRoutes(r *gin.Engine) {
	r.POST("/jobs", createJobHandler())
	r.GET("/jobs", listJobsHandler())
	r.GET("/jobs/:id", getJobHandler())
	r.GET("/jobs/:id/funding-summary", jobFundingSummaryHandler())

	r.POST("/cost-codes", createCostCodeHandler())
	r.GET("/cost-codes", listCostCodesHandler())
}

func createJobHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !requireAuth(c) {
			return
		}
		var input models.NewJob
		if err := c.ShouldBindJSON(&input); err != nil {
			writeBindingError(c, err)
			return
		}
		job, err := models.CreateJob(c.Request.Context(), &input)
		if err != nil {
			writeEngineError(c, "createJobHandler", err)
			return
		}
		c.JSON(http.StatusCreated, gin.H{"data": job})
	}
}

func listJobsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !requireAuth(c) {
			return
		}
		jobs, err := models.GetJobs(c.Request.Context())
		if err != nil {
			writeEngineError(c, "listJobsHandler", err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": jobs})
	}
}

func getJobHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !requireAuth(c) {
			return
		}
		id, ok := pathId(c, "id")
		if !ok {
			return
		}
		job, err := models.GetJob(c.Request.Context(), id)
		if err != nil {
			writeEngineError(c, "getJobHandler", err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": job})
	}
}

func jobFundingSummaryHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !requireAuth(c) {
			return
		}
		id, ok := pathId(c, "id")
		if !ok {
			return
		}
		summary, err := models.GetJobFundingSummary(c.Request.Context(), id)
		if err != nil {
			writeEngineError(c, "jobFundingSummaryHandler", err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": summary})
	}
}

func createCostCodeHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !requireAuth(c) {
			return
		}
		var input models.NewCostCode
		if err := c.ShouldBindJSON(&input); err != nil {
			writeBindingError(c, err)
			return
		}
		costCode, err := models.CreateCostCode(c.Request.Context(), &input)
		if err != nil {
			writeEngineError(c, "createCostCodeHandler", err)
			return
		}
		c.JSON(http.StatusCreated, gin.H{"data": costCode})
	}
}

func listCostCodesHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !requireAuth(c) {
			return
		}
		costCodes, err := models.GetCostCodes(c.Request.Context())
		if err != nil {
			writeEngineError(c, "listCostCodesHandler", err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": costCodes})
	}
}
