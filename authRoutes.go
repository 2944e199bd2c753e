package main

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/hlyanhtet/buildbooks_backend/models"
)

func registerAuthRoutes(r *gin.Engine) {
	r.POST("/auth/login", loginHandler())
	r.POST("/auth/logout", logoutHandler())
}

type loginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func loginHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req loginRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			writeBindingError(c, err)
			return
		}
		info, err := models.Login(c.Request.Context(), req.Username, req.Password)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid username or password"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": info})
	}
}

func logoutHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		ok, err := models.Logout(c.Request.Context())
		if err != nil || !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "logout failed"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": "logged out"})
	}
}
