package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	model2 "github.com/pixloom/pixloom/api/model"
)

func (a Api) GetPackages(c *gin.Context) {
	packages, err := a.pixloom.ListPackages(c.Request.Context())
	if err != nil {
		errorResponse(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"packages": packages})
}

// TopUpCredits grants credits to an account. Admin sessions only.
func (a Api) TopUpCredits(c *gin.Context) {
	var req model2.TopUpCredits
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := req.ValidateTopUpCredits(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"errors": err.Error()})
		return
	}

	entry, err := a.pixloom.TopUpCredits(c.Request.Context(), req.AccountID, req.Credits, req.ExpiresAt, req.Reference)
	if err != nil {
		errorResponse(c, err)
		return
	}
	c.JSON(http.StatusCreated, entry)
}
