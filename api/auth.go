package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	model2 "github.com/pixloom/pixloom/api/model"

	"github.com/pixloom/pixloom/api/middleware"
	"github.com/pixloom/pixloom/config"
)

func (a Api) Register(c *gin.Context) {
	var req model2.Register
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := req.ValidateRegister(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"errors": err.Error()})
		return
	}

	account, err := a.pixloom.RegisterAccount(c.Request.Context(), req.Username, req.Email, req.Password)
	if err != nil {
		errorResponse(c, err)
		return
	}

	conf, err := config.Fetch()
	if err != nil {
		errorResponse(c, err)
		return
	}

	token, err := middleware.IssueToken(account, conf.Auth)
	if err != nil {
		errorResponse(c, err)
		return
	}

	maxAge := int(conf.Auth.TokenTTL().Seconds())
	c.SetCookie(conf.Auth.CookieName, token, maxAge, "/", "", conf.Auth.CookieSecure, true)
	c.JSON(http.StatusCreated, account)
}

func (a Api) Login(c *gin.Context) {
	var req model2.Login
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := req.ValidateLogin(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"errors": err.Error()})
		return
	}

	account, err := a.pixloom.Authenticate(c.Request.Context(), req.Identifier, req.Password)
	if err != nil {
		errorResponse(c, err)
		return
	}

	conf, err := config.Fetch()
	if err != nil {
		errorResponse(c, err)
		return
	}

	token, err := middleware.IssueToken(account, conf.Auth)
	if err != nil {
		errorResponse(c, err)
		return
	}

	maxAge := int(conf.Auth.TokenTTL().Seconds())
	c.SetCookie(conf.Auth.CookieName, token, maxAge, "/", "", conf.Auth.CookieSecure, true)
	c.JSON(http.StatusOK, account)
}

func (a Api) Logout(c *gin.Context) {
	conf, err := config.Fetch()
	if err != nil {
		errorResponse(c, err)
		return
	}
	c.SetCookie(conf.Auth.CookieName, "", -1, "/", "", conf.Auth.CookieSecure, true)
	c.JSON(http.StatusOK, gin.H{"message": "logged out"})
}

// Me returns the authenticated account together with its live balance.
func (a Api) Me(c *gin.Context) {
	accountID := middleware.AccountID(c)

	account, err := a.pixloom.GetAccount(c.Request.Context(), accountID)
	if err != nil {
		errorResponse(c, err)
		return
	}

	balance, err := a.pixloom.GetBalance(c.Request.Context(), accountID)
	if err != nil {
		errorResponse(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"account": account, "balance": balance})
}
