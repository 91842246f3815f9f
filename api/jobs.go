package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/pixloom/pixloom/api/middleware"
	"github.com/pixloom/pixloom/model"
)

func (a Api) GetJob(c *gin.Context) {
	job, err := a.pixloom.GetJobForAccount(c.Request.Context(), c.Param("id"), middleware.AccountID(c))
	if err != nil {
		errorResponse(c, err)
		return
	}

	resp := gin.H{
		"job_id":    job.JobID,
		"record_id": job.RecordID,
		"operation": job.Operation,
		"status":    job.Status,
		"cost":      job.Cost,
	}
	if job.Terminal() {
		resp["output_url"] = job.OutputURL
		if job.ErrorCode != "" {
			resp["error_code"] = job.ErrorCode
		}
		if job.Status == model.JobStatusSucceeded {
			if balance, err := a.pixloom.GetBalance(c.Request.Context(), job.AccountID); err == nil {
				resp["balance"] = balance
			}
		}
	}
	c.JSON(http.StatusOK, resp)
}
