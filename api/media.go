package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	model2 "github.com/pixloom/pixloom/api/model"

	"github.com/pixloom/pixloom/api/middleware"
	"github.com/pixloom/pixloom/model"
)

func (a Api) EnhanceImage(c *gin.Context) {
	a.startJob(c, model.OpEnhance, c.Param("id"), nil)
}

func (a Api) RestoreImage(c *gin.Context) {
	a.startJob(c, model.OpRestore, c.Param("id"), nil)
}

func (a Api) ColorizeImage(c *gin.Context) {
	a.startJob(c, model.OpColorize, c.Param("id"), nil)
}

func (a Api) RemoveObject(c *gin.Context) {
	var req model2.RemoveObject
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := req.ValidateRemoveObject(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"errors": err.Error()})
		return
	}
	a.startJob(c, model.OpRemoveObject, c.Param("id"), map[string]interface{}{"mask": req.Mask})
}

func (a Api) GenerateImage(c *gin.Context) {
	a.generate(c, model.OpGenerateImage)
}

func (a Api) GenerateVideo(c *gin.Context) {
	a.generate(c, model.OpGenerateVideo)
}

func (a Api) generate(c *gin.Context, operation string) {
	var req model2.Generate
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := req.ValidateGenerate(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"errors": err.Error()})
		return
	}

	params := map[string]interface{}{"prompt": req.Prompt}
	if operation == model.OpGenerateVideo && req.Image != "" {
		params["first_frame_image"] = req.Image
	}
	a.startJob(c, operation, "", params)
}

func (a Api) GenerateAudio(c *gin.Context) {
	var req model2.GenerateAudio
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := req.ValidateGenerateAudio(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"errors": err.Error()})
		return
	}

	params := map[string]interface{}{}
	if req.Prompt != "" {
		params["prompt"] = req.Prompt
	}
	a.startJob(c, model.OpGenerateAudio, c.Param("id"), params)
}

// startJob queues the operation and answers 202 with the identifiers the
// client needs to poll for the result.
func (a Api) startJob(c *gin.Context, operation, recordID string, params map[string]interface{}) {
	job, err := a.pixloom.StartJob(c.Request.Context(), middleware.AccountID(c), operation, recordID, params)
	if err != nil {
		errorResponse(c, err)
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"job_id":    job.JobID,
		"record_id": job.RecordID,
		"status":    job.Status,
	})
}
