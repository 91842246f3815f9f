package api

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/pixloom/pixloom/api/middleware"
	"github.com/pixloom/pixloom/model"
)

// maxUploadBytes caps multipart uploads; videos dominate, images are far
// smaller after normalization.
const maxUploadBytes = 256 << 20

func (a Api) UploadImage(c *gin.Context) {
	data, _, err := readUpload(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	record, err := a.pixloom.UploadImage(c.Request.Context(), middleware.AccountID(c), data)
	if err != nil {
		errorResponse(c, err)
		return
	}
	c.JSON(http.StatusCreated, record)
}

func (a Api) UploadVideo(c *gin.Context) {
	data, contentType, err := readUpload(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	record, err := a.pixloom.UploadVideo(c.Request.Context(), middleware.AccountID(c), data, contentType)
	if err != nil {
		errorResponse(c, err)
		return
	}
	c.JSON(http.StatusCreated, record)
}

func (a Api) ListImages(c *gin.Context) {
	a.listRecords(c, model.RecordKindImage)
}

func (a Api) ListVideos(c *gin.Context) {
	a.listRecords(c, model.RecordKindVideo)
}

func (a Api) listRecords(c *gin.Context, kind string) {
	records, err := a.pixloom.ListRecords(c.Request.Context(), middleware.AccountID(c), kind)
	if err != nil {
		errorResponse(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"records": records})
}

// readUpload pulls the "file" part out of a multipart form and returns its
// bytes and declared content type.
func readUpload(c *gin.Context) ([]byte, string, error) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxUploadBytes)

	fileHeader, err := c.FormFile("file")
	if err != nil {
		return nil, "", err
	}

	file, err := fileHeader.Open()
	if err != nil {
		return nil, "", err
	}
	defer func() {
		_ = file.Close()
	}()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, "", err
	}
	return data, fileHeader.Header.Get("Content-Type"), nil
}
