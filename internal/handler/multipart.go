package handler

import (
	"io"
	"mime/multipart"
	"net/http"

	"github.com/luksuri-reka/advanta-cc-sub001/internal/apierror"
	"github.com/luksuri-reka/advanta-cc-sub001/internal/service"

	"github.com/gin-gonic/gin"
)

// Field name used by every upload form.
const filesField = "files"

// formFiles reads the files field of a multipart request. Returns false after
// writing a 400 when the form is missing or empty.
func formFiles(c *gin.Context) ([]*multipart.FileHeader, bool) {
	form, err := c.MultipartForm()
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("Expected a multipart form with a files field"))
		return nil, false
	}
	files := form.File[filesField]
	if len(files) == 0 {
		c.JSON(http.StatusBadRequest, apierror.New("No files uploaded"))
		return nil, false
	}
	return files, true
}

func openerFor(fh *multipart.FileHeader) func() (io.ReadCloser, error) {
	return func() (io.ReadCloser, error) {
		f, err := fh.Open()
		if err != nil {
			return nil, err
		}
		return f, nil
	}
}

func uploadsFrom(files []*multipart.FileHeader) []service.Upload {
	out := make([]service.Upload, len(files))
	for i, fh := range files {
		out[i] = service.Upload{Name: fh.Filename, Size: fh.Size, Open: openerFor(fh)}
	}
	return out
}

func tokenFilesFrom(files []*multipart.FileHeader) []service.TokenFile {
	out := make([]service.TokenFile, len(files))
	for i, fh := range files {
		out[i] = service.TokenFile{Name: fh.Filename, Open: openerFor(fh)}
	}
	return out
}
