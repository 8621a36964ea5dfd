package server

import (
	"errors"
	"net/http"

	"github.com/chaos-io/cutout/album"
	"github.com/chaos-io/cutout/export"
	"github.com/chaos-io/cutout/rembg"
	"github.com/chaos-io/cutout/util"
	"github.com/gin-gonic/gin"
)

const (
	msgProcessingFailed = "processing failed"
	msgBusy             = "a request is already being processed"
)

type errorResp struct {
	Error string `json:"error"`
}

type albumResp struct {
	ID      string `json:"id,omitempty"`
	Format  string `json:"format,omitempty"`
	Message string `json:"message"`
}

type albumItem struct {
	ID        string `json:"id"`
	Format    string `json:"format"`
	Size      int64  `json:"size"`
	CreatedAt string `json:"created_at"`
}

func (s *Server) healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "busy": s.processor.Busy()})
}

// process 读取上传图片并抠图，失败时已写好响应
func (s *Server) process(c *gin.Context) (rembg.Response, export.SaveFormat, bool) {
	format := s.defaultFormat
	if v := c.PostForm("format"); v != "" {
		f, err := export.ParseSaveFormat(v)
		if err != nil {
			c.JSON(http.StatusBadRequest, errorResp{Error: err.Error()})
			return rembg.Response{}, 0, false
		}
		format = f
	}

	fh, err := c.FormFile("image")
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResp{Error: "missing image: " + err.Error()})
		return rembg.Response{}, 0, false
	}
	file, err := fh.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResp{Error: err.Error()})
		return rembg.Response{}, 0, false
	}
	defer func() {
		_ = file.Close()
	}()

	img, err := util.ReadBitmap(file)
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResp{Error: err.Error()})
		return rembg.Response{}, 0, false
	}

	resp, err := s.processor.Process(c.Request.Context(), rembg.Request{Image: img})
	if errors.Is(err, rembg.ErrBusy) {
		c.JSON(http.StatusConflict, errorResp{Error: msgBusy})
		return rembg.Response{}, 0, false
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, errorResp{Error: err.Error()})
		return rembg.Response{}, 0, false
	}
	c.Header("X-Request-Id", resp.ID)

	switch {
	case resp.Err == nil:
		return resp, format, true
	case errors.Is(resp.Err, rembg.ErrDecodeFailed):
		c.JSON(http.StatusBadRequest, errorResp{Error: resp.Err.Error()})
	default:
		c.JSON(http.StatusUnprocessableEntity, errorResp{Error: msgProcessingFailed})
	}
	return rembg.Response{}, 0, false
}

func (s *Server) remove(c *gin.Context) {
	resp, format, ok := s.process(c)
	if !ok {
		return
	}

	data, used, err := s.exporter.Encode(resp.Result.NRGBA(), format)
	if err != nil {
		c.JSON(http.StatusInternalServerError, errorResp{Error: album.MsgConversionFailed})
		return
	}
	c.Header("Content-Disposition", `inline; filename="`+resp.ID+"."+used.Extension()+`"`)
	c.Data(http.StatusOK, used.ContentType(), data)
}

func (s *Server) saveToAlbum(c *gin.Context) {
	resp, format, ok := s.process(c)
	if !ok {
		return
	}

	res := s.saver.Save(resp.Result, format)
	if res.Err != nil {
		c.JSON(http.StatusInternalServerError, albumResp{Message: res.Message})
		return
	}
	c.JSON(http.StatusCreated, albumResp{
		ID:      res.Item.ID,
		Format:  res.Item.Format.String(),
		Message: res.Message,
	})
}

func (s *Server) listAlbum(c *gin.Context) {
	items, err := s.library.List()
	if err != nil {
		c.JSON(http.StatusInternalServerError, errorResp{Error: err.Error()})
		return
	}

	out := make([]albumItem, 0, len(items))
	for _, it := range items {
		out = append(out, albumItem{
			ID:        it.ID,
			Format:    it.Format.String(),
			Size:      it.Size,
			CreatedAt: it.CreatedAt.UTC().Format("2006-01-02T15:04:05Z"),
		})
	}
	c.JSON(http.StatusOK, gin.H{"items": out})
}

func (s *Server) getAlbumItem(c *gin.Context) {
	data, item, err := s.library.Open(c.Param("id"))
	if errors.Is(err, album.ErrNotFound) {
		c.JSON(http.StatusNotFound, errorResp{Error: err.Error()})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, errorResp{Error: err.Error()})
		return
	}
	c.Data(http.StatusOK, item.Format.ContentType(), data)
}
