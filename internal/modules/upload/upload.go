package upload

import (
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	appcfg "github.com/motohub/core/internal/config"
	"github.com/motohub/core/internal/pkg/response"
	"go.uber.org/zap"
)

const maxUploadBytes = 20 << 20

var allowedTypes = map[string]struct{}{
	"avatar": {},
	"image":  {},
	"file":   {},
}

type Handler struct {
	staticDir string
	s3        *s3Uploader
	log       *zap.Logger
}

func NewHandler(cfg *appcfg.AppConfig, log *zap.Logger) *Handler {
	h := &Handler{staticDir: cfg.StaticDir(), log: log}
	if cfg.S3.Enable {
		up, err := newS3Uploader(cfg.S3)
		if err != nil {
			if log != nil {
				log.Warn("s3 upload disabled", zap.Error(err))
			}
		} else {
			h.s3 = up
		}
	}
	return h
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, authMW gin.HandlerFunc) {
	rg.POST("/upload", authMW, h.upload)
	rg.GET("/static/:type/:name", h.serve)
}

func (h *Handler) upload(c *gin.Context) {
	typ := normalizeType(c.DefaultQuery("type", "file"))
	if typ == "" {
		response.BadRequest(c, "invalid file type")
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		response.BadRequest(c, "file is required")
		return
	}
	if fileHeader.Size > maxUploadBytes {
		response.BadRequest(c, "file too large")
		return
	}

	filename := buildFileName(fileHeader.Filename)

	if h.s3 != nil {
		src, err := fileHeader.Open()
		if err != nil {
			response.InternalError(c, err)
			return
		}
		payload, err := io.ReadAll(io.LimitReader(src, maxUploadBytes+1))
		src.Close()
		if err != nil {
			response.InternalError(c, err)
			return
		}
		fileURL, err := h.s3.Upload(c.Request.Context(), typ+"/"+filename,
			payload, fileHeader.Header.Get("Content-Type"))
		if err != nil {
			response.InternalError(c, err)
			return
		}
		response.OK(c, gin.H{"url": fileURL, "name": filename, "storage": "s3"})
		return
	}

	dir := filepath.Join(h.staticDir, typ)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		response.InternalError(c, err)
		return
	}
	if err := c.SaveUploadedFile(fileHeader, filepath.Join(dir, filename)); err != nil {
		response.InternalError(c, err)
		return
	}

	response.OK(c, gin.H{
		"url":     "/api/v1/static/" + typ + "/" + filename,
		"name":    filename,
		"storage": "local",
	})
}

func (h *Handler) serve(c *gin.Context) {
	typ := normalizeType(c.Param("type"))
	name := safeName(c.Param("name"))
	if typ == "" || name == "" {
		response.BadRequest(c, "invalid path")
		return
	}

	path := filepath.Join(h.staticDir, typ, name)
	if _, err := os.Stat(path); err != nil {
		response.NotFound(c)
		return
	}

	c.Header("Cache-Control", "public, max-age=31536000")
	c.File(path)
}

func buildFileName(original string) string {
	ext := strings.ToLower(filepath.Ext(strings.TrimSpace(original)))
	if ext == "" || len(ext) > 10 {
		ext = ".dat"
	}
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:18] + ext
}

func normalizeType(raw string) string {
	raw = strings.ToLower(strings.TrimSpace(raw))
	if _, ok := allowedTypes[raw]; !ok {
		return ""
	}
	return raw
}

func safeName(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" || !isSafeSegment(raw) {
		return ""
	}
	return raw
}

func isSafeSegment(s string) bool {
	if s == "." || s == ".." {
		return false
	}
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		case r == '-' || r == '_' || r == '.':
		default:
			return false
		}
	}
	return true
}
