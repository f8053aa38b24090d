package handler

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"

	"vidhub/pkg/apperror"
	"vidhub/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// UploadStore 将multipart文件写入临时目录
type UploadStore struct {
	dir     string
	maxSize int64
}

func NewUploadStore(dir string, maxSize int64) (*UploadStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("创建上传目录失败: %w", err)
	}
	return &UploadStore{dir: dir, maxSize: maxSize}, nil
}

// Save 保存表单文件 field，未上传时返回空路径
func (u *UploadStore) Save(c *gin.Context, field string) (string, error) {
	fh, err := c.FormFile(field)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
			return "", nil
		}
		return "", apperror.BadRequest("Invalid multipart form").WithCause(err)
	}

	if u.maxSize > 0 && fh.Size > u.maxSize {
		return "", apperror.New(http.StatusRequestEntityTooLarge, "File is too large")
	}

	dst := filepath.Join(u.dir, uuid.NewString()+filepath.Ext(fh.Filename))
	if err := c.SaveUploadedFile(fh, dst); err != nil {
		return "", apperror.Internal("Something went wrong while saving the file").WithCause(err)
	}
	return dst, nil
}

// Cleanup 删除仍然存在的临时文件
func (u *UploadStore) Cleanup(paths ...string) {
	for _, p := range paths {
		if p == "" {
			continue
		}
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			logger.Warn("删除临时文件失败", zap.String("path", p), zap.Error(err))
		}
	}
}
