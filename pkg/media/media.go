// Package media 将本地临时文件上传到媒体存储并返回公开URL。
package media

//go:generate mockgen -source=media.go -destination=media_mock.go -package=media

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"vidhub/config"
	"vidhub/pkg/apperror"
	"vidhub/pkg/logger"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// 存储提供方
const (
	ProviderLocal = "local"
	ProviderS3    = "s3"
)

// 资源类型
const (
	ResourceImage = "image"
	ResourceVideo = "video"
	ResourceRaw   = "raw"
)

// Host 远端媒体存储
type Host interface {
	// Put 写入对象并返回可公开访问的URL
	Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) (string, error)
}

// UploadResult 上传结果
type UploadResult struct {
	URL          string
	Key          string
	ResourceType string
	ContentType  string
	Bytes        int64
}

// Attacher 上传步骤：识别类型、上传、清理临时文件
type Attacher struct {
	host   Host
	folder string
}

func NewAttacher(host Host, folder string) *Attacher {
	return &Attacher{host: host, folder: folder}
}

// Attach 上传 localPath 指向的文件，无论成功与否都会删除该文件
// localPath 为空时返回 (nil, nil)
func (a *Attacher) Attach(ctx context.Context, localPath string) (*UploadResult, error) {
	if localPath == "" {
		return nil, nil
	}
	defer removeTemp(localPath)

	f, err := os.Open(localPath)
	if err != nil {
		return nil, uploadFailed(err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, uploadFailed(err)
	}

	mt, err := mimetype.DetectReader(f)
	if err != nil {
		return nil, uploadFailed(fmt.Errorf("detect content type: %w", err))
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return nil, uploadFailed(err)
	}

	ext := mt.Extension()
	if ext == "" {
		ext = filepath.Ext(localPath)
	}
	key := path.Join(a.folder, uuid.NewString()+ext)

	url, err := a.host.Put(ctx, key, f, info.Size(), mt.String())
	if err != nil {
		return nil, uploadFailed(err)
	}

	return &UploadResult{
		URL:          url,
		Key:          key,
		ResourceType: resourceType(mt.String()),
		ContentType:  mt.String(),
		Bytes:        info.Size(),
	}, nil
}

// NewHost 按配置创建存储
func NewHost(ctx context.Context, cfg config.MediaConfig) (Host, error) {
	switch cfg.Provider {
	case ProviderLocal, "":
		return NewLocalHost(cfg.LocalDir, cfg.PublicBaseURL)
	case ProviderS3:
		return NewS3Host(ctx, cfg)
	default:
		return nil, fmt.Errorf("不支持的媒体存储: %s", cfg.Provider)
	}
}

func resourceType(contentType string) string {
	switch {
	case strings.HasPrefix(contentType, "image/"):
		return ResourceImage
	case strings.HasPrefix(contentType, "video/"), strings.HasPrefix(contentType, "audio/"):
		return ResourceVideo
	default:
		return ResourceRaw
	}
}

func uploadFailed(err error) error {
	return apperror.Internal("Media upload failed").
		WithCode(apperror.CodeMediaUploadFailed).
		WithCause(err)
}

func removeTemp(localPath string) {
	if err := os.Remove(localPath); err != nil && !os.IsNotExist(err) {
		logger.Warn("删除临时文件失败", zap.String("path", localPath), zap.Error(err))
	}
}

func joinURL(base, key string) string {
	return strings.TrimRight(base, "/") + "/" + key
}
