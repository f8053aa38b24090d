package media

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// LocalHost 将文件写入本地公开目录，由HTTP服务在 /media 下提供访问
type LocalHost struct {
	dir     string
	baseURL string
}

func NewLocalHost(dir, baseURL string) (*LocalHost, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("创建媒体目录失败: %w", err)
	}
	return &LocalHost{dir: dir, baseURL: baseURL}, nil
}

func (h *LocalHost) Put(ctx context.Context, key string, body io.Reader, _ int64, _ string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	dst := filepath.Join(h.dir, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return "", fmt.Errorf("create media dir: %w", err)
	}

	out, err := os.Create(dst)
	if err != nil {
		return "", fmt.Errorf("create media file: %w", err)
	}
	if _, err := io.Copy(out, body); err != nil {
		out.Close()
		os.Remove(dst)
		return "", fmt.Errorf("write media file: %w", err)
	}
	if err := out.Close(); err != nil {
		return "", fmt.Errorf("close media file: %w", err)
	}

	return joinURL(h.baseURL, key), nil
}
