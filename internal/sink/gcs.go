package sink

import (
	"context"
	"io"
	"path"
	"strings"

	"cloud.google.com/go/storage"
)

// GCS 把 artifact 写成 bucket 下的对象：<prefix>/<name>，content-type 为 application/json。
type GCS struct {
	Bucket string
	Prefix string

	open func(ctx context.Context, object string) io.WriteCloser
}

// NewGCS 使用已初始化的 storage.Client 构造 GCS sink。
func NewGCS(c *storage.Client, bucket, prefix string) *GCS {
	g := &GCS{Bucket: bucket, Prefix: strings.Trim(prefix, "/")}
	g.open = func(ctx context.Context, object string) io.WriteCloser {
		w := c.Bucket(bucket).Object(object).NewWriter(ctx)
		w.ContentType = "application/json"
		w.CacheControl = "no-cache"
		return w
	}
	return g
}

func (g *GCS) object(name string) string {
	if g.Prefix == "" {
		return name
	}
	return path.Join(g.Prefix, name)
}

func (g *GCS) Put(ctx context.Context, name string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	w := g.open(ctx, g.object(name))
	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return err
	}
	// 上传在 Close 时才真正完成，Close 的错误必须返回。
	return w.Close()
}

func (g *GCS) Location(name string) string {
	return "gs://" + g.Bucket + "/" + g.object(name)
}

func (g *GCS) String() string {
	if g.Prefix == "" {
		return "gcs:gs://" + g.Bucket
	}
	return "gcs:gs://" + g.Bucket + "/" + g.Prefix
}
