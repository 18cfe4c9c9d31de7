package main

import (
	"context"
	"fmt"

	"cloud.google.com/go/storage"
	"github.com/go-redis/redis/v8"

	"github.com/John-Robertt/anigallery/internal/config"
	"github.com/John-Robertt/anigallery/internal/sink"
)

// openSink 按配置构造 sink；返回的 close 总是可调用。
func openSink(ctx context.Context, eff config.EffectiveConfig) (sink.Sink, func(), error) {
	nop := func() {}
	switch eff.Sink {
	case config.SinkDir:
		return sink.NewDir(eff.OutputDir), nop, nil
	case config.SinkMemory:
		return sink.NewMemory(), nop, nil
	case config.SinkGCS:
		c, err := storage.NewClient(ctx)
		if err != nil {
			return nil, nop, fmt.Errorf("初始化 GCS 客户端失败：%w", err)
		}
		return sink.NewGCS(c, eff.GCSBucket, eff.GCSPrefix), func() { _ = c.Close() }, nil
	case config.SinkRedis:
		c := redis.NewClient(&redis.Options{
			Addr:     eff.RedisAddr,
			Password: eff.RedisPassword,
			DB:       eff.RedisDB,
		})
		return sink.NewRedis(c, eff.RedisAddr, eff.RedisPrefix), func() { _ = c.Close() }, nil
	default:
		return nil, nop, fmt.Errorf("未知 sink：%q", eff.Sink)
	}
}
