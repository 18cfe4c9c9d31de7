package imgx

import (
	"errors"
	"image"
	_ "image/gif"  // 注册 GIF 解码器
	_ "image/jpeg" // 注册 JPEG 解码器
	_ "image/png"  // 注册 PNG 解码器
	"os"
)

// Info 是图片头部信息。
type Info struct {
	Format string `json:"format"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

// ErrUnsupported 表示没有注册对应格式的解码器（例如 webp）；文件本身未必损坏。
var ErrUnsupported = errors.New("imgx: 不支持的图片格式")

// Probe 读取 path 的图片头部（只解码 config，不解码像素）。
//
// 约束：
// - 输入允许是 JPEG/PNG/GIF（依赖标准库解码器）
// - 宽或高为 0 视为损坏
func Probe(path string) (Info, error) {
	f, err := os.Open(path)
	if err != nil {
		return Info{}, err
	}
	defer f.Close()

	cfg, format, err := image.DecodeConfig(f)
	if err != nil {
		if errors.Is(err, image.ErrFormat) {
			return Info{}, ErrUnsupported
		}
		return Info{}, err
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return Info{}, errors.New("图片尺寸无效")
	}
	return Info{Format: format, Width: cfg.Width, Height: cfg.Height}, nil
}
