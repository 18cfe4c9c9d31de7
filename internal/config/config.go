package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"

	"github.com/John-Robertt/anigallery/internal/sink"
)

const (
	// ErrCodeNotFound 表示 --config 显式指定的配置文件不存在。
	ErrCodeNotFound = "config_not_found"
	// ErrCodeInvalid 表示配置文件无法读取/解析，或字段不合法。
	ErrCodeInvalid = "config_invalid"
)

// 配置文件名（在工作目录下按顺序查找，先找到的生效）。
const (
	FileNameTOML = "anigallery.toml"
	FileNameJSON = "anigallery.json"
)

const (
	DefaultEndpoint     = "https://graphql.anilist.co"
	DefaultPerPage      = 50
	DefaultTrailerPages = 10
	DefaultDelay        = time.Second
	DefaultTimeout      = 30 * time.Second
	DefaultOutputDir    = sink.DefaultDir
	DefaultRedisAddr    = "localhost:6379"
	DefaultRedisPrefix  = sink.DefaultRedisPrefix
	DefaultLogLevel     = slog.LevelWarn
)

// sink 取值。
const (
	SinkDir    = "dir"
	SinkMemory = "memory"
	SinkGCS    = "gcs"
	SinkRedis  = "redis"
)

// 环境变量（覆盖配置文件，被 CLI 覆盖）。
const (
	EnvEndpoint      = "ANIGALLERY_ENDPOINT"
	EnvSink          = "ANIGALLERY_SINK"
	EnvRedisAddr     = "ANIGALLERY_REDIS_ADDR"
	EnvRedisPassword = "ANIGALLERY_REDIS_PASSWORD"
	EnvGCSBucket     = "ANIGALLERY_GCS_BUCKET"
	EnvProxy         = "ANIGALLERY_PROXY"
	EnvLogLevel      = "ANIGALLERY_LOG_LEVEL"
)

// CLIArgs 只包含 CLI 暴露的入口，并保留“是否显式指定”的信息。
// 这能保证覆盖优先级可实现：例如 --trailer-pages=0 必须能覆盖 config.trailer_pages=10。
type CLIArgs struct {
	Path string

	// ConfigFile 非空时只读取该文件（必须存在）。
	ConfigFile string

	Sink    string
	SinkSet bool

	MaxPages    int
	MaxPagesSet bool

	TrailerPages    int
	TrailerPagesSet bool

	Delay    time.Duration
	DelaySet bool
}

// FileConfig 对应 anigallery.toml / anigallery.json 的解析结构。
type FileConfig struct {
	Endpoint           string       `json:"endpoint" toml:"endpoint"`
	PerPage            int          `json:"per_page" toml:"per_page"`
	MaxPages           *int         `json:"max_pages" toml:"max_pages"`
	TrailerPages       *int         `json:"trailer_pages" toml:"trailer_pages"`
	Delay              string       `json:"delay" toml:"delay"`
	Timeout            string       `json:"timeout" toml:"timeout"`
	Proxy              *ProxyConfig `json:"proxy" toml:"proxy"`
	IncludeDescription bool         `json:"include_description" toml:"include_description"`
	Sink               string       `json:"sink" toml:"sink"`
	OutputDir          string       `json:"output_dir" toml:"output_dir"`
	GCS                *GCSConfig   `json:"gcs" toml:"gcs"`
	Redis              *RedisConfig `json:"redis" toml:"redis"`
}

type ProxyConfig struct {
	URL string `json:"url" toml:"url"`
}

type GCSConfig struct {
	Bucket string `json:"bucket" toml:"bucket"`
	Prefix string `json:"prefix" toml:"prefix"`
}

type RedisConfig struct {
	Addr     string `json:"addr" toml:"addr"`
	Password string `json:"password" toml:"password"`
	DB       int    `json:"db" toml:"db"`
	Prefix   string `json:"prefix" toml:"prefix"`
}

// EffectiveConfig 是合并并做最小规范化后的最终配置（实现层直接消费，不再做二次默认/优先级判断）。
type EffectiveConfig struct {
	Path string
	// ConfigFile 为实际读取的配置文件；未读取时为空。
	ConfigFile string

	Endpoint           string
	PerPage            int
	MaxPages           int
	TrailerPages       int
	Delay              time.Duration
	Timeout            time.Duration
	ProxyURL           string
	IncludeDescription bool

	Sink      string
	OutputDir string

	GCSBucket string
	GCSPrefix string

	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RedisPrefix   string

	LogLevel slog.Level
}

// Error 是配置阶段的结构化错误（带 error_code）。
type Error struct {
	Code string
	Path string
	Err  error
}

func (e *Error) Error() string {
	switch e.Code {
	case ErrCodeNotFound:
		return fmt.Sprintf("%s：未找到配置文件 %q", e.Code, e.Path)
	case ErrCodeInvalid:
		if e.Err != nil {
			if e.Path == "" {
				return fmt.Sprintf("%s：配置无效：%v", e.Code, e.Err)
			}
			return fmt.Sprintf("%s：配置文件 %q 无效：%v", e.Code, e.Path, e.Err)
		}
		return fmt.Sprintf("%s：配置文件 %q 无效", e.Code, e.Path)
	default:
		if e.Err != nil {
			return fmt.Sprintf("%s：%v", e.Code, e.Err)
		}
		return e.Code
	}
}

func (e *Error) Unwrap() error { return e.Err }

// Code 从 error 中提取 error_code；若不是 *Error 则返回空串。
func Code(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// LoadEffective 发现并读取配置文件与 .env，然后与 CLI 参数合并为最终配置。
//
// 发现规则（固定）：
// 1) 工作目录：CLI path > cwd
// 2) --config 给定：只读该文件，不存在即 config_not_found
// 3) 否则依次查找 <path>/anigallery.toml、<path>/anigallery.json（可选）
// 4) <path>/.env.local、<path>/.env 补充环境变量（不覆盖真实环境变量）
//
// 覆盖优先级（固定）：CLI > 环境变量 > 配置文件 > 默认值
func LoadEffective(cwd string, cli CLIArgs) (EffectiveConfig, error) {
	cwdAbs, err := filepath.Abs(cwd)
	if err != nil {
		return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Path: cwd, Err: err}
	}

	absPath := cwdAbs
	if strings.TrimSpace(cli.Path) != "" {
		absPath = absCleanFrom(cwdAbs, cli.Path)
	}

	var (
		cfgPath string
		fc      FileConfig
	)
	if strings.TrimSpace(cli.ConfigFile) != "" {
		cfgPath = absCleanFrom(cwdAbs, cli.ConfigFile)
		var exists bool
		fc, exists, err = readFileConfig(cfgPath)
		if err != nil {
			return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Path: cfgPath, Err: err}
		}
		if !exists {
			return EffectiveConfig{}, &Error{Code: ErrCodeNotFound, Path: cfgPath, Err: os.ErrNotExist}
		}
	} else {
		for _, name := range []string{FileNameTOML, FileNameJSON} {
			p := filepath.Join(absPath, name)
			f, exists, err := readFileConfig(p)
			if err != nil {
				return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Path: p, Err: err}
			}
			if exists {
				cfgPath, fc = p, f
				break
			}
		}
	}

	env, err := loadEnv(absPath)
	if err != nil {
		return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Path: filepath.Join(absPath, ".env"), Err: err}
	}

	return merge(absPath, cli, fc, cfgPath, env)
}

func merge(absPath string, cli CLIArgs, fc FileConfig, cfgPath string, env func(string) string) (EffectiveConfig, error) {
	invalid := func(format string, args ...any) (EffectiveConfig, error) {
		return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Path: cfgPath, Err: fmt.Errorf(format, args...)}
	}

	eff := EffectiveConfig{
		Path:               absPath,
		ConfigFile:         cfgPath,
		IncludeDescription: fc.IncludeDescription,
	}

	// endpoint：env > config > 默认
	eff.Endpoint = firstNonEmpty(env(EnvEndpoint), fc.Endpoint, DefaultEndpoint)
	if u, err := url.Parse(eff.Endpoint); err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return invalid("endpoint 必须是 http/https URL：%q", eff.Endpoint)
	}

	eff.PerPage = fc.PerPage
	if eff.PerPage == 0 {
		eff.PerPage = DefaultPerPage
	}
	if eff.PerPage < 1 || eff.PerPage > 50 {
		return invalid("per_page 必须在 [1, 50]，实际 %d", fc.PerPage)
	}

	// max_pages / trailer_pages / delay：CLI > config > 默认
	if fc.MaxPages != nil {
		eff.MaxPages = *fc.MaxPages
	}
	if cli.MaxPagesSet {
		eff.MaxPages = cli.MaxPages
	}
	if eff.MaxPages < 0 {
		return invalid("max_pages 不能为负数，实际 %d", eff.MaxPages)
	}

	eff.TrailerPages = DefaultTrailerPages
	if fc.TrailerPages != nil {
		eff.TrailerPages = *fc.TrailerPages
	}
	if cli.TrailerPagesSet {
		eff.TrailerPages = cli.TrailerPages
	}
	if eff.TrailerPages < 0 {
		return invalid("trailer_pages 不能为负数，实际 %d", eff.TrailerPages)
	}

	eff.Delay = DefaultDelay
	if s := strings.TrimSpace(fc.Delay); s != "" {
		d, err := time.ParseDuration(s)
		if err != nil {
			return invalid("delay 无效：%w", err)
		}
		eff.Delay = d
	}
	if cli.DelaySet {
		eff.Delay = cli.Delay
	}
	if eff.Delay < 0 {
		return invalid("delay 不能为负数，实际 %s", eff.Delay)
	}

	eff.Timeout = DefaultTimeout
	if s := strings.TrimSpace(fc.Timeout); s != "" {
		d, err := time.ParseDuration(s)
		if err != nil {
			return invalid("timeout 无效：%w", err)
		}
		if d <= 0 {
			return invalid("timeout 必须为正数，实际 %s", d)
		}
		eff.Timeout = d
	}

	proxyURL := ""
	if fc.Proxy != nil {
		proxyURL = strings.TrimSpace(fc.Proxy.URL)
	}
	proxyURL = firstNonEmpty(env(EnvProxy), proxyURL)
	if proxyURL != "" {
		if _, err := url.Parse(proxyURL); err != nil {
			return invalid("proxy.url 无效：%w", err)
		}
	}
	eff.ProxyURL = proxyURL

	// sink：CLI > env > config > 默认 dir
	eff.Sink = strings.ToLower(firstNonEmpty(env(EnvSink), fc.Sink, SinkDir))
	if cli.SinkSet {
		eff.Sink = strings.ToLower(strings.TrimSpace(cli.Sink))
	}
	if err := validateSink(eff.Sink); err != nil {
		return invalid("%w", err)
	}

	eff.OutputDir = absCleanFrom(absPath, firstNonEmpty(fc.OutputDir, DefaultOutputDir))

	if fc.GCS != nil {
		eff.GCSBucket = strings.TrimSpace(fc.GCS.Bucket)
		eff.GCSPrefix = strings.Trim(strings.TrimSpace(fc.GCS.Prefix), "/")
	}
	eff.GCSBucket = firstNonEmpty(env(EnvGCSBucket), eff.GCSBucket)
	if eff.Sink == SinkGCS && eff.GCSBucket == "" {
		return invalid("sink=gcs 但 gcs.bucket 为空")
	}

	var rc RedisConfig
	if fc.Redis != nil {
		rc = *fc.Redis
	}
	eff.RedisAddr = firstNonEmpty(env(EnvRedisAddr), rc.Addr, DefaultRedisAddr)
	eff.RedisPassword = firstNonEmpty(env(EnvRedisPassword), rc.Password)
	eff.RedisDB = rc.DB
	if eff.RedisDB < 0 {
		return invalid("redis.db 不能为负数，实际 %d", eff.RedisDB)
	}
	eff.RedisPrefix = firstNonEmpty(rc.Prefix, DefaultRedisPrefix)

	eff.LogLevel = DefaultLogLevel
	if s := strings.TrimSpace(env(EnvLogLevel)); s != "" {
		if err := eff.LogLevel.UnmarshalText([]byte(s)); err != nil {
			return invalid("%s 无效：%q", EnvLogLevel, s)
		}
	}

	return eff, nil
}

func validateSink(s string) error {
	switch s {
	case SinkDir, SinkMemory, SinkGCS, SinkRedis:
		return nil
	case "":
		return fmt.Errorf("sink 不能为空")
	default:
		return fmt.Errorf("sink 只能是 dir/memory/gcs/redis，实际是 %q", s)
	}
}

// ParseDelay 解析 CLI 的 --delay：接受 Go duration（"1.5s"）或纯数字毫秒（"1000"）。
func ParseDelay(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if ms, err := strconv.Atoi(s); err == nil {
		return time.Duration(ms) * time.Millisecond, nil
	}
	return time.ParseDuration(s)
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

// absCleanFrom 以 base 为基准，把 p 变为 clean + absolute。
// - p 若已是绝对路径：直接 Clean
// - p 若是相对路径：Join(base, p) 后 Clean
func absCleanFrom(base, p string) string {
	p = filepath.Clean(strings.TrimSpace(p))
	if p == "" {
		return ""
	}
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Clean(filepath.Join(base, p))
}

// readFileConfig 按扩展名解析 TOML 或 JSON 配置文件。
// 返回值 exists 表示该文件是否存在（不存在不算错误）。
func readFileConfig(path string) (fc FileConfig, exists bool, err error) {
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return FileConfig{}, false, nil
		}
		return FileConfig{}, false, err
	}
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		if _, err := toml.Decode(string(b), &fc); err != nil {
			return FileConfig{}, true, err
		}
		return fc, true, nil
	}
	if err := json.Unmarshal(b, &fc); err != nil {
		return FileConfig{}, true, err
	}
	return fc, true, nil
}

// loadEnv 返回环境变量查找函数：真实环境变量优先，其次 .env.local，最后 .env。
//
// 使用 godotenv.Read 而不是 Load：不修改进程环境，多次调用结果一致。
// Read 中后出现的文件覆盖先出现的，所以 .env.local 放在最后。
func loadEnv(dir string) (func(string) string, error) {
	files := make([]string, 0, 2)
	for _, name := range []string{".env", ".env.local"} {
		p := filepath.Join(dir, name)
		if fi, err := os.Stat(p); err == nil && fi.Mode().IsRegular() {
			files = append(files, p)
		}
	}

	var fileEnv map[string]string
	if len(files) > 0 {
		m, err := godotenv.Read(files...)
		if err != nil {
			return nil, err
		}
		fileEnv = m
	}

	return func(key string) string {
		if v, ok := os.LookupEnv(key); ok {
			return v
		}
		return fileEnv[key]
	}, nil
}
