package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"
)

// clearEnv 保证测试不受宿主环境变量影响。
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{EnvEndpoint, EnvSink, EnvRedisAddr, EnvRedisPassword, EnvGCSBucket, EnvProxy, EnvLogLevel} {
		if v, ok := os.LookupEnv(k); ok {
			t.Setenv(k, v) // 测试结束后恢复
			if err := os.Unsetenv(k); err != nil {
				t.Fatalf("unsetenv 失败：%v", err)
			}
		}
	}
}

func TestLoadEffective_DefaultsWithoutConfig(t *testing.T) {
	clearEnv(t)
	cwd := t.TempDir()

	eff, err := LoadEffective(cwd, CLIArgs{})
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if eff.ConfigFile != "" {
		t.Fatalf("不应读取配置文件，实际 %q", eff.ConfigFile)
	}
	if eff.Endpoint != DefaultEndpoint || eff.PerPage != 50 || eff.MaxPages != 0 || eff.TrailerPages != 10 {
		t.Fatalf("默认值不符合预期：%+v", eff)
	}
	if eff.Delay != time.Second || eff.Timeout != DefaultTimeout {
		t.Fatalf("默认 delay/timeout 不符合预期：%s %s", eff.Delay, eff.Timeout)
	}
	if eff.Sink != SinkDir {
		t.Fatalf("期望 sink=dir，实际=%q", eff.Sink)
	}
	if want := filepath.Join(cwd, "public", "data"); eff.OutputDir != want {
		t.Fatalf("期望 output_dir=%q，实际=%q", want, eff.OutputDir)
	}
	if eff.RedisPrefix != "anilist_" || eff.RedisAddr != DefaultRedisAddr {
		t.Fatalf("redis 默认值不符合预期：%+v", eff)
	}
	if eff.LogLevel != slog.LevelWarn {
		t.Fatalf("期望默认日志级别 warn，实际 %v", eff.LogLevel)
	}
}

func TestLoadEffective_ExplicitConfigNotFound(t *testing.T) {
	clearEnv(t)
	cwd := t.TempDir()

	_, err := LoadEffective(cwd, CLIArgs{ConfigFile: "missing.toml"})
	if Code(err) != ErrCodeNotFound {
		t.Fatalf("期望 %q，实际 err=%v (code=%q)", ErrCodeNotFound, err, Code(err))
	}
}

func TestLoadEffective_TOMLWinsOverJSON(t *testing.T) {
	clearEnv(t)
	cwd := t.TempDir()
	writeFile(t, filepath.Join(cwd, FileNameTOML), []byte(`
max_pages = 5
trailer_pages = 0
delay = "1500ms"
include_description = true
output_dir = "site/data"

[proxy]
url = "http://127.0.0.1:7890"

[redis]
prefix = "gallery:"
db = 2
`))
	writeFile(t, filepath.Join(cwd, FileNameJSON), []byte(`{"max_pages":9}`))

	eff, err := LoadEffective(cwd, CLIArgs{})
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if eff.ConfigFile != filepath.Join(cwd, FileNameTOML) {
		t.Fatalf("应读取 TOML，实际 %q", eff.ConfigFile)
	}
	if eff.MaxPages != 5 || eff.TrailerPages != 0 || eff.Delay != 1500*time.Millisecond {
		t.Fatalf("TOML 字段未生效：%+v", eff)
	}
	if !eff.IncludeDescription || eff.ProxyURL != "http://127.0.0.1:7890" {
		t.Fatalf("TOML 字段未生效：%+v", eff)
	}
	if eff.OutputDir != filepath.Join(cwd, "site", "data") {
		t.Fatalf("output_dir 应相对工作目录解析，实际 %q", eff.OutputDir)
	}
	if eff.RedisPrefix != "gallery:" || eff.RedisDB != 2 {
		t.Fatalf("redis 字段未生效：%+v", eff)
	}
}

func TestLoadEffective_JSONConfig(t *testing.T) {
	clearEnv(t)
	cwd := t.TempDir()
	writeFile(t, filepath.Join(cwd, FileNameJSON), []byte(`{"sink":"gcs","gcs":{"bucket":"media","prefix":"/data/"},"per_page":25}`))

	eff, err := LoadEffective(cwd, CLIArgs{})
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if eff.Sink != SinkGCS || eff.GCSBucket != "media" || eff.GCSPrefix != "data" || eff.PerPage != 25 {
		t.Fatalf("JSON 字段未生效：%+v", eff)
	}
}

func TestLoadEffective_CLIOverridesConfig(t *testing.T) {
	clearEnv(t)
	cwd := t.TempDir()
	writeFile(t, filepath.Join(cwd, FileNameJSON), []byte(`{"max_pages":5,"trailer_pages":3,"delay":"2s","sink":"memory"}`))

	eff, err := LoadEffective(cwd, CLIArgs{
		MaxPages:        0,
		MaxPagesSet:     true, // --max-pages=0
		TrailerPages:    0,
		TrailerPagesSet: true,
		Delay:           0,
		DelaySet:        true,
		Sink:            "dir",
		SinkSet:         true,
	})
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if eff.MaxPages != 0 || eff.TrailerPages != 0 || eff.Delay != 0 || eff.Sink != SinkDir {
		t.Fatalf("CLI 未覆盖配置文件：%+v", eff)
	}
}

func TestLoadEffective_EnvOverridesConfig(t *testing.T) {
	clearEnv(t)
	cwd := t.TempDir()
	writeFile(t, filepath.Join(cwd, FileNameJSON), []byte(`{"sink":"dir","redis":{"addr":"file:6379"}}`))
	t.Setenv(EnvSink, "redis")
	t.Setenv(EnvRedisAddr, "env:6379")
	t.Setenv(EnvLogLevel, "debug")

	eff, err := LoadEffective(cwd, CLIArgs{})
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if eff.Sink != SinkRedis || eff.RedisAddr != "env:6379" {
		t.Fatalf("环境变量未覆盖配置文件：%+v", eff)
	}
	if eff.LogLevel != slog.LevelDebug {
		t.Fatalf("期望 debug，实际 %v", eff.LogLevel)
	}

	// CLI 仍然优先于环境变量。
	eff, err = LoadEffective(cwd, CLIArgs{Sink: "memory", SinkSet: true})
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if eff.Sink != SinkMemory {
		t.Fatalf("期望 sink=memory，实际=%q", eff.Sink)
	}
}

func TestLoadEffective_DotEnvFiles(t *testing.T) {
	clearEnv(t)
	cwd := t.TempDir()
	writeFile(t, filepath.Join(cwd, ".env"), []byte("ANIGALLERY_GCS_BUCKET=from-env\nANIGALLERY_SINK=gcs\n"))
	writeFile(t, filepath.Join(cwd, ".env.local"), []byte("ANIGALLERY_GCS_BUCKET=from-local\n"))

	eff, err := LoadEffective(cwd, CLIArgs{})
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if eff.Sink != SinkGCS || eff.GCSBucket != "from-local" {
		t.Fatalf(".env.local 应优先于 .env：%+v", eff)
	}
	if _, ok := os.LookupEnv(EnvGCSBucket); ok {
		t.Fatalf("读取 .env 不应修改进程环境变量")
	}

	// 真实环境变量优先于 .env 文件。
	t.Setenv(EnvGCSBucket, "from-process")
	eff, err = LoadEffective(cwd, CLIArgs{})
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if eff.GCSBucket != "from-process" {
		t.Fatalf("期望 from-process，实际 %q", eff.GCSBucket)
	}
}

func TestLoadEffective_CLIPath(t *testing.T) {
	clearEnv(t)
	cwd := t.TempDir()
	root := filepath.Join(cwd, "site")
	if err := os.MkdirAll(root, 0o755); err != nil {
		t.Fatalf("创建目录失败：%v", err)
	}
	writeFile(t, filepath.Join(root, FileNameJSON), []byte(`{"max_pages":2}`))

	eff, err := LoadEffective(cwd, CLIArgs{Path: "site"})
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if eff.Path != root || eff.MaxPages != 2 {
		t.Fatalf("期望读取 %q 下的配置，实际 %+v", root, eff)
	}
	if eff.OutputDir != filepath.Join(root, "public", "data") {
		t.Fatalf("output_dir 应位于 path 下，实际 %q", eff.OutputDir)
	}
}

func TestLoadEffective_Invalid(t *testing.T) {
	cases := map[string]string{
		"broken json":       `{`,
		"per_page":          `{"per_page":51}`,
		"negative max":      `{"max_pages":-1}`,
		"negative trailers": `{"trailer_pages":-2}`,
		"bad delay":         `{"delay":"soon"}`,
		"zero timeout":      `{"timeout":"0s"}`,
		"bad sink":          `{"sink":"s3"}`,
		"gcs no bucket":     `{"sink":"gcs"}`,
		"bad endpoint":      `{"endpoint":"ftp://x"}`,
		"bad proxy":         `{"proxy":{"url":"http://[::1"}}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			clearEnv(t)
			cwd := t.TempDir()
			writeFile(t, filepath.Join(cwd, FileNameJSON), []byte(body))

			_, err := LoadEffective(cwd, CLIArgs{})
			if Code(err) != ErrCodeInvalid {
				t.Fatalf("期望 %q，实际 err=%v (code=%q)", ErrCodeInvalid, err, Code(err))
			}
		})
	}
}

func TestLoadEffective_InvalidTOML(t *testing.T) {
	clearEnv(t)
	cwd := t.TempDir()
	writeFile(t, filepath.Join(cwd, FileNameTOML), []byte(`max_pages = "five`))

	_, err := LoadEffective(cwd, CLIArgs{})
	if Code(err) != ErrCodeInvalid {
		t.Fatalf("期望 %q，实际 err=%v (code=%q)", ErrCodeInvalid, err, Code(err))
	}
}

func TestParseDelay(t *testing.T) {
	cases := map[string]time.Duration{
		"1000":  time.Second,
		"0":     0,
		"1.5s":  1500 * time.Millisecond,
		"250ms": 250 * time.Millisecond,
	}
	for in, want := range cases {
		got, err := ParseDelay(in)
		if err != nil {
			t.Fatalf("ParseDelay(%q) 不期望错误：%v", in, err)
		}
		if got != want {
			t.Fatalf("ParseDelay(%q)=%s，期望 %s", in, got, want)
		}
	}
	if _, err := ParseDelay("later"); err == nil {
		t.Fatalf("期望错误，但得到 nil")
	}
}

func writeFile(t *testing.T, path string, b []byte) {
	t.Helper()
	if err := os.WriteFile(path, b, 0o644); err != nil {
		t.Fatalf("写入文件失败 %q：%v", path, err)
	}
}
