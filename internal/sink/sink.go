package sink

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// Sink 是 artifact 的持久化策略。
//
// 约束：
// - Put 总是整体覆盖同名 artifact（无追加、无合并）
// - Location 只做展示用途（写进 report），不保证可直接访问
type Sink interface {
	Put(ctx context.Context, name string, data []byte) error
	Location(name string) string
	String() string
}

// Error 是 sink 写入失败的统一错误类型（上层映射为 error_code=io_failed）。
type Error struct {
	Sink string
	Name string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("写入 %s 失败（%s）：%v", e.Name, e.Sink, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// IsError 判断 err 是否为 sink 写入错误。
func IsError(err error) bool {
	var e *Error
	return errors.As(err, &e)
}

// FileName 返回 category 对应的 artifact 文件名。
func FileName(category string) string { return category + ".json" }

// Encode 以两空格缩进序列化 v，并补一个结尾换行。
func Encode(v any) ([]byte, error) {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(b, '\n'), nil
}

// Save 把 v 序列化后写入 s，返回写入位置。
func Save(ctx context.Context, s Sink, category string, v any) (string, error) {
	name := FileName(category)
	b, err := Encode(v)
	if err != nil {
		return "", &Error{Sink: s.String(), Name: name, Err: err}
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if err := s.Put(ctx, name, b); err != nil {
		if IsError(err) {
			return "", err
		}
		return "", &Error{Sink: s.String(), Name: name, Err: err}
	}
	return s.Location(name), nil
}
