package sink

import (
	"context"
	"sort"
	"sync"
)

// Memory 把 artifact 保存在内存里（测试与 --sink memory 演练使用）。
type Memory struct {
	mu    sync.Mutex
	items map[string][]byte
	puts  []string
}

func NewMemory() *Memory { return &Memory{items: map[string][]byte{}} }

func (m *Memory) Put(ctx context.Context, name string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	b := make([]byte, len(data))
	copy(b, data)

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.items == nil {
		m.items = map[string][]byte{}
	}
	m.items[name] = b
	m.puts = append(m.puts, name)
	return nil
}

// Get 返回 name 的内容副本。
func (m *Memory) Get(name string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.items[name]
	if !ok {
		return nil, false
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out, true
}

// Names 返回已写入的 artifact 名（字典序）。
func (m *Memory) Names() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.items))
	for k := range m.items {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Puts 返回 Put 的调用顺序（含重复写入）。
func (m *Memory) Puts() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.puts...)
}

func (m *Memory) Location(name string) string { return "memory:" + name }

func (m *Memory) String() string { return "memory" }
