package ingest

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"sync"
)

// Checkpoint 已处理文件日志，每行一个绝对路径，只追加
type Checkpoint struct {
	mu   sync.Mutex
	path string
	done map[string]struct{}
}

// OpenCheckpoint 读取日志，文件不存在视为空
func OpenCheckpoint(path string) (*Checkpoint, error) {
	cp := &Checkpoint{path: path, done: make(map[string]struct{})}

	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cp, nil
		}
		return nil, fmt.Errorf("failed to open checkpoint %s: %w", path, err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line != "" {
			cp.done[line] = struct{}{}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read checkpoint %s: %w", path, err)
	}
	return cp, nil
}

// Done 文件是否已处理
func (c *Checkpoint) Done(path string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.done[path]
	return ok
}

// Mark 追加一条记录并落盘
func (c *Checkpoint) Mark(path string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.done[path]; ok {
		return nil
	}

	f, err := os.OpenFile(c.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open checkpoint %s: %w", c.path, err)
	}
	if _, err := f.WriteString(path + "\n"); err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to append checkpoint: %w", err)
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to sync checkpoint: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close checkpoint: %w", err)
	}

	c.done[path] = struct{}{}
	return nil
}

// Len 已处理文件数
func (c *Checkpoint) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.done)
}
