package config

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watcher 配置文件监控器
// 文件变化后重新加载并通过回调下发新配置，验证失败的配置不会下发
type Watcher struct {
	configPath  string
	watcher     *fsnotify.Watcher
	onUpdate    func(*Config)
	mu          sync.RWMutex
	isWatching  bool
	lastModTime time.Time
	errorChan   chan error
}

// NewWatcher 创建配置监控器
func NewWatcher(configPath string, onUpdate func(*Config)) (*Watcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("创建文件监控器失败: %v", err)
	}

	// 获取配置文件所在目录
	configDir := filepath.Dir(configPath)
	if configDir == "" || configDir == "." {
		// 使用当前目录
		var err error
		configDir, err = os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("获取当前目录失败: %v", err)
		}
		configPath = filepath.Join(configDir, filepath.Base(configPath))
	}

	// 获取初始修改时间
	var lastModTime time.Time
	if info, err := os.Stat(configPath); err == nil {
		lastModTime = info.ModTime()
	}

	return &Watcher{
		configPath:  configPath,
		watcher:     watcher,
		onUpdate:    onUpdate,
		lastModTime: lastModTime,
		errorChan:   make(chan error, 10),
	}, nil
}

// Start 开始监控配置文件
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.isWatching {
		return fmt.Errorf("配置监控器已经在运行")
	}

	// 添加配置文件所在目录到监控
	configDir := filepath.Dir(w.configPath)
	if err := w.watcher.Add(configDir); err != nil {
		return fmt.Errorf("添加监控目录失败: %v", err)
	}

	w.isWatching = true

	// 启动监控协程
	go w.watchLoop(ctx)

	return nil
}

// Stop 停止监控
func (w *Watcher) Stop() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.isWatching {
		return nil
	}

	w.isWatching = false
	return w.watcher.Close()
}

// watchLoop 监控循环
func (w *Watcher) watchLoop(ctx context.Context) {
	ticker := time.NewTicker(1 * time.Second) // 每秒检查一次
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			// 检查是否是目标配置文件的变化
			if event.Name == w.configPath {
				if event.Op&fsnotify.Write == fsnotify.Write || event.Op&fsnotify.Create == fsnotify.Create {
					// 延迟处理，避免文件正在写入时读取
					time.Sleep(100 * time.Millisecond)
					w.handleConfigChange()
				}
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			select {
			case w.errorChan <- err:
			default:
			}

		case <-ticker.C:
			// 定期检查文件修改时间（作为备用机制）
			w.checkFileModTime()
		}
	}
}

// handleConfigChange 处理配置文件变化
func (w *Watcher) handleConfigChange() {
	w.mu.Lock()
	defer w.mu.Unlock()

	// 检查文件修改时间，避免重复处理
	info, err := os.Stat(w.configPath)
	if err != nil {
		select {
		case w.errorChan <- fmt.Errorf("获取文件信息失败: %v", err):
		default:
		}
		return
	}

	modTime := info.ModTime()
	if modTime.Equal(w.lastModTime) || modTime.Before(w.lastModTime) {
		// 文件未真正修改
		return
	}

	w.lastModTime = modTime

	// 重新加载配置，验证失败的配置不下发
	newConfig, err := LoadConfig(w.configPath)
	if err != nil {
		select {
		case w.errorChan <- fmt.Errorf("重新加载配置失败: %v", err):
		default:
		}
		return
	}

	if w.onUpdate != nil {
		w.onUpdate(newConfig)
	}
}

// checkFileModTime 检查文件修改时间（备用机制）
func (w *Watcher) checkFileModTime() {
	w.mu.RLock()
	lastModTime := w.lastModTime
	w.mu.RUnlock()

	info, err := os.Stat(w.configPath)
	if err != nil {
		return
	}

	if info.ModTime().After(lastModTime) {
		w.handleConfigChange()
	}
}

// GetErrorChan 获取错误通道
func (w *Watcher) GetErrorChan() <-chan error {
	return w.errorChan
}
