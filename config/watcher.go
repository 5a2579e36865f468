// 配置文件变更监听器实现。
//
// 以轮询修改时间的方式检测配置文件变化，变化后重新加载并回调。
package config

import (
	"context"
	"os"
	"time"

	"go.uber.org/zap"
)

// --- 文件监听器 ---

// FileWatcher 轮询配置文件，文件变化且可成功加载时回调新配置
type FileWatcher struct {
	loader   *Loader
	path     string
	interval time.Duration
	logger   *zap.Logger

	lastMod  time.Time
	lastSize int64
	lastSum  string
}

// WatcherOption configures the FileWatcher
type WatcherOption func(*FileWatcher)

// WithPollInterval sets how often the file is checked
func WithPollInterval(d time.Duration) WatcherOption {
	return func(w *FileWatcher) {
		if d > 0 {
			w.interval = d
		}
	}
}

// WithWatcherLogger sets the logger for the watcher
func WithWatcherLogger(logger *zap.Logger) WatcherOption {
	return func(w *FileWatcher) {
		if logger != nil {
			w.logger = logger
		}
	}
}

// NewFileWatcher creates a watcher that reloads path through loader
func NewFileWatcher(loader *Loader, path string, opts ...WatcherOption) *FileWatcher {
	w := &FileWatcher{
		loader:   loader.WithConfigPath(path),
		path:     path,
		interval: 2 * time.Second,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(w)
	}
	w.logger = w.logger.With(zap.String("component", "config_watcher"))
	if info, err := os.Stat(path); err == nil {
		w.lastMod, w.lastSize = info.ModTime(), info.Size()
	}
	if cfg, err := w.loader.Load(); err == nil {
		w.lastSum = cfg.Fingerprint()
	}
	return w
}

// Run 阻塞直到 ctx 结束。每次检测到有效变更时调用 onChange。
func (w *FileWatcher) Run(ctx context.Context, onChange func(*Config)) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if cfg, ok := w.Check(); ok {
				onChange(cfg)
			}
		}
	}
}

// Check 检查一次文件，返回变更后的新配置
func (w *FileWatcher) Check() (*Config, bool) {
	info, err := os.Stat(w.path)
	if err != nil {
		w.logger.Debug("config file not readable", zap.String("path", w.path), zap.Error(err))
		return nil, false
	}
	if info.ModTime().Equal(w.lastMod) && info.Size() == w.lastSize {
		return nil, false
	}
	w.lastMod, w.lastSize = info.ModTime(), info.Size()

	cfg, err := w.loader.Load()
	if err != nil {
		w.logger.Warn("config reload failed, keeping previous", zap.String("path", w.path), zap.Error(err))
		return nil, false
	}
	if err := cfg.Conversation.Validate(); err != nil {
		w.logger.Warn("reloaded config invalid, keeping previous", zap.Error(err))
		return nil, false
	}

	sum := cfg.Fingerprint()
	if sum == w.lastSum {
		return nil, false
	}
	w.lastSum = sum
	w.logger.Info("config file changed", zap.String("path", w.path), zap.String("fingerprint", sum))
	return cfg, true
}
