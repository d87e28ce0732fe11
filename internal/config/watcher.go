package config

import (
	"fmt"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

// ConfigWatcher 配置监听器
// 文件变更后重新加载并通知回调,非法配置被忽略
type ConfigWatcher struct {
	config     *Config
	configPath string
	viper      *viper.Viper
	logger     *logrus.Logger
	callbacks  []func(*Config)
	mu         sync.RWMutex
	stopped    bool
	stopMu     sync.RWMutex
}

// NewConfigWatcher 创建配置监听器
func NewConfigWatcher(cfg *Config, configPath string, logger *logrus.Logger) *ConfigWatcher {
	v := newViper()
	v.SetConfigFile(configPath)
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	return &ConfigWatcher{
		config:     cfg,
		configPath: configPath,
		viper:      v,
		logger:     logger,
		callbacks:  make([]func(*Config), 0),
	}
}

// OnConfigChange 注册配置变更回调
func (w *ConfigWatcher) OnConfigChange(callback func(*Config)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.callbacks = append(w.callbacks, callback)
}

// Start 启动配置监听
func (w *ConfigWatcher) Start() error {
	if err := w.viper.ReadInConfig(); err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	w.viper.OnConfigChange(func(e fsnotify.Event) {
		w.reload(e.Name)
	})
	w.viper.WatchConfig()
	return nil
}

// reload 重新解析配置并依次调用回调
func (w *ConfigWatcher) reload(name string) {
	w.stopMu.RLock()
	stopped := w.stopped
	w.stopMu.RUnlock()
	if stopped {
		return
	}

	newCfg, err := unmarshal(w.viper)
	if err != nil {
		w.logger.WithError(err).WithField("file", name).Warn("Ignoring invalid config change")
		return
	}

	w.mu.Lock()
	w.config = newCfg
	callbacks := make([]func(*Config), len(w.callbacks))
	copy(callbacks, w.callbacks)
	w.mu.Unlock()

	// 回调在锁外执行,避免死锁
	for _, callback := range callbacks {
		callback(newCfg)
	}
	w.logger.WithField("file", name).Info("Config reloaded")
}

// Stop 停止配置监听
func (w *ConfigWatcher) Stop() {
	w.stopMu.Lock()
	defer w.stopMu.Unlock()
	w.stopped = true
}

// GetConfig 获取当前配置
func (w *ConfigWatcher) GetConfig() *Config {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.config
}
