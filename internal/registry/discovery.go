package registry

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/nerdneilsfield/go-okapi/pkg/errs"
	"github.com/nerdneilsfield/go-okapi/pkg/filter"
)

// ConfigPattern 自定义配置文件的匹配模式
const ConfigPattern = "**/*.fprm"

// configSeparator 文件名中过滤器名与配置名的分隔符，例如 okf_plaintext@trimmed.fprm
const configSeparator = "@"

// Discover 扫描目录下的自定义配置并注册，返回注册数
//
// 单个文件无效时记录警告并跳过。
func (r *Registry) Discover(dir string) (int, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return 0, errs.IO("registry.Discover", err)
	}
	if !info.IsDir() {
		return 0, errs.BadParameters("registry.Discover", fmt.Sprintf("%s is not a directory", dir), nil)
	}
	matches, err := doublestar.Glob(os.DirFS(dir), ConfigPattern)
	if err != nil {
		return 0, errs.BadParameters("registry.Discover", "bad configuration pattern", err)
	}

	count := 0
	for _, rel := range matches {
		path := filepath.Join(dir, filepath.FromSlash(rel))
		c, err := LoadConfiguration(path)
		if err == nil {
			err = r.RegisterConfiguration(c)
		}
		if err != nil {
			r.logger.Warn("skipping filter configuration", zap.String("path", path), zap.Error(err))
			continue
		}
		count++
	}
	r.logger.Debug("filter configurations discovered", zap.String("dir", dir), zap.Int("count", count))
	return count, nil
}

// LoadConfiguration 读取一个自定义配置文件
func LoadConfiguration(path string) (filter.Configuration, error) {
	id := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	filterName, _, ok := strings.Cut(id, configSeparator)
	if !ok || filterName == "" {
		return filter.Configuration{}, errs.BadInput("registry.LoadConfiguration",
			fmt.Sprintf("%s: name must look like <filter>%s<name>.fprm", path, configSeparator), nil)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return filter.Configuration{}, errs.IO("registry.LoadConfiguration", err)
	}
	return filter.Configuration{
		ID:          id,
		FilterName:  filterName,
		Name:        id,
		Description: "Custom configuration from " + path,
		Parameters:  string(data),
		Custom:      true,
	}, nil
}

// Watch 监视目录，配置文件变化后重新发现，直到 ctx 结束
//
// onReload 可以为空，每次重新加载后以注册数与错误调用。
func (r *Registry) Watch(ctx context.Context, dir string, onReload func(count int, err error)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return errs.IO("registry.Watch", err)
	}
	defer watcher.Close()

	if err := addRecursive(watcher, dir); err != nil {
		return err
	}
	r.logger.Info("watching filter configurations", zap.String("dir", dir))

	// 编辑器保存时常产生一串事件，合并后再重新加载
	const settle = 100 * time.Millisecond
	timer := time.NewTimer(settle)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if ev.Has(fsnotify.Create) {
				if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
					_ = addRecursive(watcher, ev.Name)
				}
			}
			if ok, _ := doublestar.Match("*.fprm", filepath.Base(ev.Name)); !ok {
				continue
			}
			r.logger.Debug("filter configuration changed", zap.String("path", ev.Name), zap.String("op", ev.Op.String()))
			timer.Reset(settle)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			r.logger.Warn("configuration watcher error", zap.Error(err))
		case <-timer.C:
			r.RemoveCustomConfigurations()
			n, err := r.Discover(dir)
			if err != nil {
				r.logger.Error("reloading filter configurations failed", zap.Error(err))
			} else {
				r.logger.Info("filter configurations reloaded", zap.Int("count", n))
			}
			if onReload != nil {
				onReload(n, err)
			}
		}
	}
}

func addRecursive(watcher *fsnotify.Watcher, dir string) error {
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return watcher.Add(path)
		}
		return nil
	})
	return errs.IO("registry.Watch", err)
}
