package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"

	"github.com/sirupsen/logrus"

	"media-service/pkg/config"
)

// Logger 封装 logrus，负责日志输出目标的生命周期
type Logger struct {
	entry *logrus.Logger
	file  *os.File
}

var global atomic.Pointer[Logger]

func init() {
	l := logrus.New()
	l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	global.Store(&Logger{entry: l})
}

// NewLogger 根据配置创建日志器；文件无法打开时回退到标准输出
func NewLogger(cfg *config.Config) *Logger {
	l := logrus.New()
	lc := config.LogConfig{}
	if cfg != nil {
		lc = cfg.Log
	}

	level, err := logrus.ParseLevel(strings.ToLower(lc.Level))
	if err != nil {
		level = logrus.InfoLevel
	}
	l.SetLevel(level)

	if strings.EqualFold(lc.Format, "text") {
		l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	} else {
		l.SetFormatter(&logrus.JSONFormatter{TimestampFormat: "2006-01-02T15:04:05.000Z07:00"})
	}

	out := &Logger{entry: l}
	switch strings.ToLower(lc.Output) {
	case "file":
		if f, err := openLogFile(lc.Filename); err == nil {
			out.file = f
			l.SetOutput(io.MultiWriter(os.Stdout, f))
		} else {
			l.SetOutput(os.Stdout)
			l.Warnf("open log file failed, fallback to stdout error=%v", err)
		}
	case "stderr":
		l.SetOutput(os.Stderr)
	default:
		l.SetOutput(os.Stdout)
	}
	return out
}

func openLogFile(name string) (*os.File, error) {
	if name == "" {
		name = "logs/media-service.log"
	}
	if err := os.MkdirAll(filepath.Dir(name), 0o755); err != nil {
		return nil, err
	}
	return os.OpenFile(name, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
}

// SetGlobalLogger 替换全局日志器
func SetGlobalLogger(l *Logger) {
	if l == nil {
		return
	}
	global.Store(l)
}

// SetOutput 重定向全局日志输出，测试中用于捕获日志
func SetOutput(w io.Writer) {
	global.Load().entry.SetOutput(w)
}

// Close 关闭日志文件
func (l *Logger) Close() {
	if l.file != nil {
		_ = l.file.Sync()
		_ = l.file.Close()
		l.file = nil
	}
}

// WithFields 返回携带字段的 logrus entry
func (l *Logger) WithFields(fields map[string]interface{}) *logrus.Entry {
	return l.entry.WithFields(logrus.Fields(fields))
}

func current() *logrus.Logger {
	return global.Load().entry
}

func withFields(fields []map[string]interface{}) *logrus.Entry {
	e := logrus.NewEntry(current())
	for _, f := range fields {
		if len(f) > 0 {
			e = e.WithFields(logrus.Fields(f))
		}
	}
	return e
}

func Debug(msg string, fields ...map[string]interface{}) { withFields(fields).Debug(msg) }
func Info(msg string, fields ...map[string]interface{})  { withFields(fields).Info(msg) }
func Warn(msg string, fields ...map[string]interface{})  { withFields(fields).Warn(msg) }
func Error(msg string, fields ...map[string]interface{}) { withFields(fields).Error(msg) }

func Debugf(format string, args ...interface{}) { current().Debugf(format, args...) }
func Infof(format string, args ...interface{})  { current().Infof(format, args...) }
func Warnf(format string, args ...interface{})  { current().Warnf(format, args...) }
func Errorf(format string, args ...interface{}) { current().Errorf(format, args...) }

// Fatal 记录日志后退出进程
func Fatal(msg string, fields ...map[string]interface{}) {
	withFields(fields).Fatal(msg)
}

// Fatalf 格式化版本的 Fatal
func Fatalf(format string, args ...interface{}) {
	Fatal(fmt.Sprintf(format, args...))
}
