// Package logger is RAMOSE's process-wide structured logging sink: a
// package-level zap.SugaredLogger plus a pluggable error-tracking hook
// invoked from the Warn/Error/panic paths.
package logger

import (
	"context"
	"fmt"
	"log"
	"os"
	"runtime/debug"

	"github.com/opencitations/ramose/pkg/errortracking"
	"go.uber.org/zap"
)

var Logger *zap.SugaredLogger
var errorTracker errortracking.Provider

// Init builds the default development or production zap configuration.
func Init(dev bool) {
	if dev {
		cfg := zap.NewDevelopmentConfig()
		UpdateLogger(&cfg)
	} else {
		cfg := zap.NewProductionConfig()
		UpdateLogger(&cfg)
	}
}

// UpdateLoggerPath rebuilds the logger writing to a specific output
// path.
func UpdateLoggerPath(path string, dev bool) {
	cfg := zap.NewProductionConfig()
	if dev {
		cfg = zap.NewDevelopmentConfig()
	}
	cfg.OutputPaths = []string{path}
	UpdateLogger(&cfg)
}

// UpdateLogger rebuilds the package-level logger from config.
func UpdateLogger(cfg *zap.Config) {
	defaultConfig := zap.NewProductionConfig()
	defaultConfig.OutputPaths = []string{"ramose.log"}
	if cfg == nil {
		cfg = &defaultConfig
	}

	built, err := cfg.Build()
	if err != nil {
		log.Print(err)
		return
	}

	Logger = built.Sugar()
	Info("RAMOSE logger initialized")
}

// InitErrorTracking wires the error-tracking provider that Warn/Error/
// panic paths forward to.
func InitErrorTracking(provider errortracking.Provider) {
	errorTracker = provider
	if errorTracker != nil {
		Info("error tracking initialized")
	}
}

// GetErrorTracker returns the currently configured provider, if any.
func GetErrorTracker() errortracking.Provider {
	return errorTracker
}

// CloseErrorTracking flushes and closes the error-tracking provider.
func CloseErrorTracking() error {
	if errorTracker != nil {
		errorTracker.Flush(5)
		return errorTracker.Close()
	}
	return nil
}

func Info(template string, args ...interface{}) {
	if Logger == nil {
		log.Printf(template, args...)
		return
	}
	Logger.Infow(fmt.Sprintf(template, args...), "process_id", os.Getpid())
}

func Warn(template string, args ...interface{}) {
	message := fmt.Sprintf(template, args...)
	if Logger == nil {
		log.Printf("%s", message)
	} else {
		Logger.Warnw(message, "process_id", os.Getpid())
	}

	if errorTracker != nil {
		errorTracker.CaptureMessage(context.Background(), message, errortracking.SeverityWarning, map[string]interface{}{
			"process_id": os.Getpid(),
		})
	}
}

func Error(template string, args ...interface{}) {
	message := fmt.Sprintf(template, args...)
	if Logger == nil {
		log.Printf("%s", message)
	} else {
		Logger.Errorw(message, "process_id", os.Getpid())
	}

	if errorTracker != nil {
		errorTracker.CaptureMessage(context.Background(), message, errortracking.SeverityError, map[string]interface{}{
			"process_id": os.Getpid(),
		})
	}
}

func Debug(template string, args ...interface{}) {
	if Logger == nil {
		log.Printf(template, args...)
		return
	}
	Logger.Debugw(fmt.Sprintf(template, args...), "process_id", os.Getpid())
}

// CatchPanicCallback recovers a panic, logs it, reports it, and invokes
// cb with the recovered value. Intended to be deferred at the top of a
// goroutine that must not crash the process.
func CatchPanicCallback(location string, cb func(err any)) {
	if err := recover(); err != nil {
		stack := debug.Stack()

		if Logger != nil {
			Error("panic in %s: %v", location, err)
		} else {
			fmt.Printf("%s:PANIC->%+v", location, err)
			debug.PrintStack()
		}

		if errorTracker != nil {
			errorTracker.CapturePanic(context.Background(), err, stack, map[string]interface{}{
				"location":   location,
				"process_id": os.Getpid(),
			})
		}

		if cb != nil {
			cb(err)
		}
	}
}

// CatchPanic recovers a panic at location, logging and reporting it.
func CatchPanic(location string) {
	CatchPanicCallback(location, nil)
}

// HandlePanic logs a panic recovered from a deferred recover() call and
// returns it as an error, for handlers that need to turn a panic into a
// 500 response rather than crash.
func HandlePanic(methodName string, r any) error {
	stack := debug.Stack()
	Error("panic in %s: %v\nstack trace:\n%s", methodName, r, string(stack))

	if errorTracker != nil {
		errorTracker.CapturePanic(context.Background(), r, stack, map[string]interface{}{
			"method":     methodName,
			"process_id": os.Getpid(),
		})
	}

	return fmt.Errorf("panic in %s: %v", methodName, r)
}
