package logging

import (
	"errors"
	"fmt"
	"sync"
)

// Имена компонентов, под которыми процесс заводит логгеры.
const (
	ComponentSession     = "session"
	ComponentGame        = "game"
	ComponentReplication = "replication"
	ComponentStorage     = "storage"
	ComponentEvents      = "events"
	ComponentAPI         = "api"
)

// LoggerManager держит по одному логгеру на компонент
type LoggerManager struct {
	mu      sync.RWMutex
	loggers map[string]*Logger
}

var (
	globalManager *LoggerManager
	managerOnce   sync.Once
)

// GetLoggerManager возвращает общий для процесса менеджер
func GetLoggerManager() *LoggerManager {
	managerOnce.Do(func() {
		globalManager = &LoggerManager{loggers: make(map[string]*Logger)}
	})
	return globalManager
}

// GetLogger возвращает логгер компонента, создавая его при первом обращении
func (lm *LoggerManager) GetLogger(component string) (*Logger, error) {
	lm.mu.RLock()
	l, ok := lm.loggers[component]
	lm.mu.RUnlock()
	if ok {
		return l, nil
	}

	lm.mu.Lock()
	defer lm.mu.Unlock()
	if l, ok := lm.loggers[component]; ok {
		return l, nil
	}
	l, err := NewLogger(component)
	if err != nil {
		return nil, fmt.Errorf("logger %s: %w", component, err)
	}
	lm.loggers[component] = l
	return l, nil
}

// MustGetLogger при ошибке открытия файла отдаёт логгер только в stdout
func (lm *LoggerManager) MustGetLogger(component string) *Logger {
	l, err := lm.GetLogger(component)
	if err != nil {
		return &Logger{
			component:       component,
			consoleLogger:   defaultLogger.consoleLogger,
			minConsoleLevel: INFO,
			minFileLevel:    ERROR,
		}
	}
	return l
}

// CloseAll закрывает файлы всех компонентов. Следующий GetLogger создаст логгер заново.
func (lm *LoggerManager) CloseAll() error {
	lm.mu.Lock()
	defer lm.mu.Unlock()

	var errs []error
	for name, l := range lm.loggers {
		if err := l.Close(); err != nil {
			errs = append(errs, fmt.Errorf("logger %s: %w", name, err))
		}
	}
	lm.loggers = make(map[string]*Logger)
	return errors.Join(errs...)
}

func GetComponentLogger(component string) *Logger {
	return GetLoggerManager().MustGetLogger(component)
}

func GetSessionLogger() *Logger     { return GetComponentLogger(ComponentSession) }
func GetGameLogger() *Logger        { return GetComponentLogger(ComponentGame) }
func GetReplicationLogger() *Logger { return GetComponentLogger(ComponentReplication) }
func GetStorageLogger() *Logger     { return GetComponentLogger(ComponentStorage) }
