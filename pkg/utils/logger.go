package utils

import (
	"os"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// ============================================================
// Структурированное логирование (zap)
// ============================================================
//
// Единая точка настройки логирования для всего бота:
// - Формат JSON (production) или text (разработка)
// - Уровни: debug, info, warn, error, fatal
// - Вывод в stderr или файл с ротацией (lumberjack)
// - Доменные конструкторы полей (Exchange, Symbol, Spread, ...)
//   чтобы ключи были одинаковыми во всех компонентах

// LogConfig конфигурация логгера
type LogConfig struct {
	Level       string // debug, info, warn, error, fatal
	Format      string // json, text
	Development bool   // режим разработки (caller, человекочитаемое время)
	Output      string // путь к файлу ("" = stderr)

	// Ротация лог-файла (используется только если Output задан)
	MaxSizeMB  int  // максимальный размер файла до ротации
	MaxBackups int  // сколько старых файлов хранить
	MaxAgeDays int  // сколько дней хранить
	Compress   bool // сжимать ротированные файлы
}

// Logger обёртка над zap.Logger с sugar-вариантом для printf-style логов
type Logger struct {
	*zap.Logger
	sugar *zap.SugaredLogger
}

// parseLevel преобразует строку уровня в zapcore.Level
// Неизвестные значения превращаются в info
func parseLevel(level string) zapcore.Level {
	switch strings.ToLower(level) {
	case "debug":
		return zapcore.DebugLevel
	case "info":
		return zapcore.InfoLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	case "fatal":
		return zapcore.FatalLevel
	default:
		return zapcore.InfoLevel
	}
}

// buildEncoder создаёт encoder в зависимости от формата
func buildEncoder(format string, development bool) zapcore.Encoder {
	encCfg := zap.NewProductionEncoderConfig()
	encCfg.TimeKey = "ts"
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	if development {
		encCfg = zap.NewDevelopmentEncoderConfig()
	}

	if strings.ToLower(format) == "text" {
		return zapcore.NewConsoleEncoder(encCfg)
	}
	return zapcore.NewJSONEncoder(encCfg)
}

// buildSink выбирает назначение вывода
//
// Если Output задан, пишем в файл с ротацией через lumberjack.
// Если файл открыть нельзя — fallback на stderr, НЕ паникуем:
// бот без лог-файла работать может, без процесса — нет.
func buildSink(cfg LogConfig) zapcore.WriteSyncer {
	if cfg.Output == "" {
		return zapcore.AddSync(os.Stderr)
	}

	// Проверяем что путь доступен для записи
	f, err := os.OpenFile(cfg.Output, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return zapcore.AddSync(os.Stderr)
	}
	f.Close()

	maxSize := cfg.MaxSizeMB
	if maxSize <= 0 {
		maxSize = 100
	}

	return zapcore.AddSync(&lumberjack.Logger{
		Filename:   cfg.Output,
		MaxSize:    maxSize,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAgeDays,
		Compress:   cfg.Compress,
	})
}

// InitLogger создаёт и настраивает новый логгер
func InitLogger(cfg LogConfig) *Logger {
	core := zapcore.NewCore(
		buildEncoder(cfg.Format, cfg.Development),
		buildSink(cfg),
		parseLevel(cfg.Level),
	)

	opts := []zap.Option{}
	if cfg.Development {
		opts = append(opts, zap.Development(), zap.AddCaller())
	}

	zl := zap.New(core, opts...)

	return &Logger{
		Logger: zl,
		sugar:  zl.Sugar(),
	}
}

// Sugar возвращает sugared-логгер для printf-style вызовов
func (l *Logger) Sugar() *zap.SugaredLogger {
	return l.sugar
}

// With возвращает новый логгер с добавленными полями
func (l *Logger) With(fields ...zap.Field) *Logger {
	zl := l.Logger.With(fields...)
	return &Logger{Logger: zl, sugar: zl.Sugar()}
}

// WithComponent возвращает логгер с полем component
func (l *Logger) WithComponent(name string) *Logger {
	return l.With(Component(name))
}

// WithExchange возвращает логгер с полем exchange
func (l *Logger) WithExchange(name string) *Logger {
	return l.With(Exchange(name))
}

// WithSymbol возвращает логгер с полем symbol
func (l *Logger) WithSymbol(symbol string) *Logger {
	return l.With(Symbol(symbol))
}

// WithPair возвращает логгер с полем pair (натуральный ключ позиции)
func (l *Logger) WithPair(pair string) *Logger {
	return l.With(Pair(pair))
}

// ============================================================
// Глобальный логгер
// ============================================================

var (
	globalLogger *Logger
	globalMu     sync.Mutex
)

// InitGlobalLogger инициализирует глобальный логгер из конфигурации
func InitGlobalLogger(cfg LogConfig) *Logger {
	logger := InitLogger(cfg)
	SetGlobalLogger(logger)
	return logger
}

// SetGlobalLogger устанавливает глобальный логгер
func SetGlobalLogger(l *Logger) {
	globalMu.Lock()
	defer globalMu.Unlock()
	globalLogger = l
}

// GetGlobalLogger возвращает глобальный логгер,
// при первом обращении создаёт логгер по умолчанию
func GetGlobalLogger() *Logger {
	globalMu.Lock()
	defer globalMu.Unlock()
	if globalLogger == nil {
		globalLogger = InitLogger(LogConfig{Level: "info", Format: "json"})
	}
	return globalLogger
}

// L сокращение для GetGlobalLogger
func L() *Logger {
	return GetGlobalLogger()
}

// Глобальные функции логирования

func Debug(msg string, fields ...zap.Field) { L().Debug(msg, fields...) }
func Info(msg string, fields ...zap.Field)  { L().Info(msg, fields...) }
func Warn(msg string, fields ...zap.Field)  { L().Warn(msg, fields...) }
func Error(msg string, fields ...zap.Field) { L().Error(msg, fields...) }
func Fatal(msg string, fields ...zap.Field) { L().Fatal(msg, fields...) }

func Debugf(format string, args ...interface{}) { L().sugar.Debugf(format, args...) }
func Infof(format string, args ...interface{})  { L().sugar.Infof(format, args...) }
func Warnf(format string, args ...interface{})  { L().sugar.Warnf(format, args...) }
func Errorf(format string, args ...interface{}) { L().sugar.Errorf(format, args...) }

// ============================================================
// Доменные конструкторы полей
// ============================================================
//
// Централизованные ключи, чтобы в дашбордах поля назывались
// одинаково независимо от того, какой компонент их пишет.

func Component(name string) zap.Field   { return zap.String("component", name) }
func Exchange(name string) zap.Field    { return zap.String("exchange", name) }
func Symbol(symbol string) zap.Field    { return zap.String("symbol", symbol) }
func Pair(pair string) zap.Field        { return zap.String("pair", pair) }
func OrderID(id string) zap.Field       { return zap.String("order_id", id) }
func PositionID(id string) zap.Field    { return zap.String("position_id", id) }
func Price(p float64) zap.Field         { return zap.Float64("price", p) }
func Quantity(q float64) zap.Field      { return zap.Float64("quantity", q) }
func Spread(pct float64) zap.Field      { return zap.Float64("spread", pct) }
func SlippageBps(bps float64) zap.Field { return zap.Float64("slippage_bps", bps) }
func PNL(v float64) zap.Field           { return zap.Float64("pnl", v) }
func Side(side string) zap.Field        { return zap.String("side", side) }
func Status(status string) zap.Field    { return zap.String("status", status) }
func Direction(dir string) zap.Field    { return zap.String("direction", dir) }
func Latency(ms float64) zap.Field      { return zap.Float64("latency_ms", ms) }
func Attempt(n int) zap.Field           { return zap.Int("attempt", n) }

// Переэкспорт стандартных конструкторов zap,
// чтобы вызывающему коду не импортировать zap напрямую

func String(key, value string) zap.Field          { return zap.String(key, value) }
func Int(key string, value int) zap.Field         { return zap.Int(key, value) }
func Int64(key string, value int64) zap.Field     { return zap.Int64(key, value) }
func Float64(key string, v float64) zap.Field     { return zap.Float64(key, v) }
func Bool(key string, value bool) zap.Field       { return zap.Bool(key, value) }
func Err(err error) zap.Field                     { return zap.Error(err) }
func Any(key string, value interface{}) zap.Field { return zap.Any(key, value) }

// fieldsToInterface конвертирует zap.Field в пары key/value
// для передачи в sugared-логгер
func fieldsToInterface(fields []zap.Field) []interface{} {
	args := make([]interface{}, 0, len(fields)*2)
	for _, f := range fields {
		args = append(args, f.Key)
		switch {
		case f.Interface != nil:
			args = append(args, f.Interface)
		case f.String != "":
			args = append(args, f.String)
		default:
			args = append(args, f.Integer)
		}
	}
	return args
}
