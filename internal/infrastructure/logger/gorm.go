package logger

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"
	gormlogger "gorm.io/gorm/logger"
)

// ledgerTables are the tables whose writes settle or reverse money
var ledgerTables = map[string]bool{
	"pagos":               true,
	"pagos_mantenimiento": true,
	"multas":              true,
	"convenios":           true,
	"pagos_convenio":      true,
}

var statementTable = regexp.MustCompile("(?i)\\b(?:into|update|from)\\s+[`\"]?([a-z_][a-z0-9_]*)")

// GormLogger writes GORM statements through zap. Each entry carries the
// request context that logger.L adds (request, trace, resident and
// idempotency key) plus the table and operation, so the statements a
// checkout runs inside its transaction line up with the request that caused
// them. Writes to ledger tables are logged at info level.
type GormLogger struct {
	logger         *zap.Logger
	level          gormlogger.LogLevel
	slowThreshold  time.Duration
	ignoreNotFound bool
	isConflict     func(error) bool
}

// GormLoggerOption configures a GormLogger
type GormLoggerOption func(*GormLogger)

// WithSlowThreshold sets the duration above which a statement is logged as
// slow. Zero keeps the default.
func WithSlowThreshold(threshold time.Duration) GormLoggerOption {
	return func(l *GormLogger) {
		if threshold > 0 {
			l.slowThreshold = threshold
		}
	}
}

// WithIgnoreRecordNotFoundError drops lookups that matched no row
func WithIgnoreRecordNotFoundError(ignore bool) GormLoggerOption {
	return func(l *GormLogger) {
		l.ignoreNotFound = ignore
	}
}

// WithConflictClassifier marks errors the caller answers as a conflict,
// such as a second checkout inserting an already written period. They are
// logged as warnings instead of SQL errors.
func WithConflictClassifier(fn func(error) bool) GormLoggerOption {
	return func(l *GormLogger) {
		l.isConflict = fn
	}
}

// NewGormLogger creates a GORM logger backed by zap
func NewGormLogger(zapLogger *zap.Logger, level gormlogger.LogLevel, opts ...GormLoggerOption) *GormLogger {
	gl := &GormLogger{
		logger:         zapLogger.Named("sql"),
		level:          level,
		slowThreshold:  200 * time.Millisecond,
		ignoreNotFound: true,
	}
	for _, opt := range opts {
		opt(gl)
	}
	return gl
}

// LogMode implements gormlogger.Interface
func (l *GormLogger) LogMode(level gormlogger.LogLevel) gormlogger.Interface {
	clone := *l
	clone.level = level
	return &clone
}

// Info implements gormlogger.Interface
func (l *GormLogger) Info(ctx context.Context, msg string, data ...any) {
	if l.level >= gormlogger.Info {
		l.forContext(ctx).Sugar().Infof(msg, data...)
	}
}

// Warn implements gormlogger.Interface
func (l *GormLogger) Warn(ctx context.Context, msg string, data ...any) {
	if l.level >= gormlogger.Warn {
		l.forContext(ctx).Sugar().Warnf(msg, data...)
	}
}

// Error implements gormlogger.Interface
func (l *GormLogger) Error(ctx context.Context, msg string, data ...any) {
	if l.level >= gormlogger.Error {
		l.forContext(ctx).Sugar().Errorf(msg, data...)
	}
}

// Trace implements gormlogger.Interface
func (l *GormLogger) Trace(ctx context.Context, begin time.Time, fc func() (sql string, rowsAffected int64), err error) {
	if l.level <= gormlogger.Silent {
		return
	}
	if err != nil && l.ignoreNotFound && errors.Is(err, gormlogger.ErrRecordNotFound) {
		return
	}

	elapsed := time.Since(begin)
	sql, rows := fc()
	op, table := describeStatement(sql)
	log := l.forContext(ctx).With(
		zap.String("op", op),
		zap.String("table", table),
		zap.Duration("elapsed", elapsed),
		zap.Int64("rows", rows),
		zap.String("sql", sql),
	)
	write := op != "SELECT" && ledgerTables[table]

	switch {
	case err != nil && l.isConflict != nil && l.isConflict(err):
		if l.level >= gormlogger.Warn {
			log.Warn("SQL conflict", zap.Error(err))
		}
	case err != nil:
		if l.level >= gormlogger.Error {
			log.Error("SQL error", zap.Error(err))
		}
	case l.slowThreshold > 0 && elapsed > l.slowThreshold:
		if l.level >= gormlogger.Warn {
			log.Warn("slow SQL", zap.Duration("threshold", l.slowThreshold))
		}
	case l.level >= gormlogger.Info && write:
		log.Info("ledger write")
	case l.level >= gormlogger.Info:
		log.Debug("SQL query")
	}
}

// forContext adds the request context fields to the sql logger. The
// request_id is always added since the sql logger is not the request one.
func (l *GormLogger) forContext(ctx context.Context) *zap.Logger {
	fields := contextFields(ctx, true)
	if len(fields) == 0 {
		return l.logger
	}
	return l.logger.With(fields...)
}

// describeStatement returns the SQL verb and the first table it names
func describeStatement(sql string) (op, table string) {
	trimmed := strings.TrimSpace(sql)
	if i := strings.IndexAny(trimmed, " \n\t"); i > 0 {
		op = strings.ToUpper(trimmed[:i])
	} else {
		op = strings.ToUpper(trimmed)
	}
	// skip column references such as EXTRACT(MONTH FROM m.fecha_pago)
	for _, m := range statementTable.FindAllStringSubmatchIndex(trimmed, -1) {
		if m[1] < len(trimmed) && strings.ContainsRune(".(),", rune(trimmed[m[1]])) {
			continue
		}
		table = strings.ToLower(trimmed[m[2]:m[3]])
		break
	}
	return op, table
}

// MapGormLogLevel maps the application log level to a GORM log level
func MapGormLogLevel(level string) gormlogger.LogLevel {
	switch level {
	case "silent":
		return gormlogger.Silent
	case "error":
		return gormlogger.Error
	case "warn":
		return gormlogger.Warn
	case "info", "debug":
		return gormlogger.Info
	default:
		return gormlogger.Warn
	}
}
