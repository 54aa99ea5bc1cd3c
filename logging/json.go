package logging

import (
	"context"
	"encoding/json"
	"io"
	"os"
	"sync"
	"time"
)

// JSONLogger writes one JSON object per line with time, level, msg, error
// and the merged fields at the top level. Reserved keys win over fields.
type JSONLogger struct {
	mu     *sync.Mutex
	out    io.Writer
	level  *levelVar
	fields Fields
	now    func() time.Time
}

// NewJSONLogger creates a JSON lines logger on w
func NewJSONLogger(w io.Writer) *JSONLogger {
	return &JSONLogger{
		mu:     &sync.Mutex{},
		out:    w,
		level:  newLevelVar(InfoLevel),
		fields: Fields{},
		now:    time.Now,
	}
}

func (j *JSONLogger) log(level Level, err error, msg string, fields ...Fields) {
	if !j.level.enabled(level) {
		return
	}

	entry := mergeFields(j.fields, fields...)
	for k, v := range entry {
		// errors marshal as {} otherwise
		if e, ok := v.(error); ok {
			entry[k] = e.Error()
		}
	}

	entry["time"] = j.now().UTC().Format(time.RFC3339Nano)
	entry["level"] = level.String()
	entry["msg"] = msg
	if err != nil {
		entry["error"] = err.Error()
	}

	line, marshalErr := json.Marshal(entry)
	if marshalErr != nil {
		line, _ = json.Marshal(map[string]string{
			"time":  entry["time"].(string),
			"level": level.String(),
			"msg":   msg,
			"error": "unencodable log fields: " + marshalErr.Error(),
		})
	}

	j.mu.Lock()
	j.out.Write(append(line, '\n'))
	j.mu.Unlock()

	if level == FatalLevel {
		os.Exit(1)
	}
}

func (j *JSONLogger) Debug(msg string, fields ...Fields) {
	j.log(DebugLevel, nil, msg, fields...)
}

func (j *JSONLogger) Info(msg string, fields ...Fields) {
	j.log(InfoLevel, nil, msg, fields...)
}

func (j *JSONLogger) Warn(msg string, fields ...Fields) {
	j.log(WarnLevel, nil, msg, fields...)
}

func (j *JSONLogger) Error(err error, msg string, fields ...Fields) {
	j.log(ErrorLevel, err, msg, fields...)
}

func (j *JSONLogger) Fatal(err error, msg string, fields ...Fields) {
	j.log(FatalLevel, err, msg, fields...)
}

// WithFields returns a child sharing the writer, lock and level
func (j *JSONLogger) WithFields(fields Fields) Logger {
	child := *j
	child.fields = mergeFields(j.fields, fields)
	return &child
}

func (j *JSONLogger) WithContext(ctx context.Context) Logger {
	if fields, ok := fieldsFromContext(ctx); ok {
		return j.WithFields(fields)
	}
	return j
}

func (j *JSONLogger) SetLevel(level Level) {
	j.level.set(level)
}
