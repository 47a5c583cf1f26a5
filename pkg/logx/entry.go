package logx

import "github.com/rs/zerolog"

// Entry builds up a log line with fields before emitting it (chainable)
type Entry struct {
	fields Fields
	err    error
}

// WithFields starts a new entry with the given fields
func WithFields(fields Fields) *Entry {
	e := &Entry{fields: make(Fields, len(fields))}
	for k, v := range fields {
		e.fields[k] = v
	}
	return e
}

// WithField starts a new entry with a single field
func WithField(key string, value interface{}) *Entry {
	return WithFields(Fields{key: value})
}

// WithError starts a new entry carrying an error field
func WithError(err error) *Entry {
	return (&Entry{fields: make(Fields)}).Err(err)
}

// Field adds a field to the entry (chainable)
func (e *Entry) Field(key string, value interface{}) *Entry {
	e.fields[key] = value
	return e
}

// Fields adds multiple fields to the entry (chainable)
func (e *Entry) Fields(fields Fields) *Entry {
	for k, v := range fields {
		e.fields[k] = v
	}
	return e
}

// Err adds an error to the entry (chainable)
func (e *Entry) Err(err error) *Entry {
	e.err = err
	return e
}

// Trace emits the entry at trace level
func (e *Entry) Trace(msg string) { e.emit(LevelTrace, msg) }

// Debug emits the entry at debug level
func (e *Entry) Debug(msg string) { e.emit(LevelDebug, msg) }

// Info emits the entry at info level
func (e *Entry) Info(msg string) { e.emit(LevelInfo, msg) }

// Warn emits the entry at warn level
func (e *Entry) Warn(msg string) { e.emit(LevelWarn, msg) }

// Error emits the entry at error level
func (e *Entry) Error(msg string) { e.emit(LevelError, msg) }

// Fatal emits the entry at fatal level and exits
func (e *Entry) Fatal(msg string) { e.emit(LevelFatal, msg) }

func (e *Entry) emit(level Level, msg string) {
	var ev *zerolog.Event
	if level == LevelFatal {
		ev = defaultLogger.Fatal()
	} else {
		ev = defaultLogger.WithLevel(zerolog.Level(level))
	}
	for k, v := range e.fields {
		ev = ev.Interface(k, v)
	}
	if e.err != nil {
		ev = ev.Err(e.err)
	}
	ev.Msg(msg)
}
