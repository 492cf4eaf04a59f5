package logging

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap/buffer"
	"go.uber.org/zap/zapcore"
)

var logfmtPool = buffer.NewPool()

// logfmtEncoder implements zapcore.Encoder producing logfmt lines:
// ts=15:04:05 lvl=info caller=file.go:42 msg="message" key=value
//
// Context fields are accumulated as ordered key/value pairs so that
// With()-bound fields always precede per-entry fields.
type logfmtEncoder struct {
	cfg zapcore.EncoderConfig
	kvs []logfmtPair
	ns  string
}

type logfmtPair struct {
	key string
	val string
}

// NewLogfmtEncoder creates a new logfmt encoder.
func NewLogfmtEncoder(cfg zapcore.EncoderConfig) zapcore.Encoder {
	return &logfmtEncoder{cfg: cfg}
}

func (e *logfmtEncoder) Clone() zapcore.Encoder {
	clone := &logfmtEncoder{cfg: e.cfg, ns: e.ns}
	clone.kvs = append(clone.kvs, e.kvs...)
	return clone
}

func (e *logfmtEncoder) EncodeEntry(ent zapcore.Entry, fields []zapcore.Field) (*buffer.Buffer, error) {
	line := logfmtPool.Get()

	if e.cfg.TimeKey != "" {
		writePair(line, e.cfg.TimeKey, ent.Time.Format("15:04:05"))
	}
	if e.cfg.LevelKey != "" {
		writePair(line, e.cfg.LevelKey, strings.ToLower(ent.Level.String()))
	}
	if e.cfg.CallerKey != "" && ent.Caller.Defined {
		writePair(line, e.cfg.CallerKey, ent.Caller.TrimmedPath())
	}
	if e.cfg.MessageKey != "" {
		writePair(line, e.cfg.MessageKey, ent.Message)
	}

	for _, kv := range e.kvs {
		writePair(line, kv.key, kv.val)
	}

	entryEnc := &logfmtEncoder{cfg: e.cfg}
	for _, f := range fields {
		f.AddTo(entryEnc)
	}
	for _, kv := range entryEnc.kvs {
		writePair(line, kv.key, kv.val)
	}

	if e.cfg.StacktraceKey != "" && ent.Stack != "" {
		writePair(line, e.cfg.StacktraceKey, ent.Stack)
	}

	line.AppendString(e.cfg.LineEnding)
	return line, nil
}

func writePair(buf *buffer.Buffer, key, val string) {
	if buf.Len() > 0 {
		buf.AppendByte(' ')
	}
	buf.AppendString(key)
	buf.AppendByte('=')
	if strings.ContainsAny(val, " \t\n\r\"=") {
		buf.AppendString(strconv.Quote(val))
	} else {
		buf.AppendString(val)
	}
}

func (e *logfmtEncoder) add(key, val string) {
	if e.ns != "" {
		key = e.ns + "." + key
	}
	e.kvs = append(e.kvs, logfmtPair{key: key, val: val})
}

func (e *logfmtEncoder) AddString(key, val string)    { e.add(key, val) }
func (e *logfmtEncoder) AddBool(key string, val bool) { e.add(key, strconv.FormatBool(val)) }

func (e *logfmtEncoder) AddInt(key string, val int)     { e.AddInt64(key, int64(val)) }
func (e *logfmtEncoder) AddInt8(key string, val int8)   { e.AddInt64(key, int64(val)) }
func (e *logfmtEncoder) AddInt16(key string, val int16) { e.AddInt64(key, int64(val)) }
func (e *logfmtEncoder) AddInt32(key string, val int32) { e.AddInt64(key, int64(val)) }
func (e *logfmtEncoder) AddInt64(key string, val int64) {
	e.add(key, strconv.FormatInt(val, 10))
}

func (e *logfmtEncoder) AddUint(key string, val uint)       { e.AddUint64(key, uint64(val)) }
func (e *logfmtEncoder) AddUint8(key string, val uint8)     { e.AddUint64(key, uint64(val)) }
func (e *logfmtEncoder) AddUint16(key string, val uint16)   { e.AddUint64(key, uint64(val)) }
func (e *logfmtEncoder) AddUint32(key string, val uint32)   { e.AddUint64(key, uint64(val)) }
func (e *logfmtEncoder) AddUintptr(key string, val uintptr) { e.AddUint64(key, uint64(val)) }
func (e *logfmtEncoder) AddUint64(key string, val uint64) {
	e.add(key, strconv.FormatUint(val, 10))
}

func (e *logfmtEncoder) AddFloat32(key string, val float32) {
	e.add(key, strconv.FormatFloat(float64(val), 'f', -1, 32))
}

func (e *logfmtEncoder) AddFloat64(key string, val float64) {
	e.add(key, strconv.FormatFloat(val, 'f', -1, 64))
}

func (e *logfmtEncoder) AddComplex64(key string, val complex64) {
	e.add(key, fmt.Sprintf("%v", val))
}

func (e *logfmtEncoder) AddComplex128(key string, val complex128) {
	e.add(key, fmt.Sprintf("%v", val))
}

func (e *logfmtEncoder) AddDuration(key string, val time.Duration) {
	e.add(key, val.String())
}

func (e *logfmtEncoder) AddTime(key string, val time.Time) {
	e.add(key, val.Format(time.RFC3339))
}

func (e *logfmtEncoder) AddBinary(key string, val []byte)     { e.add(key, string(val)) }
func (e *logfmtEncoder) AddByteString(key string, val []byte) { e.add(key, string(val)) }

func (e *logfmtEncoder) AddArray(key string, arr zapcore.ArrayMarshaler) error {
	e.add(key, fmt.Sprintf("%v", arr))
	return nil
}

func (e *logfmtEncoder) AddObject(key string, obj zapcore.ObjectMarshaler) error {
	e.add(key, fmt.Sprintf("%v", obj))
	return nil
}

func (e *logfmtEncoder) AddReflected(key string, val interface{}) error {
	e.add(key, fmt.Sprintf("%v", val))
	return nil
}

// OpenNamespace prefixes subsequent keys with the namespace in dot notation.
func (e *logfmtEncoder) OpenNamespace(key string) {
	if e.ns == "" {
		e.ns = key
	} else {
		e.ns = e.ns + "." + key
	}
}

var _ zapcore.Encoder = (*logfmtEncoder)(nil)
