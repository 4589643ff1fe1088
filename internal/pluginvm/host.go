package pluginvm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/bytecodealliance/wasmtime-go/v25"
	"github.com/rs/zerolog"

	"github.com/cuemby/agw/internal/resources"
)

var (
	errPoolNotFound = errors.New("pool not found")
	errRowScanError = errors.New("row scan failed")
)

// Host capability error codes. Negative on the wire, mirroring the guest
// ABI's convention that zero or positive means success (bytes written, or
// "not found" for agw_get_header).
const (
	errMemoryMissing  = -1
	errReadArg2Failed = -2
	errMalformedArgs  = -3
	errUnknownPool    = -4
	errBackendFailed  = -5
	errBufferTooSmall = -6
	errWriteFailed    = -7
	errRowScanFailed  = -8
)

// hostContext is the per-request state every host capability closes over.
// It never outlives the single Invoke call that created it.
type hostContext struct {
	ctx       context.Context
	headers   map[string]string
	resources *resources.Registry
	logger    zerolog.Logger
}

// linkHostFunctions registers the full host capability surface on linker,
// closed over hc. A fresh linker is built per invocation (cheap relative to
// the compiled module it wraps) so no plugin can ever observe another
// request's headers or reuse another request's resource handles.
func linkHostFunctions(linker *wasmtime.Linker, hc *hostContext) error {
	funcs := map[string]interface{}{
		"agw_log":        hc.hostLog,
		"agw_get_header": hc.hostGetHeader,
		"agw_kv_execute": hc.hostKVExecute,
		"agw_sql_query":  hc.hostSQLQuery,
	}
	for name, fn := range funcs {
		if err := linker.FuncWrap("env", name, fn); err != nil {
			return fmt.Errorf("pluginvm: link %s: %w", name, err)
		}
	}
	return nil
}

func memoryOf(caller *wasmtime.Caller) *wasmtime.Memory {
	ext := caller.GetExport("memory")
	if ext == nil {
		return nil
	}
	return ext.Memory()
}

func readString(caller *wasmtime.Caller, ptr, length int32) (string, bool) {
	if length < 0 {
		return "", false
	}
	mem := memoryOf(caller)
	if mem == nil {
		return "", false
	}
	data := mem.UnsafeData(caller)
	start := int(ptr)
	end := start + int(length)
	if start < 0 || end < start || end > len(data) {
		return "", false
	}
	buf := make([]byte, length)
	copy(buf, data[start:end])
	return string(buf), true
}

func writeBytes(caller *wasmtime.Caller, ptr, maxLen int32, payload []byte) int32 {
	if int32(len(payload)) > maxLen {
		return errBufferTooSmall
	}
	mem := memoryOf(caller)
	if mem == nil {
		return errMemoryMissing
	}
	data := mem.UnsafeData(caller)
	start := int(ptr)
	end := start + len(payload)
	if start < 0 || end < start || end > len(data) {
		return errWriteFailed
	}
	copy(data[start:end], payload)
	return int32(len(payload))
}

// hostLog implements agw_log(level_ptr, level_len, msg_ptr, msg_len) -> i32.
// Side-effect only: it emits a structured log line tagged with the
// plugin's chosen level and returns 0, or a negative code if the guest's
// buffers could not be read.
func (hc *hostContext) hostLog(caller *wasmtime.Caller, levelPtr, levelLen, msgPtr, msgLen int32) int32 {
	level, ok := readString(caller, levelPtr, levelLen)
	if !ok {
		return errMemoryMissing
	}
	msg, ok := readString(caller, msgPtr, msgLen)
	if !ok {
		return errReadArg2Failed
	}

	ev := hc.logger.Info()
	switch strings.ToLower(level) {
	case "debug":
		ev = hc.logger.Debug()
	case "warn":
		ev = hc.logger.Warn()
	case "error":
		ev = hc.logger.Error()
	}
	ev.Str("source", "plugin").Msg(msg)
	return 0
}

// hostGetHeader implements agw_get_header(name_ptr, name_len, value_ptr,
// value_max_len) -> i32: the number of bytes written, 0 if the header is
// absent, or a negative error code. Lookup is case-insensitive; hc.headers
// is already keyed by lower-cased name (internal/gateway builds it that
// way before invoking the plugin).
func (hc *hostContext) hostGetHeader(caller *wasmtime.Caller, namePtr, nameLen, valuePtr, valueMaxLen int32) int32 {
	name, ok := readString(caller, namePtr, nameLen)
	if !ok {
		return errMemoryMissing
	}

	value, found := hc.headers[strings.ToLower(name)]
	if !found {
		return 0
	}

	return writeBytes(caller, valuePtr, valueMaxLen, []byte(value))
}

// hostKVExecute implements agw_kv_execute(name_ptr, name_len, cmd_ptr,
// cmd_len, out_ptr, out_max) -> i32. cmd is a JSON array of strings, verb
// first (e.g. ["INCR", "counter"]).
func (hc *hostContext) hostKVExecute(caller *wasmtime.Caller, namePtr, nameLen, cmdPtr, cmdLen, outPtr, outMax int32) int32 {
	name, ok := readString(caller, namePtr, nameLen)
	if !ok {
		return errMemoryMissing
	}
	cmdJSON, ok := readString(caller, cmdPtr, cmdLen)
	if !ok {
		return errReadArg2Failed
	}

	var args []string
	if err := json.Unmarshal([]byte(cmdJSON), &args); err != nil || len(args) == 0 {
		return errMalformedArgs
	}

	client, found := hc.resources.KV(name)
	if !found {
		return errUnknownPool
	}

	cmdArgs := make([]interface{}, len(args))
	for i, a := range args {
		cmdArgs[i] = a
	}

	result, err := client.Do(hc.ctx, cmdArgs...).Result()
	var resp string
	if err != nil {
		resp = fmt.Sprintf("ERR: %v", err)
	} else {
		resp = fmt.Sprint(result)
	}

	return writeBytes(caller, outPtr, outMax, []byte(resp))
}

// hostSQLQuery implements agw_sql_query(kind_ptr, kind_len, name_ptr,
// name_len, sql_ptr, sql_len, out_ptr, out_max) -> i32. kind selects pool
// "A" (Postgres) or "B" (MySQL); the query is read-only and only the first
// column of every row is projected, JSON-encoded as an array of strings.
func (hc *hostContext) hostSQLQuery(caller *wasmtime.Caller, kindPtr, kindLen, namePtr, nameLen, sqlPtr, sqlLen, outPtr, outMax int32) int32 {
	kind, ok := readString(caller, kindPtr, kindLen)
	if !ok {
		return errMemoryMissing
	}
	name, ok := readString(caller, namePtr, nameLen)
	if !ok {
		return errReadArg2Failed
	}
	query, ok := readString(caller, sqlPtr, sqlLen)
	if !ok {
		return errReadArg2Failed
	}

	var rows []string
	var err error
	switch strings.ToUpper(kind) {
	case "A":
		rows, err = hc.queryPoolA(name, query)
	case "B":
		rows, err = hc.queryPoolB(name, query)
	default:
		return errUnknownPool
	}
	switch {
	case errors.Is(err, errPoolNotFound):
		return errUnknownPool
	case errors.Is(err, errRowScanError):
		return errRowScanFailed
	case err != nil:
		return errBackendFailed
	}

	encoded, err := json.Marshal(rows)
	if err != nil {
		return errBackendFailed
	}
	return writeBytes(caller, outPtr, outMax, encoded)
}

func (hc *hostContext) queryPoolA(name, query string) ([]string, error) {
	pool, found := hc.resources.SQLA(name)
	if !found {
		return nil, errPoolNotFound
	}
	rows, err := pool.Query(hc.ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var col string
		if err := rows.Scan(&col); err != nil {
			return nil, errRowScanError
		}
		out = append(out, col)
	}
	return out, rows.Err()
}

func (hc *hostContext) queryPoolB(name, query string) ([]string, error) {
	db, found := hc.resources.SQLB(name)
	if !found {
		return nil, errPoolNotFound
	}
	rows, err := db.QueryContext(hc.ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var col string
		if err := rows.Scan(&col); err != nil {
			return nil, errRowScanError
		}
		out = append(out, col)
	}
	return out, rows.Err()
}
