package messages

import (
	"fmt"
	"strings"
)

// Severity of a single server response line
type Severity int

const (
	SeverityEmpty Severity = iota
	SeverityInfo
	SeverityWarning
	SeverityError
	SeverityFatal
)

func (s Severity) String() string {
	switch s {
	case SeverityEmpty:
		return "empty"
	case SeverityInfo:
		return "info"
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	case SeverityFatal:
		return "fatal"
	default:
		return fmt.Sprintf("severity(%d)", int(s))
	}
}

// Single is one decoded line of a server response
type Single struct {
	Severity   Severity
	Generic    int
	Subsystem  int
	SubCode    int
	UniqueCode int
	RawCode    int
	Format     string
	Args       map[string]string
	Text       string
}

// Decode splits a raw server message code and renders its format string.
//
// The raw code packs severity in bits 28-31, the generic code in bits 16-23,
// the subsystem in bits 10-15 and the sub code in bits 0-9. The unique code
// is the low 16 bits.
func Decode(rawCode int, format string, args map[string]string) Single {
	return Single{
		Severity:   Severity((rawCode >> 28) & 0x0f),
		Generic:    (rawCode >> 16) & 0xff,
		Subsystem:  (rawCode >> 10) & 0x3f,
		SubCode:    rawCode & 0x3ff,
		UniqueCode: rawCode & 0xffff,
		RawCode:    rawCode,
		Format:     format,
		Args:       args,
		Text:       Interpolate(format, args),
	}
}

// Encode builds the raw code for the given parts. Decode(Encode(...)) round trips.
func Encode(severity Severity, generic, subsystem, subCode int) int {
	return (int(severity)&0x0f)<<28 | (generic&0xff)<<16 | (subsystem&0x3f)<<10 | subCode&0x3ff
}

// NewSingle builds an already-rendered line, used by executors that don't
// carry a raw code.
func NewSingle(severity Severity, generic int, text string) Single {
	return Single{
		Severity: severity,
		Generic:  generic,
		RawCode:  Encode(severity, generic, 0, 0),
		Format:   text,
		Text:     text,
	}
}

// Message is the classified form of one server response, possibly bundling
// several lines. The message's own severity is the highest line severity.
type Message struct {
	lines   []Single
	highest int
}

// New wraps the given lines. An empty message reports SeverityEmpty.
func New(lines ...Single) *Message {
	m := &Message{lines: append([]Single(nil), lines...), highest: -1}
	for i, l := range m.lines {
		if m.highest < 0 || l.Severity > m.lines[m.highest].Severity {
			m.highest = i
		}
	}
	return m
}

// Info is shorthand for a one-line informational message.
func Info(text string) *Message {
	return New(NewSingle(SeverityInfo, GenericNone, text))
}

// Warning is shorthand for a one-line warning message.
func Warning(generic int, text string) *Message {
	return New(NewSingle(SeverityWarning, generic, text))
}

// Error is shorthand for a one-line error message.
func Error(generic int, text string) *Message {
	return New(NewSingle(SeverityError, generic, text))
}

// Join merges messages into one, keeping line order. Nil entries are skipped.
func Join(msgs ...*Message) *Message {
	var lines []Single
	for _, m := range msgs {
		if m == nil {
			continue
		}
		lines = append(lines, m.lines...)
	}
	return New(lines...)
}

func (m *Message) top() (Single, bool) {
	if m == nil || m.highest < 0 {
		return Single{}, false
	}
	return m.lines[m.highest], true
}

func (m *Message) Severity() Severity {
	top, ok := m.top()
	if !ok {
		return SeverityEmpty
	}
	return top.Severity
}

// Generic returns the generic code of the highest severity line.
func (m *Message) Generic() int {
	top, _ := m.top()
	return top.Generic
}

func (m *Message) Subsystem() int {
	top, _ := m.top()
	return top.Subsystem
}

func (m *Message) UniqueCode() int {
	top, _ := m.top()
	return top.UniqueCode
}

func (m *Message) IsInfo() bool {
	return m.Severity() == SeverityInfo
}

func (m *Message) IsWarning() bool {
	return m.Severity() == SeverityWarning
}

// IsError is true for error and fatal messages.
func (m *Message) IsError() bool {
	return m.HasSeverity(SeverityError)
}

// HasSeverity reports whether any line is at least min.
func (m *Message) HasSeverity(min Severity) bool {
	return m.Severity() >= min && m.Severity() > SeverityEmpty
}

// AllMessages returns every line in server order.
func (m *Message) AllMessages() []Single {
	if m == nil {
		return nil
	}
	return append([]Single(nil), m.lines...)
}

// ForSeverity returns the lines at or above min.
func (m *Message) ForSeverity(min Severity) []Single {
	return m.filter(func(s Severity) bool { return s >= min })
}

// ForExactSeverity returns the lines with exactly the given severity.
func (m *Message) ForExactSeverity(sev Severity) []Single {
	return m.filter(func(s Severity) bool { return s == sev })
}

func (m *Message) filter(keep func(Severity) bool) []Single {
	if m == nil {
		return nil
	}
	var ret []Single
	for _, l := range m.lines {
		if keep(l.Severity) {
			ret = append(ret, l)
		}
	}
	return ret
}

// FirstInfo returns the text of the first info line, or "".
func (m *Message) FirstInfo() string {
	infos := m.ForExactSeverity(SeverityInfo)
	if len(infos) == 0 {
		return ""
	}
	return infos[0].Text
}

// AllInfo joins the text of every info line with sep.
func (m *Message) AllInfo(sep string) string {
	return joinText(m.ForExactSeverity(SeverityInfo), sep)
}

// Code renders the code triple of the highest line, as in "17:6:3 (6147)".
func (m *Message) Code() string {
	top, ok := m.top()
	if !ok {
		return ""
	}
	return fmt.Sprintf("%d:%d:%d (%d)", top.Generic, top.Subsystem, top.SubCode, top.UniqueCode)
}

func (m *Message) String() string {
	if m == nil {
		return ""
	}
	return joinText(m.lines, "\n")
}

// Err returns a *ServerError for error and fatal messages, nil otherwise.
func (m *Message) Err() error {
	if !m.IsError() {
		return nil
	}
	return &ServerError{Message: m}
}

func joinText(lines []Single, sep string) string {
	parts := make([]string, 0, len(lines))
	for _, l := range lines {
		parts = append(parts, l.Text)
	}
	return strings.Join(parts, sep)
}

// ServerError carries an error or fatal server response. Its text is the
// server's text, unchanged.
type ServerError struct {
	Message *Message
}

func (e *ServerError) Error() string {
	return e.Message.String()
}

func (e *ServerError) Severity() Severity {
	return e.Message.Severity()
}
