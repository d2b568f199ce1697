package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
)

// Field — строка вывода Record: имя и значение.
type Field struct {
	Name  string
	Value any
}

// Output печатает результаты команд: данные в stdout, сообщения в stderr.
// В режиме --json вместо таблиц печатается jsonData.
type Output struct {
	jsonMode bool
	w        io.Writer
	errW     io.Writer
}

// NewOutput создаёт Output в stdout/stderr.
func NewOutput(jsonMode bool) *Output {
	return NewOutputTo(jsonMode, os.Stdout, os.Stderr)
}

// NewOutputTo создаёт Output с заданными writer'ами.
func NewOutputTo(jsonMode bool, w, errW io.Writer) *Output {
	return &Output{jsonMode: jsonMode, w: w, errW: errW}
}

// Record печатает один объект: по полю на строку.
func (o *Output) Record(jsonData any, fields ...Field) error {
	if o.jsonMode {
		return o.json(jsonData)
	}

	tw := tabwriter.NewWriter(o.w, 0, 0, 2, ' ', 0)
	for _, f := range fields {
		fmt.Fprintf(tw, "%s:\t%v\n", f.Name, f.Value)
	}
	return tw.Flush()
}

// List печатает таблицу с заголовком.
func (o *Output) List(jsonData any, headers []string, rows [][]string) error {
	if o.jsonMode {
		return o.json(jsonData)
	}

	tw := tabwriter.NewWriter(o.w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join(headers, "\t"))
	for _, row := range rows {
		fmt.Fprintln(tw, strings.Join(row, "\t"))
	}
	return tw.Flush()
}

// Notice печатает сообщение для человека в stderr.
func (o *Output) Notice(format string, args ...any) {
	fmt.Fprintf(o.errW, format+"\n", args...)
}

func (o *Output) json(v any) error {
	enc := json.NewEncoder(o.w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
