package main

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/sstutools/fairing/internal/dispatcher"
	"github.com/sstutools/fairing/internal/util"
)

// aliases maps the short script verbs to dispatcher commands.
var aliases = map[string]string{
	"new":      ":FAIRING:NEW:",
	"remove":   ":FAIRING:REMOVE:",
	"symmetry": ":FAIRING:SYMMETRY:",
	"scene":    ":FAIRING:SCENE:",
	"height+":  ":FAIRING:HEIGHT:INC:",
	"height-":  ":FAIRING:HEIGHT:DEC:",
	"top+":     ":FAIRING:TOPRAD:INC:",
	"top-":     ":FAIRING:TOPRAD:DEC:",
	"bottom+":  ":FAIRING:BOTRAD:INC:",
	"bottom-":  ":FAIRING:BOTRAD:DEC:",
	"extra":    ":FAIRING:EXTRA:",
	"deploy":   ":FAIRING:DEPLOY:",
	"decouple": ":FAIRING:DECOUPLE:",
	"stage":    ":FAIRING:STAGE:",
	"tick":     ":FAIRING:TICK:",
	"status":   ":FAIRING:STATUS:",
	"save":     ":FAIRING:SAVE:",
	"part":     ":PART:ADD:",
	"attach":   ":PART:ATTACH:",
	"detach":   ":PART:REMOVE:",
	"flush":    ":TELEMETRY:FLUSH:",
}

// Step is one parsed script line.
type Step struct {
	Line    int
	Command string
	Args    []string
}

// ParseLine turns "verb arg..." or ":RAW:COMMAND: arg..." into a step.
// Blank lines and # comments yield ok=false.
func ParseLine(line string) (Step, bool, error) {
	if i := strings.Index(line, "#"); i >= 0 {
		line = line[:i]
	}
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return Step{}, false, nil
	}

	cmd := fields[0]
	if !strings.HasPrefix(cmd, ":") {
		mapped, ok := aliases[strings.ToLower(cmd)]
		if !ok {
			return Step{}, false, fmt.Errorf("unknown command %q", cmd)
		}
		cmd = mapped
	}
	return Step{Command: cmd, Args: util.CleanArgs(fields[1:])}, true, nil
}

// ParseScript reads one step per line.
func ParseScript(r io.Reader) ([]Step, error) {
	var steps []Step
	sc := bufio.NewScanner(r)
	n := 0
	for sc.Scan() {
		n++
		step, ok, err := ParseLine(sc.Text())
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", n, err)
		}
		if ok {
			step.Line = n
			steps = append(steps, step)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("reading script: %w", err)
	}
	return steps, nil
}

// Result is the printed outcome of one step.
type Result struct {
	Line    int    `json:"line"`
	Command string `json:"command"`
	Result  any    `json:"result,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Run dispatches the steps in order. A failing step is reported and the
// script continues.
func Run(d *dispatcher.Dispatcher, steps []Step, out func(Result)) (failed int) {
	for _, st := range steps {
		res, err := d.Dispatch(dispatcher.Event{Command: st.Command, Args: st.Args})
		r := Result{Line: st.Line, Command: st.Command, Result: res}
		if err != nil {
			r.Error = err.Error()
			failed++
		}
		out(r)
	}
	return failed
}
