package plan

import (
	"fmt"
	"strings"
)

// Printing the plan out, for the command line and golden tests

// Print renders trace and steps with the plain format
func Print(trace []string, steps []string) string {
	return plainFormat.Print(trace, steps)
}

func (self *Format) Print(trace []string, steps []string) string {
	buf := &strings.Builder{}
	self.printTrace(trace, buf)
	self.printSteps(steps, buf)
	return buf.String()
}

func (self *Format) printTrace(
	trace []string,
	buf *strings.Builder,
) {
	if len(trace) == 0 || self.Trace.Ignore {
		return
	}
	if !self.Title.Ignore {
		buf.WriteString(self.Title.Sprint("##> Optimization"))
		buf.WriteString("\n")
	}
	for _, line := range trace {
		buf.WriteString(fmt.Sprintf("  - %s\n", self.Trace.Sprint(line)))
	}
}

func (self *Format) printSteps(
	steps []string,
	buf *strings.Builder,
) {
	if !self.Title.Ignore {
		buf.WriteString(self.Title.Sprint("##> Plan"))
		buf.WriteString("\n")
	}
	for idx, line := range steps {
		fi := self.forStep(line)
		if fi.Ignore {
			continue
		}
		num := self.Number.Sprint(fmt.Sprintf("%3d.", idx+1))
		buf.WriteString(fmt.Sprintf("%s %s\n", num, fi.Sprint(line)))
	}
}
