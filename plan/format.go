package plan

import (
	"fmt"
	"github.com/fatih/color"
	"strings"
)

const (
	ColorNone = iota
	ColorBlack
	ColorRed
	ColorGreen
	ColorYellow
	ColorBlue
	ColorMagenta
	ColorCyan
	ColorWhite
)

type FormatInstruction struct {
	Ignore    bool // whether this line is entirely dropped
	Bold      bool
	Italic    bool
	Underline bool
	Color     int
}

// Format decides how each kind of line of a printed plan looks
type Format struct {
	Title      *FormatInstruction
	Number     *FormatInstruction
	Trace      *FormatInstruction
	Access     *FormatInstruction
	Filter     *FormatInstruction
	Join       *FormatInstruction
	Projection *FormatInstruction
}

var plainFormat Format

var colorFormat Format

var defFormatInstruction = &FormatInstruction{
	Color: ColorNone,
}

func init() {
	{
		plainFormat.Title = defFormatInstruction
		plainFormat.Number = defFormatInstruction
		plainFormat.Trace = defFormatInstruction
		plainFormat.Access = defFormatInstruction
		plainFormat.Filter = defFormatInstruction
		plainFormat.Join = defFormatInstruction
		plainFormat.Projection = defFormatInstruction
	}

	{
		colorFormat.Title = &FormatInstruction{
			Color: ColorBlue,
			Bold:  true,
		}
		colorFormat.Number = &FormatInstruction{
			Color: ColorBlack,
			Bold:  true,
		}
		colorFormat.Trace = &FormatInstruction{
			Color:  ColorMagenta,
			Italic: true,
		}
		colorFormat.Access = &FormatInstruction{
			Color: ColorRed,
		}
		colorFormat.Filter = &FormatInstruction{
			Color: ColorGreen,
		}
		colorFormat.Join = &FormatInstruction{
			Color: ColorYellow,
			Bold:  true,
		}
		colorFormat.Projection = &FormatInstruction{
			Color: ColorCyan,
		}
	}

	plainFormat.verifyfield()
	colorFormat.verifyfield()
}

func (self *Format) verifyfield() {
	for _, fi := range []*FormatInstruction{
		self.Title,
		self.Number,
		self.Trace,
		self.Access,
		self.Filter,
		self.Join,
		self.Projection,
	} {
		if fi == nil {
			panic("format instruction unset")
		}
	}
}

// FormatByName returns the builtin "plain" or "color" format
func FormatByName(name string) (*Format, bool) {
	switch strings.ToLower(name) {
	case "plain":
		out := plainFormat
		return &out, true
	case "color":
		out := colorFormat
		return &out, true
	default:
		return nil, false
	}
}

func mapcolor(
	c int,
) color.Attribute {
	switch c {
	default:
		return color.Reset
	case ColorBlack:
		return color.FgHiBlack
	case ColorRed:
		return color.FgRed
	case ColorGreen:
		return color.FgGreen
	case ColorYellow:
		return color.FgYellow
	case ColorBlue:
		return color.FgBlue
	case ColorMagenta:
		return color.FgMagenta
	case ColorCyan:
		return color.FgCyan
	case ColorWhite:
		return color.FgWhite
	}
}

// Sprint decorates text, a plain instruction returns text untouched
func (self *FormatInstruction) Sprint(text string) string {
	if self.Color == ColorNone && !self.Bold && !self.Italic && !self.Underline {
		return text
	}

	c := color.New(mapcolor(self.Color))
	if self.Bold {
		c.Add(color.Bold)
	}
	if self.Italic {
		c.Add(color.Italic)
	}
	if self.Underline {
		c.Add(color.Underline)
	}
	return c.Sprint(text)
}

// ParseFormatInstruction parses a ';' separated style, ie "bold;red"
func ParseFormatInstruction(style string) *FormatInstruction {
	f := &FormatInstruction{}

	for _, rr := range strings.Split(style, ";") {
		switch strings.TrimSpace(strings.ToLower(rr)) {
		case "bold":
			f.Bold = true
		case "italic":
			f.Italic = true
		case "underline":
			f.Underline = true
		case "black":
			f.Color = ColorBlack
		case "red":
			f.Color = ColorRed
		case "green":
			f.Color = ColorGreen
		case "yellow":
			f.Color = ColorYellow
		case "blue":
			f.Color = ColorBlue
		case "magenta":
			f.Color = ColorMagenta
		case "cyan":
			f.Color = ColorCyan
		case "white":
			f.Color = ColorWhite
		case "ignore":
			f.Ignore = true
		default:
			// unknown, just ignore
		}
	}
	return f
}

func (self *Format) forStep(line string) *FormatInstruction {
	switch StepKind(line) {
	case StepAccess:
		return self.Access
	case StepFilter:
		return self.Filter
	case StepJoin:
		return self.Join
	case StepProjection:
		return self.Projection
	default:
		return self.Trace
	}
}

// SetStyle overrides the instruction of one kind of line, kind is one of
// title, number, trace, access, filter, join or projection.
func (self *Format) SetStyle(kind string, style string) error {
	fi := ParseFormatInstruction(style)
	switch strings.ToLower(kind) {
	case "title":
		self.Title = fi
	case "number":
		self.Number = fi
	case "trace":
		self.Trace = fi
	case "access":
		self.Access = fi
	case "filter":
		self.Filter = fi
	case "join":
		self.Join = fi
	case "projection":
		self.Projection = fi
	default:
		return fmt.Errorf("unknown format kind %q", kind)
	}
	return nil
}
