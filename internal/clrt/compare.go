package clrt

import (
	"fmt"
	"strings"

	"github.com/cwbudde/clargs/internal/kernelargs"
)

// Mismatch is one disagreement between extracted and driver metadata.
type Mismatch struct {
	Index int    `json:"index" yaml:"index"`
	Arg   string `json:"arg" yaml:"arg"`
	Field string `json:"field" yaml:"field"`
	Got   string `json:"got" yaml:"got"`
	Want  string `json:"want" yaml:"want"`
}

func (m Mismatch) String() string {
	return fmt.Sprintf("argument %d (%s): %s is %q, driver reports %q", m.Index, m.Arg, m.Field, m.Got, m.Want)
}

// Compare checks extracted arguments against the driver's view of the same
// kernel. Only fields both sides define are compared: name, type name and,
// for pointers, the address space and pointee constness.
func Compare(args []kernelargs.Argument, driver []DriverArg) []Mismatch {
	var out []Mismatch
	if len(args) != len(driver) {
		out = append(out, Mismatch{
			Index: -1,
			Field: "count",
			Got:   fmt.Sprint(len(args)),
			Want:  fmt.Sprint(len(driver)),
		})
	}

	n := min(len(args), len(driver))
	for i := 0; i < n; i++ {
		a, d := args[i], driver[i]
		add := func(field, got, want string) {
			out = append(out, Mismatch{Index: i, Arg: a.Name, Field: field, Got: got, Want: want})
		}

		if d.Name != "" && a.Name != d.Name {
			add("name", a.Name, d.Name)
		}

		typename := shortUnsigned(a.TypeName)
		if a.IsPointer {
			typename += "*"
		}
		if driverType := normalizeDriverType(d.TypeName); typename != driverType {
			add("type", typename, driverType)
		}

		space := string(a.Space)
		if space == string(kernelargs.SpaceNone) {
			space = "private"
		}
		if space != d.Address {
			add("address", space, d.Address)
		}

		if a.IsPointer && a.IsConst != d.Const {
			add("const", fmt.Sprint(a.IsConst), fmt.Sprint(d.Const))
		}
	}
	return out
}

// normalizeDriverType removes the space some drivers put before the '*'.
func normalizeDriverType(t string) string {
	t = strings.ReplaceAll(t, " *", "*")
	return strings.TrimSpace(t)
}

// shortUnsigned spells "unsigned int" as "uint", which is how drivers
// report it.
func shortUnsigned(t string) string {
	if rest, ok := strings.CutPrefix(t, "unsigned "); ok {
		return "u" + rest
	}
	return t
}
