// Package versions describes the service and numeric library versions a
// brain was trained with. A compiled brain is only usable when its stamp
// equals the running process.
package versions

import (
	"fmt"
	"runtime"
	"runtime/debug"
)

// Service is overridden at build time with -ldflags "-X learninghouse/internal/versions.Service=1.2.3".
var Service = "dev"

const (
	decimalModule = "github.com/shopspring/decimal"
	gonumModule   = "gonum.org/v1/gonum"
)

type Versions struct {
	Service string `json:"service" yaml:"service"`
	Go      string `json:"go" yaml:"go"`
	Decimal string `json:"decimal" yaml:"decimal"`
	Gonum   string `json:"gonum" yaml:"gonum"`
}

func Current() Versions {
	v := Versions{
		Service: Service,
		Go:      runtime.Version(),
		Decimal: "unknown",
		Gonum:   "unknown",
	}

	info, ok := debug.ReadBuildInfo()
	if !ok {
		return v
	}

	if v.Service == "dev" && info.Main.Version != "" && info.Main.Version != "(devel)" {
		v.Service = info.Main.Version
	}

	for _, dep := range info.Deps {
		mod := dep
		if dep.Replace != nil {
			mod = dep.Replace
		}
		switch dep.Path {
		case decimalModule:
			v.Decimal = mod.Version
		case gonumModule:
			v.Gonum = mod.Version
		}
	}

	return v
}

func (v Versions) String() string {
	return fmt.Sprintf("service: %s, go: %s, decimal: %s, gonum: %s", v.Service, v.Go, v.Decimal, v.Gonum)
}
