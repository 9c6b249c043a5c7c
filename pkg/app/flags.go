package app

import (
	"github.com/spf13/pflag"
)

// NamedFlagSets groups flags into named sections for help output.
type NamedFlagSets struct {
	// Order lists section names in registration order.
	Order []string

	sets map[string]*pflag.FlagSet
}

// FlagSet returns the flag set for the given section, creating it on first
// use.
func (nfs *NamedFlagSets) FlagSet(name string) *pflag.FlagSet {
	if nfs.sets == nil {
		nfs.sets = make(map[string]*pflag.FlagSet)
	}
	if _, ok := nfs.sets[name]; !ok {
		nfs.sets[name] = pflag.NewFlagSet(name, pflag.ExitOnError)
		nfs.Order = append(nfs.Order, name)
	}
	return nfs.sets[name]
}
