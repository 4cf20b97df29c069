package ilp

import (
	"fmt"
	"sort"
)

// boolParam is a registered boolean solver parameter. The target pointer is
// owned by the plugin that registered the parameter; setting the parameter
// writes through to the plugin's field.
type boolParam struct {
	name         string
	desc         string
	advanced     bool
	defaultValue bool
	target       *bool
}

// paramSet holds all parameters registered by the solver's plugins.
type paramSet struct {
	bools map[string]*boolParam
}

func newParamSet() *paramSet {
	return &paramSet{bools: make(map[string]*boolParam)}
}

func (ps *paramSet) addBool(name, desc string, target *bool, advanced, defaultValue bool) error {
	if target == nil {
		panic("parameter target pointer is nil")
	}
	if _, ok := ps.bools[name]; ok {
		return fmt.Errorf("parameter %q is already registered", name)
	}
	ps.bools[name] = &boolParam{
		name:         name,
		desc:         desc,
		advanced:     advanced,
		defaultValue: defaultValue,
		target:       target,
	}
	*target = defaultValue
	return nil
}

func (ps *paramSet) setBool(name string, value bool) error {
	p, ok := ps.bools[name]
	if !ok {
		return fmt.Errorf("unknown bool parameter %q", name)
	}
	*p.target = value
	return nil
}

func (ps *paramSet) bool(name string) (bool, error) {
	p, ok := ps.bools[name]
	if !ok {
		return false, fmt.Errorf("unknown bool parameter %q", name)
	}
	return *p.target, nil
}

func (ps *paramSet) resetToDefaults() {
	for _, p := range ps.bools {
		*p.target = p.defaultValue
	}
}

// ParamInfo describes a registered parameter for listings.
type ParamInfo struct {
	Name        string
	Description string
	Type        string
	Default     string
	Current     string
	Advanced    bool
}

func (ps *paramSet) list() []ParamInfo {
	infos := make([]ParamInfo, 0, len(ps.bools))
	for _, p := range ps.bools {
		infos = append(infos, ParamInfo{
			Name:        p.name,
			Description: p.desc,
			Type:        "bool",
			Default:     fmt.Sprintf("%v", p.defaultValue),
			Current:     fmt.Sprintf("%v", *p.target),
			Advanced:    p.advanced,
		})
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Name < infos[j].Name })
	return infos
}
